// Command blepty bridges a Bluetooth LE UART module to a pseudo
// terminal so that ordinary serial tools can talk to the radio.
package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"time"

	"github.com/kellegous/poop"
	"golang.org/x/sync/errgroup"
	"tinygo.org/x/bluetooth"

	"github.com/kellegous/blepty"
	blepty_bluetooth "github.com/kellegous/blepty/bluetooth"
	blepty_pty "github.com/kellegous/blepty/pty"
	blepty_serial "github.com/kellegous/blepty/serial"
)

const scanWindow = 2 * time.Second

type Flags struct {
	MAC          string
	Name         string
	List         bool
	Port         string
	Capacity     int
	IdleTimeout  time.Duration
	DrainTimeout time.Duration
	Acked        bool
	Verbose      bool
}

func main() {
	if err := run(context.Background()); err != nil {
		poop.HitFan(err)
	}
}

func run(ctx context.Context) error {
	var flags Flags
	flag.StringVar(
		&flags.MAC,
		"mac",
		"",
		"the MAC address of the Bluetooth LE device",
	)
	flag.StringVar(
		&flags.Name,
		"name",
		"",
		"the name of the Bluetooth LE device",
	)
	flag.BoolVar(
		&flags.List,
		"list",
		false,
		"list the discoverable Bluetooth LE devices",
	)
	flag.StringVar(
		&flags.Port,
		"port",
		"",
		"bridge to an existing serial device instead of allocating a pty",
	)
	flag.IntVar(
		&flags.Capacity,
		"capacity",
		blepty.DefaultCapacity,
		"the maximum chunk size in bytes (firmwares use 20 or 23)",
	)
	flag.DurationVar(
		&flags.IdleTimeout,
		"idle-timeout",
		blepty.DefaultIdleTimeout,
		"how long to wait for a first byte before checking the link",
	)
	flag.DurationVar(
		&flags.DrainTimeout,
		"drain-timeout",
		blepty.DefaultDrainTimeout,
		"how long to wait for more bytes before flushing a short chunk",
	)
	flag.BoolVar(
		&flags.Acked,
		"ack",
		false,
		"wait for the firmware's in-band acknowledgement of each chunk",
	)
	flag.BoolVar(
		&flags.Verbose,
		"verbose",
		false,
		"verbose output",
	)
	flag.Parse()

	client, err := blepty_bluetooth.NewClient(bluetooth.DefaultAdapter)
	if err != nil {
		return poop.Chain(err)
	}

	if flags.List {
		return list(ctx, client)
	}

	address, ok, err := resolve(ctx, client, &flags)
	if err != nil {
		return poop.Chain(err)
	}
	if !ok {
		return nil
	}

	return bridge(ctx, client, address, &flags)
}

func resolve(
	ctx context.Context,
	client *blepty_bluetooth.Client,
	flags *Flags,
) (bluetooth.Address, bool, error) {
	if flags.MAC != "" {
		address, err := blepty_bluetooth.ParseAddress(flags.MAC)
		if err != nil {
			return bluetooth.Address{}, false, poop.Chain(err)
		}
		return address, true, nil
	}

	if flags.Name != "" {
		ctx, cancel := context.WithTimeout(ctx, scanWindow)
		defer cancel()

		address, err := client.ResolveName(ctx, flags.Name)
		if err != nil {
			return bluetooth.Address{}, false, poop.Chain(err)
		}
		return address, true, nil
	}

	return bluetooth.Address{}, false, nil
}

func list(ctx context.Context, client *blepty_bluetooth.Client) error {
	sctx, cancel := context.WithTimeout(ctx, scanWindow)
	defer cancel()

	var devices []*bluetooth.ScanResult
	for device, err := range client.DiscoverDevices(sctx) {
		if err != nil {
			return poop.Chain(err)
		}
		devices = append(devices, device)
	}

	infos := make([][]blepty_bluetooth.CharacteristicInfo, len(devices))

	g, gctx := errgroup.WithContext(ctx)
	for i, device := range devices {
		g.Go(func() error {
			chars, err := client.Characteristics(gctx, device.Address)
			if err != nil {
				return poop.Chain(err)
			}
			infos[i] = chars
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return poop.Chain(err)
	}

	fmt.Println("Devices")
	for i, device := range devices {
		fmt.Printf("    name: %s, address: %s\n", device.LocalName(), device.Address)
		for _, info := range infos[i] {
			fmt.Printf("        %s (service %s)\n", info.UUID, info.Service)
		}
	}

	return nil
}

func bridge(
	ctx context.Context,
	client *blepty_bluetooth.Client,
	address bluetooth.Address,
	flags *Flags,
) error {
	var port blepty.Port
	if flags.Port != "" {
		p, err := blepty_serial.Open(flags.Port)
		if err != nil {
			return poop.Chain(err)
		}
		port = p
	} else {
		p, err := blepty_pty.Open()
		if err != nil {
			return poop.Chain(err)
		}
		fmt.Printf("Listening on %s\n", p.Name())
		port = p
	}

	var sinkOpts []blepty.SinkOption
	var bridgeOpts []blepty.Option
	if flags.Verbose {
		sinkOpts = append(sinkOpts, blepty.OnRecv(func(frame []byte) {
			fmt.Printf("data[%2d]: %s\n", len(frame), hex.EncodeToString(frame))
		}))
		bridgeOpts = append(bridgeOpts, blepty.OnSend(func(chunk []byte) {
			fmt.Printf("write[%2d]: %s\n", len(chunk), hex.EncodeToString(chunk))
		}))
	}
	sinkOpts = append(sinkOpts, blepty.OnDrop(func(frame []byte) {
		fmt.Printf("dropped short frame (%d bytes)\n", len(frame))
	}))

	sink := blepty.NewSink(port, sinkOpts...)

	link, err := client.Connect(ctx, address, blepty_bluetooth.WithSink(sink))
	if err != nil {
		port.Close()
		return poop.Chain(err)
	}

	var policy blepty.Policy
	if flags.Acked {
		policy = blepty.NewAcknowledged()
	} else {
		policy = &blepty.FireAndForget{
			OnError: func(err error) {
				fmt.Printf("write failed: %s\n", err)
			},
		}
	}

	bridgeOpts = append(
		bridgeOpts,
		blepty.WithChunkCapacity(flags.Capacity),
		blepty.WithIdleTimeout(flags.IdleTimeout),
		blepty.WithDrainTimeout(flags.DrainTimeout),
		blepty.WithPolicy(policy),
	)

	return blepty.New(port, link, bridgeOpts...).Run(ctx)
}
