// Package bluetooth connects to a BLE module's UART characteristic and
// exposes it as a blepty.Link.
package bluetooth

import (
	"context"
	"iter"

	"github.com/kellegous/poop"
	"tinygo.org/x/bluetooth"
)

// The JNHuaMao modules expose their UART as a single characteristic on
// a vendor service.
var (
	serviceUUID = mustParseUUID("0000ffe0-0000-1000-8000-00805f9b34fb")
	uartUUID    = mustParseUUID("0000ffe1-0000-1000-8000-00805f9b34fb")
)

func mustParseUUID(s string) bluetooth.UUID {
	uuid, err := bluetooth.ParseUUID(s)
	if err != nil {
		panic(err)
	}
	return uuid
}

type Client struct {
	adapter *bluetooth.Adapter
}

func NewClient(adapter *bluetooth.Adapter) (*Client, error) {
	if err := adapter.Enable(); err != nil {
		return nil, poop.Chain(err)
	}
	return &Client{adapter: adapter}, nil
}

// ParseAddress parses a MAC address of the form 00:0E:0B:03:05:FA.
func ParseAddress(s string) (bluetooth.Address, error) {
	mac, err := bluetooth.ParseMAC(s)
	if err != nil {
		return bluetooth.Address{}, poop.Chain(err)
	}
	return bluetooth.Address{MACAddress: bluetooth.MACAddress{MAC: mac}}, nil
}

// DiscoverDevices scans for nearby devices until ctx expires, yielding
// each named device once.
func (c *Client) DiscoverDevices(ctx context.Context) iter.Seq2[*bluetooth.ScanResult, error] {
	return func(yield func(*bluetooth.ScanResult, error) bool) {
		seen := make(map[string]bool)

		go func() {
			<-ctx.Done()
			c.adapter.StopScan()
		}()

		if err := c.adapter.Scan(func(adapter *bluetooth.Adapter, result bluetooth.ScanResult) {
			if result.LocalName() == "" || seen[result.Address.String()] {
				return
			}

			seen[result.Address.String()] = true
			if !yield(&result, nil) {
				c.adapter.StopScan()
			}
		}); err != nil {
			yield(nil, poop.Chain(err))
		}
	}
}

// ResolveName scans for the device with the given name and returns its
// address. Anything other than exactly one match is an error.
func (c *Client) ResolveName(ctx context.Context, name string) (bluetooth.Address, error) {
	var matches []*bluetooth.ScanResult

	for device, err := range c.DiscoverDevices(ctx) {
		if err != nil {
			return bluetooth.Address{}, poop.Chain(err)
		}

		if device.LocalName() == name {
			matches = append(matches, device)
		}
	}

	switch len(matches) {
	case 0:
		return bluetooth.Address{}, poop.Newf("no device named %q found", name)
	case 1:
		return matches[0].Address, nil
	}
	return bluetooth.Address{}, poop.Newf("multiple devices named %q found", name)
}

type CharacteristicInfo struct {
	Service bluetooth.UUID
	UUID    bluetooth.UUID
}

// Characteristics connects to the device at the given address and
// enumerates every characteristic it advertises.
func (c *Client) Characteristics(
	ctx context.Context,
	address bluetooth.Address,
) ([]CharacteristicInfo, error) {
	device, err := c.adapter.Connect(address, bluetooth.ConnectionParams{})
	if err != nil {
		return nil, poop.Chain(err)
	}
	defer device.Disconnect()

	services, err := device.DiscoverServices(nil)
	if err != nil {
		return nil, poop.Chain(err)
	}

	var infos []CharacteristicInfo
	for _, service := range services {
		characteristics, err := service.DiscoverCharacteristics(nil)
		if err != nil {
			return nil, poop.Chain(err)
		}
		for _, characteristic := range characteristics {
			infos = append(infos, CharacteristicInfo{
				Service: service.UUID(),
				UUID:    characteristic.UUID(),
			})
		}
	}

	return infos, nil
}

// Connect establishes a GATT session with the device at the given
// address and binds its UART characteristic. A module without the UART
// characteristic is unusable and fails here, before any bridging
// starts.
func (c *Client) Connect(
	ctx context.Context,
	address bluetooth.Address,
	opts ...ConnectOption,
) (*Link, error) {
	var options ConnectOptions
	for _, opt := range opts {
		opt(&options)
	}

	device, err := c.adapter.Connect(address, bluetooth.ConnectionParams{})
	if err != nil {
		return nil, poop.Chain(err)
	}

	services, err := device.DiscoverServices([]bluetooth.UUID{serviceUUID})
	if err != nil {
		return nil, poop.Chain(err)
	}
	if len(services) != 1 {
		return nil, poop.Newf("expected 1 service, got %d", len(services))
	}

	characteristics, err := services[0].DiscoverCharacteristics([]bluetooth.UUID{uartUUID})
	if err != nil {
		return nil, poop.Chain(err)
	}
	if len(characteristics) != 1 {
		return nil, poop.Newf("uart characteristic %s not found", uartUUID)
	}

	link := &Link{
		device: device,
		uart:   characteristics[0],
	}
	link.connected.Store(true)

	c.adapter.SetConnectHandler(func(d bluetooth.Device, connected bool) {
		if d.Address == device.Address {
			link.connected.Store(connected)
		}
	})

	if options.sink != nil {
		sink := options.sink
		if err := characteristics[0].EnableNotifications(func(data []byte) {
			sink.OnNotification(data)
		}); err != nil {
			device.Disconnect()
			return nil, poop.Chain(err)
		}
	}

	return link, nil
}
