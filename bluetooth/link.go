package bluetooth

import (
	"sync/atomic"

	"github.com/kellegous/poop"
	"tinygo.org/x/bluetooth"

	"github.com/kellegous/blepty"
)

type Link struct {
	device    bluetooth.Device
	uart      bluetooth.DeviceCharacteristic
	connected atomic.Bool
}

var _ blepty.Link = (*Link)(nil)

// Write issues a blocking write and reads back the characteristic's
// value, which carries the firmware's status byte for the write.
func (l *Link) Write(p []byte) ([]byte, error) {
	if _, err := l.uart.Write(p); err != nil {
		return nil, poop.Chain(err)
	}

	var status [1]byte
	n, err := l.uart.Read(status[:])
	if err != nil {
		return nil, poop.Chain(err)
	}
	return status[:n], nil
}

func (l *Link) WriteWithoutResponse(p []byte) error {
	if _, err := l.uart.WriteWithoutResponse(p); err != nil {
		return poop.Chain(err)
	}
	return nil
}

func (l *Link) IsConnected() bool {
	return l.connected.Load()
}

func (l *Link) Disconnect() error {
	return l.device.Disconnect()
}
