// Package blepty bridges a Bluetooth LE UART characteristic to a local
// byte-stream port, usually a pseudo-terminal, so that ordinary serial
// tools can talk to the radio.
package blepty

import (
	"io"
	"time"
)

// Link is a connected GATT session against the radio's UART
// characteristic. Write blocks until the peer produces a result value
// and returns it; the first byte of the result carries the firmware's
// status. WriteWithoutResponse issues the write and returns as soon as
// it has been handed to the controller.
type Link interface {
	Write(p []byte) ([]byte, error)
	WriteWithoutResponse(p []byte) error
	IsConnected() bool
	Disconnect() error
}

// Port is the local end of the bridge. ReadByte waits up to timeout for
// a byte to become readable; an expired wait is reported as an error
// satisfying errors.Is(err, os.ErrDeadlineExceeded). Write must be safe
// to call concurrently with ReadByte, since inbound notifications are
// delivered on the radio stack's own goroutine.
type Port interface {
	io.Writer
	ReadByte(timeout time.Duration) (byte, error)
	Name() string
	Close() error
}

// NotificationSink receives frames pushed asynchronously by the radio.
type NotificationSink interface {
	OnNotification(frame []byte)
}
