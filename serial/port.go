// Package serial provides a blepty.Port backed by an existing serial
// device, for bridging the radio to hardware instead of a pty.
package serial

import (
	"os"
	"sync"
	"time"

	"github.com/kellegous/poop"
	"go.bug.st/serial"

	"github.com/kellegous/blepty"
)

type Port struct {
	lock sync.Mutex
	name string
	port serial.Port
}

var _ blepty.Port = (*Port)(nil)

func Open(address string) (*Port, error) {
	port, err := serial.Open(address, &serial.Mode{
		BaudRate: 115200,
		DataBits: 8,
		StopBits: serial.OneStopBit,
		Parity:   serial.NoParity,
	})
	if err != nil {
		return nil, poop.Chain(err)
	}

	return &Port{name: address, port: port}, nil
}

func (p *Port) Name() string {
	return p.name
}

func (p *Port) ReadByte(timeout time.Duration) (byte, error) {
	if err := p.port.SetReadTimeout(timeout); err != nil {
		return 0, poop.Chain(err)
	}

	var buf [1]byte
	n, err := p.port.Read(buf[:])
	if err != nil {
		return 0, poop.Chain(err)
	}
	if n == 0 {
		// the library reports an expired read timeout as an empty read
		return 0, os.ErrDeadlineExceeded
	}
	return buf[0], nil
}

func (p *Port) Write(b []byte) (int, error) {
	p.lock.Lock()
	defer p.lock.Unlock()

	n, err := p.port.Write(b)
	if err != nil {
		return n, poop.Chain(err)
	}
	return n, nil
}

func (p *Port) Close() error {
	if err := p.port.Close(); err != nil {
		return poop.Chain(err)
	}
	return nil
}
