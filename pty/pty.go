// Package pty provides the default blepty.Port: a freshly allocated
// pseudo-terminal whose slave side can be opened like a serial device.
package pty

import (
	"os"
	"sync"
	"time"

	"github.com/creack/pty"
	"github.com/kellegous/poop"
	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"github.com/kellegous/blepty"
)

type Port struct {
	lock   sync.Mutex
	master *os.File
	slave  *os.File
}

var _ blepty.Port = (*Port)(nil)

// Open allocates a pty pair, puts the slave in raw mode with local echo
// disabled, and makes it world-accessible so unprivileged serial tools
// can open it. Name reports the slave path to hand to those tools.
func Open() (*Port, error) {
	master, slave, err := pty.Open()
	if err != nil {
		return nil, poop.Chain(err)
	}

	if _, err := term.MakeRaw(int(slave.Fd())); err != nil {
		master.Close()
		slave.Close()
		return nil, poop.Chain(err)
	}

	if err := slave.Chmod(0666); err != nil {
		master.Close()
		slave.Close()
		return nil, poop.Chain(err)
	}

	// The master comes back in blocking mode, which keeps it out of the
	// runtime poller and makes read deadlines fail. Re-wrap a dup of
	// the descriptor in non-blocking mode; the original file keeps
	// ownership of its own fd and would close it from its finalizer.
	fd, err := unix.Dup(int(master.Fd()))
	if err != nil {
		master.Close()
		slave.Close()
		return nil, poop.Chain(err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		master.Close()
		slave.Close()
		return nil, poop.Chain(err)
	}

	dup := os.NewFile(uintptr(fd), master.Name())
	master.Close()

	return &Port{master: dup, slave: slave}, nil
}

func (p *Port) Name() string {
	return p.slave.Name()
}

func (p *Port) ReadByte(timeout time.Duration) (byte, error) {
	if err := p.master.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return 0, poop.Chain(err)
	}

	var buf [1]byte
	if _, err := p.master.Read(buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (p *Port) Write(b []byte) (int, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.master.Write(b)
}

func (p *Port) Close() error {
	merr := p.master.Close()
	serr := p.slave.Close()
	if merr != nil {
		return poop.Chain(merr)
	}
	if serr != nil {
		return poop.Chain(serr)
	}
	return nil
}
