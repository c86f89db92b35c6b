package blepty

import (
	"io"
	"sync"
)

// notification frames carry a 3 byte header ahead of the payload.
const frameHeaderLen = 3

// Sink forwards notification frames from the radio to the port. The
// radio stack delivers frames on its own goroutine, so writes to the
// port are serialized behind a lock.
type Sink struct {
	lock sync.Mutex
	w    io.Writer
	opts SinkOptions
}

var _ NotificationSink = (*Sink)(nil)

func NewSink(w io.Writer, opts ...SinkOption) *Sink {
	s := &Sink{w: w}
	for _, opt := range opts {
		opt(&s.opts)
	}
	return s
}

// OnNotification strips the frame header and writes the payload through
// to the port. Frames too short to carry a header are dropped. A full
// port buffer blocks the radio stack's delivery goroutine briefly,
// which is the backpressure we want.
func (s *Sink) OnNotification(frame []byte) {
	if len(frame) < frameHeaderLen {
		if s.opts.onDrop != nil {
			s.opts.onDrop(frame)
		}
		return
	}

	if s.opts.onRecv != nil {
		s.opts.onRecv(frame)
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	s.w.Write(frame[frameHeaderLen:])
}

type SinkOptions struct {
	onRecv func(frame []byte)
	onDrop func(frame []byte)
}

type SinkOption func(*SinkOptions)

// OnRecv sets a callback for inbound frames that is mostly used for
// debugging purposes.
func OnRecv(fn func(frame []byte)) SinkOption {
	return func(opts *SinkOptions) {
		opts.onRecv = fn
	}
}

// OnDrop sets a callback for frames discarded as too short.
func OnDrop(fn func(frame []byte)) SinkOption {
	return func(opts *SinkOptions) {
		opts.onDrop = fn
	}
}
