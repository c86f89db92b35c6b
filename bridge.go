package blepty

import (
	"context"
	"errors"
	"os"

	"github.com/kellegous/poop"
)

// Bridge owns one port and one link and moves bytes between them until
// the link drops. Outbound bytes accumulate in the assembler and are
// flushed by the policy either when a chunk fills or when the port goes
// quiet with bytes pending. Inbound data never passes through here; the
// radio pushes it straight into the Sink.
type Bridge struct {
	port Port
	link Link
	opts Options
}

func New(port Port, link Link, opts ...Option) *Bridge {
	b := &Bridge{
		port: port,
		link: link,
		opts: Options{
			capacity:     DefaultCapacity,
			idleTimeout:  DefaultIdleTimeout,
			drainTimeout: DefaultDrainTimeout,
			policy:       &FireAndForget{},
		},
	}
	for _, opt := range opts {
		opt(&b.opts)
	}
	return b
}

// Run drives the event loop until the link drops or the port fails. The
// port and link are released on every exit path. A lost link is the
// normal way a session ends and returns nil.
func (b *Bridge) Run(ctx context.Context) error {
	defer b.link.Disconnect()
	defer b.port.Close()

	assembler := NewAssembler(b.opts.capacity)

	for {
		if err := ctx.Err(); err != nil {
			return poop.Chain(err)
		}

		// A long wait while idle keeps the liveness poll cheap; a short
		// one while bytes are pending bounds the latency of a trailing
		// short chunk.
		timeout := b.opts.idleTimeout
		if assembler.Size() > 0 {
			timeout = b.opts.drainTimeout
		}

		c, err := b.port.ReadByte(timeout)
		if errors.Is(err, os.ErrDeadlineExceeded) {
			if assembler.Size() == 0 {
				if !b.link.IsConnected() {
					return nil
				}
				continue
			}
			if err := b.flush(assembler); err != nil {
				return poop.Chain(err)
			}
			continue
		} else if err != nil {
			return poop.Chain(err)
		}

		if assembler.Append(c) == Full {
			if err := b.flush(assembler); err != nil {
				return poop.Chain(err)
			}
		}
	}
}

func (b *Bridge) flush(assembler *Assembler) error {
	p, err := b.opts.policy.Flush(b.link, assembler)
	if err != nil {
		return poop.Chain(err)
	}
	// a nil payload means the policy dropped the chunk
	if p != nil && b.opts.onSend != nil {
		b.opts.onSend(p)
	}
	return nil
}
