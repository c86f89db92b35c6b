package blepty

import (
	"errors"

	"github.com/kellegous/poop"
)

// AckComplete is the status byte the radio's firmware returns once it
// has accepted a full-size chunk.
const AckComplete = 0x19

var (
	ErrNotAcknowledged = errors.New("write was not acknowledged")
	ErrLinkLost        = errors.New("link lost")
)

// Policy drives one flush of the assembler's chunk to the radio and
// returns the payload that was written.
type Policy interface {
	Flush(link Link, assembler *Assembler) ([]byte, error)
}

// FireAndForget issues a single write without waiting for a reply. The
// chunk is sent as-is, short chunks included, since firmware in this
// mode accepts variable-length writes. A write that fails to issue is
// fatal to that chunk only: it is reported to OnError, the chunk is
// dropped, and the session continues.
type FireAndForget struct {
	OnError func(err error)
}

var _ Policy = (*FireAndForget)(nil)

func (f *FireAndForget) Flush(link Link, assembler *Assembler) ([]byte, error) {
	p := assembler.Take()
	if err := link.WriteWithoutResponse(p); err != nil {
		if f.OnError != nil {
			f.OnError(err)
		}
		return nil, nil
	}
	return p, nil
}

// Acknowledged pads the chunk to the assembler's capacity and re-issues
// the identical write until the result's first byte matches Ack. A
// non-matching result means "not yet acknowledged", not an error.
// MaxAttempts bounds the retries; zero retries forever, which is what
// the original firmware protocol assumed.
type Acknowledged struct {
	Ack         byte
	MaxAttempts int
}

var _ Policy = (*Acknowledged)(nil)

// NewAcknowledged returns an Acknowledged policy that waits for the
// AckComplete token with unbounded retries.
func NewAcknowledged() *Acknowledged {
	return &Acknowledged{Ack: AckComplete}
}

func (a *Acknowledged) Flush(link Link, assembler *Assembler) ([]byte, error) {
	p := assembler.TakePadded()
	for attempt := 0; ; attempt++ {
		if a.MaxAttempts > 0 && attempt == a.MaxAttempts {
			return nil, ErrNotAcknowledged
		}

		res, err := link.Write(p)
		if err != nil {
			return nil, poop.Chain(err)
		}
		if len(res) > 0 && res[0] == a.Ack {
			return p, nil
		}
		if !link.IsConnected() {
			return nil, ErrLinkLost
		}
	}
}
