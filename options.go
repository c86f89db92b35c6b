package blepty

import "time"

// Observed module firmwares differ on all three of these: chunk sizes
// of 20 and 23 and idle waits from 3s to 10s are all in the field, so
// each is an option rather than a constant.
const (
	DefaultCapacity     = 20
	DefaultIdleTimeout  = 3 * time.Second
	DefaultDrainTimeout = 10 * time.Millisecond
)

type Options struct {
	capacity     int
	idleTimeout  time.Duration
	drainTimeout time.Duration
	policy       Policy
	onSend       func(chunk []byte)
}

type Option func(*Options)

// WithChunkCapacity sets the maximum chunk size flushed to the radio.
func WithChunkCapacity(n int) Option {
	return func(opts *Options) {
		opts.capacity = n
	}
}

// WithIdleTimeout sets how long the bridge waits for a first byte
// before checking whether the link is still up.
func WithIdleTimeout(d time.Duration) Option {
	return func(opts *Options) {
		opts.idleTimeout = d
	}
}

// WithDrainTimeout sets how long the bridge waits for more bytes before
// flushing a partially filled chunk.
func WithDrainTimeout(d time.Duration) Option {
	return func(opts *Options) {
		opts.drainTimeout = d
	}
}

// WithPolicy selects how chunks are written to the radio.
func WithPolicy(p Policy) Option {
	return func(opts *Options) {
		opts.policy = p
	}
}

// OnSend sets a callback for flushed chunks that is mostly used for
// debugging purposes.
func OnSend(fn func(chunk []byte)) Option {
	return func(opts *Options) {
		opts.onSend = fn
	}
}
