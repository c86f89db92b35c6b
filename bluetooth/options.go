package bluetooth

import "github.com/kellegous/blepty"

type ConnectOptions struct {
	sink blepty.NotificationSink
}

type ConnectOption func(*ConnectOptions)

// WithSink subscribes the sink to the UART characteristic's
// notifications for the lifetime of the connection.
func WithSink(sink blepty.NotificationSink) ConnectOption {
	return func(opts *ConnectOptions) {
		opts.sink = sink
	}
}
