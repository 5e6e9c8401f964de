package transports

import "context"

// Transport is a serving surface for the application (HTTP API, websocket).
// Implementations own their network lifecycle; Start returns once the
// transport is accepting traffic and Stop drains it.
type Transport interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// ReadyReporter lets a transport expose readiness metadata for informational
// logging at startup.
type ReadyReporter interface {
	ReadyFields() map[string]any
}
