package observability

import "context"

// NoOpObserver discards all events. It is the default when no observer is
// configured.
type NoOpObserver struct{}

func (NoOpObserver) OnEvent(ctx context.Context, event Event) {}
