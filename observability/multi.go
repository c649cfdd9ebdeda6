package observability

import "context"

// MultiObserver fans out each event to several sinks, typically a structured
// logger plus the metrics adapter.
type MultiObserver struct {
	observers []Observer
}

// NewMultiObserver creates a MultiObserver over the given sinks. Nil entries
// are skipped so optional observers can be passed unconditionally.
func NewMultiObserver(observers ...Observer) *MultiObserver {
	filtered := make([]Observer, 0, len(observers))
	for _, obs := range observers {
		if obs != nil {
			filtered = append(filtered, obs)
		}
	}
	return &MultiObserver{observers: filtered}
}

func (m *MultiObserver) OnEvent(ctx context.Context, event Event) {
	for _, obs := range m.observers {
		obs.OnEvent(ctx, event)
	}
}
