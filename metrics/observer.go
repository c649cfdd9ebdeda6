package metrics

import (
	"context"

	"github.com/relaydeck/convod/observability"
)

// Observer translates turn-loop events into Prometheus metrics. Register it
// alongside the logging observer via observability.NewMultiObserver.
type Observer struct{}

// NewObserver creates a metrics Observer.
func NewObserver() *Observer {
	return &Observer{}
}

func (Observer) OnEvent(_ context.Context, event observability.Event) {
	switch event.Type {
	case "turn.complete":
		RecordTurn("ok", intData(event.Data, "rounds"))
	case "turn.error":
		RecordTurn("error", intData(event.Data, "rounds"))
	case "turn.tool.complete":
		name, _ := event.Data["name"].(string)
		status := "ok"
		if failed, _ := event.Data["error"].(bool); failed {
			status = "error"
		}
		ms := intData(event.Data, "duration_ms")
		RecordToolCall(name, status, float64(ms)/1000)
	}
}

// intData reads an integer event field regardless of how the emitter typed it.
func intData(data map[string]any, key string) int {
	switch v := data[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}
