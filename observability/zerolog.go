package observability

import (
	"context"

	"github.com/rs/zerolog"
)

// ZerologObserver emits events to a zerolog.Logger. Event levels are mapped
// via ZerologLevel, the event type becomes the log message, and Data keys are
// flattened as top-level fields.
type ZerologObserver struct {
	logger zerolog.Logger
}

// NewZerologObserver creates a ZerologObserver that emits to the given logger.
func NewZerologObserver(logger zerolog.Logger) *ZerologObserver {
	return &ZerologObserver{logger: logger}
}

func (o *ZerologObserver) OnEvent(ctx context.Context, event Event) {
	o.logger.WithLevel(event.Level.ZerologLevel()).
		Str("source", event.Source).
		Fields(event.Data).
		Msg(string(event.Type))
}
