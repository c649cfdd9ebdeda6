package convo

import "github.com/relaydeck/convod/observability"

// Orchestrator event types emitted during the turn loop.
const (
	EventTurnStart    observability.EventType = "turn.start"
	EventTurnResponse observability.EventType = "turn.response"
	EventTurnComplete observability.EventType = "turn.complete"
	EventRoundStart   observability.EventType = "turn.round.start"
	EventToolCall     observability.EventType = "turn.tool.call"
	EventToolComplete observability.EventType = "turn.tool.complete"
	EventTurnError    observability.EventType = "turn.error"
)
