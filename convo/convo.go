// Package convo implements the turn orchestrator: the loop that drives one
// user turn to completion by alternating between the model endpoint and the
// tool invoker until the model produces a plain answer.
//
// The orchestrator borrows a conversation for the duration of one turn and
// persists the transcript through the caller-supplied hook after every state
// transition, so durable storage only ever shows forward progress.
//
//	orc := convo.New(modelClient, invoker, convo.WithMaxRounds(10))
//	result, err := orc.RunTurn(ctx, conv, "list sprint 12 issues", persist)
package convo

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/relaydeck/convod/core/protocol"
	"github.com/relaydeck/convod/core/response"
	"github.com/relaydeck/convod/observability"
	"github.com/relaydeck/convod/store"
	"github.com/relaydeck/convod/tools"
)

// ModelClient abstracts the model endpoint: the full accumulated message
// sequence plus the declared tool schemas go out, one assistant message
// comes back, optionally carrying tool-call requests.
type ModelClient interface {
	Chat(ctx context.Context, messages []protocol.Message, defs []protocol.Tool) (*response.ChatResponse, error)
}

// State identifies the orchestrator's position within a turn.
type State string

const (
	StateAwaitModel     State = "AWAIT_MODEL"
	StateExecutingTools State = "EXECUTING_TOOLS"
	StateDone           State = "DONE"
)

// PersistFunc saves the borrowed conversation's current message sequence.
// The orchestrator calls it after every transition; a failure is fatal to
// the turn.
type PersistFunc func(ctx context.Context) error

// Result holds the outcome of one completed turn.
type Result struct {
	Delta  []protocol.Message // Messages appended during this turn.
	Rounds int                // Model calls made.
	State  State              // Terminal state, StateDone on success.
}

// Option configures an Orchestrator after construction.
type Option func(*Orchestrator)

// WithObserver overrides the default no-op observer.
func WithObserver(o observability.Observer) Option {
	return func(orc *Orchestrator) { orc.observer = o }
}

// WithMaxRounds caps the model/tool round trips per turn. Zero or negative
// restores the default.
func WithMaxRounds(n int) Option {
	return func(orc *Orchestrator) {
		if n > 0 {
			orc.maxRounds = n
		}
	}
}

// WithSystemPrompt sets the instruction message prepended to every outgoing
// model request. The system prompt is never persisted in the transcript.
func WithSystemPrompt(prompt string) Option {
	return func(orc *Orchestrator) { orc.systemPrompt = prompt }
}

const defaultMaxRounds = 10

// Orchestrator runs the model-call / tool-call loop for single turns.
// Safe for concurrent use across different conversations; the caller must
// serialize turns on the same conversation.
type Orchestrator struct {
	model        ModelClient
	tools        tools.Invoker
	observer     observability.Observer
	maxRounds    int
	systemPrompt string
}

// New creates an Orchestrator over the given model endpoint and tool invoker.
func New(model ModelClient, invoker tools.Invoker, opts ...Option) *Orchestrator {
	orc := &Orchestrator{
		model:     model,
		tools:     invoker,
		observer:  observability.NoOpObserver{},
		maxRounds: defaultMaxRounds,
	}
	for _, opt := range opts {
		opt(orc)
	}
	return orc
}

// RunTurn appends the user input to conv and drives the turn until the model
// answers in plain text. Tool failures are recovered into the transcript;
// model and persistence failures abort the turn, leaving the transcript
// exactly as of the last persisted step.
func (orc *Orchestrator) RunTurn(ctx context.Context, conv *store.Conversation, input string, persist PersistFunc) (*Result, error) {
	base := len(conv.Messages)
	result := &Result{State: StateAwaitModel}

	defs, err := orc.tools.List(ctx)
	if err != nil {
		return result, fmt.Errorf("list tools: %w", err)
	}

	orc.emit(ctx, EventTurnStart, observability.LevelInfo, map[string]any{
		"conversation_id": conv.ID,
		"input_length":    len(input),
		"tools":           len(defs),
	})

	// A turn cancelled mid-execution leaves the trailing assistant message
	// with unanswered requests. Answer those first so replies stay adjacent
	// to their request and none is ever issued twice.
	if pending := pendingCalls(conv.Messages); len(pending) > 0 {
		result.State = StateExecutingTools
		if err := orc.executeCalls(ctx, conv, pending, persist); err != nil {
			result.Delta = deltaSince(conv, base)
			return result, err
		}
		result.State = StateAwaitModel
	}

	conv.Messages = append(conv.Messages, protocol.NewText(protocol.RoleUser, input))
	if err := persist(ctx); err != nil {
		result.Delta = deltaSince(conv, base)
		return result, fmt.Errorf("persist transcript: %w", err)
	}

	for round := 0; round < orc.maxRounds; round++ {
		if err := ctx.Err(); err != nil {
			result.Delta = deltaSince(conv, base)
			return result, err
		}

		orc.emit(ctx, EventRoundStart, observability.LevelVerbose, map[string]any{
			"conversation_id": conv.ID,
			"round":           round + 1,
		})

		resp, err := orc.model.Chat(ctx, orc.outgoing(conv), defs)
		result.Rounds = round + 1
		if err != nil {
			orc.emit(ctx, EventTurnError, observability.LevelError, map[string]any{
				"conversation_id": conv.ID,
				"rounds":          result.Rounds,
				"error":           err.Error(),
			})
			result.Delta = deltaSince(conv, base)
			return result, err
		}

		msg, err := resp.First()
		if err != nil {
			result.Delta = deltaSince(conv, base)
			return result, fmt.Errorf("model response: %w", err)
		}

		orc.emit(ctx, EventTurnResponse, observability.LevelVerbose, map[string]any{
			"conversation_id": conv.ID,
			"round":           round + 1,
			"tool_calls":      len(msg.ToolCalls),
			"content_length":  len(msg.Content),
		})

		if len(msg.ToolCalls) == 0 {
			conv.Messages = append(conv.Messages, protocol.NewText(protocol.RoleAssistant, msg.Content))
			if err := persist(ctx); err != nil {
				result.Delta = deltaSince(conv, base)
				return result, fmt.Errorf("persist transcript: %w", err)
			}

			result.State = StateDone
			result.Delta = deltaSince(conv, base)

			orc.emit(ctx, EventTurnComplete, observability.LevelInfo, map[string]any{
				"conversation_id": conv.ID,
				"rounds":          result.Rounds,
				"response_length": len(msg.Content),
			})
			return result, nil
		}

		// One assistant message records all requests, even with empty text.
		assistant := protocol.Message{
			Role:      protocol.RoleAssistant,
			Content:   protocol.Text(msg.Content),
			ToolCalls: slices.Clone(msg.ToolCalls),
		}
		conv.Messages = append(conv.Messages, assistant)
		if err := persist(ctx); err != nil {
			result.Delta = deltaSince(conv, base)
			return result, fmt.Errorf("persist transcript: %w", err)
		}

		result.State = StateExecutingTools
		if err := orc.executeCalls(ctx, conv, assistant.ToolCalls, persist); err != nil {
			result.Delta = deltaSince(conv, base)
			return result, err
		}
		result.State = StateAwaitModel
	}

	orc.emit(ctx, EventTurnError, observability.LevelWarning, map[string]any{
		"conversation_id": conv.ID,
		"error":           "round budget exhausted",
		"rounds":          orc.maxRounds,
	})

	result.Delta = deltaSince(conv, base)
	return result, ErrTurnAborted
}

// executeCalls answers each request in request order, persisting after every
// appended reply. Tool and argument failures are recovered into tool-role
// messages; only cancellation and persistence failures abort.
func (orc *Orchestrator) executeCalls(ctx context.Context, conv *store.Conversation, calls []protocol.ToolCall, persist PersistFunc) error {
	for _, call := range calls {
		if err := ctx.Err(); err != nil {
			return err
		}

		orc.emit(ctx, EventToolCall, observability.LevelVerbose, map[string]any{
			"conversation_id": conv.ID,
			"name":            call.Name,
			"tool_call_id":    call.ID,
		})

		start := time.Now()
		res, err := orc.tools.Invoke(ctx, call.Name, parseArguments(call.Arguments))

		var reply protocol.Message
		isError := err != nil || res.IsError
		switch {
		case err != nil:
			reply = protocol.NewToolReply(call.ID, protocol.Text(fmt.Sprintf("tool execution failed: %v", err)))
		case len(res.Items) > 0:
			reply = protocol.NewToolReply(call.ID, protocol.ToolResult{Items: res.Items})
		default:
			reply = protocol.NewToolReply(call.ID, protocol.Text(res.Content))
		}

		conv.Messages = append(conv.Messages, reply)
		if err := persist(ctx); err != nil {
			return fmt.Errorf("persist transcript: %w", err)
		}

		orc.emit(ctx, EventToolComplete, observability.LevelVerbose, map[string]any{
			"conversation_id": conv.ID,
			"name":            call.Name,
			"tool_call_id":    call.ID,
			"duration_ms":     time.Since(start).Milliseconds(),
			"error":           isError,
		})
	}
	return nil
}

// outgoing builds the model request sequence: the system instruction, when
// configured, followed by the full stored transcript.
func (orc *Orchestrator) outgoing(conv *store.Conversation) []protocol.Message {
	if orc.systemPrompt == "" {
		return conv.Messages
	}

	messages := make([]protocol.Message, 0, len(conv.Messages)+1)
	messages = append(messages, protocol.NewText(protocol.RoleSystem, orc.systemPrompt))
	messages = append(messages, conv.Messages...)
	return messages
}

// parseArguments decodes the transport encoding of tool arguments. Malformed
// payloads degrade to an empty object so the tool, not the turn, reports the
// problem.
func parseArguments(raw string) json.RawMessage {
	if raw == "" || !json.Valid([]byte(raw)) {
		return json.RawMessage("{}")
	}
	return json.RawMessage(raw)
}

// pendingCalls returns the unanswered requests of a trailing assistant
// message, in request order. A fully answered transcript yields nil.
func pendingCalls(messages []protocol.Message) []protocol.ToolCall {
	answered := make(map[string]bool)

	i := len(messages) - 1
	for ; i >= 0; i-- {
		if messages[i].Role != protocol.RoleTool {
			break
		}
		answered[messages[i].ToolCallID] = true
	}
	if i < 0 || messages[i].Role != protocol.RoleAssistant || len(messages[i].ToolCalls) == 0 {
		return nil
	}

	var pending []protocol.ToolCall
	for _, call := range messages[i].ToolCalls {
		if !answered[call.ID] {
			pending = append(pending, call)
		}
	}
	return pending
}

func deltaSince(conv *store.Conversation, base int) []protocol.Message {
	return slices.Clone(conv.Messages[base:])
}

func (orc *Orchestrator) emit(ctx context.Context, typ observability.EventType, level observability.Level, data map[string]any) {
	orc.observer.OnEvent(ctx, observability.Event{
		Type:      typ,
		Level:     level,
		Timestamp: time.Now(),
		Source:    "convo.RunTurn",
		Data:      data,
	})
}
