package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/relaydeck/convod/convo"
	"github.com/relaydeck/convod/core/protocol"
	"github.com/relaydeck/convod/model"
	"github.com/relaydeck/convod/session"
	"github.com/relaydeck/convod/store"
	"github.com/relaydeck/convod/tools"
)

type handlers struct {
	router *session.Router
	tools  tools.Invoker
}

type queryRequest struct {
	Query          string `json:"query"`
	ConversationID string `json:"conversation_id,omitempty"`
}

type queryResponse struct {
	ConversationID string             `json:"conversation_id"`
	Response       string             `json:"response"`
	Messages       []protocol.Message `json:"messages"`
	Rounds         int                `json:"rounds"`
}

// handleQuery runs one full turn and returns the model's final answer.
func (h *handlers) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		respondWithError(w, http.StatusBadRequest, "query must not be empty")
		return
	}

	id, result, err := h.router.Query(r.Context(), req.ConversationID, req.Query)
	if err != nil {
		respondTurnError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, queryResponse{
		ConversationID: id,
		Response:       finalAnswer(result),
		Messages:       result.Delta,
		Rounds:         result.Rounds,
	})
}

type fileRequest struct {
	File           filePayload `json:"file"`
	ConversationID string      `json:"conversation_id,omitempty"`
}

type filePayload struct {
	Filename string `json:"filename"`
	Content  string `json:"content"` // base64
	Type     string `json:"type,omitempty"`
}

type fileResponse struct {
	ConversationID string             `json:"conversation_id"`
	Messages       []protocol.Message `json:"messages"`
}

// uploadReaderTool decodes uploaded payloads; its output is what gets
// recorded in the transcript.
const uploadReaderTool = "read_uploaded_file"

// handleFile runs an uploaded file through the upload reader tool and records
// the result in the conversation for later turns.
func (h *handlers) handleFile(w http.ResponseWriter, r *http.Request) {
	var req fileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.File.Filename == "" {
		respondWithError(w, http.StatusBadRequest, "file.filename must not be empty")
		return
	}
	if req.File.Content == "" {
		respondWithError(w, http.StatusBadRequest, "file.content must not be empty")
		return
	}

	args, err := json.Marshal(map[string]string{"content": req.File.Content})
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Tool failures are recorded, not fatal, matching the turn loop.
	var payload string
	res, err := h.tools.Invoke(r.Context(), uploadReaderTool, args)
	switch {
	case err != nil:
		payload = fmt.Sprintf("tool execution failed: %v", err)
	default:
		payload = res.Content
	}

	conv, err := h.router.RecordUpload(r.Context(), req.ConversationID, req.File.Filename, payload)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, fileResponse{
		ConversationID: conv.ID,
		Messages:       conv.Messages,
	})
}

type toolCallRequest struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

type toolCallResponse struct {
	Content string `json:"content"`
	Items   []any  `json:"items,omitempty"`
	IsError bool   `json:"is_error"`
}

// handleToolCall invokes a single tool directly, bypassing the model.
func (h *handlers) handleToolCall(w http.ResponseWriter, r *http.Request) {
	var req toolCallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		respondWithError(w, http.StatusBadRequest, "name must not be empty")
		return
	}
	args := req.Arguments
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	res, err := h.tools.Invoke(r.Context(), req.Name, args)
	if err != nil {
		if errors.Is(err, tools.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, err.Error())
			return
		}
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, toolCallResponse{
		Content: res.Content,
		Items:   res.Items,
		IsError: res.IsError,
	})
}

// handleListTools returns the declared tool schemas.
func (h *handlers) handleListTools(w http.ResponseWriter, r *http.Request) {
	defs, err := h.tools.List(r.Context())
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"tools": defs})
}

func (h *handlers) handleListConversations(w http.ResponseWriter, r *http.Request) {
	ids, err := h.router.List(r.Context())
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if ids == nil {
		ids = []string{}
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"conversations": ids})
}

func (h *handlers) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "conversationID")

	conv, err := h.router.Transcript(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "conversation not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, conv)
}

func (h *handlers) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "conversationID")

	if err := h.router.Delete(r.Context(), id); err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// respondTurnError maps turn failures onto HTTP statuses. Backend outages and
// exhausted round budgets are upstream failures from the client's view.
func respondTurnError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrUnavailable):
		respondWithError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, convo.ErrTurnAborted):
		respondWithError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, store.ErrNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	default:
		respondWithError(w, http.StatusInternalServerError, err.Error())
	}
}

// finalAnswer extracts the closing assistant text from a turn's delta.
func finalAnswer(result *convo.Result) string {
	for i := len(result.Delta) - 1; i >= 0; i-- {
		msg := result.Delta[i]
		if msg.Role != protocol.RoleAssistant {
			continue
		}
		if text, ok := msg.Content.(protocol.Text); ok {
			return string(text)
		}
	}
	return ""
}

func respondWithJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "error encoding response", http.StatusInternalServerError)
	}
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{"error": message})
}
