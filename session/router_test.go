package session_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaydeck/convod/convo"
	"github.com/relaydeck/convod/core/protocol"
	"github.com/relaydeck/convod/core/response"
	"github.com/relaydeck/convod/session"
	"github.com/relaydeck/convod/store"
	"github.com/relaydeck/convod/tools"
)

// scriptedModel replies with each canned response in order. Concurrency-safe
// so router serialization tests can hammer it.
type scriptedModel struct {
	mu      sync.Mutex
	replies []response.ChatResponse
	calls   int
}

func (m *scriptedModel) Chat(ctx context.Context, messages []protocol.Message, defs []protocol.Tool) (*response.ChatResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls >= len(m.replies) {
		return nil, fmt.Errorf("scripted model exhausted after %d calls", m.calls)
	}
	resp := m.replies[m.calls]
	m.calls++
	return &resp, nil
}

func textReply(content string) response.ChatResponse {
	return response.ChatResponse{
		Choices: []response.Choice{{Message: response.AssistantMessage{Role: "assistant", Content: content}}},
	}
}

// echoModel always answers with the same text, any number of times.
type echoModel struct {
	text  string
	calls atomic.Int64
}

func (m *echoModel) Chat(ctx context.Context, messages []protocol.Message, defs []protocol.Tool) (*response.ChatResponse, error) {
	m.calls.Add(1)
	resp := textReply(m.text)
	return &resp, nil
}

func newRouter(t *testing.T, model convo.ModelClient) (*session.Router, store.Store) {
	t.Helper()
	st := store.NewFileStore(t.TempDir())
	reg := tools.NewRegistry()
	orch := convo.New(model, reg)
	return session.NewRouter(st, orch), st
}

func TestRouter_Query_MintsID(t *testing.T) {
	model := &scriptedModel{replies: []response.ChatResponse{textReply("hello")}}
	router, st := newRouter(t, model)

	id, result, err := router.Query(context.Background(), "", "hi")
	require.NoError(t, err)
	require.NotEmpty(t, id)
	assert.Equal(t, convo.StateDone, result.State)
	require.Len(t, result.Delta, 2)

	// The turn was persisted under the minted id.
	conv, err := st.Load(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, protocol.RoleUser, conv.Messages[0].Role)
	assert.Equal(t, protocol.RoleAssistant, conv.Messages[1].Role)
}

func TestRouter_Query_CreatesOnUnknownID(t *testing.T) {
	model := &scriptedModel{replies: []response.ChatResponse{textReply("first")}}
	router, st := newRouter(t, model)

	id, _, err := router.Query(context.Background(), "fresh-id", "hi")
	require.NoError(t, err)
	assert.Equal(t, "fresh-id", id)

	conv, err := st.Load(context.Background(), "fresh-id")
	require.NoError(t, err)
	assert.Len(t, conv.Messages, 2)
}

func TestRouter_Query_ResumesAcrossCalls(t *testing.T) {
	model := &scriptedModel{replies: []response.ChatResponse{textReply("one"), textReply("two")}}
	router, _ := newRouter(t, model)

	id, _, err := router.Query(context.Background(), "", "first question")
	require.NoError(t, err)

	_, result, err := router.Query(context.Background(), id, "second question")
	require.NoError(t, err)

	// The second turn's delta holds only its own messages.
	require.Len(t, result.Delta, 2)

	conv, err := router.Transcript(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, conv.Messages, 4)
	assert.Equal(t, protocol.Text("second question"), conv.Messages[2].Content)
	assert.Equal(t, protocol.Text("two"), conv.Messages[3].Content)
}

func TestRouter_SerializesSameConversation(t *testing.T) {
	const turns = 16

	model := &echoModel{text: "ok"}
	router, _ := newRouter(t, model)

	var wg sync.WaitGroup
	errs := make(chan error, turns)
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, err := router.Query(context.Background(), "shared", fmt.Sprintf("input %d", i))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	conv, err := router.Transcript(context.Background(), "shared")
	require.NoError(t, err)

	// Each turn appended exactly one user and one assistant message; with
	// serialization the transcript alternates strictly.
	require.Len(t, conv.Messages, turns*2)
	for i, msg := range conv.Messages {
		want := protocol.RoleUser
		if i%2 == 1 {
			want = protocol.RoleAssistant
		}
		assert.Equal(t, want, msg.Role, "message %d", i)
	}
}

func TestRouter_ConcurrentDistinctConversations(t *testing.T) {
	const n = 8

	model := &echoModel{text: "ok"}
	router, _ := newRouter(t, model)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("conv-%d", i)
			_, _, err := router.Query(context.Background(), id, "hi")
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	ids, err := router.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, ids, n)
}

func TestRouter_RecordUpload(t *testing.T) {
	model := &scriptedModel{replies: []response.ChatResponse{textReply("read it")}}
	router, _ := newRouter(t, model)

	conv, err := router.RecordUpload(context.Background(), "", "notes.txt", "sprint notes")
	require.NoError(t, err)
	require.NotEmpty(t, conv.ID)
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, protocol.Text("Uploaded file: notes.txt"), conv.Messages[0].Content)
	assert.Equal(t, protocol.Text("sprint notes"), conv.Messages[1].Content)

	// The recorded upload is durable, not just in the returned copy.
	stored, err := router.Transcript(context.Background(), conv.ID)
	require.NoError(t, err)
	require.Len(t, stored.Messages, 2)

	// The upload context survives into the next turn.
	_, result, err := router.Query(context.Background(), conv.ID, "summarize the file")
	require.NoError(t, err)
	assert.Equal(t, convo.StateDone, result.State)

	stored, err = router.Transcript(context.Background(), conv.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Messages, 4)
}

func TestRouter_Delete(t *testing.T) {
	model := &scriptedModel{replies: []response.ChatResponse{textReply("bye")}}
	router, _ := newRouter(t, model)

	id, _, err := router.Query(context.Background(), "", "hi")
	require.NoError(t, err)

	require.NoError(t, router.Delete(context.Background(), id))

	_, err = router.Transcript(context.Background(), id)
	assert.ErrorIs(t, err, store.ErrNotFound)

	// Deleting an unknown id is a no-op.
	require.NoError(t, router.Delete(context.Background(), "never-existed"))
}

func TestRouter_BeginEnd_EndIsIdempotent(t *testing.T) {
	model := &scriptedModel{}
	router, _ := newRouter(t, model)

	h, err := router.Begin(context.Background(), "twice")
	require.NoError(t, err)
	assert.False(t, h.Minted)
	h.End()
	h.End()

	// The lock was released exactly once; a new borrow must not deadlock.
	h2, err := router.Begin(context.Background(), "twice")
	require.NoError(t, err)
	h2.End()
}

func TestRouter_QueryDeltaMatchesPersisted(t *testing.T) {
	model := &scriptedModel{replies: []response.ChatResponse{textReply("stored answer")}}
	router, st := newRouter(t, model)

	id, result, err := router.Query(context.Background(), "", "question")
	require.NoError(t, err)

	conv, err := st.Load(context.Background(), id)
	require.NoError(t, err)

	got, err := json.Marshal(conv.Messages)
	require.NoError(t, err)
	want, err := json.Marshal(result.Delta)
	require.NoError(t, err)
	assert.JSONEq(t, string(want), string(got))
}
