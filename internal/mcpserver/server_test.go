package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"

	"github.com/rbright/rehearse/internal/interview"
	"github.com/rbright/rehearse/internal/store"
	"github.com/rbright/rehearse/internal/transcript"
)

type fakeHistory struct {
	records   []store.Record
	err       error
	lastLimit int
}

func (f *fakeHistory) List(_ context.Context, limit int) ([]store.Record, error) {
	f.lastLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.records) {
		return f.records[:limit], nil
	}
	return f.records, nil
}

func (f *fakeHistory) Get(_ context.Context, id string) (store.Record, error) {
	if f.err != nil {
		return store.Record{}, f.err
	}
	for _, rec := range f.records {
		if rec.ID == id {
			return rec, nil
		}
	}
	return store.Record{}, store.ErrNotFound
}

func call(t *testing.T, history History, tool string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	srv := New(history, "test", nil)
	registered := srv.GetTool(tool)
	require.NotNil(t, registered, tool)

	var req mcp.CallToolRequest
	req.Params.Name = tool
	req.Params.Arguments = args

	result, err := registered.Handler(context.Background(), req)
	require.NoError(t, err)
	return result
}

func text(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	content, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return content.Text
}

func sampleRecords() []store.Record {
	created := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	return []store.Record{
		{
			ID:           "b",
			Topic:        "Go",
			Modality:     "audio_only",
			OverallScore: 72,
			Answers: []transcript.Entry{
				{QuestionText: "Q1", TranscribedText: "answer", AnswerScore: 72},
				transcript.Skipped(interview.Question{Text: "Q2"}),
			},
			CreatedAt: created,
		},
		{ID: "a", Topic: "Python", CreatedAt: created.Add(-time.Hour)},
	}
}

func TestListSessions(t *testing.T) {
	history := &fakeHistory{records: sampleRecords()}
	result := call(t, history, "list_sessions", map[string]any{"limit": float64(1)})
	require.False(t, result.IsError)
	require.Equal(t, 1, history.lastLimit)

	var out listResult
	require.NoError(t, json.Unmarshal([]byte(text(t, result)), &out))
	require.Len(t, out.Sessions, 1)
	require.Equal(t, SessionSummary{
		ID:           "b",
		Topic:        "Go",
		Modality:     "audio_only",
		OverallScore: 72,
		Answered:     1,
		Skipped:      1,
		CreatedAt:    "2026-03-01T09:30:00Z",
	}, out.Sessions[0])
}

func TestListSessionsDefaultsAndBounds(t *testing.T) {
	history := &fakeHistory{records: sampleRecords()}
	result := call(t, history, "list_sessions", nil)
	require.False(t, result.IsError)
	require.Equal(t, defaultListLimit, history.lastLimit)

	result = call(t, history, "list_sessions", map[string]any{"limit": float64(0)})
	require.True(t, result.IsError)
	require.Contains(t, text(t, result), "limit must be between")
}

func TestGetSession(t *testing.T) {
	history := &fakeHistory{records: sampleRecords()}

	result := call(t, history, "get_session", map[string]any{"id": "b"})
	require.False(t, result.IsError)
	var rec store.Record
	require.NoError(t, json.Unmarshal([]byte(text(t, result)), &rec))
	require.Equal(t, "Go", rec.Topic)
	require.Len(t, rec.Answers, 2)

	result = call(t, history, "get_session", map[string]any{"id": "zzz"})
	require.True(t, result.IsError)
	require.Contains(t, text(t, result), `no session with id "zzz"`)

	result = call(t, history, "get_session", map[string]any{})
	require.True(t, result.IsError)
}

func TestStoreErrorsBecomeToolErrors(t *testing.T) {
	history := &fakeHistory{err: errors.New("database is locked")}

	result := call(t, history, "list_sessions", nil)
	require.True(t, result.IsError)
	require.Contains(t, text(t, result), "database is locked")

	result = call(t, history, "get_session", map[string]any{"id": "a"})
	require.True(t, result.IsError)
}
