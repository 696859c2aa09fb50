package ui

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/rbright/rehearse/internal/fsm"
	"github.com/rbright/rehearse/internal/interview"
	"github.com/rbright/rehearse/internal/ipc"
	"github.com/rbright/rehearse/internal/session"
	"github.com/rbright/rehearse/internal/transcript"
)

type fakeControls struct {
	calls []string
	resp  ipc.Response
}

func (f *fakeControls) record(name string) ipc.Response {
	f.calls = append(f.calls, name)
	return f.resp
}

func (f *fakeControls) StartRecording() ipc.Response { return f.record("start") }
func (f *fakeControls) StopAndSubmit() ipc.Response  { return f.record("stop") }
func (f *fakeControls) SkipQuestion() ipc.Response   { return f.record("skip") }
func (f *fakeControls) FinishEarly() ipc.Response    { return f.record("finish") }

func newTestModel(controls *fakeControls) Model {
	return New(controls, NewFeed(), make(chan DoneMsg), nil)
}

func press(t *testing.T, m Model, key string) (Model, tea.Cmd) {
	t.Helper()
	var msg tea.KeyMsg
	switch key {
	case " ":
		msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "ctrl+c":
		msg = tea.KeyMsg{Type: tea.KeyCtrlC}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	updated, cmd := m.Update(msg)
	return updated.(Model), cmd
}

func withState(m Model, state fsm.State) Model {
	updated, _ := m.Update(SnapshotMsg{Snapshot: session.Snapshot{
		State:    state,
		Total:    3,
		Question: interview.Question{Text: "Tell me about a hard bug."},
	}})
	return updated.(Model)
}

func TestSpaceTogglesByState(t *testing.T) {
	controls := &fakeControls{resp: ipc.Response{OK: true}}

	m := withState(newTestModel(controls), fsm.StateRecording)
	_, cmd := press(t, m, " ")
	require.NotNil(t, cmd)
	cmd()

	m = withState(m, fsm.StateReady)
	_, cmd = press(t, m, " ")
	require.NotNil(t, cmd)
	cmd()

	m = withState(m, fsm.StatePreparing)
	_, cmd = press(t, m, " ")
	require.Nil(t, cmd)

	require.Equal(t, []string{"stop", "start"}, controls.calls)
}

func TestFinishRequiresConfirmation(t *testing.T) {
	controls := &fakeControls{resp: ipc.Response{OK: true}}
	m := withState(newTestModel(controls), fsm.StateRecording)

	m, cmd := press(t, m, "f")
	require.Nil(t, cmd)
	require.True(t, m.confirmFinish)
	require.Contains(t, m.View(), "(y/N)")

	m, cmd = press(t, m, "n")
	require.Nil(t, cmd)
	require.False(t, m.confirmFinish)
	require.Equal(t, "finish cancelled", m.notice)

	m, _ = press(t, m, "f")
	_, cmd = press(t, m, "y")
	require.NotNil(t, cmd)
	cmd()
	require.Equal(t, []string{"finish"}, controls.calls)
}

func TestRejectedActionShowsError(t *testing.T) {
	controls := &fakeControls{resp: ipc.Response{OK: false, Error: "cannot skip while processing"}}
	m := withState(newTestModel(controls), fsm.StateProcessing)

	m, cmd := press(t, m, "s")
	require.NotNil(t, cmd)
	updated, _ := m.Update(cmd())
	m = updated.(Model)

	require.Contains(t, m.View(), "cannot skip while processing")
}

func TestQuitCancelsRunningSession(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m := New(&fakeControls{}, NewFeed(), make(chan DoneMsg), cancel)

	_, cmd := press(t, m, "q")
	require.NotNil(t, cmd)
	require.IsType(t, tea.QuitMsg{}, cmd())
	require.Error(t, ctx.Err())
}

func TestViewShowsQuestionAndCountdown(t *testing.T) {
	m := newTestModel(&fakeControls{})
	updated, _ := m.Update(SnapshotMsg{Snapshot: session.Snapshot{
		State:     fsm.StateRecording,
		Topic:     "Go backend",
		Modality:  interview.ModalityAudioOnly,
		Index:     1,
		Total:     4,
		Remaining: 75,
		Question:  interview.Question{Text: "How does the scheduler work?"},
		Transcript: []transcript.Entry{
			{QuestionText: "First question", AnswerScore: 80},
		},
	}})
	view := updated.(Model).View()

	require.Contains(t, view, "Go backend")
	require.Contains(t, view, "Question 2 of 4")
	require.Contains(t, view, "How does the scheduler work?")
	require.Contains(t, view, "1:15")
	require.Contains(t, view, "80/100")
}

func TestDoneShowsPersistenceFailureAndRecoveryPath(t *testing.T) {
	m := withState(newTestModel(&fakeControls{}), fsm.StateRecording)
	updated, _ := m.Update(DoneMsg{
		Result: session.Result{
			State:      fsm.StateFinished,
			Transcript: []transcript.Entry{transcript.Skipped(interview.Question{Text: "Q"})},
			Err:        fmt.Errorf("%w: %w", session.ErrPersistence, errors.New("disk full")),
		},
		RecoveryPath: "/tmp/session.json",
	})
	view := updated.(Model).View()

	require.Contains(t, view, "disk full")
	require.Contains(t, view, "rehearse history import /tmp/session.json")
	require.Contains(t, view, "0 answered, 1 skipped")
}

func TestDoneShowsStoredID(t *testing.T) {
	m := newTestModel(&fakeControls{})
	updated, _ := m.Update(DoneMsg{Result: session.Result{State: fsm.StateFinished, StoredID: "abc-123"}})
	view := updated.(Model).View()
	require.Contains(t, view, "Session saved")
	require.Contains(t, view, "abc-123")
}

func TestFeedKeepsLatestSnapshot(t *testing.T) {
	feed := NewFeed()
	feed.Observe(session.Snapshot{Remaining: 3})
	feed.Observe(session.Snapshot{Remaining: 2})

	snap, ok := feed.next()
	require.True(t, ok)
	require.Equal(t, 2, snap.Remaining)

	done := make(chan bool, 1)
	go func() {
		_, ok := feed.next()
		done <- ok
	}()
	feed.Close()

	select {
	case ok := <-done:
		require.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("next did not return after Close")
	}
}

func TestWrapText(t *testing.T) {
	require.Equal(t, []string{"alpha beta", "gamma"}, wrapText("alpha beta gamma", 10))
	require.Equal(t, []string{""}, wrapText("  ", 10))
}
