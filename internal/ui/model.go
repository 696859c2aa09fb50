// Package ui renders a running interview session in the terminal.
package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rbright/rehearse/internal/fsm"
	"github.com/rbright/rehearse/internal/ipc"
	"github.com/rbright/rehearse/internal/session"
	"github.com/rbright/rehearse/internal/transcript"
)

// Controls is the controller surface driven by keys.
type Controls interface {
	StartRecording() ipc.Response
	StopAndSubmit() ipc.Response
	SkipQuestion() ipc.Response
	FinishEarly() ipc.Response
}

// Model is the bubbletea model for one session.
type Model struct {
	controls Controls
	feed     *Feed
	done     <-chan DoneMsg
	cancel   context.CancelFunc

	snap          session.Snapshot
	result        *DoneMsg
	confirmFinish bool
	notice        string
	width         int
}

// New builds a model. cancel aborts the session when the user quits before it ends.
func New(controls Controls, feed *Feed, done <-chan DoneMsg, cancel context.CancelFunc) Model {
	return Model{
		controls: controls,
		feed:     feed,
		done:     done,
		cancel:   cancel,
		snap:     session.Snapshot{State: fsm.StateLoading},
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForSnapshot(m.feed), waitForDone(m.done))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case SnapshotMsg:
		if msg.Snapshot.Index != m.snap.Index || msg.Snapshot.State != m.snap.State {
			m.notice = ""
		}
		m.snap = msg.Snapshot
		return m, waitForSnapshot(m.feed)

	case feedClosedMsg:
		return m, nil

	case responseMsg:
		if msg.Response.OK {
			m.notice = ""
		} else {
			m.notice = msg.Response.Error
		}
		return m, nil

	case DoneMsg:
		m.result = &msg
		m.confirmFinish = false
		m.snap.State = msg.Result.State
		m.snap.Transcript = msg.Result.Transcript
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == keyQuit || key == keyCtrlC {
		if m.result == nil && m.cancel != nil {
			m.cancel()
		}
		return m, tea.Quit
	}
	if m.result != nil {
		return m, nil
	}

	if m.confirmFinish {
		m.confirmFinish = false
		if key == keyConfirm {
			return m, act(m.controls.FinishEarly)
		}
		m.notice = "finish cancelled"
		return m, nil
	}

	switch key {
	case keySpace:
		switch m.snap.State {
		case fsm.StateReady:
			return m, act(m.controls.StartRecording)
		case fsm.StateRecording:
			return m, act(m.controls.StopAndSubmit)
		}
		return m, nil
	case keySkip:
		return m, act(m.controls.SkipQuestion)
	case keyFinish:
		if fsm.IsTerminal(m.snap.State) {
			return m, nil
		}
		m.confirmFinish = true
		return m, nil
	}
	return m, nil
}

func act(fn func() ipc.Response) tea.Cmd {
	return func() tea.Msg {
		return responseMsg{Response: fn()}
	}
}

func (m Model) View() string {
	width := m.width
	if width <= 0 {
		width = 80
	}
	divider := dividerStyle.Render(strings.Repeat("─", width))

	sections := []string{m.renderHeader(), divider}
	if m.result != nil {
		sections = append(sections, m.renderResult())
	} else {
		sections = append(sections, m.renderQuestion(width))
	}
	if body := renderTranscript(m.snap.Transcript); body != "" {
		sections = append(sections, divider, body)
	}
	sections = append(sections, divider)
	if line := m.renderNotice(); line != "" {
		sections = append(sections, line)
	}
	sections = append(sections, m.renderFooter())
	return strings.Join(sections, "\n") + "\n"
}

func (m Model) renderHeader() string {
	title := titleStyle.Render("REHEARSE")
	var details []string
	if m.snap.Topic != "" {
		details = append(details, m.snap.Topic)
	}
	if m.snap.Modality != "" {
		details = append(details, string(m.snap.Modality))
	}
	if len(details) == 0 {
		return title
	}
	return title + dimStyle.Render("  "+strings.Join(details, " · "))
}

func (m Model) renderQuestion(width int) string {
	if m.snap.Total == 0 {
		return dimStyle.Render("Loading...")
	}

	lines := []string{
		dimStyle.Render(fmt.Sprintf("Question %d of %d", m.snap.Index+1, m.snap.Total)),
		questionStyle.Render(strings.Join(wrapText(m.snap.Question.Text, width), "\n")),
		"",
		renderState(m.snap),
	}
	return strings.Join(lines, "\n")
}

func renderState(snap session.Snapshot) string {
	clock := formatClock(snap.Remaining)
	switch snap.State {
	case fsm.StatePreparing:
		return preparingStyle.Render("PREPARE") + "  " + clock
	case fsm.StateRecording:
		return recordingStyle.Render("● RECORDING") + "  " + clock
	case fsm.StateProcessing:
		return processingStyle.Render("⟳ ANALYZING")
	case fsm.StateReady:
		return messageStyle.Render("READY") + dimStyle.Render("  press space to record again")
	case fsm.StateLoading:
		return dimStyle.Render("Preparing capture...")
	default:
		return dimStyle.Render(strings.ToUpper(string(snap.State)))
	}
}

func (m Model) renderResult() string {
	res := m.result.Result
	answered, skipped, failed := transcript.Counts(res.Transcript)
	lines := []string{}

	switch {
	case res.StoredID != "":
		lines = append(lines, okStyle.Render("Session saved")+dimStyle.Render("  id "+res.StoredID))
	case res.Err != nil:
		lines = append(lines, errorStyle.Render("Session ended with an error"))
	default:
		lines = append(lines, okStyle.Render("Session finished"))
	}
	if res.Early {
		lines = append(lines, dimStyle.Render("Finished early"))
	}
	lines = append(lines, fmt.Sprintf("%d answered, %d skipped, %d failed, average score %d",
		answered, skipped, failed, transcript.AverageScore(res.Transcript)))

	if res.Err != nil {
		lines = append(lines, errorStyle.Render(res.Err.Error()))
		if errors.Is(res.Err, session.ErrPersistence) && m.result.RecoveryPath != "" {
			lines = append(lines, messageStyle.Render("Transcript kept at "+m.result.RecoveryPath))
			lines = append(lines, dimStyle.Render("Import it later with: rehearse history import "+m.result.RecoveryPath))
		}
	}
	return strings.Join(lines, "\n")
}

func renderTranscript(entries []transcript.Entry) string {
	if len(entries) == 0 {
		return ""
	}
	lines := make([]string, 0, len(entries))
	for i, entry := range entries {
		var verdict string
		switch entry.TranscribedText {
		case transcript.SkippedText:
			verdict = dimStyle.Render("skipped")
		case transcript.FailedText:
			verdict = errorStyle.Render("failed")
		default:
			verdict = okStyle.Render(fmt.Sprintf("%d/100", entry.AnswerScore))
		}
		lines = append(lines, fmt.Sprintf("%2d. %s  %s", i+1, verdict, truncate(entry.QuestionText, 60)))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderNotice() string {
	switch {
	case m.confirmFinish:
		return messageStyle.Render("Finish now and save answered questions? (y/N)")
	case m.notice != "":
		return errorStyle.Render(m.notice)
	case m.result == nil && m.snap.Message != "":
		return messageStyle.Render(m.snap.Message)
	}
	return ""
}

func (m Model) renderFooter() string {
	type binding struct{ key, desc string }
	bindings := []binding{{"q", "quit"}}
	if m.result == nil {
		bindings = []binding{{"space", "start/stop"}, {"s", "skip"}, {"f", "finish"}, {"q", "quit"}}
	}

	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		parts = append(parts, keyStyle.Render(b.key)+" "+dimStyle.Render(b.desc))
	}
	return strings.Join(parts, "  ")
}

func formatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-1]) + "…"
}

func wrapText(text string, width int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{""}
	}

	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		if len([]rune(current))+1+len([]rune(word)) > width {
			lines = append(lines, current)
			current = word
			continue
		}
		current += " " + word
	}
	return append(lines, current)
}

// Run shows the session until the user quits.
func Run(model Model) error {
	_, err := tea.NewProgram(model).Run()
	return err
}
