// Package session drives one interview practice session: timers, capture, analysis, and the transcript.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rbright/rehearse/internal/fsm"
	"github.com/rbright/rehearse/internal/interview"
	"github.com/rbright/rehearse/internal/ipc"
	"github.com/rbright/rehearse/internal/transcript"
)

const (
	DefaultPrepSeconds   = 15
	DefaultAnswerSeconds = 90
)

type action int

const (
	actionStart action = iota + 1
	actionStop
	actionSkip
	actionFinish
)

func (a action) String() string {
	switch a {
	case actionStart:
		return "start"
	case actionStop:
		return "stop"
	case actionSkip:
		return "skip"
	case actionFinish:
		return "finish"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Result is the complete output of one Run invocation.
type Result struct {
	State      fsm.State
	Topic      string
	Modality   interview.Modality
	Questions  int
	Transcript []transcript.Entry
	StoredID   string
	Early      bool
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// Snapshot is the read-only view exposed to the host UI.
type Snapshot struct {
	State      fsm.State          `json:"state"`
	Topic      string             `json:"topic"`
	Modality   interview.Modality `json:"modality"`
	Index      int                `json:"index"`
	Total      int                `json:"total"`
	Question   interview.Question `json:"question"`
	Timer      TimerKind          `json:"timer,omitempty"`
	Remaining  int                `json:"remaining"`
	Transcript []transcript.Entry `json:"transcript"`
	Message    string             `json:"message,omitempty"`
	StoredID   string             `json:"storedId,omitempty"`
	Error      string             `json:"error,omitempty"`
	Done       bool               `json:"done"`
}

// Indicator is the session-facing subset of indicator behavior.
type Indicator interface {
	ShowQuestion(ctx context.Context, number, total int)
	ShowRecording(context.Context)
	ShowProcessing(context.Context)
	ShowMessage(context.Context, string)
	ShowError(context.Context, string)
	CueStart(context.Context)
	CueStop(context.Context)
	CueSkip(context.Context)
	CueComplete(context.Context)
	Hide(context.Context)
}

// noopIndicator preserves session flow when no indicator is wired.
type noopIndicator struct{}

func (noopIndicator) ShowQuestion(context.Context, int, int) {}
func (noopIndicator) ShowRecording(context.Context)          {}
func (noopIndicator) ShowProcessing(context.Context)         {}
func (noopIndicator) ShowMessage(context.Context, string)    {}
func (noopIndicator) ShowError(context.Context, string)      {}
func (noopIndicator) CueStart(context.Context)               {}
func (noopIndicator) CueStop(context.Context)                {}
func (noopIndicator) CueSkip(context.Context)                {}
func (noopIndicator) CueComplete(context.Context)            {}
func (noopIndicator) Hide(context.Context)                   {}

// Observer receives every published Snapshot from the session goroutine.
// Implementations must not block.
type Observer interface {
	Observe(Snapshot)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Snapshot)

func (f ObserverFunc) Observe(s Snapshot) { f(s) }

// Observers fans one snapshot out to several observers in order.
type Observers []Observer

func (o Observers) Observe(s Snapshot) {
	for _, observer := range o {
		if observer != nil {
			observer.Observe(s)
		}
	}
}

// Option customizes a Controller.
type Option func(*Controller)

// WithTimers sets the preparation and answering windows in ticks.
func WithTimers(prepTicks, answerTicks int) Option {
	return func(c *Controller) {
		if prepTicks > 0 {
			c.prepTicks = prepTicks
		}
		if answerTicks > 0 {
			c.answerTicks = answerTicks
		}
	}
}

// WithTickInterval sets how long one timer tick lasts.
func WithTickInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.tickInterval = d
		}
	}
}

func WithClock(clock Clock) Option {
	return func(c *Controller) {
		if clock != nil {
			c.clock = clock
		}
	}
}

func WithObserver(observer Observer) Option {
	return func(c *Controller) {
		c.observer = observer
	}
}

// WithFrameTimeout bounds the camera frame grab taken before each stop.
func WithFrameTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.frameTimeout = d
		}
	}
}

type pendingOp int

const (
	pendingNone pendingOp = iota
	pendingAcquire
	pendingAnalyze
)

type acquireResult struct {
	handle Handle
	err    error
}

type analyzeResult struct {
	index int
	entry transcript.Entry
	err   error
}

// Controller runs the interview state machine. All session state is owned by the
// goroutine executing Run; other goroutines only enqueue actions and read snapshots.
type Controller struct {
	logger    *slog.Logger
	device    Device
	analyzer  Analyzer
	persister Persister
	indicator Indicator
	observer  Observer

	clock        Clock
	tickInterval time.Duration
	prepTicks    int
	answerTicks  int
	frameTimeout time.Duration

	started atomic.Bool
	actions chan action

	mu   sync.RWMutex
	snap Snapshot

	// owned by the Run goroutine
	setup      interview.Setup
	state      fsm.State
	index      int
	timer      *Timer
	ticker     Ticker
	handle     Handle
	faults     <-chan error
	advancing  bool
	finishing  bool
	early      bool
	pending    pendingOp
	entries    []transcript.Entry
	message    string
	storedID   string
	err        error
	done       bool
	startedAt  time.Time
	finishedAt time.Time
	acquired   chan acquireResult
	analyzed   chan analyzeResult
}

// NewController constructs a session controller with safe default fallbacks.
func NewController(
	logger *slog.Logger,
	device Device,
	analyzer Analyzer,
	persister Persister,
	indicator Indicator,
	opts ...Option,
) *Controller {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if device == nil {
		device = unavailableDevice{}
	}
	if analyzer == nil {
		analyzer = PlaceholderAnalyzer{}
	}
	if persister == nil {
		persister = PersistFunc(func(context.Context, Submission) (string, error) { return "", nil })
	}
	if indicator == nil {
		indicator = noopIndicator{}
	}

	c := &Controller{
		logger:       logger,
		device:       device,
		analyzer:     analyzer,
		persister:    persister,
		indicator:    indicator,
		clock:        realClock{},
		tickInterval: time.Second,
		prepTicks:    DefaultPrepSeconds,
		answerTicks:  DefaultAnswerSeconds,
		frameTimeout: 3 * time.Second,
		actions:      make(chan action, 4),
		state:        fsm.StateLoading,
		acquired:     make(chan acquireResult, 1),
		analyzed:     make(chan analyzeResult, 1),
	}
	c.snap.State = fsm.StateLoading
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the last published state.
func (c *Controller) State() fsm.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap.State
}

// Snapshot returns a copy of the last published view.
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap := c.snap
	snap.Transcript = transcript.Clone(c.snap.Transcript)
	return snap
}

// StartRecording records the current question again after an empty answer.
func (c *Controller) StartRecording() ipc.Response { return c.request(actionStart) }

// StopAndSubmit ends the current answer early and submits it for analysis.
func (c *Controller) StopAndSubmit() ipc.Response { return c.request(actionStop) }

// SkipQuestion records a skipped answer and moves on without analysis.
func (c *Controller) SkipQuestion() ipc.Response { return c.request(actionSkip) }

// FinishEarly ends the session and saves what has been answered so far.
func (c *Controller) FinishEarly() ipc.Response { return c.request(actionFinish) }

// Handle serves IPC commands for the running session.
func (c *Controller) Handle(_ context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case ipc.CommandStatus:
		resp := c.response(true)
		resp.Message = "status"
		return resp
	case ipc.CommandStart:
		return c.StartRecording()
	case ipc.CommandStop:
		return c.StopAndSubmit()
	case ipc.CommandToggle:
		switch c.State() {
		case fsm.StateReady:
			return c.StartRecording()
		case fsm.StateRecording:
			return c.StopAndSubmit()
		default:
			return c.reject("cannot toggle from state %s", c.State())
		}
	case ipc.CommandSkip:
		return c.SkipQuestion()
	case ipc.CommandFinish:
		return c.FinishEarly()
	default:
		return c.reject("unknown command: %s", req.Command)
	}
}

// request enqueues an action when the published state permits it.
// The session goroutine re-checks the state before acting.
func (c *Controller) request(a action) ipc.Response {
	if resp, ok := c.guard(a); !ok {
		return resp
	}

	select {
	case c.actions <- a:
		resp := c.response(true)
		resp.Message = a.String() + " requested"
		return resp
	default:
		return c.reject("busy; %s not queued", a)
	}
}

func (c *Controller) guard(a action) (ipc.Response, bool) {
	state := c.State()
	switch a {
	case actionStart:
		if state == fsm.StateRecording {
			return c.reject("already recording"), false
		}
		if state != fsm.StateReady {
			return c.reject("cannot start from state %s", state), false
		}
	case actionStop:
		if state == fsm.StateProcessing {
			return c.reject("already processing"), false
		}
		if state != fsm.StateRecording {
			return c.reject("cannot stop from state %s", state), false
		}
	case actionSkip:
		switch state {
		case fsm.StatePreparing, fsm.StateRecording, fsm.StateReady:
		case fsm.StateProcessing:
			return c.reject("cannot skip while processing"), false
		default:
			return c.reject("cannot skip from state %s", state), false
		}
	case actionFinish:
		if fsm.IsTerminal(state) {
			return c.reject("session already %s", state), false
		}
	}
	return ipc.Response{}, true
}

func (c *Controller) reject(format string, args ...any) ipc.Response {
	resp := c.response(false)
	resp.Error = fmt.Sprintf(format, args...)
	return resp
}

func (c *Controller) response(ok bool) ipc.Response {
	c.mu.RLock()
	defer c.mu.RUnlock()

	resp := ipc.Response{
		OK:        ok,
		State:     string(c.snap.State),
		Total:     c.snap.Total,
		Remaining: c.snap.Remaining,
	}
	if c.snap.Total > 0 {
		resp.Question = c.snap.Index + 1
	}
	return resp
}
