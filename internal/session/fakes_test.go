package session

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rbright/rehearse/internal/fsm"
	"github.com/rbright/rehearse/internal/interview"
	"github.com/rbright/rehearse/internal/transcript"
	"github.com/stretchr/testify/require"
)

type fakeIndicator struct {
	questionShows atomic.Int32
	startCues     atomic.Int32
	stopCues      atomic.Int32
	skipCues      atomic.Int32
	completeCues  atomic.Int32
	errors        atomic.Int32
	messages      atomic.Int32
}

func (f *fakeIndicator) ShowQuestion(context.Context, int, int)  { f.questionShows.Add(1) }
func (f *fakeIndicator) ShowRecording(context.Context)           {}
func (f *fakeIndicator) ShowProcessing(context.Context)          {}
func (f *fakeIndicator) ShowMessage(context.Context, string)     { f.messages.Add(1) }
func (f *fakeIndicator) ShowError(context.Context, string)       { f.errors.Add(1) }
func (f *fakeIndicator) CueStart(context.Context)                { f.startCues.Add(1) }
func (f *fakeIndicator) CueStop(context.Context)                 { f.stopCues.Add(1) }
func (f *fakeIndicator) CueSkip(context.Context)                 { f.skipCues.Add(1) }
func (f *fakeIndicator) CueComplete(context.Context)             { f.completeCues.Add(1) }
func (f *fakeIndicator) Hide(context.Context)                    {}

type fakeDevice struct {
	acquireErr    error
	failAcquireAt int32
	startErr      error
	emptyStops    int32

	// holdAcquireAt parks that Acquire call until gate is closed.
	holdAcquireAt int32
	held          chan struct{}
	gate          chan struct{}

	acquires atomic.Int32
	granted  atomic.Int32
	releases atomic.Int32
	starts   atomic.Int32
	stops    atomic.Int32
	frames   atomic.Int32

	mu      sync.Mutex
	handles []*fakeHandle
}

func (d *fakeDevice) Acquire(_ context.Context, _ interview.Modality) (Handle, error) {
	n := d.acquires.Add(1)
	if d.holdAcquireAt != 0 && n == d.holdAcquireAt {
		d.held <- struct{}{}
		<-d.gate
	}
	if d.acquireErr != nil && (d.failAcquireAt == 0 || n == d.failAcquireAt) {
		return nil, d.acquireErr
	}

	h := &fakeHandle{device: d, faults: make(chan error, 1)}
	d.granted.Add(1)
	d.mu.Lock()
	d.handles = append(d.handles, h)
	d.mu.Unlock()
	return h, nil
}

func (d *fakeDevice) lastHandle() *fakeHandle {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.handles) == 0 {
		return nil
	}
	return d.handles[len(d.handles)-1]
}

type fakeHandle struct {
	device   *fakeDevice
	faults   chan error
	released atomic.Bool
}

func (h *fakeHandle) Start(context.Context) error {
	h.device.starts.Add(1)
	return h.device.startErr
}

func (h *fakeHandle) Stop(context.Context) (Recording, error) {
	n := h.device.stops.Add(1)
	chunks := 3
	if n <= h.device.emptyStops {
		chunks = 0
	}
	return Recording{
		Audio:       []byte("RIFF"),
		Filename:    "audio.wav",
		ContentType: "audio/wav",
		Chunks:      chunks,
		Bytes:       int64(chunks * 640),
	}, nil
}

func (h *fakeHandle) GrabFrame(context.Context) ([]byte, error) {
	h.device.frames.Add(1)
	return []byte("png"), nil
}

func (h *fakeHandle) Faults() <-chan error { return h.faults }

func (h *fakeHandle) Release() error {
	if h.released.CompareAndSwap(false, true) {
		h.device.releases.Add(1)
	}
	return nil
}

type fakeAnalyzer struct {
	detectErr error
	reviewErr error
	block     chan struct{}
	entered   chan struct{}

	detects atomic.Int32
	reviews atomic.Int32

	mu        sync.Mutex
	frames    [][]byte
	questions []string
}

func (f *fakeAnalyzer) TranscribeAndDetect(_ context.Context, _ Recording, frame []byte) (Detection, error) {
	f.detects.Add(1)
	f.mu.Lock()
	f.frames = append(f.frames, frame)
	f.mu.Unlock()

	if f.entered != nil {
		select {
		case f.entered <- struct{}{}:
		default:
		}
	}
	if f.block != nil {
		<-f.block
	}
	if f.detectErr != nil {
		return Detection{}, f.detectErr
	}
	return Detection{
		Text:           "goroutines are lightweight threads",
		Emotion:        "happy",
		WordsPerMinute: 120,
		FillerWords:    transcript.FillerWords{Count: 1, Words: []string{"um"}},
		Sentiment:      0.4,
	}, nil
}

func (f *fakeAnalyzer) Review(_ context.Context, req ReviewRequest) (Review, error) {
	f.reviews.Add(1)
	f.mu.Lock()
	f.questions = append(f.questions, req.QuestionText)
	f.mu.Unlock()

	if f.reviewErr != nil {
		return Review{}, f.reviewErr
	}
	return Review{
		Relevance: "1 of 2 key points covered.",
		Clarity:   "Assessed in feedback.",
		Feedback:  "Mention the scheduler.",
		Score:     50,
	}, nil
}

type fakePersister struct {
	err   error
	calls atomic.Int32

	mu          sync.Mutex
	submissions []Submission
}

func (f *fakePersister) SaveSession(_ context.Context, sub Submission) (string, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.submissions = append(f.submissions, sub)
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return "stored-1", nil
}

func (f *fakePersister) last() Submission {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submissions[len(f.submissions)-1]
}

// fakeClock hands out tickers that only fire when the test calls tick.
type fakeClock struct {
	mu      sync.Mutex
	tickers []*fakeTicker
}

type fakeTicker struct {
	ch      chan time.Time
	stopped atomic.Bool
}

func (t *fakeTicker) Chan() <-chan time.Time { return t.ch }
func (t *fakeTicker) Stop()                  { t.stopped.Store(true) }

func (c *fakeClock) NewTicker(time.Duration) Ticker {
	t := &fakeTicker{ch: make(chan time.Time)}
	c.mu.Lock()
	c.tickers = append(c.tickers, t)
	c.mu.Unlock()
	return t
}

// tick delivers one tick to the newest ticker and reports whether the session took it.
func (c *fakeClock) tick() bool {
	c.mu.Lock()
	if len(c.tickers) == 0 {
		c.mu.Unlock()
		return false
	}
	current := c.tickers[len(c.tickers)-1]
	c.mu.Unlock()

	select {
	case current.ch <- time.Now():
		return true
	case <-time.After(200 * time.Millisecond):
		return false
	}
}

type stateRecorder struct {
	mu     sync.Mutex
	states []fsm.State
}

func (r *stateRecorder) Observe(s Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n := len(r.states); n == 0 || r.states[n-1] != s.State {
		r.states = append(r.states, s.State)
	}
}

func (r *stateRecorder) sequence() []fsm.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]fsm.State(nil), r.states...)
}

func testQuestions(n int) []interview.Question {
	out := make([]interview.Question, n)
	for i := range out {
		out[i] = interview.Question{
			Text:        "Question " + string(rune('A'+i)),
			KeyPoints:   []string{"lightweight", "scheduler"},
			ModelAnswer: "Reference answer.",
		}
	}
	return out
}

func testSetup(n int, modality interview.Modality) interview.Setup {
	return interview.Setup{Topic: "Go", Modality: modality, Questions: testQuestions(n)}
}

func runAsync(ctx context.Context, ctrl *Controller, setup interview.Setup) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		out <- ctrl.Run(ctx, setup)
	}()
	return out
}

func waitResult(t *testing.T, results <-chan Result) Result {
	t.Helper()

	select {
	case result := <-results:
		return result
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for session result")
		return Result{}
	}
}

func waitFor(t *testing.T, ctrl *Controller, desc string, cond func(Snapshot) bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond(ctrl.Snapshot()) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s (last state %s)", desc, ctrl.State())
}

func waitForState(t *testing.T, ctrl *Controller, state fsm.State, index int) {
	t.Helper()

	waitFor(t, ctrl, string(state), func(s Snapshot) bool {
		return s.State == state && s.Index == index
	})
}

// answerByTimers lets preparation and answering expire for one question on a fake clock.
func answerByTimers(t *testing.T, ctrl *Controller, clock *fakeClock, index int) {
	t.Helper()

	waitForState(t, ctrl, fsm.StatePreparing, index)
	require.True(t, clock.tick(), "preparation tick for question %d", index+1)
	waitForState(t, ctrl, fsm.StateRecording, index)
	require.True(t, clock.tick(), "answering tick for question %d", index+1)
}
