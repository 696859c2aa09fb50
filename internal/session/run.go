package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rbright/rehearse/internal/fsm"
	"github.com/rbright/rehearse/internal/interview"
	"github.com/rbright/rehearse/internal/transcript"
)

// Run drives the session from the first question to a terminal state.
// It returns once the session is finished (and persisted), failed, or ctx is done.
func (c *Controller) Run(ctx context.Context, setup interview.Setup) Result {
	if !c.started.CompareAndSwap(false, true) {
		return Result{State: c.State(), Err: errors.New("session already started")}
	}

	c.startedAt = time.Now()
	if err := setup.Validate(); err != nil {
		return Result{State: c.state, Err: err, StartedAt: c.startedAt, FinishedAt: time.Now()}
	}

	c.setup = setup
	c.entries = make([]transcript.Entry, 0, setup.Total())
	c.logger.Info("session starting",
		"topic", setup.Topic,
		"modality", string(setup.Modality),
		"questions", setup.Total(),
	)

	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 800*time.Millisecond)
		defer cancel()
		c.indicator.Hide(cleanupCtx)
	}()

	c.publish()
	c.acquire(ctx)

	for !c.done {
		select {
		case <-ctx.Done():
			c.abort(ctx.Err())
		case a := <-c.actions:
			c.onAction(ctx, a)
		case <-c.tickC():
			c.onTick(ctx)
		case err, ok := <-c.faults:
			if !ok {
				c.faults = nil
				continue
			}
			c.onFault(ctx, err)
		case msg := <-c.acquired:
			c.onAcquired(ctx, msg)
		case msg := <-c.analyzed:
			c.onAnalyzed(ctx, msg)
		}
	}

	return Result{
		State:      c.state,
		Topic:      setup.Topic,
		Modality:   setup.Modality,
		Questions:  setup.Total(),
		Transcript: transcript.Clone(c.entries),
		StoredID:   c.storedID,
		Early:      c.early,
		Err:        c.err,
		StartedAt:  c.startedAt,
		FinishedAt: c.finishedAt,
	}
}

func (c *Controller) tickC() <-chan time.Time {
	if c.ticker == nil {
		return nil
	}
	return c.ticker.Chan()
}

func (c *Controller) question() interview.Question {
	return c.setup.Questions[c.index]
}

func (c *Controller) onAction(ctx context.Context, a action) {
	switch a {
	case actionStart:
		if c.state != fsm.StateReady {
			c.ignore(a)
			return
		}
		c.beginRecording(ctx, fsm.EventStart)
	case actionStop:
		if c.state != fsm.StateRecording || c.advancing {
			c.ignore(a)
			return
		}
		c.advancing = true
		c.stopAndSubmit(ctx)
	case actionSkip:
		if !answering(c.state) || c.advancing {
			c.ignore(a)
			return
		}
		c.advancing = true
		c.skip(ctx)
	case actionFinish:
		if fsm.IsTerminal(c.state) || c.finishing {
			c.ignore(a)
			return
		}
		c.finishEarly(ctx)
	}
}

func (c *Controller) ignore(a action) {
	c.logger.Debug("session action ignored",
		"action", a.String(),
		"state", string(c.state),
		"advancing", c.advancing,
	)
}

func answering(state fsm.State) bool {
	return state == fsm.StatePreparing || state == fsm.StateRecording || state == fsm.StateReady
}

func (c *Controller) onTick(ctx context.Context) {
	if c.timer == nil {
		return
	}
	if !c.timer.Tick() {
		c.publish()
		return
	}

	kind := c.timer.Kind
	c.stopTimer()
	switch kind {
	case TimerPreparation:
		if c.state == fsm.StatePreparing {
			c.beginRecording(ctx, fsm.EventPrepElapsed)
		}
	case TimerAnswering:
		if c.state == fsm.StateRecording && !c.advancing {
			c.advancing = true
			c.stopAndSubmit(ctx)
		}
	}
}

func (c *Controller) onFault(ctx context.Context, err error) {
	if c.handle == nil || fsm.IsTerminal(c.state) {
		return
	}
	c.failDevice(ctx, fmt.Errorf("recorder fault: %w", err))
}

// acquire requests a Handle for the current question without blocking the loop.
func (c *Controller) acquire(ctx context.Context) {
	c.pending = pendingAcquire
	modality := c.setup.Modality
	go func() {
		handle, err := c.device.Acquire(ctx, modality)
		c.acquired <- acquireResult{handle: handle, err: err}
	}()
}

func (c *Controller) onAcquired(ctx context.Context, msg acquireResult) {
	c.pending = pendingNone
	if msg.err != nil && c.finishing {
		c.logger.Warn("acquire after finish failed", "question", c.index+1, "error", msg.err.Error())
		if msg.handle != nil {
			_ = msg.handle.Release()
		}
		c.finalize(ctx, fsm.EventFinish)
		return
	}
	if msg.err != nil {
		c.failDevice(ctx, fmt.Errorf("acquire capture device: %w", msg.err))
		return
	}

	c.handle = msg.handle
	c.faults = msg.handle.Faults()
	if c.finishing {
		c.finalize(ctx, fsm.EventFinish)
		return
	}

	event := fsm.EventAdvance
	if c.state == fsm.StateLoading {
		event = fsm.EventAcquired
	}
	c.transition(event)
	c.advancing = false
	c.message = ""
	c.startTimer(TimerPreparation, c.prepTicks)
	c.indicator.ShowQuestion(ctx, c.index+1, c.setup.Total())
	c.publish()
}

func (c *Controller) beginRecording(ctx context.Context, event fsm.Event) {
	if err := c.handle.Start(ctx); err != nil {
		c.failDevice(ctx, fmt.Errorf("start recording: %w", err))
		return
	}

	c.transition(event)
	c.message = ""
	c.startTimer(TimerAnswering, c.answerTicks)
	c.indicator.CueStart(ctx)
	c.indicator.ShowRecording(ctx)
	c.publish()
}

// stopAndSubmit stops capture and hands the answer to the analysis pipeline.
func (c *Controller) stopAndSubmit(ctx context.Context) {
	c.stopTimer()

	var frame []byte
	if c.setup.Modality.WantsVideo() {
		frameCtx, cancel := context.WithTimeout(ctx, c.frameTimeout)
		grabbed, err := c.handle.GrabFrame(frameCtx)
		cancel()
		if err != nil {
			c.logger.Warn("frame grab failed; submitting audio only", "question", c.index+1, "error", err.Error())
		} else {
			frame = grabbed
		}
	}

	recording, err := c.handle.Stop(ctx)
	c.indicator.CueStop(ctx)
	if err != nil {
		c.failDevice(ctx, fmt.Errorf("stop recording: %w", err))
		return
	}

	c.transition(fsm.EventStop)
	if recording.Empty() {
		c.reoffer(ctx)
		return
	}

	c.logger.Info("answer captured",
		"question", c.index+1,
		"audio_bytes", recording.Bytes,
		"chunks", recording.Chunks,
		"frame_bytes", len(frame),
	)

	c.pending = pendingAnalyze
	c.indicator.ShowProcessing(ctx)
	c.publish()

	index, q := c.index, c.question()
	go func() {
		c.analyzed <- c.analyze(ctx, index, q, recording, frame)
	}()
}

// reoffer returns to the same question after a recording with no audio.
func (c *Controller) reoffer(ctx context.Context) {
	c.transition(fsm.EventEmpty)
	c.advancing = false
	c.message = EmptyAnswerMessage
	c.logger.Warn("empty answer; question re-offered", "question", c.index+1, "error", ErrEmptyAnswer.Error())
	c.indicator.ShowMessage(ctx, EmptyAnswerMessage)
	c.publish()
}

// analyze runs the two sequential analysis calls. It must not touch loop-owned state.
func (c *Controller) analyze(ctx context.Context, index int, q interview.Question, audio Recording, frame []byte) analyzeResult {
	detection, err := c.analyzer.TranscribeAndDetect(ctx, audio, frame)
	if err != nil {
		return analyzeResult{index: index, entry: transcript.Failed(q), err: fmt.Errorf("%w: transcribe and detect: %w", ErrAnalysis, err)}
	}

	review, err := c.analyzer.Review(ctx, ReviewRequest{
		QuestionText:    q.Text,
		TranscribedText: detection.Text,
		KeyPoints:       q.KeyPoints,
	})
	if err != nil {
		return analyzeResult{index: index, entry: transcript.Failed(q), err: fmt.Errorf("%w: review: %w", ErrAnalysis, err)}
	}

	return analyzeResult{index: index, entry: mergeAnalysis(q, detection, review)}
}

func (c *Controller) onAnalyzed(ctx context.Context, msg analyzeResult) {
	c.pending = pendingNone
	if msg.index != c.index || len(c.entries) != c.index {
		c.logger.Error("dropping out-of-order analysis", "index", msg.index, "current", c.index, "entries", len(c.entries))
		return
	}

	if msg.err != nil {
		c.logger.Warn("analysis failed; recording degraded answer", "question", msg.index+1, "error", msg.err.Error())
	} else {
		c.logger.Info("answer analyzed", "question", msg.index+1, "score", msg.entry.AnswerScore)
	}
	c.entries = append(c.entries, msg.entry)
	c.advance(ctx)
}

// skip discards any buffered audio and records a skipped answer without analysis.
func (c *Controller) skip(ctx context.Context) {
	c.stopTimer()
	if c.state == fsm.StateRecording {
		if _, err := c.handle.Stop(ctx); err != nil {
			c.logger.Warn("stop on skip failed", "question", c.index+1, "error", err.Error())
		}
	}

	c.transition(fsm.EventSkip)
	c.entries = append(c.entries, transcript.Skipped(c.question()))
	c.indicator.CueSkip(ctx)
	c.advance(ctx)
}

// advance moves past the current question boundary. It runs once per appended entry.
func (c *Controller) advance(ctx context.Context) {
	c.releaseHandle()

	if c.finishing {
		c.finalize(ctx, fsm.EventFinish)
		return
	}
	if c.index+1 >= c.setup.Total() {
		c.finalize(ctx, fsm.EventComplete)
		return
	}

	c.index++
	c.publish()
	c.acquire(ctx)
}

// finishEarly ends the session. An in-flight acquisition or analysis is awaited
// and finalization happens when it reports back.
func (c *Controller) finishEarly(ctx context.Context) {
	c.finishing = true
	c.early = true
	c.stopTimer()

	if c.pending != pendingNone {
		c.message = "Finishing after the current step."
		c.publish()
		return
	}

	if c.state == fsm.StateRecording {
		if _, err := c.handle.Stop(ctx); err != nil {
			c.logger.Warn("stop on finish failed", "question", c.index+1, "error", err.Error())
		}
	}
	c.finalize(ctx, fsm.EventFinish)
}

// finalize enters finished and hands the transcript to persistence exactly once.
func (c *Controller) finalize(ctx context.Context, event fsm.Event) {
	c.stopTimer()
	c.releaseHandle()
	c.transition(event)
	c.finishedAt = time.Now()
	c.message = "Saving results."
	c.indicator.CueComplete(ctx)
	c.publish()

	c.persist(ctx)
	c.done = true
	c.publish()
}

func (c *Controller) persist(ctx context.Context) {
	submission := Submission{
		Topic:      c.setup.Topic,
		Modality:   c.setup.Modality,
		Transcript: transcript.Clone(c.entries),
		Early:      c.early,
		StartedAt:  c.startedAt,
		FinishedAt: c.finishedAt,
	}

	id, err := c.persister.SaveSession(ctx, submission)
	if err != nil {
		persistErr := fmt.Errorf("%w: %w", ErrPersistence, err)
		c.err = errors.Join(c.err, persistErr)
		c.message = "Results could not be saved. The transcript was kept for recovery."
		c.logger.Error("session save failed", "answers", len(submission.Transcript), "error", err.Error())
		c.indicator.ShowError(ctx, "Results not saved")
		return
	}

	c.storedID = id
	if c.err == nil {
		c.message = "Results saved."
	}
	c.logger.Info("session saved", "stored_id", id, "answers", len(submission.Transcript))
}

// failDevice enters error. Answers collected before the fault are still saved.
func (c *Controller) failDevice(ctx context.Context, err error) {
	c.stopTimer()
	c.releaseHandle()
	c.transition(fsm.EventFail)
	c.finishedAt = time.Now()
	c.err = fmt.Errorf("%w: %w", ErrDevice, err)
	c.message = "Capture device unavailable."
	c.logger.Error("capture device failure", "question", c.index+1, "error", err.Error())
	c.indicator.ShowError(ctx, "Microphone or camera unavailable")
	c.publish()

	if len(c.entries) > 0 {
		c.persist(ctx)
	}
	c.done = true
	c.publish()
}

// abort handles context cancellation: release everything and stop without saving.
func (c *Controller) abort(err error) {
	c.stopTimer()
	c.releaseHandle()
	if c.pending == pendingAcquire {
		go func(results <-chan acquireResult) {
			if msg := <-results; msg.handle != nil {
				_ = msg.handle.Release()
			}
		}(c.acquired)
	}
	if !fsm.IsTerminal(c.state) {
		c.transition(fsm.EventFail)
	}
	c.finishedAt = time.Now()
	c.err = err
	c.message = "Session cancelled."
	c.done = true
	c.publish()
}

func (c *Controller) startTimer(kind TimerKind, ticks int) {
	c.stopTimer()
	c.timer = &Timer{Kind: kind, Remaining: ticks}
	c.ticker = c.clock.NewTicker(c.tickInterval)
}

func (c *Controller) stopTimer() {
	if c.ticker != nil {
		c.ticker.Stop()
	}
	c.ticker = nil
	c.timer = nil
}

func (c *Controller) releaseHandle() {
	if c.handle == nil {
		return
	}
	if err := c.handle.Release(); err != nil {
		c.logger.Warn("capture release failed", "error", err.Error())
	}
	c.handle = nil
	c.faults = nil
}

func (c *Controller) transition(event fsm.Event) {
	next, err := fsm.Transition(c.state, event)
	if err != nil {
		c.logger.Error("session transition rejected", "event", string(event), "error", err.Error())
		return
	}
	c.state = next
	c.logger.Info("session state",
		"state", string(next),
		"event", string(event),
		"question", c.index+1,
		"total", c.setup.Total(),
	)
}

// publish copies loop-owned state into the shared snapshot and notifies the observer.
func (c *Controller) publish() {
	snap := Snapshot{
		State:      c.state,
		Topic:      c.setup.Topic,
		Modality:   c.setup.Modality,
		Index:      c.index,
		Total:      c.setup.Total(),
		Transcript: transcript.Clone(c.entries),
		Message:    c.message,
		StoredID:   c.storedID,
		Done:       c.done,
	}
	if c.index < len(c.setup.Questions) {
		snap.Question = c.setup.Questions[c.index]
	}
	if c.timer != nil {
		snap.Timer = c.timer.Kind
		snap.Remaining = c.timer.Remaining
	}
	if c.err != nil {
		snap.Error = c.err.Error()
	}

	c.mu.Lock()
	c.snap = snap
	c.mu.Unlock()

	if c.observer != nil {
		c.observer.Observe(snap)
	}
}
