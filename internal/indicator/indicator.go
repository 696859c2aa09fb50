// Package indicator surfaces session progress as desktop notifications and audio cues.
package indicator

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rbright/rehearse/internal/config"
)

const dispatchTimeout = 400 * time.Millisecond

// Notifier implements session.Indicator with freedesktop notifications sent
// through busctl and synthesized pulse cue tones.
type Notifier struct {
	cfg      config.IndicatorConfig
	logger   *slog.Logger
	messages messages

	notify  func(context.Context, notification) (uint32, error)
	dismiss func(context.Context, uint32) error
	play    func(context.Context, cueKind) error

	mu             sync.Mutex
	notificationID uint32
	soundMu        sync.Mutex
	sounds         sync.WaitGroup
}

// New creates a notifier from config. Disabled channels are no-ops.
func New(cfg config.IndicatorConfig, logger *slog.Logger) *Notifier {
	return &Notifier{
		cfg:      cfg,
		logger:   logger,
		messages: defaultMessages,
		notify:   desktopNotify,
		dismiss:  desktopDismiss,
		play:     emitCue,
	}
}

// ShowQuestion announces the preparation window for a question.
func (n *Notifier) ShowQuestion(ctx context.Context, number, total int) {
	n.show(ctx, n.messages.questionText(number, total), "", urgencyLow)
}

// ShowRecording signals that the answer window is open.
func (n *Notifier) ShowRecording(ctx context.Context) {
	n.show(ctx, n.messages.recording, "", urgencyNormal)
}

// ShowProcessing signals that the answer is being analyzed.
func (n *Notifier) ShowProcessing(ctx context.Context) {
	n.show(ctx, n.messages.processing, "", urgencyLow)
}

// ShowMessage surfaces an informational message such as an empty answer.
func (n *Notifier) ShowMessage(ctx context.Context, text string) {
	n.show(ctx, text, "", urgencyNormal)
}

// ShowError surfaces a failure with text as the notification body.
func (n *Notifier) ShowError(ctx context.Context, text string) {
	n.show(ctx, n.messages.errorText, strings.TrimSpace(text), urgencyCritical)
}

func (n *Notifier) CueStart(ctx context.Context)    { n.playCue(ctx, cueStart) }
func (n *Notifier) CueStop(ctx context.Context)     { n.playCue(ctx, cueStop) }
func (n *Notifier) CueSkip(ctx context.Context)     { n.playCue(ctx, cueSkip) }
func (n *Notifier) CueComplete(ctx context.Context) { n.playCue(ctx, cueComplete) }

// Hide closes the current notification, if any.
func (n *Notifier) Hide(ctx context.Context) {
	if !n.cfg.Enable {
		return
	}
	n.mu.Lock()
	id := n.notificationID
	n.notificationID = 0
	n.mu.Unlock()
	if id == 0 {
		return
	}
	n.run(ctx, func(ctx context.Context) error { return n.dismiss(ctx, id) })
}

// Wait blocks until queued cues have finished playing.
func (n *Notifier) Wait() {
	n.sounds.Wait()
}

// show replaces the current notification so a session occupies one slot.
func (n *Notifier) show(ctx context.Context, summary, body string, urgency int) {
	if !n.cfg.Enable || strings.TrimSpace(summary) == "" {
		return
	}

	appName := strings.TrimSpace(n.cfg.DesktopAppName)
	if appName == "" {
		appName = "rehearse"
	}

	n.run(ctx, func(ctx context.Context) error {
		n.mu.Lock()
		replaceID := n.notificationID
		n.mu.Unlock()

		id, err := n.notify(ctx, notification{
			appName:   appName,
			replaceID: replaceID,
			summary:   summary,
			body:      body,
			urgency:   urgency,
			timeoutMS: n.cfg.NotifyTimeoutMS,
		})
		if err != nil {
			return err
		}

		n.mu.Lock()
		n.notificationID = id
		n.mu.Unlock()
		return nil
	})
}

func (n *Notifier) run(ctx context.Context, fn func(context.Context) error) {
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), dispatchTimeout)
	defer cancel()
	if err := fn(runCtx); err != nil {
		n.log("indicator dispatch failed", err)
	}
}

// playCue serializes cue playback off the caller's goroutine.
func (n *Notifier) playCue(ctx context.Context, kind cueKind) {
	if !n.cfg.SoundEnable {
		return
	}
	n.sounds.Add(1)
	go func() {
		defer n.sounds.Done()
		n.soundMu.Lock()
		defer n.soundMu.Unlock()
		if err := n.play(context.WithoutCancel(ctx), kind); err != nil {
			n.log("indicator "+kind.String()+" cue failed", err)
		}
	}()
}

func (n *Notifier) log(message string, err error) {
	if n.logger == nil || err == nil {
		return
	}
	n.logger.Debug(message, "error", err.Error())
}
