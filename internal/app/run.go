package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/rbright/rehearse/internal/capture"
	"github.com/rbright/rehearse/internal/cli"
	"github.com/rbright/rehearse/internal/config"
	"github.com/rbright/rehearse/internal/fsm"
	"github.com/rbright/rehearse/internal/hub"
	"github.com/rbright/rehearse/internal/indicator"
	"github.com/rbright/rehearse/internal/interview"
	"github.com/rbright/rehearse/internal/ipc"
	"github.com/rbright/rehearse/internal/results"
	"github.com/rbright/rehearse/internal/session"
	"github.com/rbright/rehearse/internal/store"
	"github.com/rbright/rehearse/internal/transcript"
	"github.com/rbright/rehearse/internal/ui"
	"github.com/rbright/rehearse/internal/video"
)

func (r Runner) commandRun(ctx context.Context, parsed cli.Parsed, cfg config.Config, logger *slog.Logger) int {
	rawModality := parsed.Modality
	if rawModality == "" {
		rawModality = cfg.Session.Modality
	}
	modality, err := interview.ParseModality(rawModality)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 2
	}

	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	listener, err := ipc.Acquire(ctx, socketPath, ipc.DefaultAcquireOptions)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	st, err := openStore(ctx, cfg)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() { _ = st.Close() }()

	set, err := r.loadQuestions(ctx, parsed.Source, cfg, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	setup := interview.Setup{
		Topic:     sessionTopic(parsed.Topic, cfg, parsed.Source),
		Modality:  modality,
		Questions: set,
	}

	client := analysisClient(cfg)
	var analyzer session.Analyzer = client
	if r.Analyzer != nil {
		analyzer = r.Analyzer
	}
	persister := results.NewService(st, client, logger)
	notifier := indicator.New(cfg.Indicator, logger)
	defer notifier.Wait()

	serverCtx, serverCancel := context.WithCancel(ctx)
	defer serverCancel()

	var observers session.Observers
	var feed *ui.Feed
	if parsed.Headless {
		observers = append(observers, newProgressPrinter(r))
	} else {
		feed = ui.NewFeed()
		observers = append(observers, feed)
	}

	// The hub needs the controller as its handler and the controller needs
	// the hub as an observer, so commands go through the variable.
	var controller *session.Controller
	var live *hub.Hub
	if parsed.Listen != "" {
		live = hub.New(ipc.HandlerFunc(func(ctx context.Context, req ipc.Request) ipc.Response {
			return controller.Handle(ctx, req)
		}), logger)
		observers = append(observers, live)
	}

	controller = session.NewController(
		logger,
		r.device(cfg, logger),
		analyzer,
		persister,
		notifier,
		session.WithTimers(cfg.Session.PrepSeconds, cfg.Session.AnswerSeconds),
		session.WithFrameTimeout(millis(cfg.Video.TimeoutMS)),
		session.WithObserver(observers),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- ipc.NewServer(controller, logger).Serve(serverCtx, listener)
	}()

	var liveErrCh chan error
	if live != nil {
		liveErrCh = make(chan error, 1)
		go func() {
			liveErrCh <- live.ListenAndServe(serverCtx, parsed.Listen, func(addr net.Addr) {
				if parsed.Headless {
					fmt.Fprintf(r.Stdout, "live feed: ws://%s%s\n", addr, hub.Path)
				}
			})
		}()
	}

	var result session.Result
	var recoveryPath string
	if parsed.Headless {
		result = controller.Run(ctx, setup)
		recoveryPath = r.recoverUnsaved(result, logger)
	} else {
		result, recoveryPath, err = r.runInteractive(ctx, controller, setup, feed, logger)
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: terminal ui: %v\n", err)
		}
	}

	serverCancel()
	exitCode := 0
	if serverErr := <-serverErrCh; serverErr != nil {
		fmt.Fprintf(r.Stderr, "error: ipc server failed: %v\n", serverErr)
		exitCode = 1
	}
	if liveErrCh != nil {
		if liveErr := <-liveErrCh; liveErr != nil {
			fmt.Fprintf(r.Stderr, "error: live feed failed: %v\n", liveErr)
			exitCode = 1
		}
	}

	logSessionResult(logger, result)
	if code := r.reportResult(result, recoveryPath, parsed.Headless); code != 0 {
		return code
	}
	return exitCode
}

// runInteractive drives the session under the terminal UI. Quitting the UI
// cancels a session that is still running.
func (r Runner) runInteractive(
	ctx context.Context,
	controller *session.Controller,
	setup interview.Setup,
	feed *ui.Feed,
	logger *slog.Logger,
) (session.Result, string, error) {
	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan ui.DoneMsg, 1)
	final := make(chan ui.DoneMsg, 1)
	go func() {
		result := controller.Run(sessionCtx, setup)
		msg := ui.DoneMsg{Result: result, RecoveryPath: r.recoverUnsaved(result, logger)}
		done <- msg
		final <- msg
	}()

	uiErr := ui.Run(ui.New(controller, feed, done, cancel))
	cancel()
	msg := <-final
	feed.Close()
	return msg.Result, msg.RecoveryPath, uiErr
}

// recoverUnsaved writes the transcript to disk when the final save failed.
func (r Runner) recoverUnsaved(result session.Result, logger *slog.Logger) string {
	if !session.IsRecoverable(result.Err) || len(result.Transcript) == 0 {
		return ""
	}
	dir, err := results.RecoveryDir()
	if err != nil {
		logger.Error("resolve recovery dir failed", "error", err.Error())
		return ""
	}
	path, err := results.Recover(dir, session.Submission{
		Topic:      result.Topic,
		Modality:   result.Modality,
		Transcript: result.Transcript,
		Early:      result.Early,
		StartedAt:  result.StartedAt,
		FinishedAt: result.FinishedAt,
	})
	if err != nil {
		logger.Error("write recovery file failed", "error", err.Error())
		return ""
	}
	logger.Info("transcript recovered", "path", path, "answers", len(result.Transcript))
	return path
}

func (r Runner) reportResult(result session.Result, recoveryPath string, headless bool) int {
	if errors.Is(result.Err, context.Canceled) {
		fmt.Fprintln(r.Stdout, "cancelled")
		return 0
	}

	if headless && len(result.Transcript) > 0 {
		if err := transcript.Render(r.Stdout, result.Transcript); err != nil {
			fmt.Fprintf(r.Stderr, "error: render transcript: %v\n", err)
			return 1
		}
		fmt.Fprintln(r.Stdout)
	}
	if result.StoredID != "" {
		fmt.Fprintf(r.Stdout, "saved session %s\n", result.StoredID)
	}

	if result.Err == nil {
		return 0
	}
	fmt.Fprintf(r.Stderr, "error: %v\n", result.Err)
	if recoveryPath != "" {
		fmt.Fprintf(r.Stderr, "transcript kept at %s\nimport it later with: %s history import %s\n",
			recoveryPath, binaryName, recoveryPath)
	}
	return 1
}

func (r Runner) device(cfg config.Config, logger *slog.Logger) session.Device {
	if r.Device != nil {
		return r.Device
	}
	return capture.NewDevice(capture.Options{
		Input:    cfg.Audio.Input,
		Fallback: cfg.Audio.Fallback,
		Frame: video.Grabber{
			Command:      cfg.Video.FrameCommand.Argv,
			MaxDimension: cfg.Video.MaxDimension,
			Timeout:      millis(cfg.Video.TimeoutMS),
		},
		AudioDump: cfg.Debug.EnableAudioDump,
	}, logger)
}

func openStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	path, err := cfg.StorePath()
	if err != nil {
		return nil, err
	}
	return store.Open(ctx, store.Options{
		Driver: cfg.Store.Driver,
		Path:   path,
		DSN:    cfg.StoreDSN(),
	})
}

// newProgressPrinter prints one line per state change for headless runs.
func newProgressPrinter(r Runner) session.Observer {
	var last session.Snapshot
	return session.ObserverFunc(func(snap session.Snapshot) {
		if snap.State == last.State && snap.Index == last.Index && snap.Message == last.Message {
			return
		}
		last = snap

		switch snap.State {
		case fsm.StatePreparing:
			fmt.Fprintf(r.Stdout, "question %d/%d: %s\n", snap.Index+1, snap.Total, snap.Question.Text)
		case fsm.StateLoading, fsm.StateFinished:
		default:
			fmt.Fprintf(r.Stdout, "  %s\n", snap.State)
		}
		if snap.Message != "" {
			fmt.Fprintf(r.Stdout, "  %s\n", snap.Message)
		}
	})
}

func logSessionResult(logger *slog.Logger, result session.Result) {
	if logger == nil {
		return
	}
	fields := []any{
		"state", result.State,
		"topic", result.Topic,
		"answers", len(result.Transcript),
		"questions", result.Questions,
		"stored_id", result.StoredID,
		"early", result.Early,
		"started_at", result.StartedAt.Format(time.RFC3339Nano),
		"finished_at", result.FinishedAt.Format(time.RFC3339Nano),
		"duration_ms", result.FinishedAt.Sub(result.StartedAt).Milliseconds(),
	}

	if result.Err != nil {
		logger.Error("session failed", append(fields, "error", result.Err.Error())...)
		return
	}
	logger.Info("session complete", fields...)
}
