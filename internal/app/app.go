// Package app wires parsed commands to the rehearse runtime.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"time"

	"github.com/joho/godotenv"

	"github.com/rbright/rehearse/internal/audio"
	"github.com/rbright/rehearse/internal/cli"
	"github.com/rbright/rehearse/internal/config"
	"github.com/rbright/rehearse/internal/doctor"
	"github.com/rbright/rehearse/internal/llm"
	"github.com/rbright/rehearse/internal/logging"
	"github.com/rbright/rehearse/internal/session"
	"github.com/rbright/rehearse/internal/version"
)

const binaryName = "rehearse"

// dotenvFiles are loaded in order; variables already set are never overridden.
var dotenvFiles = []string{".env.local", ".env"}

// Runner executes one CLI invocation.
type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Stdin  io.Reader
	Logger *slog.Logger

	// Device, Analyzer, and Completer replace the configured backends when set.
	Device    session.Device
	Analyzer  session.Analyzer
	Completer llm.Completer
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer, stdin io.Reader) int {
	r := Runner{Stdout: stdout, Stderr: stderr, Stdin: stdin}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText(binaryName))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText(binaryName))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	if err := loadDotenv(dotenvFiles...); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	logger := r.Logger
	if logger == nil {
		logRuntime, err := logging.New(logging.Options{Level: cfgLoaded.Config.Log.Level})
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
			return 1
		}
		defer func() { _ = logRuntime.Close() }()
		logger = logRuntime.Logger
		logger.Debug("log opened", "path", logRuntime.Path)
	}

	for _, w := range cfgLoaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		if parsed.Command != cli.CommandMCP {
			fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		}
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
	)

	cfg := cfgLoaded.Config
	switch {
	case parsed.Command.Remote():
		return r.commandRemote(ctx, parsed.Command)
	case parsed.Command == cli.CommandRun:
		return r.commandRun(ctx, parsed, cfg, logger)
	case parsed.Command == cli.CommandQuestions:
		return r.commandQuestions(ctx, parsed.Source, cfg, logger)
	case parsed.Command == cli.CommandHistory:
		return r.commandHistory(ctx, parsed, cfg, logger)
	case parsed.Command == cli.CommandShow:
		return r.commandShow(ctx, parsed.Target, cfg)
	case parsed.Command == cli.CommandChat:
		return r.commandChat(ctx, parsed.JDPath, cfg, logger)
	case parsed.Command == cli.CommandMCP:
		return r.commandMCP(ctx, cfg, logger)
	case parsed.Command == cli.CommandDoctor:
		report := doctor.Run(ctx, cfgLoaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case parsed.Command == cli.CommandDevices:
		return r.commandDevices(ctx, cfg)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

// loadDotenv reads each existing file into the environment without
// overriding variables that are already set.
func loadDotenv(paths ...string) error {
	for _, path := range paths {
		err := godotenv.Load(path)
		if err == nil || errors.Is(err, fs.ErrNotExist) {
			continue
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func (r Runner) commandDevices(ctx context.Context, cfg config.Config) int {
	devices, err := audio.ListDevices(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no audio devices found")
		return 1
	}

	selectedID := ""
	if selection, err := audio.SelectDevice(ctx, cfg.Audio.Input, cfg.Audio.Fallback); err == nil {
		selectedID = selection.Device.ID
	}

	for _, device := range devices {
		mark := " "
		switch {
		case device.ID == selectedID:
			mark = ">"
		case device.Default:
			mark = "*"
		}
		fmt.Fprintf(
			r.Stdout,
			"%s id=%s | description=%q | state=%s | available=%s | muted=%s\n",
			mark,
			device.ID,
			device.Description,
			device.State,
			yesNo(device.Available),
			yesNo(device.Muted),
		)
	}

	return 0
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
