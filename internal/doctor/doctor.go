// Package doctor runs readiness diagnostics for config, capture devices, the
// analysis service, the results store, and model credentials.
package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rbright/rehearse/internal/analysis"
	"github.com/rbright/rehearse/internal/audio"
	"github.com/rbright/rehearse/internal/config"
	"github.com/rbright/rehearse/internal/interview"
	"github.com/rbright/rehearse/internal/llm"
	"github.com/rbright/rehearse/internal/store"
	"github.com/rbright/rehearse/internal/video"
)

const probeTimeout = 3 * time.Second

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		fmt.Fprintf(&b, "[%s] %s: %s\n", status, check.Name, check.Message)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes every check for a loaded config.
func Run(ctx context.Context, loaded config.Loaded) Report {
	cfg := loaded.Config
	checks := []Check{checkConfig(loaded)}

	checks = append(checks, checkEnv("XDG_RUNTIME_DIR", func(v string) bool {
		return strings.TrimSpace(v) != ""
	}, "remote control socket available", "XDG_RUNTIME_DIR is empty; status/start/stop/skip/finish cannot reach a session"))

	checks = append(checks, checkAudioSelection(ctx, cfg))

	if modality, err := interview.ParseModality(cfg.Session.Modality); err == nil && modality.WantsVideo() {
		checks = append(checks, checkFrameCommand(cfg))
	}
	if cfg.Indicator.Enable {
		checks = append(checks, checkBinary("busctl", "desktop notifications"))
	}

	checks = append(checks, checkAnalysis(ctx, cfg))
	checks = append(checks, checkStore(ctx, cfg))

	switch cfg.Questions.Provider {
	case "gemini", "openai":
		checks = append(checks, checkAPIKey("questions.api_key", cfg.Questions.Provider, true))
	}
	checks = append(checks, checkAPIKey("chat.api_key", cfg.ChatProvider(), false))

	return Report{Checks: checks}
}

func checkConfig(loaded config.Loaded) Check {
	if !loaded.Exists {
		return Check{Name: "config", Pass: true, Message: fmt.Sprintf("no file at %q; using defaults", loaded.Path)}
	}
	message := fmt.Sprintf("loaded %q", loaded.Path)
	for _, warning := range loaded.Warnings {
		message += "; warning: " + warning.Message
	}
	return Check{Name: "config", Pass: true, Message: message}
}

// checkEnv validates an environment variable through a caller-supplied predicate.
func checkEnv(name string, predicate func(string) bool, okMsg, failMsg string) Check {
	if predicate(os.Getenv(name)) {
		return Check{Name: name, Pass: true, Message: okMsg}
	}
	return Check{Name: name, Pass: false, Message: failMsg}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	check := checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
	check.Name = name
	return check
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

// checkAudioSelection runs live device selection to surface selection/fallback issues.
func checkAudioSelection(ctx context.Context, cfg config.Config) Check {
	selection, err := audio.SelectDevice(ctx, cfg.Audio.Input, cfg.Audio.Fallback)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %s", selection.Device.Label())
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

func checkFrameCommand(cfg config.Config) Check {
	check := checkCommand(cfg.Video.FrameCommand.Argv, "video.frame_command")
	if !check.Pass {
		return check
	}
	grabber := video.Grabber{Command: cfg.Video.FrameCommand.Argv}
	if err := grabber.Available(); err != nil {
		return Check{Name: "video.frame_command", Pass: false, Message: err.Error()}
	}
	return check
}

// checkAnalysis probes the analysis service root.
func checkAnalysis(ctx context.Context, cfg config.Config) Check {
	base := strings.TrimSpace(cfg.Analysis.BaseURL)
	if base == "" {
		return Check{Name: "analysis.service", Pass: false, Message: "analysis.base_url is empty"}
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	client := analysis.New(base, analysis.WithTimeout(probeTimeout))
	if err := client.Ping(ctx); err != nil {
		return Check{Name: "analysis.service", Pass: false, Message: fmt.Sprintf("%s unreachable: %v", client.BaseURL(), err)}
	}
	return Check{Name: "analysis.service", Pass: true, Message: fmt.Sprintf("reachable at %s", client.BaseURL())}
}

// checkStore opens the results database, which also applies migrations.
func checkStore(ctx context.Context, cfg config.Config) Check {
	opts := store.Options{Driver: cfg.Store.Driver, DSN: cfg.StoreDSN()}
	where := "postgres via $" + cfg.Store.DSNEnv
	if cfg.Store.Driver != "postgres" {
		path, err := cfg.StorePath()
		if err != nil {
			return Check{Name: "store", Pass: false, Message: err.Error()}
		}
		opts.Path = path
		where = path
	} else if opts.DSN == "" {
		return Check{Name: "store", Pass: false, Message: fmt.Sprintf("%s is not set", cfg.Store.DSNEnv)}
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	db, err := store.Open(ctx, opts)
	if err != nil {
		return Check{Name: "store", Pass: false, Message: err.Error()}
	}
	defer db.Close()

	if _, err := db.List(ctx, 1); err != nil {
		return Check{Name: "store", Pass: false, Message: fmt.Sprintf("query %s: %v", where, err)}
	}
	return Check{Name: "store", Pass: true, Message: fmt.Sprintf("ready at %s", where)}
}

// checkAPIKey reports whether the provider credential is set. Optional
// credentials only warn in the message.
func checkAPIKey(name string, provider string, required bool) Check {
	vars := llm.KeyEnvNames(provider)
	if llm.APIKeyFromEnv(provider) != "" {
		return Check{Name: name, Pass: true, Message: fmt.Sprintf("%s key found", provider)}
	}
	if required {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("%s is not set", vars)}
	}
	return Check{Name: name, Pass: true, Message: fmt.Sprintf("%s is not set; chat is unavailable", vars)}
}
