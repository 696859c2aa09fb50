package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/rbright/rehearse/internal/interview"
)

const shortTimerSeconds = 5

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if cfg.Session.PrepSeconds <= 0 {
		return nil, fmt.Errorf("session.prep_seconds must be > 0")
	}
	if cfg.Session.AnswerSeconds <= 0 {
		return nil, fmt.Errorf("session.answer_seconds must be > 0")
	}
	modality, err := interview.ParseModality(cfg.Session.Modality)
	if err != nil {
		return nil, fmt.Errorf("session.modality: %w", err)
	}
	if modality.WantsVideo() && len(cfg.Video.FrameCommand.Argv) == 0 {
		return nil, fmt.Errorf("video.frame_command must not be empty when session.modality=%s", modality)
	}
	if cfg.Video.MaxDimension <= 0 {
		return nil, fmt.Errorf("video.max_dimension must be > 0")
	}
	if cfg.Video.TimeoutMS <= 0 {
		return nil, fmt.Errorf("video.timeout_ms must be > 0")
	}

	if err := validateBaseURL("analysis.base_url", cfg.Analysis.BaseURL); err != nil {
		return nil, err
	}
	if cfg.Analysis.TimeoutMS <= 0 {
		return nil, fmt.Errorf("analysis.timeout_ms must be > 0")
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Store.Driver)) {
	case "sqlite":
	case "postgres":
		if strings.TrimSpace(cfg.Store.DSNEnv) == "" {
			return nil, fmt.Errorf("store.dsn_env must not be empty when store.driver=postgres")
		}
	default:
		return nil, fmt.Errorf("store.driver must be one of: sqlite, postgres")
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Questions.Provider)) {
	case "service":
	case "gemini", "openai":
		if strings.TrimSpace(cfg.Questions.Model) == "" {
			return nil, fmt.Errorf("questions.model must not be empty when questions.provider=%s", cfg.Questions.Provider)
		}
	default:
		return nil, fmt.Errorf("questions.provider must be one of: service, gemini, openai")
	}
	if cfg.Questions.Count <= 0 {
		return nil, fmt.Errorf("questions.count must be > 0")
	}
	if cfg.Questions.Attempts <= 0 {
		return nil, fmt.Errorf("questions.attempts must be > 0")
	}
	if cfg.Questions.RetryDelayMS < 0 {
		return nil, fmt.Errorf("questions.retry_delay_ms must be >= 0")
	}
	if cfg.Questions.OpenAIBaseURL != "" {
		if err := validateBaseURL("questions.openai_base_url", cfg.Questions.OpenAIBaseURL); err != nil {
			return nil, err
		}
	}

	if cfg.Chat.TTLMinutes <= 0 {
		return nil, fmt.Errorf("chat.ttl_minutes must be > 0")
	}

	if cfg.Indicator.Enable && strings.TrimSpace(cfg.Indicator.DesktopAppName) == "" {
		return nil, fmt.Errorf("indicator.desktop_app_name must not be empty when indicator.enable=true")
	}
	if cfg.Indicator.NotifyTimeoutMS < 0 {
		return nil, fmt.Errorf("indicator.notify_timeout_ms must be >= 0")
	}

	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("log.level must be one of: debug, info, warn, error")
	}

	if cfg.Session.PrepSeconds < shortTimerSeconds {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("session.prep_seconds=%d is very short", cfg.Session.PrepSeconds)})
	}
	if cfg.Session.AnswerSeconds < shortTimerSeconds {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("session.answer_seconds=%d is very short", cfg.Session.AnswerSeconds)})
	}
	if cfg.Session.PrepSeconds > cfg.Session.AnswerSeconds {
		warnings = append(warnings, Warning{Message: "session.prep_seconds exceeds session.answer_seconds"})
	}

	return warnings, nil
}

func validateBaseURL(field string, raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("%s must not be empty", field)
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must use http or https", field)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s must include a host", field)
	}
	return nil
}
