package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateDefaults(t *testing.T) {
	warnings, err := Validate(Default())
	require.NoError(t, err)
	require.Empty(t, warnings)
}

func TestValidateRejectsInvalidCoreFields(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "zero prep", mutate: func(c *Config) { c.Session.PrepSeconds = 0 }, wantErr: "session.prep_seconds"},
		{name: "negative answer", mutate: func(c *Config) { c.Session.AnswerSeconds = -1 }, wantErr: "session.answer_seconds"},
		{name: "unknown modality", mutate: func(c *Config) { c.Session.Modality = "smell" }, wantErr: "session.modality"},
		{name: "video without frame command", mutate: func(c *Config) {
			c.Session.Modality = "audio_video"
			c.Video.FrameCommand = CommandConfig{}
		}, wantErr: "video.frame_command"},
		{name: "zero max dimension", mutate: func(c *Config) { c.Video.MaxDimension = 0 }, wantErr: "video.max_dimension"},
		{name: "zero frame timeout", mutate: func(c *Config) { c.Video.TimeoutMS = 0 }, wantErr: "video.timeout_ms"},
		{name: "empty analysis url", mutate: func(c *Config) { c.Analysis.BaseURL = "" }, wantErr: "analysis.base_url"},
		{name: "bad analysis scheme", mutate: func(c *Config) { c.Analysis.BaseURL = "ftp://host" }, wantErr: "http or https"},
		{name: "analysis url without host", mutate: func(c *Config) { c.Analysis.BaseURL = "http://" }, wantErr: "host"},
		{name: "zero analysis timeout", mutate: func(c *Config) { c.Analysis.TimeoutMS = 0 }, wantErr: "analysis.timeout_ms"},
		{name: "unknown driver", mutate: func(c *Config) { c.Store.Driver = "mysql" }, wantErr: "store.driver"},
		{name: "postgres without dsn env", mutate: func(c *Config) {
			c.Store.Driver = "postgres"
			c.Store.DSNEnv = ""
		}, wantErr: "store.dsn_env"},
		{name: "unknown provider", mutate: func(c *Config) { c.Questions.Provider = "oracle" }, wantErr: "questions.provider"},
		{name: "gemini without model", mutate: func(c *Config) {
			c.Questions.Provider = "gemini"
			c.Questions.Model = ""
		}, wantErr: "questions.model"},
		{name: "zero count", mutate: func(c *Config) { c.Questions.Count = 0 }, wantErr: "questions.count"},
		{name: "zero attempts", mutate: func(c *Config) { c.Questions.Attempts = 0 }, wantErr: "questions.attempts"},
		{name: "negative retry delay", mutate: func(c *Config) { c.Questions.RetryDelayMS = -5 }, wantErr: "retry_delay_ms"},
		{name: "bad openai url", mutate: func(c *Config) { c.Questions.OpenAIBaseURL = "localhost:8080" }, wantErr: "questions.openai_base_url"},
		{name: "zero chat ttl", mutate: func(c *Config) { c.Chat.TTLMinutes = 0 }, wantErr: "chat.ttl_minutes"},
		{name: "empty app name", mutate: func(c *Config) { c.Indicator.DesktopAppName = " " }, wantErr: "desktop_app_name"},
		{name: "negative notify timeout", mutate: func(c *Config) { c.Indicator.NotifyTimeoutMS = -1 }, wantErr: "notify_timeout_ms"},
		{name: "unknown log level", mutate: func(c *Config) { c.Log.Level = "trace" }, wantErr: "log.level"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)

			_, err := Validate(cfg)
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestValidateWarnsOnOddTimers(t *testing.T) {
	cfg := Default()
	cfg.Session.PrepSeconds = 3
	cfg.Session.AnswerSeconds = 2

	warnings, err := Validate(cfg)
	require.NoError(t, err)
	require.Len(t, warnings, 3)
	require.Contains(t, warnings[0].Message, "prep_seconds=3")
	require.Contains(t, warnings[1].Message, "answer_seconds=2")
	require.Contains(t, warnings[2].Message, "exceeds")
}

func TestValidateAllowsDisabledIndicatorWithoutAppName(t *testing.T) {
	cfg := Default()
	cfg.Indicator.Enable = false
	cfg.Indicator.DesktopAppName = ""

	_, err := Validate(cfg)
	require.NoError(t, err)
}
