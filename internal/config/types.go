// Package config resolves, parses, validates, and defaults rehearse configuration.
package config

// Config is the fully materialized runtime configuration used by rehearse.
type Config struct {
	Session   SessionConfig
	Audio     AudioConfig
	Video     VideoConfig
	Analysis  AnalysisConfig
	Store     StoreConfig
	Questions QuestionsConfig
	Chat      ChatConfig
	Indicator IndicatorConfig
	Log       LogConfig
	Debug     DebugConfig
}

// SessionConfig controls per-question timing and capture defaults.
type SessionConfig struct {
	PrepSeconds   int
	AnswerSeconds int
	Modality      string
	Topic         string
}

// AudioConfig controls preferred and fallback input-source selection.
type AudioConfig struct {
	Input    string
	Fallback string
}

// VideoConfig controls still-frame capture for audio_video sessions.
type VideoConfig struct {
	FrameCommand CommandConfig
	MaxDimension int
	TimeoutMS    int
}

// AnalysisConfig points at the transcription and scoring service.
type AnalysisConfig struct {
	BaseURL   string
	TimeoutMS int
}

// StoreConfig selects where finished sessions are persisted.
type StoreConfig struct {
	Driver string
	Path   string
	DSNEnv string
}

// QuestionsConfig controls question-set generation.
type QuestionsConfig struct {
	Provider      string
	Model         string
	Count         int
	Attempts      int
	RetryDelayMS  int
	OpenAIBaseURL string
}

// ChatConfig controls job-description chat sessions.
type ChatConfig struct {
	Model      string
	TTLMinutes int
}

// IndicatorConfig controls desktop notification and audio cue behavior.
type IndicatorConfig struct {
	Enable          bool
	SoundEnable     bool
	DesktopAppName  string
	NotifyTimeoutMS int
}

// LogConfig controls runtime log verbosity.
type LogConfig struct {
	Level string
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// DebugConfig controls optional debug artifact output.
type DebugConfig struct {
	EnableAudioDump bool
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
