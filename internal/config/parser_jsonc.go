package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

type jsoncConfig struct {
	Session   *jsoncSession   `json:"session"`
	Audio     *jsoncAudio     `json:"audio"`
	Video     *jsoncVideo     `json:"video"`
	Analysis  *jsoncAnalysis  `json:"analysis"`
	Store     *jsoncStore     `json:"store"`
	Questions *jsoncQuestions `json:"questions"`
	Chat      *jsoncChat      `json:"chat"`
	Indicator *jsoncIndicator `json:"indicator"`
	Log       *jsoncLog       `json:"log"`
	Debug     *jsoncDebug     `json:"debug"`
}

type jsoncSession struct {
	PrepSeconds   *int    `json:"prep_seconds"`
	AnswerSeconds *int    `json:"answer_seconds"`
	Modality      *string `json:"modality"`
	Topic         *string `json:"topic"`
}

type jsoncAudio struct {
	Input    *string `json:"input"`
	Fallback *string `json:"fallback"`
}

type jsoncVideo struct {
	FrameCommand *jsoncCommand `json:"frame_command"`
	MaxDimension *int          `json:"max_dimension"`
	TimeoutMS    *int          `json:"timeout_ms"`
}

type jsoncAnalysis struct {
	BaseURL   *string `json:"base_url"`
	TimeoutMS *int    `json:"timeout_ms"`
}

type jsoncStore struct {
	Driver *string `json:"driver"`
	Path   *string `json:"path"`
	DSNEnv *string `json:"dsn_env"`
}

type jsoncQuestions struct {
	Provider      *string `json:"provider"`
	Model         *string `json:"model"`
	Count         *int    `json:"count"`
	Attempts      *int    `json:"attempts"`
	RetryDelayMS  *int    `json:"retry_delay_ms"`
	OpenAIBaseURL *string `json:"openai_base_url"`
}

type jsoncChat struct {
	Model      *string `json:"model"`
	TTLMinutes *int    `json:"ttl_minutes"`
}

type jsoncIndicator struct {
	Enable          *bool   `json:"enable"`
	SoundEnable     *bool   `json:"sound_enable"`
	DesktopAppName  *string `json:"desktop_app_name"`
	NotifyTimeoutMS *int    `json:"notify_timeout_ms"`
}

type jsoncLog struct {
	Level *string `json:"level"`
}

type jsoncDebug struct {
	AudioDump *bool `json:"audio_dump"`
}

// jsoncCommand accepts either an argv array or a shell-like command string.
type jsoncCommand struct {
	raw   string
	argv  []string
	isRaw bool
}

func (c *jsoncCommand) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		c.argv = list
		c.raw = strings.Join(list, " ")
		c.isRaw = false
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		c.raw = single
		c.argv = nil
		c.isRaw = true
		return nil
	}

	return fmt.Errorf("expected string array or command string")
}

func (c jsoncCommand) resolve() (CommandConfig, error) {
	if !c.isRaw {
		argv := make([]string, 0, len(c.argv))
		for _, arg := range c.argv {
			if arg == "" {
				continue
			}
			argv = append(argv, arg)
		}
		return CommandConfig{Raw: c.raw, Argv: argv}, nil
	}
	argv, err := splitCommand(c.raw)
	if err != nil {
		return CommandConfig{}, err
	}
	return CommandConfig{Raw: c.raw, Argv: argv}, nil
}

func parseJSONC(content string, base Config) (Config, []Warning, error) {
	normalized, err := normalizeJSONC(content)
	if err != nil {
		return Config{}, nil, err
	}

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload jsoncConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}

	cfg := base
	warnings, err := payload.applyTo(&cfg)
	if err != nil {
		return Config{}, nil, err
	}

	validatedWarnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	warnings = append(warnings, validatedWarnings...)
	return cfg, warnings, nil
}

func (payload jsoncConfig) applyTo(cfg *Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if payload.Session != nil {
		if payload.Session.PrepSeconds != nil {
			cfg.Session.PrepSeconds = *payload.Session.PrepSeconds
		}
		if payload.Session.AnswerSeconds != nil {
			cfg.Session.AnswerSeconds = *payload.Session.AnswerSeconds
		}
		if payload.Session.Modality != nil {
			cfg.Session.Modality = strings.TrimSpace(*payload.Session.Modality)
		}
		if payload.Session.Topic != nil {
			cfg.Session.Topic = strings.TrimSpace(*payload.Session.Topic)
		}
	}

	if payload.Audio != nil {
		if payload.Audio.Input != nil {
			cfg.Audio.Input = *payload.Audio.Input
		}
		if payload.Audio.Fallback != nil {
			cfg.Audio.Fallback = *payload.Audio.Fallback
		}
	}

	if payload.Video != nil {
		if payload.Video.FrameCommand != nil {
			command, err := payload.Video.FrameCommand.resolve()
			if err != nil {
				return nil, fmt.Errorf("invalid video.frame_command: %w", err)
			}
			cfg.Video.FrameCommand = command
		}
		if payload.Video.MaxDimension != nil {
			cfg.Video.MaxDimension = *payload.Video.MaxDimension
		}
		if payload.Video.TimeoutMS != nil {
			cfg.Video.TimeoutMS = *payload.Video.TimeoutMS
		}
	}

	if payload.Analysis != nil {
		if payload.Analysis.BaseURL != nil {
			cfg.Analysis.BaseURL = strings.TrimRight(strings.TrimSpace(*payload.Analysis.BaseURL), "/")
		}
		if payload.Analysis.TimeoutMS != nil {
			cfg.Analysis.TimeoutMS = *payload.Analysis.TimeoutMS
		}
	}

	if payload.Store != nil {
		if payload.Store.Driver != nil {
			cfg.Store.Driver = strings.ToLower(strings.TrimSpace(*payload.Store.Driver))
		}
		if payload.Store.Path != nil {
			cfg.Store.Path = strings.TrimSpace(*payload.Store.Path)
		}
		if payload.Store.DSNEnv != nil {
			cfg.Store.DSNEnv = strings.TrimSpace(*payload.Store.DSNEnv)
		}
	}

	if payload.Questions != nil {
		if payload.Questions.Provider != nil {
			cfg.Questions.Provider = strings.ToLower(strings.TrimSpace(*payload.Questions.Provider))
		}
		if payload.Questions.Model != nil {
			cfg.Questions.Model = strings.TrimSpace(*payload.Questions.Model)
		}
		if payload.Questions.Count != nil {
			cfg.Questions.Count = *payload.Questions.Count
		}
		if payload.Questions.Attempts != nil {
			cfg.Questions.Attempts = *payload.Questions.Attempts
		}
		if payload.Questions.RetryDelayMS != nil {
			cfg.Questions.RetryDelayMS = *payload.Questions.RetryDelayMS
		}
		if payload.Questions.OpenAIBaseURL != nil {
			cfg.Questions.OpenAIBaseURL = strings.TrimSpace(*payload.Questions.OpenAIBaseURL)
		}
	}

	if payload.Chat != nil {
		if payload.Chat.Model != nil {
			cfg.Chat.Model = strings.TrimSpace(*payload.Chat.Model)
		}
		if payload.Chat.TTLMinutes != nil {
			cfg.Chat.TTLMinutes = *payload.Chat.TTLMinutes
		}
	}

	if payload.Indicator != nil {
		if payload.Indicator.Enable != nil {
			cfg.Indicator.Enable = *payload.Indicator.Enable
		}
		if payload.Indicator.SoundEnable != nil {
			cfg.Indicator.SoundEnable = *payload.Indicator.SoundEnable
		}
		if payload.Indicator.DesktopAppName != nil {
			cfg.Indicator.DesktopAppName = strings.TrimSpace(*payload.Indicator.DesktopAppName)
		}
		if payload.Indicator.NotifyTimeoutMS != nil {
			cfg.Indicator.NotifyTimeoutMS = *payload.Indicator.NotifyTimeoutMS
		}
	}

	if payload.Log != nil && payload.Log.Level != nil {
		cfg.Log.Level = strings.ToLower(strings.TrimSpace(*payload.Log.Level))
	}

	if payload.Debug != nil && payload.Debug.AudioDump != nil {
		cfg.Debug.EnableAudioDump = *payload.Debug.AudioDump
	}

	return warnings, nil
}

func normalizeJSONC(content string) (string, error) {
	withoutComments, err := stripJSONCComments(content)
	if err != nil {
		return "", err
	}
	return stripJSONCTrailingCommas(withoutComments), nil
}

func stripJSONCComments(content string) (string, error) {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false
	lineComment := false
	blockComment := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if lineComment {
			if ch == '\n' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			if ch == '\r' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			out.WriteByte(' ')
			continue
		}

		if blockComment {
			if ch == '*' && i+1 < len(content) && content[i+1] == '/' {
				blockComment = false
				out.WriteString("  ")
				i++
				continue
			}
			if ch == '\n' || ch == '\r' || ch == '\t' {
				out.WriteByte(ch)
			} else {
				out.WriteByte(' ')
			}
			continue
		}

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == '/' && i+1 < len(content) {
			next := content[i+1]
			if next == '/' {
				lineComment = true
				out.WriteString("  ")
				i++
				continue
			}
			if next == '*' {
				blockComment = true
				out.WriteString("  ")
				i++
				continue
			}
		}

		out.WriteByte(ch)
	}

	if blockComment {
		return "", fmt.Errorf("unterminated block comment in JSONC")
	}

	return out.String(), nil
}

func stripJSONCTrailingCommas(content string) string {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == ',' {
			j := i + 1
			for j < len(content) && isJSONWhitespace(content[j]) {
				j++
			}
			if j < len(content) && (content[j] == '}' || content[j] == ']') {
				continue
			}
		}

		out.WriteByte(ch)
	}

	return out.String()
}

func isJSONWhitespace(ch byte) bool {
	switch ch {
	case ' ', '\n', '\r', '\t':
		return true
	default:
		return false
	}
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	var extra struct{}
	err := decoder.Decode(&extra)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err == nil {
		return fmt.Errorf("multiple JSON values are not allowed")
	}
	return err
}

func wrapJSONDecodeError(content string, err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		line, col := offsetToLineCol(content, syntaxErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		line, col := offsetToLineCol(content, typeErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	return err
}

func offsetToLineCol(content string, offset int64) (int, int) {
	if offset <= 0 {
		return 1, 1
	}

	limit := int(offset)
	if limit > len(content) {
		limit = len(content)
	}

	line := 1
	col := 1
	for i := 0; i < limit-1; i++ {
		if content[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}
