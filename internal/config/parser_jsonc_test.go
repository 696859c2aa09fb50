package config

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeJSONCRemovesCommentsAndTrailingCommas(t *testing.T) {
	input := `
{
  // line comment
  "items": [
    "one", /* block comment */
    "two",
  ],
  "nested": {
    "enabled": true,
  },
}
`

	normalized, err := normalizeJSONC(input)
	require.NoError(t, err)
	require.NotContains(t, normalized, "//")
	require.NotContains(t, normalized, "/*")
	require.NotContains(t, normalized, ",]")
	require.NotContains(t, normalized, ",}")
}

func TestNormalizeJSONCRetainsCommentLikeTextInsideStrings(t *testing.T) {
	input := `{"value":"contains // and /* comment-like */ text",}`
	normalized, err := normalizeJSONC(input)
	require.NoError(t, err)
	require.Contains(t, normalized, "// and /* comment-like */")
}

func TestNormalizeJSONCUnterminatedBlockCommentFails(t *testing.T) {
	_, err := normalizeJSONC("{ /* unterminated ")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unterminated block comment")
}

func TestEnsureSingleJSONValueRejectsExtraPayload(t *testing.T) {
	decoder := json.NewDecoder(strings.NewReader(`{"one":1}{"two":2}`))
	var payload map[string]any
	require.NoError(t, decoder.Decode(&payload))

	err := ensureSingleJSONValue(decoder)
	require.Error(t, err)
	require.Contains(t, err.Error(), "multiple JSON values")
}

func TestOffsetToLineCol(t *testing.T) {
	content := "line1\nline2\nline3"
	line, col := offsetToLineCol(content, 1)
	require.Equal(t, 1, line)
	require.Equal(t, 1, col)

	line, col = offsetToLineCol(content, 8) // line2, col2
	require.Equal(t, 2, line)
	require.Equal(t, 2, col)

	line, col = offsetToLineCol(content, 999)
	require.Equal(t, 3, line)
	require.Equal(t, 5, col)
}

func TestJSONCCommandAcceptsArrayOrString(t *testing.T) {
	cfg, _, err := parseJSONC(`{"video":{"frame_command":["grab","--png", ""]}}`, Default())
	require.NoError(t, err)
	require.Equal(t, []string{"grab", "--png"}, cfg.Video.FrameCommand.Argv)

	cfg, _, err = parseJSONC(`{"video":{"frame_command":"grab --device '/dev/video 1'"}}`, Default())
	require.NoError(t, err)
	require.Equal(t, []string{"grab", "--device", "/dev/video 1"}, cfg.Video.FrameCommand.Argv)

	_, _, err = parseJSONC(`{"video":{"frame_command":42}}`, Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "expected string array")
}

func TestParseJSONCRejectsInvalidFrameCommand(t *testing.T) {
	_, _, err := parseJSONC(`{"video":{"frame_command":"unterminated ' quote"}}`, Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid video.frame_command")
}

func TestParseJSONCNormalizesFields(t *testing.T) {
	cfg, _, err := parseJSONC(`{
  "session": {"modality": " audio_video ", "topic": "  Go concurrency "},
  "analysis": {"base_url": "http://localhost:5001/"},
  "store": {"driver": " Postgres "},
  "questions": {"provider": "Gemini"},
  "indicator": {"desktop_app_name": "  rehearse  "},
  "log": {"level": "DEBUG"},
}`, Default())
	require.NoError(t, err)
	require.Equal(t, "audio_video", cfg.Session.Modality)
	require.Equal(t, "Go concurrency", cfg.Session.Topic)
	require.Equal(t, "http://localhost:5001", cfg.Analysis.BaseURL)
	require.Equal(t, "postgres", cfg.Store.Driver)
	require.Equal(t, "gemini", cfg.Questions.Provider)
	require.Equal(t, "rehearse", cfg.Indicator.DesktopAppName)
	require.Equal(t, "debug", cfg.Log.Level)
}

func TestParseJSONCRejectsUnknownField(t *testing.T) {
	_, _, err := parseJSONC(`{"session":{"prep":10}}`, Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown field")
}

func TestParseJSONCRejectsMultipleTopLevelValues(t *testing.T) {
	_, _, err := parseJSONC(`{"debug":{"audio_dump":false}}{"debug":{"audio_dump":true}}`, Default())
	require.Error(t, err)
	require.True(
		t,
		strings.Contains(err.Error(), "multiple JSON values") || strings.Contains(err.Error(), "unknown field"),
		"unexpected error: %v",
		err,
	)
}

func TestParseJSONCTypeErrorIncludesLocation(t *testing.T) {
	_, _, err := parseJSONC(`{
  "session": {"prep_seconds": "ten"}
}`, Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "line 2")
	require.Contains(t, err.Error(), "column")
}

func TestParseEmptyContentReturnsBase(t *testing.T) {
	cfg, warnings, err := Parse("   \n", Default())
	require.NoError(t, err)
	require.Empty(t, warnings)
	require.Equal(t, Default(), cfg)
}
