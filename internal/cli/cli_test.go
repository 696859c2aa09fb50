package cli

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDefaultsToHelp(t *testing.T) {
	parsed, err := Parse(nil)
	require.NoError(t, err)
	require.True(t, parsed.ShowHelp)
	require.Equal(t, CommandHelp, parsed.Command)
}

func TestParseCommandWithConfig(t *testing.T) {
	parsed, err := Parse([]string{"--config", "/tmp/rehearse.jsonc", "doctor"})
	require.NoError(t, err)
	require.Equal(t, CommandDoctor, parsed.Command)
	require.Equal(t, "/tmp/rehearse.jsonc", parsed.ConfigPath)
	require.False(t, parsed.ShowHelp)

	parsed, err = Parse([]string{"--config=/tmp/other.jsonc", "status"})
	require.NoError(t, err)
	require.Equal(t, CommandStatus, parsed.Command)
	require.Equal(t, "/tmp/other.jsonc", parsed.ConfigPath)
}

func TestParseArgMatrix(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantErr  string
		wantCmd  Command
		wantHelp bool
		wantPath string
	}{
		{
			name:     "help short flag",
			args:     []string{"-h"},
			wantCmd:  CommandHelp,
			wantHelp: true,
		},
		{
			name:     "help long flag",
			args:     []string{"--help"},
			wantCmd:  CommandHelp,
			wantHelp: true,
		},
		{
			name:    "version flag",
			args:    []string{"--version"},
			wantCmd: CommandVersion,
		},
		{
			name:    "config after remote command",
			args:    []string{"status", "--config", "/tmp/cfg"},
			wantErr: "unexpected arguments after command",
		},
		{
			name:    "missing config path",
			args:    []string{"--config"},
			wantErr: "requires a path",
		},
		{
			name:    "empty config path",
			args:    []string{"--config=", "status"},
			wantErr: "requires a path",
		},
		{
			name:    "unknown flag",
			args:    []string{"--bogus"},
			wantErr: "unknown flag",
		},
		{
			name:    "unknown command",
			args:    []string{"bogus"},
			wantErr: "unknown command",
		},
		{
			name:    "extra args after command",
			args:    []string{"doctor", "extra"},
			wantErr: "unexpected arguments",
		},
		{
			name:    "skip command",
			args:    []string{"skip"},
			wantCmd: CommandSkip,
		},
		{
			name:     "stop with config",
			args:     []string{"--config", "/tmp/cfg", "stop"},
			wantCmd:  CommandStop,
			wantPath: "/tmp/cfg",
		},
		{
			name:     "run help",
			args:     []string{"run", "-h"},
			wantCmd:  CommandRun,
			wantHelp: true,
		},
		{
			name:    "run unknown flag",
			args:    []string{"run", "--nope"},
			wantErr: "run: flag provided but not defined",
		},
		{
			name:    "run without source",
			args:    []string{"run"},
			wantErr: "a question source is required",
		},
		{
			name:    "run domain without difficulty",
			args:    []string{"run", "--domain", "python"},
			wantErr: "must be given together",
		},
		{
			name:    "run two sources",
			args:    []string{"run", "--questions", "q.json", "--prompt", "ask me things"},
			wantErr: "use only one of",
		},
		{
			name:    "run trailing args",
			args:    []string{"run", "--questions", "q.json", "extra"},
			wantErr: "unexpected arguments",
		},
		{
			name:    "show without id",
			args:    []string{"show"},
			wantErr: "show requires a session id",
		},
		{
			name:    "history unknown action",
			args:    []string{"history", "purge"},
			wantErr: "unknown history action",
		},
		{
			name:    "history import without path",
			args:    []string{"history", "import"},
			wantErr: "history import requires a file path",
		},
		{
			name:    "history bad limit",
			args:    []string{"history", "--limit", "0"},
			wantErr: "--limit must be positive",
		},
		{
			name:    "chat without jd",
			args:    []string{"chat"},
			wantErr: "chat requires --jd FILE",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			parsed, err := Parse(tc.args)
			if tc.wantErr != "" {
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.wantErr)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tc.wantCmd, parsed.Command)
			require.Equal(t, tc.wantHelp, parsed.ShowHelp)
			require.Equal(t, tc.wantPath, parsed.ConfigPath)
		})
	}
}

func TestParseRunFlags(t *testing.T) {
	parsed, err := Parse([]string{
		"run",
		"--domain", "python",
		"--difficulty", "senior",
		"--topic", "Backend loop",
		"--modality", "audio_video",
		"--listen", "127.0.0.1:7070",
		"--headless",
	})
	require.NoError(t, err)
	require.Equal(t, CommandRun, parsed.Command)
	require.Equal(t, Source{Domain: "python", Difficulty: "senior"}, parsed.Source)
	require.Equal(t, "Backend loop", parsed.Topic)
	require.Equal(t, "audio_video", parsed.Modality)
	require.Equal(t, "127.0.0.1:7070", parsed.Listen)
	require.True(t, parsed.Headless)
}

func TestParseQuestionsAcceptsPrompt(t *testing.T) {
	parsed, err := Parse([]string{"questions", "--prompt", "staff SRE on-call scenarios"})
	require.NoError(t, err)
	require.Equal(t, CommandQuestions, parsed.Command)
	require.Equal(t, "staff SRE on-call scenarios", parsed.Source.Prompt)
}

func TestParseHistoryActions(t *testing.T) {
	parsed, err := Parse([]string{"history"})
	require.NoError(t, err)
	require.Equal(t, HistoryList, parsed.Action)
	require.Equal(t, 20, parsed.Limit)

	parsed, err = Parse([]string{"history", "--limit", "5"})
	require.NoError(t, err)
	require.Equal(t, 5, parsed.Limit)

	parsed, err = Parse([]string{"history", "import", "/tmp/session.json"})
	require.NoError(t, err)
	require.Equal(t, HistoryImport, parsed.Action)
	require.Equal(t, "/tmp/session.json", parsed.Target)

	parsed, err = Parse([]string{"history", "delete", "abc"})
	require.NoError(t, err)
	require.Equal(t, HistoryDelete, parsed.Action)
	require.Equal(t, "abc", parsed.Target)
}

func TestParseShowAndChat(t *testing.T) {
	parsed, err := Parse([]string{"show", "abc-123"})
	require.NoError(t, err)
	require.Equal(t, "abc-123", parsed.Target)

	parsed, err = Parse([]string{"chat", "--jd", "role.md"})
	require.NoError(t, err)
	require.Equal(t, "role.md", parsed.JDPath)
}

func TestCommandRemote(t *testing.T) {
	for _, cmd := range []Command{CommandStatus, CommandStart, CommandStop, CommandToggle, CommandSkip, CommandFinish} {
		require.True(t, cmd.Remote(), cmd)
	}
	for _, cmd := range []Command{CommandRun, CommandHistory, CommandDoctor, CommandMCP} {
		require.False(t, cmd.Remote(), cmd)
	}
}

func TestHelpTextIncludesCoreCommands(t *testing.T) {
	text := HelpText("rehearse")
	for _, want := range []string{"run", "skip", "finish", "history import FILE", "chat", "mcp", "doctor", "--config PATH"} {
		require.Contains(t, text, want)
	}
}
