// Package cli parses rehearse command-line arguments.
package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
)

type Command string

const (
	CommandRun       Command = "run"
	CommandStatus    Command = "status"
	CommandStart     Command = "start"
	CommandStop      Command = "stop"
	CommandToggle    Command = "toggle"
	CommandSkip      Command = "skip"
	CommandFinish    Command = "finish"
	CommandQuestions Command = "questions"
	CommandHistory   Command = "history"
	CommandShow      Command = "show"
	CommandChat      Command = "chat"
	CommandMCP       Command = "mcp"
	CommandDevices   Command = "devices"
	CommandDoctor    Command = "doctor"
	CommandVersion   Command = "version"
	CommandHelp      Command = "help"
)

// Remote reports whether cmd is forwarded to a running session over IPC.
func (c Command) Remote() bool {
	switch c {
	case CommandStatus, CommandStart, CommandStop, CommandToggle, CommandSkip, CommandFinish:
		return true
	}
	return false
}

// History sub-actions.
const (
	HistoryList   = "list"
	HistoryImport = "import"
	HistoryDelete = "delete"
)

// Source selects where a question set comes from. At most one form is set.
type Source struct {
	File       string
	Domain     string
	Difficulty string
	Prompt     string
}

type Parsed struct {
	Command    Command
	ConfigPath string
	ShowHelp   bool

	Source   Source
	Topic    string
	Modality string
	Listen   string
	Headless bool

	Limit  int
	Action string
	Target string
	JDPath string
}

// Parse reads global flags up to the command name, then hands the rest to
// the command's own flag set.
func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true}

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch {
		case arg == "-h" || arg == "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
		case arg == "--version":
			parsed.ShowHelp = false
			parsed.Command = CommandVersion
		case arg == "--config":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--config requires a path")
			}
			parsed.ConfigPath = args[i]
		case strings.HasPrefix(arg, "--config="):
			parsed.ConfigPath = strings.TrimPrefix(arg, "--config=")
			if parsed.ConfigPath == "" {
				return Parsed{}, errors.New("--config requires a path")
			}
		case strings.HasPrefix(arg, "-"):
			return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
		default:
			parsed.Command = Command(arg)
			parsed.ShowHelp = parsed.Command == CommandHelp
			if err := parseCommand(&parsed, args[i+1:]); err != nil {
				return Parsed{}, err
			}
			return parsed, nil
		}
	}

	return parsed, nil
}

func parseCommand(parsed *Parsed, rest []string) error {
	switch parsed.Command {
	case CommandRun:
		fs := newFlagSet(parsed.Command)
		bindSource(fs, &parsed.Source)
		fs.StringVar(&parsed.Topic, "topic", "", "")
		fs.StringVar(&parsed.Modality, "modality", "", "")
		fs.StringVar(&parsed.Listen, "listen", "", "")
		fs.BoolVar(&parsed.Headless, "headless", false, "")
		if err := parseFlags(parsed, fs, rest); err != nil || parsed.ShowHelp {
			return err
		}
		if err := noArgs(parsed.Command, fs.Args()); err != nil {
			return err
		}
		return validateSource(parsed.Source)
	case CommandQuestions:
		fs := newFlagSet(parsed.Command)
		bindSource(fs, &parsed.Source)
		if err := parseFlags(parsed, fs, rest); err != nil || parsed.ShowHelp {
			return err
		}
		if err := noArgs(parsed.Command, fs.Args()); err != nil {
			return err
		}
		return validateSource(parsed.Source)
	case CommandHistory:
		return parseHistory(parsed, rest)
	case CommandShow:
		fs := newFlagSet(parsed.Command)
		if err := parseFlags(parsed, fs, rest); err != nil || parsed.ShowHelp {
			return err
		}
		id, err := oneArg(string(parsed.Command), fs.Args(), "a session id")
		if err != nil {
			return err
		}
		parsed.Target = id
		return nil
	case CommandChat:
		fs := newFlagSet(parsed.Command)
		fs.StringVar(&parsed.JDPath, "jd", "", "")
		if err := parseFlags(parsed, fs, rest); err != nil || parsed.ShowHelp {
			return err
		}
		if err := noArgs(parsed.Command, fs.Args()); err != nil {
			return err
		}
		if strings.TrimSpace(parsed.JDPath) == "" {
			return errors.New("chat requires --jd FILE")
		}
		return nil
	case CommandStatus, CommandStart, CommandStop, CommandToggle, CommandSkip, CommandFinish,
		CommandMCP, CommandDevices, CommandDoctor, CommandVersion, CommandHelp:
		if len(rest) > 0 {
			return fmt.Errorf("unexpected arguments after command %q", parsed.Command)
		}
		return nil
	default:
		return fmt.Errorf("unknown command: %s", parsed.Command)
	}
}

func parseHistory(parsed *Parsed, rest []string) error {
	parsed.Action = HistoryList
	if len(rest) > 0 && !strings.HasPrefix(rest[0], "-") {
		switch rest[0] {
		case HistoryImport, HistoryDelete:
			parsed.Action = rest[0]
			rest = rest[1:]
		default:
			return fmt.Errorf("unknown history action: %s", rest[0])
		}
	}

	fs := newFlagSet(parsed.Command)
	fs.IntVar(&parsed.Limit, "limit", 20, "")
	if err := parseFlags(parsed, fs, rest); err != nil || parsed.ShowHelp {
		return err
	}

	switch parsed.Action {
	case HistoryImport:
		path, err := oneArg("history import", fs.Args(), "a file path")
		if err != nil {
			return err
		}
		parsed.Target = path
	case HistoryDelete:
		id, err := oneArg("history delete", fs.Args(), "a session id")
		if err != nil {
			return err
		}
		parsed.Target = id
	default:
		if err := noArgs(parsed.Command, fs.Args()); err != nil {
			return err
		}
		if parsed.Limit <= 0 {
			return errors.New("--limit must be positive")
		}
	}
	return nil
}

func newFlagSet(cmd Command) *flag.FlagSet {
	fs := flag.NewFlagSet(string(cmd), flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parseFlags(parsed *Parsed, fs *flag.FlagSet, rest []string) error {
	err := fs.Parse(rest)
	if errors.Is(err, flag.ErrHelp) {
		parsed.ShowHelp = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: %w", parsed.Command, err)
	}
	return nil
}

func bindSource(fs *flag.FlagSet, src *Source) {
	fs.StringVar(&src.File, "questions", "", "")
	fs.StringVar(&src.Domain, "domain", "", "")
	fs.StringVar(&src.Difficulty, "difficulty", "", "")
	fs.StringVar(&src.Prompt, "prompt", "", "")
}

func validateSource(src Source) error {
	forms := 0
	if src.File != "" {
		forms++
	}
	if src.Domain != "" || src.Difficulty != "" {
		forms++
		if src.Domain == "" || src.Difficulty == "" {
			return errors.New("--domain and --difficulty must be given together")
		}
	}
	if src.Prompt != "" {
		forms++
	}

	switch {
	case forms > 1:
		return errors.New("use only one of --questions, --domain/--difficulty, or --prompt")
	case forms == 0:
		return errors.New("a question source is required: --questions FILE, --domain D --difficulty L, or --prompt TEXT")
	}
	return nil
}

func noArgs(cmd Command, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("unexpected arguments after command %q", cmd)
	}
	return nil
}

func oneArg(cmd string, args []string, what string) (string, error) {
	switch len(args) {
	case 0:
		return "", fmt.Errorf("%s requires %s", cmd, what)
	case 1:
		if strings.TrimSpace(args[0]) == "" {
			return "", fmt.Errorf("%s requires %s", cmd, what)
		}
		return args[0], nil
	default:
		return "", fmt.Errorf("unexpected arguments after command %q", cmd)
	}
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] <command> [flags]

Session:
  run         Run an interview session in the terminal
                --questions FILE | --domain D --difficulty L | --prompt TEXT
                --topic LABEL      Topic label stored with the results
                --modality MODE    audio_only or audio_video
                --listen ADDR      Serve the live WebSocket feed at ADDR/ws
                --headless         No terminal UI; drive with start/stop/skip/finish
  status      Print the running session state
  start       Start recording the current answer
  stop        Stop recording and submit the answer
  toggle      Start or stop depending on the current state
  skip        Skip the current question
  finish      Finish the session early and save results

Practice:
  questions   Generate or load a question set and print it as JSON
                (same source flags as run)
  history     List stored sessions (--limit N)
                history import FILE   Save a recovered transcript
                history delete ID     Delete a stored session
  show ID     Print a stored session report
  chat        Practice chat about a job description (--jd FILE)
  mcp         Serve session history to MCP clients over stdio

Environment:
  devices     List available input devices
  doctor      Run configuration and environment checks
  version     Print version information
  help        Show this help

Flags:
  --config PATH   Config file path (default: $XDG_CONFIG_HOME/rehearse/config.jsonc)
  -h, --help      Show help
  --version       Show version
`, binaryName)
}
