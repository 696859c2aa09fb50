package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// splitCommand turns a frame command string into argv. Quoting follows POSIX
// shells loosely: single and double quotes group words and a backslash escapes
// the next rune. A leading "~/" on any word expands to the home directory.
func splitCommand(input string) ([]string, error) {
	input = strings.TrimSpace(input)
	if input == "" || input[0] == '#' {
		return nil, nil
	}

	s := commandScanner{}
	for col, r := range input {
		s.feed(r, col+1)
	}
	if err := s.finish(input); err != nil {
		return nil, err
	}

	for i, word := range s.words {
		expanded, err := expandHome(word)
		if err != nil {
			return nil, err
		}
		s.words[i] = expanded
	}
	return s.words, nil
}

type commandScanner struct {
	words []string
	word  strings.Builder
	open  bool

	quote     rune
	quoteCol  int
	escaped   bool
	escapeCol int
}

func (s *commandScanner) feed(r rune, col int) {
	switch {
	case s.escaped:
		s.escaped = false
		s.add(r)
	case r == '\\' && s.quote != '\'':
		s.escaped = true
		s.escapeCol = col
		s.open = true
	case s.quote != 0 && r == s.quote:
		s.quote = 0
	case s.quote != 0:
		s.add(r)
	case r == '\'' || r == '"':
		s.quote = r
		s.quoteCol = col
		s.open = true
	case unicode.IsSpace(r):
		s.end()
	default:
		s.add(r)
	}
}

func (s *commandScanner) add(r rune) {
	s.word.WriteRune(r)
	s.open = true
}

// end closes the current word. Quoted empty strings survive as "" args.
func (s *commandScanner) end() {
	if !s.open {
		return
	}
	s.words = append(s.words, s.word.String())
	s.word.Reset()
	s.open = false
}

func (s *commandScanner) finish(input string) error {
	if s.escaped {
		return fmt.Errorf("unterminated escape sequence at column %d in command: %q", s.escapeCol, input)
	}
	if s.quote != 0 {
		return fmt.Errorf("unterminated quote at column %d in command: %q", s.quoteCol, input)
	}
	s.end()
	return nil
}

func expandHome(word string) (string, error) {
	if word != "~" && !strings.HasPrefix(word, "~/") {
		return word, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("expand %q: %w", word, err)
	}
	return filepath.Join(home, strings.TrimPrefix(word, "~")), nil
}
