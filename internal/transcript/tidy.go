package transcript

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	pronounIPattern = regexp.MustCompile(`\bi('(?:m|d|ll|ve|re|s))?\b`)

	// abbreviations whose period does not end a sentence
	nonTerminalAbbreviations = map[string]struct{}{
		"e.g": {}, "i.e": {}, "etc": {}, "vs": {}, "dr": {}, "mr": {}, "mrs": {}, "ms": {},
	}
)

// Tidy collapses whitespace and applies sentence case to recognized speech for display.
// Recognizers often return lowercase text with little punctuation.
func Tidy(text string) string {
	normalized := strings.Join(strings.Fields(text), " ")
	if normalized == "" {
		return ""
	}

	return capitalizeSentenceStarts(capitalizePronounI(normalized))
}

func capitalizePronounI(text string) string {
	matches := pronounIPattern.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return text
	}

	var out strings.Builder
	out.Grow(len(text))
	last := 0
	for _, match := range matches {
		start, end := match[0], match[1]
		out.WriteString(text[last:start])
		if partOfAbbreviation(text, start, end) {
			out.WriteString(text[start:end])
		} else {
			out.WriteString("I" + text[start+1:end])
		}
		last = end
	}
	out.WriteString(text[last:])
	return out.String()
}

// partOfAbbreviation catches the i in tokens like i.e or e.i.
func partOfAbbreviation(text string, start, end int) bool {
	if end+1 < len(text) && text[end] == '.' && unicode.IsLetter(rune(text[end+1])) {
		return true
	}
	return start > 0 && text[start-1] == '.'
}

func capitalizeSentenceStarts(text string) string {
	runes := []rune(text)
	capitalize := true
	for i, r := range runes {
		switch {
		case capitalize && unicode.IsLetter(r):
			runes[i] = unicode.ToUpper(r)
			capitalize = false
		case capitalize && unicode.IsDigit(r):
			capitalize = false
		case r == '!' || r == '?':
			capitalize = true
		case r == '.':
			capitalize = endsSentence(runes, i)
		}
	}
	return string(runes)
}

func endsSentence(runes []rune, idx int) bool {
	if idx+1 < len(runes) && !unicode.IsSpace(runes[idx+1]) {
		// decimals, domains, and e.g style tokens
		return false
	}

	start := idx
	for start > 0 && (unicode.IsLetter(runes[start-1]) || runes[start-1] == '.') {
		start--
	}
	token := strings.ToLower(string(runes[start:idx]))
	_, abbreviation := nonTerminalAbbreviations[token]
	return !abbreviation
}
