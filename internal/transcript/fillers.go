package transcript

import (
	"sort"
	"strings"
)

var fillerWords = map[string]struct{}{
	"um": {}, "uh": {}, "er": {}, "ah": {}, "like": {}, "okay": {}, "right": {},
	"so": {}, "actually": {}, "basically": {}, "literally": {}, "well": {},
}

// two-word fillers are matched on adjacent tokens
var fillerPhrases = map[string]struct{}{
	"you know": {},
	"i mean":   {},
}

// DetectFillers counts filler words in recognized speech and lists the distinct ones found.
func DetectFillers(text string) FillerWords {
	cleaned := strings.NewReplacer(",", "", ".", "", "?", "", "!", "").Replace(strings.ToLower(text))
	tokens := strings.Fields(cleaned)

	count := 0
	seen := map[string]struct{}{}
	for i := 0; i < len(tokens); i++ {
		if i+1 < len(tokens) {
			phrase := tokens[i] + " " + tokens[i+1]
			if _, ok := fillerPhrases[phrase]; ok {
				count++
				seen[phrase] = struct{}{}
				i++
				continue
			}
		}
		if _, ok := fillerWords[tokens[i]]; ok {
			count++
			seen[tokens[i]] = struct{}{}
		}
	}

	words := make([]string, 0, len(seen))
	for word := range seen {
		words = append(words, word)
	}
	sort.Strings(words)
	return FillerWords{Count: count, Words: words}
}
