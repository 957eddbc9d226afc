package extract

import (
	"strings"
	"unicode"
)

// abbreviations never end a sentence; keys are lowercase and keep their periods
var abbreviations = map[string]bool{
	"tp.": true, "tt.": true, "tx.": true, "q.": true, "p.": true,
	"ts.": true, "ths.": true, "th.s.": true, "pgs.": true, "gs.": true,
	"pgs.ts.": true, "gs.ts.": true, "bs.": true, "ks.": true, "ls.": true,
	"tr.": true, "nxb.": true, "v.v.": true, "vv.": true,
	"mr.": true, "mrs.": true, "ms.": true, "dr.": true, "st.": true, "no.": true,
}

// Segment splits normalized text into sentences.
// A boundary is a run of terminators (optionally followed by closing quotes or
// brackets) that is followed by whitespace or the end of text. Periods inside
// numbers (1.200, 3.5) or glued tokens (TP.HCM) never split, and neither do
// known abbreviations such as "TS." or "tr.". A single capital initial
// followed by a capitalized word is part of a name.
func Segment(text string) []string {
	runes := []rune(text)
	var sentences []string
	start := 0

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if !isTerminator(r) {
			continue
		}

		end := i
		for end+1 < len(runes) && (isTerminator(runes[end+1]) || isCloser(runes[end+1])) {
			end++
		}

		if end+1 < len(runes) && !unicode.IsSpace(runes[end+1]) {
			i = end
			continue
		}

		if r == '.' && end == i {
			tok := lastToken(runes[start : i+1])
			if abbreviations[strings.ToLower(tok)] || isInitial(tok) && nextWordCapitalized(runes[i+1:]) {
				continue
			}
		}

		if s := strings.TrimSpace(string(runes[start : end+1])); s != "" {
			sentences = append(sentences, s)
		}
		start = end + 1
		i = end
	}

	if start < len(runes) {
		if s := strings.TrimSpace(string(runes[start:])); s != "" {
			sentences = append(sentences, s)
		}
	}

	return sentences
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?' || r == '…'
}

func isCloser(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '»', '”', '’':
		return true
	}
	return false
}

// lastToken returns the whitespace-delimited token ending the slice,
// without leading opening punctuation
func lastToken(runes []rune) string {
	i := len(runes)
	for i > 0 && !unicode.IsSpace(runes[i-1]) {
		i--
	}
	return strings.TrimLeft(string(runes[i:]), "(\"'“‘[«")
}

// isInitial matches a single capital letter and its period, as in "Nguyễn V. Nam"
func isInitial(tok string) bool {
	runes := []rune(tok)
	return len(runes) == 2 && unicode.IsUpper(runes[0]) && runes[1] == '.'
}

func nextWordCapitalized(rest []rune) bool {
	for _, r := range rest {
		if !unicode.IsSpace(r) {
			return unicode.IsUpper(r)
		}
	}
	return false
}

// wordCount counts whitespace-separated words
func wordCount(s string) int {
	return len(strings.Fields(s))
}

func hasWordChar(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

func hasDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// hasEntity reports whether a capitalized multi-character word appears
// after the first word, a cheap proxy for a named entity
func hasEntity(s string) bool {
	words := strings.Fields(s)
	for _, w := range words[min(1, len(words)):] {
		w = strings.TrimFunc(w, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) })
		runes := []rune(w)
		if len(runes) < 2 {
			continue
		}
		if unicode.IsUpper(runes[0]) && unicode.IsLetter(runes[1]) {
			return true
		}
	}
	return false
}
