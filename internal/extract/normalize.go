package extract

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	lineBreaks = strings.NewReplacer("\r\n", ". ", "\r", ". ", "\n", ". ", "\t", ". ")
	periodRuns = regexp.MustCompile(`\.(?:\s*\.)+`)
	spaceRuns  = regexp.MustCompile(`\s+`)
)

// Normalize cleans raw article text before segmentation.
// Line breaks and tabs become sentence breaks so a title never runs into the body.
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}
	text := norm.NFC.String(raw)
	text = lineBreaks.Replace(text)
	text = periodRuns.ReplaceAllString(text, ".")
	text = spaceRuns.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
