package logic

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/ppiankov/tinthat/internal/model"
)

// Pass defers the pair to the NLI verifier
const Pass model.Verdict = "PASS"

// Scores attached to rule-based verdicts
const (
	NumericRefuteScore = 0.99
	DateRefuteScore    = 0.95
	SubstringScore     = 0.99
	OverlapScore       = 0.95
)

// Result is the checker's verdict for one claim/evidence pair
type Result struct {
	Verdict model.Verdict
	Score   float64
	Reason  string
}

// Checker applies hard rules that embedding similarity and NLI models miss:
// swapped numbers, swapped months, and near-verbatim matches.
type Checker struct {
	tolerance   float64
	overlap     float64
	exemptYears bool
}

// NewChecker creates a new checker
func NewChecker(cfg model.LogicConfig) *Checker {
	c := &Checker{
		tolerance:   cfg.NumberTolerance,
		overlap:     cfg.OverlapThreshold,
		exemptYears: cfg.ExemptYears,
	}
	if c.tolerance <= 0 {
		c.tolerance = 1e-6
	}
	if c.overlap <= 0 {
		c.overlap = 0.85
	}
	return c
}

// Check runs the numeric, month and overlap rules in that order
func (c *Checker) Check(claim, evidence string) Result {
	claim = spellOutDates(joinDateParts(claim))
	evidence = spellOutDates(joinDateParts(evidence))

	if missing := c.missingNumbers(claim, evidence); len(missing) > 0 {
		return Result{
			Verdict: model.VerdictRefuted,
			Score:   NumericRefuteScore,
			Reason:  fmt.Sprintf("numeric mismatch: %s not found in evidence", strings.Join(missing, ", ")),
		}
	}

	if reason := monthMismatch(claim, evidence); reason != "" {
		return Result{Verdict: model.VerdictRefuted, Score: DateRefuteScore, Reason: reason}
	}

	if reason := dateMismatch(claim, evidence); reason != "" {
		return Result{Verdict: model.VerdictRefuted, Score: DateRefuteScore, Reason: reason}
	}

	a, b := canonical(claim), canonical(evidence)
	if a != "" && b != "" && (strings.Contains(a, b) || strings.Contains(b, a)) {
		return Result{Verdict: model.VerdictSupported, Score: SubstringScore, Reason: "verbatim match"}
	}
	if ratio := tokenOverlap(a, b); ratio >= c.overlap {
		return Result{
			Verdict: model.VerdictSupported,
			Score:   OverlapScore,
			Reason:  fmt.Sprintf("token overlap %.0f%%", ratio*100),
		}
	}

	return Result{Verdict: Pass}
}

// missingNumbers lists claim numbers with no counterpart in the evidence
func (c *Checker) missingNumbers(claim, evidence string) []string {
	claimNums := extractNumbers(stripTemporal(claim, c.exemptYears))
	if len(claimNums) == 0 {
		return nil
	}
	evidenceNums := extractNumbers(stripTemporal(evidence, c.exemptYears))

	var missing []string
	for _, n := range claimNums {
		if n.year && c.exemptYears {
			continue
		}
		found := false
		for _, e := range evidenceNums {
			if matches(n, e, c.tolerance) {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, strconv.Quote(n.raw))
		}
	}
	return missing
}

// monthMismatch requires every "tháng N" in the claim to appear in the evidence
// as "tháng N", "tháng 0N", "/N/", "-N-" or the month of a date token
func monthMismatch(claim, evidence string) string {
	for _, m := range monthPhrase.FindAllStringSubmatch(claim, -1) {
		month, _ := strconv.Atoi(m[1])
		if !mentionsMonth(evidence, month) {
			return fmt.Sprintf("date mismatch: claim says tháng %d, evidence does not", month)
		}
	}
	return ""
}

func mentionsMonth(evidence string, month int) bool {
	for _, m := range monthPhrase.FindAllStringSubmatch(evidence, -1) {
		if n, _ := strconv.Atoi(m[1]); n == month {
			return true
		}
	}
	for _, m := range dateToken.FindAllStringSubmatch(evidence, -1) {
		if n, _ := strconv.Atoi(m[2]); n == month {
			return true
		}
	}
	for _, form := range []string{"/%d/", "/%02d/", "-%d-", "-%02d-"} {
		if strings.Contains(evidence, fmt.Sprintf(form, month)) {
			return true
		}
	}
	return false
}

// dateMismatch flags a claim date (day/month) that differs from every date
// the evidence gives. Evidence without any date token is not a contradiction.
func dateMismatch(claim, evidence string) string {
	evidenceDates := dateToken.FindAllStringSubmatch(evidence, -1)
	if len(evidenceDates) == 0 {
		return ""
	}
	for _, cd := range dateToken.FindAllStringSubmatch(claim, -1) {
		day, month := atoi(cd[1]), atoi(cd[2])
		found := false
		for _, ed := range evidenceDates {
			if atoi(ed[1]) == day && atoi(ed[2]) == month {
				found = true
				break
			}
		}
		if !found {
			return fmt.Sprintf("date mismatch: claim says %s, evidence says %s", cd[0], evidenceDates[0][0])
		}
	}
	return ""
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// canonical lowercases and replaces punctuation with spaces
func canonical(s string) string {
	s = strings.ToLower(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r) {
			return r
		}
		return ' '
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// tokenOverlap is |A ∩ B| / min(|A|, |B|) over word sets
func tokenOverlap(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	shared := 0
	for tok := range setA {
		if setB[tok] {
			shared++
		}
	}
	return float64(shared) / float64(min(len(setA), len(setB)))
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(s) {
		set[tok] = true
	}
	return set
}
