package logic

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	slashSpacing = regexp.MustCompile(`(\d)\s*/\s*(\d)`)
	dateToken    = regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})(?:[/-](\d{2,4}))?\b`)
	monthPhrase  = regexp.MustCompile(`(?i)tháng\s+0?(\d{1,2})\b`)
	dayPhrase    = regexp.MustCompile(`(?i)ngày\s+0?\d{1,2}\b`)
	yearPhrase   = regexp.MustCompile(`(?i)năm\s+\d{4}\b`)
	spelledDate  = regexp.MustCompile(`(?i)ngày\s+0?(\d{1,2})\s+tháng\s+0?(\d{1,2})(?:\s*,?\s*năm\s+(\d{4}))?\b`)
	numberToken  = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)*)(?:\s*(%|nghìn|ngàn|triệu|tỷ|tỉ))?`)
)

var unitScale = map[string]float64{
	"nghìn": 1e3,
	"ngàn":  1e3,
	"triệu": 1e6,
	"tỷ":    1e9,
	"tỉ":    1e9,
}

// number is one numeric mention with every plausible reading of it
type number struct {
	raw    string
	values []float64
	year   bool // plain integer in [1900, 2100]
}

// joinDateParts rewrites "13 / 5 / 2006" as "13/5/2006"
func joinDateParts(s string) string {
	for {
		joined := slashSpacing.ReplaceAllString(s, "$1/$2")
		if joined == s {
			return s
		}
		s = joined
	}
}

// spellOutDates rewrites "ngày 15 tháng 3 năm 2024" as "ngày 15/3/2024" so
// spelled and numeric dates compare as the same token
func spellOutDates(s string) string {
	return spelledDate.ReplaceAllStringFunc(s, func(m string) string {
		parts := spelledDate.FindStringSubmatch(m)
		date := parts[1] + "/" + parts[2]
		if parts[3] != "" {
			date += "/" + parts[3]
		}
		return "ngày " + date
	})
}

// stripTemporal removes date-shaped tokens and "tháng N" / "ngày N" phrases
// so that day and month digits never reach the generic numeric comparison.
// "năm YYYY" goes too unless years are compared.
func stripTemporal(s string, stripYears bool) string {
	s = dateToken.ReplaceAllString(s, " ")
	s = monthPhrase.ReplaceAllString(s, " ")
	s = dayPhrase.ReplaceAllString(s, " ")
	if stripYears {
		s = yearPhrase.ReplaceAllString(s, " ")
	}
	return s
}

// extractNumbers finds numeric mentions in Vietnamese notation.
// Digits glued to a preceding letter (U23, COVID-19) are identifiers, not quantities.
func extractNumbers(s string) []number {
	var out []number
	for _, m := range numberToken.FindAllStringSubmatchIndex(s, -1) {
		if isIdentifierSuffix(s[:m[0]]) {
			continue
		}
		raw := s[m[2]:m[3]]
		values := parseNumber(raw)
		if len(values) == 0 {
			continue
		}

		unit := ""
		if m[4] >= 0 {
			unit = strings.ToLower(s[m[4]:m[5]])
		}
		if scale, ok := unitScale[unit]; ok {
			for i := range values {
				values[i] *= scale
			}
		}

		n := number{raw: strings.TrimSpace(s[m[0]:m[1]]), values: values}
		if unit == "" && !strings.ContainsAny(raw, ".,") && values[0] >= 1900 && values[0] <= 2100 {
			n.year = true
		}
		out = append(out, n)
	}
	return out
}

func isIdentifierSuffix(before string) bool {
	r, size := utf8.DecodeLastRuneInString(before)
	if r == '-' {
		r, _ = utf8.DecodeLastRuneInString(before[:len(before)-size])
	}
	return unicode.IsLetter(r)
}

// parseNumber reads "1.200", "3,5", "1.200,5" and "1,200" style numbers.
// Vietnamese uses "." for thousands and "," for decimals; a single separator
// followed by exactly three digits is ambiguous and yields both readings.
func parseNumber(raw string) []float64 {
	dots := strings.Count(raw, ".")
	commas := strings.Count(raw, ",")

	switch {
	case dots == 0 && commas == 0:
		return parseFloats(raw)

	case dots > 0 && commas > 0:
		last := strings.LastIndexAny(raw, ".,")
		intPart := strings.NewReplacer(".", "", ",", "").Replace(raw[:last])
		return parseFloats(intPart + "." + raw[last+1:])

	default:
		sep := "."
		count := dots
		if commas > 0 {
			sep = ","
			count = commas
		}
		groups := strings.Split(raw, sep)
		grouped := true
		for _, g := range groups[1:] {
			if len(g) != 3 {
				grouped = false
			}
		}
		if count > 1 {
			if !grouped {
				return nil
			}
			return parseFloats(strings.Join(groups, ""))
		}
		decimal := parseFloats(groups[0] + "." + groups[1])
		if grouped {
			return append(parseFloats(groups[0]+groups[1]), decimal...)
		}
		return decimal
	}
}

func parseFloats(s string) []float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return []float64{v}
}

// matches reports whether any reading of a equals any reading of b
func matches(a, b number, tolerance float64) bool {
	for _, x := range a.values {
		for _, y := range b.values {
			scale := math.Max(1, math.Max(math.Abs(x), math.Abs(y)))
			if math.Abs(x-y) <= tolerance*scale {
				return true
			}
		}
	}
	return false
}
