package feed

// convert.go holds the cell coercion helpers used by the record mappers.
//
// Feeds come out of spreadsheets and ERP exports, so numbers may carry
// currency symbols or thousands separators, negative amounts may use the
// accounting "(12.50)" form and text cells may be wrapped in Excel formula
// artifacts. Every helper here is total: bad input yields ok=false or an
// empty value, never a panic.

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// numericRegex validates that a string is a plain decimal after cleanup.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// numberPrefix matches the leading numeric portion of a cell, mirroring how
// lenient spreadsheet tooling reads "12.5kg" as 12.5.
var numberPrefix = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?`)

var slugRegex = regexp.MustCompile(`[^a-z0-9]+`)

// CleanCell removes common CSV artifacts from a cell value: surrounding
// whitespace, the Excel formula prefix (="...") and one pair of quotes
// wrapping the whole value.
// Invalid UTF-8 is replaced so downstream JSON encoding stays valid.
func CleanCell(s string) string {
	s = strings.ToValidUTF8(strings.TrimSpace(s), "\uFFFD")

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	}

	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' && strings.Count(s, `"`) == 2 {
		s = s[1 : len(s)-1]
	}
	return strings.TrimSpace(s)
}

// ParseNumber converts a cell to float64. It accepts currency symbols,
// thousands separators and accounting negatives; ok is false for empty or
// non-numeric input.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.NewReplacer("$", "", "\u20ac", "", "\u00a3", "", ",", "").Replace(s)
	s = strings.TrimSpace(s)

	if !numericRegex.MatchString(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if negative {
		f = -f
	}
	return f, true
}

// LeadingNumber parses the numeric prefix of s ("12.5kg" -> 12.5) and falls
// back to def when there is none.
func LeadingNumber(s string, def float64) float64 {
	if f, ok := ParseNumber(s); ok {
		return f
	}
	m := numberPrefix.FindString(strings.TrimSpace(s))
	if m == "" {
		return def
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return def
	}
	return f
}

// maxCount bounds ParseCount so the int conversion is always defined.
const maxCount = 1 << 53

// ParseCount parses a whole-number cell such as a stock quantity. Values
// beyond ±2^53 are clamped; fractional values are rejected.
func ParseCount(s string) (int, bool) {
	f, ok := ParseNumber(s)
	if !ok || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	return int(min(max(f, -maxCount), maxCount)), true
}

// PositiveNumber returns the parsed value only when it is greater than zero.
func PositiveNumber(s string) (float64, bool) {
	f, ok := ParseNumber(s)
	if !ok || f <= 0 {
		return 0, false
	}
	return f, true
}

// ParseFlag reports whether s is "true" in any letter case.
func ParseFlag(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), "true")
}

// SplitList splits a comma-separated cell, trimming entries and dropping
// empty ones.
func SplitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Slugify lowercases s and collapses every run of non-alphanumerics to "-".
func Slugify(s string) string {
	return slugRegex.ReplaceAllString(strings.ToLower(s), "-")
}
