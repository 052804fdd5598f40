package util

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	reNonSlug  = regexp.MustCompile(`[^a-z0-9]+`)
	reSpaces   = regexp.MustCompile(`\s+`)
	reNlInt    = regexp.MustCompile(`\d{1,3}(?:\.\d{3})+|\d+`)
	reMoney    = regexp.MustCompile(`\d{1,3}(?:\.\d{3})*(?:,\d{1,2})?`)
	reNonDigit = regexp.MustCompile(`\D+`)
)

// Slugify lowercases the input and collapses every run of characters
// outside [a-z0-9] into a single underscore. Idempotent.
func Slugify(input string) string {
	s := strings.ToLower(strings.TrimSpace(input))
	s = reNonSlug.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

// NormalizeSpaces collapses all whitespace runs to a single space and trims.
func NormalizeSpaces(input string) string {
	input = strings.ReplaceAll(input, " ", " ")
	return strings.TrimSpace(reSpaces.ReplaceAllString(input, " "))
}

// ParseNlInt reads the first Dutch-formatted integer out of free text:
// groups of up to three digits joined by "." thousands separators, or a
// bare digit run. "6.035 m2" -> 6035.
func ParseNlInt(input string) *int {
	token := reNlInt.FindString(input)
	if token == "" {
		return nil
	}
	token = strings.ReplaceAll(token, ".", "")
	parsed, err := strconv.Atoi(token)
	if err != nil {
		return nil
	}
	return &parsed
}

// ParseMoney reads the first Dutch-formatted amount: "." thousands
// separators, optional ","-decimal of one or two digits. A bare comma with
// no digits after it (the "2.500,-" notation) is left out of the match.
func ParseMoney(input string) *float64 {
	token := reMoney.FindString(input)
	if token == "" {
		return nil
	}
	token = strings.ReplaceAll(token, ".", "")
	token = strings.ReplaceAll(token, ",", ".")
	parsed, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return nil
	}
	return &parsed
}

// ParseServiceCosts parses an amount only when the text carries the
// per-square-metre-per-year phrasing. Lump-sum service charges return nil.
func ParseServiceCosts(input string) *float64 {
	lower := strings.ToLower(input)
	lower = strings.ReplaceAll(lower, "m²", "m2")
	if !strings.Contains(lower, "per vierkante meter per jaar") && !strings.Contains(lower, "per m2 per jaar") {
		return nil
	}
	return ParseMoney(input)
}

// DigitsOnly strips everything but digits; nil when nothing is left.
func DigitsOnly(input string) *string {
	s := reNonDigit.ReplaceAllString(input, "")
	if s == "" {
		return nil
	}
	return &s
}

func StringPtr(v string) *string { return &v }

func FloatPtr(v float64) *float64 { return &v }

func IntPtr(v int) *int { return &v }
