package fetch

import (
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// postcodePattern accepts a UK postcode outward part with an optional
// inward part. The inward part may start with a letter O, which the
// register data frequently contains in place of a zero.
var postcodePattern = regexp.MustCompile(`^([A-Z]{1,2}[0-9][A-Z0-9]?)( ?[O0-9]([A-Z]{2})?)?$`)

var wsRun = regexp.MustCompile(`\s+`)

// CleanPostcode validates and reformats a postcode from the register.
// It upper-cases, collapses whitespace, corrects a leading O in the
// inward part to a zero, and inserts the single space between the two
// parts. Invalid values return "" so the raw text is kept separately.
func CleanPostcode(raw string) string {
	value := strings.ToUpper(strings.TrimSpace(raw))
	if value == "" {
		return ""
	}
	value = wsRun.ReplaceAllString(value, " ")

	m := postcodePattern.FindStringSubmatch(value)
	if m == nil {
		zap.L().Warn("invalid postcode, not storing", zap.String("postcode", value))
		return ""
	}

	outward, inward := m[1], strings.TrimSpace(m[2])
	if inward == "" {
		return outward
	}
	if strings.HasPrefix(inward, "O") {
		inward = "0" + inward[1:]
	}
	return outward + " " + inward
}

// fullPostcode reports whether a line is a complete postcode, both
// parts present. Only complete postcodes are worth rescuing from
// address lines.
func fullPostcode(line string) bool {
	m := postcodePattern.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(line)))
	return m != nil && m[2] != ""
}
