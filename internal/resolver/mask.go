package resolver

import "strings"

// MaskFunc produces the display form of a sensitive value.
type MaskFunc func(string) string

var defaultSensitiveKeywords = []string{
	"API",
	"PASSWORD",
	"SECRET",
	"TOKEN",
	"KEY",
	"PASS",
	"AUTH",
	"CREDENTIAL",
	"PRIVATE",
	"CERT",
}

// DefaultSensitiveKeywords returns a copy of the keyword list used to
// auto-detect sensitive keys by substring match.
func DefaultSensitiveKeywords() []string {
	out := make([]string, len(defaultSensitiveKeywords))
	copy(out, defaultSensitiveKeywords)
	return out
}

// PartialMask keeps the first and last two runes of values longer than four
// runes and fully masks anything shorter. The literal value never survives
// as a substring of the output.
func PartialMask(value string) string {
	runes := []rune(value)
	if len(runes) <= 4 {
		return "****"
	}
	return string(runes[:2]) + strings.Repeat("*", len(runes)-4) + string(runes[len(runes)-2:])
}

// FullMask replaces the value with a fixed pattern regardless of length.
func FullMask(string) string {
	return "******"
}
