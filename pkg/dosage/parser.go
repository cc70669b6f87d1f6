// Package dosage parses free-text dosage strings such as "500 mg twice daily"
// into structured quantities and formats adjusted quantities back into text.
package dosage

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/rx-safety-engine/internal/domain"
)

var (
	dosePattern   = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(mg|g|ml|mcg|iu|units?)\b`)
	numberPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)`)

	// Checked in order; the first pattern that matches decides the frequency.
	// A bare "daily" is deliberately absent so that "twice daily" is not read
	// as once a day.
	frequencyPatterns = []struct {
		pattern *regexp.Regexp
		perDay  int
	}{
		{regexp.MustCompile(`(?i)\bonce\s+(?:a\s+)?da(?:il)?y\b|\bqd\b|\bq\.d\.?`), 1},
		{regexp.MustCompile(`(?i)\btwice\s+(?:a\s+)?da(?:il)?y\b|\bbid\b|\bb\.i\.d\.?`), 2},
		{regexp.MustCompile(`(?i)\bthree\s+times\s+(?:a\s+)?da(?:il)?y\b|\btid\b|\bt\.i\.d\.?`), 3},
		{regexp.MustCompile(`(?i)\bfour\s+times\s+(?:a\s+)?da(?:il)?y\b|\bqid\b|\bq\.i\.d\.?`), 4},
	}
)

// DefaultFrequency is used when no frequency phrase is recognised.
const DefaultFrequency = 1

// Parse extracts the first dose amount and unit plus the dosing frequency.
// Text without a recognisable dose yields a *domain.ParseError.
func Parse(text string) (domain.DosageSpec, error) {
	if strings.TrimSpace(text) == "" {
		return domain.DosageSpec{}, domain.NewParseError(text, "empty dosage text")
	}

	m := dosePattern.FindStringSubmatch(text)
	if m == nil {
		return domain.DosageSpec{}, domain.NewParseError(text, "no dose amount with a known unit")
	}

	amount, err := strconv.ParseFloat(m[1], 64)
	if err != nil || amount <= 0 {
		return domain.DosageSpec{}, domain.NewParseError(text, "dose amount must be positive")
	}

	return domain.DosageSpec{
		Amount:    amount,
		Unit:      strings.ToLower(m[2]),
		Frequency: ParseFrequency(text),
	}, nil
}

// ParseFrequency returns the number of administrations per day described by
// text, defaulting to DefaultFrequency.
func ParseFrequency(text string) int {
	for _, fp := range frequencyPatterns {
		if fp.pattern.MatchString(text) {
			return fp.perDay
		}
	}
	return DefaultFrequency
}

// ParseMaxDose returns the first number in a max-daily-dose text. A missing
// or zero value reports false.
func ParseMaxDose(text string) (float64, bool) {
	m := numberPattern.FindString(text)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil || v == 0 {
		return 0, false
	}
	return v, true
}

// FormatAmount renders an amount with one decimal place, e.g. "7.5 mg".
func FormatAmount(amount float64, unit string) string {
	return fmt.Sprintf("%.1f %s", amount, unit)
}

// FormatFrequency renders a per-day count as text.
func FormatFrequency(perDay int) string {
	switch perDay {
	case 1:
		return "once daily"
	case 2:
		return "twice daily"
	case 3:
		return "three times daily"
	case 4:
		return "four times daily"
	default:
		return fmt.Sprintf("%d times daily", perDay)
	}
}

// Equivalent reports whether text describes the same single dose as spec,
// comparing amounts to one decimal place and units case-insensitively.
func Equivalent(text string, spec domain.DosageSpec) bool {
	parsed, err := Parse(text)
	if err != nil {
		return false
	}
	return strings.EqualFold(parsed.Unit, spec.Unit) &&
		math.Abs(round1(parsed.Amount)-round1(spec.Amount)) < 1e-9
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
