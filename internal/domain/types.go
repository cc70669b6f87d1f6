// Package domain contains the core entities of the medication safety engine:
// drug records served by a knowledge store, patient profiles, interaction
// findings, dosage recommendations and ranked alternative candidates.
//
// Every entity here is a plain value. Engines in internal/service create them
// fresh per call and hand ownership to the caller on return.
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Severity is the ordinal risk tier attached to an interaction or a
// contraindication.
type Severity string

const (
	SeverityHigh     Severity = "High"
	SeverityModerate Severity = "Moderate"
	SeverityLow      Severity = "Low"
	SeverityMinimal  Severity = "Minimal"
)

// AgeCategory selects the dose-adjustment factors for a patient.
type AgeCategory string

const (
	AgePediatric AgeCategory = "pediatric"
	AgeAdult     AgeCategory = "adult"
	AgeGeriatric AgeCategory = "geriatric"
)

// ContraindicationKind tells whether a contraindication came from a patient
// condition or from a documented allergy.
type ContraindicationKind string

const (
	KindCondition ContraindicationKind = "condition"
	KindAllergy   ContraindicationKind = "allergy"
)

// FindingSource records which evaluation stage produced an interaction finding.
type FindingSource string

const (
	SourceStore   FindingSource = "store"
	SourcePattern FindingSource = "pattern"
)

// RiskLevel is the bucketed aggregate interaction risk.
type RiskLevel string

const (
	RiskLow      RiskLevel = "Low"
	RiskModerate RiskLevel = "Moderate"
	RiskHigh     RiskLevel = "High"
	RiskCritical RiskLevel = "Critical"
)

// Sentinel errors shared by stores and engines.
var (
	ErrNotFound         = errors.New("not found")
	ErrUnavailable      = errors.New("recommendation unavailable")
	ErrParseFailure     = errors.New("dosage text could not be parsed")
	ErrStoreUnavailable = errors.New("knowledge store unavailable")
	ErrInvalidSeverity  = errors.New("invalid severity")
)

// IsValid reports whether s is one of the four known tiers.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityHigh, SeverityModerate, SeverityLow, SeverityMinimal:
		return true
	default:
		return false
	}
}

// Weight is the ordering weight used to sort findings: High 3, Moderate 2,
// Low 1, Minimal 0. Unknown severities weigh 0.
func (s Severity) Weight() int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityModerate:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// String returns the string representation
func (s Severity) String() string {
	return string(s)
}

// ParseSeverity maps stored severity text onto a Severity, ignoring case and
// surrounding whitespace.
func ParseSeverity(raw string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "high":
		return SeverityHigh, nil
	case "moderate":
		return SeverityModerate, nil
	case "low":
		return SeverityLow, nil
	case "minimal":
		return SeverityMinimal, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSeverity, raw)
}

// AgeCategoryFor buckets an age in years: <18 pediatric, 18-64 adult,
// >=65 geriatric.
func AgeCategoryFor(age int) AgeCategory {
	switch {
	case age < 18:
		return AgePediatric
	case age < 65:
		return AgeAdult
	default:
		return AgeGeriatric
	}
}

// RiskLevelFor buckets a 0-100 risk score.
func RiskLevelFor(score int) RiskLevel {
	switch {
	case score >= 80:
		return RiskLow
	case score >= 60:
		return RiskModerate
	case score >= 40:
		return RiskHigh
	default:
		return RiskCritical
	}
}
