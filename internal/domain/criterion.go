package domain

import "time"

// Criterion is a named, versioned evaluation rule. Criteria are managed by
// operators out of band; the analysis pipeline only reads the active set.
type Criterion struct {
	ID            string
	CriterionText string
	Version       int
	IsActive      bool
	// Threshold is the optional minimum confidence for a raw match verdict
	// to be accepted as final. Nil means the raw verdict is used as-is.
	Threshold *float64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ApplyThreshold returns the final match verdict for a raw model verdict
// after the criterion's confidence cutoff. A raw match survives only when no
// threshold is set or the confidence meets it; a raw non-match is never
// promoted.
func ApplyThreshold(rawMatch bool, confidence float64, threshold *float64) bool {
	if !rawMatch {
		return false
	}
	if threshold == nil {
		return true
	}
	return confidence >= *threshold
}
