// Package domain holds the analysis pipeline's models, policies, and ports.
package domain

import "errors"

// Pipeline errors, matched with errors.Is().
var (
	// ErrNoActiveCriteria indicates the active criteria set is empty; the
	// run terminates before any inference call is made.
	ErrNoActiveCriteria = errors.New("no active criteria")

	// ErrLLMUnavailable indicates the inference service failed its
	// availability probe.
	ErrLLMUnavailable = errors.New("llm service unavailable")

	// ErrEmptyText rejects enqueueing a job without document text. The
	// pipeline itself accepts empty text; validation happens at submission.
	ErrEmptyText = errors.New("text cannot be empty")
)

// Criteria management errors
var (
	// ErrCriterionNotFound indicates the requested criterion does not exist.
	ErrCriterionNotFound = errors.New("criterion not found")
)
