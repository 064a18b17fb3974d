package domain

import (
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// PreviewLimit bounds the stored text preview. The preview exists for operator
// inspection only and is never used for re-hashing.
const PreviewLimit = 1024

// Source represents one deduplicated document. One logical document maps to
// exactly one row, keyed by the content hash.
type Source struct {
	ID           uuid.UUID
	SourceHash   string
	SourceURL    *string
	SourceDate   *time.Time
	TextPreview  *string
	IngestTS     time.Time
	ForceRecheck bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewSource builds a Source for the given content hash, bounding the preview
// to PreviewLimit bytes.
func NewSource(sourceHash, text string, sourceURL *string, sourceDate *time.Time, forceRecheck bool) *Source {
	now := time.Now().UTC()
	preview := truncatePreview(text)
	return &Source{
		ID:           uuid.New(),
		SourceHash:   sourceHash,
		SourceURL:    sourceURL,
		SourceDate:   sourceDate,
		TextPreview:  &preview,
		IngestTS:     now,
		ForceRecheck: forceRecheck,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// truncatePreview cuts the text at PreviewLimit bytes without splitting a
// multi-byte rune.
func truncatePreview(text string) string {
	if len(text) <= PreviewLimit {
		return text
	}
	cut := PreviewLimit
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}
