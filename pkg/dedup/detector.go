// Package dedup detects and groups near-duplicate documents
package dedup

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/Ramsey-B/fern/internal/platform/tracing"
	"github.com/Ramsey-B/fern/pkg/fingerprint"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/normalize"
	"github.com/Ramsey-B/fern/pkg/similarity"
)

// Config holds the duplicate detection thresholds
type Config struct {
	// LowThreshold is the minimum similarity reported at all
	LowThreshold int
	// MediumThreshold is the minimum similarity that forms a group
	MediumThreshold int
	// HighThreshold marks near-certain duplicates
	HighThreshold int
}

// DefaultConfig returns the standard detection thresholds
func DefaultConfig() Config {
	return Config{
		LowThreshold:    60,
		MediumThreshold: 80,
		HighThreshold:   95,
	}
}

// Detector scores candidate documents against existing fingerprints.
// Comparison is pure computation; callers supply the fingerprints.
type Detector struct {
	config Config
}

// NewDetector creates a Detector
func NewDetector(config Config) *Detector {
	return &Detector{config: config}
}

// firstDigits captures the first digit run in a base filename. Invoice
// numbers usually sit after a keyword prefix ("factura_2024_001"), so the
// run is matched anywhere in the name, not anchored to the start.
var firstDigits = regexp.MustCompile(`\d+`)

// filenameKeywords are document types that commonly appear in file names;
// sharing one is a weak duplicate signal
var filenameKeywords = []string{"factura", "recibo", "nomina", "invoice", "receipt"}

// DetectDuplicates compares the candidate against every existing fingerprint
// and returns matches at or above the low threshold, highest similarity first.
func (d *Detector) DetectDuplicates(ctx context.Context, candidate models.DocumentFingerprint, existing []models.DocumentFingerprint) []models.DuplicateMatch {
	_, span := tracing.StartSpan(ctx, "Detector.DetectDuplicates")
	defer span.End()

	matches := make([]models.DuplicateMatch, 0)
	for _, other := range existing {
		if other.DocumentID == candidate.DocumentID {
			continue
		}
		match := d.Compare(candidate, other)
		if match.Similarity >= d.config.LowThreshold {
			matches = append(matches, match)
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})

	return matches
}

// Compare scores a single pair of fingerprints. An exact content hash match
// short-circuits to 100; otherwise the score is a weighted combination of
// filename, size, content, and upload-time proximity.
func (d *Detector) Compare(candidate, other models.DocumentFingerprint) models.DuplicateMatch {
	if fingerprint.Equal(candidate.ContentHash, other.ContentHash) {
		return models.DuplicateMatch{
			DocumentID: other.DocumentID,
			Similarity: 100,
			MatchType:  models.DuplicateMatchTypeExact,
			Confidence: 100,
		}
	}

	filenameScore := filenameSimilarity(candidate.FileName, other.FileName)
	sizeScore := sizeSimilarity(candidate.FileSize, other.FileSize)
	timeScore := timeProximity(candidate.UploadedAt, other.UploadedAt)

	contentScore := 0
	if candidate.ExtractedText != "" && other.ExtractedText != "" {
		contentScore = similarity.TrigramJaccard(
			normalize.Text(candidate.ExtractedText),
			normalize.Text(other.ExtractedText),
		)
	}

	var combined int
	var matchType models.DuplicateMatchType
	var confidence int

	if contentScore > 0 {
		combined = similarity.WeightedScore(
			similarity.Weighted{Score: contentScore, Weight: 0.5},
			similarity.Weighted{Score: filenameScore, Weight: 0.2},
			similarity.Weighted{Score: sizeScore, Weight: 0.2},
			similarity.Weighted{Score: timeScore, Weight: 0.1},
		)
		matchType = models.DuplicateMatchTypeContent
		confidence = contentScore
	} else {
		uploaderScore := 0
		if candidate.UploadedBy != "" && candidate.UploadedBy == other.UploadedBy {
			uploaderScore = 20
		}
		combined = similarity.WeightedScore(
			similarity.Weighted{Score: filenameScore, Weight: 0.4},
			similarity.Weighted{Score: sizeScore, Weight: 0.3},
			similarity.Weighted{Score: timeScore, Weight: 0.2},
			similarity.Weighted{Score: uploaderScore, Weight: 0.1},
		)
		// report whichever metadata signal carried more weight
		if float64(filenameScore)*0.4 >= float64(sizeScore)*0.3 {
			matchType = models.DuplicateMatchTypeFilename
		} else {
			matchType = models.DuplicateMatchTypeSize
		}
		confidence = filenameScore
		if sizeScore > confidence {
			confidence = sizeScore
		}
	}

	return models.DuplicateMatch{
		DocumentID: other.DocumentID,
		Similarity: combined,
		MatchType:  matchType,
		Confidence: confidence,
	}
}

// filenameSimilarity scores base filenames by edit distance, with bonuses for
// a shared first digit run (the likely invoice number) and a shared document
// keyword
func filenameSimilarity(a, b string) int {
	baseA := normalize.BaseFilename(a)
	baseB := normalize.BaseFilename(b)

	score := similarity.Ratio(baseA, baseB)

	numA := firstDigits.FindString(baseA)
	numB := firstDigits.FindString(baseB)
	if numA != "" && numA == numB {
		score += 20
	}

	for _, keyword := range filenameKeywords {
		if strings.Contains(baseA, keyword) && strings.Contains(baseB, keyword) {
			score += 10
			break
		}
	}

	if score > 100 {
		return 100
	}
	return score
}

// sizeSimilarity converts the percent size difference relative to the average
// size into a step score
func sizeSimilarity(a, b int64) int {
	if a == b {
		return 100
	}
	if a <= 0 || b <= 0 {
		return 0
	}

	diff := math.Abs(float64(a) - float64(b))
	avg := (float64(a) + float64(b)) / 2
	pct := diff / avg * 100

	switch {
	case pct < 1:
		return 95
	case pct < 5:
		return 80
	case pct < 10:
		return 60
	default:
		score := int(math.Round(100 - pct))
		if score < 0 {
			return 0
		}
		return score
	}
}

// timeProximity scores how close two upload timestamps are
func timeProximity(a, b time.Time) int {
	if a.IsZero() || b.IsZero() {
		return 0
	}

	diff := a.Sub(b)
	if diff < 0 {
		diff = -diff
	}

	switch {
	case diff < time.Hour:
		return 80
	case diff < 24*time.Hour:
		return 60
	case diff < 7*24*time.Hour:
		return 40
	default:
		return 0
	}
}
