package dedup

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/fingerprint"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/similarity"
)

var baseTime = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func fp(id, name string, size int64, hash string, uploadedAt time.Time) models.DocumentFingerprint {
	return models.DocumentFingerprint{
		DocumentID:  id,
		FileName:    name,
		FileSize:    size,
		ContentHash: hash,
		UploadedBy:  "user-1",
		UploadedAt:  uploadedAt,
	}
}

func TestCompareExactHashShortCircuits(t *testing.T) {
	hash := fingerprint.FromBytes([]byte("same content"))
	d := NewDetector(DefaultConfig())

	// wildly different metadata must not matter when hashes agree
	candidate := fp("doc-1", "factura_2024_001.pdf", 1_000_000, hash, baseTime)
	other := fp("doc-2", "zzz.xls", 5, hash, baseTime.Add(-90*24*time.Hour))

	match := d.Compare(candidate, other)

	assert.Equal(t, 100, match.Similarity)
	assert.Equal(t, models.DuplicateMatchTypeExact, match.MatchType)
	assert.Equal(t, 100, match.Confidence)
}

func TestCompareEmptyHashesNeverExact(t *testing.T) {
	d := NewDetector(DefaultConfig())

	candidate := fp("doc-1", "a.pdf", 100, "", baseTime)
	other := fp("doc-2", "b.pdf", 90000, "", baseTime.Add(30*24*time.Hour))

	match := d.Compare(candidate, other)
	assert.NotEqual(t, models.DuplicateMatchTypeExact, match.MatchType)
	assert.Less(t, match.Similarity, 100)
}

func TestCompareContentWeighted(t *testing.T) {
	d := NewDetector(DefaultConfig())

	candidate := fp("doc-1", "factura_2024_001.pdf", 1_000_000, "", baseTime)
	candidate.ExtractedText = "Factura 2024-001 Talleres Lopez SL Total 1.210,00"
	other := fp("doc-2", "factura_2024_001_copia.pdf", 1_000_500, "", baseTime.Add(10*time.Minute))
	other.ExtractedText = "Factura 2024-001 Talleres Lopez SL Total 1.210,00"

	match := d.Compare(candidate, other)

	assert.Equal(t, models.DuplicateMatchTypeContent, match.MatchType)
	assert.Equal(t, 100, match.Confidence)
	assert.GreaterOrEqual(t, match.Similarity, 90)
}

func TestCompareMetadataOnly(t *testing.T) {
	d := NewDetector(DefaultConfig())

	candidate := fp("doc-1", "factura_2024_001.pdf", 1_000_000, "", baseTime)
	other := fp("doc-2", "factura_2024_001_v2.pdf", 1_000_500, "", baseTime.Add(10*time.Minute))

	match := d.Compare(candidate, other)

	// filename carries the 0.4 weight here
	assert.Equal(t, models.DuplicateMatchTypeFilename, match.MatchType)
	assert.GreaterOrEqual(t, match.Similarity, 80)
}

func TestFilenameSimilarityBonuses(t *testing.T) {
	// shared invoice number and shared keyword both add on top of the ratio
	withBonuses := filenameSimilarity("factura_2024_001.pdf", "factura_2024_001_copia.pdf")
	plain := filenameSimilarity("scan_aaa.pdf", "scan_bbb.pdf")

	assert.Greater(t, withBonuses, plain)
	assert.LessOrEqual(t, withBonuses, 100)

	// identical base names with bonuses still cap at 100
	assert.Equal(t, 100, filenameSimilarity("factura_55.pdf", "factura_55.pdf"))

	// the invoice-number bonus reads the first digit run even when it
	// follows a keyword prefix
	prefixed := filenameSimilarity("factura_2024_001.pdf", "recibo_2024_999.pdf")
	base := similarity.Ratio("factura_2024_001", "recibo_2024_999")
	assert.Equal(t, base+20, prefixed)
}

func TestSizeSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a        int64
		b        int64
		expected int
	}{
		{"equal", 1000, 1000, 100},
		{"half percent diff", 1_000_000, 1_005_000, 95},
		{"three percent diff", 1_000_000, 1_030_000, 80},
		{"eight percent diff", 1_000_000, 1_083_000, 60},
		{"forty percent diff", 1_000_000, 1_500_000, 60},
		{"huge diff", 1000, 1_000_000, 0},
		{"zero size", 0, 1000, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, sizeSimilarity(tt.a, tt.b))
		})
	}
}

func TestTimeProximity(t *testing.T) {
	tests := []struct {
		name     string
		diff     time.Duration
		expected int
	}{
		{"same minute", time.Minute, 80},
		{"six hours", 6 * time.Hour, 60},
		{"three days", 72 * time.Hour, 40},
		{"two weeks", 14 * 24 * time.Hour, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, timeProximity(baseTime, baseTime.Add(tt.diff)))
			// symmetric
			assert.Equal(t, tt.expected, timeProximity(baseTime.Add(tt.diff), baseTime))
		})
	}
}

func TestTimeProximityZeroTimestamps(t *testing.T) {
	assert.Equal(t, 0, timeProximity(time.Time{}, baseTime))
	assert.Equal(t, 0, timeProximity(baseTime, time.Time{}))
}

func TestDetectDuplicatesFiltersAndSorts(t *testing.T) {
	hash := fingerprint.FromBytes([]byte("content"))
	d := NewDetector(DefaultConfig())

	candidate := fp("doc-0", "factura_2024_001.pdf", 1_000_000, hash, baseTime)
	existing := []models.DocumentFingerprint{
		fp("doc-exact", "other_name.pdf", 500, hash, baseTime.Add(-48*time.Hour)),
		fp("doc-close", "factura_2024_001_v2.pdf", 1_000_500, "", baseTime.Add(5*time.Minute)),
		fp("doc-unrelated", "informe_trimestral.xlsx", 88, "", baseTime.Add(-200*24*time.Hour)),
	}

	matches := d.DetectDuplicates(context.Background(), candidate, existing)

	require.Len(t, matches, 2)
	assert.Equal(t, "doc-exact", matches[0].DocumentID)
	assert.Equal(t, 100, matches[0].Similarity)
	assert.Equal(t, "doc-close", matches[1].DocumentID)
	assert.GreaterOrEqual(t, matches[1].Similarity, 60)
}

func TestDetectDuplicatesSkipsSelf(t *testing.T) {
	hash := fingerprint.FromBytes([]byte("content"))
	d := NewDetector(DefaultConfig())

	candidate := fp("doc-1", "a.pdf", 100, hash, baseTime)
	matches := d.DetectDuplicates(context.Background(), candidate, []models.DocumentFingerprint{candidate})

	assert.Empty(t, matches)
}
