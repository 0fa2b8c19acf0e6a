package dedup

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/internal/platform/appcontext"
	"github.com/Ramsey-B/fern/pkg/models"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func tenantCtx(tenant string) context.Context {
	return appcontext.SetTenantID(context.Background(), tenant)
}

func TestMaybeGroupCreatesGroup(t *testing.T) {
	m := NewGroupManager(DefaultConfig(), testLogger())
	ctx := tenantCtx("tenant-1")

	matches := []models.DuplicateMatch{
		{DocumentID: "doc-2", Similarity: 100, MatchType: models.DuplicateMatchTypeExact, Confidence: 100},
		{DocumentID: "doc-3", Similarity: 84, MatchType: models.DuplicateMatchTypeContent, Confidence: 84},
		{DocumentID: "doc-4", Similarity: 65, MatchType: models.DuplicateMatchTypeFilename, Confidence: 70},
	}

	group := m.MaybeGroup(ctx, "doc-1", matches)

	require.NotNil(t, group)
	assert.Equal(t, "doc-1", group.MasterDocumentID)
	assert.Equal(t, "tenant-1", group.TenantID)
	// the 65 match stays below the medium threshold and is excluded
	assert.Len(t, group.Matches, 2)
	assert.Equal(t, 92, group.MeanSimilarity)
	assert.Equal(t, 1, m.PendingCount())
}

func TestMaybeGroupNoSignificantMatches(t *testing.T) {
	m := NewGroupManager(DefaultConfig(), testLogger())

	group := m.MaybeGroup(tenantCtx("tenant-1"), "doc-1", []models.DuplicateMatch{
		{DocumentID: "doc-2", Similarity: 79},
	})

	assert.Nil(t, group)
	assert.Equal(t, 0, m.PendingCount())
}

func TestGetAndListScopedToTenant(t *testing.T) {
	m := NewGroupManager(DefaultConfig(), testLogger())

	a := m.MaybeGroup(tenantCtx("tenant-a"), "doc-1", []models.DuplicateMatch{{DocumentID: "doc-2", Similarity: 90}})
	require.NotNil(t, a)
	b := m.MaybeGroup(tenantCtx("tenant-b"), "doc-3", []models.DuplicateMatch{{DocumentID: "doc-4", Similarity: 90}})
	require.NotNil(t, b)

	got, err := m.Get(tenantCtx("tenant-a"), a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	_, err = m.Get(tenantCtx("tenant-a"), b.ID)
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))

	listed := m.List(tenantCtx("tenant-a"))
	require.Len(t, listed, 1)
	assert.Equal(t, a.ID, listed[0].ID)
}

func TestResolveRemovesGroup(t *testing.T) {
	m := NewGroupManager(DefaultConfig(), testLogger())
	ctx := tenantCtx("tenant-1")

	group := m.MaybeGroup(ctx, "doc-1", []models.DuplicateMatch{{DocumentID: "doc-2", Similarity: 95}})
	require.NotNil(t, group)

	err := m.Resolve(ctx, group.ID, models.GroupActionMerge)
	require.NoError(t, err)
	assert.Equal(t, 0, m.PendingCount())

	// resolving twice is a not-found, not a silent success
	err = m.Resolve(ctx, group.ID, models.GroupActionMerge)
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))
}

func TestResolveRejectsUnknownAction(t *testing.T) {
	m := NewGroupManager(DefaultConfig(), testLogger())
	ctx := tenantCtx("tenant-1")

	group := m.MaybeGroup(ctx, "doc-1", []models.DuplicateMatch{{DocumentID: "doc-2", Similarity: 95}})
	require.NotNil(t, group)

	err := m.Resolve(ctx, group.ID, models.GroupAction("explode"))
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
	// group stays pending
	assert.Equal(t, 1, m.PendingCount())
}

func TestSweepRemovesExpiredGroups(t *testing.T) {
	m := NewGroupManager(DefaultConfig(), testLogger())
	ctx := tenantCtx("tenant-1")

	now := time.Now()
	m.nowFn = func() time.Time { return now.Add(-40 * 24 * time.Hour) }
	old := m.MaybeGroup(ctx, "doc-1", []models.DuplicateMatch{{DocumentID: "doc-2", Similarity: 95}})
	require.NotNil(t, old)

	m.nowFn = func() time.Time { return now }
	fresh := m.MaybeGroup(ctx, "doc-3", []models.DuplicateMatch{{DocumentID: "doc-4", Similarity: 95}})
	require.NotNil(t, fresh)

	removed := m.Sweep(ctx, 30*24*time.Hour)

	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, m.PendingCount())
	_, err := m.Get(ctx, fresh.ID)
	assert.NoError(t, err)
	_, err = m.Get(ctx, old.ID)
	assert.Error(t, err)
}
