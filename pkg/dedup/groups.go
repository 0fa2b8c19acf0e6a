package dedup

import (
	"context"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Ramsey-B/fern/internal/platform/appcontext"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/google/uuid"
)

// GroupManager holds pending duplicate groups in memory until an operator
// resolves them or the sweeper expires them
type GroupManager struct {
	mu     sync.Mutex
	groups map[string]*models.DuplicateGroup
	config Config
	logger ectologger.Logger
	nowFn  func() time.Time
}

// NewGroupManager creates a GroupManager
func NewGroupManager(config Config, logger ectologger.Logger) *GroupManager {
	return &GroupManager{
		groups: make(map[string]*models.DuplicateGroup),
		config: config,
		logger: logger,
		nowFn:  time.Now,
	}
}

// MaybeGroup creates a duplicate group when any match reaches the medium
// threshold. Matches below the threshold are excluded from the group. Returns
// nil when no match qualifies.
func (m *GroupManager) MaybeGroup(ctx context.Context, masterDocumentID string, matches []models.DuplicateMatch) *models.DuplicateGroup {
	significant := make([]models.DuplicateMatch, 0, len(matches))
	total := 0
	for _, match := range matches {
		if match.Similarity >= m.config.MediumThreshold {
			significant = append(significant, match)
			total += match.Similarity
		}
	}
	if len(significant) == 0 {
		return nil
	}

	group := &models.DuplicateGroup{
		ID:               uuid.NewString(),
		TenantID:         appcontext.GetTenantID(ctx),
		MasterDocumentID: masterDocumentID,
		Matches:          significant,
		MeanSimilarity:   int(math.Round(float64(total) / float64(len(significant)))),
		CreatedAt:        m.nowFn(),
	}

	m.mu.Lock()
	m.groups[group.ID] = group
	m.mu.Unlock()

	m.logger.WithContext(ctx).WithFields(map[string]any{
		"group_id":        group.ID,
		"master_document": masterDocumentID,
		"matches":         len(significant),
		"mean_similarity": group.MeanSimilarity,
	}).Info("created duplicate group")

	return group
}

// Get returns a pending group by id
func (m *GroupManager) Get(ctx context.Context, groupID string) (*models.DuplicateGroup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	group, ok := m.groups[groupID]
	if !ok {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "duplicate group not found")
	}
	if tenant := appcontext.GetTenantID(ctx); tenant != "" && group.TenantID != tenant {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "duplicate group not found")
	}
	return group, nil
}

// List returns all pending groups for the tenant on the context
func (m *GroupManager) List(ctx context.Context) []*models.DuplicateGroup {
	tenant := appcontext.GetTenantID(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()

	groups := make([]*models.DuplicateGroup, 0, len(m.groups))
	for _, group := range m.groups {
		if tenant != "" && group.TenantID != tenant {
			continue
		}
		groups = append(groups, group)
	}
	return groups
}

// Resolve applies an operator action to a pending group and removes it.
// The action itself is recorded and the group leaves the pending set; the
// underlying document merge or delete is handled by collaborators.
func (m *GroupManager) Resolve(ctx context.Context, groupID string, action models.GroupAction) error {
	if !action.IsValid() {
		return httperror.NewHTTPError(http.StatusBadRequest, "unknown group action")
	}

	m.mu.Lock()
	group, ok := m.groups[groupID]
	if ok {
		if tenant := appcontext.GetTenantID(ctx); tenant != "" && group.TenantID != tenant {
			ok = false
		}
	}
	if ok {
		delete(m.groups, groupID)
	}
	m.mu.Unlock()

	if !ok {
		return httperror.NewHTTPError(http.StatusNotFound, "duplicate group not found")
	}

	m.logger.WithContext(ctx).WithFields(map[string]any{
		"group_id": groupID,
		"action":   action,
	}).Info("resolved duplicate group")

	return nil
}

// Sweep removes groups older than the retention window. Returns the number
// of groups removed.
func (m *GroupManager) Sweep(ctx context.Context, retention time.Duration) int {
	cutoff := m.nowFn().Add(-retention)

	m.mu.Lock()
	removed := 0
	for id, group := range m.groups {
		if group.CreatedAt.Before(cutoff) {
			delete(m.groups, id)
			removed++
		}
	}
	m.mu.Unlock()

	if removed > 0 {
		m.logger.WithContext(ctx).WithFields(map[string]any{
			"removed": removed,
		}).Info("swept expired duplicate groups")
	}

	return removed
}

// PendingCount returns the number of pending groups across all tenants
func (m *GroupManager) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.groups)
}
