// Package matchaudit records resolver outcomes for later review
package matchaudit

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/fern/internal/platform/appcontext"
	"github.com/Ramsey-B/fern/internal/platform/database"
	"github.com/Ramsey-B/fern/internal/platform/tracing"
	"github.com/Ramsey-B/fern/pkg/models"
)

// Record is one audited resolution outcome
type Record struct {
	ID         string                          `json:"id" db:"id"`
	TenantID   string                          `json:"tenant_id" db:"tenant_id"`
	DocumentID string                          `json:"document_id" db:"document_id"`
	Kind       models.EntityKind               `json:"kind" db:"kind"`
	EntityID   *string                         `json:"entity_id,omitempty" db:"entity_id"`
	Matched    bool                            `json:"matched" db:"matched"`
	Confidence int                             `json:"confidence" db:"confidence"`
	Method     models.MatchMethod              `json:"method" db:"method"`
	CreatedNew bool                            `json:"created_new" db:"created_new"`
	Details    database.JSONB[map[string]any]  `json:"details" db:"details"`
	CreatedAt  time.Time                       `json:"created_at" db:"created_at"`
}

// Repository handles match audit persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new match audit repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Insert records the outcome of one party resolution
func (r *Repository) Insert(ctx context.Context, documentID string, kind models.EntityKind, result *models.MatchResult) error {
	ctx, span := tracing.StartSpan(ctx, "matchaudit.Repository.Insert")
	defer span.End()

	record := Record{
		ID:         uuid.New().String(),
		TenantID:   appcontext.GetTenantID(ctx),
		DocumentID: documentID,
		Kind:       kind,
		EntityID:   result.EntityID,
		Matched:    result.Matched,
		Confidence: result.Confidence,
		Method:     result.Method,
		CreatedNew: result.CreatedNew,
		Details: database.JSONB[map[string]any]{Data: map[string]any{
			"reasoning": result.Reasoning,
		}},
		CreatedAt: time.Now().UTC(),
	}

	sb := database.NewInsertBuilder()
	sb.InsertInto("match_audit")
	sb.Cols("id", "tenant_id", "document_id", "kind", "entity_id", "matched", "confidence", "method", "created_new", "details", "created_at")
	sb.Values(record.ID, record.TenantID, record.DocumentID, record.Kind, record.EntityID, record.Matched, record.Confidence, record.Method, record.CreatedNew, record.Details, record.CreatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"document_id": documentID}).Error("Failed to insert match audit record")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to insert match audit record")
	}

	return nil
}

// ListByDocument retrieves audit records for a document, newest first
func (r *Repository) ListByDocument(ctx context.Context, documentID string) ([]Record, error) {
	ctx, span := tracing.StartSpan(ctx, "matchaudit.Repository.ListByDocument")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select("id", "tenant_id", "document_id", "kind", "entity_id", "matched", "confidence", "method", "created_new", "details", "created_at")
	sb.From("match_audit")
	sb.Where(
		sb.Equal("tenant_id", appcontext.GetTenantID(ctx)),
		sb.Equal("document_id", documentID),
	)
	sb.OrderBy("created_at DESC")

	query, args := sb.Build()
	var records []Record
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"document_id": documentID}).Error("Failed to list match audit records")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list match audit records")
	}

	return records, nil
}
