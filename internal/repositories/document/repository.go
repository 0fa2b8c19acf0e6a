// Package document persists ingested document records
package document

import (
	"context"
	"fmt"
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

var documentColumns = []string{
	"id", "tenant_id", "file_name", "file_size", "content_hash", "extracted_text",
	"uploaded_by", "uploaded_at", "supplier_id", "customer_id",
	"supplier_confidence", "customer_confidence", "supplier_method", "customer_method",
	"created_at", "updated_at", "deleted_at",
}

// Repository handles document persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new document repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new document record
func (r *Repository) Create(ctx context.Context, req *models.CreateDocumentRequest) (*models.Document, error) {
	ctx, span := tracing.StartSpan(ctx, "document.Repository.Create")
	defer span.End()

	now := time.Now().UTC()
	doc := models.Document{
		ID:            uuid.New().String(),
		TenantID:      appcontext.GetTenantID(ctx),
		FileName:      req.FileName,
		FileSize:      req.FileSize,
		ContentHash:   req.ContentHash,
		ExtractedText: req.ExtractedText,
		UploadedBy:    req.UploadedBy,
		UploadedAt:    now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	sb := database.NewInsertBuilder()
	sb.InsertInto("documents")
	sb.Cols("id", "tenant_id", "file_name", "file_size", "content_hash", "extracted_text",
		"uploaded_by", "uploaded_at", "created_at", "updated_at")
	sb.Values(doc.ID, doc.TenantID, doc.FileName, doc.FileSize, doc.ContentHash, doc.ExtractedText,
		doc.UploadedBy, doc.UploadedAt, doc.CreatedAt, doc.UpdatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"file_name": doc.FileName}).Error("Failed to create document")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create document")
	}

	return &doc, nil
}

// Get retrieves a document by ID
func (r *Repository) Get(ctx context.Context, id string) (*models.Document, error) {
	ctx, span := tracing.StartSpan(ctx, "document.Repository.Get")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(documentColumns...)
	sb.From("documents")
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", appcontext.GetTenantID(ctx)),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()
	var doc models.Document
	if err := r.db.GetContext(ctx, &doc, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("document %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get document")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get document")
	}

	return &doc, nil
}

// LinkEntities writes resolved entity ids and confidences onto a document
func (r *Repository) LinkEntities(ctx context.Context, documentID string, link models.EntityLink) error {
	ctx, span := tracing.StartSpan(ctx, "document.Repository.LinkEntities")
	defer span.End()

	sb := database.NewUpdateBuilder()
	sb.Update("documents")

	assignments := []string{sb.Assign("updated_at", time.Now().UTC())}
	if link.SupplierID != nil {
		assignments = append(assignments,
			sb.Assign("supplier_id", *link.SupplierID),
			sb.Assign("supplier_confidence", link.SupplierConfidence),
			sb.Assign("supplier_method", link.SupplierMethod),
		)
	}
	if link.CustomerID != nil {
		assignments = append(assignments,
			sb.Assign("customer_id", *link.CustomerID),
			sb.Assign("customer_confidence", link.CustomerConfidence),
			sb.Assign("customer_method", link.CustomerMethod),
		)
	}
	sb.Set(assignments...)
	sb.Where(
		sb.Equal("id", documentID),
		sb.Equal("tenant_id", appcontext.GetTenantID(ctx)),
	)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"document_id": documentID}).Error("Failed to link entities to document")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to link entities to document")
	}

	return nil
}

// ListFingerprints retrieves the comparable fields of recent documents for
// duplicate detection, most recent first
func (r *Repository) ListFingerprints(ctx context.Context, limit int) ([]models.DocumentFingerprint, error) {
	ctx, span := tracing.StartSpan(ctx, "document.Repository.ListFingerprints")
	defer span.End()

	if limit < 1 || limit > 1000 {
		limit = 200
	}

	sb := database.NewSelectBuilder()
	sb.Select("id", "file_name", "file_size", "COALESCE(content_hash, '') AS content_hash",
		"COALESCE(extracted_text, '') AS extracted_text", "uploaded_by", "uploaded_at")
	sb.From("documents")
	sb.Where(
		sb.Equal("tenant_id", appcontext.GetTenantID(ctx)),
		sb.IsNull("deleted_at"),
	)
	sb.OrderBy("uploaded_at DESC")
	sb.Limit(limit)

	query, args := sb.Build()
	var fingerprints []models.DocumentFingerprint
	if err := r.db.SelectContext(ctx, &fingerprints, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list document fingerprints")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list document fingerprints")
	}

	return fingerprints, nil
}

// List retrieves documents with paging
func (r *Repository) List(ctx context.Context, page, pageSize int) (*models.DocumentListResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "document.Repository.List")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}

	tenantID := appcontext.GetTenantID(ctx)

	countBuilder := database.NewSelectBuilder()
	countBuilder.Select("COUNT(*)")
	countBuilder.From("documents")
	countBuilder.Where(
		countBuilder.Equal("tenant_id", tenantID),
		countBuilder.IsNull("deleted_at"),
	)

	query, args := countBuilder.Build()
	var total int
	if err := r.db.GetContext(ctx, &total, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count documents")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list documents")
	}

	sb := database.NewSelectBuilder()
	sb.Select(documentColumns...)
	sb.From("documents")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.IsNull("deleted_at"),
	)
	sb.OrderBy("uploaded_at DESC")
	sb.Limit(pageSize)
	sb.Offset((page - 1) * pageSize)

	query, args = sb.Build()
	var documents []models.Document
	if err := r.db.SelectContext(ctx, &documents, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list documents")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list documents")
	}

	return &models.DocumentListResponse{
		Items:      documents,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
	}, nil
}

// Delete soft-deletes a document
func (r *Repository) Delete(ctx context.Context, id string) error {
	ctx, span := tracing.StartSpan(ctx, "document.Repository.Delete")
	defer span.End()

	sb := database.NewUpdateBuilder()
	sb.Update("documents")
	sb.Set(
		sb.Assign("deleted_at", time.Now().UTC()),
		sb.Assign("updated_at", time.Now().UTC()),
	)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", appcontext.GetTenantID(ctx)),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"document_id": id}).Error("Failed to delete document")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete document")
	}
	if rows, rErr := result.RowsAffected(); rErr == nil && rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("document %s not found", id))
	}

	return nil
}
