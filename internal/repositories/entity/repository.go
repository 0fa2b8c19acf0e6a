// Package entity persists supplier and customer records
package entity

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
	"github.com/Ramsey-B/fern/pkg/normalize"
)

var entityColumns = []string{
	"id", "tenant_id", "kind", "legal_name", "commercial_name", "tax_id",
	"address", "city", "postal_code", "email", "phone", "status",
	"invoice_count", "total_amount", "last_invoice_date", "auto_created",
	"created_at", "updated_at", "deleted_at",
}

// Repository handles entity persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new entity repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// FindByTaxID looks up an active entity by normalized tax id. Tax ids are
// stored normalized, so equality is a plain column match. Returns nil when
// no entity matches.
func (r *Repository) FindByTaxID(ctx context.Context, kind models.EntityKind, taxID string) (*models.Entity, error) {
	ctx, span := tracing.StartSpan(ctx, "entity.Repository.FindByTaxID")
	defer span.End()

	taxID = normalize.TaxID(taxID)
	if taxID == "" {
		return nil, nil
	}

	query, args := findByTaxIDQuery(appcontext.GetTenantID(ctx), kind, taxID)
	var entity models.Entity
	if err := r.db.GetContext(ctx, &entity, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"tax_id": taxID}).Error("Failed to find entity by tax id")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to find entity by tax id")
	}

	return &entity, nil
}

func findByTaxIDQuery(tenantID string, kind models.EntityKind, taxID string) (string, []any) {
	sb := database.NewSelectBuilder()
	sb.Select(entityColumns...)
	sb.From("entities")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("kind", kind),
		sb.Equal("tax_id", taxID),
		sb.Equal("status", models.EntityStatusActive),
		sb.IsNull("deleted_at"),
	)
	sb.Limit(1)
	return sb.Build()
}

// ListActive retrieves active entities of the given kind, most recently
// created first, bounded by limit
func (r *Repository) ListActive(ctx context.Context, kind models.EntityKind, limit int) ([]models.Entity, error) {
	ctx, span := tracing.StartSpan(ctx, "entity.Repository.ListActive")
	defer span.End()

	if limit < 1 || limit > 500 {
		limit = 50
	}

	sb := database.NewSelectBuilder()
	sb.Select(entityColumns...)
	sb.From("entities")
	sb.Where(
		sb.Equal("tenant_id", appcontext.GetTenantID(ctx)),
		sb.Equal("kind", kind),
		sb.Equal("status", models.EntityStatusActive),
		sb.IsNull("deleted_at"),
	)
	sb.OrderBy("created_at DESC")
	sb.Limit(limit)

	query, args := sb.Build()
	var entities []models.Entity
	if err := r.db.SelectContext(ctx, &entities, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list active entities")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list active entities")
	}

	return entities, nil
}

// Create inserts a new entity. A unique index on (tenant_id, kind, tax_id)
// over active rows guards concurrent auto-creation; on conflict the insert
// is a no-op and the existing row is returned instead.
func (r *Repository) Create(ctx context.Context, req *models.CreateEntityRequest) (*models.Entity, error) {
	ctx, span := tracing.StartSpan(ctx, "entity.Repository.Create")
	defer span.End()

	now := time.Now().UTC()
	entity := models.Entity{
		ID:             uuid.New().String(),
		TenantID:       appcontext.GetTenantID(ctx),
		Kind:           req.Kind,
		LegalName:      req.LegalName,
		CommercialName: req.CommercialName,
		TaxID:          req.TaxID,
		Address:        req.Address,
		City:           req.City,
		PostalCode:     req.PostalCode,
		Email:          req.Email,
		Phone:          req.Phone,
		Status:         models.EntityStatusActive,
		AutoCreated:    req.AutoCreated,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if entity.TaxID != nil {
		normalized := normalize.TaxID(*entity.TaxID)
		entity.TaxID = &normalized
	}

	sb := database.NewInsertBuilder()
	sb.InsertInto("entities")
	sb.Cols("id", "tenant_id", "kind", "legal_name", "commercial_name", "tax_id",
		"address", "city", "postal_code", "email", "phone", "status",
		"auto_created", "created_at", "updated_at")
	sb.Values(entity.ID, entity.TenantID, entity.Kind, entity.LegalName, entity.CommercialName, entity.TaxID,
		entity.Address, entity.City, entity.PostalCode, entity.Email, entity.Phone, entity.Status,
		entity.AutoCreated, entity.CreatedAt, entity.UpdatedAt)

	query, args := sb.Build()
	query += " ON CONFLICT DO NOTHING"

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"legal_name": entity.LegalName}).Error("Failed to create entity")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create entity")
	}

	rows, rowsErr := result.RowsAffected()
	if rowsErr == nil && rows == 0 && entity.TaxID != nil {
		// another writer created the same entity first; resolve to theirs
		// within the same transaction
		findQuery, findArgs := findByTaxIDQuery(entity.TenantID, entity.Kind, *entity.TaxID)
		var existing models.Entity
		if findErr := tx.GetContext(ctx, &existing, findQuery, findArgs...); findErr != nil {
			return nil, httperror.NewHTTPError(http.StatusConflict, "entity already exists")
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create entity")
		}
		return &existing, nil
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create entity")
	}

	return &entity, nil
}

// Get retrieves an entity by ID
func (r *Repository) Get(ctx context.Context, id string) (*models.Entity, error) {
	ctx, span := tracing.StartSpan(ctx, "entity.Repository.Get")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(entityColumns...)
	sb.From("entities")
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", appcontext.GetTenantID(ctx)),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()
	var entity models.Entity
	if err := r.db.GetContext(ctx, &entity, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("entity %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get entity")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get entity")
	}

	return &entity, nil
}

// List retrieves entities with paging, optionally filtered by kind
func (r *Repository) List(ctx context.Context, kind models.EntityKind, page, pageSize int) (*models.EntityListResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "entity.Repository.List")
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
	countBuilder.From("entities")
	countBuilder.Where(
		countBuilder.Equal("tenant_id", tenantID),
		countBuilder.IsNull("deleted_at"),
	)
	if kind != "" {
		countBuilder.Where(countBuilder.Equal("kind", kind))
	}

	query, args := countBuilder.Build()
	var total int
	if err := r.db.GetContext(ctx, &total, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count entities")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list entities")
	}

	sb := database.NewSelectBuilder()
	sb.Select(entityColumns...)
	sb.From("entities")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.IsNull("deleted_at"),
	)
	if kind != "" {
		sb.Where(sb.Equal("kind", kind))
	}
	sb.OrderBy("created_at DESC")
	sb.Limit(pageSize)
	sb.Offset((page - 1) * pageSize)

	query, args = sb.Build()
	var entities []models.Entity
	if err := r.db.SelectContext(ctx, &entities, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list entities")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list entities")
	}

	return &models.EntityListResponse{
		Items:      entities,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
	}, nil
}

// FillMissingContact writes contact fields onto an entity only where the
// stored column is still empty. Verified data is never overwritten.
func (r *Repository) FillMissingContact(ctx context.Context, entityID string, update models.ContactUpdate) error {
	ctx, span := tracing.StartSpan(ctx, "entity.Repository.FillMissingContact")
	defer span.End()

	if update.IsEmpty() {
		return nil
	}

	sb := database.NewUpdateBuilder()
	sb.Update("entities")

	assignments := []string{sb.Assign("updated_at", time.Now().UTC())}
	if update.Address != nil {
		assignments = append(assignments, fmt.Sprintf("address = COALESCE(NULLIF(address, ''), %s)", sb.Var(*update.Address)))
	}
	if update.City != nil {
		assignments = append(assignments, fmt.Sprintf("city = COALESCE(NULLIF(city, ''), %s)", sb.Var(*update.City)))
	}
	if update.PostalCode != nil {
		assignments = append(assignments, fmt.Sprintf("postal_code = COALESCE(NULLIF(postal_code, ''), %s)", sb.Var(*update.PostalCode)))
	}
	if update.Email != nil {
		assignments = append(assignments, fmt.Sprintf("email = COALESCE(NULLIF(email, ''), %s)", sb.Var(*update.Email)))
	}
	if update.Phone != nil {
		assignments = append(assignments, fmt.Sprintf("phone = COALESCE(NULLIF(phone, ''), %s)", sb.Var(*update.Phone)))
	}
	sb.Set(assignments...)
	sb.Where(
		sb.Equal("id", entityID),
		sb.Equal("tenant_id", appcontext.GetTenantID(ctx)),
	)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"entity_id": entityID}).Error("Failed to backfill entity contact fields")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update entity contact fields")
	}

	return nil
}

// RecordInvoiceUsage bumps an entity's aggregate invoice stats after a
// document is linked to it
func (r *Repository) RecordInvoiceUsage(ctx context.Context, entityID string, amount float64, invoiceDate time.Time) error {
	ctx, span := tracing.StartSpan(ctx, "entity.Repository.RecordInvoiceUsage")
	defer span.End()

	sb := database.NewUpdateBuilder()
	sb.Update("entities")
	sb.Set(
		"invoice_count = invoice_count + 1",
		fmt.Sprintf("total_amount = total_amount + %s", sb.Var(amount)),
		fmt.Sprintf("last_invoice_date = GREATEST(COALESCE(last_invoice_date, %s), %s)", sb.Var(invoiceDate), sb.Var(invoiceDate)),
		sb.Assign("updated_at", time.Now().UTC()),
	)
	sb.Where(
		sb.Equal("id", entityID),
		sb.Equal("tenant_id", appcontext.GetTenantID(ctx)),
	)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"entity_id": entityID}).Error("Failed to record invoice usage")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to record invoice usage")
	}

	return nil
}

// Deactivate marks an entity inactive so it no longer participates in matching
func (r *Repository) Deactivate(ctx context.Context, entityID string) error {
	ctx, span := tracing.StartSpan(ctx, "entity.Repository.Deactivate")
	defer span.End()

	sb := database.NewUpdateBuilder()
	sb.Update("entities")
	sb.Set(
		sb.Assign("status", models.EntityStatusInactive),
		sb.Assign("updated_at", time.Now().UTC()),
	)
	sb.Where(
		sb.Equal("id", entityID),
		sb.Equal("tenant_id", appcontext.GetTenantID(ctx)),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"entity_id": entityID}).Error("Failed to deactivate entity")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to deactivate entity")
	}
	if rows, rErr := result.RowsAffected(); rErr == nil && rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("entity %s not found", entityID))
	}

	return nil
}
