package models

import "time"

// EntityKind distinguishes the two sides of an invoice
type EntityKind string

const (
	EntityKindSupplier EntityKind = "supplier"
	EntityKindCustomer EntityKind = "customer"
)

// IsValid reports whether the kind is one of the known values
func (k EntityKind) IsValid() bool {
	return k == EntityKindSupplier || k == EntityKindCustomer
}

// EntityStatus constants
const (
	EntityStatusActive   = "active"
	EntityStatusInactive = "inactive"
)

// Entity represents a supplier or customer record
// Field order matches schema: id, tenant_id, kind, legal_name, ...
type Entity struct {
	ID             string     `json:"id" db:"id"`
	TenantID       string     `json:"tenant_id" db:"tenant_id"`
	Kind           EntityKind `json:"kind" db:"kind"`
	LegalName      string     `json:"legal_name" db:"legal_name"`
	CommercialName *string    `json:"commercial_name,omitempty" db:"commercial_name"`
	TaxID          *string    `json:"tax_id,omitempty" db:"tax_id"`
	Address        *string    `json:"address,omitempty" db:"address"`
	City           *string    `json:"city,omitempty" db:"city"`
	PostalCode     *string    `json:"postal_code,omitempty" db:"postal_code"`
	Email          *string    `json:"email,omitempty" db:"email"`
	Phone          *string    `json:"phone,omitempty" db:"phone"`
	Status         string     `json:"status" db:"status"`

	// Aggregate usage stats, maintained as documents are linked
	InvoiceCount    int        `json:"invoice_count" db:"invoice_count"`
	TotalAmount     float64    `json:"total_amount" db:"total_amount"`
	LastInvoiceDate *time.Time `json:"last_invoice_date,omitempty" db:"last_invoice_date"`

	AutoCreated bool       `json:"auto_created" db:"auto_created"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// NameCandidates returns the names an entity can be matched against
func (e *Entity) NameCandidates() []string {
	names := []string{e.LegalName}
	if e.CommercialName != nil && *e.CommercialName != "" {
		names = append(names, *e.CommercialName)
	}
	return names
}

// CreateEntityRequest is the request for creating an entity
type CreateEntityRequest struct {
	Kind           EntityKind `json:"kind" validate:"required"`
	LegalName      string     `json:"legal_name" validate:"required"`
	CommercialName *string    `json:"commercial_name,omitempty"`
	TaxID          *string    `json:"tax_id,omitempty"`
	Address        *string    `json:"address,omitempty"`
	City           *string    `json:"city,omitempty"`
	PostalCode     *string    `json:"postal_code,omitempty"`
	Email          *string    `json:"email,omitempty"`
	Phone          *string    `json:"phone,omitempty"`
	AutoCreated    bool       `json:"auto_created"`
}

// ContactUpdate carries secondary fields to backfill onto an existing entity.
// Only empty columns are written; verified data is never overwritten.
type ContactUpdate struct {
	Address    *string `json:"address,omitempty"`
	City       *string `json:"city,omitempty"`
	PostalCode *string `json:"postal_code,omitempty"`
	Email      *string `json:"email,omitempty"`
	Phone      *string `json:"phone,omitempty"`
}

// IsEmpty reports whether the update carries no values
func (u ContactUpdate) IsEmpty() bool {
	return u.Address == nil && u.City == nil && u.PostalCode == nil && u.Email == nil && u.Phone == nil
}

// EntityListResponse is the response for listing entities
type EntityListResponse struct {
	Items      []Entity `json:"items"`
	TotalCount int      `json:"total_count"`
	Page       int      `json:"page"`
	PageSize   int      `json:"page_size"`
}
