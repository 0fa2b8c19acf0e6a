package models

import "time"

// Document represents an ingested business document (invoice, receipt, payroll)
// Field order matches schema: id, tenant_id, file_name, ...
type Document struct {
	ID            string    `json:"id" db:"id"`
	TenantID      string    `json:"tenant_id" db:"tenant_id"`
	FileName      string    `json:"file_name" db:"file_name"`
	FileSize      int64     `json:"file_size" db:"file_size"`
	ContentHash   string    `json:"content_hash,omitempty" db:"content_hash"`
	ExtractedText *string   `json:"extracted_text,omitempty" db:"extracted_text"`
	UploadedBy    string    `json:"uploaded_by" db:"uploaded_by"`
	UploadedAt    time.Time `json:"uploaded_at" db:"uploaded_at"`

	// Entity links written by the resolver; best-effort enrichment
	SupplierID         *string `json:"supplier_id,omitempty" db:"supplier_id"`
	CustomerID         *string `json:"customer_id,omitempty" db:"customer_id"`
	SupplierConfidence *int    `json:"supplier_confidence,omitempty" db:"supplier_confidence"`
	CustomerConfidence *int    `json:"customer_confidence,omitempty" db:"customer_confidence"`
	SupplierMethod     *string `json:"supplier_method,omitempty" db:"supplier_method"`
	CustomerMethod     *string `json:"customer_method,omitempty" db:"customer_method"`

	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// DocumentFingerprint is the comparable subset of a document used for
// duplicate detection. Hash and text are optional; scoring degrades when
// they are missing.
type DocumentFingerprint struct {
	DocumentID    string    `json:"document_id" db:"id"`
	FileName      string    `json:"file_name" db:"file_name"`
	FileSize      int64     `json:"file_size" db:"file_size"`
	ContentHash   string    `json:"content_hash,omitempty" db:"content_hash"`
	ExtractedText string    `json:"extracted_text,omitempty" db:"extracted_text"`
	UploadedBy    string    `json:"uploaded_by" db:"uploaded_by"`
	UploadedAt    time.Time `json:"uploaded_at" db:"uploaded_at"`
}

// CreateDocumentRequest is the request for storing a document record
type CreateDocumentRequest struct {
	FileName      string  `json:"file_name" validate:"required"`
	FileSize      int64   `json:"file_size" validate:"required"`
	ContentHash   string  `json:"content_hash,omitempty"`
	ExtractedText *string `json:"extracted_text,omitempty"`
	UploadedBy    string  `json:"uploaded_by" validate:"required"`
}

// EntityLink carries resolved entity ids onto a document record
type EntityLink struct {
	SupplierID         *string
	CustomerID         *string
	SupplierConfidence *int
	CustomerConfidence *int
	SupplierMethod     *string
	CustomerMethod     *string
}

// DocumentListResponse is the response for listing documents
type DocumentListResponse struct {
	Items      []Document `json:"items"`
	TotalCount int        `json:"total_count"`
	Page       int        `json:"page"`
	PageSize   int        `json:"page_size"`
}
