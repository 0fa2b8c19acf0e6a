package models

import "time"

// ExtractedDocumentMessage is an incoming message from the extraction
// pipeline: one uploaded file plus whatever the OCR/LLM stage pulled out of it.
type ExtractedDocumentMessage struct {
	Source      ExtractedDocumentSource `json:"source"`
	TenantID    string                  `json:"tenant_id"`
	ExecutionID string                  `json:"execution_id,omitempty"`
	Timestamp   time.Time               `json:"timestamp"`

	FileName      string  `json:"file_name"`
	FileSize      int64   `json:"file_size"`
	ContentHash   string  `json:"content_hash,omitempty"`
	ExtractedText *string `json:"extracted_text,omitempty"`
	UploadedBy    string  `json:"uploaded_by"`

	Invoices []InvoiceData `json:"invoices,omitempty"`
}

// ExtractedDocumentSource identifies the upstream extraction stage
type ExtractedDocumentSource struct {
	Type        string `json:"type"`
	TenantID    string `json:"tenant_id"`
	Integration string `json:"integration,omitempty"`
	ExecutionID string `json:"execution_id,omitempty"`
}
