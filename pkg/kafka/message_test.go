package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/models"
)

func TestParseDocument(t *testing.T) {
	jsonData := `{
		"source": {
			"type": "lotus",
			"tenant_id": "550e8400-e29b-41d4-a716-446655440000",
			"integration": "invoice-ocr",
			"execution_id": "a1b2c3d4-e5f6-7890-abcd-ef1234567890"
		},
		"tenant_id": "550e8400-e29b-41d4-a716-446655440000",
		"timestamp": "2025-01-15T10:30:00Z",
		"file_name": "factura_0042.pdf",
		"file_size": 84213,
		"content_hash": "abc123",
		"uploaded_by": "user-1",
		"invoices": [
			{
				"invoice_number": "F-0042",
				"total_amount": 1210.00,
				"supplier": {"name": "Acme Corp SL", "tax_id": "B76365872"}
			}
		]
	}`

	msg := &IncomingMessage{Value: []byte(jsonData)}
	require.NoError(t, msg.ParseDocument())

	assert.Equal(t, "factura_0042.pdf", msg.Document.FileName)
	assert.Equal(t, int64(84213), msg.Document.FileSize)
	assert.Equal(t, "abc123", msg.Document.ContentHash)
	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000", msg.GetTenantID())
	assert.Equal(t, "a1b2c3d4-e5f6-7890-abcd-ef1234567890", msg.GetExecutionID())
	require.Len(t, msg.Document.Invoices, 1)
	assert.Equal(t, "F-0042", msg.Document.Invoices[0].InvoiceNumber)
	assert.True(t, msg.IsValid())
}

func TestParseDocumentInvalidJSON(t *testing.T) {
	msg := &IncomingMessage{Value: []byte(`{not json`)}
	assert.Error(t, msg.ParseDocument())
	assert.Nil(t, msg.Document)
}

func TestGetTenantIDFallbacks(t *testing.T) {
	msg := &IncomingMessage{
		Document: &models.ExtractedDocumentMessage{
			Source: models.ExtractedDocumentSource{TenantID: "tenant-from-source"},
		},
	}
	assert.Equal(t, "tenant-from-source", msg.GetTenantID())

	msg = &IncomingMessage{Headers: map[string]string{"tenant_id": "tenant-from-header"}}
	assert.Equal(t, "tenant-from-header", msg.GetTenantID())
}

func TestIsValid(t *testing.T) {
	msg := &IncomingMessage{}
	assert.False(t, msg.IsValid())

	msg.Document = &models.ExtractedDocumentMessage{TenantID: "tenant-1"}
	assert.False(t, msg.IsValid())

	msg.Document.FileName = "invoice.pdf"
	assert.True(t, msg.IsValid())
}
