package kafka

import (
	"encoding/json"
	"time"

	"github.com/Ramsey-B/fern/pkg/models"
)

// IncomingMessage wraps a raw Kafka message with parsed headers
type IncomingMessage struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Partition int
	Offset    int64
	Timestamp time.Time
	Topic     string

	// Trace context (extracted from Kafka headers)
	TraceParent string
	TraceState  string

	// Parsed content
	Document *models.ExtractedDocumentMessage
}

// ParseDocument parses the message value as an extracted document message
func (m *IncomingMessage) ParseDocument() error {
	var msg models.ExtractedDocumentMessage
	if err := json.Unmarshal(m.Value, &msg); err != nil {
		return err
	}
	m.Document = &msg
	return nil
}

// GetTenantID returns the tenant ID from the parsed message, falling back to
// the message header
func (m *IncomingMessage) GetTenantID() string {
	if m.Document != nil {
		if m.Document.TenantID != "" {
			return m.Document.TenantID
		}
		if m.Document.Source.TenantID != "" {
			return m.Document.Source.TenantID
		}
	}
	return m.Headers["tenant_id"]
}

// GetExecutionID returns the upstream extraction execution ID
func (m *IncomingMessage) GetExecutionID() string {
	if m.Document != nil {
		if m.Document.ExecutionID != "" {
			return m.Document.ExecutionID
		}
		return m.Document.Source.ExecutionID
	}
	return ""
}

// IsValid reports whether the parsed document carries enough data to process
func (m *IncomingMessage) IsValid() bool {
	return m.Document != nil && m.GetTenantID() != "" && m.Document.FileName != ""
}
