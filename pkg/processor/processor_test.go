package processor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/config"
	"github.com/Ramsey-B/fern/pkg/dedup"
	"github.com/Ramsey-B/fern/pkg/fingerprint"
	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/resolver"
)

type fakeDocuments struct {
	createErr    error
	listErr      error
	created      []*models.Document
	fingerprints []models.DocumentFingerprint
	links        map[string]models.EntityLink
}

func (f *fakeDocuments) Create(ctx context.Context, req *models.CreateDocumentRequest) (*models.Document, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	doc := &models.Document{
		ID:            uuid.NewString(),
		TenantID:      "tenant-1",
		FileName:      req.FileName,
		FileSize:      req.FileSize,
		ContentHash:   req.ContentHash,
		ExtractedText: req.ExtractedText,
		UploadedBy:    req.UploadedBy,
		UploadedAt:    time.Now().UTC(),
	}
	f.created = append(f.created, doc)
	return doc, nil
}

func (f *fakeDocuments) LinkEntities(ctx context.Context, documentID string, link models.EntityLink) error {
	if f.links == nil {
		f.links = make(map[string]models.EntityLink)
	}
	f.links[documentID] = link
	return nil
}

func (f *fakeDocuments) ListFingerprints(ctx context.Context, limit int) ([]models.DocumentFingerprint, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.fingerprints, nil
}

type fakeEntityStore struct {
	entities []models.Entity
	created  int
}

func (s *fakeEntityStore) FindByTaxID(ctx context.Context, kind models.EntityKind, taxID string) (*models.Entity, error) {
	for i := range s.entities {
		e := &s.entities[i]
		if e.Kind == kind && e.TaxID != nil && *e.TaxID == taxID {
			return e, nil
		}
	}
	return nil, nil
}

func (s *fakeEntityStore) ListActive(ctx context.Context, kind models.EntityKind, limit int) ([]models.Entity, error) {
	var out []models.Entity
	for _, e := range s.entities {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *fakeEntityStore) Create(ctx context.Context, req *models.CreateEntityRequest) (*models.Entity, error) {
	s.created++
	e := models.Entity{
		ID:        uuid.NewString(),
		Kind:      req.Kind,
		LegalName: req.LegalName,
		TaxID:     req.TaxID,
		Status:    models.EntityStatusActive,
		CreatedAt: time.Now(),
	}
	s.entities = append(s.entities, e)
	return &e, nil
}

func (s *fakeEntityStore) FillMissingContact(ctx context.Context, entityID string, update models.ContactUpdate) error {
	return nil
}

type fakeUsage struct {
	recorded map[string]float64
}

func (f *fakeUsage) RecordInvoiceUsage(ctx context.Context, entityID string, amount float64, invoiceDate time.Time) error {
	if f.recorded == nil {
		f.recorded = make(map[string]float64)
	}
	f.recorded[entityID] += amount
	return nil
}

type fakeAudit struct {
	records []models.MatchMethod
}

func (f *fakeAudit) Insert(ctx context.Context, documentID string, kind models.EntityKind, result *models.MatchResult) error {
	f.records = append(f.records, result.Method)
	return nil
}

type fakeEvents struct {
	entityEvents    int
	entityBatches   int
	processedEvents int
	duplicateEvents int
}

func (f *fakeEvents) EmitEntityResults(ctx context.Context, documentID string, parties []models.ResolvedParty) error {
	f.entityBatches++
	f.entityEvents += len(parties)
	return nil
}

func (f *fakeEvents) EmitDocumentProcessed(ctx context.Context, documentID string) error {
	f.processedEvents++
	return nil
}

func (f *fakeEvents) EmitDuplicateDetected(ctx context.Context, group *models.DuplicateGroup) error {
	f.duplicateEvents++
	return nil
}

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

type fixture struct {
	processor *Processor
	documents *fakeDocuments
	entities  *fakeEntityStore
	usage     *fakeUsage
	audit     *fakeAudit
	events    *fakeEvents
	groups    *dedup.GroupManager
}

func newFixture(entities ...models.Entity) *fixture {
	logger := testLogger()
	docs := &fakeDocuments{}
	store := &fakeEntityStore{entities: entities}
	usage := &fakeUsage{}
	audit := &fakeAudit{}
	events := &fakeEvents{}
	groups := dedup.NewGroupManager(dedup.DefaultConfig(), logger)

	cfg := config.Config{FingerprintScanLimit: 200}
	p := NewProcessor(
		cfg,
		logger,
		docs,
		usage,
		audit,
		resolver.New(store, resolver.DefaultConfig(), logger),
		dedup.NewDetector(dedup.DefaultConfig()),
		groups,
		events,
	)

	return &fixture{
		processor: p,
		documents: docs,
		entities:  store,
		usage:     usage,
		audit:     audit,
		events:    events,
		groups:    groups,
	}
}

func message(doc models.ExtractedDocumentMessage) *kafka.IncomingMessage {
	if doc.TenantID == "" {
		doc.TenantID = "tenant-1"
	}
	return &kafka.IncomingMessage{Document: &doc}
}

func TestHandleMessageStoresAndResolves(t *testing.T) {
	taxID := "B76365872"
	f := newFixture(models.Entity{
		ID:        "entity-1",
		Kind:      models.EntityKindSupplier,
		LegalName: "Talleres Lopez SL",
		TaxID:     &taxID,
		Status:    models.EntityStatusActive,
		CreatedAt: time.Now(),
	})

	err := f.processor.HandleMessage(context.Background(), message(models.ExtractedDocumentMessage{
		FileName:   "factura_2024_001.pdf",
		FileSize:   120000,
		UploadedBy: "user-1",
		Invoices: []models.InvoiceData{{
			InvoiceNumber: "2024-001",
			Supplier:      &models.ExtractedParty{Name: "Talleres Lopez", TaxID: "B-76 365 872"},
			TotalAmount:   1210.00,
			IssueDate:     "2024-05-01",
		}},
	}))

	require.NoError(t, err)
	require.Len(t, f.documents.created, 1)

	docID := f.documents.created[0].ID
	link, ok := f.documents.links[docID]
	require.True(t, ok)
	require.NotNil(t, link.SupplierID)
	assert.Equal(t, "entity-1", *link.SupplierID)
	require.NotNil(t, link.SupplierConfidence)
	assert.Equal(t, 100, *link.SupplierConfidence)

	assert.Equal(t, 1210.00, f.usage.recorded["entity-1"])
	assert.Contains(t, f.audit.records, models.MatchMethodExactTaxID)
	assert.Equal(t, 1, f.events.entityEvents)
	assert.Equal(t, 1, f.events.entityBatches)
	assert.Equal(t, 1, f.events.processedEvents)
}

func TestHandleMessageStoreFailurePropagates(t *testing.T) {
	f := newFixture()
	f.documents.createErr = errors.New("connection refused")

	err := f.processor.HandleMessage(context.Background(), message(models.ExtractedDocumentMessage{
		FileName:   "factura.pdf",
		FileSize:   100,
		UploadedBy: "user-1",
	}))

	assert.Error(t, err)
	assert.Equal(t, 0, f.events.processedEvents)
}

func TestHandleMessageDetectsDuplicates(t *testing.T) {
	hash := fingerprint.FromBytes([]byte("same bytes"))
	f := newFixture()
	f.documents.fingerprints = []models.DocumentFingerprint{{
		DocumentID:  "doc-old",
		FileName:    "factura_2024_001.pdf",
		FileSize:    120000,
		ContentHash: hash,
		UploadedBy:  "user-1",
		UploadedAt:  time.Now().Add(-10 * time.Minute),
	}}

	err := f.processor.HandleMessage(context.Background(), message(models.ExtractedDocumentMessage{
		FileName:    "factura_2024_001 (1).pdf",
		FileSize:    120000,
		ContentHash: hash,
		UploadedBy:  "user-1",
	}))

	require.NoError(t, err)
	assert.Equal(t, 1, f.events.duplicateEvents)
	assert.Equal(t, 1, f.groups.PendingCount())
}

func TestHandleMessageFingerprintFailureSkipsDedup(t *testing.T) {
	f := newFixture()
	f.documents.listErr = errors.New("timeout")

	err := f.processor.HandleMessage(context.Background(), message(models.ExtractedDocumentMessage{
		FileName:   "factura.pdf",
		FileSize:   100,
		UploadedBy: "user-1",
	}))

	// dedup failure must not fail the message
	require.NoError(t, err)
	assert.Equal(t, 0, f.events.duplicateEvents)
	assert.Equal(t, 1, f.events.processedEvents)
}

func TestHandleMessageHashesExtractedText(t *testing.T) {
	f := newFixture()
	text := "Factura 2024-001 Total 1.210,00"

	err := f.processor.HandleMessage(context.Background(), message(models.ExtractedDocumentMessage{
		FileName:      "factura.pdf",
		FileSize:      100,
		UploadedBy:    "user-1",
		ExtractedText: &text,
	}))

	require.NoError(t, err)
	require.Len(t, f.documents.created, 1)
	assert.NotEmpty(t, f.documents.created[0].ContentHash)
}

func TestHandleMessageAutoCreatesSupplier(t *testing.T) {
	f := newFixture()

	err := f.processor.HandleMessage(context.Background(), message(models.ExtractedDocumentMessage{
		FileName:   "factura.pdf",
		FileSize:   100,
		UploadedBy: "user-1",
		Invoices: []models.InvoiceData{{
			Supplier: &models.ExtractedParty{Name: "Proveedor Nuevo SA", TaxID: "A22222222"},
		}},
	}))

	require.NoError(t, err)
	assert.Equal(t, 1, f.entities.created)
	assert.Contains(t, f.audit.records, models.MatchMethodAutoCreated)
	assert.Equal(t, 1, f.events.entityEvents)
}

func TestParseInvoiceDate(t *testing.T) {
	parsed := parseInvoiceDate("2024-05-01")
	assert.Equal(t, 2024, parsed.Year())
	assert.Equal(t, time.May, parsed.Month())

	parsed = parseInvoiceDate("01/05/2024")
	assert.Equal(t, time.May, parsed.Month())

	// unparseable dates fall back to now
	assert.WithinDuration(t, time.Now(), parseInvoiceDate("mayo 2024"), time.Minute)
}
