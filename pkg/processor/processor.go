// Package processor handles incoming extracted-document messages. It stores
// the document record, runs duplicate detection, and resolves extracted
// parties to entities. Document storage is the only required step; matching
// and dedup are best-effort enrichment.
package processor

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/config"
	"github.com/Ramsey-B/fern/internal/platform/appcontext"
	"github.com/Ramsey-B/fern/internal/platform/tracing"
	"github.com/Ramsey-B/fern/pkg/dedup"
	"github.com/Ramsey-B/fern/pkg/fingerprint"
	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/normalize"
	"github.com/Ramsey-B/fern/pkg/resolver"
)

// DocumentStore is the document persistence surface the processor needs
type DocumentStore interface {
	Create(ctx context.Context, req *models.CreateDocumentRequest) (*models.Document, error)
	LinkEntities(ctx context.Context, documentID string, link models.EntityLink) error
	ListFingerprints(ctx context.Context, limit int) ([]models.DocumentFingerprint, error)
}

// UsageRecorder bumps entity aggregate stats after a document links to them
type UsageRecorder interface {
	RecordInvoiceUsage(ctx context.Context, entityID string, amount float64, invoiceDate time.Time) error
}

// AuditStore records resolution outcomes
type AuditStore interface {
	Insert(ctx context.Context, documentID string, kind models.EntityKind, result *models.MatchResult) error
}

// EventSink publishes pipeline events
type EventSink interface {
	EmitEntityResults(ctx context.Context, documentID string, parties []models.ResolvedParty) error
	EmitDocumentProcessed(ctx context.Context, documentID string) error
	EmitDuplicateDetected(ctx context.Context, group *models.DuplicateGroup) error
}

// Processor handles message processing for the document pipeline
type Processor struct {
	logger    ectologger.Logger
	documents DocumentStore
	usage     UsageRecorder
	audit     AuditStore
	resolver  *resolver.Resolver
	detector  *dedup.Detector
	groups    *dedup.GroupManager
	events    EventSink
	scanLimit int
}

// NewProcessor creates a new document processor
func NewProcessor(
	cfg config.Config,
	logger ectologger.Logger,
	documents DocumentStore,
	usage UsageRecorder,
	audit AuditStore,
	res *resolver.Resolver,
	detector *dedup.Detector,
	groups *dedup.GroupManager,
	events EventSink,
) *Processor {
	return &Processor{
		logger:    logger,
		documents: documents,
		usage:     usage,
		audit:     audit,
		resolver:  res,
		detector:  detector,
		groups:    groups,
		events:    events,
		scanLimit: cfg.FingerprintScanLimit,
	}
}

// HandleMessage processes one extracted document message. Returning an error
// leaves the message uncommitted for redelivery; only failure to store the
// document itself is treated that way.
func (p *Processor) HandleMessage(ctx context.Context, msg *kafka.IncomingMessage) error {
	ctx, span := tracing.StartSpan(ctx, "Processor.HandleMessage")
	defer span.End()
	started := time.Now()

	ctx = appcontext.SetTenantID(ctx, msg.GetTenantID())
	doc := msg.Document

	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"file_name":    doc.FileName,
		"execution_id": msg.GetExecutionID(),
	})

	contentHash := doc.ContentHash
	if contentHash == "" && doc.ExtractedText != nil {
		contentHash = fingerprint.FromText(normalize.Text(*doc.ExtractedText))
	}

	stored, err := p.documents.Create(ctx, &models.CreateDocumentRequest{
		FileName:      doc.FileName,
		FileSize:      doc.FileSize,
		ContentHash:   contentHash,
		ExtractedText: doc.ExtractedText,
		UploadedBy:    doc.UploadedBy,
	})
	if err != nil {
		log.WithError(err).Error("Failed to store document")
		metrics.DocumentsProcessedTotal.WithLabelValues("store_failed").Inc()
		return err
	}
	log = log.WithFields(map[string]any{"document_id": stored.ID})

	p.detectDuplicates(ctx, stored, doc, contentHash, log)
	p.resolveParties(ctx, stored.ID, doc.Invoices, log)

	if err := p.events.EmitDocumentProcessed(ctx, stored.ID); err != nil {
		log.WithError(err).Warn("Failed to emit document.processed event")
	}

	metrics.DocumentsProcessedTotal.WithLabelValues("processed").Inc()
	metrics.ResolutionDuration.Observe(time.Since(started).Seconds())
	log.Info("Processed document")
	return nil
}

func (p *Processor) detectDuplicates(ctx context.Context, stored *models.Document, doc *models.ExtractedDocumentMessage, contentHash string, log ectologger.Logger) {
	ctx, span := tracing.StartSpan(ctx, "Processor.detectDuplicates")
	defer span.End()

	existing, err := p.documents.ListFingerprints(ctx, p.scanLimit)
	if err != nil {
		log.WithError(err).Warn("Failed to load fingerprints, skipping duplicate detection")
		return
	}

	candidate := models.DocumentFingerprint{
		DocumentID:  stored.ID,
		FileName:    doc.FileName,
		FileSize:    doc.FileSize,
		ContentHash: contentHash,
		UploadedBy:  doc.UploadedBy,
		UploadedAt:  stored.UploadedAt,
	}
	if doc.ExtractedText != nil {
		candidate.ExtractedText = *doc.ExtractedText
	}

	matches := p.detector.DetectDuplicates(ctx, candidate, existing)
	if len(matches) == 0 {
		return
	}
	log.WithFields(map[string]any{"matches": len(matches)}).Info("Found possible duplicates")

	group := p.groups.MaybeGroup(ctx, stored.ID, matches)
	if group == nil {
		return
	}
	metrics.DuplicateGroupsTotal.Inc()
	metrics.DuplicateGroupsPending.Set(float64(p.groups.PendingCount()))

	if err := p.events.EmitDuplicateDetected(ctx, group); err != nil {
		log.WithError(err).Warn("Failed to emit document.duplicate event")
	}
}

func (p *Processor) resolveParties(ctx context.Context, documentID string, invoices []models.InvoiceData, log ectologger.Logger) {
	ctx, span := tracing.StartSpan(ctx, "Processor.resolveParties")
	defer span.End()

	if len(invoices) == 0 {
		return
	}

	batch := p.resolver.ResolveInvoiceEntities(ctx, invoices)

	supplierResult := bestResult(batch, func(r models.InvoiceResolution) *models.MatchResult { return r.SupplierResult })
	customerResult := bestResult(batch, func(r models.InvoiceResolution) *models.MatchResult { return r.CustomerResult })

	link := models.EntityLink{}
	if supplierResult != nil && supplierResult.Matched {
		link.SupplierID = supplierResult.EntityID
		link.SupplierConfidence = &supplierResult.Confidence
		link.SupplierMethod = methodPtr(supplierResult.Method)
	}
	if customerResult != nil && customerResult.Matched {
		link.CustomerID = customerResult.EntityID
		link.CustomerConfidence = &customerResult.Confidence
		link.CustomerMethod = methodPtr(customerResult.Method)
	}
	if link.SupplierID != nil || link.CustomerID != nil {
		if err := p.documents.LinkEntities(ctx, documentID, link); err != nil {
			log.WithError(err).Warn("Failed to link entities to document")
		}
	}

	var matched []models.ResolvedParty
	for i, resolution := range batch.Invoices {
		matched = append(matched,
			p.recordOutcome(ctx, documentID, models.EntityKindSupplier, resolution.SupplierResult, invoices[i], log)...)
		matched = append(matched,
			p.recordOutcome(ctx, documentID, models.EntityKindCustomer, resolution.CustomerResult, invoices[i], log)...)
	}
	if len(matched) > 0 {
		if err := p.events.EmitEntityResults(ctx, documentID, matched); err != nil {
			log.WithError(err).Warn("Failed to emit entity events")
		}
	}

	log.WithFields(map[string]any{
		"invoices":          batch.Summary.TotalInvoices,
		"matched_suppliers": batch.Summary.MatchedSuppliers,
		"matched_customers": batch.Summary.MatchedCustomers,
		"new_entities":      batch.Summary.NewSuppliersCreated + batch.Summary.NewCustomersCreated,
	}).Info("Resolved document parties")
}

// recordOutcome audits a single resolution result and returns it as a
// resolved party when it matched, so the caller can emit one event batch
// per document.
func (p *Processor) recordOutcome(ctx context.Context, documentID string, kind models.EntityKind, result *models.MatchResult, invoice models.InvoiceData, log ectologger.Logger) []models.ResolvedParty {
	if result == nil {
		return nil
	}

	metrics.ResolutionsTotal.WithLabelValues(string(kind), string(result.Method)).Inc()
	if result.CreatedNew {
		metrics.EntitiesCreatedTotal.WithLabelValues(string(kind)).Inc()
	}

	if err := p.audit.Insert(ctx, documentID, kind, result); err != nil {
		log.WithError(err).Warn("Failed to insert match audit record")
	}

	if !result.Matched || result.EntityID == nil {
		return nil
	}

	// usage stats track the supplier side; customer documents are the
	// tenant's own company most of the time
	if kind == models.EntityKindSupplier && invoice.TotalAmount > 0 {
		if err := p.usage.RecordInvoiceUsage(ctx, *result.EntityID, invoice.TotalAmount, parseInvoiceDate(invoice.IssueDate)); err != nil {
			log.WithError(err).Warn("Failed to record invoice usage")
		}
	}

	return []models.ResolvedParty{{Kind: kind, Result: result}}
}

// bestResult picks the highest-confidence matched result across the batch
// for the document-level entity link
func bestResult(batch *models.BatchResult, pick func(models.InvoiceResolution) *models.MatchResult) *models.MatchResult {
	var best *models.MatchResult
	for _, resolution := range batch.Invoices {
		result := pick(resolution)
		if result == nil || !result.Matched {
			continue
		}
		if best == nil || result.Confidence > best.Confidence {
			best = result
		}
	}
	return best
}

func parseInvoiceDate(raw string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02", "02/01/2006"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Now().UTC()
}

func methodPtr(m models.MatchMethod) *string {
	s := string(m)
	return &s
}
