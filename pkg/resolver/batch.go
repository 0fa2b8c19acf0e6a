package resolver

import (
	"context"

	"github.com/Ramsey-B/fern/internal/platform/tracing"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/normalize"
)

// batchCache remembers resolutions within a single batch so two invoices
// carrying the same unknown party create one entity, not two
type batchCache struct {
	results map[string]*models.MatchResult
}

func newBatchCache() *batchCache {
	return &batchCache{results: make(map[string]*models.MatchResult)}
}

func (c *batchCache) key(kind models.EntityKind, party models.ExtractedParty) string {
	taxID := normalize.TaxID(party.TaxID)
	if taxID != "" {
		return string(kind) + ":tax:" + taxID
	}
	name := normalize.Name(party.Name)
	if name != "" {
		return string(kind) + ":name:" + name
	}
	return ""
}

func (c *batchCache) get(key string) (*models.MatchResult, bool) {
	if key == "" {
		return nil, false
	}
	result, ok := c.results[key]
	return result, ok
}

func (c *batchCache) put(key string, result *models.MatchResult) {
	if key == "" {
		return
	}
	c.results[key] = result
}

// ResolveInvoiceEntities resolves the supplier and customer of every invoice
// in the batch and aggregates a summary. Parties already resolved earlier in
// the same batch reuse the first result.
func (r *Resolver) ResolveInvoiceEntities(ctx context.Context, invoices []models.InvoiceData) *models.BatchResult {
	ctx, span := tracing.StartSpan(ctx, "Resolver.ResolveInvoiceEntities")
	defer span.End()

	cache := newBatchCache()
	result := &models.BatchResult{
		Invoices: make([]models.InvoiceResolution, 0, len(invoices)),
		Summary:  models.BatchSummary{TotalInvoices: len(invoices)},
	}

	for _, invoice := range invoices {
		resolution := models.InvoiceResolution{InvoiceNumber: invoice.InvoiceNumber}

		if invoice.Supplier != nil {
			match := r.resolveCached(ctx, cache, models.EntityKindSupplier, *invoice.Supplier)
			resolution.SupplierResult = match
			if match.Matched {
				result.Summary.MatchedSuppliers++
			}
			if match.CreatedNew {
				result.Summary.NewSuppliersCreated++
			}
		}

		if invoice.Customer != nil {
			match := r.resolveCached(ctx, cache, models.EntityKindCustomer, *invoice.Customer)
			resolution.CustomerResult = match
			if match.Matched {
				result.Summary.MatchedCustomers++
			}
			if match.CreatedNew {
				result.Summary.NewCustomersCreated++
			}
		}

		result.Invoices = append(result.Invoices, resolution)
	}

	return result
}

func (r *Resolver) resolveCached(ctx context.Context, cache *batchCache, kind models.EntityKind, party models.ExtractedParty) *models.MatchResult {
	key := cache.key(kind, party)
	if cached, ok := cache.get(key); ok {
		// repeat occurrences of the same party are matches against the
		// first resolution, never fresh creations
		reused := *cached
		reused.CreatedNew = false
		return &reused
	}

	result := r.Resolve(ctx, kind, party)
	cache.put(key, result)
	return result
}
