package resolver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/models"
)

func TestResolveInvoiceEntitiesBatch(t *testing.T) {
	existing := supplier("Talleres Lopez SL", "B76365872")
	store := newFakeStore(existing)
	r := New(store, DefaultConfig(), testLogger())

	batch := []models.InvoiceData{
		{
			InvoiceNumber: "2024-001",
			Supplier:      &models.ExtractedParty{Name: "Talleres Lopez", TaxID: "B76365872"},
			Customer:      &models.ExtractedParty{Name: "Mi Empresa SL", TaxID: "B11111111"},
		},
		{
			InvoiceNumber: "2024-002",
			Supplier:      &models.ExtractedParty{Name: "Proveedor Nuevo SA", TaxID: "A22222222"},
		},
		{
			InvoiceNumber: "2024-003",
			Supplier:      &models.ExtractedParty{},
		},
	}

	result := r.ResolveInvoiceEntities(context.Background(), batch)

	assert.Equal(t, 3, result.Summary.TotalInvoices)
	assert.Equal(t, 2, result.Summary.MatchedSuppliers)
	assert.Equal(t, 1, result.Summary.MatchedCustomers)
	assert.Equal(t, 1, result.Summary.NewSuppliersCreated)
	assert.Equal(t, 1, result.Summary.NewCustomersCreated)
	require.Len(t, result.Invoices, 3)

	assert.Equal(t, models.MatchMethodExactTaxID, result.Invoices[0].SupplierResult.Method)
	assert.Equal(t, models.MatchMethodAutoCreated, result.Invoices[0].CustomerResult.Method)
	assert.Equal(t, models.MatchMethodAutoCreated, result.Invoices[1].SupplierResult.Method)
	assert.Equal(t, models.MatchMethodNone, result.Invoices[2].SupplierResult.Method)
	assert.Nil(t, result.Invoices[2].CustomerResult)
}

func TestResolveInvoiceEntitiesDedupesWithinBatch(t *testing.T) {
	store := newFakeStore()
	r := New(store, DefaultConfig(), testLogger())

	party := models.ExtractedParty{Name: "Proveedor Nuevo SA", TaxID: "A-22 222 222"}
	batch := []models.InvoiceData{
		{InvoiceNumber: "2024-001", Supplier: &party},
		{InvoiceNumber: "2024-002", Supplier: &models.ExtractedParty{Name: "Proveedor Nuevo SA", TaxID: "A22222222"}},
		{InvoiceNumber: "2024-003", Supplier: &party},
	}

	result := r.ResolveInvoiceEntities(context.Background(), batch)

	// one entity created, the two repeats resolve to it
	assert.Equal(t, 1, store.created)
	assert.Equal(t, 1, result.Summary.NewSuppliersCreated)
	assert.Equal(t, 3, result.Summary.MatchedSuppliers)

	first := result.Invoices[0].SupplierResult
	second := result.Invoices[1].SupplierResult
	require.NotNil(t, first.EntityID)
	require.NotNil(t, second.EntityID)
	assert.Equal(t, *first.EntityID, *second.EntityID)
	assert.True(t, first.CreatedNew)
	assert.False(t, second.CreatedNew)
}

func TestResolveInvoiceEntitiesEmptyBatch(t *testing.T) {
	r := New(newFakeStore(), DefaultConfig(), testLogger())

	result := r.ResolveInvoiceEntities(context.Background(), nil)

	assert.Equal(t, 0, result.Summary.TotalInvoices)
	assert.Empty(t, result.Invoices)
}
