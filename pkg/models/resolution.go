package models

// MatchMethod identifies which resolver tier produced a result
type MatchMethod string

const (
	MatchMethodExactTaxID  MatchMethod = "exact-tax-id"
	MatchMethodFuzzyName   MatchMethod = "fuzzy-name"
	MatchMethodAutoCreated MatchMethod = "auto-created"
	MatchMethodNone        MatchMethod = "none"
)

// ExtractedParty is a supplier or customer as extracted from a document.
// All fields are optional; the resolver decides what can be done with them.
type ExtractedParty struct {
	Name       string `json:"name,omitempty"`
	TaxID      string `json:"tax_id,omitempty"`
	Address    string `json:"address,omitempty"`
	City       string `json:"city,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
}

// IsEmpty reports whether the party carries neither a name nor a tax id
func (p ExtractedParty) IsEmpty() bool {
	return p.Name == "" && p.TaxID == ""
}

// MatchResult is the outcome of resolving one extracted party
type MatchResult struct {
	Matched    bool        `json:"matched"`
	EntityID   *string     `json:"entity_id,omitempty"`
	Confidence int         `json:"confidence"`
	Method     MatchMethod `json:"method"`
	CreatedNew bool        `json:"created_new"`
	Reasoning  string      `json:"reasoning"`
}

// ResolvedParty pairs a match result with the party role it resolved
type ResolvedParty struct {
	Kind   EntityKind   `json:"kind"`
	Result *MatchResult `json:"result"`
}

// InvoiceData is one extracted invoice within a batch
type InvoiceData struct {
	InvoiceNumber string          `json:"invoice_number,omitempty"`
	Supplier      *ExtractedParty `json:"supplier,omitempty"`
	Customer      *ExtractedParty `json:"customer,omitempty"`
	TotalAmount   float64         `json:"total_amount,omitempty"`
	IssueDate     string          `json:"issue_date,omitempty"`
}

// InvoiceResolution pairs an invoice with its per-party results
type InvoiceResolution struct {
	InvoiceNumber  string       `json:"invoice_number,omitempty"`
	SupplierResult *MatchResult `json:"supplier_result,omitempty"`
	CustomerResult *MatchResult `json:"customer_result,omitempty"`
}

// BatchSummary aggregates counts over a batch resolution
type BatchSummary struct {
	TotalInvoices       int `json:"total_invoices"`
	MatchedSuppliers    int `json:"matched_suppliers"`
	MatchedCustomers    int `json:"matched_customers"`
	NewSuppliersCreated int `json:"new_suppliers_created"`
	NewCustomersCreated int `json:"new_customers_created"`
}

// BatchResult is the outcome of resolving a batch of invoices
type BatchResult struct {
	Invoices []InvoiceResolution `json:"invoices"`
	Summary  BatchSummary        `json:"summary"`
}

// ResolveRequest is the request body for a single resolution
type ResolveRequest struct {
	Kind      EntityKind     `json:"kind" validate:"required"`
	Candidate ExtractedParty `json:"candidate" validate:"required"`
}

// ResolveBatchRequest is the request body for a batch resolution
type ResolveBatchRequest struct {
	Invoices []InvoiceData `json:"invoices" validate:"required,min=1"`
}
