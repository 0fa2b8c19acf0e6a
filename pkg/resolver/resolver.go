// Package resolver matches extracted invoice parties against known entities
package resolver

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/fern/internal/platform/tracing"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/normalize"
	"github.com/Ramsey-B/fern/pkg/similarity"
)

// EntityStore is the persistence surface the resolver needs. Implementations
// are expected to scope every call to the tenant on the context.
type EntityStore interface {
	// FindByTaxID looks up an active entity by normalized tax id. Returns
	// nil without error when no entity matches.
	FindByTaxID(ctx context.Context, kind models.EntityKind, taxID string) (*models.Entity, error)
	// ListActive returns up to limit active entities of the given kind,
	// most recently created first.
	ListActive(ctx context.Context, kind models.EntityKind, limit int) ([]models.Entity, error)
	// Create inserts a new entity and returns the stored row
	Create(ctx context.Context, req *models.CreateEntityRequest) (*models.Entity, error)
	// FillMissingContact backfills empty contact columns only
	FillMissingContact(ctx context.Context, entityID string, update models.ContactUpdate) error
}

// Config holds the resolution thresholds
type Config struct {
	// FuzzyMatchThreshold is the minimum name similarity accepted as a match
	FuzzyMatchThreshold int
	// AutoCreateConfidence is the confidence assigned to auto-created entities
	AutoCreateConfidence int
	// CandidateScanLimit bounds how many entities a fuzzy scan considers
	CandidateScanLimit int
}

// DefaultConfig returns the standard resolution thresholds
func DefaultConfig() Config {
	return Config{
		FuzzyMatchThreshold:  85,
		AutoCreateConfidence: 90,
		CandidateScanLimit:   50,
	}
}

// Resolver resolves extracted parties to entity records
type Resolver struct {
	store  EntityStore
	config Config
	logger ectologger.Logger
}

// New creates a Resolver
func New(store EntityStore, config Config, logger ectologger.Logger) *Resolver {
	return &Resolver{
		store:  store,
		config: config,
		logger: logger,
	}
}

// Resolve matches one extracted party against known entities of the given
// kind. It tries tiers in order: exact tax id, fuzzy name, auto-creation.
// Resolve never fails; store errors degrade to a no-match result so one bad
// party cannot sink a whole document.
func (r *Resolver) Resolve(ctx context.Context, kind models.EntityKind, party models.ExtractedParty) *models.MatchResult {
	ctx, span := tracing.StartSpan(ctx, "Resolver.Resolve")
	defer span.End()

	if party.IsEmpty() {
		return &models.MatchResult{
			Matched:   false,
			Method:    models.MatchMethodNone,
			Reasoning: "no name or tax id extracted",
		}
	}

	// Tier 1: exact tax id
	if result := r.matchByTaxID(ctx, kind, party); result != nil {
		return result
	}

	// Tier 2: fuzzy name
	if result := r.matchByName(ctx, kind, party); result != nil {
		return result
	}

	// Tier 3: auto-create
	if result := r.autoCreate(ctx, kind, party); result != nil {
		return result
	}

	return &models.MatchResult{
		Matched:   false,
		Method:    models.MatchMethodNone,
		Reasoning: "no match found and insufficient data to create entity",
	}
}

func (r *Resolver) matchByTaxID(ctx context.Context, kind models.EntityKind, party models.ExtractedParty) *models.MatchResult {
	taxID := normalize.TaxID(party.TaxID)
	if taxID == "" {
		return nil
	}

	entity, err := r.store.FindByTaxID(ctx, kind, taxID)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"kind":   kind,
			"tax_id": taxID,
		}).Error("failed to look up entity by tax id")
		return &models.MatchResult{
			Matched:   false,
			Method:    models.MatchMethodNone,
			Reasoning: fmt.Sprintf("entity lookup failed: %v", err),
		}
	}
	if entity == nil {
		return nil
	}

	r.backfillContact(ctx, entity, party)

	return &models.MatchResult{
		Matched:    true,
		EntityID:   &entity.ID,
		Confidence: 100,
		Method:     models.MatchMethodExactTaxID,
		Reasoning:  fmt.Sprintf("tax id %s matches %s", taxID, entity.LegalName),
	}
}

func (r *Resolver) matchByName(ctx context.Context, kind models.EntityKind, party models.ExtractedParty) *models.MatchResult {
	name := normalize.Name(party.Name)
	if name == "" {
		return nil
	}

	candidates, err := r.store.ListActive(ctx, kind, r.config.CandidateScanLimit)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"kind": kind,
		}).Error("failed to list candidate entities")
		return &models.MatchResult{
			Matched:   false,
			Method:    models.MatchMethodNone,
			Reasoning: fmt.Sprintf("candidate scan failed: %v", err),
		}
	}

	var best *models.Entity
	var bestName string
	bestScore := 0
	// candidates arrive newest first; strict > keeps the most recent on ties
	for i := range candidates {
		for _, candidate := range candidates[i].NameCandidates() {
			score := similarity.Ratio(name, normalize.Name(candidate))
			if score > bestScore {
				best = &candidates[i]
				bestName = candidate
				bestScore = score
			}
		}
	}

	if best == nil || bestScore < r.config.FuzzyMatchThreshold {
		return nil
	}

	r.backfillContact(ctx, best, party)

	return &models.MatchResult{
		Matched:    true,
		EntityID:   &best.ID,
		Confidence: bestScore,
		Method:     models.MatchMethodFuzzyName,
		Reasoning:  fmt.Sprintf("name %q matches %q at %d", party.Name, bestName, bestScore),
	}
}

func (r *Resolver) autoCreate(ctx context.Context, kind models.EntityKind, party models.ExtractedParty) *models.MatchResult {
	// creation requires both a name and a tax id; anything less would
	// pollute the entity table with unverifiable records
	if party.Name == "" || normalize.TaxID(party.TaxID) == "" {
		return nil
	}

	req := &models.CreateEntityRequest{
		Kind:        kind,
		LegalName:   party.Name,
		TaxID:       optional(normalize.TaxID(party.TaxID)),
		Address:     optional(party.Address),
		City:        optional(party.City),
		PostalCode:  optional(party.PostalCode),
		Email:       optional(normalize.Email(party.Email)),
		Phone:       optional(party.Phone),
		AutoCreated: true,
	}

	entity, err := r.store.Create(ctx, req)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"kind": kind,
			"name": party.Name,
		}).Error("failed to auto-create entity")
		return &models.MatchResult{
			Matched:   false,
			Method:    models.MatchMethodNone,
			Reasoning: fmt.Sprintf("entity creation failed: %v", err),
		}
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"entity_id": entity.ID,
		"kind":      kind,
		"name":      entity.LegalName,
	}).Info("auto-created entity")

	return &models.MatchResult{
		Matched:    true,
		EntityID:   &entity.ID,
		Confidence: r.config.AutoCreateConfidence,
		Method:     models.MatchMethodAutoCreated,
		CreatedNew: true,
		Reasoning:  fmt.Sprintf("created new %s %q", kind, party.Name),
	}
}

// backfillContact writes extracted contact fields onto the matched entity
// where the entity's own columns are still empty. Failures are logged and
// swallowed; the match itself stands.
func (r *Resolver) backfillContact(ctx context.Context, entity *models.Entity, party models.ExtractedParty) {
	update := models.ContactUpdate{}
	if party.Address != "" && isBlank(entity.Address) {
		update.Address = &party.Address
	}
	if party.City != "" && isBlank(entity.City) {
		update.City = &party.City
	}
	if party.PostalCode != "" && isBlank(entity.PostalCode) {
		update.PostalCode = &party.PostalCode
	}
	if party.Email != "" && isBlank(entity.Email) {
		email := normalize.Email(party.Email)
		update.Email = &email
	}
	if party.Phone != "" && isBlank(entity.Phone) {
		update.Phone = &party.Phone
	}
	if update.IsEmpty() {
		return
	}

	if err := r.store.FillMissingContact(ctx, entity.ID, update); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"entity_id": entity.ID,
		}).Warn("failed to backfill entity contact fields")
	}
}

func isBlank(s *string) bool {
	return s == nil || *s == ""
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
