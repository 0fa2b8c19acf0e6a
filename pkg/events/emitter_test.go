package events

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/models"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func strPtr(s string) *string {
	return &s
}

func TestEmitEntityResultsSkipsUnresolvedParties(t *testing.T) {
	// a nil producer would panic on publish, so reaching it means the
	// unresolved parties were not filtered out
	e := NewEmitter(nil, testLogger())

	err := e.EmitEntityResults(context.Background(), "doc-1", []models.ResolvedParty{
		{Kind: models.EntityKindSupplier, Result: nil},
		{Kind: models.EntityKindCustomer, Result: &models.MatchResult{Matched: false}},
	})
	require.NoError(t, err)
}

func TestEntityEventBuildsMatchedAndCreated(t *testing.T) {
	e := NewEmitter(nil, testLogger())
	ctx := context.Background()

	matched := e.entityEvent(ctx, "doc-1", models.EntityKindSupplier, &models.MatchResult{
		Matched:    true,
		EntityID:   strPtr("entity-1"),
		Confidence: 92,
		Method:     models.MatchMethodFuzzyName,
		Reasoning:  "Fuzzy name match (92% similarity)",
	})
	assert.Equal(t, "entity.matched", matched.EventType)
	assert.Equal(t, "entity-1", matched.EntityID)
	assert.Equal(t, "doc-1", matched.DocumentID)
	assert.Equal(t, string(models.EntityKindSupplier), matched.EntityKind)
	assert.Equal(t, 92, matched.Confidence)

	var data map[string]any
	require.NoError(t, json.Unmarshal(matched.Data, &data))
	assert.Equal(t, SchemaVersion, data["schema_version"])
	assert.Equal(t, "Fuzzy name match (92% similarity)", data["reasoning"])

	created := e.entityEvent(ctx, "doc-1", models.EntityKindCustomer, &models.MatchResult{
		Matched:    true,
		EntityID:   strPtr("entity-2"),
		Confidence: 90,
		Method:     models.MatchMethodAutoCreated,
		CreatedNew: true,
	})
	assert.Equal(t, "entity.created", created.EventType)
}
