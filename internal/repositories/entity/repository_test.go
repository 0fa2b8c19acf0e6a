package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/models"
)

func TestFindByTaxIDQuery(t *testing.T) {
	query, args := findByTaxIDQuery("tenant-1", models.EntityKindSupplier, "b76365872")

	assert.Contains(t, query, "FROM entities")
	assert.Contains(t, query, "tenant_id = $1")
	assert.Contains(t, query, "tax_id = $3")
	assert.Contains(t, query, "deleted_at IS NULL")
	assert.Contains(t, query, "LIMIT $5")

	require.Len(t, args, 5)
	assert.Equal(t, "tenant-1", args[0])
	assert.Equal(t, models.EntityKindSupplier, args[1])
	assert.Equal(t, "b76365872", args[2])
	assert.Equal(t, models.EntityStatusActive, args[3])
	assert.Equal(t, 1, args[4])
}
