package trace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHierarchy_FiltersToInvokes(t *testing.T) {
	records := Parse([]string{
		"GABC invoked contract C1 a()",
		" 10 USDC transferred from A to B",
		" Invoked contract C2 b()",
		" 5 USDC burned",
	})
	require.Len(t, records, 4)

	forest := Hierarchy(records)
	require.Len(t, forest, 2)
	assert.Equal(t, "call-0", forest[0].ID)
	assert.Equal(t, "call-2", forest[1].ID)
	for _, rec := range forest {
		assert.Equal(t, KindInvoke, rec.Kind)
	}
}

func TestHierarchy_Empty(t *testing.T) {
	assert.Nil(t, Hierarchy(nil))
	assert.Nil(t, Hierarchy([]InvocationRecord{}))

	// Only effects: no hierarchical data.
	records := Parse([]string{
		" 10 USDC minted",
	})
	assert.Nil(t, Hierarchy(records))
}

func TestLevelBuckets(t *testing.T) {
	forest := Hierarchy(Parse([]string{
		"GABC invoked contract C1 a()",
		" Invoked contract C2 b()",
		"GDEF invoked contract C3 c()",
		" Invoked contract C4 d()",
	}))
	require.Len(t, forest, 4)

	buckets := LevelBuckets(forest)
	require.Len(t, buckets, 2)
	assert.Len(t, buckets[0], 2)
	assert.Len(t, buckets[1], 2)

	// Original order preserved within a bucket.
	assert.Equal(t, "C1", buckets[0][0].ContractRef)
	assert.Equal(t, "C3", buckets[0][1].ContractRef)
	assert.Equal(t, "C2", buckets[1][0].ContractRef)
	assert.Equal(t, "C4", buckets[1][1].ContractRef)
}

func TestLevelBuckets_Empty(t *testing.T) {
	assert.Nil(t, LevelBuckets(nil))
}
