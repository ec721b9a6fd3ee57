package index

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"legal-rag/internal/db"
)

func TestHitsToNeighborsSquaresDistance(t *testing.T) {
	got := hitsToNeighbors([]db.Hit{
		{ID: 4, Distance: 0},
		{ID: 1, Distance: 0.5},
		{ID: 3, Distance: 2},
	})

	assert.Equal(t, []Neighbor{
		{Index: 4, Distance: 0},
		{Index: 1, Distance: 0.25},
		{Index: 3, Distance: 4},
	}, got)
	assert.Empty(t, hitsToNeighbors(nil))
}
