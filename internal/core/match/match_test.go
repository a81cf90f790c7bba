package match

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidate(id string, ingredients []string, rating int, age time.Duration) Candidate {
	return Candidate{
		ID:                id,
		SourceIngredients: ingredients,
		Rating:            rating,
		CreatedAt:         time.Now().Add(-age),
	}
}

func TestFindBestExactIgnoresOrderAndCase(t *testing.T) {
	candidates := []Candidate{
		candidate("a", []string{"Рис", "КУРИЦА", "брокколи"}, 0, time.Hour),
	}

	result := FindBest([]string{"брокколи", "курица", "рис"}, candidates, Options{})

	require.NotNil(t, result)
	assert.Equal(t, "a", result.Candidate.ID)
	assert.Equal(t, KindExact, result.Kind)
	assert.Equal(t, 1.0, result.Similarity)
}

func TestFindBestSimilar(t *testing.T) {
	// 4 shared terms out of 5 in the union: Jaccard 0.8, intersection 4.
	candidates := []Candidate{
		candidate("a", []string{"курица", "рис", "брокколи", "морковь", "лук"}, 0, time.Hour),
	}

	result := FindBest([]string{"курица", "рис", "брокколи", "морковь"}, candidates, Options{})

	require.NotNil(t, result)
	assert.Equal(t, KindSimilar, result.Kind)
	assert.InDelta(t, 0.8, result.Similarity, 1e-9)
}

func TestFindBestRejectsBelowThresholds(t *testing.T) {
	tests := []struct {
		name      string
		request   []string
		candidate []string
	}{
		{
			name:      "similarity below jaccard threshold",
			request:   []string{"курица", "рис", "брокколи", "морковь"},
			candidate: []string{"курица", "рис", "брокколи", "сыр", "лук"},
		},
		{
			name:      "small overlap below intersection floor",
			request:   []string{"курица", "рис"},
			candidate: []string{"курица", "рис", "лук"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FindBest(tt.request, []Candidate{candidate("a", tt.candidate, 0, time.Hour)}, Options{})
			assert.Nil(t, result)
		})
	}
}

func TestFindBestExactDominatesSimilar(t *testing.T) {
	request := []string{"курица", "рис", "брокколи", "морковь"}
	candidates := []Candidate{
		// Better rated and newer, but only similar.
		candidate("similar", []string{"курица", "рис", "брокколи", "морковь", "лук"}, 10, time.Minute),
		candidate("exact", []string{"курица", "рис", "брокколи", "морковь"}, -5, 24*time.Hour),
	}

	result := FindBest(request, candidates, Options{})

	require.NotNil(t, result)
	assert.Equal(t, "exact", result.Candidate.ID)
	assert.Equal(t, KindExact, result.Kind)
}

func TestFindBestRankingWithinBucket(t *testing.T) {
	request := []string{"курица", "рис", "брокколи", "морковь"}

	t.Run("higher rating wins at equal similarity", func(t *testing.T) {
		candidates := []Candidate{
			candidate("low", request, 1, time.Minute),
			candidate("high", request, 5, 24*time.Hour),
		}
		result := FindBest(request, candidates, Options{})
		require.NotNil(t, result)
		assert.Equal(t, "high", result.Candidate.ID)
	})

	t.Run("newer wins at equal similarity and rating", func(t *testing.T) {
		candidates := []Candidate{
			candidate("old", request, 3, 24*time.Hour),
			candidate("new", request, 3, time.Minute),
		}
		result := FindBest(request, candidates, Options{})
		require.NotNil(t, result)
		assert.Equal(t, "new", result.Candidate.ID)
	})
}

func TestFindBestEdgeCases(t *testing.T) {
	t.Run("empty request never matches", func(t *testing.T) {
		result := FindBest(nil, []Candidate{candidate("a", []string{"рис"}, 0, time.Hour)}, Options{})
		assert.Nil(t, result)
	})

	t.Run("candidate with no ingredients is skipped", func(t *testing.T) {
		result := FindBest([]string{"рис", "курица", "лук"}, []Candidate{candidate("a", nil, 0, time.Hour)}, Options{})
		assert.Nil(t, result)
	})

	t.Run("payload ingredients back up a missing source list", func(t *testing.T) {
		c := Candidate{
			ID:                 "a",
			PayloadIngredients: []string{"рис", "курица", "лук"},
			CreatedAt:          time.Now(),
		}
		result := FindBest([]string{"рис", "курица", "лук"}, []Candidate{c}, Options{})
		require.NotNil(t, result)
		assert.Equal(t, KindExact, result.Kind)
	})
}
