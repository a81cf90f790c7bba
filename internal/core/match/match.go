// Package match implements the reuse/dedup decision: given a request's
// ingredient set and a recency window of prior recipes, find one that
// can be served instead of calling the generation backend.
package match

import (
	"sort"
	"time"

	"plate-recipe-api/internal/core/canon"
)

// Kind tells how a candidate matched.
type Kind string

const (
	KindExact   Kind = "exact"
	KindSimilar Kind = "similar"
)

// Default thresholds. Similarity alone is not enough to accept a reuse:
// on very small sets a single shared ingredient can push Jaccard over
// the bar, so a minimum intersection size is required as well.
const (
	DefaultMinJaccard      = 0.8
	DefaultMinIntersection = 3
)

// Candidate is a prior recipe as seen by the matcher. The matcher never
// mutates it; it only derives an ingredient set, preferring the explicit
// source list and falling back to the ingredients embedded in the
// generated payload.
type Candidate struct {
	ID                 string
	OwnerID            string
	SourceIngredients  []string
	PayloadIngredients []string
	Rating             int
	CreatedAt          time.Time
}

// Result is one reuse decision.
type Result struct {
	Candidate  Candidate
	Similarity float64
	Kind       Kind
}

// Options tune the similar-bucket thresholds. Zero values fall back to
// the defaults.
type Options struct {
	MinJaccard      float64
	MinIntersection int
}

func (o Options) withDefaults() Options {
	if o.MinJaccard <= 0 {
		o.MinJaccard = DefaultMinJaccard
	}
	if o.MinIntersection <= 0 {
		o.MinIntersection = DefaultMinIntersection
	}
	return o
}

func ingredientsOf(c Candidate) []string {
	if len(c.SourceIngredients) > 0 {
		return c.SourceIngredients
	}
	return c.PayloadIngredients
}

func jaccard(left, right map[string]struct{}) (similarity float64, intersection int) {
	union := len(right)
	for term := range left {
		if _, ok := right[term]; ok {
			intersection++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0, 0
	}
	return float64(intersection) / float64(union), intersection
}

func sameSet(left, right map[string]struct{}) bool {
	if len(left) != len(right) {
		return false
	}
	for term := range left {
		if _, ok := right[term]; !ok {
			return false
		}
	}
	return true
}

// FindBest returns the best reusable candidate, or nil when nothing in
// the window qualifies. Exact matches (canonical set equality) strictly
// dominate similar ones regardless of rating or recency; the similar
// bucket is ranked by similarity, then rating, then creation time.
//
// An empty request set never matches, and candidates with an empty
// derived set are skipped.
func FindBest(requestIngredients []string, candidates []Candidate, opts Options) *Result {
	opts = opts.withDefaults()

	requestSet := canon.Set(requestIngredients)
	if len(requestSet) == 0 {
		return nil
	}

	var exact, similar []Result
	for _, candidate := range candidates {
		candidateSet := canon.Set(ingredientsOf(candidate))
		if len(candidateSet) == 0 {
			continue
		}

		if sameSet(requestSet, candidateSet) {
			exact = append(exact, Result{Candidate: candidate, Similarity: 1.0, Kind: KindExact})
			continue
		}

		similarity, intersection := jaccard(requestSet, candidateSet)
		if similarity >= opts.MinJaccard && intersection >= opts.MinIntersection {
			similar = append(similar, Result{Candidate: candidate, Similarity: similarity, Kind: KindSimilar})
		}
	}

	ranked := exact
	if len(ranked) == 0 {
		ranked = similar
	}
	if len(ranked) == 0 {
		return nil
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Similarity != ranked[j].Similarity {
			return ranked[i].Similarity > ranked[j].Similarity
		}
		if ranked[i].Candidate.Rating != ranked[j].Candidate.Rating {
			return ranked[i].Candidate.Rating > ranked[j].Candidate.Rating
		}
		return ranked[i].Candidate.CreatedAt.After(ranked[j].Candidate.CreatedAt)
	})

	best := ranked[0]
	return &best
}
