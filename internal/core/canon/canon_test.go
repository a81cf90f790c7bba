package canon

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTerm(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercases latin", "Chicken Breast", "chicken breast"},
		{"lowercases cyrillic", "КУРИЦА", "курица"},
		{"folds yo", "свёкла", "свекла"},
		{"folds capital yo", "Ёлка", "елка"},
		{"strips punctuation", "курица, (филе)!", "курица филе"},
		{"collapses whitespace", "  рис \t бурый  ", "рис бурый"},
		{"keeps digits", "2 яйца", "2 яйца"},
		{"empty input", "", ""},
		{"only punctuation", "!!!", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Term(tt.input))
		})
	}
}

func TestTermEquivalence(t *testing.T) {
	// Case and yo/ye variants of the same word canonicalize identically.
	assert.Equal(t, Term("Свёкла"), Term("свекла"))
	assert.Equal(t, Term("КУРИЦА"), Term("курица"))
}

func TestSet(t *testing.T) {
	set := Set([]string{"Курица", "курица!", "Рис", "", "  "})

	assert.Len(t, set, 2)
	assert.Contains(t, set, "курица")
	assert.Contains(t, set, "рис")
}

func TestJoinTerms(t *testing.T) {
	assert.Equal(t, "курица рис", JoinTerms([]string{"Курица,", "", "РИС"}))
	assert.Equal(t, "", JoinTerms(nil))
}
