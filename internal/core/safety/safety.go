// Package safety screens request and recipe text against a categorized
// lexicon of prohibited terms. The filter is deliberately literal: a
// canonicalized substring match, checked in fixed category order, with
// no scoring. That trades recall of obfuscated requests for zero false
// negatives on the lexicon itself and full determinism.
package safety

import (
	"fmt"
	"strings"

	"plate-recipe-api/internal/core/canon"
)

// Category is one class of prohibited content.
type Category string

const (
	CategoryHumanTissue      Category = "cannibalism_human_tissue"
	CategoryDangerousNonFood Category = "dangerous_non_food"
	CategoryIllegalDrugs     Category = "illegal_drugs"
)

// categoryOrder fixes the resolution order: the first category with any
// matching term wins and short-circuits the rest.
var categoryOrder = []Category{
	CategoryHumanTissue,
	CategoryDangerousNonFood,
	CategoryIllegalDrugs,
}

var prohibitedTerms = map[Category][]string{
	CategoryHumanTissue: {
		"человечина", "человеческое мясо", "мясо человека",
		"человеческая кровь", "каннибал", "каннибализм", "людоед",
		"human meat", "human flesh", "cannibal",
	},
	CategoryDangerousNonFood: {
		"ртуть", "мышьяк", "цианид", "антифриз", "бензин", "керосин",
		"ацетон", "отбеливатель", "хлорка", "пластик", "стекло",
		"battery acid", "bleach", "gasoline", "mercury", "arsenic",
		"cyanide",
	},
	CategoryIllegalDrugs: {
		"кокаин", "героин", "метамфетамин", "амфетамин", "лсд", "мдма",
		"спайс", "наркотик", "cocaine", "heroin", "methamphetamine",
		"amphetamine", "lsd", "mdma",
	},
}

var categoryLabels = map[Category]string{
	CategoryHumanTissue:      "человеческие ткани / каннибализм",
	CategoryDangerousNonFood: "опасные или несъедобные вещества",
	CategoryIllegalDrugs:     "нелегальные или наркотические вещества",
}

var safeAlternatives = map[Category][]string{
	CategoryHumanTissue:      {"куриная грудка", "тофу", "нут", "шампиньоны"},
	CategoryDangerousNonFood: {"цветная капуста", "нут", "гречка", "оливковое масло"},
	CategoryIllegalDrugs:     {"какао", "ваниль", "мята", "лимонная цедра"},
}

// Result of one classification pass.
type Result struct {
	IsSafe       bool     `json:"is_safe"`
	Category     Category `json:"category,omitempty"`
	MatchedTerms []string `json:"matched_terms,omitempty"`
}

// Filter classifies free text against the lexicon. Stateless, safe for
// concurrent use.
type Filter struct{}

// NewFilter creates a safety filter.
func NewFilter() *Filter {
	return &Filter{}
}

// classify scans canonicalized text for prohibited terms. All matching
// terms of the winning category are collected in lexicon declaration
// order, deduplicated on first occurrence.
func (f *Filter) classify(text string) Result {
	if text == "" {
		return Result{IsSafe: true}
	}

	for _, category := range categoryOrder {
		var matched []string
		for _, term := range prohibitedTerms[category] {
			if strings.Contains(text, canon.Term(term)) && !containsString(matched, term) {
				matched = append(matched, term)
			}
		}
		if len(matched) > 0 {
			return Result{IsSafe: false, Category: category, MatchedTerms: matched}
		}
	}

	return Result{IsSafe: true}
}

// CheckInput gates a user's raw ingredient list or dish request before
// any generation is attempted.
func (f *Filter) CheckInput(items []string) Result {
	return f.classify(canon.JoinTerms(items))
}

// CheckOutput re-validates a generated recipe: title, ingredients and
// steps are scanned as one blob.
func (f *Filter) CheckOutput(title string, ingredients, steps []string) Result {
	values := make([]string, 0, 1+len(ingredients)+len(steps))
	values = append(values, title)
	values = append(values, ingredients...)
	values = append(values, steps...)
	return f.classify(canon.JoinTerms(values))
}

// BlockMessage renders the user-facing explanation for an unsafe result:
// category label, matched terms and safe substitutes.
func BlockMessage(result Result) string {
	if result.IsSafe {
		return "Запрос безопасен."
	}

	label, ok := categoryLabels[result.Category]
	if !ok {
		label = "небезопасные ингредиенты"
	}
	alternatives, ok := safeAlternatives[result.Category]
	if !ok {
		alternatives = []string{"куриная грудка", "тофу", "овощи"}
	}
	matched := "не указано"
	if len(result.MatchedTerms) > 0 {
		matched = strings.Join(result.MatchedTerms, ", ")
	}

	return fmt.Sprintf(
		"Не могу помочь с этим запросом, потому что в нем есть запрещенные или опасные ингредиенты.\n"+
			"Категория: %s.\n"+
			"Что обнаружено: %s.\n"+
			"Попробуйте безопасные альтернативы: %s.",
		label, matched, strings.Join(alternatives, ", "))
}

func containsString(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
