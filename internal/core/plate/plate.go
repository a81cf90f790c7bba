// Package plate classifies ingredients into Harvard Plate groups and
// reports which required groups a request is missing.
package plate

import (
	"strings"

	"plate-recipe-api/internal/core/canon"
)

// Group is one taxonomy category of the plate.
type Group string

const (
	GroupVeggiesFruits Group = "veggies_fruits"
	GroupWholeGrains   Group = "whole_grains"
	GroupProteins      Group = "proteins"
	GroupFats          Group = "fats"
	GroupDairyOptional Group = "dairy(optional)"
	GroupOthers        Group = "others"
)

// GroupOrder is the fixed declaration order used for classification and
// for rendering. Classification tests groups in this order and the first
// keyword hit wins.
var GroupOrder = []Group{
	GroupVeggiesFruits,
	GroupWholeGrains,
	GroupProteins,
	GroupFats,
	GroupDairyOptional,
	GroupOthers,
}

// RequiredGroups are the groups a balanced plate must cover.
var RequiredGroups = []Group{
	GroupVeggiesFruits,
	GroupProteins,
	GroupWholeGrains,
}

// groupKeywords maps each group to canonical substrings. Keywords are
// word stems, so "помидор" also covers "помидоры" and "помидорами".
var groupKeywords = map[Group][]string{
	GroupVeggiesFruits: {
		"брокколи", "помидор", "томат", "огурец", "шпинат", "салат",
		"морковь", "перец", "лук", "яблок", "банан", "груш", "ягод",
		"капуст", "кабач",
	},
	GroupWholeGrains: {
		"гречк", "рис", "овсян", "киноа", "булгур", "перлов",
		"цельнозерн", "макарон", "хлеб", "паста",
	},
	GroupProteins: {
		"куриц", "курин", "индейк", "говядин", "рыб", "лосос", "тунец",
		"яйц", "нут", "фасол", "чечевиц", "тофу", "кревет",
	},
	GroupFats: {
		"авокадо", "масл", "оливк", "орех", "миндал", "семечк", "кунжут",
		"арахис",
	},
	GroupDairyOptional: {
		"йогурт", "кефир", "молок", "сыр", "творог", "ряженк",
	},
}

// recommendationPool holds curated suggestions per group, best first.
var recommendationPool = map[Group][]string{
	GroupVeggiesFruits: {"брокколи", "шпинат", "помидоры"},
	GroupWholeGrains:   {"гречка", "киноа", "овсянка"},
	GroupProteins:      {"куриная грудка", "яйца", "нут"},
	GroupFats:          {"авокадо", "оливковое масло", "грецкие орехи"},
	GroupDairyOptional: {"греческий йогурт", "творог", "кефир"},
}

// recommendationLimit bounds the suggestion list of one analysis.
const recommendationLimit = 3

// Analysis is the result of classifying one ingredient list.
type Analysis struct {
	CoveredGroups         []Group            `json:"covered_groups"`
	MissingGroups         []Group            `json:"missing_groups"`
	Recommendations       []string           `json:"recommendations"`
	ClassifiedIngredients map[Group][]string `json:"classified_ingredients"`
}

// Analyzer classifies raw ingredient strings. It is stateless and safe
// for concurrent use.
type Analyzer struct{}

// NewAnalyzer creates a plate analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Classify assigns every ingredient to exactly one group. An ingredient
// that matches no keyword list lands in GroupOthers. Raw strings are kept
// as the user wrote them.
func (a *Analyzer) Classify(ingredients []string) map[Group][]string {
	classified := make(map[Group][]string, len(GroupOrder))
	for _, group := range GroupOrder {
		classified[group] = []string{}
	}

	for _, ingredient := range ingredients {
		normalized := canon.Term(ingredient)
		target := GroupOthers

	groups:
		for _, group := range GroupOrder {
			for _, keyword := range groupKeywords[group] {
				if strings.Contains(normalized, keyword) {
					target = group
					break groups
				}
			}
		}

		classified[target] = append(classified[target], ingredient)
	}

	return classified
}

// Analyze runs the full pipeline: classification, missing required
// groups, bounded recommendations. Total on any input; an empty list
// yields all required groups missing.
func (a *Analyzer) Analyze(ingredients []string) Analysis {
	classified := a.Classify(ingredients)

	covered := make([]Group, 0, len(GroupOrder))
	for _, group := range GroupOrder {
		if len(classified[group]) > 0 {
			covered = append(covered, group)
		}
	}

	missing := make([]Group, 0, len(RequiredGroups))
	for _, group := range RequiredGroups {
		if len(classified[group]) == 0 {
			missing = append(missing, group)
		}
	}

	return Analysis{
		CoveredGroups:         covered,
		MissingGroups:         missing,
		Recommendations:       buildRecommendations(missing, recommendationLimit),
		ClassifiedIngredients: classified,
	}
}

// buildRecommendations picks one suggestion per missing group, skipping
// duplicates, until limit is reached.
func buildRecommendations(missing []Group, limit int) []string {
	recommendations := make([]string, 0, limit)
	for _, group := range missing {
		for _, candidate := range recommendationPool[group] {
			if !containsString(recommendations, candidate) {
				recommendations = append(recommendations, candidate)
				break
			}
		}
		if len(recommendations) >= limit {
			break
		}
	}
	return recommendations
}

func containsString(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
