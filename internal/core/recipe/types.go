// Package recipe holds the recipe schema, the store and generator
// contracts, and the orchestration service that decides between reusing
// a prior recipe and generating a new one.
package recipe

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// RequestType tells how a recipe was requested.
type RequestType string

const (
	RequestIngredients RequestType = "ingredients"
	RequestReadyDish   RequestType = "ready_dish"
)

// Record is one persisted recipe.
type Record struct {
	ID                      string      `json:"id"`
	OwnerID                 string      `json:"owner_id"`
	RequestType             RequestType `json:"request_type"`
	SourceIngredients       []string    `json:"source_ingredients"`
	SupplementedIngredients []string    `json:"supplemented_ingredients"`
	Payload                 Recipe      `json:"payload"`
	CreatedAt               time.Time   `json:"created_at"`
}

// RatedRecord pairs a record with its current vote sum.
type RatedRecord struct {
	Record Record `json:"record"`
	Rating int    `json:"rating"`
}

// Store is the persistence collaborator. The service reads bounded
// recency windows out of it and writes new recipes into it; it never
// paginates or re-queries beyond the window it asked for.
type Store interface {
	SaveRecipe(ctx context.Context, record Record) error
	GetRecipe(ctx context.Context, id string) (*RatedRecord, error)
	RecentByOwner(ctx context.Context, ownerID string, limit int) ([]RatedRecord, error)
	RecentGlobal(ctx context.Context, excludeOwnerID string, limit int) ([]RatedRecord, error)
	TopRated(ctx context.Context, limit int) ([]RatedRecord, error)
	SetVote(ctx context.Context, userID, recipeID string, vote int) (int, error)
	AddFavorite(ctx context.Context, userID, recipeID string) error
	RemoveFavorite(ctx context.Context, userID, recipeID string) (bool, error)
	IsFavorite(ctx context.Context, userID, recipeID string) (bool, error)
	GetSettings(ctx context.Context, userID string) (*Settings, error)
	SaveSettings(ctx context.Context, userID string, settings Settings) error
}

// Generator is the generation backend collaborator.
type Generator interface {
	GenerateFromIngredients(ctx context.Context, ingredients, missingGroups []string, preferences string) (*Recipe, error)
	GenerateReadyDish(ctx context.Context, dishRequest, preferences string) (*Recipe, error)
}

// Settings are per-user generation preferences, interpolated into the
// prompt as free text.
type Settings struct {
	Goal                string   `json:"goal,omitempty"`
	Allergies           []string `json:"allergies,omitempty"`
	ExcludedProducts    []string `json:"excluded_products,omitempty"`
	PreferredCuisine    string   `json:"preferred_cuisine,omitempty"`
	PreferredComplexity string   `json:"preferred_complexity,omitempty"`
	TimeLimitMinutes    int      `json:"time_limit_minutes,omitempty"`
}

// PromptText renders the preferences block of the user prompt.
func (s Settings) PromptText() string {
	var parts []string
	if s.Goal != "" {
		parts = append(parts, "цель: "+s.Goal)
	}
	if len(s.Allergies) > 0 {
		parts = append(parts, "аллергии: "+strings.Join(s.Allergies, ", "))
	}
	if len(s.ExcludedProducts) > 0 {
		parts = append(parts, "исключить продукты: "+strings.Join(s.ExcludedProducts, ", "))
	}
	if s.PreferredCuisine != "" {
		parts = append(parts, "кухня: "+s.PreferredCuisine)
	}
	if s.PreferredComplexity != "" {
		parts = append(parts, "сложность: "+s.PreferredComplexity)
	}
	if s.TimeLimitMinutes > 0 {
		parts = append(parts, fmt.Sprintf("лимит времени: %d мин", s.TimeLimitMinutes))
	}
	if len(parts) == 0 {
		return "нет"
	}
	return strings.Join(parts, "; ")
}
