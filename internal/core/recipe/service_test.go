package recipe

import (
	"context"
	"errors"
	"testing"
	"time"

	"plate-recipe-api/internal/core/match"
	"plate-recipe-api/internal/core/plate"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRecipe(title string) Recipe {
	return Recipe{
		Title:       title,
		Ingredients: StringList{"курица", "рис", "брокколи"},
		Steps:       StringList{"Сварить рис", "Обжарить курицу"},
		TimeMinutes: 30,
		Servings:    2,
	}
}

func ratedRecord(id, ownerID string, ingredients []string, rating int, age time.Duration) RatedRecord {
	return RatedRecord{
		Record: Record{
			ID:                id,
			OwnerID:           ownerID,
			RequestType:       RequestIngredients,
			SourceIngredients: ingredients,
			Payload:           validRecipe("Рецепт " + id),
			CreatedAt:         time.Now().UTC().Add(-age),
		},
		Rating: rating,
	}
}

// fakeStore is an in-memory Store for service tests.
type fakeStore struct {
	userWindows   map[string][]RatedRecord
	globalWindow  []RatedRecord
	saved         []Record
	favorites     map[string]bool
	settings      map[string]*Settings
	votes         map[string]int
	windowErr     error
	userWindowHit int
	globalHit     int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		userWindows: map[string][]RatedRecord{},
		favorites:   map[string]bool{},
		settings:    map[string]*Settings{},
		votes:       map[string]int{},
	}
}

func (f *fakeStore) SaveRecipe(ctx context.Context, record Record) error {
	f.saved = append(f.saved, record)
	return nil
}

func (f *fakeStore) GetRecipe(ctx context.Context, id string) (*RatedRecord, error) {
	for _, window := range f.userWindows {
		for i := range window {
			if window[i].Record.ID == id {
				return &window[i], nil
			}
		}
	}
	return nil, nil
}

func (f *fakeStore) RecentByOwner(ctx context.Context, ownerID string, limit int) ([]RatedRecord, error) {
	f.userWindowHit++
	if f.windowErr != nil {
		return nil, f.windowErr
	}
	return f.userWindows[ownerID], nil
}

func (f *fakeStore) RecentGlobal(ctx context.Context, excludeOwnerID string, limit int) ([]RatedRecord, error) {
	f.globalHit++
	if f.windowErr != nil {
		return nil, f.windowErr
	}
	var window []RatedRecord
	for _, rated := range f.globalWindow {
		if rated.Record.OwnerID != excludeOwnerID {
			window = append(window, rated)
		}
	}
	return window, nil
}

func (f *fakeStore) TopRated(ctx context.Context, limit int) ([]RatedRecord, error) {
	return f.globalWindow, nil
}

func (f *fakeStore) SetVote(ctx context.Context, userID, recipeID string, vote int) (int, error) {
	previous := f.votes[userID+":"+recipeID]
	f.votes[userID+":"+recipeID] = vote
	return vote - previous, nil
}

func (f *fakeStore) AddFavorite(ctx context.Context, userID, recipeID string) error {
	f.favorites[userID+":"+recipeID] = true
	return nil
}

func (f *fakeStore) RemoveFavorite(ctx context.Context, userID, recipeID string) (bool, error) {
	existed := f.favorites[userID+":"+recipeID]
	delete(f.favorites, userID+":"+recipeID)
	return existed, nil
}

func (f *fakeStore) IsFavorite(ctx context.Context, userID, recipeID string) (bool, error) {
	return f.favorites[userID+":"+recipeID], nil
}

func (f *fakeStore) GetSettings(ctx context.Context, userID string) (*Settings, error) {
	return f.settings[userID], nil
}

func (f *fakeStore) SaveSettings(ctx context.Context, userID string, settings Settings) error {
	f.settings[userID] = &settings
	return nil
}

// fakeGenerator counts calls and returns a fixed recipe.
type fakeGenerator struct {
	calls           int
	lastPreferences string
	lastMissing     []string
	recipe          Recipe
	err             error
}

func (g *fakeGenerator) GenerateFromIngredients(ctx context.Context, ingredients, missingGroups []string, preferences string) (*Recipe, error) {
	g.calls++
	g.lastMissing = missingGroups
	g.lastPreferences = preferences
	if g.err != nil {
		return nil, g.err
	}
	r := g.recipe
	return &r, nil
}

func (g *fakeGenerator) GenerateReadyDish(ctx context.Context, dishRequest, preferences string) (*Recipe, error) {
	g.calls++
	g.lastPreferences = preferences
	if g.err != nil {
		return nil, g.err
	}
	r := g.recipe
	return &r, nil
}

func newTestService(store *fakeStore, generator *fakeGenerator) *Service {
	return NewService(store, generator, ServiceOptions{})
}

func TestFromIngredientsBlockedInput(t *testing.T) {
	store := newFakeStore()
	generator := &fakeGenerator{recipe: validRecipe("Плов")}
	svc := newTestService(store, generator)

	_, err := svc.FromIngredients(context.Background(), "u1", []string{"рис", "человечина"}, "")

	var blocked *BlockedError
	require.ErrorAs(t, err, &blocked)
	assert.Contains(t, blocked.Message(), "Не могу помочь с этим запросом")
	assert.Zero(t, generator.calls)
	assert.Empty(t, store.saved)
}

func TestFromIngredientsGeneratesOnMiss(t *testing.T) {
	store := newFakeStore()
	generator := &fakeGenerator{recipe: validRecipe("Плов")}
	svc := newTestService(store, generator)

	result, err := svc.FromIngredients(context.Background(), "u1", []string{"рис", "морковь"}, "")

	require.NoError(t, err)
	assert.Equal(t, SourceLLM, result.Source)
	assert.Equal(t, "Плов", result.Recipe.Title)
	assert.NotEmpty(t, result.RecipeID)
	assert.Equal(t, 1, generator.calls)

	require.Len(t, store.saved, 1)
	saved := store.saved[0]
	assert.Equal(t, "u1", saved.OwnerID)
	assert.Equal(t, RequestIngredients, saved.RequestType)
	assert.Equal(t, []string{"рис", "морковь"}, saved.SourceIngredients)
	assert.False(t, saved.CreatedAt.IsZero())

	// Analysis rides along: proteins are missing from this request.
	require.NotNil(t, result.Analysis)
	assert.Contains(t, result.Analysis.MissingGroups, plate.GroupProteins)
	assert.Contains(t, generator.lastMissing, string(plate.GroupProteins))
}

func TestFromIngredientsReusesUserMatch(t *testing.T) {
	ingredients := []string{"курица", "рис", "брокколи"}

	store := newFakeStore()
	store.userWindows["u1"] = []RatedRecord{
		ratedRecord("own", "u1", ingredients, 2, time.Hour),
	}
	store.favorites["u1:own"] = true
	generator := &fakeGenerator{recipe: validRecipe("Новый")}
	svc := newTestService(store, generator)

	result, err := svc.FromIngredients(context.Background(), "u1", []string{"Рис", "БРОККОЛИ", "курица"}, "")

	require.NoError(t, err)
	assert.Equal(t, SourceReused, result.Source)
	assert.Equal(t, ScopeUser, result.MatchScope)
	assert.Equal(t, match.KindExact, result.MatchKind)
	assert.Equal(t, "own", result.RecipeID)
	assert.Equal(t, 2, result.Rating)
	assert.True(t, result.IsFavorite)
	assert.NotNil(t, result.Analysis)

	// A reuse hit never calls the generator and never writes.
	assert.Zero(t, generator.calls)
	assert.Empty(t, store.saved)
	assert.Zero(t, store.globalHit)
}

func TestFromIngredientsUserWindowShadowsGlobal(t *testing.T) {
	ingredients := []string{"курица", "рис", "брокколи", "лук"}

	store := newFakeStore()
	// User window holds a similar (not exact) match, the global window
	// an exact one. The user phase still wins because the global window
	// is consulted only on a user-phase miss.
	store.userWindows["u1"] = []RatedRecord{
		ratedRecord("user-similar", "u1", []string{"курица", "рис", "брокколи", "лук", "морковь"}, 0, time.Hour),
	}
	store.globalWindow = []RatedRecord{
		ratedRecord("global-exact", "u2", ingredients, 50, time.Minute),
	}
	generator := &fakeGenerator{recipe: validRecipe("Новый")}
	svc := newTestService(store, generator)

	result, err := svc.FromIngredients(context.Background(), "u1", ingredients, "")

	require.NoError(t, err)
	assert.Equal(t, "user-similar", result.RecipeID)
	assert.Equal(t, ScopeUser, result.MatchScope)
	assert.Equal(t, match.KindSimilar, result.MatchKind)
	assert.Zero(t, store.globalHit)
}

func TestFromIngredientsFallsBackToGlobalWindow(t *testing.T) {
	ingredients := []string{"курица", "рис", "брокколи"}

	store := newFakeStore()
	store.globalWindow = []RatedRecord{
		ratedRecord("mine", "u1", ingredients, 10, time.Minute),
		ratedRecord("other", "u2", ingredients, 3, time.Hour),
	}
	generator := &fakeGenerator{recipe: validRecipe("Новый")}
	svc := newTestService(store, generator)

	result, err := svc.FromIngredients(context.Background(), "u1", ingredients, "")

	require.NoError(t, err)
	assert.Equal(t, SourceReused, result.Source)
	assert.Equal(t, ScopeGlobal, result.MatchScope)
	// The requester's own records are excluded from the global window.
	assert.Equal(t, "other", result.RecipeID)
}

func TestFromIngredientsSkipsInvalidStoredPayload(t *testing.T) {
	ingredients := []string{"курица", "рис", "брокколи"}

	corrupt := ratedRecord("bad", "u1", ingredients, 0, time.Hour)
	corrupt.Record.Payload.Steps = nil

	store := newFakeStore()
	store.userWindows["u1"] = []RatedRecord{corrupt}
	generator := &fakeGenerator{recipe: validRecipe("Новый")}
	svc := newTestService(store, generator)

	result, err := svc.FromIngredients(context.Background(), "u1", ingredients, "")

	require.NoError(t, err)
	assert.Equal(t, SourceLLM, result.Source)
	assert.Equal(t, 1, generator.calls)
}

func TestFromIngredientsStoreFailureFallsThrough(t *testing.T) {
	store := newFakeStore()
	store.windowErr = errors.New("store down")
	generator := &fakeGenerator{recipe: validRecipe("Плов")}
	svc := newTestService(store, generator)

	result, err := svc.FromIngredients(context.Background(), "u1", []string{"рис", "морковь"}, "")

	// A broken reuse path must not break generation.
	require.NoError(t, err)
	assert.Equal(t, SourceLLM, result.Source)
	assert.Equal(t, 1, generator.calls)
}

func TestFromIngredientsUsesStoredPreferences(t *testing.T) {
	store := newFakeStore()
	store.settings["u1"] = &Settings{Goal: "похудение", PreferredCuisine: "итальянская"}
	generator := &fakeGenerator{recipe: validRecipe("Плов")}
	svc := newTestService(store, generator)

	_, err := svc.FromIngredients(context.Background(), "u1", []string{"рис", "морковь"}, "")

	require.NoError(t, err)
	assert.Equal(t, "цель: похудение; кухня: итальянская", generator.lastPreferences)

	// An inline preferences string overrides the stored settings.
	_, err = svc.FromIngredients(context.Background(), "u1", []string{"рис", "морковь"}, "без глютена")
	require.NoError(t, err)
	assert.Equal(t, "без глютена", generator.lastPreferences)
}

func TestReadyDish(t *testing.T) {
	t.Run("empty request", func(t *testing.T) {
		svc := newTestService(newFakeStore(), &fakeGenerator{})
		_, err := svc.ReadyDish(context.Background(), "u1", "   ", "")
		assert.Error(t, err)
	})

	t.Run("blocked request", func(t *testing.T) {
		generator := &fakeGenerator{recipe: validRecipe("X")}
		svc := newTestService(newFakeStore(), generator)

		_, err := svc.ReadyDish(context.Background(), "u1", "суп из человечины", "")

		var blocked *BlockedError
		require.ErrorAs(t, err, &blocked)
		assert.Zero(t, generator.calls)
	})

	t.Run("single word skips reuse lookup", func(t *testing.T) {
		store := newFakeStore()
		generator := &fakeGenerator{recipe: validRecipe("Борщ")}
		svc := newTestService(store, generator)

		result, err := svc.ReadyDish(context.Background(), "u1", "борщ", "")

		require.NoError(t, err)
		assert.Equal(t, SourceLLM, result.Source)
		assert.Zero(t, store.userWindowHit)
		require.Len(t, store.saved, 1)
		assert.Equal(t, RequestReadyDish, store.saved[0].RequestType)
	})

	t.Run("multi word request can reuse", func(t *testing.T) {
		store := newFakeStore()
		store.userWindows["u1"] = []RatedRecord{
			ratedRecord("prior", "u1", []string{"плов", "из", "курицы"}, 0, time.Hour),
		}
		generator := &fakeGenerator{recipe: validRecipe("Плов")}
		svc := newTestService(store, generator)

		result, err := svc.ReadyDish(context.Background(), "u1", "плов из курицы", "")

		require.NoError(t, err)
		assert.Equal(t, SourceReused, result.Source)
		assert.Equal(t, "prior", result.RecipeID)
		assert.Zero(t, generator.calls)
	})
}

func TestVoteValidation(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeGenerator{})

	_, err := svc.Vote(context.Background(), "u1", "r1", 0)
	assert.Error(t, err)
	_, err = svc.Vote(context.Background(), "u1", "r1", 2)
	assert.Error(t, err)

	rating, err := svc.Vote(context.Background(), "u1", "r1", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, rating)
}

func TestSetFavorite(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeGenerator{})

	require.NoError(t, svc.SetFavorite(context.Background(), "u1", "r1", true))
	assert.True(t, store.favorites["u1:r1"])

	require.NoError(t, svc.SetFavorite(context.Background(), "u1", "r1", false))
	assert.False(t, store.favorites["u1:r1"])
}

func TestGetSettingsAbsent(t *testing.T) {
	svc := newTestService(newFakeStore(), &fakeGenerator{})

	settings, err := svc.GetSettings(context.Background(), "nobody")

	require.NoError(t, err)
	assert.Equal(t, Settings{}, settings)
}

func TestSplitIngredients(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"commas", "рис, курица, лук", []string{"рис", "курица", "лук"}},
		{"newlines and semicolons", "рис\nкурица; лук", []string{"рис", "курица", "лук"}},
		{"blank parts dropped", "рис,, ,лук", []string{"рис", "лук"}},
		{"empty", "   ", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitIngredients(tt.input))
		})
	}
}

func TestExtractSourceIngredients(t *testing.T) {
	t.Run("explicit list capped", func(t *testing.T) {
		got := ExtractSourceIngredients("а, б, в, г, д, е, ж, з, и, к")
		assert.Len(t, got, readyDishMaxItems)
		assert.Equal(t, "а", got[0])
	})

	t.Run("free text tokenized and capped", func(t *testing.T) {
		got := ExtractSourceIngredients("Запеченная курица с рисом и овощами под сыром")
		assert.Len(t, got, readyDishMaxTokens)
		assert.Equal(t, []string{"запеченная", "курица", "с", "рисом", "и", "овощами"}, got)
	})

	t.Run("single word", func(t *testing.T) {
		assert.Equal(t, []string{"борщ"}, ExtractSourceIngredients("Борщ"))
	})
}
