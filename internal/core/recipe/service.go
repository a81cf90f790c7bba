package recipe

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"plate-recipe-api/internal/core/match"
	"plate-recipe-api/internal/core/plate"
	"plate-recipe-api/internal/core/safety"
	"plate-recipe-api/internal/pkg/common"

	"go.uber.org/zap"
)

// Source tells where the served recipe came from.
type Source string

const (
	SourceReused Source = "reused"
	SourceLLM    Source = "llm"
)

// MatchScope tells which candidate window produced a reuse hit.
type MatchScope string

const (
	ScopeUser   MatchScope = "user"
	ScopeGlobal MatchScope = "global"
)

// Default candidate window sizes.
const (
	DefaultUserWindowLimit   = 150
	DefaultGlobalWindowLimit = 300
)

// readyDishMaxItems bounds the ingredient basis extracted from a free
// text dish request.
const (
	readyDishMaxItems  = 8
	readyDishMaxTokens = 6
)

// BlockedError means the user's input failed the safety gate. Terminal:
// no generation call is attempted.
type BlockedError struct {
	Result safety.Result
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("input blocked by safety filter: category=%s", e.Result.Category)
}

// Message is the user-facing, category-specific explanation.
func (e *BlockedError) Message() string {
	return safety.BlockMessage(e.Result)
}

// ServiceOptions tune the reuse windows and matcher thresholds.
type ServiceOptions struct {
	UserWindowLimit   int
	GlobalWindowLimit int
	Match             match.Options
}

func (o ServiceOptions) withDefaults() ServiceOptions {
	if o.UserWindowLimit <= 0 {
		o.UserWindowLimit = DefaultUserWindowLimit
	}
	if o.GlobalWindowLimit <= 0 {
		o.GlobalWindowLimit = DefaultGlobalWindowLimit
	}
	return o
}

// Service orchestrates one request end to end: safety gate, plate
// analysis, reuse lookup, generation, persistence.
type Service struct {
	store     Store
	generator Generator
	analyzer  *plate.Analyzer
	filter    *safety.Filter
	opts      ServiceOptions
}

// NewService wires the orchestration service.
func NewService(store Store, generator Generator, opts ServiceOptions) *Service {
	return &Service{
		store:     store,
		generator: generator,
		analyzer:  plate.NewAnalyzer(),
		filter:    safety.NewFilter(),
		opts:      opts.withDefaults(),
	}
}

// Result is what a request handler renders back to the user.
type Result struct {
	Recipe     *Recipe         `json:"recipe"`
	Analysis   *plate.Analysis `json:"plate_analysis,omitempty"`
	RecipeID   string          `json:"recipe_id"`
	Rating     int             `json:"rating"`
	IsFavorite bool            `json:"is_favorite"`
	Source     Source          `json:"source"`
	MatchScope MatchScope      `json:"match_scope,omitempty"`
	MatchKind  match.Kind      `json:"match_kind,omitempty"`
	Similarity float64         `json:"similarity,omitempty"`
}

// AnalyzePlate runs the plate analyzer alone.
func (s *Service) AnalyzePlate(ingredients []string) plate.Analysis {
	return s.analyzer.Analyze(ingredients)
}

// FromIngredients serves an ingredient-mode request: input safety gate,
// plate analysis, reuse lookup over the user window then the global
// window, and only on a miss a generation call. A non-empty preferences
// string overrides the user's stored settings for this request.
func (s *Service) FromIngredients(ctx context.Context, userID string, ingredients []string, preferences string) (*Result, error) {
	if safetyResult := s.filter.CheckInput(ingredients); !safetyResult.IsSafe {
		common.LogWarn("request blocked by safety filter",
			zap.String("mode", string(RequestIngredients)),
			zap.String("category", string(safetyResult.Category)),
			zap.Strings("matched_terms", safetyResult.MatchedTerms),
		)
		return nil, &BlockedError{Result: safetyResult}
	}

	analysis := s.analyzer.Analyze(ingredients)
	if strings.TrimSpace(preferences) == "" {
		preferences = s.preferencesText(ctx, userID)
	}

	if reused, err := s.findReusable(ctx, userID, ingredients); err != nil {
		common.LogWarn("reuse lookup failed, falling through to generation", zap.Error(err))
	} else if reused != nil {
		reused.Analysis = &analysis
		return reused, nil
	}

	generated, err := s.generator.GenerateFromIngredients(ctx, ingredients, groupsToStrings(analysis.MissingGroups), preferences)
	if err != nil {
		return nil, err
	}

	result, err := s.persist(ctx, Record{
		OwnerID:                 userID,
		RequestType:             RequestIngredients,
		SourceIngredients:       ingredients,
		SupplementedIngredients: analysis.Recommendations,
		Payload:                 *generated,
	})
	if err != nil {
		return nil, err
	}
	result.Analysis = &analysis
	return result, nil
}

// ReadyDish serves a free-text dish request. Reuse is only attempted
// when at least two source ingredients can be extracted from the text;
// a one-word request is too thin a basis to match on.
func (s *Service) ReadyDish(ctx context.Context, userID, dishRequest, preferences string) (*Result, error) {
	dishRequest = strings.TrimSpace(dishRequest)
	if dishRequest == "" {
		return nil, common.NewError(common.ErrCodeInvalidRequest, "dish request is empty", 400, nil)
	}

	if safetyResult := s.filter.CheckInput([]string{dishRequest}); !safetyResult.IsSafe {
		common.LogWarn("request blocked by safety filter",
			zap.String("mode", string(RequestReadyDish)),
			zap.String("category", string(safetyResult.Category)),
			zap.Strings("matched_terms", safetyResult.MatchedTerms),
		)
		return nil, &BlockedError{Result: safetyResult}
	}

	sourceIngredients := ExtractSourceIngredients(dishRequest)
	if len(sourceIngredients) >= 2 {
		if reused, err := s.findReusable(ctx, userID, sourceIngredients); err != nil {
			common.LogWarn("reuse lookup failed, falling through to generation", zap.Error(err))
		} else if reused != nil {
			return reused, nil
		}
	}

	if strings.TrimSpace(preferences) == "" {
		preferences = s.preferencesText(ctx, userID)
	}
	generated, err := s.generator.GenerateReadyDish(ctx, dishRequest, preferences)
	if err != nil {
		return nil, err
	}

	return s.persist(ctx, Record{
		OwnerID:           userID,
		RequestType:       RequestReadyDish,
		SourceIngredients: sourceIngredients,
		Payload:           *generated,
	})
}

// findReusable applies the two-phase window policy: the user's own
// recent recipes first, the global window (excluding the user) only on
// a miss. A weaker user-scoped match therefore wins over a stronger
// global one; callers wanting global-optimal ranking would have to
// merge the windows into a single matcher call.
func (s *Service) findReusable(ctx context.Context, userID string, ingredients []string) (*Result, error) {
	userWindow, err := s.store.RecentByOwner(ctx, userID, s.opts.UserWindowLimit)
	if err != nil {
		return nil, fmt.Errorf("user window lookup: %w", err)
	}

	scope := ScopeUser
	window := userWindow
	best := match.FindBest(ingredients, toCandidates(userWindow), s.opts.Match)
	if best == nil {
		globalWindow, err := s.store.RecentGlobal(ctx, userID, s.opts.GlobalWindowLimit)
		if err != nil {
			return nil, fmt.Errorf("global window lookup: %w", err)
		}
		scope = ScopeGlobal
		window = globalWindow
		best = match.FindBest(ingredients, toCandidates(globalWindow), s.opts.Match)
	}
	if best == nil {
		return nil, nil
	}

	var rated *RatedRecord
	for i := range window {
		if window[i].Record.ID == best.Candidate.ID {
			rated = &window[i]
			break
		}
	}
	if rated == nil {
		return nil, nil
	}
	if err := rated.Record.Payload.Validate(); err != nil {
		common.LogWarn("reuse skipped, stored payload invalid",
			zap.String("recipe_id", best.Candidate.ID),
			zap.Error(err),
		)
		return nil, nil
	}

	isFavorite, err := s.store.IsFavorite(ctx, userID, rated.Record.ID)
	if err != nil {
		isFavorite = false
	}

	common.LogInfo("recipe reused",
		zap.String("scope", string(scope)),
		zap.String("matched_recipe_id", rated.Record.ID),
		zap.Float64("similarity", best.Similarity),
	)

	return &Result{
		Recipe:     &rated.Record.Payload,
		RecipeID:   rated.Record.ID,
		Rating:     rated.Rating,
		IsFavorite: isFavorite,
		Source:     SourceReused,
		MatchScope: scope,
		MatchKind:  best.Kind,
		Similarity: best.Similarity,
	}, nil
}

func (s *Service) persist(ctx context.Context, record Record) (*Result, error) {
	record.ID = common.GenerateUUID()
	record.CreatedAt = time.Now().UTC()

	if err := s.store.SaveRecipe(ctx, record); err != nil {
		return nil, fmt.Errorf("save recipe: %w", err)
	}

	common.LogInfo("recipe saved",
		zap.String("recipe_id", record.ID),
		zap.String("request_type", string(record.RequestType)),
	)

	return &Result{
		Recipe:   &record.Payload,
		RecipeID: record.ID,
		Source:   SourceLLM,
	}, nil
}

// Vote upserts a user's -1/+1 vote and returns the new rating.
func (s *Service) Vote(ctx context.Context, userID, recipeID string, vote int) (int, error) {
	if vote != -1 && vote != 1 {
		return 0, common.NewError(common.ErrCodeInvalidRequest, "vote must be -1 or 1", 400, nil)
	}
	return s.store.SetVote(ctx, userID, recipeID, vote)
}

// SetFavorite adds or removes a favorite mark.
func (s *Service) SetFavorite(ctx context.Context, userID, recipeID string, favorite bool) error {
	if favorite {
		return s.store.AddFavorite(ctx, userID, recipeID)
	}
	_, err := s.store.RemoveFavorite(ctx, userID, recipeID)
	return err
}

// TopRated returns the best-rated recipes window.
func (s *Service) TopRated(ctx context.Context, limit int) ([]RatedRecord, error) {
	return s.store.TopRated(ctx, limit)
}

// GetSettings loads a user's preference settings; absent settings come
// back zero-valued.
func (s *Service) GetSettings(ctx context.Context, userID string) (Settings, error) {
	settings, err := s.store.GetSettings(ctx, userID)
	if err != nil {
		return Settings{}, err
	}
	if settings == nil {
		return Settings{}, nil
	}
	return *settings, nil
}

// SaveSettings stores a user's preference settings.
func (s *Service) SaveSettings(ctx context.Context, userID string, settings Settings) error {
	return s.store.SaveSettings(ctx, userID, settings)
}

func (s *Service) preferencesText(ctx context.Context, userID string) string {
	settings, err := s.store.GetSettings(ctx, userID)
	if err != nil || settings == nil {
		return "нет"
	}
	return settings.PromptText()
}

func toCandidates(window []RatedRecord) []match.Candidate {
	candidates := make([]match.Candidate, 0, len(window))
	for _, rated := range window {
		candidates = append(candidates, match.Candidate{
			ID:                 rated.Record.ID,
			OwnerID:            rated.Record.OwnerID,
			SourceIngredients:  rated.Record.SourceIngredients,
			PayloadIngredients: rated.Record.Payload.Ingredients,
			Rating:             rated.Rating,
			CreatedAt:          rated.Record.CreatedAt,
		})
	}
	return candidates
}

func groupsToStrings(groups []plate.Group) []string {
	values := make([]string, 0, len(groups))
	for _, group := range groups {
		values = append(values, string(group))
	}
	return values
}

var wordPattern = regexp.MustCompile(`[a-zа-яё0-9]+`)

// SplitIngredients turns free text into an ingredient list: newlines
// and semicolons are treated as commas.
func SplitIngredients(text string) []string {
	normalized := strings.NewReplacer("\n", ",", ";", ",").Replace(text)
	var items []string
	for _, part := range strings.Split(normalized, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

// ExtractSourceIngredients derives a match basis from a free-text dish
// request: an explicit comma-separated list is taken as-is (capped),
// otherwise the leading words of the request are used.
func ExtractSourceIngredients(requestText string) []string {
	items := SplitIngredients(requestText)
	if len(items) > 1 {
		if len(items) > readyDishMaxItems {
			items = items[:readyDishMaxItems]
		}
		return items
	}

	tokens := wordPattern.FindAllString(strings.ToLower(requestText), -1)
	if len(tokens) > readyDishMaxTokens {
		tokens = tokens[:readyDishMaxTokens]
	}
	return tokens
}
