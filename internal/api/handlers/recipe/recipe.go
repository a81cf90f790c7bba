package recipe

import (
	"errors"
	"net/http"
	"strconv"

	"plate-recipe-api/internal/core/gigachat"
	"plate-recipe-api/internal/core/recipe"
	"plate-recipe-api/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultTopLimit = 10

// Handler serves the recipe endpoints.
type Handler struct {
	service *recipe.Service
}

func NewHandler(service *recipe.Service) *Handler {
	return &Handler{service: service}
}

// IngredientsRequest asks for a recipe from what the user has on hand.
// Ingredients may arrive as a list or as free text.
type IngredientsRequest struct {
	UserID      string   `json:"user_id" binding:"required"`
	Ingredients []string `json:"ingredients"`
	Text        string   `json:"text"`
	Preferences string   `json:"preferences"`
}

// DishRequest asks for a recipe of a named dish.
type DishRequest struct {
	UserID      string `json:"user_id" binding:"required"`
	Dish        string `json:"dish" binding:"required"`
	Preferences string `json:"preferences"`
}

// PlateRequest asks for a plate analysis only.
type PlateRequest struct {
	Ingredients []string `json:"ingredients"`
	Text        string   `json:"text"`
}

// VoteRequest records a +1/-1 vote.
type VoteRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Vote   int    `json:"vote" binding:"required"`
}

// FavoriteRequest marks or unmarks a favorite.
type FavoriteRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// HandleIngredients generates (or reuses) a recipe from an ingredient list.
func (h *Handler) HandleIngredients(c *gin.Context) {
	var req IngredientsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, err)
		return
	}

	ingredients := req.Ingredients
	if len(ingredients) == 0 && req.Text != "" {
		ingredients = recipe.SplitIngredients(req.Text)
	}
	if len(ingredients) == 0 {
		c.JSON(http.StatusBadRequest, common.ErrorResponse{
			Code:    common.ErrCodeInvalidRequest,
			Message: "ingredients are required",
		})
		return
	}

	result, err := h.service.FromIngredients(c.Request.Context(), req.UserID, ingredients, req.Preferences)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// HandleDish generates (or reuses) a recipe for a named dish.
func (h *Handler) HandleDish(c *gin.Context) {
	var req DishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, err)
		return
	}

	result, err := h.service.ReadyDish(c.Request.Context(), req.UserID, req.Dish, req.Preferences)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// HandlePlateAnalysis runs the plate analyzer without generation.
func (h *Handler) HandlePlateAnalysis(c *gin.Context) {
	var req PlateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, err)
		return
	}

	ingredients := req.Ingredients
	if len(ingredients) == 0 && req.Text != "" {
		ingredients = recipe.SplitIngredients(req.Text)
	}
	if len(ingredients) == 0 {
		c.JSON(http.StatusBadRequest, common.ErrorResponse{
			Code:    common.ErrCodeInvalidRequest,
			Message: "ingredients are required",
		})
		return
	}

	analysis := h.service.AnalyzePlate(ingredients)
	c.JSON(http.StatusOK, analysis)
}

// HandleVote records a vote and returns the recipe's new rating.
func (h *Handler) HandleVote(c *gin.Context) {
	var req VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, err)
		return
	}

	rating, err := h.service.Vote(c.Request.Context(), req.UserID, c.Param("id"), req.Vote)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"recipe_id": c.Param("id"),
		"rating":    rating,
	})
}

// HandleAddFavorite marks a recipe as a favorite.
func (h *Handler) HandleAddFavorite(c *gin.Context) {
	h.setFavorite(c, true)
}

// HandleRemoveFavorite unmarks a favorite.
func (h *Handler) HandleRemoveFavorite(c *gin.Context) {
	h.setFavorite(c, false)
}

func (h *Handler) setFavorite(c *gin.Context, favorite bool) {
	var req FavoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, err)
		return
	}

	if err := h.service.SetFavorite(c.Request.Context(), req.UserID, c.Param("id"), favorite); err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"recipe_id":   c.Param("id"),
		"is_favorite": favorite,
	})
}

// HandleTop returns the highest-rated recipes.
func (h *Handler) HandleTop(c *gin.Context) {
	limit := defaultTopLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, common.ErrorResponse{
				Code:    common.ErrCodeInvalidRequest,
				Message: "limit must be a positive integer",
			})
			return
		}
		limit = parsed
	}

	records, err := h.service.TopRated(c.Request.Context(), limit)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"recipes": records,
	})
}

// HandleGetSettings returns a user's generation preferences.
func (h *Handler) HandleGetSettings(c *gin.Context) {
	settings, err := h.service.GetSettings(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, settings)
}

// HandleSaveSettings replaces a user's generation preferences.
func (h *Handler) HandleSaveSettings(c *gin.Context) {
	var settings recipe.Settings
	if err := c.ShouldBindJSON(&settings); err != nil {
		writeBadRequest(c, err)
		return
	}

	if err := h.service.SaveSettings(c.Request.Context(), c.Param("user_id"), settings); err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, settings)
}

func writeBadRequest(c *gin.Context, err error) {
	common.LogWarn("invalid request payload",
		zap.Error(err),
		zap.String("path", c.Request.URL.Path),
	)
	c.JSON(http.StatusBadRequest, common.ErrorResponse{
		Code:    common.ErrCodeInvalidRequest,
		Message: "invalid request format",
		Details: err.Error(),
	})
}

// writeServiceError maps domain errors onto HTTP responses. Safety
// blocks surface the full block message; generation failures surface
// the user-facing text for the underlying cause.
func writeServiceError(c *gin.Context, err error) {
	var blocked *recipe.BlockedError
	if errors.As(err, &blocked) {
		c.JSON(http.StatusUnprocessableEntity, common.ErrorResponse{
			Code:    common.ErrCodeUnsafeRequest,
			Message: blocked.Message(),
		})
		return
	}

	var custom *common.CustomError
	if errors.As(err, &custom) {
		c.JSON(custom.Status, common.ErrorResponse{
			Code:    custom.Code,
			Message: custom.Message,
		})
		return
	}

	var genErr *gigachat.Error
	if errors.As(err, &genErr) {
		common.LogError("generation failed",
			zap.Error(err),
			zap.String("path", c.Request.URL.Path),
		)
		c.JSON(http.StatusBadGateway, common.ErrorResponse{
			Code:    common.ErrCodeGenerationFailed,
			Message: gigachat.UserMessage(err),
		})
		return
	}

	common.LogError("request failed",
		zap.Error(err),
		zap.String("path", c.Request.URL.Path),
	)
	c.JSON(http.StatusInternalServerError, common.ErrorResponse{
		Code:    common.ErrCodeInternalError,
		Message: "internal server error",
	})
}
