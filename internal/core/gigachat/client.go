// Package gigachat is the resilient client for the GigaChat generation
// backend: it manages the OAuth credential lease, builds prompts,
// classifies failures, retries within a bounded attempt budget and
// re-validates generated recipes through the safety filter.
package gigachat

import (
	"context"
	"crypto/tls"
	"strings"
	"time"

	"plate-recipe-api/internal/core/recipe"
	"plate-recipe-api/internal/core/safety"
	"plate-recipe-api/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Config holds the knobs of the generation backend.
type Config struct {
	OAuthURL           string
	APIURL             string
	Scope              string
	AuthKey            string
	Model              string
	Timeout            time.Duration
	MaxRetries         int
	InsecureSkipVerify bool
}

// Client talks to the GigaChat chat-completions API.
type Client struct {
	config Config
	client *resty.Client
	lease  *LeaseManager
	filter *safety.Filter
}

type chatRequest struct {
	Model             string    `json:"model"`
	Messages          []message `json:"messages"`
	N                 int       `json:"n"`
	Stream            bool      `json:"stream"`
	MaxTokens         int       `json:"max_tokens"`
	RepetitionPenalty float64   `json:"repetition_penalty"`
	UpdateInterval    int       `json:"update_interval"`
	Temperature       float64   `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// NewClient creates a GigaChat client with its own credential lease.
func NewClient(cfg Config, filter *safety.Filter) *Client {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.APIURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if cfg.InsecureSkipVerify {
		client.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}

	return &Client{
		config: cfg,
		client: client,
		lease:  NewLeaseManager(strings.TrimRight(cfg.OAuthURL, "/"), cfg.AuthKey, cfg.Scope, cfg.Timeout),
		filter: filter,
	}
}

// GenerateFromIngredients requests a recipe built from the user's
// ingredients, telling the model which plate groups are missing.
func (c *Client) GenerateFromIngredients(ctx context.Context, ingredients, missingGroups []string, preferences string) (*recipe.Recipe, error) {
	return c.requestRecipe(ctx, messagesForIngredients(ingredients, missingGroups, preferences), "ingredients")
}

// GenerateReadyDish requests one concrete recipe for a free-text dish
// request.
func (c *Client) GenerateReadyDish(ctx context.Context, dishRequest, preferences string) (*recipe.Recipe, error) {
	if strings.TrimSpace(dishRequest) == "" {
		return nil, newError(KindBadRequest, "dish request is empty")
	}
	return c.requestRecipe(ctx, messagesForReadyDish(dishRequest, preferences), "ready_dish")
}

// requestRecipe runs the bounded retry loop. Transport failures,
// malformed output and unsafe output all consume a retry slot; auth,
// scope and bad-request failures abort immediately. A 401 triggers one
// forced lease refresh per call without consuming a slot.
func (c *Client) requestRecipe(ctx context.Context, messages []message, scenario string) (*recipe.Recipe, error) {
	body := chatRequest{
		Model:             c.config.Model,
		Messages:          messages,
		N:                 1,
		Stream:            false,
		MaxTokens:         900,
		RepetitionPenalty: 1,
		UpdateInterval:    0,
		Temperature:       0.3,
	}

	var lastErr error
	refreshUsed := false

	for attempt := 1; attempt <= c.config.MaxRetries; attempt++ {
		validated, err := c.attempt(ctx, body, &refreshUsed)
		if err == nil {
			common.LogInfo("recipe validated",
				zap.Int("attempt", attempt),
				zap.String("scenario", scenario),
			)
			return validated, nil
		}

		kind := KindOf(err)
		if !retryable(kind) {
			common.LogWarn("generation failed",
				zap.String("scenario", scenario),
				zap.String("kind", string(kind)),
				zap.Error(err),
			)
			return nil, err
		}

		lastErr = err
		common.LogWarn("generation attempt failed",
			zap.String("scenario", scenario),
			zap.Int("attempt", attempt),
			zap.Int("max_retries", c.config.MaxRetries),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
	}

	return nil, newError(KindExhausted, "failed to get valid recipe after %d attempts: %w", c.config.MaxRetries, lastErr)
}

// attempt performs one generation round trip: lease, send, extract,
// validate schema, validate safety.
func (c *Client) attempt(ctx context.Context, body chatRequest, refreshUsed *bool) (*recipe.Recipe, error) {
	content, err := c.send(ctx, body, refreshUsed)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(content) == "" {
		return nil, newError(KindMalformed, "LLM returned empty response")
	}

	validated, err := recipe.Parse(content)
	if err != nil {
		return nil, newError(KindMalformed, "LLM response rejected: %w", err)
	}

	result := c.filter.CheckOutput(validated.Title, validated.Ingredients, validated.Steps)
	if !result.IsSafe {
		common.LogWarn("generated recipe blocked by safety filter",
			zap.String("category", string(result.Category)),
			zap.Strings("matched_terms", result.MatchedTerms),
		)
		return nil, newError(KindUnsafeOutput, "unsafe recipe: category=%s terms=%s",
			result.Category, strings.Join(result.MatchedTerms, ","))
	}

	return validated, nil
}

// send posts one chat-completions request. On HTTP 401 it forces a
// single credential refresh for the whole call and repeats the request
// once; a second 401 is a fatal authentication failure.
func (c *Client) send(ctx context.Context, body chatRequest, refreshUsed *bool) (string, error) {
	for {
		token, err := c.lease.Token(ctx)
		if err != nil {
			return "", err
		}

		var parsed chatResponse
		resp, err := c.client.R().
			SetContext(ctx).
			SetAuthToken(token).
			SetBody(body).
			SetResult(&parsed).
			Post("/chat/completions")
		if err != nil {
			return "", newError(KindTransient, "request failed: %w", err)
		}

		status := resp.StatusCode()
		if status == 401 && !*refreshUsed {
			*refreshUsed = true
			c.lease.Invalidate(token)
			common.LogWarn("401 from generation backend, forcing credential refresh")
			continue
		}
		if status != 200 {
			return "", newError(classifyStatus(status), "HTTP %d: %s", status, resp.String())
		}

		if len(parsed.Choices) == 0 {
			return "", newError(KindMalformed, "response without choices")
		}
		return parsed.Choices[0].Message.Content, nil
	}
}
