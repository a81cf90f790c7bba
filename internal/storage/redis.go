// Package storage is the persistence collaborator: a Redis-backed
// recipe store exposing bounded recency windows, votes, favorites and
// per-user settings. The core only sees it through the recipe.Store
// interface.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"plate-recipe-api/internal/core/recipe"
	"plate-recipe-api/internal/pkg/common"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// List caps keep the recency windows bounded regardless of how much
// history accumulates.
const (
	userListCap   = 500
	globalListCap = 1000
)

// RedisStore implements recipe.Store on top of Redis.
type RedisStore struct {
	client *redis.Client
}

// Config for the Redis connection.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg Config) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	common.LogInfo("recipe store connected", zap.String("addr", cfg.Addr))
	return &RedisStore{client: client}, nil
}

// Close releases the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping verifies the store connection, for readiness probes.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func recipeKey(id string) string        { return "recipe:" + id }
func votesKey(id string) string         { return "recipe:" + id + ":votes" }
func userListKey(userID string) string  { return "recipes:user:" + userID }
func favoritesKey(userID string) string { return "favorites:" + userID }
func settingsKey(userID string) string  { return "settings:" + userID }

const (
	globalListKey  = "recipes:recent"
	ratingIndexKey = "recipes:by_rating"
)

// SaveRecipe persists a record and pushes it onto the owner's and the
// global recency lists, trimming both to their caps.
func (s *RedisStore) SaveRecipe(ctx context.Context, record recipe.Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal recipe: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, recipeKey(record.ID), data, 0)
	pipe.LPush(ctx, userListKey(record.OwnerID), record.ID)
	pipe.LTrim(ctx, userListKey(record.OwnerID), 0, userListCap-1)
	pipe.LPush(ctx, globalListKey, record.ID)
	pipe.LTrim(ctx, globalListKey, 0, globalListCap-1)
	pipe.ZAdd(ctx, ratingIndexKey, &redis.Z{Score: 0, Member: record.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save recipe: %w", err)
	}
	return nil
}

// GetRecipe loads one record with its rating, or nil when absent.
func (s *RedisStore) GetRecipe(ctx context.Context, id string) (*recipe.RatedRecord, error) {
	data, err := s.client.Get(ctx, recipeKey(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get recipe: %w", err)
	}

	var record recipe.Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("unmarshal recipe %s: %w", id, err)
	}

	rating, err := s.rating(ctx, id)
	if err != nil {
		return nil, err
	}
	return &recipe.RatedRecord{Record: record, Rating: rating}, nil
}

// RecentByOwner returns the owner's most recent records, newest first.
func (s *RedisStore) RecentByOwner(ctx context.Context, ownerID string, limit int) ([]recipe.RatedRecord, error) {
	ids, err := s.client.LRange(ctx, userListKey(ownerID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("user recency list: %w", err)
	}
	return s.loadRated(ctx, ids, "", limit)
}

// RecentGlobal returns the most recent records of other users, newest
// first. The global list is scanned a bit past the limit to compensate
// for the excluded owner's entries.
func (s *RedisStore) RecentGlobal(ctx context.Context, excludeOwnerID string, limit int) ([]recipe.RatedRecord, error) {
	ids, err := s.client.LRange(ctx, globalListKey, 0, int64(2*limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("global recency list: %w", err)
	}
	return s.loadRated(ctx, ids, excludeOwnerID, limit)
}

// TopRated returns the highest-rated records, ties broken by recency.
func (s *RedisStore) TopRated(ctx context.Context, limit int) ([]recipe.RatedRecord, error) {
	ids, err := s.client.ZRevRange(ctx, ratingIndexKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("rating index: %w", err)
	}
	rated, err := s.loadRated(ctx, ids, "", limit)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(rated, func(i, j int) bool {
		if rated[i].Rating != rated[j].Rating {
			return rated[i].Rating > rated[j].Rating
		}
		return rated[i].Record.CreatedAt.After(rated[j].Record.CreatedAt)
	})
	return rated, nil
}

// SetVote upserts a user's -1/+1 vote and returns the new rating.
func (s *RedisStore) SetVote(ctx context.Context, userID, recipeID string, vote int) (int, error) {
	exists, err := s.client.Exists(ctx, recipeKey(recipeID)).Result()
	if err != nil {
		return 0, fmt.Errorf("vote lookup: %w", err)
	}
	if exists == 0 {
		return 0, common.ErrNotFound
	}

	previous, err := s.client.HGet(ctx, votesKey(recipeID), userID).Int()
	if err != nil && err != redis.Nil {
		return 0, fmt.Errorf("previous vote: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, votesKey(recipeID), userID, vote)
	pipe.ZIncrBy(ctx, ratingIndexKey, float64(vote-previous), recipeID)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("set vote: %w", err)
	}

	return s.rating(ctx, recipeID)
}

// AddFavorite marks a recipe as the user's favorite.
func (s *RedisStore) AddFavorite(ctx context.Context, userID, recipeID string) error {
	return s.client.SAdd(ctx, favoritesKey(userID), recipeID).Err()
}

// RemoveFavorite unmarks a favorite; false when it was not set.
func (s *RedisStore) RemoveFavorite(ctx context.Context, userID, recipeID string) (bool, error) {
	removed, err := s.client.SRem(ctx, favoritesKey(userID), recipeID).Result()
	if err != nil {
		return false, err
	}
	return removed > 0, nil
}

// IsFavorite reports whether a recipe is among the user's favorites.
func (s *RedisStore) IsFavorite(ctx context.Context, userID, recipeID string) (bool, error) {
	return s.client.SIsMember(ctx, favoritesKey(userID), recipeID).Result()
}

// GetSettings loads a user's settings, or nil when never saved.
func (s *RedisStore) GetSettings(ctx context.Context, userID string) (*recipe.Settings, error) {
	data, err := s.client.Get(ctx, settingsKey(userID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}

	var settings recipe.Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}
	return &settings, nil
}

// SaveSettings stores a user's settings.
func (s *RedisStore) SaveSettings(ctx context.Context, userID string, settings recipe.Settings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	return s.client.Set(ctx, settingsKey(userID), data, 0).Err()
}

func (s *RedisStore) rating(ctx context.Context, recipeID string) (int, error) {
	votes, err := s.client.HVals(ctx, votesKey(recipeID)).Result()
	if err != nil {
		return 0, fmt.Errorf("votes: %w", err)
	}

	rating := 0
	for _, raw := range votes {
		value, err := strconv.Atoi(raw)
		if err != nil {
			continue
		}
		rating += value
	}
	return rating, nil
}

func (s *RedisStore) loadRated(ctx context.Context, ids []string, excludeOwnerID string, limit int) ([]recipe.RatedRecord, error) {
	rated := make([]recipe.RatedRecord, 0, len(ids))
	for _, id := range ids {
		item, err := s.GetRecipe(ctx, id)
		if err != nil {
			return nil, err
		}
		// Trimmed-out or deleted entries can linger in the lists.
		if item == nil {
			continue
		}
		if excludeOwnerID != "" && item.Record.OwnerID == excludeOwnerID {
			continue
		}
		rated = append(rated, *item)
		if len(rated) >= limit {
			break
		}
	}
	return rated, nil
}
