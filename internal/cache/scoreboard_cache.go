package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ScoreboardCache mirrors per-session scores into a Redis ZSET so leaderboard
// reads don't touch the game state. The in-memory session is authoritative;
// this is a read model.
type ScoreboardCache interface {
	SetScore(ctx context.Context, code, playerID string, score int) error
	Remove(ctx context.Context, code, playerID string) error
	Top(ctx context.Context, code string, limit int) ([]ScoreEntry, error)
	Delete(ctx context.Context, code string) error
}

// ScoreEntry is a single scoreboard row read back from Redis.
type ScoreEntry struct {
	PlayerID string `json:"playerId"`
	Score    int    `json:"score"`
	Rank     int    `json:"rank"`
}

type scoreboardCache struct {
	client *redis.Client
}

func NewScoreboardCache(client *redis.Client) ScoreboardCache {
	return &scoreboardCache{client: client}
}

func (c *scoreboardCache) key(code string) string {
	return fmt.Sprintf("session:%s:scores", code)
}

func (c *scoreboardCache) SetScore(ctx context.Context, code, playerID string, score int) error {
	return c.client.ZAdd(ctx, c.key(code), redis.Z{
		Score:  float64(score),
		Member: playerID,
	}).Err()
}

func (c *scoreboardCache) Remove(ctx context.Context, code, playerID string) error {
	return c.client.ZRem(ctx, c.key(code), playerID).Err()
}

func (c *scoreboardCache) Top(ctx context.Context, code string, limit int) ([]ScoreEntry, error) {
	results, err := c.client.ZRevRangeWithScores(ctx, c.key(code), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]ScoreEntry, len(results))
	for i, z := range results {
		entries[i] = ScoreEntry{
			PlayerID: z.Member.(string),
			Score:    int(z.Score),
			Rank:     i + 1,
		}
	}
	return entries, nil
}

func (c *scoreboardCache) Delete(ctx context.Context, code string) error {
	return c.client.Del(ctx, c.key(code)).Err()
}
