package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/parlayd/parlayd/internal/domain"
)

// OddsCache implements domain.OddsCache using Redis hashes. Each event's
// locked odds are stored at key "odds:{roundID}:{eventIndex}" with fields
// "home", "away" and "draw". Odds are written exactly once per round, so the
// cache never needs per-field invalidation.
type OddsCache struct {
	rdb *redis.Client
}

// NewOddsCache creates an OddsCache backed by the given Client.
func NewOddsCache(c *Client) *OddsCache {
	return &OddsCache{rdb: c.Underlying()}
}

func oddsKey(roundID uint64, eventIndex int) string {
	return fmt.Sprintf("odds:%d:%d", roundID, eventIndex)
}

// SetOdds stores the locked odds for one event of a round.
func (oc *OddsCache) SetOdds(ctx context.Context, roundID uint64, eventIndex int, odds domain.OddsTriple) error {
	key := oddsKey(roundID, eventIndex)
	fields := map[string]interface{}{
		"home": strconv.FormatUint(odds.Home, 10),
		"away": strconv.FormatUint(odds.Away, 10),
		"draw": strconv.FormatUint(odds.Draw, 10),
	}
	if err := oc.rdb.HSet(ctx, key, fields).Err(); err != nil {
		return fmt.Errorf("redis: set odds %d/%d: %w", roundID, eventIndex, err)
	}
	return nil
}

// GetOdds retrieves the locked odds for one event of a round. It returns
// domain.ErrNotFound when the key does not exist.
func (oc *OddsCache) GetOdds(ctx context.Context, roundID uint64, eventIndex int) (domain.OddsTriple, error) {
	vals, err := oc.rdb.HGetAll(ctx, oddsKey(roundID, eventIndex)).Result()
	if err != nil {
		return domain.OddsTriple{}, fmt.Errorf("redis: get odds %d/%d: %w", roundID, eventIndex, err)
	}
	if len(vals) == 0 {
		return domain.OddsTriple{}, domain.ErrNotFound
	}

	var triple domain.OddsTriple
	for field, dst := range map[string]*uint64{
		"home": &triple.Home,
		"away": &triple.Away,
		"draw": &triple.Draw,
	} {
		raw, ok := vals[field]
		if !ok {
			return domain.OddsTriple{}, domain.ErrNotFound
		}
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return domain.OddsTriple{}, fmt.Errorf("redis: parse odds field %s: %w", field, err)
		}
		*dst = v
	}
	return triple, nil
}

// InvalidateRound removes all cached odds for a round. Called after the round
// is archived out of hot storage.
func (oc *OddsCache) InvalidateRound(ctx context.Context, roundID uint64) error {
	pattern := fmt.Sprintf("odds:%d:*", roundID)
	iter := oc.rdb.Scan(ctx, 0, pattern, 0).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis: scan odds for round %d: %w", roundID, err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := oc.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis: delete odds for round %d: %w", roundID, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.OddsCache = (*OddsCache)(nil)
