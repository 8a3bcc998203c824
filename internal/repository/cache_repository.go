package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Tilji-Thomas9137/hostelhaven-outpass-api/internal/models"
	appErrors "github.com/Tilji-Thomas9137/hostelhaven-outpass-api/pkg/errors"
)

const (
	quotaKeyFormat       = "outpass:quota:%s"
	eligibilityKeyFormat = "outpass:eligibility:%s"
)

// CacheRepository memoizes quota and eligibility snapshots in Redis. Entries
// have no TTL: invalidation is explicit on every mutating success, so a stale
// allow can never hide behind a timer.
type CacheRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewCacheRepository constructs a cache repository.
func NewCacheRepository(client *redis.Client, logger *zap.Logger) *CacheRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheRepository{client: client, logger: logger}
}

// GetQuota returns the memoized quota snapshot for a student.
func (r *CacheRepository) GetQuota(ctx context.Context, studentID string) (*models.WeeklyQuota, error) {
	var quota models.WeeklyQuota
	if err := r.get(ctx, fmt.Sprintf(quotaKeyFormat, studentID), &quota); err != nil {
		return nil, err
	}
	return &quota, nil
}

// SetQuota stores a quota snapshot.
func (r *CacheRepository) SetQuota(ctx context.Context, studentID string, quota *models.WeeklyQuota) error {
	return r.set(ctx, fmt.Sprintf(quotaKeyFormat, studentID), quota)
}

// InvalidateQuota drops the memoized snapshot after a mutating success.
func (r *CacheRepository) InvalidateQuota(ctx context.Context, studentID string) error {
	return r.del(ctx, fmt.Sprintf(quotaKeyFormat, studentID))
}

// GetEligibility returns the memoized eligibility state for a student.
func (r *CacheRepository) GetEligibility(ctx context.Context, studentID string) (*models.EligibilityState, error) {
	var state models.EligibilityState
	if err := r.get(ctx, fmt.Sprintf(eligibilityKeyFormat, studentID), &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// SetEligibility stores an eligibility state.
func (r *CacheRepository) SetEligibility(ctx context.Context, studentID string, state *models.EligibilityState) error {
	return r.set(ctx, fmt.Sprintf(eligibilityKeyFormat, studentID), state)
}

// InvalidateEligibility drops the memoized eligibility state.
func (r *CacheRepository) InvalidateEligibility(ctx context.Context, studentID string) error {
	return r.del(ctx, fmt.Sprintf(eligibilityKeyFormat, studentID))
}

func (r *CacheRepository) get(ctx context.Context, key string, dest interface{}) error {
	if r.client == nil {
		return appErrors.ErrCacheMiss
	}

	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return appErrors.ErrCacheMiss
		}
		return fmt.Errorf("redis get %s: %w", key, err)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("unmarshal cache value for %s: %w", key, err)
	}

	return nil
}

func (r *CacheRepository) set(ctx context.Context, key string, value interface{}) error {
	if r.client == nil {
		return nil
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value for %s: %w", key, err)
	}

	if err := r.client.Set(ctx, key, payload, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}

	return nil
}

func (r *CacheRepository) del(ctx context.Context, key string) error {
	if r.client == nil {
		return nil
	}
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis delete %s: %w", key, err)
	}
	return nil
}

// Close releases the underlying Redis connection if present.
func (r *CacheRepository) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}
