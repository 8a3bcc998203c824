package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/Tilji-Thomas9137/hostelhaven-outpass-api/internal/models"
)

type quotaFetcher interface {
	WeeklyQuota(ctx context.Context, token string) (*models.WeeklyQuota, error)
}

type quotaMemo interface {
	GetQuota(ctx context.Context, studentID string) (*models.WeeklyQuota, error)
	SetQuota(ctx context.Context, studentID string, quota *models.WeeklyQuota) error
	InvalidateQuota(ctx context.Context, studentID string) error
}

// QuotaService tracks the student's rolling weekly outpass count. Its reads
// are advisory UX pre-checks; the authoritative count lives in hostel-core.
type QuotaService struct {
	upstream quotaFetcher
	memo     quotaMemo
	limit    int
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewQuotaService builds a QuotaService.
func NewQuotaService(upstream quotaFetcher, memo quotaMemo, limit int, metrics *MetricsService, logger *zap.Logger) *QuotaService {
	if limit <= 0 {
		limit = models.DefaultWeeklyLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuotaService{upstream: upstream, memo: memo, limit: limit, metrics: metrics, logger: logger}
}

// Snapshot returns the freshest quota it can get without failing the caller:
// upstream first, then the memoized value, then the conservative first-load
// default flagged stale. A failed fetch never fabricates can_request=true.
func (s *QuotaService) Snapshot(ctx context.Context, session *models.Session) *models.WeeklyQuota {
	quota, err := s.Fresh(ctx, session)
	if err == nil {
		return quota
	}

	s.logger.Warn("weekly quota fetch failed, holding previous value",
		zap.String("student_id", session.StudentID()),
		zap.Error(err))

	if cached, cacheErr := s.memo.GetQuota(ctx, session.StudentID()); cacheErr == nil {
		cached.Stale = true
		return cached
	}

	return models.ConservativeQuota(s.limit)
}

// Fresh bypasses the memo and re-verifies the quota against hostel-core,
// memoizing the result. The submission pipeline calls this immediately
// before any create so a stale allow cannot slip through.
func (s *QuotaService) Fresh(ctx context.Context, session *models.Session) (*models.WeeklyQuota, error) {
	quota, err := s.upstream.WeeklyQuota(ctx, session.Token)
	if err != nil {
		s.metrics.ObserveUpstream("weekly_quota", "error")
		return nil, err
	}
	s.metrics.ObserveUpstream("weekly_quota", "ok")

	if quota.Limit <= 0 {
		quota.Limit = s.limit
	}

	if err := s.memo.SetQuota(ctx, session.StudentID(), quota); err != nil {
		s.logger.Warn("failed to memoize quota snapshot", zap.Error(err))
	}
	return quota, nil
}

// Invalidate drops the memoized snapshot. Called after every successful
// create or extend so the next read cannot serve a stale allow.
func (s *QuotaService) Invalidate(ctx context.Context, studentID string) {
	if err := s.memo.InvalidateQuota(ctx, studentID); err != nil {
		s.logger.Warn("failed to invalidate quota memo", zap.String("student_id", studentID), zap.Error(err))
	}
}
