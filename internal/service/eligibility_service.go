package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Tilji-Thomas9137/hostelhaven-outpass-api/internal/models"
)

type allocationChecker interface {
	CheckRoomAllocation(ctx context.Context, token string) (bool, error)
}

type eligibilityMemo interface {
	GetEligibility(ctx context.Context, studentID string) (*models.EligibilityState, error)
	SetEligibility(ctx context.Context, studentID string, state *models.EligibilityState) error
	InvalidateEligibility(ctx context.Context, studentID string) error
}

// EligibilityService resolves the room-allocation gate. A submission is never
// allowed through an unresolved gate: when the check cannot complete, the
// state stays "checking", which blocks distinctly from ineligible.
type EligibilityService struct {
	upstream allocationChecker
	memo     eligibilityMemo
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewEligibilityService builds an EligibilityService.
func NewEligibilityService(upstream allocationChecker, memo eligibilityMemo, metrics *MetricsService, logger *zap.Logger) *EligibilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EligibilityService{upstream: upstream, memo: memo, metrics: metrics, logger: logger}
}

// Resolve re-checks the gate against hostel-core and memoizes the answer.
// When the check itself fails it falls back to the memoized resolution, and
// reports "checking" when no resolution has ever been reached.
func (s *EligibilityService) Resolve(ctx context.Context, session *models.Session) models.EligibilityState {
	allocated, err := s.upstream.CheckRoomAllocation(ctx, session.Token)
	if err != nil {
		s.metrics.ObserveUpstream("check_room_allocation", "error")
		s.logger.Warn("room allocation check did not resolve",
			zap.String("student_id", session.StudentID()),
			zap.Error(err))

		if cached, cacheErr := s.memo.GetEligibility(ctx, session.StudentID()); cacheErr == nil && cached.Resolved() {
			return *cached
		}
		return models.EligibilityState{Status: models.EligibilityChecking}
	}
	s.metrics.ObserveUpstream("check_room_allocation", "ok")

	state := models.EligibilityState{
		Status:                  models.EligibilityIneligible,
		HasActiveRoomAllocation: allocated,
		CheckedAt:               time.Now().UTC(),
	}
	if allocated {
		state.Status = models.EligibilityEligible
	}

	if err := s.memo.SetEligibility(ctx, session.StudentID(), &state); err != nil {
		s.logger.Warn("failed to memoize eligibility state", zap.Error(err))
	}
	return state
}

// Invalidate drops the memoized gate resolution, forcing the next open of the
// submission surface to re-check.
func (s *EligibilityService) Invalidate(ctx context.Context, studentID string) {
	if err := s.memo.InvalidateEligibility(ctx, studentID); err != nil {
		s.logger.Warn("failed to invalidate eligibility memo", zap.String("student_id", studentID), zap.Error(err))
	}
}
