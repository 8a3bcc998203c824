package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tilji-Thomas9137/hostelhaven-outpass-api/internal/models"
	appErrors "github.com/Tilji-Thomas9137/hostelhaven-outpass-api/pkg/errors"
)

type mockAllocationChecker struct {
	allocated bool
	err       error
}

func (m *mockAllocationChecker) CheckRoomAllocation(ctx context.Context, token string) (bool, error) {
	return m.allocated, m.err
}

type mockEligibilityMemo struct {
	stored      map[string]*models.EligibilityState
	invalidated []string
}

func newMockEligibilityMemo() *mockEligibilityMemo {
	return &mockEligibilityMemo{stored: make(map[string]*models.EligibilityState)}
}

func (m *mockEligibilityMemo) GetEligibility(ctx context.Context, studentID string) (*models.EligibilityState, error) {
	if s, ok := m.stored[studentID]; ok {
		copied := *s
		return &copied, nil
	}
	return nil, appErrors.ErrCacheMiss
}

func (m *mockEligibilityMemo) SetEligibility(ctx context.Context, studentID string, state *models.EligibilityState) error {
	copied := *state
	m.stored[studentID] = &copied
	return nil
}

func (m *mockEligibilityMemo) InvalidateEligibility(ctx context.Context, studentID string) error {
	delete(m.stored, studentID)
	m.invalidated = append(m.invalidated, studentID)
	return nil
}

func TestEligibilityResolveAllocated(t *testing.T) {
	memo := newMockEligibilityMemo()
	svc := NewEligibilityService(&mockAllocationChecker{allocated: true}, memo, nil, nil)

	state := svc.Resolve(context.Background(), testSession())
	assert.Equal(t, models.EligibilityEligible, state.Status)
	assert.True(t, state.HasActiveRoomAllocation)
	assert.False(t, state.CheckedAt.IsZero())

	// The resolution is memoized for degraded resolves later.
	_, ok := memo.stored["stu-1"]
	assert.True(t, ok)
}

func TestEligibilityResolveNotAllocated(t *testing.T) {
	svc := NewEligibilityService(&mockAllocationChecker{allocated: false}, newMockEligibilityMemo(), nil, nil)

	state := svc.Resolve(context.Background(), testSession())
	assert.Equal(t, models.EligibilityIneligible, state.Status)
	assert.False(t, state.HasActiveRoomAllocation)
	assert.True(t, state.Resolved())
}

func TestEligibilityResolveFailureUsesMemo(t *testing.T) {
	memo := newMockEligibilityMemo()
	require.NoError(t, memo.SetEligibility(context.Background(), "stu-1", &models.EligibilityState{
		Status:                  models.EligibilityEligible,
		HasActiveRoomAllocation: true,
		CheckedAt:               time.Now().UTC(),
	}))
	svc := NewEligibilityService(&mockAllocationChecker{err: errors.New("connection refused")}, memo, nil, nil)

	state := svc.Resolve(context.Background(), testSession())
	assert.Equal(t, models.EligibilityEligible, state.Status)
}

func TestEligibilityResolveFailureWithoutMemoStaysChecking(t *testing.T) {
	svc := NewEligibilityService(&mockAllocationChecker{err: errors.New("connection refused")}, newMockEligibilityMemo(), nil, nil)

	state := svc.Resolve(context.Background(), testSession())
	assert.Equal(t, models.EligibilityChecking, state.Status)
	assert.False(t, state.Resolved())
}

func TestEligibilityInvalidate(t *testing.T) {
	memo := newMockEligibilityMemo()
	require.NoError(t, memo.SetEligibility(context.Background(), "stu-1", &models.EligibilityState{Status: models.EligibilityEligible}))
	svc := NewEligibilityService(&mockAllocationChecker{allocated: true}, memo, nil, nil)

	svc.Invalidate(context.Background(), "stu-1")
	assert.Equal(t, []string{"stu-1"}, memo.invalidated)
}
