package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tilji-Thomas9137/hostelhaven-outpass-api/internal/client/hostelcore"
	"github.com/Tilji-Thomas9137/hostelhaven-outpass-api/internal/models"
	appErrors "github.com/Tilji-Thomas9137/hostelhaven-outpass-api/pkg/errors"
)

type mockHistoryUpstream struct {
	records []models.OutpassRequest
	err     error
}

func (m *mockHistoryUpstream) MyRequests(ctx context.Context, token string) ([]models.OutpassRequest, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.records, nil
}

type mockHistoryStore struct {
	local    []models.OutpassRequest
	mirrored []string
	listErr  error
}

func (m *mockHistoryStore) ListByStudent(ctx context.Context, studentID string) ([]models.OutpassRequest, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []models.OutpassRequest
	for _, r := range m.local {
		if r.StudentID == studentID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockHistoryStore) UpsertFromServer(ctx context.Context, record *models.OutpassRequest) error {
	m.mirrored = append(m.mirrored, record.ID)
	return nil
}

type mockQuotaSnapshotter struct {
	quota *models.WeeklyQuota
}

func (m *mockQuotaSnapshotter) Snapshot(ctx context.Context, session *models.Session) *models.WeeklyQuota {
	return m.quota
}

func historyRecord(id string, status models.OutpassStatus, createdAt time.Time) models.OutpassRequest {
	return models.OutpassRequest{
		ID:            id,
		StudentID:     "stu-1",
		Reason:        "Visiting family over the weekend",
		Destination:   "Ernakulam",
		TransportMode: models.TransportBus,
		StartDate:     "2025-01-11",
		StartTime:     "09:00",
		EndDate:       "2025-01-12",
		EndTime:       "18:00",
		ContactName:   "Anil Thomas",
		ParentConsent: true,
		Status:        status,
		Origin:        models.OriginServer,
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}
}

func TestHistoryListNewestFirst(t *testing.T) {
	base := time.Date(2025, 1, 8, 10, 0, 0, 0, time.UTC)
	upstream := &mockHistoryUpstream{records: []models.OutpassRequest{
		historyRecord("op-old", models.StatusCompleted, base),
		historyRecord("op-new", models.StatusPending, base.Add(48*time.Hour)),
		historyRecord("op-mid", models.StatusApproved, base.Add(24*time.Hour)),
	}}
	store := &mockHistoryStore{}
	svc := NewHistoryService(upstream, store, &mockQuotaSnapshotter{quota: models.NewWeeklyQuota(2, 3, time.Now())}, nil, nil)

	resp, err := svc.List(context.Background(), testSession())
	require.NoError(t, err)
	require.Len(t, resp.Requests, 3)
	assert.Equal(t, "op-new", resp.Requests[0].ID)
	assert.Equal(t, "op-mid", resp.Requests[1].ID)
	assert.Equal(t, "op-old", resp.Requests[2].ID)
	assert.False(t, resp.Degraded)

	// The quota rides along on the same fetch.
	require.NotNil(t, resp.Quota)
	assert.Equal(t, 2, resp.Quota.Count)

	// Server truth refreshes the mirror.
	assert.Len(t, store.mirrored, 3)
}

func TestHistoryListActionsPerStatus(t *testing.T) {
	base := time.Now().UTC()
	upstream := &mockHistoryUpstream{records: []models.OutpassRequest{
		historyRecord("op-pending", models.StatusPending, base),
		historyRecord("op-approved", models.StatusApproved, base),
	}}
	svc := NewHistoryService(upstream, &mockHistoryStore{}, &mockQuotaSnapshotter{quota: models.NewWeeklyQuota(0, 3, base)}, nil, nil)

	resp, err := svc.List(context.Background(), testSession())
	require.NoError(t, err)

	byID := make(map[string]models.AllowedActions)
	for _, item := range resp.Requests {
		byID[item.ID] = item.Actions
	}
	assert.Equal(t, models.AllowedActions{CanEdit: true, CanCancel: true}, byID["op-pending"])
	assert.Equal(t, models.AllowedActions{CanExtend: true}, byID["op-approved"])
}

func TestHistoryListMergesUnreconciledLocal(t *testing.T) {
	base := time.Date(2025, 1, 8, 10, 0, 0, 0, time.UTC)
	localOnly := historyRecord("op-local", models.StatusPending, base.Add(72*time.Hour))
	localOnly.Origin = models.OriginLocal
	alsoOnServer := historyRecord("op-1", models.StatusApproved, base)
	alsoOnServer.Origin = models.OriginLocal

	upstream := &mockHistoryUpstream{records: []models.OutpassRequest{
		historyRecord("op-1", models.StatusApproved, base),
	}}
	store := &mockHistoryStore{local: []models.OutpassRequest{localOnly, alsoOnServer}}
	svc := NewHistoryService(upstream, store, &mockQuotaSnapshotter{quota: models.NewWeeklyQuota(1, 3, base)}, nil, nil)

	resp, err := svc.List(context.Background(), testSession())
	require.NoError(t, err)
	require.Len(t, resp.Requests, 2)
	// The fallback-created record not yet known upstream stays visible, the
	// duplicate id does not double up.
	assert.Equal(t, "op-local", resp.Requests[0].ID)
	assert.Equal(t, models.OriginLocal, resp.Requests[0].Origin)
	assert.Equal(t, "op-1", resp.Requests[1].ID)
}

func TestHistoryListDegradedFromMirror(t *testing.T) {
	base := time.Date(2025, 1, 8, 10, 0, 0, 0, time.UTC)
	upstream := &mockHistoryUpstream{err: errors.New("connection refused")}
	store := &mockHistoryStore{local: []models.OutpassRequest{
		historyRecord("op-1", models.StatusApproved, base),
	}}
	svc := NewHistoryService(upstream, store, &mockQuotaSnapshotter{quota: models.ConservativeQuota(3)}, nil, nil)

	resp, err := svc.List(context.Background(), testSession())
	require.NoError(t, err)
	assert.True(t, resp.Degraded)
	require.Len(t, resp.Requests, 1)
	assert.Equal(t, "op-1", resp.Requests[0].ID)
}

func TestHistoryListUpstreamApplicationError(t *testing.T) {
	upstream := &mockHistoryUpstream{err: &hostelcore.UpstreamError{StatusCode: 401, Message: "token expired"}}
	svc := NewHistoryService(upstream, &mockHistoryStore{}, &mockQuotaSnapshotter{}, nil, nil)

	_, err := svc.List(context.Background(), testSession())
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotAuthenticated))
}

func TestHistoryListUnauthenticated(t *testing.T) {
	svc := NewHistoryService(&mockHistoryUpstream{}, &mockHistoryStore{}, &mockQuotaSnapshotter{}, nil, nil)

	_, err := svc.List(context.Background(), &models.Session{})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotAuthenticated))
}
