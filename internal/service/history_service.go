package service

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/Tilji-Thomas9137/hostelhaven-outpass-api/internal/client/hostelcore"
	"github.com/Tilji-Thomas9137/hostelhaven-outpass-api/internal/dto"
	"github.com/Tilji-Thomas9137/hostelhaven-outpass-api/internal/models"
	appErrors "github.com/Tilji-Thomas9137/hostelhaven-outpass-api/pkg/errors"
)

type historyUpstream interface {
	MyRequests(ctx context.Context, token string) ([]models.OutpassRequest, error)
}

type historyStore interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.OutpassRequest, error)
	UpsertFromServer(ctx context.Context, record *models.OutpassRequest) error
}

type quotaSnapshotter interface {
	Snapshot(ctx context.Context, session *models.Session) *models.WeeklyQuota
}

// HistoryService serves the tracking view: the student's request history
// newest-first paired with the quota snapshot, both fetched on the same
// trigger. Authoritative statuses arrive only through this re-fetch; local
// fallback rows that hostel-core does not know yet are merged in on top.
type HistoryService struct {
	upstream historyUpstream
	store    historyStore
	quota    quotaSnapshotter
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewHistoryService builds a HistoryService.
func NewHistoryService(upstream historyUpstream, store historyStore, quota quotaSnapshotter, metrics *MetricsService, logger *zap.Logger) *HistoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HistoryService{upstream: upstream, store: store, quota: quota, metrics: metrics, logger: logger}
}

// List returns the request history with the current quota. When hostel-core
// is unreachable the mirror serves a degraded view, flagged so the UI can say
// the data may be behind.
func (s *HistoryService) List(ctx context.Context, session *models.Session) (*dto.HistoryResponse, error) {
	if !session.Authenticated() {
		return nil, appErrors.ErrNotAuthenticated
	}

	records, degraded, err := s.fetch(ctx, session)
	if err != nil {
		return nil, err
	}

	items := make([]dto.OutpassItem, 0, len(records))
	for i := range records {
		items = append(items, dto.NewOutpassItem(&records[i]))
	}

	return &dto.HistoryResponse{
		Requests: items,
		Quota:    s.quota.Snapshot(ctx, session),
		Degraded: degraded,
	}, nil
}

func (s *HistoryService) fetch(ctx context.Context, session *models.Session) ([]models.OutpassRequest, bool, error) {
	serverRecords, err := s.upstream.MyRequests(ctx, session.Token)
	if err != nil {
		s.metrics.ObserveUpstream("my_requests", "error")
		if !hostelcore.IsUnreachable(err) {
			return nil, false, classifyUpstream(err)
		}

		s.logger.Warn("hostel-core unreachable, serving history from mirror",
			zap.String("student_id", session.StudentID()),
			zap.Error(err))

		local, localErr := s.store.ListByStudent(ctx, session.StudentID())
		if localErr != nil {
			return nil, false, appErrors.Wrap(localErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load outpass history")
		}
		return local, true, nil
	}
	s.metrics.ObserveUpstream("my_requests", "ok")

	// Refresh the mirror with server truth so guards and the degraded view
	// observe approvals and rejections.
	for i := range serverRecords {
		if err := s.store.UpsertFromServer(ctx, &serverRecords[i]); err != nil {
			s.logger.Warn("failed to mirror outpass record", zap.String("outpass_id", serverRecords[i].ID), zap.Error(err))
		}
	}

	merged := s.mergeLocal(ctx, session.StudentID(), serverRecords)
	sortNewestFirst(merged)
	return merged, false, nil
}

// mergeLocal layers unreconciled fallback rows over the server list so a
// record created during an outage stays visible until reconciliation.
func (s *HistoryService) mergeLocal(ctx context.Context, studentID string, serverRecords []models.OutpassRequest) []models.OutpassRequest {
	local, err := s.store.ListByStudent(ctx, studentID)
	if err != nil {
		s.logger.Warn("failed to load local mirror for merge", zap.Error(err))
		return serverRecords
	}

	seen := make(map[string]struct{}, len(serverRecords))
	for _, record := range serverRecords {
		seen[record.ID] = struct{}{}
	}

	merged := serverRecords
	for i := range local {
		if local[i].Origin != models.OriginLocal {
			continue
		}
		if _, ok := seen[local[i].ID]; ok {
			continue
		}
		merged = append(merged, local[i])
	}
	return merged
}

func sortNewestFirst(records []models.OutpassRequest) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
}
