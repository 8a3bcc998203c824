package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Tilji-Thomas9137/hostelhaven-outpass-api/internal/client/hostelcore"
	"github.com/Tilji-Thomas9137/hostelhaven-outpass-api/internal/dto"
	"github.com/Tilji-Thomas9137/hostelhaven-outpass-api/internal/models"
	"github.com/Tilji-Thomas9137/hostelhaven-outpass-api/pkg/config"
	"github.com/Tilji-Thomas9137/hostelhaven-outpass-api/pkg/jobs"
)

const reconcileJobType = "reconcile_outpass"

type reconcileStore interface {
	FindLocalByID(ctx context.Context, id string) (*models.OutpassRequest, error)
	ListUnreconciled(ctx context.Context) ([]models.OutpassRequest, error)
	MarkReconciled(ctx context.Context, id string, status models.OutpassStatus, rejectionReason *string, updatedAt time.Time) error
	UpsertFromServer(ctx context.Context, record *models.OutpassRequest) error
	Delete(ctx context.Context, id string) error
}

type reconcileUpstream interface {
	CreateRequestAs(ctx context.Context, serviceToken, studentID string, form dto.OutpassForm) (*models.OutpassRequest, error)
	ExtendRequest(ctx context.Context, token, id string, form dto.ExtendOutpassForm) (*models.OutpassRequest, error)
	CancelRequest(ctx context.Context, token, id string) (*models.OutpassRequest, error)
}

// ReconcileService pushes fallback-created records to hostel-core once it is
// reachable again. Fallback writes bypass server-side business-rule
// re-validation, so a record hostel-core now refuses is marked rejected with
// the refusal as its rejection reason rather than silently kept.
type ReconcileService struct {
	store        reconcileStore
	upstream     reconcileUpstream
	serviceToken string
	queue        *jobs.Queue
	logger       *zap.Logger
	now          func() time.Time
}

// NewReconcileService builds the service and its worker queue.
func NewReconcileService(store reconcileStore, upstream reconcileUpstream, cfg config.ReconcileConfig, serviceToken string, logger *zap.Logger) *ReconcileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ReconcileService{
		store:        store,
		upstream:     upstream,
		serviceToken: serviceToken,
		logger:       logger,
		now:          time.Now,
	}
	s.queue = jobs.NewQueue("outpass-reconcile", s.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return s
}

// Start launches the workers and re-enqueues any rows left over from a
// previous run.
func (s *ReconcileService) Start(ctx context.Context) {
	s.queue.Start(ctx)

	pending, err := s.store.ListUnreconciled(ctx)
	if err != nil {
		s.logger.Warn("failed to sweep unreconciled outpasses", zap.Error(err))
		return
	}
	for i := range pending {
		s.EnqueueRecord(pending[i].ID)
	}
}

// Stop drains the worker pool.
func (s *ReconcileService) Stop() {
	s.queue.Stop()
}

// EnqueueRecord schedules one fallback record for reconciliation.
func (s *ReconcileService) EnqueueRecord(recordID string) {
	job := jobs.Job{
		ID:      uuid.NewString(),
		Type:    reconcileJobType,
		Payload: recordID,
	}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("failed to enqueue reconcile job", zap.String("outpass_id", recordID), zap.Error(err))
	}
}

func (s *ReconcileService) handle(ctx context.Context, job jobs.Job) error {
	recordID, ok := job.Payload.(string)
	if !ok {
		s.logger.Error("reconcile job carries unexpected payload", zap.Any("payload", job.Payload))
		return nil
	}

	record, err := s.store.FindLocalByID(ctx, recordID)
	if err != nil {
		return err
	}
	if record == nil {
		// Already reconciled or deleted, nothing to do.
		return nil
	}

	switch {
	case record.Status == models.StatusCancelled:
		return s.reconcileCancel(ctx, record)
	case record.Extension():
		return s.reconcileExtension(ctx, record)
	default:
		return s.reconcileCreate(ctx, record)
	}
}

func (s *ReconcileService) reconcileCreate(ctx context.Context, record *models.OutpassRequest) error {
	server, err := s.upstream.CreateRequestAs(ctx, s.serviceToken, record.StudentID, formFromRecord(record))
	if err != nil {
		return s.handleRefusal(ctx, record, err)
	}
	return s.replaceLocal(ctx, record, server)
}

func (s *ReconcileService) reconcileExtension(ctx context.Context, record *models.OutpassRequest) error {
	form := dto.ExtendOutpassForm{
		EndDate: record.EndDate,
		EndTime: record.EndTime,
		Reason:  record.Reason,
	}
	server, err := s.upstream.ExtendRequest(ctx, s.serviceToken, *record.ParentID, form)
	if err != nil {
		return s.handleRefusal(ctx, record, err)
	}
	return s.replaceLocal(ctx, record, server)
}

func (s *ReconcileService) reconcileCancel(ctx context.Context, record *models.OutpassRequest) error {
	_, err := s.upstream.CancelRequest(ctx, s.serviceToken, record.ID)
	if err != nil {
		var ue *hostelcore.UpstreamError
		if errors.As(err, &ue) && ue.StatusCode == http.StatusNotFound {
			// The record never reached hostel-core, the local cancel stands.
			return s.store.MarkReconciled(ctx, record.ID, models.StatusCancelled, nil, s.now().UTC())
		}
		return s.handleRefusal(ctx, record, err)
	}
	return s.store.MarkReconciled(ctx, record.ID, models.StatusCancelled, nil, s.now().UTC())
}

// handleRefusal distinguishes a still-unreachable backend (retry) from an
// application refusal (record the rejection, stop retrying).
func (s *ReconcileService) handleRefusal(ctx context.Context, record *models.OutpassRequest, err error) error {
	var ue *hostelcore.UpstreamError
	if !errors.As(err, &ue) || ue.StatusCode >= http.StatusInternalServerError || ue.Code == hostelcore.CodeMalformedResponse {
		// No decoded verdict from hostel-core, retry rather than record a
		// rejection the backend never issued.
		return err
	}

	reason := ue.Message
	if reason == "" {
		reason = fmt.Sprintf("hostel-core refused the record (status %d)", ue.StatusCode)
	}
	s.logger.Warn("fallback outpass refused during reconciliation",
		zap.String("outpass_id", record.ID),
		zap.Int("status", ue.StatusCode),
		zap.String("reason", reason))

	return s.store.MarkReconciled(ctx, record.ID, models.StatusRejected, &reason, s.now().UTC())
}

func (s *ReconcileService) replaceLocal(ctx context.Context, local *models.OutpassRequest, server *models.OutpassRequest) error {
	if err := s.store.Delete(ctx, local.ID); err != nil {
		return err
	}
	if err := s.store.UpsertFromServer(ctx, server); err != nil {
		return err
	}
	s.logger.Info("fallback outpass reconciled",
		zap.String("local_id", local.ID),
		zap.String("server_id", server.ID))
	return nil
}

func formFromRecord(record *models.OutpassRequest) dto.OutpassForm {
	form := dto.OutpassForm{
		Reason:        record.Reason,
		Destination:   record.Destination,
		TransportMode: string(record.TransportMode),
		StartDate:     record.StartDate,
		StartTime:     record.StartTime,
		EndDate:       record.EndDate,
		EndTime:       record.EndTime,
		ContactName:   record.ContactName,
		ParentConsent: record.ParentConsent,
	}
	if record.ContactPhone != nil {
		form.ContactPhone = *record.ContactPhone
	}
	return form
}
