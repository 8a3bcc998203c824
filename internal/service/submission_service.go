package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Tilji-Thomas9137/hostelhaven-outpass-api/internal/client/hostelcore"
	"github.com/Tilji-Thomas9137/hostelhaven-outpass-api/internal/dto"
	"github.com/Tilji-Thomas9137/hostelhaven-outpass-api/internal/models"
	appErrors "github.com/Tilji-Thomas9137/hostelhaven-outpass-api/pkg/errors"
)

// SubmitMode distinguishes the three mutating submission flows.
type SubmitMode string

const (
	ModeCreate SubmitMode = "create"
	ModeEdit   SubmitMode = "edit"
	ModeExtend SubmitMode = "extend"
)

type submissionUpstream interface {
	CreateRequest(ctx context.Context, token string, form dto.OutpassForm) (*models.OutpassRequest, error)
	UpdateRequest(ctx context.Context, token, id string, form dto.OutpassForm) (*models.OutpassRequest, error)
	ExtendRequest(ctx context.Context, token, id string, form dto.ExtendOutpassForm) (*models.OutpassRequest, error)
	CancelRequest(ctx context.Context, token, id string) (*models.OutpassRequest, error)
}

type outpassStore interface {
	Insert(ctx context.Context, record *models.OutpassRequest) error
	Update(ctx context.Context, record *models.OutpassRequest) error
	UpdateStatus(ctx context.Context, id, studentID string, status models.OutpassStatus, origin models.RecordOrigin, updatedAt time.Time) error
	FindByID(ctx context.Context, id, studentID string) (*models.OutpassRequest, error)
	UpsertFromServer(ctx context.Context, record *models.OutpassRequest) error
}

type quotaGate interface {
	Snapshot(ctx context.Context, session *models.Session) *models.WeeklyQuota
	Fresh(ctx context.Context, session *models.Session) (*models.WeeklyQuota, error)
	Invalidate(ctx context.Context, studentID string)
}

type eligibilityGate interface {
	Resolve(ctx context.Context, session *models.Session) models.EligibilityState
}

type reconcileEnqueuer interface {
	EnqueueRecord(recordID string)
}

// SubmissionService orchestrates the outpass submission pipeline: field and
// window validation, the eligibility gate, the quota re-check, the primary
// hostel-core write and the degraded direct write when the primary is
// unreachable. Its pre-checks are advisory; hostel-core re-validates on the
// primary path. Fallback-created records bypass that re-validation and stay
// unverified until the reconcile worker pushes them upstream.
type SubmissionService struct {
	upstream    submissionUpstream
	store       outpassStore
	quota       quotaGate
	eligibility eligibilityGate
	reconciler  reconcileEnqueuer
	validator   *validator.Validate
	metrics     *MetricsService
	logger      *zap.Logger
	now         func() time.Time
}

// NewSubmissionService builds a SubmissionService with sane defaults.
func NewSubmissionService(
	upstream submissionUpstream,
	store outpassStore,
	quota quotaGate,
	eligibility eligibilityGate,
	reconciler reconcileEnqueuer,
	validate *validator.Validate,
	metrics *MetricsService,
	logger *zap.Logger,
) *SubmissionService {
	if validate == nil {
		validate = dto.NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubmissionService{
		upstream:    upstream,
		store:       store,
		quota:       quota,
		eligibility: eligibility,
		reconciler:  reconciler,
		validator:   validate,
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
	}
}

// Create submits a new outpass request. Preconditions short-circuit in order:
// field schema, date window, eligibility gate, fresh quota re-check.
func (s *SubmissionService) Create(ctx context.Context, session *models.Session, form dto.OutpassForm) (*dto.OutpassItem, error) {
	if !session.Authenticated() {
		return nil, appErrors.ErrNotAuthenticated
	}
	if err := s.validateForm(form); err != nil {
		return nil, err
	}
	if err := s.checkEligibility(ctx, session); err != nil {
		return nil, err
	}
	if err := s.checkQuota(ctx, session); err != nil {
		return nil, err
	}

	record, path, err := s.writeThrough(ctx, ModeCreate,
		func() (*models.OutpassRequest, error) {
			return s.upstream.CreateRequest(ctx, session.Token, form)
		},
		func() (*models.OutpassRequest, error) {
			record := s.newLocalRecord(session.StudentID(), form, nil)
			if err := s.store.Insert(ctx, record); err != nil {
				return nil, err
			}
			return record, nil
		},
	)
	if err != nil {
		s.metrics.ObserveSubmission(string(ModeCreate), path, "error")
		return nil, err
	}
	s.metrics.ObserveSubmission(string(ModeCreate), path, "ok")

	s.finishMutation(ctx, session, record, path)
	item := dto.NewOutpassItem(record)
	return &item, nil
}

// Edit rewrites a pending request, or resubmits a rejected one as a fresh
// pending request on the same record id. Eligibility and quota are skipped:
// the record's existence implies prior eligibility and the edit consumes no
// additional quota.
func (s *SubmissionService) Edit(ctx context.Context, session *models.Session, id string, form dto.OutpassForm) (*dto.OutpassItem, error) {
	if !session.Authenticated() {
		return nil, appErrors.ErrNotAuthenticated
	}
	if err := s.validateForm(form); err != nil {
		return nil, err
	}

	existing, err := s.loadRecord(ctx, session, id)
	if err != nil {
		return nil, err
	}
	if !existing.Status.Allows(models.ActionEdit) {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("a %s outpass cannot be edited", existing.Status))
	}
	resubmit := existing.Status == models.StatusRejected

	record, path, err := s.writeThrough(ctx, ModeEdit,
		func() (*models.OutpassRequest, error) {
			return s.upstream.UpdateRequest(ctx, session.Token, id, form)
		},
		func() (*models.OutpassRequest, error) {
			updated := *existing
			applyForm(&updated, form)
			updated.Status = models.StatusPending
			updated.RejectionReason = nil
			updated.Origin = models.OriginLocal
			updated.UpdatedAt = s.now().UTC()
			if err := s.store.Update(ctx, &updated); err != nil {
				return nil, err
			}
			return &updated, nil
		},
	)
	if err != nil {
		s.metrics.ObserveSubmission(string(ModeEdit), path, "error")
		return nil, err
	}
	s.metrics.ObserveSubmission(string(ModeEdit), path, "ok")

	if resubmit {
		s.logger.Info("rejected outpass resubmitted",
			zap.String("outpass_id", id),
			zap.String("student_id", session.StudentID()))
	}

	s.finishMutation(ctx, session, record, path)
	item := dto.NewOutpassItem(record)
	return &item, nil
}

// Extend creates a linked pending extension of an approved request. The new
// end window is validated against the original start, which may already be in
// the past for an in-progress outpass; the original record stays approved
// until the extension is itself decided upstream.
func (s *SubmissionService) Extend(ctx context.Context, session *models.Session, id string, form dto.ExtendOutpassForm) (*dto.OutpassItem, error) {
	if !session.Authenticated() {
		return nil, appErrors.ErrNotAuthenticated
	}
	if err := s.validator.Struct(form); err != nil {
		return nil, schemaError(err)
	}

	existing, err := s.loadRecord(ctx, session, id)
	if err != nil {
		return nil, err
	}
	if !existing.Status.Allows(models.ActionExtend) {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("a %s outpass cannot be extended", existing.Status))
	}

	if violation := ValidateExtensionWindow(existing.StartDate, existing.StartTime, form.EndDate, form.EndTime); violation != nil {
		return nil, windowError(violation)
	}

	record, path, err := s.writeThrough(ctx, ModeExtend,
		func() (*models.OutpassRequest, error) {
			return s.upstream.ExtendRequest(ctx, session.Token, id, form)
		},
		func() (*models.OutpassRequest, error) {
			extension := s.newExtensionRecord(existing, form)
			if err := s.store.Insert(ctx, extension); err != nil {
				return nil, err
			}
			return extension, nil
		},
	)
	if err != nil {
		s.metrics.ObserveSubmission(string(ModeExtend), path, "error")
		return nil, err
	}
	s.metrics.ObserveSubmission(string(ModeExtend), path, "ok")

	s.finishMutation(ctx, session, record, path)
	item := dto.NewOutpassItem(record)
	return &item, nil
}

// Cancel transitions a pending request to cancelled. The only status that
// allows cancellation is pending.
func (s *SubmissionService) Cancel(ctx context.Context, session *models.Session, id string) (*dto.OutpassItem, error) {
	if !session.Authenticated() {
		return nil, appErrors.ErrNotAuthenticated
	}

	existing, err := s.loadRecord(ctx, session, id)
	if err != nil {
		return nil, err
	}
	if !existing.Status.Allows(models.ActionCancel) {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("a %s outpass cannot be cancelled", existing.Status))
	}

	record, path, err := s.writeThrough(ctx, "cancel",
		func() (*models.OutpassRequest, error) {
			return s.upstream.CancelRequest(ctx, session.Token, id)
		},
		func() (*models.OutpassRequest, error) {
			// The row flips to local origin even when it came from the
			// server: the reconcile worker only sees local rows, and the
			// cancel still has to reach hostel-core.
			now := s.now().UTC()
			if err := s.store.UpdateStatus(ctx, id, session.StudentID(), models.StatusCancelled, models.OriginLocal, now); err != nil {
				return nil, err
			}
			cancelled := *existing
			cancelled.Status = models.StatusCancelled
			cancelled.Origin = models.OriginLocal
			cancelled.UpdatedAt = now
			return &cancelled, nil
		},
	)
	if err != nil {
		s.metrics.ObserveSubmission("cancel", path, "error")
		return nil, err
	}
	s.metrics.ObserveSubmission("cancel", path, "ok")

	s.finishMutation(ctx, session, record, path)
	item := dto.NewOutpassItem(record)
	return &item, nil
}

func (s *SubmissionService) validateForm(form dto.OutpassForm) error {
	if err := s.validator.Struct(form); err != nil {
		return schemaError(err)
	}
	if violation := ValidateWindow(form.StartDate, form.StartTime, form.EndDate, form.EndTime, s.now()); violation != nil {
		return windowError(violation)
	}
	return nil
}

func (s *SubmissionService) checkEligibility(ctx context.Context, session *models.Session) error {
	state := s.eligibility.Resolve(ctx, session)
	if !state.Resolved() {
		return appErrors.ErrEligibilityUnresolved
	}
	if state.Status == models.EligibilityIneligible {
		return appErrors.ErrNotEligible
	}
	return nil
}

func (s *SubmissionService) checkQuota(ctx context.Context, session *models.Session) error {
	quota, err := s.quota.Fresh(ctx, session)
	if err != nil {
		if !hostelcore.IsUnreachable(err) {
			return classifyUpstream(err)
		}
		// Quota endpoint unreachable: same partial-outage posture as the
		// write path, fall back to the advisory memoized snapshot.
		quota = s.quota.Snapshot(ctx, session)
	}
	if !quota.CanRequest {
		return appErrors.Clone(appErrors.ErrQuotaExceeded,
			fmt.Sprintf("weekly outpass limit reached (%d of %d used)", quota.Count, quota.Limit))
	}
	return nil
}

func (s *SubmissionService) loadRecord(ctx context.Context, session *models.Session, id string) (*models.OutpassRequest, error) {
	record, err := s.store.FindByID(ctx, id, session.StudentID())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load outpass request")
	}
	if record == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "outpass request not found")
	}
	return record, nil
}

// writeThrough runs the primary hostel-core write and degrades to the direct
// mirror write only on network-level failures. Application errors from the
// primary are classified and returned as-is. A context that died while the
// call was in flight never reaches the fallback: the result of a dead
// submission is discarded, not committed.
func (s *SubmissionService) writeThrough(
	ctx context.Context,
	mode SubmitMode,
	primary func() (*models.OutpassRequest, error),
	fallback func() (*models.OutpassRequest, error),
) (*models.OutpassRequest, string, error) {
	record, err := primary()
	if err == nil {
		return record, SubmissionPathPrimary, nil
	}

	if ctx.Err() != nil {
		return nil, SubmissionPathPrimary, appErrors.Wrap(ctx.Err(), appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "submission abandoned by caller")
	}

	if !hostelcore.IsUnreachable(err) {
		return nil, SubmissionPathPrimary, classifyUpstream(err)
	}

	s.logger.Warn("hostel-core unreachable, taking degraded write path",
		zap.String("mode", string(mode)),
		zap.Error(err))

	record, fbErr := fallback()
	if fbErr != nil {
		return nil, SubmissionPathFallback, appErrors.Wrap(fbErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "submission failed")
	}
	return record, SubmissionPathFallback, nil
}

// finishMutation refreshes derived state after a successful write: the quota
// memo is dropped, server records are mirrored, and fallback records are
// queued for reconciliation against hostel-core.
func (s *SubmissionService) finishMutation(ctx context.Context, session *models.Session, record *models.OutpassRequest, path string) {
	s.quota.Invalidate(ctx, session.StudentID())

	if path == SubmissionPathPrimary {
		if err := s.store.UpsertFromServer(ctx, record); err != nil {
			s.logger.Warn("failed to mirror hostel-core record", zap.String("outpass_id", record.ID), zap.Error(err))
		}
		return
	}

	if s.reconciler != nil {
		s.reconciler.EnqueueRecord(record.ID)
	}
}

func (s *SubmissionService) newLocalRecord(studentID string, form dto.OutpassForm, parentID *string) *models.OutpassRequest {
	now := s.now().UTC()
	record := &models.OutpassRequest{
		ID:            uuid.NewString(),
		StudentID:     studentID,
		Reason:        form.Reason,
		Destination:   form.Destination,
		TransportMode: models.TransportMode(form.TransportMode),
		StartDate:     form.StartDate,
		StartTime:     form.StartTime,
		EndDate:       form.EndDate,
		EndTime:       form.EndTime,
		ContactName:   form.ContactName,
		ParentConsent: form.ParentConsent,
		Status:        models.StatusPending,
		ParentID:      parentID,
		Origin:        models.OriginLocal,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if form.ContactPhone != "" {
		phone := form.ContactPhone
		record.ContactPhone = &phone
	}
	return record
}

func (s *SubmissionService) newExtensionRecord(original *models.OutpassRequest, form dto.ExtendOutpassForm) *models.OutpassRequest {
	now := s.now().UTC()
	parentID := original.ID
	reason := original.Reason
	if form.Reason != "" {
		reason = form.Reason
	}
	extension := *original
	extension.ID = uuid.NewString()
	extension.Reason = reason
	extension.EndDate = form.EndDate
	extension.EndTime = form.EndTime
	extension.Status = models.StatusPending
	extension.RejectionReason = nil
	extension.ParentID = &parentID
	extension.Origin = models.OriginLocal
	extension.CreatedAt = now
	extension.UpdatedAt = now
	return &extension
}

func applyForm(record *models.OutpassRequest, form dto.OutpassForm) {
	record.Reason = form.Reason
	record.Destination = form.Destination
	record.TransportMode = models.TransportMode(form.TransportMode)
	record.StartDate = form.StartDate
	record.StartTime = form.StartTime
	record.EndDate = form.EndDate
	record.EndTime = form.EndTime
	record.ContactName = form.ContactName
	record.ContactPhone = nil
	if form.ContactPhone != "" {
		phone := form.ContactPhone
		record.ContactPhone = &phone
	}
	record.ParentConsent = form.ParentConsent
}

func schemaError(err error) error {
	fields := dto.FieldErrors(err)
	if len(fields) > 0 {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status,
			fmt.Sprintf("invalid %s", fields[0].Field))
	}
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid outpass payload")
}

func windowError(v *WindowViolation) error {
	return appErrors.New(v.Code, http.StatusBadRequest, v.Message)
}

// classifyUpstream maps application-level hostel-core errors onto the local
// taxonomy. Raw transport errors never reach the caller unclassified.
func classifyUpstream(err error) error {
	var ue *hostelcore.UpstreamError
	if !errors.As(err, &ue) {
		return appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "submission failed")
	}

	message := ue.Message
	switch {
	case ue.Code == hostelcore.CodeMalformedResponse:
		// The request reached hostel-core and may have been applied there, so
		// a shadow fallback write could duplicate it. Surface a server error
		// instead of degrading.
		return appErrors.Wrap(ue, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "hostel-core returned an unreadable response")
	case ue.StatusCode == http.StatusUnauthorized:
		return appErrors.Clone(appErrors.ErrNotAuthenticated, message)
	case ue.StatusCode == http.StatusConflict:
		return appErrors.Clone(appErrors.ErrConflict, message)
	case ue.StatusCode == http.StatusTooManyRequests:
		return appErrors.Clone(appErrors.ErrQuotaExceeded, message)
	case ue.StatusCode == http.StatusNotFound:
		return appErrors.Clone(appErrors.ErrNotFound, message)
	case ue.StatusCode >= http.StatusInternalServerError:
		if message == "" {
			message = "submission failed"
		}
		return appErrors.Wrap(ue, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, message)
	default:
		return appErrors.Wrap(ue, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
	}
}
