package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Tilji-Thomas9137/hostelhaven-outpass-api/internal/models"
)

// OutpassRepository persists the local mirror of outpass requests. The mirror
// serves two purposes: it is the degraded write target when hostel-core is
// unreachable, and the fallback read source for history. Hostel-core remains
// the source of truth; mirror rows are refreshed on every successful list.
type OutpassRepository struct {
	db *sqlx.DB
}

// NewOutpassRepository constructs the repository.
func NewOutpassRepository(db *sqlx.DB) *OutpassRepository {
	return &OutpassRepository{db: db}
}

const outpassColumns = `id, student_id, reason, destination, transport_mode,
	start_date, start_time, end_date, end_time,
	contact_name, contact_phone, parent_consent,
	status, rejection_reason, parent_id, origin, created_at, updated_at`

// Insert writes a new record, used by the degraded create path.
func (r *OutpassRepository) Insert(ctx context.Context, record *models.OutpassRequest) error {
	const query = `
INSERT INTO outpass_requests (` + outpassColumns + `)
VALUES (:id, :student_id, :reason, :destination, :transport_mode,
	:start_date, :start_time, :end_date, :end_time,
	:contact_name, :contact_phone, :parent_consent,
	:status, :rejection_reason, :parent_id, :origin, :created_at, :updated_at)`

	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("insert outpass request: %w", err)
	}
	return nil
}

// Update rewrites the content fields and status of an existing record owned
// by the given student.
func (r *OutpassRepository) Update(ctx context.Context, record *models.OutpassRequest) error {
	const query = `
UPDATE outpass_requests SET
	reason = :reason,
	destination = :destination,
	transport_mode = :transport_mode,
	start_date = :start_date,
	start_time = :start_time,
	end_date = :end_date,
	end_time = :end_time,
	contact_name = :contact_name,
	contact_phone = :contact_phone,
	parent_consent = :parent_consent,
	status = :status,
	rejection_reason = :rejection_reason,
	origin = :origin,
	updated_at = :updated_at
WHERE id = :id AND student_id = :student_id`

	res, err := r.db.NamedExecContext(ctx, query, record)
	if err != nil {
		return fmt.Errorf("update outpass request: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateStatus moves a record to a new status and origin, used by the
// degraded cancel path. A cancel written while hostel-core is down must flip
// the row to local origin so the reconcile worker can find and push it.
func (r *OutpassRepository) UpdateStatus(ctx context.Context, id, studentID string, status models.OutpassStatus, origin models.RecordOrigin, updatedAt time.Time) error {
	const query = `
UPDATE outpass_requests SET status = $3, origin = $4, updated_at = $5
WHERE id = $1 AND student_id = $2`

	res, err := r.db.ExecContext(ctx, query, id, studentID, status, origin, updatedAt)
	if err != nil {
		return fmt.Errorf("update outpass status: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// FindByID loads a record scoped to its owner. Returns nil when absent.
func (r *OutpassRepository) FindByID(ctx context.Context, id, studentID string) (*models.OutpassRequest, error) {
	const query = `
SELECT ` + outpassColumns + `
FROM outpass_requests
WHERE id = $1 AND student_id = $2`

	var record models.OutpassRequest
	if err := r.db.GetContext(ctx, &record, query, id, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find outpass request: %w", err)
	}
	return &record, nil
}

// ListByStudent returns the student's history newest-first.
func (r *OutpassRepository) ListByStudent(ctx context.Context, studentID string) ([]models.OutpassRequest, error) {
	const query = `
SELECT ` + outpassColumns + `
FROM outpass_requests
WHERE student_id = $1
ORDER BY created_at DESC`

	var records []models.OutpassRequest
	if err := r.db.SelectContext(ctx, &records, query, studentID); err != nil {
		return nil, fmt.Errorf("list outpass requests: %w", err)
	}
	return records, nil
}

// UpsertFromServer refreshes a mirror row from an authoritative hostel-core
// record. Rows still marked local are left untouched: a fallback write
// awaiting reconciliation must not be clobbered by a concurrent history
// refresh, or the reconcile worker would no longer find it.
func (r *OutpassRepository) UpsertFromServer(ctx context.Context, record *models.OutpassRequest) error {
	const query = `
INSERT INTO outpass_requests (` + outpassColumns + `)
VALUES (:id, :student_id, :reason, :destination, :transport_mode,
	:start_date, :start_time, :end_date, :end_time,
	:contact_name, :contact_phone, :parent_consent,
	:status, :rejection_reason, :parent_id, :origin, :created_at, :updated_at)
ON CONFLICT (id) DO UPDATE SET
	reason = EXCLUDED.reason,
	destination = EXCLUDED.destination,
	transport_mode = EXCLUDED.transport_mode,
	start_date = EXCLUDED.start_date,
	start_time = EXCLUDED.start_time,
	end_date = EXCLUDED.end_date,
	end_time = EXCLUDED.end_time,
	contact_name = EXCLUDED.contact_name,
	contact_phone = EXCLUDED.contact_phone,
	parent_consent = EXCLUDED.parent_consent,
	status = EXCLUDED.status,
	rejection_reason = EXCLUDED.rejection_reason,
	parent_id = EXCLUDED.parent_id,
	origin = EXCLUDED.origin,
	updated_at = EXCLUDED.updated_at
WHERE outpass_requests.origin <> 'local'`

	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("upsert outpass request: %w", err)
	}
	return nil
}

// FindLocalByID loads a fallback-origin row without owner scoping, for the
// reconcile worker. Returns nil when the row is gone or already reconciled.
func (r *OutpassRepository) FindLocalByID(ctx context.Context, id string) (*models.OutpassRequest, error) {
	const query = `
SELECT ` + outpassColumns + `
FROM outpass_requests
WHERE id = $1 AND origin = 'local'`

	var record models.OutpassRequest
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find local outpass request: %w", err)
	}
	return &record, nil
}

// Delete removes a row, used when a reconciled fallback record is replaced by
// its server-assigned copy.
func (r *OutpassRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM outpass_requests WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete outpass request: %w", err)
	}
	return nil
}

// ListUnreconciled returns fallback-created rows awaiting reconciliation.
func (r *OutpassRepository) ListUnreconciled(ctx context.Context) ([]models.OutpassRequest, error) {
	const query = `
SELECT ` + outpassColumns + `
FROM outpass_requests
WHERE origin = 'local'
ORDER BY created_at ASC`

	var records []models.OutpassRequest
	if err := r.db.SelectContext(ctx, &records, query); err != nil {
		return nil, fmt.Errorf("list unreconciled requests: %w", err)
	}
	return records, nil
}

// MarkReconciled flips a fallback row to server origin, optionally recording
// a rejection reason when hostel-core refused the record after the fact.
func (r *OutpassRepository) MarkReconciled(ctx context.Context, id string, status models.OutpassStatus, rejectionReason *string, updatedAt time.Time) error {
	const query = `
UPDATE outpass_requests
SET origin = 'server', status = $2, rejection_reason = $3, updated_at = $4
WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id, status, rejectionReason, updatedAt)
	if err != nil {
		return fmt.Errorf("mark outpass reconciled: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
