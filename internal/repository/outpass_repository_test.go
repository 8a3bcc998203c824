package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tilji-Thomas9137/hostelhaven-outpass-api/internal/models"
)

func newOutpassMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var outpassRowColumns = []string{
	"id", "student_id", "reason", "destination", "transport_mode",
	"start_date", "start_time", "end_date", "end_time",
	"contact_name", "contact_phone", "parent_consent",
	"status", "rejection_reason", "parent_id", "origin", "created_at", "updated_at",
}

func testRecord() *models.OutpassRequest {
	now := time.Now().UTC()
	return &models.OutpassRequest{
		ID:            "op-1",
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
		Status:        models.StatusPending,
		Origin:        models.OriginLocal,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func addRecordRow(rows *sqlmock.Rows, r *models.OutpassRequest) *sqlmock.Rows {
	return rows.AddRow(
		r.ID, r.StudentID, r.Reason, r.Destination, string(r.TransportMode),
		r.StartDate, r.StartTime, r.EndDate, r.EndTime,
		r.ContactName, r.ContactPhone, r.ParentConsent,
		string(r.Status), r.RejectionReason, r.ParentID, string(r.Origin), r.CreatedAt, r.UpdatedAt,
	)
}

func TestOutpassRepositoryInsert(t *testing.T) {
	db, mock, cleanup := newOutpassMock(t)
	defer cleanup()
	repo := NewOutpassRepository(db)

	mock.ExpectExec("INSERT INTO outpass_requests").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Insert(context.Background(), testRecord())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutpassRepositoryUpdate(t *testing.T) {
	db, mock, cleanup := newOutpassMock(t)
	defer cleanup()
	repo := NewOutpassRepository(db)

	mock.ExpectExec("UPDATE outpass_requests SET").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(context.Background(), testRecord())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutpassRepositoryUpdateMissingRow(t *testing.T) {
	db, mock, cleanup := newOutpassMock(t)
	defer cleanup()
	repo := NewOutpassRepository(db)

	mock.ExpectExec("UPDATE outpass_requests SET").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), testRecord())
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestOutpassRepositoryUpdateStatus(t *testing.T) {
	db, mock, cleanup := newOutpassMock(t)
	defer cleanup()
	repo := NewOutpassRepository(db)

	// The degraded cancel must also flip the row to local origin, or the
	// reconcile worker will never pick the cancel up.
	mock.ExpectExec("UPDATE outpass_requests SET status = (.+), origin =").
		WithArgs("op-1", "stu-1", models.StatusCancelled, models.OriginLocal, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateStatus(context.Background(), "op-1", "stu-1", models.StatusCancelled, models.OriginLocal, time.Now())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutpassRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newOutpassMock(t)
	defer cleanup()
	repo := NewOutpassRepository(db)

	record := testRecord()
	mock.ExpectQuery("WHERE id = (.+) AND student_id").
		WithArgs("op-1", "stu-1").
		WillReturnRows(addRecordRow(sqlmock.NewRows(outpassRowColumns), record))

	found, err := repo.FindByID(context.Background(), "op-1", "stu-1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "op-1", found.ID)
	assert.Equal(t, models.StatusPending, found.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutpassRepositoryFindByIDAbsent(t *testing.T) {
	db, mock, cleanup := newOutpassMock(t)
	defer cleanup()
	repo := NewOutpassRepository(db)

	mock.ExpectQuery("WHERE id = (.+) AND student_id").
		WithArgs("op-1", "stu-1").
		WillReturnError(sql.ErrNoRows)

	found, err := repo.FindByID(context.Background(), "op-1", "stu-1")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestOutpassRepositoryListByStudent(t *testing.T) {
	db, mock, cleanup := newOutpassMock(t)
	defer cleanup()
	repo := NewOutpassRepository(db)

	first := testRecord()
	second := testRecord()
	second.ID = "op-2"
	rows := addRecordRow(sqlmock.NewRows(outpassRowColumns), first)
	rows = addRecordRow(rows, second)
	mock.ExpectQuery("WHERE student_id").
		WithArgs("stu-1").
		WillReturnRows(rows)

	records, err := repo.ListByStudent(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutpassRepositoryUpsertFromServer(t *testing.T) {
	db, mock, cleanup := newOutpassMock(t)
	defer cleanup()
	repo := NewOutpassRepository(db)

	mock.ExpectExec("ON CONFLICT \\(id\\) DO UPDATE").
		WillReturnResult(sqlmock.NewResult(0, 1))

	record := testRecord()
	record.Origin = models.OriginServer
	err := repo.UpsertFromServer(context.Background(), record)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutpassRepositoryUpsertFromServerPreservesLocalRows(t *testing.T) {
	db, mock, cleanup := newOutpassMock(t)
	defer cleanup()
	repo := NewOutpassRepository(db)

	// A history refresh racing a fallback write must not overwrite a row the
	// reconcile worker has not pushed upstream yet. The conflict update is
	// conditional on the row's current origin.
	mock.ExpectExec("WHERE outpass_requests\\.origin <> 'local'").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.UpsertFromServer(context.Background(), testRecord()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutpassRepositoryFindLocalByID(t *testing.T) {
	db, mock, cleanup := newOutpassMock(t)
	defer cleanup()
	repo := NewOutpassRepository(db)

	mock.ExpectQuery("WHERE id = (.+) AND origin = 'local'").
		WithArgs("op-1").
		WillReturnRows(addRecordRow(sqlmock.NewRows(outpassRowColumns), testRecord()))

	found, err := repo.FindLocalByID(context.Background(), "op-1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, models.OriginLocal, found.Origin)
}

func TestOutpassRepositoryListUnreconciled(t *testing.T) {
	db, mock, cleanup := newOutpassMock(t)
	defer cleanup()
	repo := NewOutpassRepository(db)

	mock.ExpectQuery("WHERE origin = 'local'").
		WillReturnRows(addRecordRow(sqlmock.NewRows(outpassRowColumns), testRecord()))

	records, err := repo.ListUnreconciled(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestOutpassRepositoryMarkReconciled(t *testing.T) {
	db, mock, cleanup := newOutpassMock(t)
	defer cleanup()
	repo := NewOutpassRepository(db)

	reason := "weekly outpass limit reached"
	mock.ExpectExec("UPDATE outpass_requests").
		WithArgs("op-1", models.StatusRejected, &reason, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.MarkReconciled(context.Background(), "op-1", models.StatusRejected, &reason, time.Now())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutpassRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newOutpassMock(t)
	defer cleanup()
	repo := NewOutpassRepository(db)

	mock.ExpectExec("DELETE FROM outpass_requests").
		WithArgs("op-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Delete(context.Background(), "op-1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
