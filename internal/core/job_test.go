package core

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	temporalclient "go.temporal.io/sdk/client"
	temporalmocks "go.temporal.io/sdk/mocks"

	"github.com/Pcnaid-Dev/dcvaas-delegated-dcv-main-sub001/internal/model"
)

func jobRow(j model.Job) *mockRow {
	return &mockRow{scanFunc: func(dest ...any) error {
		*(dest[0].(*string)) = j.ID
		*(dest[1].(*string)) = j.Type
		*(dest[2].(*string)) = j.DomainID
		*(dest[3].(*string)) = j.Status
		*(dest[4].(*int)) = j.Attempts
		*(dest[5].(**string)) = j.LastError
		*(dest[6].(**string)) = j.Result
		*(dest[7].(*time.Time)) = j.CreatedAt
		*(dest[8].(*time.Time)) = j.UpdatedAt
		return nil
	}}
}

func TestJobService_Enqueue_StartsConsumerWorkflow(t *testing.T) {
	db := &mockDB{}
	tc := &temporalmocks.Client{}
	svc := NewJobService(db, tc, 5)
	ctx := context.Background()

	db.On("QueryRow", ctx, sqlContains("SELECT EXISTS"), mock.Anything).
		Return(boolRow(true))
	db.On("Exec", ctx, sqlContains("INSERT INTO jobs"), mock.Anything).
		Return(pgconn.CommandTag{}, nil)
	tc.On("ExecuteWorkflow", mock.Anything,
		mock.MatchedBy(func(opts temporalclient.StartWorkflowOptions) bool {
			return opts.TaskQueue == "dcv-tasks" && opts.ID != ""
		}),
		"ProcessJobWorkflow", mock.AnythingOfType("string"), 5,
	).Return(nil, nil)

	job, err := svc.Enqueue(ctx, "org-1", model.JobTypeDNSCheck, "dom-1")
	require.NoError(t, err)

	assert.Equal(t, model.JobStatusQueued, job.Status)
	assert.Equal(t, 0, job.Attempts)
	assert.Equal(t, model.JobTypeDNSCheck, job.Type)
	tc.AssertExpectations(t)
	db.AssertExpectations(t)
}

func TestJobService_Enqueue_UnknownType(t *testing.T) {
	db := &mockDB{}
	tc := &temporalmocks.Client{}
	svc := NewJobService(db, tc, 5)

	_, err := svc.Enqueue(context.Background(), "org-1", "defragment_dns", "dom-1")
	assert.ErrorIs(t, err, ErrUnknownJobType)
	db.AssertNotCalled(t, "Exec", mock.Anything, mock.Anything, mock.Anything)
}

func TestJobService_Enqueue_ForeignDomainLooksMissing(t *testing.T) {
	db := &mockDB{}
	tc := &temporalmocks.Client{}
	svc := NewJobService(db, tc, 5)
	ctx := context.Background()

	db.On("QueryRow", ctx, sqlContains("SELECT EXISTS"), mock.Anything).
		Return(boolRow(false))

	_, err := svc.Enqueue(ctx, "org-2", model.JobTypeDNSCheck, "dom-1")
	assert.ErrorIs(t, err, ErrNotFound)
	tc.AssertNotCalled(t, "ExecuteWorkflow",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestJobService_Enqueue_TemporalDown(t *testing.T) {
	db := &mockDB{}
	tc := &temporalmocks.Client{}
	svc := NewJobService(db, tc, 5)
	ctx := context.Background()

	db.On("QueryRow", ctx, sqlContains("SELECT EXISTS"), mock.Anything).
		Return(boolRow(true))
	db.On("Exec", ctx, sqlContains("INSERT INTO jobs"), mock.Anything).
		Return(pgconn.CommandTag{}, nil)
	tc.On("ExecuteWorkflow", mock.Anything, mock.Anything,
		"ProcessJobWorkflow", mock.Anything, mock.Anything).
		Return(nil, assert.AnError)
	// The inserted row must not stay queued: an orphaned queued job would
	// suppress sweep selection for the domain forever.
	db.On("Exec", ctx, sqlContains("UPDATE jobs SET status"), mock.MatchedBy(func(args []any) bool {
		return len(args) >= 1 && args[0] == model.JobStatusFailed
	})).Return(pgconn.CommandTag{}, nil)

	_, err := svc.Enqueue(ctx, "org-1", model.JobTypeSyncStatus, "dom-1")
	assert.ErrorContains(t, err, "start ProcessJobWorkflow")
	db.AssertExpectations(t)
}

func TestJobService_GetByID_NotFound(t *testing.T) {
	db := &mockDB{}
	svc := NewJobService(db, &temporalmocks.Client{}, 5)
	ctx := context.Background()

	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).
		Return(errNoRowsRow())

	_, err := svc.GetByID(ctx, "org-1", "job-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestJobService_GetByID_Success(t *testing.T) {
	db := &mockDB{}
	svc := NewJobService(db, &temporalmocks.Client{}, 5)
	ctx := context.Background()

	db.On("QueryRow", ctx, sqlContains("JOIN domains"), mock.Anything).
		Return(jobRow(model.Job{ID: "job-1", Type: model.JobTypeRenewal,
			DomainID: "dom-1", Status: model.JobStatusSucceeded, Attempts: 2}))

	job, err := svc.GetByID(ctx, "org-1", "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusSucceeded, job.Status)
	assert.Equal(t, 2, job.Attempts)
}

func TestJobService_List_CursorPagination(t *testing.T) {
	db := &mockDB{}
	svc := NewJobService(db, &temporalmocks.Client{}, 5)
	ctx := context.Background()

	// limit+1 rows returned means another page exists.
	rows := newMockRows(
		jobRow(model.Job{ID: "job-1", Type: model.JobTypeDNSCheck, Status: model.JobStatusQueued}).scanFunc,
		jobRow(model.Job{ID: "job-2", Type: model.JobTypeDNSCheck, Status: model.JobStatusQueued}).scanFunc,
		jobRow(model.Job{ID: "job-3", Type: model.JobTypeDNSCheck, Status: model.JobStatusQueued}).scanFunc,
	)
	db.On("Query", ctx, mock.AnythingOfType("string"), mock.Anything).Return(rows, nil)

	jobs, hasMore, err := svc.List(ctx, "org-1", 2, "")
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
	assert.True(t, hasMore)
}
