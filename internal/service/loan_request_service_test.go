package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/biblioteca-api/internal/dto"
	"github.com/noah-isme/biblioteca-api/internal/models"
	appErrors "github.com/noah-isme/biblioteca-api/pkg/errors"
)

type memoryLoanRepo struct {
	requests    map[int64]models.LoanRequest
	nextID      int64
	writes      int
	createErr   error
	raceOnWrite bool
}

func newMemoryLoanRepo() *memoryLoanRepo {
	return &memoryLoanRepo{requests: map[int64]models.LoanRequest{}, nextID: 1}
}

func (m *memoryLoanRepo) Create(_ context.Context, req *models.LoanRequest) error {
	if m.createErr != nil {
		return m.createErr
	}
	req.ID = m.nextID
	m.nextID++
	m.requests[req.ID] = *req
	m.writes++
	return nil
}

func (m *memoryLoanRepo) FindByID(_ context.Context, id int64) (*models.LoanRequest, error) {
	req, ok := m.requests[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &req, nil
}

func (m *memoryLoanRepo) List(_ context.Context) ([]models.LoanRequest, error) {
	out := make([]models.LoanRequest, 0, len(m.requests))
	for id := m.nextID - 1; id > 0; id-- {
		if req, ok := m.requests[id]; ok {
			out = append(out, req)
		}
	}
	return out, nil
}

func (m *memoryLoanRepo) ListByStatus(ctx context.Context, status models.LoanStatus) ([]models.LoanRequest, error) {
	all, _ := m.List(ctx)
	out := make([]models.LoanRequest, 0)
	for _, req := range all {
		if req.Status == status {
			out = append(out, req)
		}
	}
	return out, nil
}

func (m *memoryLoanRepo) ApplyTransition(_ context.Context, t models.LoanTransition) (*models.LoanRequest, error) {
	req, ok := m.requests[t.ID]
	if !ok || req.Status != t.From || m.raceOnWrite {
		return nil, sql.ErrNoRows
	}
	updated := t.Apply(req)
	m.requests[t.ID] = updated
	m.writes++
	return &updated, nil
}

type stubBooks struct {
	books map[int64]models.Book
	err   error
}

func (s *stubBooks) FindByID(_ context.Context, id int64) (*models.Book, error) {
	if s.err != nil {
		return nil, s.err
	}
	book, ok := s.books[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &book, nil
}

func (s *stubBooks) FindByIDs(_ context.Context, ids []int64) (map[int64]models.Book, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := map[int64]models.Book{}
	for _, id := range ids {
		if book, ok := s.books[id]; ok {
			out[id] = book
		}
	}
	return out, nil
}

var adminActor = models.AuthContext{UserID: 1, Email: "admin@liceo.cl", Roles: models.RoleSet{"admin"}, ActiveRole: "admin"}

func newLoanServiceForTest() (*LoanRequestService, *memoryLoanRepo, *recordingActivity, *MetricsService) {
	repo := newMemoryLoanRepo()
	books := &stubBooks{books: map[int64]models.Book{1: {ID: 1, Titulo: "Rayuela"}, 2: {ID: 2, Titulo: ""}}}
	activity := &recordingActivity{}
	metrics := NewMetricsService()
	svc := NewLoanRequestService(repo, books, activity, metrics, nil)
	return svc, repo, activity, metrics
}

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, value)
	require.NoError(t, err)
	return ts
}

func strPtr(s string) *string { return &s }

func counterValue(t *testing.T, m *MetricsService, from, to string) float64 {
	t.Helper()
	return testutil.ToFloat64(m.loanTransitions.WithLabelValues(from, to))
}

func TestLoanRequestServiceCreateMinimal(t *testing.T) {
	svc, _, activity, _ := newLoanServiceForTest()
	now := mustTime(t, "2024-01-10T15:00:00Z")
	svc.now = func() time.Time { return now }

	req, err := svc.Create(context.Background(), dto.CreateLoanRequest{BookID: "1", Name: "Ana"})
	require.NoError(t, err)
	assert.Equal(t, models.LoanStatusPending, req.Status)
	assert.Nil(t, req.DueDate)
	assert.Equal(t, now, req.RequestDate)
	assert.Equal(t, "Ana", req.RequesterName)
	assert.Equal(t, "Rayuela", req.BookTitle)

	require.Len(t, activity.entries, 1)
	entry := activity.entries[0]
	assert.Equal(t, models.LogActionRequestCreate, entry.Action)
	assert.Equal(t, models.GuestActor, entry.Usuario)
	assert.Equal(t, req.ID, *entry.RequestID)
}

func TestLoanRequestServiceCreateDefaults(t *testing.T) {
	svc, _, activity, _ := newLoanServiceForTest()

	req, err := svc.Create(context.Background(), dto.CreateLoanRequest{LibroID: "2", Rut: "1-9", BookTitle: "Ficciones"})
	require.NoError(t, err)
	assert.Equal(t, models.GuestRequesterName, req.RequesterName)
	assert.Equal(t, "Ficciones", req.BookTitle)
	assert.Equal(t, "1-9", activity.entries[0].Usuario)
}

func TestLoanRequestServiceCreateValidation(t *testing.T) {
	svc, repo, _, _ := newLoanServiceForTest()

	_, err := svc.Create(context.Background(), dto.CreateLoanRequest{Name: "Ana"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Create(context.Background(), dto.CreateLoanRequest{BookID: "99", Name: "Ana"})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	repo.createErr = errors.New("disk full")
	_, err = svc.Create(context.Background(), dto.CreateLoanRequest{BookID: "1"})
	assert.ErrorIs(t, err, appErrors.ErrInternal)
	assert.Equal(t, 0, repo.writes)
}

func TestLoanRequestServiceApproveRequiresDueDate(t *testing.T) {
	svc, repo, _, _ := newLoanServiceForTest()
	req, err := svc.Create(context.Background(), dto.CreateLoanRequest{BookID: "1", Name: "Ana"})
	require.NoError(t, err)
	writes := repo.writes

	_, err = svc.Transition(context.Background(), req.ID, dto.TransitionLoanRequest{Status: "aprobado"}, adminActor)
	assert.ErrorIs(t, err, appErrors.ErrMissingDueDate)
	assert.True(t, appErrors.IsValidation(err))

	_, err = svc.Transition(context.Background(), req.ID, dto.TransitionLoanRequest{Status: "aprobado", DueDate: strPtr("15/01/2024")}, adminActor)
	assert.ErrorIs(t, err, appErrors.ErrInvalidDueDate)

	stored, err := svc.Get(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LoanStatusPending, stored.Status)
	assert.Equal(t, writes, repo.writes)
}

func TestLoanRequestServiceApproveThenReject(t *testing.T) {
	svc, _, activity, metrics := newLoanServiceForTest()
	req, err := svc.Create(context.Background(), dto.CreateLoanRequest{BookID: "1", Name: "Ana"})
	require.NoError(t, err)

	approvedAt := mustTime(t, "2024-01-10T09:00:00Z")
	svc.now = func() time.Time { return approvedAt }
	approved, err := svc.Transition(context.Background(), req.ID, dto.TransitionLoanRequest{Status: "aprobado", DueDate: strPtr("2024-01-15")}, adminActor)
	require.NoError(t, err)
	assert.Equal(t, models.LoanStatusApproved, approved.Status)
	assert.Equal(t, "2024-01-15", approved.DueDate.String())
	assert.Equal(t, approvedAt, *approved.ApprovedAt)

	rejectedAt := approvedAt.Add(time.Hour)
	svc.now = func() time.Time { return rejectedAt }
	rejected, err := svc.Transition(context.Background(), req.ID, dto.TransitionLoanRequest{Status: "RECHAZADO"}, adminActor)
	require.NoError(t, err)
	assert.Nil(t, rejected.DueDate)
	assert.Equal(t, approvedAt, *rejected.ApprovedAt)
	assert.Equal(t, rejectedAt, *rejected.UpdatedAt)

	last := activity.entries[len(activity.entries)-1]
	assert.Equal(t, "request_rechazado", last.Action)
	assert.Equal(t, "admin@liceo.cl", last.Usuario)
	assert.Equal(t, req.ID, *last.RequestID)
	assert.Equal(t, 1.0, counterValue(t, metrics, "pendiente", "aprobado"))
}

func TestLoanRequestServiceFullLifecycle(t *testing.T) {
	svc, _, _, _ := newLoanServiceForTest()
	req, err := svc.Create(context.Background(), dto.CreateLoanRequest{BookID: "1", Name: "Ana"})
	require.NoError(t, err)

	steps := []dto.TransitionLoanRequest{
		{Status: "aprobado", DueDateAlt: strPtr("2024-01-15T10:00:00Z")},
		{Status: "aprobado", DueDate: strPtr("2024-01-20")},
		{Status: "recogido"},
		{Status: "devuelto"},
	}
	var current *models.LoanRequest
	for _, step := range steps {
		current, err = svc.Transition(context.Background(), req.ID, step, adminActor)
		require.NoError(t, err, step.Status)
	}
	assert.Equal(t, models.LoanStatusReturned, current.Status)
	assert.Equal(t, "2024-01-20", current.DueDate.String())
	assert.NotNil(t, current.PickedAt)
	assert.NotNil(t, current.ReturnedAt)

	_, err = svc.Transition(context.Background(), req.ID, dto.TransitionLoanRequest{Status: "pendiente"}, adminActor)
	assert.ErrorIs(t, err, appErrors.ErrInvalidTransition)
}

func TestLoanRequestServiceRejectsInvalidJumps(t *testing.T) {
	svc, _, _, _ := newLoanServiceForTest()
	req, err := svc.Create(context.Background(), dto.CreateLoanRequest{BookID: "1"})
	require.NoError(t, err)

	for _, status := range []string{"recogido", "devuelto", "pendiente"} {
		_, err = svc.Transition(context.Background(), req.ID, dto.TransitionLoanRequest{Status: status}, adminActor)
		assert.ErrorIs(t, err, appErrors.ErrInvalidTransition, status)
	}
}

func TestLoanRequestServiceUnknownStatusAndID(t *testing.T) {
	svc, repo, _, _ := newLoanServiceForTest()

	_, err := svc.Transition(context.Background(), 999, dto.TransitionLoanRequest{Status: "perdido"}, adminActor)
	assert.ErrorIs(t, err, appErrors.ErrUnsupportedStatus)
	assert.True(t, appErrors.IsValidation(err))

	_, err = svc.Transition(context.Background(), 999, dto.TransitionLoanRequest{Status: "aprobado", DueDate: strPtr("2024-01-15")}, adminActor)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = svc.Get(context.Background(), 999)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.Equal(t, 0, repo.writes)
}

func TestLoanRequestServiceLostRace(t *testing.T) {
	svc, repo, _, _ := newLoanServiceForTest()
	req, err := svc.Create(context.Background(), dto.CreateLoanRequest{BookID: "1"})
	require.NoError(t, err)

	repo.raceOnWrite = true
	_, err = svc.Transition(context.Background(), req.ID, dto.TransitionLoanRequest{Status: "rechazado"}, adminActor)
	assert.ErrorIs(t, err, appErrors.ErrConflict)
}

func TestLoanRequestServiceList(t *testing.T) {
	svc, _, _, _ := newLoanServiceForTest()
	for i := 0; i < 3; i++ {
		_, err := svc.Create(context.Background(), dto.CreateLoanRequest{BookID: "1"})
		require.NoError(t, err)
	}
	all, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, int64(3), all[0].ID)
}
