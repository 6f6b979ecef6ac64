package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/biblioteca-api/internal/dto"
	"github.com/noah-isme/biblioteca-api/internal/models"
	appErrors "github.com/noah-isme/biblioteca-api/pkg/errors"
)

type loanRequestRepository interface {
	Create(ctx context.Context, req *models.LoanRequest) error
	FindByID(ctx context.Context, id int64) (*models.LoanRequest, error)
	List(ctx context.Context) ([]models.LoanRequest, error)
	ApplyTransition(ctx context.Context, t models.LoanTransition) (*models.LoanRequest, error)
}

type bookFinder interface {
	FindByID(ctx context.Context, id int64) (*models.Book, error)
}

type loanMetrics interface {
	ObserveLoanCreated()
	ObserveLoanTransition(from, to string)
}

// LoanRequestService runs the loan request lifecycle.
type LoanRequestService struct {
	repo     loanRequestRepository
	books    bookFinder
	activity activityRecorder
	metrics  loanMetrics
	logger   *zap.Logger
	now      func() time.Time
}

// NewLoanRequestService constructs the service. activity and metrics may be nil.
func NewLoanRequestService(repo loanRequestRepository, books bookFinder, activity activityRecorder, metrics loanMetrics, logger *zap.Logger) *LoanRequestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoanRequestService{
		repo:     repo,
		books:    books,
		activity: activity,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// Create registers a public loan request in pending state.
func (s *LoanRequestService) Create(ctx context.Context, payload dto.CreateLoanRequest) (*models.LoanRequest, error) {
	bookID, err := payload.ResolvedBookID()
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "bookId must reference a book")
	}
	book, err := s.books.FindByID(ctx, bookID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "book not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch book")
	}

	name := payload.RequesterName()
	if name == "" {
		name = models.GuestRequesterName
	}
	title := strings.TrimSpace(payload.BookTitle)
	if title == "" {
		title = book.Titulo
	}

	req := &models.LoanRequest{
		BookID:           bookID,
		RequesterName:    name,
		RequesterEmail:   payload.RequesterEmail(),
		RequesterRut:     payload.RequesterRut(),
		RequesterPhone:   payload.RequesterPhone(),
		RequesterAddress: payload.RequesterAddress(),
		RequesterIDPhoto: payload.RequesterIDPhoto(),
		BookTitle:        title,
		RequestDate:      s.now().UTC(),
		Status:           models.LoanStatusPending,
	}
	if err := s.repo.Create(ctx, req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create loan request")
	}

	actor := req.RequesterEmail
	if actor == "" {
		actor = req.RequesterRut
	}
	if actor == "" {
		actor = models.GuestActor
	}
	s.record(ctx, models.LogEntry{
		Usuario:   actor,
		Action:    models.LogActionRequestCreate,
		CreatedAt: req.RequestDate,
		LibroID:   &req.BookID,
		RequestID: &req.ID,
	})
	if s.metrics != nil {
		s.metrics.ObserveLoanCreated()
	}
	return req, nil
}

// Transition moves a request to a new status on behalf of actor.
func (s *LoanRequestService) Transition(ctx context.Context, id int64, payload dto.TransitionLoanRequest, actor models.AuthContext) (*models.LoanRequest, error) {
	target, ok := models.ParseLoanStatus(payload.Status)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrUnsupportedStatus, "unsupported status: use pendiente, aprobado, recogido, devuelto or rechazado")
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !current.Status.CanTransition(target) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "cannot move request from "+string(current.Status)+" to "+string(target))
	}

	transition := models.LoanTransition{
		ID:   id,
		From: current.Status,
		To:   target,
		At:   s.now().UTC(),
	}
	switch target {
	case models.LoanStatusApproved:
		raw, present := payload.ResolvedDueDate()
		if !present {
			return nil, appErrors.ErrMissingDueDate
		}
		due, err := models.ParseDate(raw)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInvalidDueDate.Code, appErrors.ErrInvalidDueDate.Status, appErrors.ErrInvalidDueDate.Message)
		}
		transition.DueDate = &due
	case models.LoanStatusRejected:
		transition.ClearDue = true
	}

	updated, err := s.repo.ApplyTransition(ctx, transition)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "request was modified concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update loan request")
	}

	s.record(ctx, models.LogEntry{
		Usuario:   actor.Email,
		Action:    models.TransitionAction(target),
		CreatedAt: transition.At,
		RequestID: &updated.ID,
	})
	if s.metrics != nil {
		s.metrics.ObserveLoanTransition(string(transition.From), string(transition.To))
	}
	s.logger.Info("loan request transitioned",
		zap.Int64("request_id", id),
		zap.String("from", string(transition.From)),
		zap.String("to", string(target)),
		zap.Int64("actor_id", actor.UserID),
	)
	return updated, nil
}

// Get returns a single request.
func (s *LoanRequestService) Get(ctx context.Context, id int64) (*models.LoanRequest, error) {
	req, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "loan request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch loan request")
	}
	return req, nil
}

// List returns every request, newest first.
func (s *LoanRequestService) List(ctx context.Context) ([]models.LoanRequest, error) {
	requests, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list loan requests")
	}
	return requests, nil
}

func (s *LoanRequestService) record(ctx context.Context, entry models.LogEntry) {
	if s.activity == nil {
		return
	}
	s.activity.Record(ctx, entry)
}
