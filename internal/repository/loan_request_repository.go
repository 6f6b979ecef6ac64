package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/biblioteca-api/internal/models"
)

const loanRequestColumns = `id, COALESCE(book_id, 0) AS book_id,
	COALESCE(requester_name, '') AS requester_name, COALESCE(requester_email, '') AS requester_email,
	COALESCE(requester_rut, '') AS requester_rut, COALESCE(requester_phone, '') AS requester_phone,
	COALESCE(requester_address, '') AS requester_address, COALESCE(requester_id_photo, '') AS requester_id_photo,
	COALESCE(book_title, '') AS book_title, request_date, status, NULLIF(due_date::text, '') AS due_date,
	approved_at, picked_at, returned_at, updated_at`

// LoanRequestRepository persists loan requests in the requests table.
type LoanRequestRepository struct {
	db *sqlx.DB
}

// NewLoanRequestRepository constructs the repository.
func NewLoanRequestRepository(db *sqlx.DB) *LoanRequestRepository {
	return &LoanRequestRepository{db: db}
}

// Create inserts req and fills it with the stored row.
func (r *LoanRequestRepository) Create(ctx context.Context, req *models.LoanRequest) error {
	query := `INSERT INTO requests (book_id, requester_name, requester_email, requester_rut, requester_phone,
	requester_address, requester_id_photo, book_title, request_date, status, due_date)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	RETURNING ` + loanRequestColumns
	if err := r.db.GetContext(ctx, req, query,
		req.BookID,
		req.RequesterName,
		req.RequesterEmail,
		req.RequesterRut,
		req.RequesterPhone,
		req.RequesterAddress,
		req.RequesterIDPhoto,
		req.BookTitle,
		req.RequestDate,
		req.Status,
		req.DueDate,
	); err != nil {
		return fmt.Errorf("create loan request: %w", err)
	}
	return nil
}

// FindByID returns a request by identifier or sql.ErrNoRows.
func (r *LoanRequestRepository) FindByID(ctx context.Context, id int64) (*models.LoanRequest, error) {
	query := `SELECT ` + loanRequestColumns + ` FROM requests WHERE id = $1`
	var req models.LoanRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find loan request: %w", err)
	}
	return &req, nil
}

// List returns every request, newest first.
func (r *LoanRequestRepository) List(ctx context.Context) ([]models.LoanRequest, error) {
	query := `SELECT ` + loanRequestColumns + ` FROM requests ORDER BY id DESC`
	requests := make([]models.LoanRequest, 0)
	if err := r.db.SelectContext(ctx, &requests, query); err != nil {
		return nil, fmt.Errorf("list loan requests: %w", err)
	}
	return requests, nil
}

// ListByStatus returns the requests currently in status, newest first.
func (r *LoanRequestRepository) ListByStatus(ctx context.Context, status models.LoanStatus) ([]models.LoanRequest, error) {
	query := `SELECT ` + loanRequestColumns + ` FROM requests WHERE status = $1 ORDER BY id DESC`
	requests := make([]models.LoanRequest, 0)
	if err := r.db.SelectContext(ctx, &requests, query, status); err != nil {
		return nil, fmt.Errorf("list loan requests by status: %w", err)
	}
	return requests, nil
}

// ApplyTransition persists t only while the row is still in t.From. A row that
// moved in the meantime yields sql.ErrNoRows.
func (r *LoanRequestRepository) ApplyTransition(ctx context.Context, t models.LoanTransition) (*models.LoanRequest, error) {
	args := []interface{}{t.ID, t.From, t.To, t.At}
	setParts := []string{"status = $3", "updated_at = $4"}

	switch {
	case t.ClearDue:
		setParts = append(setParts, "due_date = NULL")
	case t.DueDate != nil:
		args = append(args, *t.DueDate)
		setParts = append(setParts, fmt.Sprintf("due_date = $%d", len(args)))
	}
	switch t.To {
	case models.LoanStatusApproved:
		setParts = append(setParts, "approved_at = $4")
	case models.LoanStatusPickedUp:
		setParts = append(setParts, "picked_at = $4")
	case models.LoanStatusReturned:
		setParts = append(setParts, "returned_at = $4")
	}

	query := fmt.Sprintf("UPDATE requests SET %s WHERE id = $1 AND status = $2 RETURNING %s",
		strings.Join(setParts, ", "), loanRequestColumns)
	var req models.LoanRequest
	if err := r.db.GetContext(ctx, &req, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("update loan request status: %w", err)
	}
	return &req, nil
}
