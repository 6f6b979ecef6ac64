package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/biblioteca-api/internal/dto"
	"github.com/noah-isme/biblioteca-api/internal/models"
	appErrors "github.com/noah-isme/biblioteca-api/pkg/errors"
	"github.com/noah-isme/biblioteca-api/pkg/response"
)

const (
	overdueCSVFilename = "prestamos_vencidos.csv"
	overduePDFFilename = "prestamos_vencidos.pdf"
)

type loanRequestService interface {
	Create(ctx context.Context, payload dto.CreateLoanRequest) (*models.LoanRequest, error)
	Transition(ctx context.Context, id int64, payload dto.TransitionLoanRequest, actor models.AuthContext) (*models.LoanRequest, error)
	Get(ctx context.Context, id int64) (*models.LoanRequest, error)
	List(ctx context.Context) ([]models.LoanRequest, error)
}

type overdueReporter interface {
	List(ctx context.Context, ref time.Time) ([]models.LoanRequest, error)
	CSV(ctx context.Context, ref time.Time) ([]byte, error)
	PDF(ctx context.Context, ref time.Time) ([]byte, error)
}

// LoanRequestHandler exposes the loan request workflow.
type LoanRequestHandler struct {
	loans   loanRequestService
	overdue overdueReporter
	now     func() time.Time
}

// NewLoanRequestHandler constructs the handler.
func NewLoanRequestHandler(loans loanRequestService, overdue overdueReporter) *LoanRequestHandler {
	return &LoanRequestHandler{loans: loans, overdue: overdue, now: time.Now}
}

// Create godoc
// @Summary Submit a loan request
// @Description Public endpoint. Accepts bookId (number or string) plus optional requester details.
// @Tags Loan Requests
// @Accept json
// @Produce json
// @Param payload body dto.CreateLoanRequest true "Loan request"
// @Success 201 {object} dto.LoanRequestEnvelope
// @Failure 400 {object} errors.Error
// @Failure 404 {object} errors.Error
// @Failure 429 {object} errors.Error
// @Router /requests [post]
func (h *LoanRequestHandler) Create(c *gin.Context) {
	var payload dto.CreateLoanRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid request payload"))
		return
	}
	req, err := h.loans.Create(c.Request.Context(), payload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.LoanRequestEnvelope{OK: true, Request: req})
}

// List godoc
// @Summary List loan requests
// @Tags Loan Requests
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.LoanRequest
// @Failure 401 {object} errors.Error
// @Failure 403 {object} errors.Error
// @Router /requests [get]
func (h *LoanRequestHandler) List(c *gin.Context) {
	requests, err := h.loans.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, requests)
}

// Get godoc
// @Summary Get a loan request
// @Tags Loan Requests
// @Produce json
// @Security BearerAuth
// @Param id path int true "Request ID"
// @Success 200 {object} dto.LoanRequestEnvelope
// @Failure 404 {object} errors.Error
// @Router /requests/{id} [get]
func (h *LoanRequestHandler) Get(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	req, err := h.loans.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.LoanRequestEnvelope{OK: true, Request: req})
}

// Update godoc
// @Summary Change a loan request status
// @Description Approval requires due_date (YYYY-MM-DD).
// @Tags Loan Requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Request ID"
// @Param payload body dto.TransitionLoanRequest true "Status change"
// @Success 200 {object} dto.LoanRequestEnvelope
// @Failure 400 {object} errors.Error
// @Failure 404 {object} errors.Error
// @Failure 409 {object} errors.Error
// @Router /requests/{id} [put]
func (h *LoanRequestHandler) Update(c *gin.Context) {
	actor, err := currentUser(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	id, err := idParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var payload dto.TransitionLoanRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status payload"))
		return
	}
	req, err := h.loans.Transition(c.Request.Context(), id, payload, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.LoanRequestEnvelope{OK: true, Request: req})
}

// Overdue godoc
// @Summary List overdue loans
// @Tags Loan Requests
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.LoanRequest
// @Router /requests/overdue [get]
func (h *LoanRequestHandler) Overdue(c *gin.Context) {
	requests, err := h.overdue.List(c.Request.Context(), h.now())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, requests)
}

// OverdueCSV godoc
// @Summary Export overdue loans as CSV
// @Tags Loan Requests
// @Produce text/csv
// @Security BearerAuth
// @Success 200 {file} file
// @Router /requests/overdue.csv [get]
func (h *LoanRequestHandler) OverdueCSV(c *gin.Context) {
	payload, err := h.overdue.CSV(c.Request.Context(), h.now())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, overdueCSVFilename, "text/csv; charset=utf-8", payload)
}

// OverduePDF godoc
// @Summary Export overdue loans as PDF
// @Tags Loan Requests
// @Produce application/pdf
// @Security BearerAuth
// @Success 200 {file} file
// @Router /requests/overdue.pdf [get]
func (h *LoanRequestHandler) OverduePDF(c *gin.Context) {
	payload, err := h.overdue.PDF(c.Request.Context(), h.now())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, overduePDFFilename, "application/pdf", payload)
}
