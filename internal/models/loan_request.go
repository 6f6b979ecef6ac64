package models

import (
	"strings"
	"time"
)

// LoanStatus is the persisted lifecycle state of a loan request.
type LoanStatus string

const (
	LoanStatusPending  LoanStatus = "pendiente"
	LoanStatusApproved LoanStatus = "aprobado"
	LoanStatusPickedUp LoanStatus = "recogido"
	LoanStatusReturned LoanStatus = "devuelto"
	LoanStatusRejected LoanStatus = "rechazado"
)

// GuestRequesterName labels requests submitted without a name.
const GuestRequesterName = "Visitante"

var loanTransitions = map[LoanStatus][]LoanStatus{
	LoanStatusPending:  {LoanStatusApproved, LoanStatusRejected},
	LoanStatusApproved: {LoanStatusApproved, LoanStatusPickedUp, LoanStatusRejected},
	LoanStatusPickedUp: {LoanStatusReturned},
}

// ParseLoanStatus accepts the five wire values, case-insensitively.
func ParseLoanStatus(value string) (LoanStatus, bool) {
	status := LoanStatus(strings.ToLower(strings.TrimSpace(value)))
	switch status {
	case LoanStatusPending, LoanStatusApproved, LoanStatusPickedUp, LoanStatusReturned, LoanStatusRejected:
		return status, true
	}
	return "", false
}

// CanTransition reports whether a request in s may move to target.
// Approved requests may be re-approved to change their due date.
func (s LoanStatus) CanTransition(target LoanStatus) bool {
	for _, allowed := range loanTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (s LoanStatus) IsTerminal() bool {
	return len(loanTransitions[s]) == 0
}

// LoanRequest tracks a physical loan from submission to return.
type LoanRequest struct {
	ID               int64      `db:"id" json:"id"`
	BookID           int64      `db:"book_id" json:"book_id"`
	RequesterName    string     `db:"requester_name" json:"requester_name"`
	RequesterEmail   string     `db:"requester_email" json:"requester_email"`
	RequesterRut     string     `db:"requester_rut" json:"requester_rut"`
	RequesterPhone   string     `db:"requester_phone" json:"requester_phone"`
	RequesterAddress string     `db:"requester_address" json:"requester_address"`
	RequesterIDPhoto string     `db:"requester_id_photo" json:"requester_id_photo"`
	BookTitle        string     `db:"book_title" json:"book_title"`
	RequestDate      time.Time  `db:"request_date" json:"request_date"`
	Status           LoanStatus `db:"status" json:"status"`
	DueDate          *Date      `db:"due_date" json:"due_date"`
	ApprovedAt       *time.Time `db:"approved_at" json:"approved_at"`
	PickedAt         *time.Time `db:"picked_at" json:"picked_at"`
	ReturnedAt       *time.Time `db:"returned_at" json:"returned_at"`
	UpdatedAt        *time.Time `db:"updated_at" json:"updated_at"`
}

// LoanTransition is a validated status change ready to persist.
type LoanTransition struct {
	ID       int64
	From     LoanStatus
	To       LoanStatus
	DueDate  *Date
	ClearDue bool
	At       time.Time
}

// Apply returns a copy of req with the transition's effects.
func (t LoanTransition) Apply(req LoanRequest) LoanRequest {
	at := t.At
	req.Status = t.To
	req.UpdatedAt = &at
	switch {
	case t.ClearDue:
		req.DueDate = nil
	case t.DueDate != nil:
		due := *t.DueDate
		req.DueDate = &due
	}
	switch t.To {
	case LoanStatusApproved:
		req.ApprovedAt = &at
	case LoanStatusPickedUp:
		req.PickedAt = &at
	case LoanStatusReturned:
		req.ReturnedAt = &at
	}
	return req
}
