package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseLoanStatus(t *testing.T) {
	status, ok := ParseLoanStatus(" Aprobado ")
	assert.True(t, ok)
	assert.Equal(t, LoanStatusApproved, status)

	for _, bad := range []string{"", "approved", "perdido"} {
		_, ok := ParseLoanStatus(bad)
		assert.False(t, ok, bad)
	}
}

func TestLoanStatusTransitions(t *testing.T) {
	allowed := map[LoanStatus][]LoanStatus{
		LoanStatusPending:  {LoanStatusApproved, LoanStatusRejected},
		LoanStatusApproved: {LoanStatusApproved, LoanStatusPickedUp, LoanStatusRejected},
		LoanStatusPickedUp: {LoanStatusReturned},
	}
	all := []LoanStatus{LoanStatusPending, LoanStatusApproved, LoanStatusPickedUp, LoanStatusReturned, LoanStatusRejected}

	for _, from := range all {
		for _, to := range all {
			want := false
			for _, a := range allowed[from] {
				if a == to {
					want = true
				}
			}
			assert.Equal(t, want, from.CanTransition(to), "%s -> %s", from, to)
		}
	}
	assert.True(t, LoanStatusReturned.IsTerminal())
	assert.True(t, LoanStatusRejected.IsTerminal())
	assert.False(t, LoanStatusPending.IsTerminal())
}

func TestLoanTransitionApply(t *testing.T) {
	approvedAt := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	due := Date{Year: 2024, Month: time.January, Day: 15}
	req := LoanRequest{ID: 1, Status: LoanStatusPending}

	approved := LoanTransition{To: LoanStatusApproved, DueDate: &due, At: approvedAt}.Apply(req)
	assert.Equal(t, LoanStatusApproved, approved.Status)
	assert.Equal(t, "2024-01-15", approved.DueDate.String())
	assert.Equal(t, approvedAt, *approved.ApprovedAt)
	assert.Equal(t, LoanStatusPending, req.Status)

	rejectedAt := approvedAt.Add(time.Hour)
	rejected := LoanTransition{To: LoanStatusRejected, ClearDue: true, At: rejectedAt}.Apply(approved)
	assert.Nil(t, rejected.DueDate)
	assert.Equal(t, approvedAt, *rejected.ApprovedAt)
	assert.Equal(t, rejectedAt, *rejected.UpdatedAt)
}

func TestTransitionAction(t *testing.T) {
	assert.Equal(t, "request_recogido", TransitionAction(LoanStatusPickedUp))
}

func TestBookDisplayTitle(t *testing.T) {
	assert.Equal(t, "Rayuela", BookDisplayTitle(&Book{ID: 1, Titulo: "Rayuela"}, "Otro", 1))
	assert.Equal(t, "Ficciones", BookDisplayTitle(&Book{ID: 1, Titulo: " "}, "Ficciones", 1))
	assert.Equal(t, "Book #7", BookDisplayTitle(nil, "", 7))
	assert.Equal(t, "Book #s/n", BookDisplayTitle(nil, "", 0))
}
