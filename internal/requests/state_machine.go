package requests

import (
	"fmt"

	"github.com/example/property-ledger/internal/directory"
)

// Status represents where a request (or a template's monthly approval)
// sits in its lifecycle.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCompleted Status = "completed"
)

// InvalidTransitionError reports an illegal state change. The request is
// left untouched when one is returned.
type InvalidTransitionError struct {
	RequestID string
	From      Status
	To        Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %s to %s for request %s", e.From, e.To, e.RequestID)
}

// AllowedTransitions defines the legal status transitions. Completed and
// rejected are terminal; a rejected request is never resurrected; a
// re-submission is a fresh pending transition on a new attempt.
func AllowedTransitions() map[Status][]Status {
	return map[Status][]Status{
		StatusDraft:     {StatusPending},
		StatusPending:   {StatusApproved, StatusRejected},
		StatusApproved:  {StatusCompleted},
		StatusRejected:  {},
		StatusCompleted: {},
	}
}

// CanTransition reports whether from -> to is legal.
func CanTransition(from, to Status) bool {
	for _, allowed := range AllowedTransitions()[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// transition moves the request to the target status or fails without
// touching it.
func (r *Request) transition(to Status) error {
	if !CanTransition(r.Status, to) {
		return &InvalidTransitionError{RequestID: r.ID, From: r.Status, To: to}
	}
	r.Status = to
	return nil
}

// DefaultStatus implements the creation-time status policy for instances:
// a past or current month is treated as historical and already approved; a
// future month needs finance sign-off (pending), except that admins start
// their own future requests in draft.
func DefaultStatus(clock Clock, month, year int, actor directory.Actor) Status {
	if isPastOrCurrentMonth(clock, month, year) {
		return StatusApproved
	}
	if actor.IsAdmin() {
		return StatusDraft
	}
	return StatusPending
}
