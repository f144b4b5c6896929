package requests

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/example/property-ledger/internal/directory"
)

var (
	// ErrNotFound is returned by stores when no request matches.
	ErrNotFound = errors.New("request not found")
	// ErrForbidden is returned when the actor's role does not permit the
	// operation.
	ErrForbidden = errors.New("actor role does not permit this operation")
)

// Store is the persistence contract for requests.
type Store interface {
	Create(ctx context.Context, r *Request) error
	Get(ctx context.Context, id string) (*Request, error)
	Update(ctx context.Context, r *Request) error
}

// Service owns request lifecycle transitions. It performs only the state
// part of approval; the conversion orchestrator drives approve-and-convert
// as one unit.
type Service struct {
	store  Store
	clock  Clock
	logger *slog.Logger
}

// NewService creates a request service.
func NewService(store Store, clock Clock, logger *slog.Logger) *Service {
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, clock: clock, logger: logger}
}

// Create validates and stores a new request. Templates start in draft;
// instances get the default-status policy.
func (s *Service) Create(ctx context.Context, r *Request, actor directory.Actor) (*Request, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}

	if r.IsTemplate {
		r.Status = StatusDraft
	} else if r.Status == "" {
		r.Status = DefaultStatus(s.clock, r.Month, r.Year, actor)
	}
	r.SubmittedBy = actor.ID
	r.RecomputeTotal()

	now := s.clock.Now()
	r.CreatedAt = now
	r.UpdatedAt = now
	r.AppendHistory(now, "created", actor.ID, fmt.Sprintf("created with status %s", r.Status))
	if r.Status == StatusApproved {
		// Historical months are treated as already incurred.
		r.ApprovedBy = actor.ID
		r.ApprovedAt = &now
	}

	if err := s.store.Create(ctx, r); err != nil {
		return nil, err
	}
	s.logger.Info("request_created", "request_id", r.ID, "status", string(r.Status), "template", r.IsTemplate)
	return r, nil
}

// Get loads one request.
func (s *Service) Get(ctx context.Context, id string) (*Request, error) {
	return s.store.Get(ctx, id)
}

// Submit moves a draft to pending. The item list must be non-empty.
func (s *Service) Submit(ctx context.Context, id string, actor directory.Actor) (*Request, error) {
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(r.Items) == 0 {
		return nil, fmt.Errorf("request %s cannot be submitted with no items", id)
	}
	if err := r.transition(StatusPending); err != nil {
		return nil, err
	}
	r.SubmittedBy = actor.ID
	return s.save(ctx, r, "submitted", actor.ID, "")
}

// Approve moves a pending request to approved and stamps the approver.
// Callers that need conversion to follow atomically go through the
// orchestrator, which rolls this back if conversion fails.
func (s *Service) Approve(ctx context.Context, id string, actor directory.Actor, notes string) (*Request, error) {
	if !actor.CanApprove() {
		return nil, ErrForbidden
	}
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.transition(StatusApproved); err != nil {
		return nil, err
	}
	now := s.clock.Now()
	r.ApprovedBy = actor.ID
	r.ApprovedAt = &now
	if notes != "" {
		r.Notes = notes
	}
	return s.save(ctx, r, "approved", actor.ID, notes)
}

// Reject moves a pending request to its terminal rejected state.
func (s *Service) Reject(ctx context.Context, id string, actor directory.Actor, reason string) (*Request, error) {
	if !actor.CanApprove() {
		return nil, ErrForbidden
	}
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.transition(StatusRejected); err != nil {
		return nil, err
	}
	return s.save(ctx, r, "rejected", actor.ID, reason)
}

// RevertApproval rolls an approved request back to pending, clearing the
// approver and timestamp. Used when conversion fails after approval so the
// request is never left approved with postings missing.
func (s *Service) RevertApproval(ctx context.Context, id, reason string) (*Request, error) {
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.Status != StatusApproved {
		return nil, &InvalidTransitionError{RequestID: id, From: r.Status, To: StatusPending}
	}
	r.Status = StatusPending
	r.ApprovedBy = ""
	r.ApprovedAt = nil
	return s.save(ctx, r, "approval_reverted", "system", reason)
}

// Complete marks an approved request converted: terminal status, accounting
// date stamped.
func (s *Service) Complete(ctx context.Context, id string, actor directory.Actor, details string) (*Request, error) {
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.transition(StatusCompleted); err != nil {
		return nil, err
	}
	date := r.EffectiveDate(s.clock)
	r.AccountingDate = &date
	return s.save(ctx, r, "completed", actor.ID, details)
}

// UpdateItems replaces the item list of a draft or pending request,
// logging per-item changes and recomputing the total.
func (s *Service) UpdateItems(ctx context.Context, id string, items []Item, actor directory.Actor) (*Request, error) {
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.Status != StatusDraft && r.Status != StatusPending {
		return nil, fmt.Errorf("request %s items cannot change in status %s", id, r.Status)
	}
	for i := range items {
		if err := items[i].Validate(); err != nil {
			return nil, err
		}
	}

	now := s.clock.Now()
	for i := range items {
		if i < len(r.Items) && !items[i].EstimatedCost.Equal(r.Items[i].EstimatedCost) {
			items[i].Changes = append(r.Items[i].Changes, ItemChange{
				Date:   now,
				Actor:  actor.ID,
				Field:  "estimated_cost",
				OldVal: r.Items[i].EstimatedCost.String(),
				NewVal: items[i].EstimatedCost.String(),
			})
		}
	}
	r.Items = items
	return s.save(ctx, r, "items_updated", actor.ID, fmt.Sprintf("%d items", len(items)))
}

// SubmitMonth records a template submission for one (month, year). A month
// already submitted can only be re-submitted after rejection, which resets
// the sub-record with a fresh snapshot.
func (s *Service) SubmitMonth(ctx context.Context, templateID string, month, year int, actor directory.Actor) (*Request, error) {
	r, err := s.getTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("invalid month %d", month)
	}
	if len(r.Items) == 0 {
		return nil, fmt.Errorf("template %s cannot be submitted with no items", templateID)
	}

	now := s.clock.Now()
	snapshot := make([]Item, len(r.Items))
	copy(snapshot, r.Items)

	if ma := r.MonthlyApprovalFor(month, year); ma != nil {
		if ma.Status != StatusRejected {
			return nil, fmt.Errorf("template %s already has a %s submission for %d/%d", templateID, ma.Status, month, year)
		}
		ma.Status = StatusPending
		ma.Items = snapshot
		ma.TotalCost = r.TotalEstimatedCost
		ma.SubmittedBy = actor.ID
		ma.SubmittedAt = now
		ma.ApprovedBy = ""
		ma.ApprovedAt = nil
		ma.Note = ""
	} else {
		r.MonthlyApprovals = append(r.MonthlyApprovals, MonthlyApproval{
			Month:       month,
			Year:        year,
			Status:      StatusPending,
			Items:       snapshot,
			TotalCost:   r.TotalEstimatedCost,
			SubmittedBy: actor.ID,
			SubmittedAt: now,
		})
	}
	return s.save(ctx, r, "month_submitted", actor.ID, fmt.Sprintf("%d/%d", month, year))
}

// ApproveMonth approves one month's submission, independently of every
// other month.
func (s *Service) ApproveMonth(ctx context.Context, templateID string, month, year int, actor directory.Actor) (*Request, error) {
	if !actor.CanApprove() {
		return nil, ErrForbidden
	}
	r, err := s.getTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}
	ma := r.MonthlyApprovalFor(month, year)
	if ma == nil {
		return nil, fmt.Errorf("template %s has no submission for %d/%d", templateID, month, year)
	}
	if !CanTransition(ma.Status, StatusApproved) {
		return nil, &InvalidTransitionError{RequestID: templateID, From: ma.Status, To: StatusApproved}
	}
	now := s.clock.Now()
	ma.Status = StatusApproved
	ma.ApprovedBy = actor.ID
	ma.ApprovedAt = &now
	return s.save(ctx, r, "month_approved", actor.ID, fmt.Sprintf("%d/%d", month, year))
}

// RejectMonth rejects one month's submission and flags every later,
// not-yet-approved month for re-review: those months drop back to pending
// with a note naming the rejected month.
func (s *Service) RejectMonth(ctx context.Context, templateID string, month, year int, actor directory.Actor, reason string) (*Request, error) {
	if !actor.CanApprove() {
		return nil, ErrForbidden
	}
	r, err := s.getTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}
	ma := r.MonthlyApprovalFor(month, year)
	if ma == nil {
		return nil, fmt.Errorf("template %s has no submission for %d/%d", templateID, month, year)
	}
	if !CanTransition(ma.Status, StatusRejected) {
		return nil, &InvalidTransitionError{RequestID: templateID, From: ma.Status, To: StatusRejected}
	}
	ma.Status = StatusRejected
	ma.Note = reason

	for i := range r.MonthlyApprovals {
		other := &r.MonthlyApprovals[i]
		if (other.Year > year || (other.Year == year && other.Month > month)) &&
			other.Status != StatusApproved && other.Status != StatusRejected {
			other.Status = StatusPending
			other.Note = fmt.Sprintf("pending re-review after rejection of %d/%d", month, year)
		}
	}
	return s.save(ctx, r, "month_rejected", actor.ID, fmt.Sprintf("%d/%d: %s", month, year, reason))
}

// InstantiateMonth derives a concrete instance from a template for one
// (month, year). The instance carries a weak back-reference to the
// template; only the instance is ever converted to expenses.
func (s *Service) InstantiateMonth(ctx context.Context, templateID string, month, year int, actor directory.Actor) (*Request, error) {
	t, err := s.getTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}
	items := make([]Item, len(t.Items))
	copy(items, t.Items)

	instance := &Request{
		Title:       fmt.Sprintf("%s - %s %d", t.Title, time.Month(month), year),
		Description: t.Description,
		ResidenceID: t.ResidenceID,
		Month:       month,
		Year:        year,
		Items:       items,
		TemplateID:  t.ID,
	}
	if ma := t.MonthlyApprovalFor(month, year); ma != nil && ma.Status == StatusApproved {
		instance.Status = StatusApproved
	}
	return s.Create(ctx, instance, actor)
}

func (s *Service) getTemplate(ctx context.Context, id string) (*Request, error) {
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !r.IsTemplate {
		return nil, fmt.Errorf("request %s is not a template", id)
	}
	return r, nil
}

func (s *Service) save(ctx context.Context, r *Request, action, actor, details string) (*Request, error) {
	now := s.clock.Now()
	r.RecomputeTotal()
	r.UpdatedAt = now
	r.AppendHistory(now, action, actor, details)
	if err := s.store.Update(ctx, r); err != nil {
		return nil, err
	}
	s.logger.Info("request_updated", "request_id", r.ID, "action", action, "status", string(r.Status))
	return r, nil
}
