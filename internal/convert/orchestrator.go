// Package convert coordinates the approval-to-ledger pipeline: for every
// item of an approved instance it posts a balanced transaction, then
// materializes the expense, and only marks the request completed when every
// single item made it into the ledger.
package convert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/property-ledger/internal/accounts"
	"github.com/example/property-ledger/internal/directory"
	"github.com/example/property-ledger/internal/expenses"
	"github.com/example/property-ledger/internal/ledger"
	"github.com/example/property-ledger/internal/requests"
	"github.com/example/property-ledger/pkg/audit"
)

// DefaultTimeout bounds one conversion run. Exceeding it fails the whole
// conversion; the request is reverted rather than left half-posted.
const DefaultTimeout = 30 * time.Second

// ItemError is one item's failure during conversion. Collected, never
// thrown: later items still get their chance.
type ItemError struct {
	ItemTitle string `json:"item_title"`
	Message   string `json:"message"`
}

// Result is the outcome of one conversion run.
type Result struct {
	RequestID string              `json:"request_id"`
	Status    requests.Status     `json:"status"`
	Expenses  []*expenses.Expense `json:"expenses"`
	Errors    []ItemError         `json:"errors"`
}

// Failed reports whether the run may not complete the request: any item
// error, or zero expenses produced.
func (r *Result) Failed() bool {
	return len(r.Errors) > 0 || len(r.Expenses) == 0
}

// PartialFailureError is returned when one or more items failed. The
// request was reverted to pending; the per-item errors are attached.
type PartialFailureError struct {
	RequestID string
	Errors    []ItemError
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("conversion of request %s failed for %d item(s)", e.RequestID, len(e.Errors))
}

// Poster posts ledger events; satisfied by *ledger.Engine.
type Poster interface {
	Post(ctx context.Context, event ledger.Event) (*ledger.Transaction, error)
}

// Auditor appends to the tamper-evident audit trail.
type Auditor interface {
	Append(payload string) *audit.LogEntry
}

// Orchestrator drives conversions. Items of one request are processed
// sequentially in their original order so transaction ids and audit lines
// are reproducible; different requests may convert in parallel, the
// account registry's create-if-absent path being the only shared state.
type Orchestrator struct {
	requests     *requests.Service
	poster       Poster
	materializer *expenses.Materializer
	notifier     directory.Notifier
	clock        requests.Clock
	auditor      Auditor
	timeout      time.Duration
	logger       *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithTimeout overrides the per-conversion deadline.
func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.timeout = d }
}

// WithNotifier sets the outcome notifier.
func WithNotifier(n directory.Notifier) Option {
	return func(o *Orchestrator) { o.notifier = n }
}

// WithAuditor sets the audit trail.
func WithAuditor(a Auditor) Option {
	return func(o *Orchestrator) { o.auditor = a }
}

// WithClock overrides the clock.
func WithClock(c requests.Clock) Option {
	return func(o *Orchestrator) { o.clock = c }
}

// New creates an orchestrator.
func New(reqs *requests.Service, poster Poster, materializer *expenses.Materializer, logger *slog.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	o := &Orchestrator{
		requests:     reqs,
		poster:       poster,
		materializer: materializer,
		notifier:     directory.NopNotifier{},
		clock:        requests.SystemClock{},
		timeout:      DefaultTimeout,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ApproveAndConvert approves a pending instance and converts it as one
// unit. If conversion fails the approval is rolled back to pending, so the
// request is never left approved with postings missing.
func (o *Orchestrator) ApproveAndConvert(ctx context.Context, requestID string, actor directory.Actor, notes string) (*Result, error) {
	if _, err := o.requests.Approve(ctx, requestID, actor, notes); err != nil {
		return nil, err
	}
	res, err := o.Convert(ctx, requestID, actor)
	if err == nil {
		o.notify(ctx, requestID, actor)
	}
	return res, err
}

// Reject rejects a pending instance and tells the notifier the outcome.
// Delivery is fire-and-forget; a failed notification never fails the
// rejection itself.
func (o *Orchestrator) Reject(ctx context.Context, requestID string, actor directory.Actor, reason string) (*requests.Request, error) {
	r, err := o.requests.Reject(ctx, requestID, actor, reason)
	if err != nil {
		return nil, err
	}
	if err := o.notifier.NotifyRejected(ctx, requestID, actor, reason); err != nil {
		o.logger.Warn("notification_failed", "request_id", requestID, "error", err)
	}
	return r, nil
}

// Convert turns an approved instance into expenses, one balanced
// transaction per item whether or not the item has a vendor. Item failures
// are collected and reported; any failure (or an empty outcome) reverts
// the request to pending and nothing further. Success completes the
// request and stamps its accounting date.
//
// Converting a request that is not approved, including one already
// completed, fails up front with an InvalidTransitionError and creates
// nothing, which is what makes re-conversion safe to refuse.
func (o *Orchestrator) Convert(ctx context.Context, requestID string, actor directory.Actor) (*Result, error) {
	r, err := o.requests.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if r.IsTemplate {
		return nil, fmt.Errorf("request %s is a template; only per-month instances convert to expenses", requestID)
	}
	if r.Status != requests.StatusApproved {
		return nil, &requests.InvalidTransitionError{RequestID: requestID, From: r.Status, To: requests.StatusCompleted}
	}

	// The deadline bounds the posting loop only. Reverting or completing
	// afterwards must still go through even when the loop timed out.
	cctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	res := &Result{RequestID: requestID}
	date := r.EffectiveDate(o.clock)

	for i, item := range r.Items {
		if cctx.Err() != nil {
			res.Errors = append(res.Errors, ItemError{ItemTitle: item.Title, Message: "conversion deadline exceeded"})
			break
		}
		exp, err := o.convertItem(cctx, r, i, item, date, actor)
		if err != nil {
			o.logger.Warn("item_conversion_failed", "request_id", requestID, "item", item.Title, "error", err)
			res.Errors = append(res.Errors, ItemError{ItemTitle: item.Title, Message: err.Error()})
			continue
		}
		res.Expenses = append(res.Expenses, exp)
		o.audit(fmt.Sprintf("converted request=%s item=%d txn=%s expense=%s amount=%s",
			requestID, i, exp.TransactionID, exp.ExpenseID, exp.Amount))
	}

	if res.Failed() {
		reason := fmt.Sprintf("conversion produced %d expense(s) and %d error(s)", len(res.Expenses), len(res.Errors))
		reverted, revertErr := o.requests.RevertApproval(ctx, requestID, reason)
		if revertErr != nil {
			o.logger.Error("approval_revert_failed", "request_id", requestID, "error", revertErr)
			res.Status = r.Status
		} else {
			res.Status = reverted.Status
		}
		return res, &PartialFailureError{RequestID: requestID, Errors: res.Errors}
	}

	completed, err := o.requests.Complete(ctx, requestID, actor,
		fmt.Sprintf("%d expense(s) recorded", len(res.Expenses)))
	if err != nil {
		return res, err
	}
	res.Status = completed.Status
	o.logger.Info("request_converted", "request_id", requestID, "expenses", len(res.Expenses))
	return res, nil
}

// convertItem posts the ledger transaction for one item, then materializes
// its expense. The expense is only created once the posting is confirmed.
func (o *Orchestrator) convertItem(ctx context.Context, r *requests.Request, index int, item requests.Item, date time.Time, actor directory.Actor) (*expenses.Expense, error) {
	amount := item.Cost()
	if amount.IsZero() {
		return nil, errors.New("item has a zero cost")
	}

	provider := item.SelectedProvider()
	credit := ledger.Side{Payable: true}
	if provider != "" {
		credit = ledger.Side{Vendor: provider}
	}

	tx, err := o.poster.Post(ctx, ledger.Event{
		Amount: amount,
		Debit: ledger.Side{Item: &accounts.Criteria{
			Title:       item.Title,
			Description: item.Description,
			Provider:    provider,
			Category:    item.Category,
		}},
		Credit:      credit,
		Description: fmt.Sprintf("%s - %s", r.Title, item.Title),
		Reference:   fmt.Sprintf("%s/item-%d", r.ID, index),
		ResidenceID: r.ResidenceID,
		SourceKind:  ledger.SourceExpenseAccrual,
		SourceModel: "request",
		SourceID:    r.ID,
		Date:        date,
		CreatedBy:   actor.ID,
		Metadata:    map[string]any{"item_index": index, "template_id": r.TemplateID},
	})
	if err != nil {
		return nil, err
	}

	return o.materializer.Materialize(ctx, expenses.Input{
		RequestID:   r.ID,
		ItemIndex:   index,
		ResidenceID: r.ResidenceID,
		Title:       item.Title,
		Description: item.Description,
		Provider:    provider,
		Amount:      amount,
		Date:        date,
		Actor:       actor,
	}, tx)
}

func (o *Orchestrator) notify(ctx context.Context, requestID string, actor directory.Actor) {
	if err := o.notifier.NotifyApproved(ctx, requestID, actor); err != nil {
		o.logger.Warn("notification_failed", "request_id", requestID, "error", err)
	}
}

func (o *Orchestrator) audit(payload string) {
	if o.auditor != nil {
		o.auditor.Append(payload)
	}
}
