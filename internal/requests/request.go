// Package requests models maintenance/operational requests and the approval
// state machine that gates their conversion into ledger postings. A request
// is either a reusable template or a concrete instance scoped to one
// (month, year); only instances ever produce expenses.
package requests

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Item categories, a closed enum.
const (
	ItemUtilities   = "utilities"
	ItemMaintenance = "maintenance"
	ItemSupplies    = "supplies"
	ItemEquipment   = "equipment"
	ItemServices    = "services"
	ItemOther       = "other"
)

// Quotation is one vendor bid on an item. At most one quotation per item is
// selected at a time.
type Quotation struct {
	Provider   string          `json:"provider"`
	Amount     decimal.Decimal `json:"amount"`
	IsSelected bool            `json:"is_selected"`
}

// ItemChange is an append-only audit record of one field change on an item.
type ItemChange struct {
	Date   time.Time `json:"date"`
	Actor  string    `json:"actor"`
	Field  string    `json:"field"`
	OldVal string    `json:"old_val"`
	NewVal string    `json:"new_val"`
}

// Item is one line of a request.
type Item struct {
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	Quantity      int             `json:"quantity"`
	EstimatedCost decimal.Decimal `json:"estimated_cost"`
	Category      string          `json:"category"`
	Quotations    []Quotation     `json:"quotations,omitempty"`
	Changes       []ItemChange    `json:"changes,omitempty"`
}

// Cost is the item's contribution to the request total.
func (i Item) Cost() decimal.Decimal {
	return i.EstimatedCost.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// SelectedProvider returns the provider of the selected quotation, or ""
// when no quotation is selected.
func (i Item) SelectedProvider() string {
	for _, q := range i.Quotations {
		if q.IsSelected {
			return q.Provider
		}
	}
	return ""
}

// Validate checks the item's own invariants.
func (i Item) Validate() error {
	if i.Title == "" {
		return fmt.Errorf("item title is required")
	}
	if i.Quantity < 1 {
		return fmt.Errorf("item %q: quantity must be at least 1", i.Title)
	}
	if i.EstimatedCost.IsNegative() {
		return fmt.Errorf("item %q: estimated cost must not be negative", i.Title)
	}
	selected := 0
	for _, q := range i.Quotations {
		if q.IsSelected {
			selected++
		}
	}
	if selected > 1 {
		return fmt.Errorf("item %q: at most one quotation may be selected", i.Title)
	}
	return nil
}

// HistoryEntry is one append-only audit line on a request.
type HistoryEntry struct {
	Date    time.Time `json:"date"`
	Action  string    `json:"action"`
	Actor   string    `json:"actor"`
	Details string    `json:"details,omitempty"`
}

// MonthlyApproval is a template's per-(month, year) submission record, with
// its own status mirroring the instance state machine and a snapshot of the
// items at submission time.
type MonthlyApproval struct {
	Month       int             `json:"month"`
	Year        int             `json:"year"`
	Status      Status          `json:"status"`
	Items       []Item          `json:"items"`
	TotalCost   decimal.Decimal `json:"total_cost"`
	SubmittedBy string          `json:"submitted_by"`
	SubmittedAt time.Time       `json:"submitted_at"`
	ApprovedBy  string          `json:"approved_by,omitempty"`
	ApprovedAt  *time.Time      `json:"approved_at,omitempty"`
	Note        string          `json:"note,omitempty"`
}

// Request is a template or an instance. Month/Year are set on instances
// only. TemplateID is a weak back-reference for lookup, never a cascade.
type Request struct {
	ID                 string            `json:"id"`
	Title              string            `json:"title"`
	Description        string            `json:"description"`
	ResidenceID        string            `json:"residence_id"`
	Month              int               `json:"month,omitempty"`
	Year               int               `json:"year,omitempty"`
	Status             Status            `json:"status"`
	Items              []Item            `json:"items"`
	TotalEstimatedCost decimal.Decimal   `json:"total_estimated_cost"`
	SubmittedBy        string            `json:"submitted_by"`
	ApprovedBy         string            `json:"approved_by,omitempty"`
	ApprovedAt         *time.Time        `json:"approved_at,omitempty"`
	DateApproved       *time.Time        `json:"date_approved,omitempty"`
	AccountingDate     *time.Time        `json:"accounting_date,omitempty"`
	Notes              string            `json:"notes,omitempty"`
	History            []HistoryEntry    `json:"history"`
	IsTemplate         bool              `json:"is_template"`
	TemplateID         string            `json:"template_id,omitempty"`
	MonthlyApprovals   []MonthlyApproval `json:"monthly_approvals,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

// RecomputeTotal re-derives the estimated total from the items. Called on
// every mutation so the stored total never drifts.
func (r *Request) RecomputeTotal() {
	total := decimal.Zero
	for _, item := range r.Items {
		total = total.Add(item.Cost())
	}
	r.TotalEstimatedCost = total
}

// AppendHistory records one audit line.
func (r *Request) AppendHistory(now time.Time, action, actor, details string) {
	r.History = append(r.History, HistoryEntry{Date: now, Action: action, Actor: actor, Details: details})
}

// EffectiveDate is the accounting date for postings and expenses derived
// from this request: an explicitly supplied approval date wins, then the
// first day of the instance's month, then the current time.
func (r *Request) EffectiveDate(clock Clock) time.Time {
	if r.DateApproved != nil {
		return *r.DateApproved
	}
	if r.Month >= 1 && r.Month <= 12 && r.Year > 0 {
		return time.Date(r.Year, time.Month(r.Month), 1, 0, 0, 0, 0, time.UTC)
	}
	return clock.Now().UTC()
}

// MonthlyApprovalFor returns the sub-record for (month, year), or nil.
func (r *Request) MonthlyApprovalFor(month, year int) *MonthlyApproval {
	for i := range r.MonthlyApprovals {
		if r.MonthlyApprovals[i].Month == month && r.MonthlyApprovals[i].Year == year {
			return &r.MonthlyApprovals[i]
		}
	}
	return nil
}

// Validate checks structural invariants shared by templates and instances.
func (r *Request) Validate() error {
	if r.Title == "" {
		return fmt.Errorf("request title is required")
	}
	if r.IsTemplate {
		if r.Month != 0 || r.Year != 0 {
			return fmt.Errorf("template %s must not carry a month/year", r.ID)
		}
	} else {
		if r.Month < 1 || r.Month > 12 {
			return fmt.Errorf("instance %s has invalid month %d", r.ID, r.Month)
		}
		if r.Year < 2000 {
			return fmt.Errorf("instance %s has invalid year %d", r.ID, r.Year)
		}
	}
	for _, item := range r.Items {
		if err := item.Validate(); err != nil {
			return err
		}
	}
	return nil
}
