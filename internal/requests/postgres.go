package requests

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PostgresStore persists requests. Items, monthly approvals and history are
// embedded as JSONB so a request is always read whole.
type PostgresStore struct {
	Pool *pgxpool.Pool
}

// NewPostgresStore creates a store backed by the given pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{Pool: pool}
}

// Create inserts a request.
func (s *PostgresStore) Create(ctx context.Context, r *Request) error {
	queryCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	items, approvals, history, err := encodeEmbedded(r)
	if err != nil {
		return err
	}

	_, err = s.Pool.Exec(queryCtx, `
		INSERT INTO requests (
			id, title, description, residence_id, month, year, status,
			items, total_estimated_cost, submitted_by, approved_by, approved_at,
			date_approved, accounting_date, notes, history, is_template,
			template_id, monthly_approvals, created_at, updated_at
		) VALUES ($1, $2, $3, $4, NULLIF($5, 0), NULLIF($6, 0), $7, $8, $9, $10,
		          NULLIF($11, ''), $12, $13, $14, $15, $16, $17, NULLIF($18, ''), $19, $20, $21)
	`, r.ID, r.Title, r.Description, r.ResidenceID, r.Month, r.Year, string(r.Status),
		items, r.TotalEstimatedCost.String(), r.SubmittedBy, r.ApprovedBy, r.ApprovedAt,
		r.DateApproved, r.AccountingDate, r.Notes, history, r.IsTemplate,
		r.TemplateID, approvals, r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert request %s: %w", r.ID, err)
	}
	return nil
}

// Get retrieves one request by id.
func (s *PostgresStore) Get(ctx context.Context, id string) (*Request, error) {
	queryCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var r Request
	var status string
	var total string
	var items, approvals, history []byte

	err := s.Pool.QueryRow(queryCtx, `
		SELECT id, title, description, residence_id, COALESCE(month, 0), COALESCE(year, 0), status,
		       items, total_estimated_cost, submitted_by, COALESCE(approved_by, ''), approved_at,
		       date_approved, accounting_date, COALESCE(notes, ''), history, is_template,
		       COALESCE(template_id, ''), monthly_approvals, created_at, updated_at
		FROM requests
		WHERE id = $1
	`, id).Scan(&r.ID, &r.Title, &r.Description, &r.ResidenceID, &r.Month, &r.Year, &status,
		&items, &total, &r.SubmittedBy, &r.ApprovedBy, &r.ApprovedAt,
		&r.DateApproved, &r.AccountingDate, &r.Notes, &history, &r.IsTemplate,
		&r.TemplateID, &approvals, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get request %s: %w", id, err)
	}

	r.Status = Status(status)
	if r.TotalEstimatedCost, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("failed to parse total: %w", err)
	}
	if err := decodeEmbedded(&r, items, approvals, history); err != nil {
		return nil, err
	}
	return &r, nil
}

// Update replaces the mutable columns of a request.
func (s *PostgresStore) Update(ctx context.Context, r *Request) error {
	queryCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	items, approvals, history, err := encodeEmbedded(r)
	if err != nil {
		return err
	}

	tag, err := s.Pool.Exec(queryCtx, `
		UPDATE requests
		SET title = $2, description = $3, status = $4, items = $5,
		    total_estimated_cost = $6, submitted_by = $7, approved_by = NULLIF($8, ''),
		    approved_at = $9, date_approved = $10, accounting_date = $11, notes = $12,
		    history = $13, monthly_approvals = $14, updated_at = $15
		WHERE id = $1
	`, r.ID, r.Title, r.Description, string(r.Status), items,
		r.TotalEstimatedCost.String(), r.SubmittedBy, r.ApprovedBy,
		r.ApprovedAt, r.DateApproved, r.AccountingDate, r.Notes,
		history, approvals, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update request %s: %w", r.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func encodeEmbedded(r *Request) (items, approvals, history []byte, err error) {
	if items, err = json.Marshal(r.Items); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to encode items: %w", err)
	}
	if approvals, err = json.Marshal(r.MonthlyApprovals); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to encode monthly approvals: %w", err)
	}
	if history, err = json.Marshal(r.History); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to encode history: %w", err)
	}
	return items, approvals, history, nil
}

func decodeEmbedded(r *Request, items, approvals, history []byte) error {
	if err := json.Unmarshal(items, &r.Items); err != nil {
		return fmt.Errorf("failed to decode items: %w", err)
	}
	if err := json.Unmarshal(approvals, &r.MonthlyApprovals); err != nil {
		return fmt.Errorf("failed to decode monthly approvals: %w", err)
	}
	if err := json.Unmarshal(history, &r.History); err != nil {
		return fmt.Errorf("failed to decode history: %w", err)
	}
	return nil
}
