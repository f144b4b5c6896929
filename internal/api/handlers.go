package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/example/property-ledger/internal/convert"
	"github.com/example/property-ledger/internal/expenses"
	"github.com/example/property-ledger/internal/ledger"
	"github.com/example/property-ledger/internal/requests"
	"github.com/example/property-ledger/internal/security"
)

type createRequestPayload struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	ResidenceID string          `json:"residence_id"`
	Month       int             `json:"month"`
	Year        int             `json:"year"`
	IsTemplate  bool            `json:"is_template"`
	Items       []requests.Item `json:"items"`
}

type requestResponse struct {
	CorrelationID string            `json:"correlation_id"`
	Request       *requests.Request `json:"request"`
}

type decisionPayload struct {
	Notes  string `json:"notes"`
	Reason string `json:"reason"`
}

type conversionResponse struct {
	CorrelationID string              `json:"correlation_id"`
	RequestID     string              `json:"request_id"`
	Status        requests.Status     `json:"status"`
	Success       bool                `json:"success"`
	Expenses      []*expenses.Expense `json:"expenses"`
	Errors        []convert.ItemError `json:"errors,omitempty"`
}

func handleCreateRequest(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createRequestPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			security.WriteJSONError(w, r, http.StatusBadRequest, "invalid_json")
			return
		}

		req, err := deps.Requests.Create(r.Context(), &requests.Request{
			Title:       payload.Title,
			Description: payload.Description,
			ResidenceID: payload.ResidenceID,
			Month:       payload.Month,
			Year:        payload.Year,
			IsTemplate:  payload.IsTemplate,
			Items:       payload.Items,
		}, ActorFromContext(r.Context()))
		if err != nil {
			writeDomainError(w, r, err)
			return
		}

		writeJSON(w, r, http.StatusCreated, requestResponse{
			CorrelationID: security.CorrelationIDFromContext(r.Context()),
			Request:       req,
		})
	}
}

func handleGetRequest(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := deps.Requests.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, requestResponse{
			CorrelationID: security.CorrelationIDFromContext(r.Context()),
			Request:       req,
		})
	}
}

func handleSubmitRequest(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := deps.Requests.Submit(r.Context(), chi.URLParam(r, "id"), ActorFromContext(r.Context()))
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, requestResponse{
			CorrelationID: security.CorrelationIDFromContext(r.Context()),
			Request:       req,
		})
	}
}

// handleApproveRequest drives approve-and-convert as one unit. A partial
// conversion failure comes back as 409 with the per-item errors; the
// request itself has already been rolled back to pending.
func handleApproveRequest(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload decisionPayload
		if r.Body != nil {
			// The body is optional for approvals.
			_ = json.NewDecoder(r.Body).Decode(&payload)
		}

		res, err := deps.Convert.ApproveAndConvert(r.Context(), chi.URLParam(r, "id"), ActorFromContext(r.Context()), payload.Notes)
		if err != nil {
			var pf *convert.PartialFailureError
			if errors.As(err, &pf) {
				writeJSON(w, r, http.StatusConflict, conversionResponse{
					CorrelationID: security.CorrelationIDFromContext(r.Context()),
					RequestID:     res.RequestID,
					Status:        res.Status,
					Success:       false,
					Expenses:      res.Expenses,
					Errors:        res.Errors,
				})
				return
			}
			writeDomainError(w, r, err)
			return
		}

		writeJSON(w, r, http.StatusOK, conversionResponse{
			CorrelationID: security.CorrelationIDFromContext(r.Context()),
			RequestID:     res.RequestID,
			Status:        res.Status,
			Success:       true,
			Expenses:      res.Expenses,
		})
	}
}

func handleRejectRequest(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload decisionPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			security.WriteJSONError(w, r, http.StatusBadRequest, "invalid_json")
			return
		}

		req, err := deps.Convert.Reject(r.Context(), chi.URLParam(r, "id"), ActorFromContext(r.Context()), payload.Reason)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, requestResponse{
			CorrelationID: security.CorrelationIDFromContext(r.Context()),
			Request:       req,
		})
	}
}

func handleConvertRequest(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := deps.Convert.Convert(r.Context(), chi.URLParam(r, "id"), ActorFromContext(r.Context()))
		if err != nil {
			var pf *convert.PartialFailureError
			if errors.As(err, &pf) {
				writeJSON(w, r, http.StatusConflict, conversionResponse{
					CorrelationID: security.CorrelationIDFromContext(r.Context()),
					RequestID:     res.RequestID,
					Status:        res.Status,
					Success:       false,
					Expenses:      res.Expenses,
					Errors:        res.Errors,
				})
				return
			}
			writeDomainError(w, r, err)
			return
		}

		writeJSON(w, r, http.StatusOK, conversionResponse{
			CorrelationID: security.CorrelationIDFromContext(r.Context()),
			RequestID:     res.RequestID,
			Status:        res.Status,
			Success:       true,
			Expenses:      res.Expenses,
		})
	}
}

func handleListRequestExpenses(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Expenses == nil {
			security.WriteJSONError(w, r, http.StatusServiceUnavailable, "expenses_unavailable")
			return
		}
		list, err := deps.Expenses.ListByRequest(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, map[string]any{
			"correlation_id": security.CorrelationIDFromContext(r.Context()),
			"expenses":       list,
		})
	}
}

type payPayload struct {
	PaymentMethod string `json:"payment_method"`
}

// handlePayExpense settles an accrued expense. Limited to approver roles:
// paying moves money, same as approving.
func handlePayExpense(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Payments == nil {
			security.WriteJSONError(w, r, http.StatusServiceUnavailable, "payments_unavailable")
			return
		}
		actor := ActorFromContext(r.Context())
		if !actor.CanApprove() {
			security.WriteJSONError(w, r, http.StatusForbidden, "forbidden")
			return
		}

		var payload payPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			security.WriteJSONError(w, r, http.StatusBadRequest, "invalid_json")
			return
		}

		exp, err := deps.Payments.MarkPaid(r.Context(), chi.URLParam(r, "id"), payload.PaymentMethod, actor)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, map[string]any{
			"correlation_id": security.CorrelationIDFromContext(r.Context()),
			"expense":        exp,
		})
	}
}

func handleListAccounts(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Accounts == nil {
			security.WriteJSONError(w, r, http.StatusServiceUnavailable, "accounts_unavailable")
			return
		}
		list, err := deps.Accounts.List(r.Context())
		if err != nil {
			security.WriteJSONError(w, r, http.StatusInternalServerError, "internal_error")
			return
		}
		writeJSON(w, r, http.StatusOK, map[string]any{
			"correlation_id": security.CorrelationIDFromContext(r.Context()),
			"accounts":       list,
		})
	}
}

func handleGetTransaction(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Transactions == nil {
			security.WriteJSONError(w, r, http.StatusServiceUnavailable, "ledger_unavailable")
			return
		}
		tx, err := deps.Transactions.GetByTransactionID(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, map[string]any{
			"correlation_id": security.CorrelationIDFromContext(r.Context()),
			"transaction":    tx,
		})
	}
}

// writeDomainError maps domain errors onto HTTP statuses. Unrecognized
// errors are treated as rejected input rather than server faults since the
// services validate before they touch storage.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var ite *requests.InvalidTransitionError
	switch {
	case errors.Is(err, requests.ErrNotFound), errors.Is(err, ledger.ErrNotFound), errors.Is(err, expenses.ErrNotFound):
		security.WriteJSONError(w, r, http.StatusNotFound, "not_found")
	case errors.Is(err, requests.ErrForbidden):
		security.WriteJSONError(w, r, http.StatusForbidden, "forbidden")
	case errors.As(err, &ite):
		security.WriteJSONErrorDetail(w, r, http.StatusConflict, "invalid_transition", ite.Error())
	default:
		security.WriteJSONErrorDetail(w, r, http.StatusBadRequest, "invalid_request", err.Error())
	}
}
