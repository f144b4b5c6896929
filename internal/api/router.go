// Package api exposes the request lifecycle and ledger read models over
// HTTP. The surface is thin: handlers translate between JSON and the
// domain services, which own all the rules.
package api

import (
	"context"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/example/property-ledger/internal/accounts"
	"github.com/example/property-ledger/internal/convert"
	"github.com/example/property-ledger/internal/directory"
	"github.com/example/property-ledger/internal/expenses"
	"github.com/example/property-ledger/internal/ledger"
	"github.com/example/property-ledger/internal/requests"
	"github.com/example/property-ledger/internal/security"
	"github.com/example/property-ledger/pkg/audit"
)

// Auditor appends to the tamper-evident audit trail.
type Auditor interface {
	Append(payload string) *audit.LogEntry
}

// RequestService is the slice of the request lifecycle the API drives
// directly. Approval and rejection go through the Converter instead, which
// owns rollback on conversion failure and outcome notification.
type RequestService interface {
	Create(ctx context.Context, r *requests.Request, actor directory.Actor) (*requests.Request, error)
	Get(ctx context.Context, id string) (*requests.Request, error)
	Submit(ctx context.Context, id string, actor directory.Actor) (*requests.Request, error)
}

// Converter owns the decision endpoints: approve-and-convert as one unit,
// plus rejection so the outcome notifier hears about both verdicts.
type Converter interface {
	Convert(ctx context.Context, requestID string, actor directory.Actor) (*convert.Result, error)
	ApproveAndConvert(ctx context.Context, requestID string, actor directory.Actor, notes string) (*convert.Result, error)
	Reject(ctx context.Context, requestID string, actor directory.Actor, reason string) (*requests.Request, error)
}

// Dependencies wires the router to the domain.
type Dependencies struct {
	Logger   *slog.Logger
	Requests RequestService
	Convert  Converter

	Accounts interface {
		List(ctx context.Context) ([]*accounts.Account, error)
	}
	Transactions interface {
		GetByTransactionID(ctx context.Context, transactionID string) (*ledger.Transaction, error)
	}
	Expenses interface {
		ListByRequest(ctx context.Context, requestID string) ([]*expenses.Expense, error)
	}
	Payments interface {
		MarkPaid(ctx context.Context, expenseID, method string, actor directory.Actor) (*expenses.Expense, error)
	}

	Auditor      Auditor
	RateLimiter  *security.RedisTokenBucket
	MaxBodyBytes int64
}

// NewRouter builds the HTTP handler.
func NewRouter(deps Dependencies) (http.Handler, error) {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	createRequestV, err := security.NewJSONSchemaValidator(createRequestSchema)
	if err != nil {
		return nil, err
	}
	rejectV, err := security.NewJSONSchemaValidator(rejectSchema)
	if err != nil {
		return nil, err
	}
	payV, err := security.NewJSONSchemaValidator(paySchema)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(security.CorrelationID)
	r.Use(RequestLogger(deps.Logger))
	r.Use(security.BodySizeLimit(deps.MaxBodyBytes))
	if deps.RateLimiter != nil {
		r.Use(security.RateLimitMiddleware(deps.RateLimiter, rateLimitKeyByIP))
	}
	if deps.Auditor != nil {
		r.Use(AuditMiddleware(deps.Auditor))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(RequireActor)

		r.Route("/requests", func(r chi.Router) {
			r.With(createRequestV.Middleware).Post("/", handleCreateRequest(deps))

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", handleGetRequest(deps))
				r.Post("/submit", handleSubmitRequest(deps))
				r.Post("/approve", handleApproveRequest(deps))
				r.With(rejectV.Middleware).Post("/reject", handleRejectRequest(deps))
				r.Post("/convert", handleConvertRequest(deps))
				r.Get("/expenses", handleListRequestExpenses(deps))
			})
		})

		r.With(payV.Middleware).Post("/expenses/{id}/pay", handlePayExpense(deps))
		r.Get("/accounts", handleListAccounts(deps))
		r.Get("/transactions/{id}", handleGetTransaction(deps))
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		security.WriteJSONError(w, r, http.StatusNotFound, "not_found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		security.WriteJSONError(w, r, http.StatusMethodNotAllowed, "method_not_allowed")
	})

	return r, nil
}

func rateLimitKeyByIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return ""
	}
	return "ip:" + host
}
