package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/property-ledger/internal/accounts"
	"github.com/example/property-ledger/internal/convert"
	"github.com/example/property-ledger/internal/expenses"
	"github.com/example/property-ledger/internal/ledger"
	"github.com/example/property-ledger/internal/requests"
	"github.com/example/property-ledger/internal/security"
	"github.com/example/property-ledger/pkg/audit"
)

type auditSpy struct{ calls int }

func (a *auditSpy) Append(payload string) *audit.LogEntry {
	a.calls++
	return &audit.LogEntry{Hash: payload}
}

type backends struct {
	requests *requests.Service
	txStore  *ledger.MemoryStore
	expStore *expenses.MemoryStore
	audit    *auditSpy
}

func newTestServer(t *testing.T, mutate func(*Dependencies)) (*httptest.Server, *backends) {
	t.Helper()
	clock := requests.ClockFunc(func() time.Time {
		return time.Date(2025, time.September, 20, 10, 0, 0, 0, time.UTC)
	})

	accStore := accounts.NewMemoryStore()
	txStore := ledger.NewMemoryStore()
	expStore := expenses.NewMemoryStore()
	reqStore := requests.NewMemoryStore()

	registry := accounts.NewRegistry(accStore, nil)
	engine := ledger.NewEngine(registry, txStore, nil)
	materializer := expenses.NewMaterializer(expStore, nil)
	reqs := requests.NewService(reqStore, clock, nil)
	orch := convert.New(reqs, engine, materializer, nil, convert.WithClock(clock))
	payments := expenses.NewService(expStore, engine, nil)

	spy := &auditSpy{}
	deps := Dependencies{
		Requests:     reqs,
		Convert:      orch,
		Accounts:     accStore,
		Transactions: txStore,
		Expenses:     expStore,
		Payments:     payments,
		Auditor:      spy,
		MaxBodyBytes: 1 << 20,
	}
	if mutate != nil {
		mutate(&deps)
	}

	h, err := NewRouter(deps)
	require.NoError(t, err)

	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return ts, &backends{requests: reqs, txStore: txStore, expStore: expStore, audit: spy}
}

func doJSON(t *testing.T, method, url string, body any, headers map[string]string) (*http.Response, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, rd)
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &decoded)
	}
	return resp, decoded
}

func managerHeaders() map[string]string {
	return map[string]string{ActorIDHeader: "user-manager", ActorRoleHeader: "manager"}
}

func financeHeaders() map[string]string {
	return map[string]string{ActorIDHeader: "user-finance", ActorRoleHeader: "finance"}
}

func utilitiesBody() map[string]any {
	return map[string]any{
		"title":        "Utilities",
		"residence_id": "res-1",
		"month":        10,
		"year":         2025,
		"items": []map[string]any{
			{"title": "Water bill", "quantity": 1, "estimated_cost": 50, "category": "utilities"},
			{"title": "Electricity bill", "quantity": 1, "estimated_cost": 120, "category": "utilities"},
		},
	}
}

func TestHealthz(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestActorRequired(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	resp, _ := doJSON(t, http.MethodGet, ts.URL+"/v1/accounts", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCreateApproveAndReadBack(t *testing.T) {
	ts, be := newTestServer(t, nil)

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/v1/requests", utilitiesBody(), managerHeaders())
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get(security.CorrelationIDHeader))

	created := body["request"].(map[string]any)
	id := created["id"].(string)
	// A future month created by a manager lands in pending.
	assert.Equal(t, "pending", created["status"])

	resp, body = doJSON(t, http.MethodPost, ts.URL+"/v1/requests/"+id+"/approve",
		map[string]any{"notes": "approved for October"}, financeHeaders())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "completed", body["status"])
	require.Len(t, body["expenses"].([]any), 2)

	// The posted transaction is readable by its human id.
	require.Len(t, be.txStore.All(), 2)
	txID := be.txStore.All()[0].TransactionID
	resp, body = doJSON(t, http.MethodGet, ts.URL+"/v1/transactions/"+txID, nil, managerHeaders())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	tx := body["transaction"].(map[string]any)
	assert.Equal(t, txID, tx["transaction_id"])

	resp, body = doJSON(t, http.MethodGet, ts.URL+"/v1/requests/"+id+"/expenses", nil, managerHeaders())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["expenses"].([]any), 2)

	// The resolved accounts are now listable.
	resp, body = doJSON(t, http.MethodGet, ts.URL+"/v1/accounts", nil, managerHeaders())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body["accounts"])

	assert.Greater(t, be.audit.calls, 0)
}

func TestPayExpense(t *testing.T) {
	ts, be := newTestServer(t, nil)

	_, body := doJSON(t, http.MethodPost, ts.URL+"/v1/requests", utilitiesBody(), managerHeaders())
	id := body["request"].(map[string]any)["id"].(string)
	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/v1/requests/"+id+"/approve", nil, financeHeaders())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	expID := be.expStore.All()[0].ExpenseID

	// Managers cannot move money.
	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/v1/expenses/"+expID+"/pay",
		map[string]any{"payment_method": "bank_transfer"}, managerHeaders())
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Unknown methods never reach the service.
	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/v1/expenses/"+expID+"/pay",
		map[string]any{"payment_method": "barter"}, financeHeaders())
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = doJSON(t, http.MethodPost, ts.URL+"/v1/expenses/"+expID+"/pay",
		map[string]any{"payment_method": "bank_transfer"}, financeHeaders())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Paid", body["expense"].(map[string]any)["payment_status"])

	// Each accrual already posted one transaction; the payment adds one more.
	assert.Len(t, be.txStore.All(), 3)

	// Paying twice is refused.
	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/v1/expenses/"+expID+"/pay",
		map[string]any{"payment_method": "bank_transfer"}, financeHeaders())
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestApproveRequiresApproverRole(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	_, body := doJSON(t, http.MethodPost, ts.URL+"/v1/requests", utilitiesBody(), managerHeaders())
	id := body["request"].(map[string]any)["id"].(string)

	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/v1/requests/"+id+"/approve", nil, managerHeaders())
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestApprovePartialFailureReturnsConflict(t *testing.T) {
	ts, be := newTestServer(t, nil)

	reqBody := utilitiesBody()
	reqBody["items"] = append(reqBody["items"].([]map[string]any),
		map[string]any{"title": "Placeholder", "quantity": 1, "estimated_cost": 0, "category": "other"})
	_, body := doJSON(t, http.MethodPost, ts.URL+"/v1/requests", reqBody, managerHeaders())
	id := body["request"].(map[string]any)["id"].(string)

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/v1/requests/"+id+"/approve", nil, financeHeaders())
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "pending", body["status"])
	require.Len(t, body["errors"].([]any), 1)

	stored, err := be.requests.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, requests.StatusPending, stored.Status)
}

func TestConvertCompletedRequestConflicts(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	_, body := doJSON(t, http.MethodPost, ts.URL+"/v1/requests", utilitiesBody(), managerHeaders())
	id := body["request"].(map[string]any)["id"].(string)

	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/v1/requests/"+id+"/approve", nil, financeHeaders())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = doJSON(t, http.MethodPost, ts.URL+"/v1/requests/"+id+"/convert", nil, financeHeaders())
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "invalid_transition", body["error"])
}

func TestRejectValidation(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	_, body := doJSON(t, http.MethodPost, ts.URL+"/v1/requests", utilitiesBody(), managerHeaders())
	id := body["request"].(map[string]any)["id"].(string)

	// Reason is mandatory.
	resp, body := doJSON(t, http.MethodPost, ts.URL+"/v1/requests/"+id+"/reject", map[string]any{}, financeHeaders())
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation_error", body["error"])

	resp, body = doJSON(t, http.MethodPost, ts.URL+"/v1/requests/"+id+"/reject",
		map[string]any{"reason": "over budget"}, financeHeaders())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "rejected", body["request"].(map[string]any)["status"])
}

func TestCreateRequestSchemaRejectsBadPayloads(t *testing.T) {
	ts, be := newTestServer(t, nil)

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/v1/requests",
		map[string]any{"items": []map[string]any{}}, managerHeaders())
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation_error", body["error"])

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/v1/requests",
		map[string]any{
			"title": "Bad quantity",
			"items": []map[string]any{{"title": "x", "quantity": 0, "estimated_cost": 5}},
		}, managerHeaders())
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	assert.Empty(t, be.txStore.All())
}

func TestNotFoundMapping(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/v1/requests/nope", nil, managerHeaders())
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", body["error"])

	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/v1/transactions/TXN-NOPE", nil, managerHeaders())
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRequestRoutesResolveWithAndWithoutTrailingSlash(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/v1/requests", utilitiesBody(), managerHeaders())
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id := body["request"].(map[string]any)["id"].(string)

	for _, path := range []string{"/v1/requests/" + id, "/v1/requests/" + id + "/"} {
		resp, _ := doJSON(t, http.MethodGet, ts.URL+path, nil, managerHeaders())
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}

func TestRateLimitTrips(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	ts, _ := newTestServer(t, func(d *Dependencies) {
		d.RateLimiter = &security.RedisTokenBucket{Redis: rdb, Prefix: "test", Capacity: 1, RefillRate: 0.0000001}
	})

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestBodySizeLimit(t *testing.T) {
	ts, _ := newTestServer(t, func(d *Dependencies) {
		d.MaxBodyBytes = 32
	})

	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/v1/requests", utilitiesBody(), managerHeaders())
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestMonetaryAmountsSurviveTheWire(t *testing.T) {
	ts, be := newTestServer(t, nil)

	reqBody := utilitiesBody()
	reqBody["items"] = []map[string]any{
		{"title": "Water bill", "quantity": 1, "estimated_cost": 50.10, "category": "utilities"},
	}
	resp, body := doJSON(t, http.MethodPost, ts.URL+"/v1/requests", reqBody, managerHeaders())
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id := body["request"].(map[string]any)["id"].(string)

	stored, err := be.requests.Get(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, stored.Items[0].EstimatedCost.Equal(decimal.RequireFromString("50.10")),
		"got %s", stored.Items[0].EstimatedCost)
}
