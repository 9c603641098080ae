package wallet

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reward-hub/reward_hub/internal/ledger"
	"github.com/reward-hub/reward_hub/internal/logging"
)

const testUser = "user-1"

func newTestApp(t *testing.T) (*fiber.App, *ledger.Coordinator) {
	t.Helper()
	engine, err := ledger.NewEngine(ledger.NewInMemory(), ledger.DefaultFeePolicy())
	require.NoError(t, err)
	coord := ledger.NewCoordinator(engine, 0)
	_, err = coord.OpenWallet(context.Background(), testUser)
	require.NoError(t, err)

	h := NewHandler(coord, logging.Discard())
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", testUser)
		return c.Next()
	})
	app.Get("/wallet", h.Summary)
	app.Get("/wallet/transactions", h.Transactions)
	app.Post("/wallet/withdrawals/quote", h.Quote)
	app.Post("/wallet/withdrawals", h.Withdraw)
	app.Get("/config/withdrawal", h.Policy)
	app.Post("/admin/wallets/:userId/earnings", h.CreditEarning)
	app.Get("/admin/wallets/:userId", h.Get)
	return app, coord
}

func do(t *testing.T, app *fiber.App, method, path, body string, out any) int {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestEarningThenWithdrawalFlow(t *testing.T) {
	app, _ := newTestApp(t)

	var credited ReceiptResponse
	status := do(t, app, fiber.MethodPost, "/admin/wallets/"+testUser+"/earnings", `{"amount":"100","description":"survey"}`, &credited)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "100.00", credited.Wallet.Balance)
	assert.Equal(t, "earning", credited.Transaction.Type)

	var first ReceiptResponse
	status = do(t, app, fiber.MethodPost, "/wallet/withdrawals", `{"amount":"20"}`, &first)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "approved", first.Transaction.Status)
	assert.Equal(t, "0.00", first.Fee)
	assert.Equal(t, "80.00", first.Wallet.Balance)

	var quote QuoteResponse
	status = do(t, app, fiber.MethodPost, "/wallet/withdrawals/quote", `{"amount":50}`, &quote)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "1.00", quote.Fee)
	assert.Equal(t, "49.00", quote.NetPayout)
	assert.False(t, quote.FirstWithdrawal)

	var second ReceiptResponse
	status = do(t, app, fiber.MethodPost, "/wallet/withdrawals", `{"amount":"50"}`, &second)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "pending", second.Transaction.Status)
	assert.Equal(t, "30.00", second.Wallet.Balance)
	assert.Equal(t, "49.00", second.NetPayout)

	var summary SummaryResponse
	status = do(t, app, fiber.MethodGet, "/wallet", "", &summary)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 2, summary.Wallet.WithdrawalCount)
	require.Len(t, summary.Recent, 3)
	assert.Equal(t, second.Transaction.ID, summary.Recent[0].ID)

	var page struct {
		Transactions []TransactionResponse `json:"transactions"`
	}
	status = do(t, app, fiber.MethodGet, "/wallet/transactions?limit=1", "", &page)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, page.Transactions, 1)
}

func TestWithdrawalErrorMapping(t *testing.T) {
	app, coord := newTestApp(t)
	_, err := coord.RecordEarning(context.Background(), testUser, decimal.NewFromInt(15), "")
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnprocessableEntity, do(t, app, fiber.MethodPost, "/wallet/withdrawals", `{"amount":"5"}`, nil))
	assert.Equal(t, http.StatusUnprocessableEntity, do(t, app, fiber.MethodPost, "/wallet/withdrawals", `{"amount":"20"}`, nil))
	assert.Equal(t, http.StatusBadRequest, do(t, app, fiber.MethodPost, "/admin/wallets/"+testUser+"/earnings", `{"amount":"-1"}`, nil))
	assert.Equal(t, http.StatusNotFound, do(t, app, fiber.MethodGet, "/admin/wallets/nobody", "", nil))
	assert.Equal(t, http.StatusBadRequest, do(t, app, fiber.MethodGet, "/wallet/transactions?limit=abc", "", nil))

	w, err := coord.GetWallet(context.Background(), testUser)
	require.NoError(t, err)
	assert.True(t, w.Balance.Equal(decimal.NewFromInt(15)))
}

func TestPolicyEndpoint(t *testing.T) {
	app, _ := newTestApp(t)

	var policy PolicyResponse
	require.Equal(t, http.StatusOK, do(t, app, fiber.MethodGet, "/config/withdrawal", "", &policy))
	assert.Equal(t, "10.00", policy.MinimumWithdrawal)
	assert.Equal(t, "0.02", policy.FeeRate)
	assert.True(t, policy.FirstWithdrawFree)
}
