package payout

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reward-hub/reward_hub/internal/ledger"
	"github.com/reward-hub/reward_hub/internal/logging"
	"github.com/reward-hub/reward_hub/internal/notification"
)

type recordingNotifier struct {
	messages []notification.Message
}

func (n *recordingNotifier) Send(_ context.Context, m notification.Message) error {
	n.messages = append(n.messages, m)
	return nil
}

type failingDisburser struct{}

func (failingDisburser) Disburse(context.Context, Disbursement) (Decision, error) {
	return Decision{}, errors.New("rail down")
}

type capturingDisburser struct {
	got Disbursement
}

func (d *capturingDisburser) Disburse(_ context.Context, in Disbursement) (Decision, error) {
	d.got = in
	return Decision{Reference: "ref-1", Status: "approved"}, nil
}

// setup returns a store holding one approved and one pending withdrawal.
func setup(t *testing.T) (*ledger.InMemoryStore, *ledger.Coordinator, ledger.Transaction) {
	t.Helper()
	ctx := context.Background()
	store := ledger.NewInMemory()
	engine, err := ledger.NewEngine(store, ledger.DefaultFeePolicy())
	require.NoError(t, err)
	coord := ledger.NewCoordinator(engine, 0)

	_, err = coord.OpenWallet(ctx, "u1")
	require.NoError(t, err)
	_, err = coord.RecordEarning(ctx, "u1", decimal.NewFromInt(100), "")
	require.NoError(t, err)
	_, err = coord.RequestWithdrawal(ctx, "u1", decimal.NewFromInt(20))
	require.NoError(t, err)
	receipt, err := coord.RequestWithdrawal(ctx, "u1", decimal.NewFromInt(50))
	require.NoError(t, err)
	require.Equal(t, ledger.StatusPending, receipt.Transaction.Status)
	return store, coord, receipt.Transaction
}

func TestApproveDisbursesNetPayout(t *testing.T) {
	store, coord, pending := setup(t)
	notifier := &recordingNotifier{}
	disburser := &capturingDisburser{}
	svc := NewService(store, ledger.DefaultFeePolicy(), disburser, notifier, logging.Discard())

	listed, err := svc.ListPending(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, pending.ID, listed[0].ID)

	result, err := svc.Approve(context.Background(), pending.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusApproved, result.Transaction.Status)
	assert.Equal(t, "1.00", result.Fee.StringFixed(2))
	assert.Equal(t, "49.00", disburser.got.NetPayout.StringFixed(2))
	assert.Equal(t, "ref-1", result.Reference)

	require.Len(t, notifier.messages, 1)
	assert.Equal(t, notification.KindWithdrawalApproved, notifier.messages[0].Kind)
	assert.Equal(t, "u1", notifier.messages[0].Destination)

	_, err = svc.Approve(context.Background(), pending.ID)
	assert.ErrorIs(t, err, ledger.ErrNotPending)

	w, err := coord.GetWallet(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "30.00", w.Balance.StringFixed(2))
}

func TestApproveLeavesPendingOnDisburseFailure(t *testing.T) {
	store, _, pending := setup(t)
	svc := NewService(store, ledger.DefaultFeePolicy(), failingDisburser{}, nil, logging.Discard())

	_, err := svc.Approve(context.Background(), pending.ID)
	require.Error(t, err)

	txn, err := store.ReadTransaction(context.Background(), pending.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusPending, txn.Status)
}

func TestRejectKeepsBalanceDebited(t *testing.T) {
	store, coord, pending := setup(t)
	notifier := &recordingNotifier{}
	svc := NewService(store, ledger.DefaultFeePolicy(), nil, notifier, logging.Discard())

	txn, err := svc.Reject(context.Background(), pending.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusRejected, txn.Status)

	w, err := coord.GetWallet(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "30.00", w.Balance.StringFixed(2))
	assert.True(t, w.Balanced())

	require.Len(t, notifier.messages, 1)
	assert.Equal(t, notification.KindWithdrawalRejected, notifier.messages[0].Kind)

	_, err = svc.Reject(context.Background(), "missing")
	assert.ErrorIs(t, err, ledger.ErrTransactionNotFound)
}

func TestHandlerStatusCodes(t *testing.T) {
	store, _, pending := setup(t)
	h := NewHandler(NewService(store, ledger.DefaultFeePolicy(), nil, nil, logging.Discard()), logging.Discard())

	app := fiber.New()
	app.Get("/withdrawals/pending", h.Pending)
	app.Post("/withdrawals/:id/approve", h.Approve)
	app.Post("/withdrawals/:id/reject", h.Reject)

	send := func(method, path string) int {
		resp, err := app.Test(httptest.NewRequest(method, path, nil))
		require.NoError(t, err)
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusOK, send(fiber.MethodGet, "/withdrawals/pending?limit=5"))
	assert.Equal(t, http.StatusOK, send(fiber.MethodPost, "/withdrawals/"+pending.ID+"/approve"))
	assert.Equal(t, http.StatusConflict, send(fiber.MethodPost, "/withdrawals/"+pending.ID+"/reject"))
	assert.Equal(t, http.StatusNotFound, send(fiber.MethodPost, "/withdrawals/nope/approve"))
}
