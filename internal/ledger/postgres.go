package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const (
	walletColumns      = `user_id, balance::text, total_earnings::text, total_withdrawals::text, withdrawal_count, updated_at`
	transactionColumns = `id, user_id, type, amount::text, status, created_at, description`

	pgForeignKeyViolation = "23503"
)

// PostgresStore persists wallets and transactions in PostgreSQL. Mutations run
// in a single database transaction holding a row lock on the wallet.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// CreateWallet inserts a zero wallet for an existing user.
func (s *PostgresStore) CreateWallet(ctx context.Context, wallet Wallet) error {
	userID, err := uuid.Parse(wallet.UserID)
	if err != nil {
		return fmt.Errorf("invalid user id %q: %w", wallet.UserID, err)
	}
	cmd, err := s.db.Exec(ctx, `INSERT INTO wallets (user_id, balance, total_earnings, total_withdrawals, withdrawal_count, updated_at)
        VALUES ($1, $2::numeric, $3::numeric, $4::numeric, $5, $6)
        ON CONFLICT (user_id) DO NOTHING`,
		userID, wallet.Balance.String(), wallet.TotalEarnings.String(), wallet.TotalWithdrawals.String(),
		wallet.WithdrawalCount, wallet.UpdatedAt.UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return fmt.Errorf("user %s does not exist", wallet.UserID)
		}
		return unavailable("create wallet", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrWalletExists
	}
	return nil
}

// ReadWallet fetches the committed wallet row.
func (s *PostgresStore) ReadWallet(ctx context.Context, userID string) (Wallet, error) {
	return readWallet(ctx, s.db, `SELECT `+walletColumns+` FROM wallets WHERE user_id = $1`, userID)
}

// ReadLatestWalletSnapshot reads from the primary pool, which always reflects
// every committed transaction.
func (s *PostgresStore) ReadLatestWalletSnapshot(ctx context.Context, userID string) (Wallet, error) {
	return s.ReadWallet(ctx, userID)
}

// ListTransactions returns every transaction of the user, newest first.
func (s *PostgresStore) ListTransactions(ctx context.Context, userID string) ([]Transaction, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, ErrWalletNotFound
	}
	rows, err := s.db.Query(ctx, `SELECT `+transactionColumns+` FROM transactions
        WHERE user_id = $1 ORDER BY created_at DESC, seq DESC`, id)
	if err != nil {
		return nil, unavailable("list transactions", err)
	}
	return collectTransactions(rows)
}

// WithinTx runs fn inside a database transaction and commits only when fn
// succeeds.
func (s *PostgresStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return unavailable("begin", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if err := fn(&postgresTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return unavailable("commit", err)
	}
	return nil
}

// ReadTransaction fetches a single transaction by id.
func (s *PostgresStore) ReadTransaction(ctx context.Context, id string) (Transaction, error) {
	txnID, err := uuid.Parse(id)
	if err != nil {
		return Transaction{}, ErrTransactionNotFound
	}
	row := s.db.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, txnID)
	txn, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transaction{}, ErrTransactionNotFound
		}
		return Transaction{}, unavailable("read transaction", err)
	}
	return txn, nil
}

// PendingWithdrawals lists withdrawals awaiting review, oldest first.
func (s *PostgresStore) PendingWithdrawals(ctx context.Context, limit int) ([]Transaction, error) {
	if limit <= 0 {
		limit = DefaultPendingLimit
	}
	rows, err := s.db.Query(ctx, `SELECT `+transactionColumns+` FROM transactions
        WHERE type = $1 AND status = $2 ORDER BY created_at ASC, seq ASC LIMIT $3`,
		string(TypeWithdrawal), string(StatusPending), limit)
	if err != nil {
		return nil, unavailable("list pending withdrawals", err)
	}
	return collectTransactions(rows)
}

// ResolveWithdrawal conditionally moves a pending withdrawal to status.
func (s *PostgresStore) ResolveWithdrawal(ctx context.Context, id string, status Status) (Transaction, error) {
	txnID, err := uuid.Parse(id)
	if err != nil {
		return Transaction{}, ErrTransactionNotFound
	}
	row := s.db.QueryRow(ctx, `UPDATE transactions SET status = $2
        WHERE id = $1 AND type = $3 AND status = $4
        RETURNING `+transactionColumns,
		txnID, string(status), string(TypeWithdrawal), string(StatusPending))
	txn, err := scanTransaction(row)
	if err == nil {
		return txn, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Transaction{}, unavailable("resolve withdrawal", err)
	}
	if _, err := s.ReadTransaction(ctx, id); err != nil {
		return Transaction{}, err
	}
	return Transaction{}, ErrNotPending
}

type postgresTx struct {
	tx pgx.Tx
}

// ReadLatestWalletSnapshot locks the wallet row until the transaction ends.
func (t *postgresTx) ReadLatestWalletSnapshot(ctx context.Context, userID string) (Wallet, error) {
	return readWallet(ctx, t.tx, `SELECT `+walletColumns+` FROM wallets WHERE user_id = $1 FOR UPDATE`, userID)
}

func (t *postgresTx) AppendTransaction(ctx context.Context, txn Transaction) (Transaction, error) {
	if txn.ID == "" {
		txn.ID = uuid.NewString()
	}
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)
	}
	txnID, err := uuid.Parse(txn.ID)
	if err != nil {
		return Transaction{}, fmt.Errorf("invalid transaction id %q: %w", txn.ID, err)
	}
	userID, err := uuid.Parse(txn.UserID)
	if err != nil {
		return Transaction{}, ErrWalletNotFound
	}
	if _, err := t.tx.Exec(ctx, `INSERT INTO transactions (id, user_id, type, amount, status, created_at, description)
        VALUES ($1, $2, $3, $4::numeric, $5, $6, $7)`,
		txnID, userID, string(txn.Type), txn.Amount.String(), string(txn.Status), txn.CreatedAt, txn.Description); err != nil {
		return Transaction{}, unavailable("append transaction", err)
	}
	return txn, nil
}

func (t *postgresTx) WriteWallet(ctx context.Context, wallet Wallet) error {
	userID, err := uuid.Parse(wallet.UserID)
	if err != nil {
		return ErrWalletNotFound
	}
	cmd, err := t.tx.Exec(ctx, `UPDATE wallets
        SET balance = $2::numeric, total_earnings = $3::numeric, total_withdrawals = $4::numeric,
            withdrawal_count = $5, updated_at = $6
        WHERE user_id = $1`,
		userID, wallet.Balance.String(), wallet.TotalEarnings.String(), wallet.TotalWithdrawals.String(),
		wallet.WithdrawalCount, wallet.UpdatedAt.UTC())
	if err != nil {
		return unavailable("write wallet", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrWalletNotFound
	}
	return nil
}

func readWallet(ctx context.Context, q querier, query, userID string) (Wallet, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return Wallet{}, ErrWalletNotFound
	}
	var (
		w                              Wallet
		uid                            uuid.UUID
		balance, earnings, withdrawals string
	)
	if err := q.QueryRow(ctx, query, id).Scan(&uid, &balance, &earnings, &withdrawals, &w.WithdrawalCount, &w.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Wallet{}, ErrWalletNotFound
		}
		return Wallet{}, unavailable("read wallet", err)
	}
	w.UserID = uid.String()
	w.UpdatedAt = w.UpdatedAt.UTC()
	if w.Balance, err = decimal.NewFromString(balance); err != nil {
		return Wallet{}, fmt.Errorf("decode balance: %w", err)
	}
	if w.TotalEarnings, err = decimal.NewFromString(earnings); err != nil {
		return Wallet{}, fmt.Errorf("decode total earnings: %w", err)
	}
	if w.TotalWithdrawals, err = decimal.NewFromString(withdrawals); err != nil {
		return Wallet{}, fmt.Errorf("decode total withdrawals: %w", err)
	}
	return w, nil
}

func scanTransaction(row pgx.Row) (Transaction, error) {
	var (
		txn               Transaction
		id, userID        uuid.UUID
		kind, status, amt string
	)
	if err := row.Scan(&id, &userID, &kind, &amt, &status, &txn.CreatedAt, &txn.Description); err != nil {
		return Transaction{}, err
	}
	amount, err := decimal.NewFromString(amt)
	if err != nil {
		return Transaction{}, fmt.Errorf("decode amount: %w", err)
	}
	txn.ID = id.String()
	txn.UserID = userID.String()
	txn.Type = TransactionType(kind)
	txn.Status = Status(status)
	txn.Amount = amount
	txn.CreatedAt = txn.CreatedAt.UTC()
	return txn, nil
}

func collectTransactions(rows pgx.Rows) ([]Transaction, error) {
	defer rows.Close()
	out := make([]Transaction, 0)
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, unavailable("scan transaction", err)
		}
		out = append(out, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate transactions", err)
	}
	return out, nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
