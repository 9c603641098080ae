package settings

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/reward-hub/reward_hub/internal/ledger"
)

const (
	KeyMinWithdrawal     = "min_withdrawal"
	KeyWithdrawalFeeRate = "withdrawal_fee_rate"
)

// Repository reads runtime key/value settings.
type Repository interface {
	All(ctx context.Context) (map[string]string, error)
}

// PostgresRepository reads the app_config table.
type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) All(ctx context.Context) (map[string]string, error) {
	rows, err := r.db.Query(ctx, `SELECT key, value FROM app_config`)
	if err != nil {
		return nil, fmt.Errorf("query app_config: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		out[key] = value
	}
	return out, rows.Err()
}

// MemoryRepository holds settings in memory for development and tests.
type MemoryRepository struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryRepository(values map[string]string) *MemoryRepository {
	m := &MemoryRepository{values: make(map[string]string, len(values))}
	for k, v := range values {
		m.values[k] = v
	}
	return m
}

func (m *MemoryRepository) All(context.Context) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out, nil
}

// Set stores a value.
func (m *MemoryRepository) Set(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
}

// Service resolves typed settings.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// FeePolicy returns fallback overridden by any stored withdrawal settings.
func (s *Service) FeePolicy(ctx context.Context, fallback ledger.FeePolicy) (ledger.FeePolicy, error) {
	values, err := s.repo.All(ctx)
	if err != nil {
		return ledger.FeePolicy{}, err
	}

	policy := fallback
	if raw, ok := values[KeyMinWithdrawal]; ok {
		if policy.MinimumWithdrawal, err = decimal.NewFromString(raw); err != nil {
			return ledger.FeePolicy{}, fmt.Errorf("invalid %s %q: %w", KeyMinWithdrawal, raw, err)
		}
	}
	if raw, ok := values[KeyWithdrawalFeeRate]; ok {
		if policy.FeeRate, err = decimal.NewFromString(raw); err != nil {
			return ledger.FeePolicy{}, fmt.Errorf("invalid %s %q: %w", KeyWithdrawalFeeRate, raw, err)
		}
	}
	if err := policy.Validate(); err != nil {
		return ledger.FeePolicy{}, err
	}
	return policy, nil
}
