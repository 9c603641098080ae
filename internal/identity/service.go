package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/reward-hub/reward_hub/internal/ledger"
)

const minPasswordLength = 6

// WalletOpener provisions the wallet of a new account.
type WalletOpener interface {
	OpenWallet(ctx context.Context, userID string) (ledger.Wallet, error)
}

// Service manages identity lifecycle.
type Service struct {
	repo    Repository
	wallets WalletOpener
}

// NewService creates a new identity service.
func NewService(repo Repository, wallets WalletOpener) *Service {
	return &Service{repo: repo, wallets: wallets}
}

// NormalizePhone strips '+' and spaces and checks the remaining digits.
func NormalizePhone(raw string) (string, error) {
	phone := strings.NewReplacer("+", "", " ", "", "-", "").Replace(strings.TrimSpace(raw))
	if len(phone) < 6 || len(phone) > 15 {
		return "", ErrInvalidPhone
	}
	for _, r := range phone {
		if !unicode.IsDigit(r) {
			return "", ErrInvalidPhone
		}
	}
	return phone, nil
}

// Register creates a user with a hashed password and opens an empty wallet.
func (s *Service) Register(ctx context.Context, creds Credentials) (User, ledger.Wallet, error) {
	phone, err := NormalizePhone(creds.Phone)
	if err != nil {
		return User{}, ledger.Wallet{}, err
	}
	if len(creds.Password) < minPasswordLength {
		return User{}, ledger.Wallet{}, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, ledger.Wallet{}, err
	}

	user := User{
		ID:           uuid.New().String(),
		Phone:        phone,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return User{}, ledger.Wallet{}, err
	}

	wallet, err := s.wallets.OpenWallet(ctx, user.ID)
	if err != nil {
		return User{}, ledger.Wallet{}, fmt.Errorf("open wallet: %w", err)
	}

	return user, wallet, nil
}

// Authenticate verifies credentials. A wallet missing after a partially
// failed registration is opened here.
func (s *Service) Authenticate(ctx context.Context, creds Credentials) (User, error) {
	phone, err := NormalizePhone(creds.Phone)
	if err != nil {
		return User{}, ErrInvalidCredentials
	}
	user, err := s.repo.FindByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(creds.Password)); err != nil {
		return User{}, ErrInvalidCredentials
	}

	if _, err := s.wallets.OpenWallet(ctx, user.ID); err != nil {
		return User{}, fmt.Errorf("open wallet: %w", err)
	}

	return user, nil
}

// Get returns a user by id.
func (s *Service) Get(ctx context.Context, id string) (User, error) {
	return s.repo.FindByID(ctx, id)
}
