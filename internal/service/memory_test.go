package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"growthfund/internal/domain"
	"growthfund/internal/errors"
	"growthfund/internal/repository"
)

// memoryStore is an in-memory Storage used by the unit tests. WithTransaction
// runs the function against the same maps; tests that exercise failure paths
// arrange for the failing step to come before any write.
type memoryStore struct {
	mu           sync.Mutex
	accounts     map[uuid.UUID]*domain.Account
	transactions map[uuid.UUID]*domain.Transaction
	codes        map[uuid.UUID]*domain.OneTimeCode
	rate         *domain.RateSetting

	// createTxErr, when set, fails the next CreateTransaction calls.
	createTxErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		accounts:     make(map[uuid.UUID]*domain.Account),
		transactions: make(map[uuid.UUID]*domain.Transaction),
		codes:        make(map[uuid.UUID]*domain.OneTimeCode),
	}
}

func (m *memoryStore) Account() domain.AccountRepository         { return &memAccountRepo{m} }
func (m *memoryStore) Transaction() domain.TransactionRepository { return &memTransactionRepo{m} }
func (m *memoryStore) Codes() domain.OneTimeCodeRepository       { return &memCodeRepo{m} }
func (m *memoryStore) Settings() domain.SettingsRepository       { return &memSettingsRepo{m} }

func (m *memoryStore) WithTransaction(fn func(repository.Storage) error) error {
	return fn(m)
}

func copyAccount(a *domain.Account) *domain.Account {
	clone := *a
	if a.LastInterestAt != nil {
		t := *a.LastInterestAt
		clone.LastInterestAt = &t
	}
	return &clone
}

type memAccountRepo struct{ s *memoryStore }

func (r *memAccountRepo) CreateAccount(account *domain.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.accounts {
		if existing.UserID == account.UserID || existing.Email == account.Email {
			return errors.ErrDuplicateAccount
		}
	}

	now := time.Now()
	account.CreatedAt = now
	account.UpdatedAt = now
	r.s.accounts[account.ID] = copyAccount(account)
	return nil
}

func (r *memAccountRepo) GetAccount(id uuid.UUID) (*domain.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	account, ok := r.s.accounts[id]
	if !ok {
		return nil, errors.ErrAccountNotFound
	}
	return copyAccount(account), nil
}

func (r *memAccountRepo) GetAccountByUserID(userID uuid.UUID) (*domain.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, account := range r.s.accounts {
		if account.UserID == userID {
			return copyAccount(account), nil
		}
	}
	return nil, errors.ErrAccountNotFound
}

func (r *memAccountRepo) GetAccountForUpdate(id uuid.UUID) (*domain.Account, error) {
	return r.GetAccount(id)
}

func (r *memAccountRepo) UpdateAccountBalance(id uuid.UUID, newBalance decimal.Decimal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	account, ok := r.s.accounts[id]
	if !ok {
		return errors.ErrAccountNotFound
	}
	account.Balance = newBalance
	account.UpdatedAt = time.Now()
	return nil
}

func (r *memAccountRepo) ApplyInterest(id uuid.UUID, newBalance, interestEarned decimal.Decimal, accruedAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	account, ok := r.s.accounts[id]
	if !ok {
		return errors.ErrAccountNotFound
	}
	account.Balance = newBalance
	account.InterestEarned = interestEarned
	t := accruedAt
	account.LastInterestAt = &t
	account.UpdatedAt = time.Now()
	return nil
}

func (r *memAccountRepo) ListAccrualCandidates(cutoff time.Time) ([]uuid.UUID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var ids []uuid.UUID
	for id, account := range r.s.accounts {
		if !account.Balance.IsPositive() {
			continue
		}
		if account.LastInterestAt == nil || account.LastInterestAt.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids, nil
}

type memTransactionRepo struct{ s *memoryStore }

func copyTransaction(tx *domain.Transaction) *domain.Transaction {
	clone := *tx
	if tx.BalanceAfter != nil {
		b := *tx.BalanceAfter
		clone.BalanceAfter = &b
	}
	if tx.CodeID != nil {
		c := *tx.CodeID
		clone.CodeID = &c
	}
	if tx.IdempotencyKey != nil {
		k := *tx.IdempotencyKey
		clone.IdempotencyKey = &k
	}
	return &clone
}

func (r *memTransactionRepo) CreateTransaction(tx *domain.Transaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.s.createTxErr != nil {
		return r.s.createTxErr
	}

	if tx.IdempotencyKey != nil {
		for _, existing := range r.s.transactions {
			if existing.IdempotencyKey != nil && *existing.IdempotencyKey == *tx.IdempotencyKey {
				return errors.ErrDuplicateTransaction
			}
		}
	}

	now := time.Now()
	tx.CreatedAt = now
	tx.UpdatedAt = now
	r.s.transactions[tx.ID] = copyTransaction(tx)
	return nil
}

func (r *memTransactionRepo) GetTransactionByID(id uuid.UUID) (*domain.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	tx, ok := r.s.transactions[id]
	if !ok {
		return nil, nil
	}
	return copyTransaction(tx), nil
}

func (r *memTransactionRepo) GetTransactionByIdempotencyKey(key string) (*domain.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, tx := range r.s.transactions {
		if tx.IdempotencyKey != nil && *tx.IdempotencyKey == key {
			return copyTransaction(tx), nil
		}
	}
	return nil, nil
}

func (r *memTransactionRepo) UpdateTransactionStatus(id uuid.UUID, status domain.TransactionStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	tx, ok := r.s.transactions[id]
	if !ok || tx.Status != domain.StatusPending {
		return errors.ErrTransactionAlreadyProcessed
	}
	tx.Status = status
	tx.UpdatedAt = time.Now()
	return nil
}

func (r *memTransactionRepo) CompleteTransaction(id uuid.UUID, balanceAfter decimal.Decimal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	tx, ok := r.s.transactions[id]
	if !ok || tx.Status != domain.StatusPending {
		return errors.ErrTransactionAlreadyProcessed
	}
	tx.Status = domain.StatusCompleted
	tx.BalanceAfter = &balanceAfter
	tx.UpdatedAt = time.Now()
	return nil
}

func (r *memTransactionRepo) ListTransactionsByAccount(accountID uuid.UUID, limit int) ([]domain.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var result []domain.Transaction
	for _, tx := range r.s.transactions {
		if tx.AccountID == accountID {
			result = append(result, *copyTransaction(tx))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

type memCodeRepo struct{ s *memoryStore }

func (r *memCodeRepo) CreateCode(code *domain.OneTimeCode) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if code.CreatedAt.IsZero() {
		code.CreatedAt = time.Now()
	}
	clone := *code
	r.s.codes[code.ID] = &clone
	return nil
}

func (r *memCodeRepo) LatestUnverified(email string, purpose domain.OTPPurpose) (*domain.OneTimeCode, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var latest *domain.OneTimeCode
	for _, code := range r.s.codes {
		if code.Email != email || code.Purpose != purpose || code.Verified {
			continue
		}
		if latest == nil || code.CreatedAt.After(latest.CreatedAt) {
			latest = code
		}
	}
	if latest == nil {
		return nil, nil
	}
	clone := *latest
	return &clone, nil
}

func (r *memCodeRepo) MarkVerified(id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	code, ok := r.s.codes[id]
	if !ok || code.Verified {
		return errors.ErrCodeNotFound
	}
	code.Verified = true
	return nil
}

func (r *memCodeRepo) DeleteCode(id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	delete(r.s.codes, id)
	return nil
}

func (r *memCodeRepo) DeleteUnverified(email string, purpose domain.OTPPurpose) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for id, code := range r.s.codes {
		if code.Email == email && code.Purpose == purpose && !code.Verified {
			delete(r.s.codes, id)
		}
	}
	return nil
}

func (r *memCodeRepo) DeleteOthersForEmail(email string, keep uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for id, code := range r.s.codes {
		if code.Email == email && id != keep {
			delete(r.s.codes, id)
		}
	}
	return nil
}

func (r *memCodeRepo) PurgeExpired(before time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var purged int64
	for id, code := range r.s.codes {
		if code.ExpiresAt.Before(before) {
			delete(r.s.codes, id)
			purged++
		}
	}
	return purged, nil
}

type memSettingsRepo struct{ s *memoryStore }

func (r *memSettingsRepo) GetDailyRate() (decimal.Decimal, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.s.rate == nil {
		return decimal.Zero, false, nil
	}
	return r.s.rate.Value, true, nil
}

func (r *memSettingsRepo) SetDailyRate(rate decimal.Decimal, updatedBy string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.rate = &domain.RateSetting{
		Name:      domain.SettingDailyInterestRate,
		Value:     rate,
		UpdatedBy: updatedBy,
		UpdatedAt: time.Now(),
	}
	return nil
}

// captureMailer records dispatched codes for assertions.
type captureMailer struct {
	mu   sync.Mutex
	sent []capturedEmail
	err  error
}

type capturedEmail struct {
	Email   string
	Purpose domain.OTPPurpose
	Code    string
}

func (m *captureMailer) SendCode(_ context.Context, email, _ string, purpose domain.OTPPurpose, code string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, capturedEmail{Email: email, Purpose: purpose, Code: code})
	return nil
}

func (m *captureMailer) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}
