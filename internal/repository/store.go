package repository

import (
	"database/sql"
	"log/slog"

	"growthfund/internal/domain"
	"growthfund/internal/errors"
)

// Storage is the unit-of-work surface services depend on. *Store is the
// Postgres implementation; tests substitute in-memory fakes.
type Storage interface {
	Account() domain.AccountRepository
	Transaction() domain.TransactionRepository
	Codes() domain.OneTimeCodeRepository
	Settings() domain.SettingsRepository
	WithTransaction(fn func(Storage) error) error
}

// Store provides a unified interface for all repository operations with transaction support
type Store struct {
	executor SQLExecutor
	logger   *slog.Logger
}

// NewStore creates a new Store instance
func NewStore(db *sql.DB, logger *slog.Logger) *Store {
	return &Store{
		executor: db,
		logger:   logger,
	}
}

// Account returns an AccountRepository using the current executor
func (s *Store) Account() domain.AccountRepository {
	return NewAccountRepository(s.executor, s.logger)
}

// Transaction returns a TransactionRepository using the current executor
func (s *Store) Transaction() domain.TransactionRepository {
	return NewTransactionRepository(s.executor, s.logger)
}

// Codes returns a OneTimeCodeRepository using the current executor
func (s *Store) Codes() domain.OneTimeCodeRepository {
	return NewOneTimeCodeRepository(s.executor, s.logger)
}

// Settings returns a SettingsRepository using the current executor
func (s *Store) Settings() domain.SettingsRepository {
	return NewSettingsRepository(s.executor, s.logger)
}

// WithTransaction executes a function within a database transaction
func (s *Store) WithTransaction(fn func(Storage) error) error {
	// Only sql.DB can begin transactions
	db, ok := s.executor.(*sql.DB)
	if !ok {
		return errors.ErrCannotBeginTransaction
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}

	txStore := &Store{
		executor: &TxWrapper{Tx: tx},
		logger:   s.logger,
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(txStore); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}
