package repository

import (
	"database/sql"
)

// SQLExecutor is the query surface shared by sql.DB and sql.Tx. Repositories
// are written against it, so the same code runs standalone or inside a store
// transaction.
type SQLExecutor interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// DB is an executor that can also open transactions. Only the root store
// holds one; transactional stores carry a TxWrapper instead.
type DB interface {
	SQLExecutor
	Begin() (*sql.Tx, error)
}

var _ DB = (*sql.DB)(nil)

// TxWrapper adapts an open sql.Tx to the SQLExecutor surface.
type TxWrapper struct {
	*sql.Tx
}

var _ SQLExecutor = (*TxWrapper)(nil)
