package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// TxRepos exposes repositories bound to a single transaction
type TxRepos interface {
	Products() ProductRepository
}

// TransactionManager hides begin/commit/rollback from services
type TransactionManager interface {
	WithinTx(ctx context.Context, fn func(r TxRepos) error) error
}

type txRepos struct {
	products ProductRepository
}

func (r *txRepos) Products() ProductRepository { return r.products }

type sqlTxManager struct {
	db *sql.DB
}

// NewTransactionManager creates a TransactionManager over db
func NewTransactionManager(db *sql.DB) TransactionManager {
	return &sqlTxManager{db: db}
}

// WithinTx commits when fn returns nil and rolls back otherwise
func (m *sqlTxManager) WithinTx(ctx context.Context, fn func(r TxRepos) error) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	// repositories are rebuilt on the tx
	repos := &txRepos{
		products: &productRepository{db: tx},
	}

	if err := fn(repos); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("failed to rollback transaction: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
