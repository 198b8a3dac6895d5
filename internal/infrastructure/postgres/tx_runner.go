package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/farmadist-api/internal/domain"
	"github.com/jhoicas/farmadist-api/internal/domain/repository"
)

const defaultLockTimeout = 5 * time.Second

// TxRunner corre cada mutación de registro en una transacción READ COMMITTED.
// El SELECT ... FOR UPDATE espera como mucho lockTimeout a que otro proceso suelte la fila.
type TxRunner struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool, lockTimeout: defaultLockTimeout}
}

// WithLockTimeout cambia la espera máxima por el bloqueo de fila. 0 desactiva el límite.
func (r *TxRunner) WithLockTimeout(d time.Duration) *TxRunner {
	r.lockTimeout = d
	return r
}

// Run ejecuta fn con el repositorio de registros atado a la tx. Commit si fn no falla.
// Un timeout de bloqueo se reporta como modificación concurrente (reintentable).
func (r *TxRunner) Run(ctx context.Context, fn func(records repository.ApprovalRecordRepository) error) error {
	err := pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		if r.lockTimeout > 0 {
			stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockTimeout.Milliseconds())
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("set lock_timeout: %w", err)
			}
		}
		return fn(NewApprovalRecordRepository(tx))
	})
	if err == nil {
		return nil
	}
	if isLockNotAvailable(err) {
		return domain.NewError(domain.ErrConcurrentModification, "registro bloqueado por otra operación", nil)
	}
	var de *domain.Error
	if errors.As(err, &de) || errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return fmt.Errorf("transaction: %w", err)
}
