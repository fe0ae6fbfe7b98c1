package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Aditya-jedi/Novyn/internal/usecase"
)

// MySQLInventoryLedger applies stock changes as single guarded UPDATEs.
// Counters are never read-modify-written at the application layer, so
// concurrent checkouts against the same product cannot lose updates.
type MySQLInventoryLedger struct{ db *sql.DB }

func NewMySQLInventoryLedger(db *sql.DB) *MySQLInventoryLedger {
	return &MySQLInventoryLedger{db: db}
}

// Decrement refuses to go negative. rows == 0 means the guard failed:
// either the product is unknown or there is not enough stock.
func (l *MySQLInventoryLedger) Decrement(ctx context.Context, productID string, qty int) error {
	res, err := l.db.ExecContext(ctx, `
UPDATE inventory SET stock = stock - ?, updated_at = NOW()
WHERE product_id = ? AND stock >= ?`,
		qty, productID, qty,
	)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return usecase.ErrInsufficientStock
	}
	return nil
}

// DecrementClamped serves the paid-commit path: the money is captured, so
// the decrement must land even if it drives stock to zero. Reports whether
// it clamped so the caller can flag the order for reconciliation. The row
// lock spans read and write, so a restock landing concurrently is never
// zeroed out. An unknown product is an error, not a clamp.
func (l *MySQLInventoryLedger) DecrementClamped(ctx context.Context, productID string, qty int) (bool, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var stock int64
	err = tx.QueryRowContext(ctx,
		`SELECT stock FROM inventory WHERE product_id = ? FOR UPDATE`, productID,
	).Scan(&stock)
	if errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("inventory: unknown product %s: %w", productID, usecase.ErrNotFound)
	}
	if err != nil {
		return false, err
	}

	clamped := stock < int64(qty)
	newStock := stock - int64(qty)
	if clamped {
		newStock = 0
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE inventory SET stock = ?, updated_at = NOW() WHERE product_id = ?`, newStock, productID,
	); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return clamped, nil
}

var _ usecase.InventoryLedger = (*MySQLInventoryLedger)(nil)
