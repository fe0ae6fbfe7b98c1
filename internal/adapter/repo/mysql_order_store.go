package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	domain "github.com/Aditya-jedi/Novyn/internal/entity"
	"github.com/Aditya-jedi/Novyn/internal/usecase"
)

type MySQLOrderStore struct{ db *sql.DB }

func NewMySQLOrderStore(db *sql.DB) *MySQLOrderStore { return &MySQLOrderStore{db: db} }

func (r *MySQLOrderStore) Create(ctx context.Context, o *domain.Order) error {
	items, err := json.Marshal(o.LineItems)
	if err != nil {
		return fmt.Errorf("marshal line items: %w", err)
	}
	userID := sql.NullString{String: o.UserID, Valid: o.UserID != ""}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO orders (id,user_id,status,total_amount,line_items,reconcile_needed,created_at,updated_at)
VALUES (?,?,?,?,?,0,NOW(),NOW())
`, o.ID, userID, string(o.Status), o.TotalAmount, items)
	return err
}

func (r *MySQLOrderStore) Get(ctx context.Context, id string) (*domain.Order, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id,user_id,status,total_amount,line_items,ext_payment_id,ext_order_id,payment_status,reconcile_needed,created_at,updated_at
FROM orders WHERE id=?`, id)
	return scanOrder(row)
}

func (r *MySQLOrderStore) ListByUser(ctx context.Context, userID string) ([]*domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id,user_id,status,total_amount,line_items,ext_payment_id,ext_order_id,payment_status,reconcile_needed,created_at,updated_at
FROM orders WHERE user_id=? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// Transition is the compare-and-set write path: one guarded UPDATE carrying
// the status change plus whatever the transition set adds, so a commit can
// never land its payment ref without the status (or vice versa).
// rows == 0 means another writer won or the order does not exist; the
// caller disambiguates with a follow-up Get.
func (r *MySQLOrderStore) Transition(ctx context.Context, id string, from, to domain.Status, set usecase.TransitionSet) (bool, error) {
	if !domain.CanTransition(from, to) {
		return false, fmt.Errorf("%w: %s -> %s", domain.ErrIllegalTransition, from, to)
	}

	q := `UPDATE orders SET status=?, updated_at=NOW()`
	args := []any{string(to)}
	if set.PaymentRef != nil {
		q += `, ext_payment_id=?, ext_order_id=?, payment_status=?`
		args = append(args, set.PaymentRef.ExternalPaymentID, set.PaymentRef.ExternalOrderID, set.PaymentRef.Status)
	}
	if set.ReconcileNeeded != nil {
		q += `, reconcile_needed=?`
		args = append(args, *set.ReconcileNeeded)
	}
	q += ` WHERE id=? AND status=?`
	args = append(args, id, string(from))

	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		// The unique key on ext_payment_id is the durable guard against one
		// payment paying two orders; the commit cache is only a fast path.
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == 1062 && set.PaymentRef != nil {
			return false, &usecase.ConflictError{
				OrderID: id,
				Reason:  "payment " + set.PaymentRef.ExternalPaymentID + " already committed to another order",
			}
		}
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (r *MySQLOrderStore) MarkReconcileNeeded(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE orders SET reconcile_needed=1, updated_at=NOW() WHERE id=?`, id)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return usecase.ErrNotFound
	}
	return nil
}

// UpdatePaymentStatus refreshes the recorded gateway payment status without
// touching the order lifecycle. Guarded on the payment id so a stale
// settlement can never overwrite a newer proof.
func (r *MySQLOrderStore) UpdatePaymentStatus(ctx context.Context, id, externalPaymentID, status string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
UPDATE orders SET payment_status=?, updated_at=NOW() WHERE id=? AND ext_payment_id=?`,
		status, id, externalPaymentID)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		o          domain.Order
		userID     sql.NullString
		status     string
		items      []byte
		extPayID   sql.NullString
		extOrderID sql.NullString
		payStatus  sql.NullString
	)
	err := row.Scan(&o.ID, &userID, &status, &o.TotalAmount, &items,
		&extPayID, &extOrderID, &payStatus, &o.InventoryReconciliationNeeded,
		&o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, usecase.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	o.UserID = userID.String
	o.Status = domain.Status(status)
	if err := json.Unmarshal(items, &o.LineItems); err != nil {
		return nil, fmt.Errorf("unmarshal line items: %w", err)
	}
	if extPayID.Valid {
		o.PaymentRef = &domain.PaymentRef{
			ExternalPaymentID: extPayID.String,
			ExternalOrderID:   extOrderID.String,
			Status:            payStatus.String,
		}
	}
	return &o, nil
}

var _ usecase.OrderStore = (*MySQLOrderStore)(nil)
