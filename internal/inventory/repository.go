// Package inventory tracks per-SKU stock in Postgres. Reservations
// are held in a separate counter next to the on-hand quantity, so
// available stock is always on_hand - reserved.
package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/maiams/NomaCardHouse/internal/domain"
)

var ErrInventoryNotFound = errors.New("inventory not found")

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Get(ctx context.Context, skuID uuid.UUID) (*domain.Inventory, error) {
	query := `SELECT sku_id, on_hand, reserved, low_stock_threshold, last_restock_at, updated_at
	          FROM inventory WHERE sku_id = $1`

	var inv domain.Inventory
	err := r.db.QueryRowContext(ctx, query, skuID).Scan(
		&inv.SKUID,
		&inv.OnHand,
		&inv.Reserved,
		&inv.LowStockThreshold,
		&inv.LastRestockAt,
		&inv.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInventoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query inventory: %w", err)
	}
	return &inv, nil
}

// Reserve holds quantity units of a SKU. The row is locked for the
// duration of the check-then-update so two sessions cannot both claim
// the last copy of a card.
func (r *Repository) Reserve(ctx context.Context, skuID uuid.UUID, quantity int64) error {
	return r.mutate(ctx, skuID, func(inv *domain.Inventory) error {
		return inv.Reserve(quantity)
	})
}

// Release returns previously reserved units to the available pool.
func (r *Repository) Release(ctx context.Context, skuID uuid.UUID, quantity int64) error {
	return r.mutate(ctx, skuID, func(inv *domain.Inventory) error {
		return inv.Release(quantity)
	})
}

// Restock adds on-hand units and stamps last_restock_at.
func (r *Repository) Restock(ctx context.Context, skuID uuid.UUID, quantity int64) error {
	return r.mutate(ctx, skuID, func(inv *domain.Inventory) error {
		now := time.Now()
		inv.Restock(quantity, now)
		return nil
	})
}

func (r *Repository) mutate(ctx context.Context, skuID uuid.UUID, fn func(*domain.Inventory) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	inv, err := lockRow(ctx, tx, skuID)
	if err != nil {
		return err
	}

	if err := fn(inv); err != nil {
		return err
	}

	if err := saveCounters(ctx, tx, inv); err != nil {
		return err
	}
	return tx.Commit()
}

// ConsumeTx permanently removes reserved units inside a caller-owned
// transaction. Checkout uses this so the stock decrement commits or
// rolls back together with the order rows.
func ConsumeTx(ctx context.Context, tx *sql.Tx, skuID uuid.UUID, quantity int64) error {
	inv, err := lockRow(ctx, tx, skuID)
	if err != nil {
		return err
	}
	if err := inv.Consume(quantity); err != nil {
		return err
	}
	return saveCounters(ctx, tx, inv)
}

// RestockTx returns units to on-hand inside a caller-owned
// transaction, used when a failed payment puts sold stock back.
func RestockTx(ctx context.Context, tx *sql.Tx, skuID uuid.UUID, quantity int64) error {
	inv, err := lockRow(ctx, tx, skuID)
	if err != nil {
		return err
	}
	inv.Restock(quantity, time.Now())
	return saveCounters(ctx, tx, inv)
}

func lockRow(ctx context.Context, tx *sql.Tx, skuID uuid.UUID) (*domain.Inventory, error) {
	query := `SELECT sku_id, on_hand, reserved, low_stock_threshold, last_restock_at, updated_at
	          FROM inventory WHERE sku_id = $1 FOR UPDATE`

	var inv domain.Inventory
	err := tx.QueryRowContext(ctx, query, skuID).Scan(
		&inv.SKUID,
		&inv.OnHand,
		&inv.Reserved,
		&inv.LowStockThreshold,
		&inv.LastRestockAt,
		&inv.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInventoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock inventory row: %w", err)
	}
	return &inv, nil
}

func saveCounters(ctx context.Context, tx *sql.Tx, inv *domain.Inventory) error {
	query := `UPDATE inventory
	          SET on_hand = $2, reserved = $3, last_restock_at = $4, updated_at = NOW()
	          WHERE sku_id = $1`

	if _, err := tx.ExecContext(ctx, query, inv.SKUID, inv.OnHand, inv.Reserved, inv.LastRestockAt); err != nil {
		return fmt.Errorf("update inventory counters: %w", err)
	}
	return nil
}

// LowStock lists SKUs at or below their low-stock threshold, for the
// admin dashboard.
func (r *Repository) LowStock(ctx context.Context) ([]domain.Inventory, error) {
	query := `SELECT sku_id, on_hand, reserved, low_stock_threshold, last_restock_at, updated_at
	          FROM inventory
	          WHERE on_hand - reserved <= low_stock_threshold
	          ORDER BY on_hand - reserved ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query low stock: %w", err)
	}
	defer rows.Close()

	var out []domain.Inventory
	for rows.Next() {
		var inv domain.Inventory
		if err := rows.Scan(&inv.SKUID, &inv.OnHand, &inv.Reserved, &inv.LowStockThreshold, &inv.LastRestockAt, &inv.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan inventory row: %w", err)
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}
