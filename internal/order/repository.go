package order

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/maiams/NomaCardHouse/internal/domain"
	"github.com/maiams/NomaCardHouse/internal/inventory"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// CreateOrder inserts the order, its items, the consumed inventory
// and an order.created outbox event in one transaction. Either the
// order exists with its stock sold, or nothing happened.
func (r *Repository) CreateOrder(ctx context.Context, o *domain.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	orderQuery := `INSERT INTO orders
	    (id, number, status, customer_name, customer_email, customer_cpf, customer_phone,
	     street, street_number, complement, neighborhood, city, state, cep,
	     subtotal_cents, shipping_cents, discount_cents, total_cents, currency, notes, tracking_code,
	     created_at, updated_at)
	    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
	            $15, $16, $17, $18, $19, $20, $21, $22, $23)`

	_, err = tx.ExecContext(ctx, orderQuery,
		o.ID, o.Number, o.Status,
		o.Customer.Name, o.Customer.Email, o.Customer.CPF, o.Customer.Phone,
		o.Shipping.Street, o.Shipping.Number, o.Shipping.Complement, o.Shipping.Neighborhood,
		o.Shipping.City, o.Shipping.State, o.Shipping.CEP,
		o.SubtotalCents, o.ShippingCents, o.DiscountCents, o.TotalCents,
		o.Currency, o.Notes, o.TrackingCode,
		o.CreatedAt, o.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicateOrderNumber
	}
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	itemQuery := `INSERT INTO order_items
	    (id, order_id, sku_id, quantity, unit_price_cents, line_total_cents, snapshot)
	    VALUES ($1, $2, $3, $4, $5, $6, $7)`

	for i := range o.Items {
		item := &o.Items[i]
		snapJSON, errMarshal := json.Marshal(item.Snapshot)
		if errMarshal != nil {
			return fmt.Errorf("marshal item snapshot: %w", errMarshal)
		}
		if _, errExec := tx.ExecContext(ctx, itemQuery,
			item.ID, o.ID, item.SKUID, item.Quantity,
			item.UnitPriceCents, item.LineTotalCents, snapJSON,
		); errExec != nil {
			return fmt.Errorf("insert order item: %w", errExec)
		}

		if errConsume := inventory.ConsumeTx(ctx, tx, item.SKUID, item.Quantity); errConsume != nil {
			return fmt.Errorf("consume stock for sku %s: %w", item.SKUID, errConsume)
		}
	}

	if err := insertOutboxEvent(ctx, tx, o, EventOrderCreated); err != nil {
		return err
	}

	return tx.Commit()
}

func insertOutboxEvent(ctx context.Context, tx *sql.Tx, o *domain.Order, eventType string) error {
	payload, err := json.Marshal(map[string]any{
		"order_id":     o.ID,
		"order_number": o.Number,
		"status":       o.Status,
		"total_cents":  o.TotalCents,
		"currency":     o.Currency,
		"item_count":   o.TotalItems(),
		"occurred_at":  time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal outbox payload: %w", err)
	}

	query := `INSERT INTO outbox_events (aggregate_id, event_type, payload, created_at)
	          VALUES ($1, $2, $3, NOW())`
	if _, err := tx.ExecContext(ctx, query, o.ID.String(), eventType, payload); err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}

const orderColumns = `id, number, status, customer_name, customer_email, customer_cpf, customer_phone,
	street, street_number, complement, neighborhood, city, state, cep,
	subtotal_cents, shipping_cents, discount_cents, total_cents, currency, notes, tracking_code,
	created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }, o *domain.Order) error {
	return row.Scan(
		&o.ID, &o.Number, &o.Status,
		&o.Customer.Name, &o.Customer.Email, &o.Customer.CPF, &o.Customer.Phone,
		&o.Shipping.Street, &o.Shipping.Number, &o.Shipping.Complement, &o.Shipping.Neighborhood,
		&o.Shipping.City, &o.Shipping.State, &o.Shipping.CEP,
		&o.SubtotalCents, &o.ShippingCents, &o.DiscountCents, &o.TotalCents,
		&o.Currency, &o.Notes, &o.TrackingCode,
		&o.CreatedAt, &o.UpdatedAt,
	)
}

func (r *Repository) GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return r.getOrder(ctx, "id = $1", id)
}

func (r *Repository) GetOrderByNumber(ctx context.Context, number string) (*domain.Order, error) {
	return r.getOrder(ctx, "number = $1", number)
}

func (r *Repository) getOrder(ctx context.Context, cond string, arg any) (*domain.Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE %s`, orderColumns, cond)

	var o domain.Order
	err := scanOrder(r.db.QueryRowContext(ctx, query, arg), &o)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}

	if err := r.loadItems(ctx, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *Repository) loadItems(ctx context.Context, o *domain.Order) error {
	query := `SELECT id, sku_id, quantity, unit_price_cents, line_total_cents, snapshot
	          FROM order_items WHERE order_id = $1 ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, o.ID)
	if err != nil {
		return fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.OrderItem
		var snapJSON []byte
		if err := rows.Scan(&item.ID, &item.SKUID, &item.Quantity, &item.UnitPriceCents, &item.LineTotalCents, &snapJSON); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		if err := json.Unmarshal(snapJSON, &item.Snapshot); err != nil {
			return fmt.Errorf("unmarshal item snapshot: %w", err)
		}
		o.Items = append(o.Items, item)
	}
	return rows.Err()
}

// ListOrders returns orders newest-first, optionally filtered by
// status. Items are not loaded for listings.
func (r *Repository) ListOrders(ctx context.Context, status domain.OrderStatus, limit, offset int) ([]domain.Order, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var (
		query string
		args  []any
	)
	if status != "" {
		query = fmt.Sprintf(`SELECT %s FROM orders WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, orderColumns)
		args = []any{status, limit, offset}
	} else {
		query = fmt.Sprintf(`SELECT %s FROM orders ORDER BY created_at DESC LIMIT $1 OFFSET $2`, orderColumns)
		args = []any{limit, offset}
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		var o domain.Order
		if err := scanOrder(rows, &o); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// UpdateOrderStatus moves an order along the lifecycle, enforcing
// legal transitions under a row lock.
func (r *Repository) UpdateOrderStatus(ctx context.Context, id uuid.UUID, next domain.OrderStatus, trackingCode string) (*domain.Order, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var current domain.OrderStatus
	err = tx.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = $1 FOR UPDATE`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock order: %w", err)
	}

	if !current.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, next)
	}

	query := `UPDATE orders SET status = $2, tracking_code = COALESCE(NULLIF($3, ''), tracking_code), updated_at = NOW() WHERE id = $1`
	if _, err := tx.ExecContext(ctx, query, id, next, trackingCode); err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return r.GetOrderByID(ctx, id)
}

func (r *Repository) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// --- payment transactions ---

const paymentColumns = `id, order_id, idempotency_key, provider, provider_transaction_id, method, status,
	amount_cents, fees_cents, currency, pix_qr_code, pix_copy_paste, boleto_url, boleto_barcode,
	redirect_url, expires_at, paid_at, created_at, updated_at`

func scanPayment(row interface{ Scan(...any) error }, t *domain.PaymentTransaction) error {
	return row.Scan(
		&t.ID, &t.OrderID, &t.IdempotencyKey, &t.Provider, &t.ProviderTransactionID,
		&t.Method, &t.Status, &t.AmountCents, &t.FeesCents, &t.Currency,
		&t.PixQRCode, &t.PixCopyPaste, &t.BoletoURL, &t.BoletoBarcode, &t.RedirectURL,
		&t.ExpiresAt, &t.PaidAt, &t.CreatedAt, &t.UpdatedAt,
	)
}

func (r *Repository) SavePaymentTransaction(ctx context.Context, t *domain.PaymentTransaction) error {
	query := `INSERT INTO payment_transactions
	    (id, order_id, idempotency_key, provider, provider_transaction_id, method, status,
	     amount_cents, fees_cents, currency, pix_qr_code, pix_copy_paste, boleto_url, boleto_barcode,
	     redirect_url, expires_at, paid_at, created_at, updated_at)
	    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, NOW(), NOW())
	    RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		t.ID, t.OrderID, t.IdempotencyKey, t.Provider, t.ProviderTransactionID,
		t.Method, t.Status, t.AmountCents, t.FeesCents, t.Currency,
		t.PixQRCode, t.PixCopyPaste, t.BoletoURL, t.BoletoBarcode, t.RedirectURL,
		t.ExpiresAt, t.PaidAt,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert payment transaction: %w", err)
	}
	return nil
}

// UpdatePaymentTransaction overwrites the provider-facing fields of an
// existing attempt, used when a payment is retried under the same
// idempotency key.
func (r *Repository) UpdatePaymentTransaction(ctx context.Context, t *domain.PaymentTransaction) error {
	query := `UPDATE payment_transactions
	    SET provider_transaction_id = $2, status = $3, fees_cents = $4,
	        pix_qr_code = $5, pix_copy_paste = $6, boleto_url = $7, boleto_barcode = $8,
	        redirect_url = $9, expires_at = $10, paid_at = $11, updated_at = NOW()
	    WHERE id = $1
	    RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query,
		t.ID, t.ProviderTransactionID, t.Status, t.FeesCents,
		t.PixQRCode, t.PixCopyPaste, t.BoletoURL, t.BoletoBarcode,
		t.RedirectURL, t.ExpiresAt, t.PaidAt,
	).Scan(&t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrPaymentNotFound
	}
	if err != nil {
		return fmt.Errorf("update payment transaction: %w", err)
	}
	return nil
}

func (r *Repository) GetPaymentByIdempotencyKey(ctx context.Context, key string) (*domain.PaymentTransaction, error) {
	return r.getPayment(ctx, "idempotency_key = $1", key)
}

func (r *Repository) GetPaymentByProviderID(ctx context.Context, providerTxnID string) (*domain.PaymentTransaction, error) {
	return r.getPayment(ctx, "provider_transaction_id = $1", providerTxnID)
}

// GetPaymentByOrderNumber returns the latest payment attempt for an
// order, for the confirmation page.
func (r *Repository) GetPaymentByOrderNumber(ctx context.Context, number string) (*domain.PaymentTransaction, error) {
	return r.getPayment(ctx, "order_id = (SELECT id FROM orders WHERE number = $1)", number)
}

func (r *Repository) getPayment(ctx context.Context, cond string, arg any) (*domain.PaymentTransaction, error) {
	query := fmt.Sprintf(`SELECT %s FROM payment_transactions WHERE %s ORDER BY created_at DESC LIMIT 1`, paymentColumns, cond)

	var t domain.PaymentTransaction
	err := scanPayment(r.db.QueryRowContext(ctx, query, arg), &t)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query payment transaction: %w", err)
	}
	return &t, nil
}

// --- webhook bookkeeping ---

// recordWebhookEvent registers a provider event id inside the state
// transaction. The unique index makes a redelivered event abort with
// ErrEventAlreadyProcessed, rolling back any state it would have
// moved twice.
func recordWebhookEvent(ctx context.Context, tx *sql.Tx, eventID, eventType string) error {
	query := `INSERT INTO webhook_events (event_id, event_type, received_at) VALUES ($1, $2, NOW())`
	_, err := tx.ExecContext(ctx, query, eventID, eventType)
	if isUniqueViolation(err) {
		return ErrEventAlreadyProcessed
	}
	if err != nil {
		return fmt.Errorf("record webhook event: %w", err)
	}
	return nil
}

// MarkPaid completes the payment and confirms its order in one
// transaction keyed by the webhook event id.
func (r *Repository) MarkPaid(ctx context.Context, eventID, eventType, providerTxnID string, paidAt time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := recordWebhookEvent(ctx, tx, eventID, eventType); err != nil {
		return err
	}

	var orderID uuid.UUID
	err = tx.QueryRowContext(ctx,
		`UPDATE payment_transactions SET status = $2, paid_at = $3, updated_at = NOW()
		 WHERE provider_transaction_id = $1 RETURNING order_id`,
		providerTxnID, domain.PaymentStatusCompleted, paidAt,
	).Scan(&orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrPaymentNotFound
	}
	if err != nil {
		return fmt.Errorf("complete payment: %w", err)
	}

	o, err := lockAndTransition(ctx, tx, orderID, domain.OrderStatusConfirmed)
	if err != nil {
		return err
	}
	if err := insertOutboxEvent(ctx, tx, o, EventOrderConfirmed); err != nil {
		return err
	}
	return tx.Commit()
}

// MarkPaymentFailed fails the payment, cancels the order and puts the
// consumed stock back on hand, all in one transaction keyed by the
// webhook event id.
func (r *Repository) MarkPaymentFailed(ctx context.Context, eventID, eventType, providerTxnID string, status domain.PaymentStatus) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := recordWebhookEvent(ctx, tx, eventID, eventType); err != nil {
		return err
	}

	var orderID uuid.UUID
	err = tx.QueryRowContext(ctx,
		`UPDATE payment_transactions SET status = $2, updated_at = NOW()
		 WHERE provider_transaction_id = $1 RETURNING order_id`,
		providerTxnID, status,
	).Scan(&orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrPaymentNotFound
	}
	if err != nil {
		return fmt.Errorf("fail payment: %w", err)
	}

	o, err := lockAndTransition(ctx, tx, orderID, domain.OrderStatusCancelled)
	if err != nil {
		return err
	}

	itemRows, err := tx.QueryContext(ctx, `SELECT sku_id, quantity FROM order_items WHERE order_id = $1`, orderID)
	if err != nil {
		return fmt.Errorf("query order items for restock: %w", err)
	}
	type line struct {
		skuID    uuid.UUID
		quantity int64
	}
	var lines []line
	for itemRows.Next() {
		var l line
		if err := itemRows.Scan(&l.skuID, &l.quantity); err != nil {
			itemRows.Close()
			return fmt.Errorf("scan restock line: %w", err)
		}
		lines = append(lines, l)
	}
	itemRows.Close()
	if err := itemRows.Err(); err != nil {
		return fmt.Errorf("iterate restock lines: %w", err)
	}

	for _, l := range lines {
		if err := inventory.RestockTx(ctx, tx, l.skuID, l.quantity); err != nil {
			return fmt.Errorf("restock sku %s: %w", l.skuID, err)
		}
	}

	if err := insertOutboxEvent(ctx, tx, o, EventOrderCancelled); err != nil {
		return err
	}
	return tx.Commit()
}

func lockAndTransition(ctx context.Context, tx *sql.Tx, orderID uuid.UUID, next domain.OrderStatus) (*domain.Order, error) {
	var o domain.Order
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE id = $1 FOR UPDATE`, orderColumns)
	err := scanOrder(tx.QueryRowContext(ctx, query, orderID), &o)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock order: %w", err)
	}

	if !o.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, next)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1`, orderID, next); err != nil {
		return nil, fmt.Errorf("transition order: %w", err)
	}
	o.Status = next
	return &o, nil
}

// --- outbox ---

func (r *Repository) GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	query := `SELECT id, aggregate_id, event_type, payload, created_at
	          FROM outbox_events WHERE processed_at IS NULL ORDER BY id LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox events: %w", err)
	}
	defer rows.Close()

	var out []*OutboxEvent
	for rows.Next() {
		var e OutboxEvent
		if err := rows.Scan(&e.ID, &e.AggregateID, &e.EventType, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

func (r *Repository) MarkEventAsProcessed(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE outbox_events SET processed_at = NOW() WHERE id = $1`, id); err != nil {
		return fmt.Errorf("mark outbox event processed: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
