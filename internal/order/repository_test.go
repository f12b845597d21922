package order

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/maiams/NomaCardHouse/internal/domain"
	"github.com/maiams/NomaCardHouse/internal/inventory"
	"github.com/maiams/NomaCardHouse/internal/storage"
)

func setupTestDB(t *testing.T) (*sql.DB, func()) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := storage.OpenPostgres(dsn)
	require.NoError(t, err)
	require.NoError(t, storage.RunMigrations(db, "../../migrations"))

	cleanup := func() {
		db.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}
	return db, cleanup
}

// seedSKU inserts a product, a SKU and stocked inventory, returning
// the SKU id.
func seedSKU(t *testing.T, db *sql.DB, onHand, reserved int64) uuid.UUID {
	t.Helper()
	ctx := context.Background()

	productID := uuid.New()
	_, err := db.ExecContext(ctx,
		`INSERT INTO products (id, name, slug) VALUES ($1, $2, $3)`,
		productID, "Black Lotus", "black-lotus-"+productID.String()[:8])
	require.NoError(t, err)

	skuID := uuid.New()
	_, err = db.ExecContext(ctx,
		`INSERT INTO skus (id, product_id, code, condition, language, price_cents)
		 VALUES ($1, $2, $3, 'NEAR_MINT', 'EN', 150000)`,
		skuID, productID, "BLK-"+skuID.String()[:8])
	require.NoError(t, err)

	_, err = db.ExecContext(ctx,
		`INSERT INTO inventory (sku_id, on_hand, reserved) VALUES ($1, $2, $3)`,
		skuID, onHand, reserved)
	require.NoError(t, err)

	return skuID
}

func newTestOrder(skuID uuid.UUID, quantity int64) *domain.Order {
	now := time.Now().Truncate(time.Millisecond)
	return &domain.Order{
		ID:     uuid.New(),
		Number: domain.NewOrderNumber(now),
		Status: domain.OrderStatusPending,
		Customer: domain.Customer{
			Name:  "Maria Silva",
			Email: "maria@example.com",
			CPF:   "52998224725",
		},
		Shipping: domain.Address{
			Street:       "Rua Augusta",
			Number:       "1500",
			Neighborhood: "Consolação",
			City:         "São Paulo",
			State:        "SP",
			CEP:          "01304001",
		},
		SubtotalCents: 150000 * quantity,
		TotalCents:    150000 * quantity,
		Currency:      "BRL",
		Items: []domain.OrderItem{{
			ID:             uuid.New(),
			SKUID:          skuID,
			Quantity:       quantity,
			UnitPriceCents: 150000,
			LineTotalCents: 150000 * quantity,
			Snapshot: domain.ProductSnapshot{
				ProductName: "Black Lotus",
				SKUCode:     "BLK-LOTUS-NM-EN",
				Condition:   domain.ConditionNearMint,
				Language:    domain.LanguageEN,
				SetName:     "Alpha",
				Rarity:      domain.RarityMythic,
			},
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func inventoryCounters(t *testing.T, db *sql.DB, skuID uuid.UUID) (onHand, reserved int64) {
	t.Helper()
	err := db.QueryRow(`SELECT on_hand, reserved FROM inventory WHERE sku_id = $1`, skuID).
		Scan(&onHand, &reserved)
	require.NoError(t, err)
	return onHand, reserved
}

func TestCreateOrderConsumesStockAndWritesOutbox(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	skuID := seedSKU(t, db, 5, 2)
	repo := NewRepository(db)

	o := newTestOrder(skuID, 2)
	require.NoError(t, repo.CreateOrder(ctx, o))

	onHand, reserved := inventoryCounters(t, db, skuID)
	assert.Equal(t, int64(3), onHand)
	assert.Equal(t, int64(0), reserved)

	got, err := repo.GetOrderByNumber(ctx, o.Number)
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)
	assert.Equal(t, domain.OrderStatusPending, got.Status)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Black Lotus", got.Items[0].Snapshot.ProductName)

	events, err := repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, EventOrderCreated, events[0].EventType)
	assert.Equal(t, o.ID.String(), events[0].AggregateID)
}

func TestCreateOrderRollsBackWhenStockNotReserved(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	// Nothing reserved, so consumption must fail.
	skuID := seedSKU(t, db, 5, 0)
	repo := NewRepository(db)

	o := newTestOrder(skuID, 2)
	err := repo.CreateOrder(ctx, o)
	require.ErrorIs(t, err, domain.ErrOverConsume)

	_, err = repo.GetOrderByNumber(ctx, o.Number)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	onHand, reserved := inventoryCounters(t, db, skuID)
	assert.Equal(t, int64(5), onHand)
	assert.Equal(t, int64(0), reserved)
}

func TestCreateOrderDuplicateNumber(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	skuID := seedSKU(t, db, 10, 4)
	repo := NewRepository(db)

	first := newTestOrder(skuID, 2)
	require.NoError(t, repo.CreateOrder(ctx, first))

	second := newTestOrder(skuID, 2)
	second.Number = first.Number
	assert.ErrorIs(t, repo.CreateOrder(ctx, second), ErrDuplicateOrderNumber)
}

func TestPaymentTransactionRoundTrip(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	skuID := seedSKU(t, db, 5, 1)
	repo := NewRepository(db)

	o := newTestOrder(skuID, 1)
	require.NoError(t, repo.CreateOrder(ctx, o))

	txn := &domain.PaymentTransaction{
		ID:                    uuid.New(),
		OrderID:               o.ID,
		IdempotencyKey:        "cart_" + uuid.NewString() + "_PIX",
		Provider:              "stub",
		ProviderTransactionID: "STUB-0123456789ABCDEF0123",
		Method:                domain.PaymentMethodPix,
		Status:                domain.PaymentStatusPending,
		AmountCents:           o.TotalCents,
		Currency:              "BRL",
		PixCopyPaste:          "00020126.....",
	}
	require.NoError(t, repo.SavePaymentTransaction(ctx, txn))

	byKey, err := repo.GetPaymentByIdempotencyKey(ctx, txn.IdempotencyKey)
	require.NoError(t, err)
	assert.Equal(t, txn.ID, byKey.ID)

	byProvider, err := repo.GetPaymentByProviderID(ctx, txn.ProviderTransactionID)
	require.NoError(t, err)
	assert.Equal(t, txn.ID, byProvider.ID)

	_, err = repo.GetPaymentByIdempotencyKey(ctx, "cart_unknown_PIX")
	assert.ErrorIs(t, err, ErrPaymentNotFound)
}

func TestMarkPaidConfirmsOrderIdempotently(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	skuID := seedSKU(t, db, 5, 1)
	repo := NewRepository(db)

	o := newTestOrder(skuID, 1)
	require.NoError(t, repo.CreateOrder(ctx, o))
	txn := &domain.PaymentTransaction{
		ID:                    uuid.New(),
		OrderID:               o.ID,
		IdempotencyKey:        "cart_" + uuid.NewString() + "_PIX",
		Provider:              "stub",
		ProviderTransactionID: "STUB-PAID00000000000000",
		Method:                domain.PaymentMethodPix,
		Status:                domain.PaymentStatusPending,
		AmountCents:           o.TotalCents,
		Currency:              "BRL",
	}
	require.NoError(t, repo.SavePaymentTransaction(ctx, txn))

	paidAt := time.Now().Truncate(time.Millisecond)
	require.NoError(t, repo.MarkPaid(ctx, "evt-1", "payment.completed", txn.ProviderTransactionID, paidAt))

	got, err := repo.GetOrderByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusConfirmed, got.Status)

	payment, err := repo.GetPaymentByProviderID(ctx, txn.ProviderTransactionID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusCompleted, payment.Status)
	require.NotNil(t, payment.PaidAt)

	// Redelivery of the same event id must not move anything.
	err = repo.MarkPaid(ctx, "evt-1", "payment.completed", txn.ProviderTransactionID, paidAt)
	assert.ErrorIs(t, err, ErrEventAlreadyProcessed)
}

func TestMarkPaymentFailedCancelsAndRestocks(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	skuID := seedSKU(t, db, 5, 2)
	repo := NewRepository(db)

	o := newTestOrder(skuID, 2)
	require.NoError(t, repo.CreateOrder(ctx, o))
	txn := &domain.PaymentTransaction{
		ID:                    uuid.New(),
		OrderID:               o.ID,
		IdempotencyKey:        "cart_" + uuid.NewString() + "_BOLETO",
		Provider:              "stub",
		ProviderTransactionID: "STUB-FAIL00000000000000",
		Method:                domain.PaymentMethodBoleto,
		Status:                domain.PaymentStatusPending,
		AmountCents:           o.TotalCents,
		Currency:              "BRL",
	}
	require.NoError(t, repo.SavePaymentTransaction(ctx, txn))

	require.NoError(t, repo.MarkPaymentFailed(ctx, "evt-2", "payment.failed", txn.ProviderTransactionID, domain.PaymentStatusFailed))

	got, err := repo.GetOrderByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, got.Status)

	// The two consumed units are back on hand.
	onHand, reserved := inventoryCounters(t, db, skuID)
	assert.Equal(t, int64(5), onHand)
	assert.Equal(t, int64(0), reserved)

	// Double delivery provably does not double-restock.
	err = repo.MarkPaymentFailed(ctx, "evt-2", "payment.failed", txn.ProviderTransactionID, domain.PaymentStatusFailed)
	assert.ErrorIs(t, err, ErrEventAlreadyProcessed)
	onHand, _ = inventoryCounters(t, db, skuID)
	assert.Equal(t, int64(5), onHand)
}

func TestUpdateOrderStatusEnforcesTransitions(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	skuID := seedSKU(t, db, 5, 1)
	repo := NewRepository(db)

	o := newTestOrder(skuID, 1)
	require.NoError(t, repo.CreateOrder(ctx, o))

	// PENDING cannot jump straight to SHIPPED.
	_, err := repo.UpdateOrderStatus(ctx, o.ID, domain.OrderStatusShipped, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	got, err := repo.UpdateOrderStatus(ctx, o.ID, domain.OrderStatusConfirmed, "")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusConfirmed, got.Status)

	got, err = repo.UpdateOrderStatus(ctx, o.ID, domain.OrderStatusProcessing, "")
	require.NoError(t, err)

	got, err = repo.UpdateOrderStatus(ctx, o.ID, domain.OrderStatusShipped, "BR123456789")
	require.NoError(t, err)
	assert.Equal(t, "BR123456789", got.TrackingCode)
}

func TestListOrdersFiltersByStatus(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	skuID := seedSKU(t, db, 10, 3)
	repo := NewRepository(db)

	first := newTestOrder(skuID, 1)
	require.NoError(t, repo.CreateOrder(ctx, first))
	second := newTestOrder(skuID, 1)
	require.NoError(t, repo.CreateOrder(ctx, second))
	third := newTestOrder(skuID, 1)
	require.NoError(t, repo.CreateOrder(ctx, third))

	_, err := repo.UpdateOrderStatus(ctx, first.ID, domain.OrderStatusCancelled, "")
	require.NoError(t, err)

	pending, err := repo.ListOrders(ctx, domain.OrderStatusPending, 50, 0)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	all, err := repo.ListOrders(ctx, "", 50, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestRestockTxAndConsumeTx(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	skuID := seedSKU(t, db, 3, 2)

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, inventory.ConsumeTx(ctx, tx, skuID, 2))
	require.NoError(t, inventory.RestockTx(ctx, tx, skuID, 10))
	require.NoError(t, tx.Commit())

	onHand, reserved := inventoryCounters(t, db, skuID)
	assert.Equal(t, int64(11), onHand)
	assert.Equal(t, int64(0), reserved)
}
