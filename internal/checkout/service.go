// Package checkout turns a session cart plus a validated form into an
// order with payment instructions.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/maiams/NomaCardHouse/internal/domain"
	"github.com/maiams/NomaCardHouse/internal/order"
	"github.com/maiams/NomaCardHouse/internal/payment"
)

var (
	ErrEmptyCart = errors.New("cart is empty")
	// ErrReservationsExpired is returned after expired lines were
	// dropped so the shopper reviews the reduced cart before paying.
	ErrReservationsExpired = errors.New("cart reservations expired, review your cart")
)

// CartService is the slice of the cart surface checkout needs.
type CartService interface {
	Get(ctx context.Context, sessionID string) (*domain.Cart, error)
	PruneExpiredReservations(ctx context.Context, sessionID string) (int, error)
	Clear(ctx context.Context, sessionID string, releaseReservations bool) error
}

// OrderStore persists orders and payment transactions. Implemented by
// the order repository.
type OrderStore interface {
	CreateOrder(ctx context.Context, o *domain.Order) error
	SavePaymentTransaction(ctx context.Context, txn *domain.PaymentTransaction) error
	UpdatePaymentTransaction(ctx context.Context, txn *domain.PaymentTransaction) error
	GetPaymentByIdempotencyKey(ctx context.Context, key string) (*domain.PaymentTransaction, error)
	GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
}

// SnapshotReader resolves SKU ids to catalog snapshots for the order
// items.
type SnapshotReader interface {
	GetSnapshot(ctx context.Context, skuID uuid.UUID) (*domain.ProductSnapshot, error)
}

// Result is what a successful checkout hands back to the HTTP layer.
type Result struct {
	Order   *domain.Order
	Payment *domain.PaymentTransaction
}

type Service struct {
	carts    CartService
	orders   OrderStore
	catalog  SnapshotReader
	provider payment.Provider
	log      zerolog.Logger
	now      func() time.Time
}

func NewService(carts CartService, orders OrderStore, catalog SnapshotReader, provider payment.Provider, log zerolog.Logger) *Service {
	return &Service{
		carts:    carts,
		orders:   orders,
		catalog:  catalog,
		provider: provider,
		log:      log,
		now:      time.Now,
	}
}

// Submit runs the whole checkout: validation, idempotency, order
// creation with stock consumption, and the provider call. A provider
// failure after the order exists is not fatal; the order stays
// PENDING and the shopper retries payment.
func (s *Service) Submit(ctx context.Context, sessionID string, form *Form) (*Result, error) {
	if errs := form.Validate(); errs != nil {
		return nil, errs
	}

	cart, err := s.carts.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if cart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	pruned, err := s.carts.PruneExpiredReservations(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("prune reservations: %w", err)
	}
	if pruned > 0 {
		return nil, ErrReservationsExpired
	}

	// The same cart submitted twice with the same method returns the
	// original order rather than charging again. The key is derived
	// from the cart's own id, not the session, so a later cart in the
	// same session places a new order.
	idemKey := idempotencyKey(cart.ID, form.PaymentMethod)
	existing, err := s.orders.GetPaymentByIdempotencyKey(ctx, idemKey)
	if err == nil {
		ord, errGet := s.orders.GetOrderByID(ctx, existing.OrderID)
		if errGet != nil {
			return nil, fmt.Errorf("load existing order: %w", errGet)
		}
		if existing.Status == domain.PaymentStatusPending && existing.ProviderTransactionID == "" {
			// The earlier attempt never reached the provider; this is
			// the retry path, not a duplicate submission.
			return s.retryPayment(ctx, sessionID, ord, existing)
		}
		return &Result{Order: ord, Payment: existing}, nil
	}
	if !errors.Is(err, order.ErrPaymentNotFound) {
		return nil, fmt.Errorf("idempotency lookup: %w", err)
	}

	ord, err := s.buildOrder(ctx, cart, form)
	if err != nil {
		return nil, err
	}
	if err := s.createWithFreshNumber(ctx, ord); err != nil {
		return nil, err
	}

	txn := &domain.PaymentTransaction{
		ID:             uuid.New(),
		OrderID:        ord.ID,
		IdempotencyKey: idemKey,
		Provider:       s.provider.Name(),
		Method:         form.PaymentMethod,
		Status:         domain.PaymentStatusPending,
		AmountCents:    ord.TotalCents,
		Currency:       ord.Currency,
	}

	resp, err := s.provider.CreatePayment(ctx, paymentRequest(ord, txn))
	if err != nil {
		// Order exists and stock is consumed; record the failed
		// attempt and let the shopper retry payment.
		s.log.Error().Err(err).Str("order_number", ord.Number).Msg("payment provider call failed")
		if errSave := s.orders.SavePaymentTransaction(ctx, txn); errSave != nil {
			return nil, fmt.Errorf("save payment transaction: %w", errSave)
		}
		return nil, fmt.Errorf("create payment: %w", payment.ErrProviderUnavailable)
	}

	applyResponse(txn, resp)

	if err := s.orders.SavePaymentTransaction(ctx, txn); err != nil {
		return nil, fmt.Errorf("save payment transaction: %w", err)
	}

	// Inventory was consumed inside the order transaction, so the
	// cart's reservations must not be released again.
	if err := s.carts.Clear(ctx, sessionID, false); err != nil {
		s.log.Error().Err(err).Str("session_id", sessionID).Msg("failed to clear cart after checkout")
	}

	s.log.Info().
		Str("order_number", ord.Number).
		Str("method", string(form.PaymentMethod)).
		Int64("total_cents", ord.TotalCents).
		Msg("checkout completed")

	return &Result{Order: ord, Payment: txn}, nil
}

// retryPayment re-runs the provider call for an order whose first
// attempt never produced payment instructions. The transaction row is
// updated in place under its original idempotency key.
func (s *Service) retryPayment(ctx context.Context, sessionID string, ord *domain.Order, txn *domain.PaymentTransaction) (*Result, error) {
	resp, err := s.provider.CreatePayment(ctx, paymentRequest(ord, txn))
	if err != nil {
		s.log.Error().Err(err).Str("order_number", ord.Number).Msg("payment provider retry failed")
		return nil, fmt.Errorf("create payment: %w", payment.ErrProviderUnavailable)
	}
	applyResponse(txn, resp)

	if err := s.orders.UpdatePaymentTransaction(ctx, txn); err != nil {
		return nil, fmt.Errorf("update payment transaction: %w", err)
	}

	if err := s.carts.Clear(ctx, sessionID, false); err != nil {
		s.log.Error().Err(err).Str("session_id", sessionID).Msg("failed to clear cart after payment retry")
	}

	s.log.Info().
		Str("order_number", ord.Number).
		Str("method", string(txn.Method)).
		Msg("payment retry succeeded")

	return &Result{Order: ord, Payment: txn}, nil
}

func paymentRequest(ord *domain.Order, txn *domain.PaymentTransaction) *payment.Request {
	return &payment.Request{
		IdempotencyKey: txn.IdempotencyKey,
		OrderID:        ord.ID,
		OrderNumber:    ord.Number,
		AmountCents:    ord.TotalCents,
		Method:         txn.Method,
		CustomerName:   ord.Customer.Name,
		CustomerEmail:  ord.Customer.Email,
		CustomerCPF:    ord.Customer.CPF,
		CustomerPhone:  ord.Customer.Phone,
	}
}

func applyResponse(txn *domain.PaymentTransaction, resp *payment.Response) {
	txn.ProviderTransactionID = resp.ProviderTransactionID
	txn.Status = resp.Status
	txn.FeesCents = resp.FeesCents
	txn.PixQRCode = resp.PixQRCode
	txn.PixCopyPaste = resp.PixCopyPaste
	txn.BoletoURL = resp.BoletoURL
	txn.BoletoBarcode = resp.BoletoBarcode
	txn.RedirectURL = resp.RedirectURL
	if !resp.ExpiresAt.IsZero() {
		expiresAt := resp.ExpiresAt
		txn.ExpiresAt = &expiresAt
	}
}

func (s *Service) buildOrder(ctx context.Context, cart *domain.Cart, form *Form) (*domain.Order, error) {
	now := s.now()
	ord := &domain.Order{
		ID:        uuid.New(),
		Number:    domain.NewOrderNumber(now),
		Status:    domain.OrderStatusPending,
		Customer:  form.customer(),
		Shipping:  form.shippingAddress(),
		Currency:  "BRL",
		Notes:     form.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}

	for i := range cart.Items {
		item := &cart.Items[i]
		snap, err := s.catalog.GetSnapshot(ctx, item.SKUID)
		if err != nil {
			return nil, fmt.Errorf("snapshot sku %s: %w", item.SKUID, err)
		}
		ord.Items = append(ord.Items, domain.OrderItem{
			ID:             uuid.New(),
			SKUID:          item.SKUID,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
			LineTotalCents: item.LineTotalCents(),
			Snapshot:       *snap,
		})
		ord.SubtotalCents += item.LineTotalCents()
	}

	// Shipping and discounts are not charged yet; the total is still
	// computed server-side from the snapshotted lines.
	ord.TotalCents = ord.SubtotalCents + ord.ShippingCents - ord.DiscountCents
	return ord, nil
}

const maxOrderNumberRetries = 3

func (s *Service) createWithFreshNumber(ctx context.Context, ord *domain.Order) error {
	for attempt := 0; ; attempt++ {
		err := s.orders.CreateOrder(ctx, ord)
		if err == nil {
			return nil
		}
		if errors.Is(err, order.ErrDuplicateOrderNumber) && attempt < maxOrderNumberRetries {
			ord.Number = domain.NewOrderNumber(s.now())
			continue
		}
		return fmt.Errorf("create order: %w", err)
	}
}

func idempotencyKey(cartID uuid.UUID, method domain.PaymentMethod) string {
	return fmt.Sprintf("cart_%s_%s", cartID, method)
}
