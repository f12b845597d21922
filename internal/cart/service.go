package cart

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/maiams/NomaCardHouse/internal/domain"
)

type Service struct {
	repo    Repository
	cache   Cache
	stock   StockKeeper
	catalog CatalogReader
	log     zerolog.Logger

	cartTTL        time.Duration
	reservationTTL time.Duration
	now            func() time.Time

	sfg singleflight.Group // prevents cache stampede on Get
}

func NewService(repo Repository, cache Cache, stock StockKeeper, catalog CatalogReader, cartTTL, reservationTTL time.Duration, log zerolog.Logger) *Service {
	return &Service{
		repo:           repo,
		cache:          cache,
		stock:          stock,
		catalog:        catalog,
		log:            log,
		cartTTL:        cartTTL,
		reservationTTL: reservationTTL,
		now:            time.Now,
	}
}

// Get returns the session's cart, or an empty one when none exists.
func (s *Service) Get(ctx context.Context, sessionID string) (*domain.Cart, error) {
	v, err, _ := s.sfg.Do(sessionID, func() (interface{}, error) {
		cached, err := s.cache.Get(ctx, sessionID)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			s.log.Warn().Err(err).Str("session_id", sessionID).Msg("cart cache get failed")
		}

		cart, err := s.repo.GetCart(ctx, sessionID)
		if errors.Is(err, ErrCartNotFound) {
			now := s.now()
			return &domain.Cart{
				ID:        uuid.New(),
				SessionID: sessionID,
				CreatedAt: now,
				UpdatedAt: now,
				ExpiresAt: now.Add(s.cartTTL),
			}, nil
		}
		if err != nil {
			return nil, err
		}

		go func() {
			if errSet := s.cache.Set(context.Background(), sessionID, cart); errSet != nil {
				s.log.Warn().Err(errSet).Str("session_id", sessionID).Msg("cart cache set failed")
			}
		}()

		return cart, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Cart), nil
}

// AddItem reserves stock for the requested quantity and appends the
// line, or increments an existing one. The unit price is snapshotted
// from the SKU's current effective price on first add.
func (s *Service) AddItem(ctx context.Context, sessionID string, skuID uuid.UUID, quantity int64) (*domain.Cart, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	detail, err := s.catalog.GetSKUDetail(ctx, skuID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	cart, err := s.loadOrNew(ctx, sessionID, now)
	if err != nil {
		return nil, err
	}

	if err := s.stock.Reserve(ctx, skuID, quantity); err != nil {
		return nil, err
	}

	if item := cart.FindItem(skuID); item != nil {
		item.Quantity += quantity
		item.ReservedUntil = now.Add(s.reservationTTL)
	} else {
		cart.Items = append(cart.Items, domain.CartItem{
			SKUID:          skuID,
			ProductName:    detail.Product.Name,
			SKUCode:        detail.SKU.Code,
			Quantity:       quantity,
			UnitPriceCents: detail.SKU.EffectivePriceCents(),
			ReservedUntil:  now.Add(s.reservationTTL),
			AddedAt:        now,
		})
	}
	s.touch(cart, now)

	if err := s.repo.UpsertCart(ctx, cart); err != nil {
		// Compensate the reservation we just took.
		if errRelease := s.stock.Release(ctx, skuID, quantity); errRelease != nil {
			s.log.Error().Err(errRelease).Str("sku_id", skuID.String()).Msg("failed to release reservation after upsert failure")
		}
		return nil, err
	}

	s.invalidate(sessionID)
	return cart, nil
}

// UpdateQuantity sets a line's quantity. Out-of-range values are
// rejected, never clamped; quantity 0 removes the line.
func (s *Service) UpdateQuantity(ctx context.Context, sessionID string, skuID uuid.UUID, quantity int64) (*domain.Cart, error) {
	if quantity < 0 {
		return nil, ErrInvalidQuantity
	}
	if quantity == 0 {
		return s.RemoveItem(ctx, sessionID, skuID)
	}

	cart, err := s.repo.GetCart(ctx, sessionID)
	if errors.Is(err, ErrCartNotFound) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, err
	}

	now := s.now()
	if cart.IsExpired(now) {
		return nil, ErrCartExpired
	}

	item := cart.FindItem(skuID)
	if item == nil {
		return nil, ErrItemNotFound
	}

	diff := quantity - item.Quantity
	switch {
	case diff > 0:
		if err := s.stock.Reserve(ctx, skuID, diff); err != nil {
			return nil, err
		}
	case diff < 0:
		if err := s.stock.Release(ctx, skuID, -diff); err != nil {
			return nil, err
		}
	}

	item.Quantity = quantity
	item.ReservedUntil = now.Add(s.reservationTTL)
	s.touch(cart, now)

	if err := s.repo.UpsertCart(ctx, cart); err != nil {
		s.compensate(ctx, skuID, diff)
		return nil, err
	}

	s.invalidate(sessionID)
	return cart, nil
}

// RemoveItem deletes a line and releases its reservation.
func (s *Service) RemoveItem(ctx context.Context, sessionID string, skuID uuid.UUID) (*domain.Cart, error) {
	cart, err := s.repo.GetCart(ctx, sessionID)
	if errors.Is(err, ErrCartNotFound) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, err
	}

	item := cart.FindItem(skuID)
	if item == nil {
		return nil, ErrItemNotFound
	}

	if err := s.stock.Release(ctx, skuID, item.Quantity); err != nil {
		s.log.Error().Err(err).Str("sku_id", skuID.String()).Msg("failed to release reservation on remove")
	}

	cart.RemoveItem(skuID)
	s.touch(cart, s.now())

	if err := s.repo.UpsertCart(ctx, cart); err != nil {
		return nil, err
	}

	s.invalidate(sessionID)
	return cart, nil
}

// Clear empties the cart. Reservations are released unless the caller
// already consumed them (checkout passes releaseReservations=false).
func (s *Service) Clear(ctx context.Context, sessionID string, releaseReservations bool) error {
	cart, err := s.repo.GetCart(ctx, sessionID)
	if errors.Is(err, ErrCartNotFound) {
		s.invalidate(sessionID)
		return nil
	}
	if err != nil {
		return err
	}

	if releaseReservations {
		for i := range cart.Items {
			item := &cart.Items[i]
			if errRelease := s.stock.Release(ctx, item.SKUID, item.Quantity); errRelease != nil {
				s.log.Error().Err(errRelease).Str("sku_id", item.SKUID.String()).Msg("failed to release reservation on clear")
			}
		}
	}

	if err := s.repo.DeleteCart(ctx, sessionID); err != nil && !errors.Is(err, ErrCartNotFound) {
		return err
	}

	s.invalidate(sessionID)
	return nil
}

// PruneExpiredReservations releases and removes lines whose
// reservation window has closed. Returns how many lines were dropped.
func (s *Service) PruneExpiredReservations(ctx context.Context, sessionID string) (int, error) {
	cart, err := s.repo.GetCart(ctx, sessionID)
	if errors.Is(err, ErrCartNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	now := s.now()
	pruned := s.pruneCart(ctx, cart, now)
	if pruned == 0 {
		return 0, nil
	}

	if len(cart.Items) == 0 {
		if err := s.repo.DeleteCart(ctx, sessionID); err != nil && !errors.Is(err, ErrCartNotFound) {
			return pruned, err
		}
	} else {
		s.touch(cart, now)
		if err := s.repo.UpsertCart(ctx, cart); err != nil {
			return pruned, err
		}
	}

	s.invalidate(sessionID)
	return pruned, nil
}

func (s *Service) pruneCart(ctx context.Context, cart *domain.Cart, now time.Time) int {
	pruned := 0
	kept := cart.Items[:0]
	for _, item := range cart.Items {
		if item.ReservationExpired(now) {
			if err := s.stock.Release(ctx, item.SKUID, item.Quantity); err != nil {
				s.log.Error().Err(err).Str("sku_id", item.SKUID.String()).Msg("failed to release expired reservation")
			}
			pruned++
			continue
		}
		kept = append(kept, item)
	}
	cart.Items = kept
	return pruned
}

func (s *Service) loadOrNew(ctx context.Context, sessionID string, now time.Time) (*domain.Cart, error) {
	cart, err := s.repo.GetCart(ctx, sessionID)
	if errors.Is(err, ErrCartNotFound) {
		return &domain.Cart{
			ID:        uuid.New(),
			SessionID: sessionID,
			CreatedAt: now,
			ExpiresAt: now.Add(s.cartTTL),
		}, nil
	}
	if err != nil {
		return nil, err
	}

	if cart.IsExpired(now) {
		// Reclaim whatever the expired cart still holds, then start
		// over under a new cart identity.
		for i := range cart.Items {
			item := &cart.Items[i]
			if errRelease := s.stock.Release(ctx, item.SKUID, item.Quantity); errRelease != nil {
				s.log.Error().Err(errRelease).Str("sku_id", item.SKUID.String()).Msg("failed to release reservation of expired cart")
			}
		}
		cart.ID = uuid.New()
		cart.Items = nil
		cart.CreatedAt = now
	}
	return cart, nil
}

// touch extends the sliding expiration window on every interaction.
func (s *Service) touch(cart *domain.Cart, now time.Time) {
	cart.UpdatedAt = now
	cart.ExpiresAt = now.Add(s.cartTTL)
}

func (s *Service) compensate(ctx context.Context, skuID uuid.UUID, diff int64) {
	var err error
	switch {
	case diff > 0:
		err = s.stock.Release(ctx, skuID, diff)
	case diff < 0:
		err = s.stock.Reserve(ctx, skuID, -diff)
	}
	if err != nil {
		s.log.Error().Err(err).Str("sku_id", skuID.String()).Msg("failed to compensate reservation after upsert failure")
	}
}

func (s *Service) invalidate(sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, sessionID); err != nil {
		s.log.Warn().Err(err).Str("session_id", sessionID).Msg("cart cache invalidate failed")
	}
}
