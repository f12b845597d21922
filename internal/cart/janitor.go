package cart

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/maiams/NomaCardHouse/internal/domain"
)

const (
	janitorInterval  = 30 * time.Second
	janitorBatchSize = 100
)

// Janitor reclaims inventory held by expired cart reservations. The
// reserved quantities in the inventory ledger do not decay on their
// own, so someone has to sweep.
type Janitor struct {
	repo  Repository
	cache Cache
	stock StockKeeper
	log   zerolog.Logger
	tick  time.Duration
}

func NewJanitor(repo Repository, cache Cache, stock StockKeeper, log zerolog.Logger) *Janitor {
	return &Janitor{
		repo:  repo,
		cache: cache,
		stock: stock,
		log:   log,
		tick:  janitorInterval,
	}
}

func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.sweep(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (j *Janitor) sweep(ctx context.Context) {
	carts, err := j.repo.FindExpiredReservations(ctx, janitorBatchSize)
	if err != nil {
		j.log.Error().Err(err).Msg("janitor failed to find expired reservations")
		return
	}

	now := time.Now()
	for _, cart := range carts {
		j.reclaim(ctx, cart, now)
	}
}

func (j *Janitor) reclaim(ctx context.Context, cart *domain.Cart, now time.Time) {
	kept := cart.Items[:0]
	released := 0
	for _, item := range cart.Items {
		if !item.ReservationExpired(now) {
			kept = append(kept, item)
			continue
		}
		if err := j.stock.Release(ctx, item.SKUID, item.Quantity); err != nil {
			j.log.Error().Err(err).
				Str("session_id", cart.SessionID).
				Str("sku_id", item.SKUID.String()).
				Msg("janitor failed to release reservation")
			kept = append(kept, item) // retry on the next sweep
			continue
		}
		released++
	}
	if released == 0 {
		return
	}
	cart.Items = kept

	var err error
	if len(cart.Items) == 0 {
		err = j.repo.DeleteCart(ctx, cart.SessionID)
		if errors.Is(err, ErrCartNotFound) {
			err = nil
		}
	} else {
		err = j.repo.UpsertCart(ctx, cart)
	}
	if err != nil {
		j.log.Error().Err(err).Str("session_id", cart.SessionID).Msg("janitor failed to persist reclaimed cart")
		return
	}

	if err := j.cache.Delete(ctx, cart.SessionID); err != nil {
		j.log.Warn().Err(err).Str("session_id", cart.SessionID).Msg("janitor failed to invalidate cart cache")
	}

	j.log.Info().
		Str("session_id", cart.SessionID).
		Int("released_lines", released).
		Msg("reclaimed expired cart reservations")
}
