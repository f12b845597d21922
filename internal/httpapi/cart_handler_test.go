package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maiams/NomaCardHouse/internal/cart"
	"github.com/maiams/NomaCardHouse/internal/domain"
)

type stubCartService struct {
	cart *domain.Cart
	err  error

	lastSession  string
	lastSKUID    uuid.UUID
	lastQuantity int64
}

func (s *stubCartService) Get(_ context.Context, sessionID string) (*domain.Cart, error) {
	s.lastSession = sessionID
	return s.cart, s.err
}

func (s *stubCartService) AddItem(_ context.Context, sessionID string, skuID uuid.UUID, quantity int64) (*domain.Cart, error) {
	s.lastSession, s.lastSKUID, s.lastQuantity = sessionID, skuID, quantity
	return s.cart, s.err
}

func (s *stubCartService) UpdateQuantity(_ context.Context, sessionID string, skuID uuid.UUID, quantity int64) (*domain.Cart, error) {
	s.lastSession, s.lastSKUID, s.lastQuantity = sessionID, skuID, quantity
	return s.cart, s.err
}

func (s *stubCartService) RemoveItem(_ context.Context, sessionID string, skuID uuid.UUID) (*domain.Cart, error) {
	s.lastSession, s.lastSKUID = sessionID, skuID
	return s.cart, s.err
}

func (s *stubCartService) Clear(_ context.Context, sessionID string, _ bool) error {
	s.lastSession = sessionID
	return s.err
}

func cartRouter(svc CartService) http.Handler {
	h := NewCartHandler(svc, zerolog.Nop())
	r := chi.NewRouter()
	r.Use(SessionMiddleware(30 * 24 * time.Hour))
	r.Get("/cart", h.Get)
	r.Post("/cart/items", h.AddItem)
	r.Patch("/cart/items/{sku_id}", h.UpdateQuantity)
	r.Delete("/cart/items/{sku_id}", h.RemoveItem)
	r.Post("/cart/clear", h.Clear)
	return r
}

func testCart(sessionID string) *domain.Cart {
	now := time.Now()
	return &domain.Cart{
		SessionID: sessionID,
		Items: []domain.CartItem{{
			SKUID:          uuid.New(),
			ProductName:    "Black Lotus",
			SKUCode:        "BLK-LOTUS-NM-EN",
			Quantity:       2,
			UnitPriceCents: 1000,
			ReservedUntil:  now.Add(30 * time.Minute),
			AddedAt:        now,
		}},
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(30 * 24 * time.Hour),
	}
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestGetCartUsesSessionFromHeader(t *testing.T) {
	sessionID := uuid.NewString()
	svc := &stubCartService{cart: testCart(sessionID)}

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.Header.Set(SessionHeader, sessionID)
	rec := httptest.NewRecorder()
	cartRouter(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, sessionID, svc.lastSession)

	body := decodeEnvelope(t, rec)
	assert.Equal(t, true, body["success"])
	data := body["data"].(map[string]any)
	assert.Equal(t, sessionID, data["session_id"])
	assert.Equal(t, float64(2000), data["subtotal_cents"])
	assert.Equal(t, float64(2), data["total_items"])
}

func TestGetCartMintsSessionWhenAbsent(t *testing.T) {
	svc := &stubCartService{cart: &domain.Cart{}}

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	rec := httptest.NewRecorder()
	cartRouter(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	// A fresh UUID was minted and mirrored into header and cookie.
	_, err := uuid.Parse(svc.lastSession)
	require.NoError(t, err)
	assert.Equal(t, svc.lastSession, rec.Header().Get(SessionHeader))

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookie {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.Equal(t, svc.lastSession, cookie.Value)
	assert.True(t, cookie.HttpOnly)
}

func TestSessionFallsBackToCookie(t *testing.T) {
	sessionID := uuid.NewString()
	svc := &stubCartService{cart: &domain.Cart{SessionID: sessionID}}

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: sessionID})
	rec := httptest.NewRecorder()
	cartRouter(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, sessionID, svc.lastSession)
}

func TestAddItem(t *testing.T) {
	sessionID := uuid.NewString()
	svc := &stubCartService{cart: testCart(sessionID)}
	skuID := uuid.New()

	body := `{"sku_id":"` + skuID.String() + `","quantity":2}`
	req := httptest.NewRequest(http.MethodPost, "/cart/items", strings.NewReader(body))
	req.Header.Set(SessionHeader, sessionID)
	rec := httptest.NewRecorder()
	cartRouter(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, skuID, svc.lastSKUID)
	assert.Equal(t, int64(2), svc.lastQuantity)
}

func TestAddItemRejectsBadSKUID(t *testing.T) {
	svc := &stubCartService{}

	req := httptest.NewRequest(http.MethodPost, "/cart/items", strings.NewReader(`{"sku_id":"nope","quantity":1}`))
	rec := httptest.NewRecorder()
	cartRouter(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeEnvelope(t, rec)
	assert.Equal(t, false, body["success"])
	errBody := body["error"].(map[string]any)
	assert.Equal(t, "invalid_sku_id", errBody["code"])
}

func TestAddItemInsufficientStockIsConflict(t *testing.T) {
	svc := &stubCartService{err: domain.ErrInsufficientStock}

	body := `{"sku_id":"` + uuid.NewString() + `","quantity":5}`
	req := httptest.NewRequest(http.MethodPost, "/cart/items", strings.NewReader(body))
	rec := httptest.NewRecorder()
	cartRouter(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	errBody := decodeEnvelope(t, rec)["error"].(map[string]any)
	assert.Equal(t, "insufficient_stock", errBody["code"])
}

func TestUpdateQuantityUnknownItemIsNotFound(t *testing.T) {
	svc := &stubCartService{err: cart.ErrItemNotFound}

	req := httptest.NewRequest(http.MethodPatch, "/cart/items/"+uuid.NewString(), strings.NewReader(`{"quantity":3}`))
	rec := httptest.NewRecorder()
	cartRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRemoveItem(t *testing.T) {
	sessionID := uuid.NewString()
	svc := &stubCartService{cart: &domain.Cart{SessionID: sessionID}}
	skuID := uuid.New()

	req := httptest.NewRequest(http.MethodDelete, "/cart/items/"+skuID.String(), nil)
	req.Header.Set(SessionHeader, sessionID)
	rec := httptest.NewRecorder()
	cartRouter(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, skuID, svc.lastSKUID)
}

func TestClearCart(t *testing.T) {
	svc := &stubCartService{}

	req := httptest.NewRequest(http.MethodPost, "/cart/clear", nil)
	rec := httptest.NewRecorder()
	cartRouter(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeEnvelope(t, rec)
	assert.Equal(t, "cart cleared", body["message"])
}
