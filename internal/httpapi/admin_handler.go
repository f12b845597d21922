package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/maiams/NomaCardHouse/internal/catalog"
	"github.com/maiams/NomaCardHouse/internal/domain"
	"github.com/maiams/NomaCardHouse/internal/inventory"
	"github.com/maiams/NomaCardHouse/internal/order"
)

// AdminCatalog is the write side of the catalog, plus the unfiltered
// listing the storefront never sees.
type AdminCatalog interface {
	List(ctx context.Context, filter catalog.ListFilter) ([]domain.ProductSummary, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
	CreateCategory(ctx context.Context, c *domain.Category) error
	UpdateCategory(ctx context.Context, c *domain.Category) error
	DeleteCategory(ctx context.Context, id uuid.UUID) error
	CreateProduct(ctx context.Context, p *domain.Product) error
	UpdateProduct(ctx context.Context, p *domain.Product) error
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	CreateSKU(ctx context.Context, s *domain.SKU, lowStockThreshold int64) error
	UpdateSKU(ctx context.Context, s *domain.SKU) error
	DeleteSKU(ctx context.Context, id uuid.UUID) error
}

type AdminInventory interface {
	Restock(ctx context.Context, skuID uuid.UUID, quantity int64) error
	LowStock(ctx context.Context) ([]domain.Inventory, error)
}

type AdminOrders interface {
	ListOrders(ctx context.Context, status domain.OrderStatus, limit, offset int) ([]domain.Order, error)
	GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, next domain.OrderStatus, trackingCode string) (*domain.Order, error)
	DeleteOrder(ctx context.Context, id uuid.UUID) error
}

type AdminHandler struct {
	catalog   AdminCatalog
	inventory AdminInventory
	orders    AdminOrders
	log       zerolog.Logger
}

func NewAdminHandler(c AdminCatalog, inv AdminInventory, o AdminOrders, log zerolog.Logger) *AdminHandler {
	return &AdminHandler{catalog: c, inventory: inv, orders: o, log: log}
}

// --- categories ---

type categoryRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

func (h *AdminHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		respondFieldErrors(w, map[string]string{"name": "name is required"})
		return
	}
	if req.Slug == "" {
		req.Slug = catalog.Slugify(req.Name)
	}

	c := &domain.Category{ID: uuid.New(), Name: strings.TrimSpace(req.Name), Slug: req.Slug}
	if err := h.catalog.CreateCategory(r.Context(), c); err != nil {
		h.adminCatalogError(w, err, "failed to create category")
		return
	}
	respondJSON(w, http.StatusCreated, toCategoryView(c))
}

func (h *AdminHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.ListCategories(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list categories")
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to list categories")
		return
	}

	views := make([]categoryView, 0, len(categories))
	for i := range categories {
		views = append(views, toCategoryView(&categories[i]))
	}
	respondJSON(w, http.StatusOK, views)
}

func (h *AdminHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_id", "id must be a UUID")
		return
	}

	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		respondFieldErrors(w, map[string]string{"name": "name is required"})
		return
	}
	if req.Slug == "" {
		req.Slug = catalog.Slugify(req.Name)
	}

	c := &domain.Category{ID: id, Name: strings.TrimSpace(req.Name), Slug: req.Slug}
	if err := h.catalog.UpdateCategory(r.Context(), c); err != nil {
		h.adminCatalogError(w, err, "failed to update category")
		return
	}
	respondJSON(w, http.StatusOK, toCategoryView(c))
}

func (h *AdminHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_id", "id must be a UUID")
		return
	}

	if err := h.catalog.DeleteCategory(r.Context(), id); err != nil {
		h.adminCatalogError(w, err, "failed to delete category")
		return
	}
	respondMessage(w, http.StatusOK, "category deleted")
}

// --- products ---

type productRequest struct {
	Name            string  `json:"name"`
	Slug            string  `json:"slug"`
	Description     string  `json:"description"`
	Brand           string  `json:"brand"`
	SetName         string  `json:"set_name"`
	CollectorNumber string  `json:"collector_number"`
	Rarity          string  `json:"rarity"`
	CategoryID      *string `json:"category_id"`
	Featured        bool    `json:"featured"`
	Active          *bool   `json:"active"`
}

func (r *productRequest) validate() map[string]string {
	errs := map[string]string{}
	if strings.TrimSpace(r.Name) == "" {
		errs["name"] = "name is required"
	}
	if r.Rarity != "" && !domain.Rarity(r.Rarity).IsValid() {
		errs["rarity"] = "unknown rarity"
	}
	if r.CategoryID != nil {
		if _, err := uuid.Parse(*r.CategoryID); err != nil {
			errs["category_id"] = "category_id must be a UUID"
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func (r *productRequest) apply(p *domain.Product) {
	p.Name = strings.TrimSpace(r.Name)
	p.Slug = r.Slug
	if p.Slug == "" {
		p.Slug = catalog.Slugify(p.Name)
	}
	p.Description = r.Description
	p.Brand = strings.TrimSpace(r.Brand)
	p.SetName = strings.TrimSpace(r.SetName)
	p.CollectorNumber = strings.TrimSpace(r.CollectorNumber)
	p.Rarity = domain.Rarity(r.Rarity)
	p.Featured = r.Featured
	p.Active = true
	if r.Active != nil {
		p.Active = *r.Active
	}
	p.CategoryID = uuid.NullUUID{}
	if r.CategoryID != nil {
		if id, err := uuid.Parse(*r.CategoryID); err == nil {
			p.CategoryID = uuid.NullUUID{UUID: id, Valid: true}
		}
	}
}

// ListProducts includes deactivated rows, unlike the storefront list.
func (h *AdminHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	if offset < 0 {
		offset = 0
	}

	filter := catalog.ListFilter{
		Query:           q.Get("q"),
		CategorySlug:    q.Get("category"),
		Limit:           limit,
		Offset:          offset,
		IncludeInactive: true,
	}
	products, err := h.catalog.List(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list products")
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to list products")
		return
	}

	views := make([]productSummaryView, 0, len(products))
	for i := range products {
		views = append(views, toProductSummaryView(&products[i]))
	}
	respondJSON(w, http.StatusOK, views)
}

func (h *AdminHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if errs := req.validate(); errs != nil {
		respondFieldErrors(w, errs)
		return
	}

	p := &domain.Product{ID: uuid.New()}
	req.apply(p)
	if err := h.catalog.CreateProduct(r.Context(), p); err != nil {
		h.adminCatalogError(w, err, "failed to create product")
		return
	}
	respondJSON(w, http.StatusCreated, toProductSummaryView(&domain.ProductSummary{Product: *p}))
}

func (h *AdminHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_id", "id must be a UUID")
		return
	}

	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if errs := req.validate(); errs != nil {
		respondFieldErrors(w, errs)
		return
	}

	p := &domain.Product{ID: id}
	req.apply(p)
	if err := h.catalog.UpdateProduct(r.Context(), p); err != nil {
		h.adminCatalogError(w, err, "failed to update product")
		return
	}
	respondJSON(w, http.StatusOK, toProductSummaryView(&domain.ProductSummary{Product: *p}))
}

func (h *AdminHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_id", "id must be a UUID")
		return
	}

	if err := h.catalog.DeleteProduct(r.Context(), id); err != nil {
		h.adminCatalogError(w, err, "failed to delete product")
		return
	}
	respondMessage(w, http.StatusOK, "product deactivated")
}

// --- skus ---

type skuRequest struct {
	Code              string `json:"code"`
	Condition         string `json:"condition"`
	Language          string `json:"language"`
	Foil              bool   `json:"is_foil"`
	PriceCents        int64  `json:"price_cents"`
	SalePriceCents    *int64 `json:"sale_price_cents"`
	Currency          string `json:"currency"`
	Active            *bool  `json:"active"`
	LowStockThreshold int64  `json:"low_stock_threshold"`
}

func (r *skuRequest) validate() map[string]string {
	errs := map[string]string{}
	if strings.TrimSpace(r.Code) == "" {
		errs["code"] = "code is required"
	}
	if !domain.Condition(r.Condition).IsValid() {
		errs["condition"] = "unknown condition"
	}
	if !domain.Language(r.Language).IsValid() {
		errs["language"] = "unknown language"
	}
	if r.PriceCents <= 0 {
		errs["price_cents"] = "price_cents must be positive"
	}
	if r.SalePriceCents != nil && *r.SalePriceCents <= 0 {
		errs["sale_price_cents"] = "sale_price_cents must be positive"
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func (r *skuRequest) apply(s *domain.SKU) {
	s.Code = strings.TrimSpace(r.Code)
	s.Condition = domain.Condition(r.Condition)
	s.Language = domain.Language(r.Language)
	s.Foil = r.Foil
	s.PriceCents = r.PriceCents
	s.SalePriceCents = r.SalePriceCents
	s.Currency = r.Currency
	if s.Currency == "" {
		s.Currency = "BRL"
	}
	s.Active = true
	if r.Active != nil {
		s.Active = *r.Active
	}
}

func (h *AdminHandler) CreateSKU(w http.ResponseWriter, r *http.Request) {
	productID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_id", "id must be a UUID")
		return
	}

	var req skuRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if errs := req.validate(); errs != nil {
		respondFieldErrors(w, errs)
		return
	}

	s := &domain.SKU{ID: uuid.New(), ProductID: productID}
	req.apply(s)
	if err := h.catalog.CreateSKU(r.Context(), s, req.LowStockThreshold); err != nil {
		h.adminCatalogError(w, err, "failed to create sku")
		return
	}
	respondJSON(w, http.StatusCreated, toSKUView(&domain.SKUAvailability{SKU: *s}))
}

func (h *AdminHandler) UpdateSKU(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "sku_id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_sku_id", "sku_id must be a UUID")
		return
	}

	var req skuRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if errs := req.validate(); errs != nil {
		respondFieldErrors(w, errs)
		return
	}

	s := &domain.SKU{ID: id}
	req.apply(s)
	if err := h.catalog.UpdateSKU(r.Context(), s); err != nil {
		h.adminCatalogError(w, err, "failed to update sku")
		return
	}
	respondJSON(w, http.StatusOK, toSKUView(&domain.SKUAvailability{SKU: *s}))
}

func (h *AdminHandler) DeleteSKU(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "sku_id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_sku_id", "sku_id must be a UUID")
		return
	}

	if err := h.catalog.DeleteSKU(r.Context(), id); err != nil {
		h.adminCatalogError(w, err, "failed to delete sku")
		return
	}
	respondMessage(w, http.StatusOK, "sku deactivated")
}

// --- inventory ---

type restockRequest struct {
	Quantity int64 `json:"quantity"`
}

func (h *AdminHandler) Restock(w http.ResponseWriter, r *http.Request) {
	skuID, err := uuid.Parse(chi.URLParam(r, "sku_id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_sku_id", "sku_id must be a UUID")
		return
	}

	var req restockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Quantity <= 0 {
		respondFieldErrors(w, map[string]string{"quantity": "quantity must be positive"})
		return
	}

	if err := h.inventory.Restock(r.Context(), skuID, req.Quantity); err != nil {
		if errors.Is(err, inventory.ErrInventoryNotFound) {
			respondError(w, http.StatusNotFound, "sku_not_found", "no inventory row for sku")
			return
		}
		h.log.Error().Err(err).Str("sku_id", skuID.String()).Msg("failed to restock")
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to restock")
		return
	}
	respondMessage(w, http.StatusOK, "stock added")
}

type lowStockView struct {
	SKUID     string `json:"sku_id"`
	OnHand    int64  `json:"on_hand"`
	Reserved  int64  `json:"reserved"`
	Available int64  `json:"available"`
	Threshold int64  `json:"low_stock_threshold"`
}

func (h *AdminHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	rows, err := h.inventory.LowStock(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list low stock")
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to list low stock")
		return
	}

	views := make([]lowStockView, 0, len(rows))
	for i := range rows {
		inv := &rows[i]
		views = append(views, lowStockView{
			SKUID:     inv.SKUID.String(),
			OnHand:    inv.OnHand,
			Reserved:  inv.Reserved,
			Available: inv.Available(),
			Threshold: inv.LowStockThreshold,
		})
	}
	respondJSON(w, http.StatusOK, views)
}

// --- orders ---

func (h *AdminHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status := domain.OrderStatus(q.Get("status"))
	if status != "" && !status.IsValid() {
		respondError(w, http.StatusBadRequest, "invalid_status", "unknown order status")
		return
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	if offset < 0 {
		offset = 0
	}

	orders, err := h.orders.ListOrders(r.Context(), status, limit, offset)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list orders")
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to list orders")
		return
	}

	views := make([]orderView, 0, len(orders))
	for i := range orders {
		views = append(views, toOrderView(&orders[i]))
	}
	respondJSON(w, http.StatusOK, views)
}

func (h *AdminHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_id", "id must be a UUID")
		return
	}

	o, err := h.orders.GetOrderByID(r.Context(), id)
	if errors.Is(err, order.ErrOrderNotFound) {
		respondError(w, http.StatusNotFound, "order_not_found", "order not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("failed to get order")
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to get order")
		return
	}
	respondJSON(w, http.StatusOK, toOrderView(o))
}

type updateOrderStatusRequest struct {
	Status       string `json:"status"`
	TrackingCode string `json:"tracking_code"`
}

func (h *AdminHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_id", "id must be a UUID")
		return
	}

	var req updateOrderStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	next := domain.OrderStatus(req.Status)
	if !next.IsValid() {
		respondFieldErrors(w, map[string]string{"status": "unknown order status"})
		return
	}

	o, err := h.orders.UpdateOrderStatus(r.Context(), id, next, req.TrackingCode)
	switch {
	case errors.Is(err, order.ErrOrderNotFound):
		respondError(w, http.StatusNotFound, "order_not_found", "order not found")
	case errors.Is(err, order.ErrInvalidTransition):
		respondError(w, http.StatusConflict, "invalid_transition", err.Error())
	case err != nil:
		h.log.Error().Err(err).Msg("failed to update order status")
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to update order status")
	default:
		respondJSON(w, http.StatusOK, toOrderView(o))
	}
}

func (h *AdminHandler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_id", "id must be a UUID")
		return
	}

	if err := h.orders.DeleteOrder(r.Context(), id); err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			respondError(w, http.StatusNotFound, "order_not_found", "order not found")
			return
		}
		h.log.Error().Err(err).Msg("failed to delete order")
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to delete order")
		return
	}
	respondMessage(w, http.StatusOK, "order deleted")
}

func (h *AdminHandler) adminCatalogError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, catalog.ErrProductNotFound):
		respondError(w, http.StatusNotFound, "product_not_found", "product not found")
	case errors.Is(err, catalog.ErrSKUNotFound):
		respondError(w, http.StatusNotFound, "sku_not_found", "sku not found")
	case errors.Is(err, catalog.ErrCategoryNotFound):
		respondError(w, http.StatusNotFound, "category_not_found", "category not found")
	case errors.Is(err, catalog.ErrDuplicateSlug):
		respondError(w, http.StatusConflict, "duplicate_slug", "slug already in use")
	case errors.Is(err, catalog.ErrDuplicateSKUCode):
		respondError(w, http.StatusConflict, "duplicate_sku_code", "sku code already in use")
	case errors.Is(err, catalog.ErrDuplicateSKUVariant):
		respondError(w, http.StatusConflict, "duplicate_sku_variant", "an active sku already exists for this variant")
	default:
		h.log.Error().Err(err).Msg(fallback)
		respondError(w, http.StatusInternalServerError, "internal_error", fallback)
	}
}
