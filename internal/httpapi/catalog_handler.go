package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/maiams/NomaCardHouse/internal/catalog"
	"github.com/maiams/NomaCardHouse/internal/domain"
)

// Catalog is the read side of the product surface.
type Catalog interface {
	List(ctx context.Context, filter catalog.ListFilter) ([]domain.ProductSummary, error)
	GetBySlug(ctx context.Context, slug string) (*domain.ProductDetail, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
}

type CatalogHandler struct {
	catalog Catalog
	log     zerolog.Logger
}

func NewCatalogHandler(c Catalog, log zerolog.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: c, log: log}
}

func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := catalog.ListFilter{
		Query:        q.Get("q"),
		CategorySlug: q.Get("category"),
		Rarity:       domain.Rarity(q.Get("rarity")),
		Featured:     q.Get("featured") == "true",
	}
	if filter.Rarity != "" && !filter.Rarity.IsValid() {
		respondError(w, http.StatusBadRequest, "invalid_rarity", "unknown rarity filter")
		return
	}
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))
	if filter.Offset < 0 {
		filter.Offset = 0
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

func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	detail, err := h.catalog.GetBySlug(r.Context(), slug)
	if errors.Is(err, catalog.ErrProductNotFound) {
		respondError(w, http.StatusNotFound, "product_not_found", "product not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("slug", slug).Msg("failed to get product")
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to get product")
		return
	}
	respondJSON(w, http.StatusOK, toProductDetailView(detail))
}

func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
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
