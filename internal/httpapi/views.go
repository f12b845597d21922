package httpapi

import (
	"time"

	"github.com/maiams/NomaCardHouse/internal/domain"
)

// Wire DTOs. Domain types stay json-free; everything crossing the
// HTTP boundary is mapped here.

type categoryView struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

func toCategoryView(c *domain.Category) categoryView {
	return categoryView{ID: c.ID.String(), Name: c.Name, Slug: c.Slug}
}

type productSummaryView struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Slug             string `json:"slug"`
	Brand            string `json:"brand"`
	SetName          string `json:"set_name"`
	CollectorNumber  string `json:"collector_number,omitempty"`
	Rarity           string `json:"rarity,omitempty"`
	Featured         bool   `json:"featured"`
	LowestPriceCents int64  `json:"lowest_price_cents"`
	InStock          bool   `json:"in_stock"`
}

func toProductSummaryView(p *domain.ProductSummary) productSummaryView {
	return productSummaryView{
		ID:               p.ID.String(),
		Name:             p.Name,
		Slug:             p.Slug,
		Brand:            p.Brand,
		SetName:          p.SetName,
		CollectorNumber:  p.CollectorNumber,
		Rarity:           string(p.Rarity),
		Featured:         p.Featured,
		LowestPriceCents: p.LowestPriceCents,
		InStock:          p.InStock,
	}
}

type skuView struct {
	ID                  string `json:"id"`
	Code                string `json:"code"`
	Condition           string `json:"condition"`
	Language            string `json:"language"`
	Foil                bool   `json:"is_foil"`
	PriceCents          int64  `json:"price_cents"`
	SalePriceCents      *int64 `json:"sale_price_cents,omitempty"`
	EffectivePriceCents int64  `json:"effective_price_cents"`
	Currency            string `json:"currency"`
	Available           int64  `json:"available"`
}

func toSKUView(s *domain.SKUAvailability) skuView {
	return skuView{
		ID:                  s.ID.String(),
		Code:                s.Code,
		Condition:           string(s.Condition),
		Language:            string(s.Language),
		Foil:                s.Foil,
		PriceCents:          s.PriceCents,
		SalePriceCents:      s.SalePriceCents,
		EffectivePriceCents: s.EffectivePriceCents(),
		Currency:            s.Currency,
		Available:           s.Available,
	}
}

type productDetailView struct {
	productSummaryView
	Description string    `json:"description,omitempty"`
	SKUs        []skuView `json:"skus"`
}

func toProductDetailView(p *domain.ProductDetail) productDetailView {
	v := productDetailView{
		productSummaryView: productSummaryView{
			ID:              p.ID.String(),
			Name:            p.Name,
			Slug:            p.Slug,
			Brand:           p.Brand,
			SetName:         p.SetName,
			CollectorNumber: p.CollectorNumber,
			Rarity:          string(p.Rarity),
			Featured:        p.Featured,
		},
		Description: p.Description,
		SKUs:        []skuView{},
	}
	for i := range p.SKUs {
		sku := &p.SKUs[i]
		v.SKUs = append(v.SKUs, toSKUView(sku))
		if sku.Available > 0 {
			v.InStock = true
		}
		price := sku.EffectivePriceCents()
		if v.LowestPriceCents == 0 || price < v.LowestPriceCents {
			v.LowestPriceCents = price
		}
	}
	return v
}

type cartItemView struct {
	SKUID          string    `json:"sku_id"`
	ProductName    string    `json:"product_name"`
	SKUCode        string    `json:"sku_code"`
	Quantity       int64     `json:"quantity"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	LineTotalCents int64     `json:"line_total_cents"`
	ReservedUntil  time.Time `json:"reserved_until"`
}

type cartView struct {
	SessionID     string         `json:"session_id"`
	Items         []cartItemView `json:"items"`
	SubtotalCents int64          `json:"subtotal_cents"`
	TotalItems    int64          `json:"total_items"`
	ExpiresAt     time.Time      `json:"expires_at"`
}

func toCartView(c *domain.Cart) cartView {
	v := cartView{
		SessionID:     c.SessionID,
		Items:         []cartItemView{},
		SubtotalCents: c.SubtotalCents(),
		TotalItems:    c.TotalItems(),
		ExpiresAt:     c.ExpiresAt,
	}
	for i := range c.Items {
		item := &c.Items[i]
		v.Items = append(v.Items, cartItemView{
			SKUID:          item.SKUID.String(),
			ProductName:    item.ProductName,
			SKUCode:        item.SKUCode,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
			LineTotalCents: item.LineTotalCents(),
			ReservedUntil:  item.ReservedUntil,
		})
	}
	return v
}

type orderItemView struct {
	ProductName    string `json:"product_name"`
	SKUCode        string `json:"sku_code"`
	Condition      string `json:"condition"`
	Language       string `json:"language"`
	Foil           bool   `json:"is_foil"`
	SetName        string `json:"set_name"`
	Rarity         string `json:"rarity,omitempty"`
	Quantity       int64  `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	LineTotalCents int64  `json:"line_total_cents"`
}

type orderView struct {
	ID            string          `json:"id"`
	Number        string          `json:"number"`
	Status        string          `json:"status"`
	CustomerName  string          `json:"customer_name"`
	CustomerEmail string          `json:"customer_email"`
	Shipping      addressView     `json:"shipping_address"`
	SubtotalCents int64           `json:"subtotal_cents"`
	ShippingCents int64           `json:"shipping_cents"`
	DiscountCents int64           `json:"discount_cents"`
	TotalCents    int64           `json:"total_cents"`
	Currency      string          `json:"currency"`
	Notes         string          `json:"notes,omitempty"`
	TrackingCode  string          `json:"tracking_code,omitempty"`
	Items         []orderItemView `json:"items"`
	CreatedAt     time.Time       `json:"created_at"`
}

type addressView struct {
	Street       string `json:"street"`
	Number       string `json:"number"`
	Complement   string `json:"complement,omitempty"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	State        string `json:"state"`
	CEP          string `json:"cep"`
}

func toOrderView(o *domain.Order) orderView {
	v := orderView{
		ID:            o.ID.String(),
		Number:        o.Number,
		Status:        string(o.Status),
		CustomerName:  o.Customer.Name,
		CustomerEmail: o.Customer.Email,
		Shipping: addressView{
			Street:       o.Shipping.Street,
			Number:       o.Shipping.Number,
			Complement:   o.Shipping.Complement,
			Neighborhood: o.Shipping.Neighborhood,
			City:         o.Shipping.City,
			State:        o.Shipping.State,
			CEP:          o.Shipping.CEP,
		},
		SubtotalCents: o.SubtotalCents,
		ShippingCents: o.ShippingCents,
		DiscountCents: o.DiscountCents,
		TotalCents:    o.TotalCents,
		Currency:      o.Currency,
		Notes:         o.Notes,
		TrackingCode:  o.TrackingCode,
		Items:         []orderItemView{},
		CreatedAt:     o.CreatedAt,
	}
	for i := range o.Items {
		item := &o.Items[i]
		v.Items = append(v.Items, orderItemView{
			ProductName:    item.Snapshot.ProductName,
			SKUCode:        item.Snapshot.SKUCode,
			Condition:      string(item.Snapshot.Condition),
			Language:       string(item.Snapshot.Language),
			Foil:           item.Snapshot.Foil,
			SetName:        item.Snapshot.SetName,
			Rarity:         string(item.Snapshot.Rarity),
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
			LineTotalCents: item.LineTotalCents,
		})
	}
	return v
}

type paymentView struct {
	Method        string     `json:"method"`
	Status        string     `json:"status"`
	AmountCents   int64      `json:"amount_cents"`
	FeesCents     int64      `json:"fees_cents,omitempty"`
	PixQRCode     string     `json:"pix_qr_code,omitempty"`
	PixCopyPaste  string     `json:"pix_copy_paste,omitempty"`
	BoletoURL     string     `json:"boleto_url,omitempty"`
	BoletoBarcode string     `json:"boleto_barcode,omitempty"`
	RedirectURL   string     `json:"redirect_url,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
}

func toPaymentView(t *domain.PaymentTransaction) paymentView {
	return paymentView{
		Method:        string(t.Method),
		Status:        string(t.Status),
		AmountCents:   t.AmountCents,
		FeesCents:     t.FeesCents,
		PixQRCode:     t.PixQRCode,
		PixCopyPaste:  t.PixCopyPaste,
		BoletoURL:     t.BoletoURL,
		BoletoBarcode: t.BoletoBarcode,
		RedirectURL:   t.RedirectURL,
		ExpiresAt:     t.ExpiresAt,
		PaidAt:        t.PaidAt,
	}
}
