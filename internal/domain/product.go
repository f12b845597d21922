package domain

import (
	"time"

	"github.com/google/uuid"
)

type Rarity string

const (
	RarityCommon   Rarity = "COMMON"
	RarityUncommon Rarity = "UNCOMMON"
	RarityRare     Rarity = "RARE"
	RarityMythic   Rarity = "MYTHIC"
	RaritySpecial  Rarity = "SPECIAL"
)

func (r Rarity) IsValid() bool {
	switch r {
	case RarityCommon, RarityUncommon, RarityRare, RarityMythic, RaritySpecial:
		return true
	}
	return false
}

type Condition string

const (
	ConditionMint          Condition = "MINT"
	ConditionNearMint      Condition = "NEAR_MINT"
	ConditionLightlyPlayed Condition = "LIGHTLY_PLAYED"
	ConditionPlayed        Condition = "PLAYED"
	ConditionDamaged       Condition = "DAMAGED"
)

func (c Condition) IsValid() bool {
	switch c {
	case ConditionMint, ConditionNearMint, ConditionLightlyPlayed, ConditionPlayed, ConditionDamaged:
		return true
	}
	return false
}

type Language string

const (
	LanguageEN Language = "EN"
	LanguagePT Language = "PT"
	LanguageES Language = "ES"
	LanguageJP Language = "JP"
	LanguageKO Language = "KO"
)

func (l Language) IsValid() bool {
	switch l {
	case LanguageEN, LanguagePT, LanguageES, LanguageJP, LanguageKO:
		return true
	}
	return false
}

type Category struct {
	ID        uuid.UUID
	Name      string
	Slug      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Product is a TCG product (card, sealed product, or accessory).
// Sellable variants live on its SKUs.
type Product struct {
	ID              uuid.UUID
	Name            string
	Slug            string
	Description     string
	Brand           string
	SetName         string
	CollectorNumber string
	Rarity          Rarity
	CategoryID      uuid.NullUUID
	Featured        bool
	Active          bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// SKU is a purchasable variant of a product, distinguished by
// condition, language and foil finish. Each SKU carries its own price
// and inventory.
type SKU struct {
	ID             uuid.UUID
	ProductID      uuid.UUID
	Code           string
	Condition      Condition
	Language       Language
	Foil           bool
	PriceCents     int64
	SalePriceCents *int64
	Currency       string
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// EffectivePriceCents returns the sale price when one is set.
func (s *SKU) EffectivePriceCents() int64 {
	if s.SalePriceCents != nil && *s.SalePriceCents > 0 {
		return *s.SalePriceCents
	}
	return s.PriceCents
}

// ProductSummary is the catalog listing row: the product plus
// aggregates over its active SKUs.
type ProductSummary struct {
	Product
	LowestPriceCents int64
	InStock          bool
}

// SKUAvailability pairs a SKU with its available quantity for the
// product detail page.
type SKUAvailability struct {
	SKU
	Available int64
}

// ProductDetail is a product with all of its active SKUs.
type ProductDetail struct {
	Product
	SKUs []SKUAvailability
}
