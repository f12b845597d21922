package domain

import (
	"time"

	"github.com/google/uuid"
)

type PaymentMethod string

const (
	PaymentMethodPix        PaymentMethod = "PIX"
	PaymentMethodBoleto     PaymentMethod = "BOLETO"
	PaymentMethodCreditCard PaymentMethod = "CREDIT_CARD"
	PaymentMethodDebitCard  PaymentMethod = "DEBIT_CARD"
)

func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodPix, PaymentMethodBoleto, PaymentMethodCreditCard, PaymentMethodDebitCard:
		return true
	}
	return false
}

// RequiresRedirect reports whether the method goes through a hosted
// provider page (card-style methods) instead of inline instructions.
func (m PaymentMethod) RequiresRedirect() bool {
	return m == PaymentMethodCreditCard || m == PaymentMethodDebitCard
}

type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "PENDING"
	PaymentStatusProcessing PaymentStatus = "PROCESSING"
	PaymentStatusCompleted  PaymentStatus = "COMPLETED"
	PaymentStatusFailed     PaymentStatus = "FAILED"
	PaymentStatusCancelled  PaymentStatus = "CANCELLED"
	PaymentStatusRefunded   PaymentStatus = "REFUNDED"
)

func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusCompleted || s == PaymentStatusFailed ||
		s == PaymentStatusCancelled || s == PaymentStatusRefunded
}

// PaymentTransaction correlates exactly one order with a
// provider-side payment. The idempotency key prevents the same cart
// submission from charging twice.
type PaymentTransaction struct {
	ID                    uuid.UUID
	OrderID               uuid.UUID
	IdempotencyKey        string
	Provider              string
	ProviderTransactionID string
	Method                PaymentMethod
	Status                PaymentStatus
	AmountCents           int64
	FeesCents             int64
	Currency              string
	PixQRCode             string
	PixCopyPaste          string
	BoletoURL             string
	BoletoBarcode         string
	RedirectURL           string
	ExpiresAt             *time.Time
	PaidAt                *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}
