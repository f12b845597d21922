package payment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/maiams/NomaCardHouse/internal/domain"
)

var ErrProviderUnavailable = errors.New("payment provider unavailable")

// Request is what the checkout orchestrator hands to a provider.
type Request struct {
	IdempotencyKey string
	OrderID        uuid.UUID
	OrderNumber    string
	AmountCents    int64
	Method         domain.PaymentMethod
	CustomerName   string
	CustomerEmail  string
	CustomerCPF    string
	CustomerPhone  string
}

// Response carries provider-issued payment instructions. Card-style
// methods fill RedirectURL; PIX and boleto fill their inline codes.
type Response struct {
	ProviderTransactionID string
	Status                domain.PaymentStatus
	FeesCents             int64
	PixQRCode             string
	PixCopyPaste          string
	BoletoURL             string
	BoletoBarcode         string
	RedirectURL           string
	ExpiresAt             time.Time
}

type Provider interface {
	Name() string
	CreatePayment(ctx context.Context, req *Request) (*Response, error)
}
