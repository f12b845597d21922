package payment

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/maiams/NomaCardHouse/internal/domain"
)

// StubProvider generates realistic-looking payment data without
// touching a real gateway. Transaction IDs are deterministic in the
// idempotency key so resubmissions map to the same provider record.
type StubProvider struct {
	merchantName string
	now          func() time.Time
}

func NewStubProvider(merchantName string) *StubProvider {
	return &StubProvider{merchantName: merchantName, now: time.Now}
}

func (p *StubProvider) Name() string { return "stub" }

// Fee schedule per payment method, mirroring common Brazilian gateway
// pricing.
var feeRates = map[domain.PaymentMethod]decimal.Decimal{
	domain.PaymentMethodPix:        decimal.NewFromFloat(0.0099),
	domain.PaymentMethodBoleto:     decimal.NewFromFloat(0.0349),
	domain.PaymentMethodCreditCard: decimal.NewFromFloat(0.0399),
	domain.PaymentMethodDebitCard:  decimal.NewFromFloat(0.0299),
}

var defaultFeeRate = decimal.NewFromFloat(0.03)

func (p *StubProvider) CreatePayment(_ context.Context, req *Request) (*Response, error) {
	txnID := transactionID(req.IdempotencyKey)
	now := p.now()

	resp := &Response{
		ProviderTransactionID: txnID,
		Status:                domain.PaymentStatusPending,
		FeesCents:             Fee(req.AmountCents, req.Method),
		ExpiresAt:             now.Add(24 * time.Hour),
	}

	switch req.Method {
	case domain.PaymentMethodPix:
		code := pixPayload(txnID, p.merchantName)
		resp.PixQRCode = code
		resp.PixCopyPaste = code
		resp.ExpiresAt = now.Add(2 * time.Hour)
	case domain.PaymentMethodBoleto:
		resp.BoletoURL = fmt.Sprintf("https://stub-provider.local/boleto/%s.pdf", txnID)
		resp.BoletoBarcode = boletoBarcode(txnID)
		resp.ExpiresAt = now.Add(3 * 24 * time.Hour)
	case domain.PaymentMethodCreditCard, domain.PaymentMethodDebitCard:
		resp.RedirectURL = fmt.Sprintf("https://stub-provider.local/card-auth/%s", txnID)
		resp.Status = domain.PaymentStatusProcessing
	}

	return resp, nil
}

// Fee computes the provider fee in cents for an amount, rounding down.
func Fee(amountCents int64, method domain.PaymentMethod) int64 {
	rate, ok := feeRates[method]
	if !ok {
		rate = defaultFeeRate
	}
	return decimal.NewFromInt(amountCents).Mul(rate).IntPart()
}

func transactionID(idempotencyKey string) string {
	sum := sha256.Sum256([]byte(idempotencyKey))
	return "STUB-" + strings.ToUpper(hex.EncodeToString(sum[:])[:20])
}

// pixPayload builds an EMV-shaped PIX code. Close enough to the real
// format for UI and tests; not a bank-valid payload.
func pixPayload(txnID, merchantName string) string {
	return fmt.Sprintf(
		"00020126580014br.gov.bcb.pix0114%s5204000053039865802BR59%02d%s6009SAO PAULO62070503***6304%s",
		txnID, len(merchantName), merchantName, txnID[:4])
}

// boletoBarcode yields a 47-digit numeric string, the Brazilian boleto
// "linha digitável" length.
func boletoBarcode(txnID string) string {
	sum := md5.Sum([]byte(txnID))
	hexDigest := hex.EncodeToString(sum[:])

	var b strings.Builder
	for _, r := range hexDigest {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		digits = "0"
	}
	for len(digits) < 47 {
		digits += digits
	}
	return digits[:47]
}
