package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Webhook event categories delivered by the provider.
const (
	EventPaymentCompleted = "payment.completed"
	EventPaymentFailed    = "payment.failed"
	EventPaymentExpired   = "payment.expired"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw body.
const SignatureHeader = "X-Webhook-Signature"

// Event is a provider notification. Providers may redeliver the same
// event; ID is the deduplication key.
type Event struct {
	ID                    string    `json:"id"`
	Type                  string    `json:"type"`
	ProviderTransactionID string    `json:"transaction_id"`
	OccurredAt            time.Time `json:"occurred_at"`
}

// Sign computes the signature the provider is expected to send.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a webhook signature in constant time.
func VerifySignature(secret, body []byte, signature string) bool {
	expected := Sign(secret, body)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// ParseEvent decodes and minimally validates a webhook body.
func ParseEvent(body []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, fmt.Errorf("decode webhook event: %w", err)
	}
	if ev.ID == "" || ev.Type == "" || ev.ProviderTransactionID == "" {
		return nil, fmt.Errorf("webhook event missing required fields")
	}
	return &ev, nil
}
