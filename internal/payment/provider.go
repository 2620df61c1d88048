// Package payment creates charges with upstream providers and settles
// orders from their webhooks.
package payment

import (
	"context"
	"net/http"
)

// ChargeRequest captures the information required to open a charge with a provider.
type ChargeRequest struct {
	OrderID      string
	AmountCents  int64
	Installments int32
	ExpiresInSec int
}

// ChargeResponse is the minimal information returned by a provider when creating a charge.
type ChargeResponse struct {
	Provider  string
	Token     string
	QRCode    string
	ExpiresAt int64
}

// WebhookResult contains the normalised data extracted from a webhook
// notification after signature verification.
type WebhookResult struct {
	Valid       bool
	OrderID     string
	AmountCents int64
	Status      string
	Payload     []byte
	Err         error
}

// Provider abstracts the operations required from an upstream payment provider.
type Provider interface {
	CreateCharge(ctx context.Context, req ChargeRequest) (ChargeResponse, error)
	VerifyWebhook(r *http.Request, body []byte) (WebhookResult, error)
}
