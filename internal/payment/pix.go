package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Pix implements Provider for a PIX payment service provider. Charges
// are synthesised deterministically; the real integration would call
// the PSP's charge API.
type Pix struct {
	APIKey string
}

// CreateCharge issues a PIX "copia e cola" payload for the order amount.
func (p Pix) CreateCharge(_ context.Context, req ChargeRequest) (ChargeResponse, error) {
	if strings.TrimSpace(req.OrderID) == "" {
		return ChargeResponse{}, errors.New("order id is required")
	}
	if req.AmountCents <= 0 {
		return ChargeResponse{}, errors.New("amount must be positive")
	}
	expiresIn := req.ExpiresInSec
	if expiresIn <= 0 {
		expiresIn = int((30 * time.Minute).Seconds())
	}
	token := fmt.Sprintf("PIX-%s", req.OrderID)
	return ChargeResponse{
		Provider:  "pix",
		Token:     token,
		QRCode:    fmt.Sprintf("00020126580014br.gov.bcb.pix0136%s5204000053039865802BR", req.OrderID),
		ExpiresAt: time.Now().Add(time.Duration(expiresIn) * time.Second).Unix(),
	}, nil
}

// VerifyWebhook checks the X-Pix-Signature header, an HMAC-SHA256 of the
// raw body keyed with the API key.
func (p Pix) VerifyWebhook(r *http.Request, body []byte) (WebhookResult, error) {
	key := strings.TrimSpace(p.APIKey)
	if key == "" {
		return WebhookResult{Valid: false, Err: errors.New("pix api key not configured")}, nil
	}
	provided := strings.TrimSpace(r.Header.Get("X-Pix-Signature"))
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	if provided == "" || !hmac.Equal([]byte(expected), []byte(provided)) {
		return WebhookResult{Valid: false, Err: errors.New("invalid signature")}, nil
	}

	var payload struct {
		OrderID     string `json:"orderId"`
		AmountCents int64  `json:"amountCents"`
		Status      string `json:"status"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return WebhookResult{Valid: false, Err: err}, nil
	}
	if payload.OrderID == "" {
		return WebhookResult{Valid: false, Err: errors.New("missing order id")}, nil
	}
	return WebhookResult{
		Valid:       true,
		OrderID:     payload.OrderID,
		AmountCents: payload.AmountCents,
		Status:      normaliseStatus(payload.Status),
		Payload:     body,
	}, nil
}

// SignBody computes the webhook signature; used by tests and the PSP simulator.
func (p Pix) SignBody(body []byte) string {
	mac := hmac.New(sha256.New, []byte(strings.TrimSpace(p.APIKey)))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func normaliseStatus(status string) string {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "PAID", "CONFIRMED", "SETTLED", "APPROVED", "CAPTURED":
		return "PAID"
	case "FAILED", "DENIED", "CANCELLED", "CHARGEBACK":
		return "FAILED"
	case "EXPIRED":
		return "EXPIRED"
	default:
		return "PENDING"
	}
}
