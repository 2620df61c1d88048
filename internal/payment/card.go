package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// CardGateway implements Provider for a card acquirer. The webhook
// signature follows the acquirer convention: HMAC-SHA512 over
// orderId + status + amount, keyed with the gateway secret.
type CardGateway struct {
	Key    string
	Secret string
}

// CreateCharge opens a card charge, carrying the installment plan.
func (g CardGateway) CreateCharge(_ context.Context, req ChargeRequest) (ChargeResponse, error) {
	if strings.TrimSpace(req.OrderID) == "" {
		return ChargeResponse{}, errors.New("order id is required")
	}
	if req.AmountCents <= 0 {
		return ChargeResponse{}, errors.New("amount must be positive")
	}
	if req.Installments < 0 || req.Installments > 48 {
		return ChargeResponse{}, errors.New("invalid installment count")
	}
	expiresIn := req.ExpiresInSec
	if expiresIn <= 0 {
		expiresIn = int((30 * time.Minute).Seconds())
	}
	return ChargeResponse{
		Provider:  "card",
		Token:     fmt.Sprintf("CARD-%s-%dx", req.OrderID, max32(req.Installments, 1)),
		ExpiresAt: time.Now().Add(time.Duration(expiresIn) * time.Second).Unix(),
	}, nil
}

// VerifyWebhook validates the acquirer signature embedded in the payload.
func (g CardGateway) VerifyWebhook(_ *http.Request, body []byte) (WebhookResult, error) {
	var payload struct {
		OrderID     string `json:"orderId"`
		Status      string `json:"status"`
		AmountCents string `json:"amountCents"`
		Signature   string `json:"signature"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return WebhookResult{Valid: false, Err: err}, nil
	}
	if payload.OrderID == "" {
		return WebhookResult{Valid: false, Err: errors.New("missing order id")}, nil
	}
	expected := g.Sign(payload.OrderID, payload.Status, payload.AmountCents)
	provided := strings.TrimSpace(payload.Signature)
	if expected == "" || provided == "" || !hmac.Equal([]byte(expected), []byte(provided)) {
		return WebhookResult{Valid: false, Err: errors.New("invalid signature")}, nil
	}
	amount, err := strconv.ParseInt(strings.TrimSpace(payload.AmountCents), 10, 64)
	if err != nil {
		return WebhookResult{Valid: false, Err: err}, nil
	}
	return WebhookResult{
		Valid:       true,
		OrderID:     payload.OrderID,
		AmountCents: amount,
		Status:      normaliseStatus(payload.Status),
		Payload:     body,
	}, nil
}

// Sign computes the acquirer signature for a webhook payload.
func (g CardGateway) Sign(orderID, status, amountCents string) string {
	secret := strings.TrimSpace(g.Secret)
	if secret == "" {
		return ""
	}
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(orderID))
	mac.Write([]byte(status))
	mac.Write([]byte(amountCents))
	return hex.EncodeToString(mac.Sum(nil))
}

func max32(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}
