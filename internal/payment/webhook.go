package payment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	"github.com/lojamovel/backend-loja/internal/common"
	"github.com/lojamovel/backend-loja/internal/coupon"
	"github.com/lojamovel/backend-loja/internal/events"
	"github.com/lojamovel/backend-loja/internal/obs"
	"github.com/lojamovel/backend-loja/internal/repo"
)

// SettleStores bundles the repositories bound to one settlement transaction.
type SettleStores struct {
	Orders   OrderTxStore
	Payments PaymentTxStore
	Coupons  coupon.Querier
}

// OrderTxStore is the order surface settlement needs.
type OrderTxStore interface {
	GetForUpdate(ctx context.Context, id uuid.UUID) (repo.Order, error)
	SetStatus(ctx context.Context, id uuid.UUID, status string) error
}

// PaymentTxStore is the charge surface settlement needs.
type PaymentTxStore interface {
	GetLatestByOrder(ctx context.Context, orderID uuid.UUID) (repo.Payment, error)
	SetStatus(ctx context.Context, id uuid.UUID, status string, payload []byte) error
}

// SettleRunner opens a transaction and hands the bound stores to fn.
type SettleRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context, s SettleStores) error) error
}

// PgSettleRunner implements SettleRunner over a pgx transaction runner.
type PgSettleRunner struct {
	Tx repo.TxRunner
}

// InTx binds the pgx repositories to one transaction.
func (r PgSettleRunner) InTx(ctx context.Context, fn func(ctx context.Context, s SettleStores) error) error {
	return r.Tx.InTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, SettleStores{
			Orders:   repo.Orders{DB: tx},
			Payments: repo.Payments{DB: tx},
			Coupons:  repo.Coupons{DB: tx},
		})
	})
}

// Webhook handles provider callbacks: signature verification, replay
// protection and order settlement.
type Webhook struct {
	Providers map[string]Provider
	Runner    SettleRunner
	Replay    *redis.Client
	ReplayTTL time.Duration
	Bus       *events.Bus
}

// Handle processes POST /api/v1/webhooks/payment/{provider}.
func (h Webhook) Handle(w http.ResponseWriter, r *http.Request) {
	providerKey := strings.ToLower(strings.TrimSpace(chi.URLParam(r, "provider")))
	provider, ok := h.Providers[providerKey]
	if !ok {
		common.JSONError(w, http.StatusNotFound, "PROVIDER_NOT_SUPPORTED", "unknown provider", nil)
		return
	}
	outcome := "error"
	defer func() {
		if obs.PaymentWebhookTotal != nil {
			obs.PaymentWebhookTotal.WithLabelValues(providerKey, outcome).Inc()
		}
	}()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", "unable to read payload", nil)
		return
	}
	result, err := provider.VerifyWebhook(r, body)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "WEBHOOK_INVALID", err.Error(), nil)
		return
	}
	if !result.Valid {
		outcome = "invalid_signature"
		common.JSONError(w, http.StatusUnauthorized, "INVALID_SIGNATURE", "signature verification failed", nil)
		return
	}

	if h.Replay != nil && h.ReplayTTL > 0 {
		key := fmt.Sprintf("loja:wh:%s:%s", providerKey, common.Sha256Hex(string(body)))
		stored, err := h.Replay.SetNX(r.Context(), key, "1", h.ReplayTTL).Result()
		if err != nil {
			common.JSONError(w, http.StatusInternalServerError, "REPLAY_STORE_ERROR", err.Error(), nil)
			return
		}
		if !stored {
			outcome = "replay"
			common.JSONError(w, http.StatusConflict, "REPLAY", "duplicate webhook", nil)
			return
		}
	}

	orderID, err := uuid.Parse(result.OrderID)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_ORDER_ID", "invalid order identifier", nil)
		return
	}
	if result.Payload == nil {
		result.Payload = body
	}

	var (
		settled       repo.Order
		newStatus     string
		orderCanceled bool
	)
	err = h.Runner.InTx(r.Context(), func(ctx context.Context, stores SettleStores) error {
		charge, err := stores.Payments.GetLatestByOrder(ctx, orderID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return errNoCharge
			}
			return err
		}
		if result.AmountCents > 0 && charge.AmountCents != result.AmountCents {
			return errAmountMismatch
		}
		newStatus = result.Status
		shouldSettle := newStatus == repo.PaymentPaid && charge.Status != repo.PaymentPaid
		if err := stores.Payments.SetStatus(ctx, charge.ID, newStatus, result.Payload); err != nil {
			return err
		}

		order, err := stores.Orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		settled = order

		switch newStatus {
		case repo.PaymentPaid:
			if shouldSettle && order.Status == repo.OrderPendingPayment {
				if err := stores.Orders.SetStatus(ctx, order.ID, repo.OrderPaid); err != nil {
					return err
				}
				settled.Status = repo.OrderPaid
				if order.CouponCode != nil {
					userID := order.UserID
					settler := &coupon.Service{Q: stores.Coupons}
					if err := settler.Settle(ctx, *order.CouponCode, order.ID, &userID, order.DiscountCents); err != nil {
						return err
					}
				}
			}
		case repo.PaymentFailed, repo.PaymentExpired:
			if order.Status == repo.OrderPendingPayment {
				if err := stores.Orders.SetStatus(ctx, order.ID, repo.OrderCancelled); err != nil {
					return err
				}
				settled.Status = repo.OrderCancelled
				orderCanceled = true
			}
		}
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, errNoCharge):
			common.JSONError(w, http.StatusNotFound, "PAYMENT_NOT_FOUND", "no charge for order", nil)
		case errors.Is(err, errAmountMismatch):
			common.JSONError(w, http.StatusBadRequest, "AMOUNT_MISMATCH", "provider amount mismatch", nil)
		default:
			common.JSONError(w, http.StatusInternalServerError, "SETTLEMENT_ERROR", err.Error(), nil)
		}
		return
	}

	if h.Bus != nil {
		payload := map[string]any{
			"orderId": settled.ID.String(),
			"userId":  settled.UserID.String(),
			"status":  newStatus,
		}
		switch newStatus {
		case repo.PaymentPaid:
			if settled.Status == repo.OrderPaid {
				_, _ = h.Bus.Emit(r.Context(), events.TopicOrderPaid, settled.ID, payload)
			}
		case repo.PaymentFailed:
			_, _ = h.Bus.Emit(r.Context(), events.TopicPaymentFailed, settled.ID, payload)
			if orderCanceled {
				_, _ = h.Bus.Emit(r.Context(), events.TopicOrderCancelled, settled.ID, payload)
			}
		case repo.PaymentExpired:
			_, _ = h.Bus.Emit(r.Context(), events.TopicPaymentExpired, settled.ID, payload)
			if orderCanceled {
				_, _ = h.Bus.Emit(r.Context(), events.TopicOrderCancelled, settled.ID, payload)
			}
		}
	}
	outcome = "ok"
	w.WriteHeader(http.StatusNoContent)
}

var (
	errNoCharge       = errors.New("payment: no charge for order")
	errAmountMismatch = errors.New("payment: amount mismatch")
)
