package coupon

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/lojamovel/backend-loja/internal/pricing"
	"github.com/lojamovel/backend-loja/internal/repo"
)

// ErrUnknownCode is returned when no coupon exists for the supplied code.
var ErrUnknownCode = errors.New("coupon: unknown code")

// Querier captures the persistence methods the coupon service needs.
type Querier interface {
	GetByCode(ctx context.Context, code string) (repo.Coupon, error)
	GetByCodeForUpdate(ctx context.Context, code string) (repo.Coupon, error)
	GetUsageByOrder(ctx context.Context, couponID, orderID uuid.UUID) (repo.CouponUsage, error)
	InsertUsage(ctx context.Context, couponID, orderID uuid.UUID, userID *uuid.UUID, amountCents int64) error
	IncrementUsedCount(ctx context.Context, couponID uuid.UUID) error
}

// PreviewResult describes a successful dry-run evaluation.
type PreviewResult struct {
	Code          string        `json:"code"`
	DiscountCents pricing.Cents `json:"discountCents"`
	Formatted     string        `json:"formatted"`
}

// Service evaluates coupon rules and settles usage. Evaluation never
// mutates state; Settle records usage exactly once per order.
type Service struct {
	Q   Querier
	Now func() time.Time
}

// Preview evaluates a code against the freight-inclusive purchase base.
// Rejections come back as the engine's sentinel errors.
func (s *Service) Preview(ctx context.Context, code string, purchaseBase pricing.Cents) (PreviewResult, error) {
	if s == nil || s.Q == nil {
		return PreviewResult{}, errors.New("coupon service not configured")
	}
	normalized := NormalizeCode(code)
	if normalized == "" {
		return PreviewResult{}, ErrUnknownCode
	}
	stored, err := s.Q.GetByCode(ctx, normalized)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PreviewResult{}, ErrUnknownCode
		}
		return PreviewResult{}, err
	}
	rule := RuleFromModel(stored)
	if err := rule.Validate(s.now(), purchaseBase); err != nil {
		return PreviewResult{}, err
	}
	discount := Compute(rule, purchaseBase)
	return PreviewResult{
		Code:          stored.Code,
		DiscountCents: discount,
		Formatted:     pricing.FormatCents(discount),
	}, nil
}

// Settle records coupon usage for a paid order. Calling it twice for the
// same order is a no-op; the usage row is the idempotency anchor.
func (s *Service) Settle(ctx context.Context, code string, orderID uuid.UUID, userID *uuid.UUID, amountCents pricing.Cents) error {
	if s == nil || s.Q == nil {
		return errors.New("coupon service not configured")
	}
	normalized := NormalizeCode(code)
	if normalized == "" || orderID == uuid.Nil {
		return nil
	}
	stored, err := s.Q.GetByCodeForUpdate(ctx, normalized)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}
	if amountCents < 0 {
		amountCents = 0
	}
	_, err = s.Q.GetUsageByOrder(ctx, stored.ID, orderID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	if err := s.Q.InsertUsage(ctx, stored.ID, orderID, userID, amountCents); err != nil {
		return err
	}
	return s.Q.IncrementUsedCount(ctx, stored.ID)
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// RuleFromModel converts a stored coupon into an engine rule.
func RuleFromModel(c repo.Coupon) Rule {
	rule := Rule{
		Code:        c.Code,
		Type:        DiscountType(c.Type),
		Percent:     c.Percent,
		AmountCents: c.AmountCents,
		ValidFrom:   c.ValidFrom,
		ValidUntil:  c.ValidUntil,
		MaxUses:     c.MaxUses,
		UsedCount:   c.UsedCount,
		Active:      c.Active,
	}
	if c.MinPurchaseCents != nil {
		min := pricing.Cents(*c.MinPurchaseCents)
		rule.MinPurchase = &min
	}
	return rule
}
