package repo

import (
	"time"

	"github.com/google/uuid"
)

// Product is a catalog entry (phone or accessory).
type Product struct {
	ID          uuid.UUID `json:"id"`
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Brand       string    `json:"brand"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	PriceCents  int64     `json:"priceCents"`
	StockQty    int32     `json:"stockQty"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Cart is a mutable pre-checkout container.
type Cart struct {
	ID         uuid.UUID  `json:"id"`
	UserID     *uuid.UUID `json:"userId,omitempty"`
	CouponCode *string    `json:"couponCode,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// CartItem is one product line inside a cart.
type CartItem struct {
	ID             uuid.UUID `json:"id"`
	CartID         uuid.UUID `json:"cartId"`
	ProductID      uuid.UUID `json:"productId"`
	Title          string    `json:"title"`
	Qty            int32     `json:"qty"`
	UnitPriceCents int64     `json:"unitPriceCents"`
	SubtotalCents  int64     `json:"subtotalCents"`
}

// Coupon is a stored discount code.
type Coupon struct {
	ID               uuid.UUID  `json:"id"`
	Code             string     `json:"code"`
	Type             string     `json:"type"`
	Percent          float64    `json:"percent"`
	AmountCents      int64      `json:"amountCents"`
	ValidFrom        *time.Time `json:"validFrom,omitempty"`
	ValidUntil       *time.Time `json:"validUntil,omitempty"`
	MaxUses          *int32     `json:"maxUses,omitempty"`
	UsedCount        int32      `json:"usedCount"`
	MinPurchaseCents *int64     `json:"minPurchaseCents,omitempty"`
	Active           bool       `json:"active"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// CouponUsage records a settled coupon application, one per order.
type CouponUsage struct {
	ID          uuid.UUID  `json:"id"`
	CouponID    uuid.UUID  `json:"couponId"`
	OrderID     uuid.UUID  `json:"orderId"`
	UserID      *uuid.UUID `json:"userId,omitempty"`
	AmountCents int64      `json:"amountCents"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// Order statuses follow a linear lifecycle; CANCELLED is terminal.
const (
	OrderPendingPayment = "PENDING_PAYMENT"
	OrderPaid           = "PAID"
	OrderShipped        = "SHIPPED"
	OrderDelivered      = "DELIVERED"
	OrderCancelled      = "CANCELLED"
)

// Order is a placed order with its frozen pricing breakdown.
type Order struct {
	ID                     uuid.UUID `json:"id"`
	UserID                 uuid.UUID `json:"userId"`
	Status                 string    `json:"status"`
	SubtotalCents          int64     `json:"subtotalCents"`
	FreightCents           int64     `json:"freightCents"`
	DiscountCents          int64     `json:"discountCents"`
	TotalCents             int64     `json:"totalCents"`
	CouponCode             *string   `json:"couponCode,omitempty"`
	PaymentMethod          *string   `json:"paymentMethod,omitempty"`
	InstallmentCount       *int32    `json:"installmentCount,omitempty"`
	InstallmentAmountCents *int64    `json:"installmentAmountCents,omitempty"`
	ShippingAddress        []byte    `json:"shippingAddress,omitempty"`
	Notes                  *string   `json:"notes,omitempty"`
	CreatedAt              time.Time `json:"createdAt"`
	UpdatedAt              time.Time `json:"updatedAt"`
}

// OrderItem is one frozen product line of an order.
type OrderItem struct {
	ID             uuid.UUID `json:"id"`
	OrderID        uuid.UUID `json:"orderId"`
	ProductID      uuid.UUID `json:"productId"`
	Title          string    `json:"title"`
	Qty            int32     `json:"qty"`
	UnitPriceCents int64     `json:"unitPriceCents"`
	SubtotalCents  int64     `json:"subtotalCents"`
}

// KYC document statuses.
const (
	KYCPending     = "pending"
	KYCUnderReview = "under_review"
	KYCApproved    = "approved"
	KYCRejected    = "rejected"
)

// KYCDocument tracks an identity-verification submission.
type KYCDocument struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"userId"`
	CPF         string     `json:"cpf"`
	DocType     string     `json:"docType"`
	ObjectKey   string     `json:"objectKey"`
	Status      string     `json:"status"`
	Reason      *string    `json:"reason,omitempty"`
	SubmittedAt time.Time  `json:"submittedAt"`
	ReviewedAt  *time.Time `json:"reviewedAt,omitempty"`
	ReviewedBy  *uuid.UUID `json:"reviewedBy,omitempty"`
}

// DomainEvent is a persisted fact about an aggregate.
type DomainEvent struct {
	ID          uuid.UUID `json:"id"`
	Topic       string    `json:"topic"`
	AggregateID uuid.UUID `json:"aggregateId"`
	Payload     []byte    `json:"payload"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// InstallmentSettings is the single-row financing configuration.
type InstallmentSettings struct {
	MaxInstallments      int32     `json:"maxInstallments"`
	MonthlyRatePercent   float64   `json:"monthlyRatePercent"`
	MinPurchaseCents     int64     `json:"minPurchaseCents"`
	Enabled              bool      `json:"enabled"`
	RateFloorPercent     float64   `json:"rateFloorPercent"`
	RateStepPercent      float64   `json:"rateStepPercent"`
	RateThresholdPercent float64   `json:"rateThresholdPercent"`
	UpdatedAt            time.Time `json:"updatedAt"`
}
