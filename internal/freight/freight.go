// Package freight quotes delivery cost for a destination CEP. The flat
// table stands in for a carrier integration; checkout only depends on
// the Provider interface.
package freight

import (
	"context"
	"errors"
	"strings"
)

// ErrInvalidCEP is returned for destinations that are not 8 digits.
var ErrInvalidCEP = errors.New("freight: invalid CEP")

// Quote is a priced delivery option.
type Quote struct {
	Service      string `json:"service"`
	AmountCents  int64  `json:"amountCents"`
	EtaDays      int    `json:"etaDays"`
	FreeShipping bool   `json:"freeShipping"`
}

// Provider quotes freight for a destination and order subtotal.
type Provider interface {
	Quote(ctx context.Context, cep string, subtotalCents int64) (Quote, error)
}

// TableProvider prices freight from a flat rate per CEP region, waiving
// it above the free-shipping threshold.
type TableProvider struct {
	FlatCents          int64
	FreeAboveCents     int64
	RemoteSurchargePct int64
}

// Quote implements Provider. The first CEP digit selects the region;
// northern regions (digit >= 6) carry the remote surcharge.
func (p TableProvider) Quote(_ context.Context, cep string, subtotalCents int64) (Quote, error) {
	normalized := normalizeCEP(cep)
	if len(normalized) != 8 {
		return Quote{}, ErrInvalidCEP
	}
	if p.FreeAboveCents > 0 && subtotalCents >= p.FreeAboveCents {
		return Quote{Service: "standard", AmountCents: 0, EtaDays: etaFor(normalized), FreeShipping: true}, nil
	}
	amount := p.FlatCents
	if normalized[0] >= '6' && p.RemoteSurchargePct > 0 {
		amount += amount * p.RemoteSurchargePct / 100
	}
	return Quote{Service: "standard", AmountCents: amount, EtaDays: etaFor(normalized)}, nil
}

func etaFor(cep string) int {
	// Southeast hubs ship faster than remote regions.
	if cep[0] <= '3' {
		return 3
	}
	if cep[0] <= '5' {
		return 5
	}
	return 9
}

func normalizeCEP(cep string) string {
	var b strings.Builder
	for _, r := range cep {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
