// Package pricing derives display totals from a cart snapshot and an
// optional discount grant. All amounts are minor currency units.
package pricing

import "github.com/quyennx102/storefront-bff/internal/domain"

// TaxRateBasisPoints is the fixed tax rate applied to the post-discount
// amount: 10%.
const TaxRateBasisPoints = 1000

// Compute turns line items plus an optional grant into totals. Pure and
// deterministic: negative inputs are treated as zero, the discount is
// clamped to the subtotal, and tax is always computed on the post-discount
// amount.
func Compute(items []domain.LineItem, grant *domain.DiscountGrant) domain.Totals {
	var subtotal int64
	for _, item := range items {
		if item.Subtotal > 0 {
			subtotal += item.Subtotal
		}
	}

	var discount int64
	if grant != nil && grant.Amount > 0 {
		discount = grant.Amount
		if discount > subtotal {
			discount = subtotal
		}
	}

	taxable := subtotal - discount
	tax := Tax(taxable)

	return domain.Totals{
		Subtotal: subtotal,
		Discount: discount,
		Tax:      tax,
		Total:    taxable + tax,
	}
}

// Tax applies the fixed rate to a non-negative taxable amount, rounding
// half-up on minor units.
func Tax(taxable int64) int64 {
	if taxable <= 0 {
		return 0
	}
	return (taxable*TaxRateBasisPoints + 5000) / 10000
}
