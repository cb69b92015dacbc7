package backend

import (
	"context"
	"net/http"

	"github.com/quyennx102/storefront-bff/internal/domain"
)

type validateDiscountRequest struct {
	Code     string `json:"code"`
	StoreID  string `json:"store_id"`
	Subtotal int64  `json:"subtotal"`
}

type validateDiscountResponse struct {
	Code           string `json:"code"`
	StoreID        string `json:"store_id"`
	DiscountAmount int64  `json:"discount_amount"`
	Message        string `json:"message"`
}

// ValidateDiscount asks the remote authority to validate a code against the
// given store and subtotal. The discount amount is server-computed; on
// rejection the returned *APIError carries the authority's reason verbatim
// (expired, minimum-not-met, invalid, ...).
func (c *Client) ValidateDiscount(ctx context.Context, code, storeID string, subtotal int64) (*domain.DiscountGrant, error) {
	var resp validateDiscountResponse
	err := c.do(ctx, http.MethodPost, "/discounts/apply", validateDiscountRequest{
		Code:     code,
		StoreID:  storeID,
		Subtotal: subtotal,
	}, &resp)
	if err != nil {
		return nil, err
	}

	return &domain.DiscountGrant{
		Code:    resp.Code,
		StoreID: resp.StoreID,
		Amount:  resp.DiscountAmount,
		Message: resp.Message,
	}, nil
}
