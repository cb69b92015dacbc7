package domain

// Profile is the authenticated user's profile as returned by the backend.
// It pre-fills checkout drafts and is cached in the session store.
type Profile struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	City    string `json:"city"`
}

// NewDraft seeds an order draft from the profile's shipping defaults.
func (p *Profile) NewDraft() OrderDraft {
	if p == nil {
		return OrderDraft{Method: PaymentCashOnDelivery}
	}
	return OrderDraft{
		Name:    p.Name,
		Phone:   p.Phone,
		Address: p.Address,
		City:    p.City,
		Method:  PaymentCashOnDelivery,
	}
}
