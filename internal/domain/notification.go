package domain

import "time"

// Notification is one user-facing event, delivered over the push channel or
// fetched through the polling fallback. The two sources share this shape.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}
