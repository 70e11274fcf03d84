package dto

import "time"

// PurchaseResponse represents a purchase as exposed via transport layers.
type PurchaseResponse struct {
	ID                  int64     `json:"id"`
	OrderNumber         int64     `json:"order_number"`
	OrderNumberDegraded bool      `json:"order_number_degraded"`
	CustomerEmail       string    `json:"customer_email"`
	Product             string    `json:"product"`
	AmountCents         int64     `json:"amount_cents"`
	Currency            string    `json:"currency"`
	CouponCode          string    `json:"coupon_code,omitempty"`
	Status              string    `json:"status"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// CreatePurchaseRequest is the payload accepted when recording a checkout.
type CreatePurchaseRequest struct {
	CustomerEmail string `json:"customer_email"`
	Product       string `json:"product"`
	AmountCents   int64  `json:"amount_cents"`
	Currency      string `json:"currency"`
	CouponCode    string `json:"coupon_code"`
	Status        string `json:"status"`
}
