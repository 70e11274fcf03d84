package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// Purchase statuses.
const (
	PurchaseStatusPending   = "pending"
	PurchaseStatusPaid      = "paid"
	PurchaseStatusCancelled = "cancelled"
)

// Purchase is a checkout record. OrderNumber is assigned once, at creation,
// and is unique across the table.
type Purchase struct {
	bun.BaseModel `bun:"table:purchases"`

	ID            int64     `bun:",pk,autoincrement"`
	OrderNumber   int64     `bun:"order_number,nullzero,unique"`
	CustomerEmail string    `bun:"customer_email,notnull"`
	Product       string    `bun:"product,notnull"`
	AmountCents   int64     `bun:"amount_cents,notnull"`
	Currency      string    `bun:"currency,notnull"`
	CouponCode    string    `bun:"coupon_code,nullzero"`
	Status        string    `bun:"status,notnull"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
	UpdatedAt     time.Time `bun:"updated_at,nullzero"`
}
