package seeder

import (
	"context"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/propdesk/internal/entity"
	repo "github.com/Additional-Code/propdesk/internal/repository/purchase"
	service "github.com/Additional-Code/propdesk/internal/service/purchase"
)

// Module provides the Seeder to Fx.
var Module = fx.Provide(New)

// Creator records a purchase and assigns its order number.
type Creator interface {
	Create(ctx context.Context, p *entity.Purchase) error
}

// Ledger reports the order numbers already issued.
type Ledger interface {
	TopOrderNumbers(ctx context.Context, limit int) ([]int64, error)
}

// Seeder performs database seeding for local/dev setups.
type Seeder struct {
	creator Creator
	ledger  Ledger
	logger  *zap.Logger
}

// New constructs a Seeder that goes through the purchase service, so seeded
// rows get real order numbers and events.
func New(svc *service.Service, r *repo.Repository, logger *zap.Logger) *Seeder {
	return &Seeder{creator: svc, ledger: r, logger: logger}
}

func samplePurchases() []entity.Purchase {
	return []entity.Purchase{
		{CustomerEmail: "ana@example.com", Product: "challenge-10k", AmountCents: 9900, Currency: "USD"},
		{CustomerEmail: "bo@example.com", Product: "challenge-25k", AmountCents: 19900, Currency: "USD", CouponCode: "launch20"},
		{CustomerEmail: "chen@example.com", Product: "challenge-50k", AmountCents: 34900, Currency: "EUR", Status: entity.PurchaseStatusPaid},
		{CustomerEmail: "dara@example.com", Product: "challenge-100k", AmountCents: 54900, Currency: "USD", Status: entity.PurchaseStatusCancelled},
	}
}

// Purchases creates the sample purchases. An existing ledger is left alone
// unless force is set. It returns how many purchases were created.
func (s *Seeder) Purchases(ctx context.Context, force bool) (int, error) {
	if !force {
		top, err := s.ledger.TopOrderNumbers(ctx, 1)
		if err != nil {
			return 0, fmt.Errorf("check existing purchases: %w", err)
		}
		if len(top) > 0 {
			s.logger.Info("purchases already present, skipping seed", zap.Int64("highest_order_number", top[0]))
			return 0, nil
		}
	}

	created := 0
	for _, sample := range samplePurchases() {
		p := sample
		if err := s.creator.Create(ctx, &p); err != nil {
			return created, fmt.Errorf("seed purchase for %s: %w", p.CustomerEmail, err)
		}
		created++
		s.logger.Debug("seeded purchase", zap.Int64("id", p.ID), zap.Int64("order_number", p.OrderNumber))
	}

	s.logger.Info("seeded purchases", zap.Int("count", created))
	return created, nil
}
