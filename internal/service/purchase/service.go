package purchase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/propdesk/internal/cache"
	"github.com/Additional-Code/propdesk/internal/config"
	"github.com/Additional-Code/propdesk/internal/entity"
	"github.com/Additional-Code/propdesk/internal/messaging"
	"github.com/Additional-Code/propdesk/internal/ordernumber"
	repo "github.com/Additional-Code/propdesk/internal/repository/purchase"
	"github.com/Additional-Code/propdesk/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/Additional-Code/propdesk/service/purchase")

const (
	// OrderNumberLockKey guards the allocate-then-insert region across instances.
	OrderNumberLockKey = "locks:purchases:order-number"
	// EventPurchaseCreated is carried in the "event" header of published messages.
	EventPurchaseCreated = "purchase.created"

	defaultCurrency = "USD"
	defaultLockWait = 500 * time.Millisecond
)

// Repository is the persistence the service needs.
type Repository interface {
	Create(ctx context.Context, p *entity.Purchase) error
	GetByID(ctx context.Context, id int64) (*entity.Purchase, error)
	GetByOrderNumber(ctx context.Context, n int64) (*entity.Purchase, error)
}

// Allocator hands out order numbers; it must not fail.
type Allocator interface {
	Allocate(ctx context.Context) int64
}

// Service records purchases and assigns their order numbers.
type Service struct {
	repo      Repository
	allocator Allocator
	cache     cache.Store
	cacheTTL  time.Duration
	locker    cache.Locker
	logger    *zap.Logger
	publisher messaging.Client
	messaging messagingConfig
	purchases config.Purchases
}

// messagingConfig contains messaging specific knobs we care about.
type messagingConfig struct {
	enabled bool
	topic   string
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Repository *repo.Repository
	Allocator  *ordernumber.Allocator
	Cache      cache.Store
	Locker     cache.Locker
	Config     config.Config
	Logger     *zap.Logger
	Publisher  messaging.Client
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{
		repo:      p.Repository,
		allocator: p.Allocator,
		cache:     p.Cache,
		cacheTTL:  p.Config.Cache.DefaultTTL,
		locker:    p.Locker,
		logger:    p.Logger,
		publisher: p.Publisher,
		messaging: messagingConfig{
			enabled: p.Config.Messaging.Enabled,
			topic:   p.Config.Messaging.Kafka.Topic,
		},
		purchases: p.Config.Purchases,
	}
}

// Get retrieves a purchase by id, consulting cache when available.
func (s *Service) Get(ctx context.Context, id int64) (*entity.Purchase, error) {
	ctx, span := serviceTracer.Start(ctx, "PurchaseService.Get", trace.WithAttributes(attribute.Int64("purchase.id", id)))
	defer span.End()

	if p, err := s.getFromCache(ctx, id); err == nil {
		return p, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("purchases cache read failed", zap.Int64("id", id), zap.Error(err))
	}

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.readErr(span, err)
	}

	if err := s.storeInCache(ctx, p); err != nil {
		s.logger.Warn("purchases cache write failed", zap.Int64("id", id), zap.Error(err))
	}
	return p, nil
}

// GetByOrderNumber retrieves a purchase by its order number.
func (s *Service) GetByOrderNumber(ctx context.Context, n int64) (*entity.Purchase, error) {
	ctx, span := serviceTracer.Start(ctx, "PurchaseService.GetByOrderNumber", trace.WithAttributes(attribute.Int64("purchase.order_number", n)))
	defer span.End()

	p, err := s.repo.GetByOrderNumber(ctx, n)
	if err != nil {
		return nil, s.readErr(span, err)
	}
	return p, nil
}

// Create validates p, assigns it an order number and persists it.
//
// A UNIQUE violation on order_number means another instance won the race for
// the same number; the number is re-allocated and the insert retried up to
// the configured attempts before the call fails with a conflict.
func (s *Service) Create(ctx context.Context, p *entity.Purchase) error {
	if err := normalize(p); err != nil {
		return err
	}
	if p.CreatedAt.IsZero() {
		now := time.Now().UTC()
		p.CreatedAt = now
		p.UpdatedAt = now
	}
	ctx, span := serviceTracer.Start(ctx, "PurchaseService.Create", trace.WithAttributes(attribute.String("purchase.product", p.Product)))
	defer span.End()

	if err := s.insertWithOrderNumber(ctx, p); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create failed")
		return err
	}
	span.SetAttributes(attribute.Int64("purchase.order_number", p.OrderNumber))

	if err := s.storeInCache(ctx, p); err != nil {
		s.logger.Warn("purchases cache write failed", zap.Int64("id", p.ID), zap.Error(err))
	}

	s.publishPurchaseCreated(ctx, p)
	return nil
}

func (s *Service) insertWithOrderNumber(ctx context.Context, p *entity.Purchase) error {
	unlock := s.lockOrderNumbers(ctx)
	defer unlock()

	attempts := s.purchases.InsertAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		p.OrderNumber = s.allocator.Allocate(ctx)

		err := s.repo.Create(ctx, p)
		if err == nil {
			if ordernumber.IsDegraded(p.OrderNumber) {
				s.logger.Warn("purchase stored with degraded order number",
					zap.Int64("id", p.ID),
					zap.Int64("order_number", p.OrderNumber),
				)
			}
			return nil
		}
		if !errors.Is(err, repo.ErrDuplicateOrderNumber) {
			return errorbank.Internal("failed to create purchase", errorbank.WithCause(err))
		}

		s.logger.Warn("order number collision on insert",
			zap.Int64("order_number", p.OrderNumber),
			zap.Int("attempt", attempt+1),
		)
		lastErr = err
	}

	return errorbank.Conflict("could not assign a unique order number",
		errorbank.WithCause(lastErr),
		errorbank.WithDetail("attempts", attempts),
	)
}

// lockOrderNumbers takes the advisory lock when one is configured. Failing to
// get it is logged and creation carries on unlocked; the UNIQUE index still
// rejects duplicates.
func (s *Service) lockOrderNumbers(ctx context.Context) func() {
	if s.locker == nil {
		return func() {}
	}
	wait := s.purchases.LockWait
	if wait <= 0 {
		wait = defaultLockWait
	}
	lockCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	release, err := s.locker.Acquire(lockCtx, OrderNumberLockKey, s.purchases.LockTTL)
	if err != nil {
		s.logger.Warn("order number lock unavailable; continuing unlocked", zap.Error(err))
		return func() {}
	}
	return func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("order number lock release failed", zap.Error(err))
		}
	}
}

func (s *Service) readErr(span trace.Span, err error) error {
	if errors.Is(err, repo.ErrNotFound) {
		return errorbank.NotFound("purchase not found")
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, "repository error")
	return errorbank.Internal("failed to load purchase", errorbank.WithCause(err))
}

func normalize(p *entity.Purchase) error {
	if p == nil {
		return errorbank.BadRequest("purchase payload is required")
	}
	p.CustomerEmail = strings.TrimSpace(p.CustomerEmail)
	p.Product = strings.TrimSpace(p.Product)
	p.Currency = strings.ToUpper(strings.TrimSpace(p.Currency))
	p.CouponCode = strings.ToUpper(strings.TrimSpace(p.CouponCode))
	p.Status = strings.ToLower(strings.TrimSpace(p.Status))

	if p.CustomerEmail == "" || p.Product == "" {
		return errorbank.BadRequest("customer_email and product are required")
	}
	if _, err := mail.ParseAddress(p.CustomerEmail); err != nil {
		return errorbank.BadRequest("invalid customer_email", errorbank.WithCause(err))
	}
	if p.AmountCents < 0 {
		return errorbank.Unprocessable("amount_cents must not be negative",
			errorbank.WithDetail("amount_cents", p.AmountCents))
	}
	if p.Currency == "" {
		p.Currency = defaultCurrency
	}
	if len(p.Currency) != 3 {
		return errorbank.Unprocessable("currency must be a three-letter code",
			errorbank.WithDetail("currency", p.Currency))
	}
	switch p.Status {
	case "":
		p.Status = entity.PurchaseStatusPending
	case entity.PurchaseStatusPending, entity.PurchaseStatusPaid, entity.PurchaseStatusCancelled:
	default:
		return errorbank.Unprocessable("unknown purchase status", errorbank.WithDetail("status", p.Status))
	}
	if p.OrderNumber != 0 {
		return errorbank.BadRequest("order_number is assigned by the server")
	}
	return nil
}

func (s *Service) publishPurchaseCreated(ctx context.Context, p *entity.Purchase) {
	if !s.messaging.enabled || s.publisher == nil {
		return
	}
	event := PurchaseCreatedEvent{
		ID:          p.ID,
		OrderNumber: p.OrderNumber,
		Status:      p.Status,
		Product:     p.Product,
		AmountCents: p.AmountCents,
		Currency:    p.Currency,
		Degraded:    ordernumber.IsDegraded(p.OrderNumber),
		CreatedAt:   p.CreatedAt,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("marshal purchase created", zap.Error(err))
		return
	}
	headers := map[string]string{"event": EventPurchaseCreated}
	if err := s.publisher.Publish(ctx, []byte(fmt.Sprintf("purchase-%d", p.ID)), payload, headers); err != nil {
		s.logger.Error("publish purchase created",
			zap.Int64("id", p.ID),
			zap.String("topic", s.messaging.topic),
			zap.Error(err),
		)
	}
}

func (s *Service) cacheKey(id int64) string {
	return fmt.Sprintf("purchases:%d", id)
}

func (s *Service) getFromCache(ctx context.Context, id int64) (*entity.Purchase, error) {
	if s.cache == nil {
		return nil, cache.ErrCacheMiss
	}
	raw, err := s.cache.Get(ctx, s.cacheKey(id))
	if err != nil {
		return nil, err
	}
	var p entity.Purchase
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Service) storeInCache(ctx context.Context, p *entity.Purchase) error {
	if s.cache == nil || p == nil {
		return nil
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, s.cacheKey(p.ID), raw, s.cacheTTL)
}

// PurchaseCreatedEvent is emitted when a new purchase is persisted.
type PurchaseCreatedEvent struct {
	ID          int64     `json:"id"`
	OrderNumber int64     `json:"order_number"`
	Status      string    `json:"status"`
	Product     string    `json:"product"`
	AmountCents int64     `json:"amount_cents"`
	Currency    string    `json:"currency"`
	Degraded    bool      `json:"degraded"`
	CreatedAt   time.Time `json:"created_at"`
}
