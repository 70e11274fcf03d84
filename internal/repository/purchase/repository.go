package purchase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/propdesk/internal/database"
	"github.com/Additional-Code/propdesk/internal/entity"
)

var repoTracer = otel.Tracer("github.com/Additional-Code/propdesk/repository/purchase")

var (
	// ErrNotFound is returned when a purchase is missing.
	ErrNotFound = errors.New("purchase not found")
	// ErrDuplicateOrderNumber is returned when an insert hits the order_number UNIQUE index.
	ErrDuplicateOrderNumber = errors.New("duplicate order number")
)

const (
	pgUniqueViolation   = "23505"
	mysqlDuplicateEntry = 1062
)

// Repository encapsulates read/write access for purchases.
type Repository struct {
	writer *bun.DB
	reader *bun.DB
}

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{
		writer: conns.Writer,
		reader: conns.Reader,
	}
}

// Create persists a new purchase using the write connection.
func (r *Repository) Create(ctx context.Context, p *entity.Purchase) error {
	if p == nil {
		return errors.New("nil purchase")
	}
	ctx, span := repoTracer.Start(ctx, "PurchaseRepository.Create", trace.WithAttributes(attribute.Int64("purchase.order_number", p.OrderNumber)))
	defer span.End()

	_, err := r.writer.NewInsert().Model(p).Exec(ctx)
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) {
		span.SetStatus(codes.Error, "duplicate order number")
		return fmt.Errorf("%w %d: %v", ErrDuplicateOrderNumber, p.OrderNumber, err)
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, "insert failed")
	return err
}

// GetByID fetches a purchase by primary key using the read replica when available.
func (r *Repository) GetByID(ctx context.Context, id int64) (*entity.Purchase, error) {
	ctx, span := repoTracer.Start(ctx, "PurchaseRepository.GetByID", trace.WithAttributes(attribute.Int64("purchase.id", id)))
	defer span.End()

	p := new(entity.Purchase)
	if err := r.reader.NewSelect().Model(p).Where("id = ?", id).Scan(ctx); err != nil {
		return nil, r.selectErr(span, err)
	}
	return p, nil
}

// GetByOrderNumber fetches a purchase by its order number.
func (r *Repository) GetByOrderNumber(ctx context.Context, n int64) (*entity.Purchase, error) {
	ctx, span := repoTracer.Start(ctx, "PurchaseRepository.GetByOrderNumber", trace.WithAttributes(attribute.Int64("purchase.order_number", n)))
	defer span.End()

	p := new(entity.Purchase)
	if err := r.reader.NewSelect().Model(p).Where("order_number = ?", n).Scan(ctx); err != nil {
		return nil, r.selectErr(span, err)
	}
	return p, nil
}

// TopOrderNumbers returns up to limit assigned order numbers, highest first.
// It reads from the writer so a number committed moments ago is never missed
// because of replica lag.
func (r *Repository) TopOrderNumbers(ctx context.Context, limit int) ([]int64, error) {
	ctx, span := repoTracer.Start(ctx, "PurchaseRepository.TopOrderNumbers", trace.WithAttributes(attribute.Int("limit", limit)))
	defer span.End()

	var numbers []int64
	err := r.writer.NewSelect().
		Model((*entity.Purchase)(nil)).
		Column("order_number").
		Where("order_number IS NOT NULL").
		Order("order_number DESC").
		Limit(limit).
		Scan(ctx, &numbers)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return numbers, nil
}

// OrderNumberExists reports whether any purchase holds order number n.
func (r *Repository) OrderNumberExists(ctx context.Context, n int64) (bool, error) {
	ctx, span := repoTracer.Start(ctx, "PurchaseRepository.OrderNumberExists", trace.WithAttributes(attribute.Int64("purchase.order_number", n)))
	defer span.End()

	exists, err := r.writer.NewSelect().
		Model((*entity.Purchase)(nil)).
		Where("order_number = ?", n).
		Exists(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "exists failed")
		return false, err
	}
	return exists, nil
}

// Ping checks the writer connection.
func (r *Repository) Ping(ctx context.Context) error {
	return r.writer.PingContext(ctx)
}

func (r *Repository) selectErr(span trace.Span, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return ErrNotFound
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, "select failed")
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C') == pgUniqueViolation
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDuplicateEntry
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
