package purchase

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/propdesk/internal/dto"
	"github.com/Additional-Code/propdesk/internal/entity"
	"github.com/Additional-Code/propdesk/internal/ordernumber"
	"github.com/Additional-Code/propdesk/internal/presentation/http/response"
	service "github.com/Additional-Code/propdesk/internal/service/purchase"
	"github.com/Additional-Code/propdesk/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/Additional-Code/propdesk/transport/http/purchase")

// Service is what the handler needs from the purchase service.
type Service interface {
	Get(ctx context.Context, id int64) (*entity.Purchase, error)
	GetByOrderNumber(ctx context.Context, n int64) (*entity.Purchase, error)
	Create(ctx context.Context, p *entity.Purchase) error
}

// Handler exposes purchase endpoints over HTTP.
type Handler struct {
	svc Service
}

// NewHandler constructs a purchase Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/purchases")
	g.GET("/:id", h.getByID)
	g.GET("/by-order-number/:orderNumber", h.getByOrderNumber)
	g.POST("", h.create)
}

func (h *Handler) getByID(c echo.Context) error {
	b := response.New(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return b.WithError(errorbank.BadRequest("invalid id", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "purchases.getByID", trace.WithAttributes(attribute.Int64("purchase.id", id)))
	defer span.End()

	p, err := h.svc.Get(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(toDTO(p)).Build()
}

func (h *Handler) getByOrderNumber(c echo.Context) error {
	b := response.New(c)

	n, err := strconv.ParseInt(c.Param("orderNumber"), 10, 64)
	if err != nil || n <= 0 {
		return b.WithError(errorbank.BadRequest("invalid order number", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "purchases.getByOrderNumber", trace.WithAttributes(attribute.Int64("purchase.order_number", n)))
	defer span.End()

	p, err := h.svc.GetByOrderNumber(ctx, n)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(toDTO(p)).Build()
}

func (h *Handler) create(c echo.Context) error {
	b := response.New(c)

	var payload dto.CreatePurchaseRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	p := &entity.Purchase{
		CustomerEmail: payload.CustomerEmail,
		Product:       payload.Product,
		AmountCents:   payload.AmountCents,
		Currency:      payload.Currency,
		CouponCode:    payload.CouponCode,
		Status:        payload.Status,
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "purchases.create")
	span.SetAttributes(attribute.String("purchase.product", p.Product))
	defer span.End()

	if err := h.svc.Create(ctx, p); err != nil {
		return b.WithError(err).Build()
	}
	span.SetAttributes(attribute.Int64("purchase.order_number", p.OrderNumber))

	return b.WithStatus(http.StatusCreated).WithData(toDTO(p)).Build()
}

func toDTO(p *entity.Purchase) dto.PurchaseResponse {
	return dto.PurchaseResponse{
		ID:                  p.ID,
		OrderNumber:         p.OrderNumber,
		OrderNumberDegraded: ordernumber.IsDegraded(p.OrderNumber),
		CustomerEmail:       p.CustomerEmail,
		Product:             p.Product,
		AmountCents:         p.AmountCents,
		Currency:            p.Currency,
		CouponCode:          p.CouponCode,
		Status:              p.Status,
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	}
}
