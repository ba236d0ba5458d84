package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/stock-reservation/internal/middleware"
	"github.com/iliyamo/stock-reservation/internal/model"
	"github.com/iliyamo/stock-reservation/internal/queue"
	"github.com/iliyamo/stock-reservation/internal/repository"
	"github.com/iliyamo/stock-reservation/internal/service"
)

// ReservationService is the slice of the reservation manager the HTTP layer
// needs. Declared here so handler tests can substitute a fake.
type ReservationService interface {
	Create(ctx context.Context, in service.CreateInput) (model.Reservation, error)
	Confirm(ctx context.Context, reservationID string) (bool, error)
	Release(ctx context.Context, reservationID string) (bool, error)
	Get(ctx context.Context, reservationID string) (model.Reservation, bool, error)
	ListActive(ctx context.Context, owner model.Owner) ([]model.Reservation, error)
}

// ReservationHandler exposes the reservation lifecycle over HTTP. Owner
// identity is resolved by middleware before any method runs; business-rule
// outcomes from the service are mapped onto distinct status codes and error
// bodies so the storefront can tell "reduce quantity" from "too many holds"
// from "retry later".
type ReservationHandler struct {
	svc           ReservationService
	publishEvents bool
}

// NewReservationHandler constructs the handler. When publishEvents is true,
// confirmed reservations are announced on the broker best-effort.
func NewReservationHandler(svc ReservationService, publishEvents bool) *ReservationHandler {
	if svc == nil {
		panic("nil service passed to NewReservationHandler")
	}
	return &ReservationHandler{svc: svc, publishEvents: publishEvents}
}

type createReservationRequest struct {
	ProductID     string `json:"product_id"`
	VariationID   string `json:"variation_id"`
	Quantity      int    `json:"quantity"`
	CorrelationID string `json:"correlation_id"`
}

// Create handles POST /v1/reservations. It places a hold for the requesting
// owner and returns the full record with 201 on success.
func (h *ReservationHandler) Create(c echo.Context) error {
	owner, ok := middleware.Owner(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing owner identity"})
	}
	var body createReservationRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	res, err := h.svc.Create(c.Request().Context(), service.CreateInput{
		ProductID:     body.ProductID,
		VariationID:   body.VariationID,
		Quantity:      body.Quantity,
		Owner:         owner,
		CorrelationID: body.CorrelationID,
	})
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// Confirm handles POST /v1/reservations/:id/confirm, invoked by the payment
// flow on success. Confirming an unknown or already-confirmed reservation
// answers confirmed=false with 200, so duplicate webhook deliveries stay
// harmless.
func (h *ReservationHandler) Confirm(c echo.Context) error {
	id := c.Param("id")
	confirmed, err := h.svc.Confirm(c.Request().Context(), id)
	if err != nil {
		return writeServiceError(c, err)
	}
	if confirmed && h.publishEvents {
		h.announceConfirmed(c.Request().Context(), id)
	}
	return c.JSON(http.StatusOK, echo.Map{"confirmed": confirmed})
}

// Release handles DELETE /v1/reservations/:id, invoked on cancellation,
// payment failure or cart abandonment. Releasing something already gone is a
// successful no-op.
func (h *ReservationHandler) Release(c echo.Context) error {
	released, err := h.svc.Release(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"released": released})
}

// List handles GET /v1/reservations and returns the owner's active holds.
func (h *ReservationHandler) List(c echo.Context) error {
	owner, ok := middleware.Owner(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing owner identity"})
	}
	reservations, err := h.svc.ListActive(c.Request().Context(), owner)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reservations": reservations})
}

// announceConfirmed publishes the confirmed event in the background; the
// confirm response never waits on the broker.
func (h *ReservationHandler) announceConfirmed(ctx context.Context, id string) {
	res, ok, err := h.svc.Get(ctx, id)
	if err != nil || !ok {
		return
	}
	ev := queue.ReservationConfirmedEvent{
		ReservationID: res.ID,
		ProductID:     res.ProductID,
		VariationID:   res.VariationID,
		Quantity:      res.Quantity,
		Owner:         res.Owner.String(),
		CorrelationID: res.CorrelationID,
	}
	if res.ConfirmedAt != nil {
		ev.ConfirmedAt = res.ConfirmedAt.Format(time.RFC3339)
	}
	go func() { _ = queue.PublishReservationConfirmed(context.Background(), ev) }()
}

// writeServiceError translates engine outcomes into HTTP responses.
func writeServiceError(c echo.Context, err error) error {
	var insufficient *service.InsufficientStockError
	switch {
	case errors.As(err, &insufficient):
		return c.JSON(http.StatusConflict, echo.Map{
			"error":           "insufficient_stock",
			"available_stock": insufficient.Available,
		})
	case errors.Is(err, service.ErrTooManyReservations):
		return c.JSON(http.StatusConflict, echo.Map{"error": "too_many_reservations"})
	case errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrInvalidProduct),
		errors.Is(err, service.ErrInvalidOwner):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation_failed", "detail": err.Error()})
	case errors.Is(err, service.ErrStockUnavailable),
		errors.Is(err, repository.ErrStoreUnavailable):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "temporarily_unavailable"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal_error"})
	}
}
