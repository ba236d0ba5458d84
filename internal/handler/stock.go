package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/stock-reservation/internal/model"
)

// StockService answers availability queries; satisfied by
// service.Availability.
type StockService interface {
	GetAvailableStock(ctx context.Context, productID, variationID string) (model.StockAvailability, error)
}

// StockHandler exposes the read-only availability endpoint.
type StockHandler struct {
	svc StockService
}

// NewStockHandler constructs the handler.
func NewStockHandler(svc StockService) *StockHandler {
	if svc == nil {
		panic("nil service passed to NewStockHandler")
	}
	return &StockHandler{svc: svc}
}

// Get handles GET /v1/stock/:product_id with an optional ?variation_id=
// query parameter. No authentication required: availability is what the
// product page shows every visitor.
func (h *StockHandler) Get(c echo.Context) error {
	productID := c.Param("product_id")
	if productID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "product id required"})
	}
	avail, err := h.svc.GetAvailableStock(c.Request().Context(), productID, c.QueryParam("variation_id"))
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, avail)
}
