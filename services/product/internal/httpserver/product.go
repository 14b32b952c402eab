package httpserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/fooddash/platform/pkg/logging"
	"github.com/fooddash/platform/services/product/internal/repo"
)

type ProductHTTP struct {
	Repo *repo.GormRepo
}

type bulkRequest struct {
	IDs []uint `json:"ids"`
}

type stockRequest struct {
	Quantity  int    `json:"quantity"`
	Operation string `json:"operation"`
}

func (h *ProductHTTP) GetProduct(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	product, err := h.Repo.GetProduct(c.Request().Context(), uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "product not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusOK, product)
}

// BulkProducts resolves many products in one round trip so the order
// service avoids one call per line item.
func (h *ProductHTTP) BulkProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.bulk")

	var req bulkRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if len(req.IDs) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "ids are required")
	}

	products, err := h.Repo.GetProducts(ctx, req.IDs)
	if err != nil {
		l.Error("bulk_products_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusOK, products)
}

func (h *ProductHTTP) AdjustStock(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.adjust_stock")

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	var req stockRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Quantity <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "quantity must be positive")
	}

	var delta int
	switch req.Operation {
	case "increment":
		delta = req.Quantity
	case "decrement":
		delta = -req.Quantity
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "operation must be increment or decrement")
	}

	product, err := h.Repo.AdjustStock(ctx, uint(id), delta)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "product not found")
		case errors.Is(err, repo.ErrInsufficientStock):
			l.Warn("adjust_stock_conflict", "product_id", id, "quantity", req.Quantity)
			return echo.NewHTTPError(http.StatusBadRequest, "Insufficient stock")
		default:
			l.Error("adjust_stock_error", "product_id", id, "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
		}
	}

	l.Info("adjust_stock_success", "product_id", id, "operation", req.Operation, "quantity", req.Quantity, "stock", product.Stock)
	return c.JSON(http.StatusOK, product)
}
