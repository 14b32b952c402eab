package httpserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/fooddash/platform/pkg/logging"
	"github.com/fooddash/platform/pkg/middleware/identity"
	"github.com/fooddash/platform/services/order/internal/models"
	"github.com/fooddash/platform/services/order/internal/service"
	"github.com/fooddash/platform/services/order/internal/transport"
)

type OrderHTTP struct {
	Svc *service.OrderService
}

func (h *OrderHTTP) CreateOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.create_order")

	userID, err := identity.UserID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing identity")
	}

	var req transport.CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("create_order_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	order, err := h.Svc.CreateOrder(ctx, req, userID)
	if err != nil {
		return h.mapError(l, "create_order_error", err)
	}

	l.Info("create_order_success", "order_id", order.ID, "total", order.TotalPrice.StringFixed(2))
	return c.JSON(http.StatusCreated, transport.ToOrderResponse(order))
}

func (h *OrderHTTP) ListOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.list_orders")

	userID, err := identity.UserID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing identity")
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	status := c.QueryParam("status")

	resp, err := h.Svc.ListOrders(ctx, userID, status, page, limit)
	if err != nil {
		return h.mapError(l, "list_orders_error", err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *OrderHTTP) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.get_order")

	userID, err := identity.UserID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing identity")
	}
	orderID, err := parseID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid order id")
	}

	order, err := h.Svc.GetOrder(ctx, orderID, userID, identity.Role(c))
	if err != nil {
		return h.mapError(l, "get_order_error", err)
	}
	return c.JSON(http.StatusOK, transport.ToOrderResponse(order))
}

func (h *OrderHTTP) UpdateStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.update_status")

	userID, err := identity.UserID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing identity")
	}
	orderID, err := parseID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid order id")
	}

	var req transport.UpdateStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	order, err := h.Svc.UpdateStatus(ctx, orderID, models.OrderStatus(req.Status), userID, identity.Role(c))
	if err != nil {
		return h.mapError(l, "update_status_error", err)
	}

	l.Info("update_status_success", "order_id", order.ID, "status", order.Status)
	return c.JSON(http.StatusOK, transport.ToOrderResponse(order))
}

func (h *OrderHTTP) CancelOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.cancel_order")

	userID, err := identity.UserID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing identity")
	}
	orderID, err := parseID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid order id")
	}

	order, err := h.Svc.CancelOrder(ctx, orderID, userID)
	if err != nil {
		return h.mapError(l, "cancel_order_error", err)
	}

	l.Info("cancel_order_success", "order_id", order.ID)
	return c.JSON(http.StatusOK, transport.ToOrderResponse(order))
}

func parseID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return uint(id), nil
}

func (h *OrderHTTP) mapError(l *slog.Logger, event string, err error) error {
	var itErr *models.InvalidTransitionError
	switch {
	case errors.As(err, &itErr):
		l.Warn(event, "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, map[string]interface{}{
			"error":          "invalid status transition",
			"current_status": itErr.From,
			"allowed":        models.AllowedTransitions(itErr.From),
		})
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrInvalidState):
		l.Warn(event, "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrForbidden):
		l.Warn(event, "status", 403, "error", err)
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrNotFound):
		l.Warn(event, "status", 404, "error", err)
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrConflict):
		l.Warn(event, "status", 409, "error", err)
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrUpstream):
		l.Error(event, "status", 503, "error", err)
		return echo.NewHTTPError(http.StatusServiceUnavailable, "product service unavailable")
	default:
		l.Error(event, "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}
