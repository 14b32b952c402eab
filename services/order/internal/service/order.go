package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/fooddash/platform/pkg/logging"
	"github.com/fooddash/platform/pkg/middleware/identity"
	"github.com/fooddash/platform/pkg/observability"
	"github.com/fooddash/platform/services/order/internal/models"
	"github.com/fooddash/platform/services/order/internal/productclient"
	"github.com/fooddash/platform/services/order/internal/repo"
	"github.com/fooddash/platform/services/order/internal/transport"
	"github.com/fooddash/platform/services/order/internal/util"
)

var (
	ErrValidation   = errors.New("validation")    // 400
	ErrNotFound     = errors.New("not found")     // 404
	ErrConflict     = errors.New("conflict")      // 409
	ErrForbidden    = errors.New("forbidden")     // 403
	ErrInvalidState = errors.New("invalid state") // 400
	ErrUpstream     = errors.New("product service unavailable") // 503
)

// ProductClient is the collaborator port for the external product catalog.
type ProductClient interface {
	ResolveMany(ctx context.Context, ids []uint) ([]productclient.Product, error)
	AdjustStock(ctx context.Context, productID uint, quantity int, direction productclient.Direction) (*productclient.Product, error)
}

// EventProducer publishes order lifecycle events. A nil producer disables
// publishing.
type EventProducer interface {
	PublishEvent(ctx context.Context, key string, event interface{}) error
}

type OrderEvent struct {
	Type     string    `json:"type"`
	OrderID  uint      `json:"order_id"`
	UserID   uint      `json:"user_id"`
	Status   string    `json:"status"`
	Total    string    `json:"total"`
	Occurred time.Time `json:"occurred"`
}

type OrderService struct {
	Repo     *repo.GormRepo
	Products ProductClient
	Producer EventProducer
	Metrics  observability.Metrics

	MaxItemQuantity int
	MinOrderAmount  decimal.Decimal
}

// CreateOrder runs the creation workflow: fail-fast validation, one bulk
// product lookup, availability and stock checks, snapshot pricing, a single
// atomic write, then best-effort stock decrements. The decrements run after
// commit on purpose: the local transaction never spans a network round trip,
// and a decrement failure must not take down an already-placed order.
func (s *OrderService) CreateOrder(ctx context.Context, req transport.CreateOrderRequest, userID uint) (*models.Order, error) {
	order, err := s.createOrder(ctx, req, userID)
	s.metrics().OrderOperation("create", err == nil)
	return order, err
}

func (s *OrderService) createOrder(ctx context.Context, req transport.CreateOrderRequest, userID uint) (*models.Order, error) {
	if err := s.validateItems(req.Items); err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(req.Items))
	for _, it := range req.Items {
		ids = append(ids, it.ProductID)
	}

	products, err := s.Products.ResolveMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	byID := make(map[uint]productclient.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	var (
		total decimal.Decimal
		items []models.OrderItem
	)
	for _, it := range req.Items {
		p, ok := byID[it.ProductID]
		if !ok {
			return nil, fmt.Errorf("%w: product %d", ErrNotFound, it.ProductID)
		}
		if !p.IsActive {
			return nil, fmt.Errorf("%w: product %q is not available", ErrConflict, p.Name)
		}
		if it.Quantity > p.Stock {
			return nil, fmt.Errorf("%w: insufficient stock for product %q: requested %d, available %d",
				ErrConflict, p.Name, it.Quantity, p.Stock)
		}

		lineTotal := p.Price.Mul(decimal.NewFromInt(int64(it.Quantity))).Round(2)
		total = total.Add(lineTotal)

		items = append(items, models.OrderItem{
			ProductID: p.ID,
			Name:      p.Name,
			UnitPrice: p.Price,
			Quantity:  it.Quantity,
			LineTotal: lineTotal,
		})
	}

	if total.LessThan(s.MinOrderAmount) {
		return nil, fmt.Errorf("%w: order total %s is below the minimum %s",
			ErrValidation, total.StringFixed(2), s.MinOrderAmount.StringFixed(2))
	}

	order := &models.Order{
		UserID:          userID,
		TotalPrice:      total,
		Status:          models.StatusPending,
		DeliveryAddress: req.DeliveryAddress,
		Notes:           req.Notes,
		Items:           items,
	}
	if err := s.Repo.CreateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	s.adjustStock(ctx, order, productclient.Decrement)
	s.publish(ctx, "order_created", order)

	return order, nil
}

func (s *OrderService) validateItems(items []transport.CreateOrderItem) error {
	if len(items) == 0 {
		return fmt.Errorf("%w: order must contain at least one item", ErrValidation)
	}

	seen := make(map[uint]struct{}, len(items))
	for _, it := range items {
		if it.ProductID == 0 {
			return fmt.Errorf("%w: productId is required", ErrValidation)
		}
		if it.Quantity < 1 {
			return fmt.Errorf("%w: quantity for product %d must be a positive integer", ErrValidation, it.ProductID)
		}
		if it.Quantity > s.MaxItemQuantity {
			return fmt.Errorf("%w: quantity for product %d exceeds the maximum of %d", ErrValidation, it.ProductID, s.MaxItemQuantity)
		}
		if _, dup := seen[it.ProductID]; dup {
			return fmt.Errorf("%w: duplicate product %d, aggregate quantities before ordering", ErrValidation, it.ProductID)
		}
		seen[it.ProductID] = struct{}{}
	}
	return nil
}

func (s *OrderService) GetOrder(ctx context.Context, id, requesterID uint, role string) (*models.Order, error) {
	order, err := s.Repo.GetOrder(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: order %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order.UserID != requesterID && role != identity.RoleAdmin {
		return nil, fmt.Errorf("%w: order %d belongs to another user", ErrForbidden, id)
	}
	return order, nil
}

func (s *OrderService) ListOrders(ctx context.Context, userID uint, status string, page, limit int) (*transport.ListOrdersResponse, error) {
	if status != "" && !models.ValidStatus(models.OrderStatus(status)) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}

	offset, size := util.Calculate(page, limit)
	total, orders, err := s.Repo.ListOrders(ctx, userID, models.OrderStatus(status), size, offset)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	resp := &transport.ListOrdersResponse{
		Total:  total,
		Page:   offset/size + 1,
		Limit:  size,
		Orders: make([]transport.OrderResponse, 0, len(orders)),
	}
	for i := range orders {
		resp.Orders = append(resp.Orders, transport.ToOrderResponse(&orders[i]))
	}
	return resp, nil
}

// UpdateStatus drives the order along the transition graph. Moving to
// cancelled restores stock for every item, best effort: one failed
// restoration is logged and the rest still run.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID uint, requested models.OrderStatus, requesterID uint, role string) (*models.Order, error) {
	order, err := s.updateStatus(ctx, orderID, requested, requesterID, role)
	s.metrics().OrderOperation("update_status", err == nil)
	return order, err
}

func (s *OrderService) updateStatus(ctx context.Context, orderID uint, requested models.OrderStatus, requesterID uint, role string) (*models.Order, error) {
	if !models.ValidStatus(requested) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, requested)
	}

	order, err := s.Repo.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: order %d", ErrNotFound, orderID)
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order.UserID != requesterID && role != identity.RoleAdmin {
		return nil, fmt.Errorf("%w: order %d belongs to another user", ErrForbidden, orderID)
	}

	if err := models.Transition(order.Status, requested); err != nil {
		return nil, err
	}

	updated, err := s.Repo.TransitionStatus(ctx, orderID, order.Status, requested)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: order %d", ErrNotFound, orderID)
		}
		return nil, err
	}

	if requested == models.StatusCancelled {
		s.adjustStock(ctx, updated, productclient.Increment)
	}
	s.publish(ctx, "order_status_updated", updated)

	return updated, nil
}

// CancelOrder is the owner-facing shortcut. Unlike UpdateStatus it is never
// available to admins acting on foreign orders and only leaves pending or
// confirmed.
func (s *OrderService) CancelOrder(ctx context.Context, orderID, requesterID uint) (*models.Order, error) {
	order, err := s.cancelOrder(ctx, orderID, requesterID)
	s.metrics().OrderOperation("cancel", err == nil)
	return order, err
}

func (s *OrderService) cancelOrder(ctx context.Context, orderID, requesterID uint) (*models.Order, error) {
	order, err := s.Repo.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: order %d", ErrNotFound, orderID)
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order.UserID != requesterID {
		return nil, fmt.Errorf("%w: order %d belongs to another user", ErrForbidden, orderID)
	}
	if order.Status != models.StatusPending && order.Status != models.StatusConfirmed {
		return nil, fmt.Errorf("%w: order in status %q cannot be cancelled", ErrInvalidState, order.Status)
	}

	updated, err := s.Repo.TransitionStatus(ctx, orderID, order.Status, models.StatusCancelled)
	if err != nil {
		var itErr *models.InvalidTransitionError
		if errors.As(err, &itErr) {
			// Lost a race: the order moved on between the read and the update.
			return nil, fmt.Errorf("%w: order in status %q cannot be cancelled", ErrInvalidState, itErr.From)
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: order %d", ErrNotFound, orderID)
		}
		return nil, err
	}

	s.adjustStock(ctx, updated, productclient.Increment)
	s.publish(ctx, "order_status_updated", updated)

	return updated, nil
}

// adjustStock issues one stock call per item after the local transaction has
// committed. Failures are logged and counted, never propagated: this is the
// accepted inconsistency window, reconciled out of band.
func (s *OrderService) adjustStock(ctx context.Context, order *models.Order, direction productclient.Direction) {
	l := logging.FromContext(ctx)
	for _, item := range order.Items {
		if _, err := s.Products.AdjustStock(ctx, item.ProductID, item.Quantity, direction); err != nil {
			s.metrics().StockAdjustFailure(string(direction))
			l.Error("stock_adjust_failed",
				"order_id", order.ID,
				"product_id", item.ProductID,
				"quantity", item.Quantity,
				"direction", string(direction),
				"error", err,
			)
		}
	}
}

func (s *OrderService) publish(ctx context.Context, eventType string, order *models.Order) {
	if s.Producer == nil {
		return
	}
	event := OrderEvent{
		Type:     eventType,
		OrderID:  order.ID,
		UserID:   order.UserID,
		Status:   string(order.Status),
		Total:    order.TotalPrice.StringFixed(2),
		Occurred: time.Now().UTC(),
	}
	key := strconv.FormatUint(uint64(order.ID), 10)
	if err := s.Producer.PublishEvent(ctx, key, event); err != nil {
		logging.FromContext(ctx).Error("publish_order_event_failed", "order_id", order.ID, "type", eventType, "error", err)
	}
}

func (s *OrderService) metrics() observability.Metrics {
	if s.Metrics == nil {
		return observability.NopMetrics{}
	}
	return s.Metrics
}
