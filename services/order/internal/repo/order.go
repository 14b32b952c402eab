package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/fooddash/platform/services/order/internal/models"
)

type GormRepo struct {
	DB *gorm.DB
}

// CreateOrder persists the order and its items in one transaction. Any
// failure rolls the whole write back, no partial order is ever visible.
func (r *GormRepo) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(order).Error
	})
}

func (r *GormRepo) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	if err := r.DB.WithContext(ctx).Preload("Items").First(&order, id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *GormRepo) ListOrders(ctx context.Context, userID uint, status models.OrderStatus, limit, offset int) (int64, []models.Order, error) {
	q := r.DB.WithContext(ctx).Model(&models.Order{}).Where("user_id = ?", userID)
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return 0, nil, err
	}

	var orders []models.Order
	if err := q.Preload("Items").Order("created_at DESC").Limit(limit).Offset(offset).Find(&orders).Error; err != nil {
		return 0, nil, err
	}
	return total, orders, nil
}

// TransitionStatus compare-and-swaps the order status: the update only
// applies while the order is still in the status the caller observed. Of two
// racing transitions exactly one matches the predicate, the loser re-reads
// the already-updated status and gets the typed rejection.
func (r *GormRepo) TransitionStatus(ctx context.Context, id uint, from, to models.OrderStatus) (*models.Order, error) {
	res := r.DB.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{"status": to, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return nil, res.Error
	}

	var order models.Order
	if err := r.DB.WithContext(ctx).Preload("Items").First(&order, id).Error; err != nil {
		return nil, err
	}
	if res.RowsAffected == 0 {
		return nil, &models.InvalidTransitionError{From: order.Status, To: to}
	}
	return &order, nil
}
