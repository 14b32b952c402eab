package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/fooddash/platform/services/product/internal/models"
)

var ErrInsufficientStock = errors.New("insufficient stock")

type GormRepo struct {
	DB *gorm.DB
}

func (r *GormRepo) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	if err := r.DB.WithContext(ctx).First(&product, id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// GetProducts returns the products matching ids. Unknown ids are simply
// absent from the result, callers compare counts.
func (r *GormRepo) GetProducts(ctx context.Context, ids []uint) ([]models.Product, error) {
	var products []models.Product
	if err := r.DB.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// AdjustStock applies an increment or decrement as one conditional update,
// so two concurrent decrements can never take stock below zero. A decrement
// that would go negative fails with ErrInsufficientStock and leaves the row
// untouched.
func (r *GormRepo) AdjustStock(ctx context.Context, id uint, delta int) (*models.Product, error) {
	res := r.DB.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND stock + ? >= 0", id, delta).
		Update("stock", gorm.Expr("stock + ?", delta))
	if res.Error != nil {
		return nil, res.Error
	}

	var product models.Product
	if err := r.DB.WithContext(ctx).First(&product, id).Error; err != nil {
		return nil, err
	}
	if res.RowsAffected == 0 {
		return nil, ErrInsufficientStock
	}
	return &product, nil
}
