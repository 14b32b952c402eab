package transport

import (
	"time"

	"github.com/fooddash/platform/services/order/internal/models"
)

type CreateOrderItem struct {
	ProductID uint `json:"productId"`
	Quantity  int  `json:"quantity"`
}

type CreateOrderRequest struct {
	Items           []CreateOrderItem `json:"items"`
	DeliveryAddress string            `json:"deliveryAddress,omitempty"`
	Notes           string            `json:"notes,omitempty"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

type OrderItemResponse struct {
	ProductID uint   `json:"productId"`
	Name      string `json:"name"`
	UnitPrice string `json:"unitPrice"`
	Quantity  int    `json:"quantity"`
	LineTotal string `json:"lineTotal"`
}

type OrderResponse struct {
	ID              uint                `json:"id"`
	UserID          uint                `json:"userId"`
	TotalPrice      string              `json:"totalPrice"`
	Status          string              `json:"status"`
	DeliveryAddress string              `json:"deliveryAddress,omitempty"`
	Notes           string              `json:"notes,omitempty"`
	Items           []OrderItemResponse `json:"items"`
	CreatedAt       time.Time           `json:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt"`
}

type ListOrdersResponse struct {
	Total  int64           `json:"total"`
	Page   int             `json:"page"`
	Limit  int             `json:"limit"`
	Orders []OrderResponse `json:"orders"`
}

func ToOrderResponse(o *models.Order) OrderResponse {
	items := make([]OrderItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItemResponse{
			ProductID: it.ProductID,
			Name:      it.Name,
			UnitPrice: it.UnitPrice.StringFixed(2),
			Quantity:  it.Quantity,
			LineTotal: it.LineTotal.StringFixed(2),
		})
	}

	return OrderResponse{
		ID:              o.ID,
		UserID:          o.UserID,
		TotalPrice:      o.TotalPrice.StringFixed(2),
		Status:          string(o.Status),
		DeliveryAddress: o.DeliveryAddress,
		Notes:           o.Notes,
		Items:           items,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}
