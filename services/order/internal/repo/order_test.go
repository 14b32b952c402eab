package repo

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/fooddash/platform/services/order/internal/models"
)

func newTestRepo(t *testing.T) *GormRepo {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Order{}, &models.OrderItem{}))
	return &GormRepo{DB: db}
}

func seedOrder(t *testing.T, r *GormRepo, userID uint) *models.Order {
	t.Helper()

	order := &models.Order{
		UserID:     userID,
		TotalPrice: decimal.RequireFromString("15.00"),
		Status:     models.StatusPending,
		Items: []models.OrderItem{{
			ProductID: 1,
			Name:      "Margherita",
			UnitPrice: decimal.RequireFromString("5.00"),
			Quantity:  3,
			LineTotal: decimal.RequireFromString("15.00"),
		}},
	}
	require.NoError(t, r.CreateOrder(context.Background(), order))
	return order
}

func TestCreateOrder_PersistsItems(t *testing.T) {
	r := newTestRepo(t)
	order := seedOrder(t, r, 42)

	got, err := r.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)
	require.Len(t, got.Items, 1)
	assert.Equal(t, order.ID, got.Items[0].OrderID)
}

func TestTransitionStatus_CASLoserSeesUpdatedStatus(t *testing.T) {
	r := newTestRepo(t)
	order := seedOrder(t, r, 42)

	// Two transitions race holding the same observed status. The first CAS
	// wins, the second no longer matches the predicate.
	winner, err := r.TransitionStatus(context.Background(), order.ID, models.StatusPending, models.StatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, winner.Status)

	_, err = r.TransitionStatus(context.Background(), order.ID, models.StatusPending, models.StatusCancelled)
	var itErr *models.InvalidTransitionError
	require.ErrorAs(t, err, &itErr)
	assert.Equal(t, models.StatusConfirmed, itErr.From)
	assert.Equal(t, models.StatusCancelled, itErr.To)

	got, err := r.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, got.Status)
}

func TestTransitionStatus_UnknownOrder(t *testing.T) {
	r := newTestRepo(t)

	_, err := r.TransitionStatus(context.Background(), 999, models.StatusPending, models.StatusConfirmed)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestListOrders_ScopedAndFiltered(t *testing.T) {
	r := newTestRepo(t)
	first := seedOrder(t, r, 42)
	seedOrder(t, r, 42)
	seedOrder(t, r, 7)

	_, err := r.TransitionStatus(context.Background(), first.ID, models.StatusPending, models.StatusConfirmed)
	require.NoError(t, err)

	total, orders, err := r.ListOrders(context.Background(), 42, "", 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, orders, 2)

	total, orders, err = r.ListOrders(context.Background(), 42, models.StatusConfirmed, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, orders, 1)
	assert.Equal(t, first.ID, orders[0].ID)
}
