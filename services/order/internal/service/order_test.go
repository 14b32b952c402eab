package service

import (
	"context"
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/fooddash/platform/pkg/middleware/identity"
	"github.com/fooddash/platform/services/order/internal/models"
	"github.com/fooddash/platform/services/order/internal/productclient"
	"github.com/fooddash/platform/services/order/internal/repo"
	"github.com/fooddash/platform/services/order/internal/transport"
)

type adjustCall struct {
	ProductID uint
	Quantity  int
	Direction productclient.Direction
}

type fakeProductClient struct {
	products map[uint]productclient.Product

	resolveCalls int
	resolveErr   error

	adjustCalls []adjustCall
	adjustErr   map[uint]error
}

func newFakeProductClient(products ...productclient.Product) *fakeProductClient {
	f := &fakeProductClient{
		products:  make(map[uint]productclient.Product),
		adjustErr: make(map[uint]error),
	}
	for _, p := range products {
		f.products[p.ID] = p
	}
	return f
}

func (f *fakeProductClient) ResolveMany(_ context.Context, ids []uint) ([]productclient.Product, error) {
	f.resolveCalls++
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	var out []productclient.Product
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProductClient) AdjustStock(_ context.Context, productID uint, quantity int, direction productclient.Direction) (*productclient.Product, error) {
	f.adjustCalls = append(f.adjustCalls, adjustCall{ProductID: productID, Quantity: quantity, Direction: direction})
	if err := f.adjustErr[productID]; err != nil {
		return nil, err
	}
	p := f.products[productID]
	if direction == productclient.Decrement {
		p.Stock -= quantity
	} else {
		p.Stock += quantity
	}
	f.products[productID] = p
	return &p, nil
}

func initTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Order{}, &models.OrderItem{}))
	return db
}

func newTestService(t *testing.T, products ...productclient.Product) (*OrderService, *fakeProductClient, *gorm.DB) {
	t.Helper()

	db := initTestDB(t)
	fake := newFakeProductClient(products...)
	svc := &OrderService{
		Repo:            &repo.GormRepo{DB: db},
		Products:        fake,
		MaxItemQuantity: 100,
		MinOrderAmount:  decimal.RequireFromString("1.00"),
	}
	return svc, fake, db
}

func pizza() productclient.Product {
	return productclient.Product{
		ID:       1,
		Name:     "Margherita",
		Price:    decimal.RequireFromString("5.00"),
		Stock:    10,
		IsActive: true,
	}
}

func soda() productclient.Product {
	return productclient.Product{
		ID:       7,
		Name:     "Cola",
		Price:    decimal.RequireFromString("1.99"),
		Stock:    50,
		IsActive: true,
	}
}

func TestCreateOrder_PricingAndStock(t *testing.T) {
	svc, fake, _ := newTestService(t, pizza())

	order, err := svc.CreateOrder(context.Background(), transport.CreateOrderRequest{
		Items: []transport.CreateOrderItem{{ProductID: 1, Quantity: 3}},
	}, 42)
	require.NoError(t, err)

	assert.Equal(t, "15.00", order.TotalPrice.StringFixed(2))
	assert.Equal(t, models.StatusPending, order.Status)
	assert.Equal(t, uint(42), order.UserID)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "5.00", order.Items[0].UnitPrice.StringFixed(2))
	assert.Equal(t, "15.00", order.Items[0].LineTotal.StringFixed(2))

	// The stock decrement runs after commit, one call per item.
	require.Len(t, fake.adjustCalls, 1)
	assert.Equal(t, adjustCall{ProductID: 1, Quantity: 3, Direction: productclient.Decrement}, fake.adjustCalls[0])
	assert.Equal(t, 7, fake.products[1].Stock)
}

func TestCreateOrder_LineTotalsSum(t *testing.T) {
	svc, _, _ := newTestService(t, pizza(), soda())

	order, err := svc.CreateOrder(context.Background(), transport.CreateOrderRequest{
		Items: []transport.CreateOrderItem{
			{ProductID: 1, Quantity: 2},
			{ProductID: 7, Quantity: 3},
		},
	}, 42)
	require.NoError(t, err)

	sum := decimal.Zero
	for _, it := range order.Items {
		require.True(t, it.LineTotal.Equal(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))).Round(2)))
		sum = sum.Add(it.LineTotal)
	}
	assert.True(t, order.TotalPrice.Equal(sum))
	assert.Equal(t, "15.97", order.TotalPrice.StringFixed(2))
}

func TestCreateOrder_Validation(t *testing.T) {
	tests := []struct {
		name  string
		items []transport.CreateOrderItem
	}{
		{name: "no items", items: nil},
		{name: "zero quantity", items: []transport.CreateOrderItem{{ProductID: 1, Quantity: 0}}},
		{name: "negative quantity", items: []transport.CreateOrderItem{{ProductID: 1, Quantity: -2}}},
		{name: "quantity over cap", items: []transport.CreateOrderItem{{ProductID: 1, Quantity: 101}}},
		{name: "missing product id", items: []transport.CreateOrderItem{{ProductID: 0, Quantity: 1}}},
		{name: "duplicate product", items: []transport.CreateOrderItem{
			{ProductID: 1, Quantity: 1},
			{ProductID: 1, Quantity: 2},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, fake, db := newTestService(t, pizza())

			_, err := svc.CreateOrder(context.Background(), transport.CreateOrderRequest{Items: tt.items}, 42)
			require.ErrorIs(t, err, ErrValidation)

			// Fail-fast: no network call, no persisted rows.
			assert.Zero(t, fake.resolveCalls)
			assert.Empty(t, fake.adjustCalls)

			var count int64
			db.Model(&models.Order{}).Count(&count)
			assert.Zero(t, count)
		})
	}
}

func TestCreateOrder_UnknownProduct(t *testing.T) {
	svc, _, _ := newTestService(t, pizza())

	_, err := svc.CreateOrder(context.Background(), transport.CreateOrderRequest{
		Items: []transport.CreateOrderItem{
			{ProductID: 1, Quantity: 1},
			{ProductID: 99, Quantity: 1},
		},
	}, 42)
	require.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "99")
}

func TestCreateOrder_InsufficientStock(t *testing.T) {
	svc, fake, _ := newTestService(t, pizza())

	_, err := svc.CreateOrder(context.Background(), transport.CreateOrderRequest{
		Items: []transport.CreateOrderItem{{ProductID: 1, Quantity: 11}},
	}, 42)
	require.ErrorIs(t, err, ErrConflict)
	assert.Contains(t, err.Error(), "Margherita")
	assert.Contains(t, err.Error(), "available 10")
	assert.Empty(t, fake.adjustCalls)
}

func TestCreateOrder_InactiveProduct(t *testing.T) {
	p := pizza()
	p.IsActive = false
	svc, _, _ := newTestService(t, p)

	_, err := svc.CreateOrder(context.Background(), transport.CreateOrderRequest{
		Items: []transport.CreateOrderItem{{ProductID: 1, Quantity: 1}},
	}, 42)
	require.ErrorIs(t, err, ErrConflict)
	assert.Contains(t, err.Error(), "not available")
}

func TestCreateOrder_BelowMinimum(t *testing.T) {
	svc, _, _ := newTestService(t, soda())
	svc.MinOrderAmount = decimal.RequireFromString("5.00")

	_, err := svc.CreateOrder(context.Background(), transport.CreateOrderRequest{
		Items: []transport.CreateOrderItem{{ProductID: 7, Quantity: 1}},
	}, 42)
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "below the minimum")
}

func TestCreateOrder_UpstreamFailure(t *testing.T) {
	svc, fake, db := newTestService(t, pizza())
	fake.resolveErr = productclient.ErrUnavailable

	_, err := svc.CreateOrder(context.Background(), transport.CreateOrderRequest{
		Items: []transport.CreateOrderItem{{ProductID: 1, Quantity: 1}},
	}, 42)
	require.ErrorIs(t, err, ErrUpstream)

	var count int64
	db.Model(&models.Order{}).Count(&count)
	assert.Zero(t, count)
}

func TestCreateOrder_RollbackLeavesNoTrace(t *testing.T) {
	svc, _, db := newTestService(t, pizza())

	// Force the item insert inside the transaction to fail.
	require.NoError(t, db.Migrator().DropTable(&models.OrderItem{}))

	_, err := svc.CreateOrder(context.Background(), transport.CreateOrderRequest{
		Items: []transport.CreateOrderItem{{ProductID: 1, Quantity: 1}},
	}, 42)
	require.Error(t, err)

	var count int64
	db.Model(&models.Order{}).Count(&count)
	assert.Zero(t, count)
}

func TestCreateOrder_DecrementFailureDoesNotFailOrder(t *testing.T) {
	svc, fake, db := newTestService(t, pizza())
	fake.adjustErr[1] = productclient.ErrUnavailable

	order, err := svc.CreateOrder(context.Background(), transport.CreateOrderRequest{
		Items: []transport.CreateOrderItem{{ProductID: 1, Quantity: 2}},
	}, 42)
	require.NoError(t, err)
	assert.NotZero(t, order.ID)
	require.Len(t, fake.adjustCalls, 1)

	var count int64
	db.Model(&models.Order{}).Count(&count)
	assert.EqualValues(t, 1, count)
}

func createTestOrder(t *testing.T, svc *OrderService, userID uint, items ...transport.CreateOrderItem) *models.Order {
	t.Helper()

	if len(items) == 0 {
		items = []transport.CreateOrderItem{{ProductID: 1, Quantity: 2}}
	}
	order, err := svc.CreateOrder(context.Background(), transport.CreateOrderRequest{Items: items}, userID)
	require.NoError(t, err)
	return order
}

func TestGetOrder_Scoping(t *testing.T) {
	svc, _, _ := newTestService(t, pizza())
	order := createTestOrder(t, svc, 42)

	got, err := svc.GetOrder(context.Background(), order.ID, 42, identity.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)
	require.Len(t, got.Items, 1)

	_, err = svc.GetOrder(context.Background(), order.ID, 43, identity.RoleUser)
	require.ErrorIs(t, err, ErrForbidden)

	_, err = svc.GetOrder(context.Background(), order.ID, 43, identity.RoleAdmin)
	require.NoError(t, err)

	_, err = svc.GetOrder(context.Background(), 999, 42, identity.RoleUser)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListOrders_FilterAndPaginate(t *testing.T) {
	svc, _, _ := newTestService(t, pizza())

	for i := 0; i < 3; i++ {
		createTestOrder(t, svc, 42, transport.CreateOrderItem{ProductID: 1, Quantity: 1})
	}
	createTestOrder(t, svc, 43, transport.CreateOrderItem{ProductID: 1, Quantity: 1})

	resp, err := svc.ListOrders(context.Background(), 42, "", 1, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, resp.Total)
	assert.Len(t, resp.Orders, 2)

	resp, err = svc.ListOrders(context.Background(), 42, "pending", 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 3, resp.Total)

	resp, err = svc.ListOrders(context.Background(), 42, "delivered", 1, 10)
	require.NoError(t, err)
	assert.Zero(t, resp.Total)

	_, err = svc.ListOrders(context.Background(), 42, "shipped", 1, 10)
	require.ErrorIs(t, err, ErrValidation)
}

func TestUpdateStatus_WalksTheGraph(t *testing.T) {
	svc, _, _ := newTestService(t, pizza())
	order := createTestOrder(t, svc, 42)

	path := []models.OrderStatus{
		models.StatusConfirmed,
		models.StatusPreparing,
		models.StatusDelivering,
		models.StatusDelivered,
	}
	for _, next := range path {
		updated, err := svc.UpdateStatus(context.Background(), order.ID, next, 42, identity.RoleUser)
		require.NoError(t, err)
		assert.Equal(t, next, updated.Status)
	}
}

func TestUpdateStatus_RejectsInvalidTransition(t *testing.T) {
	svc, _, _ := newTestService(t, pizza())
	order := createTestOrder(t, svc, 42)

	_, err := svc.UpdateStatus(context.Background(), order.ID, models.StatusDelivered, 42, identity.RoleUser)
	var itErr *models.InvalidTransitionError
	require.ErrorAs(t, err, &itErr)
	assert.Equal(t, models.StatusPending, itErr.From)
	assert.Equal(t, models.StatusDelivered, itErr.To)
}

func TestUpdateStatus_TerminalStateIsFinal(t *testing.T) {
	svc, _, _ := newTestService(t, pizza())
	order := createTestOrder(t, svc, 42)

	for _, next := range []models.OrderStatus{
		models.StatusConfirmed,
		models.StatusPreparing,
		models.StatusDelivering,
		models.StatusDelivered,
	} {
		_, err := svc.UpdateStatus(context.Background(), order.ID, next, 42, identity.RoleUser)
		require.NoError(t, err)
	}

	_, err := svc.UpdateStatus(context.Background(), order.ID, models.StatusPending, 42, identity.RoleUser)
	var itErr *models.InvalidTransitionError
	require.ErrorAs(t, err, &itErr)
	assert.Equal(t, models.StatusDelivered, itErr.From)
}

func TestUpdateStatus_Authorization(t *testing.T) {
	svc, _, _ := newTestService(t, pizza())
	order := createTestOrder(t, svc, 42)

	_, err := svc.UpdateStatus(context.Background(), order.ID, models.StatusConfirmed, 43, identity.RoleUser)
	require.ErrorIs(t, err, ErrForbidden)

	updated, err := svc.UpdateStatus(context.Background(), order.ID, models.StatusConfirmed, 43, identity.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, updated.Status)
}

func TestUpdateStatus_UnknownStatusAndOrder(t *testing.T) {
	svc, _, _ := newTestService(t, pizza())
	order := createTestOrder(t, svc, 42)

	_, err := svc.UpdateStatus(context.Background(), order.ID, "shipped", 42, identity.RoleUser)
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.UpdateStatus(context.Background(), 999, models.StatusConfirmed, 42, identity.RoleUser)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateStatus_CancellationRestoresStock(t *testing.T) {
	svc, fake, _ := newTestService(t, soda())
	order := createTestOrder(t, svc, 42, transport.CreateOrderItem{ProductID: 7, Quantity: 2})

	require.Equal(t, 48, fake.products[7].Stock)
	fake.adjustCalls = nil

	updated, err := svc.UpdateStatus(context.Background(), order.ID, models.StatusCancelled, 42, identity.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, updated.Status)

	require.Len(t, fake.adjustCalls, 1)
	assert.Equal(t, adjustCall{ProductID: 7, Quantity: 2, Direction: productclient.Increment}, fake.adjustCalls[0])
	assert.Equal(t, 50, fake.products[7].Stock)
}

func TestUpdateStatus_NonCancellationDoesNotTouchStock(t *testing.T) {
	svc, fake, _ := newTestService(t, pizza())
	order := createTestOrder(t, svc, 42)
	fake.adjustCalls = nil

	_, err := svc.UpdateStatus(context.Background(), order.ID, models.StatusConfirmed, 42, identity.RoleUser)
	require.NoError(t, err)
	assert.Empty(t, fake.adjustCalls)
}

func TestCancelOrder_OwnerShortcut(t *testing.T) {
	svc, fake, _ := newTestService(t, pizza())
	order := createTestOrder(t, svc, 42)
	fake.adjustCalls = nil

	updated, err := svc.CancelOrder(context.Background(), order.ID, 42)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, updated.Status)
	require.Len(t, fake.adjustCalls, 1)
	assert.Equal(t, productclient.Increment, fake.adjustCalls[0].Direction)
}

func TestCancelOrder_OwnerOnly(t *testing.T) {
	svc, _, _ := newTestService(t, pizza())
	order := createTestOrder(t, svc, 42)

	_, err := svc.CancelOrder(context.Background(), order.ID, 43)
	require.ErrorIs(t, err, ErrForbidden)
}

func TestCancelOrder_OnlyEarlyStatuses(t *testing.T) {
	svc, _, _ := newTestService(t, pizza())
	order := createTestOrder(t, svc, 42)

	_, err := svc.UpdateStatus(context.Background(), order.ID, models.StatusConfirmed, 42, identity.RoleUser)
	require.NoError(t, err)
	_, err = svc.UpdateStatus(context.Background(), order.ID, models.StatusPreparing, 42, identity.RoleUser)
	require.NoError(t, err)

	_, err = svc.CancelOrder(context.Background(), order.ID, 42)
	require.ErrorIs(t, err, ErrInvalidState)
	assert.Contains(t, err.Error(), "preparing")
}

func TestCancelOrder_PartialRestorationTolerated(t *testing.T) {
	svc, fake, _ := newTestService(t, pizza(), soda())
	order := createTestOrder(t, svc, 42,
		transport.CreateOrderItem{ProductID: 1, Quantity: 1},
		transport.CreateOrderItem{ProductID: 7, Quantity: 2},
	)
	fake.adjustCalls = nil
	fake.adjustErr[1] = errors.New("boom")

	updated, err := svc.CancelOrder(context.Background(), order.ID, 42)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, updated.Status)

	// Both restorations were attempted even though the first one failed.
	require.Len(t, fake.adjustCalls, 2)
	assert.Equal(t, 50, fake.products[7].Stock)
}
