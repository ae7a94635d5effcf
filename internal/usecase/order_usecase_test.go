package usecase_test

import (
	"context"
	"testing"

	"app/internal/domain/model"
	"app/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type orderFixture struct {
	uc       *usecase.OrderUsecase
	tx       *TxManagerMock
	orders   *OrderRepoMock
	items    *OrderItemRepoMock
	products *ProductRepoMock
}

func newOrderFixture() *orderFixture {
	f := &orderFixture{
		tx:       new(TxManagerMock),
		orders:   new(OrderRepoMock),
		items:    new(OrderItemRepoMock),
		products: new(ProductRepoMock),
	}
	f.tx.Repos = &TxReposMock{
		orders:     f.orders,
		orderItems: f.items,
		products:   f.products,
	}
	f.uc = usecase.NewOrderUsecase(f.tx)
	return f
}

// 明細の名前と価格は今の商品マスタから引く
func TestOrderUsecase_Detail_ResolvesProductNameAndPrice(t *testing.T) {
	f := newOrderFixture()

	f.tx.On("WithinTx", mock.Anything).Return(nil)
	f.orders.On("FindByID", mock.Anything, int64(42)).Return(model.Order{
		ID: 42, UserID: 1, Status: model.OrderStatusPending, Total: 100,
	}, nil)
	f.items.On("ListByOrderID", mock.Anything, int64(42)).Return([]model.OrderItem{
		{OrderID: 42, ProductID: 10, Quantity: 2},
	}, nil)
	f.products.On("FindByIDs", mock.Anything, []int64{10}).Return([]model.Product{
		{ID: 10, Name: "Hoodie", Price: 50, IsActive: true},
	}, nil)

	out, err := f.uc.GetMyOrderDetail(context.Background(), 1, 42)
	assert.NoError(t, err)
	assert.Equal(t, "Hoodie", out.Items[0].Name)
	assert.Equal(t, float64(50), out.Items[0].Price)
}

// 商品が消されていてもエラーにはせず、名前は空・価格は0
func TestOrderUsecase_Detail_MissingProduct_EmptyNameZeroPrice(t *testing.T) {
	f := newOrderFixture()

	f.tx.On("WithinTx", mock.Anything).Return(nil)
	f.orders.On("FindByID", mock.Anything, int64(42)).Return(model.Order{ID: 42, UserID: 1}, nil)
	f.items.On("ListByOrderID", mock.Anything, int64(42)).Return([]model.OrderItem{
		{OrderID: 42, ProductID: 10, Quantity: 2},
	}, nil)
	f.products.On("FindByIDs", mock.Anything, []int64{10}).Return([]model.Product{}, nil)

	out, err := f.uc.GetMyOrderDetail(context.Background(), 1, 42)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(out.Items))
	assert.Equal(t, "", out.Items[0].Name)
	assert.Equal(t, float64(0), out.Items[0].Price)
	assert.Equal(t, int64(2), out.Items[0].Quantity)
}

// 他人の注文は「存在しない扱い」
func TestOrderUsecase_Detail_ForeignOrder_NotFound(t *testing.T) {
	f := newOrderFixture()

	f.tx.On("WithinTx", mock.Anything).Return(nil)
	f.orders.On("FindByID", mock.Anything, int64(42)).Return(model.Order{ID: 42, UserID: 2}, nil)

	_, err := f.uc.GetMyOrderDetail(context.Background(), 1, 42)
	assertErrContains(t, err, "not found")

	f.items.AssertNotCalled(t, "ListByOrderID", mock.Anything, mock.Anything)
}

func TestOrderUsecase_List_ReturnsOrders(t *testing.T) {
	f := newOrderFixture()

	f.tx.On("WithinTx", mock.Anything).Return(nil)
	f.orders.On("ListByUserID", mock.Anything, int64(1), 1, 50).Return([]model.Order{
		{ID: 42, UserID: 1, Status: model.OrderStatusPending},
	}, int64(1), nil)
	f.items.On("ListByOrderID", mock.Anything, int64(42)).Return([]model.OrderItem{}, nil)
	f.products.On("FindByIDs", mock.Anything, mock.Anything).Return([]model.Product{}, nil)

	outs, err := f.uc.ListMyOrders(context.Background(), 1)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(outs))
	assert.Equal(t, "pending", outs[0].Status)
}

func TestOrderUsecase_List_Unauthorized(t *testing.T) {
	f := newOrderFixture()

	_, err := f.uc.ListMyOrders(context.Background(), 0)
	assertErrContains(t, err, "unauthorized")
}
