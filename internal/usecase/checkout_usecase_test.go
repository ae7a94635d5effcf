package usecase_test

import (
	"context"
	"errors"
	"testing"

	"app/internal/domain/model"
	"app/internal/payment"
	repo "app/internal/repository"
	"app/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type checkoutFixture struct {
	uc       *usecase.CheckoutUsecase
	tx       *TxManagerMock
	carts    *CartRepoMock
	items    *CartItemRepoMock
	products *ProductRepoMock
	coupons  *CouponRepoMock
	gateway  *GatewayMock
	jobs     *WebhookJobRepoMock
	mailer   *MailerMock

	txOrders     *OrderRepoMock
	txOrderItems *OrderItemRepoMock
	txCarts      *CartRepoMock
	txItems      *CartItemRepoMock
	txInventory  *InventoryRepoMock
	txProducts   *ProductRepoMock
	txCoupons    *CouponRepoMock
}

func newCheckoutFixture() *checkoutFixture {
	f := &checkoutFixture{
		tx:       new(TxManagerMock),
		carts:    new(CartRepoMock),
		items:    new(CartItemRepoMock),
		products: new(ProductRepoMock),
		coupons:  new(CouponRepoMock),
		gateway:  new(GatewayMock),
		jobs:     new(WebhookJobRepoMock),
		mailer:   new(MailerMock),

		txOrders:     new(OrderRepoMock),
		txOrderItems: new(OrderItemRepoMock),
		txCarts:      new(CartRepoMock),
		txItems:      new(CartItemRepoMock),
		txInventory:  new(InventoryRepoMock),
		txProducts:   new(ProductRepoMock),
		txCoupons:    new(CouponRepoMock),
	}

	f.tx.Repos = &TxReposMock{
		orders:     f.txOrders,
		orderItems: f.txOrderItems,
		carts:      f.txCarts,
		cartItems:  f.txItems,
		inventory:  f.txInventory,
		products:   f.txProducts,
		coupons:    f.txCoupons,
	}

	couponUC := usecase.NewCouponUsecase(f.coupons, new(AuditRepoMock))
	f.uc = usecase.NewCheckoutUsecase(f.tx, f.carts, f.items, f.products, couponUC, f.gateway, f.jobs, f.mailer)
	return f
}

func shipping() model.ShippingData {
	return model.ShippingData{Name: "Ana", Email: "ana@example.com"}
}

// =====================
// StartCheckout
// =====================

func TestCheckout_Start_EmptyCart(t *testing.T) {
	f := newCheckoutFixture()

	f.carts.On("FindByUserID", mock.Anything, int64(1)).Return(model.Cart{}, repo.ErrNotFound)

	_, err := f.uc.StartCheckout(context.Background(), 1, usecase.StartCheckoutInput{Shipping: shipping()})
	assertErrContains(t, err, "cart empty")
}

func TestCheckout_Start_MissingShippingName(t *testing.T) {
	f := newCheckoutFixture()

	_, err := f.uc.StartCheckout(context.Background(), 1, usecase.StartCheckoutInput{
		Shipping: model.ShippingData{Email: "ana@example.com"},
	})
	assertErrContains(t, err, "shipping name required")
}

func TestCheckout_Start_ReturnsRedirectURL(t *testing.T) {
	f := newCheckoutFixture()

	f.carts.On("FindByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 7}, nil)
	f.items.On("ListByCartID", mock.Anything, int64(7)).Return([]model.CartItem{
		{CartID: 7, ProductID: 10, Quantity: 2},
	}, nil)
	f.products.On("FindByID", mock.Anything, int64(10)).Return(model.Product{
		ID: 10, Name: "Hoodie", Price: 50, Stock: 5, IsActive: true,
	}, nil)

	f.gateway.On("CreatePreference", mock.Anything, mock.MatchedBy(func(d payment.CheckoutData) bool {
		return d.UserID == 1 &&
			len(d.Lines) == 1 &&
			d.Lines[0].UnitPrice == 50 &&
			d.Lines[0].Quantity == 2 &&
			d.ExternalReference != ""
	})).Return("https://mp.example/init", nil)

	out, err := f.uc.StartCheckout(context.Background(), 1, usecase.StartCheckoutInput{Shipping: shipping()})
	assert.NoError(t, err)
	assert.Equal(t, "https://mp.example/init", out.RedirectURL)

	// 注文はまだ作らない
	f.txOrders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCheckout_Start_InsufficientStock(t *testing.T) {
	f := newCheckoutFixture()

	f.carts.On("FindByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 7}, nil)
	f.items.On("ListByCartID", mock.Anything, int64(7)).Return([]model.CartItem{
		{CartID: 7, ProductID: 10, Quantity: 9},
	}, nil)
	f.products.On("FindByID", mock.Anything, int64(10)).Return(model.Product{
		ID: 10, Name: "Hoodie", Price: 50, Stock: 3, IsActive: true,
	}, nil)

	_, err := f.uc.StartCheckout(context.Background(), 1, usecase.StartCheckoutInput{Shipping: shipping()})
	assertErrContains(t, err, "insufficient stock for Hoodie")
}

func TestCheckout_Start_WithCoupon_PassesDiscount(t *testing.T) {
	f := newCheckoutFixture()

	f.carts.On("FindByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 7}, nil)
	f.items.On("ListByCartID", mock.Anything, int64(7)).Return([]model.CartItem{
		{CartID: 7, ProductID: 10, Quantity: 2},
	}, nil)
	f.products.On("FindByID", mock.Anything, int64(10)).Return(model.Product{
		ID: 10, Name: "Hoodie", Price: 50, Stock: 5, IsActive: true,
	}, nil)

	f.coupons.On("FindByCode", mock.Anything, "SAVE10").Return(validCoupon(), nil)
	f.coupons.On("HasRedeemed", mock.Anything, int64(1), int64(1)).Return(false, nil)

	f.gateway.On("CreatePreference", mock.Anything, mock.MatchedBy(func(d payment.CheckoutData) bool {
		// 100の10%引き
		return d.CouponCode == "SAVE10" && d.Discount == 10
	})).Return("https://mp.example/init", nil)

	_, err := f.uc.StartCheckout(context.Background(), 1, usecase.StartCheckoutInput{
		Shipping:   shipping(),
		CouponCode: "SAVE10",
	})
	assert.NoError(t, err)

	f.gateway.AssertExpectations(t)
}

func TestCheckout_Start_GatewayError_BadGateway(t *testing.T) {
	f := newCheckoutFixture()

	f.carts.On("FindByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 7}, nil)
	f.items.On("ListByCartID", mock.Anything, int64(7)).Return([]model.CartItem{
		{CartID: 7, ProductID: 10, Quantity: 1},
	}, nil)
	f.products.On("FindByID", mock.Anything, int64(10)).Return(model.Product{
		ID: 10, Name: "Hoodie", Price: 50, Stock: 5, IsActive: true,
	}, nil)
	f.gateway.On("CreatePreference", mock.Anything, mock.Anything).Return("", errors.New("mp down"))

	_, err := f.uc.StartCheckout(context.Background(), 1, usecase.StartCheckoutInput{Shipping: shipping()})
	assertErrContains(t, err, "payment gateway error")
}

// =====================
// ProcessPayment（webhook確定）
// =====================

func approvedPayment(id string) payment.Payment {
	return payment.Payment{
		ID:     id,
		Status: payment.StatusApproved,
		Data: payment.CheckoutData{
			UserID:   1,
			Lines:    []payment.Line{{ProductID: 10, Name: "Hoodie", UnitPrice: 50, Quantity: 2}},
			Shipping: shipping(),
		},
	}
}

func TestCheckout_ProcessPayment_NotApproved_NoOp(t *testing.T) {
	f := newCheckoutFixture()

	p := approvedPayment("555")
	p.Status = "pending"
	f.gateway.On("GetPayment", mock.Anything, "555").Return(p, nil)

	err := f.uc.ProcessPayment(context.Background(), "555")
	assert.NoError(t, err)

	f.tx.AssertNotCalled(t, "WithinTx", mock.Anything)
}

func TestCheckout_ProcessPayment_Approved_CreatesOrder(t *testing.T) {
	f := newCheckoutFixture()

	f.gateway.On("GetPayment", mock.Anything, "555").Return(approvedPayment("555"), nil)
	f.tx.On("WithinTx", mock.Anything).Return(nil)

	f.txOrders.On("FindByPaymentID", mock.Anything, "555").Return(model.Order{}, false, nil)
	f.txProducts.On("FindByID", mock.Anything, int64(10)).Return(model.Product{
		ID: 10, Name: "Hoodie", Price: 50, Stock: 5, IsActive: true,
	}, nil)
	f.txInventory.On("DecreaseStockIfEnough", mock.Anything, int64(10), int64(2)).Return(true, nil)

	f.txOrders.On("Create", mock.Anything, mock.MatchedBy(func(o model.Order) bool {
		return o.UserID == 1 &&
			o.PaymentMethod == model.PaymentMethodMercadoPago &&
			o.PaymentID != nil && *o.PaymentID == "555" &&
			o.Status == model.OrderStatusPending &&
			o.Total == 100
	})).Return(int64(42), nil)
	f.txOrderItems.On("CreateBulk", mock.Anything, int64(42), mock.Anything).Return(nil)

	f.txCarts.On("FindByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 7}, nil)
	f.txCarts.On("Clear", mock.Anything, int64(7)).Return(nil)
	f.txCarts.On("Touch", mock.Anything, int64(7), mock.AnythingOfType("time.Time")).Return(nil)

	f.mailer.On("SendOrderConfirmation", mock.Anything, "ana@example.com", "Ana", int64(42), float64(100)).Return(nil)

	err := f.uc.ProcessPayment(context.Background(), "555")
	assert.NoError(t, err)

	f.txOrders.AssertExpectations(t)
	f.txInventory.AssertExpectations(t)
	f.mailer.AssertExpectations(t)
}

// 同じ支払いIDの再配送では2つ目の注文を作らない
func TestCheckout_ProcessPayment_Redelivery_Idempotent(t *testing.T) {
	f := newCheckoutFixture()

	f.gateway.On("GetPayment", mock.Anything, "555").Return(approvedPayment("555"), nil)
	f.tx.On("WithinTx", mock.Anything).Return(nil)

	pid := "555"
	f.txOrders.On("FindByPaymentID", mock.Anything, "555").Return(model.Order{ID: 42, PaymentID: &pid, Total: 100}, true, nil)

	err := f.uc.ProcessPayment(context.Background(), "555")
	assert.NoError(t, err)

	f.txOrders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.txInventory.AssertNotCalled(t, "DecreaseStockIfEnough", mock.Anything, mock.Anything, mock.Anything)
	//メールも再送しない
	f.mailer.AssertNotCalled(t, "SendOrderConfirmation", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// webhook経路ではカートが既に消えていても確定は成功する
func TestCheckout_ProcessPayment_NoCart_StillFinalizes(t *testing.T) {
	f := newCheckoutFixture()

	f.gateway.On("GetPayment", mock.Anything, "555").Return(approvedPayment("555"), nil)
	f.tx.On("WithinTx", mock.Anything).Return(nil)

	f.txOrders.On("FindByPaymentID", mock.Anything, "555").Return(model.Order{}, false, nil)
	f.txProducts.On("FindByID", mock.Anything, int64(10)).Return(model.Product{
		ID: 10, Name: "Hoodie", Price: 50, Stock: 5, IsActive: true,
	}, nil)
	f.txInventory.On("DecreaseStockIfEnough", mock.Anything, int64(10), int64(2)).Return(true, nil)
	f.txOrders.On("Create", mock.Anything, mock.Anything).Return(int64(42), nil)
	f.txOrderItems.On("CreateBulk", mock.Anything, int64(42), mock.Anything).Return(nil)
	f.txCarts.On("FindByUserID", mock.Anything, int64(1)).Return(model.Cart{}, repo.ErrNotFound)
	f.mailer.On("SendOrderConfirmation", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	err := f.uc.ProcessPayment(context.Background(), "555")
	assert.NoError(t, err)

	f.txCarts.AssertNotCalled(t, "Clear", mock.Anything, mock.Anything)
}

func TestCheckout_EnqueueRetry(t *testing.T) {
	f := newCheckoutFixture()

	f.jobs.On("Enqueue", mock.Anything, mock.MatchedBy(func(j model.WebhookJob) bool {
		return j.PaymentID == "555" &&
			j.Status == model.WebhookJobStatusPending &&
			j.Attempts == 1 &&
			j.LastError != ""
	})).Return(nil)

	f.uc.EnqueueRetry(context.Background(), "555", errors.New("db down"))

	f.jobs.AssertExpectations(t)
}

// =====================
// PlaceCashOrder
// =====================

func TestCheckout_Cash_Unauthorized(t *testing.T) {
	f := newCheckoutFixture()

	_, err := f.uc.PlaceCashOrder(context.Background(), 0, usecase.CashOrderInput{Shipping: shipping()})
	assertErrContains(t, err, "unauthorized")
}

func TestCheckout_Cash_EmptyCart(t *testing.T) {
	f := newCheckoutFixture()

	f.carts.On("FindByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 7}, nil)
	f.items.On("ListByCartID", mock.Anything, int64(7)).Return([]model.CartItem{}, nil)

	_, err := f.uc.PlaceCashOrder(context.Background(), 1, usecase.CashOrderInput{Shipping: shipping()})
	assertErrContains(t, err, "cart empty")
}

func TestCheckout_Cash_Success(t *testing.T) {
	f := newCheckoutFixture()

	f.carts.On("FindByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 7}, nil)
	f.items.On("ListByCartID", mock.Anything, int64(7)).Return([]model.CartItem{
		{CartID: 7, ProductID: 10, Quantity: 2},
	}, nil)

	f.tx.On("WithinTx", mock.Anything).Return(nil)
	f.txProducts.On("FindByID", mock.Anything, int64(10)).Return(model.Product{
		ID: 10, Name: "Hoodie", Price: 50, Stock: 5, IsActive: true,
	}, nil)
	f.txInventory.On("DecreaseStockIfEnough", mock.Anything, int64(10), int64(2)).Return(true, nil)

	f.txOrders.On("Create", mock.Anything, mock.MatchedBy(func(o model.Order) bool {
		return o.PaymentMethod == model.PaymentMethodCash &&
			o.PaymentID == nil &&
			o.Status == model.OrderStatusPending &&
			o.Total == 100
	})).Return(int64(43), nil)
	f.txOrderItems.On("CreateBulk", mock.Anything, int64(43), mock.Anything).Return(nil)

	f.txCarts.On("FindByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 7}, nil)
	f.txCarts.On("Clear", mock.Anything, int64(7)).Return(nil)
	f.txCarts.On("Touch", mock.Anything, int64(7), mock.AnythingOfType("time.Time")).Return(nil)

	f.mailer.On("SendOrderConfirmation", mock.Anything, "ana@example.com", "Ana", int64(43), float64(100)).Return(nil)

	out, err := f.uc.PlaceCashOrder(context.Background(), 1, usecase.CashOrderInput{Shipping: shipping()})
	assert.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, int64(43), out.OrderID)

	f.txCarts.AssertCalled(t, "Clear", mock.Anything, int64(7))
}

func TestCheckout_Cash_InsufficientStock_NamesProduct(t *testing.T) {
	f := newCheckoutFixture()

	f.carts.On("FindByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 7}, nil)
	f.items.On("ListByCartID", mock.Anything, int64(7)).Return([]model.CartItem{
		{CartID: 7, ProductID: 10, Quantity: 2},
	}, nil)

	f.tx.On("WithinTx", mock.Anything).Return(nil)
	f.txProducts.On("FindByID", mock.Anything, int64(10)).Return(model.Product{
		ID: 10, Name: "Hoodie", Price: 50, Stock: 5, IsActive: true,
	}, nil)
	f.txInventory.On("DecreaseStockIfEnough", mock.Anything, int64(10), int64(2)).Return(false, nil)

	_, err := f.uc.PlaceCashOrder(context.Background(), 1, usecase.CashOrderInput{Shipping: shipping()})
	assertErrContains(t, err, "insufficient stock for Hoodie")

	f.txOrders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

// クーポンつきの確定では使用が記録され、合計から引かれる
func TestCheckout_Cash_WithCoupon_RedeemsAndDiscounts(t *testing.T) {
	f := newCheckoutFixture()

	f.carts.On("FindByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 7}, nil)
	f.items.On("ListByCartID", mock.Anything, int64(7)).Return([]model.CartItem{
		{CartID: 7, ProductID: 10, Quantity: 2},
	}, nil)

	f.tx.On("WithinTx", mock.Anything).Return(nil)
	f.txProducts.On("FindByID", mock.Anything, int64(10)).Return(model.Product{
		ID: 10, Name: "Hoodie", Price: 50, Stock: 5, IsActive: true,
	}, nil)
	f.txInventory.On("DecreaseStockIfEnough", mock.Anything, int64(10), int64(2)).Return(true, nil)

	f.txCoupons.On("FindByCode", mock.Anything, "SAVE10").Return(validCoupon(), nil)
	f.txCoupons.On("RedeemIfAvailable", mock.Anything, int64(1), int64(1), mock.Anything).Return(true, nil)

	f.txOrders.On("Create", mock.Anything, mock.MatchedBy(func(o model.Order) bool {
		return o.Total == 90 && o.CouponID != nil && *o.CouponID == 1
	})).Return(int64(44), nil)
	f.txOrderItems.On("CreateBulk", mock.Anything, int64(44), mock.Anything).Return(nil)

	f.txCarts.On("FindByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 7}, nil)
	f.txCarts.On("Clear", mock.Anything, int64(7)).Return(nil)
	f.txCarts.On("Touch", mock.Anything, int64(7), mock.AnythingOfType("time.Time")).Return(nil)
	f.mailer.On("SendOrderConfirmation", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	out, err := f.uc.PlaceCashOrder(context.Background(), 1, usecase.CashOrderInput{
		Shipping:   shipping(),
		CouponCode: "SAVE10",
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(44), out.OrderID)

	f.txCoupons.AssertExpectations(t)
}

// クーポンが確定時に取り合いで敗れたら注文ごと失敗する
func TestCheckout_Cash_CouponRaceLost_Fails(t *testing.T) {
	f := newCheckoutFixture()

	f.carts.On("FindByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 7}, nil)
	f.items.On("ListByCartID", mock.Anything, int64(7)).Return([]model.CartItem{
		{CartID: 7, ProductID: 10, Quantity: 1},
	}, nil)

	f.tx.On("WithinTx", mock.Anything).Return(nil)
	f.txProducts.On("FindByID", mock.Anything, int64(10)).Return(model.Product{
		ID: 10, Name: "Hoodie", Price: 50, Stock: 5, IsActive: true,
	}, nil)
	f.txInventory.On("DecreaseStockIfEnough", mock.Anything, int64(10), int64(1)).Return(true, nil)

	f.txCoupons.On("FindByCode", mock.Anything, "SAVE10").Return(validCoupon(), nil)
	f.txCoupons.On("RedeemIfAvailable", mock.Anything, int64(1), int64(1), mock.Anything).Return(false, nil)

	_, err := f.uc.PlaceCashOrder(context.Background(), 1, usecase.CashOrderInput{
		Shipping:   shipping(),
		CouponCode: "SAVE10",
	})
	assertErrContains(t, err, "coupon no longer available")

	f.txOrders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}
