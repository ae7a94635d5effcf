package usecase

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"app/internal/domain/model"
	"app/internal/payment"
	repo "app/internal/repository"

	"github.com/google/uuid"
)

// 注文確認メールの送り口。失敗してもログだけ残して注文は成立させる。
type Mailer interface {
	SendOrderConfirmation(ctx context.Context, to string, name string, orderID int64, total float64) error
}

// CheckoutUsecase は注文確定の入口。
// ゲートウェイ決済（webhookで確定）と現金（同期確定）の2経路がある。
// どちらも確定処理は1トランザクションで行う：
// 在庫減算・クーポン使用・注文作成・カートクリアは全部成功か全部なしか。
type CheckoutUsecase struct {
	tx           repo.TransactionManager
	cartRepo     repo.CartRepository
	cartItemRepo repo.CartItemRepository
	productRepo  repo.ProductRepository
	couponUC     *CouponUsecase
	gateway      payment.Gateway
	jobRepo      repo.WebhookJobRepository
	mailer       Mailer
}

func NewCheckoutUsecase(
	tx repo.TransactionManager,
	cartRepo repo.CartRepository,
	cartItemRepo repo.CartItemRepository,
	productRepo repo.ProductRepository,
	couponUC *CouponUsecase,
	gateway payment.Gateway,
	jobRepo repo.WebhookJobRepository,
	mailer Mailer,
) *CheckoutUsecase {
	return &CheckoutUsecase{
		tx:           tx,
		cartRepo:     cartRepo,
		cartItemRepo: cartItemRepo,
		productRepo:  productRepo,
		couponUC:     couponUC,
		gateway:      gateway,
		jobRepo:      jobRepo,
		mailer:       mailer,
	}
}

type StartCheckoutInput struct {
	Shipping   model.ShippingData
	CouponCode string
}

type StartCheckoutOutput struct {
	RedirectURL string `json:"redirect_url"`
}

type CashOrderInput struct {
	Shipping   model.ShippingData
	CouponCode string
}

type CashOrderOutput struct {
	Success bool  `json:"success"`
	OrderID int64 `json:"order_id"`
}

func validateShipping(s model.ShippingData) error {
	if strings.TrimSpace(s.Name) == "" {
		return NewHTTPError(http.StatusBadRequest, "shipping name required")
	}
	if strings.TrimSpace(s.Email) == "" {
		return NewHTTPError(http.StatusBadRequest, "shipping email required")
	}
	return nil
}

// StartCheckout はゲートウェイ決済の開始。
// カートを検証してpreferenceを作り、リダイレクト先URLを返す。
// 注文はまだ作らない（webhookで作る）。
func (u *CheckoutUsecase) StartCheckout(ctx context.Context, userID int64, in StartCheckoutInput) (StartCheckoutOutput, error) {
	if userID <= 0 {
		return StartCheckoutOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if err := validateShipping(in.Shipping); err != nil {
		return StartCheckoutOutput{}, err
	}

	cart, err := u.cartRepo.FindByUserID(ctx, userID)
	if err == repo.ErrNotFound {
		return StartCheckoutOutput{}, NewHTTPError(http.StatusBadRequest, "cart empty")
	}
	if err != nil {
		return StartCheckoutOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	items, err := u.cartItemRepo.ListByCartID(ctx, cart.ID)
	if err != nil {
		return StartCheckoutOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if len(items) == 0 {
		return StartCheckoutOutput{}, NewHTTPError(http.StatusBadRequest, "cart empty")
	}

	//この時点の在庫を確認（確定時にもう一度チェックする）
	lines := make([]payment.Line, 0, len(items))
	var subtotal float64
	for _, it := range items {
		p, err := u.productRepo.FindByID(ctx, it.ProductID)
		if err == repo.ErrNotFound {
			return StartCheckoutOutput{}, NewHTTPError(http.StatusBadRequest, "invalid product")
		}
		if err != nil {
			return StartCheckoutOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if !p.IsActive {
			return StartCheckoutOutput{}, NewHTTPError(http.StatusBadRequest, "invalid product")
		}
		if it.Quantity > p.Stock {
			return StartCheckoutOutput{}, NewHTTPError(http.StatusBadRequest, "insufficient stock for "+p.Name)
		}

		unit := p.UnitPrice()
		lines = append(lines, payment.Line{
			ProductID: p.ID,
			Name:      p.Name,
			UnitPrice: unit,
			Quantity:  it.Quantity,
		})
		subtotal += unit * float64(it.Quantity)
	}
	subtotal = round2(subtotal)

	//クーポンはプレビューだけ。使用の記録はwebhook側で行う
	var discount float64
	couponCode := strings.TrimSpace(in.CouponCode)
	if couponCode != "" {
		out, err := u.couponUC.ApplyCoupon(ctx, userID, couponCode, subtotal)
		if err != nil {
			return StartCheckoutOutput{}, err
		}
		discount = out.Discount
	}

	url, err := u.gateway.CreatePreference(ctx, payment.CheckoutData{
		UserID:            userID,
		Lines:             lines,
		Shipping:          in.Shipping,
		CouponCode:        couponCode,
		Discount:          discount,
		ExternalReference: uuid.NewString(),
	})
	if err != nil {
		return StartCheckoutOutput{}, NewHTTPError(http.StatusBadGateway, "payment gateway error")
	}

	return StartCheckoutOutput{RedirectURL: url}, nil
}

// ProcessPayment はwebhook（と再実行ワーカー）から呼ばれる。
// 支払いをゲートウェイから取り直し、承認済みなら注文を確定する。
// 同じ支払いIDで2回呼ばれても注文は1つしか作らない。
func (u *CheckoutUsecase) ProcessPayment(ctx context.Context, paymentID string) error {
	p, err := u.gateway.GetPayment(ctx, paymentID)
	if err != nil {
		return err
	}

	if p.Status != payment.StatusApproved {
		slog.Info("payment not approved, skipping", "payment_id", paymentID, "status", p.Status)
		return nil
	}

	lines := make([]checkoutLine, 0, len(p.Data.Lines))
	for _, l := range p.Data.Lines {
		lines = append(lines, checkoutLine{ProductID: l.ProductID, Quantity: l.Quantity})
	}

	result, err := u.finalizeOrder(ctx, p.Data.UserID, lines, p.Data.Shipping, p.Data.CouponCode, &p.ID, model.PaymentMethodMercadoPago)
	if err != nil {
		return err
	}

	if result.Created {
		u.sendConfirmation(ctx, p.Data.Shipping, result.OrderID, result.Total)
	}
	return nil
}

// EnqueueRetry はwebhook後処理の失敗を再実行キューに積む。
// ゲートウェイには常に200を返すので、リトライは自前でやる。
func (u *CheckoutUsecase) EnqueueRetry(ctx context.Context, paymentID string, cause error) {
	job := model.WebhookJob{
		PaymentID:   paymentID,
		Status:      model.WebhookJobStatusPending,
		Attempts:    1,
		LastError:   cause.Error(),
		NextRetryAt: time.Now().Add(time.Minute),
	}
	if err := u.jobRepo.Enqueue(ctx, job); err != nil {
		slog.Error("failed to enqueue webhook retry", "payment_id", paymentID, "error", err)
	}
}

// PlaceCashOrder は現金払いの同期注文。
func (u *CheckoutUsecase) PlaceCashOrder(ctx context.Context, userID int64, in CashOrderInput) (CashOrderOutput, error) {
	if userID <= 0 {
		return CashOrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if err := validateShipping(in.Shipping); err != nil {
		return CashOrderOutput{}, err
	}

	cart, err := u.cartRepo.FindByUserID(ctx, userID)
	if err == repo.ErrNotFound {
		return CashOrderOutput{}, NewHTTPError(http.StatusBadRequest, "cart empty")
	}
	if err != nil {
		return CashOrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	items, err := u.cartItemRepo.ListByCartID(ctx, cart.ID)
	if err != nil {
		return CashOrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if len(items) == 0 {
		return CashOrderOutput{}, NewHTTPError(http.StatusBadRequest, "cart empty")
	}

	lines := make([]checkoutLine, 0, len(items))
	for _, it := range items {
		lines = append(lines, checkoutLine{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	result, err := u.finalizeOrder(ctx, userID, lines, in.Shipping, strings.TrimSpace(in.CouponCode), nil, model.PaymentMethodCash)
	if err != nil {
		return CashOrderOutput{}, err
	}

	if result.Created {
		u.sendConfirmation(ctx, in.Shipping, result.OrderID, result.Total)
	}

	return CashOrderOutput{Success: true, OrderID: result.OrderID}, nil
}

type checkoutLine struct {
	ProductID int64
	Quantity  int64
}

type finalizeResult struct {
	OrderID int64
	Total   float64
	Created bool
}

// finalizeOrder は注文確定の本体。全部1トランザクション：
// 在庫の条件付き減算 → クーポン使用の記録 → 注文＋明細作成 → カートクリア。
// どこかで失敗したら全部巻き戻る。
func (u *CheckoutUsecase) finalizeOrder(
	ctx context.Context,
	userID int64,
	lines []checkoutLine,
	shipping model.ShippingData,
	couponCode string,
	paymentID *string,
	method model.PaymentMethod,
) (finalizeResult, error) {
	if userID <= 0 {
		return finalizeResult{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if len(lines) == 0 {
		return finalizeResult{}, NewHTTPError(http.StatusBadRequest, "cart empty")
	}

	var result finalizeResult

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		//webhook再送なら既存の注文を返す
		if paymentID != nil {
			existing, found, err := r.Orders().FindByPaymentID(ctx, *paymentID)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			if found {
				result = finalizeResult{OrderID: existing.ID, Total: existing.Total, Created: false}
				return nil
			}
		}

		//在庫を確定時に再チェックして減らす
		orderItems := make([]model.OrderItem, 0, len(lines))
		var subtotal float64

		for _, line := range lines {
			p, err := r.Products().FindByID(ctx, line.ProductID)
			if err == repo.ErrNotFound {
				return NewHTTPError(http.StatusBadRequest, "invalid product")
			}
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			if !p.IsActive {
				return NewHTTPError(http.StatusBadRequest, "invalid product")
			}

			//在庫減算（足りないなら false）
			ok, err := r.Inventory().DecreaseStockIfEnough(ctx, line.ProductID, line.Quantity)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			if !ok {
				return NewHTTPError(http.StatusBadRequest, "insufficient stock for "+p.Name)
			}

			orderItems = append(orderItems, model.OrderItem{
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
			})

			subtotal += p.UnitPrice() * float64(line.Quantity)
		}
		subtotal = round2(subtotal)

		//クーポン使用の記録（割引のプレビューとは別の書き込み）
		var couponID *int64
		var discount float64
		if couponCode != "" {
			c, err := r.Coupons().FindByCode(ctx, couponCode)
			if err == repo.ErrNotFound {
				return NewHTTPError(http.StatusBadRequest, "coupon not found")
			}
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}

			ok, err := r.Coupons().RedeemIfAvailable(ctx, c.ID, userID, nil)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			if !ok {
				return NewHTTPError(http.StatusBadRequest, "coupon no longer available")
			}

			couponID = &c.ID
			discount = couponDiscount(c, subtotal)
		}

		//fixedクーポンは小計を超えることがある（上限は掛けない）
		total := round2(subtotal - discount)

		now := time.Now()
		orderID, err := r.Orders().Create(ctx, model.Order{
			UserID:        userID,
			PaymentMethod: method,
			PaymentID:     paymentID,
			Status:        model.OrderStatusPending,
			Total:         total,
			CouponID:      couponID,
			Shipping:      shipping,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//注文明細一括作成
		if err := r.OrderItems().CreateBulk(ctx, orderID, orderItems); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//カートをクリア（カート自体は消さない）。
		//webhook経路ではカートが既に無いこともある
		cart, err := r.Carts().FindByUserID(ctx, userID)
		if err == nil {
			if err := r.Carts().Clear(ctx, cart.ID); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			if err := r.Carts().Touch(ctx, cart.ID, now); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
		} else if err != repo.ErrNotFound {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		result = finalizeResult{OrderID: orderID, Total: total, Created: true}
		return nil
	})

	if err != nil {
		return finalizeResult{}, err
	}
	return result, nil
}

// 確認メールはベストエフォート。失敗はログだけ
func (u *CheckoutUsecase) sendConfirmation(ctx context.Context, shipping model.ShippingData, orderID int64, total float64) {
	if u.mailer == nil {
		return
	}
	if err := u.mailer.SendOrderConfirmation(ctx, shipping.Email, shipping.Name, orderID, total); err != nil {
		slog.Error("failed to send order confirmation", "order_id", orderID, "error", err)
	}
}
