package payment

import (
	"context"

	"app/internal/domain/model"
)

// ゲートウェイ側の支払いステータス。
const StatusApproved = "approved"

// チェックアウト1行分（金額はプレビュー時点の販売単価）。
type Line struct {
	ProductID int64   `json:"product_id"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unit_price"`
	Quantity  int64   `json:"quantity"`
}

// ゲートウェイに渡すチェックアウト情報。
// 注文はwebhook到着時に作るので、組み立てに必要な情報を
// metadataで往復させる。
type CheckoutData struct {
	UserID            int64              `json:"user_id"`
	Lines             []Line             `json:"lines"`
	Shipping          model.ShippingData `json:"shipping"`
	CouponCode        string             `json:"coupon_code,omitempty"`
	Discount          float64            `json:"discount,omitempty"`
	ExternalReference string             `json:"external_reference"`
}

// ゲートウェイから取得した支払い。
type Payment struct {
	ID     string
	Status string
	Data   CheckoutData
}

type Gateway interface {
	// リダイレクト先URLを返す。この時点では注文を作らない
	CreatePreference(ctx context.Context, data CheckoutData) (string, error)

	// 支払いIDから支払いとチェックアウト情報を取り直す
	GetPayment(ctx context.Context, paymentID string) (Payment, error)
}
