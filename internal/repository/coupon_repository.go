package repository

import (
	"context"

	"app/internal/domain/model"
)

type CouponRepository interface {
	//コードは保存値そのままで照合する
	FindByCode(ctx context.Context, code string) (model.Coupon, error)

	//このユーザーが使用済みか
	HasRedeemed(ctx context.Context, couponID int64, userID int64) (bool, error)

	// used_count < max_uses のときだけ使用を記録する。
	// 上限到達・同一ユーザーの二重使用は false
	RedeemIfAvailable(ctx context.Context, couponID int64, userID int64, orderID *int64) (bool, error)

	Create(ctx context.Context, c model.Coupon) (model.Coupon, error)
	List(ctx context.Context) ([]model.Coupon, error)
}
