package repository

import (
	"context"
	"time"

	"app/internal/domain/model"
)

type CartRepository interface {
	GetOrCreateByUserID(ctx context.Context, userID int64) (model.Cart, error)
	FindByUserID(ctx context.Context, userID int64) (model.Cart, error)

	//明細を全削除（カート自体は残す）
	Clear(ctx context.Context, cartID int64) error

	//updated_atだけ進める
	Touch(ctx context.Context, cartID int64, now time.Time) error
}
