package repository

import (
	"context"

	"app/internal/domain/model"
)

type CartItemRepository interface {
	ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error)

	// 同一商品は数量をプラス
	UpsertAdd(ctx context.Context, cartID int64, productID int64, addQty int64) error

	// 数量をそのまま上書き。明細が無ければErrNotFound
	SetQuantity(ctx context.Context, cartID int64, productID int64, qty int64) error

	// 冪等削除。明細が無くてもエラーにしない
	DeleteByProduct(ctx context.Context, cartID int64, productID int64) error
}
