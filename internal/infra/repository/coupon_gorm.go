package repository

import (
	"context"
	"errors"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"gorm.io/gorm"
)

type CouponGormRepository struct {
	db *gorm.DB
}

func NewCouponGormRepository(db *gorm.DB) *CouponGormRepository {
	return &CouponGormRepository{db: db}
}

// コードは保存値そのままで照合（正規化は作成側の責任）
func (r *CouponGormRepository) FindByCode(ctx context.Context, code string) (model.Coupon, error) {
	var c model.Coupon
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Coupon{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Coupon{}, err
	}
	return c, nil
}

func (r *CouponGormRepository) HasRedeemed(ctx context.Context, couponID int64, userID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.CouponRedemption{}).
		Where("coupon_id = ? AND user_id = ?", couponID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// used_count < max_uses のときだけ使用を記録する。
// 条件付きUPDATE＋unique制約で、同時リクエストの使い過ぎを防ぐ。
func (r *CouponGormRepository) RedeemIfAvailable(ctx context.Context, couponID int64, userID int64, orderID *int64) (bool, error) {
	redeemed := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		//同一ユーザーの使用済みチェック
		var used int64
		if err := tx.Model(&model.CouponRedemption{}).
			Where("coupon_id = ? AND user_id = ?", couponID, userID).
			Count(&used).Error; err != nil {
			return err
		}
		if used > 0 {
			return nil
		}

		res := tx.Model(&model.Coupon{}).
			Where("id = ? AND used_count < max_uses", couponID).
			Update("used_count", gorm.Expr("used_count + 1"))

		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			//上限到達
			return nil
		}

		redemption := model.CouponRedemption{
			CouponID: couponID,
			UserID:   userID,
			OrderID:  orderID,
		}
		if err := tx.Create(&redemption).Error; err != nil {
			//同一ユーザーの二重使用はunique制約で弾かれる
			return err
		}

		redeemed = true
		return nil
	})

	if err != nil {
		return false, err
	}
	return redeemed, nil
}

func (r *CouponGormRepository) Create(ctx context.Context, c model.Coupon) (model.Coupon, error) {
	if err := r.db.WithContext(ctx).Create(&c).Error; err != nil {
		return model.Coupon{}, err
	}
	return c, nil
}

func (r *CouponGormRepository) List(ctx context.Context) ([]model.Coupon, error) {
	var coupons []model.Coupon
	if err := r.db.WithContext(ctx).Order("id desc").Find(&coupons).Error; err != nil {
		return []model.Coupon{}, err
	}
	return coupons, nil
}
