package model

import "time"

type CouponType string

const (
	//小計に対する割引率（%）
	CouponTypePercentage CouponType = "percentage"

	//固定額の割引
	CouponTypeFixed CouponType = "fixed"
)

// クーポン本体。
// コードは作成時に大文字へ正規化する（照合は保存値そのまま）。
type Coupon struct {
	ID        int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Code      string     `gorm:"type:varchar(50);not null;uniqueIndex" json:"code"`
	Type      CouponType `gorm:"type:varchar(20);not null" json:"type"`
	Value     float64    `gorm:"not null" json:"value"`
	MaxUses   int64      `gorm:"not null" json:"max_uses"`
	UsedCount int64      `gorm:"not null;default:0" json:"used_count"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	IsActive  bool       `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time  `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// クーポンを使ったユーザーの記録。
// 同じユーザーは同じクーポンを1回だけ使える。
type CouponRedemption struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CouponID  int64     `gorm:"not null;index;uniqueIndex:idx_coupon_redemptions_coupon_user" json:"coupon_id"`
	UserID    int64     `gorm:"not null;index;uniqueIndex:idx_coupon_redemptions_coupon_user" json:"user_id"`
	OrderID   *int64    `gorm:"index" json:"order_id"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}
