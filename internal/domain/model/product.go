package model

import (
	"math"
	"time"

	"gorm.io/gorm"
)

type Product struct {
	ID          int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string `gorm:"type:varchar(255);not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`

	//税込価格（小数2桁）
	Price float64 `gorm:"not null" json:"price"`

	//商品単体の割引率（%）。0なら割引なし
	Discount int64 `gorm:"not null;default:0" json:"discount"`

	//商品画像のURL一覧
	Images []string `gorm:"serializer:json;type:jsonb" json:"images"`

	Stock      int64  `gorm:"not null" json:"stock"`
	IsActive   bool   `gorm:"not null;default:false" json:"is_active"`
	IsFeatured bool   `gorm:"not null;default:false" json:"is_featured"`
	CategoryID *int64 `gorm:"index" json:"category_id"`

	CreatedAt time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// 割引率を反映した販売単価（小数2桁に丸める）
func (p Product) UnitPrice() float64 {
	price := p.Price * (1 - float64(p.Discount)/100)
	return math.Round(price*100) / 100
}
