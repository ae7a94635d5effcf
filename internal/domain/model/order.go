package model

import "time"

type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "pending"
	OrderStatusApproved        OrderStatus = "approved"
	OrderStatusRejected        OrderStatus = "rejected"
	OrderStatusCancelled       OrderStatus = "cancelled"
	OrderStatusPendingShipping OrderStatus = "pending_shipping"
	OrderStatusShipping        OrderStatus = "shipping"
	OrderStatusDelivered       OrderStatus = "delivered"
)

type PaymentMethod string

const (
	PaymentMethodMercadoPago PaymentMethod = "mercadopago"
	PaymentMethodCash        PaymentMethod = "cash"
)

// 注文ごとの配送先情報（住所帳は持たない）。
type ShippingData struct {
	Name       string `gorm:"type:varchar(255);not null" json:"name"`
	Email      string `gorm:"type:varchar(255);not null" json:"email"`
	Phone      string `gorm:"type:varchar(30)" json:"phone"`
	NationalID string `gorm:"type:varchar(30)" json:"national_id"`

	//学校ストア向けのコース・組
	Course string `gorm:"type:varchar(50)" json:"course"`
}

type Order struct {
	ID     int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID int64 `gorm:"not null;index" json:"user_id"`

	PaymentMethod PaymentMethod `gorm:"type:varchar(20);not null" json:"payment_method"`

	//決済ゲートウェイの支払いID（mercadopagoのみ）。
	//同じ支払いで注文が二重に作られないようにuniqueにする。
	PaymentID *string `gorm:"type:varchar(64);uniqueIndex" json:"payment_id,omitempty"`

	Status   OrderStatus  `gorm:"type:varchar(20);not null;index" json:"status"`
	Total    float64      `gorm:"not null" json:"total"`
	CouponID *int64       `gorm:"index" json:"coupon_id,omitempty"`
	Shipping ShippingData `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
