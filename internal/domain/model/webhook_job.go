package model

import "time"

type WebhookJobStatus string

const (
	WebhookJobStatusPending WebhookJobStatus = "PENDING"
	WebhookJobStatusDone    WebhookJobStatus = "DONE"
	WebhookJobStatusFailed  WebhookJobStatus = "FAILED"
)

// Webhookの後処理に失敗したときの再実行キュー。
// ゲートウェイには常に200を返すので、失敗はここに積んで自前でリトライする。
type WebhookJob struct {
	ID          int64            `gorm:"primaryKey;autoIncrement" json:"id"`
	PaymentID   string           `gorm:"type:varchar(64);not null;index" json:"payment_id"`
	Status      WebhookJobStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	Attempts    int              `gorm:"not null;default:0" json:"attempts"`
	LastError   string           `gorm:"type:text" json:"last_error"`
	NextRetryAt time.Time        `gorm:"not null;index" json:"next_retry_at"`
	CreatedAt   time.Time        `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time        `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
