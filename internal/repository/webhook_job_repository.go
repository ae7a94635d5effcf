package repository

import (
	"context"
	"time"

	"app/internal/domain/model"
)

// Webhook後処理の再実行キュー。
type WebhookJobRepository interface {
	Enqueue(ctx context.Context, job model.WebhookJob) error

	//next_retry_atが過ぎたPENDINGを古い順に取る
	ListDue(ctx context.Context, now time.Time, limit int) ([]model.WebhookJob, error)

	MarkDone(ctx context.Context, jobID int64) error
	MarkRetry(ctx context.Context, jobID int64, attempts int, lastError string, nextRetryAt time.Time) error
	MarkFailed(ctx context.Context, jobID int64, attempts int, lastError string) error
}
