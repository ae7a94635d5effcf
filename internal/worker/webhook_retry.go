package worker

import (
	"context"
	"log/slog"
	"time"

	repo "app/internal/repository"
	"app/internal/usecase"
)

const (
	maxAttempts = 8
	batchSize   = 10
	baseDelay   = time.Minute
)

// WebhookRetryWorker は失敗したwebhook後処理の再実行ループ。
// ゲートウェイには常に200を返しているので、ここが唯一のリカバリ経路。
type WebhookRetryWorker struct {
	jobRepo  repo.WebhookJobRepository
	checkout *usecase.CheckoutUsecase
	interval time.Duration
}

func NewWebhookRetryWorker(jobRepo repo.WebhookJobRepository, checkout *usecase.CheckoutUsecase, interval time.Duration) *WebhookRetryWorker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &WebhookRetryWorker{jobRepo: jobRepo, checkout: checkout, interval: interval}
}

// Run はctxが閉じるまで回り続ける。goroutineで呼ぶ。
func (w *WebhookRetryWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *WebhookRetryWorker) tick(ctx context.Context) {
	now := time.Now()

	jobs, err := w.jobRepo.ListDue(ctx, now, batchSize)
	if err != nil {
		slog.Error("failed to list webhook retry jobs", "error", err)
		return
	}

	for _, job := range jobs {
		if ctx.Err() != nil {
			return
		}

		err := w.checkout.ProcessPayment(ctx, job.PaymentID)
		if err == nil {
			if err := w.jobRepo.MarkDone(ctx, job.ID); err != nil {
				slog.Error("failed to mark webhook job done", "job_id", job.ID, "error", err)
			}
			slog.Info("webhook retry succeeded", "job_id", job.ID, "payment_id", job.PaymentID)
			continue
		}

		attempts := job.Attempts + 1
		if attempts >= maxAttempts {
			//打ち止め。あとは運用で拾う
			if err := w.jobRepo.MarkFailed(ctx, job.ID, attempts, err.Error()); err != nil {
				slog.Error("failed to mark webhook job failed", "job_id", job.ID, "error", err)
			}
			slog.Error("webhook retry gave up", "job_id", job.ID, "payment_id", job.PaymentID, "attempts", attempts)
			continue
		}

		//2倍ずつ伸ばす（上限1時間）
		delay := baseDelay << job.Attempts
		if delay > time.Hour {
			delay = time.Hour
		}
		if err := w.jobRepo.MarkRetry(ctx, job.ID, attempts, err.Error(), now.Add(delay)); err != nil {
			slog.Error("failed to reschedule webhook job", "job_id", job.ID, "error", err)
		}
		slog.Warn("webhook retry failed, rescheduled", "job_id", job.ID, "payment_id", job.PaymentID, "attempts", attempts, "error", err)
	}
}
