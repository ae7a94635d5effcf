package repository

import (
	"context"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"gorm.io/gorm"
)

type WebhookJobGormRepository struct {
	db *gorm.DB
}

func NewWebhookJobGormRepository(db *gorm.DB) *WebhookJobGormRepository {
	return &WebhookJobGormRepository{db: db}
}

func (r *WebhookJobGormRepository) Enqueue(ctx context.Context, job model.WebhookJob) error {
	if err := r.db.WithContext(ctx).Create(&job).Error; err != nil {
		return err
	}
	return nil
}

// next_retry_atが過ぎたPENDINGを古い順に取る
func (r *WebhookJobGormRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]model.WebhookJob, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var jobs []model.WebhookJob
	err := r.db.WithContext(ctx).
		Where("status = ? AND next_retry_at <= ?", model.WebhookJobStatusPending, now).
		Order("id asc").
		Limit(limit).
		Find(&jobs).Error
	if err != nil {
		return []model.WebhookJob{}, err
	}
	return jobs, nil
}

func (r *WebhookJobGormRepository) MarkDone(ctx context.Context, jobID int64) error {
	return r.updateStatus(ctx, jobID, map[string]interface{}{
		"status": model.WebhookJobStatusDone,
	})
}

func (r *WebhookJobGormRepository) MarkRetry(ctx context.Context, jobID int64, attempts int, lastError string, nextRetryAt time.Time) error {
	return r.updateStatus(ctx, jobID, map[string]interface{}{
		"status":        model.WebhookJobStatusPending,
		"attempts":      attempts,
		"last_error":    lastError,
		"next_retry_at": nextRetryAt,
	})
}

func (r *WebhookJobGormRepository) MarkFailed(ctx context.Context, jobID int64, attempts int, lastError string) error {
	return r.updateStatus(ctx, jobID, map[string]interface{}{
		"status":     model.WebhookJobStatusFailed,
		"attempts":   attempts,
		"last_error": lastError,
	})
}

func (r *WebhookJobGormRepository) updateStatus(ctx context.Context, jobID int64, values map[string]interface{}) error {
	res := r.db.WithContext(ctx).
		Model(&model.WebhookJob{}).
		Where("id = ?", jobID).
		Updates(values)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
