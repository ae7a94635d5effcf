package usecase

import (
	"context"
	"net/http"
	"strings"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"
)

type CouponUsecase struct {
	couponRepo repo.CouponRepository
	auditRepo  repo.AuditLogRepository
}

func NewCouponUsecase(couponRepo repo.CouponRepository, auditRepo repo.AuditLogRepository) *CouponUsecase {
	return &CouponUsecase{couponRepo: couponRepo, auditRepo: auditRepo}
}

type CouponSummary struct {
	Code  string           `json:"code"`
	Type  model.CouponType `json:"type"`
	Value float64          `json:"value"`
}

type ApplyCouponOutput struct {
	Discount float64       `json:"discount"`
	Coupon   CouponSummary `json:"coupon"`
}

// ApplyCoupon は割引のプレビュー。何も消費しない。
// 使用の記録は注文確定時にだけ行う。
//
// チェックは次の順で行い、最初の失敗で止まる：
// 存在 → 上限 → 期限 → 本人の使用済み → 有効フラグ
func (u *CouponUsecase) ApplyCoupon(ctx context.Context, userID int64, code string, subtotal float64) (ApplyCouponOutput, error) {
	if userID <= 0 {
		return ApplyCouponOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if strings.TrimSpace(code) == "" {
		return ApplyCouponOutput{}, NewHTTPError(http.StatusBadRequest, "invalid code")
	}
	if subtotal < 0 {
		return ApplyCouponOutput{}, NewHTTPError(http.StatusBadRequest, "invalid subtotal")
	}

	//コードは保存値そのままで照合する（正規化は作成側だけ）
	c, err := u.couponRepo.FindByCode(ctx, code)
	if err == repo.ErrNotFound {
		return ApplyCouponOutput{}, NewHTTPError(http.StatusBadRequest, "coupon not found")
	}
	if err != nil {
		return ApplyCouponOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if c.UsedCount >= c.MaxUses {
		return ApplyCouponOutput{}, NewHTTPError(http.StatusBadRequest, "coupon usage limit reached")
	}
	if !c.ExpiresAt.After(time.Now()) {
		return ApplyCouponOutput{}, NewHTTPError(http.StatusBadRequest, "coupon expired")
	}

	used, err := u.couponRepo.HasRedeemed(ctx, c.ID, userID)
	if err != nil {
		return ApplyCouponOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if used {
		return ApplyCouponOutput{}, NewHTTPError(http.StatusBadRequest, "coupon already used")
	}

	if !c.IsActive {
		return ApplyCouponOutput{}, NewHTTPError(http.StatusBadRequest, "coupon inactive")
	}

	return ApplyCouponOutput{
		Discount: couponDiscount(c, subtotal),
		Coupon: CouponSummary{
			Code:  c.Code,
			Type:  c.Type,
			Value: c.Value,
		},
	}, nil
}

// 割引額を計算する。
// fixedは小計を超えてもそのまま返す（上限は掛けない）。
func couponDiscount(c model.Coupon, subtotal float64) float64 {
	if c.Type == model.CouponTypePercentage {
		return round2(subtotal * c.Value / 100)
	}
	return c.Value
}

type AdminCreateCouponInput struct {
	Code      string
	Type      string
	Value     float64
	MaxUses   int64
	ExpiresAt time.Time
	IsActive  bool
}

// クーポン作成。コードはここで大文字に正規化する。
func (u *CouponUsecase) AdminCreateCoupon(ctx context.Context, adminUserID int64, in AdminCreateCouponInput) (int64, error) {
	if adminUserID <= 0 {
		return 0, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	code := strings.ToUpper(strings.TrimSpace(in.Code))
	if code == "" {
		return 0, NewHTTPError(http.StatusBadRequest, "code required")
	}

	couponType := model.CouponType(in.Type)
	switch couponType {
	case model.CouponTypePercentage, model.CouponTypeFixed:
	default:
		return 0, NewHTTPError(http.StatusBadRequest, "invalid type")
	}

	if in.Value <= 0 {
		return 0, NewHTTPError(http.StatusBadRequest, "value must be > 0")
	}
	if couponType == model.CouponTypePercentage && in.Value > 100 {
		return 0, NewHTTPError(http.StatusBadRequest, "percentage must be <= 100")
	}
	if in.MaxUses < 1 {
		return 0, NewHTTPError(http.StatusBadRequest, "max_uses must be >= 1")
	}
	if !in.ExpiresAt.After(time.Now()) {
		return 0, NewHTTPError(http.StatusBadRequest, "expires_at must be in the future")
	}

	c, err := u.couponRepo.Create(ctx, model.Coupon{
		Code:      code,
		Type:      couponType,
		Value:     in.Value,
		MaxUses:   in.MaxUses,
		ExpiresAt: in.ExpiresAt,
		IsActive:  in.IsActive,
	})
	if err != nil {
		return 0, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	//監査ログ（失敗しても作成自体は成功扱い）
	_ = u.auditRepo.Create(ctx, model.AuditLog{
		ActorUserID:  adminUserID,
		Action:       model.AuditActionCreateCoupon,
		ResourceType: model.AuditResourceCoupon,
		ResourceID:   c.ID,
		AfterJSON:    `{"code":"` + c.Code + `"}`,
		CreatedAt:    time.Now(),
	})

	return c.ID, nil
}

func (u *CouponUsecase) AdminListCoupons(ctx context.Context, adminUserID int64) ([]model.Coupon, error) {
	if adminUserID <= 0 {
		return []model.Coupon{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	coupons, err := u.couponRepo.List(ctx)
	if err != nil {
		return []model.Coupon{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return coupons, nil
}
