package handler

import (
	"net/http"

	"app/internal/config"
	"app/internal/middleware"
	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /coupons/applyのHTTP。割引のプレビューだけで、使用の記録はしない。
type CouponHandler struct {
	couponUC *usecase.CouponUsecase
	cartUC   *usecase.CartUsecase
}

// DI
func NewCouponHandler(couponUC *usecase.CouponUsecase, cartUC *usecase.CartUsecase) *CouponHandler {
	return &CouponHandler{couponUC: couponUC, cartUC: cartUC}
}

type ApplyCouponRequest struct {
	Code string `json:"code"`
}

func (h *CouponHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	g := e.Group("/coupons")
	g.Use(middleware.AuthJWT(cfg))

	g.POST("/apply", h.apply)
}

func (h *CouponHandler) apply(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req ApplyCouponRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	//小計はクライアントから受けずサーバー側のカートで計算する
	cart, err := h.cartUC.GetCart(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.couponUC.ApplyCoupon(c.Request().Context(), userID, req.Code, cart.Total)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}
