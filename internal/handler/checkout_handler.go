package handler

import (
	"net/http"

	"app/internal/config"
	"app/internal/domain/model"
	"app/internal/middleware"
	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /checkout と /orders/cash のHTTP
type CheckoutHandler struct {
	uc *usecase.CheckoutUsecase
}

// DI
func NewCheckoutHandler(uc *usecase.CheckoutUsecase) *CheckoutHandler {
	return &CheckoutHandler{uc: uc}
}

type ShippingRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	NationalID string `json:"national_id"`
	Course     string `json:"course"`
}

func (r ShippingRequest) toModel() model.ShippingData {
	return model.ShippingData{
		Name:       r.Name,
		Email:      r.Email,
		Phone:      r.Phone,
		NationalID: r.NationalID,
		Course:     r.Course,
	}
}

type CheckoutRequest struct {
	Shipping   ShippingRequest `json:"shipping"`
	CouponCode string          `json:"coupon_code"`
}

type CashOrderRequest struct {
	Shipping   ShippingRequest `json:"shipping"`
	CouponCode string          `json:"coupon_code"`
}

func (h *CheckoutHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	co := e.Group("/checkout")
	co.Use(middleware.AuthJWT(cfg))
	co.POST("", h.startCheckout)

	orders := e.Group("/orders")
	orders.Use(middleware.AuthJWT(cfg))
	orders.POST("/cash", h.placeCashOrder)
}

func (h *CheckoutHandler) startCheckout(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.StartCheckout(c.Request().Context(), userID, usecase.StartCheckoutInput{
		Shipping:   req.Shipping.toModel(),
		CouponCode: req.CouponCode,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *CheckoutHandler) placeCashOrder(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req CashOrderRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.PlaceCashOrder(c.Request().Context(), userID, usecase.CashOrderInput{
		Shipping:   req.Shipping.toModel(),
		CouponCode: req.CouponCode,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}
