package handler

import (
	"log/slog"
	"net/http"

	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

// 決済ゲートウェイからの通知を受ける。
// どんな結果でも200を返す：こちらの都合でゲートウェイに再送させない。
// 失敗は再実行キューに積んで自前でリトライする。
type WebhookHandler struct {
	uc *usecase.CheckoutUsecase
}

// DI
func NewWebhookHandler(uc *usecase.CheckoutUsecase) *WebhookHandler {
	return &WebhookHandler{uc: uc}
}

type webhookRequest struct {
	Type string `json:"type"`
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

func (h *WebhookHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/webhooks/mercadopago", h.receive)
}

func (h *WebhookHandler) receive(c echo.Context) error {
	var req webhookRequest
	if err := c.Bind(&req); err != nil {
		slog.Warn("webhook with unparsable body")
		return c.NoContent(http.StatusOK)
	}

	//payment以外の通知は受け取るだけ
	if req.Type != "payment" || req.Data.ID == "" {
		return c.NoContent(http.StatusOK)
	}

	if err := h.uc.ProcessPayment(c.Request().Context(), req.Data.ID); err != nil {
		slog.Error("webhook processing failed", "payment_id", req.Data.ID, "error", err)
		h.uc.EnqueueRetry(c.Request().Context(), req.Data.ID, err)
	}

	return c.NoContent(http.StatusOK)
}
