package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	appPayment "app/internal/payment"

	"github.com/mercadopago/sdk-go/pkg/config"
	mppayment "github.com/mercadopago/sdk-go/pkg/payment"
	"github.com/mercadopago/sdk-go/pkg/preference"
)

// metadataに入れるチェックアウト情報のキー。
// MercadoPago側でキーが小文字化されるので最初から小文字にしておく。
const metadataCheckoutKey = "checkout"

type MercadoPagoGateway struct {
	prefClient      preference.Client
	payClient       mppayment.Client
	notificationURL string
	backURL         string
}

func NewMercadoPagoGateway(accessToken string, notificationURL string, backURL string) (*MercadoPagoGateway, error) {
	cfg, err := config.New(accessToken)
	if err != nil {
		return nil, err
	}

	return &MercadoPagoGateway{
		prefClient:      preference.NewClient(cfg),
		payClient:       mppayment.NewClient(cfg),
		notificationURL: notificationURL,
		backURL:         backURL,
	}, nil
}

// preferenceを作ってリダイレクト先URLを返す
func (g *MercadoPagoGateway) CreatePreference(ctx context.Context, data appPayment.CheckoutData) (string, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return "", err
	}

	var items []preference.ItemRequest
	if data.Discount > 0 {
		//クーポン割引がある場合は合計1行にまとめる
		//（preferenceには割引フィールドが無い）
		var total float64
		for _, l := range data.Lines {
			total += l.UnitPrice * float64(l.Quantity)
		}
		total -= data.Discount
		if total < 0 {
			total = 0
		}

		items = []preference.ItemRequest{{
			ID:        data.ExternalReference,
			Title:     fmt.Sprintf("Order %s", data.ExternalReference),
			Quantity:  1,
			UnitPrice: total,
		}}
	} else {
		items = make([]preference.ItemRequest, 0, len(data.Lines))
		for _, l := range data.Lines {
			items = append(items, preference.ItemRequest{
				ID:        strconv.FormatInt(l.ProductID, 10),
				Title:     l.Name,
				Quantity:  int(l.Quantity),
				UnitPrice: l.UnitPrice,
			})
		}
	}

	req := preference.Request{
		Items:             items,
		ExternalReference: data.ExternalReference,
		NotificationURL:   g.notificationURL,
		Metadata: map[string]any{
			metadataCheckoutKey: string(raw),
		},
	}
	if g.backURL != "" {
		req.BackURLs = &preference.BackURLsRequest{
			Success: g.backURL,
			Pending: g.backURL,
			Failure: g.backURL,
		}
	}

	resp, err := g.prefClient.Create(ctx, req)
	if err != nil {
		return "", err
	}

	if resp.InitPoint != "" {
		return resp.InitPoint, nil
	}
	return resp.SandboxInitPoint, nil
}

// 支払いIDから支払いを取得し、metadataのチェックアウト情報を復元する
func (g *MercadoPagoGateway) GetPayment(ctx context.Context, paymentID string) (appPayment.Payment, error) {
	id, err := strconv.Atoi(paymentID)
	if err != nil {
		return appPayment.Payment{}, fmt.Errorf("invalid payment id %q: %w", paymentID, err)
	}

	resp, err := g.payClient.Get(ctx, id)
	if err != nil {
		return appPayment.Payment{}, err
	}

	raw, ok := resp.Metadata[metadataCheckoutKey].(string)
	if !ok || raw == "" {
		return appPayment.Payment{}, errors.New("checkout metadata missing on payment")
	}

	var data appPayment.CheckoutData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return appPayment.Payment{}, fmt.Errorf("decode checkout metadata: %w", err)
	}

	return appPayment.Payment{
		ID:     strconv.Itoa(resp.ID),
		Status: resp.Status,
		Data:   data,
	}, nil
}
