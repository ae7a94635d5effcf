package mail

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"
)

// 注文確認メールをResendで送る。
type ResendMailer struct {
	client *resend.Client
	from   string
}

func NewResendMailer(apiKey string, from string) *ResendMailer {
	return &ResendMailer{
		client: resend.NewClient(apiKey),
		from:   from,
	}
}

func (m *ResendMailer) SendOrderConfirmation(ctx context.Context, to string, name string, orderID int64, total float64) error {
	params := &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{to},
		Subject: fmt.Sprintf("Order confirmation #%d", orderID),
		Html: fmt.Sprintf(
			"<p>Hi %s,</p><p>Thanks for your order! Your order number is <strong>#%d</strong> and the total is <strong>$%.2f</strong>.</p>",
			name, orderID, total,
		),
	}

	_, err := m.client.Emails.SendWithContext(ctx, params)
	return err
}
