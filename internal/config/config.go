package config

import (
	"fmt"
	"os"
)

// Configはアプリ全体の設定
type Config struct {
	Port string // サーバーポート（8080）

	JWTSecret string // JWT署名シークレット

	MPAccessToken     string // MercadoPagoのアクセストークン
	MPNotificationURL string // webhookの受け口（公開URL）
	CheckoutBackURL   string // 決済後に戻すフロントのURL

	ResendAPIKey string // 確認メール用（空ならメールは送らない）
	MailFrom     string // 送信元アドレス

	GoEnv string // dev/prod
	FEURL string // フロントURL（CORSなどで使う）
}

// Loadは環境変数から読む。DB接続情報はdb.Connectが直接envを見る
func Load() (Config, error) {
	cfg := Config{
		Port: os.Getenv("PORT"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		MPAccessToken:     os.Getenv("MP_ACCESS_TOKEN"),
		MPNotificationURL: os.Getenv("MP_NOTIFICATION_URL"),
		CheckoutBackURL:   os.Getenv("CHECKOUT_BACK_URL"),

		ResendAPIKey: os.Getenv("RESEND_API_KEY"),
		MailFrom:     os.Getenv("MAIL_FROM"),

		GoEnv: os.Getenv("GO_ENV"),
		FEURL: os.Getenv("FE_URL"),
	}

	//必須チェック
	if cfg.Port == "" {
		return Config{}, fmt.Errorf("PORT is required")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.MPAccessToken == "" {
		return Config{}, fmt.Errorf("MP_ACCESS_TOKEN is required")
	}
	if cfg.MPNotificationURL == "" {
		return Config{}, fmt.Errorf("MP_NOTIFICATION_URL is required")
	}
	if cfg.CheckoutBackURL == "" {
		return Config{}, fmt.Errorf("CHECKOUT_BACK_URL is required")
	}
	if cfg.GoEnv == "" {
		return Config{}, fmt.Errorf("GO_ENV is required")
	}

	return cfg, nil
}
