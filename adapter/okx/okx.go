// Package okx provides candles from the public OKX v5 REST API.
package okx

import (
	"context"
	"net/url"

	"github.com/yitech/harbinger/adapter"
	"github.com/yitech/harbinger/model/candle"
)

const (
	baseURL   = "https://www.okx.com"
	klinePath = "/api/v5/market/candles"
	bar       = "1m"
)

// Config configures the OKX adapter.
type Config struct {
	BaseURL string
	Client  adapter.ClientOptions
}

// Adapter is the OKX exchange adapter.
type Adapter struct {
	baseURL string
	client  *adapter.Client
}

func New(cfg Config) *Adapter {
	base := cfg.BaseURL
	if base == "" {
		base = baseURL
	}
	return &Adapter{baseURL: base, client: adapter.NewClient("okx", cfg.Client)}
}

func (a *Adapter) ProviderName() string {
	return a.baseURL
}

// GetCandle fetches recent one-minute candles for assetName and returns the
// newest confirmed one. OKX instrument IDs use the same dashed form as asset
// names (BTC-USDT), so the name is sent unchanged.
func (a *Adapter) GetCandle(ctx context.Context, assetName string) (candle.Candle, error) {
	u, err := url.Parse(a.baseURL + klinePath)
	if err != nil {
		return candle.Candle{}, err
	}
	q := u.Query()
	q.Set("instId", assetName)
	q.Set("bar", bar)
	u.RawQuery = q.Encode()

	body, err := a.client.Get(ctx, u.String(), nil)
	if err != nil {
		return candle.Candle{}, err
	}
	return parseCandles(assetName, body)
}
