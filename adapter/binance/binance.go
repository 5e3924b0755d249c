package binance

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/yitech/harbinger/adapter"
	"github.com/yitech/harbinger/model/candle"
)

const (
	baseURL   = "https://api.binance.com"
	klinePath = "/api/v3/klines"
	interval  = "1m"

	// Two klines: the still-open one and the last closed one.
	limit = 2
)

// Config configures the Binance REST adapter.
type Config struct {
	BaseURL string
	Client  adapter.ClientOptions
	Now     func() time.Time // defaults to time.Now
}

// Adapter is the Binance exchange adapter backed by the public REST API.
type Adapter struct {
	baseURL string
	client  *adapter.Client
	now     func() time.Time
}

func New(cfg Config) *Adapter {
	base := cfg.BaseURL
	if base == "" {
		base = baseURL
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Adapter{
		baseURL: base,
		client:  adapter.NewClient("binance", cfg.Client),
		now:     now,
	}
}

func (a *Adapter) ProviderName() string {
	return a.baseURL
}

// GetCandle fetches the most recently closed one-minute kline for assetName.
func (a *Adapter) GetCandle(ctx context.Context, assetName string) (candle.Candle, error) {
	u, err := url.Parse(a.baseURL + klinePath)
	if err != nil {
		return candle.Candle{}, err
	}
	q := u.Query()
	q.Set("symbol", adapter.StripSeparator(assetName))
	q.Set("interval", interval)
	q.Set("limit", strconv.Itoa(limit))
	u.RawQuery = q.Encode()

	body, err := a.client.Get(ctx, u.String(), nil)
	if err != nil {
		return candle.Candle{}, err
	}
	return parseKlines(assetName, body, a.now())
}
