// Package bybit provides candles from the public Bybit v5 REST API.
package bybit

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/yitech/harbinger/adapter"
	"github.com/yitech/harbinger/model/candle"
)

const (
	baseURL   = "https://api.bybit.com"
	klinePath = "/v5/market/kline"
	category  = "spot"
	// interval is in minutes.
	interval = "1"
)

// Config configures the Bybit adapter.
type Config struct {
	BaseURL string
	Client  adapter.ClientOptions
	// Now overrides the clock used to find the last closed minute.
	Now func() time.Time
}

// Adapter is the Bybit exchange adapter.
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
		client:  adapter.NewClient("bybit", cfg.Client),
		now:     now,
	}
}

func (a *Adapter) ProviderName() string {
	return a.baseURL
}

// GetCandle asks Bybit for the single kline that ends before the current
// minute, so the still-forming period is never returned.
func (a *Adapter) GetCandle(ctx context.Context, assetName string) (candle.Candle, error) {
	u, err := url.Parse(a.baseURL + klinePath)
	if err != nil {
		return candle.Candle{}, err
	}

	end := a.now().Truncate(time.Minute).UnixMilli() - 1

	q := u.Query()
	q.Set("category", category)
	q.Set("symbol", adapter.StripSeparator(assetName))
	q.Set("interval", interval)
	q.Set("end", strconv.FormatInt(end, 10))
	q.Set("limit", "1")
	u.RawQuery = q.Encode()

	body, err := a.client.Get(ctx, u.String(), nil)
	if err != nil {
		return candle.Candle{}, err
	}
	return parseKlines(assetName, body)
}
