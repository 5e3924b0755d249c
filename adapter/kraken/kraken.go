// Package kraken provides candles from the public Kraken REST API.
package kraken

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/yitech/harbinger/adapter"
	"github.com/yitech/harbinger/model/candle"
)

const (
	baseURL = "https://api.kraken.com"
	ohlc    = "/0/public/OHLC"
	// interval is in minutes.
	interval = "1"
)

// Config configures the Kraken adapter.
type Config struct {
	BaseURL string
	Client  adapter.ClientOptions
}

// Adapter is the Kraken exchange adapter.
type Adapter struct {
	baseURL string
	client  *adapter.Client
}

func New(cfg Config) *Adapter {
	base := cfg.BaseURL
	if base == "" {
		base = baseURL
	}
	return &Adapter{baseURL: base, client: adapter.NewClient("kraken", cfg.Client)}
}

func (a *Adapter) ProviderName() string {
	return a.baseURL
}

func (a *Adapter) GetCandle(ctx context.Context, assetName string) (candle.Candle, error) {
	pair := adapter.StripSeparator(assetName)

	q := url.Values{}
	q.Set("pair", pair)
	q.Set("interval", interval)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+ohlc+"?"+q.Encode(), nil)
	if err != nil {
		return candle.Candle{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := a.client.Do(req)
	if err != nil {
		return candle.Candle{}, err
	}
	return parseOHLC(assetName, pair, body)
}

// parseOHLC unwraps the Kraken {"error": [...], "result": {<pair>: [...], "last": n}}
// envelope and picks the most recent candle.
//
// Kraken may answer under its own spelling of the pair (XBTUSD comes back as
// XXBTZUSD), so the lookup falls back to the only non-"last" key. Candles are
// oldest first; the last element is the most recent. Candle array layout:
//
//	[0] time   (Unix seconds, int)
//	[1] open   (string)
//	[2] high   (string)
//	[3] low    (string)
//	[4] close  (string)
//	[5] vwap   (string) unused
//	[6] volume (string)
//	[7] count  (int)    unused
func parseOHLC(assetName, pair string, body []byte) (candle.Candle, error) {
	if !gjson.ValidBytes(body) {
		return candle.Candle{}, adapter.Malformed("kraken", body, "invalid JSON")
	}
	env := gjson.ParseBytes(body)
	if errs := env.Get("error").Array(); len(errs) > 0 {
		return candle.Candle{}, adapter.Malformed("kraken", body, "api error: %s", errs[0].String())
	}

	result := env.Get("result")
	rows := result.Get(gjson.Escape(pair))
	if !rows.Exists() {
		result.ForEach(func(key, value gjson.Result) bool {
			if key.String() != "last" && value.IsArray() {
				rows = value
				return false
			}
			return true
		})
	}
	list := rows.Array()
	if !rows.IsArray() || len(list) == 0 {
		return candle.Candle{}, adapter.Malformed("kraken", body, "no candles for %s", strings.ToUpper(pair))
	}

	r := list[len(list)-1].Array()
	if len(r) < 7 {
		return candle.Candle{}, adapter.Malformed("kraken", body, "candle has %d fields, want ≥7", len(r))
	}
	start, err := adapter.IntField(r[0])
	if err != nil {
		return candle.Candle{}, adapter.Malformed("kraken", body, "time: %v", err)
	}

	c, err := adapter.OHLCV{Open: r[1], High: r[2], Low: r[3], Close: r[4], Volume: r[6]}.
		Candle(assetName, start, start+candle.Duration)
	if err != nil {
		return candle.Candle{}, adapter.Malformed("kraken", body, "%v", err)
	}
	return c, nil
}
