// Package gemini provides candles from the public Gemini REST API.
package gemini

import (
	"context"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/yitech/harbinger/adapter"
	"github.com/yitech/harbinger/model/candle"
)

const (
	baseURL   = "https://api.gemini.com"
	timeFrame = "1m"
)

// Config configures the Gemini adapter.
type Config struct {
	BaseURL string
	Client  adapter.ClientOptions
}

// Adapter is the Gemini exchange adapter.
type Adapter struct {
	baseURL string
	client  *adapter.Client
}

func New(cfg Config) *Adapter {
	base := strings.TrimSuffix(cfg.BaseURL, "/")
	if base == "" {
		base = baseURL
	}
	return &Adapter{baseURL: base, client: adapter.NewClient("gemini", cfg.Client)}
}

func (a *Adapter) ProviderName() string {
	return a.baseURL
}

func (a *Adapter) GetCandle(ctx context.Context, assetName string) (candle.Candle, error) {
	symbol := strings.ToLower(adapter.StripSeparator(assetName))
	body, err := a.client.Get(ctx, a.baseURL+"/v2/candles/"+symbol+"/"+timeFrame, nil)
	if err != nil {
		return candle.Candle{}, err
	}
	return parseCandles(assetName, body)
}

// parseCandles picks the most recent candle from a Gemini candles array.
//
// Gemini documents its candle list as sorted by time descending, so the
// first element is the most recent. Candle array layout (numbers):
//
//	[0] time   (Unix ms)
//	[1] open
//	[2] high
//	[3] low
//	[4] close
//	[5] volume
func parseCandles(assetName string, body []byte) (candle.Candle, error) {
	if !gjson.ValidBytes(body) {
		return candle.Candle{}, adapter.Malformed("gemini", body, "invalid JSON")
	}
	rows := gjson.ParseBytes(body)
	if !rows.IsArray() || len(rows.Array()) == 0 {
		return candle.Candle{}, adapter.Malformed("gemini", body, "no candles for %s", assetName)
	}

	r := rows.Array()[0].Array()
	if len(r) < 6 {
		return candle.Candle{}, adapter.Malformed("gemini", body, "candle has %d fields, want 6", len(r))
	}
	ms, err := adapter.IntField(r[0])
	if err != nil {
		return candle.Candle{}, adapter.Malformed("gemini", body, "time: %v", err)
	}
	start := adapter.MillisToSeconds(ms)

	c, err := adapter.OHLCV{Open: r[1], High: r[2], Low: r[3], Close: r[4], Volume: r[5]}.
		Candle(assetName, start, start+candle.Duration)
	if err != nil {
		return candle.Candle{}, adapter.Malformed("gemini", body, "%v", err)
	}
	return c, nil
}
