package bybit

import (
	"github.com/tidwall/gjson"

	"github.com/yitech/harbinger/adapter"
	"github.com/yitech/harbinger/model/candle"
)

// parseKlines unwraps the Bybit V5 {"retCode","retMsg","result":{"list"}}
// envelope and returns the first kline. Bybit lists klines newest-first.
//
// Bybit kline array layout (all strings):
//
//	[0] startTime  (ms)
//	[1] openPrice
//	[2] highPrice
//	[3] lowPrice
//	[4] closePrice
//	[5] volume     (base coin)
//	[6] turnover   (quote coin) unused
func parseKlines(assetName string, body []byte) (candle.Candle, error) {
	if !gjson.ValidBytes(body) {
		return candle.Candle{}, adapter.Malformed("bybit", body, "invalid JSON")
	}
	env := gjson.ParseBytes(body)
	if code := env.Get("retCode"); !code.Exists() || code.Int() != 0 {
		return candle.Candle{}, adapter.Malformed("bybit", body, "api error %s: %s", code.Raw, env.Get("retMsg").String())
	}

	list := env.Get("result.list").Array()
	if len(list) == 0 {
		return candle.Candle{}, adapter.Malformed("bybit", body, "no klines for %s", assetName)
	}
	r := list[0].Array()
	if len(r) < 6 {
		return candle.Candle{}, adapter.Malformed("bybit", body, "kline has %d fields, want ≥6", len(r))
	}

	ms, err := adapter.IntField(r[0])
	if err != nil {
		return candle.Candle{}, adapter.Malformed("bybit", body, "startTime: %v", err)
	}
	start := adapter.MillisToSeconds(ms)

	c, err := adapter.OHLCV{Open: r[1], High: r[2], Low: r[3], Close: r[4], Volume: r[5]}.
		Candle(assetName, start, start+candle.Duration)
	if err != nil {
		return candle.Candle{}, adapter.Malformed("bybit", body, "%v", err)
	}
	return c, nil
}
