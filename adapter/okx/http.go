package okx

import (
	"time"

	"github.com/tidwall/gjson"

	"github.com/yitech/harbinger/adapter"
	"github.com/yitech/harbinger/model/candle"
)

// parseCandles unwraps the OKX {"code","msg","data"} envelope and returns the
// most recent closed candle.
//
// OKX returns candles newest-first and includes the still-forming period at
// the head, so the first row with confirm == "1" is selected.
//
// OKX kline array layout (all strings):
//
//	[0] ts          (open time, ms; ISO-8601 is accepted too)
//	[1] o           (open)
//	[2] h           (high)
//	[3] l           (low)
//	[4] c           (close)
//	[5] vol         (base currency volume)
//	[6] volCcy      unused
//	[7] volCcyQuote unused
//	[8] confirm     ("1"=closed, "0"=current)
func parseCandles(assetName string, body []byte) (candle.Candle, error) {
	if !gjson.ValidBytes(body) {
		return candle.Candle{}, adapter.Malformed("okx", body, "invalid JSON")
	}
	env := gjson.ParseBytes(body)
	if code := env.Get("code").String(); code != "0" {
		return candle.Candle{}, adapter.Malformed("okx", body, "api error %s: %s", code, env.Get("msg").String())
	}

	var row []gjson.Result
	for _, r := range env.Get("data").Array() {
		fields := r.Array()
		if len(fields) > 8 && fields[8].String() == "1" {
			row = fields
			break
		}
	}
	if row == nil {
		return candle.Candle{}, adapter.Malformed("okx", body, "no confirmed candle for %s", assetName)
	}

	start, err := parseTimestamp(row[0])
	if err != nil {
		return candle.Candle{}, adapter.Malformed("okx", body, "ts: %v", err)
	}

	c, err := adapter.OHLCV{Open: row[1], High: row[2], Low: row[3], Close: row[4], Volume: row[5]}.
		Candle(assetName, start, start+candle.Duration)
	if err != nil {
		return candle.Candle{}, adapter.Malformed("okx", body, "%v", err)
	}
	return c, nil
}

// parseTimestamp accepts a Unix millisecond value or an ISO-8601 timestamp
// and returns Unix seconds.
func parseTimestamp(r gjson.Result) (int64, error) {
	if ms, err := adapter.IntField(r); err == nil {
		return adapter.MillisToSeconds(ms), nil
	}
	t, err := time.Parse(time.RFC3339Nano, r.String())
	if err != nil {
		return 0, err
	}
	return t.Unix(), nil
}
