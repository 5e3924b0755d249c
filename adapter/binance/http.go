package binance

import (
	"time"

	"github.com/tidwall/gjson"

	"github.com/yitech/harbinger/adapter"
	"github.com/yitech/harbinger/model/candle"
)

// parseKlines picks the most recently closed kline out of a Binance klines array.
//
// Binance returns klines oldest first and includes the kline that is still
// open, so the list is walked from the end and the first kline whose close
// time is before now is taken. Kline array layout:
//
//	[0]  Open time       (int64, Unix ms)
//	[1]  Open            (string)
//	[2]  High            (string)
//	[3]  Low             (string)
//	[4]  Close           (string)
//	[5]  Volume          (string, base asset)
//	[6]  Close time      (int64, Unix ms)
//	[7…] unused
func parseKlines(assetName string, body []byte, now time.Time) (candle.Candle, error) {
	if !gjson.ValidBytes(body) {
		return candle.Candle{}, adapter.Malformed("binance", body, "invalid JSON")
	}
	rows := gjson.ParseBytes(body)
	if !rows.IsArray() {
		return candle.Candle{}, adapter.Malformed("binance", body, "want array of klines")
	}
	list := rows.Array()
	if len(list) == 0 {
		return candle.Candle{}, adapter.Malformed("binance", body, "no klines for %s", assetName)
	}
	for i := len(list) - 1; i >= 0; i-- {
		closeTime, err := adapter.IntField(list[i].Get("6"))
		if err != nil {
			return candle.Candle{}, adapter.Malformed("binance", body, "close_time: %v", err)
		}
		if closeTime < now.UnixMilli() {
			return parseKline(assetName, list[i], body)
		}
	}
	return candle.Candle{}, adapter.Malformed("binance", body, "no closed kline for %s", assetName)
}

func parseKline(assetName string, row gjson.Result, body []byte) (candle.Candle, error) {
	r := row.Array()
	if len(r) < 7 {
		return candle.Candle{}, adapter.Malformed("binance", body, "kline has %d fields, want ≥7", len(r))
	}

	openTime, err := adapter.IntField(r[0])
	if err != nil {
		return candle.Candle{}, adapter.Malformed("binance", body, "open_time: %v", err)
	}
	closeTime, err := adapter.IntField(r[6])
	if err != nil {
		return candle.Candle{}, adapter.Malformed("binance", body, "close_time: %v", err)
	}

	c, err := adapter.OHLCV{Open: r[1], High: r[2], Low: r[3], Close: r[4], Volume: r[5]}.
		Candle(assetName, adapter.MillisToSeconds(openTime), adapter.MillisToSeconds(closeTime))
	if err != nil {
		return candle.Candle{}, adapter.Malformed("binance", body, "%v", err)
	}
	return c, nil
}
