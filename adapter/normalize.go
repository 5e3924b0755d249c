package adapter

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/yitech/harbinger/model/candle"
)

// OHLCV holds the loosely typed price and volume fields of one upstream
// candle, prior to scaling.
type OHLCV struct {
	Open, High, Low, Close, Volume gjson.Result
}

// Candle scales every field and assembles the canonical candle.
func (f OHLCV) Candle(assetName string, start, end int64) (candle.Candle, error) {
	c := candle.Candle{AssetName: assetName, StartTimestamp: start, EndTimestamp: end}

	fields := []struct {
		name string
		raw  gjson.Result
		dst  *uint64
	}{
		{"open", f.Open, &c.Open},
		{"high", f.High, &c.High},
		{"low", f.Low, &c.Low},
		{"close", f.Close, &c.Close},
		{"volume", f.Volume, &c.Volume},
	}
	for _, fd := range fields {
		v, err := ScaleField(fd.raw)
		if err != nil {
			return candle.Candle{}, fmt.Errorf("%s: %w", fd.name, err)
		}
		*fd.dst = v
	}
	return c, nil
}

// ScaleField scales a JSON number or numeric string to fixed point.
func ScaleField(r gjson.Result) (uint64, error) {
	switch r.Type {
	case gjson.Number:
		return candle.ScaleString(r.Raw)
	case gjson.String:
		return candle.ScaleString(r.Str)
	default:
		return 0, fmt.Errorf("want number, got %q", r.Raw)
	}
}

// IntField reads a JSON integer, accepting numeric strings.
func IntField(r gjson.Result) (int64, error) {
	switch r.Type {
	case gjson.Number:
		if strings.ContainsAny(r.Raw, ".eE") {
			return int64(r.Float() + 0.5), nil
		}
		return r.Int(), nil
	case gjson.String:
		if r.Str == "" || strings.Trim(r.Str, "0123456789") != "" {
			return 0, fmt.Errorf("want integer, got %q", r.Str)
		}
		return r.Int(), nil
	default:
		return 0, fmt.Errorf("want integer, got %q", r.Raw)
	}
}

// MillisToSeconds converts a Unix millisecond timestamp to seconds, rounding
// half up.
func MillisToSeconds(ms int64) int64 {
	return (ms + 500) / 1000
}

// StripSeparator removes the dash used in canonical asset names ("XTZ-USD"
// becomes "XTZUSD").
func StripSeparator(assetName string) string {
	return strings.ReplaceAll(assetName, "-", "")
}
