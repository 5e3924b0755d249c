package candle

// Precision is the number of fractional decimal digits carried by the
// fixed-point price and volume fields of a Candle.
const Precision = 6

// Duration is the nominal length of a candle in seconds.
const Duration = 60

// Candle is the canonical OHLCV record signed by the oracle.
//
// Prices and volume are natural numbers with Precision digits of fixed
// precision: $123.42 is expressed as 123_420_000. Timestamps are Unix seconds.
// The usual low <= open, close <= high relation is passed through from the
// upstream source and not checked here.
type Candle struct {
	AssetName      string `json:"assetName"`
	StartTimestamp int64  `json:"startTimestamp"`
	EndTimestamp   int64  `json:"endTimestamp"`
	Open           uint64 `json:"open"`
	High           uint64 `json:"high"`
	Low            uint64 `json:"low"`
	Close          uint64 `json:"close"`
	Volume         uint64 `json:"volume"`
}
