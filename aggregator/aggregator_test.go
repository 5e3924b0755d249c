package aggregator

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yitech/harbinger/adapter"
	"github.com/yitech/harbinger/model/candle"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func fixed(name string, c candle.Candle) adapter.Adapter {
	return funcAdapter{name: name, fn: func(_ context.Context, asset string) (candle.Candle, error) {
		c.AssetName = asset
		return c, nil
	}}
}

func failing(name string) adapter.Adapter {
	return funcAdapter{name: name, fn: func(context.Context, string) (candle.Candle, error) {
		return candle.Candle{}, &adapter.UpstreamError{Provider: name, StatusCode: 500, Body: "boom"}
	}}
}

func TestAggregator_Merge(t *testing.T) {
	agg := New(quietLogger(),
		fixed("a", candle.Candle{StartTimestamp: 120, EndTimestamp: 180, Open: 10, High: 15, Low: 8, Close: 12, Volume: 100}),
		fixed("b", candle.Candle{StartTimestamp: 120, EndTimestamp: 180, Open: 11, High: 17, Low: 9, Close: 13, Volume: 50}),
		fixed("c", candle.Candle{StartTimestamp: 120, EndTimestamp: 180, Open: 9, High: 14, Low: 7, Close: 11, Volume: 25}),
	)

	got, err := agg.GetCandle(context.Background(), "XTZ-USD")

	require.NoError(t, err)
	assert.Equal(t, candle.Candle{
		AssetName:      "XTZ-USD",
		StartTimestamp: 120,
		EndTimestamp:   180,
		Open:           10,
		High:           17,
		Low:            7,
		Close:          11,
		Volume:         175,
	}, got)
}

func TestAggregator_DropsStalePeriods(t *testing.T) {
	agg := New(quietLogger(),
		fixed("a", candle.Candle{StartTimestamp: 60, Open: 1, High: 100, Low: 1, Close: 1, Volume: 1000}),
		fixed("b", candle.Candle{StartTimestamp: 120, Open: 2, High: 3, Low: 2, Close: 3, Volume: 5}),
	)

	got, err := agg.GetCandle(context.Background(), "XTZ-USD")

	require.NoError(t, err)
	assert.Equal(t, int64(120), got.StartTimestamp)
	assert.Equal(t, uint64(2), got.Open)
	assert.Equal(t, uint64(3), got.High)
	assert.Equal(t, uint64(5), got.Volume)
}

func TestAggregator_PartialFailure(t *testing.T) {
	agg := New(quietLogger(),
		failing("a"),
		fixed("b", candle.Candle{StartTimestamp: 120, Open: 2, High: 3, Low: 1, Close: 2, Volume: 5}),
	)

	got, err := agg.GetCandle(context.Background(), "XTZ-USD")

	require.NoError(t, err)
	assert.Equal(t, uint64(2), got.Open)
}

func TestAggregator_AllFail(t *testing.T) {
	agg := New(quietLogger(), failing("a"), failing("b"))

	_, err := agg.GetCandle(context.Background(), "XTZ-USD")

	require.ErrorIs(t, err, adapter.ErrCandleUnavailable)
	assert.ErrorIs(t, err, adapter.ErrUpstream)
	var cu *adapter.CandleUnavailableError
	require.True(t, errors.As(err, &cu))
	assert.Equal(t, 2, cu.Attempts)
}

func TestAggregator_NoSources(t *testing.T) {
	_, err := New(nil).GetCandle(context.Background(), "XTZ-USD")
	assert.ErrorIs(t, err, adapter.ErrCandleUnavailable)
}

func TestAggregator_ProviderName(t *testing.T) {
	agg := New(nil, failing("https://api.binance.com"), failing("https://api.kraken.com"))
	assert.Equal(t, "aggregate(https://api.binance.com,https://api.kraken.com)", agg.ProviderName())
}

// funcAdapter serves candles from a plain function.
type funcAdapter struct {
	name string
	fn   func(ctx context.Context, assetName string) (candle.Candle, error)
}

func (f funcAdapter) ProviderName() string { return f.name }

func (f funcAdapter) GetCandle(ctx context.Context, assetName string) (candle.Candle, error) {
	return f.fn(ctx, assetName)
}
