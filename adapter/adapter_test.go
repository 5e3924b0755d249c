package adapter

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yitech/harbinger/model/candle"
)

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestRetryPolicy_FirstSuccessWins(t *testing.T) {
	calls := 0
	p := RetryPolicy{MaxAttempts: 5, Backoff: time.Millisecond}

	c, err := p.Do(context.Background(), quietLogger(), "XTZ-USD", func(context.Context) (candle.Candle, error) {
		calls++
		if calls < 3 {
			return candle.Candle{}, errors.New("flaky")
		}
		return candle.Candle{AssetName: "XTZ-USD", Open: 1}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, uint64(1), c.Open)
}

func TestRetryPolicy_Exhaustion(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	p := RetryPolicy{MaxAttempts: 4, Backoff: time.Millisecond}

	_, err := p.Do(context.Background(), quietLogger(), "XTZ-USD", func(context.Context) (candle.Candle, error) {
		calls++
		return candle.Candle{}, boom
	})

	require.Error(t, err)
	assert.Equal(t, 4, calls)
	assert.ErrorIs(t, err, ErrCandleUnavailable)
	assert.ErrorIs(t, err, boom)

	var cu *CandleUnavailableError
	require.ErrorAs(t, err, &cu)
	assert.Equal(t, "XTZ-USD", cu.AssetName)
	assert.Equal(t, 4, cu.Attempts)
}

func TestRetryPolicy_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	p := RetryPolicy{MaxAttempts: 10, Backoff: time.Hour}

	_, err := p.Do(ctx, quietLogger(), "XTZ-USD", func(context.Context) (candle.Candle, error) {
		calls++
		cancel()
		return candle.Candle{}, errors.New("boom")
	})

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, ErrCandleUnavailable)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDefaultRetryPolicy(t *testing.T) {
	assert.Equal(t, 10, DefaultRetryPolicy.MaxAttempts)
	assert.Equal(t, time.Second, DefaultRetryPolicy.Backoff)
}

func TestWithRetry(t *testing.T) {
	calls := 0
	inner := funcAdapter{name: "stub", fn: func(context.Context, string) (candle.Candle, error) {
		calls++
		if calls == 1 {
			return candle.Candle{}, errors.New("flaky")
		}
		return candle.Candle{AssetName: "BTC-USD"}, nil
	}}

	a := WithRetry(inner, RetryPolicy{MaxAttempts: 3, Backoff: time.Millisecond}, quietLogger())
	c, err := a.GetCandle(context.Background(), "BTC-USD")

	require.NoError(t, err)
	assert.Equal(t, "BTC-USD", c.AssetName)
	assert.Equal(t, "stub", a.ProviderName())
	assert.Equal(t, 2, calls)
}

func TestClient_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, UserAgent, r.Header.Get("User-Agent"))
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"message":"slow down"}`))
	}))
	defer srv.Close()

	c := NewClient("test", ClientOptions{})
	_, err := c.Get(context.Background(), srv.URL, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstream)
	var ue *UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, http.StatusTooManyRequests, ue.StatusCode)
	assert.Equal(t, `{"message":"slow down"}`, ue.Body)
}

func TestClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewClient("test", ClientOptions{Timeout: 20 * time.Millisecond})
	_, err := c.Get(context.Background(), srv.URL, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestClient_HeadersAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("X-Key"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		_, _ = w.Write([]byte(`[1,2,3]`))
	}))
	defer srv.Close()

	c := NewClient("test", ClientOptions{RequestsPerSecond: 100})
	body, err := c.Get(context.Background(), srv.URL, http.Header{"X-Key": {"secret"}})

	require.NoError(t, err)
	assert.Equal(t, `[1,2,3]`, string(body))
}

func TestMalformed(t *testing.T) {
	err := Malformed("binance", []byte(`[]`), "no candles in response")
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Equal(t, "binance: no candles in response", err.Error())
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
