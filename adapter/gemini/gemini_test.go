package gemini

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yitech/harbinger/adapter"
	"github.com/yitech/harbinger/model/candle"
)

func TestAdapter_GetCandle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/candles/xtzusd/1m", r.URL.Path)
		_, _ = w.Write([]byte(`[
			[1700000060000, 1.0, 1.1, 0.9, 1.05, 0.5],
			[1700000000000, 0.8, 1.0, 0.7, 0.95, 10]
		]`))
	}))
	defer srv.Close()

	a := New(Config{BaseURL: srv.URL + "/"})
	got, err := a.GetCandle(context.Background(), "XTZ-USD")

	require.NoError(t, err)
	assert.Equal(t, candle.Candle{
		AssetName:      "XTZ-USD",
		StartTimestamp: 1700000060,
		EndTimestamp:   1700000120,
		Open:           1_000_000,
		High:           1_100_000,
		Low:            900_000,
		Close:          1_050_000,
		Volume:         500_000,
	}, got)
	assert.Equal(t, srv.URL, a.ProviderName())
}

func TestAdapter_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"result":"error","reason":"InvalidSymbol"}`))
	}))
	defer srv.Close()

	_, err := New(Config{BaseURL: srv.URL}).GetCandle(context.Background(), "FOO-BAR")

	var ue *adapter.UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, http.StatusNotFound, ue.StatusCode)
	assert.Contains(t, ue.Body, "InvalidSymbol")
}

func TestParseCandles_Malformed(t *testing.T) {
	for _, body := range []string{`{`, `[]`, `[[1700000060000, 1.0]]`, `[[1700000060000, "x", 1, 1, 1, 1]]`} {
		_, err := parseCandles("XTZ-USD", []byte(body))
		assert.ErrorIs(t, err, adapter.ErrUpstream, body)
	}
}
