package okx

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

const sample = `{"code":"0","msg":"","data":[
	["1700000120000","1.2","1.3","1.1","1.25","7","8.4","8.4","0"],
	["1700000060000","1.0","1.1","0.9","1.05","0.5","0.5","0.5","1"],
	["1700000000000","0.8","1.0","0.7","0.95","10","9.5","9.5","1"]
]}`

func TestAdapter_GetCandle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v5/market/candles", r.URL.Path)
		assert.Equal(t, "BTC-USDT", r.URL.Query().Get("instId"))
		assert.Equal(t, "1m", r.URL.Query().Get("bar"))
		_, _ = w.Write([]byte(sample))
	}))
	defer srv.Close()

	got, err := New(Config{BaseURL: srv.URL}).GetCandle(context.Background(), "BTC-USDT")

	require.NoError(t, err)
	assert.Equal(t, candle.Candle{
		AssetName:      "BTC-USDT",
		StartTimestamp: 1700000060,
		EndTimestamp:   1700000120,
		Open:           1_000_000,
		High:           1_100_000,
		Low:            900_000,
		Close:          1_050_000,
		Volume:         500_000,
	}, got)
}

func TestParseCandles_ISOTimestamp(t *testing.T) {
	body := []byte(`{"code":"0","data":[["2023-11-14T22:14:20Z","1","1","1","1","1","1","1","1"]]}`)

	got, err := parseCandles("BTC-USDT", body)

	require.NoError(t, err)
	assert.Equal(t, int64(1700000060), got.StartTimestamp)
}

func TestParseCandles_Errors(t *testing.T) {
	tests := map[string]string{
		"api error":    `{"code":"51001","msg":"Instrument ID does not exist","data":[]}`,
		"unconfirmed":  `{"code":"0","data":[["1700000120000","1","1","1","1","1","1","1","0"]]}`,
		"empty":        `{"code":"0","data":[]}`,
		"bad ts":       `{"code":"0","data":[["yesterday","1","1","1","1","1","1","1","1"]]}`,
		"bad price":    `{"code":"0","data":[["1700000060000","-1","1","1","1","1","1","1","1"]]}`,
		"invalid json": `{"code":`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := parseCandles("BTC-USDT", []byte(body))
			assert.ErrorIs(t, err, adapter.ErrUpstream)
		})
	}
}
