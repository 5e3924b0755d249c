package binance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/yitech/harbinger/adapter"
	"github.com/yitech/harbinger/model/candle"
)

const klines = `[
  [1499040000000,"0.01634790","0.80000000","0.01575800","0.01577100","148976.11427815",1499040059999,"2434.19055334",308,"1756.87402397","28.46694368","0"],
  [1499040060000,"1.00000000","1.10000000","0.90000000","1.05000000","0.50000000",1499040119999,"2434.19055334",308,"1756.87402397","28.46694368","0"]
]`

var wantLatest = candle.Candle{
	AssetName:      "XTZ-USD",
	StartTimestamp: 1499040060,
	EndTimestamp:   1499040120,
	Open:           1_000_000,
	High:           1_100_000,
	Low:            900_000,
	Close:          1_050_000,
	Volume:         500_000,
}

func TestAdapter_GetCandle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, klinePath, r.URL.Path)
		assert.Equal(t, "XTZUSD", r.URL.Query().Get("symbol"))
		assert.Equal(t, "1m", r.URL.Query().Get("interval"))
		assert.Equal(t, "2", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(klines))
	}))
	defer srv.Close()

	a := New(Config{BaseURL: srv.URL})
	got, err := a.GetCandle(context.Background(), "XTZ-USD")

	require.NoError(t, err)
	assert.Equal(t, wantLatest, got)
	assert.Equal(t, srv.URL, a.ProviderName())
}

func TestAdapter_DefaultProviderName(t *testing.T) {
	assert.Equal(t, "https://api.binance.com", New(Config{}).ProviderName())
}

func TestAdapter_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
	}))
	defer srv.Close()

	_, err := New(Config{BaseURL: srv.URL}).GetCandle(context.Background(), "FOO-BAR")

	var ue *adapter.UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, http.StatusBadRequest, ue.StatusCode)
	assert.Contains(t, ue.Body, "Invalid symbol")
}

func TestParseKlines_Malformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `<html>`},
		{"object", `{"code":0}`},
		{"empty", `[]`},
		{"short row", `[[1499040000000,"1","2"]]`},
		{"bad time", `[["x","1","1","1","1","1",1499040059999]]`},
		{"bad price", `[[1499040000000,"abc","1","1","1","1",1499040059999]]`},
		{"null price", `[[1499040000000,null,"1","1","1","1",1499040059999]]`},
		{"bad close time", `[[1499040000000,"1","1","1","1","1","x"]]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseKlines("XTZ-USD", []byte(tt.body), time.Now())
			assert.ErrorIs(t, err, adapter.ErrUpstream)
		})
	}
}

func TestParseKlines_SkipsOpenKline(t *testing.T) {
	// 1499040100 is inside the second kline, which closes at 1499040119999 ms.
	got, err := parseKlines("XTZ-USD", []byte(klines), time.Unix(1499040100, 0))

	require.NoError(t, err)
	assert.Equal(t, int64(1499040000), got.StartTimestamp)
	assert.Equal(t, int64(1499040060), got.EndTimestamp)

	got, err = parseKlines("XTZ-USD", []byte(klines), time.Unix(1499040120, 0))
	require.NoError(t, err)
	assert.Equal(t, wantLatest, got)
}

func TestParseKlines_NoClosedKline(t *testing.T) {
	_, err := parseKlines("XTZ-USD", []byte(klines), time.Unix(1499040030, 0))

	assert.ErrorIs(t, err, adapter.ErrUpstream)
}

func TestAdapter_GetCandleSkipsOpenKline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(klines))
	}))
	defer srv.Close()

	a := New(Config{BaseURL: srv.URL, Now: func() time.Time { return time.Unix(1499040100, 0) }})
	got, err := a.GetCandle(context.Background(), "XTZ-USD")

	require.NoError(t, err)
	assert.Equal(t, int64(1499040000), got.StartTimestamp)
}

func wsServer(t *testing.T, handle func(conn *websocket.Conn, req gjson.Result)) *httptest.Server {
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		handle(conn, gjson.ParseBytes(msg))
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWSAdapter_GetCandle(t *testing.T) {
	srv := wsServer(t, func(conn *websocket.Conn, req gjson.Result) {
		assert.Equal(t, "klines", req.Get("method").String())
		assert.Equal(t, "XTZUSD", req.Get("params.symbol").String())
		assert.Equal(t, "1m", req.Get("params.interval").String())
		assert.Equal(t, int64(2), req.Get("params.limit").Int())

		id := req.Get("id").String()
		// An unrelated frame first; the adapter must skip it.
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"id":"other","status":200,"result":[]}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"id":"`+id+`","status":200,"result":`+klines+`}`))
		_, _, _ = conn.ReadMessage()
	})
	defer srv.Close()

	a := NewWS(WSConfig{URL: wsURL(srv)})
	got, err := a.GetCandle(context.Background(), "XTZ-USD")

	require.NoError(t, err)
	assert.Equal(t, wantLatest, got)
	assert.Equal(t, wsURL(srv), a.ProviderName())
}

func TestWSAdapter_ErrorStatus(t *testing.T) {
	srv := wsServer(t, func(conn *websocket.Conn, req gjson.Result) {
		id := req.Get("id").String()
		_ = conn.WriteMessage(websocket.TextMessage,
			[]byte(`{"id":"`+id+`","status":400,"error":{"code":-1121,"msg":"Invalid symbol."}}`))
	})
	defer srv.Close()

	_, err := NewWS(WSConfig{URL: wsURL(srv)}).GetCandle(context.Background(), "FOO-BAR")

	var ue *adapter.UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, http.StatusBadRequest, ue.StatusCode)
	assert.Contains(t, ue.Body, "Invalid symbol")
}

func TestWSAdapter_DialFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := NewWS(WSConfig{URL: wsURL(srv)}).GetCandle(context.Background(), "XTZ-USD")

	var ue *adapter.UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, http.StatusForbidden, ue.StatusCode)
}
