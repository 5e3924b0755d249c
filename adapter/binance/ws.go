package binance

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"

	"github.com/yitech/harbinger/adapter"
	"github.com/yitech/harbinger/model/candle"
)

const wsAPIURL = "wss://ws-api.binance.com:443/ws-api/v3"

// WSConfig configures the WebSocket API adapter.
type WSConfig struct {
	URL     string
	Timeout time.Duration
	Dialer  *websocket.Dialer
	Now     func() time.Time // defaults to time.Now
}

// WSAdapter requests klines through the Binance WebSocket API instead of
// REST. Every GetCandle call runs its own short-lived session, so the
// adapter keeps no connection state between requests.
type WSAdapter struct {
	url     string
	timeout time.Duration
	dialer  *websocket.Dialer
	now     func() time.Time
}

func NewWS(cfg WSConfig) *WSAdapter {
	u := cfg.URL
	if u == "" {
		u = wsAPIURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	dialer := cfg.Dialer
	if dialer == nil {
		dialer = &websocket.Dialer{HandshakeTimeout: timeout}
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &WSAdapter{url: u, timeout: timeout, dialer: dialer, now: now}
}

func (a *WSAdapter) ProviderName() string {
	return a.url
}

// wsRequest is a Binance WebSocket API request frame.
type wsRequest struct {
	ID     string         `json:"id"`
	Method string         `json:"method"`
	Params map[string]any `json:"params"`
}

// GetCandle sends a "klines" request and waits for the response frame that
// carries the same request id.
func (a *WSAdapter) GetCandle(ctx context.Context, assetName string) (candle.Candle, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	conn, resp, err := a.dialer.DialContext(ctx, a.url, http.Header{"User-Agent": {adapter.UserAgent}})
	if err != nil {
		if resp != nil && resp.StatusCode != http.StatusSwitchingProtocols {
			return candle.Candle{}, &adapter.UpstreamError{Provider: "binance ws", StatusCode: resp.StatusCode, Body: err.Error()}
		}
		return candle.Candle{}, fmt.Errorf("binance ws: dial: %w", adapter.Timeout(err))
	}
	defer conn.Close()

	// Unblock ReadMessage once ctx is done.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetReadDeadline(time.Now())
	})
	defer stop()

	id := uuid.NewString()
	req := wsRequest{
		ID:     id,
		Method: "klines",
		Params: map[string]any{
			"symbol":   adapter.StripSeparator(assetName),
			"interval": interval,
			"limit":    limit,
		},
	}
	if err := conn.WriteJSON(req); err != nil {
		return candle.Candle{}, fmt.Errorf("binance ws: write: %w", adapter.Timeout(err))
	}

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				err = ctxErr
			}
			return candle.Candle{}, fmt.Errorf("binance ws: read: %w", adapter.Timeout(err))
		}

		frame := gjson.ParseBytes(msg)
		if frame.Get("id").String() != id {
			continue
		}
		if status := frame.Get("status").Int(); status != http.StatusOK {
			return candle.Candle{}, &adapter.UpstreamError{Provider: "binance ws", StatusCode: int(status), Body: string(msg)}
		}

		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		return parseKlines(assetName, []byte(frame.Get("result").Raw), a.now())
	}
}
