// Package coinbase provides candles from the authenticated Coinbase Pro
// (Exchange) REST API.
package coinbase

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/yitech/harbinger/adapter"
	"github.com/yitech/harbinger/model/candle"
)

const (
	baseURL            = "https://api.pro.coinbase.com"
	granularitySeconds = 60
)

// Credentials identify a Coinbase API key.
type Credentials struct {
	KeyID      string
	Secret     string // base64, as issued by Coinbase
	Passphrase string
}

// Config configures the Coinbase adapter.
type Config struct {
	BaseURL     string
	Credentials Credentials
	Retry       *adapter.RetryPolicy // nil means adapter.DefaultRetryPolicy
	Client      adapter.ClientOptions
	Logger      logrus.FieldLogger
	Now         func() time.Time
}

// Adapter is the Coinbase exchange adapter. The Coinbase API is known to
// be flaky, so every fetch runs under a retry policy.
type Adapter struct {
	baseURL string
	creds   Credentials
	secret  []byte
	retry   adapter.RetryPolicy
	client  *adapter.Client
	log     logrus.FieldLogger
	now     func() time.Time
}

// New validates the credentials and creates an adapter.
func New(cfg Config) (*Adapter, error) {
	if cfg.Credentials.KeyID == "" || cfg.Credentials.Secret == "" || cfg.Credentials.Passphrase == "" {
		return nil, errors.New("coinbase: api key id, secret and passphrase are required")
	}
	secret, err := base64.StdEncoding.DecodeString(cfg.Credentials.Secret)
	if err != nil {
		return nil, fmt.Errorf("coinbase: decode api secret: %w", err)
	}

	a := &Adapter{
		baseURL: cfg.BaseURL,
		creds:   cfg.Credentials,
		secret:  secret,
		retry:   adapter.DefaultRetryPolicy,
		client:  adapter.NewClient("coinbase", cfg.Client),
		log:     cfg.Logger,
		now:     cfg.Now,
	}
	if a.baseURL == "" {
		a.baseURL = baseURL
	}
	if cfg.Retry != nil {
		a.retry = *cfg.Retry
	}
	if a.log == nil {
		a.log = logrus.StandardLogger()
	}
	if a.now == nil {
		a.now = time.Now
	}
	return a, nil
}

func (a *Adapter) ProviderName() string {
	return a.baseURL
}

// GetCandle retrieves the latest candle, retrying per the configured policy.
func (a *Adapter) GetCandle(ctx context.Context, assetName string) (candle.Candle, error) {
	log := a.log.WithField("provider", "coinbase")
	return a.retry.Do(ctx, log, assetName, func(ctx context.Context) (candle.Candle, error) {
		return a.queryCandle(ctx, assetName)
	})
}

func (a *Adapter) queryCandle(ctx context.Context, assetName string) (candle.Candle, error) {
	path := requestPath(assetName)
	ts := strconv.FormatInt(a.now().Unix(), 10)

	header := http.Header{}
	header.Set("CB-ACCESS-KEY", a.creds.KeyID)
	header.Set("CB-ACCESS-SIGN", a.sign(ts, http.MethodGet, path))
	header.Set("CB-ACCESS-TIMESTAMP", ts)
	header.Set("CB-ACCESS-PASSPHRASE", a.creds.Passphrase)

	body, err := a.client.Get(ctx, a.baseURL+path, header)
	if err != nil {
		return candle.Candle{}, err
	}
	return parseCandles(assetName, body)
}

// sign computes the CB-ACCESS-SIGN header: base64(HMAC-SHA256(secret,
// timestamp + method + requestPath)).
func (a *Adapter) sign(timestamp, method, path string) string {
	mac := hmac.New(sha256.New, a.secret)
	mac.Write([]byte(timestamp + method + path))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func requestPath(assetName string) string {
	return fmt.Sprintf("/products/%s/candles?granularity=%d", assetName, granularitySeconds)
}

// parseCandles picks the most recent candle from a Coinbase candles array.
//
// Coinbase returns candles newest first, so element 0 is the most recent.
// Candle array layout (numbers):
//
//	[0] time   (Unix seconds, bucket start)
//	[1] low
//	[2] high
//	[3] open
//	[4] close
//	[5] volume
func parseCandles(assetName string, body []byte) (candle.Candle, error) {
	if !gjson.ValidBytes(body) {
		return candle.Candle{}, adapter.Malformed("coinbase", body, "invalid JSON")
	}
	rows := gjson.ParseBytes(body)
	if !rows.IsArray() || len(rows.Array()) == 0 {
		return candle.Candle{}, adapter.Malformed("coinbase", body, "no candles for %s", assetName)
	}

	r := rows.Array()[0].Array()
	if len(r) < 6 {
		return candle.Candle{}, adapter.Malformed("coinbase", body, "candle has %d fields, want 6", len(r))
	}
	start, err := adapter.IntField(r[0])
	if err != nil {
		return candle.Candle{}, adapter.Malformed("coinbase", body, "time: %v", err)
	}

	c, err := adapter.OHLCV{Low: r[1], High: r[2], Open: r[3], Close: r[4], Volume: r[5]}.
		Candle(assetName, start, start+granularitySeconds)
	if err != nil {
		return candle.Candle{}, adapter.Malformed("coinbase", body, "%v", err)
	}
	return c, nil
}
