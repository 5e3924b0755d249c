package adapter

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yitech/harbinger/model/candle"
)

// RetryPolicy bounds a provider-local retry loop around a single upstream call.
type RetryPolicy struct {
	MaxAttempts int           `yaml:"max_attempts"`
	Backoff     time.Duration `yaml:"backoff"`
}

// DefaultRetryPolicy matches the reference behaviour: 10 attempts, 1s apart.
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 10, Backoff: time.Second}

// Do calls fn until it succeeds or the attempt budget runs out. The first
// success wins; exhaustion yields a *CandleUnavailableError wrapping the last
// failure. Sleeping between attempts stops early if ctx is done.
func (p RetryPolicy) Do(ctx context.Context, log logrus.FieldLogger, assetName string, fn func(context.Context) (candle.Candle, error)) (candle.Candle, error) {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		log.WithFields(logrus.Fields{"asset": assetName, "attempt": i}).Debug("fetching candle")

		c, err := fn(ctx)
		if err == nil {
			return c, nil
		}
		lastErr = err
		log.WithFields(logrus.Fields{"asset": assetName, "attempt": i, "error": err}).Warn("candle fetch failed")

		if i == attempts-1 {
			break
		}
		select {
		case <-time.After(p.Backoff):
		case <-ctx.Done():
			return candle.Candle{}, &CandleUnavailableError{AssetName: assetName, Attempts: i + 1, Err: ctx.Err()}
		}
	}
	return candle.Candle{}, &CandleUnavailableError{AssetName: assetName, Attempts: attempts, Err: lastErr}
}

type retrying struct {
	Adapter
	policy RetryPolicy
	log    logrus.FieldLogger
}

// WithRetry wraps an adapter so every GetCandle call runs under policy.
func WithRetry(a Adapter, policy RetryPolicy, log logrus.FieldLogger) Adapter {
	return &retrying{Adapter: a, policy: policy, log: log}
}

func (r *retrying) GetCandle(ctx context.Context, assetName string) (candle.Candle, error) {
	return r.policy.Do(ctx, r.log, assetName, func(ctx context.Context) (candle.Candle, error) {
		return r.Adapter.GetCandle(ctx, assetName)
	})
}
