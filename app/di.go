// Package app wires configuration, candle providers, signers and the
// transports into a runnable service.
package app

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/yitech/harbinger/adapter"
	"github.com/yitech/harbinger/adapter/binance"
	"github.com/yitech/harbinger/adapter/bybit"
	"github.com/yitech/harbinger/adapter/coinbase"
	"github.com/yitech/harbinger/adapter/gemini"
	"github.com/yitech/harbinger/adapter/kraken"
	"github.com/yitech/harbinger/adapter/okx"
	"github.com/yitech/harbinger/aggregator"
	"github.com/yitech/harbinger/config"
	"github.com/yitech/harbinger/metrics"
	"github.com/yitech/harbinger/oracle"
	"github.com/yitech/harbinger/server"
	"github.com/yitech/harbinger/signer"
)

// EnvFile is read into the environment by ProvideConfig when present.
const EnvFile = ".env"

// ProvideConfig loads config from the environment (for Wire).
func ProvideConfig() (*config.Config, error) {
	return config.Load(EnvFile)
}

// ProvideLogger builds the process logger (for Wire).
func ProvideLogger(cfg *config.Config) *logrus.Logger {
	return NewLogger(cfg)
}

// ProvideMetrics creates the Prometheus collectors (for Wire).
func ProvideMetrics() *metrics.Metrics {
	return metrics.New()
}

// ProvideAdapter creates the candle provider named by CANDLE_PROVIDER (for Wire).
func ProvideAdapter(cfg *config.Config, log *logrus.Logger) (adapter.Adapter, error) {
	if cfg.CandleProvider != config.Aggregate {
		return newAdapter(cfg.CandleProvider, cfg, log)
	}

	sources := make([]adapter.Adapter, 0, len(cfg.Sources))
	for _, name := range cfg.Sources {
		a, err := newAdapter(name, cfg, log)
		if err != nil {
			return nil, err
		}
		sources = append(sources, a)
	}
	return aggregator.New(log.WithField("provider", "aggregate"), sources...), nil
}

// ProvideSigner connects to the signing custodian named by SIGNER and
// resolves its public key (for Wire).
func ProvideSigner(ctx context.Context, cfg *config.Config) (signer.Signer, error) {
	switch cfg.Signer {
	case config.SignerAzure:
		return signer.NewAzure(ctx, signer.AzureConfig{
			VaultURL:   cfg.Azure.VaultURL,
			KeyName:    cfg.Azure.KeyName,
			KeyVersion: cfg.Azure.KeyVersion,
		})
	case config.SignerRemote:
		return signer.NewRemote(ctx, signer.RemoteConfig{
			BaseURL:   cfg.Remote.URL,
			ServiceID: cfg.Remote.ServiceID,
			Timeout:   cfg.UpstreamTimeout,
		})
	case config.SignerLocal:
		return signer.NewLocal(cfg.LocalSecretKey)
	}
	return nil, fmt.Errorf("app: unknown signer %q", cfg.Signer)
}

// ProvideOracle builds the signing pipeline (for Wire).
func ProvideOracle(cfg *config.Config, a adapter.Adapter, s signer.Signer, log *logrus.Logger, m *metrics.Metrics) (*oracle.Service, error) {
	return oracle.New(cfg.AssetNames, a, s,
		oracle.WithLogger(log),
		oracle.WithMetrics(m),
		oracle.WithConcurrency(cfg.FetchConcurrency),
	)
}

// ProvideHTTPServer creates the HTTP entry point (for Wire).
func ProvideHTTPServer(svc *oracle.Service, log *logrus.Logger, m *metrics.Metrics) *server.Server {
	return server.New(svc, log, m)
}

func newAdapter(name string, cfg *config.Config, log *logrus.Logger) (adapter.Adapter, error) {
	ov := cfg.Override(name)
	opts := adapter.ClientOptions{Timeout: cfg.UpstreamTimeout, RequestsPerSecond: cfg.UpstreamRPS}
	if ov.Timeout > 0 {
		opts.Timeout = ov.Timeout
	}
	if ov.RequestsPerSecond > 0 {
		opts.RequestsPerSecond = ov.RequestsPerSecond
	}
	plog := log.WithField("provider", name)

	var a adapter.Adapter
	switch name {
	case config.Coinbase:
		policy := adapter.RetryPolicy{MaxAttempts: cfg.RetryMaxAttempts, Backoff: cfg.RetryBackoff}
		if ov.Retry != nil {
			policy = adapter.RetryPolicy{MaxAttempts: ov.Retry.MaxAttempts, Backoff: ov.Retry.Backoff}
		}
		cb, err := coinbase.New(coinbase.Config{
			BaseURL: ov.BaseURL,
			Credentials: coinbase.Credentials{
				KeyID:      cfg.Coinbase.KeyID,
				Secret:     cfg.Coinbase.Secret,
				Passphrase: cfg.Coinbase.Passphrase,
			},
			Retry:  &policy,
			Client: opts,
			Logger: plog,
		})
		if err != nil {
			return nil, err
		}
		return cb, nil
	case config.Binance:
		a = binance.New(binance.Config{BaseURL: ov.BaseURL, Client: opts})
	case config.BinanceWS:
		a = binance.NewWS(binance.WSConfig{URL: ov.BaseURL, Timeout: opts.Timeout})
	case config.Gemini:
		a = gemini.New(gemini.Config{BaseURL: ov.BaseURL, Client: opts})
	case config.Kraken:
		a = kraken.New(kraken.Config{BaseURL: ov.BaseURL, Client: opts})
	case config.OKX:
		a = okx.New(okx.Config{BaseURL: ov.BaseURL, Client: opts})
	case config.Bybit:
		a = bybit.New(bybit.Config{BaseURL: ov.BaseURL, Client: opts})
	default:
		return nil, fmt.Errorf("app: unknown candle provider %q", name)
	}

	if ov.Retry != nil {
		a = adapter.WithRetry(a, adapter.RetryPolicy{MaxAttempts: ov.Retry.MaxAttempts, Backoff: ov.Retry.Backoff}, plog)
	}
	return a, nil
}
