package app

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yitech/harbinger/adapter"
	"github.com/yitech/harbinger/config"
	"github.com/yitech/harbinger/signer"
)

const localSecret = "0101010101010101010101010101010101010101010101010101010101010101"

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func testConfig() *config.Config {
	cfg := &config.Config{
		CandleProvider:   config.Gemini,
		Signer:           config.SignerLocal,
		LocalSecretKey:   localSecret,
		HTTPAddr:         "127.0.0.1:0",
		LogLevel:         "info",
		LogFormat:        "text",
		UpstreamTimeout:  time.Second,
		RetryMaxAttempts: 3,
		RetryBackoff:     time.Millisecond,
		AssetNames:       []string{"XTZ-USD"},
	}
	cfg.File.Providers = map[string]config.ProviderOverride{
		"gemini": {BaseURL: "http://gemini.test"},
		"kraken": {BaseURL: "http://kraken.test", Retry: &config.RetryConfig{MaxAttempts: 2, Backoff: time.Millisecond}},
		"okx":    {BaseURL: "http://okx.test"},
	}
	return cfg
}

func TestNewLogger(t *testing.T) {
	cfg := testConfig()
	cfg.LogLevel = "debug"
	cfg.LogFormat = "json"

	log := NewLogger(cfg)
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, log.Formatter)

	cfg.LogFormat = "text"
	assert.IsType(t, &logrus.TextFormatter{}, NewLogger(cfg).Formatter)
}

func TestProvideAdapter_Single(t *testing.T) {
	a, err := ProvideAdapter(testConfig(), quietLogger())
	require.NoError(t, err)
	assert.Equal(t, "http://gemini.test", a.ProviderName())
}

func TestProvideAdapter_RetryOverride(t *testing.T) {
	cfg := testConfig()
	cfg.CandleProvider = config.Kraken

	a, err := ProvideAdapter(cfg, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, "http://kraken.test", a.ProviderName())
}

func TestProvideAdapter_Aggregate(t *testing.T) {
	cfg := testConfig()
	cfg.CandleProvider = config.Aggregate
	cfg.Sources = []string{config.Gemini, config.OKX}

	a, err := ProvideAdapter(cfg, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, "aggregate(http://gemini.test,http://okx.test)", a.ProviderName())
}

func TestProvideAdapter_Unknown(t *testing.T) {
	cfg := testConfig()
	cfg.CandleProvider = "FTX"

	_, err := ProvideAdapter(cfg, quietLogger())
	assert.ErrorContains(t, err, `unknown candle provider "FTX"`)
}

func TestProvideSigner_Local(t *testing.T) {
	s, err := ProvideSigner(context.Background(), testConfig())
	require.NoError(t, err)
	assert.Equal(t, "sppk7bTVxYg1ZXwPumgFcid8rBBW443MCb5DHw6y3aq7dLcAKUMTa8S", s.PublicKey())
}

func TestProvideSigner_Unknown(t *testing.T) {
	cfg := testConfig()
	cfg.Signer = "HSM"

	_, err := ProvideSigner(context.Background(), cfg)
	assert.ErrorContains(t, err, `unknown signer "HSM"`)
}

func TestProvideOracle(t *testing.T) {
	cfg := testConfig()
	log := quietLogger()
	m := ProvideMetrics()

	a, err := ProvideAdapter(cfg, log)
	require.NoError(t, err)
	s, err := ProvideSigner(context.Background(), cfg)
	require.NoError(t, err)

	svc, err := ProvideOracle(cfg, a, s, log, m)
	require.NoError(t, err)
	info := svc.Info()
	assert.Equal(t, "http://gemini.test", info.DataFeed)
	assert.Equal(t, []string{"XTZ-USD"}, info.AssetNames)
	assert.Equal(t, s.PublicKey(), info.PublicKey)
}

type stubAdapter struct{ adapter.Adapter }

func (stubAdapter) ProviderName() string { return "stub" }

func TestApp_RunStopsOnCancel(t *testing.T) {
	cfg := testConfig()
	cfg.GRPCAddr = "127.0.0.1:0"
	log := quietLogger()
	m := ProvideMetrics()

	s, err := signer.NewLocal(localSecret)
	require.NoError(t, err)
	svc, err := ProvideOracle(cfg, stubAdapter{}, s, log, m)
	require.NoError(t, err)

	a := &App{Config: cfg, Log: log, Oracle: svc, HTTP: ProvideHTTPServer(svc, log, m)}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
