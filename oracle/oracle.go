// Package oracle fetches candles for a fixed asset list, packs them into the
// layout the on-chain oracle contract verifies and signs them.
package oracle

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/yitech/harbinger/adapter"
	"github.com/yitech/harbinger/metrics"
	"github.com/yitech/harbinger/michelson"
	"github.com/yitech/harbinger/model/candle"
	"github.com/yitech/harbinger/signer"
)

// Response is the signed payload returned by Oracle.
type Response struct {
	Timestamp  int64             `json:"timestamp"`
	Messages   []string          `json:"messages"`
	Signatures []string          `json:"signatures"`
	Prices     map[string]string `json:"prices"`
}

// Info describes the feed a Service signs for.
type Info struct {
	DataFeed   string   `json:"dataFeed"`
	AssetNames []string `json:"assetNames"`
	PublicKey  string   `json:"publicKey"`
}

// Service composes a candle adapter and a signer over a fixed asset list.
// Its fields are never mutated after New, so one Service may serve
// concurrent requests.
type Service struct {
	assetNames  []string
	provider    adapter.Adapter
	signer      signer.Signer
	log         logrus.FieldLogger
	metrics     *metrics.Metrics
	concurrency int
}

type Option func(*Service)

// WithLogger sets the logger. Defaults to the logrus standard logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Service) { s.log = l }
}

// WithConcurrency bounds in-flight fetches and signatures. Zero or less
// means one per asset.
func WithConcurrency(n int) Option {
	return func(s *Service) { s.concurrency = n }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New validates its inputs and returns a Service. assetNames is copied and
// kept in the given order; duplicates are kept.
func New(assetNames []string, provider adapter.Adapter, s signer.Signer, opts ...Option) (*Service, error) {
	if len(assetNames) == 0 {
		return nil, &ConfigurationError{Field: "asset names", Reason: "list is empty"}
	}
	for i, name := range assetNames {
		if strings.TrimSpace(name) == "" {
			return nil, &ConfigurationError{Field: "asset names", Reason: fmt.Sprintf("entry %d is blank", i)}
		}
		if !printableASCII(name) {
			return nil, &ConfigurationError{Field: "asset names", Reason: fmt.Sprintf("entry %d (%q) is not printable ASCII", i, name)}
		}
	}
	if provider == nil {
		return nil, &ConfigurationError{Field: "candle provider", Reason: "missing"}
	}
	if s == nil {
		return nil, &ConfigurationError{Field: "signer", Reason: "missing"}
	}

	svc := &Service{
		assetNames: append([]string(nil), assetNames...),
		provider:   provider,
		signer:     s,
		log:        logrus.StandardLogger(),
	}
	for _, o := range opts {
		o(svc)
	}
	if svc.concurrency <= 0 {
		svc.concurrency = len(svc.assetNames)
	}
	return svc, nil
}

// printableASCII reports whether name can be written as a Michelson string
// literal.
func printableASCII(name string) bool {
	for i := 0; i < len(name); i++ {
		if name[i] < 0x20 || name[i] > 0x7e {
			return false
		}
	}
	return true
}

// Oracle fetches every asset, signs the packed candles and aggregates them.
// Assets whose fetch fails are logged and left out; packing and signing
// failures fail the whole call.
func (s *Service) Oracle(ctx context.Context) (*Response, error) {
	candles := s.fetchAll(ctx)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("oracle: fetch: %w", err)
	}

	packed := make([][]byte, len(candles))
	for i, c := range candles {
		b, err := michelson.Pack(Render(c), michelson.CandleSchema)
		if err != nil {
			return nil, fmt.Errorf("oracle: pack %s: %w", c.AssetName, err)
		}
		packed[i] = b
	}

	signatures, err := s.signAll(ctx, packed)
	if err != nil {
		return nil, err
	}

	resp := &Response{
		Messages:   make([]string, len(packed)),
		Signatures: signatures,
		Prices:     make(map[string]string, len(candles)),
	}
	for i, c := range candles {
		resp.Messages[i] = hex.EncodeToString(packed[i])
		resp.Timestamp = max(resp.Timestamp, c.StartTimestamp)
		resp.Prices[c.AssetName] = c.Midpoint().String()
	}
	return resp, nil
}

// Revoke signs the None key update that disables the oracle key on chain.
func (s *Service) Revoke(ctx context.Context) (string, error) {
	b, err := michelson.Pack(RevokeLiteral, michelson.RevokeSchema)
	if err != nil {
		return "", fmt.Errorf("oracle: pack revoke: %w", err)
	}
	return s.sign(ctx, b)
}

func (s *Service) Info() Info {
	return Info{
		DataFeed:   s.provider.ProviderName(),
		AssetNames: append([]string(nil), s.assetNames...),
		PublicKey:  s.signer.PublicKey(),
	}
}

// fetchAll returns the candles that could be fetched, in asset list order.
func (s *Service) fetchAll(ctx context.Context) []candle.Candle {
	results := make([]candle.Candle, len(s.assetNames))
	ok := make([]bool, len(s.assetNames))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, name := range s.assetNames {
		g.Go(func() error {
			c, err := s.provider.GetCandle(ctx, name)
			s.metrics.RecordCandleFetch(name, err == nil)
			if err != nil {
				s.log.WithFields(logrus.Fields{
					"asset":    name,
					"provider": s.provider.ProviderName(),
					"error":    err,
				}).Error("oracle: skipping asset")
				return nil
			}
			results[i], ok[i] = c, true
			return nil
		})
	}
	_ = g.Wait()

	out := make([]candle.Candle, 0, len(results))
	for i, c := range results {
		if ok[i] {
			out = append(out, c)
		}
	}
	return out
}

// signAll signs every message concurrently; signatures[i] belongs to msgs[i].
func (s *Service) signAll(ctx context.Context, msgs [][]byte) ([]string, error) {
	signatures := make([]string, len(msgs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, m := range msgs {
		g.Go(func() error {
			sig, err := s.sign(gctx, m)
			if err != nil {
				return err
			}
			signatures[i] = sig
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return signatures, nil
}

func (s *Service) sign(ctx context.Context, msg []byte) (string, error) {
	start := time.Now()
	sig, err := s.signer.Sign(ctx, msg)
	s.metrics.RecordSignature(err == nil, time.Since(start))
	if err != nil {
		return "", fmt.Errorf("oracle: sign: %w", err)
	}
	return sig, nil
}
