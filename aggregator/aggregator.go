// Package aggregator composes several candle adapters into one.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/yitech/harbinger/adapter"
	"github.com/yitech/harbinger/model/candle"
)

// Aggregator queries every source concurrently and merges the candles that
// cover the most recent period into one.
//
// Period semantics: sources can disagree on which minute closed last. Only
// candles sharing the latest StartTimestamp are merged; older ones are
// dropped. Failed sources are skipped; GetCandle only fails when every source
// failed.
type Aggregator struct {
	adapters []adapter.Adapter
	log      logrus.FieldLogger
}

// New creates an Aggregator backed by the given exchange adapters.
func New(log logrus.FieldLogger, adapters ...adapter.Adapter) *Aggregator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Aggregator{adapters: adapters, log: log}
}

// ProviderName lists the underlying sources, e.g. "aggregate(a,b)".
func (a *Aggregator) ProviderName() string {
	names := make([]string, len(a.adapters))
	for i, ad := range a.adapters {
		names[i] = ad.ProviderName()
	}
	return "aggregate(" + strings.Join(names, ",") + ")"
}

// GetCandle fetches assetName from every source and merges the results.
func (a *Aggregator) GetCandle(ctx context.Context, assetName string) (candle.Candle, error) {
	if len(a.adapters) == 0 {
		return candle.Candle{}, &adapter.CandleUnavailableError{
			AssetName: assetName,
			Err:       errors.New("aggregator: no sources configured"),
		}
	}

	candles := make([]candle.Candle, len(a.adapters))
	errs := make([]error, len(a.adapters))

	// Source failures are recorded per index, never returned to the group,
	// so one slow or failing exchange cannot cancel the others.
	var g errgroup.Group
	for i, ad := range a.adapters {
		g.Go(func() error {
			c, err := ad.GetCandle(ctx, assetName)
			if err != nil {
				a.log.WithFields(logrus.Fields{
					"asset":    assetName,
					"provider": ad.ProviderName(),
					"error":    err,
				}).Warn("aggregator: source failed")
				errs[i] = fmt.Errorf("%s: %w", ad.ProviderName(), err)
				return nil
			}
			candles[i] = c
			return nil
		})
	}
	_ = g.Wait()

	var ok []candle.Candle
	for i, c := range candles {
		if errs[i] == nil {
			ok = append(ok, c)
		}
	}
	if len(ok) == 0 {
		return candle.Candle{}, &adapter.CandleUnavailableError{
			AssetName: assetName,
			Attempts:  len(a.adapters),
			Err:       errors.Join(errs...),
		}
	}
	return merge(latest(ok)), nil
}

// latest keeps the candles whose period starts last, preserving order.
func latest(cs []candle.Candle) []candle.Candle {
	var newest int64
	for _, c := range cs {
		newest = max(newest, c.StartTimestamp)
	}
	var out []candle.Candle
	for _, c := range cs {
		if c.StartTimestamp == newest {
			out = append(out, c)
		}
	}
	return out
}

// merge combines same-period candles into one aggregated candle.
//   - Period : shared by all inputs
//   - Open   : from the first source in configuration order
//   - High   : max across sources
//   - Low    : min across sources
//   - Close  : from the last source in configuration order
//   - Volume : sum across sources
func merge(cs []candle.Candle) candle.Candle {
	agg := cs[0]
	for _, c := range cs[1:] {
		agg.High = max(agg.High, c.High)
		agg.Low = min(agg.Low, c.Low)
		agg.Volume += c.Volume
		agg.Close = c.Close
		agg.EndTimestamp = max(agg.EndTimestamp, c.EndTimestamp)
	}
	return agg
}
