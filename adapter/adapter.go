package adapter

import (
	"context"

	"github.com/yitech/harbinger/model/candle"
)

// UserAgent is sent with every outbound request to a market-data source.
const UserAgent = "harbinger-signer"

// Adapter defines the contract for exchange market-data adapters.
// Each implementation talks to one upstream source and maps its response
// shape onto the canonical candle.Candle.
type Adapter interface {
	// ProviderName describes where candles are pulled from, usually the
	// source's base URL. It performs no I/O.
	ProviderName() string

	// GetCandle returns the most recently closed 60-second candle for
	// assetName (for instance "XTZ-USD").
	GetCandle(ctx context.Context, assetName string) (candle.Candle, error)
}
