//go:build wireinject
// +build wireinject

package main

import (
	"context"

	"github.com/google/wire"

	"github.com/yitech/harbinger/app"
)

// InitializeApp builds the signing service and its transports via Wire.
func InitializeApp(ctx context.Context) (*app.App, error) {
	wire.Build(
		app.ProvideConfig,
		app.ProvideLogger,
		app.ProvideMetrics,
		app.ProvideAdapter,
		app.ProvideSigner,
		app.ProvideOracle,
		app.ProvideHTTPServer,
		wire.Struct(new(app.App), "Config", "Log", "Oracle", "HTTP"),
	)
	return nil, nil
}
