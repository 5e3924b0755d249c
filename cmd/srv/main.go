package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := InitializeApp(ctx)
	if err != nil {
		logrus.WithError(err).Fatal("failed to initialize")
	}

	a.Log.WithFields(logrus.Fields{
		"assets":   a.Config.AssetNames,
		"provider": a.Config.CandleProvider,
		"signer":   a.Config.Signer,
	}).Info("starting oracle signer")

	if err := a.Run(ctx); err != nil {
		a.Log.WithError(err).Fatal("server stopped")
	}
	a.Log.Info("shutdown complete")
}
