package app

import (
	"context"
	"errors"
	"net"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/yitech/harbinger/config"
	"github.com/yitech/harbinger/oracle"
	"github.com/yitech/harbinger/rpc"
	"github.com/yitech/harbinger/server"
)

// App holds application dependencies built by Wire.
type App struct {
	Config *config.Config
	Log    *logrus.Logger
	Oracle *oracle.Service
	HTTP   *server.Server
}

// Run serves HTTP on HTTP_ADDR and, when GRPC_ADDR is set, gRPC, until ctx
// is done or either listener fails.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	httpLis, err := net.Listen("tcp", a.Config.HTTPAddr)
	if err != nil {
		return err
	}
	a.Log.WithField("addr", httpLis.Addr().String()).Info("http server listening")
	g.Go(func() error { return a.HTTP.Serve(ctx, httpLis) })

	if a.Config.GRPCAddr != "" {
		grpcLis, err := net.Listen("tcp", a.Config.GRPCAddr)
		if err != nil {
			httpLis.Close()
			return err
		}
		gs := grpc.NewServer(grpc.UnaryInterceptor(rpc.LoggingInterceptor(a.Log)))
		rpc.Register(gs, a.Oracle)

		a.Log.WithField("addr", grpcLis.Addr().String()).Info("grpc server listening")
		g.Go(func() error {
			if err := gs.Serve(grpcLis); !errors.Is(err, grpc.ErrServerStopped) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			gs.GracefulStop()
			return nil
		})
	}

	return g.Wait()
}
