package main

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	_ "net/http/pprof"

	"golang.org/x/sync/errgroup"

	"github.com/trezcool/examguard/apps/api/di"
	echoapi "github.com/trezcool/examguard/apps/api/echo"
	"github.com/trezcool/examguard/core"
	"github.com/trezcool/examguard/core/exam"
	metricsvc "github.com/trezcool/examguard/services/metrics"
	"github.com/trezcool/examguard/storage"
)

func main() {
	c := di.New(core.NewConfig)

	err := c.Invoke(func(
		conf *core.Config,
		logger core.Logger,
		stores *storage.Stores,
		metrics *metricsvc.Prometheus,
		sweeper *exam.Sweeper,
		server *echoapi.Server,
	) {
		// =========================================================================
		// Initialize App

		logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build), map[string]interface{}{
			"engine": conf.Database.Engine,
		})
		defer logger.Info("Application stopped")

		defer func() {
			if err := stores.Close(); err != nil {
				logger.Error("failed to close database", err)
			}
		}()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		g, gctx := errgroup.WithContext(ctx)

		// =========================================================================
		// Start Debug Service
		//
		// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
		// /debug/vars - Added to the default mux by importing the expvar package.
		// /metrics - Prometheus exposition of the exam metrics.

		// Expose important info under /debug/vars.
		expvar.NewString("build").Set(conf.Build)
		expvar.NewString("env").Set(conf.Env)
		http.DefaultServeMux.Handle("/metrics", metrics.Handler())

		debug := &http.Server{Addr: conf.Server.DebugHost, Handler: http.DefaultServeMux}
		g.Go(func() error {
			if err := debug.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			return debug.Close()
		})

		// =========================================================================
		// Start Expiry Sweeper

		g.Go(func() error {
			return sweeper.Run(gctx)
		})

		// =========================================================================
		// Start API Service

		go func() {
			server.Start()
		}()

		// =========================================================================
		// Shutdown

		select {
		case err := <-server.Errors():
			cancel()
			_ = g.Wait()
			logger.Fatal(fmt.Sprintf("server error: %v", err), err)

		case sig := <-server.ShutdownSignal():
			logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

			// give outstanding requests a deadline for completion
			sctx, scancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
			defer scancel()

			// asking listener to shut down and shed load
			if err := server.Shutdown(sctx); err != nil {
				logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

				if err = server.Close(); err != nil {
					logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
				}
			}
		}

		cancel()
		if err := g.Wait(); err != nil {
			logger.Error("background services stopped with error", err)
		}
	})
	if err != nil {
		panic(err)
	}
}
