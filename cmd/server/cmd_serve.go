package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/UkralStul/post-comments/internal/dataloader"
	"github.com/UkralStul/post-comments/internal/logging"
	"github.com/UkralStul/post-comments/internal/metrics"
	"github.com/UkralStul/post-comments/internal/thread"
	"github.com/UkralStul/post-comments/web"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the web front-end",
		Action: func(ctx context.Context, c *cli.Command) error {
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := a.newService(ctx)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	rec := metrics.New(reg)

	pages := thread.NewRegistry(svc, rec, logging.Component(a.logger, "thread"))
	handler := &web.Handler{
		Service: svc,
		Loader: dataloader.NewPostLoader(svc, dataloader.Options{
			Wait:          a.cfg.Loader.Wait,
			BatchCapacity: a.cfg.Loader.BatchCapacity,
		}),
		Pages:         pages,
		ViewerCookie:  a.cfg.Remote.ViewerCookie,
		DefaultViewer: a.cfg.Viewer.DefaultUserID,
		Logger:        logging.Component(a.logger, "web"),
		Gatherer:      reg,
	}

	srv := &http.Server{
		Addr:         a.cfg.Server.Addr,
		Handler:      handler.Routes(),
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		pages.RunSweeper(gctx, a.cfg.Pages.SweepInterval, a.cfg.Pages.TTL)
		return nil
	})

	g.Go(func() error {
		a.logger.Info().Str("addr", srv.Addr).Str("remote", a.cfg.Remote.Kind).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err := srv.Shutdown(shutdownCtx)
		pages.CloseAll()
		return err
	})

	return g.Wait()
}
