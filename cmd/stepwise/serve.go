package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/aretw0/stepwise/pkg/adapters/http"
	"github.com/aretw0/stepwise/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve <flow.yaml>",
	Short: "Serve wizards over HTTP",
	Long: `Exposes the flow as a JSON API with server-sent events and Prometheus metrics.
SIGHUP reloads the external catalog file given with --catalog.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		catalogPath, _ := cmd.Flags().GetString("catalog")
		if cmd.Flags().Changed("port") {
			cfg.Server.Port, _ = cmd.Flags().GetInt("port")
		}

		flow, provider, err := loadFlow(args[0], catalogPath, logger)
		if err != nil {
			return err
		}
		st, err := openStorage(cfg.Store, logger)
		if err != nil {
			return err
		}
		defer st.close()

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics := observability.NewMetrics(reg)

		a := &app{
			flow:     flow,
			provider: provider,
			storage:  st,
			hooks:    observability.Chain(metrics.Hooks(), observability.LogHooks(logger)),
		}
		server := httpadapter.NewServer(a.newWizard,
			httpadapter.WithLogger(logger),
			httpadapter.WithMetrics(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})),
		)
		defer server.Close()

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
			Handler: server.Routes(),
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			logger.Info("server listening", "addr", srv.Addr, "flow", flow.Name)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("graceful shutdown did not complete", "timeout", cfg.Server.ShutdownTimeout, "error", err)
				return srv.Close()
			}
			logger.Info("server stopped")
			return nil
		})
		if catalogPath != "" {
			g.Go(func() error {
				reloadOnHangup(gctx, provider)
				return nil
			})
		}
		return g.Wait()
	},
}

type reloader interface {
	Reload() error
}

func reloadOnHangup(ctx context.Context, r reloader) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := r.Reload(); err != nil {
				logger.Error("catalog reload failed", "error", err)
				continue
			}
			logger.Info("catalog reloaded")
		}
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on (overrides server.port)")
	serveCmd.Flags().String("catalog", "", "Catalog file replacing the one inside the flow")
}
