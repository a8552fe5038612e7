package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/formulary-lab/rxquery/pkg/cli/config"
	httpctrl "github.com/formulary-lab/rxquery/pkg/controller/http"
	"github.com/formulary-lab/rxquery/pkg/utils/logging"
)

func cmdServe() *cli.Command {
	var addr string
	var sourceCfg config.Source
	var geminiCfg config.Gemini
	var sentryCfg config.Sentry

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("RXQUERY_ADDR"),
			Destination: &addr,
		},
	}
	flags = append(flags, sourceCfg.Flags()...)
	flags = append(flags, geminiCfg.Flags()...)
	flags = append(flags, sentryCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP API server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			sentryCloser, err := sentryCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to configure sentry")
			}
			defer sentryCloser()

			settings, err := sourceCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to resolve source configuration")
			}

			uc, err := buildPipeline(ctx, settings, &geminiCfg)
			if err != nil {
				return err
			}

			// Puts a sentry hub into every request context so 5xx
			// errors are captured per request
			sentryHandler := sentryhttp.New(sentryhttp.Options{Repanic: true})

			server := &http.Server{
				Addr:              addr,
				Handler:           httpctrl.New(uc, httpctrl.WithMiddleware(sentryHandler.Handle)),
				ReadHeaderTimeout: 30 * time.Second,
			}

			// Setup signal handling for graceful shutdown
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			errCh := make(chan error, 1)
			go func() {
				logging.Default().Info("Starting HTTP server",
					"addr", addr,
					"source", settings.Source.Name,
					"top_k", settings.TopK,
				)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				logging.Default().Info("Received shutdown signal", "signal", sig)

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}

				logging.Default().Info("Server shutdown completed")
				return nil
			}
		},
	}
}
