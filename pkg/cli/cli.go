package cli

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/formulary-lab/rxquery/pkg/cli/config"
	"github.com/formulary-lab/rxquery/pkg/utils/errutil"
	"github.com/formulary-lab/rxquery/pkg/utils/logging"
)

func Run(ctx context.Context, args []string, version string) error {
	var loggerCfg config.Logger
	var closer func()

	app := &cli.Command{
		Name:    "rxquery",
		Usage:   "Formulary drug question-answering service",
		Version: version,
		Flags:   loggerCfg.Flags(),
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			f, err := loggerCfg.Configure()
			if err != nil {
				return ctx, err
			}
			closer = f

			logging.Default().Info("Starting rxquery", "logger", loggerCfg)
			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			if closer != nil {
				closer()
			}
			return nil
		},
		Commands: []*cli.Command{
			cmdServe(),
			cmdChat(),
			cmdIngest(),
			cmdStats(),
		},
	}

	return errutil.Handle(ctx, app.Run(ctx, args), "failed to run app")
}
