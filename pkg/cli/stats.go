package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/formulary-lab/rxquery/pkg/cli/config"
	"github.com/formulary-lab/rxquery/pkg/repository/formulary"
)

func cmdStats() *cli.Command {
	var sourceCfg config.Source

	return &cli.Command{
		Name:  "stats",
		Usage: "Print statistics for the cached formulary",
		Flags: sourceCfg.Flags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			settings, err := sourceCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to resolve source configuration")
			}

			store, err := formulary.Load(settings.RecordsPath)
			if err != nil {
				return err
			}

			stats := store.Stats()
			fmt.Printf("Source: %s\n", settings.Source.Name)
			fmt.Printf("Total drugs: %d\n\n", stats.TotalDrugs)

			fmt.Println("Categories:")
			printCounts(stats.Categories)
			fmt.Println("\nStatuses:")
			printCounts(stats.Statuses)

			return nil
		},
	}
}

func printCounts(counts map[string]int) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		fmt.Printf("  %-50s %d\n", k, counts[k])
	}
}
