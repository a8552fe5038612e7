package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/formulary-lab/rxquery/pkg/cli/config"
)

var (
	promptColor = color.New(color.FgCyan, color.Bold)
	answerColor = color.New(color.FgGreen)
	errorColor  = color.New(color.FgRed)
)

func cmdChat() *cli.Command {
	var sourceCfg config.Source
	var geminiCfg config.Gemini

	flags := append(sourceCfg.Flags(), geminiCfg.Flags()...)

	return &cli.Command{
		Name:    "chat",
		Aliases: []string{"c"},
		Usage:   "Ask formulary questions interactively",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			settings, err := sourceCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to resolve source configuration")
			}

			uc, err := buildPipeline(ctx, settings, &geminiCfg)
			if err != nil {
				return err
			}

			fmt.Printf("Loaded %d drugs from %s. Type 'exit' to quit.\n\n", uc.Corpus.Count(), settings.Source.Name)

			scanner := bufio.NewScanner(os.Stdin)
			for {
				promptColor.Print("Enter your question: ")
				if !scanner.Scan() {
					break
				}

				question := strings.TrimSpace(scanner.Text())
				if question == "" {
					continue
				}
				if strings.EqualFold(question, "exit") {
					fmt.Println("Goodbye!")
					break
				}

				answer, err := uc.Query.Ask(ctx, question)
				if err != nil {
					// Errors never terminate the loop
					errorColor.Printf("Error: %s\n\n", err.Error())
					continue
				}

				answerColor.Printf("\n%s\n\n", answer.Text)
			}

			return scanner.Err()
		},
	}
}
