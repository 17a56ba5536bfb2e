package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/use-agent/webextract/api/handler"
	"github.com/use-agent/webextract/app"
	"github.com/use-agent/webextract/config"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "webextract",
		Short: "Extract the title and article text of a web page",
		Long: `webextract fetches a page with the cheapest method that works and
returns its title and cleaned body text. It escalates from a plain HTTP
request to a readability pass, then to a headless browser without and
finally with JavaScript.`,
		SilenceUsage: true,
	}
	root.AddCommand(newExtractCmd(), newServeCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "webextract version %s\n", handler.Version)
		},
	}
}

// loadApp reads configuration and builds the extraction stack. Logs go to
// stderr so stdout stays clean for results.
func loadApp(cmd *cobra.Command) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	app.InitLogger(cfg.Log, cmd.ErrOrStderr())
	return app.New(cfg)
}
