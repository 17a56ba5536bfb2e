package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/use-agent/webextract/engine"
	"github.com/use-agent/webextract/models"
)

type extractOptions struct {
	raw     bool
	maxTier int
}

func newExtractCmd() *cobra.Command {
	opts := &extractOptions{}
	cmd := &cobra.Command{
		Use:   "extract <url>",
		Short: "Extract one page and print the result",
		Long: `Extract one page and print a short report followed by the body text.
With --raw the result is printed as JSON instead.

The exit status is 0 whether or not extraction succeeded; the outcome is
in the printed result.`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(_ *cobra.Command, args []string) error {
			if opts.maxTier < engine.MinTier || opts.maxTier > engine.MaxTier {
				return fmt.Errorf("--max-tier must be between %d and %d", engine.MinTier, engine.MaxTier)
			}
			return models.ValidateURL(args[0])
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.Orchestrator.Extract(cmd.Context(), args[0], opts.maxTier)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), cmd.ErrOrStderr(), res, opts.raw)
		},
	}
	cmd.Flags().BoolVar(&opts.raw, "raw", false, "print the result as JSON")
	cmd.Flags().IntVar(&opts.maxTier, "max-tier", engine.MaxTier, "highest tier to try (1-4)")
	return cmd
}

// printResult writes the JSON document, or a human-readable report. A
// failed extraction's report goes to errw so w carries results only.
func printResult(w, errw io.Writer, res models.ExtractionResult, raw bool) error {
	if raw {
		_, err := fmt.Fprintln(w, res.ToJSON())
		return err
	}

	if !res.Success {
		_, err := fmt.Fprintf(errw, "Extraction failed: %s\nElapsed: %d ms\n", deref(res.Error), res.ElapsedMs)
		return err
	}

	_, err := fmt.Fprintf(w, "Title:   %s\nMethod:  %s\nLength:  %d chars\nElapsed: %d ms\n\n%s\n",
		deref(res.Title),
		*res.FetchMethod,
		res.ContentLength,
		res.ElapsedMs,
		deref(res.Body),
	)
	return err
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
