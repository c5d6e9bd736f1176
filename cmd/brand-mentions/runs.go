// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/brand-mentions/internal/report"
	"github.com/pdiddy/brand-mentions/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect saved runs (list, show, export)",
	Long: `Runs reads the local SQLite database written by run --save. Use
subcommands to list runs, show one run's results, or export a run.`,
}

// --- list subcommand ---

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved runs, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		asJSON, _ := cmd.Flags().GetBool("json")
		return listRuns(cmd.Context(), st, os.Stdout, asJSON)
	},
}

func listRuns(ctx context.Context, st *store.Store, w io.Writer, asJSON bool) error {
	runs, err := st.ListRuns(ctx)
	if err != nil {
		return err
	}
	if asJSON {
		return report.FormatJSON(w, runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs saved.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tBRAND\tCOMPETITOR\tQUERIES\tREPEAT\tRESULTS\tFAILED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\n",
			r.ID, r.StartedAt.Local().Format(time.DateTime), r.Brand, r.Competitor,
			len(r.Queries), r.RepeatCount, r.Results, r.Failures)
	}
	return tw.Flush()
}

// --- show subcommand ---

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the summary and results of a saved run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		asJSON, _ := cmd.Flags().GetBool("json")
		verbose, _ := cmd.Flags().GetBool("results")
		return showRun(cmd.Context(), st, os.Stdout, args[0], asJSON, verbose)
	},
}

func showRun(ctx context.Context, st *store.Store, w io.Writer, id string, asJSON, verbose bool) error {
	doc, err := st.LoadExport(ctx, id)
	if err != nil {
		return err
	}
	if asJSON {
		return report.FormatJSON(w, doc)
	}

	r := doc.Run
	fmt.Fprintf(w, "Run %s\n", r.ID)
	fmt.Fprintf(w, "  brand:      %s\n", r.Brand)
	if r.Competitor != "" {
		fmt.Fprintf(w, "  competitor: %s\n", r.Competitor)
	}
	fmt.Fprintf(w, "  started:    %s\n", r.StartedAt.Local().Format(time.DateTime))
	fmt.Fprintf(w, "  queries:    %s\n", strings.Join(r.Queries, " | "))
	fmt.Fprintf(w, "  repeat:     %d\n", r.RepeatCount)
	fmt.Fprintf(w, "  results:    %d (%d failed)\n\n", r.Results, r.Failures)

	if err := report.FormatTable(w, r.Brand, r.Competitor, report.Summarize(doc.Results)); err != nil {
		return err
	}
	for _, f := range doc.Failures {
		fmt.Fprintf(w, "failed: %s %q: %s\n", f.Provider, f.Query, f.Error)
	}
	if verbose {
		fmt.Fprintln(w)
		return report.FormatResults(w, doc.Results)
	}
	return nil
}

// --- export subcommand ---

var runsExportCmd = &cobra.Command{
	Use:   "export <run-id>",
	Short: "Export a saved run to YAML or JSON",
	Long: `Export writes a run with all its results and failures to --output, or to
<data-dir>/exports/<run-id>.yaml (or .json) when no output is given.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		path, err := exportRun(cmd.Context(), st, args[0], format, output)
		if err != nil {
			return err
		}
		fmt.Printf("Exported to %s\n", path)
		return nil
	},
}

func exportRun(ctx context.Context, st *store.Store, id, format, output string) (string, error) {
	switch format {
	case "yaml", "":
		return st.ExportYAML(ctx, id, output)
	case "json":
		return st.ExportJSON(ctx, id, output)
	default:
		return "", fmt.Errorf("unsupported format %q: use yaml or json", format)
	}
}

// --- shared helpers ---

func openStore() (*store.Store, error) {
	cfg, err := loadAppConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}
	return store.NewStore(cfg.Store)
}

func init() {
	runsListCmd.Flags().Bool("json", false, "output as JSON")

	runsShowCmd.Flags().Bool("json", false, "output as JSON")
	runsShowCmd.Flags().Bool("results", false, "print every result")

	runsExportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	runsExportCmd.Flags().String("output", "", "output file path")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsExportCmd)

	rootCmd.AddCommand(runsCmd)
}
