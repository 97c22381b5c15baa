// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/docmerge/internal/history"
	"github.com/pdiddy/docmerge/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "Show recent merge runs",
	Long: `History lists recent merge runs recorded in the history database,
newest first. Pass a run id to show one run with the outcome of each input.
Use --export to write the listed runs to a YAML file.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := history.NewStore(cfg.History)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	jsonOutput, _ := cmd.Flags().GetBool("json")

	if len(args) == 1 {
		run, err := store.Get(ctx, args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(os.Stdout, run)
		}
		printRun(os.Stdout, run)
		return nil
	}

	limit, _ := cmd.Flags().GetInt("limit")
	if exportPath, _ := cmd.Flags().GetString("export"); exportPath != "" {
		if err := store.ExportYAML(ctx, exportPath, limit); err != nil {
			return err
		}
		fmt.Printf("Exported to %s\n", exportPath)
		return nil
	}

	runs, err := store.Recent(ctx, limit)
	if err != nil {
		return err
	}
	if jsonOutput {
		if runs == nil {
			runs = []types.MergeResult{}
		}
		return writeJSON(os.Stdout, runs)
	}
	printRuns(os.Stdout, runs)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printRuns(w io.Writer, runs []types.MergeResult) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}

	fmt.Fprintf(w, "%-36s  %-19s  %-12s  %-10s  %-6s  %-6s  %s\n",
		"Run", "Started", "Format", "Status", "Inputs", "Units", "Output")
	fmt.Fprintln(w, strings.Repeat("-", 120))
	for _, r := range runs {
		fmt.Fprintf(w, "%-36s  %-19s  %-12s  %-10s  %-6s  %-6d  %s\n",
			r.ID, r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Format, r.Status,
			fmt.Sprintf("%d/%d", r.Merged(), len(r.Sources)), r.Units(), r.OutputPath)
	}
	fmt.Fprintf(w, "\n%d runs\n", len(runs))
}

func printRun(w io.Writer, r *types.MergeResult) {
	fmt.Fprintf(w, "Run:      %s\n", r.ID)
	fmt.Fprintf(w, "Started:  %s (%s)\n", r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Duration().Round(time.Millisecond))
	fmt.Fprintf(w, "Format:   %s\n", r.Format)
	if r.Strategy != "" {
		fmt.Fprintf(w, "Strategy: %s (%s fidelity)\n", r.Strategy, r.Fidelity)
	}
	fmt.Fprintf(w, "Status:   %s\n", r.Status)
	if r.OutputPath != "" {
		fmt.Fprintf(w, "Output:   %s (%d %s(s))\n", r.OutputPath, r.Units(), r.Format.Unit())
	}
	if r.Error != "" {
		fmt.Fprintf(w, "Error:    %s\n", r.Error)
	}
	if len(r.Sources) == 0 {
		return
	}

	fmt.Fprintln(w)
	for _, s := range r.Sources {
		line := fmt.Sprintf("%3d  %-7s  %s", s.Position+1, s.Status, filepath.Base(s.Path))
		if s.Failed() {
			line += ": " + s.Error
		} else {
			line += fmt.Sprintf(" (%d)", s.Units)
		}
		fmt.Fprintln(w, line)
	}
}

func init() {
	historyCmd.Flags().Int("limit", 20, "maximum runs to list (0 = all)")
	historyCmd.Flags().Bool("json", false, "output runs as JSON")
	historyCmd.Flags().String("export", "", "write the listed runs to this YAML file")

	rootCmd.AddCommand(historyCmd)
}
