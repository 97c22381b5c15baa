// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/docmerge/internal/history"
	"github.com/pdiddy/docmerge/internal/merge"
	"github.com/pdiddy/docmerge/pkg/types"
)

var errNothingToMerge = errors.New("nothing to merge")

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Merge every input document into one output file",
	Long: `Merge concatenates all presentations (*.ppt*) or PDF documents (*.pdf)
found in the input directory, in file-name order, into one output file.

Inputs that cannot be read are reported and skipped; the output holds the
slides or pages of every other input. With --strategy auto, presentation
merging uses PowerPoint automation when available and otherwise falls back
to the text-only library strategy.

Without --output the result is written to <output-dir>/<YYYYMMDDHHMMSS>.pptx
(or .pdf).`,
	RunE: runMerge,
}

func runMerge(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log, closer, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer closer.Close()

	opts := []merge.Option{merge.WithStatus(os.Stdout)}
	if store := openHistory(cfg.History, log); store != nil {
		defer store.Close()
		opts = append(opts, merge.WithRecorder(store))
	}

	m := merge.New(log, merge.DefaultStrategies(), opts...)
	result, err := m.Run(cmd.Context(), cfg.Merge)
	if err != nil {
		var depErr *merge.DependencyError
		if errors.As(err, &depErr) {
			fmt.Fprintf(os.Stderr, "To enable a %s strategy:\n%s\n", depErr.Format, depErr.Remediation())
		}
		return err
	}

	if result.Status == types.RunEmpty {
		return errNothingToMerge
	}
	if result.Fidelity == types.FidelityDegraded {
		fmt.Fprintln(os.Stdout, "note: text-only merge; formatting, images, layouts and notes were dropped")
	}
	if result.HasFailures() {
		fmt.Fprintf(os.Stdout, "note: %d input(s) skipped, see the log for details\n", result.Failed())
	}
	return nil
}

// openHistory opens the history store when enabled. A store that cannot be
// opened disables recording for this run.
func openHistory(cfg types.HistoryConfig, log *slog.Logger) *history.Store {
	if !cfg.Enabled {
		return nil
	}
	store, err := history.NewStore(cfg)
	if err != nil {
		log.Warn("merge history disabled", "path", cfg.Path, "error", err)
		return nil
	}
	return store
}

func init() {
	mergeCmd.Flags().StringP("format", "f", "presentation", "input format: presentation (ppt, pptx) or document (pdf)")
	mergeCmd.Flags().StringP("output", "o", "", "output file (default: <output-dir>/<timestamp>.<ext>)")
	mergeCmd.Flags().String("input-dir", "docs", "directory scanned for input documents")
	mergeCmd.Flags().String("output-dir", "output", "directory for timestamped output")
	mergeCmd.Flags().String("strategy", types.StrategyAuto, "merge strategy: auto, automation, library, or pdfcpu")
	mergeCmd.Flags().String("sort", "name", "input order: name or none (directory order)")

	_ = viper.BindPFlag("format", mergeCmd.Flags().Lookup("format"))
	_ = viper.BindPFlag("output_path", mergeCmd.Flags().Lookup("output"))
	_ = viper.BindPFlag("input_dir", mergeCmd.Flags().Lookup("input-dir"))
	_ = viper.BindPFlag("output_dir", mergeCmd.Flags().Lookup("output-dir"))
	_ = viper.BindPFlag("strategy", mergeCmd.Flags().Lookup("strategy"))
	_ = viper.BindPFlag("sort", mergeCmd.Flags().Lookup("sort"))

	rootCmd.AddCommand(mergeCmd)
}
