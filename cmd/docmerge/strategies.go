// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/docmerge/internal/merge"
	"github.com/pdiddy/docmerge/pkg/types"
)

var strategiesCmd = &cobra.Command{
	Use:   "strategies",
	Short: "List merge strategies and whether they can run here",
	Long: `Strategies probes every merge strategy in preference order and reports
its fidelity and availability. With --strategy auto, merge uses the first
available strategy of the requested format.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log, closer, err := newLogger(types.LogConfig{Level: "error", Format: cfg.Log.Format})
		if err != nil {
			return err
		}
		defer closer.Close()

		m := merge.New(log, merge.DefaultStrategies())
		printStrategies(os.Stdout, m)
		return nil
	},
}

func printStrategies(w io.Writer, m *merge.Merger) {
	fmt.Fprintf(w, "%-14s  %-12s  %-10s  %s\n", "Format", "Strategy", "Fidelity", "Status")
	fmt.Fprintln(w, strings.Repeat("-", 70))

	for _, format := range []types.Format{types.FormatPresentation, types.FormatDocument} {
		strategies := m.Strategies(format)
		for i, p := range m.Probe(format) {
			status := "available"
			if !p.Available() {
				status = fmt.Sprintf("unavailable: %v", p.Err)
			}
			fmt.Fprintf(w, "%-14s  %-12s  %-10s  %s\n", format, p.Strategy, p.Fidelity, status)
			if !p.Available() {
				fmt.Fprintf(w, "%-14s  %-12s  %-10s  hint: %s\n", "", "", "", strategies[i].Remediation())
			}
		}
	}
}

func init() {
	rootCmd.AddCommand(strategiesCmd)
}
