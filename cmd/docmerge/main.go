// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the docmerge CLI.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/docmerge/internal/history"
	"github.com/pdiddy/docmerge/internal/logging"
	"github.com/pdiddy/docmerge/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the docmerge CLI.
var rootCmd = &cobra.Command{
	Use:   "docmerge",
	Short: "Merge a directory of presentations or PDFs into one file",
	Long: `docmerge concatenates every presentation (*.ppt*) or PDF document in an
input directory into a single output file, in file-name order.

Presentations are merged through Microsoft PowerPoint when it can be
automated, preserving layouts and formatting. Otherwise docmerge falls back
to a built-in OOXML writer that keeps slide text only. PDF pages are copied
unchanged.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	viper.SetDefault("input_dir", "docs")
	viper.SetDefault("output_dir", "output")
	viper.SetDefault("format", string(types.FormatPresentation))
	viper.SetDefault("strategy", types.StrategyAuto)
	viper.SetDefault("sort", string(types.SortName))
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
	viper.SetDefault("log.dir", "logs")
	viper.SetDefault("history.enabled", true)
	viper.SetDefault("history.path", history.DefaultPath)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./docmerge.yaml or ~/.config/docmerge/docmerge.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "text", "log format: text or json")
	rootCmd.PersistentFlags().String("log-dir", "logs", "directory for per-run log files (empty disables)")

	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("log.dir", rootCmd.PersistentFlags().Lookup("log-dir"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("docmerge")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "docmerge"))
		}
	}

	viper.SetEnvPrefix("DOCMERGE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig resolves settings from flags, environment, config file and
// defaults, in that order of precedence.
func loadConfig() (types.Config, error) {
	format, err := types.ParseFormat(viper.GetString("format"))
	if err != nil {
		return types.Config{}, err
	}
	order, err := types.ParseSortOrder(viper.GetString("sort"))
	if err != nil {
		return types.Config{}, err
	}

	return types.Config{
		Merge: types.MergeConfig{
			InputDir:   viper.GetString("input_dir"),
			OutputDir:  viper.GetString("output_dir"),
			OutputPath: viper.GetString("output_path"),
			Format:     format,
			Strategy:   strings.ToLower(viper.GetString("strategy")),
			Sort:       order,
		},
		Log: types.LogConfig{
			Level:  viper.GetString("log.level"),
			Format: viper.GetString("log.format"),
			Dir:    viper.GetString("log.dir"),
		},
		History: types.HistoryConfig{
			Enabled: viper.GetBool("history.enabled"),
			Path:    viper.GetString("history.path"),
		},
	}, nil
}

// newLogger builds the logger for one command invocation. Callers must
// close the returned closer.
func newLogger(cfg types.LogConfig) (*slog.Logger, io.Closer, error) {
	return logging.New(cfg, os.Stderr, time.Now())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
