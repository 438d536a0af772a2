// Package main is the runnable entry point: a thin cobra CLI exposing
// serve/migrate/version, wired against lifecycle.Sequencer.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tierforge/tierserve/config"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:     "tierserve",
	Short:   "Multi-tier model-serving framework",
	Long:    "tierserve exposes a schema's cache/search/database tiers as a gated REST API.",
	Version: buildVersion,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: ./config.ini)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")
	cobra.OnInitialize(func() {
		if cfgFile != "" {
			config.SetConfigFile(cfgFile)
		}
		if debug {
			_ = os.Setenv(config.LOGGER_LEVEL, "debug")
		}
	})

	rootCmd.AddCommand(serveCmd, migrateCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
