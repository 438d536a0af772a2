package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/tierforge/tierserve/config"
)

// buildVersion is overridden at build time via:
//
//	go build -ldflags "-X main.buildVersion=1.2.3"
var buildVersion = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and build information",
	RunE: func(*cobra.Command, []string) error {
		fmt.Printf("tierserve %s (%s)\n", buildVersion, runtime.Version())
		if err := config.Init(); err == nil {
			fmt.Printf("app: %s  mode: %s\n", config.App.AppInfo.Name, config.App.AppInfo.Mode)
			config.Clean()
		}
		return nil
	},
}
