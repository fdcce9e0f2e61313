package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/storyloom/storyloom-server/internal/config"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("storyctl %s\n", config.Version)
		fmt.Printf("  Go: %s\n", runtime.Version())
	},
}
