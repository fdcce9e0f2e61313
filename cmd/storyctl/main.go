// Package main provides storyctl, a command line tool for inspecting and
// repairing a Storyloom data store while the server is stopped.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
