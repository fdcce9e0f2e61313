package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/storyloom/storyloom-server/internal/config"
	"github.com/storyloom/storyloom-server/internal/di/providers"
	"github.com/storyloom/storyloom-server/internal/logger"
	"github.com/storyloom/storyloom-server/internal/store"
)

var (
	storageBackend string
	dataPath       string
	redisURL       string
	envFile        string
	outputFormat   string
)

var rootCmd = &cobra.Command{
	Use:   "storyctl",
	Short: "Inspect and repair Storyloom storage",
	Long: `storyctl opens the same store the server uses and lets you look at
collections and keys directly.

Stop the server first when using the badger or sqlite backends; both hold
an exclusive lock on their files.`,
	Version:       config.Version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&storageBackend, "storage", "", "storage backend: badger, sqlite, redis (default from STORAGE_BACKEND)",
	)
	rootCmd.PersistentFlags().StringVar(
		&dataPath, "data-path", "", "directory for local storage files (default from DATA_PATH)",
	)
	rootCmd.PersistentFlags().StringVar(
		&redisURL, "redis-url", "", "redis URL (default from REDIS_URL)",
	)
	rootCmd.PersistentFlags().StringVar(
		&envFile, "env-file", ".env", "path to .env file",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return setOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(collectionsCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(getCmd)
}

// openBackend resolves the storage config the way the server does, with
// command line flags taking precedence.
func openBackend() (store.Backend, error) {
	args := []string{"-env-file", envFile, "-ai-provider", config.ProviderNone}
	if storageBackend != "" {
		args = append(args, "-storage", storageBackend)
	}
	if dataPath != "" {
		args = append(args, "-data-path", dataPath)
	}
	if redisURL != "" {
		args = append(args, "-redis-url", redisURL)
	}

	cfg, err := config.Load(args)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.Storage.Backend == config.BackendMemory {
		return nil, fmt.Errorf("the memory backend has nothing to inspect")
	}

	return providers.OpenBackend(cfg.Storage, logger.Discard())
}
