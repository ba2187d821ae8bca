// Command deals-backend ingests deal posts from channel feeds, serves the
// deal listing and counts outbound clicks.
//
// @title       Deals Backend API
// @version     1.0
// @description Deal-message ingestion, click counting and cursor-paginated listing.
// @BasePath    /api/v1
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "deals-backend",
		Short:         "Deal feed ingestion, listing API and click counting",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadEnv(envFile)
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env", ".env", "optional .env file; real environment variables win")

	root.AddCommand(serveCmd(), flushCmd(), migrateCmd(), classifyCmd())
	return root
}

// loadEnv loads path without overriding variables already set. A missing
// file is not an error.
func loadEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}
