package main

import (
	"github.com/spf13/cobra"
)

var (
	addrFlag        string
	databaseURLFlag string
)

var rootCmd = &cobra.Command{
	Use:          "notes-api",
	Short:        "HTTP service for short text notes",
	Long:         `notes-api stores notes in PostgreSQL or SQLite and serves them over a JSON API with substring search.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&addrFlag, "addr", "", "listen address, overrides HTTP_ADDR")
	rootCmd.PersistentFlags().StringVar(&databaseURLFlag, "database-url", "", "database url, overrides DATABASE_URL")
}
