package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	dbPath   string
	noSync   bool
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "tinycask",
	Short: "An embedded, single-file, append-only key-value store",
	Long: `tinycask is a minimal log-structured key-value store in the
Bitcask tradition: every write is appended to a single data file and an
in-memory index, rebuilt by replaying the file on startup, maps each
live key to the offset of its most recent entry.`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "tinycask.db", "Path to the database file")
	rootCmd.PersistentFlags().BoolVar(&noSync, "no-sync", false, "Do not fsync after every append (faster, loses the crash guarantee)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(delCmd)
	rootCmd.AddCommand(keysCmd)
}
