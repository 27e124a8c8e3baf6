package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/tinycask/tinycask/internal/engine"
	"github.com/tinycask/tinycask/internal/kverr"
	"github.com/tinycask/tinycask/internal/shared"
)

// The one-shot subcommands use the engine directly as an embedded
// caller: open, replay, operate, close.

var getCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print the value stored for a key",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withEngine(func(db *engine.Engine) error {
			value, err := db.Get(args[0])
			if err != nil {
				return err
			}
			fmt.Println(string(value))
			return nil
		})
	},
}

var setCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Store a value for a key",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		withEngine(func(db *engine.Engine) error {
			return db.Set(args[0], []byte(args[1]))
		})
	},
}

var delCmd = &cobra.Command{
	Use:   "del <key>",
	Short: "Delete a key",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withEngine(func(db *engine.Engine) error {
			return db.Delete(args[0])
		})
	},
}

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List all live keys",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		withEngine(func(db *engine.Engine) error {
			keys := db.Keys()
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Println(k)
			}
			return nil
		})
	},
}

// withEngine opens the database, runs fn, and closes again. NOT_FOUND
// exits with status 1 and a short message rather than an error dump.
func withEngine(fn func(*engine.Engine) error) {
	logger := shared.NewLogger(shared.ParseLevel(logLevel))

	opts := engine.DefaultOptions()
	opts.SyncOnAppend = !noSync
	opts.Logger = logger

	db, err := engine.Open(dbPath, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open database %s: %v\n", dbPath, err)
		os.Exit(1)
	}
	defer db.Close()

	if err := fn(db); err != nil {
		if kverr.IsNotFound(err) {
			fmt.Fprintln(os.Stderr, "key not found")
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		db.Close()
		os.Exit(1)
	}
}
