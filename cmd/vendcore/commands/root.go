// Package commands implements the vendcore CLI.
package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"vendcore/internal/config"
	"vendcore/internal/core"
)

var (
	// Global flags
	storageDriver string
	sqlitePath    string
	jsonOutput    bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "vendcore",
	Short: "vendcore - vending machine inventory and maintenance tracking",
	Long: `vendcore tracks vending machines across buildings: what each machine
stocks, when items were restocked, and when machines were last serviced.

State lives in an embedded snapshot store (SQLite by default), so the CLI
works offline with no external services.`,
	Version: "1.2.0",
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&storageDriver, "storage", "", "Storage driver: sqlite or memory (default from env)")
	rootCmd.PersistentFlags().StringVar(&sqlitePath, "db", "", "SQLite database file (default from env)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
}

// openService builds the service from environment configuration with flag
// overrides applied. The returned closer flushes the sqlite handle.
func openService() (*core.Service, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	driver := cfg.Storage.Driver
	if storageDriver != "" {
		driver = storageDriver
	}
	path := cfg.Storage.SQLitePath
	if sqlitePath != "" {
		path = sqlitePath
	}
	store, err := core.OpenPersistentStore(core.StorageOptions{
		Driver:     core.StorageDriver(driver),
		SQLitePath: path,
	}, core.NewDefaultRulesEngine())
	if err != nil {
		return nil, nil, err
	}
	svc := core.NewService(store)
	closer := func() {
		if c, ok := store.(io.Closer); ok {
			_ = c.Close()
		}
	}
	return svc, closer, nil
}
