package commands

import (
	"context"
	"fmt"
	"os"

	"simpus/config"
	"simpus/store"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	dbDriver string
	dbURL    string

	cfg config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "simpus",
	Short: "SIMPUS - library management backend",
	Long: `SIMPUS serves the library REST API (catalog, borrowing, orders, reviews,
communities and notifications) and ships the maintenance commands around it.

Configuration is read from the environment (DB_DRIVER, DB_URL, JWT_SECRET, ...);
the --db-driver and --db-url flags override it.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = config.Load()
		if dbDriver != "" {
			cfg.DBDriver = dbDriver
		}
		if dbURL != "" {
			cfg.DBURL = dbURL
		}
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbDriver, "db-driver", "", "Database driver: mysql, postgres or sqlite3 (overrides DB_DRIVER)")
	rootCmd.PersistentFlags().StringVar(&dbURL, "db-url", "", "Full database DSN (overrides DB_URL)")
}

// openStore connects to the configured database and makes sure the schema
// exists.
func openStore(ctx context.Context) (*store.Store, error) {
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}
	st, err := store.Open(cfg.DBDriver, dsn)
	if err != nil {
		return nil, err
	}
	if err := st.InitSchema(ctx); err != nil {
		st.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return st, nil
}
