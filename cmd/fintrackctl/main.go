package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"fintrack/internal/cli"
	applog "fintrack/internal/log"
)

var (
	userID   string
	logLevel string
	rootCmd  = &cobra.Command{
		Use:   "fintrackctl",
		Short: "Inspect budgets from the configured fintrack storage",
		Long: `fintrackctl reads budgets, categories and transactions straight from the
storage backend configured for the fintrack server (DATA_BACKEND, SQLITE_DB_PATH)
and prints derived budget metrics for one user.`,
		SilenceUsage: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&userID, "user", "u", "", "user id whose budgets are read (required)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	_ = rootCmd.MarkPersistentFlagRequired("user")

	rootCmd.AddCommand(metricsCmd())
	rootCmd.AddCommand(summaryCmd())
	rootCmd.AddCommand(alertsCmd())
	rootCmd.AddCommand(exportCmd())
}

func main() {
	cli.LoadEnvFile()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, cli.ErrorStyle.Render(err.Error()))
		os.Exit(1)
	}
}

// logger is built on first use, after flags are parsed.
var logger = sync.OnceValue(func() *applog.Logger {
	return cli.SetupLogger(applog.ComponentCLI, logLevel)
})
