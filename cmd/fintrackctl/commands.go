package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"fintrack/internal/backend"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/services"
	"fintrack/internal/worker"
)

// openService builds a BudgetService over the configured storage. The
// returned cleanup releases the storage handle.
func openService(ctx context.Context) (*services.BudgetService, *config.Config, func() error, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, err
	}
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	// Reading never publishes events.
	backendCfg.AMQPURL = ""
	result, err := backend.NewFactory(logger()).CreateBackend(ctx, backendCfg)
	if err != nil {
		return nil, nil, nil, err
	}
	svc := services.NewBudgetService(result.Repository, services.WithLogger(logger()))
	return svc, cfg, result.Cleanup, nil
}

func metricsCmd() *cobra.Command {
	var sortByUse bool
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Show spend metrics for every active budget",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, _, cleanup, err := openService(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			metrics, err := svc.Metrics(cmd.Context(), userID, sortByUse)
			if err != nil {
				return fmt.Errorf("failed to derive metrics: %w", err)
			}
			return cli.RenderMetrics(cmd.OutOrStdout(), metrics)
		},
	}
	cmd.Flags().BoolVar(&sortByUse, "sort", false, "sort by utilization, highest first")
	return cmd
}

func summaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show totals across all active budgets",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, _, cleanup, err := openService(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			summary, err := svc.Summary(cmd.Context(), userID)
			if err != nil {
				return fmt.Errorf("failed to summarize budgets: %w", err)
			}
			return cli.RenderSummary(cmd.OutOrStdout(), summary)
		},
	}
}

func alertsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "alerts",
		Short: "List budgets that are over or close to their limit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, _, cleanup, err := openService(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			alerts, err := svc.Alerts(cmd.Context(), userID)
			if err != nil {
				return fmt.Errorf("failed to list alerts: %w", err)
			}
			return cli.RenderAlerts(cmd.OutOrStdout(), alerts)
		},
	}
}

func exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Write the budget report to Google Sheets now",
		Long: `Recomputes the user's budget metrics and writes the report the worker
would write after a change. Requires GOOGLE_SPREADSHEET_ID; without it the
report is built in memory and discarded.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, cfg, cleanup, err := openService(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			writer, err := backend.NewReportWriter(cmd.Context(), cfg, logger())
			if err != nil {
				return err
			}
			if err := worker.NewReportWorker(svc, writer, nil, logger()).Export(cmd.Context(), userID); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.SuccessStyle.Render("Report exported."))
			return nil
		},
	}
}
