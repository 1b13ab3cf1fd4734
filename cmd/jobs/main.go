package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/yungbote/babycare-backend/internal/app"
	"github.com/yungbote/babycare-backend/internal/jobs"
	"github.com/yungbote/babycare-backend/internal/jobs/bus"
	"github.com/yungbote/babycare-backend/internal/platform/shutdown"
)

var rootCmd = &cobra.Command{
	Use:          "jobs",
	Short:        "Run or trigger babycare batch jobs",
	SilenceUsage: true,
}

var timelineCmd = &cobra.Command{
	Use:   "timeline-etl",
	Short: "Copy new pediatrician chats into the child symptom timeline",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runJob(cmd.Context(), jobs.TimelineETL)
	},
}

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Merge new chats into the per-intent history summaries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runJob(cmd.Context(), jobs.HistorySummarizer)
	},
}

var triggerCmd = &cobra.Command{
	Use:   "trigger <job>",
	Short: "Publish a trigger for a running API process",
	Long: `Publish a trigger on the job bus. The API process runs the job.

Set REDIS_ADDR so the trigger leaves this process.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			name := args[0]
			if !a.Services.JobRunner.Known(name) {
				return fmt.Errorf("%w: %s", jobs.ErrUnknownJob, name)
			}
			if a.Cfg.Redis.Addr == "" {
				a.Log.Warn("REDIS_ADDR not set, the trigger will not reach another process")
			}
			t := bus.Trigger{Job: name, Source: "cli", RequestID: uuid.NewString(), RequestedAt: time.Now().UTC()}
			if err := a.Clients.JobBus.Publish(ctx, t); err != nil {
				return fmt.Errorf("publish trigger: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "queued %s (request %s)\n", name, t.RequestID)
			return nil
		})
	},
}

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Run jobs as triggers arrive on the bus",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			if err := a.Services.JobRunner.Listen(ctx, a.Clients.JobBus); err != nil {
				return err
			}
			a.Log.Info("Listening for job triggers")
			<-ctx.Done()
			return nil
		})
	},
}

func runJob(ctx context.Context, name string) error {
	return withApp(ctx, func(ctx context.Context, a *app.App) error {
		res, err := a.Services.JobRunner.Run(ctx, name)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "%s: %s (rows_inserted=%d)\n", name, res.Status, res.RowsInserted)
		return nil
	})
}

func withApp(ctx context.Context, fn func(ctx context.Context, a *app.App) error) error {
	a, err := app.New(ctx)
	if err != nil {
		return err
	}
	defer func() {
		graceCtx, cancel := shutdown.Grace(a.Cfg.HTTP.ShutdownTimeout.Duration)
		defer cancel()
		a.Close(graceCtx)
	}()
	return fn(ctx, a)
}

func init() {
	rootCmd.AddCommand(timelineCmd, summarizeCmd, triggerCmd, listenCmd)
}

func main() {
	_ = godotenv.Load()

	ctx, stop := shutdown.NotifyContext(context.Background())
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
