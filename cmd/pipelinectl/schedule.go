package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"PodcastStudio-admin/internal/app"
	"PodcastStudio-admin/internal/models"
	"PodcastStudio-admin/internal/services"
)

var (
	scheduleStart   string
	scheduleOut     string
	schedulePlan    string
	scheduleConfirm bool
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule <episode-id>",
	Short: "Propose a 7-day publication calendar for an episode's approved content",
	Long: "Asks the planner for a calendar over the approved pieces. The plan is printed (or written to --out); " +
		"pass --confirm to persist it immediately.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var start time.Time
		if scheduleStart != "" {
			t, ok := services.ParseScheduleTime(scheduleStart, time.UTC)
			if !ok {
				return fmt.Errorf("--start must be an ISO-8601 datetime")
			}
			start = t
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			plan, err := a.Schedule.SuggestSchedule(ctx, args[0], start)
			if err != nil {
				return err
			}
			if scheduleOut != "" {
				data, err := json.MarshalIndent(plan, "", "  ")
				if err != nil {
					return fmt.Errorf("encoding plan: %w", err)
				}
				if err := os.WriteFile(scheduleOut, data, 0o644); err != nil {
					return fmt.Errorf("writing plan: %w", err)
				}
			}
			if !scheduleConfirm {
				return printJSON(cmd, plan)
			}
			posts, err := a.Schedule.ConfirmSchedule(ctx, plan)
			if err != nil {
				return err
			}
			return printJSON(cmd, posts)
		})
	},
}

var confirmCmd = &cobra.Command{
	Use:   "confirm",
	Short: "Persist a reviewed schedule plan from a JSON file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		data, err := os.ReadFile(schedulePlan)
		if err != nil {
			return fmt.Errorf("reading plan %s: %w", schedulePlan, err)
		}
		var plan []models.ScheduleProposal
		if err := json.Unmarshal(data, &plan); err != nil {
			return fmt.Errorf("decoding plan %s: %w", schedulePlan, err)
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			posts, err := a.Schedule.ConfirmSchedule(ctx, plan)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%d of %d entries scheduled\n", len(posts), len(plan))
			return printJSON(cmd, posts)
		})
	},
}

var publishDueCmd = &cobra.Command{
	Use:   "publish-due",
	Short: "Publish every scheduled post whose time has passed",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			published, err := a.Schedule.PublishDueItems(ctx, time.Now().UTC())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published %d post(s)\n", len(published))
			for _, id := range published {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		})
	},
}

func init() {
	scheduleCmd.Flags().StringVar(&scheduleStart, "start", "", "Calendar start (default: 24h from now)")
	scheduleCmd.Flags().StringVarP(&scheduleOut, "out", "o", "", "Also write the plan to this JSON file")
	scheduleCmd.Flags().BoolVar(&scheduleConfirm, "confirm", false, "Persist the proposed plan")

	confirmCmd.Flags().StringVarP(&schedulePlan, "plan", "p", "", "Plan JSON file (required)")
	markRequired(confirmCmd, "plan")
	scheduleCmd.AddCommand(confirmCmd)

	rootCmd.AddCommand(scheduleCmd, publishDueCmd)
}
