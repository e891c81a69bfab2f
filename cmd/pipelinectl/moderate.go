package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"PodcastStudio-admin/internal/app"
	"PodcastStudio-admin/internal/services"
)

var (
	moderatePiece   string
	moderateEpisode string
	moderateAll     bool
)

var moderateCmd = &cobra.Command{
	Use:   "moderate",
	Short: "Score pending content against the quality rubric",
	Long:  "Moderates one piece (--piece), every pending piece of an episode (--episode) or every pending piece (--all).",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			var (
				out any
				err error
			)
			switch {
			case moderatePiece != "":
				out, err = a.Moderation.ModeratePiece(ctx, moderatePiece)
			case moderateEpisode != "":
				out, err = a.Moderation.ModerateEpisode(ctx, moderateEpisode)
			case moderateAll:
				out, err = a.Moderation.ModerateAllPending(ctx)
			default:
				return errors.New("one of --piece, --episode or --all is required")
			}
			if errors.Is(err, services.ErrAlreadyModerated) {
				cmd.PrintErrln("piece was already moderated; nothing to do")
				return nil
			}
			if err != nil {
				return err
			}
			return printJSON(cmd, out)
		})
	},
}

func init() {
	moderateCmd.Flags().StringVar(&moderatePiece, "piece", "", "Content piece id")
	moderateCmd.Flags().StringVar(&moderateEpisode, "episode", "", "Episode id")
	moderateCmd.Flags().BoolVar(&moderateAll, "all", false, "Moderate every pending piece")
	moderateCmd.MarkFlagsMutuallyExclusive("piece", "episode", "all")
	rootCmd.AddCommand(moderateCmd)
}
