package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"PodcastStudio-admin/internal/app"
	"PodcastStudio-admin/internal/models"
	"PodcastStudio-admin/internal/services"
)

var runContentTypes []string

var runCmd = &cobra.Command{
	Use:   "run <episode-id>",
	Short: "Run the full pipeline for an episode",
	Long: "Transcribes the episode when needed, analyzes keywords, runs the generation waterfall and, when " +
		"pipeline.autoModerate is set, moderates the results. Prints the final job as JSON.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		types, err := models.ParseContentTypes(runContentTypes)
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			job, err := a.Pipeline.Run(ctx, services.RunRequest{EpisodeID: args[0], ContentTypes: types})
			if job != nil {
				if perr := printJSON(cmd, job); perr != nil {
					return perr
				}
			}
			return err
		})
	},
}

var transcribeCmd = &cobra.Command{
	Use:   "transcribe <episode-id>",
	Short: "Transcribe an episode's media and store the transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			episode, err := a.Pipeline.TranscribeEpisode(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "episode %s transcribed: %d characters\n", episode.ID, len(episode.Transcript.String))
			return nil
		})
	},
}

var keywordsCmd = &cobra.Command{
	Use:   "keywords <episode-id>",
	Short: "Analyze keywords and topics from the stored transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			analysis, err := a.Pipeline.AnalyzeKeywords(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, analysis)
		})
	},
}

func init() {
	runCmd.Flags().StringSliceVarP(&runContentTypes, "types", "t", nil,
		"Content types to generate (article, blog, social, newsletter, clips, seo); defaults to the configured set")
	rootCmd.AddCommand(runCmd, transcribeCmd, keywordsCmd)
}
