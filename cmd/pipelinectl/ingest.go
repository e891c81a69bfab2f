package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"PodcastStudio-admin/internal/app"
	"PodcastStudio-admin/internal/services"
)

var (
	ingestTitle      string
	ingestPodcast    string
	ingestPodcastID  string
	ingestURL        string
	ingestFile       string
	ingestTranscript string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Register an episode from a media URL, a local audio file or a transcript",
	RunE: func(cmd *cobra.Command, _ []string) error {
		req := services.IngestRequest{
			PodcastID:    ingestPodcastID,
			PodcastTitle: ingestPodcast,
			Title:        ingestTitle,
			MediaURL:     ingestURL,
		}
		if ingestFile != "" {
			data, err := os.ReadFile(ingestFile)
			if err != nil {
				return fmt.Errorf("reading audio file: %w", err)
			}
			req.Audio = data
			req.FileName = filepath.Base(ingestFile)
		}
		if ingestTranscript != "" {
			text, err := os.ReadFile(ingestTranscript)
			if err != nil {
				return fmt.Errorf("reading transcript file: %w", err)
			}
			req.Transcript = string(text)
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			episode, err := a.Ingest.Ingest(ctx, req)
			if err != nil {
				return err
			}
			return printJSON(cmd, episode)
		})
	},
}

var importDirCmd = &cobra.Command{
	Use:   "import-dir <directory>",
	Short: "Register every audio file in a directory, using .txt sidecars as transcripts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			episodes, err := a.Ingest.ImportDirectory(ctx, args[0], ingestPodcastID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%d episode(s) registered\n", len(episodes))
			return printJSON(cmd, episodes)
		})
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestTitle, "title", "", "Episode title (required)")
	ingestCmd.Flags().StringVar(&ingestPodcast, "podcast", "", "Create a podcast with this title for the episode")
	ingestCmd.Flags().StringVar(&ingestPodcastID, "podcast-id", "", "Attach the episode to an existing podcast")
	ingestCmd.Flags().StringVar(&ingestURL, "url", "", "Media URL (direct audio file or hosting page)")
	ingestCmd.Flags().StringVar(&ingestFile, "file", "", "Local audio file to archive into media storage")
	ingestCmd.Flags().StringVar(&ingestTranscript, "transcript", "", "Text file holding an existing transcript")
	markRequired(ingestCmd, "title")
	ingestCmd.MarkFlagsMutuallyExclusive("podcast", "podcast-id")
	ingestCmd.MarkFlagsMutuallyExclusive("url", "file")

	importDirCmd.Flags().StringVar(&ingestPodcastID, "podcast-id", "", "Attach every episode to this podcast")

	rootCmd.AddCommand(ingestCmd, importDirCmd)
}
