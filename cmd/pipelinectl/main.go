// Package main implements pipelinectl, the operator CLI for the episode content pipeline.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"PodcastStudio-admin/internal/app"
	"PodcastStudio-admin/internal/config"
)

var (
	configDir  string
	configName string
)

var rootCmd = &cobra.Command{
	Use:   "pipelinectl",
	Short: "Operate the podcast episode content pipeline",
	Long: "pipelinectl runs the episode content pipeline stages (transcription, keyword analysis, generation, " +
		"moderation, scheduling and publishing) against the configured database without the HTTP service.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "./configs", "Directory holding the YAML config")
	rootCmd.PersistentFlags().StringVar(&configName, "config-name", "config", "Config file name without extension")
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// openApp loads configuration and wires every service.
func openApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load(configDir, configName)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	if cfg.Database.Driver == "memory" {
		log.Println("WARN: [pipelinectl] memory driver selected, nothing persists beyond this command.")
	}
	return app.New(ctx, cfg, app.Options{Migrate: true})
}

// withApp runs fn against a wired application and closes it afterwards.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func markRequired(cmd *cobra.Command, names ...string) {
	for _, name := range names {
		if err := cmd.MarkFlagRequired(name); err != nil {
			panic(fmt.Sprintf("failed to mark %s flag as required: %v", name, err))
		}
	}
}
