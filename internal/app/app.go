// Package app wires configuration into the stores, clients and services shared by both binaries.
package app

import (
	"context"
	"fmt"
	"log"

	"PodcastStudio-admin/internal/clients/gemini"
	"PodcastStudio-admin/internal/config"
	"PodcastStudio-admin/internal/services"
	"PodcastStudio-admin/internal/storage/memory"
	"PodcastStudio-admin/internal/storage/mysql"
	"PodcastStudio-admin/internal/storage/nas"
)

// Store is everything the services and the catalog need from persistence.
type Store interface {
	services.Store
	services.CatalogStore
	Close() error
}

// App holds the wired services. Close releases the store and the model client.
type App struct {
	Config     *config.Config
	Store      Store
	Media      *nas.FileSystemStorage
	Ingest     *services.IngestService
	Pipeline   *services.PipelineService
	Moderation *services.ModerationService
	Schedule   *services.ScheduleService

	llm *gemini.Client
}

// Options tweak startup.
type Options struct {
	// Migrate applies SQL migrations before opening a mysql store.
	Migrate bool
}

// OpenStore returns the store selected by database.driver.
func OpenStore(cfg *config.Config, opts Options) (Store, error) {
	switch cfg.Database.Driver {
	case "memory":
		return memory.NewStore(), nil
	case "mysql":
		if opts.Migrate {
			if err := mysql.RunMigrations(cfg.Database); err != nil {
				return nil, fmt.Errorf("database migration: %w", err)
			}
		}
		return mysql.NewMySQLStore(cfg.Database)
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
}

// New builds every service from cfg.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	store, err := OpenStore(cfg, opts)
	if err != nil {
		return nil, err
	}
	a, err := build(ctx, cfg, store)
	if err != nil {
		store.Close()
		return nil, err
	}
	return a, nil
}

func build(ctx context.Context, cfg *config.Config, store Store) (*App, error) {
	media, err := nas.NewFileSystemStorage(cfg.NAS)
	if err != nil {
		return nil, fmt.Errorf("initialising media storage: %w", err)
	}
	llm, err := gemini.NewClient(ctx, cfg.GeminiClient.APIKey, cfg.GeminiClient.TextModel, cfg.GeminiClient.TranscriptionModel)
	if err != nil {
		return nil, fmt.Errorf("initialising Gemini client: %w", err)
	}
	a, err := Assemble(cfg, store, media, llm, llm)
	if err != nil {
		llm.Close()
		return nil, err
	}
	a.llm = llm
	return a, nil
}

// Assemble wires the services onto already constructed collaborators.
func Assemble(cfg *config.Config, store Store, media *nas.FileSystemStorage, llm services.TextGenerator, transcriber services.Transcriber) (*App, error) {
	resolver, err := services.NewMediaResolver(cfg.Resolver, media, nil)
	if err != nil {
		return nil, err
	}
	transcription, err := services.NewTranscriptionService(cfg.Transcription, store, resolver, transcriber)
	if err != nil {
		return nil, err
	}
	keywords, err := services.NewKeywordService(cfg.Keywords, store, llm)
	if err != nil {
		return nil, err
	}
	generation, err := services.NewGenerationService(store, store, store, services.DefaultGenerators(llm))
	if err != nil {
		return nil, err
	}
	moderation, err := services.NewModerationService(cfg.Moderation, store, store, llm)
	if err != nil {
		return nil, err
	}
	schedule, err := services.NewScheduleService(store, store, llm)
	if err != nil {
		return nil, err
	}
	opts, err := services.PipelineOptionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	pipeline, err := services.NewPipelineService(opts, store, transcription, keywords, generation, moderation)
	if err != nil {
		return nil, err
	}
	ingest, err := services.NewIngestService(store, media)
	if err != nil {
		return nil, err
	}
	log.Printf("INFO: [App] services wired (driver %s).\n", cfg.Database.Driver)
	return &App{
		Config:     cfg,
		Store:      store,
		Media:      media,
		Ingest:     ingest,
		Pipeline:   pipeline,
		Moderation: moderation,
		Schedule:   schedule,
	}, nil
}

func (a *App) Close() {
	if a.llm != nil {
		if err := a.llm.Close(); err != nil {
			log.Printf("WARN: [App] closing Gemini client: %v\n", err)
		}
	}
	if err := a.Store.Close(); err != nil {
		log.Printf("WARN: [App] closing store: %v\n", err)
	}
}
