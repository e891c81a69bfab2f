package web

import (
	"log"
	"net/http"

	"github.com/rs/cors"

	"PodcastStudio-admin/internal/config"
	"PodcastStudio-admin/internal/web/handlers"
)

// Dependencies are the collaborators the admin API is wired to.
type Dependencies struct {
	Pipeline  handlers.PipelineRunner
	Store     handlers.ReadStore
	Moderator handlers.Moderator
	Planner   handlers.Planner
	Media     handlers.MediaLocator
}

// Router is the admin API handler plus the trigger handler, which owns background work.
type Router struct {
	http.Handler
	Triggers *handlers.TriggerHandler
}

// SetupRouter registers every admin route and wraps the mux in CORS.
func SetupRouter(serverCfg config.ServerConfig, deps Dependencies) *Router {
	mux := http.NewServeMux()

	triggers := handlers.NewTriggerHandler(deps.Pipeline, deps.Store)
	mux.HandleFunc("POST /episodes/{id}/pipeline", triggers.Pipeline)
	mux.HandleFunc("POST /episodes/{id}/transcribe", triggers.Transcribe)
	mux.HandleFunc("POST /episodes/{id}/keywords", triggers.Keywords)

	status := handlers.NewStatusHandler(deps.Store, deps.Pipeline)
	mux.HandleFunc("GET /episodes/{id}/overview", status.Overview)
	mux.HandleFunc("GET /jobs/{id}", status.Job)

	moderation := handlers.NewModerationHandler(deps.Moderator)
	mux.HandleFunc("POST /moderation/pieces/{id}", moderation.Piece)
	mux.HandleFunc("POST /moderation/episodes/{id}", moderation.Episode)
	mux.HandleFunc("POST /moderation/pending", moderation.Pending)

	schedule := handlers.NewScheduleHandler(deps.Planner)
	mux.HandleFunc("POST /episodes/{id}/schedule/suggest", schedule.Suggest)
	mux.HandleFunc("POST /schedule/confirm", schedule.Confirm)
	mux.HandleFunc("POST /schedule/publish-due", schedule.PublishDue)

	mux.Handle("GET /export/schedule.csv", handlers.NewExportHandler(deps.Planner, deps.Store))

	if deps.Media != nil {
		mux.Handle("GET /media/", http.StripPrefix("/media/", handlers.NewMediaHandler(deps.Media)))
	} else {
		log.Println("WARN: [Router] no media storage configured, /media/ is not served.")
	}

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	c := cors.New(cors.Options{
		AllowedOrigins: serverCfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})

	log.Println("INFO: [Router] HTTP routes registered.")
	return &Router{Handler: c.Handler(mux), Triggers: triggers}
}
