package api

import (
	"context"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/voforge/voforge-api/config"
	"github.com/voforge/voforge-api/handlers"
	"github.com/voforge/voforge-api/log"
	"github.com/voforge/voforge-api/middleware"
	"github.com/voforge/voforge-api/pipeline"
	"github.com/voforge/voforge-api/queue"
	"github.com/voforge/voforge-api/store"
)

func ListenAndServe(ctx context.Context, cli config.Cli, st *store.Store, pl *pipeline.Pipeline, q *queue.Client) error {
	router := NewVoforgeAPIRouter(cli, st, pl, q)
	server := http.Server{Addr: cli.HTTPAddress, Handler: router}
	ctx, cancel := context.WithCancel(ctx)

	log.LogNoJobID(
		"Starting Voforge API!",
		"version", config.Version,
		"host", cli.HTTPAddress,
	)

	var err error
	go func() {
		err = server.ListenAndServe()
		cancel()
	}()

	<-ctx.Done()
	if err != nil {
		return err
	}

	ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}

func NewVoforgeAPIRouter(cli config.Cli, st *store.Store, pl *pipeline.Pipeline, q *queue.Client) *httprouter.Router {
	router := httprouter.New()
	withLogging := middleware.LogRequest(log.NewHTTPLogger())

	voforgeHandlers := handlers.NewHandlersCollection(cli, st, pl, q)

	// Simple endpoints for healthchecks
	router.GET("/health", withLogging(voforgeHandlers.Health()))
	router.GET("/health/deps", withLogging(voforgeHandlers.HealthDeps()))

	// Project lifecycle
	router.POST("/projects", withLogging(voforgeHandlers.CreateProject()))
	router.GET("/projects/:id", withLogging(voforgeHandlers.GetProject()))
	router.PATCH("/projects/:id/settings", withLogging(voforgeHandlers.PatchSettings()))

	// Timeline
	router.POST("/projects/:id/timeline/import", withLogging(voforgeHandlers.ImportTimeline()))
	router.GET("/projects/:id/timeline", withLogging(voforgeHandlers.GetTimeline()))
	router.PATCH("/projects/:id/timeline/narration/:event_id", withLogging(voforgeHandlers.PatchNarrationEvent()))
	router.POST("/projects/:id/timeline/actions/validate", withLogging(voforgeHandlers.ValidateActions()))

	// TTS profiles and previews
	router.POST("/projects/:id/tts/profile", withLogging(voforgeHandlers.UpsertTTSProfile()))
	router.GET("/projects/:id/tts/profile", withLogging(voforgeHandlers.GetTTSProfile()))
	router.POST("/projects/:id/tts/preview", withLogging(voforgeHandlers.PreviewTTS()))

	// Jobs
	router.POST("/projects/:id/render", withLogging(voforgeHandlers.EnqueueRender()))
	router.POST("/projects/:id/run", withLogging(voforgeHandlers.EnqueueRender()))
	router.POST("/projects/:id/demo/run", withLogging(voforgeHandlers.EnqueueDemoRun()))
	router.GET("/projects/:id/demo/runs", withLogging(voforgeHandlers.ListDemoRuns()))
	router.GET("/jobs/:job_id", withLogging(voforgeHandlers.GetJob()))

	return router
}
