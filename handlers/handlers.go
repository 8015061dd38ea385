package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/voforge/voforge-api/config"
	"github.com/voforge/voforge-api/demo"
	"github.com/voforge/voforge-api/errors"
	"github.com/voforge/voforge-api/log"
	"github.com/voforge/voforge-api/pipeline"
	"github.com/voforge/voforge-api/queue"
	"github.com/voforge/voforge-api/store"
	"github.com/voforge/voforge-api/tts"
	"github.com/voforge/voforge-api/video"
)

// VoforgeAPIHandlersCollection carries the dependencies every endpoint
// needs. DepProber and TTSHealth are fields so tests can stub the
// browser/TTS probes.
type VoforgeAPIHandlersCollection struct {
	Cli      config.Cli
	Store    *store.Store
	Pipeline *pipeline.Pipeline
	Queue    *queue.Client
	Prober   video.Prober

	DepProber demo.DependencyProber
	TTSHealth func(ctx context.Context, endpoint string) bool
}

func NewHandlersCollection(cli config.Cli, st *store.Store, pl *pipeline.Pipeline, q *queue.Client) *VoforgeAPIHandlersCollection {
	return &VoforgeAPIHandlersCollection{
		Cli:       cli,
		Store:     st,
		Pipeline:  pl,
		Queue:     q,
		Prober:    video.Probe{},
		DepProber: demo.ProbeDependencies,
		TTSHealth: tts.ProbeHealth,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.LogNoJobID("failed to write HTTP response", "error", err)
	}
}

// loadProject fetches the project or writes the 404 itself.
func (d *VoforgeAPIHandlersCollection) loadProject(w http.ResponseWriter, projectID string) (*store.Project, bool) {
	proj, err := d.Store.Load(projectID)
	if err != nil {
		errors.WriteHTTPNotFound(w, "project not found", err)
		return nil, false
	}
	return proj, true
}

func (d *VoforgeAPIHandlersCollection) Health() httprouter.Handle {
	return func(w http.ResponseWriter, req *http.Request, _ httprouter.Params) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "version": config.Version})
	}
}

// HealthDeps probes the queue backend, the TTS endpoint and the browser
// stack. The aggregate is only false for browser trouble when captures are
// configured to require it.
func (d *VoforgeAPIHandlersCollection) HealthDeps() httprouter.Handle {
	return func(w http.ResponseWriter, req *http.Request, _ httprouter.Params) {
		queueOK := true
		queueError := ""
		if err := d.Queue.Ping(req.Context()); err != nil {
			queueOK = false
			queueError = err.Error()
		}

		ttsOK := d.TTSHealth(req.Context(), d.Cli.TTSEndpoint)
		browser := d.DepProber()

		ok := queueOK && ttsOK
		if d.Cli.DemoCaptureExecutionMode == demo.ExecutionModePlaywrightRequired {
			ok = ok && browser.OK
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"ok": ok,
			"queue": map[string]interface{}{
				"ok":    queueOK,
				"error": queueError,
				"name":  d.Queue.QueueName(),
			},
			"tts": map[string]interface{}{
				"ok":       ttsOK,
				"endpoint": d.Cli.TTSEndpoint,
			},
			"browser":        browser,
			"execution_mode": d.Cli.DemoCaptureExecutionMode,
		})
	}
}
