package handlers

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/xeipuuv/gojsonschema"

	"github.com/voforge/voforge-api/demo"
	"github.com/voforge/voforge-api/errors"
	"github.com/voforge/voforge-api/log"
	"github.com/voforge/voforge-api/queue"
	"github.com/voforge/voforge-api/store"
)

type renderJobArgs struct {
	ProjectID string `json:"project_id"`
}

type demoCaptureJobArgs struct {
	ProjectID     string `json:"project_id"`
	ExecutionMode string `json:"execution_mode"`
}

func (d *VoforgeAPIHandlersCollection) resolveNarrationMode(proj *store.Project) string {
	mode := strings.ToLower(strings.TrimSpace(proj.Settings.NarrationMode))
	if mode == "" {
		mode = strings.ToLower(strings.TrimSpace(d.Cli.NarrationMode))
	}
	if mode == "" {
		mode = "tts_only"
	}
	return mode
}

// EnqueueRender queues a full render of the project under its configured
// narration mode. Both POST /render and POST /run land here.
func (d *VoforgeAPIHandlersCollection) EnqueueRender() httprouter.Handle {
	return func(w http.ResponseWriter, req *http.Request, params httprouter.Params) {
		proj, ok := d.loadProject(w, params.ByName("id"))
		if !ok {
			return
		}

		narrationMode := d.resolveNarrationMode(proj)
		queuedAt := time.Now().UTC().Format(time.RFC3339)
		jobID, err := d.Queue.Enqueue(req.Context(), "pipeline.run",
			renderJobArgs{ProjectID: proj.ProjectID},
			queue.Meta{
				ProjectID:     proj.ProjectID,
				RunType:       "render",
				NarrationMode: narrationMode,
				QueuedAt:      queuedAt,
			})
		if err != nil {
			errors.WriteHTTPInternalServerError(w, "failed to enqueue render job", err)
			return
		}

		log.LogNoJobID("render job enqueued",
			"project_id", proj.ProjectID, "job_id", jobID, "narration_mode", narrationMode)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"ok":             true,
			"job_id":         jobID,
			"run_type":       "render",
			"narration_mode": narrationMode,
			"status_url":     "/jobs/" + jobID,
			"queued_at":      queuedAt,
		})
	}
}

// EnqueueDemoRun validates the stored action events, then queues a demo
// capture. The request body may override the execution mode for this run.
func (d *VoforgeAPIHandlersCollection) EnqueueDemoRun() httprouter.Handle {
	schema := inputSchemasCompiled["DemoRun"]
	return func(w http.ResponseWriter, req *http.Request, params httprouter.Params) {
		requestedMode := ""
		payload, err := io.ReadAll(req.Body)
		if err != nil {
			errors.WriteHTTPInternalServerError(w, "Cannot read body", err)
			return
		}
		if len(payload) > 0 {
			result, err := schema.Validate(gojsonschema.NewBytesLoader(payload))
			if err != nil {
				errors.WriteHTTPBadRequest(w, "body is not valid JSON", err)
				return
			}
			if !result.Valid() {
				errors.WriteHTTPBadBodySchema("DemoRun", w, result.Errors())
				return
			}
			var body struct {
				ExecutionMode string `json:"execution_mode"`
			}
			if err := json.Unmarshal(payload, &body); err != nil {
				errors.WriteHTTPBadRequest(w, "Invalid request payload", err)
				return
			}
			requestedMode = body.ExecutionMode
		}

		proj, ok := d.loadProject(w, params.ByName("id"))
		if !ok {
			return
		}

		actions, err := demo.ParseActionEvents(proj.Timeline)
		if err != nil {
			var valErr *demo.ValidationError
			if stderrors.As(err, &valErr) {
				errors.WriteHTTPValidationFailure(w, "action validation failed", valErr)
				return
			}
			errors.WriteHTTPBadRequest(w, "action validation failed", err)
			return
		}
		if len(actions) == 0 {
			errors.WriteHTTPBadRequest(w, "timeline has no action events to capture", nil)
			return
		}

		executionMode := demo.ResolveExecutionMode(requestedMode,
			proj.Settings.DemoCaptureExecutionMode, d.Cli.DemoCaptureExecutionMode)
		queuedAt := time.Now().UTC().Format(time.RFC3339)
		jobID, err := d.Queue.Enqueue(req.Context(), "demo.capture",
			demoCaptureJobArgs{ProjectID: proj.ProjectID, ExecutionMode: executionMode},
			queue.Meta{
				ProjectID:     proj.ProjectID,
				RunType:       "demo_capture",
				ExecutionMode: executionMode,
				QueuedAt:      queuedAt,
			})
		if err != nil {
			errors.WriteHTTPInternalServerError(w, "failed to enqueue demo capture job", err)
			return
		}

		log.LogNoJobID("demo capture job enqueued",
			"project_id", proj.ProjectID, "job_id", jobID,
			"execution_mode", executionMode, "action_count", len(actions))
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"ok":             true,
			"job_id":         jobID,
			"run_type":       "demo_capture",
			"execution_mode": executionMode,
			"action_count":   len(actions),
			"status_url":     "/jobs/" + jobID,
			"queued_at":      queuedAt,
		})
	}
}

// ListDemoRuns returns the bounded run history, newest first.
func (d *VoforgeAPIHandlersCollection) ListDemoRuns() httprouter.Handle {
	return func(w http.ResponseWriter, req *http.Request, params httprouter.Params) {
		proj, ok := d.loadProject(w, params.ByName("id"))
		if !ok {
			return
		}
		runs := make([]store.DemoRunRecord, 0, len(proj.Demo.Runs))
		for i := len(proj.Demo.Runs) - 1; i >= 0; i-- {
			runs = append(runs, proj.Demo.Runs[i])
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"ok":          true,
			"last_run_id": proj.Demo.LastRunID,
			"runs":        runs,
		})
	}
}

// GetJob reads a job hash straight from the queue backend.
func (d *VoforgeAPIHandlersCollection) GetJob() httprouter.Handle {
	return func(w http.ResponseWriter, req *http.Request, params httprouter.Params) {
		status, err := d.Queue.Status(req.Context(), params.ByName("job_id"))
		if err != nil {
			if stderrors.Is(err, queue.ErrJobNotFound) {
				errors.WriteHTTPNotFound(w, "job not found", err)
				return
			}
			errors.WriteHTTPInternalServerError(w, "failed to read job status", err)
			return
		}
		writeJSON(w, http.StatusOK, status)
	}
}
