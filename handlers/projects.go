package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"github.com/xeipuuv/gojsonschema"

	"github.com/voforge/voforge-api/config"
	"github.com/voforge/voforge-api/demo"
	"github.com/voforge/voforge-api/errors"
	"github.com/voforge/voforge-api/log"
	"github.com/voforge/voforge-api/store"
)

func newProjectID() string {
	return "proj_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// CreateProject streams a multipart .mp4 upload to input.mp4, hashes and
// probes it, and initializes the project document.
func (d *VoforgeAPIHandlersCollection) CreateProject() httprouter.Handle {
	return func(w http.ResponseWriter, req *http.Request, _ httprouter.Params) {
		file, header, err := req.FormFile("file")
		if err != nil {
			errors.WriteHTTPBadRequest(w, "multipart upload requires a 'file' field", err)
			return
		}
		defer file.Close()

		if !strings.HasSuffix(strings.ToLower(header.Filename), ".mp4") {
			errors.WriteHTTPUnsupportedMediaType(w, "uploaded file must end in .mp4", nil)
			return
		}

		projectID := newProjectID()
		inputPath := d.Store.InputVideoPath(projectID)
		if err := os.MkdirAll(filepath.Dir(inputPath), 0755); err != nil {
			errors.WriteHTTPInternalServerError(w, "failed to create project dir", err)
			return
		}

		out, err := os.Create(inputPath)
		if err != nil {
			errors.WriteHTTPInternalServerError(w, "failed to create input.mp4", err)
			return
		}
		hasher := sha256.New()
		if _, err := io.Copy(io.MultiWriter(out, hasher), file); err != nil {
			_ = out.Close()
			errors.WriteHTTPInternalServerError(w, "failed to store upload", err)
			return
		}
		if err := out.Close(); err != nil {
			errors.WriteHTTPInternalServerError(w, "failed to store upload", err)
			return
		}

		info, err := d.Prober.ProbeMedia(req.Context(), inputPath)
		if err != nil {
			errors.WriteHTTPBadRequest(w, "uploaded file is not a readable video", err)
			return
		}

		proj := store.NewProject(projectID, store.SourceVideo{
			Path:       inputPath,
			SHA256:     hex.EncodeToString(hasher.Sum(nil)),
			DurationMS: info.DurationMS,
			Width:      info.Width,
			Height:     info.Height,
			FPS:        info.FPS,
			HasAudio:   info.HasAudio,
		})
		proj.Settings.NarrationMode = d.Cli.NarrationMode
		proj.Settings.DemoCaptureExecutionMode = demo.NormalizeExecutionMode(
			d.Cli.DemoCaptureExecutionMode, demo.ExecutionModePlaywrightOptional)
		if err := d.Store.Init(proj); err != nil {
			errors.WriteHTTPInternalServerError(w, "failed to initialize project", err)
			return
		}

		log.LogNoJobID("project created", "project_id", projectID, "duration_ms", info.DurationMS)
		writeJSON(w, http.StatusOK, proj)
	}
}

func (d *VoforgeAPIHandlersCollection) GetProject() httprouter.Handle {
	return func(w http.ResponseWriter, req *http.Request, params httprouter.Params) {
		proj, ok := d.loadProject(w, params.ByName("id"))
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, proj)
	}
}

type patchSettingsRequest struct {
	DemoContext              *string `json:"demo_context"`
	DemoCaptureExecutionMode *string `json:"demo_capture_execution_mode"`
	NarrationMode            *string `json:"narration_mode"`
}

// PatchSettings updates the mutable settings. Unknown narration modes fall
// back to tts_only; the demo context is re-mirrored to demo_context.md on
// every save.
func (d *VoforgeAPIHandlersCollection) PatchSettings() httprouter.Handle {
	schema := inputSchemasCompiled["PatchSettings"]
	return func(w http.ResponseWriter, req *http.Request, params httprouter.Params) {
		payload, err := io.ReadAll(req.Body)
		if err != nil {
			errors.WriteHTTPInternalServerError(w, "Cannot read body", err)
			return
		}
		result, err := schema.Validate(gojsonschema.NewBytesLoader(payload))
		if err != nil {
			errors.WriteHTTPBadRequest(w, "body is not valid JSON", err)
			return
		}
		if !result.Valid() {
			errors.WriteHTTPBadBodySchema("PatchSettings", w, result.Errors())
			return
		}
		var patch patchSettingsRequest
		if err := json.Unmarshal(payload, &patch); err != nil {
			errors.WriteHTTPBadRequest(w, "Invalid request payload", err)
			return
		}

		proj, ok := d.loadProject(w, params.ByName("id"))
		if !ok {
			return
		}

		if patch.DemoContext != nil {
			proj.Settings.DemoContext = *patch.DemoContext
		}
		if patch.DemoCaptureExecutionMode != nil {
			proj.Settings.DemoCaptureExecutionMode = demo.NormalizeExecutionMode(
				*patch.DemoCaptureExecutionMode, proj.Settings.DemoCaptureExecutionMode)
		}
		if patch.NarrationMode != nil {
			mode := strings.ToLower(strings.TrimSpace(*patch.NarrationMode))
			if !config.AllowedNarrationModes[mode] {
				mode = config.NarrationModeTTSOnly
			}
			proj.Settings.NarrationMode = mode
		}

		if err := d.Store.Save(proj); err != nil {
			errors.WriteHTTPInternalServerError(w, "failed to save settings", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"ok":       true,
			"settings": proj.Settings,
		})
	}
}
