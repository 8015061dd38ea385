package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"
	"github.com/xeipuuv/gojsonschema"

	"github.com/voforge/voforge-api/errors"
	"github.com/voforge/voforge-api/log"
	"github.com/voforge/voforge-api/store"
	"github.com/voforge/voforge-api/tts"
)

// UpsertTTSProfile creates or replaces a named voice profile on the project.
func (d *VoforgeAPIHandlersCollection) UpsertTTSProfile() httprouter.Handle {
	schema := inputSchemasCompiled["TTSProfile"]
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
			errors.WriteHTTPBadBodySchema("TTSProfile", w, result.Errors())
			return
		}
		var profile store.Profile
		if err := json.Unmarshal(payload, &profile); err != nil {
			errors.WriteHTTPBadRequest(w, "Invalid request payload", err)
			return
		}

		proj, ok := d.loadProject(w, params.ByName("id"))
		if !ok {
			return
		}
		if err := tts.UpsertProfile(proj, profile); err != nil {
			errors.WriteHTTPBadRequest(w, err.Error(), nil)
			return
		}
		if err := d.Store.Save(proj); err != nil {
			errors.WriteHTTPInternalServerError(w, "failed to save tts profile", err)
			return
		}
		log.LogNoJobID("tts profile saved", "project_id", proj.ProjectID, "profile_id", profile.ProfileID)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"ok":      true,
			"profile": proj.TTSProfiles[strings.TrimSpace(profile.ProfileID)],
		})
	}
}

// GetTTSProfile returns one profile by query param, or the default profile
// when none is named.
func (d *VoforgeAPIHandlersCollection) GetTTSProfile() httprouter.Handle {
	return func(w http.ResponseWriter, req *http.Request, params httprouter.Params) {
		proj, ok := d.loadProject(w, params.ByName("id"))
		if !ok {
			return
		}
		profile, err := tts.ResolveProfile(proj, req.URL.Query().Get("profile_id"))
		if err != nil {
			errors.WriteHTTPNotFound(w, err.Error(), nil)
			return
		}
		writeJSON(w, http.StatusOK, profile)
	}
}

type ttsPreviewRequest struct {
	Text           string                 `json:"text"`
	DurationMS     int64                  `json:"duration_ms"`
	ProfileID      string                 `json:"profile_id"`
	ParamsOverride map[string]interface{} `json:"params_override"`
}

// PreviewTTS synthesizes a sample synchronously. Previews reuse the render
// engine but cache under their own namespace.
func (d *VoforgeAPIHandlersCollection) PreviewTTS() httprouter.Handle {
	schema := inputSchemasCompiled["TTSPreview"]
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
			errors.WriteHTTPBadBodySchema("TTSPreview", w, result.Errors())
			return
		}
		var body ttsPreviewRequest
		if err := json.Unmarshal(payload, &body); err != nil {
			errors.WriteHTTPBadRequest(w, "Invalid request payload", err)
			return
		}

		projectID := params.ByName("id")
		if !d.Store.Exists(projectID) {
			errors.WriteHTTPNotFound(w, "project not found", nil)
			return
		}

		audioPath, segResult, err := d.Pipeline.PreviewTTS(req.Context(), "preview",
			projectID, body.Text, body.ProfileID, body.DurationMS, body.ParamsOverride)
		if err != nil {
			if strings.Contains(err.Error(), "tts profile not found") {
				errors.WriteHTTPNotFound(w, err.Error(), nil)
				return
			}
			errors.WriteHTTPInternalServerError(w, "tts preview failed", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"ok":                true,
			"audio_path":        audioPath,
			"audio_duration_ms": segResult.AudioDurationMS,
			"cache_hit":         segResult.CacheHit,
			"attempts":          segResult.Attempts,
		})
	}
}
