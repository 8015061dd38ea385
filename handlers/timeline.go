package handlers

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/xeipuuv/gojsonschema"

	"github.com/voforge/voforge-api/demo"
	"github.com/voforge/voforge-api/errors"
	"github.com/voforge/voforge-api/log"
	"github.com/voforge/voforge-api/timeline"
)

type timelineImportRequest struct {
	Content      string `json:"content"`
	ImportFormat string `json:"import_format"`
	SourceName   string `json:"source_name"`
}

// ImportTimeline replaces the project timeline from a timestamped script, an
// SRT file or a raw timeline JSON document. A successful import switches the
// project to tts_only narration.
func (d *VoforgeAPIHandlersCollection) ImportTimeline() httprouter.Handle {
	schema := inputSchemasCompiled["TimelineImport"]
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
			errors.WriteHTTPBadBodySchema("TimelineImport", w, result.Errors())
			return
		}
		var body timelineImportRequest
		if err := json.Unmarshal(payload, &body); err != nil {
			errors.WriteHTTPBadRequest(w, "Invalid request payload", err)
			return
		}

		proj, ok := d.loadProject(w, params.ByName("id"))
		if !ok {
			return
		}

		format := body.ImportFormat
		if format == "" {
			format = "auto"
		}
		tl, err := timeline.Import(body.Content, format, body.SourceName, proj.Source.Video.DurationMS)
		if err != nil {
			var importErr *timeline.ImportError
			if stderrors.As(err, &importErr) {
				errors.WriteHTTPValidationFailure(w, "timeline import failed", importErr)
				return
			}
			errors.WriteHTTPBadRequest(w, "timeline import failed", err)
			return
		}

		proj.Timeline = tl
		proj.Settings.NarrationMode = "tts_only"
		if err := d.Store.Save(proj); err != nil {
			errors.WriteHTTPInternalServerError(w, "failed to save timeline", err)
			return
		}

		log.LogNoJobID("timeline imported",
			"project_id", proj.ProjectID,
			"narration_events", len(tl.NarrationEvents),
			"action_events", len(tl.ActionEvents))
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"ok":                    true,
			"narration_event_count": len(tl.NarrationEvents),
			"action_event_count":    len(tl.ActionEvents),
			"timeline_version":      tl.TimelineVersion,
		})
	}
}

func (d *VoforgeAPIHandlersCollection) GetTimeline() httprouter.Handle {
	return func(w http.ResponseWriter, req *http.Request, params httprouter.Params) {
		proj, ok := d.loadProject(w, params.ByName("id"))
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, proj.Timeline)
	}
}

type patchNarrationEventRequest struct {
	StartMS        *int64                 `json:"start_ms"`
	EndMS          *int64                 `json:"end_ms"`
	Text           *string                `json:"text"`
	VoiceProfileID *string                `json:"voice_profile_id"`
	Meta           map[string]interface{} `json:"meta"`
}

// PatchNarrationEvent applies a partial update to one narration event and
// revalidates the whole timeline before saving, so a bad patch never lands.
func (d *VoforgeAPIHandlersCollection) PatchNarrationEvent() httprouter.Handle {
	schema := inputSchemasCompiled["PatchNarrationEvent"]
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
			errors.WriteHTTPBadBodySchema("PatchNarrationEvent", w, result.Errors())
			return
		}
		var patch patchNarrationEventRequest
		if err := json.Unmarshal(payload, &patch); err != nil {
			errors.WriteHTTPBadRequest(w, "Invalid request payload", err)
			return
		}

		proj, ok := d.loadProject(w, params.ByName("id"))
		if !ok {
			return
		}

		eventID := params.ByName("event_id")
		idx := -1
		for i := range proj.Timeline.NarrationEvents {
			if proj.Timeline.NarrationEvents[i].ID == eventID {
				idx = i
				break
			}
		}
		if idx < 0 {
			errors.WriteHTTPNotFound(w, "narration event not found", nil)
			return
		}

		candidate := proj.Timeline.Clone()
		ev := &candidate.NarrationEvents[idx]
		if patch.StartMS != nil {
			ev.StartMS = *patch.StartMS
		}
		if patch.EndMS != nil {
			ev.EndMS = *patch.EndMS
		}
		if patch.Text != nil {
			ev.Text = *patch.Text
		}
		if patch.VoiceProfileID != nil {
			ev.VoiceProfileID = *patch.VoiceProfileID
		}
		if patch.Meta != nil {
			ev.Meta = patch.Meta
		}

		// A moved event must land sorted with its end time repaired against
		// the source duration, the same as on import.
		normalized, err := timeline.NormalizeNarrationEvents(candidate.NarrationEvents, proj.Source.Video.DurationMS)
		if err != nil {
			var importErr *timeline.ImportError
			if stderrors.As(err, &importErr) {
				errors.WriteHTTPValidationFailure(w, "patched timeline is invalid", importErr)
				return
			}
			errors.WriteHTTPBadRequest(w, "patched timeline is invalid", err)
			return
		}
		candidate.NarrationEvents = normalized

		if err := timeline.ValidateTimeline(candidate); err != nil {
			errors.WriteHTTPBadRequest(w, "patched timeline is invalid", err)
			return
		}

		proj.Timeline = candidate
		if err := d.Store.Save(proj); err != nil {
			errors.WriteHTTPInternalServerError(w, "failed to save timeline", err)
			return
		}

		var patched timeline.NarrationEvent
		for i := range candidate.NarrationEvents {
			if candidate.NarrationEvents[i].ID == eventID {
				patched = candidate.NarrationEvents[i]
				break
			}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"ok":    true,
			"event": patched,
		})
	}
}

// ValidateActions dry-checks the stored action events without running a
// capture.
func (d *VoforgeAPIHandlersCollection) ValidateActions() httprouter.Handle {
	return func(w http.ResponseWriter, req *http.Request, params httprouter.Params) {
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
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"ok":           true,
			"action_count": len(actions),
		})
	}
}
