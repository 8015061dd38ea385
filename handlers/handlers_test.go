package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/julienschmidt/httprouter"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/voforge/voforge-api/config"
	"github.com/voforge/voforge-api/demo"
	"github.com/voforge/voforge-api/pipeline"
	"github.com/voforge/voforge-api/queue"
	"github.com/voforge/voforge-api/store"
	"github.com/voforge/voforge-api/timeline"
	"github.com/voforge/voforge-api/tts"
	"github.com/voforge/voforge-api/video"
)

type stubProber struct {
	err error
}

func (s stubProber) ProbeMedia(ctx context.Context, path string) (video.MediaInfo, error) {
	if s.err != nil {
		return video.MediaInfo{}, s.err
	}
	if strings.HasSuffix(path, ".wav") {
		return video.MediaInfo{DurationMS: 1800, HasAudio: true}, nil
	}
	return video.MediaInfo{
		DurationMS: 60000,
		Width:      1280,
		Height:     720,
		FPS:        30,
		HasVideo:   true,
		HasAudio:   true,
	}, nil
}

func newTestHandlers(t *testing.T) *VoforgeAPIHandlersCollection {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	q := queue.NewFromRedis(rdb, "default")

	cli := config.DefaultCli()
	cli.DataDir = t.TempDir()
	st := store.New(cli.DataDir)

	pl := pipeline.New(st, cli)
	pl.Engine.Prober = stubProber{}
	pl.Engine.Synthesize = func(ctx context.Context, req tts.SegmentRequest) error {
		return os.WriteFile(req.OutPath, []byte("RIFFfake"), 0644)
	}
	pl.Engine.Postprocess = func(ctx context.Context, path string) {}
	pl.Engine.Silence = func(ctx context.Context, path string, durationMS int64) error {
		return os.WriteFile(path, []byte("RIFFsilence"), 0644)
	}
	pl.Engine.Trim = func(ctx context.Context, prober video.Prober, path string, maxMS int64) (int64, error) {
		return maxMS, nil
	}

	h := NewHandlersCollection(cli, st, pl, q)
	h.Prober = stubProber{}
	h.DepProber = func() demo.DependencyStatus {
		return demo.DependencyStatus{OK: true, DriverOK: true, BrowserOK: true}
	}
	h.TTSHealth = func(ctx context.Context, endpoint string) bool { return true }
	return h
}

func seedProject(t *testing.T, h *VoforgeAPIHandlersCollection, projectID string) *store.Project {
	t.Helper()
	proj := store.NewProject(projectID, store.SourceVideo{
		Path:       h.Store.InputVideoPath(projectID),
		DurationMS: 60000,
		Width:      1280,
		Height:     720,
		FPS:        30,
		HasAudio:   true,
	})
	require.NoError(t, h.Store.Init(proj))
	return proj
}

func idParams(projectID string) httprouter.Params {
	return httprouter.Params{{Key: "id", Value: projectID}}
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	h := newTestHandlers(t)
	rr := httptest.NewRecorder()
	h.Health()(rr, httptest.NewRequest("GET", "/health", nil), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	require.Equal(t, true, body["ok"])
	require.Equal(t, config.Version, body["version"])
}

func TestHealthDepsBrowserOnlyGatesRequiredMode(t *testing.T) {
	h := newTestHandlers(t)
	h.DepProber = func() demo.DependencyStatus {
		return demo.DependencyStatus{OK: false, Error: "playwright driver missing"}
	}

	rr := httptest.NewRecorder()
	h.HealthDeps()(rr, httptest.NewRequest("GET", "/health/deps", nil), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	require.Equal(t, true, body["ok"], "optional mode tolerates a missing browser")
	browser := body["browser"].(map[string]interface{})
	require.Equal(t, false, browser["ok"])

	h.Cli.DemoCaptureExecutionMode = demo.ExecutionModePlaywrightRequired
	rr = httptest.NewRecorder()
	h.HealthDeps()(rr, httptest.NewRequest("GET", "/health/deps", nil), nil)
	body = decodeBody(t, rr)
	require.Equal(t, false, body["ok"])
}

func TestHealthDepsQueueDown(t *testing.T) {
	h := newTestHandlers(t)
	// point the queue at nothing
	badQueue, err := queue.New("redis://127.0.0.1:1/0", "default")
	require.NoError(t, err)
	h.Queue = badQueue

	rr := httptest.NewRecorder()
	h.HealthDeps()(rr, httptest.NewRequest("GET", "/health/deps", nil), nil)
	body := decodeBody(t, rr)
	require.Equal(t, false, body["ok"])
	queueStatus := body["queue"].(map[string]interface{})
	require.Equal(t, false, queueStatus["ok"])
	require.NotEmpty(t, queueStatus["error"])
}

func multipartUpload(t *testing.T, fieldFilename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	part, err := mw.CreateFormFile("file", fieldFilename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return buf, mw.FormDataContentType()
}

func TestCreateProjectUploadsAndProbes(t *testing.T) {
	h := newTestHandlers(t)
	buf, contentType := multipartUpload(t, "demo.mp4", []byte("fake mp4 bytes"))

	req := httptest.NewRequest("POST", "/projects", buf)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	h.CreateProject()(rr, req, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var proj store.Project
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &proj))
	require.True(t, strings.HasPrefix(proj.ProjectID, "proj_"))
	require.Equal(t, int64(60000), proj.Source.Video.DurationMS)
	require.NotEmpty(t, proj.Source.Video.SHA256)

	stat, err := os.Stat(h.Store.InputVideoPath(proj.ProjectID))
	require.NoError(t, err)
	require.Equal(t, int64(len("fake mp4 bytes")), stat.Size())
	require.True(t, h.Store.Exists(proj.ProjectID))
}

func TestCreateProjectRejectsNonMP4(t *testing.T) {
	h := newTestHandlers(t)
	buf, contentType := multipartUpload(t, "demo.mov", []byte("nope"))

	req := httptest.NewRequest("POST", "/projects", buf)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	h.CreateProject()(rr, req, nil)
	require.Equal(t, http.StatusUnsupportedMediaType, rr.Code)
}

func TestCreateProjectRejectsUnreadableVideo(t *testing.T) {
	h := newTestHandlers(t)
	h.Prober = stubProber{err: fmt.Errorf("moov atom not found")}
	buf, contentType := multipartUpload(t, "demo.mp4", []byte("garbage"))

	req := httptest.NewRequest("POST", "/projects", buf)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	h.CreateProject()(rr, req, nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "not a readable video")
}

func TestGetProjectNotFound(t *testing.T) {
	h := newTestHandlers(t)
	rr := httptest.NewRecorder()
	h.GetProject()(rr, httptest.NewRequest("GET", "/projects/nope", nil), idParams("nope"))
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestPatchSettingsUpdatesAndMirrorsContext(t *testing.T) {
	h := newTestHandlers(t)
	seedProject(t, h, "proj_patch")

	payload := `{"demo_context":"An app tour.","demo_capture_execution_mode":"playwright_required","narration_mode":"timeline_unified"}`
	rr := httptest.NewRecorder()
	h.PatchSettings()(rr, httptest.NewRequest("PATCH", "/projects/proj_patch/settings",
		strings.NewReader(payload)), idParams("proj_patch"))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	proj, err := h.Store.Load("proj_patch")
	require.NoError(t, err)
	require.Equal(t, "An app tour.", proj.Settings.DemoContext)
	require.Equal(t, demo.ExecutionModePlaywrightRequired, proj.Settings.DemoCaptureExecutionMode)
	require.Equal(t, "timeline_unified", proj.Settings.NarrationMode)

	mirrored, err := os.ReadFile(h.Store.DemoContextMDPath("proj_patch"))
	require.NoError(t, err)
	require.Equal(t, "An app tour.", string(mirrored))
}

func TestPatchSettingsUnknownNarrationModeFallsBack(t *testing.T) {
	h := newTestHandlers(t)
	seedProject(t, h, "proj_mode")

	rr := httptest.NewRecorder()
	h.PatchSettings()(rr, httptest.NewRequest("PATCH", "/projects/proj_mode/settings",
		strings.NewReader(`{"narration_mode":"vision_guided"}`)), idParams("proj_mode"))
	require.Equal(t, http.StatusOK, rr.Code)

	proj, err := h.Store.Load("proj_mode")
	require.NoError(t, err)
	require.Equal(t, "tts_only", proj.Settings.NarrationMode)
}

func TestPatchSettingsRejectsUnknownFields(t *testing.T) {
	h := newTestHandlers(t)
	seedProject(t, h, "proj_schema")

	rr := httptest.NewRecorder()
	h.PatchSettings()(rr, httptest.NewRequest("PATCH", "/projects/proj_schema/settings",
		strings.NewReader(`{"bogus_field":1}`)), idParams("proj_schema"))
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "Body validation error")
}

func TestImportTimelineTimestampedTxt(t *testing.T) {
	h := newTestHandlers(t)
	seedProject(t, h, "proj_import")

	payload := map[string]interface{}{
		"content":       "[00:01] Welcome to the dashboard\n[00:05] Click the export button",
		"import_format": "timestamped_txt",
	}
	raw, _ := json.Marshal(payload)
	rr := httptest.NewRecorder()
	h.ImportTimeline()(rr, httptest.NewRequest("POST", "/projects/proj_import/timeline/import",
		bytes.NewReader(raw)), idParams("proj_import"))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	body := decodeBody(t, rr)
	require.Equal(t, float64(2), body["narration_event_count"])
	require.Equal(t, float64(0), body["action_event_count"])

	proj, err := h.Store.Load("proj_import")
	require.NoError(t, err)
	require.Equal(t, "tts_only", proj.Settings.NarrationMode)
	require.Len(t, proj.Timeline.NarrationEvents, 2)
}

func TestImportTimelineReportsLineNumbers(t *testing.T) {
	h := newTestHandlers(t)
	seedProject(t, h, "proj_badimport")

	payload := `{"content":"[00:01] ok line\nnot a timestamped line","import_format":"timestamped_txt"}`
	rr := httptest.NewRecorder()
	h.ImportTimeline()(rr, httptest.NewRequest("POST", "/projects/proj_badimport/timeline/import",
		strings.NewReader(payload)), idParams("proj_badimport"))
	require.Equal(t, http.StatusBadRequest, rr.Code)

	body := decodeBody(t, rr)
	detail := body["detail"].(map[string]interface{})
	require.Equal(t, float64(2), detail["line_number"])
}

func TestGetTimeline(t *testing.T) {
	h := newTestHandlers(t)
	proj := seedProject(t, h, "proj_tl")
	proj.Timeline.NarrationEvents = []timeline.NarrationEvent{
		{ID: "n1", StartMS: 1000, EndMS: 4000, Text: "hello", VoiceProfileID: "default"},
	}
	require.NoError(t, h.Store.Save(proj))

	rr := httptest.NewRecorder()
	h.GetTimeline()(rr, httptest.NewRequest("GET", "/projects/proj_tl/timeline", nil), idParams("proj_tl"))
	require.Equal(t, http.StatusOK, rr.Code)

	var tl timeline.Timeline
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &tl))
	require.Equal(t, timeline.Version, tl.TimelineVersion)
	require.Len(t, tl.NarrationEvents, 1)
}

func patchEventParams(projectID, eventID string) httprouter.Params {
	return httprouter.Params{
		{Key: "id", Value: projectID},
		{Key: "event_id", Value: eventID},
	}
}

func TestPatchNarrationEventUpdatesText(t *testing.T) {
	h := newTestHandlers(t)
	proj := seedProject(t, h, "proj_ev")
	proj.Timeline.NarrationEvents = []timeline.NarrationEvent{
		{ID: "n1", StartMS: 1000, EndMS: 4000, Text: "old text", VoiceProfileID: "default"},
	}
	require.NoError(t, h.Store.Save(proj))

	rr := httptest.NewRecorder()
	h.PatchNarrationEvent()(rr, httptest.NewRequest("PATCH", "/projects/proj_ev/timeline/narration/n1",
		strings.NewReader(`{"text":"new text","end_ms":5000}`)), patchEventParams("proj_ev", "n1"))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	reloaded, err := h.Store.Load("proj_ev")
	require.NoError(t, err)
	require.Equal(t, "new text", reloaded.Timeline.NarrationEvents[0].Text)
	require.Equal(t, int64(5000), reloaded.Timeline.NarrationEvents[0].EndMS)
}

func TestPatchNarrationEventUnknownID(t *testing.T) {
	h := newTestHandlers(t)
	seedProject(t, h, "proj_ev404")

	rr := httptest.NewRecorder()
	h.PatchNarrationEvent()(rr, httptest.NewRequest("PATCH", "/projects/proj_ev404/timeline/narration/nope",
		strings.NewReader(`{"text":"x"}`)), patchEventParams("proj_ev404", "nope"))
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestPatchNarrationEventReorderComesBackSorted(t *testing.T) {
	h := newTestHandlers(t)
	proj := seedProject(t, h, "proj_evsort")
	proj.Timeline.NarrationEvents = []timeline.NarrationEvent{
		{ID: "n1", StartMS: 1000, EndMS: 4000, Text: "first", VoiceProfileID: "default"},
		{ID: "n2", StartMS: 5000, EndMS: 8000, Text: "second", VoiceProfileID: "default"},
	}
	require.NoError(t, h.Store.Save(proj))

	// move n1 past n2
	rr := httptest.NewRecorder()
	h.PatchNarrationEvent()(rr, httptest.NewRequest("PATCH", "/projects/proj_evsort/timeline/narration/n1",
		strings.NewReader(`{"start_ms":10000,"end_ms":12000}`)), patchEventParams("proj_evsort", "n1"))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	reloaded, err := h.Store.Load("proj_evsort")
	require.NoError(t, err)
	require.Len(t, reloaded.Timeline.NarrationEvents, 2)
	require.Equal(t, "n2", reloaded.Timeline.NarrationEvents[0].ID)
	require.Equal(t, "n1", reloaded.Timeline.NarrationEvents[1].ID)
	require.Equal(t, int64(10000), reloaded.Timeline.NarrationEvents[1].StartMS)
}

func TestPatchNarrationEventRepairsInvertedRange(t *testing.T) {
	h := newTestHandlers(t)
	proj := seedProject(t, h, "proj_evrange")
	proj.Timeline.NarrationEvents = []timeline.NarrationEvent{
		{ID: "n1", StartMS: 1000, EndMS: 4000, Text: "hello", VoiceProfileID: "default"},
	}
	require.NoError(t, h.Store.Save(proj))

	rr := httptest.NewRecorder()
	h.PatchNarrationEvent()(rr, httptest.NewRequest("PATCH", "/projects/proj_evrange/timeline/narration/n1",
		strings.NewReader(`{"end_ms":500}`)), patchEventParams("proj_evrange", "n1"))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	// end <= start gets repaired the same way imports do
	reloaded, err := h.Store.Load("proj_evrange")
	require.NoError(t, err)
	require.Equal(t, int64(1000), reloaded.Timeline.NarrationEvents[0].StartMS)
	require.Equal(t, int64(4000), reloaded.Timeline.NarrationEvents[0].EndMS)
}

func TestPatchNarrationEventRejectsEmptyText(t *testing.T) {
	h := newTestHandlers(t)
	proj := seedProject(t, h, "proj_evtext")
	proj.Timeline.NarrationEvents = []timeline.NarrationEvent{
		{ID: "n1", StartMS: 1000, EndMS: 4000, Text: "hello", VoiceProfileID: "default"},
	}
	require.NoError(t, h.Store.Save(proj))

	rr := httptest.NewRecorder()
	h.PatchNarrationEvent()(rr, httptest.NewRequest("PATCH", "/projects/proj_evtext/timeline/narration/n1",
		strings.NewReader(`{"text":"   "}`)), patchEventParams("proj_evtext", "n1"))
	require.Equal(t, http.StatusBadRequest, rr.Code)

	body := decodeBody(t, rr)
	detail := body["detail"].(map[string]interface{})
	require.Equal(t, "empty_text", detail["code"])

	reloaded, err := h.Store.Load("proj_evtext")
	require.NoError(t, err)
	require.Equal(t, "hello", reloaded.Timeline.NarrationEvents[0].Text)
}

func TestValidateActionsReportsIndexAndID(t *testing.T) {
	h := newTestHandlers(t)
	proj := seedProject(t, h, "proj_actions")
	proj.Timeline.ActionEvents = []timeline.ActionEvent{
		{ID: "a1", AtMS: 0, Action: "goto", Target: "https://example.com", Args: map[string]interface{}{}},
		{ID: "a1", AtMS: 1000, Action: "click", Target: "#btn", Args: map[string]interface{}{}},
	}
	require.NoError(t, h.Store.Save(proj))

	rr := httptest.NewRecorder()
	h.ValidateActions()(rr, httptest.NewRequest("POST", "/projects/proj_actions/timeline/actions/validate", nil),
		idParams("proj_actions"))
	require.Equal(t, http.StatusBadRequest, rr.Code)

	body := decodeBody(t, rr)
	detail := body["detail"].(map[string]interface{})
	require.Equal(t, float64(1), detail["action_index"])
	require.Equal(t, "a1", detail["action_id"])
}

func TestValidateActionsCountsValidTimeline(t *testing.T) {
	h := newTestHandlers(t)
	proj := seedProject(t, h, "proj_actions_ok")
	proj.Timeline.ActionEvents = []timeline.ActionEvent{
		{ID: "a1", AtMS: 0, Action: "goto", Target: "https://example.com", Args: map[string]interface{}{}},
		{ID: "a2", AtMS: 1000, Action: "click", Target: "#btn", Args: map[string]interface{}{}},
	}
	require.NoError(t, h.Store.Save(proj))

	rr := httptest.NewRecorder()
	h.ValidateActions()(rr, httptest.NewRequest("POST", "/projects/proj_actions_ok/timeline/actions/validate", nil),
		idParams("proj_actions_ok"))
	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	require.Equal(t, float64(2), body["action_count"])
}

func TestUpsertAndGetTTSProfile(t *testing.T) {
	h := newTestHandlers(t)
	seedProject(t, h, "proj_tts")

	payload := `{"profile_id":"narrator","voice_mode":"predefined_voice","predefined_voice_id":"nova","params":{"speed_factor":1.1}}`
	rr := httptest.NewRecorder()
	h.UpsertTTSProfile()(rr, httptest.NewRequest("POST", "/projects/proj_tts/tts/profile",
		strings.NewReader(payload)), idParams("proj_tts"))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = httptest.NewRecorder()
	h.GetTTSProfile()(rr, httptest.NewRequest("GET", "/projects/proj_tts/tts/profile?profile_id=narrator", nil),
		idParams("proj_tts"))
	require.Equal(t, http.StatusOK, rr.Code)

	var profile store.Profile
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &profile))
	require.Equal(t, "narrator", profile.ProfileID)
	require.Equal(t, "narrator", profile.DisplayName)
	require.Equal(t, "nova", profile.PredefinedVoiceID)
}

func TestUpsertTTSProfileReferenceAudioNeedsPrompt(t *testing.T) {
	h := newTestHandlers(t)
	seedProject(t, h, "proj_refaudio")

	rr := httptest.NewRecorder()
	h.UpsertTTSProfile()(rr, httptest.NewRequest("POST", "/projects/proj_refaudio/tts/profile",
		strings.NewReader(`{"profile_id":"cloned","voice_mode":"reference_audio"}`)), idParams("proj_refaudio"))
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "audio_prompt_path")
}

func TestGetTTSProfileMissing(t *testing.T) {
	h := newTestHandlers(t)
	seedProject(t, h, "proj_noprofile")

	rr := httptest.NewRecorder()
	h.GetTTSProfile()(rr, httptest.NewRequest("GET", "/projects/proj_noprofile/tts/profile?profile_id=ghost", nil),
		idParams("proj_noprofile"))
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestPreviewTTSSynthesizes(t *testing.T) {
	h := newTestHandlers(t)
	seedProject(t, h, "proj_preview")

	rr := httptest.NewRecorder()
	h.PreviewTTS()(rr, httptest.NewRequest("POST", "/projects/proj_preview/tts/preview",
		strings.NewReader(`{"text":"Welcome to the product tour."}`)), idParams("proj_preview"))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	body := decodeBody(t, rr)
	require.Equal(t, true, body["ok"])
	require.Equal(t, false, body["cache_hit"])
	audioPath := body["audio_path"].(string)
	_, err := os.Stat(audioPath)
	require.NoError(t, err)
}

func TestPreviewTTSRejectsEmptyText(t *testing.T) {
	h := newTestHandlers(t)
	seedProject(t, h, "proj_preview_empty")

	rr := httptest.NewRecorder()
	h.PreviewTTS()(rr, httptest.NewRequest("POST", "/projects/proj_preview_empty/tts/preview",
		strings.NewReader(`{}`)), idParams("proj_preview_empty"))
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestEnqueueRenderReturnsJob(t *testing.T) {
	h := newTestHandlers(t)
	seedProject(t, h, "proj_render")

	rr := httptest.NewRecorder()
	h.EnqueueRender()(rr, httptest.NewRequest("POST", "/projects/proj_render/render", nil), idParams("proj_render"))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	body := decodeBody(t, rr)
	jobID := body["job_id"].(string)
	require.Equal(t, "render", body["run_type"])
	require.Equal(t, "tts_only", body["narration_mode"])
	require.Equal(t, "/jobs/"+jobID, body["status_url"])
	require.NotEmpty(t, body["queued_at"])

	status, err := h.Queue.Status(context.Background(), jobID)
	require.NoError(t, err)
	require.Equal(t, queue.StatusQueued, status.Status)
	require.Equal(t, "pipeline.run", status.FuncName)
	require.Equal(t, "proj_render", status.Meta.ProjectID)
	require.Equal(t, "render", status.Meta.RunType)
}

func TestEnqueueDemoRunResolvesExecutionMode(t *testing.T) {
	h := newTestHandlers(t)
	proj := seedProject(t, h, "proj_demo")
	proj.Timeline.ActionEvents = []timeline.ActionEvent{
		{ID: "a1", AtMS: 0, Action: "goto", Target: "https://example.com", Args: map[string]interface{}{}},
	}
	require.NoError(t, h.Store.Save(proj))

	rr := httptest.NewRecorder()
	h.EnqueueDemoRun()(rr, httptest.NewRequest("POST", "/projects/proj_demo/demo/run",
		strings.NewReader(`{"execution_mode":"playwright_required"}`)), idParams("proj_demo"))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	body := decodeBody(t, rr)
	require.Equal(t, "demo_capture", body["run_type"])
	require.Equal(t, demo.ExecutionModePlaywrightRequired, body["execution_mode"])
	require.Equal(t, float64(1), body["action_count"])

	status, err := h.Queue.Status(context.Background(), body["job_id"].(string))
	require.NoError(t, err)
	require.Equal(t, "demo.capture", status.FuncName)
	require.Equal(t, demo.ExecutionModePlaywrightRequired, status.Meta.ExecutionMode)
}

func TestEnqueueDemoRunWithoutActions(t *testing.T) {
	h := newTestHandlers(t)
	seedProject(t, h, "proj_demo_empty")

	rr := httptest.NewRecorder()
	h.EnqueueDemoRun()(rr, httptest.NewRequest("POST", "/projects/proj_demo_empty/demo/run", nil),
		idParams("proj_demo_empty"))
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "no action events")
}

func TestEnqueueDemoRunRejectsInvalidActions(t *testing.T) {
	h := newTestHandlers(t)
	proj := seedProject(t, h, "proj_demo_bad")
	proj.Timeline.ActionEvents = []timeline.ActionEvent{
		{ID: "a1", AtMS: 0, Action: "teleport", Args: map[string]interface{}{}},
	}
	require.NoError(t, h.Store.Save(proj))

	rr := httptest.NewRecorder()
	h.EnqueueDemoRun()(rr, httptest.NewRequest("POST", "/projects/proj_demo_bad/demo/run", nil),
		idParams("proj_demo_bad"))
	require.Equal(t, http.StatusBadRequest, rr.Code)

	body := decodeBody(t, rr)
	detail := body["detail"].(map[string]interface{})
	require.Equal(t, "a1", detail["action_id"])
}

func TestListDemoRunsNewestFirst(t *testing.T) {
	h := newTestHandlers(t)
	proj := seedProject(t, h, "proj_runs")
	for i := 1; i <= 3; i++ {
		proj.AppendDemoRun(store.DemoRunRecord{RunID: fmt.Sprintf("demo_%04d", i), OK: true})
	}
	require.NoError(t, h.Store.Save(proj))

	rr := httptest.NewRecorder()
	h.ListDemoRuns()(rr, httptest.NewRequest("GET", "/projects/proj_runs/demo/runs", nil), idParams("proj_runs"))
	require.Equal(t, http.StatusOK, rr.Code)

	body := decodeBody(t, rr)
	require.Equal(t, "demo_0003", body["last_run_id"])
	runs := body["runs"].([]interface{})
	require.Len(t, runs, 3)
	first := runs[0].(map[string]interface{})
	require.Equal(t, "demo_0003", first["run_id"])
}

func TestGetJobNotFound(t *testing.T) {
	h := newTestHandlers(t)
	rr := httptest.NewRecorder()
	h.GetJob()(rr, httptest.NewRequest("GET", "/jobs/nope", nil),
		httprouter.Params{{Key: "job_id", Value: "nope"}})
	require.Equal(t, http.StatusNotFound, rr.Code)
}
