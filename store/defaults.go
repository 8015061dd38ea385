package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/voforge/voforge-api/demo"
	"github.com/voforge/voforge-api/timeline"
)

// Narration modes that may legitimately appear in stored settings. Older
// documents carry legacy modes the dispatcher no longer runs; the store
// keeps them rather than silently rewriting user data.
var knownNarrationModes = map[string]bool{
	"tts_only":         true,
	"unified":          true,
	"timeline_unified": true,
	"legacy_segment":   true,
	"legacy_holistic":  true,
	"segment":          true,
	"holistic":         true,
	"timeline":         true,
}

// Schema versions EnsureDefaults upgrades in place.
var upgradableSchemaVersions = map[string]bool{
	"":      true,
	"1.0.0": true,
	"1.1.0": true,
	"1.2.0": true,
}

func utcNowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func timestampToken() string {
	token := time.Now().UTC().Format("2006-01-02T15:04:05Z")
	token = strings.ReplaceAll(token, ":", "")
	return strings.ReplaceAll(token, "-", "")
}

func defaultNarrationSettings() NarrationSettings {
	return NarrationSettings{
		WordsPerSecond: 2.25,
		MinWords:       4,
		MaxWords:       28,
		Style:          "present tense, action+result, no filler",
	}
}

func defaultTTSSettings() TTSSettings {
	return TTSSettings{
		Provider:          "chatterbox",
		VoiceMode:         "predefined_voice",
		PredefinedVoiceID: "alloy",
		DefaultParams: map[string]interface{}{
			"speed_factor":  1.0,
			"temperature":   0.8,
			"exaggeration":  0.5,
			"cfg_weight":    0.5,
			"seed":          123,
			"language_id":   "en",
			"output_format": "wav",
		},
	}
}

// DefaultProfileFromTTSSettings projects the project-level TTS defaults into
// the `default` profile every project carries.
func DefaultProfileFromTTSSettings(tts TTSSettings) Profile {
	params := map[string]interface{}{}
	for k, v := range tts.DefaultParams {
		params[k] = v
	}
	profile := Profile{
		ProfileID:         "default",
		DisplayName:       "Default",
		Provider:          tts.Provider,
		Endpoint:          tts.Endpoint,
		VoiceMode:         tts.VoiceMode,
		PredefinedVoiceID: tts.PredefinedVoiceID,
		Params:            params,
	}
	if tts.ReferenceAudioPath != "" {
		profile.AudioPromptPath = tts.ReferenceAudioPath
	}
	return profile
}

func historyLimit(value, def int) int {
	if value < 1 {
		return def
	}
	if value > MaxHistoryLimit {
		return MaxHistoryLimit
	}
	return value
}

func clampNonNegative(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

func normalizeStageTimings(timings map[string]int64) map[string]int64 {
	out := map[string]int64{}
	for k, v := range timings {
		if v < 0 {
			v = 0
		}
		out[k] = v
	}
	return out
}

func normalizeErrorSummary(summary ErrorSummary, recordError string, execSummary demo.ExecutionSummary, executions []demo.ActionExecution) ErrorSummary {
	message := summary.Message
	if message == "" {
		message = recordError
	}
	failedActions := execSummary.Error
	if failedActions < 0 {
		failedActions = 0
	}
	var failedIDs []string
	errorTypes := map[string]int{}
	for _, exec := range executions {
		if exec.Status == "ok" {
			continue
		}
		if exec.ActionID != "" {
			failedIDs = append(failedIDs, exec.ActionID)
		}
		errorType := exec.ErrorType
		if errorType == "" {
			errorType = "action_error"
		}
		errorTypes[errorType]++
	}
	return ErrorSummary{
		HasError:        summary.HasError || message != "" || failedActions > 0,
		Message:         message,
		FailedActions:   failedActions,
		FailedActionIDs: failedIDs,
		ErrorTypes:      errorTypes,
	}
}

func normalizeDemoRunRecord(rec DemoRunRecord) DemoRunRecord {
	if rec.RunID == "" {
		rec.RunID = "demo_" + timestampToken()
	}
	if rec.CreatedAt == "" {
		rec.CreatedAt = utcNowISO()
	}
	if rec.Mode == "" {
		rec.Mode = "demo_capture_unknown"
	}
	rec.ExecutionMode = demo.NormalizeExecutionMode(rec.ExecutionMode, demo.ExecutionModePlaywrightOptional)
	rec.ActionsTotal = clampNonNegative(rec.ActionsTotal)
	rec.ActionsExecuted = clampNonNegative(rec.ActionsExecuted)
	rec.StageTimingsMS = normalizeStageTimings(rec.StageTimingsMS)
	rec.ErrorSummary = normalizeErrorSummary(rec.ErrorSummary, rec.Error, rec.ExecutionSummary, rec.Executions)
	if rec.Correlation == nil {
		rec.Correlation = map[string]interface{}{}
	}
	return rec
}

func normalizeRenderRecord(rec RenderRecord) RenderRecord {
	if rec.RenderID == "" {
		rec.RenderID = "render_" + timestampToken()
	}
	if rec.CreatedAt == "" {
		rec.CreatedAt = utcNowISO()
	}
	if rec.Mode == "" {
		rec.Mode = "tts_only"
	}
	if rec.Status == "" {
		rec.Status = "completed"
	}
	rec.Segments = clampNonNegative(rec.Segments)
	rec.CacheHits = clampNonNegative(rec.CacheHits)
	rec.GeneratedSegments = clampNonNegative(rec.GeneratedSegments)
	rec.StageTimingsMS = normalizeStageTimings(rec.StageTimingsMS)
	if rec.ErrorSummary.Message == "" {
		rec.ErrorSummary.Message = rec.Error
	}
	rec.ErrorSummary.HasError = rec.ErrorSummary.HasError || rec.ErrorSummary.Message != "" || rec.Status == "failed"
	if rec.ErrorSummary.ErrorTypes == nil {
		rec.ErrorSummary.ErrorTypes = map[string]int{}
	}
	if rec.Correlation == nil {
		rec.Correlation = map[string]interface{}{}
	}
	return rec
}

func trimToTail[T any](records []T, limit int) []T {
	if len(records) <= limit {
		return records
	}
	return records[len(records)-limit:]
}

func intFromAny(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	}
	return 0, false
}

// projectLegacySegments rebuilds narration events from the pre-timeline
// per-segment document shape. Only called when the timeline has no
// narration events of its own.
func projectLegacySegments(segments []map[string]interface{}) []timeline.NarrationEvent {
	var events []timeline.NarrationEvent
	for _, seg := range segments {
		start, ok := intFromAny(seg["start_ms"])
		if !ok {
			continue
		}
		end, ok := intFromAny(seg["end_ms"])
		if !ok || end <= start {
			continue
		}
		text := ""
		if narration, ok := seg["narration"].(map[string]interface{}); ok {
			text, _ = narration["selected_text"].(string)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		segID := fmt.Sprintf("%v", seg["id"])
		events = append(events, timeline.NarrationEvent{
			ID:             "n" + segID,
			StartMS:        start,
			EndMS:          end,
			Text:           text,
			VoiceProfileID: timeline.DefaultVoiceProfileID,
			Meta: map[string]interface{}{
				"source":            "legacy_segment",
				"source_segment_id": seg["id"],
			},
		})
	}
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].StartMS != events[j].StartMS {
			return events[i].StartMS < events[j].StartMS
		}
		if events[i].EndMS != events[j].EndMS {
			return events[i].EndMS < events[j].EndMS
		}
		return events[i].ID < events[j].ID
	})

	seen := map[string]int{}
	for i := range events {
		id := events[i].ID
		if n, dup := seen[id]; dup {
			seen[id] = n + 1
			events[i].ID = fmt.Sprintf("%s_%d", id, n+1)
		} else {
			seen[id] = 0
		}
	}
	return events
}

// EnsureDefaults is the migration pass run on every load (and before every
// initial save): it fills missing fields with current defaults, upgrades
// older schema versions, projects legacy segment narration into the
// timeline, and normalizes both run histories. It is idempotent.
func (p *Project) EnsureDefaults() {
	if upgradableSchemaVersions[p.SchemaVersion] {
		p.SchemaVersion = SchemaVersion
	}
	if p.CreatedAt == "" {
		p.CreatedAt = utcNowISO()
	}
	if p.App.Name == "" {
		p.App = AppInfo{Name: AppName, Version: AppVersion}
	}

	if !knownNarrationModes[p.Settings.NarrationMode] {
		p.Settings.NarrationMode = "tts_only"
	}
	p.Settings.DemoCaptureExecutionMode = demo.NormalizeExecutionMode(
		p.Settings.DemoCaptureExecutionMode, demo.ExecutionModePlaywrightOptional)
	if p.Settings.Narration == (NarrationSettings{}) {
		p.Settings.Narration = defaultNarrationSettings()
	}
	if p.Settings.TTS.Provider == "" {
		defaults := defaultTTSSettings()
		defaults.Endpoint = p.Settings.TTS.Endpoint
		defaults.ReferenceAudioPath = p.Settings.TTS.ReferenceAudioPath
		p.Settings.TTS = defaults
	}
	if p.Settings.TTS.DefaultParams == nil {
		p.Settings.TTS.DefaultParams = defaultTTSSettings().DefaultParams
	}
	if p.Settings.Extra == nil {
		p.Settings.Extra = map[string]json.RawMessage{}
	}

	p.Timeline.ApplyDefaults()

	if len(p.Timeline.NarrationEvents) == 0 && len(p.Segments) > 0 {
		p.Timeline.NarrationEvents = append(p.Timeline.NarrationEvents, projectLegacySegments(p.Segments)...)
	}

	if p.TTSProfiles == nil {
		p.TTSProfiles = map[string]Profile{}
	}
	if _, ok := p.TTSProfiles["default"]; !ok {
		p.TTSProfiles["default"] = DefaultProfileFromTTSSettings(p.Settings.TTS)
	}

	p.normalizeRenderHistory(DefaultHistoryLimit)
	p.normalizeDemoHistory(DefaultHistoryLimit)

	if p.Exports.Artifacts == nil {
		p.Exports.Artifacts = map[string]string{}
	}
	if p.Exports.FFmpeg.Commands == nil {
		p.Exports.FFmpeg.Commands = [][]string{}
	}
}

func (p *Project) normalizeRenderHistory(limit int) {
	history := make([]RenderRecord, 0, len(p.Renders.History))
	for _, rec := range p.Renders.History {
		history = append(history, normalizeRenderRecord(rec))
	}
	history = trimToTail(history, limit)
	p.Renders.History = history
	if len(history) > 0 {
		last := history[len(history)-1].RenderID
		p.Renders.LastRenderID = &last
	} else {
		p.Renders.LastRenderID = nil
	}
}

func (p *Project) normalizeDemoHistory(limit int) {
	runs := make([]DemoRunRecord, 0, len(p.Demo.Runs))
	for _, rec := range p.Demo.Runs {
		runs = append(runs, normalizeDemoRunRecord(rec))
	}
	runs = trimToTail(runs, limit)
	p.Demo.Runs = runs
	if len(runs) > 0 {
		last := runs[len(runs)-1].RunID
		p.Demo.LastRunID = &last
	} else {
		p.Demo.LastRunID = nil
	}
}

// AppendRenderRecord normalizes, appends and re-bounds the render history,
// then syncs last_render_id to the appended record.
func (p *Project) AppendRenderRecord(rec RenderRecord) RenderRecord {
	limit := historyLimit(rec.HistoryLimit, DefaultHistoryLimit)
	rec.HistoryLimit = limit
	normalized := normalizeRenderRecord(rec)
	p.Renders.History = append(p.Renders.History, normalized)
	p.normalizeRenderHistory(limit)
	return normalized
}

// AppendDemoRun normalizes, appends and re-bounds the demo run history,
// then syncs last_run_id to the appended record.
func (p *Project) AppendDemoRun(rec DemoRunRecord) DemoRunRecord {
	limit := historyLimit(rec.HistoryLimit, DefaultHistoryLimit)
	rec.HistoryLimit = limit
	normalized := normalizeDemoRunRecord(rec)
	p.Demo.Runs = append(p.Demo.Runs, normalized)
	p.normalizeDemoHistory(limit)
	return normalized
}

// NewProject builds a fresh project document for an uploaded source video.
func NewProject(projectID string, source SourceVideo) *Project {
	p := &Project{
		SchemaVersion: SchemaVersion,
		ProjectID:     projectID,
		CreatedAt:     utcNowISO(),
		App:           AppInfo{Name: AppName, Version: AppVersion},
		Source:        Source{Video: source},
		Timeline:      timeline.Empty(),
	}
	p.EnsureDefaults()
	return p
}
