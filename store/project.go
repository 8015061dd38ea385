// Package store owns the per-project JSON document: its schema, the
// default-filling migration run on every load, bounded run histories and
// atomic persistence.
package store

import (
	"encoding/json"

	"github.com/voforge/voforge-api/demo"
	"github.com/voforge/voforge-api/timeline"
	"github.com/voforge/voforge-api/video"
)

const (
	SchemaVersion = "2.0.0"
	AppName       = "voforge"
	AppVersion    = "2.0.0"

	// History bounds: default cap per history, hard ceiling for
	// caller-supplied limits.
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500
)

type AppInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type SourceVideo struct {
	Path       string  `json:"path"`
	SHA256     string  `json:"sha256"`
	DurationMS int64   `json:"duration_ms"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	FPS        float64 `json:"fps"`
	HasAudio   bool    `json:"has_audio"`
}

type Source struct {
	Video SourceVideo `json:"video"`
}

type NarrationSettings struct {
	WordsPerSecond float64 `json:"words_per_second"`
	MinWords       int     `json:"min_words"`
	MaxWords       int     `json:"max_words"`
	Style          string  `json:"style"`
}

type TTSSettings struct {
	Provider           string                 `json:"provider"`
	Endpoint           string                 `json:"endpoint,omitempty"`
	VoiceMode          string                 `json:"voice_mode"`
	PredefinedVoiceID  string                 `json:"predefined_voice_id"`
	ReferenceAudioPath string                 `json:"reference_audio_path,omitempty"`
	DefaultParams      map[string]interface{} `json:"default_params"`
}

// Settings keeps the fields this service acts on as typed members and
// round-trips everything else through Extra, so documents written by older
// deployments keep their unknown keys across a load/save cycle.
type Settings struct {
	NarrationMode            string
	DemoCaptureExecutionMode string
	DemoContext              string
	Narration                NarrationSettings
	TTS                      TTSSettings
	Extra                    map[string]json.RawMessage
}

func (s Settings) MarshalJSON() ([]byte, error) {
	out := map[string]interface{}{}
	for k, v := range s.Extra {
		out[k] = v
	}
	out["narration_mode"] = s.NarrationMode
	out["demo_capture_execution_mode"] = s.DemoCaptureExecutionMode
	out["demo_context"] = s.DemoContext
	out["narration"] = s.Narration
	out["tts"] = s.TTS
	return json.Marshal(out)
}

func (s *Settings) UnmarshalJSON(data []byte) error {
	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	pop := func(key string, into interface{}) {
		if v, ok := raw[key]; ok {
			_ = json.Unmarshal(v, into)
			delete(raw, key)
		}
	}
	pop("narration_mode", &s.NarrationMode)
	pop("demo_capture_execution_mode", &s.DemoCaptureExecutionMode)
	pop("demo_context", &s.DemoContext)
	pop("narration", &s.Narration)
	pop("tts", &s.TTS)
	s.Extra = raw
	return nil
}

// Profile is one named TTS voice configuration.
type Profile struct {
	ProfileID         string                 `json:"profile_id"`
	DisplayName       string                 `json:"display_name"`
	Provider          string                 `json:"provider"`
	Endpoint          string                 `json:"endpoint,omitempty"`
	VoiceMode         string                 `json:"voice_mode"`
	PredefinedVoiceID string                 `json:"predefined_voice_id,omitempty"`
	AudioPromptPath   string                 `json:"audio_prompt_path,omitempty"`
	Params            map[string]interface{} `json:"params"`
}

// ErrorSummary is the normalized error rollup stored on history records.
type ErrorSummary struct {
	HasError        bool           `json:"has_error"`
	Message         string         `json:"message"`
	FailedActions   int            `json:"failed_actions"`
	FailedActionIDs []string       `json:"failed_action_ids"`
	ErrorTypes      map[string]int `json:"error_types"`
}

type RenderRecord struct {
	RenderID          string                 `json:"render_id"`
	CreatedAt         string                 `json:"created_at"`
	Status            string                 `json:"status"`
	Mode              string                 `json:"mode"`
	Segments          int                    `json:"segments"`
	CacheHits         int                    `json:"cache_hits"`
	GeneratedSegments int                    `json:"generated_segments"`
	FinalMP4Path      string                 `json:"final_mp4_path,omitempty"`
	SourceVideoPath   string                 `json:"source_video_path,omitempty"`
	StageTimingsMS    map[string]int64       `json:"stage_timings_ms"`
	Error             string                 `json:"error,omitempty"`
	ErrorSummary      ErrorSummary           `json:"error_summary"`
	Correlation       map[string]interface{} `json:"correlation"`
	HistoryLimit      int                    `json:"history_limit,omitempty"`
}

type DemoRunRecord struct {
	RunID            string                  `json:"run_id"`
	CreatedAt        string                  `json:"created_at"`
	OK               bool                    `json:"ok"`
	Mode             string                  `json:"mode"`
	ExecutionMode    string                  `json:"execution_mode"`
	ActionsTotal     int                     `json:"actions_total"`
	ActionsExecuted  int                     `json:"actions_executed"`
	RawDemoMP4       string                  `json:"raw_demo_mp4,omitempty"`
	LogsPath         string                  `json:"logs_path,omitempty"`
	ArtifactsDir     string                  `json:"artifacts_dir,omitempty"`
	Error            string                  `json:"error,omitempty"`
	StageTimingsMS   map[string]int64        `json:"stage_timings_ms"`
	DriftStats       demo.DriftStats         `json:"drift_stats"`
	ExecutionSummary demo.ExecutionSummary   `json:"execution_summary"`
	Executions       []demo.ActionExecution  `json:"executions,omitempty"`
	ErrorSummary     ErrorSummary            `json:"error_summary"`
	ArtifactSummary  demo.ArtifactSummary    `json:"artifact_summary"`
	DebugArtifacts   demo.DebugArtifacts     `json:"debug_artifacts"`
	RecordingProfile *video.RecordingProfile `json:"recording_profile,omitempty"`
	Correlation      map[string]interface{}  `json:"correlation"`
	DependencyStatus demo.DependencyStatus   `json:"dependency_status"`
	HistoryLimit     int                     `json:"history_limit,omitempty"`
}

type Renders struct {
	LastRenderID *string        `json:"last_render_id"`
	History      []RenderRecord `json:"history"`
}

type DemoState struct {
	LastRunID *string         `json:"last_run_id"`
	Runs      []DemoRunRecord `json:"runs"`
}

type FFmpegProvenance struct {
	Commands                [][]string `json:"commands"`
	FilterComplexScriptPath string     `json:"filter_complex_script_path,omitempty"`
}

type Exports struct {
	Artifacts  map[string]string `json:"artifacts"`
	FFmpeg     FFmpegProvenance  `json:"ffmpeg"`
	ExportedAt string            `json:"exported_at,omitempty"`
}

// Project is the one document per uploaded source video.
type Project struct {
	SchemaVersion string                   `json:"schema_version"`
	ProjectID     string                   `json:"project_id"`
	CreatedAt     string                   `json:"created_at"`
	UpdatedAt     string                   `json:"updated_at"`
	App           AppInfo                  `json:"app"`
	Source        Source                   `json:"source"`
	Settings      Settings                 `json:"settings"`
	Timeline      timeline.Timeline        `json:"timeline"`
	TTSProfiles   map[string]Profile       `json:"tts_profiles"`
	Renders       Renders                  `json:"renders"`
	Demo          DemoState                `json:"demo"`
	Exports       Exports                  `json:"exports"`
	Segments      []map[string]interface{} `json:"segments,omitempty"`
}

// NewDemoRunRecord converts a runner result into its stored history shape.
func NewDemoRunRecord(res *demo.RunResult) DemoRunRecord {
	correlation := res.Correlation
	if correlation == nil {
		correlation = map[string]interface{}{}
	}
	return DemoRunRecord{
		RunID:           res.RunID,
		CreatedAt:       res.CreatedAt,
		OK:              res.OK,
		Mode:            res.Mode,
		ExecutionMode:   res.ExecutionMode,
		ActionsTotal:    res.ActionsTotal,
		ActionsExecuted: res.ActionsExecuted,
		RawDemoMP4:      res.RawDemoMP4,
		LogsPath:        res.LogsPath,
		ArtifactsDir:    res.ArtifactsDir,
		Error:           res.Error,
		StageTimingsMS:  res.StageTimingsMS,
		DriftStats:      res.DriftStats,
		ExecutionSummary: demo.ExecutionSummary{
			Total:    res.ExecutionSummary.Total,
			OK:       res.ExecutionSummary.OK,
			Error:    res.ExecutionSummary.Error,
			Retries:  res.ExecutionSummary.Retries,
			Timeouts: res.ExecutionSummary.Timeouts,
		},
		Executions: res.Executions,
		ErrorSummary: ErrorSummary{
			HasError: res.ErrorSummary.HasError,
			Message:  res.ErrorSummary.Message,
		},
		ArtifactSummary:  res.ArtifactSummary,
		DebugArtifacts:   res.DebugArtifacts,
		RecordingProfile: res.RecordingProfile,
		Correlation:      correlation,
		DependencyStatus: res.DependencyStatus,
	}
}
