package pipeline

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/voforge/voforge-api/config"
	"github.com/voforge/voforge-api/demo"
	"github.com/voforge/voforge-api/store"
	"github.com/voforge/voforge-api/tts"
	"github.com/voforge/voforge-api/video"
)

// Pipeline wires the project store, the TTS engine, the demo runner and the
// ffmpeg steps into runnable jobs. The ffmpeg/browser steps are fields so
// tests can substitute fakes.
type Pipeline struct {
	Store  *store.Store
	Engine *tts.Engine
	Prober video.Prober

	DefaultTTSEndpoint   string
	TTSMode              string
	DefaultNarrationMode string
	DefaultExecutionMode string
	QueueName            string

	WriteFilterScript func(segments []video.MixSegment, outPath string, totalDurationMS int64) error
	MixNarration      func(ctx context.Context, segmentWavs []string, filterScript, outWav string) ([]string, error)
	MuxFinal          func(ctx context.Context, inputMP4, narrationWav, outMP4 string) ([]string, error)
	AttachCaptions    func(ctx context.Context, inputMP4, srtPath, outMP4 string) ([]string, error)
	WriteSRT          func(entries []video.SRTEntry, outPath string) error
	Capture           func(ctx context.Context, runner *demo.Runner, actions []demo.Action) *demo.RunResult
}

func New(st *store.Store, cli config.Cli) *Pipeline {
	return &Pipeline{
		Store:                st,
		Engine:               tts.NewEngine(),
		Prober:               video.Probe{},
		DefaultTTSEndpoint:   cli.TTSEndpoint,
		TTSMode:              cli.TTSMode,
		DefaultNarrationMode: cli.NarrationMode,
		DefaultExecutionMode: cli.DemoCaptureExecutionMode,
		QueueName:            cli.QueueName,
		WriteFilterScript:    video.WriteFilterScript,
		MixNarration:         video.MixNarration,
		MuxFinal:             video.MuxFinal,
		AttachCaptions:       video.AttachCaptions,
		WriteSRT:             video.WriteSRT,
		Capture: func(ctx context.Context, runner *demo.Runner, actions []demo.Action) *demo.RunResult {
			return runner.Execute(ctx, actions)
		},
	}
}

// RenderOptions parametrize one TTS render.
type RenderOptions struct {
	// SourceVideoPath overrides the project's input.mp4 (the unified
	// pipeline points this at the captured demo).
	SourceVideoPath string
	RenderMode      string
	RenderContext   map[string]interface{}
	HistoryLimit    int
}

// RenderResult is the job payload stored on the queue job hash.
type RenderResult struct {
	OK                bool              `json:"ok"`
	ProjectID         string            `json:"project_id"`
	RenderID          string            `json:"render_id"`
	Mode              string            `json:"mode"`
	Segments          int               `json:"segments"`
	CacheHits         int               `json:"cache_hits"`
	GeneratedSegments int               `json:"generated_segments"`
	SourceVideoPath   string            `json:"source_video_path"`
	Artifacts         map[string]string `json:"artifacts"`
	StageTimingsMS    map[string]int64  `json:"stage_timings_ms"`
	Error             string            `json:"error,omitempty"`
}

func timestampToken() string {
	token := time.Now().UTC().Format("2006-01-02T15:04:05Z")
	token = strings.ReplaceAll(token, ":", "")
	return strings.ReplaceAll(token, "-", "")
}

// SelectSourceVideo implements the unified source rule: use the captured
// demo iff it exists, is non-empty and was judged playable; otherwise fall
// back to the uploaded input.
func SelectSourceVideo(rawDemoPath string, playable bool, fallback string) string {
	if rawDemoPath == "" {
		return fallback
	}
	stat, err := os.Stat(rawDemoPath)
	if err != nil || stat.Size() == 0 {
		return fallback
	}
	if !playable {
		return fallback
	}
	return rawDemoPath
}
