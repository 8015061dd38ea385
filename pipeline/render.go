package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/voforge/voforge-api/log"
	"github.com/voforge/voforge-api/metrics"
	"github.com/voforge/voforge-api/store"
	"github.com/voforge/voforge-api/tts"
	"github.com/voforge/voforge-api/video"
)

// TTSOnly renders the narration timeline onto a source video: synthesize
// every segment, mix them onto one 48kHz track, mux it under the video and
// attach the generated captions.
func (p *Pipeline) TTSOnly(ctx context.Context, jobID, projectID string, opts RenderOptions) (*RenderResult, error) {
	totalStart := time.Now()
	renderID := "render_" + timestampToken()
	mode := opts.RenderMode
	if mode == "" {
		mode = "tts_only"
	}

	result := &RenderResult{
		ProjectID:      projectID,
		RenderID:       renderID,
		Mode:           mode,
		StageTimingsMS: map[string]int64{},
		Artifacts:      map[string]string{},
	}

	fail := func(err error) (*RenderResult, error) {
		result.Error = err.Error()
		result.StageTimingsMS["total_ms"] = time.Since(totalStart).Milliseconds()
		p.recordRender(jobID, projectID, result, opts, "failed")
		metrics.Metrics.RenderJobResultCount.WithLabelValues("failed").Inc()
		metrics.Metrics.RenderJobDurationSec.
			WithLabelValues(mode, "false").
			Observe(time.Since(totalStart).Seconds())
		return result, err
	}

	proj, err := p.Store.Load(projectID)
	if err != nil {
		return fail(err)
	}

	sourcePath := opts.SourceVideoPath
	if sourcePath == "" {
		sourcePath = proj.Source.Video.Path
	}
	if sourcePath == "" {
		sourcePath = p.Store.InputVideoPath(projectID)
	}
	result.SourceVideoPath = sourcePath

	info, err := p.Prober.ProbeMedia(ctx, sourcePath)
	if err != nil {
		return fail(fmt.Errorf("source video is unreadable: %w", err))
	}

	segments := BuildSegments(proj.Timeline, info.DurationMS)
	if len(segments) == 0 {
		return fail(fmt.Errorf("timeline has no narration events with text"))
	}
	result.Segments = len(segments)

	_ = p.Store.AppendLog(projectID, fmt.Sprintf("render %s started (mode=%s, segments=%d)", renderID, mode, len(segments)))
	log.Log(jobID, "render started", "render_id", renderID, "mode", mode, "segments", len(segments))

	workDir := filepath.Join(p.Store.WorkDir(projectID), "renders", renderID)
	exportsDir := p.Store.ExportsDir(projectID)
	for _, dir := range []string{workDir, exportsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fail(fmt.Errorf("failed to create render dir: %w", err))
		}
	}

	ttsStart := time.Now()
	segmentWavs := make([]string, 0, len(segments))
	mixSegments := make([]video.MixSegment, 0, len(segments))
	srtEntries := make([]video.SRTEntry, 0, len(segments))
	for _, seg := range segments {
		profile, err := tts.ResolveProfile(proj, seg.VoiceProfileID)
		if err != nil {
			return fail(fmt.Errorf("narration event %s: %w", seg.EventID, err))
		}
		endpoint := tts.ResolveEndpoint(profile, proj.Settings.TTS.Endpoint, p.DefaultTTSEndpoint)
		params := tts.ResolveParams(proj.Settings.TTS.DefaultParams, profile, nil)

		outPath := filepath.Join(workDir, fmt.Sprintf("seg%03d.wav", seg.Index))
		segResult, err := p.Engine.RenderSegment(ctx, jobID, tts.SegmentRequest{
			Text:              seg.Text,
			Params:            params,
			Endpoint:          endpoint,
			Mode:              p.TTSMode,
			Provider:          profile.Provider,
			AudioPromptPath:   profile.AudioPromptPath,
			CacheDir:          p.Store.CacheDir(projectID, "tts"),
			OutPath:           outPath,
			SegmentDurationMS: seg.DurationMS(),
		})
		if err != nil {
			return fail(fmt.Errorf("segment %s synthesis failed: %w", seg.EventID, err))
		}
		if segResult.CacheHit {
			result.CacheHits++
		} else {
			result.GeneratedSegments++
		}

		segmentWavs = append(segmentWavs, outPath)
		endMS := seg.StartMS + segResult.AudioDurationMS
		if endMS > seg.EndMS || segResult.AudioDurationMS <= 0 {
			endMS = seg.EndMS
		}
		mixSegments = append(mixSegments, video.MixSegment{StartMS: seg.StartMS, EndMS: endMS})
		srtEntries = append(srtEntries, video.SRTEntry{
			StartMS: seg.StartMS,
			EndMS:   seg.EndMS,
			Text:    seg.Text,
		})
	}
	result.StageTimingsMS["tts_ms"] = time.Since(ttsStart).Milliseconds()

	mixStart := time.Now()
	filterScriptPath := filepath.Join(workDir, "filter_complex.txt")
	if err := p.WriteFilterScript(mixSegments, filterScriptPath, info.DurationMS); err != nil {
		return fail(fmt.Errorf("failed to write filter script: %w", err))
	}

	var ffmpegCommands [][]string
	narrationWav := filepath.Join(exportsDir, "narration_mix.wav")
	cmd, err := p.MixNarration(ctx, segmentWavs, filterScriptPath, narrationWav)
	if cmd != nil {
		ffmpegCommands = append(ffmpegCommands, cmd)
	}
	if err != nil {
		return fail(fmt.Errorf("narration mix failed: %w", err))
	}

	finalMP4 := filepath.Join(exportsDir, "final.mp4")
	cmd, err = p.MuxFinal(ctx, sourcePath, narrationWav, finalMP4)
	if cmd != nil {
		ffmpegCommands = append(ffmpegCommands, cmd)
	}
	if err != nil {
		return fail(fmt.Errorf("final mux failed: %w", err))
	}

	scriptSRT := filepath.Join(exportsDir, "script.srt")
	if err := p.WriteSRT(srtEntries, scriptSRT); err != nil {
		return fail(fmt.Errorf("failed to write srt: %w", err))
	}

	finalWithCaptions := filepath.Join(exportsDir, "final_with_captions.mp4")
	cmd, err = p.AttachCaptions(ctx, finalMP4, scriptSRT, finalWithCaptions)
	if cmd != nil {
		ffmpegCommands = append(ffmpegCommands, cmd)
	}
	if err != nil {
		return fail(fmt.Errorf("caption attach failed: %w", err))
	}
	result.StageTimingsMS["mix_mux_ms"] = time.Since(mixStart).Milliseconds()
	result.StageTimingsMS["total_ms"] = time.Since(totalStart).Milliseconds()

	result.OK = true
	result.Artifacts = map[string]string{
		"script_srt":              scriptSRT,
		"narration_wav":           narrationWav,
		"final_mp4":               finalMP4,
		"final_mp4_with_captions": finalWithCaptions,
	}

	p.recordExports(jobID, projectID, result.Artifacts, ffmpegCommands, filterScriptPath)
	p.recordRender(jobID, projectID, result, opts, "completed")
	_ = p.Store.AppendLog(projectID, fmt.Sprintf(
		"render %s finished (segments=%d cache_hits=%d generated=%d total_ms=%s)",
		renderID, result.Segments, result.CacheHits, result.GeneratedSegments,
		strconv.FormatInt(result.StageTimingsMS["total_ms"], 10)))
	log.Log(jobID, "render finished", "render_id", renderID, "cache_hits", result.CacheHits)

	metrics.Metrics.RenderJobResultCount.WithLabelValues("completed").Inc()
	metrics.Metrics.RenderJobDurationSec.
		WithLabelValues(mode, "true").
		Observe(time.Since(totalStart).Seconds())
	return result, nil
}

func (p *Pipeline) recordExports(jobID, projectID string, artifacts map[string]string, commands [][]string, filterScriptPath string) {
	proj, err := p.Store.Load(projectID)
	if err != nil {
		log.LogError(jobID, "failed to reload project for exports", err)
		return
	}
	for k, v := range artifacts {
		proj.Exports.Artifacts[k] = v
	}
	proj.Exports.FFmpeg.Commands = commands
	proj.Exports.FFmpeg.FilterComplexScriptPath = filterScriptPath
	proj.Exports.ExportedAt = time.Now().UTC().Format(time.RFC3339)
	if err := p.Store.Save(proj); err != nil {
		log.LogError(jobID, "failed to save exports", err)
	}
}

func (p *Pipeline) recordRender(jobID, projectID string, result *RenderResult, opts RenderOptions, status string) {
	proj, err := p.Store.Load(projectID)
	if err != nil {
		log.LogError(jobID, "failed to reload project for render record", err)
		return
	}
	correlation := map[string]interface{}{"queue_job_id": jobID}
	for k, v := range opts.RenderContext {
		correlation[k] = v
	}
	proj.AppendRenderRecord(store.RenderRecord{
		RenderID:          result.RenderID,
		Status:            status,
		Mode:              result.Mode,
		Segments:          result.Segments,
		CacheHits:         result.CacheHits,
		GeneratedSegments: result.GeneratedSegments,
		FinalMP4Path:      result.Artifacts["final_mp4"],
		SourceVideoPath:   result.SourceVideoPath,
		StageTimingsMS:    result.StageTimingsMS,
		Error:             result.Error,
		Correlation:       correlation,
		HistoryLimit:      opts.HistoryLimit,
	})
	if err := p.Store.Save(proj); err != nil {
		log.LogError(jobID, "failed to save render record", err)
	}
	if status == "failed" {
		_ = p.Store.AppendLog(projectID, fmt.Sprintf("render %s failed: %s", result.RenderID, result.Error))
	}
}
