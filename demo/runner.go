package demo

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/voforge/voforge-api/log"
	"github.com/voforge/voforge-api/metrics"
	"github.com/voforge/voforge-api/video"
)

type AttemptLog struct {
	Attempt   int    `json:"attempt"`
	Status    string `json:"status"`
	ElapsedMS int64  `json:"elapsed_ms"`
	Retryable bool   `json:"retryable"`
	ErrorType string `json:"error_type"`
	Error     string `json:"error"`
}

type ActionExecution struct {
	ActionID       string       `json:"action_id"`
	SourceIndex    int          `json:"source_index"`
	Action         string       `json:"action"`
	PlannedAtMS    int64        `json:"planned_at_ms"`
	ActualAtMS     int64        `json:"actual_at_ms"`
	DriftMS        int64        `json:"drift_ms"`
	TimeoutMS      int64        `json:"timeout_ms"`
	MaxRetries     int          `json:"max_retries"`
	Attempts       int          `json:"attempts"`
	RetryCount     int          `json:"retry_count"`
	Status         string       `json:"status"`
	Error          string       `json:"error,omitempty"`
	ErrorType      string       `json:"error_type,omitempty"`
	ScreenshotPath string       `json:"screenshot_path,omitempty"`
	AttemptLogs    []AttemptLog `json:"attempt_logs"`
}

type DriftStats struct {
	Count  int   `json:"count"`
	MeanMS int64 `json:"mean_ms"`
	MaxMS  int64 `json:"max_ms"`
	MinMS  int64 `json:"min_ms"`
	P95MS  int64 `json:"p95_ms"`
}

type ExecutionSummary struct {
	Total    int `json:"total"`
	OK       int `json:"ok"`
	Error    int `json:"error"`
	Retries  int `json:"retries"`
	Timeouts int `json:"timeouts"`
}

type ErrorSummary struct {
	HasError             bool           `json:"has_error"`
	Message              string         `json:"message"`
	FailedActions        int            `json:"failed_actions"`
	FailedActionIDs      []string       `json:"failed_action_ids"`
	ErrorTypes           map[string]int `json:"error_types"`
	DependencyDiagnostic string         `json:"dependency_diagnostic,omitempty"`
	RuntimeDiagnostic    string         `json:"runtime_diagnostic,omitempty"`
}

type ArtifactSummary struct {
	RawDemoPath         string   `json:"raw_demo_path"`
	RawDemoExists       bool     `json:"raw_demo_exists"`
	RawDemoSizeBytes    int64    `json:"raw_demo_size_bytes"`
	RawDemoDurationMS   int64    `json:"raw_demo_duration_ms"`
	RawDemoPlayable     bool     `json:"raw_demo_playable"`
	RawDemoVideoCodec   string   `json:"raw_demo_video_codec,omitempty"`
	RawDemoAudioCodec   string   `json:"raw_demo_audio_codec,omitempty"`
	RawDemoProbeError   string   `json:"raw_demo_probe_error,omitempty"`
	RecordingSourcePath string   `json:"recording_source_path,omitempty"`
	RecordingFFmpegCmd  []string `json:"recording_ffmpeg_cmd,omitempty"`
}

type DebugArtifacts struct {
	TracePath             string   `json:"trace_path,omitempty"`
	TraceExists           bool     `json:"trace_exists"`
	ScreenshotPaths       []string `json:"screenshot_paths"`
	ScreenshotCount       int      `json:"screenshot_count"`
	RecordingSourcePath   string   `json:"recording_source_path,omitempty"`
	RecordingSourceExists bool     `json:"recording_source_exists"`
	RunLogPath            string   `json:"run_log_path"`
}

// RunResult is the full outcome of one demo capture run, dumped verbatim to
// logs/run.json and folded into the project's demo run history.
type RunResult struct {
	OK               bool                    `json:"ok"`
	ProjectID        string                  `json:"project_id"`
	Mode             string                  `json:"mode"`
	RunID            string                  `json:"run_id"`
	QueueJobID       string                  `json:"queue_job_id,omitempty"`
	ExecutionMode    string                  `json:"execution_mode"`
	RawDemoMP4       string                  `json:"raw_demo_mp4,omitempty"`
	ActionsTotal     int                     `json:"actions_total"`
	ActionsExecuted  int                     `json:"actions_executed"`
	LogsPath         string                  `json:"logs_path"`
	ArtifactsDir     string                  `json:"artifacts_dir"`
	Error            string                  `json:"error,omitempty"`
	CreatedAt        string                  `json:"created_at"`
	Executions       []ActionExecution       `json:"executions"`
	StageTimingsMS   map[string]int64        `json:"stage_timings_ms"`
	DriftStats       DriftStats              `json:"drift_stats"`
	ExecutionSummary ExecutionSummary        `json:"execution_summary"`
	ErrorSummary     ErrorSummary            `json:"error_summary"`
	ArtifactSummary  ArtifactSummary         `json:"artifact_summary"`
	DebugArtifacts   DebugArtifacts          `json:"debug_artifacts"`
	RecordingProfile *video.RecordingProfile `json:"recording_profile,omitempty"`
	Correlation      map[string]interface{}  `json:"correlation"`
	DependencyStatus DependencyStatus        `json:"dependency_status"`
}

// Runner executes validated browser actions on an absolute schedule relative
// to run start, capturing a recording when a browser is available.
//
// When the browser stack is unavailable:
//   - playwright_optional falls back to a deterministic dry run.
//   - playwright_required fails fast with explicit diagnostics.
type Runner struct {
	ProjectID     string
	RunDir        string
	ExecutionMode string
	RunID         string
	QueueJobID    string

	Sessions  SessionFactory
	Probe     DependencyProber
	Prober    video.Prober
	Transcode func(ctx context.Context, prober video.Prober, sourcePath, outPath string, profile video.RecordingProfile) ([]string, error)

	logsDir             string
	artifactsDir        string
	executions          []ActionExecution
	tracePath           string
	recordingSourcePath string
	recordingFFmpegCmd  []string
	profile             video.RecordingProfile
}

func NewRunner(projectID, runDir, executionMode, runID, queueJobID string) *Runner {
	if runID == "" {
		runID = fmt.Sprintf("demo_%s", timestampToken())
	}
	r := &Runner{
		ProjectID:     projectID,
		RunDir:        runDir,
		ExecutionMode: NormalizeExecutionMode(executionMode, ExecutionModePlaywrightOptional),
		RunID:         runID,
		QueueJobID:    queueJobID,
		Sessions:      NewPlaywrightSession,
		Probe:         ProbeDependencies,
		Prober:        video.Probe{},
		Transcode:     video.TranscodeRecording,
		logsDir:       filepath.Join(runDir, "logs"),
		artifactsDir:  filepath.Join(runDir, "artifacts"),
		profile:       video.StandardRecordingProfile(),
	}
	_ = os.MkdirAll(r.logsDir, 0755)
	_ = os.MkdirAll(r.artifactsDir, 0755)
	return r
}

func timestampToken() string {
	token := time.Now().UTC().Format("2006-01-02T15:04:05Z")
	token = strings.ReplaceAll(token, ":", "")
	return strings.ReplaceAll(token, "-", "")
}

func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func (r *Runner) plannedWait(start time.Time, plannedAtMS int64) int64 {
	remaining := time.Duration(plannedAtMS)*time.Millisecond - time.Since(start)
	if remaining > 0 {
		time.Sleep(remaining)
	}
	return time.Since(start).Milliseconds()
}

func (r *Runner) driftStats() DriftStats {
	if len(r.executions) == 0 {
		return DriftStats{}
	}
	drifts := make([]int64, 0, len(r.executions))
	var sum int64
	for _, entry := range r.executions {
		drifts = append(drifts, entry.DriftMS)
		sum += entry.DriftMS
	}
	sort.Slice(drifts, func(i, j int) bool { return drifts[i] < drifts[j] })
	p95Index := int(math.Round(float64(len(drifts)-1) * 0.95))
	return DriftStats{
		Count:  len(drifts),
		MeanMS: int64(math.Round(float64(sum) / float64(len(drifts)))),
		MaxMS:  drifts[len(drifts)-1],
		MinMS:  drifts[0],
		P95MS:  drifts[p95Index],
	}
}

func (r *Runner) executionSummary() ExecutionSummary {
	summary := ExecutionSummary{Total: len(r.executions)}
	for _, entry := range r.executions {
		if entry.Status == "ok" {
			summary.OK++
		}
		summary.Retries += entry.RetryCount
		if entry.ErrorType == "timeout" {
			summary.Timeouts++
		}
	}
	summary.Error = summary.Total - summary.OK
	return summary
}

func (r *Runner) errorSummary(resultError, dependencyError, runtimeError string) ErrorSummary {
	var failedIDs []string
	errorTypes := map[string]int{}
	failed := 0
	for _, entry := range r.executions {
		if entry.Status == "ok" {
			continue
		}
		failed++
		if entry.ActionID != "" {
			failedIDs = append(failedIDs, entry.ActionID)
		}
		errorType := entry.ErrorType
		if errorType == "" {
			errorType = "action_error"
		}
		errorTypes[errorType]++
	}
	return ErrorSummary{
		HasError:             resultError != "" || failed > 0,
		Message:              resultError,
		FailedActions:        failed,
		FailedActionIDs:      failedIDs,
		ErrorTypes:           errorTypes,
		DependencyDiagnostic: dependencyError,
		RuntimeDiagnostic:    runtimeError,
	}
}

func (r *Runner) collectScreenshotPaths() []string {
	seen := map[string]bool{}
	var paths []string
	for _, entry := range r.executions {
		if entry.ScreenshotPath == "" || seen[entry.ScreenshotPath] {
			continue
		}
		seen[entry.ScreenshotPath] = true
		paths = append(paths, entry.ScreenshotPath)
	}
	return paths
}

func (r *Runner) probeRawDemoArtifact(ctx context.Context, rawDemoPath string) ArtifactSummary {
	summary := ArtifactSummary{
		RawDemoPath:         rawDemoPath,
		RecordingSourcePath: r.recordingSourcePath,
		RecordingFFmpegCmd:  r.recordingFFmpegCmd,
	}
	stat, err := os.Stat(rawDemoPath)
	if err != nil {
		return summary
	}
	summary.RawDemoExists = true
	summary.RawDemoSizeBytes = stat.Size()
	if stat.Size() <= 0 {
		return summary
	}

	info, err := r.Prober.ProbeMedia(ctx, rawDemoPath)
	if err != nil {
		summary.RawDemoProbeError = err.Error()
		return summary
	}
	summary.RawDemoDurationMS = info.DurationMS
	summary.RawDemoVideoCodec = info.VideoCodec
	summary.RawDemoAudioCodec = info.AudioCodec
	summary.RawDemoPlayable = info.HasVideo && info.DurationMS > 0
	return summary
}

func (r *Runner) buildDebugArtifacts(runLogPath string) DebugArtifacts {
	var screenshots []string
	for _, path := range r.collectScreenshotPaths() {
		if _, err := os.Stat(path); err == nil {
			screenshots = append(screenshots, path)
		}
	}
	traceExists := false
	if r.tracePath != "" {
		_, err := os.Stat(r.tracePath)
		traceExists = err == nil
	}
	sourceExists := false
	if r.recordingSourcePath != "" {
		_, err := os.Stat(r.recordingSourcePath)
		sourceExists = err == nil
	}
	return DebugArtifacts{
		TracePath:             r.tracePath,
		TraceExists:           traceExists,
		ScreenshotPaths:       screenshots,
		ScreenshotCount:       len(screenshots),
		RecordingSourcePath:   r.recordingSourcePath,
		RecordingSourceExists: sourceExists,
		RunLogPath:            runLogPath,
	}
}

func (r *Runner) executeAction(session BrowserSession, action Action) error {
	switch action.Action {
	case "goto":
		return session.Goto(action.Target, action.TimeoutMS)
	case "click":
		return session.Click(action.Target, action.TimeoutMS)
	case "fill":
		return session.Fill(action.Target, fmt.Sprintf("%v", action.Args["value"]), action.TimeoutMS)
	case "press":
		key, _ := action.Args["key"].(string)
		return session.Press(action.Target, key, action.TimeoutMS)
	case "wait":
		waitMS, _ := intFromAny(action.Args["ms"])
		if waitMS > action.TimeoutMS {
			return fmt.Errorf("wait action duration %dms exceeds timeout_ms=%d", waitMS, action.TimeoutMS)
		}
		if waitMS > 0 {
			session.WaitForTimeout(waitMS)
		}
		return nil
	}
	return fmt.Errorf("unsupported action '%s'", action.Action)
}

func classifyErrorType(errorText string) string {
	lowered := strings.ToLower(errorText)
	if strings.Contains(lowered, "timeout") {
		return "timeout"
	}
	if strings.Contains(lowered, "target closed") || strings.Contains(lowered, "context closed") ||
		strings.Contains(lowered, "browser has been closed") {
		return "transient_browser"
	}
	if strings.Contains(lowered, "net::") || strings.Contains(lowered, "connection reset") {
		return "transient_network"
	}
	return "action_error"
}

func isRetryableErrorType(errorType string) bool {
	switch errorType {
	case "timeout", "transient_browser", "transient_network":
		return true
	}
	return false
}

func (r *Runner) executeActionWithRetry(session BrowserSession, action Action, actualAtMS, driftMS int64, screenshotDir string) ActionExecution {
	maxRetries := action.Retries
	if maxRetries < 0 {
		maxRetries = 0
	}
	maxAttempts := 1 + maxRetries
	var attemptLogs []AttemptLog
	lastError := ""
	lastErrorType := ""

	execution := ActionExecution{
		ActionID:    action.ID,
		SourceIndex: action.SourceIndex,
		Action:      action.Action,
		PlannedAtMS: action.AtMS,
		ActualAtMS:  actualAtMS,
		DriftMS:     driftMS,
		TimeoutMS:   action.TimeoutMS,
		MaxRetries:  maxRetries,
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		attemptStart := time.Now()
		err := r.executeAction(session, action)
		elapsedMS := time.Since(attemptStart).Milliseconds()

		if err == nil {
			attemptLogs = append(attemptLogs, AttemptLog{Attempt: attempt, Status: "ok", ElapsedMS: elapsedMS})
			execution.Attempts = attempt
			execution.RetryCount = attempt - 1
			execution.Status = "ok"
			execution.AttemptLogs = attemptLogs
			return execution
		}

		errorText := err.Error()
		errorType := classifyErrorType(errorText)
		retryable := isRetryableErrorType(errorType)
		willRetry := retryable && attempt < maxAttempts
		attemptLogs = append(attemptLogs, AttemptLog{
			Attempt:   attempt,
			Status:    "error",
			ElapsedMS: elapsedMS,
			Retryable: retryable,
			ErrorType: errorType,
			Error:     errorText,
		})
		lastError = errorText
		lastErrorType = errorType

		if willRetry {
			metrics.Metrics.ActionRetryCount.Inc()
			continue
		}

		screenshotPath := filepath.Join(screenshotDir, action.ID+".png")
		if err := session.Screenshot(screenshotPath); err != nil {
			screenshotPath = ""
		}

		execution.Attempts = attempt
		execution.RetryCount = attempt - 1
		execution.Status = "error"
		execution.Error = lastError
		execution.ErrorType = lastErrorType
		execution.ScreenshotPath = screenshotPath
		execution.AttemptLogs = attemptLogs
		return execution
	}

	if lastError == "" {
		lastError = "unknown action execution failure"
	}
	if lastErrorType == "" {
		lastErrorType = "action_error"
	}
	execution.Attempts = maxAttempts
	execution.RetryCount = maxRetries
	execution.Status = "error"
	execution.Error = lastError
	execution.ErrorType = lastErrorType
	execution.AttemptLogs = attemptLogs
	return execution
}

// executeWithBrowser runs all actions in one capture session. The first
// return value reports whether a session was actually started.
func (r *Runner) executeWithBrowser(ctx context.Context, actions []Action, rawDemoPath string) (bool, string) {
	screenshotDir := filepath.Join(r.artifactsDir, "screenshots")
	_ = os.MkdirAll(screenshotDir, 0755)
	r.tracePath = filepath.Join(r.artifactsDir, "trace.zip")
	r.recordingSourcePath = ""
	r.recordingFFmpegCmd = nil

	factory := r.Sessions
	if factory == nil {
		factory = NewPlaywrightSession
	}
	session, err := factory(LaunchOptions{
		RecordVideoDir: r.artifactsDir,
		Width:          r.profile.Width,
		Height:         r.profile.Height,
	})
	if err != nil {
		return false, err.Error()
	}

	start := time.Now()
	if err := session.StartTracing(); err != nil {
		log.Log(r.RunID, "tracing start failed", "error", err)
	}

	for _, action := range actions {
		actualAtMS := r.plannedWait(start, action.AtMS)
		driftMS := actualAtMS - action.AtMS
		execution := r.executeActionWithRetry(session, action, actualAtMS, driftMS, screenshotDir)
		r.executions = append(r.executions, execution)
	}

	if err := session.StopTracing(r.tracePath); err != nil {
		log.Log(r.RunID, "tracing stop failed", "error", err)
	}

	videoSourcePath, videoErr := session.VideoPath()
	if err := session.Close(); err != nil {
		log.Log(r.RunID, "session close failed", "error", err)
	}

	if videoErr != nil || videoSourcePath == "" {
		_ = os.WriteFile(rawDemoPath, []byte{}, 0644)
		return true, "Playwright recording file missing after run"
	}
	if _, err := os.Stat(videoSourcePath); err != nil {
		_ = os.WriteFile(rawDemoPath, []byte{}, 0644)
		return true, "Playwright recording file missing after run"
	}

	r.recordingSourcePath = videoSourcePath
	transcode := r.Transcode
	if transcode == nil {
		transcode = video.TranscodeRecording
	}
	cmd, err := transcode(ctx, r.Prober, videoSourcePath, rawDemoPath, r.profile)
	r.recordingFFmpegCmd = cmd
	if err != nil {
		return true, err.Error()
	}
	return true, ""
}

func (r *Runner) executeDryRun(actions []Action, rawDemoPath string) {
	start := time.Now()
	for _, action := range actions {
		actualAtMS := r.plannedWait(start, action.AtMS)
		r.executions = append(r.executions, ActionExecution{
			ActionID:    action.ID,
			SourceIndex: action.SourceIndex,
			Action:      action.Action,
			PlannedAtMS: action.AtMS,
			ActualAtMS:  actualAtMS,
			DriftMS:     actualAtMS - action.AtMS,
			TimeoutMS:   action.TimeoutMS,
			MaxRetries:  action.Retries,
			Attempts:    1,
			Status:      "ok",
			AttemptLogs: []AttemptLog{{Attempt: 1, Status: "ok"}},
		})
	}
	_ = os.WriteFile(rawDemoPath, []byte{}, 0644)
}

// Execute runs the demo capture and writes the result to logs/run.json.
func (r *Runner) Execute(ctx context.Context, actions []Action) *RunResult {
	runLogPath := filepath.Join(r.logsDir, "run.json")
	rawDemoPath := filepath.Join(r.artifactsDir, "raw_demo.mp4")
	stageTimings := map[string]int64{}
	totalStart := time.Now()

	probe := r.Probe
	if probe == nil {
		probe = ProbeDependencies
	}
	probeStart := time.Now()
	dependencyStatus := probe()
	stageTimings["dependency_probe_ms"] = time.Since(probeStart).Milliseconds()
	dependencyError := dependencyStatus.Error
	runtimeError := ""

	usedBrowser := false
	if dependencyStatus.OK {
		captureStart := time.Now()
		usedBrowser, runtimeError = r.executeWithBrowser(ctx, actions, rawDemoPath)
		stageTimings["capture_ms"] = time.Since(captureStart).Milliseconds()
		if runtimeError != "" {
			dependencyError = runtimeError
			dependencyStatus = DependencyStatus{
				DriverOK: dependencyStatus.DriverOK,
				Error:    fmt.Sprintf("Playwright runtime failure: %s", runtimeError),
			}
		}
	}

	if !usedBrowser && r.ExecutionMode == ExecutionModePlaywrightRequired {
		diagnostic := dependencyError
		if diagnostic == "" {
			diagnostic = "missing dependency probe details"
		}
		errMsg := fmt.Sprintf(
			"Playwright execution mode is set to 'playwright_required' but dependencies are unavailable. "+
				"Either install Playwright+Chromium or switch to 'playwright_optional'. Diagnostic: %s",
			diagnostic,
		)
		stageTimings["total_ms"] = time.Since(totalStart).Milliseconds()

		result := r.buildResult(ctx, resultParams{
			ok:               false,
			mode:             "demo_capture_failed",
			rawDemoMP4:       "",
			actionsTotal:     len(actions),
			actionsExecuted:  0,
			errText:          errMsg,
			runLogPath:       runLogPath,
			rawDemoPath:      rawDemoPath,
			stageTimings:     stageTimings,
			dependencyError:  dependencyError,
			runtimeError:     runtimeError,
			usedBrowser:      usedBrowser,
			dependencyStatus: dependencyStatus,
		})
		r.writeRunLog(runLogPath, result)
		return result
	}

	if !usedBrowser {
		dryRunStart := time.Now()
		r.executeDryRun(actions, rawDemoPath)
		stageTimings["dry_run_ms"] = time.Since(dryRunStart).Milliseconds()
	}

	executionSummary := r.executionSummary()
	artifactSummary := r.probeRawDemoArtifact(ctx, rawDemoPath)
	var failureReasons []string
	if usedBrowser {
		if runtimeError != "" {
			failureReasons = append(failureReasons, fmt.Sprintf("Playwright runtime failure: %s", runtimeError))
		}
		if executionSummary.Error > 0 {
			failureReasons = append(failureReasons, fmt.Sprintf("%d action(s) failed during capture", executionSummary.Error))
		}
		if executionSummary.Error == 0 && !artifactSummary.RawDemoPlayable {
			if artifactSummary.RawDemoProbeError == "" {
				failureReasons = append(failureReasons, "Playwright capture did not produce a non-empty playable raw_demo.mp4")
			} else {
				failureReasons = append(failureReasons,
					fmt.Sprintf("Playwright capture did not produce a playable raw_demo.mp4 (%s)", artifactSummary.RawDemoProbeError))
			}
		}
	}

	resultOK := len(failureReasons) == 0
	resultError := strings.Join(failureReasons, "; ")
	stageTimings["total_ms"] = time.Since(totalStart).Milliseconds()

	mode := "demo_capture_dry_run"
	if usedBrowser {
		if resultOK {
			mode = "demo_capture_playwright"
		} else {
			mode = "demo_capture_failed"
		}
	}

	result := r.buildResult(ctx, resultParams{
		ok:               resultOK,
		mode:             mode,
		rawDemoMP4:       rawDemoPath,
		actionsTotal:     len(actions),
		actionsExecuted:  len(r.executions),
		errText:          resultError,
		runLogPath:       runLogPath,
		rawDemoPath:      rawDemoPath,
		stageTimings:     stageTimings,
		dependencyError:  dependencyError,
		runtimeError:     runtimeError,
		usedBrowser:      usedBrowser,
		dependencyStatus: dependencyStatus,
		artifactSummary:  &artifactSummary,
	})
	r.writeRunLog(runLogPath, result)
	return result
}

type resultParams struct {
	ok               bool
	mode             string
	rawDemoMP4       string
	actionsTotal     int
	actionsExecuted  int
	errText          string
	runLogPath       string
	rawDemoPath      string
	stageTimings     map[string]int64
	dependencyError  string
	runtimeError     string
	usedBrowser      bool
	dependencyStatus DependencyStatus
	artifactSummary  *ArtifactSummary
}

func (r *Runner) buildResult(ctx context.Context, p resultParams) *RunResult {
	artifactSummary := ArtifactSummary{}
	if p.artifactSummary != nil {
		artifactSummary = *p.artifactSummary
	} else {
		artifactSummary = r.probeRawDemoArtifact(ctx, p.rawDemoPath)
	}
	var profile *video.RecordingProfile
	if p.usedBrowser {
		profileCopy := r.profile
		profile = &profileCopy
	}

	metrics.Metrics.DemoCaptureResultCount.WithLabelValues(p.mode).Inc()

	return &RunResult{
		OK:               p.ok,
		ProjectID:        r.ProjectID,
		Mode:             p.mode,
		RunID:            r.RunID,
		QueueJobID:       r.QueueJobID,
		ExecutionMode:    r.ExecutionMode,
		RawDemoMP4:       p.rawDemoMP4,
		ActionsTotal:     p.actionsTotal,
		ActionsExecuted:  p.actionsExecuted,
		LogsPath:         p.runLogPath,
		ArtifactsDir:     r.artifactsDir,
		Error:            p.errText,
		CreatedAt:        nowISO(),
		Executions:       r.executions,
		StageTimingsMS:   p.stageTimings,
		DriftStats:       r.driftStats(),
		ExecutionSummary: r.executionSummary(),
		ErrorSummary:     r.errorSummary(p.errText, p.dependencyError, p.runtimeError),
		ArtifactSummary:  artifactSummary,
		DebugArtifacts:   r.buildDebugArtifacts(p.runLogPath),
		RecordingProfile: profile,
		Correlation:      map[string]interface{}{"queue_job_id": r.QueueJobID},
		DependencyStatus: p.dependencyStatus,
	}
}

func (r *Runner) writeRunLog(path string, result *RunResult) {
	raw, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.LogError(r.RunID, "failed to marshal run log", err)
		return
	}
	if err := os.WriteFile(path, raw, 0644); err != nil {
		log.LogError(r.RunID, "failed to write run log", err)
	}
}
