package demo

import "strings"

const (
	ExecutionModePlaywrightOptional = "playwright_optional"
	ExecutionModePlaywrightRequired = "playwright_required"
)

var executionModes = map[string]bool{
	ExecutionModePlaywrightOptional: true,
	ExecutionModePlaywrightRequired: true,
}

// NormalizeExecutionMode lowercases and validates a demo capture execution
// mode, falling back to defaultMode and then to playwright_optional.
func NormalizeExecutionMode(mode, defaultMode string) string {
	candidate := strings.ToLower(strings.TrimSpace(mode))
	if executionModes[candidate] {
		return candidate
	}
	fallback := strings.ToLower(strings.TrimSpace(defaultMode))
	if executionModes[fallback] {
		return fallback
	}
	return ExecutionModePlaywrightOptional
}

// ResolveExecutionMode picks the execution mode from the request, then the
// project settings, then the service default.
func ResolveExecutionMode(requested, projectSetting, defaultMode string) string {
	if strings.TrimSpace(requested) != "" {
		return NormalizeExecutionMode(requested, defaultMode)
	}
	if strings.TrimSpace(projectSetting) != "" {
		return NormalizeExecutionMode(projectSetting, defaultMode)
	}
	return NormalizeExecutionMode(defaultMode, ExecutionModePlaywrightOptional)
}

// DependencyStatus reports whether the browser automation stack is usable.
type DependencyStatus struct {
	OK        bool   `json:"ok"`
	DriverOK  bool   `json:"driver_ok"`
	BrowserOK bool   `json:"browser_ok"`
	Error     string `json:"error,omitempty"`
}

// LaunchOptions configure a capture session.
type LaunchOptions struct {
	RecordVideoDir string
	Width          int
	Height         int
}

// BrowserSession is one live browser page with video capture. The runner
// only ever drives a single page per run.
type BrowserSession interface {
	Goto(url string, timeoutMS int64) error
	Click(selector string, timeoutMS int64) error
	Fill(selector, value string, timeoutMS int64) error
	Press(selector, key string, timeoutMS int64) error
	WaitForTimeout(ms int64)
	Screenshot(path string) error
	StartTracing() error
	StopTracing(path string) error
	VideoPath() (string, error)
	Close() error
}

// SessionFactory opens a new capture session.
type SessionFactory func(opts LaunchOptions) (BrowserSession, error)

// DependencyProber checks whether sessions can be opened at all.
type DependencyProber func() DependencyStatus
