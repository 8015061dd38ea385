package timeline

import (
	"fmt"
	"path/filepath"
	"strings"
)

// SupportedImportFormats are the values the import endpoint accepts.
var SupportedImportFormats = map[string]bool{
	"auto":            true,
	"timestamped_txt": true,
	"srt":             true,
	"json":            true,
}

// DetectImportFormat guesses the import format from the source file name
// extension, falling back to sniffing the content.
func DetectImportFormat(content, sourceName string) string {
	switch strings.ToLower(filepath.Ext(sourceName)) {
	case ".srt":
		return "srt"
	case ".json", ".timeline":
		return "json"
	case ".txt", ".md":
		return "timestamped_txt"
	}

	trimmed := strings.TrimLeft(content, " \t\r\n")
	if strings.HasPrefix(trimmed, "{") {
		return "json"
	}
	if strings.Contains(content, "-->") && strings.Contains(content, ":") {
		return "srt"
	}
	return "timestamped_txt"
}

// Import parses content in the given format into a normalized timeline.
// JSON payloads are schema-validated and taken as-is; script formats are
// parsed and then run through narration normalization.
func Import(content, importFormat, sourceName string, videoDurationMS int64) (Timeline, error) {
	format := strings.ToLower(strings.TrimSpace(importFormat))
	if format == "" {
		format = "auto"
	}
	if !SupportedImportFormats[format] {
		return Timeline{}, newImportError("unsupported_format", fmt.Sprintf("unsupported import format '%s'", importFormat), 0)
	}
	if format == "auto" {
		format = DetectImportFormat(content, sourceName)
	}

	if format == "json" {
		return Parse([]byte(content))
	}

	var (
		parsed []NarrationEvent
		err    error
	)
	switch format {
	case "srt":
		parsed, err = ParseSRT(content)
	case "timestamped_txt":
		parsed, err = ParseTimestampedTxt(content)
	default:
		return Timeline{}, newImportError("unsupported_format", fmt.Sprintf("unsupported import format '%s'", format), 0)
	}
	if err != nil {
		return Timeline{}, err
	}

	normalized, err := NormalizeNarrationEvents(parsed, videoDurationMS)
	if err != nil {
		return Timeline{}, err
	}

	t := Timeline{
		TimelineVersion: Version,
		NarrationEvents: normalized,
		ActionEvents:    []ActionEvent{},
	}
	t.ApplyDefaults()
	return t, nil
}
