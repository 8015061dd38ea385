package timeline

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var srtTimeRangeRE = regexp.MustCompile(
	`^(\d{2}):(\d{2}):(\d{2})[,.](\d{3})\s*-->\s*(\d{2}):(\d{2}):(\d{2})[,.](\d{3})$`,
)

func srtTimeToMS(hours, minutes, seconds, millis string) (int64, error) {
	h, _ := strconv.Atoi(hours)
	m, _ := strconv.Atoi(minutes)
	s, _ := strconv.Atoi(seconds)
	ms, _ := strconv.Atoi(millis)
	if m >= 60 || s >= 60 {
		return 0, fmt.Errorf("invalid minute/second value")
	}
	return int64((h*3600+m*60+s)*1000 + ms), nil
}

// ParseSRT parses SubRip subtitle blocks into narration events. The numeric
// block index is optional; multi-line cue text is joined with spaces.
func ParseSRT(content string) ([]NarrationEvent, error) {
	lines := strings.Split(content, "\n")
	var entries []NarrationEvent
	index := 0
	blockIdx := 0

	for index < len(lines) {
		for index < len(lines) && strings.TrimSpace(lines[index]) == "" {
			index++
		}
		if index >= len(lines) {
			break
		}

		blockStartLine := index + 1
		line := strings.TrimSpace(lines[index])

		if isAllDigits(line) {
			index++
			if index >= len(lines) {
				return nil, newImportError("missing_timestamp", "SRT block ended after index without timestamp line", blockStartLine)
			}
			line = strings.TrimSpace(lines[index])
		}

		match := srtTimeRangeRE.FindStringSubmatch(line)
		if match == nil {
			return nil, newImportError("invalid_srt_timestamp", "invalid SRT time range line", index+1)
		}

		startMS, err := srtTimeToMS(match[1], match[2], match[3], match[4])
		if err != nil {
			return nil, newImportError("invalid_srt_timestamp", err.Error(), index+1)
		}
		endMS, err := srtTimeToMS(match[5], match[6], match[7], match[8])
		if err != nil {
			return nil, newImportError("invalid_srt_timestamp", err.Error(), index+1)
		}
		if endMS <= startMS {
			return nil, newImportError("invalid_time_range", "SRT end time must be greater than start time", index+1)
		}

		index++
		var textLines []string
		for index < len(lines) && strings.TrimSpace(lines[index]) != "" {
			textLines = append(textLines, strings.TrimSpace(lines[index]))
			index++
		}
		if len(textLines) == 0 {
			return nil, newImportError("empty_text", "SRT block is missing narration text", blockStartLine)
		}

		blockIdx++
		entries = append(entries, NarrationEvent{
			ID:      fmt.Sprintf("n%d", blockIdx),
			StartMS: startMS,
			EndMS:   endMS,
			Text:    strings.Join(textLines, " "),
			Meta: map[string]interface{}{
				"source_line":   blockStartLine,
				"source_format": "srt",
			},
		})
	}

	if len(entries) == 0 {
		return nil, newImportError("empty_input", "no subtitle blocks found in SRT", 0)
	}
	return entries, nil
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
