package timeline

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Matches "[MM:SS] text" and "[HH:MM:SS] text" narration script lines.
var timestampedLineRE = regexp.MustCompile(`^\[(?:(\d{1,2}):)?(\d{1,2}):(\d{2})\]\s*(.+?)\s*$`)

// ParseTimestampedTxt parses a timestamped narration script. Blank lines and
// lines starting with '#' are skipped; every other line must carry a
// timestamp and narration text.
func ParseTimestampedTxt(content string) ([]NarrationEvent, error) {
	var entries []NarrationEvent
	for lineIdx, raw := range strings.Split(content, "\n") {
		lineNo := lineIdx + 1
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		match := timestampedLineRE.FindStringSubmatch(line)
		if match == nil {
			return nil, newImportError("invalid_timestamped_line", "expected '[MM:SS] text' or '[HH:MM:SS] text'", lineNo)
		}

		hh := 0
		if match[1] != "" {
			hh, _ = strconv.Atoi(match[1])
		}
		mm, _ := strconv.Atoi(match[2])
		ss, _ := strconv.Atoi(match[3])
		text := strings.TrimSpace(match[4])
		if text == "" {
			return nil, newImportError("empty_text", "timestamped line is missing narration text", lineNo)
		}
		if mm >= 60 || ss >= 60 {
			return nil, newImportError("invalid_timestamp", "timestamp has invalid minute/second value", lineNo)
		}

		entries = append(entries, NarrationEvent{
			ID:      fmt.Sprintf("n%d", lineNo),
			StartMS: int64((hh*3600+mm*60+ss) * 1000),
			Text:    text,
			Meta: map[string]interface{}{
				"source_line":   lineNo,
				"source_format": "timestamped_txt",
			},
		})
	}

	if len(entries) == 0 {
		return nil, newImportError("empty_input", "no narration lines found in timestamped script", 0)
	}
	return entries, nil
}
