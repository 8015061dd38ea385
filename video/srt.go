package video

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SRTEntry is one subtitle cue.
type SRTEntry struct {
	StartMS int64
	EndMS   int64
	Text    string
}

// FormatSRTTime renders milliseconds as HH:MM:SS,mmm.
func FormatSRTTime(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	h := ms / 3600000
	ms -= h * 3600000
	m := ms / 60000
	ms -= m * 60000
	s := ms / 1000
	ms -= s * 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// WriteSRT writes subtitle cues, skipping entries with no text.
func WriteSRT(entries []SRTEntry, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return err
	}
	var lines []string
	idx := 1
	for _, entry := range entries {
		if entry.Text == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("%d", idx))
		lines = append(lines, fmt.Sprintf("%s --> %s", FormatSRTTime(entry.StartMS), FormatSRTTime(entry.EndMS)))
		lines = append(lines, entry.Text)
		lines = append(lines, "")
		idx++
	}
	return os.WriteFile(outPath, []byte(strings.Join(lines, "\n")), 0644)
}
