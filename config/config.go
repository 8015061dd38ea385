package config

const Version = "2.0.0"

// Narration modes the render dispatcher accepts.
const (
	NarrationModeTTSOnly         = "tts_only"
	NarrationModeTimelineUnified = "timeline_unified"
	NarrationModeUnified         = "unified"
)

// AllowedNarrationModes are the settings values PATCH /settings accepts;
// anything else folds to tts_only.
var AllowedNarrationModes = map[string]bool{
	NarrationModeTTSOnly:         true,
	NarrationModeTimelineUnified: true,
	NarrationModeUnified:         true,
}
