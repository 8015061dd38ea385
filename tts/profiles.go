// Package tts resolves voice profiles, talks to the synthesis endpoint and
// maintains the content-addressed audio cache.
package tts

import (
	"fmt"
	"strings"

	"github.com/voforge/voforge-api/store"
)

const (
	VoiceModePredefined     = "predefined_voice"
	VoiceModeReferenceAudio = "reference_audio"

	ModeChatterboxJSON    = "chatterbox_tts_json"
	ModeOpenAIAudioSpeech = "openai_audio_speech"
)

var voiceModes = map[string]bool{
	VoiceModePredefined:     true,
	VoiceModeReferenceAudio: true,
}

var clientModes = map[string]bool{
	ModeChatterboxJSON:    true,
	ModeOpenAIAudioSpeech: true,
}

// ResolveProfile looks up a voice profile on the project. An empty id means
// the `default` profile, which EnsureDefaults guarantees to exist.
func ResolveProfile(p *store.Project, profileID string) (store.Profile, error) {
	id := strings.TrimSpace(profileID)
	if id == "" {
		id = "default"
	}
	profile, ok := p.TTSProfiles[id]
	if !ok {
		return store.Profile{}, fmt.Errorf("tts profile not found: %s", id)
	}
	return profile, nil
}

// UpsertProfile validates and stores a profile on the project document.
func UpsertProfile(p *store.Project, profile store.Profile) error {
	profile.ProfileID = strings.TrimSpace(profile.ProfileID)
	if profile.ProfileID == "" {
		return fmt.Errorf("tts profile requires a non-empty profile_id")
	}
	if !voiceModes[profile.VoiceMode] {
		return fmt.Errorf("tts profile voice_mode must be one of predefined_voice, reference_audio")
	}
	if profile.VoiceMode == VoiceModeReferenceAudio && strings.TrimSpace(profile.AudioPromptPath) == "" {
		return fmt.Errorf("reference_audio profiles require audio_prompt_path")
	}
	if profile.DisplayName == "" {
		profile.DisplayName = profile.ProfileID
	}
	if profile.Params == nil {
		profile.Params = map[string]interface{}{}
	}
	if p.TTSProfiles == nil {
		p.TTSProfiles = map[string]store.Profile{}
	}
	p.TTSProfiles[profile.ProfileID] = profile
	return nil
}

// ResolveEndpoint falls back profile -> project settings -> service default.
func ResolveEndpoint(profile store.Profile, projectEndpoint, defaultEndpoint string) string {
	if strings.TrimSpace(profile.Endpoint) != "" {
		return profile.Endpoint
	}
	if strings.TrimSpace(projectEndpoint) != "" {
		return projectEndpoint
	}
	return defaultEndpoint
}

// ResolveParams merges synthesis parameters: project defaults, overlaid by
// the profile's params, overlaid by the caller's override. The voice mode
// then injects its voice selector.
func ResolveParams(defaults map[string]interface{}, profile store.Profile, override map[string]interface{}) map[string]interface{} {
	params := map[string]interface{}{}
	for k, v := range defaults {
		params[k] = v
	}
	for k, v := range profile.Params {
		params[k] = v
	}
	for k, v := range override {
		params[k] = v
	}
	switch profile.VoiceMode {
	case VoiceModeReferenceAudio:
		if profile.AudioPromptPath != "" {
			params["audio_prompt_path"] = profile.AudioPromptPath
		}
	case VoiceModePredefined:
		if profile.PredefinedVoiceID != "" {
			params["voice"] = profile.PredefinedVoiceID
		}
	}
	return params
}
