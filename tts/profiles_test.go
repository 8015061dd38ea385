package tts

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/voforge/voforge-api/store"
)

func testProject() *store.Project {
	p := &store.Project{ProjectID: "proj_abcd1234"}
	p.EnsureDefaults()
	return p
}

func TestResolveProfileDefaultsToDefault(t *testing.T) {
	p := testProject()

	profile, err := ResolveProfile(p, "")
	require.NoError(t, err)
	require.Equal(t, "default", profile.ProfileID)

	_, err = ResolveProfile(p, "narrator_uk")
	require.Error(t, err)
	require.Contains(t, err.Error(), "tts profile not found: narrator_uk")
}

func TestUpsertProfileValidation(t *testing.T) {
	p := testProject()

	err := UpsertProfile(p, store.Profile{ProfileID: " ", VoiceMode: VoiceModePredefined})
	require.Error(t, err)

	err = UpsertProfile(p, store.Profile{ProfileID: "x", VoiceMode: "shouting"})
	require.Error(t, err)

	err = UpsertProfile(p, store.Profile{ProfileID: "x", VoiceMode: VoiceModeReferenceAudio})
	require.Error(t, err)
	require.Contains(t, err.Error(), "audio_prompt_path")

	err = UpsertProfile(p, store.Profile{
		ProfileID: "narrator_uk",
		VoiceMode: VoiceModePredefined,
	})
	require.NoError(t, err)

	saved := p.TTSProfiles["narrator_uk"]
	require.Equal(t, "narrator_uk", saved.DisplayName)
	require.NotNil(t, saved.Params)
}

func TestResolveEndpointFallbackChain(t *testing.T) {
	require.Equal(t, "http://profile/tts",
		ResolveEndpoint(store.Profile{Endpoint: "http://profile/tts"}, "http://project/tts", "http://default/tts"))
	require.Equal(t, "http://project/tts",
		ResolveEndpoint(store.Profile{}, "http://project/tts", "http://default/tts"))
	require.Equal(t, "http://default/tts",
		ResolveEndpoint(store.Profile{}, "", "http://default/tts"))
}

func TestResolveParamsMergeOrder(t *testing.T) {
	defaults := map[string]interface{}{"speed_factor": 1.0, "temperature": 0.8}
	profile := store.Profile{
		VoiceMode:         VoiceModePredefined,
		PredefinedVoiceID: "alloy",
		Params:            map[string]interface{}{"temperature": 0.5, "seed": 7},
	}
	override := map[string]interface{}{"seed": 99}

	params := ResolveParams(defaults, profile, override)
	require.Equal(t, 1.0, params["speed_factor"])
	require.Equal(t, 0.5, params["temperature"])
	require.Equal(t, 99, params["seed"])
	require.Equal(t, "alloy", params["voice"])
}

func TestResolveParamsReferenceAudioInjectsPrompt(t *testing.T) {
	profile := store.Profile{
		VoiceMode:       VoiceModeReferenceAudio,
		AudioPromptPath: "/data/voices/founder.wav",
	}
	params := ResolveParams(nil, profile, nil)
	require.Equal(t, "/data/voices/founder.wav", params["audio_prompt_path"])
	require.NotContains(t, params, "voice")
}
