package tts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildCacheKeyDeterministic(t *testing.T) {
	in := CacheKeyInput{
		Text:     "Click the submit button.",
		Params:   map[string]interface{}{"speed_factor": 1.0, "temperature": 0.8},
		Endpoint: "http://tts:8080/tts",
		Mode:     ModeChatterboxJSON,
		Provider: "chatterbox",
	}
	a, err := BuildCacheKey(in)
	require.NoError(t, err)
	b, err := BuildCacheKey(in)
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.Len(t, a, 64)
}

func TestBuildCacheKeyCollapsesWhitespace(t *testing.T) {
	base := CacheKeyInput{
		Params:   map[string]interface{}{},
		Endpoint: "http://tts:8080/tts",
		Mode:     ModeChatterboxJSON,
		Provider: "chatterbox",
	}
	a := base
	a.Text = "Click   the\tsubmit\n button"
	b := base
	b.Text = " Click the submit button "

	keyA, err := BuildCacheKey(a)
	require.NoError(t, err)
	keyB, err := BuildCacheKey(b)
	require.NoError(t, err)
	require.Equal(t, keyA, keyB)
}

func TestBuildCacheKeyParamOrderIrrelevant(t *testing.T) {
	a := CacheKeyInput{
		Text:     "hello",
		Params:   map[string]interface{}{"a": 1.0, "b": 2.0, "c": "x"},
		Endpoint: "http://tts:8080/tts",
		Mode:     ModeChatterboxJSON,
		Provider: "chatterbox",
	}
	b := a
	b.Params = map[string]interface{}{"c": "x", "b": 2.0, "a": 1.0}

	keyA, err := BuildCacheKey(a)
	require.NoError(t, err)
	keyB, err := BuildCacheKey(b)
	require.NoError(t, err)
	require.Equal(t, keyA, keyB)
}

func TestBuildCacheKeySensitiveToInputs(t *testing.T) {
	base := CacheKeyInput{
		Text:     "hello",
		Params:   map[string]interface{}{"voice": "alloy"},
		Endpoint: "http://tts:8080/tts",
		Mode:     ModeChatterboxJSON,
		Provider: "chatterbox",
	}
	baseKey, err := BuildCacheKey(base)
	require.NoError(t, err)

	variants := []CacheKeyInput{base, base, base, base}
	variants[0].Text = "goodbye"
	variants[1].Params = map[string]interface{}{"voice": "echo"}
	variants[2].Endpoint = "http://other:8080/tts"
	variants[3].Mode = ModeOpenAIAudioSpeech

	for _, v := range variants {
		key, err := BuildCacheKey(v)
		require.NoError(t, err)
		require.NotEqual(t, baseKey, key)
	}
}

func TestBuildCacheKeyHashesAudioPrompt(t *testing.T) {
	dir := t.TempDir()
	promptA := filepath.Join(dir, "a.wav")
	promptB := filepath.Join(dir, "b.wav")
	require.NoError(t, os.WriteFile(promptA, []byte("voice sample A"), 0644))
	require.NoError(t, os.WriteFile(promptB, []byte("voice sample B"), 0644))

	base := CacheKeyInput{
		Text:     "hello",
		Params:   map[string]interface{}{},
		Endpoint: "http://tts:8080/tts",
		Mode:     ModeChatterboxJSON,
		Provider: "chatterbox",
	}
	a := base
	a.AudioPromptPath = promptA
	b := base
	b.AudioPromptPath = promptB

	keyA, err := BuildCacheKey(a)
	require.NoError(t, err)
	keyB, err := BuildCacheKey(b)
	require.NoError(t, err)
	require.NotEqual(t, keyA, keyB)

	missing := base
	missing.AudioPromptPath = filepath.Join(dir, "missing.wav")
	_, err = BuildCacheKey(missing)
	require.Error(t, err)
}

func TestRestoreAndStore(t *testing.T) {
	dir := t.TempDir()
	cachePath := CachePath(filepath.Join(dir, "cache", "tts"), "abc123")
	outPath := filepath.Join(dir, "seg000.wav")

	hit, err := Restore(cachePath, outPath)
	require.NoError(t, err)
	require.False(t, hit)

	require.NoError(t, os.WriteFile(outPath, []byte("RIFFdata"), 0644))
	require.NoError(t, Store(outPath, cachePath))

	restored := filepath.Join(dir, "restored.wav")
	hit, err = Restore(cachePath, restored)
	require.NoError(t, err)
	require.True(t, hit)

	raw, err := os.ReadFile(restored)
	require.NoError(t, err)
	require.Equal(t, "RIFFdata", string(raw))
}
