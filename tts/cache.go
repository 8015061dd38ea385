package tts

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// CacheKeyInput is everything that influences the synthesized audio. Two
// segments with equal inputs share one cache entry regardless of which
// profile produced them.
type CacheKeyInput struct {
	Text            string
	Params          map[string]interface{}
	Endpoint        string
	Mode            string
	AudioPromptPath string
	Provider        string
}

// BuildCacheKey returns the SHA-256 of the canonical JSON form of the input:
// whitespace-collapsed text, sorted param keys (Go's map marshalling), the
// endpoint, the request mode, the sha256 of any reference audio, and a
// mode:provider model signature.
func BuildCacheKey(in CacheKeyInput) (string, error) {
	canonical := map[string]interface{}{
		"text":            strings.Join(strings.Fields(in.Text), " "),
		"params":          in.Params,
		"endpoint":        in.Endpoint,
		"mode":            in.Mode,
		"model_signature": fmt.Sprintf("%s:%s", in.Mode, in.Provider),
	}
	if in.AudioPromptPath != "" {
		promptSHA, err := FileSHA256(in.AudioPromptPath)
		if err != nil {
			return "", fmt.Errorf("failed to hash audio prompt %s: %w", in.AudioPromptPath, err)
		}
		canonical["audio_prompt_sha256"] = promptSHA
	}
	raw, err := json.Marshal(canonical)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize cache key: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// CachePath is the wav file a key addresses inside a cache namespace dir.
func CachePath(cacheDir, key string) string {
	return filepath.Join(cacheDir, key+".wav")
}

// Restore copies a cached wav to outPath. Returns false on a miss.
func Restore(cachePath, outPath string) (bool, error) {
	if _, err := os.Stat(cachePath); err != nil {
		return false, nil
	}
	if err := copyFile(cachePath, outPath); err != nil {
		return false, err
	}
	return true, nil
}

// Store copies a freshly synthesized wav into the cache.
func Store(outPath, cachePath string) error {
	if err := os.MkdirAll(filepath.Dir(cachePath), 0755); err != nil {
		return err
	}
	return copyFile(outPath, cachePath)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// FileSHA256 returns the hex sha256 of a file's contents.
func FileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
