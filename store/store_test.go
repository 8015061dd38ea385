package store

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(t.TempDir())
}

func TestInitLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)
	p := NewProject("proj_abcd1234", SourceVideo{
		Path:       "/data/projects/proj_abcd1234/input.mp4",
		SHA256:     "deadbeef",
		DurationMS: 60000,
		Width:      1280,
		Height:     720,
		FPS:        30,
		HasAudio:   true,
	})
	require.NoError(t, s.Init(p))
	require.True(t, s.Exists("proj_abcd1234"))

	loaded, err := s.Load("proj_abcd1234")
	require.NoError(t, err)
	require.Equal(t, "proj_abcd1234", loaded.ProjectID)
	require.Equal(t, int64(60000), loaded.Source.Video.DurationMS)
	require.Equal(t, SchemaVersion, loaded.SchemaVersion)
	require.NotEmpty(t, loaded.UpdatedAt)
	require.Contains(t, loaded.TTSProfiles, "default")
}

func TestLoadMissingProject(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Load("proj_missing")
	require.ErrorIs(t, err, ErrProjectNotFound)
}

func TestSaveMirrorsDemoContext(t *testing.T) {
	s := newTestStore(t)
	p := NewProject("proj_abcd1234", SourceVideo{})
	p.Settings.DemoContext = "# Demo flow\nlogin, create, submit"
	require.NoError(t, s.Init(p))

	raw, err := os.ReadFile(s.DemoContextMDPath("proj_abcd1234"))
	require.NoError(t, err)
	require.Equal(t, p.Settings.DemoContext, string(raw))

	// context edits are re-mirrored on every save
	p.Settings.DemoContext = "updated"
	require.NoError(t, s.Save(p))
	raw, err = os.ReadFile(s.DemoContextMDPath("proj_abcd1234"))
	require.NoError(t, err)
	require.Equal(t, "updated", string(raw))
}

func TestLoadRunsMigrationOnLegacyDocument(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.MkdirAll(s.ProjectDir("proj_legacy00"), 0755))
	legacy := `{
		"schema_version": "1.0.0",
		"project_id": "proj_legacy00",
		"segments": [
			{"id": 1, "start_ms": 0, "end_ms": 2000,
			 "narration": {"selected_text": "hello"}}
		]
	}`
	require.NoError(t, os.WriteFile(s.ProjectJSONPath("proj_legacy00"), []byte(legacy), 0644))

	p, err := s.Load("proj_legacy00")
	require.NoError(t, err)
	require.Equal(t, SchemaVersion, p.SchemaVersion)
	require.Len(t, p.Timeline.NarrationEvents, 1)
	require.Equal(t, "n1", p.Timeline.NarrationEvents[0].ID)
	require.Equal(t, "hello", p.Timeline.NarrationEvents[0].Text)
}

func TestAppendLog(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.AppendLog("proj_abcd1234", "render started"))
	require.NoError(t, s.AppendLog("proj_abcd1234", "render finished"))

	raw, err := os.ReadFile(s.LogPath("proj_abcd1234"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2)
	require.True(t, strings.HasPrefix(lines[0], "["))
	require.Contains(t, lines[0], "] render started")
	require.Contains(t, lines[1], "] render finished")
}

func TestListProjectIDs(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Init(NewProject("proj_aaaa0001", SourceVideo{})))
	require.NoError(t, s.Init(NewProject("proj_bbbb0002", SourceVideo{})))
	// a stray dir without a document is not a project
	require.NoError(t, os.MkdirAll(s.ProjectDir("proj_empty"), 0755))

	ids, err := s.ListProjectIDs()
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"proj_aaaa0001", "proj_bbbb0002"}, ids)
}
