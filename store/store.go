package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
)

var ErrProjectNotFound = errors.New("project not found")

// Store persists one JSON document per project under
// <data_dir>/projects/<project_id>/project.json.
type Store struct {
	DataDir string
}

func New(dataDir string) *Store {
	return &Store{DataDir: dataDir}
}

func (s *Store) ProjectsDir() string {
	return filepath.Join(s.DataDir, "projects")
}

func (s *Store) ProjectDir(projectID string) string {
	return filepath.Join(s.ProjectsDir(), projectID)
}

func (s *Store) ProjectJSONPath(projectID string) string {
	return filepath.Join(s.ProjectDir(projectID), "project.json")
}

func (s *Store) InputVideoPath(projectID string) string {
	return filepath.Join(s.ProjectDir(projectID), "input.mp4")
}

func (s *Store) WorkDir(projectID string) string {
	return filepath.Join(s.ProjectDir(projectID), "work")
}

func (s *Store) ExportsDir(projectID string) string {
	return filepath.Join(s.ProjectDir(projectID), "exports")
}

func (s *Store) CacheDir(projectID, namespace string) string {
	return filepath.Join(s.ProjectDir(projectID), "cache", namespace)
}

func (s *Store) LogPath(projectID string) string {
	return filepath.Join(s.ProjectDir(projectID), "logs", "job.log")
}

func (s *Store) DemoContextMDPath(projectID string) string {
	return filepath.Join(s.ProjectDir(projectID), "demo_context.md")
}

func (s *Store) Exists(projectID string) bool {
	_, err := os.Stat(s.ProjectJSONPath(projectID))
	return err == nil
}

// Init writes a fresh project document and its directory skeleton.
func (s *Store) Init(p *Project) error {
	p.EnsureDefaults()
	for _, dir := range []string{
		s.ProjectDir(p.ProjectID),
		s.WorkDir(p.ProjectID),
		s.ExportsDir(p.ProjectID),
		filepath.Join(s.ProjectDir(p.ProjectID), "logs"),
		filepath.Join(s.ProjectDir(p.ProjectID), "cache"),
	} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create project dir %s: %w", dir, err)
		}
	}
	return s.Save(p)
}

// Load reads the document and runs the default-filling migration on it.
func (s *Store) Load(projectID string) (*Project, error) {
	raw, err := os.ReadFile(s.ProjectJSONPath(projectID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrProjectNotFound, projectID)
		}
		return nil, fmt.Errorf("failed to read project %s: %w", projectID, err)
	}
	var p Project
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("failed to parse project %s: %w", projectID, err)
	}
	if p.ProjectID == "" {
		p.ProjectID = projectID
	}
	p.EnsureDefaults()
	return &p, nil
}

// Save stamps updated_at, writes atomically (temp+rename) and mirrors the
// demo context into demo_context.md next to the document.
func (s *Store) Save(p *Project) error {
	p.UpdatedAt = utcNowISO()
	raw, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal project %s: %w", p.ProjectID, err)
	}
	if err := os.MkdirAll(s.ProjectDir(p.ProjectID), 0755); err != nil {
		return fmt.Errorf("failed to create project dir: %w", err)
	}
	if err := renameio.WriteFile(s.ProjectJSONPath(p.ProjectID), raw, 0644); err != nil {
		return fmt.Errorf("failed to write project %s: %w", p.ProjectID, err)
	}
	if err := renameio.WriteFile(s.DemoContextMDPath(p.ProjectID), []byte(p.Settings.DemoContext), 0644); err != nil {
		return fmt.Errorf("failed to mirror demo context for %s: %w", p.ProjectID, err)
	}
	return nil
}

// AppendLog appends one `[<iso>] message` line to the project job log.
func (s *Store) AppendLog(projectID, message string) error {
	logPath := s.LogPath(projectID)
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = fmt.Fprintf(f, "[%s] %s\n", utcNowISO(), message)
	return err
}

// ListProjectIDs returns every project directory that holds a document.
func (s *Store) ListProjectIDs() ([]string, error) {
	entries, err := os.ReadDir(s.ProjectsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var ids []string
	for _, entry := range entries {
		if entry.IsDir() && s.Exists(entry.Name()) {
			ids = append(ids, entry.Name())
		}
	}
	return ids, nil
}
