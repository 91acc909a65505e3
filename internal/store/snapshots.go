package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// StepName identifies a pipeline step for snapshot purposes.
type StepName string

const (
	StepCleaned  StepName = "cleaned"
	StepRejected StepName = "rejected"
	StepReports  StepName = "reports"
)

// Snapshots stores timestamped step outputs under a base directory.
type Snapshots struct {
	dir string
	now func() time.Time
}

// NewSnapshots creates a snapshot store rooted at dir.
func NewSnapshots(dir string) *Snapshots {
	return &Snapshots{dir: dir, now: time.Now}
}

// Dir returns the base directory.
func (s *Snapshots) Dir() string {
	return s.dir
}

// stepDir returns the directory for a given step.
func (s *Snapshots) stepDir(step StepName) string {
	return filepath.Join(s.dir, string(step))
}

// generateFilename creates a timestamped filename with the given extension.
// The fractional part keeps filenames from two runs in the same second apart
// and still sorts chronologically.
func (s *Snapshots) generateFilename(ext string) string {
	return s.now().UTC().Format("2006-01-02T15-04-05.000000") + ext
}

// SaveStepOutput saves JSON-serializable data to the step's directory.
// Returns the path to the saved file.
func SaveStepOutput[T any](s *Snapshots, step StepName, data T) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal step output: %w", err)
	}

	return s.write(step, jsonData, ".json")
}

// SaveTextOutput saves text content (e.g. an HTML report) to the step's directory.
// Returns the path to the saved file.
func (s *Snapshots) SaveTextOutput(step StepName, content string, ext string) (string, error) {
	return s.write(step, []byte(content), ext)
}

func (s *Snapshots) write(step StepName, data []byte, ext string) (string, error) {
	dir := s.stepDir(step)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create step dir: %w", err)
	}

	path := filepath.Join(dir, s.generateFilename(ext))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write step output: %w", err)
	}

	return path, nil
}

// LoadLatestStepOutput loads the most recent JSON output of a step.
// Returns the data, the path it was loaded from, and any error.
func LoadLatestStepOutput[T any](s *Snapshots, step StepName) (T, string, error) {
	var zero T

	latestPath, err := s.LatestStepFile(step, ".json")
	if err != nil {
		return zero, "", err
	}

	data, err := LoadStepOutput[T](latestPath)
	if err != nil {
		return zero, "", err
	}

	return data, latestPath, nil
}

// LoadStepOutput loads JSON data from a specific file path.
func LoadStepOutput[T any](path string) (T, error) {
	var data T

	jsonData, err := os.ReadFile(path)
	if err != nil {
		return data, fmt.Errorf("failed to read step output: %w", err)
	}

	if err := json.Unmarshal(jsonData, &data); err != nil {
		return data, fmt.Errorf("failed to unmarshal step output: %w", err)
	}

	return data, nil
}

// LatestStepFile returns the most recent file with extension ext in a step's directory.
func (s *Snapshots) LatestStepFile(step StepName, ext string) (string, error) {
	dir := s.stepDir(step)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w for step %s", ErrNoSnapshot, step)
		}
		return "", err
	}

	// os.ReadDir sorts by name, which is chronological for our timestamps
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ext {
			files = append(files, entry.Name())
		}
	}

	if len(files) == 0 {
		return "", fmt.Errorf("%w for step %s", ErrNoSnapshot, step)
	}

	return filepath.Join(dir, files[len(files)-1]), nil
}
