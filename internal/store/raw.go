// Package store keeps pipeline artifacts on disk: raw per-channel scrapes
// and timestamped snapshots of processed step outputs.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ibeckermayer/tgharvest/internal/types"
)

var (
	// ErrNoSnapshot is returned when a step has no saved output yet.
	ErrNoSnapshot = errors.New("no snapshot found")
	// ErrNoRawData is returned when the raw directory holds no channel files.
	ErrNoRawData = errors.New("no raw channel files found")
	// ErrInvalidChannelName is returned for names that are not a single
	// path element.
	ErrInvalidChannelName = errors.New("invalid channel name")
)

// RawStore reads and writes one JSON file of raw messages per channel.
type RawStore struct {
	dir string
}

// NewRawStore creates a raw store rooted at dir.
func NewRawStore(dir string) *RawStore {
	return &RawStore{dir: dir}
}

// Dir returns the raw data directory.
func (r *RawStore) Dir() string {
	return r.dir
}

func (r *RawStore) path(name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidChannelName, name)
	}
	return filepath.Join(r.dir, name+".json"), nil
}

// SaveChannel writes msgs to <dir>/<name>.json, replacing any previous file.
// Returns the path written.
func (r *RawStore) SaveChannel(name string, msgs []types.RawMessage) (string, error) {
	path, err := r.path(name)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create raw dir: %w", err)
	}

	if msgs == nil {
		msgs = []types.RawMessage{}
	}

	data, err := json.MarshalIndent(msgs, "", "    ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal messages for %s: %w", name, err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	return path, nil
}

// LoadChannel reads the raw messages saved for a channel.
func (r *RawStore) LoadChannel(name string) ([]types.RawMessage, error) {
	path, err := r.path(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read raw file for %s: %w", name, err)
	}

	var msgs []types.RawMessage
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil, fmt.Errorf("failed to decode raw file for %s: %w", name, err)
	}

	return msgs, nil
}

// Channels lists the channel names with a raw file, sorted.
func (r *RawStore) Channels() ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".json"))
	}
	sort.Strings(names)

	return names, nil
}

// LoadTable reads every channel file and combines them into one table,
// tagging each record with the file's channel name.
func (r *RawStore) LoadTable() (types.Table, error) {
	names, err := r.Channels()
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoRawData, r.dir)
	}

	var table types.Table
	for _, name := range names {
		msgs, err := r.LoadChannel(name)
		if err != nil {
			return nil, err
		}
		table = append(table, types.FromRaw(name, msgs)...)
	}

	return table, nil
}
