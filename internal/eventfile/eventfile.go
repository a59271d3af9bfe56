// Package eventfile reads events of raw drift chamber hits from JSON or
// YAML files.
//
// A file holds a list of events:
//
//	events:
//	  - id: run7-evt1
//	    hits:
//	      - {superlayer: 0, layer: 0, wire: 3, drift_length: 0.12, drift_variance: 0.0004}
//
// The JSON form uses the same keys.
package eventfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/cdc-trackfinder/internal/tracking/hits"
)

// MaxFileSize bounds the size of a single event file.
const MaxFileSize = 64 * 1024 * 1024

// Event is one event of an input file.
type Event struct {
	ID   string        `json:"id,omitempty" yaml:"id,omitempty"`
	Hits []hits.RawHit `json:"hits" yaml:"hits"`
}

// File is the document stored in an event file.
type File struct {
	Events []Event `json:"events" yaml:"events"`
}

// Source is an event together with where it was read from.
type Source struct {
	Path  string
	Index int // position in the file
	Event Event
}

// Name identifies the event for logs and the result store.
func (s Source) Name() string {
	if s.Event.ID != "" {
		return s.Event.ID
	}
	return fmt.Sprintf("%s#%d", filepath.Base(s.Path), s.Index)
}

// Read decodes the events of one file. The format follows the extension:
// .json, .yaml or .yml.
func Read(path string) ([]Event, error) {
	cleanPath := filepath.Clean(path)
	ext := filepath.Ext(cleanPath)
	if !supported(ext) {
		return nil, fmt.Errorf("event file must have .json, .yaml or .yml extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat event file: %w", err)
	}
	if info.Size() > MaxFileSize {
		return nil, fmt.Errorf("event file too large: %d bytes (max %d)", info.Size(), MaxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read event file: %w", err)
	}

	var f File
	if ext == ".json" {
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("failed to parse event JSON %s: %w", path, err)
		}
	} else {
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("failed to parse event YAML %s: %w", path, err)
		}
	}
	return f.Events, nil
}

// ReadAll reads path, which is either an event file or a directory whose
// event files are read in name order. Other files in a directory are
// skipped.
func ReadAll(path string) ([]Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat input: %w", err)
	}

	files := []string{path}
	if info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read input directory: %w", err)
		}
		files = files[:0]
		for _, e := range entries {
			if e.IsDir() || !supported(filepath.Ext(e.Name())) {
				continue
			}
			files = append(files, filepath.Join(path, e.Name()))
		}
		sort.Strings(files)
	}

	var out []Source
	for _, f := range files {
		events, err := Read(f)
		if err != nil {
			return nil, err
		}
		for i, ev := range events {
			out = append(out, Source{Path: f, Index: i, Event: ev})
		}
	}
	return out, nil
}

// Write stores events at path in the format given by its extension.
func Write(path string, events []Event) error {
	ext := filepath.Ext(path)
	if !supported(ext) {
		return fmt.Errorf("event file must have .json, .yaml or .yml extension, got %q", ext)
	}
	var (
		data []byte
		err  error
	)
	f := File{Events: events}
	if ext == ".json" {
		data, err = json.MarshalIndent(f, "", "  ")
	} else {
		data, err = yaml.Marshal(f)
	}
	if err != nil {
		return fmt.Errorf("failed to encode events: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write event file: %w", err)
	}
	return nil
}

func supported(ext string) bool {
	return ext == ".json" || ext == ".yaml" || ext == ".yml"
}
