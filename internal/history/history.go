// Package history persists the user's recent choices — target folders,
// models, and the last variant — as a JSON document in the state dir, so
// the next invocation can offer them first.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// FileName is the history document inside the state dir.
const FileName = "history.json"

// document is the on-disk shape.
type document struct {
	Folders []string `json:"folders"`
	Models  []string `json:"models"`
	Variant string   `json:"variant"`
}

// Store holds recent-item history and persists it to disk on every change.
type Store struct {
	mu         sync.Mutex
	path       string
	maxFolders int
	maxModels  int
	doc        document
}

// Load opens (or initializes) the history store in stateDir. Folders that
// no longer exist on disk are dropped. A corrupt history file is discarded
// rather than failing the run.
func Load(stateDir string, maxFolders, maxModels int) (*Store, error) {
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state dir: %w", err)
	}

	s := &Store{
		path:       filepath.Join(stateDir, FileName),
		maxFolders: maxFolders,
		maxModels:  maxModels,
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	if err := json.Unmarshal(data, &s.doc); err != nil {
		// Corrupt history is not worth failing a run over; start fresh.
		s.doc = document{}
		return s, nil
	}

	// Drop folders that no longer exist
	kept := s.doc.Folders[:0]
	for _, f := range s.doc.Folders {
		if info, err := os.Stat(f); err == nil && info.IsDir() {
			kept = append(kept, f)
		}
	}
	s.doc.Folders = kept
	return s, nil
}

// Folders returns the recent target folders, most recent first.
func (s *Store) Folders() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.doc.Folders...)
}

// Models returns the recently used models, most recent first.
func (s *Store) Models() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.doc.Models...)
}

// Variant returns the last used variant ("" if none).
func (s *Store) Variant() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Variant
}

// AddFolder moves (or inserts) a folder to the front of the recent list and
// persists.
func (s *Store) AddFolder(folder string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.Folders = promote(s.doc.Folders, folder, s.maxFolders)
	return s.save()
}

// AddModel moves (or inserts) a model to the front of the recent list and
// persists.
func (s *Store) AddModel(model string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.Models = promote(s.doc.Models, model, s.maxModels)
	return s.save()
}

// SetVariant records the last used variant and persists.
func (s *Store) SetVariant(variant string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.Variant = variant
	return s.save()
}

// SortModels orders the available models recently-used-first, the rest
// alphabetically. Recent models not in the available list are skipped.
func (s *Store) SortModels(available []string) []string {
	s.mu.Lock()
	recent := append([]string(nil), s.doc.Models...)
	s.mu.Unlock()

	availSet := make(map[string]bool, len(available))
	for _, m := range available {
		availSet[m] = true
	}

	var out []string
	used := make(map[string]bool)
	for _, m := range recent {
		if availSet[m] && !used[m] {
			out = append(out, m)
			used[m] = true
		}
	}

	var rest []string
	for _, m := range available {
		if !used[m] {
			rest = append(rest, m)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

// promote moves item to the front of list, deduplicating and trimming to
// max entries. max <= 0 disables the list entirely.
func promote(list []string, item string, max int) []string {
	if max <= 0 {
		return nil
	}
	out := make([]string, 0, len(list)+1)
	out = append(out, item)
	for _, v := range list {
		if v != item {
			out = append(out, v)
		}
	}
	if len(out) > max {
		out = out[:max]
	}
	return out
}

// save writes the document atomically. Callers hold the lock.
func (s *Store) save() error {
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".history-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace history: %w", err)
	}
	return nil
}
