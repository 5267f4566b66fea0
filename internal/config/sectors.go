package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"

	"leadgen-pipeline/internal/logging/types"
)

// sectorTaxonomyEntry mirrors leadgen.Sector without importing the leadgen
// package, which would create an import cycle (leadgen depends on config
// for browser-pool and search settings).
type sectorTaxonomyEntry struct {
	Key     string   `json:"key"`
	Label   string   `json:"label"`
	Queries []string `json:"queries"`
}

// sectorsFile is the on-disk shape of the sectors config: one taxonomy
// array per use case.
type sectorsFile struct {
	ERP         []sectorTaxonomyEntry `json:"erp"`
	Recruitment []sectorTaxonomyEntry `json:"recruitment"`
}

// SectorStore implements leadgen.SectorProvider from a JSON file, watched
// with fsnotify and hot-reloaded in place when Sectors.HotReload is set.
type SectorStore struct {
	mu     sync.RWMutex
	byUse  map[string][]sectorTaxonomyEntry
	path   string
	watch  *fsnotify.Watcher
	logger types.Logger
}

// NewSectorStore loads path and, when watch is true, starts a background
// watcher that reloads the file on every write.
func NewSectorStore(path string, watch bool, logger types.Logger) (*SectorStore, error) {
	s := &SectorStore{path: path, logger: logger}
	if err := s.load(); err != nil {
		return nil, err
	}

	if watch {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			return nil, fmt.Errorf("create sectors watcher: %w", err)
		}
		if err := w.Add(path); err != nil {
			w.Close()
			return nil, fmt.Errorf("watch sectors file: %w", err)
		}
		s.watch = w
		go s.watchLoop()
	}

	return s, nil
}

func (s *SectorStore) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read sectors file: %w", err)
	}

	var doc sectorsFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse sectors file: %w", err)
	}

	s.mu.Lock()
	s.byUse = map[string][]sectorTaxonomyEntry{
		"erp":         doc.ERP,
		"recruitment": doc.Recruitment,
	}
	s.mu.Unlock()
	return nil
}

func (s *SectorStore) watchLoop() {
	for {
		select {
		case event, ok := <-s.watch.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := s.load(); err != nil {
				if s.logger != nil {
					s.logger.Warn("sectors hot-reload failed", map[string]interface{}{"error": err.Error()})
				}
				continue
			}
			if s.logger != nil {
				s.logger.Info("sectors config reloaded", map[string]interface{}{"path": s.path})
			}
		case err, ok := <-s.watch.Errors:
			if !ok {
				return
			}
			if s.logger != nil {
				s.logger.Warn("sectors watcher error", map[string]interface{}{"error": err.Error()})
			}
		}
	}
}

// Sectors returns the taxonomy for useCase, structurally compatible with
// leadgen.Sector via identical field names.
func (s *SectorStore) Sectors(useCase string) []SectorEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.byUse[useCase]
	out := make([]SectorEntry, len(entries))
	for i, e := range entries {
		out[i] = SectorEntry{Key: e.Key, Label: e.Label, Queries: e.Queries}
	}
	return out
}

// SectorEntry is the exported taxonomy row leadgen.Sector is built from at
// the wiring boundary.
type SectorEntry struct {
	Key     string
	Label   string
	Queries []string
}

// Close stops the background watcher, if any.
func (s *SectorStore) Close() error {
	if s.watch != nil {
		return s.watch.Close()
	}
	return nil
}
