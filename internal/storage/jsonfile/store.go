// Package jsonfile is the document store: an ordered JSON list of full
// menu items on disk, plus a backup copy at a second path. It is the
// source of truth for display order and for the extra keys the
// relational schema does not model.
package jsonfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"sabor_menu/internal/domain"
)

type Store struct {
	path   string
	backup string

	mu         sync.Mutex
	index      map[string]domain.Dish
	indexAt    time.Time // primary mtime when index was built
	indexBakAt time.Time // backup mtime when index was built
	indexOK    bool
}

func New(path, backup string) *Store {
	return &Store{path: path, backup: backup}
}

func (s *Store) Path() string { return s.path }

// LoadAll reads the primary file, falling back to the backup when the
// primary is absent or unreadable. A parse failure yields an empty
// list, never an error: a broken file must not take the API down.
func (s *Store) LoadAll() []domain.Dish {
	for _, p := range []string{s.path, s.backup} {
		if p == "" {
			continue
		}
		b, err := os.ReadFile(p)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				log.Warn().Err(err).Str("path", p).Msg("menu file unreadable")
			}
			continue
		}
		var items []domain.Dish
		if err := json.Unmarshal(b, &items); err != nil {
			log.Error().Err(err).Str("path", p).Msg("menu file does not parse")
			continue
		}
		return items
	}
	return nil
}

// SaveAll replaces both copies atomically: write a temp file in the
// same directory, then rename over the target. Readers never observe a
// torn write.
func (s *Store) SaveAll(items []domain.Dish) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(items)
}

func (s *Store) saveLocked(items []domain.Dish) error {
	if items == nil {
		items = []domain.Dish{}
	}
	b, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("encode menu: %w", err)
	}
	for _, p := range []string{s.path, s.backup} {
		if p == "" {
			continue
		}
		if err := writeAtomic(p, b); err != nil {
			return err
		}
	}
	s.indexOK = false
	return nil
}

func writeAtomic(path string, b []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".menu-*.json")
	if err != nil {
		return fmt.Errorf("temp file in %s: %w", dir, err)
	}
	name := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(name)
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// Upsert merges item into the entry with the same id, or appends if no
// entry matches. The incoming fields win on conflict; map fields merge
// recursively. Returns the merged entry and whether the id pre-existed.
func (s *Store) Upsert(item domain.Dish) (domain.Dish, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.LoadAll()
	id := strings.TrimSpace(item.ID)
	item.ID = id
	for i, cur := range items {
		if strings.TrimSpace(cur.ID) == id {
			merged := mergeDish(cur, item)
			items[i] = merged
			if err := s.saveLocked(items); err != nil {
				return domain.Dish{}, true, err
			}
			return merged, true, nil
		}
	}
	items = append(items, item)
	if err := s.saveLocked(items); err != nil {
		return domain.Dish{}, false, err
	}
	return item, false, nil
}

// Delete removes the entry matching the normalized id. Returns whether
// anything was removed.
func (s *Store) Delete(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id = strings.TrimSpace(id)
	items := s.LoadAll()
	for i, cur := range items {
		if strings.TrimSpace(cur.ID) == id {
			items = append(items[:i], items[i+1:]...)
			return true, s.saveLocked(items)
		}
	}
	return false, nil
}

// Dedupe normalizes every id, drops entries with an empty id, and when
// several entries share an id keeps the last occurrence. Last write
// wins is the policy for malformed input, applied before persisting.
// Returns the kept list (input order preserved) and the dropped count.
func Dedupe(items []domain.Dish) ([]domain.Dish, int) {
	dropped := 0
	last := make(map[string]int, len(items))
	for i, it := range items {
		id := strings.TrimSpace(it.ID)
		if id == "" {
			dropped++
			continue
		}
		last[id] = i
	}
	out := make([]domain.Dish, 0, len(last))
	for i, it := range items {
		id := strings.TrimSpace(it.ID)
		if id == "" || last[id] != i {
			continue
		}
		it.ID = id
		out = append(out, it)
	}
	return out, dropped
}

// ByID returns the id -> item index. The index is tagged with both
// copies' mtimes at build time; unchanged mtimes short-circuit to the
// cached map, a change to either forces a rebuild. Both are tracked
// because LoadAll may be serving the backup when the primary is gone.
func (s *Store) ByID() map[string]domain.Dish {
	s.mu.Lock()
	defer s.mu.Unlock()

	primary, backup := s.mtimes()
	if s.indexOK && primary.Equal(s.indexAt) && backup.Equal(s.indexBakAt) {
		return s.index
	}

	idx := map[string]domain.Dish{}
	for _, it := range s.LoadAll() {
		id := strings.TrimSpace(it.ID)
		if id == "" {
			continue
		}
		idx[id] = it
	}
	s.index = idx
	s.indexAt = primary
	s.indexBakAt = backup
	s.indexOK = true
	return idx
}

func (s *Store) mtimes() (primary, backup time.Time) {
	if st, err := os.Stat(s.path); err == nil {
		primary = st.ModTime()
	}
	if s.backup != "" {
		if st, err := os.Stat(s.backup); err == nil {
			backup = st.ModTime()
		}
	}
	return primary, backup
}

// mergeDish overlays income onto base: income's set fields win, map
// fields merge key-by-key, extras merge recursively.
func mergeDish(base, income domain.Dish) domain.Dish {
	out := base
	out.ID = income.ID
	if income.Menu != "" {
		out.Menu = income.Menu
	}
	if income.Section != "" {
		out.Section = income.Section
	}
	if income.Title != "" {
		out.Title = income.Title
	}
	if income.Description != "" {
		out.Description = income.Description
	}
	if income.Contains != "" {
		out.Contains = income.Contains
	}
	if income.Allergens != nil {
		out.Allergens = income.Allergens
	}
	if income.Tags != nil {
		out.Tags = income.Tags
	}
	if income.Pairings != nil {
		out.Pairings = mergeStrMap(base.Pairings, income.Pairings)
	}
	if income.Image != nil {
		out.Image = mergeAnyMap(base.Image, income.Image)
	}
	if income.I18n != nil {
		merged := map[string]map[string]string{}
		for k, v := range base.I18n {
			merged[k] = v
		}
		for k, v := range income.I18n {
			merged[k] = mergeStrMap(merged[k], v)
		}
		out.I18n = merged
	}
	if income.Extra != nil {
		out.Extra = mergeAnyMap(base.Extra, income.Extra)
	}
	return out
}

func mergeStrMap(base, income map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(income))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range income {
		out[k] = v
	}
	return out
}

func mergeAnyMap(base, income map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(income))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range income {
		if sub, ok := v.(map[string]any); ok {
			if cur, ok := out[k].(map[string]any); ok {
				out[k] = mergeAnyMap(cur, sub)
				continue
			}
		}
		out[k] = v
	}
	return out
}
