// Package dataset reads the existing activity data files and exposes
// the union of known tags and event IDs. The reader never caches:
// every request sees a fresh snapshot of the on-disk state.
package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/openevents/submitbot/internal/activity"
)

// categoryFiles maps each category to its file name inside the data
// directory, in dataset order.
var categoryFiles = map[activity.Category]string{
	activity.CategoryConference:  "conferences.yml",
	activity.CategoryCompetition: "competitions.yml",
	activity.CategoryActivity:    "activities.yml",
}

// FileName returns the data file name for a category, or false when the
// category is unknown.
func FileName(c activity.Category) (string, bool) {
	name, ok := categoryFiles[c]
	return name, ok
}

// Snapshot is the read-only view of the dataset taken at request start.
// Tags keep first-seen order across the three files; IDs are the set of
// every event ID known anywhere in the dataset.
type Snapshot struct {
	Tags []string
	IDs  []string

	idSet map[string]struct{}
}

// HasID reports whether id is already taken anywhere in the dataset.
func (s *Snapshot) HasID(id string) bool {
	_, ok := s.idSet[id]
	return ok
}

// Reader loads category files from a data directory.
type Reader struct {
	dir string
	log *slog.Logger
}

// NewReader returns a reader rooted at dir. A nil logger falls back to
// slog.Default().
func NewReader(dir string, log *slog.Logger) *Reader {
	if log == nil {
		log = slog.Default()
	}
	return &Reader{dir: dir, log: log}
}

// Load reads the three category files concurrently and merges their
// tags and IDs. A missing file is treated as empty. Any other read or
// parse failure is logged as a warning and likewise treated as empty:
// stale existing data must never block a new submission.
func (r *Reader) Load(ctx context.Context) (*Snapshot, error) {
	categories := activity.Categories()
	perFile := make([][]activity.Record, len(categories))

	eg, egCtx := errgroup.WithContext(ctx)
	for i, category := range categories {
		i, category := i, category
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			records, err := r.readFile(categoryFiles[category])
			if err != nil {
				r.log.Warn("could not load data file, treating as empty",
					"category", category, "error", err)
				return nil
			}
			perFile[i] = records
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	// Merge in fixed category order so first-seen tag order is stable
	// regardless of which read finished first.
	snap := &Snapshot{idSet: make(map[string]struct{})}
	tagSeen := make(map[string]struct{})
	for _, records := range perFile {
		for _, rec := range records {
			for _, tag := range rec.Tags {
				if tag == "" {
					continue
				}
				if _, ok := tagSeen[tag]; ok {
					continue
				}
				tagSeen[tag] = struct{}{}
				snap.Tags = append(snap.Tags, tag)
			}
			for _, ev := range rec.Events {
				if ev.ID == "" {
					continue
				}
				if _, ok := snap.idSet[ev.ID]; ok {
					continue
				}
				snap.idSet[ev.ID] = struct{}{}
				snap.IDs = append(snap.IDs, ev.ID)
			}
		}
	}

	r.log.Debug("loaded dataset snapshot", "tags", len(snap.Tags), "ids", len(snap.IDs))
	return snap, nil
}

func (r *Reader) readFile(name string) ([]activity.Record, error) {
	path := filepath.Join(r.dir, name)
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var records []activity.Record
	if err := yaml.Unmarshal(content, &records); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return records, nil
}
