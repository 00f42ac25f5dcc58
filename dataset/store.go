package dataset

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// Store owns the current snapshot. Readers get whatever snapshot is installed
// at call time; Reload swaps in a complete replacement atomically so in-flight
// requests never observe a half-loaded table.
type Store struct {
	loader *Loader
	cur    atomic.Pointer[Dataset]

	loadOnce sync.Once
	reloadMu sync.Mutex
}

// NewStore wraps a loader. The first Snapshot call triggers the initial load.
func NewStore(loader *Loader) *Store {
	return &Store{loader: loader}
}

// Snapshot returns the current dataset, loading it on first access.
// Returns nil when no dataset could be loaded.
func (s *Store) Snapshot() *Dataset {
	s.loadOnce.Do(func() {
		if _, err := s.Reload(); err != nil {
			slog.Warn("initial dataset load failed", slog.Any("error", err))
		}
	})
	return s.cur.Load()
}

// Reload re-reads the silver table and installs it as the new snapshot.
// A failed load keeps the previous snapshot in place.
func (s *Store) Reload() (*Dataset, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	ds, err := s.loader.Load()
	if err != nil {
		return nil, err
	}
	if ds == nil {
		slog.Warn("dataset file not found", slog.String("path", s.loader.ResolvePath()))
		s.cur.Store(nil)
		return nil, nil
	}
	s.cur.Store(ds)
	slog.Info("dataset loaded",
		slog.String("path", ds.Path),
		slog.Int("rows", len(ds.Records)),
	)
	return ds, nil
}

// Health reports loader state for the health endpoint.
func (s *Store) Health() Health {
	ds := s.Snapshot()
	h := Health{
		DatasetPath:    s.loader.ResolvePath(),
		ColumnsPresent: []string{},
	}
	if ds == nil {
		return h
	}
	h.Exists = true
	h.DatasetPath = ds.Path
	h.Rows = len(ds.Records)
	if ds.Columns != nil {
		h.ColumnsPresent = ds.Columns
	}
	h.ColumnsRequiredOK = !ds.Empty() && ds.RequiredOK()
	return h
}
