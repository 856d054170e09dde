// Package archive persists daily valuation snapshots to a pluggable
// storage backend.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/fevolq/money/internal/core"
)

// Storage defines the interface for archive storage backends
type Storage interface {
	// Write stores data at the given path
	Write(ctx context.Context, path string, data []byte) error

	// Read retrieves data from the given path
	Read(ctx context.Context, path string) ([]byte, error)

	// List returns all paths matching the prefix
	List(ctx context.Context, prefix string) ([]string, error)

	// Exists checks if data exists at the given path
	Exists(ctx context.Context, path string) (bool, error)
}

// Snapshots stores one valuation snapshot per class per day.
type Snapshots struct {
	storage Storage
}

func NewSnapshots(storage Storage) *Snapshots {
	return &Snapshots{storage: storage}
}

func snapshotPath(class core.Class, date string) string {
	return path.Join("snapshots", string(class), date+".json")
}

// WriteDaily stores the resolved valuations for one class under the
// given date, overwriting any earlier snapshot for the same day.
func (s *Snapshots) WriteDaily(ctx context.Context, class core.Class, date string, records []core.Valuation) error {
	data, err := json.MarshalIndent(records, "", "    ")
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	return s.storage.Write(ctx, snapshotPath(class, date), data)
}

// ReadDaily loads the snapshot for one class and date.
func (s *Snapshots) ReadDaily(ctx context.Context, class core.Class, date string) ([]core.Valuation, error) {
	exists, err := s.storage.Exists(ctx, snapshotPath(class, date))
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, core.WrapError(core.ErrNotFound, fmt.Errorf("no snapshot for %s on %s", class, date))
	}

	data, err := s.storage.Read(ctx, snapshotPath(class, date))
	if err != nil {
		return nil, err
	}
	var records []core.Valuation
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return records, nil
}

// Dates lists all snapshot dates recorded for a class, ascending.
func (s *Snapshots) Dates(ctx context.Context, class core.Class) ([]string, error) {
	paths, err := s.storage.List(ctx, path.Join("snapshots", string(class)))
	if err != nil {
		return nil, err
	}

	dates := make([]string, 0, len(paths))
	for _, p := range paths {
		name := path.Base(p)
		dates = append(dates, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(dates)
	return dates, nil
}
