package store

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fevolq/money/internal/cache"
	"github.com/fevolq/money/internal/core"
)

// WorthEntry registers interest in an instrument, with an optional cost
// basis for profit/regression calculation.
type WorthEntry struct {
	Code string           `json:"code"`
	Cost *decimal.Decimal `json:"cost,omitempty"`
}

// WorthStore manages the worth watch list, keyed by instrument class.
type WorthStore struct {
	fs *fileStore
}

// NewWorthStore creates a worth store over dir.
func NewWorthStore(dir string, c *cache.Cache) *WorthStore {
	return &WorthStore{fs: newFileStore(dir, CategoryWorth, c)}
}

type worthDoc map[core.Class][]WorthEntry

// Add appends entries whose codes are not yet present. Re-adding an
// existing code is a no-op, keeping the list unique per code.
func (s *WorthStore) Add(class core.Class, entries []WorthEntry) ([]string, string, error) {
	if len(entries) == 0 {
		return nil, "", core.ErrCodesMissing
	}

	s.fs.mu.Lock()
	defer s.fs.mu.Unlock()

	var doc worthDoc
	if err := s.fs.load(&doc); err != nil {
		return nil, "", err
	}
	if doc == nil {
		doc = worthDoc{}
	}

	existing := make(map[string]struct{}, len(doc[class]))
	for _, e := range doc[class] {
		existing[e.Code] = struct{}{}
	}

	var added []string
	for _, e := range entries {
		if e.Code == "" {
			continue
		}
		if _, ok := existing[e.Code]; ok {
			continue
		}
		existing[e.Code] = struct{}{}
		doc[class] = append(doc[class], e)
		added = append(added, e.Code)
	}

	if err := s.fs.save(doc); err != nil {
		return nil, "", err
	}
	return added, fmt.Sprintf("%s添加成功", strings.Join(added, ",")), nil
}

// Get returns a copy of the class's entries and a summary string.
func (s *WorthStore) Get(class core.Class) ([]WorthEntry, string, error) {
	s.fs.mu.Lock()
	defer s.fs.mu.Unlock()

	var doc worthDoc
	if err := s.fs.load(&doc); err != nil {
		return nil, "", err
	}

	entries := doc[class]
	if len(entries) == 0 {
		return nil, "暂无关注", nil
	}

	codes := make([]string, len(entries))
	for i, e := range entries {
		codes[i] = e.Code
	}
	return entries, fmt.Sprintf("已关注: %s", strings.Join(codes, ",")), nil
}

// Update overwrites the cost basis of already-watched codes, reporting
// which codes were matched.
func (s *WorthStore) Update(class core.Class, entries []WorthEntry) ([]string, string, error) {
	if len(entries) == 0 {
		return nil, "", core.ErrCodesMissing
	}

	s.fs.mu.Lock()
	defer s.fs.mu.Unlock()

	var doc worthDoc
	if err := s.fs.load(&doc); err != nil {
		return nil, "", err
	}

	costs := make(map[string]*decimal.Decimal, len(entries))
	for _, e := range entries {
		costs[e.Code] = e.Cost
	}

	var updated []string
	for i, e := range doc[class] {
		cost, ok := costs[e.Code]
		if !ok {
			continue
		}
		doc[class][i].Cost = cost
		updated = append(updated, e.Code)
	}

	if len(updated) == 0 {
		return nil, "", core.ErrNotFound
	}

	if err := s.fs.save(doc); err != nil {
		return nil, "", err
	}
	return updated, fmt.Sprintf("%s更新成功", strings.Join(updated, ",")), nil
}

// Delete removes entries by code, reporting which codes were matched.
func (s *WorthStore) Delete(class core.Class, codes []string) ([]string, string, error) {
	if len(codes) == 0 {
		return nil, "", core.ErrCodesMissing
	}

	s.fs.mu.Lock()
	defer s.fs.mu.Unlock()

	var doc worthDoc
	if err := s.fs.load(&doc); err != nil {
		return nil, "", err
	}

	wanted := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		wanted[code] = struct{}{}
	}

	var kept []WorthEntry
	var removed []string
	for _, e := range doc[class] {
		if _, ok := wanted[e.Code]; ok {
			removed = append(removed, e.Code)
			continue
		}
		kept = append(kept, e)
	}

	if len(removed) == 0 {
		return nil, "", core.ErrNotFound
	}

	doc[class] = kept
	if err := s.fs.save(doc); err != nil {
		return nil, "", err
	}
	return removed, fmt.Sprintf("%s删除成功", strings.Join(removed, ",")), nil
}
