package store

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fevolq/money/internal/cache"
	"github.com/fevolq/money/internal/core"
)

// Windows are the allowed lookback horizons, in trading days.
var Windows = []int{3, 5, 7, 15, 30}

// WindowRule holds the growth/lessen thresholds for one lookback window,
// as absolute magnitudes.
type WindowRule struct {
	Growth *decimal.Decimal `json:"growth,omitempty"`
	Lessen *decimal.Decimal `json:"lessen,omitempty"`
}

func (r WindowRule) empty() bool { return r.Growth == nil && r.Lessen == nil }

// HistoryOption configures the history monitor for one code. Unlike
// monitor options there is at most one entry per code.
type HistoryOption struct {
	Code    string             `json:"code"`
	Windows map[int]WindowRule `json:"windows"`
}

// Validate requires at least one window with a threshold, and rejects
// window sizes outside the allowed set.
func (o HistoryOption) Validate() error {
	if o.Code == "" {
		return core.ErrCodesMissing
	}

	allowed := make(map[int]struct{}, len(Windows))
	for _, w := range Windows {
		allowed[w] = struct{}{}
	}

	active := 0
	for w, rule := range o.Windows {
		if _, ok := allowed[w]; !ok {
			return core.WrapError(core.ErrOptionInvalid, fmt.Errorf("window %d not in %v", w, Windows))
		}
		if !rule.empty() {
			active++
		}
	}
	if active == 0 {
		return core.ErrOptionInvalid
	}
	return nil
}

func (o *HistoryOption) normalize() {
	for w, rule := range o.Windows {
		if rule.Growth != nil {
			v := rule.Growth.Abs()
			rule.Growth = &v
		}
		if rule.Lessen != nil {
			v := rule.Lessen.Abs()
			rule.Lessen = &v
		}
		o.Windows[w] = rule
	}
}

// HistoryStore manages history monitor options per instrument class.
type HistoryStore struct {
	fs *fileStore
}

// NewHistoryStore creates a history monitor store over dir.
func NewHistoryStore(dir string, c *cache.Cache) *HistoryStore {
	return &HistoryStore{fs: newFileStore(dir, CategoryHistory, c)}
}

type historyDoc map[core.Class][]HistoryOption

// Add inserts an option, rejecting codes that already have one.
func (s *HistoryStore) Add(class core.Class, opt HistoryOption) error {
	opt.normalize()
	if err := opt.Validate(); err != nil {
		return err
	}

	s.fs.mu.Lock()
	defer s.fs.mu.Unlock()

	var doc historyDoc
	if err := s.fs.load(&doc); err != nil {
		return err
	}
	if doc == nil {
		doc = historyDoc{}
	}

	for _, o := range doc[class] {
		if o.Code == opt.Code {
			return core.WrapError(core.ErrOptionInvalid, fmt.Errorf("code %s already configured", opt.Code))
		}
	}

	doc[class] = append(doc[class], opt)
	return s.fs.save(doc)
}

// Get returns a copy of the class's options, optionally filtered by code,
// plus a summary string.
func (s *HistoryStore) Get(class core.Class, code string) ([]HistoryOption, string, error) {
	s.fs.mu.Lock()
	defer s.fs.mu.Unlock()

	var doc historyDoc
	if err := s.fs.load(&doc); err != nil {
		return nil, "", err
	}

	var options []HistoryOption
	for _, o := range doc[class] {
		if code != "" && o.Code != code {
			continue
		}
		options = append(options, o)
	}

	if len(options) == 0 {
		return nil, "暂无配置", nil
	}

	lines := make([]string, len(options))
	for i, o := range options {
		lines[i] = fmt.Sprintf("%s %s", o.Code, windowSummary(o.Windows))
	}
	return options, strings.Join(lines, "\n"), nil
}

// Update merges changed windows into the entry matched by code. Patch
// windows replace the matching window rule; untouched windows are kept.
func (s *HistoryStore) Update(class core.Class, code string, windows map[int]WindowRule) error {
	s.fs.mu.Lock()
	defer s.fs.mu.Unlock()

	var doc historyDoc
	if err := s.fs.load(&doc); err != nil {
		return err
	}

	options := doc[class]
	index := -1
	for i, o := range options {
		if o.Code == code {
			index = i
			break
		}
	}
	if index < 0 {
		return core.ErrNotFound
	}

	merged := options[index]
	if merged.Windows == nil {
		merged.Windows = map[int]WindowRule{}
	}
	for w, rule := range windows {
		merged.Windows[w] = rule
	}

	merged.normalize()
	if err := merged.Validate(); err != nil {
		return err
	}

	options[index] = merged
	doc[class] = options
	return s.fs.save(doc)
}

// Delete removes options by code, reporting which codes were matched.
func (s *HistoryStore) Delete(class core.Class, codes []string) ([]string, string, error) {
	if len(codes) == 0 {
		return nil, "", core.ErrCodesMissing
	}

	s.fs.mu.Lock()
	defer s.fs.mu.Unlock()

	var doc historyDoc
	if err := s.fs.load(&doc); err != nil {
		return nil, "", err
	}

	wanted := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		wanted[code] = struct{}{}
	}

	var kept []HistoryOption
	var removed []string
	for _, o := range doc[class] {
		if _, ok := wanted[o.Code]; ok {
			removed = append(removed, o.Code)
			continue
		}
		kept = append(kept, o)
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

func windowSummary(windows map[int]WindowRule) string {
	sizes := make([]int, 0, len(windows))
	for w := range windows {
		sizes = append(sizes, w)
	}
	sort.Ints(sizes)

	parts := make([]string, 0, len(sizes))
	for _, w := range sizes {
		rule := windows[w]
		if rule.empty() {
			continue
		}
		parts = append(parts, fmt.Sprintf("%d日(涨:%s 跌:%s)", w, decStr(rule.Growth), decStr(rule.Lessen)))
	}
	return strings.Join(parts, " ")
}
