package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fevolq/money/internal/cache"
	"github.com/fevolq/money/internal/core"
)

// MonitorOption is one threshold rule for an instrument. Growth and Lessen
// are stored as absolute magnitudes; the direction is implied by the field.
type MonitorOption struct {
	ID     string           `json:"id"`
	Code   string           `json:"code"`
	Remark string           `json:"remark,omitempty"`
	Worth  *decimal.Decimal `json:"worth,omitempty"`
	Cost   *decimal.Decimal `json:"cost,omitempty"`
	Growth *decimal.Decimal `json:"growth,omitempty"`
	Lessen *decimal.Decimal `json:"lessen,omitempty"`
}

// Validate enforces the option invariant: a worth threshold, or a cost
// basis paired with at least one of growth/lessen.
func (o MonitorOption) Validate() error {
	if o.Code == "" {
		return core.ErrCodesMissing
	}
	if o.Worth != nil {
		return nil
	}
	if o.Cost != nil && (o.Growth != nil || o.Lessen != nil) {
		return nil
	}
	return core.ErrOptionInvalid
}

// normalize stores growth/lessen as absolute values.
func (o *MonitorOption) normalize() {
	if o.Growth != nil {
		v := o.Growth.Abs()
		o.Growth = &v
	}
	if o.Lessen != nil {
		v := o.Lessen.Abs()
		o.Lessen = &v
	}
}

// MonitorPatch carries partial changes for an option. Nil fields are left
// unchanged; set fields overwrite.
type MonitorPatch struct {
	Remark *string          `json:"remark,omitempty"`
	Worth  *decimal.Decimal `json:"worth,omitempty"`
	Cost   *decimal.Decimal `json:"cost,omitempty"`
	Growth *decimal.Decimal `json:"growth,omitempty"`
	Lessen *decimal.Decimal `json:"lessen,omitempty"`
}

// MonitorStore manages threshold monitor options per instrument class.
type MonitorStore struct {
	fs  *fileStore
	now func() time.Time
}

// NewMonitorStore creates a monitor store over dir.
func NewMonitorStore(dir string, c *cache.Cache) *MonitorStore {
	return &MonitorStore{
		fs:  newFileStore(dir, CategoryMonitor, c),
		now: time.Now,
	}
}

type monitorDoc map[core.Class][]MonitorOption

// idLength is the hex length of generated option IDs.
const idLength = 6

func (s *MonitorStore) newID(code string, taken map[string]struct{}) string {
	for attempt := 0; ; attempt++ {
		id := core.ShortHash(fmt.Sprintf("%s.%d.%d", code, s.now().UnixNano(), attempt), idLength)
		if _, ok := taken[id]; !ok {
			return id
		}
	}
}

// Add validates and appends an option, assigning it a fresh unique id.
func (s *MonitorStore) Add(class core.Class, opt MonitorOption) (string, error) {
	opt.normalize()
	if err := opt.Validate(); err != nil {
		return "", err
	}

	s.fs.mu.Lock()
	defer s.fs.mu.Unlock()

	var doc monitorDoc
	if err := s.fs.load(&doc); err != nil {
		return "", err
	}
	if doc == nil {
		doc = monitorDoc{}
	}

	taken := make(map[string]struct{})
	for _, opts := range doc {
		for _, o := range opts {
			taken[o.ID] = struct{}{}
		}
	}

	opt.ID = s.newID(opt.Code, taken)
	doc[class] = append(doc[class], opt)

	if err := s.fs.save(doc); err != nil {
		return "", err
	}
	return opt.ID, nil
}

// Get returns a copy of the class's options, optionally filtered by code,
// plus a summary string.
func (s *MonitorStore) Get(class core.Class, code string) ([]MonitorOption, string, error) {
	s.fs.mu.Lock()
	defer s.fs.mu.Unlock()

	var doc monitorDoc
	if err := s.fs.load(&doc); err != nil {
		return nil, "", err
	}

	var options []MonitorOption
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
		lines[i] = fmt.Sprintf("【%s】%s 成本：%s，净值阈值：%s，涨幅：%s，跌幅：%s",
			o.ID, o.Code, decStr(o.Cost), decStr(o.Worth), decStr(o.Growth), decStr(o.Lessen))
	}
	return options, strings.Join(lines, "\n"), nil
}

// Update merges a patch into the option matched by id and re-validates
// the result.
func (s *MonitorStore) Update(class core.Class, id string, patch MonitorPatch) error {
	s.fs.mu.Lock()
	defer s.fs.mu.Unlock()

	var doc monitorDoc
	if err := s.fs.load(&doc); err != nil {
		return err
	}

	options := doc[class]
	index := -1
	for i, o := range options {
		if o.ID == id {
			index = i
			break
		}
	}
	if index < 0 {
		return core.ErrNotFound
	}

	merged := options[index]
	if patch.Remark != nil {
		merged.Remark = *patch.Remark
	}
	if patch.Worth != nil {
		merged.Worth = patch.Worth
	}
	if patch.Cost != nil {
		merged.Cost = patch.Cost
	}
	if patch.Growth != nil {
		merged.Growth = patch.Growth
	}
	if patch.Lessen != nil {
		merged.Lessen = patch.Lessen
	}

	merged.normalize()
	if err := merged.Validate(); err != nil {
		return err
	}

	options[index] = merged
	doc[class] = options
	return s.fs.save(doc)
}

// Delete removes options by id, reporting which ids were matched.
func (s *MonitorStore) Delete(class core.Class, ids []string) ([]string, string, error) {
	if len(ids) == 0 {
		return nil, "", core.ErrCodesMissing
	}

	s.fs.mu.Lock()
	defer s.fs.mu.Unlock()

	var doc monitorDoc
	if err := s.fs.load(&doc); err != nil {
		return nil, "", err
	}

	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}

	var kept []MonitorOption
	var removed []string
	for _, o := range doc[class] {
		if _, ok := wanted[o.ID]; ok {
			removed = append(removed, o.ID)
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

func decStr(d *decimal.Decimal) string {
	if d == nil {
		return "-"
	}
	return d.String()
}
