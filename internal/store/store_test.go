package store

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/fevolq/money/internal/cache"
	"github.com/fevolq/money/internal/core"
)

func newTestStores(t *testing.T) *Stores {
	t.Helper()
	return New(t.TempDir(), cache.New())
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestWorthAddIdempotent(t *testing.T) {
	s := newTestStores(t).Worth

	added, _, err := s.Add(core.ClassFund, []WorthEntry{{Code: "000001"}, {Code: "000002"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(added) != 2 {
		t.Fatalf("expected 2 added, got %v", added)
	}

	// Re-adding the same code must not duplicate it.
	added, _, err = s.Add(core.ClassFund, []WorthEntry{{Code: "000001", Cost: dec("1.5")}})
	if err != nil {
		t.Fatal(err)
	}
	if len(added) != 0 {
		t.Errorf("expected no codes added on repeat, got %v", added)
	}

	entries, _, err := s.Get(core.ClassFund)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Errorf("expected 2 entries, got %d", len(entries))
	}
}

func TestWorthClassesIsolated(t *testing.T) {
	s := newTestStores(t).Worth

	s.Add(core.ClassFund, []WorthEntry{{Code: "000001"}})
	s.Add(core.ClassStock, []WorthEntry{{Code: "600519"}})

	fund, _, _ := s.Get(core.ClassFund)
	stock, _, _ := s.Get(core.ClassStock)

	if len(fund) != 1 || fund[0].Code != "000001" {
		t.Errorf("unexpected fund entries: %v", fund)
	}
	if len(stock) != 1 || stock[0].Code != "600519" {
		t.Errorf("unexpected stock entries: %v", stock)
	}
}

func TestWorthUpdateCost(t *testing.T) {
	s := newTestStores(t).Worth
	s.Add(core.ClassFund, []WorthEntry{{Code: "000001", Cost: dec("1.5")}, {Code: "000002"}})

	updated, _, err := s.Update(core.ClassFund, []WorthEntry{
		{Code: "000001", Cost: dec("2")},
		{Code: "999999", Cost: dec("3")},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(updated) != 1 || updated[0] != "000001" {
		t.Errorf("expected only 000001 updated, got %v", updated)
	}

	entries, _, _ := s.Get(core.ClassFund)
	for _, e := range entries {
		if e.Code == "000001" && (e.Cost == nil || !e.Cost.Equal(decimal.RequireFromString("2"))) {
			t.Errorf("expected cost 2, got %v", e.Cost)
		}
	}

	if _, _, err := s.Update(core.ClassFund, []WorthEntry{{Code: "999999"}}); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected not-found updating absent codes, got %v", err)
	}
}

func TestWorthDelete(t *testing.T) {
	s := newTestStores(t).Worth
	s.Add(core.ClassFund, []WorthEntry{{Code: "000001"}, {Code: "000002"}})

	removed, _, err := s.Delete(core.ClassFund, []string{"000002", "999999"})
	if err != nil {
		t.Fatal(err)
	}
	if len(removed) != 1 || removed[0] != "000002" {
		t.Errorf("expected only 000002 removed, got %v", removed)
	}

	if _, _, err := s.Delete(core.ClassFund, []string{"999999"}); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected not-found deleting absent codes, got %v", err)
	}
}

func TestMonitorInvariant(t *testing.T) {
	s := newTestStores(t).Monitor

	cases := []struct {
		name string
		opt  MonitorOption
		ok   bool
	}{
		{"worth only", MonitorOption{Code: "000001", Worth: dec("1.2")}, true},
		{"cost and growth", MonitorOption{Code: "000001", Cost: dec("1"), Growth: dec("10")}, true},
		{"cost and lessen", MonitorOption{Code: "000001", Cost: dec("1"), Lessen: dec("5")}, true},
		{"cost alone", MonitorOption{Code: "000001", Cost: dec("1")}, false},
		{"growth without cost", MonitorOption{Code: "000001", Growth: dec("10")}, false},
		{"empty", MonitorOption{Code: "000001"}, false},
		{"no code", MonitorOption{Worth: dec("1.2")}, false},
	}

	for _, tc := range cases {
		_, err := s.Add(core.ClassFund, tc.opt)
		if tc.ok && err != nil {
			t.Errorf("%s: expected ok, got %v", tc.name, err)
		}
		if !tc.ok && err == nil {
			t.Errorf("%s: expected validation failure", tc.name)
		}
	}
}

func TestMonitorIDsUnique(t *testing.T) {
	s := newTestStores(t).Monitor

	seen := make(map[string]struct{})
	for i := 0; i < 20; i++ {
		id, err := s.Add(core.ClassFund, MonitorOption{Code: "000001", Worth: dec("1.2")})
		if err != nil {
			t.Fatal(err)
		}
		if len(id) != idLength {
			t.Fatalf("expected %d-char id, got %q", idLength, id)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = struct{}{}
	}
}

func TestMonitorGrowthStoredAbsolute(t *testing.T) {
	s := newTestStores(t).Monitor

	id, err := s.Add(core.ClassFund, MonitorOption{Code: "000001", Cost: dec("1"), Lessen: dec("-5")})
	if err != nil {
		t.Fatal(err)
	}

	options, _, _ := s.Get(core.ClassFund, "000001")
	if len(options) != 1 || options[0].ID != id {
		t.Fatalf("unexpected options: %v", options)
	}
	if !options[0].Lessen.Equal(decimal.RequireFromString("5")) {
		t.Errorf("expected lessen stored as 5, got %s", options[0].Lessen)
	}
}

func TestMonitorUpdateMerge(t *testing.T) {
	s := newTestStores(t).Monitor
	id, err := s.Add(core.ClassFund, MonitorOption{Code: "000001", Cost: dec("1"), Growth: dec("10"), Remark: "first"})
	if err != nil {
		t.Fatal(err)
	}

	// Omitted fields keep prior values; present fields overwrite.
	if err := s.Update(core.ClassFund, id, MonitorPatch{Growth: dec("20")}); err != nil {
		t.Fatal(err)
	}

	options, _, _ := s.Get(core.ClassFund, "000001")
	got := options[0]
	if !got.Growth.Equal(decimal.RequireFromString("20")) {
		t.Errorf("expected growth 20, got %s", got.Growth)
	}
	if got.Cost == nil || !got.Cost.Equal(decimal.RequireFromString("1")) {
		t.Errorf("expected cost preserved, got %v", got.Cost)
	}
	if got.Remark != "first" {
		t.Errorf("expected remark preserved, got %q", got.Remark)
	}
}

func TestMonitorUpdateNotFound(t *testing.T) {
	s := newTestStores(t).Monitor

	err := s.Update(core.ClassFund, "ffffff", MonitorPatch{Worth: dec("1")})
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected not-found, got %v", err)
	}
}

func TestMonitorDeleteByID(t *testing.T) {
	s := newTestStores(t).Monitor
	id1, _ := s.Add(core.ClassFund, MonitorOption{Code: "000001", Worth: dec("1.2")})
	id2, _ := s.Add(core.ClassFund, MonitorOption{Code: "000002", Worth: dec("2.2")})

	removed, _, err := s.Delete(core.ClassFund, []string{id1})
	if err != nil {
		t.Fatal(err)
	}
	if len(removed) != 1 || removed[0] != id1 {
		t.Errorf("expected %s removed, got %v", id1, removed)
	}

	options, _, _ := s.Get(core.ClassFund, "")
	if len(options) != 1 || options[0].ID != id2 {
		t.Errorf("expected only %s left, got %v", id2, options)
	}
}

func TestHistoryOnePerCode(t *testing.T) {
	s := newTestStores(t).History

	opt := HistoryOption{Code: "000001", Windows: map[int]WindowRule{7: {Lessen: dec("5")}}}
	if err := s.Add(core.ClassFund, opt); err != nil {
		t.Fatal(err)
	}

	if err := s.Add(core.ClassFund, opt); err == nil {
		t.Error("expected duplicate code to be rejected")
	}
}

func TestHistoryWindowValidation(t *testing.T) {
	s := newTestStores(t).History

	// No active window.
	err := s.Add(core.ClassFund, HistoryOption{Code: "000002", Windows: map[int]WindowRule{7: {}}})
	if !errors.Is(err, core.ErrOptionInvalid) {
		t.Errorf("expected invalid option, got %v", err)
	}

	// Window size outside the allowed set.
	err = s.Add(core.ClassFund, HistoryOption{Code: "000002", Windows: map[int]WindowRule{4: {Growth: dec("1")}}})
	if !errors.Is(err, core.ErrOptionInvalid) {
		t.Errorf("expected invalid window size, got %v", err)
	}
}

func TestHistoryUpdateMergesWindows(t *testing.T) {
	s := newTestStores(t).History
	s.Add(core.ClassFund, HistoryOption{Code: "000001", Windows: map[int]WindowRule{7: {Lessen: dec("5")}}})

	if err := s.Update(core.ClassFund, "000001", map[int]WindowRule{3: {Growth: dec("10")}}); err != nil {
		t.Fatal(err)
	}

	options, _, _ := s.Get(core.ClassFund, "000001")
	windows := options[0].Windows
	if windows[7].Lessen == nil {
		t.Error("expected untouched window 7 preserved")
	}
	if windows[3].Growth == nil {
		t.Error("expected window 3 merged in")
	}

	if err := s.Update(core.ClassFund, "absent", map[int]WindowRule{3: {Growth: dec("1")}}); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected not-found, got %v", err)
	}
}

func TestStorePersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()

	first := New(dir, cache.New())
	first.Worth.Add(core.ClassFund, []WorthEntry{{Code: "000001", Cost: dec("1.5")}})

	// Fresh stores over the same dir must see the saved document.
	second := New(dir, cache.New())
	entries, _, err := second.Worth.Get(core.ClassFund)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Code != "000001" {
		t.Fatalf("expected persisted entry, got %v", entries)
	}
	if entries[0].Cost == nil || !entries[0].Cost.Equal(decimal.RequireFromString("1.5")) {
		t.Errorf("expected cost 1.5 persisted, got %v", entries[0].Cost)
	}
}

func TestGetReturnsCopies(t *testing.T) {
	s := newTestStores(t).Worth
	s.Add(core.ClassFund, []WorthEntry{{Code: "000001"}})

	entries, _, _ := s.Get(core.ClassFund)
	entries[0].Code = "mutated"

	again, _, _ := s.Get(core.ClassFund)
	if again[0].Code != "000001" {
		t.Error("expected store backing data unaffected by caller mutation")
	}
}
