package app

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fevolq/money/internal/config"
	"github.com/fevolq/money/internal/core"
	"github.com/fevolq/money/internal/store"
)

type fakeSource struct {
	quotes map[string]core.Quote
	bars   map[string][]core.HistoryBar
	errs   map[string]error

	currentCalls int32
	historyCalls int32
}

func (f *fakeSource) FetchCurrent(_ context.Context, code string) (core.Quote, error) {
	atomic.AddInt32(&f.currentCalls, 1)
	if err := f.errs[code]; err != nil {
		return core.Quote{}, err
	}
	q, ok := f.quotes[code]
	if !ok {
		return core.Quote{}, core.ErrNoData
	}
	return q, nil
}

func (f *fakeSource) FetchHistory(_ context.Context, code string, _ int) ([]core.HistoryBar, error) {
	atomic.AddInt32(&f.historyCalls, 1)
	if err := f.errs[code]; err != nil {
		return nil, err
	}
	return f.bars[code], nil
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func newTestApp(t *testing.T, src *fakeSource) *App {
	t.Helper()
	cfg := config.Defaults()
	cfg.DataDir = t.TempDir()
	cfg.Timezone = "UTC"

	a, err := New(cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	a.sources[core.ClassFund] = src
	a.sources[core.ClassStock] = src
	return a
}

func fundQuote(code, name, current string) core.Quote {
	return core.Quote{
		Class:   core.ClassFund,
		Code:    code,
		Name:    name,
		Current: decimal.RequireFromString(current),
		Start:   decimal.RequireFromString(current),
		Rate:    decimal.Zero,
		TimeStr: time.Now().UTC().Format("2006-01-02 15:04"),
	}
}

func TestResolveWorthUsesWatchList(t *testing.T) {
	src := &fakeSource{quotes: map[string]core.Quote{
		"161725": fundQuote("161725", "招商中证白酒", "1.2"),
		"000001": fundQuote("000001", "华夏成长", "0.9"),
	}}
	a := newTestApp(t, src)

	_, _, err := a.Stores().Worth.Add(core.ClassFund, []store.WorthEntry{
		{Code: "161725", Cost: dec("1.0")},
		{Code: "000001"},
	})
	if err != nil {
		t.Fatal(err)
	}

	records, msg, err := a.ResolveWorth(context.Background(), core.ClassFund, nil)
	if err != nil {
		t.Fatal(err)
	}

	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Code != "161725" || records[1].Code != "000001" {
		t.Errorf("records out of watch order: %s, %s", records[0].Code, records[1].Code)
	}
	if records[0].Profit != "20.00%" {
		t.Errorf("cost basis not applied, profit = %q", records[0].Profit)
	}
	if records[1].Profit != "" {
		t.Errorf("entry without cost must not carry profit, got %q", records[1].Profit)
	}
	if !strings.Contains(msg, "招商中证白酒 [161725]") || !strings.Contains(msg, "华夏成长 [000001]") {
		t.Errorf("message missing blocks:\n%s", msg)
	}
}

func TestResolveWorthEmptyWatch(t *testing.T) {
	a := newTestApp(t, &fakeSource{})

	_, _, err := a.ResolveWorth(context.Background(), core.ClassFund, nil)
	if !errors.Is(err, core.ErrNoWatch) {
		t.Errorf("expected ErrNoWatch, got %v", err)
	}
}

func TestResolveWorthSkipsFailedCodes(t *testing.T) {
	src := &fakeSource{
		quotes: map[string]core.Quote{"161725": fundQuote("161725", "n", "1.2")},
		errs:   map[string]error{"999999": core.ErrFetchFailed},
	}
	a := newTestApp(t, src)

	records, _, err := a.ResolveWorth(context.Background(), core.ClassFund, []string{"999999", "161725"})
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].Code != "161725" {
		t.Errorf("failed code should be skipped, got %+v", records)
	}
}

func TestResolveWorthQuoteCache(t *testing.T) {
	src := &fakeSource{quotes: map[string]core.Quote{"161725": fundQuote("161725", "n", "1.2")}}
	a := newTestApp(t, src)

	ctx := context.Background()
	codes := []string{"161725"}
	if _, _, err := a.ResolveWorth(ctx, core.ClassFund, codes); err != nil {
		t.Fatal(err)
	}
	if _, _, err := a.ResolveWorth(ctx, core.ClassFund, codes); err != nil {
		t.Fatal(err)
	}
	if n := atomic.LoadInt32(&src.currentCalls); n != 1 {
		t.Errorf("expected a single upstream fetch with cache enabled, got %d", n)
	}

	a.cfg.Worth.UseCache = false
	if _, _, err := a.ResolveWorth(ctx, core.ClassFund, codes); err != nil {
		t.Fatal(err)
	}
	if n := atomic.LoadInt32(&src.currentCalls); n != 2 {
		t.Errorf("expected an extra fetch with cache disabled, got %d", n)
	}
}

func TestEvaluateMonitorNoOptions(t *testing.T) {
	a := newTestApp(t, &fakeSource{})

	_, err := a.EvaluateMonitor(context.Background(), core.ClassFund, true)
	if !errors.Is(err, core.ErrNoMonitor) {
		t.Errorf("expected ErrNoMonitor, got %v", err)
	}
}

func TestEvaluateMonitorTriggersAndSuppresses(t *testing.T) {
	src := &fakeSource{quotes: map[string]core.Quote{"161725": fundQuote("161725", "n", "1.6")}}
	a := newTestApp(t, src)

	if _, err := a.Stores().Monitor.Add(core.ClassFund, store.MonitorOption{
		Code: "161725", Worth: dec("1.5"),
	}); err != nil {
		t.Fatal(err)
	}

	msgs, err := a.EvaluateMonitor(context.Background(), core.ClassFund, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || !strings.Contains(msgs[0], "净值阈值") {
		t.Fatalf("expected worth trigger, got %v", msgs)
	}

	msgs, err = a.EvaluateMonitor(context.Background(), core.ClassFund, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 0 {
		t.Errorf("expected same-day suppression, got %v", msgs)
	}
}

func TestEvaluateHistoryMonitorCachesSeries(t *testing.T) {
	yesterday := time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02")
	src := &fakeSource{
		quotes: map[string]core.Quote{"161725": fundQuote("161725", "n", "1.2")},
		bars: map[string][]core.HistoryBar{"161725": {
			{Date: yesterday, Close: decimal.RequireFromString("1.0")},
		}},
	}
	a := newTestApp(t, src)

	if err := a.Stores().History.Add(core.ClassFund, store.HistoryOption{
		Code:    "161725",
		Windows: map[int]store.WindowRule{3: {Growth: dec("10")}},
	}); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	msgs, err := a.EvaluateHistoryMonitor(ctx, core.ClassFund, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected a growth trigger, got %v", msgs)
	}

	if _, err := a.EvaluateHistoryMonitor(ctx, core.ClassFund, false); err != nil {
		t.Fatal(err)
	}
	if n := atomic.LoadInt32(&src.historyCalls); n != 1 {
		t.Errorf("series should be cached for the day, got %d fetches", n)
	}
	if n := atomic.LoadInt32(&src.currentCalls); n != 2 {
		t.Errorf("live quote must not be cached, got %d fetches", n)
	}
}

func TestNamesCachedForTheDay(t *testing.T) {
	src := &fakeSource{quotes: map[string]core.Quote{"161725": fundQuote("161725", "招商中证白酒", "1.2")}}
	a := newTestApp(t, src)

	ctx := context.Background()
	names := a.Names(ctx, core.ClassFund, []string{"161725"})
	if names["161725"] != "招商中证白酒" {
		t.Fatalf("unexpected names %v", names)
	}

	a.Names(ctx, core.ClassFund, []string{"161725"})
	if n := atomic.LoadInt32(&src.currentCalls); n != 1 {
		t.Errorf("expected cached name lookup, got %d fetches", n)
	}
}
