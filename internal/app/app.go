// Package app wires the stores, quote sources, monitors and delivery
// channels together and exposes the operations the API, CLI and
// scheduler run.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fevolq/money/internal/archive"
	"github.com/fevolq/money/internal/cache"
	"github.com/fevolq/money/internal/config"
	"github.com/fevolq/money/internal/core"
	"github.com/fevolq/money/internal/fanout"
	"github.com/fevolq/money/internal/metrics"
	"github.com/fevolq/money/internal/monitor"
	"github.com/fevolq/money/internal/notifier"
	"github.com/fevolq/money/internal/notifier/feishu"
	"github.com/fevolq/money/internal/notifier/serverchan"
	"github.com/fevolq/money/internal/notifier/webhook"
	"github.com/fevolq/money/internal/quote"
	"github.com/fevolq/money/internal/quote/eastmoney"
	"github.com/fevolq/money/internal/store"
	"github.com/fevolq/money/internal/worth"
	"github.com/fevolq/money/internal/ws"
)

// quoteCacheTTL keeps resolved quotes warm between bursts of valuation
// lookups.
const quoteCacheTTL = 60 * time.Second

// App is the composition root for all service operations.
type App struct {
	cfg *config.Config
	log *zap.Logger
	loc *time.Location

	cache     *cache.Cache
	stores    *store.Stores
	sources   map[core.Class]quote.Source
	resolver  *worth.Resolver
	threshold *monitor.Threshold
	history   *monitor.History
	registry  *notifier.Registry
	hub       *ws.Hub
	metrics   *metrics.Registry
	snapshots *archive.Snapshots

	now func() time.Time
}

// New builds a fully wired App from configuration.
func New(cfg *config.Config, log *zap.Logger) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	c := cache.New()
	a := &App{
		cfg:       cfg,
		log:       log,
		loc:       loc,
		cache:     c,
		stores:    store.New(cfg.DataDir, c),
		resolver:  worth.NewResolver(loc),
		threshold: monitor.NewThreshold(c, loc),
		history:   monitor.NewHistory(c, loc),
		registry:  notifier.NewRegistry(),
		hub:       ws.NewHub(c, loc, log),
		metrics:   metrics.NewRegistry(),
		now:       time.Now,
		sources: map[core.Class]quote.Source{
			core.ClassStock: eastmoney.New(core.ClassStock),
			core.ClassFund:  eastmoney.New(core.ClassFund),
		},
	}

	for _, n := range []notifier.Notifier{
		feishu.New(cfg.Notifiers.Feishu.URL),
		serverchan.New(cfg.Notifiers.ServerChan.Key),
		webhook.New(cfg.Notifiers.Webhook.URL, cfg.Notifiers.Webhook.Headers),
	} {
		if err := a.registry.Register(n); err != nil {
			return nil, err
		}
	}

	if cfg.Archive.Enabled {
		storage, err := newArchiveStorage(cfg.Archive)
		if err != nil {
			return nil, err
		}
		a.snapshots = archive.NewSnapshots(storage)
	}

	return a, nil
}

func newArchiveStorage(cfg config.ArchiveConfig) (archive.Storage, error) {
	if cfg.Type == "s3" {
		return archive.NewS3(archive.S3Config{
			Bucket:    cfg.S3.Bucket,
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Prefix:    cfg.S3.Prefix,
		})
	}
	return archive.NewLocalFS(cfg.Path)
}

// Hub exposes the websocket hub for the HTTP layer.
func (a *App) Hub() *ws.Hub { return a.hub }

// Metrics exposes the metrics registry.
func (a *App) Metrics() *metrics.Registry { return a.metrics }

// Stores exposes the watch stores.
func (a *App) Stores() *store.Stores { return a.stores }

// Snapshots exposes the archive, nil when archiving is disabled.
func (a *App) Snapshots() *archive.Snapshots { return a.snapshots }

// currentQuote fetches the latest quote for one code, optionally through
// the short-lived valuation cache.
func (a *App) currentQuote(ctx context.Context, class core.Class, code string, useCache bool) (core.Quote, error) {
	key := fmt.Sprintf("worth.%s.%s", class, code)
	if useCache {
		if v, ok := a.cache.Get(key); ok {
			return v.(core.Quote), nil
		}
	}

	q, err := a.sources[class].FetchCurrent(ctx, code)
	a.metrics.RecordFetch(string(class), "current", err)
	if err != nil {
		return core.Quote{}, err
	}
	if useCache {
		a.cache.Set(key, q, quoteCacheTTL)
	}
	return q, nil
}

// ResolveWorth resolves valuations for the given codes, or for the whole
// watch list when codes is empty. Per-code fetch failures are logged and
// skipped. The returned message is a rendered block per record.
func (a *App) ResolveWorth(ctx context.Context, class core.Class, codes []string) ([]core.Valuation, string, error) {
	entries, _, err := a.stores.Worth.Get(class)
	if err != nil {
		return nil, "", err
	}
	a.metrics.SetWatchEntries(store.CategoryWorth, string(class), len(entries))

	costs := make(map[string]*decimal.Decimal, len(entries))
	for _, e := range entries {
		costs[e.Code] = e.Cost
	}

	if len(codes) == 0 {
		for _, e := range entries {
			codes = append(codes, e.Code)
		}
	}
	if len(codes) == 0 {
		return nil, "", core.ErrNoWatch
	}

	useCache := a.cfg.Worth.UseCache
	results := fanout.Map(ctx, codes, func(ctx context.Context, code string) (core.Valuation, error) {
		q, err := a.currentQuote(ctx, class, code, useCache)
		if err != nil {
			return core.Valuation{}, err
		}
		return a.resolver.Resolve(q, costs[code]), nil
	})

	records := make([]core.Valuation, 0, len(results))
	blocks := make([]string, 0, len(results))
	for i, res := range results {
		if res.Err != nil {
			a.log.Warn("worth fetch failed",
				zap.String("class", string(class)), zap.String("code", codes[i]), zap.Error(res.Err))
			continue
		}
		records = append(records, res.Value)
		blocks = append(blocks, worth.Format(res.Value))
	}

	return records, strings.Join(blocks, "\n\n"), nil
}

// EvaluateMonitor runs every threshold option for the class against live
// quotes. With record=false the run neither consults nor registers the
// daily suppression keys.
func (a *App) EvaluateMonitor(ctx context.Context, class core.Class, record bool) ([]string, error) {
	opts, _, err := a.stores.Monitor.Get(class, "")
	if err != nil {
		return nil, err
	}
	if len(opts) == 0 {
		return nil, core.ErrNoMonitor
	}
	a.metrics.SetWatchEntries(store.CategoryMonitor, string(class), len(opts))

	codes := uniqueCodes(opts, func(o store.MonitorOption) string { return o.Code })
	results := fanout.Map(ctx, codes, func(ctx context.Context, code string) (core.Quote, error) {
		return a.currentQuote(ctx, class, code, false)
	})

	var msgs []string
	for i, res := range results {
		if res.Err != nil {
			a.log.Warn("monitor fetch failed",
				zap.String("class", string(class)), zap.String("code", codes[i]), zap.Error(res.Err))
			continue
		}
		triggered := a.threshold.Evaluate(res.Value, opts, record)
		for range triggered {
			a.metrics.RecordTrigger(string(class), "monitor")
		}
		msgs = append(msgs, triggered...)
	}
	return msgs, nil
}

// EvaluateHistoryMonitor runs every history option for the class. The
// historical series is cached until the end of the local day; the live
// quote never is.
func (a *App) EvaluateHistoryMonitor(ctx context.Context, class core.Class, record bool) ([]string, error) {
	opts, _, err := a.stores.History.Get(class, "")
	if err != nil {
		return nil, err
	}
	if len(opts) == 0 {
		return nil, core.ErrNoMonitor
	}
	a.metrics.SetWatchEntries(store.CategoryHistory, string(class), len(opts))

	results := fanout.Map(ctx, opts, func(ctx context.Context, opt store.HistoryOption) ([]string, error) {
		q, err := a.currentQuote(ctx, class, opt.Code, false)
		if err != nil {
			return nil, err
		}
		bars, err := a.historyBars(ctx, class, opt.Code)
		if err != nil {
			return nil, err
		}
		return a.history.Evaluate(q, bars, opt, record), nil
	})

	var msgs []string
	for i, res := range results {
		if res.Err != nil {
			a.log.Warn("history fetch failed",
				zap.String("class", string(class)), zap.String("code", opts[i].Code), zap.Error(res.Err))
			continue
		}
		for range res.Value {
			a.metrics.RecordTrigger(string(class), "history_monitor")
		}
		msgs = append(msgs, res.Value...)
	}
	return msgs, nil
}

// historyBars loads the lookback series for one code, one extra row deep
// so the current day can be dropped during matching.
func (a *App) historyBars(ctx context.Context, class core.Class, code string) ([]core.HistoryBar, error) {
	key := fmt.Sprintf("history_monitor.%s.%s.%d", class, code, monitor.MaxLookback)
	if v, ok := a.cache.Get(key); ok {
		return v.([]core.HistoryBar), nil
	}

	bars, err := a.sources[class].FetchHistory(ctx, code, monitor.MaxLookback+1)
	a.metrics.RecordFetch(string(class), "history", err)
	if err != nil {
		return nil, err
	}
	a.cache.SetExpireToday(key, bars, a.loc)
	return bars, nil
}

// Names resolves display names for codes, cached until end of day.
func (a *App) Names(ctx context.Context, class core.Class, codes []string) map[string]string {
	names := make(map[string]string, len(codes))
	var missing []string
	for _, code := range codes {
		key := fmt.Sprintf("code_name.%s.%s", class, code)
		if v, ok := a.cache.Get(key); ok {
			names[code] = v.(string)
			continue
		}
		missing = append(missing, code)
	}

	results := fanout.Map(ctx, missing, func(ctx context.Context, code string) (string, error) {
		q, err := a.currentQuote(ctx, class, code, false)
		if err != nil {
			return "", err
		}
		return q.Name, nil
	})
	for i, res := range results {
		if res.Err != nil {
			a.log.Warn("name lookup failed",
				zap.String("class", string(class)), zap.String("code", missing[i]), zap.Error(res.Err))
			continue
		}
		names[missing[i]] = res.Value
		a.cache.SetExpireToday(fmt.Sprintf("code_name.%s.%s", class, missing[i]), res.Value, a.loc)
	}
	return names
}

// PushWorth resolves the watch list and delivers the valuation digest to
// all notifiers, archiving the snapshot when configured.
func (a *App) PushWorth(ctx context.Context, class core.Class) error {
	records, msg, err := a.ResolveWorth(ctx, class, nil)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return core.ErrNoData
	}

	a.notify(fmt.Sprintf("%s 估值", class.Label()), msg)

	if a.snapshots != nil {
		date := a.now().In(a.loc).Format("2006-01-02")
		if err := a.snapshots.WriteDaily(ctx, class, date, records); err != nil {
			a.log.Warn("snapshot archive failed", zap.String("class", string(class)), zap.Error(err))
		}
	}
	return nil
}

// PushMonitor evaluates threshold options with suppression recording and
// delivers new triggers to all notifiers.
func (a *App) PushMonitor(ctx context.Context, class core.Class) error {
	msgs, err := a.EvaluateMonitor(ctx, class, true)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}
	a.notify(fmt.Sprintf("%s 阈值", class.Label()), strings.Join(msgs, "\n\n"))
	return nil
}

// PushHistoryMonitor evaluates history options with suppression
// recording and delivers new triggers to all notifiers.
func (a *App) PushHistoryMonitor(ctx context.Context, class core.Class) error {
	msgs, err := a.EvaluateHistoryMonitor(ctx, class, true)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}
	a.notify(fmt.Sprintf("%s 历史涨跌幅", class.Label()), strings.Join(msgs, "\n\n"))
	return nil
}

// BroadcastMonitor evaluates threshold options without touching the push
// suppression keys and fans the triggers out to websocket subscribers,
// deduplicated per client per day.
func (a *App) BroadcastMonitor(ctx context.Context, class core.Class) error {
	msgs, err := a.EvaluateMonitor(ctx, class, false)
	if err != nil {
		return err
	}
	for _, msg := range msgs {
		payload := map[string]any{
			"type":  "monitor",
			"class": string(class),
			"msg":   msg,
		}
		a.hub.BroadcastDedup(payload, core.ShortHash(msg, 12))
	}
	a.metrics.SetWSClients(a.hub.Count())
	return nil
}

// notify delivers a message to every configured channel, best-effort.
func (a *App) notify(title, content string) {
	msg := notifier.Message{
		Title:   title,
		Content: fmt.Sprintf("【%s】%s\n\n%s", title, a.now().In(a.loc).Format("2006-01-02 15:04:05"), content),
	}
	for name, err := range a.registry.NotifyAll(msg) {
		a.log.Warn("notify failed", zap.String("notifier", name), zap.Error(err))
	}
}

func uniqueCodes[T any](items []T, code func(T) string) []string {
	seen := make(map[string]struct{}, len(items))
	var codes []string
	for _, item := range items {
		c := code(item)
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		codes = append(codes, c)
	}
	return codes
}
