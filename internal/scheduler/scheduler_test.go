package scheduler

import (
	"testing"

	"go.uber.org/zap"

	"github.com/fevolq/money/internal/app"
	"github.com/fevolq/money/internal/config"
)

func newTestApp(t *testing.T) (*app.App, *config.Config) {
	t.Helper()
	cfg := config.Defaults()
	cfg.DataDir = t.TempDir()
	cfg.Timezone = "UTC"

	a, err := app.New(cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	return a, cfg
}

func TestNewRegistersConfiguredJobs(t *testing.T) {
	a, cfg := newTestApp(t)
	cfg.Jobs = config.JobsConfig{
		FundWorth:   []string{"*/5 9-15 * * MON-FRI"},
		StockWorth:  []string{"*/5 9-15 * * MON-FRI", "0 18 * * *"},
		FundMonitor: []string{""},
		Broadcast:   []string{"*/1 * * * *"},
	}

	s, err := New(a, cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	// 1 fund worth + 2 stock worth + 2 broadcast (fund and stock);
	// empty expressions register nothing.
	if got := s.Entries(); got != 5 {
		t.Errorf("expected 5 entries, got %d", got)
	}
}

func TestNewRejectsInvalidCron(t *testing.T) {
	a, cfg := newTestApp(t)
	cfg.Jobs = config.JobsConfig{FundWorth: []string{"not a cron"}}

	if _, err := New(a, cfg, zap.NewNop()); err == nil {
		t.Error("expected error for invalid cron expression")
	}
}

func TestNoJobsConfigured(t *testing.T) {
	a, cfg := newTestApp(t)

	s, err := New(a, cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if s.Entries() != 0 {
		t.Errorf("expected no entries, got %d", s.Entries())
	}
}
