// Package scheduler drives the periodic push and broadcast jobs from
// configured cron expressions.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/fevolq/money/internal/app"
	"github.com/fevolq/money/internal/config"
	"github.com/fevolq/money/internal/core"
)

// jobTimeout bounds one scheduled cycle, fetch fan-out included.
const jobTimeout = 2 * time.Minute

// Scheduler owns the cron runner and the registered jobs.
type Scheduler struct {
	cron *cron.Cron
	app  *app.App
	log  *zap.Logger
}

type job struct {
	name  string
	specs []string
	run   func(context.Context) error
}

// New builds a scheduler with every configured job registered. Jobs with
// no cron expressions are skipped.
func New(a *app.App, cfg *config.Config, log *zap.Logger) (*Scheduler, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	s := &Scheduler{
		cron: cron.New(cron.WithLocation(loc)),
		app:  a,
		log:  log,
	}

	jobs := []job{
		{"fund_worth", cfg.Jobs.FundWorth, func(ctx context.Context) error {
			return a.PushWorth(ctx, core.ClassFund)
		}},
		{"stock_worth", cfg.Jobs.StockWorth, func(ctx context.Context) error {
			return a.PushWorth(ctx, core.ClassStock)
		}},
		{"fund_monitor", cfg.Jobs.FundMonitor, func(ctx context.Context) error {
			return a.PushMonitor(ctx, core.ClassFund)
		}},
		{"stock_monitor", cfg.Jobs.StockMonitor, func(ctx context.Context) error {
			return a.PushMonitor(ctx, core.ClassStock)
		}},
		{"fund_history", cfg.Jobs.FundHistory, func(ctx context.Context) error {
			return a.PushHistoryMonitor(ctx, core.ClassFund)
		}},
		{"stock_history", cfg.Jobs.StockHistory, func(ctx context.Context) error {
			return a.PushHistoryMonitor(ctx, core.ClassStock)
		}},
		{"broadcast_fund_monitor", cfg.Jobs.Broadcast, func(ctx context.Context) error {
			return a.BroadcastMonitor(ctx, core.ClassFund)
		}},
		{"broadcast_stock_monitor", cfg.Jobs.Broadcast, func(ctx context.Context) error {
			return a.BroadcastMonitor(ctx, core.ClassStock)
		}},
	}

	for _, j := range jobs {
		for _, spec := range j.specs {
			if spec == "" {
				continue
			}
			if _, err := s.cron.AddFunc(spec, s.wrap(j)); err != nil {
				return nil, core.WrapError(core.ErrConfigInvalid, err)
			}
			log.Info("job registered", zap.String("job", j.name), zap.String("cron", spec))
		}
	}

	return s, nil
}

// wrap runs one job cycle with a timeout. Failures, an empty watch list
// included, are logged and the cycle is skipped.
func (s *Scheduler) wrap(j job) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		start := time.Now()
		err := j.run(ctx)
		s.app.Metrics().RecordCycle(j.name, time.Since(start).Seconds())

		switch {
		case err == nil:
		case errors.Is(err, core.ErrNoWatch), errors.Is(err, core.ErrNoMonitor), errors.Is(err, core.ErrNoData):
			s.log.Info("job skipped", zap.String("job", j.name), zap.String("reason", err.Error()))
		default:
			s.log.Error("job failed", zap.String("job", j.name), zap.Error(err))
		}
	}
}

// Start launches the cron runner in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Entries returns the number of registered cron entries.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}
