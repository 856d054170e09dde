// Package quote defines the upstream data source contract consumed by the
// worth and monitor pipelines.
package quote

import (
	"context"

	"github.com/fevolq/money/internal/core"
)

// Source fetches live and historical data for one instrument class.
// Failures are per-code: callers treat an error as "no data for this code
// this cycle" and never abort a batch over it.
type Source interface {
	// FetchCurrent returns the latest raw quote for code.
	FetchCurrent(ctx context.Context, code string) (core.Quote, error)

	// FetchHistory returns up to limit daily bars for code, most recent
	// first.
	FetchHistory(ctx context.Context, code string, limit int) ([]core.HistoryBar, error)
}
