package monitor

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fevolq/money/internal/cache"
	"github.com/fevolq/money/internal/core"
	"github.com/fevolq/money/internal/store"
)

// MaxLookback bounds how many historical rows participate in matching.
const MaxLookback = 30

var directionLabels = map[string]string{
	"growth": labelGrowth,
	"lessen": labelLessen,
}

// History matches the current worth against its own historical closes
// over the configured lookback windows.
type History struct {
	cache *cache.Cache
	loc   *time.Location
	now   func() time.Time
}

func NewHistory(c *cache.Cache, loc *time.Location) *History {
	return &History{cache: c, loc: loc, now: time.Now}
}

// row is one retained historical bar, re-indexed with 1 = most recent.
type row struct {
	index int
	bar   core.HistoryBar
	rate  decimal.Decimal
}

// Evaluate returns alert messages for every window and direction with an
// un-suppressed match. The series is expected with one extra row of
// lookback; the row dated today is dropped before indexing. Stale quotes
// (not dated today) and empty series are skipped.
func (m *History) Evaluate(q core.Quote, bars []core.HistoryBar, opt store.HistoryOption, record bool) []string {
	if len(bars) == 0 {
		return nil
	}

	today := m.now().In(m.loc).Format("2006-01-02")
	current := q.Current
	var quoteDate string
	if q.Class == core.ClassStock {
		quoteDate = time.Unix(q.Timestamp, 0).In(m.loc).Format("2006-01-02")
		current = current.Shift(-int32(q.Point))
	} else {
		quoteDate = strings.SplitN(q.TimeStr, " ", 2)[0]
	}
	if quoteDate != today {
		return nil
	}

	rows := make([]row, 0, len(bars))
	for _, bar := range bars {
		if bar.Date == quoteDate || bar.Close.IsZero() {
			continue
		}
		rate := current.Sub(bar.Close).Div(bar.Close).Mul(decimal.NewFromInt(100))
		rows = append(rows, row{index: len(rows) + 1, bar: bar, rate: rate})
		if len(rows) == MaxLookback {
			break
		}
	}
	if len(rows) == 0 {
		return nil
	}

	var msgs []string
	for _, window := range store.Windows {
		rule, ok := opt.Windows[window]
		if !ok {
			continue
		}
		if rule.Growth != nil {
			if r, found := firstMatch(rows, window, func(rate decimal.Decimal) bool {
				return rate.GreaterThanOrEqual(*rule.Growth)
			}); found {
				if msg := m.message(q, opt, window, "growth", *rule.Growth, r, record); msg != "" {
					msgs = append(msgs, msg)
				}
			}
		}
		if rule.Lessen != nil && rule.Lessen.IsPositive() {
			if r, found := firstMatch(rows, window, func(rate decimal.Decimal) bool {
				return rate.LessThanOrEqual(rule.Lessen.Neg())
			}); found {
				if msg := m.message(q, opt, window, "lessen", *rule.Lessen, r, record); msg != "" {
					msgs = append(msgs, msg)
				}
			}
		}
	}
	return msgs
}

// firstMatch returns the most recent row within the window satisfying
// the predicate.
func firstMatch(rows []row, window int, match func(decimal.Decimal) bool) (row, bool) {
	for _, r := range rows {
		if r.index > window {
			break
		}
		if match(r.rate) {
			return r, true
		}
	}
	return row{}, false
}

func (m *History) message(q core.Quote, opt store.HistoryOption, window int, direction string, threshold decimal.Decimal, r row, record bool) string {
	key := fmt.Sprintf("history_monitor:%s:%s:%d:%s", q.Class, opt.Code, window, direction)
	if record {
		if m.cache.Exists(key) {
			return ""
		}
		m.cache.SetExpireToday(key, true, m.loc)
	}

	return fmt.Sprintf("%s [%s]\n%d日 %s：%s\n\n历史日期：%s\n净值：%s\n幅度：%s %%",
		q.Name, opt.Code, window, directionLabels[direction], threshold.String(),
		r.bar.Date, r.bar.Close.String(), r.rate.StringFixed(2))
}
