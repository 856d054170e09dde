// Package monitor evaluates watch options against live and historical
// quotes and produces day-deduplicated alert messages.
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

const (
	labelGrowth = "涨幅"
	labelLessen = "跌幅"
	labelWorth  = "净值阈值"
)

// Threshold matches live quotes against monitor options. Triggered
// conditions are suppressed for the rest of the day once delivered.
type Threshold struct {
	cache *cache.Cache
	loc   *time.Location
}

func NewThreshold(c *cache.Cache, loc *time.Location) *Threshold {
	return &Threshold{cache: c, loc: loc}
}

// Evaluate returns one message block per option with at least one
// un-suppressed trigger. Options whose code does not match the quote are
// ignored. When record is false the evaluation neither consults nor
// registers suppression keys, so broadcast delivery can repeat.
func (m *Threshold) Evaluate(q core.Quote, opts []store.MonitorOption, record bool) []string {
	current := q.Current
	if q.Class == core.ClassStock {
		current = current.Shift(-int32(q.Point))
	}

	var msgs []string
	for _, opt := range opts {
		if opt.Code != q.Code {
			continue
		}
		flag := solve(current, opt)

		var lines []string
		for _, c := range []struct {
			bit       core.TriggerFlag
			label     string
			threshold *decimal.Decimal
		}{
			{core.TriggerGrowth, labelGrowth, opt.Growth},
			{core.TriggerLessen, labelLessen, opt.Lessen},
			{core.TriggerWorth, labelWorth, opt.Worth},
		} {
			key := fmt.Sprintf("monitor:%s:%d", opt.ID, c.bit)
			if record && m.cache.Exists(key) {
				continue
			}
			if !flag.Has(c.bit) {
				continue
			}
			lines = append(lines, fmt.Sprintf("%s：%s", c.label, c.threshold.String()))
			if record {
				m.cache.SetExpireToday(key, true, m.loc)
			}
		}

		if len(lines) > 0 {
			header := fmt.Sprintf("【%s】匹配\n%s [%s]\n备注：%s", opt.ID, q.Name, q.Code, opt.Remark)
			msgs = append(msgs, header+"\n"+strings.Join(lines, "\n"))
		}
	}
	return msgs
}

// solve computes the trigger bitmask for one option against the scaled
// current worth. A zero current skips evaluation entirely.
func solve(current decimal.Decimal, opt store.MonitorOption) core.TriggerFlag {
	var flag core.TriggerFlag
	if current.IsZero() {
		return flag
	}

	if opt.Cost != nil && !opt.Cost.IsZero() {
		rate := current.Sub(*opt.Cost).Div(*opt.Cost).Mul(decimal.NewFromInt(100))
		if opt.Growth != nil && opt.Growth.IsPositive() && rate.GreaterThanOrEqual(*opt.Growth) {
			flag |= core.TriggerGrowth
		}
		if opt.Lessen != nil && opt.Lessen.IsPositive() && rate.LessThanOrEqual(opt.Lessen.Neg()) {
			flag |= core.TriggerLessen
		}
	}

	if opt.Worth != nil {
		w := *opt.Worth
		// The threshold's sign selects the direction: positive alerts at
		// or above, negative alerts at or below its magnitude.
		if (w.IsPositive() && current.GreaterThanOrEqual(w)) ||
			(w.IsNegative() && current.LessThanOrEqual(w.Neg())) {
			flag |= core.TriggerWorth
		}
	}
	return flag
}
