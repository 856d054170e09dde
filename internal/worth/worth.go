// Package worth resolves raw quotes into canonical valuation records and
// renders them for delivery.
package worth

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fevolq/money/internal/core"
)

const (
	labelStartWorth    = "开始值"
	labelStandardWorth = "基准值"
	labelCurrentWorth  = "当前值"
	labelRate          = "涨跌幅"
	labelTime          = "数据时间"
)

// Resolver normalizes quotes into valuation records. The zone decides
// what "today" means when judging whether a quote is fresh.
type Resolver struct {
	loc *time.Location
	now func() time.Time
}

func NewResolver(loc *time.Location) *Resolver {
	return &Resolver{loc: loc, now: time.Now}
}

// Resolve maps a raw quote to the canonical valuation record. Stock
// values are scaled by 10^-point and the rate is derived from the
// standard baseline; fund values pass through with the source rate.
// A non-nil cost enriches the record with profit and regression.
func (r *Resolver) Resolve(q core.Quote, cost *decimal.Decimal) core.Valuation {
	v := core.Valuation{
		Class: q.Class,
		Code:  q.Code,
		Name:  q.Name,
	}

	switch q.Class {
	case core.ClassStock:
		point := int32(q.Point)
		v.CurrentWorth = q.Current.Shift(-point)
		v.StartWorth = q.Start.Shift(-point)
		standard := q.Standard.Shift(-point)
		v.StandardWorth = &standard

		if !standard.IsZero() && !v.CurrentWorth.IsZero() {
			v.Rate = percent(v.CurrentWorth.Sub(standard).Div(standard).Mul(decimal.NewFromInt(100)))
		}

		t := time.Unix(q.Timestamp, 0).In(r.loc)
		v.Time = t.Format("2006-01-02 15:04:05")
		v.Opening = t.Format("2006-01-02") == r.today()
	default:
		v.CurrentWorth = q.Current
		v.StartWorth = q.Start
		v.Rate = q.Rate.String() + "%"
		v.Time = q.TimeStr
		v.Opening = strings.SplitN(q.TimeStr, " ", 2)[0] == r.today()
	}

	if cost != nil {
		c := *cost
		v.Cost = &c

		if c.IsZero() {
			v.Profit = "inf"
		} else {
			profit := v.CurrentWorth.Sub(c).Div(c).Mul(decimal.NewFromInt(100))
			v.Profit = percent(profit)
		}

		if v.CurrentWorth.IsZero() {
			v.Regression = "inf"
		} else {
			regression := c.Div(v.CurrentWorth).Sub(decimal.NewFromInt(1)).Mul(decimal.NewFromInt(100))
			v.Regression = percent(regression)
		}
	}

	return v
}

func (r *Resolver) today() string {
	return r.now().In(r.loc).Format("2006-01-02")
}

// Format renders a valuation as a push message block.
func Format(v core.Valuation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s]\n", v.Name, v.Code)
	if v.StandardWorth != nil {
		fmt.Fprintf(&b, "%s：%s\n", labelStandardWorth, v.StandardWorth.String())
	}
	fmt.Fprintf(&b, "%s：%s\n", labelStartWorth, v.StartWorth.String())
	fmt.Fprintf(&b, "%s：%s\n", labelCurrentWorth, v.CurrentWorth.String())
	fmt.Fprintf(&b, "%s：%s\n", labelRate, v.Rate)
	fmt.Fprintf(&b, "%s：%s", labelTime, v.Time)
	return b.String()
}

func percent(d decimal.Decimal) string {
	return d.StringFixed(2) + "%"
}
