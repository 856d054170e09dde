package eastmoney

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fevolq/money/internal/core"
)

// Fund implements quote.Source for funds. Values arrive as decimal
// strings; the estimate endpoint wraps its JSON in a jsonpgz() callback.
type Fund struct {
	client      *http.Client
	estimateURL string // + {code}.js
	historyURL  string

	now func() time.Time
}

const (
	historyPageSize = 20
	// backfillAttempts bounds the supplementary lookback when market
	// closures leave the date-range query short of the requested rows.
	backfillAttempts = 5
)

func newFund(client *http.Client) *Fund {
	return &Fund{
		client:      client,
		estimateURL: "http://fundgz.1234567.com.cn/js",
		historyURL:  "http://api.fund.eastmoney.com/f10/lsjz",
		now:         time.Now,
	}
}

type fundQuoteData struct {
	FundCode string `json:"fundcode"`
	Name     string `json:"name"`
	DWJZ     string `json:"dwjz"`   // start worth
	GSZ      string `json:"gsz"`    // current estimate
	GSZZL    string `json:"gszzl"`  // estimated rate (percent)
	GZTime   string `json:"gztime"` // "2006-01-02 15:04"
}

// FetchCurrent returns the latest fund estimate.
func (f *Fund) FetchCurrent(ctx context.Context, code string) (core.Quote, error) {
	u := fmt.Sprintf("%s/%s.js", f.estimateURL, code)
	body, err := get(ctx, f.client, u, nil)
	if err != nil {
		return core.Quote{}, err
	}

	payload := strings.TrimSpace(string(body))
	payload = strings.TrimPrefix(payload, "jsonpgz(")
	payload = strings.TrimSuffix(payload, ";")
	payload = strings.TrimSuffix(payload, ")")

	var d fundQuoteData
	if err := json.Unmarshal([]byte(payload), &d); err != nil {
		return core.Quote{}, core.WrapError(core.ErrNoData, err)
	}
	if d.FundCode == "" {
		return core.Quote{}, core.WrapError(core.ErrNoData, fmt.Errorf("no data for %s", code))
	}

	q := core.Quote{
		Class:   core.ClassFund,
		Code:    d.FundCode,
		Name:    d.Name,
		TimeStr: d.GZTime,
	}
	if q.Current, err = decimal.NewFromString(d.GSZ); err != nil {
		return core.Quote{}, core.WrapError(core.ErrNoData, err)
	}
	if q.Start, err = decimal.NewFromString(d.DWJZ); err != nil {
		return core.Quote{}, core.WrapError(core.ErrNoData, err)
	}
	if q.Rate, err = decimal.NewFromString(d.GSZZL); err != nil {
		return core.Quote{}, core.WrapError(core.ErrNoData, err)
	}
	return q, nil
}

type fundHistoryRow struct {
	FSRQ  string `json:"FSRQ"`  // date
	DWJZ  string `json:"DWJZ"`  // unit worth (close)
	JZZZL string `json:"JZZZL"` // day-over-day rate
}

type fundHistoryResponse struct {
	ErrCode    int `json:"ErrCode"`
	TotalCount int `json:"TotalCount"`
	Data       struct {
		LSJZList []fundHistoryRow `json:"LSJZList"`
	} `json:"Data"`
}

// FetchHistory returns up to limit daily bars, most recent first. The API
// serves rows strictly between two dates, so exchange closures can leave
// a window short; the start date is extended backward until enough rows
// are gathered or the attempt budget runs out.
func (f *Fund) FetchHistory(ctx context.Context, code string, limit int) ([]core.HistoryBar, error) {
	end := f.now().Format("2006-01-02")
	start := f.now().AddDate(0, 0, -limit).Format("2006-01-02")

	rows, err := f.fetchRange(ctx, code, start, end)
	if err != nil {
		return nil, err
	}

	for attempt := 0; len(rows) < limit && attempt < backfillAttempts; attempt++ {
		short := limit - len(rows)
		prevStart := start
		start = addDays(prevStart, -short)
		more, err := f.fetchRange(ctx, code, start, addDays(prevStart, -1))
		if err != nil {
			// This window may be all closures; keep extending backward.
			continue
		}
		rows = append(rows, more...)
	}

	bars := make([]core.HistoryBar, 0, len(rows))
	for _, row := range rows {
		bar := core.HistoryBar{Date: row.FSRQ}
		var err error
		if bar.Close, err = decimal.NewFromString(row.DWJZ); err != nil {
			continue
		}
		if row.JZZZL != "" {
			if bar.Rate, err = decimal.NewFromString(row.JZZZL); err != nil {
				continue
			}
		}
		// Open derived from close and day rate, at matching precision.
		divisor := decimal.NewFromInt(1).Add(bar.Rate.Div(decimal.NewFromInt(100)))
		if !divisor.IsZero() {
			bar.Open = bar.Close.DivRound(divisor, int32(places(row.DWJZ)))
		}
		bars = append(bars, bar)
	}
	if len(bars) > limit {
		bars = bars[:limit]
	}
	return bars, nil
}

// fetchRange pages through the lsjz endpoint for [start, end], most
// recent rows first.
func (f *Fund) fetchRange(ctx context.Context, code, start, end string) ([]fundHistoryRow, error) {
	var rows []fundHistoryRow
	headers := map[string]string{"Referer": "http://fundf10.eastmoney.com/"}

	for page := 1; ; page++ {
		u := fmt.Sprintf("%s?fundCode=%s&pageIndex=%d&pageSize=%d&startDate=%s&endDate=%s&_=%d",
			f.historyURL, code, page, historyPageSize, start, end, f.now().UnixMilli())
		body, err := get(ctx, f.client, u, headers)
		if err != nil {
			return nil, err
		}

		var result fundHistoryResponse
		if err := json.Unmarshal(body, &result); err != nil {
			return nil, core.WrapError(core.ErrFetchFailed, err)
		}
		if result.ErrCode != 0 {
			return nil, core.WrapError(core.ErrFetchFailed, fmt.Errorf("lsjz error %d", result.ErrCode))
		}

		rows = append(rows, result.Data.LSJZList...)
		if result.TotalCount <= page*historyPageSize {
			return rows, nil
		}
	}
}

func addDays(date string, days int) string {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	return t.AddDate(0, 0, days).Format("2006-01-02")
}

func places(s string) int {
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return len(s) - i - 1
	}
	return 0
}
