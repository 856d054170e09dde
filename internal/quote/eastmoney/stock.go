package eastmoney

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fevolq/money/internal/core"
)

// Stock implements quote.Source for A-share stocks. Raw quote values are
// integers scaled by the f59 "point" field; scaling happens downstream in
// the worth resolver.
type Stock struct {
	client     *http.Client
	suggestURL string
	quoteURL   string
	klineURL   string
}

func newStock(client *http.Client) *Stock {
	return &Stock{
		client:     client,
		suggestURL: "https://searchadapter.eastmoney.com/api/suggest/get",
		quoteURL:   "https://push2.eastmoney.com/api/qt/stock/get",
		klineURL:   "https://push2his.eastmoney.com/api/qt/stock/kline/get",
	}
}

// quoteID resolves a bare code to the market-prefixed secid the quote
// APIs expect.
func (s *Stock) quoteID(ctx context.Context, code string) (string, error) {
	u := fmt.Sprintf("%s?type=14&input=%s", s.suggestURL, url.QueryEscape(code))
	body, err := get(ctx, s.client, u, nil)
	if err != nil {
		return "", err
	}

	var result struct {
		QuotationCodeTable struct {
			Data []struct {
				QuoteID string `json:"QuoteID"`
			} `json:"Data"`
		} `json:"QuotationCodeTable"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", core.WrapError(core.ErrFetchFailed, err)
	}
	if len(result.QuotationCodeTable.Data) == 0 {
		return "", core.WrapError(core.ErrNoData, fmt.Errorf("no quote id for %s", code))
	}
	return result.QuotationCodeTable.Data[0].QuoteID, nil
}

type stockQuoteData struct {
	F43 json.Number `json:"f43"` // current (unscaled)
	F46 json.Number `json:"f46"` // start (unscaled)
	F57 string      `json:"f57"` // code
	F58 string      `json:"f58"` // name
	F59 int         `json:"f59"` // decimal places
	F60 json.Number `json:"f60"` // standard baseline (unscaled)
	F86 int64       `json:"f86"` // quote time (unix seconds)
}

// FetchCurrent returns the latest raw stock quote.
func (s *Stock) FetchCurrent(ctx context.Context, code string) (core.Quote, error) {
	secid, err := s.quoteID(ctx, code)
	if err != nil {
		return core.Quote{}, err
	}

	u := fmt.Sprintf("%s?secid=%s&fields=f43,f46,f57,f58,f59,f60,f86", s.quoteURL, secid)
	body, err := get(ctx, s.client, u, nil)
	if err != nil {
		return core.Quote{}, err
	}

	var result struct {
		Data *stockQuoteData `json:"data"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return core.Quote{}, core.WrapError(core.ErrFetchFailed, err)
	}
	if result.Data == nil {
		return core.Quote{}, core.WrapError(core.ErrNoData, fmt.Errorf("no data for %s", code))
	}

	d := result.Data
	q := core.Quote{
		Class:     core.ClassStock,
		Code:      d.F57,
		Name:      d.F58,
		Point:     d.F59,
		Timestamp: d.F86,
	}
	if q.Current, err = number(d.F43); err != nil {
		return core.Quote{}, core.WrapError(core.ErrNoData, err)
	}
	if q.Start, err = number(d.F46); err != nil {
		return core.Quote{}, core.WrapError(core.ErrNoData, err)
	}
	if q.Standard, err = number(d.F60); err != nil {
		return core.Quote{}, core.WrapError(core.ErrNoData, err)
	}
	return q, nil
}

// FetchHistory returns up to limit daily bars, most recent first. Kline
// rows come back as comma-joined strings in the requested field order:
// date, open, close, rate, change.
func (s *Stock) FetchHistory(ctx context.Context, code string, limit int) ([]core.HistoryBar, error) {
	secid, err := s.quoteID(ctx, code)
	if err != nil {
		return nil, err
	}

	u := fmt.Sprintf("%s?secid=%s&fields1=f1,f3&fields2=f51,f52,f53,f59,f60&lmt=%d&klt=101&end=29991010&fqt=0",
		s.klineURL, secid, limit)
	body, err := get(ctx, s.client, u, nil)
	if err != nil {
		return nil, err
	}

	var result struct {
		Data *struct {
			Klines []string `json:"klines"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, core.WrapError(core.ErrFetchFailed, err)
	}
	if result.Data == nil || len(result.Data.Klines) == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("no history for %s", code))
	}

	lines := result.Data.Klines
	bars := make([]core.HistoryBar, 0, len(lines))
	// API order is oldest first; reverse to most recent first.
	for i := len(lines) - 1; i >= 0; i-- {
		parts := strings.Split(lines[i], ",")
		if len(parts) < 4 {
			continue
		}
		bar := core.HistoryBar{Date: parts[0]}
		if bar.Open, err = decimal.NewFromString(parts[1]); err != nil {
			continue
		}
		if bar.Close, err = decimal.NewFromString(parts[2]); err != nil {
			continue
		}
		if bar.Rate, err = decimal.NewFromString(parts[3]); err != nil {
			continue
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

func number(n json.Number) (decimal.Decimal, error) {
	return decimal.NewFromString(n.String())
}
