package core

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/shopspring/decimal"
)

// Class represents an instrument class.
type Class string

const (
	ClassStock Class = "stock"
	ClassFund  Class = "fund"
)

// Label constants for rendered messages
const (
	LabelStock = "股票"
	LabelFund  = "基金"
)

// ParseClass normalizes and validates an instrument class.
func ParseClass(s string) (Class, error) {
	switch Class(strings.ToLower(strings.TrimSpace(s))) {
	case ClassStock:
		return ClassStock, nil
	case ClassFund:
		return ClassFund, nil
	default:
		return "", WrapError(ErrClassInvalid, nil)
	}
}

// Label returns the human-readable name of the class.
func (c Class) Label() string {
	if c == ClassStock {
		return LabelStock
	}
	return LabelFund
}

// Quote is a raw valuation payload from the data source. Stock values
// (Current/Start/Standard) arrive unscaled; Point carries the number of
// decimal places to shift. Fund values are already decimal and Rate comes
// directly from the source as a percentage.
type Quote struct {
	Class    Class
	Code     string
	Name     string
	Current  decimal.Decimal
	Start    decimal.Decimal
	Standard decimal.Decimal
	Rate     decimal.Decimal
	Point    int
	// Timestamp is the stock quote time (unix seconds); TimeStr is the
	// fund quote time ("2006-01-02 15:04").
	Timestamp int64
	TimeStr   string
}

// HistoryBar is one day of historical data for an instrument.
type HistoryBar struct {
	Date  string // 2006-01-02
	Open  decimal.Decimal
	Close decimal.Decimal
	Rate  decimal.Decimal // day-over-day percentage from the source
}

// Valuation is the canonical resolved record for a quote, optionally
// enriched with a cost basis.
type Valuation struct {
	Class         Class            `json:"class"`
	Code          string           `json:"code"`
	Name          string           `json:"name"`
	StartWorth    decimal.Decimal  `json:"start_worth"`
	StandardWorth *decimal.Decimal `json:"standard_worth,omitempty"`
	CurrentWorth  decimal.Decimal  `json:"current_worth"`
	Rate          string           `json:"rate"`
	Time          string           `json:"time"`
	Opening       bool             `json:"opening"`

	Cost       *decimal.Decimal `json:"cost,omitempty"`
	Profit     string           `json:"profit,omitempty"`
	Regression string           `json:"regression,omitempty"`
}

// TriggerFlag is a bitmask of matched monitor conditions.
type TriggerFlag uint8

const (
	TriggerGrowth TriggerFlag = 1 << iota
	TriggerLessen
	TriggerWorth
)

// Has reports whether the given bit is set.
func (f TriggerFlag) Has(bit TriggerFlag) bool { return f&bit != 0 }

// ShortHash returns the first n hex characters of the sha256 of s.
func ShortHash(s string, n int) string {
	sum := sha256.Sum256([]byte(s))
	h := hex.EncodeToString(sum[:])
	if n > len(h) {
		n = len(h)
	}
	return h[:n]
}
