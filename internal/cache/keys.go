package cache

import (
	"strings"
	"time"
)

const barsPrefix = "bars:"

const (
	AccountKey   = "account"
	PositionsKey = "positions"
	OrdersKey    = "orders"
	HistoryKey   = "history"
)

// BarsKey identifies a bar query by symbol and the calendar dates of its range.
// Two queries on the same days share an entry even if their clock times differ.
func BarsKey(symbol string, start, end time.Time) string {
	return barsPrefix + strings.ToUpper(symbol) + ":" + start.UTC().Format(time.DateOnly) + ":" + end.UTC().Format(time.DateOnly)
}
