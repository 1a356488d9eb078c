package domain

import (
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// DestinationTablePrefix prefixes every generated materialization table.
const DestinationTablePrefix = "_bqc_"

// NewDestinationTableName returns a random table name for materialized results.
func NewDestinationTableName() string {
	return DestinationTablePrefix + strings.ReplaceAll(strings.ToLower(uuid.NewString()), "-", "")
}

var lastTempSuffix atomic.Int64

// NextTempSuffix returns a nanosecond timestamp that is strictly greater than
// every value previously returned in this process.
func NextTempSuffix() int64 {
	for {
		now := time.Now().UnixNano()
		last := lastTempSuffix.Load()
		if now <= last {
			now = last + 1
		}
		if lastTempSuffix.CompareAndSwap(last, now) {
			return now
		}
	}
}

// TempTableName returns the name of a temporary table holding data bound for base.
func TempTableName(base string) string {
	return base + strconv.FormatInt(NextTempSuffix(), 10)
}
