package orders

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	// OrderNumberPrefix starts every order number.
	OrderNumberPrefix = "OS-"

	firstOrderNumber = "OS-0001"
)

// NextOrderNumber derives the number that follows lastIssued. An empty,
// foreign or unparseable lastIssued restarts the sequence at OS-0001.
// Numbers past 9999 widen instead of failing: OS-9999 is followed by OS-10000.
// A suffix at the int64 limit has no successor and also restarts at OS-0001.
func NextOrderNumber(lastIssued string) string {
	if !strings.HasPrefix(lastIssued, OrderNumberPrefix) {
		return firstOrderNumber
	}
	seq, ok := OrderSequence(lastIssued)
	if !ok || seq == math.MaxInt64 {
		return firstOrderNumber
	}
	return FormatOrderNumber(seq + 1)
}

// FormatOrderNumber renders seq with the prefix, zero-padded to four digits.
func FormatOrderNumber(seq int64) string {
	return fmt.Sprintf("%s%04d", OrderNumberPrefix, seq)
}

// OrderSequence returns the numeric part after the final "-".
func OrderSequence(orderNumber string) (int64, bool) {
	idx := strings.LastIndex(orderNumber, "-")
	if idx < 0 {
		return 0, false
	}
	suffix := orderNumber[idx+1:]
	if suffix == "" || strings.TrimLeft(suffix, "0123456789") != "" {
		return 0, false
	}
	seq, err := strconv.ParseInt(suffix, 10, 64)
	if err != nil {
		return 0, false
	}
	return seq, true
}

// IsValidOrderNumber reports whether s is exactly "OS-" followed by four
// digits with a value above zero.
func IsValidOrderNumber(s string) bool {
	parts := strings.Split(s, "-")
	if len(parts) != 2 || parts[0]+"-" != OrderNumberPrefix || len(parts[1]) != 4 {
		return false
	}
	seq, ok := OrderSequence(s)
	return ok && seq > 0
}
