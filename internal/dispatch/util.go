package dispatch

import (
	"strconv"

	"github.com/quinedb/quinedb/internal/resp"
)

// NormalizeRange applies Python-style negative indexing to a [start, stop]
// rank interval over a sequence of the given length: negative indices
// count from the end, start clamps to 0, stop clamps to length-1.
func NormalizeRange(start, stop, length int) (int, int) {
	if start < 0 {
		start += length
	}
	if stop < 0 {
		stop += length
	}
	if start < 0 {
		start = 0
	}
	if stop >= length {
		stop = length - 1
	}
	return start, stop
}

// FormatFloat renders a score the way ZSCORE/WITHSCORES expects: shortest
// round-trippable decimal, no trailing zeros, no dangling decimal point.
func FormatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// parseInt parses a command argument as a base-10 integer, returning the
// canonical Redis error value on failure.
func parseInt(b []byte) (int64, resp.Value, bool) {
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return 0, resp.MakeError("ERR value is not an integer or out of range"), false
	}
	return n, resp.Value{}, true
}

// parseFloat parses a command argument as a float64, returning the
// canonical Redis error value on failure.
func parseFloat(b []byte) (float64, resp.Value, bool) {
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return 0, resp.MakeError("ERR value is not a valid float"), false
	}
	return f, resp.Value{}, true
}
