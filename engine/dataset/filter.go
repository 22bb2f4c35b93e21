package dataset

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// FilterStats summarizes a range filter pass.
type FilterStats struct {
	Kept       int
	OutOfRange int
	Invalid    int
}

// Dropped returns the number of rows removed by the filter.
func (s FilterStats) Dropped() int {
	return s.OutOfRange + s.Invalid
}

// Bound is one end of a range filter. An infinite bound compares below or
// above every finite value.
type Bound struct {
	value decimal.Decimal
	inf   int
}

// Open ends of a range.
var (
	NegInf = Bound{inf: -1}
	PosInf = Bound{inf: 1}
)

// At returns a finite bound.
func At(v decimal.Decimal) Bound {
	return Bound{value: v}
}

// BoundFromFloat converts f to a bound. ±Inf map to open ends; NaN has no
// ordering and is rejected.
func BoundFromFloat(f float64) (Bound, error) {
	switch {
	case math.IsNaN(f):
		return Bound{}, fmt.Errorf("bound %v is not a number", f)
	case math.IsInf(f, -1):
		return NegInf, nil
	case math.IsInf(f, 1):
		return PosInf, nil
	}
	return At(decimal.NewFromFloat(f)), nil
}

// cmp returns the sign of v compared to the bound.
func (b Bound) cmp(v decimal.Decimal) int {
	if b.inf != 0 {
		return -b.inf
	}
	return v.Cmp(b.value)
}

// FilterByRange keeps rows whose column value v satisfies lower <= v <= upper.
// Values that are missing or do not parse as a decimal number are dropped.
// The relative order of kept rows is preserved.
func FilterByRange(t *Table, column string, lower, upper Bound) (*Table, FilterStats, error) {
	var stats FilterStats
	idx, err := t.Index(column)
	if err != nil {
		return nil, stats, err
	}
	kept := make([][]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		v, ok := parseNumber(row[idx])
		switch {
		case !ok:
			stats.Invalid++
		case lower.cmp(v) < 0 || upper.cmp(v) > 0:
			stats.OutOfRange++
		default:
			kept = append(kept, row)
		}
	}
	stats.Kept = len(kept)
	return t.withRows(kept), stats, nil
}

func parseNumber(raw string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Decimal{}, false
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return v, true
}
