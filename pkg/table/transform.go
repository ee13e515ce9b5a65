package table

import (
	"math"
	"slices"
)

// DefaultIQRFactor is the conventional Tukey fence multiplier.
const DefaultIQRFactor = 1.5

// FillNumericMeans returns a new table in which every null cell of a numeric
// column holds the mean of that column's non-null values. Text columns and
// column order are unchanged. A numeric column with no values at all stays null.
func (t *Table) FillNumericMeans() *Table {
	out := &Table{columns: make([]Column, len(t.columns)), rows: t.rows}

	for i, col := range t.columns {
		next := col.clone()
		if col.Kind == KindNumeric {
			if mean, ok := meanOf(col.Values()); ok {
				for j, cell := range next.Cells {
					if cell.Null {
						next.Cells[j] = N(mean)
					}
				}
			}
		}
		out.columns[i] = next
	}

	return out
}

// RemoveOutliersIQR returns a new table keeping only rows whose numeric
// values lie within [Q1-k*IQR, Q3+k*IQR]. Columns are filtered in order, so
// quartiles of later columns are computed over the rows that survived the
// earlier ones. A null numeric cell never satisfies the fence and drops its row.
func (t *Table) RemoveOutliersIQR(k float64) *Table {
	keep := make([]bool, t.rows)
	for i := range keep {
		keep[i] = true
	}

	for _, col := range t.columns {
		if col.Kind != KindNumeric {
			continue
		}

		var values []float64
		for i, cell := range col.Cells {
			if keep[i] && !cell.Null {
				values = append(values, cell.Num)
			}
		}
		slices.Sort(values)

		q1 := quantileSorted(values, 0.25)
		q3 := quantileSorted(values, 0.75)
		iqr := q3 - q1
		lower, upper := q1-k*iqr, q3+k*iqr

		for i, cell := range col.Cells {
			if !keep[i] {
				continue
			}
			if cell.Null || math.IsNaN(lower) || cell.Num < lower || cell.Num > upper {
				keep[i] = false
			}
		}
	}

	return t.selectRows(keep)
}

func (t *Table) selectRows(keep []bool) *Table {
	out := &Table{columns: make([]Column, len(t.columns))}
	for i, col := range t.columns {
		cells := make([]Cell, 0, len(col.Cells))
		for j, cell := range col.Cells {
			if keep[j] {
				cells = append(cells, cell)
			}
		}
		col.Cells = cells
		out.columns[i] = col
	}
	for _, k := range keep {
		if k {
			out.rows++
		}
	}
	return out
}

func meanOf(values []float64) (float64, bool) {
	if len(values) == 0 {
		return math.NaN(), false
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values)), true
}

// quantileSorted interpolates linearly between the closest ranks.
func quantileSorted(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (sorted[hi]-sorted[lo])*(pos-float64(lo))
}
