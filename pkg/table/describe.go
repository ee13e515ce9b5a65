package table

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"text/tabwriter"
)

// Stats holds the descriptive statistics of one numeric column.
type Stats struct {
	Column string
	Count  int
	Mean   float64
	Std    float64
	Min    float64
	Q25    float64
	Q50    float64
	Q75    float64
	Max    float64
}

// Describe computes statistics for every numeric column. Std is the sample
// standard deviation; quartiles use linear interpolation. Undefined values
// are NaN.
func (t *Table) Describe() []Stats {
	var out []Stats
	for _, col := range t.columns {
		if col.Kind != KindNumeric {
			continue
		}
		out = append(out, describeColumn(col))
	}
	return out
}

func describeColumn(col Column) Stats {
	values := col.Values()
	slices.Sort(values)

	s := Stats{
		Column: col.Name,
		Count:  len(values),
		Std:    math.NaN(),
		Min:    math.NaN(),
		Max:    math.NaN(),
	}
	s.Mean, _ = meanOf(values)
	s.Q25 = quantileSorted(values, 0.25)
	s.Q50 = quantileSorted(values, 0.50)
	s.Q75 = quantileSorted(values, 0.75)

	if len(values) > 0 {
		s.Min = values[0]
		s.Max = values[len(values)-1]
	}
	if len(values) > 1 {
		ss := 0.0
		for _, v := range values {
			d := v - s.Mean
			ss += d * d
		}
		s.Std = math.Sqrt(ss / float64(len(values)-1))
	}

	return s
}

var statRows = []string{"count", "mean", "std", "min", "25%", "50%", "75%", "max"}

func (s Stats) row(i int) float64 {
	switch i {
	case 0:
		return float64(s.Count)
	case 1:
		return s.Mean
	case 2:
		return s.Std
	case 3:
		return s.Min
	case 4:
		return s.Q25
	case 5:
		return s.Q50
	case 6:
		return s.Q75
	default:
		return s.Max
	}
}

// FormatStats renders statistics as a grid with one row per statistic and
// one right-aligned column per table column.
func FormatStats(stats []Stats) string {
	if len(stats) == 0 {
		return "(no numeric columns)"
	}

	labelWidth := 0
	for _, label := range statRows {
		labelWidth = max(labelWidth, len(label))
	}

	cells := make([][]string, len(stats))
	widths := make([]int, len(stats))
	for c, s := range stats {
		widths[c] = len(s.Column)
		cells[c] = make([]string, len(statRows))
		for r := range statRows {
			cells[c][r] = formatFloat(s.row(r))
			widths[c] = max(widths[c], len(cells[c][r]))
		}
	}

	var sb strings.Builder
	sb.WriteString(strings.Repeat(" ", labelWidth))
	for c, s := range stats {
		fmt.Fprintf(&sb, "  %*s", widths[c], s.Column)
	}
	for r, label := range statRows {
		sb.WriteString("\n")
		fmt.Fprintf(&sb, "%-*s", labelWidth, label)
		for c := range stats {
			fmt.Fprintf(&sb, "  %*s", widths[c], cells[c][r])
		}
	}

	return sb.String()
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return fmt.Sprintf("%.6f", v)
}

// Info renders the shape of the table: row count and, per column, the
// non-null count and kind.
func (t *Table) Info() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "RangeIndex: %d entries\n", t.rows)
	fmt.Fprintf(&sb, "Data columns (total %d columns):\n", len(t.columns))

	tw := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, " #\tColumn\tNon-Null Count\tKind")
	fmt.Fprintln(tw, "---\t------\t--------------\t----")
	for i, col := range t.columns {
		fmt.Fprintf(tw, " %d\t%s\t%d non-null\t%s\n", i, col.Name, t.rows-col.NullCount(), col.Kind)
	}
	tw.Flush()

	return strings.TrimRight(sb.String(), "\n")
}

// FormatNullCounts renders the per-column missing value counts.
func (t *Table) FormatNullCounts() string {
	var sb strings.Builder
	tw := tabwriter.NewWriter(&sb, 0, 0, 4, ' ', 0)
	for _, c := range t.NullCounts() {
		fmt.Fprintf(tw, "%s\t%d\n", c.Name, c.Count)
	}
	tw.Flush()
	return strings.TrimRight(sb.String(), "\n")
}
