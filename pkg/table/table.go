package table

import (
	"errors"
	"fmt"
)

// Kind is the storage class of a column.
type Kind int

const (
	// KindNumeric columns hold float64 cells.
	KindNumeric Kind = iota
	// KindText columns hold string cells.
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindText:
		return "text"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Cell is a single nullable value. Numeric cells use Num, text cells use Text.
// A null cell keeps both at their zero values.
type Cell struct {
	Num  float64
	Text string
	Null bool
}

// N returns a numeric cell.
func N(v float64) Cell { return Cell{Num: v} }

// S returns a text cell.
func S(v string) Cell { return Cell{Text: v} }

// Null returns a missing cell.
func Null() Cell { return Cell{Null: true} }

// Column is a named, ordered sequence of cells of a single kind.
type Column struct {
	Name  string
	Kind  Kind
	Cells []Cell
}

// Numeric builds a numeric column.
func Numeric(name string, cells ...Cell) Column {
	return Column{Name: name, Kind: KindNumeric, Cells: cells}
}

// Text builds a text column.
func Text(name string, cells ...Cell) Column {
	return Column{Name: name, Kind: KindText, Cells: cells}
}

// NullCount returns the number of missing cells in the column.
func (c Column) NullCount() int {
	n := 0
	for _, cell := range c.Cells {
		if cell.Null {
			n++
		}
	}
	return n
}

// Values returns the non-null numeric values of the column in order.
func (c Column) Values() []float64 {
	if c.Kind != KindNumeric {
		return nil
	}
	out := make([]float64, 0, len(c.Cells))
	for _, cell := range c.Cells {
		if !cell.Null {
			out = append(out, cell.Num)
		}
	}
	return out
}

func (c Column) clone() Column {
	cells := make([]Cell, len(c.Cells))
	copy(cells, c.Cells)
	c.Cells = cells
	return c
}

// Table is an immutable, column-oriented dataset. Every transformation
// returns a new Table; accessors hand out copies.
type Table struct {
	columns []Column
	rows    int
}

// ErrRaggedColumns is returned when columns differ in length.
var ErrRaggedColumns = errors.New("columns have different lengths")

// New builds a table from columns. Names must be unique and non-empty and
// every column must have the same number of cells.
func New(cols ...Column) (*Table, error) {
	t := &Table{columns: make([]Column, 0, len(cols))}
	seen := make(map[string]bool, len(cols))

	for i, col := range cols {
		if col.Name == "" {
			return nil, fmt.Errorf("column %d has an empty name", i)
		}
		if seen[col.Name] {
			return nil, fmt.Errorf("duplicate column %q", col.Name)
		}
		seen[col.Name] = true

		if i == 0 {
			t.rows = len(col.Cells)
		} else if len(col.Cells) != t.rows {
			return nil, fmt.Errorf("%w: %q has %d rows, expected %d", ErrRaggedColumns, col.Name, len(col.Cells), t.rows)
		}
		t.columns = append(t.columns, col.clone())
	}

	return t, nil
}

// MustNew is like New but panics on error. Intended for tests and fixtures.
func MustNew(cols ...Column) *Table {
	t, err := New(cols...)
	if err != nil {
		panic(err)
	}
	return t
}

// NumRows returns the row count.
func (t *Table) NumRows() int { return t.rows }

// NumColumns returns the column count.
func (t *Table) NumColumns() int { return len(t.columns) }

// Columns returns a copy of all columns in order.
func (t *Table) Columns() []Column {
	out := make([]Column, len(t.columns))
	for i, col := range t.columns {
		out[i] = col.clone()
	}
	return out
}

// ColumnNames returns the column names in order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.columns))
	for i, col := range t.columns {
		names[i] = col.Name
	}
	return names
}

// Column returns a copy of the named column.
func (t *Table) Column(name string) (Column, bool) {
	for _, col := range t.columns {
		if col.Name == name {
			return col.clone(), true
		}
	}
	return Column{}, false
}

// NumericColumns returns copies of the numeric columns in order.
func (t *Table) NumericColumns() []Column {
	var out []Column
	for _, col := range t.columns {
		if col.Kind == KindNumeric {
			out = append(out, col.clone())
		}
	}
	return out
}

// ColumnCount pairs a column name with a count.
type ColumnCount struct {
	Name  string
	Count int
}

// NullCounts returns the missing cell count of every column, in column order.
func (t *Table) NullCounts() []ColumnCount {
	out := make([]ColumnCount, len(t.columns))
	for i, col := range t.columns {
		out[i] = ColumnCount{Name: col.Name, Count: col.NullCount()}
	}
	return out
}

// NullCount returns the total number of missing cells.
func (t *Table) NullCount() int {
	n := 0
	for _, col := range t.columns {
		n += col.NullCount()
	}
	return n
}

// HasNulls reports whether any cell is missing.
func (t *Table) HasNulls() bool {
	for _, col := range t.columns {
		for _, cell := range col.Cells {
			if cell.Null {
				return true
			}
		}
	}
	return false
}
