// Package export renders report tables as CSV streams and XLSX workbooks.
// Undefined values are written as "N/A", never as zero.
package export

import (
	"strconv"
	"time"

	"github.com/mahafpc/fpo-ledger/internal/money"
	"github.com/mahafpc/fpo-ledger/internal/records"
)

// Table is one sheet of a report. Cells hold money, quantity, nullable,
// string, integer, bool or time values.
type Table struct {
	Name   string
	Title  string
	Meta   []string
	Header []string
	Rows   [][]any
}

// AddRow appends a row.
func (t *Table) AddRow(cells ...any) {
	t.Rows = append(t.Rows, cells)
}

// text renders a cell the way the CSV export writes it.
func text(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	case money.Money:
		return c.String()
	case money.Quantity:
		return c.String()
	case money.NullMoney:
		return c.String()
	case money.NullQuantity:
		return c.String()
	case int:
		return strconv.Itoa(c)
	case int64:
		return strconv.FormatInt(c, 10)
	case bool:
		return strconv.FormatBool(c)
	case time.Time:
		if c.IsZero() {
			return ""
		}
		return c.Format(records.DateLayout)
	default:
		return ""
	}
}
