// Package table holds the tabular result shape shared by the fetch stage,
// the orchestrator snapshots, the run history and the exporters.
package table

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Row is one record of a ResultSet, keyed by column name.
type Row map[string]any

// ResultSet is an ordered collection of rows that share the same columns.
type ResultSet struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// New builds a ResultSet from positional values. Each values slice must have
// one entry per column; short slices leave the trailing columns unset.
func New(columns []string, values ...[]any) ResultSet {
	rs := ResultSet{
		Columns: append([]string(nil), columns...),
		Rows:    make([]Row, 0, len(values)),
	}
	for _, vals := range values {
		row := make(Row, len(columns))
		for i, col := range columns {
			if i < len(vals) {
				row[col] = vals[i]
			}
		}
		rs.Rows = append(rs.Rows, row)
	}
	return rs
}

// Len returns the number of rows.
func (rs ResultSet) Len() int { return len(rs.Rows) }

// ColumnNames returns the column order. Result sets built without explicit
// columns fall back to the keys of the first row, sorted for stability.
func (rs ResultSet) ColumnNames() []string {
	if len(rs.Columns) > 0 {
		return append([]string(nil), rs.Columns...)
	}
	if len(rs.Rows) == 0 {
		return nil
	}
	cols := make([]string, 0, len(rs.Rows[0]))
	for k := range rs.Rows[0] {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

// Clone returns a copy that shares no slices or maps with rs.
func (rs ResultSet) Clone() ResultSet {
	out := ResultSet{}
	if rs.Columns != nil {
		out.Columns = append([]string(nil), rs.Columns...)
	}
	if rs.Rows != nil {
		out.Rows = make([]Row, len(rs.Rows))
		for i, r := range rs.Rows {
			cp := make(Row, len(r))
			for k, v := range r {
				cp[k] = v
			}
			out.Rows[i] = cp
		}
	}
	return out
}

// Records returns the rows as string cells in column order, without a
// header. Missing cells render as the empty string.
func (rs ResultSet) Records() [][]string {
	cols := rs.ColumnNames()
	out := make([][]string, 0, len(rs.Rows))
	for _, r := range rs.Rows {
		rec := make([]string, len(cols))
		for i, c := range cols {
			rec[i] = FormatValue(r[c])
		}
		out = append(out, rec)
	}
	return out
}

// Headers returns the display labels for the columns.
func (rs ResultSet) Headers() []string {
	cols := rs.ColumnNames()
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = HeaderLabel(c)
	}
	return out
}

// FormatValue renders a scalar cell.
func FormatValue(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

var upperRun = regexp.MustCompile(`([A-Z])`)

// HeaderLabel turns a column key into a display label: a space goes before
// every upper-case letter and the first character is upper-cased.
// "totalSales" becomes "Total Sales"; "yoy_growth" becomes "Yoy_growth".
func HeaderLabel(col string) string {
	s := upperRun.ReplaceAllString(col, " $1")
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}

// String renders a compact debugging view of the result set.
func (rs ResultSet) String() string {
	var b strings.Builder
	b.WriteString(strings.Join(rs.ColumnNames(), ","))
	for _, rec := range rs.Records() {
		b.WriteByte('\n')
		b.WriteString(strings.Join(rec, ","))
	}
	return b.String()
}
