package export

import (
	"encoding/csv"
	"io"

	"github.com/dusk-indust/analyst/internal/table"
)

// WriteCSV writes rs with a header of raw column names.
func WriteCSV(w io.Writer, rs table.ResultSet) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(rs.ColumnNames()); err != nil {
		return err
	}
	if err := cw.WriteAll(rs.Records()); err != nil {
		return err
	}
	return cw.Error()
}
