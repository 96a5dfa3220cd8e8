package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/dusk-indust/analyst/internal/table"
)

// WriteMarkdown renders rs as a GitHub-flavored Markdown table with display
// header labels.
func WriteMarkdown(w io.Writer, rs table.ResultSet) error {
	var sb strings.Builder

	headers := rs.Headers()
	if len(headers) == 0 {
		_, err := io.WriteString(w, "_No results._\n")
		return err
	}

	writeRow(&sb, headers)
	sep := make([]string, len(headers))
	for i := range sep {
		sep[i] = "---"
	}
	writeRow(&sb, sep)
	for _, rec := range rs.Records() {
		writeRow(&sb, rec)
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func writeRow(sb *strings.Builder, cells []string) {
	sb.WriteString("|")
	for _, c := range cells {
		sb.WriteString(fmt.Sprintf(" %s |", escapeCell(c)))
	}
	sb.WriteString("\n")
}

// escapeCell keeps a value on one line and inside its column.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.NewReplacer("\r\n", " ", "\n", " ").Replace(s)
}
