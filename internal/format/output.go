package format

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
)

// Write writes output in the requested format.
//
// Supported formats:
// - json (default)
// - table (callers that support it render a Table and pass it here)
func Write(w io.Writer, v any, format string, pretty bool) error {
	switch format {
	case "", "json":
		return WriteJSON(w, v, pretty)
	case "table":
		if t, ok := v.(*Table); ok {
			return t.Write(w)
		}
		return WriteJSON(w, v, pretty)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// WriteJSON writes strict JSON output for CLI commands.
func WriteJSON(w io.Writer, v any, pretty bool) error {
	var b []byte
	var err error
	if pretty {
		b, err = json.MarshalIndent(v, "", "  ")
	} else {
		b, err = json.Marshal(v)
	}
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, string(b))
	return err
}

// Table is a thin wrapper over uitable so commands can build rows without
// depending on the rendering library directly.
type Table struct {
	headers []any
	rows    [][]any
}

func NewTable(headers ...string) *Table {
	hs := make([]any, 0, len(headers))
	for _, h := range headers {
		hs = append(hs, h)
	}
	return &Table{headers: hs}
}

func (t *Table) AddRow(cells ...any) {
	t.rows = append(t.rows, cells)
}

func (t *Table) Write(w io.Writer) error {
	ut := uitable.New()
	ut.MaxColWidth = 60
	ut.AddRow(t.headers...)
	for _, row := range t.rows {
		ut.AddRow(row...)
	}
	_, err := fmt.Fprintln(w, ut.String())
	return err
}

// YesNo renders a boolean flag for table output.
func YesNo(b bool) string {
	if b {
		return color.GreenString("yes")
	}
	return color.RedString("no")
}
