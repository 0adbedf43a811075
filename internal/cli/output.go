package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
	formatYML   = "yml"
)

// render writes v as JSON or YAML, or as the table built by rows.
func render(w io.Writer, format string, v any, header table.Row, rows []table.Row) error {
	switch strings.ToLower(format) {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML, formatYML:
		data, err := yaml.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to marshal YAML: %w", err)
		}
		_, err = w.Write(data)
		return err
	case formatTable, "":
		t := table.NewWriter()
		t.SetOutputMirror(w)
		t.AppendHeader(header)
		t.AppendRows(rows)
		t.SetStyle(table.StyleLight)
		t.Render()
		return nil
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// redact hides a secret, keeping only its length.
func redact(secret string) string {
	if secret == "" {
		return ""
	}
	return fmt.Sprintf("<redacted, %d chars>", len(secret))
}
