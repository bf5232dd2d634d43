package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

var (
	colorOK    = color.New(color.FgGreen).SprintFunc()
	colorFail  = color.New(color.FgRed, color.Bold).SprintFunc()
	colorWarn  = color.New(color.FgYellow).SprintFunc()
	colorLabel = color.New(color.FgCyan).SprintFunc()
)

func disableColor() {
	color.NoColor = true
}

// printJSON writes v indented.
func printJSON(w io.Writer, v any) error {
	if raw, ok := v.(json.RawMessage); ok {
		var buf any
		if err := json.Unmarshal(raw, &buf); err == nil {
			v = buf
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// renderTable writes rows under header.
func renderTable(w io.Writer, header []string, rows [][]string) {
	table := tablewriter.NewWriter(w)
	cols := make([]any, len(header))
	for i, h := range header {
		cols[i] = h
	}
	table.Header(cols...)
	for _, row := range rows {
		_ = table.Append(row)
	}
	_ = table.Render()
}

// renderKeyValues writes a two-column table of sorted keys.
func renderKeyValues(w io.Writer, values map[string]string) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []string{k, values[k]})
	}
	renderTable(w, []string{"Field", "Value"}, rows)
}

func statusText(status string) string {
	switch status {
	case "completed", "healthy":
		return colorOK(status)
	case "running", "degraded":
		return colorWarn(status)
	default:
		return status
	}
}

func successText(ok bool) string {
	if ok {
		return colorOK("ok")
	}
	return colorFail("failed")
}

func availableText(ok bool) string {
	if ok {
		return colorOK("available")
	}
	return colorFail("missing")
}

func seconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64) + "s"
}

// excerpt shortens s to at most n lines for terminal display.
func excerpt(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) <= n {
		return strings.Join(lines, "\n")
	}
	return strings.Join(lines[:n], "\n") + fmt.Sprintf("\n... (%d more lines)", len(lines)-n)
}
