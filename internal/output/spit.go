// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"reflect"
	"strconv"

	"github.com/apex/log"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/lipgloss/v2/table"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/staranto/recipectl/internal/config"
)

// Formats accepted by --output.
var Formats = []string{"text", "json", "yaml"}

// Column is one key of a row, rendered under Title in text output.
type Column struct {
	Key   string
	Title string
}

// Options controls how a dataset is rendered.
type Options struct {
	Format string
	Color  bool
	Titles bool
	Sort   string
	Filter string
}

// ColorDefault reports whether f looks like a terminal that wants color.
func ColorDefault(f *os.File) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// SliceDiceSpit filters, sorts and renders rows. Only the keys named by cols
// are emitted.
func SliceDiceSpit(w io.Writer, rows []map[string]interface{}, cols []Column, opts Options) error {
	if w == nil {
		w = os.Stdout
	}

	// Filter first so sorting works on the smaller set.
	dataset := FilterDataset(rows, opts.Filter)
	SortDataset(dataset, opts.Sort)

	switch opts.Format {
	case "json", "yaml":
		projected := make([]map[string]interface{}, 0, len(dataset))
		for _, row := range dataset {
			p := make(map[string]interface{}, len(cols))
			for _, c := range cols {
				p[c.Key] = row[c.Key]
			}
			projected = append(projected, p)
		}
		return Encode(w, opts.Format, projected)
	default:
		TableWriter(w, dataset, cols, opts)
		return nil
	}
}

// Encode writes v as JSON or YAML.
func Encode(w io.Writer, format string, v any) error {
	var (
		b   []byte
		err error
	)
	switch format {
	case "json":
		b, err = json.Marshal(v)
		if err == nil {
			b = append(b, '\n')
		}
	case "yaml":
		b, err = yaml.Marshal(v)
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", format, err)
	}
	_, err = w.Write(b)
	return err
}

// TableWriter renders the result set in a tabular form honoring color,
// titles and padding options.
func TableWriter(w io.Writer, resultSet []map[string]interface{}, cols []Column, opts Options) {
	if len(resultSet) == 0 {
		return
	}

	var (
		headerStyle  = lipgloss.NewStyle().Align(lipgloss.Left)
		cellStyle    = lipgloss.NewStyle().Padding(0, 0).Align(lipgloss.Left)
		evenRowStyle = cellStyle
		oddRowStyle  = cellStyle
	)

	if opts.Color {
		headerColor, evenColor, oddColor := getColors("colors")

		headerStyle = headerStyle.Foreground(lipgloss.Color(headerColor))
		evenRowStyle = evenRowStyle.Foreground(lipgloss.Color(evenColor))
		oddRowStyle = oddRowStyle.Foreground(lipgloss.Color(oddColor))
	}

	pad, _ := config.GetInt("padding", 1)
	log.Debugf("padding: %v", pad)

	var rows [][]string
	for _, result := range resultSet {
		row := make([]string, 0, len(cols))
		for _, c := range cols {
			row = append(row, InterfaceToString(result[c.Key], "-"))
		}
		rows = append(rows, row)
	}

	t := table.New().
		BorderBottom(false).
		BorderTop(false).
		BorderLeft(false).
		BorderRight(false).
		Border(lipgloss.HiddenBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			var style lipgloss.Style
			switch {
			case row == table.HeaderRow:
				style = headerStyle
			case row%2 == 0:
				style = evenRowStyle
			default:
				style = oddRowStyle
			}

			if col > 0 {
				style = style.PaddingLeft(pad)
			}

			return style
		}).
		Headers().
		Rows(rows...)

	if opts.Titles {
		headers := make([]string, 0, len(cols))
		for _, c := range cols {
			title := c.Title
			if title == "" {
				title = c.Key
			}
			headers = append(headers, title)
		}

		// https://github.com/charmbracelet/lipgloss/issues/261
		t = t.Headers(headers...).BorderHeader(false)
	}
	fmt.Fprintln(w, t)
}

// getColors returns configured color values for table rendering.
func getColors(key string) (header string, even string, odd string) {
	header, _ = config.GetString(fmt.Sprintf("%s.title", key), "#f6be00")
	even, _ = config.GetString(fmt.Sprintf("%s.even", key), "#ffffff")
	odd, _ = config.GetString(fmt.Sprintf("%s.odd", key), "#00c8f0")
	return
}

// InterfaceToString converts supported primitive or composite values to a
// string. A custom empty value may be provided.
func InterfaceToString(value interface{}, emptyValue ...string) string {
	if len(emptyValue) == 0 {
		emptyValue = []string{""}
	}

	if value == nil || reflect.ValueOf(value).IsZero() {
		return emptyValue[0]
	}

	switch value := value.(type) {
	case string:
		return value
	case int:
		return strconv.Itoa(value)
	case int64:
		return strconv.FormatInt(value, 10)
	case float64:
		// Nothing we render is fractional.
		return fmt.Sprintf("%.0f", value)
	case bool:
		return strconv.FormatBool(value)
	case fmt.Stringer:
		return value.String()
	default:
		jsonBytes, err := json.Marshal(value)
		if err != nil {
			return fmt.Sprintf("%v", value)
		}
		return string(jsonBytes)
	}
}
