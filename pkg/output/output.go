// Package output renders command results as text, tables or JSON.
package output

import (
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/fatih/color"
	jsoniter "github.com/json-iterator/go"
	"github.com/zfogg/searchstudy/pkg/config"
	"golang.org/x/term"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Format is an output format
type Format string

const (
	FormatJSON  Format = "json"
	FormatTable Format = "table"
	FormatText  Format = "text"
)

// Out receives all command output
var Out io.Writer = color.Output

func init() {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		color.NoColor = true
	}
}

// GetFormat returns the configured output format
func GetFormat() Format {
	switch config.GetString("output.format") {
	case "json":
		return FormatJSON
	case "table":
		return FormatTable
	default:
		return FormatText
	}
}

// ValidFormat checks if format is a known output format
func ValidFormat(format string) bool {
	return format == string(FormatJSON) || format == string(FormatTable) || format == string(FormatText)
}

// Print writes an arbitrary value. Table output falls back to indented JSON.
func Print(title string, data interface{}) error {
	if GetFormat() == FormatJSON {
		return writeJSON(data)
	}
	if title != "" {
		fmt.Fprintf(Out, "%s:\n", title)
	}
	return writeJSON(data)
}

// PrintRecord writes key/value pairs in key order
func PrintRecord(title string, record map[string]interface{}) error {
	keys := make([]string, 0, len(record))
	for k := range record {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	switch GetFormat() {
	case FormatJSON:
		return writeJSON(record)
	case FormatTable:
		rows := make([][]string, 0, len(keys))
		for _, k := range keys {
			rows = append(rows, []string{k, display(record[k])})
		}
		PrintTable([]string{"Field", "Value"}, rows)
		return nil
	}

	if title != "" {
		fmt.Fprintf(Out, "%s:\n", title)
	}
	bold := color.New(color.Bold)
	for _, k := range keys {
		bold.Fprint(Out, k+": ")
		fmt.Fprintln(Out, display(record[k]))
	}
	return nil
}

// PrintTable writes rows under bold headers
func PrintTable(headers []string, rows [][]string) {
	w := tabwriter.NewWriter(Out, 0, 0, 2, ' ', 0)
	bold := color.New(color.Bold)

	for i, h := range headers {
		bold.Fprint(w, h)
		if i < len(headers)-1 {
			fmt.Fprint(w, "\t")
		}
	}
	fmt.Fprintln(w)

	for _, row := range rows {
		for i, cell := range row {
			fmt.Fprint(w, cell)
			if i < len(row)-1 {
				fmt.Fprint(w, "\t")
			}
		}
		fmt.Fprintln(w)
	}
	w.Flush()
}

// PrintSuccess prints a success message
func PrintSuccess(msg string, args ...interface{}) {
	color.New(color.FgGreen).Fprintf(Out, msg+"\n", args...)
}

// PrintError prints an error message
func PrintError(msg string, args ...interface{}) {
	color.New(color.FgRed).Fprintf(Out, "Error: "+msg+"\n", args...)
}

// PrintInfo prints an info message
func PrintInfo(msg string, args ...interface{}) {
	color.New(color.FgCyan).Fprintf(Out, msg+"\n", args...)
}

// PrintWarning prints a warning message
func PrintWarning(msg string, args ...interface{}) {
	color.New(color.FgYellow).Fprintf(Out, "Warning: "+msg+"\n", args...)
}

// FormatAsPrettyJSON renders data as indented JSON
func FormatAsPrettyJSON(data interface{}) (string, error) {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func writeJSON(data interface{}) error {
	s, err := FormatAsPrettyJSON(data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(Out, s)
	return err
}

func display(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return "-"
	case *string:
		if t == nil {
			return "-"
		}
		return *t
	case *int:
		if t == nil {
			return "-"
		}
		return fmt.Sprint(*t)
	default:
		return fmt.Sprint(v)
	}
}
