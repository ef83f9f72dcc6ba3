// Package render formats health reports for the terminal or as JSON.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/BigKAA/dbprobe/dbprobe"
)

// Format names an output format accepted by the CLI.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat validates an --output value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatText, FormatJSON:
		return f, nil
	}
	return "", fmt.Errorf("unsupported output format %q (use text or json)", s)
}

// Options tune the text renderer.
type Options struct {
	Color bool // ANSI colors for the status line
}

const (
	ansiGreen = "\x1b[32m"
	ansiRed   = "\x1b[31m"
	ansiReset = "\x1b[0m"
)

// Write renders reports in the given format.
func Write(w io.Writer, f Format, reports []dbprobe.HealthReport, opts Options) error {
	if f == FormatJSON {
		return JSON(w, reports)
	}
	return Text(w, reports, opts)
}

// JSON writes reports as an indented JSON array. An empty input yields [].
func JSON(w io.Writer, reports []dbprobe.HealthReport) error {
	if reports == nil {
		reports = []dbprobe.HealthReport{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(reports)
}

// Text writes one block per report separated by blank lines.
func Text(w io.Writer, reports []dbprobe.HealthReport, opts Options) error {
	var b strings.Builder
	for i, r := range reports {
		if i > 0 {
			b.WriteByte('\n')
		}
		writeReport(&b, r, opts)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writeReport(b *strings.Builder, r dbprobe.HealthReport, opts Options) {
	status, color := "OK", ansiGreen
	if !r.Success {
		status, color = "FAIL", ansiRed
	}
	if opts.Color {
		status = color + status + ansiReset
	}
	fmt.Fprintf(b, "[%s] %s (%s) %.1fms\n", status, r.Name, r.Kind, r.LatencyMillis())

	field(b, "Target", r.Target)
	field(b, "Version", r.ServerVersion)
	if !r.Success {
		field(b, "Error", string(r.ErrorKind))
	}
	field(b, "Message", r.Message)
	field(b, "Response", r.Response)

	if len(r.Remediation) > 0 {
		b.WriteString("  Remediation:\n")
		for i, step := range r.Remediation {
			fmt.Fprintf(b, "    %d. %s\n", i+1, step)
		}
	}
	list(b, "Notes", r.Notes)
	list(b, "Warnings", r.Warnings)

	if !r.Success && len(r.Debug) > 0 {
		b.WriteString("  Debug:\n")
		for _, f := range r.Debug {
			fmt.Fprintf(b, "    %s: %s\n", f.Name, f.Value)
		}
	}
}

func field(b *strings.Builder, name, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(b, "  %-9s %s\n", name+":", value)
}

func list(b *strings.Builder, name string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "  %s:\n", name)
	for _, item := range items {
		fmt.Fprintf(b, "    - %s\n", item)
	}
}
