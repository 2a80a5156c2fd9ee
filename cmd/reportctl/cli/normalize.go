package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/odyssey-erp/finreports/internal/normalize"
)

// ExitUnrecognized is returned when the payload matched no known shape.
const ExitUnrecognized = 2

// NormalizeOptions defines the flags for the normalize command.
type NormalizeOptions struct {
	Type      string
	File      string
	Compact   bool
	Formatter normalize.Formatter
	Stdin     io.Reader
	Stdout    io.Writer
	Stderr    io.Writer
}

// NormalizeCommand reads a raw payload from a file or stdin and prints the
// normalized report as JSON.
func NormalizeCommand(opts NormalizeOptions) int {
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	reportType, err := normalize.ParseReportType(opts.Type)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "normalize: %v\n", err)
		return 1
	}
	raw, err := readInput(opts.File, opts.Stdin)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "normalize: %v\n", err)
		return 1
	}
	payload, err := normalize.DecodePayload(raw)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "normalize: %v\n", err)
		return 1
	}

	var normalizerOpts []normalize.Option
	if opts.Formatter != nil {
		normalizerOpts = append(normalizerOpts, normalize.WithFormatter(opts.Formatter))
	}
	report := normalize.New(normalizerOpts...).Normalize(reportType, payload)

	enc := json.NewEncoder(opts.Stdout)
	if !opts.Compact {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(report); err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "normalize: encode json: %v\n", err)
		return 1
	}
	if report.Error {
		_, _ = fmt.Fprintf(opts.Stderr, "normalize: %s\n", report.Message)
		return ExitUnrecognized
	}
	for _, d := range normalize.Reconcile(report) {
		_, _ = fmt.Fprintf(opts.Stderr, "normalize: %s total %s, items sum to %s\n", describeSection(d), d.Actual.StringFixed(2), d.Expected.StringFixed(2))
	}
	return 0
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if strings.TrimSpace(path) == "" || path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

func describeSection(d normalize.Discrepancy) string {
	if d.Subsection != "" {
		return d.Section + " / " + d.Subsection
	}
	return d.Section
}
