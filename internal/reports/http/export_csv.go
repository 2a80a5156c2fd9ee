package reporthttp

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/finreports/internal/normalize"
)

const (
	csvFlushEvery = 200
	csvBufferSize = 32 * 1024
)

var csvHeader = []string{"Section", "Subsection", "Account Code", "Name", "Amount", "Debit", "Credit"}

type csvStreamer struct {
	buf          *bufio.Writer
	csv          *csv.Writer
	flushEvery   int
	pendingLines int
}

func newCSVStreamer(w io.Writer) *csvStreamer {
	buf := bufio.NewWriterSize(w, csvBufferSize)
	writer := csv.NewWriter(buf)
	writer.UseCRLF = true
	return &csvStreamer{buf: buf, csv: writer, flushEvery: csvFlushEvery}
}

var commentBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

func (s *csvStreamer) writeComment(line string) error {
	// Comments bypass the csv.Writer, so flush its pending rows first.
	s.csv.Flush()
	if err := s.csv.Error(); err != nil {
		return err
	}
	line = commentBreaks.Replace(strings.TrimRight(line, "\r\n")) + "\r\n"
	_, err := s.buf.WriteString(line)
	return err
}

func (s *csvStreamer) writeRow(row []string) error {
	if err := s.csv.Write(row); err != nil {
		return err
	}
	s.pendingLines++
	if s.flushEvery > 0 && s.pendingLines >= s.flushEvery {
		return s.Flush()
	}
	return nil
}

func (s *csvStreamer) Flush() error {
	s.csv.Flush()
	if err := s.csv.Error(); err != nil {
		return err
	}
	if err := s.buf.Flush(); err != nil {
		return err
	}
	s.pendingLines = 0
	return nil
}

// writeReportCSV streams the report as metadata comment lines followed by one
// row per line item, section totals after each section.
func writeReportCSV(w io.Writer, report normalize.NormalizedReport, format normalize.Formatter, generated time.Time) error {
	streamer := newCSVStreamer(w)
	if err := writeMetadata(streamer, report, format, generated); err != nil {
		return err
	}
	if err := streamer.writeRow(csvHeader); err != nil {
		return err
	}
	for _, section := range report.Sections {
		if err := writeSectionRows(streamer, section.Name, "", section); err != nil {
			return err
		}
		for _, sub := range section.Subsections {
			if err := writeSectionRows(streamer, section.Name, sub.Name, sub); err != nil {
				return err
			}
		}
		if err := streamer.writeRow([]string{section.Name, "", "", "Total " + section.Name, formatDecimal(section.Total), "", ""}); err != nil {
			return err
		}
	}
	if len(report.Totals) > 0 {
		if err := streamer.writeRow(make([]string, len(csvHeader))); err != nil {
			return err
		}
		keys := make([]string, 0, len(report.Totals))
		for k := range report.Totals {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if err := streamer.writeRow([]string{"Totals", "", "", k, formatDecimal(report.Totals[k]), "", ""}); err != nil {
				return err
			}
		}
	}
	return streamer.Flush()
}

func writeSectionRows(streamer *csvStreamer, section, subsection string, s normalize.Section) error {
	for _, item := range s.Items {
		amount := formatDecimal(item.Amount)
		if item.IsPercentage {
			amount += "%"
		}
		if err := streamer.writeRow([]string{
			section,
			subsection,
			item.AccountCode,
			item.Name,
			amount,
			formatOptional(item.Debit),
			formatOptional(item.Credit),
		}); err != nil {
			return err
		}
	}
	if subsection != "" {
		return streamer.writeRow([]string{section, subsection, "", "Subtotal " + subsection, formatDecimal(s.Total), "", ""})
	}
	return nil
}

func writeMetadata(streamer *csvStreamer, report normalize.NormalizedReport, format normalize.Formatter, generated time.Time) error {
	if err := streamer.writeComment("# Report: " + report.Title); err != nil {
		return err
	}
	period := report.Period
	if period == "" {
		period = "n/a"
	}
	if err := streamer.writeComment(fmt.Sprintf("# Period: %s | Generated: %s", period, generated.UTC().Format(time.RFC3339))); err != nil {
		return err
	}
	if report.CompanyInfo != nil && report.CompanyInfo.Name != "" {
		if err := streamer.writeComment("# Company: " + report.CompanyInfo.Name); err != nil {
			return err
		}
	}
	if report.Balance != nil {
		state := "yes"
		if !report.Balance.IsBalanced {
			state = "no, difference " + format.Currency(report.Balance.Difference)
		}
		if err := streamer.writeComment("# Balanced: " + state); err != nil {
			return err
		}
	}
	if report.Preview != nil && report.Preview.Truncated {
		if err := streamer.writeComment(fmt.Sprintf("# Showing %d of %d groups", report.Preview.ShownGroups, report.Preview.TotalGroups)); err != nil {
			return err
		}
	}
	if !report.HasData && report.Message != "" {
		return streamer.writeComment("# Note: " + report.Message)
	}
	return nil
}

func formatDecimal(v decimal.Decimal) string {
	return v.StringFixed(2)
}

func formatOptional(v *decimal.Decimal) string {
	if v == nil {
		return ""
	}
	return formatDecimal(*v)
}
