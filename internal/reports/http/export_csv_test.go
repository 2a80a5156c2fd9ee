package reporthttp

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/finreports/internal/normalize"
)

func largeReport(rows int) normalize.NormalizedReport {
	items := make([]normalize.LineItem, rows)
	total := decimal.Zero
	for i := range items {
		amount := decimal.NewFromInt(int64(i))
		items[i] = normalize.LineItem{Name: fmt.Sprintf("Row %d", i), Amount: amount}
		total = total.Add(amount)
	}
	return normalize.NormalizedReport{
		ReportType: normalize.JournalEntryAnalysis,
		Title:      "Journal Entry Analysis",
		HasData:    true,
		Sections:   []normalize.Section{{Name: "Journal Entries - 01 Jan 2025", Items: items, Total: total}},
	}
}

func TestWriteReportCSVMetadata(t *testing.T) {
	debit := decimal.NewFromInt(10)
	report := normalize.NormalizedReport{
		ReportType: normalize.TrialBalance,
		Title:      "Trial Balance",
		Period:     "As of 31 Jan 2025",
		Balance:    &normalize.BalanceCheck{IsBalanced: false, Difference: decimal.RequireFromString("2.5")},
		Preview:    &normalize.Preview{ShownGroups: 10, TotalGroups: 12, Truncated: true},
		Sections: []normalize.Section{{
			Name:  "ACCOUNTS",
			Items: []normalize.LineItem{{Name: "1101 - Cash", AccountCode: "1101", Amount: debit, Debit: &debit, Credit: &decimal.Zero}},
			Total: debit,
		}},
		HasData: true,
	}

	var buf bytes.Buffer
	require.NoError(t, writeReportCSV(&buf, report, normalize.NewFormatter("en", "$", ""), time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)))
	lines := strings.Split(strings.TrimRight(buf.String(), "\r\n"), "\r\n")
	require.GreaterOrEqual(t, len(lines), 7)
	assert.Equal(t, "# Balanced: no, difference $ 2.50", lines[2])
	assert.Equal(t, "# Showing 10 of 12 groups", lines[3])
	assert.Equal(t, "ACCOUNTS,,1101,1101 - Cash,10.00,10.00,0.00", lines[5])
	assert.Equal(t, "ACCOUNTS,,,Total ACCOUNTS,10.00,,", lines[6])
}

func TestWriteReportCSVEmptyNote(t *testing.T) {
	report := normalize.NormalizedReport{Title: "Sales Summary", Message: "No sales recorded for the selected period", Sections: []normalize.Section{}}
	var buf bytes.Buffer
	require.NoError(t, writeReportCSV(&buf, report, nil, time.Unix(0, 0)))
	assert.Contains(t, buf.String(), "# Period: n/a | Generated: 1970-01-01T00:00:00Z\r\n")
	assert.Contains(t, buf.String(), "# Note: No sales recorded for the selected period\r\n")
}

func TestWriteReportCSVFlattensMultilineMetadata(t *testing.T) {
	report := normalize.NormalizedReport{
		Title:       "Balance Sheet\nDraft",
		CompanyInfo: &normalize.CompanyInfo{Name: "Acme\r\nHoldings\rLtd"},
		Sections:    []normalize.Section{},
	}
	var buf bytes.Buffer
	require.NoError(t, writeReportCSV(&buf, report, nil, time.Unix(0, 0)))
	lines := strings.Split(strings.TrimRight(buf.String(), "\r\n"), "\r\n")
	require.GreaterOrEqual(t, len(lines), 3)
	assert.Equal(t, "# Report: Balance Sheet Draft", lines[0])
	assert.Equal(t, "# Company: Acme Holdings Ltd", lines[2])
	for _, line := range lines {
		assert.NotContains(t, line, "\n")
		assert.NotContains(t, line, "\r")
	}
}
