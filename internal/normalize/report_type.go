package normalize

import (
	"errors"
	"fmt"
	"strings"
)

// ReportType tags the shaping routine used for a payload.
type ReportType string

const (
	BalanceSheet         ReportType = "BALANCE_SHEET"
	ProfitLoss           ReportType = "PROFIT_LOSS"
	CashFlow             ReportType = "CASH_FLOW"
	TrialBalance         ReportType = "TRIAL_BALANCE"
	GeneralLedger        ReportType = "GENERAL_LEDGER"
	SalesSummary         ReportType = "SALES_SUMMARY"
	VendorAnalysis       ReportType = "VENDOR_ANALYSIS"
	JournalEntryAnalysis ReportType = "JOURNAL_ENTRY_ANALYSIS"
)

// ErrUnknownReportType is returned by ParseReportType for unsupported tags.
var ErrUnknownReportType = errors.New("normalize: unknown report type")

// ReportTypes lists every supported type in a stable order.
var ReportTypes = []ReportType{
	BalanceSheet,
	ProfitLoss,
	CashFlow,
	TrialBalance,
	GeneralLedger,
	SalesSummary,
	VendorAnalysis,
	JournalEntryAnalysis,
}

var reportTypeAliases = map[string]ReportType{
	"PL":               ProfitLoss,
	"PNL":              ProfitLoss,
	"INCOME_STATEMENT": ProfitLoss,
	"PURCHASE_REPORT":  VendorAnalysis,
	"PURCHASE_SUMMARY": VendorAnalysis,
	"JOURNAL_ANALYSIS": JournalEntryAnalysis,
	"JOURNAL_ENTRIES":  JournalEntryAnalysis,
}

// ParseReportType accepts snake, kebab or upper case tags and the aliases the
// reporting API uses in its routes.
func ParseReportType(raw string) (ReportType, error) {
	key := strings.ToUpper(strings.TrimSpace(raw))
	key = strings.NewReplacer("-", "_", " ", "_").Replace(key)
	for _, t := range ReportTypes {
		if string(t) == key {
			return t, nil
		}
	}
	if t, ok := reportTypeAliases[key]; ok {
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownReportType, raw)
}

// Slug renders the type the way the reporting API names its routes.
func (t ReportType) Slug() string {
	switch t {
	case VendorAnalysis:
		return "purchase-report"
	case JournalEntryAnalysis:
		return "journal-analysis"
	}
	return strings.ReplaceAll(strings.ToLower(string(t)), "_", "-")
}

// Title is the default heading for the report type.
func (t ReportType) Title() string {
	switch t {
	case BalanceSheet:
		return "Balance Sheet"
	case ProfitLoss:
		return "Profit & Loss Statement"
	case CashFlow:
		return "Cash Flow Statement"
	case TrialBalance:
		return "Trial Balance"
	case GeneralLedger:
		return "General Ledger"
	case SalesSummary:
		return "Sales Summary"
	case VendorAnalysis:
		return "Vendor Analysis"
	case JournalEntryAnalysis:
		return "Journal Entry Analysis"
	}
	return string(t)
}
