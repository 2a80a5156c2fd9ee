// Package normalize reshapes heterogeneous reporting API payloads into one
// canonical section/line-item tree. Every routine is pure: no I/O, no shared
// state, and the input is never mutated, so a Normalizer may be shared freely
// between goroutines.
package normalize

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Option customises a Normalizer.
type Option func(*Normalizer)

// WithFormatter injects the currency/date formatter used for labels.
func WithFormatter(f Formatter) Option {
	return func(n *Normalizer) {
		if f != nil {
			n.format = f
		}
	}
}

// Normalizer dispatches payloads to the shaping routine for their report type.
type Normalizer struct {
	format Formatter
}

// New constructs a Normalizer. Without options it formats with English grouping
// and no currency symbol.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{format: NewFormatter("en", "", "")}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

var defaultNormalizer = New()

// Normalize shapes payload with the default Normalizer.
func Normalize(reportType ReportType, payload any) NormalizedReport {
	return defaultNormalizer.Normalize(reportType, payload)
}

// Normalize never panics and never returns an error: empty payloads come back
// with HasData=false, payloads of unknown shape with Error=true.
func (n *Normalizer) Normalize(reportType ReportType, payload any) (report NormalizedReport) {
	defer func() {
		if r := recover(); r != nil {
			report = unrecognized(reportType, fmt.Sprintf("failed to shape %s payload: %v", reportType.Title(), r))
		}
	}()

	payload = unwrapEnvelope(payload)
	switch reportType {
	case BalanceSheet:
		report = n.balanceSheet(payload)
	case ProfitLoss:
		report = n.profitLoss(payload)
	case CashFlow:
		report = n.cashFlow(payload)
	case TrialBalance:
		report = n.trialBalance(payload)
	case GeneralLedger:
		report = n.generalLedger(payload)
	case SalesSummary:
		report = n.periodSummary(payload, salesSummaryConfig)
	case VendorAnalysis:
		report = n.periodSummary(payload, vendorAnalysisConfig)
	case JournalEntryAnalysis:
		report = n.journalAnalysis(payload)
	default:
		return unrecognized(reportType, fmt.Sprintf("unsupported report type %q", reportType))
	}
	return finish(report)
}

func (n *Normalizer) header(t ReportType, rec map[string]any) NormalizedReport {
	title := stringField(rec, "title", "report_title", "report_name")
	if title == "" {
		title = t.Title()
	}
	return NormalizedReport{
		ReportType:  t,
		Title:       title,
		Period:      periodLabel(rec, n.format),
		Currency:    stringField(rec, "currency"),
		CompanyInfo: companyInfo(rec),
		Sections:    []Section{},
	}
}

func unrecognized(t ReportType, message string) NormalizedReport {
	return NormalizedReport{
		ReportType: t,
		Shape:      ShapeUnknown,
		Title:      t.Title(),
		Sections:   []Section{},
		Error:      true,
		Message:    message,
	}
}

// finish replaces nil slices so the JSON form always carries arrays.
func finish(r NormalizedReport) NormalizedReport {
	if r.Sections == nil {
		r.Sections = []Section{}
	}
	for i := range r.Sections {
		if r.Sections[i].Items == nil {
			r.Sections[i].Items = []LineItem{}
		}
		for j := range r.Sections[i].Subsections {
			if r.Sections[i].Subsections[j].Items == nil {
				r.Sections[i].Subsections[j].Items = []LineItem{}
			}
		}
	}
	return r
}

func mapItems(list []any, mapper func(map[string]any) (LineItem, bool)) []LineItem {
	items := make([]LineItem, 0, len(list))
	for _, raw := range list {
		rec, ok := asRecord(raw)
		if !ok {
			continue
		}
		if item, ok := mapper(rec); ok {
			items = append(items, item)
		}
	}
	return items
}

// accountItem maps the {account_code, account_name, amount|balance} rows used by
// balance sheet, profit and loss and cash flow payloads.
func accountItem(rec map[string]any) (LineItem, bool) {
	if header, ok := boolField(rec, "is_header", "isHeader"); ok && header {
		return LineItem{}, false
	}
	code := stringField(rec, "account_code", "accountCode", "code")
	name := stringField(rec, "account_name", "accountName", "name", "description", "label")
	if name == "" {
		name = code
	}
	return LineItem{
		Name:        name,
		AccountCode: code,
		Amount:      amountOr(rec, decimal.Zero, "amount", "balance", "net_balance", "ssot_balance", "value"),
	}, true
}

func itemsField(rec map[string]any, keys ...string) []LineItem {
	list, _ := listField(rec, keys...)
	return mapItems(list, accountItem)
}

func sumItems(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		if item.IsPercentage {
			continue
		}
		total = total.Add(item.Amount)
	}
	return total
}

func sumSections(sections []Section) decimal.Decimal {
	total := decimal.Zero
	for _, s := range sections {
		total = total.Add(s.Total)
	}
	return total
}

func currencyItem(name string, amount decimal.Decimal) LineItem {
	return LineItem{Name: name, Amount: amount}
}

func percentItem(name string, amount decimal.Decimal) LineItem {
	return LineItem{Name: name, Amount: amount, IsPercentage: true}
}

// category names a numeric breakdown field that stands in for item rows when
// the payload carries none.
type category struct {
	key   string
	label string
}

func categoryItems(rec map[string]any, categories []category) []LineItem {
	items := make([]LineItem, 0)
	for _, c := range categories {
		amount, ok := amountField(rec, c.key)
		if !ok || amount.IsZero() {
			continue
		}
		items = append(items, currencyItem(c.label, amount))
	}
	return items
}
