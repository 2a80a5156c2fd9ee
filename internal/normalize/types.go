package normalize

import "github.com/shopspring/decimal"

// Shape identifies which historical payload layout a report was decoded from.
type Shape string

const (
	ShapeSSOT          Shape = "ssot"
	ShapeEnhanced      Shape = "enhanced"
	ShapeLegacy        Shape = "legacy"
	ShapeSections      Shape = "sections"
	ShapeAccounts      Shape = "accounts"
	ShapeSingleAccount Shape = "single_account"
	ShapePeriods       Shape = "periods"
	ShapeEntries       Shape = "entries"
	ShapeUnknown       Shape = "unknown"
)

// NormalizedReport is the canonical, renderable form shared by every report type.
type NormalizedReport struct {
	ReportType       ReportType                 `json:"reportType"`
	Shape            Shape                      `json:"shape"`
	Title            string                     `json:"title"`
	Period           string                     `json:"period"`
	Currency         string                     `json:"currency,omitempty"`
	Sections         []Section                  `json:"sections"`
	HasData          bool                       `json:"hasData"`
	Error            bool                       `json:"error"`
	Message          string                     `json:"message,omitempty"`
	CompanyInfo      *CompanyInfo               `json:"companyInfo,omitempty"`
	Balance          *BalanceCheck              `json:"balance,omitempty"`
	Totals           map[string]decimal.Decimal `json:"totals,omitempty"`
	FinancialSummary *FinancialSummary          `json:"financialSummary,omitempty"`
	Preview          *Preview                   `json:"preview,omitempty"`
}

// Section is one report block. Subsections nest a single level only.
type Section struct {
	Name           string           `json:"name"`
	Items          []LineItem       `json:"items"`
	Total          decimal.Decimal  `json:"total"`
	Subsections    []Section        `json:"subsections,omitempty"`
	IsCalculated   bool             `json:"isCalculated"`
	OpeningBalance *decimal.Decimal `json:"openingBalance,omitempty"`
}

// LineItem is a single row inside a section. When IsPercentage is set, Amount
// holds a percentage value rather than a currency figure.
type LineItem struct {
	Name         string           `json:"name"`
	Amount       decimal.Decimal  `json:"amount"`
	AccountCode  string           `json:"accountCode,omitempty"`
	IsPercentage bool             `json:"isPercentage,omitempty"`
	Debit        *decimal.Decimal `json:"debit,omitempty"`
	Credit       *decimal.Decimal `json:"credit,omitempty"`
}

// CompanyInfo is passed through from the payload untouched.
type CompanyInfo struct {
	Name       string `json:"name"`
	Address    string `json:"address,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Email      string `json:"email,omitempty"`
	Website    string `json:"website,omitempty"`
	TaxNumber  string `json:"taxNumber,omitempty"`
}

// BalanceCheck reports whether both sides of a statement agree. Recomputed is
// true when the upstream payload did not carry the figures and they were derived.
type BalanceCheck struct {
	IsBalanced bool            `json:"isBalanced"`
	Difference decimal.Decimal `json:"balanceDifference"`
	Recomputed bool            `json:"recomputed"`
}

// FinancialSummary aggregates every journal entry in an analysis payload,
// including entries beyond the preview cap.
type FinancialSummary struct {
	TotalEntries        int             `json:"totalEntries"`
	TotalDebit          decimal.Decimal `json:"totalDebit"`
	TotalCredit         decimal.Decimal `json:"totalCredit"`
	BalancedEntries     int             `json:"balancedEntries"`
	UnbalancedEntries   int             `json:"unbalancedEntries"`
	BalanceAccuracy     string          `json:"balanceAccuracy"`
	StatusCounts        map[string]int  `json:"statusCounts,omitempty"`
	ReferenceTypeCounts map[string]int  `json:"referenceTypeCounts,omitempty"`
}

// Preview describes a display cap applied to the sections of a report.
type Preview struct {
	ShownGroups int  `json:"shownGroups"`
	TotalGroups int  `json:"totalGroups"`
	Truncated   bool `json:"truncated"`
}

func (s Section) empty() bool {
	return len(s.Items) == 0 && len(s.Subsections) == 0 && s.Total.IsZero()
}

// sectionsHaveData implements the generic hasData rule: some section has rows
// or carries a nonzero total.
func sectionsHaveData(sections []Section) bool {
	for _, s := range sections {
		if len(s.Items) > 0 || !s.Total.IsZero() {
			return true
		}
		for _, sub := range s.Subsections {
			if len(sub.Items) > 0 || !sub.Total.IsZero() {
				return true
			}
		}
	}
	return false
}

func decimalPtr(d decimal.Decimal) *decimal.Decimal {
	return &d
}
