package normalize

import "github.com/shopspring/decimal"

var (
	currentAssetCategories = []category{
		{"cash", "Cash"},
		{"receivables", "Receivables"},
		{"inventory", "Inventory"},
		{"prepaid_expenses", "Prepaid Expenses"},
		{"other_current_assets", "Other Current Assets"},
	}
	nonCurrentAssetCategories = []category{
		{"fixed_assets", "Fixed Assets"},
		{"intangible_assets", "Intangible Assets"},
		{"investments", "Investments"},
		{"other_non_current_assets", "Other Non-Current Assets"},
	}
	currentLiabilityCategories = []category{
		{"accounts_payable", "Accounts Payable"},
		{"short_term_debt", "Short-Term Debt"},
		{"accrued_liabilities", "Accrued Liabilities"},
		{"tax_payable", "Tax Payable"},
		{"other_current_liabilities", "Other Current Liabilities"},
	}
	nonCurrentLiabilityCategories = []category{
		{"long_term_debt", "Long-Term Debt"},
		{"deferred_tax", "Deferred Tax"},
		{"other_non_current_liabilities", "Other Non-Current Liabilities"},
	}
	equityCategories = []category{
		{"share_capital", "Share Capital"},
		{"retained_earnings", "Retained Earnings"},
		{"other_equity", "Other Equity"},
	}
)

// bsSide describes one of the three balance sheet blocks across both shapes.
type bsSide struct {
	key        string
	name       string
	totalKeys  []string
	categories []category
	splits     []bsSplit
}

type bsSplit struct {
	key        string
	name       string
	totalKey   string
	categories []category
}

var balanceSheetSides = []bsSide{
	{
		key:       "assets",
		name:      "ASSETS",
		totalKeys: []string{"total_assets", "total"},
		splits: []bsSplit{
			{"current_assets", "Current Assets", "total_current_assets", currentAssetCategories},
			{"non_current_assets", "Non-Current Assets", "total_non_current_assets", nonCurrentAssetCategories},
		},
	},
	{
		key:       "liabilities",
		name:      "LIABILITIES",
		totalKeys: []string{"total_liabilities", "total"},
		splits: []bsSplit{
			{"current_liabilities", "Current Liabilities", "total_current_liabilities", currentLiabilityCategories},
			{"non_current_liabilities", "Non-Current Liabilities", "total_non_current_liabilities", nonCurrentLiabilityCategories},
		},
	},
	{
		key:        "equity",
		name:       "EQUITY",
		totalKeys:  []string{"total_equity", "total"},
		categories: equityCategories,
	},
}

func detectBalanceSheetShape(rec map[string]any) Shape {
	for _, side := range balanceSheetSides {
		node, ok := recordField(rec, side.key)
		if !ok {
			continue
		}
		for _, split := range side.splits {
			if hasAnyField(node, split.key) {
				return ShapeSSOT
			}
		}
		if hasAnyField(node, side.totalKeys[0]) {
			return ShapeSSOT
		}
	}
	return ShapeLegacy
}

func (n *Normalizer) balanceSheet(payload any) NormalizedReport {
	rec, ok := asRecord(payload)
	if !ok || !hasAnyField(rec, "assets", "liabilities", "equity", "total_assets", "total_liabilities", "total_equity") {
		return unrecognized(BalanceSheet, "balance sheet payload carries no assets, liabilities or equity fields")
	}

	report := n.header(BalanceSheet, rec)
	report.Shape = detectBalanceSheetShape(rec)
	for _, side := range balanceSheetSides {
		var section Section
		if report.Shape == ShapeSSOT {
			section = ssotBalanceSheetSection(rec, side)
		} else {
			section = legacyBalanceSheetSection(rec, side)
		}
		report.Sections = append(report.Sections, section)
	}

	assets, liabilities, equity := report.Sections[0].Total, report.Sections[1].Total, report.Sections[2].Total
	check := balanceCheck(rec, assets.Sub(liabilities.Add(equity)))
	report.Balance = &check
	report.Totals = map[string]decimal.Decimal{
		"total_assets":                 assets,
		"total_liabilities":            liabilities,
		"total_equity":                 equity,
		"total_liabilities_and_equity": amountOr(rec, liabilities.Add(equity), "total_liabilities_and_equity"),
	}

	report.HasData = sectionsHaveData(report.Sections)
	switch {
	case !report.HasData:
		report.Message = "No balance sheet balances found as of the selected date"
	case !check.IsBalanced:
		report.Message = "Balance sheet is out of balance by " + n.format.Currency(check.Difference)
	}
	return report
}

func ssotBalanceSheetSection(rec map[string]any, side bsSide) Section {
	section := Section{Name: side.name}
	node, ok := recordField(rec, side.key)
	if !ok {
		section.Items = []LineItem{}
		section.Total = amountOr(rec, decimal.Zero, side.totalKeys[0])
		return section
	}
	section.Items = itemsField(node, "items", "accounts")
	if len(section.Items) == 0 && len(side.categories) > 0 {
		section.Items = categoryItems(node, side.categories)
	}
	for _, split := range side.splits {
		child, ok := recordField(node, split.key)
		if !ok {
			continue
		}
		sub := Section{Name: split.name, Items: itemsField(child, "items", "accounts")}
		if len(sub.Items) == 0 {
			sub.Items = categoryItems(child, split.categories)
		}
		sub.Total = amountOr(child, sumItems(sub.Items), split.totalKey, "total", "subtotal")
		section.Subsections = append(section.Subsections, sub)
	}
	computed := sumItems(section.Items).Add(sumSections(section.Subsections))
	section.Total = amountOr(node, amountOr(rec, computed, side.totalKeys[0]), side.totalKeys...)
	return section
}

func legacyBalanceSheetSection(rec map[string]any, side bsSide) Section {
	section := Section{Name: side.name, Items: []LineItem{}}
	raw, _ := FirstPresentField(rec, side.key)
	switch node := raw.(type) {
	case map[string]any:
		section.Items = itemsField(node, "items", "accounts")
		section.Total = amountOr(node, amountOr(rec, sumItems(section.Items), side.totalKeys[0]), side.totalKeys...)
	case []any:
		section.Items = mapItems(node, accountItem)
		section.Total = amountOr(rec, sumItems(section.Items), side.totalKeys[0])
	default:
		section.Total = amountOr(rec, decimal.Zero, side.totalKeys[0])
	}
	return section
}

// balanceCheck trusts is_balanced and balance_difference when the payload has
// them and otherwise derives them from the computed gap.
func balanceCheck(rec map[string]any, gap decimal.Decimal) BalanceCheck {
	difference, hasDifference := amountField(rec, "balance_difference", "difference", "balanceDifference")
	if !hasDifference {
		difference = gap.Abs()
	}
	balanced, hasBalanced := boolField(rec, "is_balanced", "isBalanced")
	if !hasBalanced {
		balanced = withinTolerance(difference)
	}
	return BalanceCheck{
		IsBalanced: balanced,
		Difference: difference,
		Recomputed: !hasDifference || !hasBalanced,
	}
}
