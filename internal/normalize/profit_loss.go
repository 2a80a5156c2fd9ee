package normalize

import "github.com/shopspring/decimal"

const noProfitLossActivity = "No profit and loss activity found for the selected period. " +
	"Record sales, purchases or expense transactions to populate this report."

var (
	revenueCategories = []category{
		{"sales_revenue", "Sales Revenue"},
		{"service_revenue", "Service Revenue"},
		{"other_revenue", "Other Revenue"},
	}
	cogsCategories = []category{
		{"direct_materials", "Direct Materials"},
		{"direct_labor", "Direct Labor"},
		{"manufacturing", "Manufacturing Overhead"},
		{"other_cogs", "Other COGS"},
	}
	opexSubcategories = []category{
		{"administrative", "Administrative"},
		{"selling_marketing", "Selling & Marketing"},
		{"general", "General"},
	}
)

// plBlocks holds the non-calculated sections and the side figures that feed the
// calculated ones.
type plBlocks struct {
	revenue       Section
	cogs          Section
	opex          Section
	otherIncome   decimal.Decimal
	otherExpenses decimal.Decimal
}

func detectProfitLossShape(rec map[string]any) Shape {
	if _, ok := recordField(rec, "revenue"); ok {
		return ShapeEnhanced
	}
	if _, ok := recordField(rec, "operating_expenses"); ok {
		return ShapeEnhanced
	}
	return ShapeLegacy
}

func (n *Normalizer) profitLoss(payload any) NormalizedReport {
	rec, ok := asRecord(payload)
	if !ok || !hasAnyField(rec, "revenue", "revenues", "cost_of_goods_sold", "cogs", "operating_expenses", "expenses",
		"total_revenue", "gross_profit", "net_income") {
		return unrecognized(ProfitLoss, "profit and loss payload carries no revenue, expense or income fields")
	}

	report := n.header(ProfitLoss, rec)
	report.Shape = detectProfitLossShape(rec)
	var blocks plBlocks
	if report.Shape == ShapeEnhanced {
		blocks = enhancedProfitLoss(rec)
	} else {
		blocks = legacyProfitLoss(rec)
	}

	totalRevenue := blocks.revenue.Total
	grossProfit := amountOr(rec, totalRevenue.Sub(blocks.cogs.Total), "gross_profit")
	operatingIncome := amountOr(rec, grossProfit.Sub(blocks.opex.Total), "operating_income", "ebit")
	ebitda := amountOr(rec, operatingIncome, "ebitda")
	incomeBeforeTax := amountOr(rec, operatingIncome.Add(blocks.otherIncome).Sub(blocks.otherExpenses),
		"income_before_tax", "net_income_before_tax")
	taxExpense := amountOr(rec, decimal.Zero, "tax_expense")
	netIncome := amountOr(rec, incomeBeforeTax.Sub(taxExpense), "net_income")

	report.Sections = append(report.Sections, blocks.revenue)
	if !blocks.cogs.empty() {
		report.Sections = append(report.Sections, blocks.cogs)
	}
	report.Sections = append(report.Sections, Section{
		Name:         "GROSS PROFIT",
		IsCalculated: true,
		Total:        grossProfit,
		Items: []LineItem{
			currencyItem("Gross Profit", grossProfit),
			percentItem("Gross Profit Margin", percentOf(grossProfit, totalRevenue)),
		},
	})
	if !blocks.opex.empty() {
		report.Sections = append(report.Sections, blocks.opex)
	}
	report.Sections = append(report.Sections, Section{
		Name:         "OPERATING PERFORMANCE",
		IsCalculated: true,
		Total:        operatingIncome,
		Items: []LineItem{
			currencyItem("Operating Income", operatingIncome),
			percentItem("Operating Margin", percentOf(operatingIncome, totalRevenue)),
			currencyItem("EBITDA", ebitda),
			percentItem("EBITDA Margin", percentOf(ebitda, totalRevenue)),
		},
	})

	netItems := make([]LineItem, 0, 6)
	if !blocks.otherIncome.IsZero() {
		netItems = append(netItems, currencyItem("Other Income", blocks.otherIncome))
	}
	if !blocks.otherExpenses.IsZero() {
		netItems = append(netItems, currencyItem("Other Expenses", blocks.otherExpenses))
	}
	netItems = append(netItems,
		currencyItem("Income Before Tax", incomeBeforeTax),
		currencyItem("Tax Expense", taxExpense),
		currencyItem("Net Income", netIncome),
		percentItem("Net Income Margin", percentOf(netIncome, totalRevenue)),
	)
	report.Sections = append(report.Sections, Section{
		Name:         "NET INCOME",
		IsCalculated: true,
		Total:        netIncome,
		Items:        netItems,
	})

	report.Totals = map[string]decimal.Decimal{
		"total_revenue":            totalRevenue,
		"total_cogs":               blocks.cogs.Total,
		"gross_profit":             grossProfit,
		"total_operating_expenses": blocks.opex.Total,
		"operating_income":         operatingIncome,
		"ebitda":                   ebitda,
		"income_before_tax":        incomeBeforeTax,
		"tax_expense":              taxExpense,
		"net_income":               netIncome,
	}

	// Only recorded activity counts: a statement made of zero-valued calculated
	// sections means nothing was posted for the period.
	report.HasData = sectionsHaveData([]Section{blocks.revenue, blocks.cogs, blocks.opex})
	if !report.HasData {
		report.Message = noProfitLossActivity
	}
	return report
}

func enhancedProfitLoss(rec map[string]any) plBlocks {
	var blocks plBlocks

	blocks.revenue = Section{Name: "REVENUE", Items: []LineItem{}}
	if node, ok := recordField(rec, "revenue"); ok {
		blocks.revenue = categorisedSection(node, "REVENUE", revenueCategories,
			[]string{"total_revenue", "total", "subtotal"})
	}
	blocks.revenue.Total = ensureTopLevel(rec, blocks.revenue, "total_revenue")

	blocks.cogs = Section{Name: "COST OF GOODS SOLD", Items: []LineItem{}}
	if node, ok := recordField(rec, "cost_of_goods_sold", "cogs"); ok {
		blocks.cogs = categorisedSection(node, "COST OF GOODS SOLD", cogsCategories,
			[]string{"total_cogs", "total", "subtotal"})
	} else if list, ok := listField(rec, "cost_of_goods_sold", "cogs"); ok {
		blocks.cogs.Items = mapItems(list, accountItem)
		blocks.cogs.Total = sumItems(blocks.cogs.Items)
	}
	blocks.cogs.Total = ensureTopLevel(rec, blocks.cogs, "total_cogs")

	blocks.opex = Section{Name: "OPERATING EXPENSES", Items: []LineItem{}}
	if node, ok := recordField(rec, "operating_expenses"); ok {
		blocks.opex = categorisedSection(node, "OPERATING EXPENSES", nil,
			[]string{"total_opex", "total_operating_expenses", "total", "subtotal"})
		for _, sub := range opexSubcategories {
			child, ok := recordField(node, sub.key)
			if !ok {
				continue
			}
			s := Section{Name: sub.label, Items: itemsField(child, "items")}
			s.Total = amountOr(child, sumItems(s.Items), "subtotal", "total")
			blocks.opex.Subsections = append(blocks.opex.Subsections, s)
		}
		computed := sumItems(blocks.opex.Items).Add(sumSections(blocks.opex.Subsections))
		blocks.opex.Total = amountOr(node, computed, "total_opex", "total_operating_expenses", "total", "subtotal")
	}
	blocks.opex.Total = ensureTopLevel(rec, blocks.opex, "total_operating_expenses", "total_opex")

	blocks.otherIncome = figure(rec, "other_income")
	blocks.otherExpenses = figure(rec, "other_expenses")
	return blocks
}

func legacyProfitLoss(rec map[string]any) plBlocks {
	var blocks plBlocks

	blocks.revenue = Section{Name: "REVENUE", Items: itemsField(rec, "revenue", "revenues")}
	blocks.revenue.Total = amountOr(rec, sumItems(blocks.revenue.Items), "total_revenue")

	blocks.cogs = Section{Name: "COST OF GOODS SOLD", Items: itemsField(rec, "cost_of_goods_sold", "cogs")}
	blocks.cogs.Total = amountOr(rec, sumItems(blocks.cogs.Items), "total_cogs")

	blocks.opex = Section{Name: "OPERATING EXPENSES", Items: itemsField(rec, "operating_expenses", "expenses")}
	blocks.opex.Total = amountOr(rec, sumItems(blocks.opex.Items), "total_operating_expenses", "total_expenses")

	blocks.otherIncome = figure(rec, "other_income")
	blocks.otherExpenses = figure(rec, "other_expenses")
	return blocks
}

// categorisedSection reads {items, <category>...} nodes where each category is
// either a {items, subtotal} record (one subsection) or a plain number (one row,
// only used when the node has no item rows).
func categorisedSection(node map[string]any, name string, categories []category, totalKeys []string) Section {
	section := Section{Name: name, Items: itemsField(node, "items", "accounts")}
	noRows := len(section.Items) == 0
	for _, c := range categories {
		v, ok := FirstPresentField(node, c.key)
		if !ok {
			continue
		}
		if child, ok := asRecord(v); ok {
			sub := Section{Name: c.label, Items: itemsField(child, "items")}
			sub.Total = amountOr(child, sumItems(sub.Items), "subtotal", "total")
			section.Subsections = append(section.Subsections, sub)
			continue
		}
		if amount := SafeCurrency(v); noRows && !amount.IsZero() {
			section.Items = append(section.Items, currencyItem(c.label, amount))
		}
	}
	computed := sumItems(section.Items).Add(sumSections(section.Subsections))
	section.Total = amountOr(node, computed, totalKeys...)
	return section
}

// ensureTopLevel prefers the section total, falling back to a top-level field
// when the section itself carried nothing.
func ensureTopLevel(rec map[string]any, s Section, keys ...string) decimal.Decimal {
	if !s.Total.IsZero() || len(s.Items) > 0 || len(s.Subsections) > 0 {
		return s.Total
	}
	return amountOr(rec, s.Total, keys...)
}

// figure reads a field that is either a number or a {items, subtotal} record.
func figure(rec map[string]any, key string) decimal.Decimal {
	v, ok := FirstPresentField(rec, key)
	if !ok {
		return decimal.Zero
	}
	if child, ok := asRecord(v); ok {
		return amountOr(child, sumItems(itemsField(child, "items")), "subtotal", "total")
	}
	return SafeCurrency(v)
}
