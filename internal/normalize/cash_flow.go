package normalize

import "github.com/shopspring/decimal"

var cashFlowActivities = []struct {
	key  string
	name string
}{
	{"operating_activities", "OPERATING ACTIVITIES"},
	{"investing_activities", "INVESTING ACTIVITIES"},
	{"financing_activities", "FINANCING ACTIVITIES"},
}

func detectCashFlowShape(rec map[string]any) Shape {
	if _, ok := listField(rec, "sections"); ok {
		return ShapeSections
	}
	for _, activity := range cashFlowActivities {
		if hasAnyField(rec, activity.key) {
			return ShapeLegacy
		}
	}
	return ShapeUnknown
}

func (n *Normalizer) cashFlow(payload any) NormalizedReport {
	rec, ok := asRecord(payload)
	if !ok {
		return unrecognized(CashFlow, "cash flow payload is not an object")
	}
	shape := detectCashFlowShape(rec)
	if shape == ShapeUnknown {
		return unrecognized(CashFlow, "cash flow payload carries neither sections nor activity groups")
	}

	report := n.header(CashFlow, rec)
	report.Shape = shape
	if shape == ShapeSections {
		list, _ := listField(rec, "sections")
		report.Sections = passThroughSections(list)
	} else {
		report.Sections = legacyCashFlowSections(rec)
	}
	report.HasData = sectionsHaveData(report.Sections)

	report.Totals = map[string]decimal.Decimal{}
	for _, s := range report.Sections {
		if !s.IsCalculated {
			report.Totals[s.Name] = s.Total
		}
	}
	if summary, ok := netCashFlowSection(rec, report.Sections); ok {
		report.Sections = append(report.Sections, summary)
		report.Totals["net_cash_flow"] = summary.Total
	}

	if !report.HasData {
		report.Message = "No cash movements found for the selected period"
	}
	return report
}

func legacyCashFlowSections(rec map[string]any) []Section {
	sections := make([]Section, 0, len(cashFlowActivities))
	for _, activity := range cashFlowActivities {
		raw, ok := FirstPresentField(rec, activity.key)
		if !ok {
			continue
		}
		section := Section{Name: activity.name, Items: []LineItem{}}
		switch node := raw.(type) {
		case map[string]any:
			if name := stringField(node, "name", "title"); name != "" {
				section.Name = name
			}
			section.Items = itemsField(node, "items", "accounts")
			section.Total = amountOr(node, sumItems(section.Items), "total", "subtotal", "net_cash")
		case []any:
			section.Items = mapItems(node, accountItem)
			section.Total = sumItems(section.Items)
		default:
			section.Total = SafeCurrency(node)
		}
		sections = append(sections, section)
	}
	return sections
}

// passThroughSections keeps already-sectioned payloads as they are, renaming
// fields to the canonical form. Nesting deeper than one level is dropped.
func passThroughSections(list []any) []Section {
	sections := make([]Section, 0, len(list))
	for _, raw := range list {
		node, ok := asRecord(raw)
		if !ok {
			continue
		}
		section := passThroughSection(node)
		if children, ok := listField(node, "subsections"); ok {
			for _, rawChild := range children {
				if child, ok := asRecord(rawChild); ok {
					section.Subsections = append(section.Subsections, passThroughSection(child))
				}
			}
		}
		sections = append(sections, section)
	}
	return sections
}

func passThroughSection(node map[string]any) Section {
	section := Section{
		Name:  stringField(node, "name", "title", "label"),
		Items: mapItems(listOrEmpty(node, "items"), passThroughItem),
	}
	calculated, _ := boolField(node, "is_calculated", "isCalculated")
	section.IsCalculated = calculated
	section.Total = amountOr(node, sumItems(section.Items), "total", "subtotal")
	return section
}

func passThroughItem(rec map[string]any) (LineItem, bool) {
	item, ok := accountItem(rec)
	if !ok {
		return item, false
	}
	if pct, ok := boolField(rec, "is_percentage", "isPercentage"); ok {
		item.IsPercentage = pct
	}
	if debit, ok := amountField(rec, "debit"); ok {
		item.Debit = decimalPtr(debit)
	}
	if credit, ok := amountField(rec, "credit"); ok {
		item.Credit = decimalPtr(credit)
	}
	return item, true
}

// netCashFlowSection summarises the statement when the payload carries any of
// the closing figures.
func netCashFlowSection(rec map[string]any, sections []Section) (Section, bool) {
	if !hasAnyField(rec, "net_cash_flow", "net_change_in_cash", "beginning_cash", "beginning_balance", "ending_cash", "ending_balance") {
		return Section{}, false
	}
	computed := decimal.Zero
	for _, s := range sections {
		if !s.IsCalculated {
			computed = computed.Add(s.Total)
		}
	}
	net := amountOr(rec, computed, "net_cash_flow", "net_change_in_cash")
	beginning := amountOr(rec, decimal.Zero, "beginning_cash", "beginning_balance")
	ending := amountOr(rec, beginning.Add(net), "ending_cash", "ending_balance")
	return Section{
		Name:         "NET CASH FLOW",
		IsCalculated: true,
		Total:        net,
		Items: []LineItem{
			currencyItem("Net Cash Flow", net),
			currencyItem("Beginning Cash", beginning),
			currencyItem("Ending Cash", ending),
		},
	}, true
}

func listOrEmpty(rec map[string]any, keys ...string) []any {
	list, _ := listField(rec, keys...)
	return list
}
