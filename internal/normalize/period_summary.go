package normalize

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// periodSummaryConfig captures the field names that differ between the sales
// and purchase summaries; both share one shaping routine.
type periodSummaryConfig struct {
	reportType   ReportType
	totalKeys    []string
	periodKeys   []string
	periodName   string
	breakdowns   []breakdown
	emptyMessage string
	monthly      *monthlyBuckets
}

// monthlyBuckets describes the SSOT layout where buckets are keyed by
// year/month and the headline figure under the total key is a count.
type monthlyBuckets struct {
	periodKeys  []string
	totalKeys   []string
	countKeys   []string
	passthrough []string
}

type breakdown struct {
	keys      []string
	name      string
	labelKeys []string
}

var salesSummaryConfig = periodSummaryConfig{
	reportType: SalesSummary,
	totalKeys:  []string{"total_revenue", "total_sales", "totalRevenue"},
	periodKeys: []string{"sales_by_period", "salesByPeriod", "periods"},
	periodName: "SALES BY PERIOD",
	breakdowns: []breakdown{
		{[]string{"sales_by_customer", "salesByCustomer"}, "SALES BY CUSTOMER", []string{"customer_name", "customer", "name"}},
		{[]string{"sales_by_product", "salesByProduct"}, "SALES BY PRODUCT", []string{"product_name", "product", "name"}},
	},
	emptyMessage: "No sales recorded for the selected period",
}

var vendorAnalysisConfig = periodSummaryConfig{
	reportType: VendorAnalysis,
	totalKeys:  []string{"total_purchases", "total_purchase", "totalPurchases"},
	periodKeys: []string{"purchases_by_period", "purchasesByPeriod", "periods"},
	periodName: "PURCHASES BY PERIOD",
	breakdowns: []breakdown{
		{[]string{"purchases_by_vendor", "purchasesByVendor", "vendors"}, "PURCHASES BY VENDOR", []string{"vendor_name", "vendor", "name"}},
		{[]string{"purchases_by_category", "purchasesByCategory"}, "PURCHASES BY CATEGORY", []string{"category_name", "category", "name"}},
	},
	emptyMessage: "No purchases recorded for the selected period",
	monthly: &monthlyBuckets{
		periodKeys:  []string{"purchases_by_month", "purchasesByMonth"},
		totalKeys:   []string{"total_amount", "totalAmount"},
		countKeys:   []string{"total_purchases", "totalPurchases"},
		passthrough: []string{"total_paid", "outstanding_payables"},
	},
}

var bucketAmountKeys = []string{"amount", "total_amount", "total", "revenue", "value"}

func (n *Normalizer) periodSummary(payload any, cfg periodSummaryConfig) NormalizedReport {
	rec, ok := asRecord(payload)
	recognized := append(append([]string{}, cfg.totalKeys...), cfg.periodKeys...)
	if cfg.monthly != nil {
		recognized = append(recognized, cfg.monthly.periodKeys...)
	}
	if !ok || !hasAnyField(rec, recognized...) {
		return unrecognized(cfg.reportType, cfg.reportType.Title()+" payload carries neither a total nor period buckets")
	}

	report := n.header(cfg.reportType, rec)
	report.Shape = ShapePeriods
	periodKeys, totalKeys := cfg.periodKeys, cfg.totalKeys
	countKeys := []string{"total_transactions", "transaction_count"}
	itemFn := n.periodItem
	m := cfg.monthly
	if m != nil && hasAnyField(rec, m.periodKeys...) {
		report.Shape = ShapeSSOT
		periodKeys, totalKeys, countKeys = m.periodKeys, m.totalKeys, m.countKeys
		itemFn = monthItem
	}

	periods, _ := listField(rec, periodKeys...)
	byPeriod := Section{Name: cfg.periodName, Items: mapItems(periods, itemFn)}
	computed := sumItems(byPeriod.Items)
	byPeriod.Total = computed
	report.Sections = append(report.Sections, byPeriod)

	for _, b := range cfg.breakdowns {
		list, ok := listField(rec, b.keys...)
		if !ok || len(list) == 0 {
			continue
		}
		labelKeys := b.labelKeys
		section := Section{Name: b.name, Items: mapItems(list, func(r map[string]any) (LineItem, bool) {
			name := stringField(r, labelKeys...)
			if name == "" {
				return LineItem{}, false
			}
			return currencyItem(name, amountOr(r, decimal.Zero, bucketAmountKeys...)), true
		})}
		section.Total = sumItems(section.Items)
		report.Sections = append(report.Sections, section)
	}

	total := amountOr(rec, computed, totalKeys...)
	report.Totals = map[string]decimal.Decimal{cfg.totalKeys[0]: total}
	if len(byPeriod.Items) > 0 {
		report.Totals["average_per_period"] = SafeDivide(total, decimal.NewFromInt(int64(len(byPeriod.Items)))).Round(2)
	}
	if count, ok := amountField(rec, countKeys...); ok {
		report.Totals["total_transactions"] = count
		report.Totals["average_per_transaction"] = averageTransaction(rec, SafeDivide(total, count).Round(2))
	}
	if report.Shape == ShapeSSOT {
		for _, key := range m.passthrough {
			if v, ok := amountField(rec, key); ok {
				report.Totals[key] = v
			}
		}
	}

	report.HasData = len(byPeriod.Items) > 0
	if !report.HasData {
		report.Message = cfg.emptyMessage
	}
	return report
}

var averageTransactionKeys = []string{"average_transaction_value", "average_order_value", "avg_transaction_value"}

func averageTransaction(rec map[string]any, fallback decimal.Decimal) decimal.Decimal {
	if v, ok := amountField(rec, averageTransactionKeys...); ok {
		return v
	}
	if pa, ok := recordField(rec, "payment_analysis", "paymentAnalysis"); ok {
		return amountOr(pa, fallback, averageTransactionKeys...)
	}
	return fallback
}

// monthItem labels a year/month bucket as "January 2025", or "2025-01" when
// the month name is absent.
func monthItem(rec map[string]any) (LineItem, bool) {
	label := stringField(rec, "month_name", "monthName")
	year, hasYear := amountField(rec, "year")
	if label != "" && hasYear {
		label = fmt.Sprintf("%s %d", label, year.IntPart())
	}
	if label == "" {
		month, hasMonth := amountField(rec, "month")
		if !hasYear || !hasMonth {
			return LineItem{}, false
		}
		label = fmt.Sprintf("%04d-%02d", year.IntPart(), month.IntPart())
	}
	return currencyItem(label, amountOr(rec, decimal.Zero, "total_amount", "amount", "total")), true
}

func (n *Normalizer) periodItem(rec map[string]any) (LineItem, bool) {
	label := stringField(rec, "period", "label", "month", "name")
	if d, ok := dateField(rec, "period", "date", "period_start"); ok && len(label) > 7 {
		label = n.format.Date(d)
	}
	if label == "" {
		return LineItem{}, false
	}
	return currencyItem(label, amountOr(rec, decimal.Zero, bucketAmountKeys...)), true
}
