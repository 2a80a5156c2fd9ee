package normalize

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/odyssey-erp/finreports/testing"
)

func decode(t *testing.T, raw string) any {
	t.Helper()
	v, err := DecodePayload([]byte(raw))
	require.NoError(t, err)
	return v
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), append([]any{"want %s got %s", want, got.String()}, msgAndArgs...)...)
}

func assertReconciled(t *testing.T, report NormalizedReport) {
	t.Helper()
	assert.Empty(t, Reconcile(report))
}

func TestTrialBalanceAccounts(t *testing.T) {
	payload := decode(t, `{
		"accounts": [{"account_code": "1101", "account_name": "Cash", "debit_balance": 1000, "credit_balance": 0}],
		"total_debits": 1000, "total_credits": 1000, "is_balanced": true
	}`)

	report := Normalize(TrialBalance, payload)
	require.False(t, report.Error)
	require.True(t, report.HasData)
	require.Len(t, report.Sections, 1)

	section := report.Sections[0]
	assert.Equal(t, "ACCOUNTS", section.Name)
	require.Len(t, section.Items, 1)
	item := section.Items[0]
	assert.Equal(t, "1101 - Cash", item.Name)
	assert.Equal(t, "1101", item.AccountCode)
	assertDecimal(t, "1000", item.Amount)
	require.NotNil(t, item.Debit)
	require.NotNil(t, item.Credit)
	assertDecimal(t, "1000", *item.Debit)
	assertDecimal(t, "0", *item.Credit)
	assertDecimal(t, "1000", section.Total)

	require.NotNil(t, report.Balance)
	assert.True(t, report.Balance.IsBalanced)
	assertDecimal(t, "0", report.Balance.Difference)
	assertReconciled(t, report)
}

func TestTrialBalanceDecimalStringsAndRecompute(t *testing.T) {
	payload := decode(t, `{"accounts": [
		{"account_code": "1101", "account_name": "Cash", "debit_balance": "250.50", "credit_balance": "0.00"},
		{"account_code": "2101", "account_name": "Payables", "debit_balance": "0", "credit_balance": "250.00"}
	]}`)

	report := Normalize(TrialBalance, payload)
	require.True(t, report.HasData)
	assertDecimal(t, "250.5", report.Sections[0].Total)
	assertDecimal(t, "-250", report.Sections[0].Items[1].Amount)
	require.NotNil(t, report.Balance)
	assert.False(t, report.Balance.IsBalanced)
	assert.True(t, report.Balance.Recomputed)
	assertDecimal(t, "0.5", report.Balance.Difference)
}

func TestTrialBalanceEmptyAccounts(t *testing.T) {
	report := Normalize(TrialBalance, decode(t, `{"accounts": []}`))
	assert.False(t, report.Error)
	assert.False(t, report.HasData)
	assert.NotEmpty(t, report.Message)
}

func TestProfitLossZeroRevenueIsEmpty(t *testing.T) {
	report := Normalize(ProfitLoss, decode(t, `{"revenue": {"total_revenue": 0}}`))

	require.False(t, report.Error)
	assert.False(t, report.HasData)
	assert.Contains(t, report.Message, "Record sales")
	assert.Contains(t, report.Message, "expense transactions")

	for _, s := range report.Sections {
		for _, item := range s.Items {
			if item.IsPercentage {
				assert.True(t, item.Amount.IsZero(), "%s/%s should be zero", s.Name, item.Name)
			}
		}
	}
}

func TestProfitLossEnhancedSections(t *testing.T) {
	payload := decode(t, `{
		"start_date": "2025-01-01", "end_date": "2025-01-31",
		"revenue": {
			"sales_revenue": {"items": [{"account_code": "4100", "account_name": "Product Sales", "amount": 8000}], "subtotal": 8000},
			"service_revenue": {"items": [{"account_code": "4200", "account_name": "Consulting", "amount": 2000}], "subtotal": 2000},
			"total_revenue": 10000
		},
		"cost_of_goods_sold": {"items": [{"account_code": "5100", "account_name": "Materials", "amount": 4000}], "total_cogs": 4000},
		"operating_expenses": {
			"administrative": {"items": [{"account_code": "6100", "account_name": "Salaries", "amount": 1500}], "subtotal": 1500},
			"selling_marketing": {"items": [{"account_code": "6200", "account_name": "Ads", "amount": 500}], "subtotal": 500},
			"total_opex": 2000
		},
		"tax_expense": 1000
	}`)

	report := Normalize(ProfitLoss, payload)
	require.False(t, report.Error)
	require.True(t, report.HasData)
	assert.Equal(t, ShapeEnhanced, report.Shape)
	assert.Equal(t, "01 Jan 2025 - 31 Jan 2025", report.Period)

	names := make([]string, 0, len(report.Sections))
	for _, s := range report.Sections {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"REVENUE", "COST OF GOODS SOLD", "GROSS PROFIT", "OPERATING EXPENSES", "OPERATING PERFORMANCE", "NET INCOME"}, names)

	revenue := report.Sections[0]
	require.Len(t, revenue.Subsections, 2)
	assert.Equal(t, "Sales Revenue", revenue.Subsections[0].Name)
	assert.False(t, revenue.IsCalculated)
	assert.True(t, report.Sections[2].IsCalculated)

	assertDecimal(t, "6000", report.Totals["gross_profit"])
	assertDecimal(t, "4000", report.Totals["operating_income"])
	assertDecimal(t, "3000", report.Totals["net_income"])

	gross := report.Sections[2]
	require.Len(t, gross.Items, 2)
	assert.True(t, gross.Items[1].IsPercentage)
	assertDecimal(t, "60", gross.Items[1].Amount)

	net := report.Sections[5]
	last := net.Items[len(net.Items)-1]
	assert.Equal(t, "Net Income Margin", last.Name)
	assertDecimal(t, "30", last.Amount)
	assertReconciled(t, report)
}

func TestProfitLossLegacyOmitsEmptyBlocks(t *testing.T) {
	payload := decode(t, `{"revenue": [{"account_code": "4000", "account_name": "Sales", "balance": 1200}], "expenses": []}`)

	report := Normalize(ProfitLoss, payload)
	require.True(t, report.HasData)
	assert.Equal(t, ShapeLegacy, report.Shape)
	for _, s := range report.Sections {
		assert.NotEqual(t, "COST OF GOODS SOLD", s.Name)
		assert.NotEqual(t, "OPERATING EXPENSES", s.Name)
	}
	assertDecimal(t, "1200", report.Totals["net_income"])
}

func TestGeneralLedgerZeroAccounts(t *testing.T) {
	report := Normalize(GeneralLedger, decode(t, `{"account_count": 0, "start_date": "2025-01-01", "end_date": "2025-01-31"}`))

	assert.False(t, report.Error)
	assert.False(t, report.HasData)
	assert.Empty(t, report.Sections)
	assert.NotNil(t, report.Sections)
	assert.Equal(t, "No transactions found for the selected period", report.Message)
}

func TestGeneralLedgerClosingBalanceAliases(t *testing.T) {
	for _, key := range []string{"closing_balance", "ending_balance", "closingBalance", "endingBalance"} {
		t.Run(key, func(t *testing.T) {
			payload := decode(t, fmt.Sprintf(`{"accounts": [{
				"account_code": "1101", "account_name": "Cash", "opening_balance": 100, %q: 150,
				"transactions": [
					{"date": "2025-01-05", "reference": "JE-1", "description": "Receipt", "debit": 80, "credit": 0},
					{"date": "2025-01-06", "reference": "JE-2", "debit": 0, "credit": 30}
				]
			}]}`, key))

			report := Normalize(GeneralLedger, payload)
			require.True(t, report.HasData)
			require.Len(t, report.Sections, 1)
			section := report.Sections[0]
			assert.Equal(t, "1101 - Cash", section.Name)
			assertDecimal(t, "150", section.Total)
			require.Len(t, section.Items, 2)
			assert.Equal(t, "05 Jan 2025 - JE-1 - Receipt", section.Items[0].Name)
			assertDecimal(t, "-30", section.Items[1].Amount)
			assertReconciled(t, report)
		})
	}
}

func TestGeneralLedgerSingleAccountEntries(t *testing.T) {
	payload := decode(t, `{"account_name": "Bank", "entries": [{"debit_amount": 10, "credit_amount": 0}]}`)
	report := Normalize(GeneralLedger, payload)
	assert.Equal(t, ShapeSingleAccount, report.Shape)
	require.Len(t, report.Sections, 1)
	assert.Equal(t, "Transaction", report.Sections[0].Items[0].Name)
	assertDecimal(t, "10", report.Sections[0].Total)
}

func TestGeneralLedgerBalanceWithoutTransactionsHasData(t *testing.T) {
	payload := decode(t, `{"accounts": [{"account_code": "1101", "account_name": "Cash",
		"opening_balance": 500, "closing_balance": 500, "transactions": []}]}`)
	report := Normalize(GeneralLedger, payload)

	assert.False(t, report.Error)
	assert.True(t, report.HasData)
	assert.Empty(t, report.Message)
	require.Len(t, report.Sections, 1)
	assert.Empty(t, report.Sections[0].Items)
	assertDecimal(t, "500", report.Sections[0].Total)
	assertDecimal(t, "500", report.Totals["closing_balance"])

	idle := Normalize(GeneralLedger, decode(t, `{"accounts": [{"account_code": "1102", "transactions": []}]}`))
	assert.False(t, idle.HasData)
	assert.Equal(t, "No transactions found for the selected period", idle.Message)
}

func journalEntries(count, dates int) []any {
	entries := make([]any, 0, count)
	for i := 0; i < count; i++ {
		day := i%dates + 1
		entry := map[string]any{
			"entry_date":     fmt.Sprintf("2025-03-%02dT09:00:00Z", day),
			"code":           fmt.Sprintf("JE-%03d", i+1),
			"total_debit":    json.Number("100"),
			"total_credit":   json.Number("100"),
			"is_balanced":    i%5 != 0,
			"status":         "posted",
			"reference_type": "manual",
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestJournalAnalysisCapsToTenGroups(t *testing.T) {
	report := Normalize(JournalEntryAnalysis, journalEntries(15, 12))

	require.False(t, report.Error)
	require.True(t, report.HasData)
	require.Len(t, report.Sections, journalPreviewGroups)
	assert.Equal(t, "Journal Entries - 12 Mar 2025", report.Sections[0].Name)
	assert.Equal(t, "Journal Entries - 03 Mar 2025", report.Sections[9].Name)

	require.NotNil(t, report.Preview)
	assert.Equal(t, 12, report.Preview.TotalGroups)
	assert.True(t, report.Preview.Truncated)

	summary := report.FinancialSummary
	require.NotNil(t, summary)
	assert.Equal(t, 15, summary.TotalEntries)
	assert.Equal(t, 12, summary.BalancedEntries)
	assert.Equal(t, 3, summary.UnbalancedEntries)
	assert.Equal(t, "80.0", summary.BalanceAccuracy)
	assertDecimal(t, "1500", summary.TotalDebit)
	assert.Equal(t, 15, summary.StatusCounts["posted"])
	assertReconciled(t, report)
}

func TestJournalAnalysisFirstDateFieldWins(t *testing.T) {
	payload := decode(t, `{"entries": [
		{"transaction_date": "2025-02-01", "date": "2025-05-01", "code": "A", "debit_amount": 5, "credit_amount": 5},
		{"date": "2025-04-01", "code": "B", "debit_amount": 1, "credit_amount": 2, "status": "draft"}
	]}`)
	report := Normalize(JournalEntryAnalysis, payload)
	require.Len(t, report.Sections, 2)
	assert.Equal(t, "Journal Entries - 01 Apr 2025", report.Sections[0].Name)
	assert.Equal(t, "B (draft)", report.Sections[0].Items[0].Name)
	assert.Equal(t, "Journal Entries - 01 Feb 2025", report.Sections[1].Name)
	assert.Equal(t, "50.0", report.FinancialSummary.BalanceAccuracy)
}

func TestJournalAnalysisEmpty(t *testing.T) {
	report := Normalize(JournalEntryAnalysis, decode(t, `{"success": true, "data": []}`))
	assert.False(t, report.Error)
	assert.False(t, report.HasData)
	require.NotNil(t, report.FinancialSummary)
	assert.Equal(t, "0", report.FinancialSummary.BalanceAccuracy)
}

func TestJournalAnalysisAggregatePayload(t *testing.T) {
	payload := decode(t, `{"success": true, "data": {
		"total_entries": 5,
		"posted_entries": 4,
		"draft_entries": 1,
		"reversed_entries": 0,
		"total_amount": 750,
		"entries_by_type": [{"source_type": "SALE", "count": 3, "total_amount": 450}, {"source_type": "MANUAL", "count": 2, "total_amount": 300}],
		"entries_by_period": [
			{"period": "2025-01", "start_date": "2025-01-01T00:00:00Z", "count": 2, "total_amount": 300},
			{"period": "2025-02", "start_date": "2025-02-01T00:00:00Z", "count": 3, "total_amount": 450}
		],
		"data_quality_metrics": {"accuracy_score": 96.5}
	}}`)

	report := Normalize(JournalEntryAnalysis, payload)
	require.False(t, report.Error, report.Message)
	require.True(t, report.HasData)
	assert.Equal(t, ShapeSSOT, report.Shape)
	require.Len(t, report.Sections, 2)
	assert.Equal(t, "Journal Entries - 01 Feb 2025", report.Sections[0].Name)
	assert.Equal(t, "3 entries", report.Sections[0].Items[0].Name)
	assertDecimal(t, "450", report.Sections[0].Total)
	assert.Equal(t, "Journal Entries - 01 Jan 2025", report.Sections[1].Name)

	summary := report.FinancialSummary
	require.NotNil(t, summary)
	assert.Equal(t, 5, summary.TotalEntries)
	assert.Equal(t, 4, summary.StatusCounts["posted"])
	assert.Equal(t, 1, summary.StatusCounts["draft"])
	assert.NotContains(t, summary.StatusCounts, "reversed")
	assert.Equal(t, 3, summary.ReferenceTypeCounts["SALE"])
	assertDecimal(t, "750", summary.TotalDebit)
	assert.Equal(t, "96.5", summary.BalanceAccuracy)
	assert.False(t, report.Preview.Truncated)
	assertReconciled(t, report)
}

func TestJournalAnalysisAggregateWithoutEntries(t *testing.T) {
	report := Normalize(JournalEntryAnalysis, decode(t, `{"total_entries": 0, "entries_by_period": []}`))
	assert.False(t, report.Error)
	assert.False(t, report.HasData)
	assert.Equal(t, "No journal entries found for the selected period", report.Message)
}

func TestBalanceSheetSSOTTotals(t *testing.T) {
	payload := decode(t, `{
		"assets": {"total_assets": 5000},
		"liabilities": {"total_liabilities": 2000},
		"equity": {"total_equity": 3000}
	}`)

	report := Normalize(BalanceSheet, payload)
	require.False(t, report.Error)
	assert.Equal(t, ShapeSSOT, report.Shape)
	require.Len(t, report.Sections, 3)
	require.NotNil(t, report.Balance)
	assert.True(t, report.Balance.IsBalanced)
	assertDecimal(t, "0", report.Balance.Difference)
	assert.True(t, report.HasData)
}

func TestBalanceSheetSSOTSubsections(t *testing.T) {
	payload := decode(t, `{"data": {
		"as_of_date": "2025-06-30",
		"company": {"name": "Acme Ltd", "tax_number": "01.234"},
		"assets": {
			"current_assets": {"cash": 1500, "receivables": 500, "total_current_assets": 2000},
			"non_current_assets": {"items": [{"account_code": "1500", "account_name": "Equipment", "amount": 3000}], "total_non_current_assets": 3000},
			"total_assets": 5000
		},
		"liabilities": {"current_liabilities": {"accounts_payable": 1000, "total_current_liabilities": 1000}, "total_liabilities": 1000},
		"equity": {"share_capital": 3500, "retained_earnings": 400, "total_equity": 3900},
		"balance_difference": 100,
		"is_balanced": false
	}, "status": "ok"}`)

	report := Normalize(BalanceSheet, payload)
	require.False(t, report.Error)
	assert.Equal(t, "As of 30 Jun 2025", report.Period)
	require.NotNil(t, report.CompanyInfo)
	assert.Equal(t, "Acme Ltd", report.CompanyInfo.Name)

	assets := report.Sections[0]
	require.Len(t, assets.Subsections, 2)
	assert.Equal(t, "Current Assets", assets.Subsections[0].Name)
	require.Len(t, assets.Subsections[0].Items, 2)
	assert.Equal(t, "Cash", assets.Subsections[0].Items[0].Name)

	assert.False(t, report.Balance.IsBalanced)
	assert.False(t, report.Balance.Recomputed)
	assertDecimal(t, "100", report.Balance.Difference)
	assert.Equal(t, "Balance sheet is out of balance by 100.00", report.Message)
	assertReconciled(t, report)
}

func TestBalanceSheetLegacyRecompute(t *testing.T) {
	payload := decode(t, `{
		"assets": [{"account_code": "1000", "account_name": "Cash", "balance": 900}],
		"liabilities": [{"account_code": "2000", "account_name": "AP", "balance": 400}],
		"equity": [{"account_code": "3000", "account_name": "Capital", "balance": 499.995}]
	}`)
	report := Normalize(BalanceSheet, payload)
	assert.Equal(t, ShapeLegacy, report.Shape)
	assert.True(t, report.Balance.IsBalanced)
	assert.True(t, report.Balance.Recomputed)
	assert.Empty(t, report.Message)
}

func TestBalanceSheetLegacyRecordSides(t *testing.T) {
	cases := []struct {
		name     string
		raw      string
		balanced bool
		diff     string
	}{
		{
			name: "balanced",
			raw: `{
				"assets": {"items": [{"account_code": "1000", "account_name": "Cash", "balance": 600}, {"account_code": "1200", "account_name": "Stock", "balance": 400}], "total": 1000},
				"liabilities": {"items": [{"account_code": "2000", "account_name": "AP", "balance": 300}], "total": 300},
				"equity": {"items": [{"account_code": "3000", "account_name": "Capital", "balance": 700}], "total": 700}
			}`,
			balanced: true,
			diff:     "0",
		},
		{
			name: "within tolerance",
			raw: `{
				"assets": {"items": [{"account_code": "1000", "account_name": "Cash", "balance": 250.005}], "total": 250.005},
				"liabilities": {"items": [], "total": 0},
				"equity": {"items": [{"account_code": "3000", "account_name": "Capital", "balance": 250}], "total": 250}
			}`,
			balanced: true,
			diff:     "0.005",
		},
		{
			name: "out of balance",
			raw: `{
				"assets": {"items": [{"account_code": "1000", "account_name": "Cash", "balance": 900}], "total": 900},
				"liabilities": {"items": [{"account_code": "2000", "account_name": "AP", "balance": 100}], "total": 100},
				"equity": {"items": [{"account_code": "3000", "account_name": "Capital", "balance": 700}], "total": 700}
			}`,
			balanced: false,
			diff:     "100",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			report := Normalize(BalanceSheet, decode(t, tc.raw))
			require.False(t, report.Error)
			assert.Equal(t, ShapeLegacy, report.Shape)
			require.Len(t, report.Sections, 3)
			require.NotNil(t, report.Balance)
			assert.Equal(t, tc.balanced, report.Balance.IsBalanced)
			assert.True(t, report.Balance.Recomputed)
			assertDecimal(t, tc.diff, report.Balance.Difference)
			assertReconciled(t, report)

			out, err := json.Marshal(report)
			require.NoError(t, err)
			assert.Contains(t, string(out), `"balanceDifference":"`+decimal.RequireFromString(tc.diff).String()+`"`)
			assert.Contains(t, string(out), fmt.Sprintf(`"isBalanced":%t`, tc.balanced))
		})
	}
}

func TestCashFlowLegacyActivities(t *testing.T) {
	payload := decode(t, `{
		"operating_activities": {"items": [{"description": "Customer receipts", "amount": 700}], "total": 700},
		"financing_activities": {"items": [{"description": "Loan repayment", "amount": -200}], "total": -200},
		"beginning_cash": 1000
	}`)
	report := Normalize(CashFlow, payload)
	require.True(t, report.HasData)
	require.Len(t, report.Sections, 3)
	assert.Equal(t, "OPERATING ACTIVITIES", report.Sections[0].Name)
	assert.Equal(t, "FINANCING ACTIVITIES", report.Sections[1].Name)

	summary := report.Sections[2]
	assert.True(t, summary.IsCalculated)
	assertDecimal(t, "500", summary.Total)
	assertDecimal(t, "1500", summary.Items[2].Amount)
	assertReconciled(t, report)
}

func TestCashFlowSectionsPassThrough(t *testing.T) {
	payload := decode(t, `{"sections": [
		{"name": "Operating", "items": [{"account_code": "1101", "name": "Cash in", "amount": 50}], "total": 50},
		{"name": "Net", "items": [], "total": 50, "is_calculated": true}
	]}`)
	report := Normalize(CashFlow, payload)
	assert.Equal(t, ShapeSections, report.Shape)
	require.Len(t, report.Sections, 2)
	assert.Equal(t, "1101", report.Sections[0].Items[0].AccountCode)
	assert.True(t, report.Sections[1].IsCalculated)
}

func TestSalesSummaryPeriods(t *testing.T) {
	payload := decode(t, `{
		"total_revenue": 300,
		"sales_by_period": [{"period": "2025-01", "amount": 100}, {"period": "2025-02", "amount": 200}],
		"sales_by_customer": [{"customer_name": "Globex", "total_amount": 300}]
	}`)
	report := Normalize(SalesSummary, payload)
	require.True(t, report.HasData)
	require.Len(t, report.Sections, 2)
	assert.Equal(t, "SALES BY PERIOD", report.Sections[0].Name)
	assert.Equal(t, "2025-01", report.Sections[0].Items[0].Name)
	assert.Equal(t, "SALES BY CUSTOMER", report.Sections[1].Name)
	assertDecimal(t, "300", report.Totals["total_revenue"])
	assertReconciled(t, report)
}

func TestSalesSummaryAverages(t *testing.T) {
	report := Normalize(SalesSummary, decode(t, `{
		"total_revenue": 1000,
		"total_transactions": 3,
		"sales_by_period": [{"period": "2025-01", "amount": 400}, {"period": "2025-02", "amount": 200}, {"period": "2025-03", "amount": 400}]
	}`))
	assertDecimal(t, "333.33", report.Totals["average_per_period"])
	assertDecimal(t, "3", report.Totals["total_transactions"])
	assertDecimal(t, "333.33", report.Totals["average_per_transaction"])

	report = Normalize(VendorAnalysis, decode(t, `{
		"total_purchases": 500, "transaction_count": 0, "average_order_value": 125,
		"purchases_by_period": [{"period": "2025-01", "amount": 500}]
	}`))
	assertDecimal(t, "500", report.Totals["average_per_period"])
	assertDecimal(t, "125", report.Totals["average_per_transaction"])
}

func TestVendorAnalysisEmptyPeriods(t *testing.T) {
	report := Normalize(VendorAnalysis, decode(t, `{"total_purchases": 0, "purchases_by_period": []}`))
	assert.False(t, report.Error)
	assert.False(t, report.HasData)
	assert.Equal(t, "No purchases recorded for the selected period", report.Message)
	assert.Equal(t, "PURCHASES BY PERIOD", report.Sections[0].Name)
}

func TestVendorAnalysisMonthlyPurchaseReport(t *testing.T) {
	payload := decode(t, `{"success": true, "data": {
		"currency": "IDR",
		"total_purchases": 4,
		"completed_purchases": 3,
		"total_amount": 1500000,
		"total_paid": 1000000,
		"outstanding_payables": 500000,
		"purchases_by_vendor": [{"vendor_name": "PT Sumber", "total_purchases": 3, "total_amount": 1200000}],
		"purchases_by_month": [
			{"year": 2025, "month": 1, "month_name": "January", "total_purchases": 3, "total_amount": 900000},
			{"year": 2025, "month": 2, "total_purchases": 1, "total_amount": 600000}
		],
		"payment_analysis": {"average_order_value": 375000}
	}}`)

	report := Normalize(VendorAnalysis, payload)
	require.False(t, report.Error)
	require.True(t, report.HasData)
	assert.Equal(t, ShapeSSOT, report.Shape)
	require.Len(t, report.Sections, 2)

	months := report.Sections[0]
	require.Len(t, months.Items, 2)
	assert.Equal(t, "January 2025", months.Items[0].Name)
	assertDecimal(t, "900000", months.Items[0].Amount)
	assert.Equal(t, "2025-02", months.Items[1].Name)
	assertDecimal(t, "1500000", months.Total)

	assert.Equal(t, "PURCHASES BY VENDOR", report.Sections[1].Name)
	assertDecimal(t, "1200000", report.Sections[1].Items[0].Amount)

	assertDecimal(t, "1500000", report.Totals["total_purchases"])
	assertDecimal(t, "4", report.Totals["total_transactions"])
	assertDecimal(t, "375000", report.Totals["average_per_transaction"])
	assertDecimal(t, "750000", report.Totals["average_per_period"])
	assertDecimal(t, "500000", report.Totals["outstanding_payables"])
	assertReconciled(t, report)
}

func TestNormalizeNeverPanics(t *testing.T) {
	inputs := []string{
		`{}`, `null`, `[]`, `"text"`, `42`, `true`,
		`{"assets": null, "liabilities": [1, "x", null], "equity": "n/a"}`,
		`{"accounts": [1, 2, "three", null, {"account_code": null}]}`,
		`{"entries": [null, 1, {"entry_date": 12345}]}`,
		`{"revenue": [null], "operating_expenses": {"administrative": "x"}}`,
		`{"sections": [null, {"items": "nope"}]}`,
		`{"sales_by_period": [{"period": null}], "purchases_by_period": {}}`,
		`{"account_count": "0"}`,
	}
	for _, raw := range inputs {
		payload := decode(t, raw)
		for _, rt := range ReportTypes {
			assert.NotPanics(t, func() {
				report := Normalize(rt, payload)
				assert.NotNil(t, report.Sections)
				if report.Error {
					assert.NotEmpty(t, report.Message)
				}
			}, "%s %s", rt, raw)
		}
	}
}

func TestNormalizeUnrecognizedShape(t *testing.T) {
	for _, rt := range ReportTypes {
		report := Normalize(rt, decode(t, `{"unrelated": true}`))
		assert.True(t, report.Error, rt)
		assert.Equal(t, ShapeUnknown, report.Shape, rt)
		assert.False(t, report.HasData, rt)
	}
	report := Normalize(ReportType("AGED_RECEIVABLES"), map[string]any{})
	assert.True(t, report.Error)
}

func TestNormalizeIsIdempotent(t *testing.T) {
	raw := `{"accounts": [{"account_code": "1", "account_name": "A", "opening_balance": 5, "transactions": [{"debit": 3}]}]}`
	payload := decode(t, raw)
	first, err := json.Marshal(Normalize(GeneralLedger, payload))
	require.NoError(t, err)
	second, err := json.Marshal(Normalize(GeneralLedger, payload))
	require.NoError(t, err)
	assert.JSONEq(t, string(first), string(second))

	again, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(again), "input must not be mutated")
}

func TestWithFormatterChangesLabels(t *testing.T) {
	n := New(WithFormatter(NewFormatter("en", "Rp", "2006-01-02")))
	report := n.Normalize(BalanceSheet, decode(t, `{"assets": {"total_assets": 10}, "liabilities": {"total_liabilities": 2}, "equity": {"total_equity": 3}, "as_of_date": "2025-01-31"}`))
	assert.Equal(t, "As of 2025-01-31", report.Period)
	assert.True(t, strings.HasPrefix(report.Message, "Balance sheet is out of balance by Rp 5.00"), report.Message)
}

func TestReconcileFlagsMismatch(t *testing.T) {
	report := NormalizedReport{Sections: []Section{
		{Name: "REVENUE", Items: []LineItem{{Name: "Sales", Amount: decimal.NewFromInt(10)}}, Total: decimal.NewFromInt(12)},
		{Name: "GROSS PROFIT", IsCalculated: true, Total: decimal.NewFromInt(99)},
		{Name: "ASSETS", Subsections: []Section{
			{Name: "Current Assets", Items: []LineItem{{Name: "Cash", Amount: decimal.NewFromInt(5)}}, Total: decimal.NewFromInt(5)},
		}, Total: decimal.NewFromInt(5)},
	}}
	got := Reconcile(report)
	require.Len(t, got, 1)
	assert.Equal(t, "REVENUE", got[0].Section)
	assertDecimal(t, "10", got[0].Expected)
	assertDecimal(t, "12", got[0].Actual)
}
