package normalize

import "github.com/shopspring/decimal"

var (
	debitKeys  = []string{"debit_balance", "debit", "debit_total", "total_debit", "debit_amount"}
	creditKeys = []string{"credit_balance", "credit", "credit_total", "total_credit", "credit_amount"}
)

func (n *Normalizer) trialBalance(payload any) NormalizedReport {
	var (
		rec      map[string]any
		accounts []any
		ok       bool
	)
	// Older endpoints return the account rows without a wrapper object.
	if accounts, ok = asList(payload); ok {
		rec = map[string]any{}
	} else if rec, ok = asRecord(payload); ok {
		accounts, ok = listField(rec, "accounts", "trial_balance", "items")
	}
	if !ok {
		return unrecognized(TrialBalance, "trial balance payload carries no accounts list")
	}

	report := n.header(TrialBalance, rec)
	report.Shape = ShapeAccounts

	items := mapItems(accounts, trialBalanceItem)
	debits, credits := decimal.Zero, decimal.Zero
	for _, item := range items {
		debits = debits.Add(*item.Debit)
		credits = credits.Add(*item.Credit)
	}
	totalDebits := amountOr(rec, debits, "total_debits", "total_debit", "totalDebits")
	totalCredits := amountOr(rec, credits, "total_credits", "total_credit", "totalCredits")

	report.Sections = []Section{{Name: "ACCOUNTS", Items: items, Total: totalDebits}}
	check := balanceCheck(rec, totalDebits.Sub(totalCredits))
	report.Balance = &check
	report.Totals = map[string]decimal.Decimal{
		"total_debits":  totalDebits,
		"total_credits": totalCredits,
	}

	report.HasData = len(items) > 0
	if !report.HasData {
		report.Message = "No account balances found for the selected period"
	}
	return report
}

func trialBalanceItem(rec map[string]any) (LineItem, bool) {
	code := stringField(rec, "account_code", "accountCode", "code")
	name := stringField(rec, "account_name", "accountName", "name")
	if code == "" && name == "" {
		return LineItem{}, false
	}
	debit := amountOr(rec, decimal.Zero, debitKeys...)
	credit := amountOr(rec, decimal.Zero, creditKeys...)
	return LineItem{
		Name:        accountLabel(code, name),
		AccountCode: code,
		Amount:      debit.Sub(credit),
		Debit:       decimalPtr(debit),
		Credit:      decimalPtr(credit),
	}, true
}
