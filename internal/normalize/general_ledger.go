package normalize

import (
	"strings"

	"github.com/shopspring/decimal"
)

const noLedgerTransactions = "No transactions found for the selected period"

var (
	openingBalanceKeys = []string{"opening_balance", "beginning_balance", "openingBalance", "beginningBalance"}
	closingBalanceKeys = []string{"closing_balance", "ending_balance", "closingBalance", "endingBalance", "balance"}
)

func detectGeneralLedgerShape(rec map[string]any) Shape {
	if _, ok := listField(rec, "accounts"); ok {
		return ShapeAccounts
	}
	if _, ok := listField(rec, "entries", "transactions"); ok {
		return ShapeSingleAccount
	}
	return ShapeUnknown
}

func (n *Normalizer) generalLedger(payload any) NormalizedReport {
	rec, ok := asRecord(payload)
	if !ok {
		return unrecognized(GeneralLedger, "general ledger payload is not an object")
	}

	report := n.header(GeneralLedger, rec)
	// An explicit zero count is a legitimately empty ledger, not a malformed one.
	if count, ok := amountField(rec, "account_count", "accountCount"); ok && count.IsZero() {
		report.Shape = ShapeAccounts
		report.Message = noLedgerTransactions
		return report
	}

	report.Shape = detectGeneralLedgerShape(rec)
	switch report.Shape {
	case ShapeAccounts:
		accounts, _ := listField(rec, "accounts")
		for _, raw := range accounts {
			if account, ok := asRecord(raw); ok {
				report.Sections = append(report.Sections, n.ledgerSection(account))
			}
		}
	case ShapeSingleAccount:
		report.Sections = append(report.Sections, n.ledgerSection(rec))
	default:
		return unrecognized(GeneralLedger, "general ledger payload carries no accounts or entries")
	}

	report.Totals = map[string]decimal.Decimal{"closing_balance": sumSections(report.Sections)}
	report.HasData = sectionsHaveData(report.Sections)
	if !report.HasData {
		report.Message = noLedgerTransactions
	}
	return report
}

func (n *Normalizer) ledgerSection(account map[string]any) Section {
	code := stringField(account, "account_code", "accountCode", "code")
	name := stringField(account, "account_name", "accountName", "name")
	section := Section{Name: accountLabel(code, name)}
	if section.Name == "" {
		section.Name = "General Ledger"
	}

	rows, _ := listField(account, "transactions", "entries")
	section.Items = mapItems(rows, n.ledgerItem)

	opening := amountOr(account, decimal.Zero, openingBalanceKeys...)
	section.OpeningBalance = decimalPtr(opening)
	section.Total = amountOr(account, opening.Add(sumItems(section.Items)), closingBalanceKeys...)
	return section
}

func (n *Normalizer) ledgerItem(rec map[string]any) (LineItem, bool) {
	debit := amountOr(rec, decimal.Zero, "debit", "debit_amount", "debit_balance")
	credit := amountOr(rec, decimal.Zero, "credit", "credit_amount", "credit_balance")

	parts := make([]string, 0, 3)
	if d, ok := dateField(rec, "date", "transaction_date", "entry_date"); ok {
		parts = append(parts, n.format.Date(d))
	}
	if ref := stringField(rec, "reference", "journal_code", "code", "voucher"); ref != "" {
		parts = append(parts, ref)
	}
	if desc := stringField(rec, "description", "memo", "narration"); desc != "" {
		parts = append(parts, desc)
	}
	label := strings.Join(parts, " - ")
	if label == "" {
		label = "Transaction"
	}

	return LineItem{
		Name:        label,
		AccountCode: stringField(rec, "account_code", "accountCode"),
		Amount:      debit.Sub(credit),
		Debit:       decimalPtr(debit),
		Credit:      decimalPtr(credit),
	}, true
}
