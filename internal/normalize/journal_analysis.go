package normalize

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// journalPreviewGroups caps how many date groups are rendered. It is a display
// limit: FinancialSummary still aggregates every entry, and Preview reports how
// many groups were left out.
const journalPreviewGroups = 10

type journalEntry struct {
	date     time.Time
	dated    bool
	item     LineItem
	debit    decimal.Decimal
	credit   decimal.Decimal
	balanced bool
	status   string
	refType  string
}

type journalGroup struct {
	date    time.Time
	dated   bool
	entries []journalEntry
}

func (n *Normalizer) journalAnalysis(payload any) NormalizedReport {
	rec := map[string]any{}
	list, ok := asList(payload)
	if !ok {
		if rec, ok = asRecord(payload); ok {
			list, ok = listField(rec, "entries", "journal_entries", "journals", "data", "items")
		}
	}
	if !ok {
		if hasAnyField(rec, journalAggregateKeys...) {
			return n.journalAggregate(rec)
		}
		return unrecognized(JournalEntryAnalysis, "journal analysis payload carries no entries list")
	}

	report := n.header(JournalEntryAnalysis, rec)
	report.Shape = ShapeEntries

	entries := make([]journalEntry, 0, len(list))
	for _, raw := range list {
		if r, ok := asRecord(raw); ok {
			entries = append(entries, n.journalEntry(r))
		}
	}

	groups := groupJournalEntries(entries)
	shown := groups
	if len(shown) > journalPreviewGroups {
		shown = shown[:journalPreviewGroups]
	}
	for _, g := range shown {
		report.Sections = append(report.Sections, n.journalSection(g))
	}
	report.Preview = &Preview{
		ShownGroups: len(shown),
		TotalGroups: len(groups),
		Truncated:   len(groups) > len(shown),
	}
	report.FinancialSummary = summariseJournal(entries)

	report.HasData = len(entries) > 0
	if !report.HasData {
		report.Message = "No journal entries found for the selected period"
	}
	return report
}

func (n *Normalizer) journalEntry(rec map[string]any) journalEntry {
	e := journalEntry{
		debit:   amountOr(rec, decimal.Zero, "total_debit", "debit_amount", "debit"),
		credit:  amountOr(rec, decimal.Zero, "total_credit", "credit_amount", "credit"),
		status:  stringField(rec, "status"),
		refType: stringField(rec, "reference_type", "referenceType", "source_type"),
	}
	// First non-null date field wins even if a later one would parse.
	if v, ok := FirstPresentField(rec, "entry_date", "transaction_date", "date"); ok {
		e.date, e.dated = parseDate(v)
		if e.dated {
			e.date = time.Date(e.date.Year(), e.date.Month(), e.date.Day(), 0, 0, 0, 0, time.UTC)
		}
	}
	if balanced, ok := boolField(rec, "is_balanced", "isBalanced"); ok {
		e.balanced = balanced
	} else {
		e.balanced = withinTolerance(e.debit.Sub(e.credit))
	}

	label := stringField(rec, "code", "reference", "entry_number", "journal_code")
	if desc := stringField(rec, "description", "memo"); desc != "" {
		if label != "" {
			label += " - "
		}
		label += desc
	}
	if label == "" {
		label = "Journal Entry"
	}
	if e.status != "" {
		label += " (" + e.status + ")"
	}
	e.item = LineItem{
		Name:        label,
		AccountCode: stringField(rec, "code", "reference"),
		Amount:      e.debit,
		Debit:       decimalPtr(e.debit),
		Credit:      decimalPtr(e.credit),
	}
	return e
}

// groupJournalEntries buckets entries by calendar day, newest first. Undated
// entries form one trailing group.
func groupJournalEntries(entries []journalEntry) []journalGroup {
	index := make(map[time.Time]int)
	var groups []journalGroup
	undated := -1
	for _, e := range entries {
		if !e.dated {
			if undated < 0 {
				undated = len(groups)
				groups = append(groups, journalGroup{})
			}
			groups[undated].entries = append(groups[undated].entries, e)
			continue
		}
		i, ok := index[e.date]
		if !ok {
			i = len(groups)
			index[e.date] = i
			groups = append(groups, journalGroup{date: e.date, dated: true})
		}
		groups[i].entries = append(groups[i].entries, e)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].dated != groups[j].dated {
			return groups[i].dated
		}
		return groups[i].date.After(groups[j].date)
	})
	return groups
}

func (n *Normalizer) journalSection(g journalGroup) Section {
	name := "Journal Entries - Undated"
	if g.dated {
		name = "Journal Entries - " + n.format.Date(g.date)
	}
	section := Section{Name: name, Items: make([]LineItem, 0, len(g.entries))}
	for _, e := range g.entries {
		section.Items = append(section.Items, e.item)
		section.Total = section.Total.Add(e.debit)
	}
	return section
}

func summariseJournal(entries []journalEntry) *FinancialSummary {
	summary := &FinancialSummary{
		TotalEntries:        len(entries),
		TotalDebit:          decimal.Zero,
		TotalCredit:         decimal.Zero,
		StatusCounts:        map[string]int{},
		ReferenceTypeCounts: map[string]int{},
	}
	for _, e := range entries {
		summary.TotalDebit = summary.TotalDebit.Add(e.debit)
		summary.TotalCredit = summary.TotalCredit.Add(e.credit)
		if e.balanced {
			summary.BalancedEntries++
		} else {
			summary.UnbalancedEntries++
		}
		if e.status != "" {
			summary.StatusCounts[e.status]++
		}
		if e.refType != "" {
			summary.ReferenceTypeCounts[e.refType]++
		}
	}
	summary.BalanceAccuracy = "0"
	if summary.TotalEntries > 0 {
		accuracy := SafeDivide(decimal.NewFromInt(int64(summary.BalancedEntries)).Mul(hundred),
			decimal.NewFromInt(int64(summary.TotalEntries)))
		summary.BalanceAccuracy = accuracy.StringFixed(1)
	}
	return summary
}

var journalAggregateKeys = []string{"entries_by_period", "entriesByPeriod", "total_entries", "totalEntries"}

// journalAggregate shapes the SSOT analysis payload, which carries per-period
// counts and amounts instead of entry rows. Each period becomes one date group.
func (n *Normalizer) journalAggregate(rec map[string]any) NormalizedReport {
	report := n.header(JournalEntryAnalysis, rec)
	report.Shape = ShapeSSOT

	periods, _ := listField(rec, "entries_by_period", "entriesByPeriod")
	type bucket struct {
		date   time.Time
		dated  bool
		label  string
		count  int64
		amount decimal.Decimal
	}
	buckets := make([]bucket, 0, len(periods))
	periodTotal := decimal.Zero
	for _, raw := range periods {
		r, ok := asRecord(raw)
		if !ok {
			continue
		}
		b := bucket{label: stringField(r, "period", "label"), amount: amountOr(r, decimal.Zero, "total_amount", "amount")}
		if count, ok := amountField(r, "count", "entry_count"); ok {
			b.count = count.IntPart()
		}
		b.date, b.dated = dateField(r, "start_date", "period_start", "date")
		periodTotal = periodTotal.Add(b.amount)
		buckets = append(buckets, b)
	}
	sort.SliceStable(buckets, func(i, j int) bool {
		if buckets[i].dated != buckets[j].dated {
			return buckets[i].dated
		}
		return buckets[i].date.After(buckets[j].date)
	})

	shown := buckets
	if len(shown) > journalPreviewGroups {
		shown = shown[:journalPreviewGroups]
	}
	for _, b := range shown {
		name := "Journal Entries - "
		switch {
		case b.dated:
			name += n.format.Date(b.date)
		case b.label != "":
			name += b.label
		default:
			name += "Undated"
		}
		section := Section{Name: name, Total: b.amount}
		section.Items = []LineItem{currencyItem(fmt.Sprintf("%d entries", b.count), b.amount)}
		report.Sections = append(report.Sections, section)
	}
	report.Preview = &Preview{
		ShownGroups: len(shown),
		TotalGroups: len(buckets),
		Truncated:   len(buckets) > len(shown),
	}

	summary := &FinancialSummary{
		StatusCounts:        map[string]int{},
		ReferenceTypeCounts: map[string]int{},
		BalanceAccuracy:     "0",
	}
	if total, ok := amountField(rec, "total_entries", "totalEntries"); ok {
		summary.TotalEntries = int(total.IntPart())
	}
	for status, key := range map[string]string{"posted": "posted_entries", "draft": "draft_entries", "reversed": "reversed_entries"} {
		if v, ok := amountField(rec, key); ok && v.IsPositive() {
			summary.StatusCounts[status] = int(v.IntPart())
		}
	}
	if types, ok := listField(rec, "entries_by_type", "entriesByType"); ok {
		for _, raw := range types {
			if r, ok := asRecord(raw); ok {
				if name := stringField(r, "source_type", "reference_type"); name != "" {
					summary.ReferenceTypeCounts[name] += int(amountOr(r, decimal.Zero, "count").IntPart())
				}
			}
		}
	}
	amount := amountOr(rec, periodTotal, "total_amount", "totalAmount")
	summary.TotalDebit, summary.TotalCredit = amount, amount
	if accounts, ok := listField(rec, "entries_by_account", "entriesByAccount"); ok && len(accounts) > 0 {
		summary.TotalDebit, summary.TotalCredit = decimal.Zero, decimal.Zero
		for _, raw := range accounts {
			if r, ok := asRecord(raw); ok {
				summary.TotalDebit = summary.TotalDebit.Add(amountOr(r, decimal.Zero, "total_debit"))
				summary.TotalCredit = summary.TotalCredit.Add(amountOr(r, decimal.Zero, "total_credit"))
			}
		}
	}
	if quality, ok := recordField(rec, "data_quality_metrics", "dataQualityMetrics"); ok {
		if score, ok := amountField(quality, "accuracy_score"); ok {
			summary.BalanceAccuracy = score.StringFixed(1)
		}
	}
	report.FinancialSummary = summary

	report.HasData = summary.TotalEntries > 0 || len(buckets) > 0
	if !report.HasData {
		report.Message = "No journal entries found for the selected period"
	}
	return report
}
