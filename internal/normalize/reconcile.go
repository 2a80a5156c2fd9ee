package normalize

import "github.com/shopspring/decimal"

// Discrepancy records a section whose stated total disagrees with its rows.
type Discrepancy struct {
	Section    string          `json:"section"`
	Subsection string          `json:"subsection,omitempty"`
	Expected   decimal.Decimal `json:"expected"`
	Actual     decimal.Decimal `json:"actual"`
}

// Reconcile compares every non-calculated section total against its rows and
// returns the sections that differ by more than 0.01. Upstream totals stay
// authoritative; the result is a report, never a correction.
//
// Ledger sections (those with an opening balance) are expected to close at
// opening plus amounts. Sections whose rows all carry a debit are expected to
// total the debits. Anything else sums plain amounts. Subsection totals count
// towards their parent.
func Reconcile(report NormalizedReport) []Discrepancy {
	var out []Discrepancy
	for _, s := range report.Sections {
		out = append(out, reconcileSection(s, "")...)
	}
	return out
}

func reconcileSection(s Section, parent string) []Discrepancy {
	if s.IsCalculated || (len(s.Items) == 0 && len(s.Subsections) == 0) {
		return nil
	}
	var out []Discrepancy
	for _, sub := range s.Subsections {
		out = append(out, reconcileSection(sub, s.Name)...)
	}

	expected := expectedTotal(s)
	if !withinTolerance(expected.Sub(s.Total)) {
		d := Discrepancy{Section: s.Name, Expected: expected, Actual: s.Total}
		if parent != "" {
			d.Section, d.Subsection = parent, s.Name
		}
		out = append(out, d)
	}
	return out
}

func expectedTotal(s Section) decimal.Decimal {
	if s.OpeningBalance != nil {
		return s.OpeningBalance.Add(sumItems(s.Items))
	}
	allDebits := len(s.Items) > 0
	for _, item := range s.Items {
		if item.Debit == nil {
			allDebits = false
			break
		}
	}
	if allDebits {
		total := sumSections(s.Subsections)
		for _, item := range s.Items {
			total = total.Add(*item.Debit)
		}
		return total
	}
	return sumItems(s.Items).Add(sumSections(s.Subsections))
}
