package normalize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// balanceTolerance is the largest difference still classified as balanced.
var balanceTolerance = decimal.New(1, -2)

var hundred = decimal.NewFromInt(100)

// SafeDivide returns numerator/denominator, or zero when the denominator is zero.
func SafeDivide(numerator, denominator decimal.Decimal) decimal.Decimal {
	if denominator.IsZero() {
		return decimal.Zero
	}
	return numerator.Div(denominator)
}

// SafeCurrency coerces any decoded JSON value into a decimal. Missing, non-numeric
// and non-finite values become zero. Numeric strings are accepted because the
// reporting API serialises decimals as strings.
func SafeCurrency(v any) decimal.Decimal {
	switch val := v.(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		return val
	case *decimal.Decimal:
		if val == nil {
			return decimal.Zero
		}
		return *val
	case json.Number:
		d, err := decimal.NewFromString(val.String())
		if err != nil {
			return decimal.Zero
		}
		return d
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(val))
		if err != nil {
			return decimal.Zero
		}
		return d
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return decimal.Zero
		}
		return decimal.NewFromFloat(val)
	case float32:
		f := float64(val)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return decimal.Zero
		}
		return decimal.NewFromFloat32(val)
	case int:
		return decimal.NewFromInt(int64(val))
	case int32:
		return decimal.NewFromInt32(val)
	case int64:
		return decimal.NewFromInt(val)
	case uint:
		return decimal.NewFromUint64(uint64(val))
	case uint32:
		return decimal.NewFromUint64(uint64(val))
	case uint64:
		return decimal.NewFromUint64(val)
	default:
		return decimal.Zero
	}
}

// FirstPresentField returns the value of the first candidate key holding a
// non-null value. It is the single place where naming variants across backend
// versions are resolved.
func FirstPresentField(rec map[string]any, keys ...string) (any, bool) {
	if rec == nil {
		return nil, false
	}
	for _, key := range keys {
		if v, ok := rec[key]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func asRecord(v any) (map[string]any, bool) {
	rec, ok := v.(map[string]any)
	return rec, ok
}

func asList(v any) ([]any, bool) {
	list, ok := v.([]any)
	return list, ok
}

func hasAnyField(rec map[string]any, keys ...string) bool {
	_, ok := FirstPresentField(rec, keys...)
	return ok
}

func recordField(rec map[string]any, keys ...string) (map[string]any, bool) {
	for _, key := range keys {
		if v, ok := FirstPresentField(rec, key); ok {
			if child, ok := asRecord(v); ok {
				return child, true
			}
		}
	}
	return nil, false
}

func listField(rec map[string]any, keys ...string) ([]any, bool) {
	for _, key := range keys {
		if v, ok := FirstPresentField(rec, key); ok {
			if list, ok := asList(v); ok {
				return list, true
			}
		}
	}
	return nil, false
}

func amountField(rec map[string]any, keys ...string) (decimal.Decimal, bool) {
	v, ok := FirstPresentField(rec, keys...)
	if !ok {
		return decimal.Zero, false
	}
	return SafeCurrency(v), true
}

func amountOr(rec map[string]any, fallback decimal.Decimal, keys ...string) decimal.Decimal {
	if v, ok := amountField(rec, keys...); ok {
		return v
	}
	return fallback
}

func stringField(rec map[string]any, keys ...string) string {
	v, ok := FirstPresentField(rec, keys...)
	if !ok {
		return ""
	}
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	}
	return ""
}

func boolField(rec map[string]any, keys ...string) (bool, bool) {
	v, ok := FirstPresentField(rec, keys...)
	if !ok {
		return false, false
	}
	switch val := v.(type) {
	case bool:
		return val, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(val))
		if err != nil {
			return false, false
		}
		return b, true
	case json.Number, float64, float32, int, int32, int64, uint, uint32, uint64:
		return !SafeCurrency(val).IsZero(), true
	}
	return false, false
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseDate(v any) (time.Time, bool) {
	raw, ok := v.(string)
	if !ok {
		return time.Time{}, false
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	if len(raw) > 10 {
		if t, err := time.Parse("2006-01-02", raw[:10]); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func dateField(rec map[string]any, keys ...string) (time.Time, bool) {
	for _, key := range keys {
		v, ok := FirstPresentField(rec, key)
		if !ok {
			continue
		}
		if t, ok := parseDate(v); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

// unwrapEnvelope strips the {"status": ..., "data": {...}} wrapper the
// reporting API puts around most responses.
func unwrapEnvelope(v any) any {
	rec, ok := asRecord(v)
	if !ok {
		return v
	}
	data, ok := rec["data"]
	if !ok || data == nil {
		return v
	}
	if !hasAnyField(rec, "success", "status") {
		return v
	}
	switch data.(type) {
	case map[string]any, []any:
		return data
	}
	return v
}

func companyInfo(rec map[string]any) *CompanyInfo {
	company, ok := recordField(rec, "company", "company_info", "companyInfo")
	if !ok {
		return nil
	}
	info := CompanyInfo{
		Name:       stringField(company, "name", "company_name"),
		Address:    stringField(company, "address"),
		City:       stringField(company, "city"),
		State:      stringField(company, "state"),
		PostalCode: stringField(company, "postal_code", "postalCode"),
		Phone:      stringField(company, "phone"),
		Email:      stringField(company, "email"),
		Website:    stringField(company, "website"),
		TaxNumber:  stringField(company, "tax_number", "tax_id", "taxNumber"),
	}
	if info == (CompanyInfo{}) {
		return nil
	}
	return &info
}

func periodLabel(rec map[string]any, f Formatter) string {
	start, hasStart := dateField(rec, "start_date", "startDate", "period_start")
	end, hasEnd := dateField(rec, "end_date", "endDate", "period_end")
	switch {
	case hasStart && hasEnd:
		return f.Date(start) + " - " + f.Date(end)
	case hasStart:
		return "From " + f.Date(start)
	}
	if asOf, ok := dateField(rec, "as_of_date", "asOfDate"); ok {
		return "As of " + f.Date(asOf)
	}
	if hasEnd {
		return "As of " + f.Date(end)
	}
	return stringField(rec, "period")
}

func percentOf(value, base decimal.Decimal) decimal.Decimal {
	return SafeDivide(value.Mul(hundred), base).Round(2)
}

func withinTolerance(d decimal.Decimal) bool {
	return d.Abs().LessThanOrEqual(balanceTolerance)
}

func accountLabel(code, name string) string {
	switch {
	case code != "" && name != "":
		return code + " - " + name
	case name != "":
		return name
	}
	return code
}
