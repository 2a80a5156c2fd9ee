// Package reports fetches report payloads from the upstream reporting API and
// serves normalized, cached results to HTTP handlers and background jobs.
package reports

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/finreports/internal/normalize"
)

var (
	// ErrUpstream indicates the reporting API failed or answered with an error status.
	ErrUpstream = errors.New("reports: upstream request failed")
	// ErrInvalidRequest indicates a request failed validation.
	ErrInvalidRequest = errors.New("reports: invalid request")
)

var validate = validator.New()

// Request selects one report from the upstream API.
type Request struct {
	Type      normalize.ReportType `validate:"required"`
	StartDate string               `validate:"omitempty,datetime=2006-01-02"`
	EndDate   string               `validate:"omitempty,datetime=2006-01-02"`
	AsOfDate  string               `validate:"omitempty,datetime=2006-01-02"`
}

// Validate checks field formats and that the type is supported.
func (r Request) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidRequest, describeValidation(err))
	}
	if _, err := normalize.ParseReportType(string(r.Type)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if r.StartDate != "" && r.EndDate != "" && r.StartDate > r.EndDate {
		return fmt.Errorf("%w: start_date is after end_date", ErrInvalidRequest)
	}
	return nil
}

// CurrentPeriod returns the month-to-date request for t. Point-in-time reports
// use now as the as-of date.
func CurrentPeriod(t normalize.ReportType, now time.Time) Request {
	day := now.Format(time.DateOnly)
	if t == normalize.BalanceSheet {
		return Request{Type: t, AsOfDate: day}
	}
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return Request{Type: t, StartDate: start.Format(time.DateOnly), EndDate: day}
}

func (r Request) cacheParts() []string {
	return []string{"reports", string(r.Type), dash(r.StartDate), dash(r.EndDate), dash(r.AsOfDate)}
}

func dash(v string) string {
	if v == "" {
		return "-"
	}
	return v
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, ", ")
}
