package reporthttp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/finreports/internal/normalize"
	"github.com/odyssey-erp/finreports/internal/platform/httpx"
	"github.com/odyssey-erp/finreports/internal/reports"
)

const (
	maxBodyBytes   = 16 << 20
	requestTimeout = 20 * time.Second
)

// ReportService is the contract the handler needs from reports.Service.
type ReportService interface {
	Report(ctx context.Context, req reports.Request) (normalize.NormalizedReport, error)
	Normalize(ctx context.Context, reportType normalize.ReportType, raw []byte) (normalize.NormalizedReport, error)
	Snapshots(ctx context.Context, limit int) ([]reports.Snapshot, error)
}

// Handler serves normalized reports over HTTP.
type Handler struct {
	logger  *slog.Logger
	service ReportService
	format  normalize.Formatter
	now     func() time.Time
}

// NewHandler constructs the report HTTP handler. format renders amounts in CSV
// metadata lines and may be nil.
func NewHandler(logger *slog.Logger, service ReportService, format normalize.Formatter) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if format == nil {
		format = normalize.NewFormatter("en", "", "")
	}
	return &Handler{logger: logger, service: service, format: format, now: time.Now}
}

// WithNow overrides the handler clock for testing.
func (h *Handler) WithNow(fn func() time.Time) {
	if fn != nil {
		h.now = fn
	}
}

func (h *Handler) handleNormalize(w http.ResponseWriter, r *http.Request) {
	reportType, ok := h.reportType(w, r)
	if !ok {
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpx.Problem(w, http.StatusRequestEntityTooLarge, "Payload Too Large", err.Error())
			return
		}
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "read request body: "+err.Error())
		return
	}
	report, err := h.service.Normalize(r.Context(), reportType, body)
	if err != nil {
		h.respondError(w, "normalize report", err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	report, ok := h.fetch(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) handleCSV(w http.ResponseWriter, r *http.Request) {
	report, ok := h.fetch(w, r)
	if !ok {
		return
	}
	if report.Error {
		httpx.Problem(w, http.StatusBadGateway, "Unrecognized Report", report.Message)
		return
	}
	filename := fmt.Sprintf("%s-%s.csv", report.ReportType.Slug(), h.now().Format("20060102"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := writeReportCSV(w, report, h.format, h.now()); err != nil {
		h.logger.Error("write report csv", slog.String("report", string(report.ReportType)), slog.Any("error", err))
	}
}

func (h *Handler) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	snaps, err := h.service.Snapshots(r.Context(), limit)
	if err != nil {
		h.respondError(w, "list snapshots", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"snapshots": snaps})
}

func (h *Handler) fetch(w http.ResponseWriter, r *http.Request) (normalize.NormalizedReport, bool) {
	reportType, ok := h.reportType(w, r)
	if !ok {
		return normalize.NormalizedReport{}, false
	}
	query := r.URL.Query()
	req := reports.Request{
		Type:      reportType,
		StartDate: query.Get("start_date"),
		EndDate:   query.Get("end_date"),
		AsOfDate:  query.Get("as_of_date"),
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	report, err := h.service.Report(ctx, req)
	if err != nil {
		h.respondError(w, "load report", err)
		return normalize.NormalizedReport{}, false
	}
	return report, true
}

func (h *Handler) reportType(w http.ResponseWriter, r *http.Request) (normalize.ReportType, bool) {
	reportType, err := normalize.ParseReportType(chi.URLParam(r, "type"))
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrNotFound, err))
		return "", false
	}
	return reportType, true
}

func (h *Handler) respondError(w http.ResponseWriter, action string, err error) {
	switch {
	case errors.Is(err, normalize.ErrUndecodable):
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
	case errors.Is(err, reports.ErrInvalidRequest):
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
	case errors.Is(err, reports.ErrUpstream):
		h.logger.Warn(action, slog.Any("error", err))
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrBadGateway, err))
	case errors.Is(err, context.DeadlineExceeded):
		httpx.RespondError(w, fmt.Errorf("%w: report %s", httpx.ErrTimeout, action))
	default:
		h.logger.Error(action, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
