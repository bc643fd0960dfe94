package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/ruslano69/surveydash/pkg/audit"
	"github.com/ruslano69/surveydash/pkg/core/dataset"
	"github.com/ruslano69/surveydash/pkg/core/schema"
	"github.com/ruslano69/surveydash/pkg/filter"
	"github.com/ruslano69/surveydash/pkg/kpi"
	"github.com/ruslano69/surveydash/pkg/viewer"
	"github.com/ruslano69/surveydash/pkg/xlsx"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// surveyHandler serves the dataset, filter, summary, KPI and viewer endpoints.
// The table is shared read-only; every request derives its own view.
type surveyHandler struct {
	table    *dataset.Table
	audit    audit.Logger
	kpis     kpi.Config
	pageSize int
}

// queryRequest is the JSON body of the POST endpoints. GET endpoints read
// the same fields from the query string.
type queryRequest struct {
	Filters   filter.FilterSet `json:"filters"`
	Where     string           `json:"where"`
	Offset    int              `json:"offset"`
	Limit     int              `json:"limit"`
	GroupBy   []string         `json:"group_by"`
	Statistic kpi.Statistic    `json:"statistic"`
	Measure   string           `json:"measure"`
	Format    string           `json:"format"`
}

type datasetResponse struct {
	Name        string          `json:"name"`
	Source      string          `json:"source"`
	Rows        int             `json:"rows"`
	Columns     []schema.Column `json:"columns"`
	Fingerprint string          `json:"fingerprint"`
	LoadedAt    time.Time       `json:"loaded_at"`
}

type optionsResponse struct {
	Question string          `json:"question"`
	Options  []filter.Option `json:"options"`
}

type queryResponse struct {
	Total     int             `json:"total"`
	Matched   int             `json:"matched"`
	Where     string          `json:"where"`
	Offset    int             `json:"offset"`
	Limit     int             `json:"limit"`
	Responses []viewer.Record `json:"responses"`
}

type responseResponse struct {
	Index   int             `json:"index"`
	Answers []viewer.Answer `json:"answers"`
}

// Dataset describes the loaded table. The fingerprint doubles as ETag.
func (h *surveyHandler) Dataset(w http.ResponseWriter, r *http.Request) {
	etag := `"` + h.table.Fingerprint() + `"`
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	writeJSON(w, http.StatusOK, datasetResponse{
		Name:        h.table.Name(),
		Source:      h.table.Source(),
		Rows:        h.table.Len(),
		Columns:     h.table.Schema().Columns(),
		Fingerprint: h.table.Fingerprint(),
		LoadedAt:    h.table.LoadedAt(),
	})
}

// Options lists the distinct answers of one question within the filtered view.
func (h *surveyHandler) Options(w http.ResponseWriter, r *http.Request) {
	idx, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || idx < 0 || idx >= h.table.Width() {
		writeError(w, http.StatusNotFound, "no such question")
		return
	}

	req, err := decodeQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	v, _, err := h.view(req)
	if err != nil {
		writeFailure(w, err)
		return
	}

	question := h.table.Schema().Column(idx).Name
	opts, err := filter.Options(v, question)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, optionsResponse{Question: question, Options: opts})
}

// Query filters the dataset and returns one page of matching responses.
func (h *surveyHandler) Query(w http.ResponseWriter, r *http.Request) {
	h.query(w, r)
}

// Responses is the query-string form of Query.
func (h *surveyHandler) Responses(w http.ResponseWriter, r *http.Request) {
	h.query(w, r)
}

func (h *surveyHandler) query(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	req, err := decodeQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	v, fs, err := h.view(req)
	if err != nil {
		h.record(r, audit.NewEntry(audit.OpFilter, audit.StatusFailure).WithFilter(req.Where).WithError(err))
		writeFailure(w, err)
		return
	}

	limit := req.Limit
	if limit <= 0 {
		limit = h.pageSize
	}
	page := viewer.Page(v, req.Offset, limit)
	if page == nil {
		page = []viewer.Record{}
	}

	h.record(r, audit.NewEntry(audit.OpFilter, audit.StatusSuccess).
		WithFilter(fs.Where()).
		WithRows(v.Len()).
		Since(start))

	writeJSON(w, http.StatusOK, queryResponse{
		Total:     h.table.Len(),
		Matched:   v.Len(),
		Where:     fs.Where(),
		Offset:    req.Offset,
		Limit:     limit,
		Responses: page,
	})
}

// Response returns every answer of one respondent, unfiltered.
func (h *surveyHandler) Response(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "index")
	idx, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("response index must be an integer, got %q", raw))
		return
	}

	answers, err := viewer.GetResponse(h.table, idx)
	if err != nil {
		h.record(r, audit.NewEntry(audit.OpView, audit.StatusFailure).WithResource(raw).WithError(err))
		writeFailure(w, err)
		return
	}

	h.record(r, audit.NewEntry(audit.OpView, audit.StatusSuccess).WithResource(raw).WithRows(1))
	writeJSON(w, http.StatusOK, responseResponse{Index: idx, Answers: answers})
}

// Summary groups the filtered view and computes the requested statistic.
func (h *surveyHandler) Summary(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	req, err := decodeQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	spec := kpi.Spec{GroupBy: req.GroupBy, Statistic: req.Statistic, Measure: req.Measure, Limit: req.Limit}
	resource := strings.Join(req.GroupBy, ", ")

	v, fs, err := h.view(req)
	if err == nil {
		var s *kpi.Summary
		s, err = kpi.Summarize(v, spec)
		if err == nil {
			h.record(r, audit.NewEntry(audit.OpSummarize, audit.StatusSuccess).
				WithResource(resource).
				WithFilter(fs.Where()).
				WithRows(v.Len()).
				WithMetadata("statistic", s.Statistic).
				Since(start))
			writeJSON(w, http.StatusOK, s)
			return
		}
	}

	h.record(r, audit.NewEntry(audit.OpSummarize, audit.StatusFailure).WithResource(resource).WithError(err))
	writeFailure(w, err)
}

// KPIs computes the dashboard cards for the filtered view.
func (h *surveyHandler) KPIs(w http.ResponseWriter, r *http.Request) {
	req, err := decodeQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	v, fs, err := h.view(req)
	if err != nil {
		writeFailure(w, err)
		return
	}

	cards := kpi.Dashboard(v, h.kpis)
	h.record(r, audit.NewEntry(audit.OpSummarize, audit.StatusSuccess).
		WithResource("kpis").
		WithFilter(fs.Where()).
		WithRows(v.Len()))
	writeJSON(w, http.StatusOK, cards)
}

// Export streams the filtered view as an xlsx workbook or CSV file.
func (h *surveyHandler) Export(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	req, err := decodeQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	v, fs, err := h.view(req)
	if err != nil {
		writeFailure(w, err)
		return
	}

	format := strings.ToLower(req.Format)
	if format == "" {
		format = "xlsx"
	}

	var buf bytes.Buffer
	var contentType string
	switch format {
	case "xlsx":
		contentType = xlsxContentType
		err = xlsx.WriteView(&buf, v, "Responses")
	case "csv":
		contentType = "text/csv; charset=utf-8"
		err = viewer.WriteCSV(&buf, v)
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown export format %q (xlsx/csv)", req.Format))
		return
	}
	if err != nil {
		h.record(r, audit.NewEntry(audit.OpExport, audit.StatusFailure).WithResource(format).WithError(err))
		writeFailure(w, err)
		return
	}

	h.record(r, audit.NewEntry(audit.OpExport, audit.StatusSuccess).
		WithResource(format).
		WithFilter(fs.Where()).
		WithRows(v.Len()).
		WithMetadata("bytes", buf.Len()).
		Since(start))

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="responses.%s"`, format))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// view applies the request filters to the table.
func (h *surveyHandler) view(req queryRequest) (*dataset.View, filter.FilterSet, error) {
	if err := req.Filters.Validate(h.table); err != nil {
		return nil, nil, err
	}
	fs, err := filter.Combine(req.Filters, req.Where)
	if err != nil {
		return nil, nil, err
	}
	v, err := filter.Apply(h.table, fs)
	if err != nil {
		return nil, nil, err
	}
	filterMatched.Observe(float64(v.Len()))
	return v, fs, nil
}

func (h *surveyHandler) record(r *http.Request, e *audit.Entry) {
	h.audit.Record(r.Context(), e.
		WithDataset(h.table.Fingerprint()).
		WithSession(sessionID(r), r.RemoteAddr))
}

// decodeQuery reads a queryRequest from the JSON body (POST) or the query
// string (GET). An empty body is an empty request.
func decodeQuery(r *http.Request) (queryRequest, error) {
	var req queryRequest

	if r.Method == http.MethodPost {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			return req, fmt.Errorf("invalid json: %w", err)
		}
		return req, nil
	}

	q := r.URL.Query()
	req.Where = q.Get("where")
	req.GroupBy = q["group_by"]
	req.Statistic = kpi.Statistic(q.Get("statistic"))
	req.Measure = q.Get("measure")
	req.Format = q.Get("format")

	for name, dst := range map[string]*int{"offset": &req.Offset, "limit": &req.Limit} {
		s := q.Get(name)
		if s == "" {
			continue
		}
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return req, fmt.Errorf("%s must be a non-negative integer, got %q", name, s)
		}
		*dst = n
	}
	return req, nil
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, dataset.ErrUnknownQuestion),
		errors.Is(err, dataset.ErrInvalidSpec),
		errors.Is(err, filter.ErrSyntax):
		return http.StatusBadRequest
	case errors.Is(err, dataset.ErrIndexOutOfRange):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func writeFailure(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("request failed")
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON encodes before writing the header so an encode failure
// becomes a 500 instead of a truncated 200.
func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		log.Error().Err(err).Msg("response encoding failed")
		buf.Reset()
		buf.WriteString(`{"error":"internal error"}` + "\n")
		status = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
