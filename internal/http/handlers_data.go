package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime"
	"net/http"

	"gagyebu/internal/charts"
	"gagyebu/internal/export"
	"gagyebu/internal/ingest"
	"gagyebu/internal/log"
	"gagyebu/internal/report"
)

// handleChart renders one chart. 204 means there is nothing to draw.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx)
	name := r.PathValue("name")

	pr, err := s.resolve(r)
	if err != nil {
		logger.ErrorContext(ctx, "Dashboard build failed", log.FieldChart, name, log.FieldError, err.Error())
		http.Error(w, "chart unavailable", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	switch name {
	case "category":
		err = s.charts.CategoryPie(&buf, pr.report.ByCategory)
	case "items":
		err = s.charts.TopItemsBar(&buf, pr.report.TopItems)
	case "daily":
		err = s.charts.DailyLine(&buf, pr.report.Daily)
	default:
		http.NotFound(w, r)
		return
	}
	if errors.Is(err, charts.ErrNoData) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		logger.ErrorContext(ctx, "Chart render failed",
			log.FieldOperation, log.OpRender,
			log.FieldChart, name,
			log.FieldFormat, string(s.charts.Format),
			log.FieldError, err.Error())
		http.Error(w, "chart unavailable", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", s.charts.Format.ContentType())
	_, _ = buf.WriteTo(w)
}

// handleExport downloads the table currently shown, sample data included.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx)

	pr, err := s.resolve(r)
	if err != nil {
		logger.ErrorContext(ctx, "Dashboard build failed", log.FieldOperation, log.OpExport, log.FieldError, err.Error())
		http.Error(w, "export unavailable", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, pr.run.Table); err != nil {
		logger.ErrorContext(ctx, "CSV export failed", log.FieldOperation, log.OpExport, log.FieldError, err.Error())
		http.Error(w, "export unavailable", http.StatusInternalServerError)
		return
	}

	name := export.FileName(s.opts.ExportPrefix, s.now())
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", contentDisposition(name))
	logger.InfoContext(ctx, "CSV exported",
		log.FieldOperation, log.OpExport,
		log.FieldFile, name,
		log.FieldRows, pr.run.Table.Len(),
		log.FieldBytes, buf.Len())
	_, _ = buf.WriteTo(w)
}

type noticeResponse struct {
	Level   ingest.NoticeLevel `json:"level"`
	Message string             `json:"message"`
}

type reportResponse struct {
	Outcome ingest.Outcome  `json:"outcome"`
	Sample  bool            `json:"sample"`
	Sheet   string          `json:"sheet,omitempty"`
	Sheets  []string        `json:"sheets"`
	Notice  *noticeResponse `json:"notice,omitempty"`
	Dropped int             `json:"dropped"`
	Report  report.View     `json:"report"`
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	pr, err := s.resolve(r)
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Dashboard build failed", log.FieldError, err.Error())
		http.Error(w, `{"error":"report unavailable"}`, http.StatusInternalServerError)
		return
	}

	resp := reportResponse{
		Outcome: pr.run.Outcome,
		Sample:  pr.run.Outcome.Sample(),
		Sheet:   pr.run.Sheet,
		Sheets:  pr.run.Sheets,
		Dropped: pr.run.Dropped,
		Report:  pr.report.View(),
	}
	if resp.Sheets == nil {
		resp.Sheets = []string{}
	}
	if n := pr.run.Notice; n.Level != ingest.NoticeNone {
		resp.Notice = &noticeResponse{Level: n.Level, Message: n.Message}
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Report encoding failed", log.FieldError, err.Error())
	}
}

// contentDisposition names an attachment. Non-ASCII names are sent in
// RFC 2231 extended form.
func contentDisposition(name string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": name}); v != "" {
		return v
	}
	return "attachment"
}
