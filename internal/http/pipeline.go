package http

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"gagyebu/internal/ingest"
	"gagyebu/internal/report"
	"gagyebu/internal/session"
	"gagyebu/internal/sheets"
)

// pageRun is one computed dashboard. Its table is shared between requests
// and must not be modified.
type pageRun struct {
	run        ingest.Run
	report     report.Report
	uploadName string
}

// query returns the "?sheet=" suffix that reproduces this run.
func (p pageRun) query() string {
	if p.run.Sheet == "" || len(p.run.Sheets) == 0 {
		return ""
	}
	return "?sheet=" + url.QueryEscape(p.run.Sheet)
}

type workbookSource struct {
	key  string
	name string
	// open is nil when there is nothing to read.
	open func() (sheets.Workbook, io.Closer, error)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// sourceFor picks the remote workbook, the session's upload, or nothing.
// A sheet named in the request is remembered for the session.
func (s *Server) sourceFor(r *http.Request, sheet string) (workbookSource, string) {
	if s.remote != nil {
		return workbookSource{
			key:  "remote|" + sheet,
			open: func() (sheets.Workbook, io.Closer, error) { return s.remote, nopCloser{}, nil },
		}, sheet
	}

	if id, ok := sessionID(r); ok && s.sessions != nil {
		if st, ok := s.sessions.Get(id); ok && st.Upload != nil {
			if sheet == "" {
				sheet = st.Sheet
			} else {
				s.sessions.SelectSheet(id, sheet)
			}
			up := st.Upload
			return workbookSource{
				key:  "upload|" + id + "|" + up.Token + "|" + sheet,
				name: up.Name,
				open: up.Workbook,
			}, sheet
		}
	}

	return workbookSource{key: "sample|" + s.now().Format("2006-01")}, ""
}

// resolve runs ingestion and aggregation for the request, reusing a cached
// result for the same source and sheet.
func (s *Server) resolve(r *http.Request) (pageRun, error) {
	ctx := r.Context()
	src, sheet := s.sourceFor(r, strings.TrimSpace(r.URL.Query().Get("sheet")))
	if pr, ok := s.runs.Get(src.key); ok {
		return pr, nil
	}

	var run ingest.Run
	if src.open == nil {
		run = s.controller.Resolve(ctx, nil, sheet)
	} else {
		wb, closer, err := src.open()
		if err != nil {
			run = s.controller.Fail(ctx, sheet, err)
		} else {
			run = s.controller.Resolve(ctx, wb, sheet)
			_ = closer.Close()
		}
	}

	rep, err := report.Build(ctx, run.Table, s.opts.Budget)
	if err != nil {
		return pageRun{}, fmt.Errorf("build report: %w", err)
	}
	pr := pageRun{run: run, report: rep, uploadName: src.name}

	// A remote read can fail transiently; retry it on the next request.
	if s.remote == nil || run.Outcome != ingest.OutcomeReadFallback {
		s.runs.Set(src.key, pr)
	}
	return pr, nil
}

func sessionID(r *http.Request) (string, bool) {
	c, err := r.Cookie(session.CookieName)
	if err != nil || !session.ValidID(c.Value) {
		return "", false
	}
	return c.Value, true
}
