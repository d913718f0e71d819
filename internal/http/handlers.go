package http

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"path/filepath"

	"gagyebu/internal/export"
	"gagyebu/internal/ingest"
	"gagyebu/internal/log"
	"gagyebu/internal/report"
	"gagyebu/internal/session"
)

type dashboardPage struct {
	Title       string
	Remote      bool
	UploadName  string
	MaxUploadMB int64
	Notice      ingest.Notice
	Sheets      []string
	Sheet       string
	Report      report.View
	Query       string
	ExportName  string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	logger := log.FromContext(r.Context())
	if s.templates == nil {
		logger.ErrorContext(r.Context(), "Templates not loaded", log.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	pr, err := s.resolve(r)
	if err != nil {
		logger.ErrorContext(r.Context(), "Dashboard build failed", log.FieldOperation, log.OpAggregate, log.FieldError, err.Error())
		http.Error(w, "대시보드를 만들 수 없습니다", http.StatusInternalServerError)
		return
	}

	data := dashboardPage{
		Title:       s.opts.Title,
		Remote:      s.remote != nil,
		UploadName:  pr.uploadName,
		MaxUploadMB: s.opts.MaxUploadBytes >> 20,
		Notice:      pr.run.Notice,
		Sheets:      pr.run.Sheets,
		Sheet:       pr.run.Sheet,
		Report:      pr.report.View(),
		Query:       pr.query(),
		ExportName:  export.FileName(s.opts.ExportPrefix, s.now()),
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "dashboard.html", data); err != nil {
		logger.ErrorContext(r.Context(), "Dashboard template execution failed", log.FieldError, err.Error())
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// handleUpload stores a workbook in the caller's session. The file is only
// parsed when the dashboard is rendered, so a broken workbook shows up as a
// load-failure notice rather than an error here.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(min(s.opts.MaxUploadBytes, 8<<20)); err != nil {
		s.uploadError(w, r, err)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, hdr, err := r.FormFile("workbook")
	if err != nil {
		s.uploadError(w, r, err)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.uploadError(w, r, err)
		return
	}
	name := filepath.Base(hdr.Filename)
	kind, err := session.DetectKind(name, data)
	if err != nil {
		s.uploadError(w, r, err)
		return
	}

	id, ok := sessionID(r)
	if !ok {
		id = session.NewID()
	}
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	s.sessions.PutUpload(id, session.Upload{Name: name, Kind: kind, Data: data, UploadedAt: s.now()})

	logger.InfoContext(ctx, "Workbook uploaded",
		log.FieldOperation, log.OpUpload,
		log.FieldFile, name,
		log.FieldBytes, len(data),
		"kind", string(kind))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) uploadError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := http.StatusBadRequest, "업로드 요청이 올바르지 않습니다"
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		status, msg = http.StatusRequestEntityTooLarge, "파일이 너무 큽니다"
	case errors.Is(err, http.ErrMissingFile):
		msg = "업로드할 파일을 선택하세요"
	case errors.Is(err, session.ErrEmptyFile):
		msg = "빈 파일입니다"
	case errors.Is(err, session.ErrUnsupportedFile):
		status, msg = http.StatusUnsupportedMediaType, "엑셀(.xlsx) 또는 CSV 파일만 업로드할 수 있습니다"
	}
	log.FromContext(r.Context()).WarnContext(r.Context(), "Upload rejected",
		log.FieldOperation, log.OpUpload,
		log.FieldStatusCode, status,
		log.FieldError, err.Error())
	http.Error(w, msg, status)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if id, ok := sessionID(r); ok {
		s.sessions.Reset(id)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
