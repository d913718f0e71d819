package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gagyebu/internal/core"
	"gagyebu/internal/ingest"
	"gagyebu/internal/log"
	"gagyebu/internal/middleware/ratelimit"
	"gagyebu/internal/report"
	"gagyebu/internal/sample"
	"gagyebu/internal/session"
	"gagyebu/internal/sheets"
	"gagyebu/internal/sheets/memory"
	"gagyebu/internal/sheets/xlsx"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, remote sheets.Workbook, limiter *ratelimit.Limiter) *Server {
	t.Helper()
	return newBudgetServer(t, decimal.NewFromInt(report.DefaultBudget), remote, limiter)
}

func newBudgetServer(t *testing.T, budget decimal.Decimal, remote sheets.Workbook, limiter *ratelimit.Limiter) *Server {
	t.Helper()
	clock := func() time.Time { return testNow }
	ctrl := ingest.NewController(sample.New(42), 0, log.Discard())
	ctrl.Clock = clock

	s := NewServer(Options{
		Title:          "뀨군뀨양 가계부 대시보드",
		Budget:         budget,
		MaxUploadBytes: 1 << 20,
	}, Deps{
		Controller: ctrl,
		Sessions:   session.NewStore(10, time.Hour),
		Remote:     remote,
		Limiter:    limiter,
		Clock:      clock,
	})
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	return rec
}

func get(s *Server, path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	return serve(s, req)
}

func uploadRequest(t *testing.T, name string, data []byte, cookie *http.Cookie) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("workbook", name)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if cookie != nil {
		req.AddCookie(cookie)
	}
	return req
}

// upload posts a file and returns the session cookie.
func upload(t *testing.T, s *Server, name string, data []byte) *http.Cookie {
	t.Helper()
	rec := serve(s, uploadRequest(t, name, data, nil))
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func getReport(t *testing.T, s *Server, path string, cookie *http.Cookie) reportResponse {
	t.Helper()
	rec := get(s, path, cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	var resp reportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func ledgerSheet(header []any, body ...[]any) [][]any {
	rows := [][]any{{"뀨군뀨양 가계부"}, {}, {}, {}, {}, {}, header}
	return append(rows, body...)
}

func headerOf(cols []string) []any {
	out := make([]any, len(cols))
	for i, c := range cols {
		out[i] = c
	}
	return out
}

func ledgerWorkbook(t *testing.T) []byte {
	t.Helper()
	may1 := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	may2 := may1.AddDate(0, 0, 1)
	header := headerOf(core.RequiredColumns)
	data := map[string][][]any{
		"5월": ledgerSheet(header,
			[]any{may1, "식비", "라면", 1200, "지출", ""},
			[]any{may1, "식비", "커피", "3,000", "지출", "카드"},
			[]any{may2, "교통", "버스", 1500, "지출", ""},
			[]any{may2, "월급", "급여", 2000000, "수입", ""},
		),
		"4월": ledgerSheet(header,
			[]any{time.Date(2024, 4, 3, 0, 0, 0, 0, time.UTC), "식비", "빵", 2500, "지출", ""},
		),
	}
	b, err := xlsx.Build([]string{"5월", "4월"}, data)
	require.NoError(t, err)
	return b
}

func TestIndexShowsSampleWithInfoNotice(t *testing.T) {
	s := newTestServer(t, nil, nil)

	rec := get(s, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()

	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "default-src 'self'")
	assert.Contains(t, body, "뀨군뀨양 가계부 대시보드")
	assert.Contains(t, body, ingest.MsgNoUpload)
	assert.Contains(t, body, "notice-info")
	assert.Contains(t, body, "400,000 원")
	assert.Contains(t, body, `src="/charts/category"`)
	assert.Contains(t, body, `enctype="multipart/form-data"`)
	assert.Contains(t, body, "CSV 파일 다운로드")
	assert.NotContains(t, body, "시트 선택", "sample runs have no sheets to pick")
}

func TestHealthReadyAndStatic(t *testing.T) {
	s := newTestServer(t, nil, nil)

	for path, want := range map[string]string{"/healthz": "ok", "/readyz": "ready"} {
		rec := get(s, path, nil)
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, want, rec.Body.String(), path)
	}

	rec := get(s, "/static/app.css", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "public, max-age=3600", rec.Header().Get("Cache-Control"))

	assert.Equal(t, http.StatusNotFound, get(s, "/nope", nil).Code)
}

func TestZeroBudgetIsKept(t *testing.T) {
	s := newBudgetServer(t, decimal.Zero, nil, nil)
	cookie := upload(t, s, "ledger.xlsx", ledgerWorkbook(t))

	resp := getReport(t, s, "/api/report", cookie)
	assert.Equal(t, "0", resp.Report.Budget.Value)
	assert.Equal(t, "-5700", resp.Report.Remaining.Value)
	assert.True(t, resp.Report.Overspent)
}

func TestUploadedWorkbookDrivesDashboard(t *testing.T) {
	s := newTestServer(t, nil, nil)
	cookie := upload(t, s, "ledger.xlsx", ledgerWorkbook(t))
	assert.True(t, cookie.HttpOnly)

	resp := getReport(t, s, "/api/report", cookie)
	assert.Equal(t, ingest.OutcomeLoaded, resp.Outcome)
	assert.False(t, resp.Sample)
	assert.Nil(t, resp.Notice)
	assert.Equal(t, []string{"5월", "4월"}, resp.Sheets)
	assert.Equal(t, "5월", resp.Sheet)
	assert.Equal(t, "5700", resp.Report.TotalExpense.Value)
	assert.Equal(t, "394,300 원", resp.Report.Remaining.Label)
	assert.Len(t, resp.Report.Records, 4)
	require.Len(t, resp.Report.TopItems, 3)
	assert.Equal(t, "커피", resp.Report.TopItems[0].Name)

	rec := get(s, "/", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "ledger.xlsx")
	assert.Contains(t, body, `<option value="4월">`)
	assert.Contains(t, body, "5,700 원")
	assert.NotContains(t, body, ingest.MsgNoUpload)

	for _, chart := range []string{"category", "items", "daily"} {
		rec := get(s, "/charts/"+chart, cookie)
		require.Equal(t, http.StatusOK, rec.Code, chart)
		assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"), chart)
		assert.Contains(t, rec.Body.String(), "<svg", chart)
	}
	assert.Equal(t, http.StatusNotFound, get(s, "/charts/pie", cookie).Code)

	// Choosing a sheet sticks to the session.
	resp = getReport(t, s, "/api/report?sheet=4%EC%9B%94", cookie)
	assert.Equal(t, "4월", resp.Sheet)
	assert.Equal(t, "2500", resp.Report.TotalExpense.Value)
	resp = getReport(t, s, "/api/report", cookie)
	assert.Equal(t, "4월", resp.Sheet)
	assert.Equal(t, http.StatusNoContent, get(s, "/charts/daily", cookie).Code, "one day cannot draw a trend")

	rec = get(s, "/export.csv?sheet=5%EC%9B%94", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	cd := rec.Header().Get("Content-Disposition")
	assert.True(t, strings.HasPrefix(cd, "attachment; "), cd)
	assert.Contains(t, cd, "_20240520.csv")
	assert.Contains(t, cd, "filename*=utf-8''")
	assert.True(t, strings.HasPrefix(rec.Body.String(),
		"\ufeff날짜,분류,항목,금액,수입/지출,비고\n2024-05-01,식비,라면,1200,지출,\n"), rec.Body.String())

	rec = serve(s, func() *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/reset", nil)
		req.AddCookie(cookie)
		return req
	}())
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	resp = getReport(t, s, "/api/report", cookie)
	assert.Equal(t, ingest.OutcomeSample, resp.Outcome)
	require.NotNil(t, resp.Notice)
	assert.Equal(t, ingest.NoticeInfo, resp.Notice.Level)
}

func TestReuploadReplacesCachedDashboard(t *testing.T) {
	s := newTestServer(t, nil, nil)
	cookie := upload(t, s, "ledger.xlsx", ledgerWorkbook(t))
	assert.Equal(t, "5700", getReport(t, s, "/api/report", cookie).Report.TotalExpense.Value)

	csv := "날짜,분류,항목,금액,수입/지출,비고\n2024-05-03,식비,김밥,4000,지출,\n"
	rec := serve(s, uploadRequest(t, "ledger.csv", []byte(csv), cookie))
	require.Equal(t, http.StatusSeeOther, rec.Code)

	resp := getReport(t, s, "/api/report", cookie)
	assert.Equal(t, ingest.OutcomeLoaded, resp.Outcome)
	assert.Equal(t, "4000", resp.Report.TotalExpense.Value)
	assert.Equal(t, []string{"CSV"}, resp.Sheets)
}

func TestUploadMissingColumnsFallsBackWithWarning(t *testing.T) {
	s := newTestServer(t, nil, nil)
	header := []any{"날짜", "분류", "항목", "수입/지출", "비고"}
	b, err := xlsx.Build([]string{"5월"}, map[string][][]any{
		"5월": ledgerSheet(header, []any{"2024-05-01", "식비", "라면", "지출", ""}),
	})
	require.NoError(t, err)
	cookie := upload(t, s, "ledger.xlsx", b)

	resp := getReport(t, s, "/api/report", cookie)
	assert.Equal(t, ingest.OutcomeValidationFallback, resp.Outcome)
	assert.True(t, resp.Sample)
	require.NotNil(t, resp.Notice)
	assert.Equal(t, ingest.NoticeWarning, resp.Notice.Level)
	assert.Equal(t, ingest.MsgMissingColumns+" (금액)", resp.Notice.Message)
	assert.Equal(t, "5월", resp.Sheet)
	assert.Len(t, resp.Report.Records, sample.Rows)
}

func TestUploadBrokenWorkbookShowsError(t *testing.T) {
	s := newTestServer(t, nil, nil)
	cookie := upload(t, s, "broken.xlsx", []byte("this is not a zip archive"))

	resp := getReport(t, s, "/api/report", cookie)
	assert.Equal(t, ingest.OutcomeReadFallback, resp.Outcome)
	require.NotNil(t, resp.Notice)
	assert.Equal(t, ingest.NoticeError, resp.Notice.Level)
	assert.True(t, strings.HasPrefix(resp.Notice.Message, ingest.MsgLoadFailed+": "), resp.Notice.Message)
	assert.Len(t, resp.Report.Records, sample.Rows)

	body := get(s, "/", cookie).Body.String()
	assert.Contains(t, body, "notice-error")
	assert.Contains(t, body, "broken.xlsx")
}

func TestUploadRejected(t *testing.T) {
	s := newTestServer(t, nil, nil)

	tests := []struct {
		name   string
		file   string
		data   []byte
		status int
	}{
		{"unsupported type", "receipt.pdf", []byte("%PDF-1.4"), http.StatusUnsupportedMediaType},
		{"empty file", "ledger.xlsx", nil, http.StatusBadRequest},
		{"too large", "ledger.csv", bytes.Repeat([]byte("a"), 2<<20), http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(s, uploadRequest(t, tt.file, tt.data, nil))
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Empty(t, rec.Result().Cookies())
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("x=1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	assert.Equal(t, http.StatusBadRequest, serve(s, req).Code)
}

func TestRemoteWorkbookSource(t *testing.T) {
	rows := [][]string{{"가계부"}, {}, {}, {}, {}, {}, core.RequiredColumns,
		{"2024-05-01", "식비", "라면", "1,200", "지출", ""},
		{"2024-05-02", "식비", "커피", "3000", "지출", ""},
	}
	wb := memory.New().Add("5월", rows).Add("4월", [][]string{{"빈 시트"}})
	s := newTestServer(t, wb, nil)

	resp := getReport(t, s, "/api/report", nil)
	assert.Equal(t, ingest.OutcomeLoaded, resp.Outcome)
	assert.Equal(t, "4200", resp.Report.TotalExpense.Value)

	resp = getReport(t, s, "/api/report?sheet=4%EC%9B%94", nil)
	assert.Equal(t, ingest.OutcomeValidationFallback, resp.Outcome)

	body := get(s, "/", nil).Body.String()
	assert.Contains(t, body, "Google 스프레드시트")
	assert.NotContains(t, body, `action="/upload"`)

	rec := serve(s, uploadRequest(t, "ledger.csv", []byte("a"), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code, "uploads are off with a remote source")
}

func TestPostRateLimited(t *testing.T) {
	s := newTestServer(t, nil, ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: 1}))

	post := func() int {
		return serve(s, httptest.NewRequest(http.MethodPost, "/reset", nil)).Code
	}
	assert.Equal(t, http.StatusSeeOther, post())
	assert.Equal(t, http.StatusTooManyRequests, post())
	assert.Equal(t, http.StatusOK, get(s, "/healthz", nil).Code)
	assert.Equal(t, http.StatusOK, get(s, "/api/report", nil).Code, "GET is not limited")
}

func TestContentDisposition(t *testing.T) {
	got := contentDisposition("가계부_20240520.csv")
	assert.Equal(t, `attachment; filename*=utf-8''%EA%B0%80%EA%B3%84%EB%B6%80_20240520.csv`, got)
	assert.Equal(t, `attachment; filename="a\"b.csv"`, contentDisposition(`a"b.csv`))
	assert.Equal(t, "attachment; filename=plain.csv", contentDisposition("plain.csv"))

	_, params, err := mime.ParseMediaType(got)
	require.NoError(t, err)
	assert.Equal(t, "가계부_20240520.csv", params["filename"])
}

func TestExtractClientIP(t *testing.T) {
	tests := []struct {
		name   string
		remote string
		xff    string
		xri    string
		want   string
	}{
		{"direct", "203.0.113.7:5000", "", "", "203.0.113.7"},
		{"untrusted peer ignores forwarding", "203.0.113.7:5000", "198.51.100.1", "", "203.0.113.7"},
		{"trusted proxy forwards", "10.0.0.2:5000", "198.51.100.1, 10.0.0.2", "", "198.51.100.1"},
		{"trusted proxy real ip", "127.0.0.1:5000", "", "198.51.100.9", "198.51.100.9"},
		{"garbage forwarded", "10.0.0.2:5000", "not-an-ip", "", "10.0.0.2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}
			assert.Equal(t, tt.want, extractClientIP(req))
		})
	}
}
