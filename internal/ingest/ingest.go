// Package ingest decides which table the dashboard shows: the normalized
// upload, or sample data with a notice explaining why.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gagyebu/internal/core"
	"gagyebu/internal/log"
	"gagyebu/internal/normalize"
	"gagyebu/internal/sample"
	"gagyebu/internal/sheets"
)

// LoadResult is one of Success, ValidationFailed or ReadFailed.
type LoadResult interface {
	isLoadResult()
}

type (
	Success struct {
		Sheet normalize.Sheet
	}

	ValidationFailed struct {
		Sheet   normalize.Sheet
		Missing []string
	}

	ReadFailed struct {
		Err error
	}
)

func (Success) isLoadResult()          {}
func (ValidationFailed) isLoadResult() {}
func (ReadFailed) isLoadResult()       {}

// Load normalizes sheet and checks the required columns.
func Load(ctx context.Context, wb sheets.Workbook, sheet string, opts normalize.Options) LoadResult {
	s, err := normalize.Normalize(ctx, wb, sheet, opts)
	if err != nil {
		return ReadFailed{Err: err}
	}
	if missing := normalize.MissingColumns(s.Columns); len(missing) > 0 {
		return ValidationFailed{Sheet: s, Missing: missing}
	}
	return Success{Sheet: s}
}

type Outcome string

const (
	OutcomeSample             Outcome = "sample"
	OutcomeLoaded             Outcome = "loaded"
	OutcomeValidationFallback Outcome = "validation_fallback"
	OutcomeReadFallback       Outcome = "read_fallback"
)

// Sample reports whether the run shows generated data.
func (o Outcome) Sample() bool { return o != OutcomeLoaded }

type NoticeLevel string

const (
	NoticeNone    NoticeLevel = ""
	NoticeInfo    NoticeLevel = "info"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

type Notice struct {
	Level   NoticeLevel
	Message string
}

// Notice texts shown above the dashboard.
const (
	MsgNoUpload       = "엑셀 파일 업로드 필요, 샘플 데이터 표시"
	MsgMissingColumns = "필수 컬럼 누락, 샘플 데이터 표시"
	MsgLoadFailed     = "파일 로드 실패"
)

// Run is everything one page render needs from ingestion.
type Run struct {
	Outcome Outcome
	Table   core.Table
	// Sheets lists the workbook's sheets; empty for sample-only runs
	// without a workbook.
	Sheets  []string
	Sheet   string
	Notice  Notice
	Dropped int
}

// Controller runs the ingestion pipeline with sample fallback.
type Controller struct {
	Sample    *sample.Generator
	Clock     func() time.Time
	HeaderRow int
	Logger    *log.Logger
}

func NewController(gen *sample.Generator, headerRow int, logger *log.Logger) *Controller {
	return &Controller{Sample: gen, Clock: time.Now, HeaderRow: headerRow, Logger: logger}
}

// Resolve never fails: every problem turns into sample data plus a notice.
// A nil workbook means nothing was uploaded. An empty sheet name selects the
// first sheet.
func (c *Controller) Resolve(ctx context.Context, wb sheets.Workbook, sheet string) Run {
	if wb == nil {
		run := c.fallback(OutcomeSample, Notice{Level: NoticeInfo, Message: MsgNoUpload})
		c.log(ctx, slog.LevelInfo, "no workbook, showing sample", run, nil)
		return run
	}

	names, err := wb.SheetNames(ctx)
	if err != nil {
		return c.readFailed(ctx, nil, sheet, err)
	}
	if sheet == "" && len(names) > 0 {
		sheet = names[0]
	}

	switch res := Load(ctx, wb, sheet, normalize.Options{HeaderRow: c.HeaderRow}).(type) {
	case Success:
		run := Run{
			Outcome: OutcomeLoaded,
			Table:   res.Sheet.Table,
			Sheets:  names,
			Sheet:   sheet,
			Dropped: res.Sheet.Dropped,
		}
		c.log(ctx, slog.LevelInfo, "workbook loaded", run, nil)
		return run
	case ValidationFailed:
		run := c.fallback(OutcomeValidationFallback, Notice{
			Level:   NoticeWarning,
			Message: fmt.Sprintf("%s (%s)", MsgMissingColumns, strings.Join(res.Missing, ", ")),
		})
		run.Sheets, run.Sheet = names, sheet
		c.log(ctx, slog.LevelWarn, "required columns missing", run, nil, log.FieldMissing, res.Missing)
		return run
	case ReadFailed:
		return c.readFailed(ctx, names, sheet, res.Err)
	default:
		return c.readFailed(ctx, names, sheet, fmt.Errorf("unexpected load result %T", res))
	}
}

// Fail reports a workbook that could not be opened at all, falling back to
// sample data with an error notice.
func (c *Controller) Fail(ctx context.Context, sheet string, err error) Run {
	return c.readFailed(ctx, nil, sheet, err)
}

func (c *Controller) readFailed(ctx context.Context, names []string, sheet string, err error) Run {
	run := c.fallback(OutcomeReadFallback, Notice{
		Level:   NoticeError,
		Message: fmt.Sprintf("%s: %v", MsgLoadFailed, err),
	})
	run.Sheets, run.Sheet = names, sheet
	c.log(ctx, slog.LevelError, "workbook load failed", run, err)
	return run
}

func (c *Controller) fallback(outcome Outcome, notice Notice) Run {
	return Run{
		Outcome: outcome,
		Table:   c.Sample.Generate(c.now()),
		Notice:  notice,
	}
}

func (c *Controller) now() time.Time {
	if c.Clock == nil {
		return time.Now()
	}
	return c.Clock()
}

func (c *Controller) log(ctx context.Context, level slog.Level, msg string, run Run, err error, extra ...any) {
	if c.Logger == nil {
		return
	}
	fields := log.NewFields().
		WithRun(run.Sheet, string(run.Outcome), run.Table.Len(), run.Dropped).
		WithError(err).
		ToSlice()
	c.Logger.WithComponent(log.ComponentIngest).Log(ctx, level, msg, append(fields, extra...)...)
}
