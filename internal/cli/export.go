package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gagyebu/internal/config"
	"gagyebu/internal/core"
	"gagyebu/internal/export"
	"gagyebu/internal/ingest"
	"gagyebu/internal/log"
	"gagyebu/internal/report"
	"gagyebu/internal/session"

	"github.com/spf13/cobra"
)

type exportOptions struct {
	File  string
	Sheet string
	Out   string
	Now   time.Time
}

func newExportCommand() *cobra.Command {
	var opts exportOptions

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Normalize a ledger file and write it as CSV",
		Long: "Reads --file (or the configured Google spreadsheet, or sample data when neither is set), " +
			"applies the same fallbacks as the dashboard and writes the resulting table as CSV.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadAndValidateConfig()
			if err != nil {
				return err
			}
			logger, err := SetupLogger(cfg.LogLevel, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			opts.Now = time.Now()
			return runExport(cmd.Context(), cfg, logger, opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVar(&opts.File, "file", "", "ledger workbook (.xlsx or .csv)")
	cmd.Flags().StringVar(&opts.Sheet, "sheet", "", "sheet to read (default: first)")
	cmd.Flags().StringVar(&opts.Out, "out", "", `output path, "-" for stdout (default: <prefix>_YYYYMMDD.csv)`)

	return cmd
}

// runExport writes the CSV and prints the notice and totals to errOut.
func runExport(ctx context.Context, cfg *config.Config, logger *log.Logger, opts exportOptions, stdout, errOut io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctrl := NewController(cfg, logger)
	ctrl.Clock = func() time.Time { return opts.Now }

	var run ingest.Run
	switch {
	case opts.File != "":
		data, err := os.ReadFile(opts.File)
		if err != nil {
			return fmt.Errorf("read ledger: %w", err)
		}
		up := session.Upload{Name: filepath.Base(opts.File), Data: data, UploadedAt: opts.Now}
		if up.Kind, err = session.DetectKind(up.Name, data); err != nil {
			return err
		}
		wb, closer, err := up.Workbook()
		if err != nil {
			run = ctrl.Fail(ctx, opts.Sheet, err)
			break
		}
		run = ctrl.Resolve(ctx, wb, opts.Sheet)
		_ = closer.Close()
	default:
		remote, err := OpenRemote(ctx, cfg)
		if err != nil {
			return err
		}
		run = ctrl.Resolve(ctx, remote, opts.Sheet)
	}

	if run.Notice.Level != ingest.NoticeNone {
		fmt.Fprintf(errOut, "[%s] %s\n", run.Notice.Level, run.Notice.Message)
	}

	name := opts.Out
	if name == "" {
		name = export.FileName(cfg.ExportPrefix, opts.Now)
	}
	if name == "-" {
		if err := export.WriteCSV(stdout, run.Table); err != nil {
			return err
		}
	} else if err := writeCSVFile(name, run.Table); err != nil {
		return err
	}

	rep, err := report.Build(ctx, run.Table, cfg.Budget())
	if err != nil {
		return err
	}
	v := rep.View()
	fmt.Fprintf(errOut, "%d rows (%s), 총 지출 %s, 남은 금액 %s\n",
		run.Table.Len(), run.Outcome, v.TotalExpense.Label, v.Remaining.Label)
	if name != "-" {
		fmt.Fprintf(errOut, "wrote %s\n", name)
	}
	return nil
}

func writeCSVFile(path string, table core.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := export.WriteCSV(f, table); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	return nil
}
