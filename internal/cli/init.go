// Package cli wires configuration, logging and the dashboard components
// into the gagyebu commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gagyebu/internal/charts"
	"gagyebu/internal/config"
	"gagyebu/internal/ingest"
	"gagyebu/internal/log"
	"gagyebu/internal/sample"
	"gagyebu/internal/sheets"
	gsheet "gagyebu/internal/sheets/google"

	"github.com/joho/godotenv"
)

// LoadEnvFile loads .env for local development. A missing file is fine.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads the configuration and reports every problem.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetupLogger builds the process logger at level and makes it the default.
func SetupLogger(level string, out io.Writer) (*log.Logger, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	logger := log.New(log.Config{Level: lvl, Component: log.ComponentApp, Output: out})
	log.SetDefault(logger)
	return logger, nil
}

// NewController builds the ingestion controller from cfg.
func NewController(cfg *config.Config, logger *log.Logger) *ingest.Controller {
	return ingest.NewController(sample.New(cfg.SampleSeed), cfg.HeaderRow, logger)
}

// NewRenderer builds the chart renderer, loading the configured font.
func NewRenderer(cfg *config.Config) (*charts.Renderer, error) {
	format, err := charts.ParseFormat(cfg.ChartFormat)
	if err != nil {
		return nil, err
	}
	r := charts.NewRenderer(format, nil)
	if cfg.ChartFontFile != "" {
		font, err := charts.LoadFont(cfg.ChartFontFile)
		if err != nil {
			return nil, err
		}
		r.Font = font
	}
	return r, nil
}

// OpenRemote returns the spreadsheet client when cfg selects the google
// source, and nil otherwise.
func OpenRemote(ctx context.Context, cfg *config.Config) (sheets.Workbook, error) {
	if cfg.WorkbookSource != config.SourceGoogle {
		return nil, nil
	}
	client, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, fmt.Errorf("google sheets client: %w", err)
	}
	return client, nil
}

// GracefulShutdown calls shutdown with a timeout once SIGINT or SIGTERM
// arrives. The returned channel closes when shutdown has finished.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, shutdown func(context.Context) error) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String(), log.FieldOperation, log.OpShutdown)

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err.Error())
		}
	}()
	return done
}
