package cli

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"gagyebu/internal/config"
	apphttp "gagyebu/internal/http"
	"gagyebu/internal/log"
	"gagyebu/internal/middleware/ratelimit"
	"gagyebu/internal/session"

	"github.com/spf13/cobra"
)

func newServeCommand() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard web server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadAndValidateConfig()
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Port = port
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			return runServe(cmd, cfg)
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "listen port (overrides PORT)")

	return cmd
}

func runServe(cmd *cobra.Command, cfg *config.Config) error {
	logger, err := SetupLogger(cfg.LogLevel, os.Stdout)
	if err != nil {
		return err
	}

	renderer, err := NewRenderer(cfg)
	if err != nil {
		return err
	}
	if renderer.Font == nil {
		logger.Warn("No chart font configured; Korean labels may not render", "hint", "set CHART_FONT_FILE")
	}

	remote, err := OpenRemote(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	srv := apphttp.NewServer(apphttp.Options{
		Addr:           cfg.Addr(),
		Title:          cfg.DashboardTitle,
		Budget:         cfg.Budget(),
		ExportPrefix:   cfg.ExportPrefix,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}, apphttp.Deps{
		Controller: NewController(cfg, logger),
		Sessions:   session.NewStore(cfg.SessionMax, cfg.SessionTTL),
		Charts:     renderer,
		Remote:     remote,
		Limiter:    ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		Logger:     logger,
	})

	srv.ReadTimeout = 30 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	done := GracefulShutdown(logger, 30*time.Second, srv.Shutdown)

	logger.Info("Starting gagyebu server",
		log.FieldOperation, log.OpStartup,
		"port", cfg.Port,
		"source", cfg.WorkbookSource,
		"budget", cfg.MonthlyBudget,
		"header_row", cfg.HeaderRow)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error on port %s: %w", cfg.Port, err)
	}

	<-done
	logger.Info("Server stopped gracefully")
	return nil
}
