package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"quiz-export/internal/app"
	"quiz-export/internal/config"
	"quiz-export/internal/domain"
	"quiz-export/internal/logger"
	"quiz-export/internal/service"

	"go.uber.org/zap"
)

func main() {
	sheet := flag.String("sheet", "", "spreadsheet URL or ID")
	worksheet := flag.String("worksheet", "", "worksheet (tab) name")
	out := flag.String("out", service.ArchiveFileName, "path of the zip archive to write")
	flag.Parse()

	if *sheet == "" || *worksheet == "" {
		fmt.Fprintln(os.Stderr, "usage: export -sheet <url|id> -worksheet <name> [-out quiz_exports.zip]")
		os.Exit(2)
	}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Initialize(cfg.Logger); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, domain.ExportRequest{SheetIdentifier: *sheet, Worksheet: *worksheet}, *out); err != nil {
		logger.Get().Error("Export failed", zap.Error(err))
		var failure *domain.StageFailure
		if errors.As(err, &failure) {
			printJSON(map[string]interface{}{
				"stage":          failure.Stage,
				"reason":         failure.Reason,
				"rows_processed": failure.RowsProcessed,
			})
		}
		logger.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, req domain.ExportRequest, out string) error {
	exportService, err := app.NewExportService(ctx, cfg, logger.Get())
	if err != nil {
		return err
	}

	result, err := exportService.Export(ctx, req)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(out, result.Archive.Content, 0o644); err != nil {
		return fmt.Errorf("write archive: %w", err)
	}

	logger.Get().Info("Archive written",
		zap.String("path", out),
		zap.Strings("files", result.Archive.Files),
	)
	printJSON(result.Report)
	return nil
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
