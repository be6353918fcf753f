package app

import (
	"context"
	"fmt"

	"quiz-export/internal/adapter/quizgen"
	"quiz-export/internal/adapter/sheets"
	"quiz-export/internal/config"
	"quiz-export/internal/domain"
	"quiz-export/internal/service"

	"go.uber.org/zap"
)

// NewExportService wires the Sheets reader, the model-backed extractor and the
// pipeline from configuration. Both the API server and the CLI use it.
func NewExportService(ctx context.Context, cfg *config.Config, logger *zap.Logger) (domain.ExportService, error) {
	logger.Info("Initializing language model",
		zap.String("provider", cfg.LLM.Provider),
		zap.String("model", cfg.LLM.Model),
	)
	llm, err := quizgen.NewLanguageModel(ctx, cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("create language model: %w", err)
	}

	extractor, err := quizgen.NewLLMExtractor(llm, quizgen.ExtractorOptions{
		Pipeline:    cfg.Pipeline,
		Temperature: cfg.LLM.Temperature,
		CallTimeout: cfg.LLM.Timeout,
	}, logger.Named("extractor"))
	if err != nil {
		return nil, fmt.Errorf("create extractor: %w", err)
	}

	reader := sheets.NewReader(cfg.Sheets, logger.Named("sheets"))

	return service.NewExportService(reader, extractor, service.NewQuizValidator(), cfg.Pipeline, logger.Named("pipeline")), nil
}
