package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/violation-assistant/internal/analyzer"
	"github.com/sells-group/violation-assistant/internal/cost"
	"github.com/sells-group/violation-assistant/internal/embedding"
	"github.com/sells-group/violation-assistant/internal/pipeline"
	"github.com/sells-group/violation-assistant/internal/retrieval"
	"github.com/sells-group/violation-assistant/internal/sheetlog"
	"github.com/sells-group/violation-assistant/internal/store"
	"github.com/sells-group/violation-assistant/internal/transcribe"
	anthropicpkg "github.com/sells-group/violation-assistant/pkg/anthropic"
	"github.com/sells-group/violation-assistant/pkg/sheets"
	"github.com/sells-group/violation-assistant/pkg/whisper"
)

// pipelineEnv holds the initialized index, clients and pipeline needed by
// the bot/serve/ask commands.
type pipelineEnv struct {
	Index       *store.SQLiteIndex
	Collection  store.Collection
	Costs       *cost.Calculator
	Transcriber *transcribe.Transcriber // nil when whisper.key is unset
	Logger      *sheetlog.Logger        // nil when sheets.driver is "none"
	Pipeline    *pipeline.Pipeline
}

// Close releases resources held by the environment.
func (pe *pipelineEnv) Close() {
	if pe.Index != nil {
		_ = pe.Index.Close()
	}
}

func initCosts() *cost.Calculator {
	override := cost.Rates{Whisper: cost.WhisperRate{PerMinute: cfg.Pricing.Whisper.PerMinute}}
	if len(cfg.Pricing.Anthropic) > 0 {
		override.Anthropic = make(map[string]cost.ModelRate, len(cfg.Pricing.Anthropic))
		for model, p := range cfg.Pricing.Anthropic {
			override.Anthropic[model] = cost.ModelRate{Input: p.Input, Output: p.Output}
		}
	}
	return cost.NewCalculator(cost.DefaultRates().Merge(override))
}

// initIndex opens the vector index and its collection. Callers must close
// the returned index.
func initIndex(ctx context.Context) (*store.SQLiteIndex, store.Collection, error) {
	if dir := filepath.Dir(cfg.Index.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, eris.Wrap(err, "create index directory")
		}
	}

	emb, err := embedding.NewGenAIEmbedder(ctx, cfg.Embedding.Key, cfg.Embedding.Model, "")
	if err != nil {
		return nil, nil, err
	}

	idx, err := store.NewSQLite(cfg.Index.Path, emb)
	if err != nil {
		return nil, nil, err
	}
	if err := idx.Migrate(ctx); err != nil {
		_ = idx.Close()
		return nil, nil, eris.Wrap(err, "migrate index")
	}

	coll, err := idx.GetOrCreateCollection(ctx, cfg.Index.Collection)
	if err != nil {
		_ = idx.Close()
		return nil, nil, err
	}
	return idx, coll, nil
}

// initSheetLogger returns nil when logging is disabled.
func initSheetLogger() (*sheetlog.Logger, error) {
	switch cfg.Sheets.Driver {
	case "none":
		zap.L().Warn("sheets.driver is none, interactions will not be logged")
		return nil, nil
	case "xlsx":
		client := sheets.NewXLSXClient(cfg.Sheets.XLSXPath)
		return sheetlog.New(func(context.Context) (sheets.Client, error) {
			return client, nil
		}, cfg.Sheets.XLSXPath), nil
	case "google":
		if cfg.Sheets.SpreadsheetID == "" {
			return nil, eris.New("sheets.spreadsheet_id is required for the google driver")
		}
		credentials := cfg.Sheets.CredentialsFile
		return sheetlog.New(func(ctx context.Context) (sheets.Client, error) {
			return sheets.NewGoogleClient(ctx, credentials)
		}, cfg.Sheets.SpreadsheetID), nil
	}
	return nil, eris.Errorf("unsupported sheets driver: %s", cfg.Sheets.Driver)
}

// checkInteractionLog checks the log destination once at startup. An
// unreachable log is reported but does not stop the bot.
func checkInteractionLog(ctx context.Context, logger *sheetlog.Logger) bool {
	if logger == nil {
		return false
	}
	if !logger.TestConnection(ctx) {
		zap.L().Warn("interaction log unreachable, turns will not be logged",
			zap.String("driver", cfg.Sheets.Driver))
		return false
	}
	zap.L().Info("interaction log reachable", zap.String("driver", cfg.Sheets.Driver))
	return true
}

// initPipeline validates configuration for mode and builds every component.
// Callers should defer env.Close().
func initPipeline(ctx context.Context, mode string) (*pipelineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	logger, err := initSheetLogger()
	if err != nil {
		return nil, err
	}

	idx, coll, err := initIndex(ctx)
	if err != nil {
		return nil, err
	}

	if n, err := coll.Count(ctx); err == nil && n == 0 {
		zap.L().Warn("vector index is empty, run `violation-assistant ingest` first",
			zap.String("collection", coll.Name()))
	}

	costs := initCosts()

	var tr *transcribe.Transcriber
	if cfg.Whisper.Key != "" {
		wc := whisper.NewClient(cfg.Whisper.Key,
			whisper.WithBaseURL(cfg.Whisper.BaseURL),
			whisper.WithModel(cfg.Whisper.Model),
		)
		tr = transcribe.New(wc, transcribe.Config{
			Language:        cfg.Whisper.Language,
			MaxDurationSecs: cfg.Voice.MaxDurationSecs,
		}, costs)
	} else {
		zap.L().Warn("whisper.key not set, voice input disabled")
	}

	an := analyzer.New(anthropicpkg.NewClient(cfg.Anthropic.Key), analyzer.Config{
		Model:       cfg.Anthropic.Model,
		MaxTokens:   cfg.Anthropic.MaxTokens,
		Temperature: cfg.Anthropic.Temperature,
	}, costs)

	env := &pipelineEnv{
		Index:       idx,
		Collection:  coll,
		Costs:       costs,
		Transcriber: tr,
		Logger:      logger,
	}
	// A nil *sheetlog.Logger must not become a non-nil interface.
	if logger != nil {
		env.Pipeline = pipeline.New(retrieval.New(coll), an, logger, cfg.Index.TopK)
	} else {
		env.Pipeline = pipeline.New(retrieval.New(coll), an, nil, cfg.Index.TopK)
	}

	zap.L().Info("pipeline ready",
		zap.String("model", cfg.Anthropic.Model),
		zap.String("collection", coll.Name()),
		zap.String("sheets_driver", cfg.Sheets.Driver),
		zap.Bool("voice", tr != nil),
	)
	return env, nil
}
