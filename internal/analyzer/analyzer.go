// Package analyzer turns a violation description plus retrieved fragments
// into a standardized write-up using a single generation call.
package analyzer

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/violation-assistant/internal/cost"
	"github.com/sells-group/violation-assistant/internal/model"
	"github.com/sells-group/violation-assistant/pkg/anthropic"
)

// Placeholders returned when the generation call fails.
const (
	FailedDescription = "Ошибка анализа нарушения"
	FailedDocument    = "Не удалось определить нормативный документ"
	FailedSuggestions = "Попробуйте повторить описание нарушения"
)

// Placeholders returned when the reply cannot be processed.
const (
	ParseFailedDescription = "Ошибка обработки ответа"
	ParseFailedDocument    = "Не определено"
	ParseFailedSuggestions = "Требуется повторный анализ"
)

// DefaultSuggestions is used when the reply has no remediation section.
const DefaultSuggestions = "Требуется дополнительный анализ для определения мер по устранению"

// Config holds generation settings.
type Config struct {
	Model       string
	MaxTokens   int64
	Temperature float64
}

// Analyzer produces AnalysisResults. It is safe for concurrent use.
type Analyzer struct {
	client anthropic.Client
	cfg    Config
	costs  *cost.Calculator

	parse func(reply string, frags []model.RetrievedFragment) model.AnalysisResult
}

// New creates an Analyzer. costs may be nil, in which case usage is priced
// at cost.DefaultRates.
func New(client anthropic.Client, cfg Config, costs *cost.Calculator) *Analyzer {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1000
	}
	if costs == nil {
		costs = cost.NewCalculator(cost.DefaultRates())
	}
	return &Analyzer{client: client, cfg: cfg, costs: costs, parse: ParseReply}
}

// Model returns the generation model identifier.
func (a *Analyzer) Model() string { return a.cfg.Model }

// Analyze never returns an error: provider failures produce Success=false
// with placeholder text and ErrorMessage set.
func (a *Analyzer) Analyze(ctx context.Context, originalText string, frags []model.RetrievedFragment) model.AnalysisResult {
	prompt := BuildPrompt(originalText, FormatContext(frags))

	reply, err := a.generate(ctx, prompt)
	if err != nil {
		zap.L().Error("analyzer: generation failed", zap.String("model", a.cfg.Model), zap.Error(err))
		return model.AnalysisResult{
			CorrectedDescription: FailedDescription,
			DocumentInfo:         FailedDocument,
			Suggestions:          FailedSuggestions,
			Success:              false,
			ErrorMessage:         err.Error(),
		}
	}
	zap.L().Debug("analyzer: model reply", zap.String("reply", reply))

	return a.safeParse(reply, frags)
}

func (a *Analyzer) generate(ctx context.Context, prompt string) (string, error) {
	temp := a.cfg.Temperature
	resp, err := a.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       a.cfg.Model,
		MaxTokens:   a.cfg.MaxTokens,
		System:      []anthropic.SystemBlock{{Text: systemPrompt}},
		Messages:    []anthropic.Message{{Role: "user", Content: prompt}},
		Temperature: &temp,
	})
	if err != nil {
		return "", eris.Wrap(err, "analyzer: get model response")
	}

	a.costs.LogClaude(a.cfg.Model, "analyze", resp.Usage.InputTokens, resp.Usage.OutputTokens)
	return resp.Text(), nil
}

func (a *Analyzer) safeParse(reply string, frags []model.RetrievedFragment) (res model.AnalysisResult) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("analyzer: reply processing panicked", zap.Any("panic", r))
			res = model.AnalysisResult{
				CorrectedDescription: ParseFailedDescription,
				DocumentInfo:         ParseFailedDocument,
				Suggestions:          ParseFailedSuggestions,
				Success:              false,
				ErrorMessage:         fmt.Sprint(r),
			}
		}
	}()
	return a.parse(reply, frags)
}

// ParseReply extracts the three labeled sections and applies fallbacks:
// an unlabeled reply becomes the description, a missing citation is taken
// from the top fragment, and missing suggestions get a default sentence.
func ParseReply(reply string, frags []model.RetrievedFragment) model.AnalysisResult {
	desc := ExtractSection(reply, LabelDescription, LabelDocument, LabelSuggestions)
	doc := ExtractSection(reply, LabelDocument, LabelSuggestions)
	sugg := ExtractSection(reply, LabelSuggestions, "**")

	if desc == "" && doc == "" && sugg == "" {
		desc = reply
	}
	if doc == "" && len(frags) > 0 {
		doc = frags[0].Citation()
	}
	if sugg == "" {
		sugg = DefaultSuggestions
	}

	return model.AnalysisResult{
		CorrectedDescription: desc,
		DocumentInfo:         doc,
		Suggestions:          sugg,
		Success:              true,
	}
}
