// Package pipeline runs one report turn: retrieve fragments, analyze,
// render the reply and log the interaction.
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/violation-assistant/internal/model"
)

// Searcher retrieves fragments for a query. It must not fail.
type Searcher interface {
	Search(ctx context.Context, query string, topK int) []model.RetrievedFragment
}

// Analyst produces an analysis for a description and its fragments.
type Analyst interface {
	Analyze(ctx context.Context, originalText string, frags []model.RetrievedFragment) model.AnalysisResult
	Model() string
}

// InteractionLogger records turns and failures.
type InteractionLogger interface {
	LogViolation(ctx context.Context, rec *model.ViolationRecord, responseText, modelID string) bool
	LogError(ctx context.Context, message string, userID *int64) bool
}

// PhaseTiming records how long one step of a turn took.
type PhaseTiming struct {
	Name       string `json:"name"`
	DurationMs int64  `json:"duration_ms"`
}

// Outcome is the result of one turn.
type Outcome struct {
	Record   *model.ViolationRecord
	Result   model.AnalysisResult
	Response string
	Logged   bool
	Phases   []PhaseTiming
}

// Pipeline is safe for concurrent use; all per-turn state is local to Run.
type Pipeline struct {
	retriever Searcher
	analyzer  Analyst
	logger    InteractionLogger
	topK      int
}

// New creates a Pipeline. logger may be nil to disable interaction logging.
func New(retriever Searcher, analyzer Analyst, logger InteractionLogger, topK int) *Pipeline {
	return &Pipeline{retriever: retriever, analyzer: analyzer, logger: logger, topK: topK}
}

// Run processes one description. A logging failure does not fail the turn;
// errors are returned only for a cancelled context or empty input.
func (p *Pipeline) Run(ctx context.Context, text string) (*Outcome, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, eris.New("pipeline: empty description")
	}
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "pipeline: context done")
	}

	log := zap.L().With(zap.String("component", "pipeline"))
	out := &Outcome{}
	track := func(name string, fn func()) {
		start := time.Now()
		fn()
		d := time.Since(start).Milliseconds()
		out.Phases = append(out.Phases, PhaseTiming{Name: name, DurationMs: d})
		log.Debug("pipeline: phase complete", zap.String("phase", name), zap.Int64("duration_ms", d))
	}

	var frags []model.RetrievedFragment
	track("retrieve", func() {
		frags = p.retriever.Search(ctx, text, p.topK)
	})

	track("analyze", func() {
		out.Result = p.analyzer.Analyze(ctx, text, frags)
	})
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "pipeline: context done")
	}

	out.Record = model.NewViolationRecord(text, frags)
	out.Record.ApplyResult(out.Result)
	out.Response = RenderResponse(out.Result, text)

	if p.logger != nil {
		track("log", func() {
			out.Logged = p.logger.LogViolation(ctx, out.Record, out.Response, p.analyzer.Model())
		})
		if !out.Logged {
			log.Warn("pipeline: interaction not logged")
		}
	}

	log.Info("pipeline: turn complete",
		zap.Int("fragments", len(frags)),
		zap.Bool("success", out.Result.Success),
		zap.String("model", p.analyzer.Model()),
	)
	return out, nil
}

// LogError forwards a failure to the interaction log, if one is configured.
func (p *Pipeline) LogError(ctx context.Context, message string, userID *int64) bool {
	if p.logger == nil {
		return false
	}
	return p.logger.LogError(ctx, message, userID)
}
