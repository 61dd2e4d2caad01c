package cost

import "go.uber.org/zap"

// Rates holds per-provider pricing configuration.
type Rates struct {
	Anthropic map[string]ModelRate `yaml:"anthropic" mapstructure:"anthropic"`
	Whisper   WhisperRate          `yaml:"whisper" mapstructure:"whisper"`
}

// ModelRate holds per-model token pricing (per million tokens).
type ModelRate struct {
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// WhisperRate holds speech-to-text pricing.
type WhisperRate struct {
	PerMinute float64 `yaml:"per_minute" mapstructure:"per_minute"`
}

// Calculator computes costs for API usage.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Claude computes the cost for a Claude API call. Unknown models cost 0.
func (c *Calculator) Claude(model string, input, output int64) float64 {
	rate, ok := c.rates.Anthropic[model]
	if !ok {
		return 0
	}
	inCost := (float64(input) / 1e6) * rate.Input
	outCost := (float64(output) / 1e6) * rate.Output
	return inCost + outCost
}

// Whisper computes the cost of transcribing durationSecs of audio. The
// provider bills per started second, so partial minutes are prorated.
func (c *Calculator) Whisper(durationSecs int) float64 {
	if durationSecs <= 0 {
		return 0
	}
	return (float64(durationSecs) / 60) * c.rates.Whisper.PerMinute
}

// LogClaude logs a Claude call's token usage and cost.
func (c *Calculator) LogClaude(model, phase string, input, output int64) {
	zap.L().Info("cost attribution",
		zap.String("provider", "anthropic"),
		zap.String("model", model),
		zap.String("phase", phase),
		zap.Int64("input_tokens", input),
		zap.Int64("output_tokens", output),
		zap.Float64("estimated_cost_usd", c.Claude(model, input, output)),
	)
}

// LogWhisper logs a transcription's billed duration and cost.
func (c *Calculator) LogWhisper(durationSecs int) {
	zap.L().Info("cost attribution",
		zap.String("provider", "whisper"),
		zap.String("phase", "transcribe"),
		zap.Int("duration_secs", durationSecs),
		zap.Float64("estimated_cost_usd", c.Whisper(durationSecs)),
	)
}

// Merge overlays non-zero entries of override onto r and returns the result.
func (r Rates) Merge(override Rates) Rates {
	out := Rates{
		Anthropic: make(map[string]ModelRate, len(r.Anthropic)+len(override.Anthropic)),
		Whisper:   r.Whisper,
	}
	for k, v := range r.Anthropic {
		out.Anthropic[k] = v
	}
	for k, v := range override.Anthropic {
		out.Anthropic[k] = v
	}
	if override.Whisper.PerMinute > 0 {
		out.Whisper = override.Whisper
	}
	return out
}

// DefaultRates returns the default pricing rates.
func DefaultRates() Rates {
	return Rates{
		Anthropic: map[string]ModelRate{
			"claude-haiku-4-5-20251001":  {Input: 0.80, Output: 4.00},
			"claude-sonnet-4-5-20250929": {Input: 3.00, Output: 15.00},
			"claude-opus-4-6":            {Input: 15.00, Output: 75.00},
		},
		Whisper: WhisperRate{PerMinute: 0.006},
	}
}
