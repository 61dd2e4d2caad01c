// Package transcribe converts voice notes to text.
package transcribe

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/violation-assistant/internal/cost"
	"github.com/sells-group/violation-assistant/internal/validate"
	"github.com/sells-group/violation-assistant/pkg/whisper"
)

// User-facing failure reasons.
const (
	ErrDownload     = "Не удалось скачать голосовое сообщение"
	ErrNoSpeech     = "Не удалось распознать речь в голосовом сообщении"
	errProcessingFm = "Ошибка обработки голосового сообщения: "
)

// Result is the outcome of one transcription. When OK is false, Error holds
// a message suitable for the user and Text is empty.
type Result struct {
	OK    bool
	Text  string
	Error string
}

// Downloader fetches a voice note's bytes from the messaging platform.
type Downloader interface {
	Download(ctx context.Context, fileID string) ([]byte, error)
}

// Config holds transcription settings.
type Config struct {
	Language        string
	MaxDurationSecs int
}

// Transcriber wraps a speech-to-text client. Each call is attempted once.
type Transcriber struct {
	client whisper.Client
	cfg    Config
	costs  *cost.Calculator
}

// New creates a Transcriber. costs may be nil.
func New(client whisper.Client, cfg Config, costs *cost.Calculator) *Transcriber {
	if cfg.MaxDurationSecs <= 0 {
		cfg.MaxDurationSecs = validate.DefaultMaxVoiceSecs
	}
	return &Transcriber{client: client, cfg: cfg, costs: costs}
}

// Transcribe converts audio to trimmed text. Out-of-range durations are
// rejected without calling the provider.
func (t *Transcriber) Transcribe(ctx context.Context, audio []byte, durationSecs int) Result {
	if msg := validate.VoiceDuration(durationSecs, t.cfg.MaxDurationSecs); msg != "" {
		return Result{Error: msg}
	}

	resp, err := t.client.Transcribe(ctx, whisper.TranscribeRequest{
		Audio:    audio,
		Filename: "voice.ogg",
		Language: t.cfg.Language,
	})
	if err != nil {
		err = eris.Wrap(err, "transcribe: speech to text")
		zap.L().Warn("transcribe: provider call failed", zap.Error(err))
		return Result{Error: errProcessingFm + err.Error()}
	}
	if t.costs != nil {
		t.costs.LogWhisper(durationSecs)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return Result{Error: ErrNoSpeech}
	}
	return Result{OK: true, Text: text}
}

// Process downloads the voice note identified by fileID and transcribes it.
func (t *Transcriber) Process(ctx context.Context, dl Downloader, fileID string, durationSecs int) Result {
	if msg := validate.VoiceDuration(durationSecs, t.cfg.MaxDurationSecs); msg != "" {
		return Result{Error: msg}
	}

	audio, err := dl.Download(ctx, fileID)
	if err != nil {
		zap.L().Warn("transcribe: download failed", zap.String("file_id", fileID), zap.Error(err))
		return Result{Error: ErrDownload}
	}
	return t.Transcribe(ctx, audio, durationSecs)
}
