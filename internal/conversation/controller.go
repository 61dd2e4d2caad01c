// Package conversation drives the per-chat report flow: a chat becomes ready
// for input through /start or the report button, and every accepted input
// runs one report turn and returns the chat to idle.
package conversation

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sells-group/violation-assistant/internal/pipeline"
	"github.com/sells-group/violation-assistant/internal/transcribe"
	"github.com/sells-group/violation-assistant/internal/validate"
)

// SendOptions controls how an outbound message is rendered.
type SendOptions struct {
	ReportButton bool
	Markdown     bool
}

// Messenger is the outbound side of the messaging platform.
type Messenger interface {
	SendText(ctx context.Context, chatID int64, text string, opts SendOptions) (int, error)
	SendPhoto(ctx context.Context, chatID int64, path, caption string, opts SendOptions) (int, error)
	EditText(ctx context.Context, chatID int64, messageID int, text string) error
	Delete(ctx context.Context, chatID int64, messageID int) error
}

// Voice describes an inbound voice note.
type Voice struct {
	FileID   string
	Duration int
}

// VoiceProcessor downloads and transcribes voice notes.
type VoiceProcessor interface {
	Process(ctx context.Context, dl transcribe.Downloader, fileID string, durationSecs int) transcribe.Result
}

// Runner executes report turns.
type Runner interface {
	Run(ctx context.Context, text string) (*pipeline.Outcome, error)
	LogError(ctx context.Context, message string, userID *int64) bool
}

// Config holds the controller's limits and assets.
type Config struct {
	WelcomeImage    string
	MaxDurationSecs int
	MinTextLength   int
	MaxTextLength   int
}

// Controller handles inbound events. Handlers may run concurrently; the
// session store is the only shared mutable state.
type Controller struct {
	sessions   *SessionStore
	messenger  Messenger
	downloader transcribe.Downloader
	voice      VoiceProcessor
	runner     Runner
	cfg        Config
}

// New creates a Controller.
func New(sessions *SessionStore, messenger Messenger, downloader transcribe.Downloader, voice VoiceProcessor, runner Runner, cfg Config) *Controller {
	if cfg.MaxDurationSecs <= 0 {
		cfg.MaxDurationSecs = validate.DefaultMaxVoiceSecs
	}
	if cfg.MinTextLength <= 0 {
		cfg.MinTextLength = validate.DefaultMinTextLen
	}
	if cfg.MaxTextLength <= 0 {
		cfg.MaxTextLength = validate.DefaultMaxTextLen
	}
	return &Controller{
		sessions:   sessions,
		messenger:  messenger,
		downloader: downloader,
		voice:      voice,
		runner:     runner,
		cfg:        cfg,
	}
}

var withButton = SendOptions{ReportButton: true}

// Start greets the user and waits for a report.
func (c *Controller) Start(ctx context.Context, chatID int64) {
	c.sessions.Apply(chatID, EventStart)

	caption := fmt.Sprintf(welcomeText, c.cfg.MaxDurationSecs)
	opts := SendOptions{ReportButton: true, Markdown: true}
	if c.cfg.WelcomeImage != "" {
		_, err := c.messenger.SendPhoto(ctx, chatID, c.cfg.WelcomeImage, caption, opts)
		if err == nil {
			return
		}
		zap.L().Warn("conversation: welcome photo failed, sending text", zap.Int64("chat_id", chatID), zap.Error(err))
	}
	c.send(ctx, chatID, caption, opts)
}

// Help sends usage help without changing state.
func (c *Controller) Help(ctx context.Context, chatID int64) {
	c.sessions.Apply(chatID, EventHelp)
	c.send(ctx, chatID, fmt.Sprintf(helpText, c.cfg.MaxDurationSecs), SendOptions{ReportButton: true, Markdown: true})
}

// NewReport puts the chat into awaiting-input and sends instructions.
func (c *Controller) NewReport(ctx context.Context, chatID int64) {
	c.sessions.Apply(chatID, EventNewReport)
	c.send(ctx, chatID, fmt.Sprintf(instructionText, c.cfg.MaxDurationSecs), SendOptions{Markdown: true})
}

// HandleVoice processes a voice report. It returns false when the chat was
// not awaiting input and the message was ignored.
func (c *Controller) HandleVoice(ctx context.Context, chatID, userID int64, v Voice) bool {
	if !c.sessions.Claim(chatID) {
		return false
	}
	log := zap.L().With(zap.Int64("chat_id", chatID), zap.Int64("user_id", userID))

	if msg := validate.VoiceDuration(v.Duration, c.cfg.MaxDurationSecs); msg != "" {
		c.send(ctx, chatID, fmt.Sprintf(msgVoiceInvalid, msg), withButton)
		return true
	}

	progress := c.send(ctx, chatID, msgProcessingVoice, SendOptions{})

	res := c.voice.Process(ctx, c.downloader, v.FileID, v.Duration)
	if !res.OK {
		log.Info("conversation: transcription failed", zap.String("reason", res.Error))
		c.remove(ctx, chatID, progress)
		c.send(ctx, chatID, fmt.Sprintf(msgSpeechFailed, res.Error), withButton)
		return true
	}

	if msg := validate.TextLength(res.Text, c.cfg.MinTextLength, c.cfg.MaxTextLength); msg != "" {
		c.remove(ctx, chatID, progress)
		c.send(ctx, chatID, fmt.Sprintf(msgSpeechTooPoor, msg), withButton)
		return true
	}

	if progress != 0 {
		if err := c.messenger.EditText(ctx, chatID, progress, msgAnalyzingVoice); err != nil {
			log.Warn("conversation: edit progress message", zap.Error(err))
		}
	}

	c.runTurn(ctx, chatID, userID, res.Text, progress)
	return true
}

// HandleText processes a text report. It returns false when the chat was not
// awaiting input.
func (c *Controller) HandleText(ctx context.Context, chatID, userID int64, text string) bool {
	if !c.sessions.Claim(chatID) {
		return false
	}

	text = validate.Sanitize(text)
	if msg := validate.TextLength(text, c.cfg.MinTextLength, c.cfg.MaxTextLength); msg != "" {
		c.send(ctx, chatID, fmt.Sprintf(msgTextInvalid, msg), withButton)
		return true
	}

	progress := c.send(ctx, chatID, msgAnalyzingText, SendOptions{})
	c.runTurn(ctx, chatID, userID, text, progress)
	return true
}

// HandleOther answers unsupported input while awaiting a report.
func (c *Controller) HandleOther(ctx context.Context, chatID int64) bool {
	if !c.sessions.Claim(chatID) {
		return false
	}
	c.send(ctx, chatID, msgOtherInput, withButton)
	return true
}

// State returns the chat's current state.
func (c *Controller) State(chatID int64) string {
	return string(c.sessions.Get(chatID))
}

func (c *Controller) runTurn(ctx context.Context, chatID, userID int64, text string, progress int) {
	out, err := c.runner.Run(ctx, text)
	c.remove(ctx, chatID, progress)
	if err != nil {
		zap.L().Error("conversation: turn failed",
			zap.Int64("chat_id", chatID),
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
		c.send(ctx, chatID, TurnFailedMessage(err.Error()), withButton)
		c.runner.LogError(ctx, err.Error(), &userID)
		return
	}

	// Model text can carry unbalanced Markdown that Telegram rejects; the
	// reply is then resent as plain text.
	if _, err := c.messenger.SendText(ctx, chatID, out.Response, SendOptions{ReportButton: true, Markdown: true}); err != nil {
		zap.L().Warn("conversation: send reply",
			zap.Int64("chat_id", chatID),
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
		c.runner.LogError(ctx, "send reply: "+err.Error(), &userID)
		if _, err := c.messenger.SendText(ctx, chatID, out.Response, withButton); err != nil {
			c.send(ctx, chatID, TurnFailedMessage(err.Error()), withButton)
		}
	}
}

// send delivers text and returns the message ID, or 0 on failure.
func (c *Controller) send(ctx context.Context, chatID int64, text string, opts SendOptions) int {
	id, err := c.messenger.SendText(ctx, chatID, text, opts)
	if err != nil {
		zap.L().Warn("conversation: send message", zap.Int64("chat_id", chatID), zap.Error(err))
		return 0
	}
	return id
}

func (c *Controller) remove(ctx context.Context, chatID int64, messageID int) {
	if messageID == 0 {
		return
	}
	if err := c.messenger.Delete(ctx, chatID, messageID); err != nil {
		zap.L().Debug("conversation: delete progress message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
