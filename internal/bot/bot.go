// Package bot binds the conversation controller to the Telegram Bot API.
package bot

import (
	"context"
	"fmt"
	"io"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/violation-assistant/internal/conversation"
)

// API is the subset of *tgbotapi.BotAPI used by the bot.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Handler receives routed updates.
type Handler interface {
	Start(ctx context.Context, chatID int64)
	Help(ctx context.Context, chatID int64)
	NewReport(ctx context.Context, chatID int64)
	HandleVoice(ctx context.Context, chatID, userID int64, v conversation.Voice) bool
	HandleText(ctx context.Context, chatID, userID int64, text string) bool
	HandleOther(ctx context.Context, chatID int64) bool
}

// ErrorLogger records failures that escape the handler.
type ErrorLogger interface {
	LogError(ctx context.Context, message string, userID *int64) bool
}

// Bot implements conversation.Messenger and transcribe.Downloader on top of
// the Telegram API. Outbound calls share one rate limiter.
type Bot struct {
	api         API
	limiter     *rate.Limiter
	httpClient  *http.Client
	concurrency int
	errLog      ErrorLogger
}

// Option configures a Bot.
type Option func(*Bot)

// WithHTTPClient sets the client used to download voice files.
func WithHTTPClient(c *http.Client) Option {
	return func(b *Bot) {
		b.httpClient = c
	}
}

// WithConcurrency caps the number of updates handled at once.
func WithConcurrency(n int) Option {
	return func(b *Bot) {
		b.concurrency = n
	}
}

// WithErrorLogger reports recovered handler panics to l.
func WithErrorLogger(l ErrorLogger) Option {
	return func(b *Bot) {
		b.errLog = l
	}
}

// New wraps api. ratePerSec bounds outbound requests; <= 0 disables limiting.
func New(api API, ratePerSec float64, opts ...Option) *Bot {
	limit := rate.Inf
	burst := 1
	if ratePerSec > 0 {
		limit = rate.Limit(ratePerSec)
		burst = max(1, int(ratePerSec))
	}
	b := &Bot{
		api:         api,
		limiter:     rate.NewLimiter(limit, burst),
		httpClient:  http.DefaultClient,
		concurrency: 64,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Connect logs in with token and returns the API handle.
func Connect(token string) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, eris.Wrap(err, "bot: connect")
	}
	zap.L().Info("bot: authorized", zap.String("username", api.Self.UserName))
	return api, nil
}

func reportKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(conversation.ReportButtonText, conversation.ReportCallback),
		),
	)
}

// SendText sends a message and returns its ID.
func (b *Bot) SendText(ctx context.Context, chatID int64, text string, opts conversation.SendOptions) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	if opts.Markdown {
		msg.ParseMode = tgbotapi.ModeMarkdown
	}
	if opts.ReportButton {
		msg.ReplyMarkup = reportKeyboard()
	}
	return b.send(ctx, msg)
}

// SendPhoto sends a local image with a caption.
func (b *Bot) SendPhoto(ctx context.Context, chatID int64, path, caption string, opts conversation.SendOptions) (int, error) {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FilePath(path))
	photo.Caption = caption
	if opts.Markdown {
		photo.ParseMode = tgbotapi.ModeMarkdown
	}
	if opts.ReportButton {
		photo.ReplyMarkup = reportKeyboard()
	}
	return b.send(ctx, photo)
}

// EditText replaces the text of a sent message.
func (b *Bot) EditText(ctx context.Context, chatID int64, messageID int, text string) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "bot: rate limit")
	}
	_, err := b.api.Request(tgbotapi.NewEditMessageText(chatID, messageID, text))
	return eris.Wrap(err, "bot: edit message")
}

// Delete removes a sent message.
func (b *Bot) Delete(ctx context.Context, chatID int64, messageID int) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "bot: rate limit")
	}
	_, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID))
	return eris.Wrap(err, "bot: delete message")
}

// Download fetches a file's bytes by its Telegram file ID.
func (b *Bot) Download(ctx context.Context, fileID string) ([]byte, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "bot: rate limit")
	}
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, eris.Wrap(err, "bot: get file url")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, eris.Wrap(err, "bot: create download request")
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "bot: download file")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("bot: download file: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "bot: read file")
	}
	return data, nil
}

func (b *Bot) send(ctx context.Context, c tgbotapi.Chattable) (int, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return 0, eris.Wrap(err, "bot: rate limit")
	}
	msg, err := b.api.Send(c)
	if err != nil {
		return 0, eris.Wrap(err, "bot: send")
	}
	return msg.MessageID, nil
}

// Run long-polls for updates and dispatches each on its own goroutine until
// ctx is cancelled. In-flight updates are awaited before returning.
func (b *Bot) Run(ctx context.Context, h Handler) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	g := new(errgroup.Group)
	g.SetLimit(b.concurrency)

	zap.L().Info("bot: polling for updates")
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			_ = g.Wait()
			zap.L().Info("bot: stopped")
			return nil
		case upd, ok := <-updates:
			if !ok {
				_ = g.Wait()
				return nil
			}
			g.Go(func() error {
				b.dispatch(ctx, h, upd)
				return nil
			})
		}
	}
}

// dispatch routes one update. A panic is turned into a failure reply and an
// error-log entry so one bad update cannot stop the loop.
func (b *Bot) dispatch(ctx context.Context, h Handler, upd tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.recovered(ctx, upd, r)
		}
	}()

	if cq := upd.CallbackQuery; cq != nil {
		if cq.Data != conversation.ReportCallback || cq.Message == nil {
			return
		}
		if err := b.limiter.Wait(ctx); err == nil {
			if _, err := b.api.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
				zap.L().Debug("bot: answer callback", zap.Error(err))
			}
		}
		h.NewReport(ctx, cq.Message.Chat.ID)
		return
	}

	msg := upd.Message
	if msg == nil || msg.Chat == nil {
		return
	}
	chatID := msg.Chat.ID
	var userID int64
	if msg.From != nil {
		userID = msg.From.ID
	}

	var handled bool
	switch {
	case msg.IsCommand() && msg.Command() == "start":
		h.Start(ctx, chatID)
		return
	case msg.IsCommand() && msg.Command() == "help":
		h.Help(ctx, chatID)
		return
	case msg.Voice != nil:
		handled = h.HandleVoice(ctx, chatID, userID, conversation.Voice{FileID: msg.Voice.FileID, Duration: msg.Voice.Duration})
	case msg.Text != "":
		handled = h.HandleText(ctx, chatID, userID, msg.Text)
	default:
		handled = h.HandleOther(ctx, chatID)
	}
	if !handled {
		zap.L().Debug("bot: update ignored", zap.Int64("chat_id", chatID), zap.Int("update_id", upd.UpdateID))
	}
}

func (b *Bot) recovered(ctx context.Context, upd tgbotapi.Update, r any) {
	reason := fmt.Sprint(r)
	zap.L().Error("bot: update handler panicked", zap.Int("update_id", upd.UpdateID), zap.String("panic", reason))

	var chat *tgbotapi.Chat
	if cq := upd.CallbackQuery; cq == nil || cq.Message != nil {
		chat = upd.FromChat()
	}
	user := upd.SentFrom()
	if chat != nil {
		if _, err := b.SendText(ctx, chat.ID, conversation.TurnFailedMessage(reason), conversation.SendOptions{ReportButton: true}); err != nil {
			zap.L().Warn("bot: send failure reply", zap.Int64("chat_id", chat.ID), zap.Error(err))
		}
	}
	if b.errLog != nil {
		var userID *int64
		if user != nil {
			id := user.ID
			userID = &id
		}
		b.errLog.LogError(ctx, reason, userID)
	}
}
