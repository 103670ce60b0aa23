package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	telegramMaxRetries = 3
	telegramTimeout    = 30 * time.Second
)

// telegramSleepFunc waits out rate-limit back-off. Tests replace it.
var telegramSleepFunc = func(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// TelegramConfig configures the Telegram notifier.
type TelegramConfig struct {
	Token string
	// ChatID is a numeric chat id or a public channel username ("@name").
	ChatID      string
	APIEndpoint string // defaults to tgbotapi.APIEndpoint
	Silent      bool   // send without notification sound
	Client      *http.Client
	Logger      *slog.Logger
}

// Telegram implements Notifier and Deleter on the Telegram Bot API.
type Telegram struct {
	bot     *tgbotapi.BotAPI
	chatID  int64
	channel string
	silent  bool
	logger  *slog.Logger
}

// NewTelegram builds a notifier for one chat. It does not contact the API;
// use Me to verify the token.
func NewTelegram(cfg TelegramConfig) (*Telegram, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram: token is required")
	}

	t := &Telegram{silent: cfg.Silent, logger: cfg.Logger}
	if t.logger == nil {
		t.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	chat := strings.TrimSpace(cfg.ChatID)
	switch {
	case chat == "":
		return nil, errors.New("telegram: chat id is required")
	case strings.HasPrefix(chat, "@"):
		t.channel = chat
	default:
		id, err := strconv.ParseInt(chat, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("telegram: invalid chat id %q: %w", chat, err)
		}
		t.chatID = id
	}

	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: telegramTimeout}
	}
	endpoint := cfg.APIEndpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}

	t.bot = &tgbotapi.BotAPI{Token: cfg.Token, Client: client, Buffer: 100}
	t.bot.SetAPIEndpoint(endpoint)
	return t, nil
}

// Me returns the bot's username.
func (t *Telegram) Me(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	user, err := t.bot.GetMe()
	if err != nil {
		return "", fmt.Errorf("telegram getMe: %w", err)
	}
	return user.UserName, nil
}

func (t *Telegram) baseChat() tgbotapi.BaseChat {
	return tgbotapi.BaseChat{
		ChatID:              t.chatID,
		ChannelUsername:     t.channel,
		DisableNotification: t.silent,
	}
}

func (t *Telegram) baseEdit(messageID int) tgbotapi.BaseEdit {
	return tgbotapi.BaseEdit{
		ChatID:          t.chatID,
		ChannelUsername: t.channel,
		MessageID:       messageID,
	}
}

func (t *Telegram) SendText(ctx context.Context, text string) (string, error) {
	msg := tgbotapi.MessageConfig{BaseChat: t.baseChat(), Text: text}
	id, err := t.send(ctx, msg)
	if err != nil {
		return "", &SendError{Method: "sendMessage", Err: err}
	}
	return id, nil
}

func (t *Telegram) SendImage(ctx context.Context, url string) (string, error) {
	photo := tgbotapi.PhotoConfig{
		BaseFile: tgbotapi.BaseFile{BaseChat: t.baseChat(), File: tgbotapi.FileURL(url)},
	}
	id, err := t.send(ctx, photo)
	if err != nil {
		return "", &SendError{Method: "sendPhoto", Err: err}
	}
	return id, nil
}

func (t *Telegram) EditText(ctx context.Context, messageID, text string) error {
	id, err := parseMessageID(messageID)
	if err != nil {
		return &EditError{Method: "editMessageText", MessageID: messageID, Err: err}
	}
	edit := tgbotapi.EditMessageTextConfig{BaseEdit: t.baseEdit(id), Text: text}
	if err := t.request(ctx, edit); err != nil && !isNotModified(err) {
		return &EditError{Method: "editMessageText", MessageID: messageID, Err: err}
	}
	return nil
}

func (t *Telegram) EditImage(ctx context.Context, messageID, url string) error {
	id, err := parseMessageID(messageID)
	if err != nil {
		return &EditError{Method: "editMessageMedia", MessageID: messageID, Err: err}
	}
	edit := tgbotapi.EditMessageMediaConfig{
		BaseEdit: t.baseEdit(id),
		Media:    tgbotapi.NewInputMediaPhoto(tgbotapi.FileURL(url)),
	}
	if err := t.request(ctx, edit); err != nil && !isNotModified(err) {
		return &EditError{Method: "editMessageMedia", MessageID: messageID, Err: err}
	}
	return nil
}

func (t *Telegram) Delete(ctx context.Context, messageID string) error {
	id, err := parseMessageID(messageID)
	if err != nil {
		return &DeleteError{MessageID: messageID, Err: err}
	}
	del := tgbotapi.DeleteMessageConfig{ChatID: t.chatID, ChannelUsername: t.channel, MessageID: id}
	if err := t.request(ctx, del); err != nil {
		return &DeleteError{MessageID: messageID, Err: err}
	}
	return nil
}

func (t *Telegram) send(ctx context.Context, c tgbotapi.Chattable) (string, error) {
	var msg tgbotapi.Message
	err := t.withRetry(ctx, func() error {
		var err error
		msg, err = t.bot.Send(c)
		return err
	})
	if err != nil {
		return "", err
	}
	return strconv.Itoa(msg.MessageID), nil
}

func (t *Telegram) request(ctx context.Context, c tgbotapi.Chattable) error {
	return t.withRetry(ctx, func() error {
		_, err := t.bot.Request(c)
		return err
	})
}

// withRetry runs call, backing off while Telegram answers 429.
func (t *Telegram) withRetry(ctx context.Context, call func() error) error {
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := call()
		if err == nil {
			return nil
		}

		retryAfter, limited := rateLimited(err)
		if !limited || attempt >= telegramMaxRetries {
			return err
		}
		if retryAfter <= 0 {
			retryAfter = time.Duration(attempt+1) * 3 * time.Second
		}
		t.logger.Warn("telegram rate limited, backing off",
			"retry_after", retryAfter, "attempt", attempt+1,
		)
		if err := telegramSleepFunc(ctx, retryAfter); err != nil {
			return err
		}
	}
}

func rateLimited(err error) (time.Duration, bool) {
	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) || apiErr.Code != http.StatusTooManyRequests {
		return 0, false
	}
	return time.Duration(apiErr.RetryAfter) * time.Second, true
}

func isNotModified(err error) bool {
	var apiErr *tgbotapi.Error
	return errors.As(err, &apiErr) && strings.Contains(apiErr.Message, "message is not modified")
}

func parseMessageID(messageID string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(messageID))
	if err != nil {
		return 0, fmt.Errorf("invalid message id %q", messageID)
	}
	return id, nil
}
