// Package telegram connects Telegram chats to the ingress pipeline and sends replies back.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/arafat-telecom/chatbot/core/outbound"

	tele "gopkg.in/telebot.v4"
)

// SenderPrefix marks sender identifiers owned by Telegram.
const SenderPrefix = "tg:"

// Name is the transport name used in logs and metrics.
const Name = "telegram"

// Options configure a Bot.
type Options struct {
	Token                  string
	RunMode                string
	LongPollTimeoutSeconds int
	Webhook                WebhookOptions

	HTTPClient *http.Client
	// URL overrides the Bot API endpoint, mainly for tests.
	URL string
	// Offline skips the getMe call on construction.
	Offline bool
}

// Bot wraps a telebot instance as both an inbound source and an outbound transport.
type Bot struct {
	bot       *tele.Bot
	runMode   string
	buildTook time.Duration
}

// New builds the telebot client. It does not start polling.
func New(opts Options) (*Bot, error) {
	if strings.TrimSpace(opts.Token) == "" {
		return nil, errors.New("telegram: token is required")
	}
	poller := BuildPoller(PollerOptions{
		RunMode:                opts.RunMode,
		LongPollTimeoutSeconds: opts.LongPollTimeoutSeconds,
		Webhook:                opts.Webhook,
	})
	settings := tele.Settings{
		Token:   opts.Token,
		URL:     opts.URL,
		Poller:  poller,
		Client:  opts.HTTPClient,
		Offline: opts.Offline,
	}

	start := time.Now()
	b, err := tele.NewBot(settings)
	if err != nil {
		return nil, fmt.Errorf("telegram: bot initialization failed: %w", err)
	}
	return &Bot{
		bot:       b,
		runMode:   strings.ToLower(strings.TrimSpace(opts.RunMode)),
		buildTook: time.Since(start),
	}, nil
}

// Name identifies the transport.
func (b *Bot) Name() string { return Name }

// SendText delivers text to a "tg:<chat id>" recipient.
func (b *Bot) SendText(ctx context.Context, to, text string) error {
	chatID, err := ParseSenderID(to)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := b.bot.Send(tele.ChatID(chatID), text); err != nil {
		return wrapError(err)
	}
	return nil
}

// SenderID formats a Telegram user or chat id as a sender identifier.
func SenderID(id int64) string {
	return SenderPrefix + strconv.FormatInt(id, 10)
}

// ParseSenderID extracts the chat id from a "tg:<id>" sender identifier.
func ParseSenderID(sender string) (int64, error) {
	raw, ok := strings.CutPrefix(sender, SenderPrefix)
	if !ok {
		return 0, fmt.Errorf("telegram: not a telegram sender: %q", sender)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("telegram: invalid chat id %q: %w", raw, err)
	}
	return id, nil
}

// wrapError exposes the Bot API error code to the outbound classifier.
func wrapError(err error) error {
	var apiErr *tele.Error
	if errors.As(err, &apiErr) && apiErr.Code > 0 {
		return &outbound.APIError{Transport: Name, Status: apiErr.Code, Body: apiErr.Description}
	}
	return err
}
