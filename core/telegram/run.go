package telegram

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	coreconfig "github.com/arafat-telecom/chatbot/core/config"
	"github.com/arafat-telecom/chatbot/core/ingress"
	"github.com/arafat-telecom/chatbot/core/logger"
	"github.com/arafat-telecom/chatbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// Handler receives inbound Telegram text messages.
type Handler interface {
	Handle(ctx context.Context, msg ingress.Message) (string, error)
}

// Run registers the text route and polls updates until ctx is done.
func (b *Bot) Run(ctx context.Context, h Handler) error {
	if h == nil {
		return errors.New("telegram: nil handler")
	}
	b.logMode(ctx)

	b.bot.Use(middleware.RecoverMiddleware, middleware.Logger(SenderID))
	b.bot.Handle(tele.OnText, textHandler(h))

	runDone := make(chan struct{})
	go func() {
		b.bot.Start()
		close(runDone)
	}()

	select {
	case <-ctx.Done():
		b.bot.Stop()
		<-runDone
		logger.Info(ctx, "tg", "stopped")
		return nil
	case <-runDone:
		return nil
	}
}

func (b *Bot) logMode(ctx context.Context) {
	switch p := b.bot.Poller.(type) {
	case *tele.Webhook:
		logger.TG.Info("webhook mode",
			slog.String("event", "mode"),
			slog.String("mode", "webhook"),
			slog.String("listen", p.Listen),
			slog.String("public_url", p.Endpoint.PublicURL),
			slog.Duration("duration", logger.RoundMS(b.buildTook)),
		)
	case *tele.LongPoller:
		logger.TG.Info("polling mode",
			slog.String("event", "mode"),
			slog.String("mode", "polling"),
			slog.Int("timeout_seconds", int(p.Timeout/time.Second)),
			slog.Duration("duration", logger.RoundMS(b.buildTook)),
		)
		if b.runMode != coreconfig.RunModeLongpoll {
			return
		}
		// A webhook left over from a previous deployment blocks getUpdates.
		if err := b.bot.RemoveWebhook(false); err != nil {
			logger.Warn(ctx, "tg", "delete_webhook",
				slog.String("status", "fail"),
				slog.String("err", err.Error()),
			)
			return
		}
		logger.Info(ctx, "tg", "delete_webhook", slog.String("status", "ok"))
	}
}

// textHandler maps a text update to an ingress message and logs one handler summary line.
func textHandler(h Handler) tele.HandlerFunc {
	return func(c tele.Context) error {
		start := time.Now()
		ctx := middleware.WithHandler(c, "text")

		msg, ok := toMessage(c)
		if !ok {
			logHandlerSummary(ctx, start, "skip", nil)
			return nil
		}
		status, err := h.Handle(ctx, msg)
		logHandlerSummary(ctx, start, status, err)
		return err
	}
}

func toMessage(c tele.Context) (ingress.Message, bool) {
	user := c.Sender()
	if user == nil {
		return ingress.Message{}, false
	}
	text := strings.TrimSpace(c.Text())
	if text == "" {
		return ingress.Message{}, false
	}
	return ingress.Message{
		Transport: Name,
		ID:        strconv.Itoa(c.Update().ID),
		SenderID:  SenderID(user.ID),
		Text:      text,
	}, true
}

func logHandlerSummary(ctx context.Context, start time.Time, status string, err error) {
	attrs := []slog.Attr{
		slog.String("status", logger.Status(err)),
		slog.String("ingress", status),
		slog.Duration("duration", logger.Took(start)),
	}
	if err != nil {
		attrs = append(attrs, slog.String("err", logger.SanitizeLimit(err.Error(), 256)))
	}
	logger.Info(ctx, "tg", "handler.handled", attrs...)
}
