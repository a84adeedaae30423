// Package middleware holds telebot middlewares shared by every Telegram route.
package middleware

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/arafat-telecom/chatbot/core/logger"

	tele "gopkg.in/telebot.v4"
)

const contextKey = "logger_ctx"

// SenderIDFunc formats the Telegram user id the way the rest of the system identifies senders.
type SenderIDFunc func(userID int64) string

// Logger returns a middleware that builds the per-update logging context and logs receipt.
func Logger(senderID SenderIDFunc) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			upd := c.Update()
			sender := ""
			if user := c.Sender(); user != nil && senderID != nil {
				sender = senderID(user.ID)
			}

			ctx := logger.WithMessageMeta(context.Background(), "telegram", strconv.Itoa(upd.ID), sender)
			ctx = logger.WithLogger(ctx, logger.Component("tg"))
			StoreContext(c, ctx)

			if logger.ShouldSampleDebug() {
				attrs := []slog.Attr{
					slog.String("status", "ok"),
					slog.Int("update_id", upd.ID),
				}
				if chat := c.Chat(); chat != nil {
					attrs = append(attrs, slog.String("chat_type", string(chat.Type)))
				}
				if user := c.Sender(); user != nil && user.LanguageCode != "" {
					attrs = append(attrs, slog.String("lang", user.LanguageCode))
				}
				if t := c.Text(); t != "" {
					attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(t, 256)))
				}
				logger.LogEvent(ctx, logger.Component("tg"), slog.LevelDebug, "update.received", attrs...)
			}
			return next(c)
		}
	}
}

// StoreContext attaches ctx to c for downstream handlers.
func StoreContext(c tele.Context, ctx context.Context) {
	if c == nil || ctx == nil {
		return
	}
	c.Set(contextKey, ctx)
}

// ContextFrom returns the context stored by Logger, or a background context.
func ContextFrom(c tele.Context) context.Context {
	if c != nil {
		if ctx, ok := c.Get(contextKey).(context.Context); ok && ctx != nil {
			return ctx
		}
	}
	return context.Background()
}

// WithHandler records the handler name in the stored context.
func WithHandler(c tele.Context, handler string) context.Context {
	ctx := logger.WithHandler(ContextFrom(c), handler)
	StoreContext(c, ctx)
	return ctx
}
