package middleware

import (
	"context"
	"time"

	"gopkg.in/telebot.v3"
)

// WithContext gives every bot command its own deadline derived from the
// application context.
func WithContext(rootCtx context.Context, timeout time.Duration, handler func(ctx context.Context, c telebot.Context) error) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		ctx, cancel := context.WithTimeout(rootCtx, timeout)
		defer cancel()

		return handler(ctx, c)
	}
}

// OnlyChat drops updates from any chat other than the configured one,
// without replying.
func OnlyChat(chatID int64) telebot.MiddlewareFunc {
	return func(next telebot.HandlerFunc) telebot.HandlerFunc {
		return func(c telebot.Context) error {
			if c.Chat() == nil || c.Chat().ID != chatID {
				return nil
			}
			return next(c)
		}
	}
}
