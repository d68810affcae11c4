package router

import (
	"strings"
	"time"

	tg "filmgate/core/telegram"
	"filmgate/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// TextOptions controls routing of plain text and media updates.
type TextOptions struct {
	// Labels maps reply-keyboard button captions to their handlers.
	Labels map[string]tele.HandlerFunc
	// Fallback receives text that matched neither a command nor a label.
	Fallback tele.HandlerFunc
	// Media receives any non-text message (photos, videos, documents, forwards).
	Media tele.HandlerFunc
}

// TextRoutes builds handlers for text and media routing.
func TextRoutes(reg *tg.Registry, opts TextOptions) []tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		text := c.Text()

		if h, ok := opts.Labels[text]; ok && h != nil {
			return handleWithSummary(c, "label."+normalizeHandlerName(text), start, "", "", func() error {
				return h(c)
			})
		}

		if reg != nil {
			// Only slash-prefixed text is a command; bare text that happens
			// to spell a command name stays a lookup for the fallback.
			if strings.HasPrefix(text, "/") {
				if key, cmd, ok := reg.LookupCommand(text); ok && cmd.Handler != nil {
					name := normalizeHandlerName(key)
					return handleWithSummary(c, name, start, "", "", func() error {
						return cmd.Handler(c)
					})
				}
			}
			if fb := reg.TextFallback(); fb != nil {
				return handleWithSummary(c, "fallback", start, "", "", func() error {
					return fb(c)
				})
			}
		}

		if opts.Fallback != nil {
			return handleWithSummary(c, "text", start, "", "", func() error {
				return opts.Fallback(c)
			})
		}

		logHandlerSummary(c, "text", start, "skip", "ok", nil)
		return nil
	}

	mediaHandler := func(c tele.Context) error {
		start := time.Now()
		if opts.Media != nil {
			return handleWithSummary(c, "media", start, "", "", func() error {
				return opts.Media(c)
			})
		}
		logHandlerSummary(c, "media", start, "skip", "ok", nil)
		return nil
	}

	return []tg.Route{
		{
			Endpoint: tele.OnText,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
		},
		{
			Endpoint: tele.OnMedia,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(mediaHandler)),
		},
	}
}
