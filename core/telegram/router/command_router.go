package router

import (
	"time"

	"filmgate/core/logger"
	tg "filmgate/core/telegram"
	"filmgate/core/telegram/middleware"
	"log/slog"

	tele "gopkg.in/telebot.v4"
)

// CommandRoutes prepares command handlers wrapped with shared middleware.
// Admin-only authorization lives in the services, so no static access
// middleware is applied here.
func CommandRoutes(reg *tg.Registry) []tg.Route {
	if reg == nil {
		return nil
	}

	routes := make([]tg.Route, 0, len(reg.Commands()))
	for cmd, def := range reg.Commands() {
		name := normalizeHandlerName(cmd)
		h := def.Handler
		wrapped := func(handler tele.HandlerFunc, handlerName string) tele.HandlerFunc {
			return func(c tele.Context) error {
				start := time.Now()
				return handleWithSummary(c, handlerName, start, "", "", func() error {
					return handler(c)
				})
			}
		}(h, name)
		wrapped = middleware.RecoverMiddleware(middleware.LoggerMiddleware(wrapped))
		routes = append(routes, tg.Route{
			Endpoint: cmd,
			Handler:  wrapped,
		})
	}

	logger.TWire.Info("tg.wire",
		slog.String("event", "complete"),
		slog.Int("commands", len(reg.Commands())),
		slog.Int("callbacks", len(reg.ListCallbacks())),
	)

	return routes
}
