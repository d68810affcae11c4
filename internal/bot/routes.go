package bot

import (
	tele "gopkg.in/telebot.v4"

	tg "filmgate/core/telegram"
	"filmgate/core/telegram/commands"
	"filmgate/core/telegram/router"
)

// Register fills the registry with the bot's commands and callbacks.
func (h *Handlers) Register(reg *tg.Registry) {
	reg.RegisterCommand("/start", commands.Command{
		Handler:     h.onStart,
		Description: "Start the bot and check channel subscriptions",
	})
	reg.RegisterCommand("/menu", commands.Command{
		Handler:     h.onMenu,
		Description: "Open the admin menu",
		AdminOnly:   true,
	})
	reg.RegisterCommand("/my_id", commands.Command{
		Handler:     h.onMyID,
		Description: "Show your chat ID",
		Aliases:     []string{"/my_profile_id"},
	})

	_ = reg.RegisterCallback(verifyUnique, h.onVerify)
}

// Routes assembles the full route table: commands, the callback router,
// and the text/media router with the admin keyboard labels.
func (h *Handlers) Routes(reg *tg.Registry) []tg.Route {
	routes := router.CommandRoutes(reg)
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{}))
	routes = append(routes, router.TextRoutes(reg, router.TextOptions{
		Labels: map[string]tele.HandlerFunc{
			labelStats:      h.onStats,
			labelBroadcast:  h.onBeginBroadcast,
			labelAddFilm:    h.onBeginAddFilm,
			labelAddAdmin:   h.onBeginAddAdmin,
			labelAddChannel: h.onBeginAddChannel,
			labelBack:       h.onBack,
		},
		Fallback: h.onText,
		Media:    h.onMedia,
	})...)
	return routes
}
