package bot

import (
	tele "gopkg.in/telebot.v4"

	tghelpers "filmgate/core/telegram/helpers"
	"filmgate/core/telegram/keyboard"
	"filmgate/internal/domain"
	"filmgate/internal/flow"
)

// Handlers binds telebot updates to the flow orchestrator.
type Handlers struct {
	svc *flow.Service
}

// NewHandlers builds the handler set.
func NewHandlers(svc *flow.Service) *Handlers {
	return &Handlers{svc: svc}
}

func senderName(u *tele.User) string {
	if u == nil {
		return ""
	}
	name := u.FirstName
	if u.LastName != "" {
		if name != "" {
			name += " "
		}
		name += u.LastName
	}
	if name == "" {
		name = u.Username
	}
	return name
}

// channelOrigin extracts the source channel and message id of a forwarded
// channel post. Forwards from users or groups are not replayable content.
func channelOrigin(m *tele.Message) (domain.Origin, bool) {
	if m == nil || m.Origin == nil {
		return domain.Origin{}, false
	}
	o := m.Origin
	if o.Chat == nil || o.Chat.Type != tele.ChatChannel || o.MessageID == 0 {
		return domain.Origin{}, false
	}
	return domain.Origin{ChatID: o.Chat.ID, MessageID: o.MessageID}, true
}

func (h *Handlers) onStart(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	return h.svc.Start(ctx, c.Chat().ID, senderName(c.Sender()))
}

func (h *Handlers) onMenu(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	return h.svc.Menu(ctx, c.Chat().ID, senderName(c.Sender()))
}

func (h *Handlers) onMyID(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	return h.svc.MyID(ctx, c.Chat().ID)
}

func (h *Handlers) onVerify(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	cb := c.Callback()
	if cb == nil || cb.Message == nil {
		return nil
	}
	return h.svc.Verify(ctx, c.Chat().ID, senderName(c.Sender()), cb.Message.ID)
}

func (h *Handlers) onStats(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	return h.svc.Stats(ctx, c.Chat().ID, senderName(c.Sender()))
}

func (h *Handlers) onBeginBroadcast(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	return h.svc.BeginBroadcast(ctx, c.Chat().ID, senderName(c.Sender()))
}

func (h *Handlers) onBeginAddFilm(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	return h.svc.BeginAddFilm(ctx, c.Chat().ID, senderName(c.Sender()))
}

func (h *Handlers) onBeginAddAdmin(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	return h.svc.BeginAddAdmin(ctx, c.Chat().ID, senderName(c.Sender()))
}

func (h *Handlers) onBeginAddChannel(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	return h.svc.BeginAddChannel(ctx, c.Chat().ID, senderName(c.Sender()))
}

// onBack closes the menu. The reply is a standalone message with no
// ordering dependency, so it goes through the async send helper.
func (h *Handlers) onBack(c tele.Context) error {
	return tghelpers.SendMarkup(c, msgMenuClosed, keyboard.RemoveKeyboard())
}

// onText dispatches plain text. Forwarded channel posts arrive as text
// messages too, so the forward branch is checked first.
func (h *Handlers) onText(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	if origin, ok := channelOrigin(c.Message()); ok {
		return h.svc.HandleForward(ctx, c.Chat().ID, senderName(c.Sender()), origin)
	}
	return h.svc.HandleText(ctx, c.Chat().ID, senderName(c.Sender()), c.Text())
}

// onMedia handles photo/video/document updates; only forwarded channel
// posts are meaningful, anything else is ignored.
func (h *Handlers) onMedia(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	if origin, ok := channelOrigin(c.Message()); ok {
		return h.svc.HandleForward(ctx, c.Chat().ID, senderName(c.Sender()), origin)
	}
	return nil
}
