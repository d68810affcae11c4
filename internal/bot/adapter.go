// Package bot adapts the Telegram transport (telebot) to the narrow
// interfaces the services consume, and wires incoming updates into the
// flow orchestrator.
package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"

	"filmgate/core/telegram/keyboard"
	"filmgate/internal/domain"
)

// Adapter implements flow.Messenger and gate.MembershipChecker over a
// telebot instance. Sends are synchronous so per-chat ordering follows the
// caller's call order; transport-level retries live in the HTTP client.
type Adapter struct {
	bot *tele.Bot
}

// NewAdapter wraps the bot.
func NewAdapter(b *tele.Bot) *Adapter {
	return &Adapter{bot: b}
}

// SendText delivers plain text to a chat.
func (a *Adapter) SendText(_ context.Context, chatID int64, text string) error {
	_, err := a.bot.Send(tele.ChatID(chatID), text)
	return err
}

// SendAdminMenu shows the admin reply keyboard.
func (a *Adapter) SendAdminMenu(_ context.Context, chatID int64) error {
	markup := keyboard.ReplyButtons(
		[]string{labelStats, labelBroadcast},
		[]string{labelAddFilm, labelAddAdmin},
		[]string{labelAddChannel, labelBack},
	)
	_, err := a.bot.Send(tele.ChatID(chatID), msgAdminMenu, markup)
	return err
}

// SendJoinPrompt posts the subscription prompt with one URL button per
// channel and the verify button underneath.
func (a *Adapter) SendJoinPrompt(_ context.Context, chatID int64, channels []domain.Channel) error {
	_, err := a.bot.Send(tele.ChatID(chatID), msgJoinPrompt, joinMarkup(channels))
	return err
}

// EditJoinPrompt rewrites the prompt in place. An empty channel list means
// the gate is passed and the prompt becomes the unlocked message.
func (a *Adapter) EditJoinPrompt(_ context.Context, chatID int64, messageID int, channels []domain.Channel) error {
	stored := tele.StoredMessage{
		MessageID: strconv.Itoa(messageID),
		ChatID:    chatID,
	}
	if len(channels) == 0 {
		_, err := a.bot.Edit(stored, msgUnlocked)
		return err
	}
	_, err := a.bot.Edit(stored, msgJoinPrompt, joinMarkup(channels))
	return err
}

// CopyMessage replays a stored channel post into the chat without the
// forwarded-from header.
func (a *Adapter) CopyMessage(_ context.Context, toChatID int64, origin domain.Origin) error {
	stored := tele.StoredMessage{
		MessageID: strconv.Itoa(origin.MessageID),
		ChatID:    origin.ChatID,
	}
	_, err := a.bot.Copy(tele.ChatID(toChatID), stored)
	return err
}

// ResolveChannel looks the channel up by handle and verifies it really is
// a channel before it becomes a subscription requirement.
func (a *Adapter) ResolveChannel(_ context.Context, username string) (int64, string, error) {
	handle := "@" + strings.TrimPrefix(username, "@")
	chat, err := a.bot.ChatByUsername(handle)
	if err != nil {
		return 0, "", fmt.Errorf("resolve %s: %w", handle, err)
	}
	if chat.Type != tele.ChatChannel {
		return 0, "", fmt.Errorf("%s is a %s, not a channel", handle, chat.Type)
	}
	return chat.ID, chat.Title, nil
}

// MemberStatus queries the user's membership in the channel.
func (a *Adapter) MemberStatus(_ context.Context, channel domain.Channel, userID int64) (string, error) {
	member, err := a.bot.ChatMemberOf(&tele.Chat{ID: channel.ChatID}, &tele.User{ID: userID})
	if err != nil {
		return "", err
	}
	return string(member.Role), nil
}

func joinMarkup(channels []domain.Channel) *tele.ReplyMarkup {
	rows := make([][]keyboard.InlineBtn, 0, len(channels)+1)
	for _, ch := range channels {
		title := ch.Title
		if title == "" {
			title = "@" + ch.Username
		}
		rows = append(rows, []keyboard.InlineBtn{{Text: title, URL: ch.URL()}})
	}
	rows = append(rows, []keyboard.InlineBtn{{Text: btnVerifyText, Unique: verifyUnique}})
	return keyboard.InlineButtonsRows(rows...)
}
