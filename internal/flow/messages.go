package flow

import "fmt"

// User-facing texts. Kept in one place; localization is out of scope.
const (
	msgWelcome           = "✅ Welcome! You are subscribed to every required channel."
	msgNoAdminRights     = "❌ You do not have admin rights."
	msgUnexpectedForward = "❌ This forwarded message was not expected."

	msgPromptAdminTarget = "📌 Send the chat ID of the user to promote:"
	msgPromptChannel     = "📌 Send the @username of the channel to add:"
	msgPromptFilm        = "📌 Forward the film post from its channel:"
	msgPromptBroadcast   = "📌 Forward the post to broadcast to all users:"
	msgPromptKey         = "📌 Now send a lookup key for this message:"

	msgBadChatID      = "❌ That is not a valid chat ID. Send a number."
	msgUnknownTarget  = "❌ No user with that chat ID has started the bot."
	msgChannelFailed  = "❌ Could not resolve that channel. Check the username and make sure the bot was added as admin."
	msgKeyNotFound    = "❌ Nothing is stored under that key."
	msgNoOpenFilm     = "❌ There is no film awaiting a key."
	msgKeyAlreadySet  = "❌ This film already has a key."
	msgDeliveryFailed = "❌ Could not deliver the stored message."
)

func formatMyID(chatID int64) string {
	return fmt.Sprintf("📌 Your chat ID: %d", chatID)
}

func formatStats(count int) string {
	return fmt.Sprintf("📊 Users who started the bot: %d", count)
}

func formatChannelAdded(username string, chatID int64) string {
	return fmt.Sprintf("✅ Channel @%s added (chat ID %d).", username, chatID)
}

func formatKeySaved(key string) string {
	return fmt.Sprintf("✅ Message saved under key: %s", key)
}

func formatPromoted(targetChatID int64) string {
	return fmt.Sprintf("✅ %d is an admin now.", targetChatID)
}

func formatPromotedNotice() string {
	return "✅ You were granted admin rights. Use /menu."
}

func formatBroadcastNotice(fromChatID int64, fromName string, delivered, failed int) string {
	if failed > 0 {
		return fmt.Sprintf("📌 Broadcast by %d - %s delivered to %d users (%d failed).",
			fromChatID, fromName, delivered, failed)
	}
	return fmt.Sprintf("📌 Broadcast by %d - %s delivered to %d users.",
		fromChatID, fromName, delivered)
}
