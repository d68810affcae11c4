package bot

// Reply keyboard captions. The text router matches them verbatim, so any
// change here must not collide with lookup keys users are likely to type.
const (
	labelStats      = "📊 Stats"
	labelBroadcast  = "📢 Broadcast"
	labelAddFilm    = "➕ Add film"
	labelAddAdmin   = "➕ Add admin"
	labelAddChannel = "➕ Add channel"
	labelBack       = "🔙 Back"
)

const (
	msgAdminMenu  = "📌 Admin menu:"
	msgMenuClosed = "📌 Menu closed."
	msgJoinPrompt = "📌 Subscribe to the channels below, then press the button:"
	msgUnlocked   = "✅ Subscription confirmed. Send a key to get your film."

	btnVerifyText = "✅ I subscribed"
	verifyUnique  = "verify_subscription"
)
