package telegram

import "time"

const (
	// telegramMaxMessageLen is Telegram's hard limit for message text.
	telegramMaxMessageLen = 4096

	// pollTimeoutSeconds is the getUpdates long-poll timeout.
	pollTimeoutSeconds = 30

	// updateDedupeTTL is how long an update id is remembered. Telegram
	// redelivers unconfirmed updates after a restart or a network error.
	updateDedupeTTL = 20 * time.Minute

	// updateDedupeMax bounds the number of remembered update ids.
	updateDedupeMax = 5000
)

// allowedUpdates are the update types the bot subscribes to.
var allowedUpdates = []string{"message", "channel_post", "edited_channel_post", "callback_query"}
