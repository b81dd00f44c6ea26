package domain

// Event bus channels consumed by the WebSocket hub.
const (
	ChannelSession = "ch:session" // Session JSON on every session change
	ChannelMarkets = "ch:markets" // Snapshot JSON when a refresh cycle completes
	ChannelTx      = "ch:tx"      // JournalEntry JSON when a transaction settles
)
