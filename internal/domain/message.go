package domain

import "time"

// InboundMessage is content submitted for triage through a channel.
// Hint, when set, bypasses classification for media-specific flows.
type InboundMessage struct {
	Channel   string
	ChatID    string
	SenderID  string
	Content   string
	Hint      ContentType
	Timestamp time.Time
}

type OutboundMessage struct {
	Channel string
	ChatID  string
	Content string
}
