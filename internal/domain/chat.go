package domain

import "time"

type ChatKind string

const (
	ChatMessage      ChatKind = "chat_message"
	ChatJoinNotice   ChatKind = "participant_joined"
	ChatLeaveNotice  ChatKind = "participant_left"
	ChatCoHostNotice ChatKind = "cohost_notice"
)

// ChatEntry is immutable once appended to a session history.
type ChatEntry struct {
	Kind       ChatKind      `json:"type"`
	SenderID   ParticipantID `json:"user_id"`
	SenderName string        `json:"username"`
	Text       string        `json:"message"`
	Timestamp  time.Time     `json:"timestamp"`
}
