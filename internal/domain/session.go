package domain

import "time"

type SessionID string

type SessionStatus string

const (
	StatusActive SessionStatus = "active"
	StatusEnded  SessionStatus = "ended"
)

// MediaMode controls how binary chunks of a session are interpreted.
type MediaMode string

const (
	ModeUnset  MediaMode = ""
	ModeAudio  MediaMode = "audio"
	ModeVideo  MediaMode = "video"
	ModeScreen MediaMode = "screen"
)

// Title is the human form used in mode change notices.
func (m MediaMode) Title() string {
	switch m {
	case ModeAudio:
		return "Audio"
	case ModeVideo:
		return "Video"
	case ModeScreen:
		return "Screen Sharing"
	default:
		return "Unknown"
	}
}

// SessionRecord is the durable view of a session as kept by persistence.
type SessionRecord struct {
	ID                SessionID     `json:"room_id"`
	HostID            ParticipantID `json:"user_id"`
	Status            SessionStatus `json:"status"`
	Mode              MediaMode     `json:"type"`
	TotalParticipants int           `json:"total_participants"`
	CreatedAt         time.Time     `json:"created_at"`
	StartedAt         time.Time     `json:"start_timestamp"`
	EndedAt           *time.Time    `json:"end_timestamp,omitempty"`
}
