package core

import (
	"encoding/json"
	"time"

	"github.com/dkeye/livestage/internal/domain"
)

// Outbound event types.
const (
	EventError          = "error"
	EventStreamLink     = "stream_link"
	EventChatHistory    = "chat_history"
	EventParticipants   = "participant_list"
	EventCount          = "participant_count"
	EventModeChanged    = "stream_mode_changed"
	EventScreenStarted  = "screen_sharing_started"
	EventAudioStarted   = "audio_streaming_started"
	EventStreamEnded    = "stream_ended"
	EventInvite         = "invite_notification"
	EventCoHostInvite   = "cohost_invite"
	EventCoHostJoined   = "cohost_joined"
	EventCoHostLeft     = "cohost_left"
	EventCoHostRemoved  = "cohost_removed"
	EventPong           = "pong"
	EventActiveStreams  = "active_streams"
	EventParticipantIn  = string(domain.ChatJoinNotice)
	EventParticipantOut = string(domain.ChatLeaveNotice)
	EventChatMessage    = string(domain.ChatMessage)
)

// MemberDTO is a read-only roster entry (no transport fields).
type MemberDTO struct {
	Username string               `json:"username"`
	ID       domain.ParticipantID `json:"user_id"`
}

type ErrorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Details string `json:"details"`
}

type StreamLinkEvent struct {
	Type    string           `json:"type"`
	EventID domain.SessionID `json:"event_id"`
	JoinURL string           `json:"join_url"`
}

type ChatHistoryEvent struct {
	Type     string             `json:"type"`
	Messages []domain.ChatEntry `json:"messages"`
}

type ParticipantListEvent struct {
	Type         string      `json:"type"`
	Participants []MemberDTO `json:"participants"`
}

type ParticipantCountEvent struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// ChatEvent carries chat messages and join/leave notices.
type ChatEvent struct {
	Type      string               `json:"type"`
	Message   string               `json:"message"`
	Username  string               `json:"username"`
	UserID    domain.ParticipantID `json:"user_id"`
	Timestamp time.Time            `json:"timestamp"`
}

func ChatEventOf(e domain.ChatEntry) ChatEvent {
	return ChatEvent{
		Type:      string(e.Kind),
		Message:   e.Text,
		Username:  e.SenderName,
		UserID:    e.SenderID,
		Timestamp: e.Timestamp,
	}
}

type CoHostEvent struct {
	Type          string               `json:"type"`
	ParticipantID domain.ParticipantID `json:"participant_id"`
	Username      string               `json:"username"`
	Message       string               `json:"message"`
}

type ModeChangedEvent struct {
	Type    string           `json:"type"`
	Mode    domain.MediaMode `json:"mode"`
	Message string           `json:"message"`
}

type MessageEvent struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
}

type InviteEvent struct {
	Type     string               `json:"type"`
	Message  string               `json:"message"`
	FromUser domain.ParticipantID `json:"from_user"`
}

type CoHostInviteEvent struct {
	Type          string               `json:"type"`
	ParticipantID domain.ParticipantID `json:"participant_id"`
	Message       string               `json:"message"`
}

type SignalEvent struct {
	Type      string               `json:"type"`
	Offer     json.RawMessage      `json:"offer,omitempty"`
	Answer    json.RawMessage      `json:"answer,omitempty"`
	Candidate json.RawMessage      `json:"candidate,omitempty"`
	Username  string               `json:"username"`
	UserID    domain.ParticipantID `json:"user_id"`
}

type ActiveStreamsEvent struct {
	Type    string                 `json:"type"`
	Streams []domain.SessionRecord `json:"streams"`
}

// JSONFrame marshals v into a text frame.
func JSONFrame(v any) (Frame, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return Frame{}, err
	}
	return Text(b), nil
}
