package core

import (
	"encoding/json"

	"github.com/dkeye/livestage/internal/domain"
)

// Control is an inbound control message. The set of implementations is
// closed: only types in this file satisfy it.
type Control interface {
	controlType() string
}

// ControlType returns the wire type of c, for logging.
func ControlType(c Control) string { return c.controlType() }

type InviteUser struct {
	UserID domain.ParticipantID
}

type InviteCoHost struct {
	ParticipantID domain.ParticipantID
}

type AcceptCoHost struct{}

type CoHostLeave struct{}

type RemoveCoHost struct {
	ParticipantID domain.ParticipantID
}

type SwitchMode struct {
	Mode domain.MediaMode
}

type Chat struct {
	Text string
}

type LeaveRoom struct{}

type EndStream struct{}

type SignalKind string

const (
	SignalOffer     SignalKind = "webrtc_offer"
	SignalAnswer    SignalKind = "webrtc_answer"
	SignalCandidate SignalKind = "webrtc_candidate"
)

// Signal carries a validated WebRTC payload that is relayed untouched.
type Signal struct {
	Kind    SignalKind
	Payload json.RawMessage
}

type Ping struct{}

func (InviteUser) controlType() string   { return "send_invite" }
func (InviteCoHost) controlType() string { return "invite_cohost" }
func (AcceptCoHost) controlType() string { return "accept_cohost" }
func (CoHostLeave) controlType() string  { return "cohost_leave" }
func (RemoveCoHost) controlType() string { return "remove_cohost" }
func (SwitchMode) controlType() string   { return "switch_mode" }
func (Chat) controlType() string         { return "text" }
func (LeaveRoom) controlType() string    { return "leave_room" }
func (EndStream) controlType() string    { return "stream_ended" }
func (s Signal) controlType() string     { return string(s.Kind) }
func (Ping) controlType() string         { return "ping" }
