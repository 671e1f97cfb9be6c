package signal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/pion/webrtc/v4"

	"github.com/dkeye/livestage/internal/core"
	"github.com/dkeye/livestage/internal/domain"
)

var validate = validator.New()

// flexID accepts ids sent either as JSON strings or numbers.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	if _, err := strconv.ParseFloat(n.String(), 64); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

type userPayload struct {
	UserID flexID `json:"user_id" validate:"required,max=64"`
}

type participantPayload struct {
	ParticipantID flexID `json:"participant_id" validate:"required,max=64"`
}

type chatPayload struct {
	Message string `json:"message" validate:"required,max=2000"`
}

type offerPayload struct {
	Offer json.RawMessage `json:"offer" validate:"required"`
}

type answerPayload struct {
	Answer json.RawMessage `json:"answer" validate:"required"`
}

type candidatePayload struct {
	Candidate json.RawMessage `json:"candidate" validate:"required"`
}

// decodeControl turns one inbound text frame into a control message.
// Failures wrap domain.ErrMalformedMessage.
func decodeControl(data []byte) (core.Control, error) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, malformed("envelope: %v", err)
	}

	switch env.Type {
	case "ping":
		return core.Ping{}, nil
	case "send_invite":
		var p userPayload
		if err := decodeInto(data, &p); err != nil {
			return nil, err
		}
		return core.InviteUser{UserID: domain.ParticipantID(p.UserID)}, nil
	case "invite_cohost":
		var p userPayload
		if err := decodeInto(data, &p); err != nil {
			return nil, err
		}
		return core.InviteCoHost{ParticipantID: domain.ParticipantID(p.UserID)}, nil
	case "accept_cohost":
		return core.AcceptCoHost{}, nil
	case "cohost_leave":
		return core.CoHostLeave{}, nil
	case "remove_cohost":
		var p participantPayload
		if err := decodeInto(data, &p); err != nil {
			return nil, err
		}
		return core.RemoveCoHost{ParticipantID: domain.ParticipantID(p.ParticipantID)}, nil
	case "switching_to_audio":
		return core.SwitchMode{Mode: domain.ModeAudio}, nil
	case "switching_to_video":
		return core.SwitchMode{Mode: domain.ModeVideo}, nil
	case "switching_to_screen_sharing":
		return core.SwitchMode{Mode: domain.ModeScreen}, nil
	case "text", "broadcast_message":
		var p chatPayload
		if err := decodeInto(data, &p); err != nil {
			return nil, err
		}
		return core.Chat{Text: p.Message}, nil
	case "leave_room":
		return core.LeaveRoom{}, nil
	case "stream_ended", "end_stream":
		return core.EndStream{}, nil
	case string(core.SignalOffer):
		var p offerPayload
		if err := decodeInto(data, &p); err != nil {
			return nil, err
		}
		if err := checkDescription(p.Offer, webrtc.SDPTypeOffer); err != nil {
			return nil, err
		}
		return core.Signal{Kind: core.SignalOffer, Payload: p.Offer}, nil
	case string(core.SignalAnswer):
		var p answerPayload
		if err := decodeInto(data, &p); err != nil {
			return nil, err
		}
		if err := checkDescription(p.Answer, webrtc.SDPTypeAnswer); err != nil {
			return nil, err
		}
		return core.Signal{Kind: core.SignalAnswer, Payload: p.Answer}, nil
	case string(core.SignalCandidate):
		var p candidatePayload
		if err := decodeInto(data, &p); err != nil {
			return nil, err
		}
		var ci webrtc.ICECandidateInit
		if err := json.Unmarshal(p.Candidate, &ci); err != nil {
			return nil, malformed("candidate: %v", err)
		}
		return core.Signal{Kind: core.SignalCandidate, Payload: p.Candidate}, nil
	default:
		return nil, malformed("unknown type %q", env.Type)
	}
}

func decodeInto(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return malformed("payload: %v", err)
	}
	if err := validate.Struct(v); err != nil {
		return malformed("payload: %v", err)
	}
	return nil
}

// checkDescription makes sure raw is a session description of the wanted
// type whose SDP parses.
func checkDescription(raw json.RawMessage, want webrtc.SDPType) error {
	var sd webrtc.SessionDescription
	if err := json.Unmarshal(raw, &sd); err != nil {
		return malformed("session description: %v", err)
	}
	if sd.Type != want {
		return malformed("session description type %s, want %s", sd.Type, want)
	}
	if _, err := sd.Unmarshal(); err != nil {
		return malformed("sdp: %v", err)
	}
	return nil
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrMalformedMessage, fmt.Sprintf(format, args...))
}
