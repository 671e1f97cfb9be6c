package signal

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dkeye/livestage/internal/core"
	"github.com/dkeye/livestage/internal/domain"
)

const minimalSDP = "v=0\r\no=- 4215775240449105457 2 IN IP4 127.0.0.1\r\ns=-\r\nt=0 0\r\n"

func description(kind string) string {
	b, _ := json.Marshal(map[string]string{"type": kind, "sdp": minimalSDP})
	return string(b)
}

func TestDecodeControl(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want core.Control
	}{
		{"ping", `{"type":"ping"}`, core.Ping{}},
		{"invite by string id", `{"type":"send_invite","user_id":"u7"}`, core.InviteUser{UserID: "u7"}},
		{"invite by numeric id", `{"type":"send_invite","user_id":7}`, core.InviteUser{UserID: "7"}},
		{"invite cohost", `{"type":"invite_cohost","user_id":"p1"}`, core.InviteCoHost{ParticipantID: "p1"}},
		{"accept cohost", `{"type":"accept_cohost"}`, core.AcceptCoHost{}},
		{"cohost leave", `{"type":"cohost_leave"}`, core.CoHostLeave{}},
		{"remove cohost", `{"type":"remove_cohost","participant_id":"p1"}`, core.RemoveCoHost{ParticipantID: "p1"}},
		{"audio", `{"type":"switching_to_audio"}`, core.SwitchMode{Mode: domain.ModeAudio}},
		{"video", `{"type":"switching_to_video"}`, core.SwitchMode{Mode: domain.ModeVideo}},
		{"screen", `{"type":"switching_to_screen_sharing"}`, core.SwitchMode{Mode: domain.ModeScreen}},
		{"text", `{"type":"text","message":"hi"}`, core.Chat{Text: "hi"}},
		{"broadcast message", `{"type":"broadcast_message","message":"hey"}`, core.Chat{Text: "hey"}},
		{"leave", `{"type":"leave_room"}`, core.LeaveRoom{}},
		{"end", `{"type":"stream_ended"}`, core.EndStream{}},
		{"end alias", `{"type":"end_stream"}`, core.EndStream{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			got, err := decodeControl([]byte(tt.in))
			req.NoError(err)
			req.Equal(tt.want, got)
		})
	}
}

func TestDecodeControl_Signals(t *testing.T) {
	t.Run("offer", func(t *testing.T) {
		req := require.New(t)
		got, err := decodeControl([]byte(`{"type":"webrtc_offer","offer":` + description("offer") + `}`))
		req.NoError(err)
		sig, ok := got.(core.Signal)
		req.True(ok)
		req.Equal(core.SignalOffer, sig.Kind)
		req.JSONEq(description("offer"), string(sig.Payload))
	})

	t.Run("answer", func(t *testing.T) {
		got, err := decodeControl([]byte(`{"type":"webrtc_answer","answer":` + description("answer") + `}`))
		require.NoError(t, err)
		require.Equal(t, core.SignalAnswer, got.(core.Signal).Kind)
	})

	t.Run("candidate", func(t *testing.T) {
		got, err := decodeControl([]byte(`{"type":"webrtc_candidate","candidate":{"candidate":"candidate:1 1 udp 2122260223 10.0.0.1 54321 typ host","sdpMid":"0","sdpMLineIndex":0}}`))
		require.NoError(t, err)
		require.Equal(t, core.SignalCandidate, got.(core.Signal).Kind)
	})
}

func TestDecodeControl_Malformed(t *testing.T) {
	for name, in := range map[string]string{
		"not json":             `{"type":`,
		"unknown type":         `{"type":"dance"}`,
		"invite without id":    `{"type":"send_invite"}`,
		"remove without id":    `{"type":"remove_cohost"}`,
		"empty chat":           `{"type":"text","message":""}`,
		"offer without body":   `{"type":"webrtc_offer"}`,
		"offer of wrong type":  `{"type":"webrtc_offer","offer":` + description("answer") + `}`,
		"offer with bad sdp":   `{"type":"webrtc_offer","offer":{"type":"offer","sdp":"not sdp"}}`,
		"candidate not object": `{"type":"webrtc_candidate","candidate":42}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := decodeControl([]byte(in))
			require.ErrorIs(t, err, domain.ErrMalformedMessage)
		})
	}
}

func TestDecodeControl_LogsCanonicalType(t *testing.T) {
	req := require.New(t)

	ctl, err := decodeControl([]byte(`{"type":"end_stream"}`))
	req.NoError(err)
	req.Equal("stream_ended", core.ControlType(ctl))

	ctl, err = decodeControl([]byte(`{"type":"broadcast_message","message":"hey"}`))
	req.NoError(err)
	req.Equal("text", core.ControlType(ctl))

	ctl, err = decodeControl([]byte(`{"type":"webrtc_answer","answer":` + description("answer") + `}`))
	req.NoError(err)
	req.Equal("webrtc_answer", core.ControlType(ctl))
}
