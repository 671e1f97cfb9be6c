package core

import (
	"errors"

	"github.com/dkeye/livestage/internal/domain"
)

type FrameKind uint8

const (
	TextFrame FrameKind = iota
	BinaryFrame
	// CloseFrame asks the writer to flush a normal close and stop.
	CloseFrame
)

// Frame is one outbound websocket message.
type Frame struct {
	Kind FrameKind
	Data []byte
}

func Text(data []byte) Frame   { return Frame{Kind: TextFrame, Data: data} }
func Binary(data []byte) Frame { return Frame{Kind: BinaryFrame, Data: data} }
func Closing() Frame           { return Frame{Kind: CloseFrame} }

type ConnID string

// SignalConnection abstracts a client transport endpoint.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	ID() ConnID
	TrySend(Frame) error
	Close()
}

// SessionGroup is the bus group every member of a session is subscribed to.
func SessionGroup(id domain.SessionID) string { return "session:" + string(id) }

// UserGroup is the personal group used for direct notices.
func UserGroup(id domain.ParticipantID) string { return "user:" + string(id) }

// ErrBackpressure is returned by TrySend when the send buffer is full.
var ErrBackpressure = errors.New("backpressure")

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	MarkSlow
	KickMember
	DropFrame
)

// BackpressurePolicy decides what happens to a connection whose buffer is full.
type BackpressurePolicy interface {
	OnBackPressure(conn SignalConnection) BackpressureAction
}
