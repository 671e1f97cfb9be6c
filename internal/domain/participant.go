// Package domain contains entities without transport, just meta-data and the
// invariants that can be checked on a single value.
package domain

import (
	"strings"
	"time"
)

const (
	MaxParticipantIDLen = 64
	MaxUsernameLen      = 64
)

type ParticipantID string

// Participant is a joined member of a session. The id is supplied by the
// client and is the only identity used to reference a participant.
type Participant struct {
	ID       ParticipantID `json:"user_id"`
	Username string        `json:"username"`
	JoinedAt time.Time     `json:"-"`
}

// NewParticipant trims and validates the externally supplied id and name.
func NewParticipant(pid ParticipantID, username string) (Participant, error) {
	id := strings.TrimSpace(string(pid))
	username = strings.TrimSpace(username)
	if id == "" {
		return Participant{}, ErrParticipantIDEmpty
	}
	if len(id) > MaxParticipantIDLen {
		return Participant{}, ErrParticipantIDTooLong
	}
	if username == "" {
		return Participant{}, ErrUsernameEmpty
	}
	if len(username) > MaxUsernameLen {
		return Participant{}, ErrUsernameTooLong
	}
	return Participant{ID: ParticipantID(id), Username: username}, nil
}

// CoHost records that a participant was promoted.
type CoHost struct {
	ID       ParticipantID
	Username string
	Since    time.Time
}

type Role int

const (
	RoleParticipant Role = iota
	RoleCoHost
	RoleHost
)

func (r Role) String() string {
	switch r {
	case RoleHost:
		return "host"
	case RoleCoHost:
		return "cohost"
	default:
		return "participant"
	}
}
