package app

import (
	"github.com/dkeye/livestage/internal/core"
	"github.com/dkeye/livestage/internal/domain"
)

// Policy decides what members may do and how slow consumers are treated.
type Policy interface {
	core.BackpressurePolicy
	CanSwitchMode(role domain.Role) bool
	CanChat(role domain.Role) bool
	CanRelayMedia(role domain.Role) bool
}

type SimplePolicy struct {
	CoHostCanSwitchMode bool
	ChatHostsOnly       bool
}

func (SimplePolicy) OnBackPressure(core.SignalConnection) core.BackpressureAction {
	return core.KickMember
}

func (p SimplePolicy) CanSwitchMode(role domain.Role) bool {
	return role == domain.RoleHost || (p.CoHostCanSwitchMode && role == domain.RoleCoHost)
}

func (p SimplePolicy) CanChat(role domain.Role) bool {
	return !p.ChatHostsOnly || role != domain.RoleParticipant
}

func (SimplePolicy) CanRelayMedia(domain.Role) bool { return true }
