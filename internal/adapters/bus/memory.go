// Package bus implements core.GroupBus in process and over redis pub/sub.
package bus

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/livestage/internal/core"
)

// Memory is a process local group bus. Delivery never blocks: a full send
// buffer is handed to the backpressure policy.
type Memory struct {
	mu     sync.RWMutex
	groups map[string]map[core.ConnID]core.SignalConnection
	member map[core.ConnID]map[string]struct{}
	policy core.BackpressurePolicy
}

func NewMemory(policy core.BackpressurePolicy) *Memory {
	return &Memory{
		groups: make(map[string]map[core.ConnID]core.SignalConnection),
		member: make(map[core.ConnID]map[string]struct{}),
		policy: policy,
	}
}

func (m *Memory) Subscribe(conn core.SignalConnection, group string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conns, ok := m.groups[group]
	if !ok {
		conns = make(map[core.ConnID]core.SignalConnection)
		m.groups[group] = conns
	}
	conns[conn.ID()] = conn
	gs, ok := m.member[conn.ID()]
	if !ok {
		gs = make(map[string]struct{})
		m.member[conn.ID()] = gs
	}
	gs[group] = struct{}{}
}

func (m *Memory) Unsubscribe(conn core.SignalConnection, group string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unsubscribeLocked(conn.ID(), group)
}

func (m *Memory) UnsubscribeAll(conn core.SignalConnection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for group := range m.member[conn.ID()] {
		m.unsubscribeLocked(conn.ID(), group)
	}
}

func (m *Memory) unsubscribeLocked(id core.ConnID, group string) {
	if conns, ok := m.groups[group]; ok {
		delete(conns, id)
		if len(conns) == 0 {
			delete(m.groups, group)
		}
	}
	if gs, ok := m.member[id]; ok {
		delete(gs, group)
		if len(gs) == 0 {
			delete(m.member, id)
		}
	}
}

// Members returns the connections currently subscribed to group.
func (m *Memory) Members(group string) []core.SignalConnection {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]core.SignalConnection, 0, len(m.groups[group]))
	for _, c := range m.groups[group] {
		out = append(out, c)
	}
	return out
}

func (m *Memory) Publish(_ context.Context, group string, f core.Frame) error {
	m.Deliver(group, f)
	return nil
}

// Deliver sends f to every local member of group.
func (m *Memory) Deliver(group string, f core.Frame) {
	for _, c := range m.Members(group) {
		_ = m.PublishToOne(c, f)
	}
}

func (m *Memory) PublishToOne(conn core.SignalConnection, f core.Frame) error {
	if conn == nil {
		return nil
	}
	err := conn.TrySend(f)
	if errors.Is(err, core.ErrBackpressure) {
		m.onBackpressure(conn)
	}
	return err
}

func (m *Memory) onBackpressure(conn core.SignalConnection) {
	action := core.KickMember
	if m.policy != nil {
		action = m.policy.OnBackPressure(conn)
	}
	switch action {
	case core.KickMember:
		log.Warn().Str("module", "bus.memory").Str("conn", string(conn.ID())).Msg("slow consumer kicked")
		conn.Close()
	case core.MarkSlow:
		log.Warn().Str("module", "bus.memory").Str("conn", string(conn.ID())).Msg("slow consumer")
	case core.DropFrame, core.NoAction:
	}
}
