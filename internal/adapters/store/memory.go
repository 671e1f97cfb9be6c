// Package store implements core.Store in memory and on postgres.
package store

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/dkeye/livestage/internal/core"
	"github.com/dkeye/livestage/internal/domain"
)

var _ core.Store = (*Memory)(nil)

// Memory keeps durable records for the lifetime of the process.
type Memory struct {
	mu           sync.RWMutex
	sessions     map[domain.SessionID]domain.SessionRecord
	participants map[domain.SessionID]map[domain.ParticipantID]domain.Participant
	chat         map[domain.SessionID][]domain.ChatEntry
}

func NewMemory() *Memory {
	return &Memory{
		sessions:     make(map[domain.SessionID]domain.SessionRecord),
		participants: make(map[domain.SessionID]map[domain.ParticipantID]domain.Participant),
		chat:         make(map[domain.SessionID][]domain.ChatEntry),
	}
}

func (m *Memory) CreateSession(_ context.Context, rec domain.SessionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[rec.ID] = rec
	return nil
}

func (m *Memory) EndSession(_ context.Context, id domain.SessionID, endedAt time.Time) error {
	return m.update(id, func(rec *domain.SessionRecord) {
		rec.Status = domain.StatusEnded
		rec.EndedAt = &endedAt
	})
}

func (m *Memory) GetSession(_ context.Context, id domain.SessionID) (domain.SessionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.sessions[id]
	if !ok {
		return domain.SessionRecord{}, domain.ErrNotFound
	}
	return rec, nil
}

func (m *Memory) UpdateMode(_ context.Context, id domain.SessionID, mode domain.MediaMode) error {
	return m.update(id, func(rec *domain.SessionRecord) { rec.Mode = mode })
}

func (m *Memory) AddParticipant(_ context.Context, id domain.SessionID, p domain.Participant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return domain.ErrNotFound
	}
	ps, ok := m.participants[id]
	if !ok {
		ps = make(map[domain.ParticipantID]domain.Participant)
		m.participants[id] = ps
	}
	ps[p.ID] = p
	return nil
}

func (m *Memory) RefreshParticipantCount(_ context.Context, id domain.SessionID, count int) error {
	return m.update(id, func(rec *domain.SessionRecord) { rec.TotalParticipants = count })
}

func (m *Memory) AppendChat(_ context.Context, id domain.SessionID, entry domain.ChatEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return domain.ErrNotFound
	}
	m.chat[id] = append(m.chat[id], entry)
	return nil
}

func (m *Memory) ChatHistory(_ context.Context, id domain.SessionID) ([]domain.ChatEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.sessions[id]; !ok {
		return nil, domain.ErrNotFound
	}
	return slices.Clone(m.chat[id]), nil
}

// ListActive returns active sessions, newest first.
func (m *Memory) ListActive(_ context.Context) ([]domain.SessionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	active := lo.Filter(lo.Values(m.sessions), func(rec domain.SessionRecord, _ int) bool {
		return rec.Status == domain.StatusActive
	})
	slices.SortFunc(active, func(a, b domain.SessionRecord) int {
		if c := b.StartedAt.Compare(a.StartedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return active, nil
}

// Participants returns everyone who ever joined id, in join order.
func (m *Memory) Participants(_ context.Context, id domain.SessionID) ([]domain.Participant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.sessions[id]; !ok {
		return nil, domain.ErrNotFound
	}
	ps := lo.Values(m.participants[id])
	slices.SortFunc(ps, func(a, b domain.Participant) int {
		if c := a.JoinedAt.Compare(b.JoinedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return ps, nil
}

func (m *Memory) update(id domain.SessionID, fn func(*domain.SessionRecord)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.sessions[id]
	if !ok {
		return domain.ErrNotFound
	}
	fn(&rec)
	m.sessions[id] = rec
	return nil
}
