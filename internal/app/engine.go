package app

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/dkeye/livestage/internal/app/media"
	"github.com/dkeye/livestage/internal/core"
	"github.com/dkeye/livestage/internal/domain"
)

// Deps are the collaborators shared by every session of a process.
type Deps struct {
	Bus          core.GroupBus
	Store        core.Store
	Policy       Policy
	ChatLimit    int
	ChatInterval time.Duration
	SampleRate   int
	Now          func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Policy == nil {
		d.Policy = SimplePolicy{}
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	return d
}

type member struct {
	domain.Participant
	conn core.SignalConnection
}

// Engine owns the state of one session. Every mutation and the fan-out it
// causes happen under mu, so the bus sees events in mutation order.
type Engine struct {
	id        domain.SessionID
	host      domain.Participant
	createdAt time.Time
	deps      Deps
	log       zerolog.Logger
	onEnd     func(domain.SessionID)

	mu       sync.Mutex
	hostConn core.SignalConnection
	status   domain.SessionStatus
	mode     domain.MediaMode
	members  map[domain.ParticipantID]*member
	cohosts  map[domain.ParticipantID]domain.CoHost
	invited  map[domain.ParticipantID]struct{}
	history  []domain.ChatEntry
	relay    *media.Relay
	limiter  *RateLimiter
	pending  []persistOp

	persist *persister
}

func newEngine(id domain.SessionID, host domain.Participant, hostConn core.SignalConnection, deps Deps, onEnd func(domain.SessionID)) *Engine {
	deps = deps.withDefaults()
	now := deps.Now()
	host.JoinedAt = now
	logger := log.With().Str("module", "app.engine").Str("session", string(id)).Logger()
	return &Engine{
		id:        id,
		host:      host,
		createdAt: now,
		deps:      deps,
		log:       logger,
		onEnd:     onEnd,
		hostConn:  hostConn,
		status:    domain.StatusActive,
		mode:      domain.ModeAudio,
		members:   make(map[domain.ParticipantID]*member),
		cohosts:   make(map[domain.ParticipantID]domain.CoHost),
		invited:   make(map[domain.ParticipantID]struct{}),
		relay:     media.NewRelay(deps.SampleRate),
		limiter:   NewRateLimiter(deps.ChatLimit, deps.ChatInterval),
		persist:   newPersister(deps.Store, logger),
	}
}

func (e *Engine) ID() domain.SessionID { return e.id }

func (e *Engine) Host() domain.Participant { return e.host }

func (e *Engine) CreatedAt() time.Time { return e.createdAt }

// IsHost reports whether conn is the host's connection.
func (e *Engine) IsHost(conn core.SignalConnection) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hostConn != nil && conn != nil && e.hostConn.ID() == conn.ID()
}

// open subscribes the host and records the session.
func (e *Engine) open() {
	e.mu.Lock()
	e.deps.Bus.Subscribe(e.hostConn, core.SessionGroup(e.id))
	e.deps.Bus.Subscribe(e.hostConn, core.UserGroup(e.host.ID))
	rec := domain.SessionRecord{
		ID:        e.id,
		HostID:    e.host.ID,
		Status:    domain.StatusActive,
		Mode:      e.mode,
		CreatedAt: e.createdAt,
		StartedAt: e.createdAt,
	}
	e.later("create session", func(ctx context.Context, s core.Store) error {
		return s.CreateSession(ctx, rec)
	})
	e.unlockAndPersist()
	e.log.Info().Str("host", string(e.host.ID)).Msg("session started")
}

// Join admits p with its connection: uniqueness check, insert, group
// subscriptions, history snapshot and the joined fan-out are one step.
func (e *Engine) Join(ctx context.Context, p domain.Participant, conn core.SignalConnection) error {
	e.mu.Lock()
	if e.status != domain.StatusActive {
		e.mu.Unlock()
		return domain.ErrSessionEnded
	}
	if e.isTakenLocked(p) {
		e.mu.Unlock()
		return fmt.Errorf("%w: id %s or username %s already in session", domain.ErrDuplicateParticipant, p.ID, p.Username)
	}

	p.JoinedAt = e.deps.Now()
	e.members[p.ID] = &member{Participant: p, conn: conn}
	e.deps.Bus.Subscribe(conn, core.SessionGroup(e.id))
	e.deps.Bus.Subscribe(conn, core.UserGroup(p.ID))

	err := e.sendLocked(conn, core.ChatHistoryEvent{Type: core.EventChatHistory, Messages: e.historyLocked()})
	if err == nil {
		err = e.announceRosterLocked(ctx)
	}
	entry := e.appendChatLocked(domain.ChatJoinNotice, p, fmt.Sprintf("%s joined live.", p.Username))
	if err == nil {
		err = e.broadcastLocked(ctx, core.ChatEventOf(entry))
	}

	count := len(e.members)
	e.later("add participant", func(ctx context.Context, s core.Store) error {
		if err := s.AddParticipant(ctx, e.id, p); err != nil {
			return err
		}
		return s.RefreshParticipantCount(ctx, e.id, count)
	})
	e.unlockAndPersist()

	e.log.Info().Str("participant", string(p.ID)).Str("username", p.Username).Msg("participant joined")
	return err
}

func (e *Engine) isTakenLocked(p domain.Participant) bool {
	if p.ID == e.host.ID {
		return true
	}
	if _, ok := e.members[p.ID]; ok {
		return true
	}
	return lo.SomeBy(lo.Values(e.members), func(m *member) bool { return m.Username == p.Username })
}

// Disconnect handles a transport level close. The host leaving ends the
// session; a participant is removed with the usual notices. Connections that
// no longer own the participant id are ignored.
func (e *Engine) Disconnect(ctx context.Context, pid domain.ParticipantID, conn core.SignalConnection) {
	e.mu.Lock()
	wasActive := e.status == domain.StatusActive
	switch {
	case !wasActive:
	case pid == e.host.ID && e.hostConn != nil && e.hostConn.ID() == conn.ID():
		e.endLocked(ctx, "Stream ended by host")
	default:
		if m, ok := e.members[pid]; ok && m.conn.ID() == conn.ID() {
			_ = e.removeLocked(ctx, m)
		}
	}
	endedNow := wasActive && e.status == domain.StatusEnded
	e.unlockAndPersist()
	e.afterEnd(endedNow)
}

// End transitions the session to ended on behalf of by. It is a no-op when
// the session already ended.
func (e *Engine) End(ctx context.Context, by domain.ParticipantID) error {
	return e.Handle(ctx, by, core.EndStream{})
}

func (e *Engine) afterEnd(endedNow bool) {
	if !endedNow {
		return
	}
	e.log.Info().Msg("session ended")
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if err := e.persist.close(ctx); err != nil {
		e.log.Warn().Err(err).Msg("store writes still pending at session end")
	}
	if e.onEnd != nil {
		e.onEnd(e.id)
	}
}

func (e *Engine) endLocked(ctx context.Context, message string) {
	endedAt := e.deps.Now()
	e.status = domain.StatusEnded

	_ = e.broadcastLocked(ctx, core.MessageEvent{Type: core.EventStreamEnded, Message: message})
	if err := e.deps.Bus.Publish(ctx, core.SessionGroup(e.id), core.Closing()); err != nil {
		e.log.Error().Err(err).Msg("publish close")
	}

	for _, m := range e.members {
		e.unsubscribeLocked(m.conn, m.ID)
	}
	if e.hostConn != nil {
		e.unsubscribeLocked(e.hostConn, e.host.ID)
	}
	clear(e.members)
	clear(e.cohosts)
	clear(e.invited)
	e.relay.Reset()

	e.later("end session", func(ctx context.Context, s core.Store) error {
		return errors.Join(
			s.EndSession(ctx, e.id, endedAt),
			s.RefreshParticipantCount(ctx, e.id, 0),
		)
	})
}

func (e *Engine) removeLocked(ctx context.Context, m *member) error {
	delete(e.members, m.ID)
	delete(e.cohosts, m.ID)
	delete(e.invited, m.ID)
	e.relay.Forget(m.ID)
	e.limiter.Forget(m.ID)
	e.unsubscribeLocked(m.conn, m.ID)

	entry := e.appendChatLocked(domain.ChatLeaveNotice, m.Participant, fmt.Sprintf("%s left now.", m.Username))
	err := e.broadcastLocked(ctx, core.ChatEventOf(entry))
	if err == nil {
		err = e.announceRosterLocked(ctx)
	}

	count := len(e.members)
	e.later("refresh participant count", func(ctx context.Context, s core.Store) error {
		return s.RefreshParticipantCount(ctx, e.id, count)
	})
	e.log.Info().Str("participant", string(m.ID)).Msg("participant removed")
	return err
}

func (e *Engine) unsubscribeLocked(conn core.SignalConnection, pid domain.ParticipantID) {
	e.deps.Bus.Unsubscribe(conn, core.SessionGroup(e.id))
	e.deps.Bus.Unsubscribe(conn, core.UserGroup(pid))
}

func (e *Engine) announceRosterLocked(ctx context.Context) error {
	if err := e.broadcastLocked(ctx, core.ParticipantListEvent{
		Type:         core.EventParticipants,
		Participants: e.rosterLocked(),
	}); err != nil {
		return err
	}
	return e.broadcastLocked(ctx, core.ParticipantCountEvent{Type: core.EventCount, Count: len(e.members)})
}

func (e *Engine) appendChatLocked(kind domain.ChatKind, from domain.Participant, text string) domain.ChatEntry {
	entry := domain.ChatEntry{
		Kind:       kind,
		SenderID:   from.ID,
		SenderName: from.Username,
		Text:       text,
		Timestamp:  e.deps.Now(),
	}
	e.history = append(e.history, entry)
	e.later("append chat", func(ctx context.Context, s core.Store) error {
		return s.AppendChat(ctx, e.id, entry)
	})
	return entry
}

func (e *Engine) broadcastLocked(ctx context.Context, v any) error {
	return e.publishLocked(ctx, core.SessionGroup(e.id), v)
}

func (e *Engine) publishLocked(ctx context.Context, group string, v any) error {
	f, err := core.JSONFrame(v)
	if err != nil {
		e.log.Error().Err(err).Msg("marshal event")
		return err
	}
	if err := e.deps.Bus.Publish(ctx, group, f); err != nil {
		e.log.Error().Err(err).Str("group", group).Msg("publish failed")
		return fmt.Errorf("%w: %v", domain.ErrBusUnavailable, err)
	}
	return nil
}

func (e *Engine) sendLocked(conn core.SignalConnection, v any) error {
	f, err := core.JSONFrame(v)
	if err != nil {
		return err
	}
	return e.deps.Bus.PublishToOne(conn, f)
}

func (e *Engine) later(what string, run func(ctx context.Context, s core.Store) error) {
	if e.deps.Store == nil {
		return
	}
	e.pending = append(e.pending, persistOp{what: what, run: run})
}

// unlockAndPersist hands the store writes queued under mu to the persister
// and releases mu. Handing off under mu keeps writes in mutation order.
func (e *Engine) unlockAndPersist() {
	ops := e.pending
	e.pending = nil
	e.persist.enqueue(ops...)
	e.mu.Unlock()
}

func (e *Engine) roleLocked(pid domain.ParticipantID) (domain.Role, bool) {
	if pid == e.host.ID {
		return domain.RoleHost, true
	}
	if _, ok := e.members[pid]; !ok {
		return domain.RoleParticipant, false
	}
	if _, ok := e.cohosts[pid]; ok {
		return domain.RoleCoHost, true
	}
	return domain.RoleParticipant, true
}

func (e *Engine) connLocked(pid domain.ParticipantID) core.SignalConnection {
	if pid == e.host.ID {
		return e.hostConn
	}
	if m, ok := e.members[pid]; ok {
		return m.conn
	}
	return nil
}

func (e *Engine) senderLocked(pid domain.ParticipantID) domain.Participant {
	if pid == e.host.ID {
		return e.host
	}
	if m, ok := e.members[pid]; ok {
		return m.Participant
	}
	return domain.Participant{ID: pid}
}

func (e *Engine) rosterLocked() []core.MemberDTO {
	ms := lo.Values(e.members)
	slices.SortFunc(ms, func(a, b *member) int {
		if c := a.JoinedAt.Compare(b.JoinedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return lo.Map(ms, func(m *member, _ int) core.MemberDTO {
		return core.MemberDTO{Username: m.Username, ID: m.ID}
	})
}

func (e *Engine) historyLocked() []domain.ChatEntry {
	return slices.Clone(e.history)
}

// Participants returns the roster in join order.
func (e *Engine) Participants() []core.MemberDTO {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rosterLocked()
}

func (e *Engine) CoHosts() []domain.ParticipantID {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := lo.Keys(e.cohosts)
	slices.Sort(ids)
	return ids
}

func (e *Engine) History() []domain.ChatEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.historyLocked()
}

func (e *Engine) Mode() domain.MediaMode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

func (e *Engine) Status() domain.SessionStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

func (e *Engine) MemberCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.members)
}
