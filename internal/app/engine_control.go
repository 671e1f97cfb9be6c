package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/dkeye/livestage/internal/core"
	"github.com/dkeye/livestage/internal/domain"
)

// Handle applies one control message from sender. Returned *domain.ActionError
// values are meant for the sender; Fatal ones close its connection.
// Messages from non-members and messages after the end are ignored.
func (e *Engine) Handle(ctx context.Context, sender domain.ParticipantID, ctl core.Control) error {
	e.mu.Lock()
	wasActive := e.status == domain.StatusActive
	var err error
	if role, ok := e.roleLocked(sender); ok && wasActive {
		err = e.dispatchLocked(ctx, sender, role, ctl)
	}
	endedNow := wasActive && e.status == domain.StatusEnded
	e.unlockAndPersist()
	e.afterEnd(endedNow)
	return err
}

func (e *Engine) dispatchLocked(ctx context.Context, sender domain.ParticipantID, role domain.Role, ctl core.Control) error {
	from := e.senderLocked(sender)

	switch c := ctl.(type) {
	case core.Ping:
		return e.sendLocked(e.connLocked(sender), core.MessageEvent{Type: core.EventPong})

	case core.InviteUser:
		if c.UserID == "" {
			return nil
		}
		return e.publishLocked(ctx, core.UserGroup(c.UserID), core.InviteEvent{
			Type:     core.EventInvite,
			Message:  "You have been invited to join.",
			FromUser: sender,
		})

	case core.InviteCoHost:
		if role != domain.RoleHost {
			return domain.Reject(domain.ErrUnauthorized, "Unauthorized User",
				fmt.Sprintf("Unauthorized cohost invite attempt by %s", sender))
		}
		if _, ok := e.members[c.ParticipantID]; !ok {
			return nil
		}
		e.invited[c.ParticipantID] = struct{}{}
		return e.publishLocked(ctx, core.UserGroup(c.ParticipantID), core.CoHostInviteEvent{
			Type:          core.EventCoHostInvite,
			ParticipantID: c.ParticipantID,
			Message:       "You have been invited to co-host.",
		})

	case core.AcceptCoHost:
		if role == domain.RoleHost {
			return nil
		}
		if role == domain.RoleCoHost {
			return domain.Inform(domain.ErrDuplicateCoHost, "Duplicate Cohost",
				fmt.Sprintf("User %s is already a co-host!", sender))
		}
		if _, ok := e.invited[sender]; !ok {
			return domain.Inform(domain.ErrNotInvited, "Not Invited",
				fmt.Sprintf("User %s has no pending co-host invitation.", sender))
		}
		delete(e.invited, sender)
		e.cohosts[sender] = domain.CoHost{ID: sender, Username: from.Username, Since: e.deps.Now()}
		return e.cohostNoticeLocked(ctx, core.EventCoHostJoined, from, fmt.Sprintf("%s is now a co-host.", from.Username))

	case core.CoHostLeave:
		if role != domain.RoleCoHost {
			return nil
		}
		delete(e.cohosts, sender)
		return e.cohostNoticeLocked(ctx, core.EventCoHostLeft, from, fmt.Sprintf("%s is no longer a co-host.", from.Username))

	case core.RemoveCoHost:
		if role != domain.RoleHost {
			return domain.Reject(domain.ErrUnauthorized, "Unauthorized User",
				fmt.Sprintf("Unauthorized cohost removal attempt by %s", sender))
		}
		ch, ok := e.cohosts[c.ParticipantID]
		if !ok {
			return nil
		}
		delete(e.cohosts, c.ParticipantID)
		target := domain.Participant{ID: ch.ID, Username: ch.Username}
		return e.cohostNoticeLocked(ctx, core.EventCoHostRemoved, target, fmt.Sprintf("User %s is no longer a co-host.", ch.Username))

	case core.SwitchMode:
		if !e.deps.Policy.CanSwitchMode(role) {
			return domain.Reject(domain.ErrUnauthorized, "Unauthorized User",
				"Only the broadcaster can switch the stream mode.")
		}
		return e.switchModeLocked(ctx, c.Mode)

	case core.Chat:
		text := strings.TrimSpace(c.Text)
		if text == "" {
			return nil
		}
		if !e.deps.Policy.CanChat(role) {
			return domain.Inform(domain.ErrUnauthorized, "Only the broadcaster and co-hosts can speak.", "Chat is restricted in this session.")
		}
		if !e.limiter.Allow(sender) {
			return domain.Inform(domain.ErrRateLimited, "rate_limited", "You are sending messages too quickly.")
		}
		entry := e.appendChatLocked(domain.ChatMessage, from, text)
		return e.broadcastLocked(ctx, core.ChatEventOf(entry))

	case core.LeaveRoom:
		m, ok := e.members[sender]
		if !ok {
			return nil
		}
		err := e.removeLocked(ctx, m)
		if sendErr := e.deps.Bus.PublishToOne(m.conn, core.Closing()); sendErr != nil {
			m.conn.Close()
		}
		return err

	case core.EndStream:
		if role != domain.RoleHost {
			return domain.Reject(domain.ErrUnauthorized, "Unauthorized User",
				fmt.Sprintf("Only the host can end the stream, not %s", sender))
		}
		e.endLocked(ctx, "The stream has ended. The broadcaster has closed the session.")
		return nil

	case core.Signal:
		ev := core.SignalEvent{Type: string(c.Kind), Username: from.Username, UserID: sender}
		switch c.Kind {
		case core.SignalOffer:
			ev.Offer = c.Payload
		case core.SignalAnswer:
			ev.Answer = c.Payload
		case core.SignalCandidate:
			ev.Candidate = c.Payload
		default:
			return fmt.Errorf("%w: signal kind %q", domain.ErrMalformedMessage, c.Kind)
		}
		return e.broadcastLocked(ctx, ev)

	default:
		e.log.Warn().Str("type", fmt.Sprintf("%T", ctl)).Msg("unhandled control message")
		return fmt.Errorf("%w: %T", domain.ErrMalformedMessage, ctl)
	}
}

func (e *Engine) cohostNoticeLocked(ctx context.Context, eventType string, who domain.Participant, text string) error {
	e.appendChatLocked(domain.ChatCoHostNotice, who, text)
	return e.broadcastLocked(ctx, core.CoHostEvent{
		Type:          eventType,
		ParticipantID: who.ID,
		Username:      who.Username,
		Message:       text,
	})
}

func (e *Engine) switchModeLocked(ctx context.Context, mode domain.MediaMode) error {
	if mode != domain.ModeAudio {
		e.relay.Reset()
	}
	e.mode = mode
	e.later("update mode", func(ctx context.Context, s core.Store) error {
		return s.UpdateMode(ctx, e.id, mode)
	})

	if err := e.broadcastLocked(ctx, core.ModeChangedEvent{
		Type:    core.EventModeChanged,
		Mode:    mode,
		Message: fmt.Sprintf("Broadcaster switched to %s mode.", mode.Title()),
	}); err != nil {
		return err
	}
	switch mode {
	case domain.ModeScreen:
		return e.broadcastLocked(ctx, core.MessageEvent{Type: core.EventScreenStarted, Message: "Broadcaster started screen sharing."})
	case domain.ModeAudio:
		return e.broadcastLocked(ctx, core.MessageEvent{Type: core.EventAudioStarted, Message: "Broadcaster switched back to audio mode."})
	}
	return nil
}
