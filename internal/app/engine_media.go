package app

import (
	"context"

	"github.com/dkeye/livestage/internal/core"
	"github.com/dkeye/livestage/internal/domain"
)

// RelayChunk transforms one binary chunk from sender for the current mode and
// fans it out to the session. Dropped chunks are logged and not returned as
// errors, except when the bus is unavailable.
func (e *Engine) RelayChunk(ctx context.Context, sender domain.ParticipantID, chunk []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.status != domain.StatusActive {
		return nil
	}
	role, ok := e.roleLocked(sender)
	if !ok || !e.deps.Policy.CanRelayMedia(role) {
		return nil
	}

	out, err := e.relay.Process(e.mode, sender, chunk)
	if err != nil {
		e.log.Warn().Err(err).
			Str("participant", string(sender)).
			Str("mode", string(e.mode)).
			Int("bytes", len(chunk)).
			Msg("chunk dropped")
		return nil
	}
	if err := e.deps.Bus.Publish(ctx, core.SessionGroup(e.id), core.Binary(out)); err != nil {
		e.log.Error().Err(err).Msg("publish chunk")
		return domain.ErrBusUnavailable
	}
	return nil
}
