//go:generate go run go.uber.org/mock/mockgen -source=store_iface.go -destination=../mocks/mock_store.go -package=mocks
package core

import (
	"context"
	"time"

	"github.com/dkeye/livestage/internal/domain"
)

// Store persists sessions, participants and chat transcripts.
// All calls are best-effort from the engine's point of view.
type Store interface {
	CreateSession(ctx context.Context, rec domain.SessionRecord) error
	EndSession(ctx context.Context, id domain.SessionID, endedAt time.Time) error
	GetSession(ctx context.Context, id domain.SessionID) (domain.SessionRecord, error)
	UpdateMode(ctx context.Context, id domain.SessionID, mode domain.MediaMode) error
	AddParticipant(ctx context.Context, id domain.SessionID, p domain.Participant) error
	Participants(ctx context.Context, id domain.SessionID) ([]domain.Participant, error)
	RefreshParticipantCount(ctx context.Context, id domain.SessionID, count int) error
	AppendChat(ctx context.Context, id domain.SessionID, entry domain.ChatEntry) error
	ChatHistory(ctx context.Context, id domain.SessionID) ([]domain.ChatEntry, error)
	ListActive(ctx context.Context) ([]domain.SessionRecord, error)
}
