package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/livestage/internal/core"
	"github.com/dkeye/livestage/internal/domain"
)

var _ core.Store = (*Postgres)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS rooms (
	room_id            TEXT PRIMARY KEY,
	host_id            TEXT NOT NULL,
	status             TEXT NOT NULL,
	mode               TEXT NOT NULL DEFAULT '',
	total_participants INTEGER NOT NULL DEFAULT 0,
	created_at         TIMESTAMPTZ NOT NULL,
	start_timestamp    TIMESTAMPTZ NOT NULL,
	end_timestamp      TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS rooms_status_idx ON rooms (status);

CREATE TABLE IF NOT EXISTS room_participants (
	room_id        TEXT NOT NULL REFERENCES rooms (room_id) ON DELETE CASCADE,
	participant_id TEXT NOT NULL,
	username       TEXT NOT NULL,
	joined_at      TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (room_id, participant_id)
);

CREATE TABLE IF NOT EXISTS chat_messages (
	id          BIGSERIAL PRIMARY KEY,
	room_id     TEXT NOT NULL REFERENCES rooms (room_id) ON DELETE CASCADE,
	kind        TEXT NOT NULL,
	sender_id   TEXT NOT NULL,
	sender_name TEXT NOT NULL,
	message     TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS chat_messages_room_idx ON chat_messages (room_id, id);
`

// Postgres persists session records and transcripts through a pgx pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres opens a pool for dsn and makes sure the schema exists.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn required")
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := &Postgres{pool: pool}
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	log.Info().Str("module", "store.postgres").Str("host", cfg.ConnConfig.Host).Msg("postgres store ready")
	return s, nil
}

func (s *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Close releases the pool, giving up when ctx is done.
func (s *Postgres) Close(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		s.pool.Close()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (s *Postgres) CreateSession(ctx context.Context, rec domain.SessionRecord) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO rooms (room_id, host_id, status, mode, total_participants, created_at, start_timestamp)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (room_id) DO NOTHING
`, string(rec.ID), string(rec.HostID), string(rec.Status), string(rec.Mode),
		rec.TotalParticipants, rec.CreatedAt.UTC(), rec.StartedAt.UTC())
	if err != nil {
		return fmt.Errorf("create session %s: %w", rec.ID, err)
	}
	return nil
}

func (s *Postgres) EndSession(ctx context.Context, id domain.SessionID, endedAt time.Time) error {
	return s.execOne(ctx, "end session", id, `
UPDATE rooms SET status = $2, end_timestamp = $3 WHERE room_id = $1
`, string(id), string(domain.StatusEnded), endedAt.UTC())
}

func (s *Postgres) GetSession(ctx context.Context, id domain.SessionID) (domain.SessionRecord, error) {
	row := s.pool.QueryRow(ctx, `
SELECT room_id, host_id, status, mode, total_participants, created_at, start_timestamp, end_timestamp
FROM rooms
WHERE room_id = $1
`, string(id))
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.SessionRecord{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.SessionRecord{}, fmt.Errorf("get session %s: %w", id, err)
	}
	return rec, nil
}

func (s *Postgres) UpdateMode(ctx context.Context, id domain.SessionID, mode domain.MediaMode) error {
	return s.execOne(ctx, "update mode", id, `UPDATE rooms SET mode = $2 WHERE room_id = $1`, string(id), string(mode))
}

func (s *Postgres) AddParticipant(ctx context.Context, id domain.SessionID, p domain.Participant) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO room_participants (room_id, participant_id, username, joined_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (room_id, participant_id) DO UPDATE SET username = EXCLUDED.username, joined_at = EXCLUDED.joined_at
`, string(id), string(p.ID), p.Username, p.JoinedAt.UTC())
	if err != nil {
		return fmt.Errorf("add participant %s to %s: %w", p.ID, id, err)
	}
	return nil
}

func (s *Postgres) Participants(ctx context.Context, id domain.SessionID) ([]domain.Participant, error) {
	if _, err := s.GetSession(ctx, id); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `
SELECT participant_id, username, joined_at
FROM room_participants
WHERE room_id = $1
ORDER BY joined_at, participant_id
`, string(id))
	if err != nil {
		return nil, fmt.Errorf("participants %s: %w", id, err)
	}
	ps, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Participant, error) {
		var (
			p   domain.Participant
			pid string
		)
		if err := row.Scan(&pid, &p.Username, &p.JoinedAt); err != nil {
			return domain.Participant{}, err
		}
		p.ID = domain.ParticipantID(pid)
		return p, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan participants %s: %w", id, err)
	}
	return ps, nil
}

func (s *Postgres) RefreshParticipantCount(ctx context.Context, id domain.SessionID, count int) error {
	return s.execOne(ctx, "refresh participant count", id,
		`UPDATE rooms SET total_participants = $2 WHERE room_id = $1`, string(id), count)
}

func (s *Postgres) AppendChat(ctx context.Context, id domain.SessionID, entry domain.ChatEntry) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO chat_messages (room_id, kind, sender_id, sender_name, message, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
`, string(id), string(entry.Kind), string(entry.SenderID), entry.SenderName, entry.Text, entry.Timestamp.UTC())
	if err != nil {
		return fmt.Errorf("append chat to %s: %w", id, err)
	}
	return nil
}

func (s *Postgres) ChatHistory(ctx context.Context, id domain.SessionID) ([]domain.ChatEntry, error) {
	if _, err := s.GetSession(ctx, id); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `
SELECT kind, sender_id, sender_name, message, created_at
FROM chat_messages
WHERE room_id = $1
ORDER BY id
`, string(id))
	if err != nil {
		return nil, fmt.Errorf("chat history %s: %w", id, err)
	}
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.ChatEntry, error) {
		var (
			e                      domain.ChatEntry
			kind, sender, name, tx string
		)
		if err := row.Scan(&kind, &sender, &name, &tx, &e.Timestamp); err != nil {
			return domain.ChatEntry{}, err
		}
		e.Kind = domain.ChatKind(kind)
		e.SenderID = domain.ParticipantID(sender)
		e.SenderName = name
		e.Text = tx
		return e, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan chat history %s: %w", id, err)
	}
	return entries, nil
}

func (s *Postgres) ListActive(ctx context.Context) ([]domain.SessionRecord, error) {
	rows, err := s.pool.Query(ctx, `
SELECT room_id, host_id, status, mode, total_participants, created_at, start_timestamp, end_timestamp
FROM rooms
WHERE status = $1
ORDER BY start_timestamp DESC, room_id
`, string(domain.StatusActive))
	if err != nil {
		return nil, fmt.Errorf("list active: %w", err)
	}
	recs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.SessionRecord, error) {
		return scanRecord(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan active: %w", err)
	}
	return recs, nil
}

func (s *Postgres) execOne(ctx context.Context, what string, id domain.SessionID, sql string, args ...any) error {
	tag, err := s.pool.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("%s %s: %w", what, id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s %s: %w", what, id, domain.ErrNotFound)
	}
	return nil
}

func scanRecord(row pgx.Row) (domain.SessionRecord, error) {
	var (
		rec                    domain.SessionRecord
		id, host, status, mode string
		endedAt                *time.Time
	)
	if err := row.Scan(&id, &host, &status, &mode, &rec.TotalParticipants, &rec.CreatedAt, &rec.StartedAt, &endedAt); err != nil {
		return domain.SessionRecord{}, err
	}
	rec.ID = domain.SessionID(id)
	rec.HostID = domain.ParticipantID(host)
	rec.Status = domain.SessionStatus(status)
	rec.Mode = domain.MediaMode(mode)
	rec.EndedAt = endedAt
	return rec, nil
}
