package bus

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/livestage/internal/core"
	"github.com/dkeye/livestage/internal/domain"
)

const defaultChannelPrefix = "livestage:bus:"

type RedisConfig struct {
	Addr          string
	Password      string
	ChannelPrefix string
	DialTimeout   time.Duration
}

// Redis spreads group publications over redis pub/sub so every process that
// holds members of a group delivers to them. Membership stays local, and
// local members get a publication before Publish returns, so a member
// unsubscribed right after a publish still sees it.
type Redis struct {
	local  *Memory
	client redis.UniversalClient
	prefix string
	origin uuid.UUID

	sub    *redis.PubSub
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// NewRedis connects, subscribes to every group under the channel prefix and
// starts the delivery loop.
func NewRedis(ctx context.Context, cfg RedisConfig, policy core.BackpressurePolicy) (*Redis, error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, errors.New("redis addr is required")
	}
	prefix := cfg.ChannelPrefix
	if prefix == "" {
		prefix = defaultChannelPrefix
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:       []string{addr},
		Password:    cfg.Password,
		DialTimeout: cfg.DialTimeout,
		MaxRetries:  2,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: ping: %v", domain.ErrBusUnavailable, err)
	}

	sub := client.PSubscribe(ctx, prefix+"*")
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		_ = client.Close()
		return nil, fmt.Errorf("%w: psubscribe: %v", domain.ErrBusUnavailable, err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	b := &Redis{
		local:  NewMemory(policy),
		client: client,
		prefix: prefix,
		origin: uuid.New(),
		sub:    sub,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go b.run(runCtx)
	log.Info().Str("module", "bus.redis").Str("addr", addr).Str("prefix", prefix).Msg("redis bus ready")
	return b, nil
}

func (b *Redis) Subscribe(conn core.SignalConnection, group string) {
	b.local.Subscribe(conn, group)
}

func (b *Redis) Unsubscribe(conn core.SignalConnection, group string) {
	b.local.Unsubscribe(conn, group)
}

func (b *Redis) UnsubscribeAll(conn core.SignalConnection) {
	b.local.UnsubscribeAll(conn)
}

func (b *Redis) PublishToOne(conn core.SignalConnection, f core.Frame) error {
	return b.local.PublishToOne(conn, f)
}

// Publish returns once redis accepted the message and local members got it,
// so publications from one caller keep their order.
func (b *Redis) Publish(ctx context.Context, group string, f core.Frame) error {
	if err := b.client.Publish(ctx, b.prefix+group, encodeEnvelope(b.origin, f)).Err(); err != nil {
		return fmt.Errorf("%w: publish %s: %v", domain.ErrBusUnavailable, group, err)
	}
	b.local.Deliver(group, f)
	return nil
}

func (b *Redis) run(ctx context.Context) {
	defer close(b.done)
	ch := b.sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			group := strings.TrimPrefix(msg.Channel, b.prefix)
			origin, f, err := decodeEnvelope([]byte(msg.Payload))
			if err != nil {
				log.Warn().Str("module", "bus.redis").Err(err).Str("group", group).Msg("drop undecodable message")
				continue
			}
			if origin == b.origin {
				continue
			}
			b.local.Deliver(group, f)
		}
	}
}

func (b *Redis) Close() error {
	var err error
	b.once.Do(func() {
		b.cancel()
		err = errors.Join(b.sub.Close(), b.client.Close())
		<-b.done
	})
	return err
}

// encodeEnvelope lays out the publishing process id, the frame kind and the
// payload.
func encodeEnvelope(origin uuid.UUID, f core.Frame) []byte {
	out := make([]byte, len(origin)+1+len(f.Data))
	n := copy(out, origin[:])
	out[n] = byte(f.Kind)
	copy(out[n+1:], f.Data)
	return out
}

func decodeEnvelope(b []byte) (uuid.UUID, core.Frame, error) {
	var origin uuid.UUID
	if len(b) < len(origin)+1 {
		return uuid.Nil, core.Frame{}, fmt.Errorf("short envelope of %d bytes", len(b))
	}
	n := copy(origin[:], b)
	kind := core.FrameKind(b[n])
	if kind > core.CloseFrame {
		return uuid.Nil, core.Frame{}, fmt.Errorf("unknown frame kind %d", kind)
	}
	return origin, core.Frame{Kind: kind, Data: b[n+1:]}, nil
}
