package bus

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/livestage/internal/core"
)

type fakeConn struct {
	id  core.ConnID
	cap int

	mu     sync.Mutex
	frames []core.Frame
	closed bool
}

func newFakeConn(id string, capacity int) *fakeConn {
	return &fakeConn{id: core.ConnID(id), cap: capacity}
}

func (c *fakeConn) ID() core.ConnID { return c.id }

func (c *fakeConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cap > 0 && len(c.frames) >= c.cap {
		return core.ErrBackpressure
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *fakeConn) received() []core.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]core.Frame(nil), c.frames...)
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type fixedPolicy core.BackpressureAction

func (p fixedPolicy) OnBackPressure(core.SignalConnection) core.BackpressureAction {
	return core.BackpressureAction(p)
}

func TestMemory_PublishReachesOnlyGroupMembers(t *testing.T) {
	req := require.New(t)
	b := NewMemory(nil)
	a, c := newFakeConn("a", 0), newFakeConn("c", 0)

	b.Subscribe(a, "session:1")
	b.Subscribe(c, "session:2")

	req.NoError(b.Publish(context.Background(), "session:1", core.Text([]byte("hi"))))

	req.Len(a.received(), 1)
	req.Equal("hi", string(a.received()[0].Data))
	req.Empty(c.received())
}

func TestMemory_UnsubscribeAll(t *testing.T) {
	req := require.New(t)
	b := NewMemory(nil)
	a := newFakeConn("a", 0)
	b.Subscribe(a, "session:1")
	b.Subscribe(a, "user:p1")

	b.UnsubscribeAll(a)

	req.Empty(b.Members("session:1"))
	req.Empty(b.Members("user:p1"))
	req.NoError(b.Publish(context.Background(), "session:1", core.Text([]byte("x"))))
	req.Empty(a.received())
}

func TestMemory_Backpressure(t *testing.T) {
	t.Run("kick closes the slow connection", func(t *testing.T) {
		req := require.New(t)
		var logs bytes.Buffer
		prev := log.Logger
		log.Logger = zerolog.New(&logs)
		t.Cleanup(func() { log.Logger = prev })

		b := NewMemory(fixedPolicy(core.KickMember))
		slow := newFakeConn("slow", 1)
		b.Subscribe(slow, "g")

		req.NoError(b.Publish(context.Background(), "g", core.Text([]byte("1"))))
		req.NoError(b.Publish(context.Background(), "g", core.Text([]byte("2"))))

		req.True(slow.isClosed())
		req.Len(slow.received(), 1)
		req.Contains(logs.String(), `"module":"bus.memory"`)
		req.Contains(logs.String(), "slow consumer kicked")
	})

	t.Run("drop keeps the connection open", func(t *testing.T) {
		req := require.New(t)
		b := NewMemory(fixedPolicy(core.DropFrame))
		slow := newFakeConn("slow", 1)

		req.NoError(b.PublishToOne(slow, core.Text([]byte("1"))))
		req.ErrorIs(b.PublishToOne(slow, core.Text([]byte("2"))), core.ErrBackpressure)
		req.False(slow.isClosed())
	})
}
