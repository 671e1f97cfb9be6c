package core

import "context"

// GroupBus delivers frames to every connection subscribed to a named group.
// Implementations may be process local or cluster wide.
type GroupBus interface {
	Subscribe(conn SignalConnection, group string)
	Unsubscribe(conn SignalConnection, group string)
	// UnsubscribeAll drops every subscription of conn.
	UnsubscribeAll(conn SignalConnection)
	Publish(ctx context.Context, group string, f Frame) error
	PublishToOne(conn SignalConnection, f Frame) error
}
