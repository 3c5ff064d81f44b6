package rpcsrv

import (
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/nspcc-dev/oracle-bridge/pkg/core/state"
	"github.com/nspcc-dev/oracle-bridge/pkg/neorpc"
)

const (
	// maxFeeds is the number of subscriptions per client.
	maxFeeds = 16

	// notificationBufSize is the per-client event buffer depth. A single
	// registration burst can produce many events.
	notificationBufSize = 1024
)

type (
	// subscriber is a websocket client.
	subscriber struct {
		writer    chan<- *websocket.PreparedMessage
		overflown atomic.Bool
		// feeds are indexed by subscription ID, free slots have
		// InvalidEventID.
		feeds [maxFeeds]feed
	}
	// feed is a single subscription.
	feed struct {
		event  neorpc.EventID
		filter *neorpc.NotificationFilter
	}
)

// freeSlot returns the first unused feed index or -1.
func (s *subscriber) freeSlot() int {
	for i := range s.feeds {
		if s.feeds[i].event == neorpc.InvalidEventID {
			return i
		}
	}
	return -1
}

// wants tells whether any of the feeds matches the event.
func (s *subscriber) wants(event neorpc.EventID, ev *state.ContainedNotificationEvent) bool {
	for _, f := range s.feeds {
		if f.matches(event, ev) {
			return true
		}
	}
	return false
}

func (f feed) matches(event neorpc.EventID, ev *state.ContainedNotificationEvent) bool {
	if f.event == neorpc.InvalidEventID || f.event != event {
		return false
	}
	if f.filter == nil || f.filter.Name == nil {
		return true
	}
	return ev != nil && ev.Name == *f.filter.Name
}
