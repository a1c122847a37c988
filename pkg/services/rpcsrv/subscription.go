package rpcsrv

import (
	"github.com/gorilla/websocket"
	"github.com/nspcc-dev/kittychain/pkg/kittyrpc"
	"go.uber.org/atomic"
)

type (
	// subscriber is an event subscriber.
	subscriber struct {
		writer    chan<- *websocket.PreparedMessage
		ws        *websocket.Conn
		overflown atomic.Bool
		// These work like slots as there is not a lot of them (it's
		// cheaper doing it this way rather than creating a map).
		feeds [maxFeeds]feed
	}
	// feed stores subscriber's desired event ID with filter.
	feed struct {
		id     string
		event  kittyrpc.EventID
		filter any
	}
)

// EventID implements rpcevent.Comparator interface and returns notification ID.
func (f feed) EventID() kittyrpc.EventID {
	return f.event
}

// Filter implements rpcevent.Comparator interface and returns notification filter.
func (f feed) Filter() any {
	return f.filter
}

const (
	// Maximum number of subscriptions per one client.
	maxFeeds = 16

	// This sets notification messages buffer depth. Busy blocks generate
	// lots of kitty events in a short time while the network is slow to
	// deliver them, so it's quite big.
	notificationBufSize = 1024
)
