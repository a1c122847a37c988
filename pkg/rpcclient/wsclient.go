package rpcclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nspcc-dev/kittychain/pkg/core/state"
	"github.com/nspcc-dev/kittychain/pkg/kittyrpc"
	"github.com/nspcc-dev/kittychain/pkg/kittyrpc/rpcevent"
	"go.uber.org/atomic"
)

// WSClient is a websocket-enabled RPC client that can be used with appropriate
// servers. It's supposed to be faster than Client because it has persistent
// connection to the server and at the same time it exposes some functionality
// that is only provided via websockets (like event subscription mechanism).
//
// Every subscription delivers events to the channel passed to the Receive*
// method. Channels are never closed by the client until the connection is
// lost or the server reports missed events, in which case all of them are
// closed and GetError returns the reason. Receivers must be read from
// continuously, a stuck receiver blocks every other subscription.
type WSClient struct {
	Client

	ws          *websocket.Conn
	done        chan struct{}
	requests    chan *kittyrpc.Request
	shutdown    chan struct{}
	closeCalled atomic.Bool
	closeErr    error

	subscriptionsLock sync.Mutex
	receivers         map[string]*receiver

	respLock     sync.Mutex
	respChannels map[uint64]chan *kittyrpc.Response
}

// receiver is a single subscription feed on the client side.
type receiver struct {
	id     string
	event  kittyrpc.EventID
	filter any
	ch     any
}

// EventID implements rpcevent.Comparator interface.
func (r *receiver) EventID() kittyrpc.EventID {
	return r.event
}

// Filter implements rpcevent.Comparator interface.
func (r *receiver) Filter() any {
	return r.filter
}

func (r *receiver) send(payload any) {
	switch ch := r.ch.(type) {
	case chan<- *state.Block:
		ch <- payload.(*state.Block)
	case chan<- *state.AppExecResult:
		ch <- payload.(*state.AppExecResult)
	case chan<- *state.NotificationEvent:
		ch <- payload.(*state.NotificationEvent)
	}
}

func (r *receiver) close() {
	switch ch := r.ch.(type) {
	case chan<- *state.Block:
		close(ch)
	case chan<- *state.AppExecResult:
		close(ch)
	case chan<- *state.NotificationEvent:
		close(ch)
	}
}

// notification is a raw server event.
type notification struct {
	Event   kittyrpc.EventID
	Payload []json.RawMessage
}

// event is a decoded notification satisfying rpcevent.Container.
type event struct {
	id      kittyrpc.EventID
	payload any
}

func (e event) EventID() kittyrpc.EventID { return e.id }
func (e event) EventPayload() any         { return e.payload }

// requestResponse is a combined type for request and response since we can get
// any of them here.
type requestResponse struct {
	kittyrpc.Response
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params,omitempty"`
}

const (
	// Message limit for receiving side.
	wsReadLimit = 10 * 1024 * 1024

	// Disconnection timeout.
	wsPongLimit = 60 * time.Second

	// Ping period for connection liveness check.
	wsPingPeriod = wsPongLimit / 2

	// Write deadline.
	wsWriteLimit = wsPingPeriod / 2
)

var (
	// ErrNilNotificationReceiver is returned when notification receiver channel is nil.
	ErrNilNotificationReceiver = errors.New("nil notification receiver")
	// ErrWSConnLost is a WSClient-specific error that will be returned for any
	// requests after disconnection (including intentional ones via
	// (*WSClient).Close).
	ErrWSConnLost = errors.New("connection lost")
	// ErrMissedEvents is set as the client error when the server drops
	// events for this client because it couldn't keep up with them.
	ErrMissedEvents = errors.New("server missed some events for this client")
)

// NewWS returns a new WSClient ready to use (with established websocket
// connection). You need to use websocket URL for it like `ws://1.2.3.4/ws`.
// It also accepts http(s) endpoints converting them into the websocket ones.
func NewWS(ctx context.Context, endpoint string, opts Options) (*WSClient, error) {
	endpoint = strings.Replace(endpoint, "http", "ws", 1)
	if !strings.HasSuffix(endpoint, "/ws") {
		endpoint = strings.TrimSuffix(endpoint, "/") + "/ws"
	}
	wsc := &WSClient{
		shutdown:     make(chan struct{}),
		done:         make(chan struct{}),
		requests:     make(chan *kittyrpc.Request),
		receivers:    make(map[string]*receiver),
		respChannels: make(map[uint64]chan *kittyrpc.Response),
	}
	err := initClient(ctx, &wsc.Client, endpoint, opts)
	if err != nil {
		return nil, err
	}

	dialer := websocket.Dialer{HandshakeTimeout: wsc.opts.DialTimeout}
	ws, resp, err := dialer.DialContext(ctx, endpoint, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	wsc.ws = ws
	wsc.Client.cli = nil
	wsc.Client.requestF = wsc.makeWsRequest
	go wsc.wsReader()
	go wsc.wsWriter()
	return wsc, nil
}

// Close closes connection to the remote side rendering this client instance
// unusable.
func (c *WSClient) Close() {
	if c.closeCalled.CAS(false, true) {
		// Closing shutdown channel sends a signal to wsWriter to break out of the
		// loop. In doing so it does ws.Close() closing the network connection
		// which in turn makes wsReader receive an err from ws.ReadJSON() and also
		// break out of the loop closing c.done channel in its shutdown sequence.
		close(c.shutdown)
	}
	<-c.done
}

// GetError returns the reason of connection loss, it's nil if Close was
// called or the connection is still alive.
func (c *WSClient) GetError() error {
	select {
	case <-c.done:
		return c.closeErr
	default:
		return nil
	}
}

func (c *WSClient) wsReader() {
	c.ws.SetReadLimit(wsReadLimit)
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(wsPongLimit))
	})
	var connErr error
readloop:
	for {
		rr := new(requestResponse)
		err := c.ws.SetReadDeadline(time.Now().Add(wsPongLimit))
		if err != nil {
			connErr = fmt.Errorf("failed to set response read deadline: %w", err)
			break readloop
		}
		err = c.ws.ReadJSON(rr)
		if err != nil {
			// Timeout/connection loss/malformed response.
			connErr = fmt.Errorf("failed to read JSON response (timeout/connection loss/malformed response): %w", err)
			break readloop
		}
		if rr.ID == nil && rr.Method != "" {
			var ntf = notification{Payload: rr.Params}
			ntf.Event, err = kittyrpc.GetEventIDFromString(rr.Method)
			if err != nil {
				connErr = fmt.Errorf("failed to decode event type: %w", err)
				break readloop
			}
			if ntf.Event == kittyrpc.MissedEventID {
				connErr = ErrMissedEvents
				break readloop
			}
			ev, err := decodeEvent(&ntf)
			if err != nil {
				connErr = err
				break readloop
			}
			c.notifyReceivers(ev)
		} else if rr.ID != nil && (rr.Error != nil || rr.Result != nil) {
			var id uint64
			err = json.Unmarshal(rr.ID, &id)
			if err != nil {
				connErr = fmt.Errorf("failed to retrieve response ID: %w", err)
				break readloop
			}
			c.respLock.Lock()
			ch, ok := c.respChannels[id]
			if ok {
				delete(c.respChannels, id)
			}
			c.respLock.Unlock()
			if !ok {
				connErr = fmt.Errorf("unknown response ID %d", id)
				break readloop
			}
			resp := rr.Response
			ch <- &resp
		} else {
			// Malformed response, neither valid request, nor valid response.
			connErr = errors.New("malformed response")
			break readloop
		}
	}
	if connErr != nil && !c.closeCalled.Load() {
		c.closeErr = connErr
	}
	close(c.done)
	c.respLock.Lock()
	for _, ch := range c.respChannels {
		close(ch)
	}
	c.respChannels = nil
	c.respLock.Unlock()
	c.subscriptionsLock.Lock()
	closed := make(map[any]bool)
	for id, r := range c.receivers {
		if !closed[r.ch] {
			r.close()
			closed[r.ch] = true
		}
		delete(c.receivers, id)
	}
	c.subscriptionsLock.Unlock()
}

func decodeEvent(ntf *notification) (event, error) {
	var ev = event{id: ntf.Event}
	if len(ntf.Payload) != 1 {
		return ev, fmt.Errorf("bad %s payload", ntf.Event)
	}
	switch ntf.Event {
	case kittyrpc.BlockEventID:
		ev.payload = new(state.Block)
	case kittyrpc.ExecutionEventID:
		ev.payload = new(state.AppExecResult)
	case kittyrpc.NotificationEventID:
		ev.payload = new(state.NotificationEvent)
	default:
		return ev, fmt.Errorf("unknown event received: %d", ntf.Event)
	}
	if err := json.Unmarshal(ntf.Payload[0], ev.payload); err != nil {
		return ev, fmt.Errorf("failed to decode %s: %w", ntf.Event, err)
	}
	return ev, nil
}

func (c *WSClient) notifyReceivers(ev event) {
	c.subscriptionsLock.Lock()
	defer c.subscriptionsLock.Unlock()
	for _, r := range c.receivers {
		if rpcevent.Matches(r, ev) {
			r.send(ev.payload)
		}
	}
}

func (c *WSClient) wsWriter() {
	pingTicker := time.NewTicker(wsPingPeriod)
	defer c.ws.Close()
	defer pingTicker.Stop()
	for {
		select {
		case <-c.shutdown:
			return
		case <-c.done:
			return
		case req, ok := <-c.requests:
			if !ok {
				return
			}
			if err := c.ws.SetWriteDeadline(time.Now().Add(c.opts.RequestTimeout)); err != nil {
				return
			}
			if err := c.ws.WriteJSON(req); err != nil {
				return
			}
		case <-pingTicker.C:
			if err := c.ws.SetWriteDeadline(time.Now().Add(wsWriteLimit)); err != nil {
				return
			}
			if err := c.ws.WriteMessage(websocket.PingMessage, []byte{}); err != nil {
				return
			}
		}
	}
}

func (c *WSClient) registerRespChannel(id uint64, ch chan *kittyrpc.Response) error {
	c.respLock.Lock()
	defer c.respLock.Unlock()
	if c.respChannels == nil {
		return ErrWSConnLost
	}
	c.respChannels[id] = ch
	return nil
}

func (c *WSClient) unregisterRespChannel(id uint64) {
	c.respLock.Lock()
	defer c.respLock.Unlock()
	if c.respChannels != nil {
		delete(c.respChannels, id)
	}
}

func (c *WSClient) makeWsRequest(r *kittyrpc.Request) (*kittyrpc.Response, error) {
	ch := make(chan *kittyrpc.Response, 1)
	if err := c.registerRespChannel(r.ID, ch); err != nil {
		return nil, err
	}

	select {
	case <-c.done:
		c.unregisterRespChannel(r.ID)
		return nil, ErrWSConnLost
	case c.requests <- r:
	}

	select {
	case <-c.done:
		return nil, ErrWSConnLost
	case resp, ok := <-ch:
		if !ok {
			return nil, ErrWSConnLost
		}
		return resp, nil
	case <-time.After(c.opts.RequestTimeout):
		c.unregisterRespChannel(r.ID)
		return nil, fmt.Errorf("request %d timed out", r.ID)
	}
}

func (c *WSClient) performSubscription(params []any, r *receiver) (string, error) {
	var resp string

	if err := c.performRequest("subscribe", params, &resp); err != nil {
		return "", err
	}
	r.id = resp
	c.subscriptionsLock.Lock()
	c.receivers[resp] = r
	c.subscriptionsLock.Unlock()
	return resp, nil
}

// ReceiveBlocks registers provided channel as a receiver for the new block
// events. Events can be filtered by the given BlockFilter, nil value doesn't
// add any filter. The channel is closed only on connection loss.
func (c *WSClient) ReceiveBlocks(flt *kittyrpc.BlockFilter, rcvr chan<- *state.Block) (string, error) {
	if rcvr == nil {
		return "", ErrNilNotificationReceiver
	}
	params := []any{"block_added"}
	r := &receiver{event: kittyrpc.BlockEventID, ch: rcvr}
	if flt != nil {
		params = append(params, *flt.Copy())
		r.filter = *flt.Copy()
	}
	return c.performSubscription(params, r)
}

// ReceiveExecutions registers provided channel as a receiver for the
// results of successful calls. Events can be filtered by the given
// ExecutionFilter, nil value doesn't add any filter.
func (c *WSClient) ReceiveExecutions(flt *kittyrpc.ExecutionFilter, rcvr chan<- *state.AppExecResult) (string, error) {
	if rcvr == nil {
		return "", ErrNilNotificationReceiver
	}
	params := []any{"call_executed"}
	r := &receiver{event: kittyrpc.ExecutionEventID, ch: rcvr}
	if flt != nil {
		params = append(params, *flt.Copy())
		r.filter = *flt.Copy()
	}
	return c.performSubscription(params, r)
}

// ReceiveKittyEvents registers provided channel as a receiver for the kitty
// and balance events. Events can be filtered by the given NotificationFilter,
// nil value doesn't add any filter.
func (c *WSClient) ReceiveKittyEvents(flt *kittyrpc.NotificationFilter, rcvr chan<- *state.NotificationEvent) (string, error) {
	if rcvr == nil {
		return "", ErrNilNotificationReceiver
	}
	params := []any{"kitty_event"}
	r := &receiver{event: kittyrpc.NotificationEventID, ch: rcvr}
	if flt != nil {
		params = append(params, *flt.Copy())
		r.filter = *flt.Copy()
	}
	return c.performSubscription(params, r)
}

// Unsubscribe removes subscription for the given event stream. The receiver
// channel is left open.
func (c *WSClient) Unsubscribe(id string) error {
	c.subscriptionsLock.Lock()
	_, ok := c.receivers[id]
	c.subscriptionsLock.Unlock()
	if !ok {
		return errors.New("no subscription with this ID")
	}
	return c.performUnsubscription(id)
}

// UnsubscribeAll removes all active subscriptions of the current connection.
func (c *WSClient) UnsubscribeAll() error {
	c.subscriptionsLock.Lock()
	ids := make([]string, 0, len(c.receivers))
	for id := range c.receivers {
		ids = append(ids, id)
	}
	c.subscriptionsLock.Unlock()

	for _, id := range ids {
		if err := c.performUnsubscription(id); err != nil {
			return err
		}
	}
	return nil
}

func (c *WSClient) performUnsubscription(id string) error {
	var resp bool
	if err := c.performRequest("unsubscribe", []any{id}, &resp); err != nil {
		return err
	}
	if !resp {
		return errors.New("unsubscribe method returned false result")
	}
	c.subscriptionsLock.Lock()
	delete(c.receivers, id)
	c.subscriptionsLock.Unlock()
	return nil
}
