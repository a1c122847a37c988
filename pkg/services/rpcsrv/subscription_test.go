package rpcsrv

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/nspcc-dev/kittychain/internal/testchain"
	"github.com/nspcc-dev/kittychain/pkg/core"
	"github.com/nspcc-dev/kittychain/pkg/core/state"
	"github.com/nspcc-dev/kittychain/pkg/kittyrpc"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func wsReader(t *testing.T, ws *websocket.Conn, msgCh chan<- []byte, isFinished *atomic.Bool) {
	for {
		err := ws.SetReadDeadline(time.Now().Add(5 * time.Second))
		if isFinished.Load() {
			break
		}
		require.NoError(t, err)
		_, body, err := ws.ReadMessage()
		if isFinished.Load() {
			break
		}
		require.NoError(t, err)
		msgCh <- body
	}
}

func callWSGetRaw(t *testing.T, ws *websocket.Conn, msg string, respCh <-chan []byte) *kittyrpc.Response {
	var resp = new(kittyrpc.Response)

	require.NoError(t, ws.SetWriteDeadline(time.Now().Add(time.Second)))
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(msg)))

	body := <-respCh
	require.NoError(t, json.Unmarshal(body, resp))
	return resp
}

// wsNotification is a Notification with a raw payload to be decoded by
// tests according to the event type.
type wsNotification struct {
	Event   kittyrpc.EventID  `json:"method"`
	Payload []json.RawMessage `json:"params"`
}

func getNotification(t *testing.T, respCh <-chan []byte) *wsNotification {
	var resp = new(wsNotification)
	select {
	case body := <-respCh:
		require.NoError(t, json.Unmarshal(body, resp))
	case <-time.After(2 * time.Second):
		t.Fatal("no notification received")
	}
	return resp
}

func initServerAndWSClient(t *testing.T) (*core.Blockchain, *Server, string, *websocket.Conn, chan []byte) {
	chain, rpcSrv, httpSrv := initServer(t, nil)

	dialer := websocket.Dialer{HandshakeTimeout: time.Second}
	url := "ws" + strings.TrimPrefix(httpSrv.URL, "http") + "/ws"
	ws, r, err := dialer.Dial(url, nil)
	require.NoError(t, err)
	defer r.Body.Close()

	// Use buffered channel to read server's messages and then read expected
	// responses from it.
	respMsgs := make(chan []byte, 16)
	finishedFlag := &atomic.Bool{}
	go wsReader(t, ws, respMsgs, finishedFlag)
	t.Cleanup(func() {
		finishedFlag.Store(true)
		ws.Close()
	})
	return chain, rpcSrv, httpSrv.URL, ws, respMsgs
}

func callSubscribe(t *testing.T, ws *websocket.Conn, msgs <-chan []byte, params string) string {
	var s string
	resp := callWSGetRaw(t, ws, fmt.Sprintf(`{"jsonrpc": "2.0","method": "subscribe","params": %s,"id": 1}`, params), msgs)
	require.Nil(t, resp.Error)
	require.NotNil(t, resp.Result)
	require.NoError(t, json.Unmarshal(resp.Result, &s))
	_, err := uuid.Parse(s)
	require.NoError(t, err)
	return s
}

func callUnsubscribe(t *testing.T, ws *websocket.Conn, msgs <-chan []byte, id string) {
	var b bool
	resp := callWSGetRaw(t, ws, fmt.Sprintf(`{"jsonrpc": "2.0","method": "unsubscribe","params": ["%s"],"id": 1}`, id), msgs)
	require.Nil(t, resp.Error)
	require.NotNil(t, resp.Result)
	require.NoError(t, json.Unmarshal(resp.Result, &b))
	require.Equal(t, true, b)
}

func TestSubscriptions(t *testing.T) {
	chain, _, url, c, respMsgs := initServerAndWSClient(t)

	blockID := callSubscribe(t, c, respMsgs, `["block_added"]`)
	execID := callSubscribe(t, c, respMsgs, `["call_executed"]`)
	ntfID := callSubscribe(t, c, respMsgs, `["kitty_event"]`)

	dna := createKitty(t, url, alice)

	resp := getNotification(t, respMsgs)
	require.Equal(t, kittyrpc.ExecutionEventID, resp.Event)
	var aer state.AppExecResult
	require.NoError(t, json.Unmarshal(resp.Payload[0], &aer))
	require.Equal(t, core.MethodCreateKitty, aer.Method)
	require.Equal(t, testchain.Account(0), aer.Sender)

	resp = getNotification(t, respMsgs)
	require.Equal(t, kittyrpc.NotificationEventID, resp.Event)
	var ne state.NotificationEvent
	require.NoError(t, json.Unmarshal(resp.Payload[0], &ne))
	kc, ok := ne.Event.(*state.KittyCreated)
	require.True(t, ok)
	require.Equal(t, dna, kc.Kitty)
	require.Equal(t, uint32(1), ne.Block)

	// Failed calls emit nothing.
	callFault(t, url, "transferkitty", `["`+bob+`", "`+carol+`", "`+dna.String()+`"]`, kittyrpc.NotOwnerCode)

	b, err := chain.SealBlock()
	require.NoError(t, err)
	resp = getNotification(t, respMsgs)
	require.Equal(t, kittyrpc.BlockEventID, resp.Event)
	var blk state.Block
	require.NoError(t, json.Unmarshal(resp.Payload[0], &blk))
	require.Equal(t, b.Index, blk.Index)
	require.Equal(t, uint32(2), blk.CallCount)

	callUnsubscribe(t, c, respMsgs, blockID)
	callUnsubscribe(t, c, respMsgs, execID)
	callUnsubscribe(t, c, respMsgs, ntfID)

	createKitty(t, url, bob)
	_, err = chain.SealBlock()
	require.NoError(t, err)
	select {
	case msg := <-respMsgs:
		t.Fatalf("unexpected message: %s", msg)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestFilteredSubscriptions(t *testing.T) {
	var cases = map[string]struct {
		params string
		check  func(*testing.T, *wsNotification)
	}{
		"kitty events by name": {
			params: `["kitty_event", {"name":"PriceSet"}]`,
			check: func(t *testing.T, resp *wsNotification) {
				require.Equal(t, kittyrpc.NotificationEventID, resp.Event)
				var ne state.NotificationEvent
				require.NoError(t, json.Unmarshal(resp.Payload[0], &ne))
				require.Equal(t, state.PriceSetT, ne.Event.Type())
			},
		},
		"kitty events by account": {
			params: `["kitty_event", {"account":"0x` + testchain.Account(1).String() + `"}]`,
			check: func(t *testing.T, resp *wsNotification) {
				require.Equal(t, kittyrpc.NotificationEventID, resp.Event)
				var ne state.NotificationEvent
				require.NoError(t, json.Unmarshal(resp.Payload[0], &ne))
				kc, ok := ne.Event.(*state.KittyCreated)
				require.True(t, ok)
				require.Equal(t, testchain.Account(1), kc.Owner)
			},
		},
		"executions by method": {
			params: `["call_executed", {"method":"setprice"}]`,
			check: func(t *testing.T, resp *wsNotification) {
				require.Equal(t, kittyrpc.ExecutionEventID, resp.Event)
				var aer state.AppExecResult
				require.NoError(t, json.Unmarshal(resp.Payload[0], &aer))
				require.Equal(t, core.MethodSetPrice, aer.Method)
			},
		},
		"blocks since": {
			params: `["block_added", {"since":2}]`,
			check: func(t *testing.T, resp *wsNotification) {
				require.Equal(t, kittyrpc.BlockEventID, resp.Event)
				var blk state.Block
				require.NoError(t, json.Unmarshal(resp.Payload[0], &blk))
				require.Equal(t, uint32(2), blk.Index)
			},
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			chain, _, url, c, respMsgs := initServerAndWSClient(t)
			callSubscribe(t, c, respMsgs, tc.params)

			dna := createKitty(t, url, alice)
			_, err := chain.SealBlock()
			require.NoError(t, err)
			createKitty(t, url, bob)
			call(t, url, "setprice", `["`+alice+`", "`+dna.String()+`", "7"]`, nil)
			_, err = chain.SealBlock()
			require.NoError(t, err)

			tc.check(t, getNotification(t, respMsgs))
			select {
			case msg := <-respMsgs:
				t.Fatalf("unexpected message: %s", msg)
			case <-time.After(200 * time.Millisecond):
			}
		})
	}
}

func TestBadSubscriptions(t *testing.T) {
	_, _, _, c, respMsgs := initServerAndWSClient(t)

	testCases := map[string]string{
		"no params":            `{"jsonrpc": "2.0", "method": "subscribe", "params": [], "id": 1}`,
		"bad stream":           `{"jsonrpc": "2.0", "method": "subscribe", "params": ["kitty_born"], "id": 1}`,
		"missed event":         `{"jsonrpc": "2.0", "method": "subscribe", "params": ["event_missed"], "id": 1}`,
		"block invalid filter": `{"jsonrpc": "2.0", "method": "subscribe", "params": ["block_added", {"since": 5, "till": 2}], "id": 1}`,
		"block unknown field":  `{"jsonrpc": "2.0", "method": "subscribe", "params": ["block_added", {"index": 1}], "id": 1}`,
		"event bad name":       `{"jsonrpc": "2.0", "method": "subscribe", "params": ["kitty_event", {"name": "KittyBorn"}], "id": 1}`,
		"event bad kitty":      `{"jsonrpc": "2.0", "method": "subscribe", "params": ["kitty_event", {"kitty": "00"}], "id": 1}`,
		"execution bad method": `{"jsonrpc": "2.0", "method": "subscribe", "params": ["call_executed", {"method": ""}], "id": 1}`,
	}
	for name, req := range testCases {
		t.Run(name, func(t *testing.T) {
			resp := callWSGetRaw(t, c, req, respMsgs)
			require.NotNil(t, resp.Error)
			require.Equal(t, int64(kittyrpc.InvalidParamsCode), resp.Error.Code)
		})
	}

	t.Run("unknown unsubscribe", func(t *testing.T) {
		resp := callWSGetRaw(t, c, `{"jsonrpc": "2.0", "method": "unsubscribe", "params": ["`+uuid.NewString()+`"], "id": 1}`, respMsgs)
		require.NotNil(t, resp.Error)
		require.Equal(t, int64(kittyrpc.InvalidParamsCode), resp.Error.Code)
	})
	t.Run("too many feeds", func(t *testing.T) {
		for i := 0; i < maxFeeds; i++ {
			callSubscribe(t, c, respMsgs, `["block_added"]`)
		}
		resp := callWSGetRaw(t, c, `{"jsonrpc": "2.0", "method": "subscribe", "params": ["block_added"], "id": 1}`, respMsgs)
		require.NotNil(t, resp.Error)
		require.Equal(t, int64(kittyrpc.InternalServerErrorCode), resp.Error.Code)
	})
}

func TestWSClientsLimit(t *testing.T) {
	chain := testchain.NewChain(t, nil)
	cfg := testchain.Config().ApplicationConfiguration.RPC
	cfg.MaxWebSocketClients = 1
	rpcSrv := New(chain, cfg, zaptest.NewLogger(t), make(chan error, 1))
	rpcSrv.Start()
	t.Cleanup(rpcSrv.Shutdown)

	url := "ws://" + rpcSrv.Addresses()[0] + "/ws"
	dialer := websocket.Dialer{HandshakeTimeout: time.Second}
	ws, r, err := dialer.Dial(url, nil)
	require.NoError(t, err)
	r.Body.Close()
	t.Cleanup(func() { ws.Close() })

	_, r, err = dialer.Dial(url, nil)
	require.Error(t, err)
	if r != nil {
		r.Body.Close()
	}
}
