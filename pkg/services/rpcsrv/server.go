package rpcsrv

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/holiman/uint256"
	"github.com/nspcc-dev/kittychain/pkg/config"
	"github.com/nspcc-dev/kittychain/pkg/core/state"
	"github.com/nspcc-dev/kittychain/pkg/core/storage"
	"github.com/nspcc-dev/kittychain/pkg/encoding/address"
	"github.com/nspcc-dev/kittychain/pkg/kittyrpc"
	"github.com/nspcc-dev/kittychain/pkg/kittyrpc/result"
	"github.com/nspcc-dev/kittychain/pkg/kittyrpc/rpcevent"
	"github.com/nspcc-dev/kittychain/pkg/services/rpcsrv/params"
	"github.com/nspcc-dev/kittychain/pkg/util"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

type (
	// Ledger abstracts away the Blockchain as used by the RPC server.
	Ledger interface {
		BalanceOf(acc util.Uint160) (*uint256.Int, error)
		BlockHeight() uint32
		BreedKitty(sender util.Uint160, p1, p2 state.DNA) (*state.AppExecResult, error)
		BuyKitty(sender util.Uint160, id state.DNA, limit *uint256.Int) (*state.AppExecResult, error)
		CreateKitty(sender util.Uint160) (*state.AppExecResult, error)
		CurrentBlockHash() util.Uint256
		ForEachKitty(start *state.DNA, f func(*state.Kitty) bool) error
		GetBlock(index uint32) (*state.Block, error)
		GetConfig() config.ProtocolConfiguration
		GetExecLog(index uint32) (state.ExecLog, error)
		GetKitty(id state.DNA) (*state.Kitty, error)
		KittiesOf(acc util.Uint160) (state.OwnedKitties, error)
		KittyCount() (uint64, error)
		SetPrice(sender util.Uint160, id state.DNA, price *uint256.Int) (*state.AppExecResult, error)
		SubscribeForBlocks(ch chan<- *state.Block)
		SubscribeForExecutions(ch chan<- *state.AppExecResult)
		SubscribeForNotifications(ch chan<- *state.NotificationEvent)
		TotalIssuance() (*uint256.Int, error)
		TransferFunds(sender, to util.Uint160, amount *uint256.Int) (*state.AppExecResult, error)
		TransferKitty(sender, to util.Uint160, id state.DNA) (*state.AppExecResult, error)
		UnsubscribeFromBlocks(ch chan<- *state.Block)
		UnsubscribeFromExecutions(ch chan<- *state.AppExecResult)
		UnsubscribeFromNotifications(ch chan<- *state.NotificationEvent)
	}

	// Server represents the JSON-RPC 2.0 server.
	Server struct {
		http     []*http.Server
		chain    Ledger
		config   config.RPC
		upgrader websocket.Upgrader
		log      *zap.Logger
		shutdown chan struct{}
		started  *atomic.Bool
		errChan  chan error

		subsLock    sync.RWMutex
		subscribers map[*subscriber]bool

		subsCounterLock  sync.RWMutex
		blockSubs        int
		executionSubs    int
		notificationSubs int

		blockCh        chan *state.Block
		executionCh    chan *state.AppExecResult
		notificationCh chan *state.NotificationEvent
		subEventsDone  chan struct{}
	}
)

const (
	// Disconnection timeout.
	wsPongLimit = 60 * time.Second

	// Ping period for connection liveness check.
	wsPingPeriod = wsPongLimit / 2

	// Write deadline.
	wsWriteLimit = wsPingPeriod / 2

	// wsReadLimit is the maximum size of a single websocket request.
	wsReadLimit = 64 * 1024

	// Default maximum number of websocket clients per Server.
	defaultMaxWebSocketClients = 64

	defaultMaxRequestBodyBytes   = 5 * 1024 * 1024
	defaultMaxRequestHeaderBytes = http.DefaultMaxHeaderBytes
)

var rpcHandlers = map[string]func(*Server, params.Params) (any, *kittyrpc.Error){
	"breedkitty":        (*Server).breedKitty,
	"buykitty":          (*Server).buyKitty,
	"createkitty":       (*Server).createKitty,
	"getapplicationlog": (*Server).getApplicationLog,
	"getbalance":        (*Server).getBalance,
	"getbestblockhash":  (*Server).getBestBlockHash,
	"getblock":          (*Server).getBlock,
	"getblockcount":     (*Server).getBlockCount,
	"getkitties":        (*Server).getKitties,
	"getkittiesof":      (*Server).getKittiesOf,
	"getkitty":          (*Server).getKitty,
	"getkittycount":     (*Server).getKittyCount,
	"gettotalissuance":  (*Server).getTotalIssuance,
	"getversion":        (*Server).getVersion,
	"setprice":          (*Server).setPrice,
	"transferfunds":     (*Server).transferFunds,
	"transferkitty":     (*Server).transferKitty,
	"validateaddress":   (*Server).validateAddress,
}

var rpcWsHandlers = map[string]func(*Server, params.Params, *subscriber) (any, *kittyrpc.Error){
	"subscribe":   (*Server).subscribe,
	"unsubscribe": (*Server).unsubscribe,
}

// New creates a new Server struct. Listener errors are reported via errChan.
func New(chain Ledger, conf config.RPC, log *zap.Logger, errChan chan error) *Server {
	if conf.MaxWebSocketClients == 0 {
		conf.MaxWebSocketClients = defaultMaxWebSocketClients
		log.Info("MaxWebSocketClients is not set or wrong, setting default value", zap.Int("MaxWebSocketClients", defaultMaxWebSocketClients))
	}
	if conf.MaxRequestBodyBytes <= 0 {
		conf.MaxRequestBodyBytes = defaultMaxRequestBodyBytes
	}
	if conf.MaxRequestHeaderBytes <= 0 {
		conf.MaxRequestHeaderBytes = defaultMaxRequestHeaderBytes
	}
	if conf.MaxKittiesPageSize <= 0 {
		conf.MaxKittiesPageSize = config.DefaultMaxKittiesPageSize
	}
	var wsOriginChecker func(*http.Request) bool
	if conf.EnableCORSWorkaround {
		wsOriginChecker = func(_ *http.Request) bool { return true }
	}
	httpServers := make([]*http.Server, len(conf.Addresses))
	for i, addr := range conf.Addresses {
		httpServers[i] = &http.Server{
			Addr:           addr,
			MaxHeaderBytes: conf.MaxRequestHeaderBytes,
		}
	}
	return &Server{
		http:     httpServers,
		chain:    chain,
		config:   conf,
		upgrader: websocket.Upgrader{CheckOrigin: wsOriginChecker},
		log:      log,
		shutdown: make(chan struct{}),
		started:  atomic.NewBool(false),
		errChan:  errChan,

		subscribers: make(map[*subscriber]bool),
		// These are NOT buffered to preserve original order of events.
		blockCh:        make(chan *state.Block),
		executionCh:    make(chan *state.AppExecResult),
		notificationCh: make(chan *state.NotificationEvent),
		subEventsDone:  make(chan struct{}),
	}
}

// Name returns service name.
func (s *Server) Name() string {
	return "rpc"
}

// Addresses returns the list of addresses the server listens on. They're
// the actual ones after Start.
func (s *Server) Addresses() []string {
	res := make([]string, len(s.http))
	for i, srv := range s.http {
		res[i] = srv.Addr
	}
	return res
}

// Start creates a new JSON-RPC server listening on the configured addresses.
// It creates goroutines needed internally and it returns its errors via
// errChan passed to New(). The Server only starts once, subsequent calls to
// Start are no-op.
func (s *Server) Start() {
	if !s.config.Enabled {
		s.log.Info("RPC server is not enabled")
		return
	}
	if !s.started.CAS(false, true) {
		s.log.Info("RPC server already started")
		return
	}
	go s.handleSubEvents()
	for _, srv := range s.http {
		srv.Handler = http.HandlerFunc(s.handleHTTPRequest)
		s.log.Info("starting rpc-server", zap.String("endpoint", srv.Addr))

		ln, err := net.Listen("tcp", srv.Addr)
		if err != nil {
			s.errChan <- fmt.Errorf("failed to listen on %s: %w", srv.Addr, err)
			return
		}
		srv.Addr = ln.Addr().String() // set Addr to the actual address
		go func(srv *http.Server) {
			err := srv.Serve(ln)
			if !errors.Is(err, http.ErrServerClosed) {
				s.log.Error("failed to start RPC server", zap.Error(err))
				s.errChan <- err
			}
		}(srv)
	}
}

// Shutdown stops the RPC server if it's running. It can only be called once,
// subsequent calls to Shutdown on the same instance are no-op. The instance
// that was stopped can not be started again by calling Start (use a new
// instance if needed).
func (s *Server) Shutdown() {
	if !s.started.CAS(true, false) {
		return
	}
	// Signal to websocket writer routines and handleSubEvents.
	close(s.shutdown)

	for _, srv := range s.http {
		s.log.Info("shutting down RPC server", zap.String("endpoint", srv.Addr))
		err := srv.Shutdown(context.Background())
		if err != nil {
			s.log.Warn("error during RPC (http) server shutdown", zap.Error(err))
		}
	}

	// Wait for handleSubEvents to finish.
	<-s.subEventsDone
}

func (s *Server) handleHTTPRequest(w http.ResponseWriter, httpRequest *http.Request) {
	req := params.NewRequest()

	if httpRequest.URL.Path == "/ws" && httpRequest.Method == http.MethodGet {
		// The number of clients can be exceeded slightly because of the
		// race between this check and subscribers modification below.
		s.subsLock.RLock()
		numOfSubs := len(s.subscribers)
		s.subsLock.RUnlock()
		if numOfSubs >= s.config.MaxWebSocketClients {
			s.writeHTTPErrorResponse(
				params.NewIn(),
				w,
				kittyrpc.NewInternalServerError("websocket users limit reached"),
			)
			return
		}
		ws, err := s.upgrader.Upgrade(w, httpRequest, nil)
		if err != nil {
			s.log.Info("websocket connection upgrade failed", zap.Error(err))
			return
		}
		resChan := make(chan abstractResult) // response.abstract or response.abstractBatch
		subChan := make(chan *websocket.PreparedMessage, notificationBufSize)
		subscr := &subscriber{writer: subChan, ws: ws}
		s.subsLock.Lock()
		s.subscribers[subscr] = true
		s.subsLock.Unlock()
		go s.handleWsWrites(ws, resChan, subChan)
		s.handleWsReads(ws, resChan, subscr)
		return
	}

	if httpRequest.Method == http.MethodOptions && s.config.EnableCORSWorkaround { // Preflight CORS.
		setCORSOriginHeaders(w.Header())
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST") // GET for websockets.
		w.Header().Set("Access-Control-Max-Age", "21600")           // 6 hours.
		return
	}

	if httpRequest.Method != http.MethodPost {
		s.writeHTTPErrorResponse(
			params.NewIn(),
			w,
			kittyrpc.NewInvalidParamsError(fmt.Sprintf("invalid method '%s', please retry with 'POST'", httpRequest.Method)),
		)
		return
	}

	httpRequest.Body = http.MaxBytesReader(w, httpRequest.Body, int64(s.config.MaxRequestBodyBytes))
	err := req.DecodeData(httpRequest.Body)
	if err != nil {
		s.writeHTTPErrorResponse(params.NewIn(), w, kittyrpc.NewParseError(err.Error()))
		return
	}

	resp := s.handleRequest(req, nil)
	s.writeHTTPServerResponse(req, w, resp)
}

func (s *Server) handleRequest(req *params.Request, sub *subscriber) abstractResult {
	if req.In != nil {
		req.In.Method = escapeForLog(req.In.Method) // No valid method name will be changed by it.
		return s.handleIn(req.In, sub)
	}
	resp := make(abstractBatch, len(req.Batch))
	for i, in := range req.Batch {
		in.Method = escapeForLog(in.Method) // No valid method name will be changed by it.
		resp[i] = s.handleIn(&in, sub)
	}
	return resp
}

func (s *Server) handleIn(req *params.In, sub *subscriber) abstract {
	var res any
	var resErr *kittyrpc.Error
	if req.JSONRPC != kittyrpc.JSONRPCVersion {
		return s.packResponse(req, nil, kittyrpc.NewInvalidParamsError(fmt.Sprintf("problem parsing JSON: invalid version, expected 2.0 got '%s'", req.JSONRPC)))
	}

	reqParams := params.Params(req.RawParams)

	s.log.Debug("processing rpc request",
		zap.String("method", req.Method),
		zap.Stringer("params", reqParams))

	start := time.Now()
	defer func() { addReqTimeMetric(req.Method, time.Since(start)) }()

	resErr = kittyrpc.NewMethodNotFoundError(fmt.Sprintf("method %q not supported", req.Method))
	handler, ok := rpcHandlers[req.Method]
	if ok {
		res, resErr = handler(s, reqParams)
	} else if sub != nil {
		handler, ok := rpcWsHandlers[req.Method]
		if ok {
			res, resErr = handler(s, reqParams, sub)
		}
	}
	return s.packResponse(req, res, resErr)
}

func (s *Server) handleWsWrites(ws *websocket.Conn, resChan <-chan abstractResult, subChan <-chan *websocket.PreparedMessage) {
	pingTicker := time.NewTicker(wsPingPeriod)
eventloop:
	for {
		select {
		case <-s.shutdown:
			break eventloop
		case event, ok := <-subChan:
			if !ok {
				break eventloop
			}
			if err := ws.SetWriteDeadline(time.Now().Add(wsWriteLimit)); err != nil {
				break eventloop
			}
			if err := ws.WritePreparedMessage(event); err != nil {
				break eventloop
			}
		case res, ok := <-resChan:
			if !ok {
				break eventloop
			}
			if err := ws.SetWriteDeadline(time.Now().Add(wsWriteLimit)); err != nil {
				break eventloop
			}
			if err := ws.WriteJSON(res); err != nil {
				break eventloop
			}
		case <-pingTicker.C:
			if err := ws.SetWriteDeadline(time.Now().Add(wsWriteLimit)); err != nil {
				break eventloop
			}
			if err := ws.WriteMessage(websocket.PingMessage, []byte{}); err != nil {
				break eventloop
			}
		}
	}
	ws.Close()
	pingTicker.Stop()
	// Drain notification channel as there might be some goroutines blocked
	// on it.
drainloop:
	for {
		select {
		case _, ok := <-subChan:
			if !ok {
				break drainloop
			}
		default:
			break drainloop
		}
	}
}

func (s *Server) handleWsReads(ws *websocket.Conn, resChan chan<- abstractResult, subscr *subscriber) {
	ws.SetReadLimit(wsReadLimit)
	err := ws.SetReadDeadline(time.Now().Add(wsPongLimit))
	ws.SetPongHandler(func(string) error { return ws.SetReadDeadline(time.Now().Add(wsPongLimit)) })
requestloop:
	for err == nil {
		req := params.NewRequest()
		err := ws.ReadJSON(req)
		if err != nil {
			break
		}
		res := s.handleRequest(req, subscr)
		res.RunForErrors(func(jsonErr *kittyrpc.Error) {
			s.logRequestError(req, jsonErr)
		})
		select {
		case <-s.shutdown:
			break requestloop
		case resChan <- res:
		}
	}

	s.subsLock.Lock()
	delete(s.subscribers, subscr)
	s.subsLock.Unlock()
	s.subsCounterLock.Lock()
	for _, e := range subscr.feeds {
		if e.event != kittyrpc.InvalidEventID {
			s.unsubscribeFromChannel(e.event)
		}
	}
	s.subsCounterLock.Unlock()
	close(resChan)
	ws.Close()
}

func (s *Server) getBestBlockHash(_ params.Params) (any, *kittyrpc.Error) {
	return s.chain.CurrentBlockHash(), nil
}

func (s *Server) getBlockCount(_ params.Params) (any, *kittyrpc.Error) {
	return s.chain.BlockHeight() + 1, nil
}

func (s *Server) getBlock(reqParams params.Params) (any, *kittyrpc.Error) {
	index, respErr := s.blockHeightFromParam(reqParams.Value(0))
	if respErr != nil {
		return nil, respErr
	}
	b, err := s.chain.GetBlock(index)
	if err != nil {
		return nil, s.blockError(err)
	}
	return b, nil
}

func (s *Server) getApplicationLog(reqParams params.Params) (any, *kittyrpc.Error) {
	index, respErr := s.blockHeightFromParam(reqParams.Value(0))
	if respErr != nil {
		return nil, respErr
	}
	l, err := s.chain.GetExecLog(index)
	if err != nil {
		return nil, s.blockError(err)
	}
	return l, nil
}

func (s *Server) blockError(err error) *kittyrpc.Error {
	if errors.Is(err, storage.ErrKeyNotFound) {
		return kittyrpc.ErrUnknownBlock
	}
	return kittyrpc.NewInternalServerError(err.Error())
}

func (s *Server) getVersion(_ params.Params) (any, *kittyrpc.Error) {
	cfg := s.chain.GetConfig()
	return &result.Version{
		UserAgent: config.UserAgent(),
		Protocol: result.Protocol{
			AddressVersion:       address.Prefix,
			Network:              cfg.Magic,
			MillisecondsPerBlock: cfg.TimePerBlock.Milliseconds(),
			MaxKittiesOwned:      cfg.MaxKittiesOwned,
			ExistentialDeposit:   cfg.ExistentialDeposit,
			DNAPolicy:            cfg.DNAPolicy,
		},
		RPC: result.RPC{
			MaxKittiesPageSize: s.config.MaxKittiesPageSize,
		},
	}, nil
}

func (s *Server) validateAddress(reqParams params.Params) (any, *kittyrpc.Error) {
	param, err := reqParams.Value(0).GetString()
	if err != nil {
		return nil, kittyrpc.ErrInvalidParams
	}
	_, err = address.StringToUint160(param)
	return err == nil, nil
}

func (s *Server) getKitty(reqParams params.Params) (any, *kittyrpc.Error) {
	id, err := reqParams.Value(0).GetDNA()
	if err != nil {
		return nil, kittyrpc.WrapErrorWithData(kittyrpc.ErrInvalidParams, err.Error())
	}
	k, err := s.chain.GetKitty(id)
	if err != nil {
		return nil, ledgerError(err)
	}
	return k, nil
}

// getKitties lists kitties in DNA order. The optional first parameter is the
// DNA to start from (inclusive), the optional second one limits the page
// size.
func (s *Server) getKitties(reqParams params.Params) (any, *kittyrpc.Error) {
	var (
		start *state.DNA
		limit = s.config.MaxKittiesPageSize
	)
	if p := reqParams.Value(0); p != nil && !p.IsNull() {
		id, err := p.GetDNA()
		if err != nil {
			return nil, kittyrpc.WrapErrorWithData(kittyrpc.ErrInvalidParams, err.Error())
		}
		start = &id
	}
	if p := reqParams.Value(1); p != nil {
		l, err := p.GetInt()
		if err != nil || l <= 0 {
			return nil, kittyrpc.WrapErrorWithData(kittyrpc.ErrInvalidParams, "bad limit")
		}
		if l < limit {
			limit = l
		}
	}
	page := &result.KittiesPage{Kitties: make([]*state.Kitty, 0, limit)}
	err := s.chain.ForEachKitty(start, func(k *state.Kitty) bool {
		if len(page.Kitties) == limit {
			next := k.DNA
			page.Next = &next
			return false
		}
		page.Kitties = append(page.Kitties, k)
		return true
	})
	if err != nil {
		return nil, kittyrpc.NewInternalServerError(err.Error())
	}
	return page, nil
}

func (s *Server) getKittiesOf(reqParams params.Params) (any, *kittyrpc.Error) {
	acc, respErr := accountFromParam(reqParams.Value(0))
	if respErr != nil {
		return nil, respErr
	}
	owned, err := s.chain.KittiesOf(acc)
	if err != nil {
		return nil, kittyrpc.NewInternalServerError(err.Error())
	}
	res := &result.KittiesOf{
		Address: address.Uint160ToString(acc),
		Kitties: []state.DNA(owned),
	}
	if res.Kitties == nil {
		res.Kitties = []state.DNA{}
	}
	return res, nil
}

func (s *Server) getKittyCount(_ params.Params) (any, *kittyrpc.Error) {
	n, err := s.chain.KittyCount()
	if err != nil {
		return nil, kittyrpc.NewInternalServerError(err.Error())
	}
	return n, nil
}

func (s *Server) getBalance(reqParams params.Params) (any, *kittyrpc.Error) {
	acc, respErr := accountFromParam(reqParams.Value(0))
	if respErr != nil {
		return nil, respErr
	}
	bal, err := s.chain.BalanceOf(acc)
	if err != nil {
		return nil, kittyrpc.NewInternalServerError(err.Error())
	}
	return &result.Balance{
		Address: address.Uint160ToString(acc),
		Amount:  bal.ToBig().String(),
	}, nil
}

func (s *Server) getTotalIssuance(_ params.Params) (any, *kittyrpc.Error) {
	total, err := s.chain.TotalIssuance()
	if err != nil {
		return nil, kittyrpc.NewInternalServerError(err.Error())
	}
	return total.ToBig().String(), nil
}

func (s *Server) createKitty(reqParams params.Params) (any, *kittyrpc.Error) {
	sender, respErr := accountFromParam(reqParams.Value(0))
	if respErr != nil {
		return nil, respErr
	}
	return callResult(s.chain.CreateKitty(sender))
}

func (s *Server) breedKitty(reqParams params.Params) (any, *kittyrpc.Error) {
	if len(reqParams) < 3 {
		return nil, kittyrpc.ErrInvalidParams
	}
	sender, respErr := accountFromParam(reqParams.Value(0))
	if respErr != nil {
		return nil, respErr
	}
	p1, err := reqParams.Value(1).GetDNA()
	if err != nil {
		return nil, kittyrpc.WrapErrorWithData(kittyrpc.ErrInvalidParams, err.Error())
	}
	p2, err := reqParams.Value(2).GetDNA()
	if err != nil {
		return nil, kittyrpc.WrapErrorWithData(kittyrpc.ErrInvalidParams, err.Error())
	}
	return callResult(s.chain.BreedKitty(sender, p1, p2))
}

func (s *Server) transferKitty(reqParams params.Params) (any, *kittyrpc.Error) {
	if len(reqParams) < 3 {
		return nil, kittyrpc.ErrInvalidParams
	}
	sender, respErr := accountFromParam(reqParams.Value(0))
	if respErr != nil {
		return nil, respErr
	}
	to, respErr := accountFromParam(reqParams.Value(1))
	if respErr != nil {
		return nil, respErr
	}
	id, err := reqParams.Value(2).GetDNA()
	if err != nil {
		return nil, kittyrpc.WrapErrorWithData(kittyrpc.ErrInvalidParams, err.Error())
	}
	return callResult(s.chain.TransferKitty(sender, to, id))
}

func (s *Server) buyKitty(reqParams params.Params) (any, *kittyrpc.Error) {
	if len(reqParams) < 2 {
		return nil, kittyrpc.ErrInvalidParams
	}
	sender, respErr := accountFromParam(reqParams.Value(0))
	if respErr != nil {
		return nil, respErr
	}
	id, err := reqParams.Value(1).GetDNA()
	if err != nil {
		return nil, kittyrpc.WrapErrorWithData(kittyrpc.ErrInvalidParams, err.Error())
	}
	var limit *uint256.Int
	if p := reqParams.Value(2); p != nil {
		limit, err = p.GetAmount()
		if err != nil {
			return nil, kittyrpc.WrapErrorWithData(kittyrpc.ErrInvalidParams, err.Error())
		}
	}
	return callResult(s.chain.BuyKitty(sender, id, limit))
}

// setPrice takes the kitty off sale when the price is null or missing.
func (s *Server) setPrice(reqParams params.Params) (any, *kittyrpc.Error) {
	if len(reqParams) < 2 {
		return nil, kittyrpc.ErrInvalidParams
	}
	sender, respErr := accountFromParam(reqParams.Value(0))
	if respErr != nil {
		return nil, respErr
	}
	id, err := reqParams.Value(1).GetDNA()
	if err != nil {
		return nil, kittyrpc.WrapErrorWithData(kittyrpc.ErrInvalidParams, err.Error())
	}
	var price *uint256.Int
	if p := reqParams.Value(2); p != nil {
		price, err = p.GetAmount()
		if err != nil {
			return nil, kittyrpc.WrapErrorWithData(kittyrpc.ErrInvalidParams, err.Error())
		}
	}
	return callResult(s.chain.SetPrice(sender, id, price))
}

func (s *Server) transferFunds(reqParams params.Params) (any, *kittyrpc.Error) {
	if len(reqParams) < 3 {
		return nil, kittyrpc.ErrInvalidParams
	}
	sender, respErr := accountFromParam(reqParams.Value(0))
	if respErr != nil {
		return nil, respErr
	}
	to, respErr := accountFromParam(reqParams.Value(1))
	if respErr != nil {
		return nil, respErr
	}
	amount, err := reqParams.Value(2).GetAmount()
	if err != nil || amount == nil {
		return nil, kittyrpc.WrapErrorWithData(kittyrpc.ErrInvalidParams, "bad amount")
	}
	return callResult(s.chain.TransferFunds(sender, to, amount))
}

// callResult converts the outcome of a call into a response. Calls that made
// it into the execution log are returned as results even if FAULTed, the
// ledger error is attached to them.
func callResult(aer *state.AppExecResult, err error) (any, *kittyrpc.Error) {
	if aer == nil {
		return nil, ledgerError(err)
	}
	res := &result.Call{AppExecResult: *aer}
	if err != nil {
		res.Error = ledgerError(err)
	}
	return res, nil
}

func accountFromParam(param *params.Param) (util.Uint160, *kittyrpc.Error) {
	acc, err := param.GetUint160FromAddressOrHex()
	if err != nil {
		return util.Uint160{}, kittyrpc.WrapErrorWithData(kittyrpc.ErrInvalidParams, fmt.Sprintf("bad account: %s", err))
	}
	return acc, nil
}

// subscribe handles subscription requests from websocket clients.
func (s *Server) subscribe(reqParams params.Params, sub *subscriber) (any, *kittyrpc.Error) {
	streamName, err := reqParams.Value(0).GetString()
	if err != nil {
		return nil, kittyrpc.ErrInvalidParams
	}
	event, err := kittyrpc.GetEventIDFromString(streamName)
	if err != nil || event == kittyrpc.MissedEventID {
		return nil, kittyrpc.ErrInvalidParams
	}
	// Optional filter.
	var filter any
	if p := reqParams.Value(1); p != nil {
		param := *p
		jd := json.NewDecoder(bytes.NewReader(param.RawMessage))
		jd.DisallowUnknownFields()
		switch event {
		case kittyrpc.BlockEventID:
			flt := new(kittyrpc.BlockFilter)
			err = jd.Decode(flt)
			if err == nil {
				err = flt.IsValid()
			}
			filter = *flt
		case kittyrpc.NotificationEventID:
			flt := new(kittyrpc.NotificationFilter)
			err = jd.Decode(flt)
			if err == nil {
				err = flt.IsValid()
			}
			filter = *flt
		case kittyrpc.ExecutionEventID:
			flt := new(kittyrpc.ExecutionFilter)
			err = jd.Decode(flt)
			if err == nil {
				err = flt.IsValid()
			}
			filter = *flt
		}
		if err != nil {
			return nil, kittyrpc.WrapErrorWithData(kittyrpc.ErrInvalidParams, err.Error())
		}
	}

	s.subsLock.Lock()
	var slot int
	for ; slot < len(sub.feeds); slot++ {
		if sub.feeds[slot].event == kittyrpc.InvalidEventID {
			break
		}
	}
	if slot == len(sub.feeds) {
		s.subsLock.Unlock()
		return nil, kittyrpc.NewInternalServerError("maximum number of subscriptions is reached")
	}
	id := uuid.NewString()
	sub.feeds[slot] = feed{id: id, event: event, filter: filter}
	s.subsLock.Unlock()

	s.subsCounterLock.Lock()
	select {
	case <-s.shutdown:
		s.subsCounterLock.Unlock()
		return nil, kittyrpc.NewInternalServerError("server is shutting down")
	default:
	}
	s.subscribeToChannel(event)
	s.subsCounterLock.Unlock()
	return id, nil
}

// subscribeToChannel subscribes RPC server to appropriate chain events if
// it's not yet subscribed for them. It's supposed to be called with s.subsCounterLock
// taken by the caller.
func (s *Server) subscribeToChannel(event kittyrpc.EventID) {
	switch event {
	case kittyrpc.BlockEventID:
		if s.blockSubs == 0 {
			s.chain.SubscribeForBlocks(s.blockCh)
		}
		s.blockSubs++
	case kittyrpc.NotificationEventID:
		if s.notificationSubs == 0 {
			s.chain.SubscribeForNotifications(s.notificationCh)
		}
		s.notificationSubs++
	case kittyrpc.ExecutionEventID:
		if s.executionSubs == 0 {
			s.chain.SubscribeForExecutions(s.executionCh)
		}
		s.executionSubs++
	}
}

// unsubscribe handles unsubscription requests from websocket clients.
func (s *Server) unsubscribe(reqParams params.Params, sub *subscriber) (any, *kittyrpc.Error) {
	id, err := reqParams.Value(0).GetStringStrict()
	if err != nil || id == "" {
		return nil, kittyrpc.ErrInvalidParams
	}
	s.subsLock.Lock()
	var slot int
	for ; slot < len(sub.feeds); slot++ {
		if sub.feeds[slot].event != kittyrpc.InvalidEventID && sub.feeds[slot].id == id {
			break
		}
	}
	if slot == len(sub.feeds) {
		s.subsLock.Unlock()
		return nil, kittyrpc.ErrInvalidParams
	}
	event := sub.feeds[slot].event
	sub.feeds[slot] = feed{}
	s.subsLock.Unlock()

	s.subsCounterLock.Lock()
	s.unsubscribeFromChannel(event)
	s.subsCounterLock.Unlock()
	return true, nil
}

// unsubscribeFromChannel unsubscribes RPC server from appropriate chain events
// if there are no other subscribers for it. It must be called with s.subsConutersLock
// holding by the caller.
func (s *Server) unsubscribeFromChannel(event kittyrpc.EventID) {
	switch event {
	case kittyrpc.BlockEventID:
		s.blockSubs--
		if s.blockSubs == 0 {
			s.chain.UnsubscribeFromBlocks(s.blockCh)
		}
	case kittyrpc.NotificationEventID:
		s.notificationSubs--
		if s.notificationSubs == 0 {
			s.chain.UnsubscribeFromNotifications(s.notificationCh)
		}
	case kittyrpc.ExecutionEventID:
		s.executionSubs--
		if s.executionSubs == 0 {
			s.chain.UnsubscribeFromExecutions(s.executionCh)
		}
	}
}

func (s *Server) handleSubEvents() {
	defer close(s.subEventsDone)
	b, err := json.Marshal(kittyrpc.Notification{
		JSONRPC: kittyrpc.JSONRPCVersion,
		Event:   kittyrpc.MissedEventID,
		Payload: make([]any, 0),
	})
	if err != nil {
		s.log.Error("fatal: failed to marshal overflow event", zap.Error(err))
		return
	}
	overflowMsg, err := websocket.NewPreparedMessage(websocket.TextMessage, b)
	if err != nil {
		s.log.Error("fatal: failed to prepare overflow message", zap.Error(err))
		return
	}
chloop:
	for {
		var resp = kittyrpc.Notification{
			JSONRPC: kittyrpc.JSONRPCVersion,
			Payload: make([]any, 1),
		}
		var msg *websocket.PreparedMessage
		select {
		case <-s.shutdown:
			break chloop
		case b := <-s.blockCh:
			resp.Event = kittyrpc.BlockEventID
			resp.Payload[0] = b
		case execution := <-s.executionCh:
			resp.Event = kittyrpc.ExecutionEventID
			resp.Payload[0] = execution
		case notification := <-s.notificationCh:
			resp.Event = kittyrpc.NotificationEventID
			resp.Payload[0] = notification
		}
		s.subsLock.RLock()
	subloop:
		for sub := range s.subscribers {
			if sub.overflown.Load() {
				continue
			}
			for i := range sub.feeds {
				if rpcevent.Matches(sub.feeds[i], &resp) {
					if msg == nil {
						b, err = json.Marshal(resp)
						if err != nil {
							s.log.Error("failed to marshal notification",
								zap.Error(err),
								zap.String("type", resp.Event.String()))
							break subloop
						}
						msg, err = websocket.NewPreparedMessage(websocket.TextMessage, b)
						if err != nil {
							s.log.Error("failed to prepare notification message",
								zap.Error(err),
								zap.String("type", resp.Event.String()))
							break subloop
						}
					}
					select {
					case sub.writer <- msg:
					default:
						sub.overflown.Store(true)
						// MissedEvent is to be delivered eventually.
						go func(sub *subscriber) {
							sub.writer <- overflowMsg
							sub.overflown.Store(false)
						}(sub)
					}
					// The message is sent only once per subscriber.
					break
				}
			}
		}
		s.subsLock.RUnlock()
	}
	// The chain may be blocked sending to us, so keep draining while
	// unsubscribing. No subscription routine can run concurrently with
	// subsCounterLock held, and the ones running after unlock see closed
	// s.shutdown.
	unsubscribed := make(chan struct{})
	go func() {
		s.subsCounterLock.Lock()
		s.chain.UnsubscribeFromBlocks(s.blockCh)
		s.chain.UnsubscribeFromNotifications(s.notificationCh)
		s.chain.UnsubscribeFromExecutions(s.executionCh)
		s.subsCounterLock.Unlock()
		close(unsubscribed)
	}()
	for {
		select {
		case <-s.blockCh:
		case <-s.executionCh:
		case <-s.notificationCh:
		case <-unsubscribed:
			return
		}
	}
}

func (s *Server) blockHeightFromParam(param *params.Param) (uint32, *kittyrpc.Error) {
	num, err := param.GetInt()
	if err != nil {
		return 0, kittyrpc.ErrInvalidParams
	}
	if num < 0 || num > int(s.chain.BlockHeight()) {
		return 0, kittyrpc.WrapErrorWithData(kittyrpc.ErrUnknownBlock, fmt.Sprintf("block %d is not yet sealed", num))
	}
	return uint32(num), nil
}

func (s *Server) packResponse(r *params.In, result any, respErr *kittyrpc.Error) abstract {
	resp := abstract{
		Header: kittyrpc.Header{
			JSONRPC: r.JSONRPC,
			ID:      r.RawID,
		},
	}
	if respErr != nil {
		resp.Error = respErr
	} else {
		resp.Result = result
	}
	return resp
}

// logRequestError is a request error logger.
func (s *Server) logRequestError(r *params.Request, jsonErr *kittyrpc.Error) {
	logFields := []zap.Field{
		zap.Int64("code", jsonErr.Code),
	}
	if len(jsonErr.Data) != 0 {
		logFields = append(logFields, zap.String("cause", jsonErr.Data))
	}

	if r.In != nil {
		logFields = append(logFields, zap.String("method", r.In.Method))
		params := params.Params(r.In.RawParams)
		logFields = append(logFields, zap.Any("params", params))
	}

	logText := "Error encountered with rpc request"
	switch jsonErr.Code {
	case kittyrpc.InternalServerErrorCode:
		s.log.Error(logText, logFields...)
	default:
		s.log.Info(logText, logFields...)
	}
}

// writeHTTPErrorResponse writes an error response to the ResponseWriter.
func (s *Server) writeHTTPErrorResponse(r *params.In, w http.ResponseWriter, jsonErr *kittyrpc.Error) {
	resp := s.packResponse(r, nil, jsonErr)
	s.writeHTTPServerResponse(&params.Request{In: r}, w, resp)
}

func setCORSOriginHeaders(h http.Header) {
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Headers", "Content-Type, Access-Control-Allow-Headers, Authorization, X-Requested-With")
}

func (s *Server) writeHTTPServerResponse(r *params.Request, w http.ResponseWriter, resp abstractResult) {
	// Errors can happen in many places and we can only catch ALL of them here.
	resp.RunForErrors(func(jsonErr *kittyrpc.Error) {
		s.logRequestError(r, jsonErr)
	})
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if s.config.EnableCORSWorkaround {
		setCORSOriginHeaders(w.Header())
	}
	if r.In != nil {
		resp := resp.(abstract)
		if resp.Error != nil {
			w.WriteHeader(getHTTPCodeForError(resp.Error))
		}
	}

	encoder := json.NewEncoder(w)
	err := encoder.Encode(resp)

	if err != nil {
		switch {
		case r.In != nil:
			s.log.Error("Error encountered while encoding response",
				zap.String("err", err.Error()),
				zap.String("method", r.In.Method))
		case r.Batch != nil:
			s.log.Error("Error encountered while encoding batch response",
				zap.String("err", err.Error()))
		}
	}
}

func escapeForLog(in string) string {
	return strings.Map(func(c rune) rune {
		if !strconv.IsGraphic(c) {
			return -1
		}
		return c
	}, in)
}
