package rpcsrv

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nspcc-dev/oracle-bridge/pkg/core/state"
	"github.com/nspcc-dev/oracle-bridge/pkg/neorpc"
	"github.com/nspcc-dev/oracle-bridge/pkg/services/rpcsrv/params"
	"go.uber.org/zap"
)

const (
	// wsPongLimit is the disconnection timeout.
	wsPongLimit = 60 * time.Second
	// wsPingPeriod is the connection liveness check period.
	wsPingPeriod = wsPongLimit / 2
	// wsWriteLimit is the write deadline.
	wsWriteLimit = wsPingPeriod / 2
)

var rpcWsHandlers = map[string]func(*Server, params.Params, *subscriber) (any, *neorpc.Error){
	"subscribe":   (*Server).subscribe,
	"unsubscribe": (*Server).unsubscribe,
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	// The check races with subscriber registration below, exceeding the
	// limit by a few connections is acceptable.
	s.subsLock.RLock()
	clients := len(s.subscribers)
	s.subsLock.RUnlock()
	if clients >= s.config.MaxWebSocketClients {
		s.writeHTTPErrorResponse(params.NewIn(), w, neorpc.NewInternalServerError("websocket users limit reached"))
		return
	}
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Info("websocket connection upgrade failed", zap.Error(err))
		return
	}
	var (
		resChan = make(chan abstractResult)
		subChan = make(chan *websocket.PreparedMessage, notificationBufSize)
		sub     = &subscriber{writer: subChan}
	)
	s.subsLock.Lock()
	s.subscribers[sub] = true
	s.subsLock.Unlock()
	go s.handleWsWrites(ws, resChan, subChan)
	s.handleWsReads(ws, resChan, sub)
}

// writeWS sends one frame with the write deadline set.
func writeWS(ws *websocket.Conn, write func() error) error {
	if err := ws.SetWriteDeadline(time.Now().Add(wsWriteLimit)); err != nil {
		return err
	}
	return write()
}

func (s *Server) handleWsWrites(ws *websocket.Conn, resChan <-chan abstractResult, subChan <-chan *websocket.PreparedMessage) {
	ping := time.NewTicker(wsPingPeriod)
	defer func() {
		ping.Stop()
		ws.Close()
		// Unblock overflow senders.
		for len(subChan) > 0 {
			<-subChan
		}
	}()
	for {
		var err error
		select {
		case <-s.shutdown:
			return
		case event := <-subChan:
			err = writeWS(ws, func() error { return ws.WritePreparedMessage(event) })
		case res, ok := <-resChan:
			if !ok {
				return
			}
			err = writeWS(ws, func() error { return ws.WriteJSON(res) })
		case <-ping.C:
			err = writeWS(ws, func() error { return ws.WriteMessage(websocket.PingMessage, nil) })
		}
		if err != nil {
			return
		}
	}
}

func (s *Server) handleWsReads(ws *websocket.Conn, resChan chan<- abstractResult, sub *subscriber) {
	defer func() {
		s.subsLock.Lock()
		delete(s.subscribers, sub)
		s.subsLock.Unlock()
		s.feedLock.Lock()
		for _, f := range sub.feeds {
			if f.event != neorpc.InvalidEventID {
				s.releaseFeed(f.event)
			}
		}
		s.feedLock.Unlock()
		close(resChan)
		ws.Close()
	}()

	ws.SetReadLimit(int64(s.config.MaxRequestBodyBytes))
	extend := func(string) error { return ws.SetReadDeadline(time.Now().Add(wsPongLimit)) }
	if extend("") != nil {
		return
	}
	ws.SetPongHandler(extend)
	for {
		req := params.NewRequest()
		if err := ws.ReadJSON(req); err != nil {
			return
		}
		res := s.handleRequest(req, sub)
		res.RunForErrors(func(jsonErr *neorpc.Error) {
			s.logRequestError(req, jsonErr)
		})
		select {
		case <-s.shutdown:
			return
		case resChan <- res:
		}
	}
}

func (s *Server) subscribe(reqParams params.Params, sub *subscriber) (any, *neorpc.Error) {
	streamName, err := reqParams.Value(0).GetString()
	if err != nil {
		return nil, neorpc.ErrInvalidParams
	}
	event, err := neorpc.GetEventIDFromString(streamName)
	if err != nil || event == neorpc.MissedEventID {
		return nil, neorpc.ErrInvalidParams
	}
	filter, err := parseFilter(reqParams.Value(1))
	if err != nil {
		return nil, invalidParams(err.Error())
	}

	s.subsLock.Lock()
	id := sub.freeSlot()
	if id < 0 {
		s.subsLock.Unlock()
		return nil, neorpc.NewInternalServerError("maximum number of subscriptions is reached")
	}
	sub.feeds[id] = feed{event: event, filter: filter}
	s.subsLock.Unlock()

	s.feedLock.Lock()
	defer s.feedLock.Unlock()
	select {
	case <-s.shutdown:
		return nil, neorpc.NewInternalServerError("server is shutting down")
	default:
	}
	s.acquireFeed(event)
	return strconv.Itoa(id), nil
}

// parseFilter decodes an optional notification filter.
func parseFilter(p *params.Param) (*neorpc.NotificationFilter, error) {
	if p == nil {
		return nil, nil
	}
	jd := json.NewDecoder(bytes.NewReader(p.RawMessage))
	jd.DisallowUnknownFields()
	filter := new(neorpc.NotificationFilter)
	if err := jd.Decode(filter); err != nil {
		return nil, err
	}
	if filter.Name != nil && *filter.Name != state.LogEventName && *filter.Name != state.LogResultEventName {
		return nil, fmt.Errorf("unknown event name %q", *filter.Name)
	}
	return filter, nil
}

func (s *Server) unsubscribe(reqParams params.Params, sub *subscriber) (any, *neorpc.Error) {
	id, err := reqParams.Value(0).GetInt()
	if err != nil || id < 0 || id >= len(sub.feeds) {
		return nil, neorpc.ErrInvalidParams
	}
	s.subsLock.Lock()
	event := sub.feeds[id].event
	if event == neorpc.InvalidEventID {
		s.subsLock.Unlock()
		return nil, neorpc.ErrInvalidParams
	}
	sub.feeds[id] = feed{}
	s.subsLock.Unlock()

	s.feedLock.Lock()
	s.releaseFeed(event)
	s.feedLock.Unlock()
	return true, nil
}

// acquireFeed subscribes the server to bridge events with the first feed.
// feedLock must be held.
func (s *Server) acquireFeed(event neorpc.EventID) {
	if event != neorpc.NotificationEventID {
		return
	}
	if s.feedUsers == 0 {
		s.chain.SubscribeForNotifications(s.notificationCh)
	}
	s.feedUsers++
}

// releaseFeed unsubscribes the server from bridge events with the last feed.
// feedLock must be held.
func (s *Server) releaseFeed(event neorpc.EventID) {
	if event != neorpc.NotificationEventID {
		return
	}
	s.feedUsers--
	if s.feedUsers == 0 {
		s.unsubscribeFromBridge()
	}
}

// unsubscribeFromBridge drains notificationCh while unsubscribing, the
// bridge dispatcher may be blocked sending to it.
func (s *Server) unsubscribeFromBridge() {
	done := make(chan struct{})
	go func() {
		s.chain.UnsubscribeFromNotifications(s.notificationCh)
		close(done)
	}()
	for {
		select {
		case <-s.notificationCh:
		case <-done:
			return
		}
	}
}

func prepareNotification(event neorpc.EventID, payload ...any) (*websocket.PreparedMessage, error) {
	if payload == nil {
		payload = []any{}
	}
	b, err := json.Marshal(neorpc.Notification{
		JSONRPC: neorpc.JSONRPCVersion,
		Event:   event,
		Payload: payload,
	})
	if err != nil {
		return nil, err
	}
	return websocket.NewPreparedMessage(websocket.TextMessage, b)
}

// handleSubEvents fans bridge events out to websocket subscribers until
// shutdown.
func (s *Server) handleSubEvents() {
	defer close(s.subEventsDone)
	overflow, err := prepareNotification(neorpc.MissedEventID)
	if err != nil {
		s.log.Error("fatal: failed to prepare overflow message", zap.Error(err))
		return
	}
	for {
		select {
		case <-s.shutdown:
			// No subscription can be added concurrently since shutdown is
			// closed and checked under feedLock.
			s.feedLock.Lock()
			if s.feedUsers > 0 {
				s.unsubscribeFromBridge()
				s.feedUsers = 0
			}
			s.feedLock.Unlock()
			return
		case ev := <-s.notificationCh:
			s.broadcast(ev, overflow)
		}
	}
}

// broadcast sends ev to every subscriber with a matching feed, the message
// is marshaled once at most.
func (s *Server) broadcast(ev *state.ContainedNotificationEvent, overflow *websocket.PreparedMessage) {
	var msg *websocket.PreparedMessage

	s.subsLock.RLock()
	defer s.subsLock.RUnlock()
	for sub := range s.subscribers {
		if sub.overflown.Load() || !sub.wants(neorpc.NotificationEventID, ev) {
			continue
		}
		if msg == nil {
			var err error
			if msg, err = prepareNotification(neorpc.NotificationEventID, ev); err != nil {
				s.log.Error("failed to prepare notification message", zap.Error(err))
				return
			}
		}
		select {
		case sub.writer <- msg:
		default:
			sub.overflown.Store(true)
			// MissedEvent is delivered eventually.
			go func(sub *subscriber) {
				sub.writer <- overflow
				sub.overflown.Store(false)
			}(sub)
		}
	}
}
