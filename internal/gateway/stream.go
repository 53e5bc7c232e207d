package gateway

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/kweller/sms-games-bot/pkg/smsdto"
)

// StreamState is the connection state of the gateway event stream.
type StreamState string

const (
	StreamDisconnected StreamState = "disconnected"
	StreamConnecting   StreamState = "connecting"
	StreamConnected    StreamState = "connected"
	StreamReconnecting StreamState = "reconnecting"
	StreamFailed       StreamState = "failed"
)

// TurnHandler receives one inbound turn event.
type TurnHandler func(*smsdto.TurnEvent)

// StateHandler is notified on stream state transitions.
type StateHandler func(StreamState)

// Stream subscribes to the SMS gateway's WebSocket event feed, an alternative
// to the HTTP webhook for receiving inbound turns. It reconnects with backoff
// and keeps the connection alive with pings.
type Stream struct {
	wsURL string

	conn   *websocket.Conn
	state  StreamState
	stateM sync.RWMutex

	onTurn  TurnHandler
	onState StateHandler

	maxReconnectAttempts int
	pingInterval         time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	rootCtx    context.Context
	rootCancel context.CancelFunc

	headerProvider HeaderProvider
}

func NewStream(wsURL string, maxReconnectAttempts int) *Stream {
	return &Stream{
		wsURL:                wsURL,
		state:                StreamDisconnected,
		maxReconnectAttempts: maxReconnectAttempts,
		pingInterval:         30 * time.Second,
		stopCh:               make(chan struct{}),
	}
}

// OnTurn sets the handler invoked for every inbound turn event.
func (s *Stream) OnTurn(h TurnHandler) { s.onTurn = h }

// OnStateChange sets the handler invoked on state transitions.
func (s *Stream) OnStateChange(h StateHandler) { s.onState = h }

// SetHeaderProvider injects headers into the WS handshake.
func (s *Stream) SetHeaderProvider(h HeaderProvider) { s.headerProvider = h }

func (s *Stream) Connect(ctx context.Context) error {
	s.stateM.Lock()
	if s.state == StreamConnected || s.state == StreamConnecting {
		s.stateM.Unlock()
		return nil
	}
	s.stateM.Unlock()

	s.rootCtx, s.rootCancel = context.WithCancel(context.Background())
	s.setState(StreamConnecting)

	conn, err := s.dial(ctx)
	if err != nil {
		s.setState(StreamFailed)
		s.scheduleReconnect()
		return err
	}
	s.start(conn)
	return nil
}

func (s *Stream) dial(ctx context.Context) (*websocket.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(dialCtx, s.wsURL, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		HTTPHeader:      s.buildHeaders(),
	})
	return conn, err
}

func (s *Stream) start(conn *websocket.Conn) {
	s.conn = conn
	s.setState(StreamConnected)
	s.wg.Add(2)
	go s.listen()
	go s.pingLoop()
}

func (s *Stream) listen() {
	defer s.wg.Done()
	for {
		select {
		case <-s.stopCh:
			return
		default:
		}
		if s.conn == nil {
			return
		}
		var ev smsdto.TurnEvent
		if err := wsjson.Read(s.rootCtx, s.conn, &ev); err != nil {
			if s.isStopping() {
				return
			}
			s.setState(StreamDisconnected)
			_ = s.closeConn(websocket.StatusGoingAway, "reconnect")
			s.scheduleReconnect()
			return
		}
		if s.onTurn != nil {
			s.onTurn(&ev)
		}
	}
}

func (s *Stream) pingLoop() {
	defer s.wg.Done()
	t := time.NewTicker(s.pingInterval)
	defer t.Stop()
	failures := 0
	for {
		select {
		case <-s.stopCh:
			return
		case <-t.C:
			if s.conn == nil {
				continue
			}
			ctx, cancel := context.WithTimeout(s.rootCtx, 3*time.Second)
			err := s.conn.Ping(ctx)
			cancel()
			if err != nil {
				failures++
				if failures >= 2 {
					if s.isStopping() {
						return
					}
					s.setState(StreamDisconnected)
					_ = s.closeConn(websocket.StatusGoingAway, "ping failure")
					s.scheduleReconnect()
					return
				}
				continue
			}
			failures = 0
		}
	}
}

func (s *Stream) scheduleReconnect() {
	if s.maxReconnectAttempts <= 0 {
		return
	}
	s.setState(StreamReconnecting)

	go func() {
		for attempt := 1; attempt <= s.maxReconnectAttempts; attempt++ {
			select {
			case <-s.stopCh:
				return
			case <-time.After(backoffDuration(attempt)):
			}
			conn, err := s.dial(s.rootCtx)
			if err != nil {
				continue
			}
			s.start(conn)
			return
		}
		s.setState(StreamFailed)
	}()
}

func (s *Stream) setState(state StreamState) {
	s.stateM.Lock()
	s.state = state
	s.stateM.Unlock()
	if s.onState != nil {
		s.onState(state)
	}
}

// State returns the current connection state.
func (s *Stream) State() StreamState {
	s.stateM.RLock()
	defer s.stateM.RUnlock()
	return s.state
}

func (s *Stream) Close(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stopCh) })
	_ = s.closeConn(websocket.StatusNormalClosure, "close")

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		if s.rootCancel != nil {
			s.rootCancel()
		}
		return nil
	}
}

func (s *Stream) closeConn(code websocket.StatusCode, reason string) error {
	if s.conn == nil {
		return nil
	}
	defer func() { s.conn = nil }()
	return s.conn.Close(code, reason)
}

func (s *Stream) isStopping() bool {
	select {
	case <-s.stopCh:
		return true
	default:
		return false
	}
}

func (s *Stream) buildHeaders() http.Header {
	hdr := http.Header{}
	if s.headerProvider == nil {
		return hdr
	}
	for k, v := range s.headerProvider() {
		if strings.TrimSpace(k) == "" || strings.TrimSpace(v) == "" {
			continue
		}
		hdr.Set(k, v)
	}
	return hdr
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	base := 100 * time.Millisecond
	return time.Duration(1<<uint(attempt-1)) * base
}
