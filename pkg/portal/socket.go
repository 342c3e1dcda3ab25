package portal

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	defaultReconnectDelay    = 3 * time.Second
	defaultHeartbeatInterval = 30 * time.Second
)

// SocketConfig configures a Socket. URL and Tokens are required; the delay
// fields fall back to production defaults when zero.
type SocketConfig struct {
	URL               string // ws endpoint, e.g. ws://localhost:8080/ws
	Tokens            TokenSource
	Logger            zerolog.Logger
	ReconnectDelay    time.Duration
	HeartbeatInterval time.Duration
}

// Socket owns at most one live-update connection to the server. Inbound
// frames are validated into Events and fanned out to every registered
// listener. An abnormal closure schedules a single reconnect attempt; a
// deliberate Close suppresses it. Connection errors are logged, never
// surfaced: consumers degrade to polling off the connection state.
type Socket struct {
	cfg    SocketConfig
	dialer *websocket.Dialer
	log    zerolog.Logger

	mu            sync.Mutex
	conn          *websocket.Conn
	connected     bool
	dialing       bool
	intentional   bool
	closed        bool
	retryTimer    *time.Timer
	listeners     map[int]func(Event)
	nextListener  int
	stateSubs     map[int]chan bool
	nextStateSub  int
	heartbeatDone chan struct{}
}

// NewSocket builds the connection manager and starts its heartbeat
func NewSocket(cfg SocketConfig) *Socket {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = defaultReconnectDelay
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = defaultHeartbeatInterval
	}
	s := &Socket{
		cfg:           cfg,
		dialer:        websocket.DefaultDialer,
		log:           cfg.Logger,
		listeners:     make(map[int]func(Event)),
		stateSubs:     make(map[int]chan bool),
		heartbeatDone: make(chan struct{}),
	}
	go s.heartbeat()
	return s
}

// heartbeat catches silent failures the close handler missed
func (s *Socket) heartbeat() {
	ticker := time.NewTicker(s.cfg.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.heartbeatDone:
			return
		case <-ticker.C:
			s.mu.Lock()
			stale := !s.connected && !s.closed
			s.mu.Unlock()
			if stale {
				s.log.Debug().Msg("heartbeat detected closed connection, reconnecting")
				s.Connect()
			}
		}
	}
}

// Connect opens the live-update channel. Idempotent: a live connection is
// left alone, a concurrent dial in flight wins, a stale handle is
// replaced. Silently does nothing without a session token.
func (s *Socket) Connect() {
	s.mu.Lock()
	if s.closed || s.connected || s.dialing {
		s.mu.Unlock()
		return
	}
	token := s.cfg.Tokens.Token()
	if token == "" {
		s.mu.Unlock()
		return
	}
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
	s.intentional = false
	s.dialing = true
	s.mu.Unlock()

	conn, resp, err := s.dialer.Dial(s.cfg.URL+"?token="+token, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		s.log.Debug().Err(err).Msg("websocket dial failed")
		s.mu.Lock()
		s.dialing = false
		if !s.closed && !s.intentional {
			s.scheduleReconnectLocked()
		}
		s.mu.Unlock()
		return
	}

	s.mu.Lock()
	s.dialing = false
	if s.closed || s.connected {
		// Close ran, or another connection landed, while we dialed
		s.mu.Unlock()
		_ = conn.Close()
		return
	}
	s.conn = conn
	s.connected = true
	s.notifyStateLocked(true)
	s.mu.Unlock()

	s.log.Debug().Msg("websocket connected")
	go s.readLoop(conn)
}

// scheduleReconnectLocked arms one retry; callers hold s.mu
func (s *Socket) scheduleReconnectLocked() {
	if s.retryTimer != nil {
		s.retryTimer.Stop()
	}
	s.retryTimer = time.AfterFunc(s.cfg.ReconnectDelay, s.Connect)
}

func (s *Socket) readLoop(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			break
		}
		ev, err := DecodeEvent(raw)
		if err != nil {
			// One bad frame must not break the loop or the listeners
			s.log.Warn().Err(err).Msg("dropping malformed push message")
			continue
		}
		s.dispatch(ev)
	}

	s.mu.Lock()
	if s.conn != conn {
		// A newer connection already replaced this one
		s.mu.Unlock()
		return
	}
	s.conn = nil
	s.connected = false
	s.notifyStateLocked(false)
	reconnect := !s.intentional && !s.closed
	if reconnect {
		s.scheduleReconnectLocked()
	}
	s.mu.Unlock()

	if reconnect {
		s.log.Debug().Msg("websocket closed, reconnect scheduled")
	}
}

func (s *Socket) dispatch(ev Event) {
	s.mu.Lock()
	handlers := make([]func(Event), 0, len(s.listeners))
	for _, fn := range s.listeners {
		handlers = append(handlers, fn)
	}
	s.mu.Unlock()

	for _, fn := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					s.log.Error().Interface("panic", r).Msg("panic in message listener")
				}
			}()
			fn(ev)
		}()
	}
}

// AddListener registers a callback for every inbound event and returns its
// de-registration function
func (s *Socket) AddListener(fn func(Event)) func() {
	s.mu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// IsConnected reports the current channel state
func (s *Socket) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Subscribe returns a channel of connection-state transitions plus its
// unsubscribe function. The channel is buffered; a slow consumer misses
// intermediate transitions rather than blocking the socket.
func (s *Socket) Subscribe() (<-chan bool, func()) {
	ch := make(chan bool, 8)
	s.mu.Lock()
	id := s.nextStateSub
	s.nextStateSub++
	s.stateSubs[id] = ch
	s.mu.Unlock()

	return ch, func() {
		s.mu.Lock()
		delete(s.stateSubs, id)
		s.mu.Unlock()
	}
}

func (s *Socket) notifyStateLocked(connected bool) {
	for _, ch := range s.stateSubs {
		select {
		case ch <- connected:
		default:
		}
	}
}

// Close tears the socket down for good. The closure is marked intentional
// before the handle closes, so no reconnect is scheduled.
func (s *Socket) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.intentional = true
	if s.retryTimer != nil {
		s.retryTimer.Stop()
		s.retryTimer = nil
	}
	conn := s.conn
	s.conn = nil
	if s.connected {
		s.connected = false
		s.notifyStateLocked(false)
	}
	s.mu.Unlock()

	close(s.heartbeatDone)
	if conn != nil {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = conn.Close()
	}
}
