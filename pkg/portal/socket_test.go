package portal

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// wsServer is a minimal push endpoint: each accepted connection is handed
// to the test through conns so it can inject frames or kill the link
type wsServer struct {
	srv      *httptest.Server
	upgrader websocket.Upgrader
	dials    int64
	conns    chan *websocket.Conn
}

func newWSServer(t *testing.T) *wsServer {
	t.Helper()
	ws := &wsServer{conns: make(chan *websocket.Conn, 4)}
	ws.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&ws.dials, 1)
		conn, err := ws.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ws.conns <- conn
		// drain client frames until the link drops
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(ws.srv.Close)
	return ws
}

func (ws *wsServer) url() string {
	return "ws" + strings.TrimPrefix(ws.srv.URL, "http")
}

func (ws *wsServer) dialCount() int64 {
	return atomic.LoadInt64(&ws.dials)
}

func (ws *wsServer) accept(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case conn := <-ws.conns:
		return conn
	case <-time.After(2 * time.Second):
		t.Fatalf("no websocket connection arrived")
		return nil
	}
}

func newTestSocket(ws *wsServer) *Socket {
	return NewSocket(SocketConfig{
		URL:               ws.url(),
		Tokens:            StaticToken(GuestToken),
		Logger:            zerolog.Nop(),
		ReconnectDelay:    25 * time.Millisecond,
		HeartbeatInterval: time.Hour,
	})
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", msg)
}

func TestSocketDeliversEventsToListeners(t *testing.T) {
	ws := newWSServer(t)
	sock := newTestSocket(ws)
	defer sock.Close()

	var got atomic.Value
	sock.AddListener(func(ev Event) { got.Store(ev) })

	sock.Connect()
	server := ws.accept(t)

	raw, err := EncodeEvent(EventNewRequest, makeRequest(7, StatusPending))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := server.WriteMessage(websocket.TextMessage, raw); err != nil {
		t.Fatalf("server write: %v", err)
	}

	waitFor(t, func() bool { return got.Load() != nil }, "event delivery")
	ev := got.Load().(Event)
	if ev.Type != EventNewRequest {
		t.Fatalf("event type = %q", ev.Type)
	}
	rec, err := ev.Request()
	if err != nil || rec.ID != 7 {
		t.Fatalf("payload = %+v, err %v", rec, err)
	}
}

func TestSocketSurvivesMalformedFrame(t *testing.T) {
	ws := newWSServer(t)
	sock := newTestSocket(ws)
	defer sock.Close()

	var count int64
	sock.AddListener(func(Event) { atomic.AddInt64(&count, 1) })

	sock.Connect()
	server := ws.accept(t)

	for _, frame := range []string{"not json", `{"type":"new_request"}`, `{"data":{}}`} {
		if err := server.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
			t.Fatalf("server write: %v", err)
		}
	}
	raw, _ := EncodeEvent(EventNewRequest, makeRequest(1, StatusPending))
	if err := server.WriteMessage(websocket.TextMessage, raw); err != nil {
		t.Fatalf("server write: %v", err)
	}

	waitFor(t, func() bool { return atomic.LoadInt64(&count) == 1 }, "valid event after garbage")
	if !sock.IsConnected() {
		t.Fatalf("connection dropped by malformed frames")
	}
}

func TestSocketPanickingListenerDoesNotStarveOthers(t *testing.T) {
	ws := newWSServer(t)
	sock := newTestSocket(ws)
	defer sock.Close()

	var survived int64
	sock.AddListener(func(Event) { panic("listener bug") })
	sock.AddListener(func(Event) { atomic.AddInt64(&survived, 1) })

	sock.Connect()
	server := ws.accept(t)
	raw, _ := EncodeEvent(EventNewRequest, makeRequest(1, StatusPending))
	if err := server.WriteMessage(websocket.TextMessage, raw); err != nil {
		t.Fatalf("server write: %v", err)
	}

	waitFor(t, func() bool { return atomic.LoadInt64(&survived) == 1 }, "second listener")
}

func TestSocketRemovedListenerStopsReceiving(t *testing.T) {
	ws := newWSServer(t)
	sock := newTestSocket(ws)
	defer sock.Close()

	var first, second int64
	remove := sock.AddListener(func(Event) { atomic.AddInt64(&first, 1) })
	sock.AddListener(func(Event) { atomic.AddInt64(&second, 1) })

	sock.Connect()
	server := ws.accept(t)
	raw, _ := EncodeEvent(EventNewRequest, makeRequest(1, StatusPending))

	if err := server.WriteMessage(websocket.TextMessage, raw); err != nil {
		t.Fatalf("server write: %v", err)
	}
	waitFor(t, func() bool { return atomic.LoadInt64(&second) == 1 }, "first delivery")

	remove()
	if err := server.WriteMessage(websocket.TextMessage, raw); err != nil {
		t.Fatalf("server write: %v", err)
	}
	waitFor(t, func() bool { return atomic.LoadInt64(&second) == 2 }, "second delivery")

	if atomic.LoadInt64(&first) != 1 {
		t.Fatalf("removed listener still receiving, count = %d", atomic.LoadInt64(&first))
	}
}

func TestSocketReconnectsAfterAbnormalClose(t *testing.T) {
	ws := newWSServer(t)
	sock := newTestSocket(ws)
	defer sock.Close()

	sock.Connect()
	server := ws.accept(t)
	waitFor(t, sock.IsConnected, "initial connect")

	// hard server-side drop, no close handshake
	_ = server.Close()

	waitFor(t, func() bool { return ws.dialCount() >= 2 }, "reconnect dial")
	ws.accept(t)
	waitFor(t, sock.IsConnected, "reconnected state")
}

func TestSocketConcurrentConnectOpensOneConnection(t *testing.T) {
	ws := newWSServer(t)
	sock := newTestSocket(ws)
	defer sock.Close()

	var delivered int64
	sock.AddListener(func(Event) { atomic.AddInt64(&delivered, 1) })

	// retry timer, heartbeat and an explicit caller can all race into
	// Connect at once
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sock.Connect()
		}()
	}
	wg.Wait()

	server := ws.accept(t)
	waitFor(t, sock.IsConnected, "connect")
	if n := ws.dialCount(); n != 1 {
		t.Fatalf("dial count after concurrent Connect calls = %d, want 1", n)
	}
	select {
	case <-ws.conns:
		t.Fatalf("second connection opened")
	default:
	}

	raw, _ := EncodeEvent(EventNewRequest, makeRequest(1, StatusPending))
	if err := server.WriteMessage(websocket.TextMessage, raw); err != nil {
		t.Fatalf("server write: %v", err)
	}
	waitFor(t, func() bool { return atomic.LoadInt64(&delivered) >= 1 }, "event delivery")
	time.Sleep(50 * time.Millisecond)
	if n := atomic.LoadInt64(&delivered); n != 1 {
		t.Fatalf("frame delivered %d times, want once", n)
	}
}

func TestSocketCloseSuppressesReconnect(t *testing.T) {
	ws := newWSServer(t)
	sock := newTestSocket(ws)

	sock.Connect()
	ws.accept(t)
	waitFor(t, sock.IsConnected, "initial connect")

	sock.Close()

	// several reconnect windows pass without a new dial
	time.Sleep(150 * time.Millisecond)
	if n := ws.dialCount(); n != 1 {
		t.Fatalf("dial count after Close = %d, want 1", n)
	}
	if sock.IsConnected() {
		t.Fatalf("socket still reports connected after Close")
	}
}

func TestSocketWithoutTokenNeverDials(t *testing.T) {
	ws := newWSServer(t)
	sock := NewSocket(SocketConfig{
		URL:    ws.url(),
		Tokens: StaticToken(""),
		Logger: zerolog.Nop(),
	})
	defer sock.Close()

	sock.Connect()
	time.Sleep(50 * time.Millisecond)
	if n := ws.dialCount(); n != 0 {
		t.Fatalf("dial count = %d, want 0", n)
	}
}

func TestSocketSubscribeSeesTransitions(t *testing.T) {
	ws := newWSServer(t)
	sock := newTestSocket(ws)

	states, unsub := sock.Subscribe()
	defer unsub()

	sock.Connect()
	server := ws.accept(t)

	select {
	case st := <-states:
		if !st {
			t.Fatalf("first transition = %v, want connected", st)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no connected transition")
	}

	_ = server.Close()
	select {
	case st := <-states:
		if st {
			t.Fatalf("second transition = %v, want disconnected", st)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no disconnected transition")
	}

	sock.Close()
}
