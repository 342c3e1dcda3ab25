package portal

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

func newTestFeed(t *testing.T, ws *wsServer) (*LiveFeed, *RequestStore, *fakeAPI) {
	t.Helper()
	api := &fakeAPI{}
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)

	store := NewRequestStore(NewClient(srv.URL, StaticToken("test-token"), zerolog.Nop()), time.UTC, zerolog.Nop())
	sock := newTestSocket(ws)
	return NewLiveFeed(store, sock, 20*time.Millisecond, zerolog.Nop()), store, api
}

func TestLiveFeedPollsWhileDisconnected(t *testing.T) {
	api := &fakeAPI{}
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)
	store := NewRequestStore(NewClient(srv.URL, StaticToken("test-token"), zerolog.Nop()), time.UTC, zerolog.Nop())

	// nothing listens on the socket endpoint, so the feed stays degraded
	sock := NewSocket(SocketConfig{
		URL:               "ws://127.0.0.1:1/ws",
		Tokens:            StaticToken(GuestToken),
		Logger:            zerolog.Nop(),
		ReconnectDelay:    time.Hour,
		HeartbeatInterval: time.Hour,
	})
	feed := NewLiveFeed(store, sock, 20*time.Millisecond, zerolog.Nop())

	feed.Start(context.Background())
	defer feed.Stop()

	waitFor(t, func() bool { return api.listHits() >= 2 }, "polling fetches")
}

func TestLiveFeedStopsPollingWhenConnected(t *testing.T) {
	ws := newWSServer(t)
	feed, _, api := newTestFeed(t, ws)

	feed.Start(context.Background())
	defer feed.Stop()

	ws.accept(t)
	waitFor(t, func() bool { return feed.socket.IsConnected() }, "socket connect")

	// let any tick already in flight land, then measure
	time.Sleep(60 * time.Millisecond)
	before := api.listHits()
	time.Sleep(120 * time.Millisecond)
	if after := api.listHits(); after != before {
		t.Fatalf("polling continued while connected: %d -> %d fetches", before, after)
	}
}

func TestLiveFeedResumesPollingOnDisconnect(t *testing.T) {
	ws := newWSServer(t)
	api := &fakeAPI{}
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)
	store := NewRequestStore(NewClient(srv.URL, StaticToken("test-token"), zerolog.Nop()), time.UTC, zerolog.Nop())

	// reconnects held off so the degraded state is observable
	sock := NewSocket(SocketConfig{
		URL:               ws.url(),
		Tokens:            StaticToken(GuestToken),
		Logger:            zerolog.Nop(),
		ReconnectDelay:    time.Hour,
		HeartbeatInterval: time.Hour,
	})
	feed := NewLiveFeed(store, sock, 20*time.Millisecond, zerolog.Nop())

	feed.Start(context.Background())
	defer feed.Stop()

	server := ws.accept(t)
	waitFor(t, func() bool { return feed.socket.IsConnected() }, "socket connect")
	time.Sleep(60 * time.Millisecond)

	before := api.listHits()
	_ = server.Close()

	waitFor(t, func() bool { return api.listHits() > before }, "polling after disconnect")
}

func TestLiveFeedStartIsSingleUse(t *testing.T) {
	ws := newWSServer(t)
	feed, _, _ := newTestFeed(t, ws)

	feed.Start(context.Background())
	feed.Start(context.Background())
	defer feed.Stop()

	ws.accept(t)
	waitFor(t, func() bool { return feed.socket.IsConnected() }, "socket connect")

	feed.socket.mu.Lock()
	listeners := len(feed.socket.listeners)
	subs := len(feed.socket.stateSubs)
	feed.socket.mu.Unlock()
	if listeners != 1 || subs != 1 {
		t.Fatalf("listeners/subscriptions = %d/%d after repeated Start, want 1/1", listeners, subs)
	}
}

func TestLiveFeedAppliesPushEvents(t *testing.T) {
	ws := newWSServer(t)
	feed, store, _ := newTestFeed(t, ws)

	feed.Start(context.Background())
	defer feed.Stop()

	server := ws.accept(t)
	waitFor(t, func() bool { return feed.socket.IsConnected() }, "socket connect")

	raw, err := EncodeEvent(EventNewRequest, makeRequest(42, StatusPending))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := server.WriteMessage(websocket.TextMessage, raw); err != nil {
		t.Fatalf("server write: %v", err)
	}

	waitFor(t, func() bool {
		list := store.Requests()
		return len(list) == 1 && list[0].ID == 42
	}, "pushed record in store")
}
