package portal

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const defaultPollInterval = 5 * time.Second

// LiveFeed keeps a RequestStore current. It has exactly two states,
// connected and disconnected-polling, and moves between them only on the
// socket's state-change events: while the live channel is down the store
// is refreshed in the background every poll interval, and the moment the
// channel comes up the poller stops and push events take over. The merge
// path is idempotent by id, so a poll response racing a fresh connection
// is harmless.
type LiveFeed struct {
	store  *RequestStore
	socket *Socket
	log    zerolog.Logger
	poll   time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

// NewLiveFeed wires a store to a socket. pollInterval falls back to the
// production default when zero.
func NewLiveFeed(store *RequestStore, socket *Socket, pollInterval time.Duration, log zerolog.Logger) *LiveFeed {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	return &LiveFeed{store: store, socket: socket, log: log, poll: pollInterval}
}

// Start connects the socket and runs the state machine until Stop or ctx
// cancellation. A feed runs once: repeated calls are no-ops, including
// after Stop.
func (f *LiveFeed) Start(ctx context.Context) {
	if f.done != nil {
		return
	}
	ctx, f.cancel = context.WithCancel(ctx)
	f.done = make(chan struct{})

	removeListener := f.socket.AddListener(func(ev Event) {
		f.store.Apply(ev)
	})
	states, unsubscribe := f.socket.Subscribe()

	f.socket.Connect()

	go func() {
		defer close(f.done)
		defer removeListener()
		defer unsubscribe()

		var ticker *time.Ticker
		var tick <-chan time.Time
		stopPolling := func() {
			if ticker != nil {
				ticker.Stop()
				ticker = nil
				tick = nil
			}
		}
		startPolling := func() {
			if ticker == nil {
				ticker = time.NewTicker(f.poll)
				tick = ticker.C
			}
		}

		if !f.socket.IsConnected() {
			startPolling()
		}
		defer stopPolling()

		for {
			select {
			case <-ctx.Done():
				return
			case connected := <-states:
				if connected {
					f.log.Debug().Msg("live channel up, polling suspended")
					stopPolling()
				} else {
					f.log.Debug().Msg("live channel down, polling resumed")
					startPolling()
				}
			case <-tick:
				f.refresh(ctx)
			}
		}
	}()
}

// refresh runs one silent poll cycle: background list merge plus counters
func (f *LiveFeed) refresh(ctx context.Context) {
	if err := f.store.Fetch(ctx, FetchParams{Skip: 0, Background: true}); err != nil {
		f.log.Debug().Err(err).Msg("background refresh failed")
		return
	}
	if err := f.store.FetchStats(ctx); err != nil {
		f.log.Debug().Err(err).Msg("stats refresh failed")
	}
}

// Stop tears the feed down: the socket closes intentionally (no reconnect)
// and every timer and listener is released before Stop returns
func (f *LiveFeed) Stop() {
	if f.cancel == nil {
		return
	}
	f.cancel()
	<-f.done
	f.socket.Close()
}
