package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MohammedAlanizy/PatientPortal/internal/logger"
	"github.com/MohammedAlanizy/PatientPortal/pkg/portal"

	"github.com/joho/godotenv"
)

const pollInterval = 5 * time.Second

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// announce renders the "now serving" line the waiting room sees. The
// audio/voice rendition lives in the browser kiosk; here it is a line of
// terminal output.
func announce(counter portal.CounterUpdate) {
	fmt.Printf("\n  NOW SERVING: %d  (ticket #%d)\n\n", counter.LastCounter, counter.RequestID)
}

func main() {
	_ = godotenv.Load("configs/.env")
	log := logger.New(env("APP_ENV", "dev"))

	apiURL := env("API_URL", "http://localhost:8080/api/v1")
	client := portal.NewClient(apiURL, portal.StaticToken(""), log)

	// The kiosk is public: it joins the live channel with the guest
	// sentinel and only ever sees counter updates.
	socket := portal.NewSocket(portal.SocketConfig{
		URL:    client.WebSocketURL(),
		Tokens: portal.StaticToken(portal.GuestToken),
		Logger: log,
	})

	updates := make(chan portal.CounterUpdate, 8)
	removeListener := socket.AddListener(func(ev portal.Event) {
		if ev.Type != portal.EventCounterUpdate {
			return
		}
		counter, err := ev.Counter()
		if err != nil {
			log.Warn().Err(err).Msg("bad counter payload")
			return
		}
		select {
		case updates <- counter:
		default:
		}
	})
	defer removeListener()

	states, unsubscribe := socket.Subscribe()
	defer unsubscribe()
	socket.Connect()

	ctx, cancel := context.WithCancel(context.Background())
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		cancel()
	}()

	var last portal.CounterUpdate
	show := func(counter portal.CounterUpdate) {
		if counter == last {
			return
		}
		last = counter
		announce(counter)
	}

	// Seed the display before any push or poll arrives
	if counter, err := client.LastCounter(ctx); err == nil {
		show(*counter)
	}

	poll := func() {
		counter, err := client.LastCounter(ctx)
		if err != nil {
			log.Debug().Err(err).Msg("counter poll failed")
			return
		}
		show(*counter)
	}

	// Two states: connected (push only) and disconnected (poll every 5s
	// with a 1s countdown display). Transitions come from the socket.
	connected := socket.IsConnected()
	countdown := int(pollInterval / time.Second)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	defer socket.Close()

	for {
		select {
		case <-ctx.Done():
			fmt.Println("kiosk shutting down")
			return
		case counter := <-updates:
			show(counter)
		case state := <-states:
			connected = state
			if connected {
				log.Info().Msg("live updates connected")
			} else {
				log.Info().Msg("live updates lost, falling back to polling")
				countdown = int(pollInterval / time.Second)
			}
		case <-ticker.C:
			if connected {
				continue
			}
			countdown--
			if countdown <= 0 {
				poll()
				countdown = int(pollInterval / time.Second)
			}
			fmt.Printf("\r  refreshing in %ds ", countdown)
		}
	}
}
