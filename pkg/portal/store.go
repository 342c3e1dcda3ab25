package portal

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// FetchParams shapes one window fetch. Skip selects the mode: 0 replaces
// (or merges, when Background is set), anything else appends with
// deduplication.
type FetchParams struct {
	Skip       int
	Limit      int
	Status     string
	Search     string
	StartDate  string
	EndDate    string
	OrderBy    string
	Background bool // merge silently instead of replacing; no loading flag
}

// RequestStore holds the fetched window of request records plus the scalar
// counters from the stats endpoint. The counters deliberately track the
// full server-side corpus, not the partial window, so they are never
// derived from len(Requests()).
//
// All mutation is serialized through an internal mutex; push events are
// applied through the pure Reconcile transition.
type RequestStore struct {
	client *Client
	loc    *time.Location
	log    zerolog.Logger

	mu         sync.Mutex
	requests   []Request
	remaining  int64
	total      int64
	pending    int64
	completed  int64
	loading    bool
	refreshing bool
	lastErr    string
}

// NewRequestStore builds a store bound to the given API client. Timestamps
// are rebased into loc (time.Local when nil) once, on entry.
func NewRequestStore(client *Client, loc *time.Location, log zerolog.Logger) *RequestStore {
	if loc == nil {
		loc = time.Local
	}
	return &RequestStore{client: client, loc: loc, log: log}
}

// Fetch loads one window and merges it according to the mode in params.
// A failed fetch records the error and keeps already-loaded records.
func (s *RequestStore) Fetch(ctx context.Context, params FetchParams) error {
	background := params.Background && params.Skip == 0

	s.mu.Lock()
	if background {
		s.refreshing = true
	} else {
		s.loading = true
	}
	s.lastErr = ""
	s.mu.Unlock()

	resp, err := s.client.ListRequests(ctx, ListParams{
		Skip:      params.Skip,
		Limit:     params.Limit,
		Status:    params.Status,
		Search:    params.Search,
		StartDate: params.StartDate,
		EndDate:   params.EndDate,
		OrderBy:   params.OrderBy,
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	// Only the flag this call raised; an overlapping fetch in the other
	// mode keeps its own
	if background {
		s.refreshing = false
	} else {
		s.loading = false
	}

	if err != nil {
		s.lastErr = fetchErrMessage(err, "Failed to fetch requests")
		return err
	}

	fetched := make([]Request, len(resp.Results))
	for i, rec := range resp.Results {
		fetched[i] = rec.localized(s.loc)
	}

	switch {
	case background:
		s.mergeBackgroundLocked(fetched)
	case params.Skip == 0:
		s.requests = fetched
	default:
		s.appendDedupedLocked(fetched)
	}

	s.remaining = resp.Remaining
	s.total = resp.Length
	return nil
}

// appendDedupedLocked widens the window, dropping records whose id is
// already held
func (s *RequestStore) appendDedupedLocked(fetched []Request) {
	seen := make(map[int]bool, len(s.requests))
	for i := range s.requests {
		seen[s.requests[i].ID] = true
	}
	for _, rec := range fetched {
		if !seen[rec.ID] {
			s.requests = append(s.requests, rec)
			seen[rec.ID] = true
		}
	}
}

// mergeBackgroundLocked refreshes silently: known records are updated in
// their current position, unknown ones are prepended in server order
func (s *RequestStore) mergeBackgroundLocked(fetched []Request) {
	var fresh []Request
	for _, rec := range fetched {
		if idx := findByID(s.requests, rec.ID); idx >= 0 {
			s.requests[idx] = rec
		} else {
			fresh = append(fresh, rec)
		}
	}
	if len(fresh) > 0 {
		s.requests = append(fresh, s.requests...)
	}
}

// FetchStats refreshes the scalar counters from the stats endpoint,
// independently of the list window
func (s *RequestStore) FetchStats(ctx context.Context) error {
	stats, err := s.client.RequestStats(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.lastErr = fetchErrMessage(err, "Failed to fetch stats")
		return err
	}
	s.total = stats.Total
	s.pending = stats.Pending
	s.completed = stats.Completed
	return nil
}

// Create submits a new registration through the API and bumps the
// counters. The record itself arrives through the push channel (or the
// next refresh), so the list is left alone.
func (s *RequestStore) Create(ctx context.Context, input CreateRequestInput) (*Request, error) {
	rec, err := s.client.CreateRequest(ctx, input)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.lastErr = fetchErrMessage(err, "Failed to create request")
		return nil, err
	}
	s.total++
	s.pending++
	localized := rec.localized(s.loc)
	return &localized, nil
}

// Update verifies a registration through the API and merges the result the
// same way a pushed updated_request would be merged
func (s *RequestStore) Update(ctx context.Context, id int, input UpdateRequestInput) (*Request, error) {
	rec, err := s.client.UpdateRequest(ctx, id, input)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.lastErr = fetchErrMessage(err, "Failed to update request")
		return nil, err
	}

	snap, applyErr := Reconcile(s.snapshotLocked(), mustEvent(EventUpdatedRequest, rec), s.loc)
	if applyErr == nil {
		s.restoreLocked(snap)
	}
	localized := rec.localized(s.loc)
	return &localized, nil
}

// Apply feeds one pushed event through the reconciler. Safe to call with
// duplicate deliveries; malformed payloads are logged and dropped.
func (s *RequestStore) Apply(ev Event) {
	if ev.Type == EventCounterUpdate {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := Reconcile(s.snapshotLocked(), ev, s.loc)
	if err != nil {
		s.log.Warn().Err(err).Str("type", string(ev.Type)).Msg("dropping malformed push event")
		return
	}
	s.restoreLocked(snap)
}

func (s *RequestStore) snapshotLocked() Snapshot {
	return Snapshot{
		Requests:  s.requests,
		Total:     s.total,
		Pending:   s.pending,
		Completed: s.completed,
	}
}

func (s *RequestStore) restoreLocked(snap Snapshot) {
	s.requests = snap.Requests
	s.total = snap.Total
	s.pending = snap.Pending
	s.completed = snap.Completed
}

// Requests returns a copy of the current window in merge order
func (s *RequestStore) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// Counters returns total, pending and completed as reported by the server
func (s *RequestStore) Counters() (total, pending, completed int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total, s.pending, s.completed
}

// Remaining reports how many matching records the server still holds beyond
// the fetched window; it drives the "load more" control
func (s *RequestStore) Remaining() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remaining
}

// IsLoading reports a foreground fetch in flight
func (s *RequestStore) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// IsRefreshing reports a background refresh in flight
func (s *RequestStore) IsRefreshing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshing
}

// Err returns the last fetch failure as a display message, empty when the
// last operation succeeded
func (s *RequestStore) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func fetchErrMessage(err error, fallback string) string {
	if apiErr, ok := err.(*APIError); ok && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return fallback
}

// mustEvent wraps an already-typed payload into an envelope for the
// reconciler; encoding a just-decoded record cannot fail
func mustEvent(t EventType, payload interface{}) Event {
	raw, err := EncodeEvent(t, payload)
	if err != nil {
		return Event{Type: t}
	}
	ev, err := DecodeEvent(raw)
	if err != nil {
		return Event{Type: t}
	}
	return ev
}
