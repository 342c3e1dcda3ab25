package portal

import (
	"testing"
	"time"
)

func makeRequest(id int, status string) Request {
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	return Request{
		ID:        id,
		FullName:  "Patient " + string(rune('A'+id%26)),
		Status:    status,
		CreatedAt: &created,
	}
}

func makeEvent(t *testing.T, typ EventType, rec Request) Event {
	t.Helper()
	raw, err := EncodeEvent(typ, rec)
	if err != nil {
		t.Fatalf("encode event: %v", err)
	}
	ev, err := DecodeEvent(raw)
	if err != nil {
		t.Fatalf("decode event: %v", err)
	}
	return ev
}

func ids(list []Request) []int {
	out := make([]int, len(list))
	for i := range list {
		out[i] = list[i].ID
	}
	return out
}

func assertIDs(t *testing.T, got []Request, want ...int) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("list length = %d, want %d (ids %v)", len(got), len(want), ids(got))
	}
	for i := range want {
		if got[i].ID != want[i] {
			t.Fatalf("list ids = %v, want %v", ids(got), want)
		}
	}
}

func TestReconcileNewRequestPrepends(t *testing.T) {
	snap := Snapshot{
		Requests: []Request{makeRequest(5, StatusPending), makeRequest(3, StatusPending), makeRequest(1, StatusCompleted)},
		Total:    10, Pending: 4, Completed: 6,
	}

	next, err := Reconcile(snap, makeEvent(t, EventNewRequest, makeRequest(9, StatusPending)), time.UTC)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	assertIDs(t, next.Requests, 9, 5, 3, 1)
	if next.Total != 11 || next.Pending != 5 || next.Completed != 6 {
		t.Fatalf("counters = %d/%d/%d, want 11/5/6", next.Total, next.Pending, next.Completed)
	}
}

func TestReconcileDuplicateNewRequestIsNoop(t *testing.T) {
	snap := Snapshot{
		Requests: []Request{makeRequest(9, StatusPending), makeRequest(5, StatusPending)},
		Total:    2, Pending: 2,
	}

	next, err := Reconcile(snap, makeEvent(t, EventNewRequest, makeRequest(9, StatusPending)), time.UTC)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	assertIDs(t, next.Requests, 9, 5)
	if next.Total != 2 || next.Pending != 2 || next.Completed != 0 {
		t.Fatalf("counters changed on duplicate delivery: %+v", next)
	}
}

func TestReconcileUpdateInPlaceMovesCounters(t *testing.T) {
	snap := Snapshot{
		Requests: []Request{makeRequest(9, StatusPending), makeRequest(5, StatusPending), makeRequest(3, StatusPending)},
		Total:    3, Pending: 3,
	}

	updated := makeRequest(3, StatusCompleted)
	next, err := Reconcile(snap, makeEvent(t, EventUpdatedRequest, updated), time.UTC)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	// Position preserved, fields replaced
	assertIDs(t, next.Requests, 9, 5, 3)
	if next.Requests[2].Status != StatusCompleted {
		t.Fatalf("record 3 status = %q, want completed", next.Requests[2].Status)
	}
	if next.Pending != 2 || next.Completed != 1 {
		t.Fatalf("counters = pending %d completed %d, want 2/1", next.Pending, next.Completed)
	}
}

func TestReconcileUpdateSameStatusLeavesCounters(t *testing.T) {
	snap := Snapshot{
		Requests: []Request{makeRequest(3, StatusCompleted)},
		Total:    1, Completed: 1,
	}

	next, err := Reconcile(snap, makeEvent(t, EventUpdatedRequest, makeRequest(3, StatusCompleted)), time.UTC)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if next.Pending != 0 || next.Completed != 1 || next.Total != 1 {
		t.Fatalf("no-transition update moved counters: %+v", next)
	}
}

func TestReconcileUpdateOutOfWindowIsNoop(t *testing.T) {
	snap := Snapshot{
		Requests: []Request{makeRequest(5, StatusPending)},
		Total:    40, Pending: 22, Completed: 18,
	}

	next, err := Reconcile(snap, makeEvent(t, EventUpdatedRequest, makeRequest(999, StatusCompleted)), time.UTC)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	assertIDs(t, next.Requests, 5)
	if next.Total != 40 || next.Pending != 22 || next.Completed != 18 {
		t.Fatalf("out-of-window update changed counters: %+v", next)
	}
}

func TestReconcileScenarioSequence(t *testing.T) {
	// [5,3,1] -> push new 9 -> update 3 -> duplicate new 9
	snap := Snapshot{
		Requests: []Request{makeRequest(5, StatusPending), makeRequest(3, StatusPending), makeRequest(1, StatusCompleted)},
		Total:    3, Pending: 2, Completed: 1,
	}

	snap, err := Reconcile(snap, makeEvent(t, EventNewRequest, makeRequest(9, StatusPending)), time.UTC)
	if err != nil {
		t.Fatalf("push new: %v", err)
	}
	assertIDs(t, snap.Requests, 9, 5, 3, 1)
	if snap.Total != 4 || snap.Pending != 3 {
		t.Fatalf("after new: %+v", snap)
	}

	snap, err = Reconcile(snap, makeEvent(t, EventUpdatedRequest, makeRequest(3, StatusCompleted)), time.UTC)
	if err != nil {
		t.Fatalf("push update: %v", err)
	}
	assertIDs(t, snap.Requests, 9, 5, 3, 1)
	if snap.Pending != 2 || snap.Completed != 2 {
		t.Fatalf("after update: pending %d completed %d, want 2/2", snap.Pending, snap.Completed)
	}

	snap, err = Reconcile(snap, makeEvent(t, EventNewRequest, makeRequest(9, StatusPending)), time.UTC)
	if err != nil {
		t.Fatalf("duplicate new: %v", err)
	}
	assertIDs(t, snap.Requests, 9, 5, 3, 1)
	if snap.Total != 4 || snap.Pending != 2 || snap.Completed != 2 {
		t.Fatalf("duplicate delivery changed state: %+v", snap)
	}
}

func TestReconcileIgnoresCounterAndDeleteEvents(t *testing.T) {
	snap := Snapshot{Requests: []Request{makeRequest(5, StatusPending)}, Total: 1, Pending: 1}

	raw, err := EncodeEvent(EventCounterUpdate, CounterUpdate{RequestID: 5, LastCounter: 12})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	ev, err := DecodeEvent(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	next, err := Reconcile(snap, ev, time.UTC)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	assertIDs(t, next.Requests, 5)

	next, err = Reconcile(next, makeEvent(t, EventDeletedRequest, makeRequest(5, StatusPending)), time.UTC)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	assertIDs(t, next.Requests, 5)
}

func TestReconcileLocalizesIncomingTimestamps(t *testing.T) {
	loc := time.FixedZone("test", 3*3600)
	snap := Snapshot{}

	next, err := Reconcile(snap, makeEvent(t, EventNewRequest, makeRequest(7, StatusPending)), loc)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	got := next.Requests[0].CreatedAt
	if got == nil || got.Location() != loc {
		t.Fatalf("created_at not rebased into store location: %v", got)
	}
	// Rebasing must not shift the instant
	want := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("created_at instant changed: got %v want %v", got, want)
	}
}

func TestDecodeEventRejectsUnknownType(t *testing.T) {
	if _, err := DecodeEvent([]byte(`{"type":"surprise","data":{}}`)); err == nil {
		t.Fatalf("expected error for unknown event type")
	}
	if _, err := DecodeEvent([]byte(`{"type":"new_request"}`)); err == nil {
		t.Fatalf("expected error for missing data")
	}
	if _, err := DecodeEvent([]byte(`not json`)); err == nil {
		t.Fatalf("expected error for malformed frame")
	}
}
