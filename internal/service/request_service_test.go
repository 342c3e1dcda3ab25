package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MohammedAlanizy/PatientPortal/internal/model"
	"github.com/MohammedAlanizy/PatientPortal/internal/repository"
	ws "github.com/MohammedAlanizy/PatientPortal/internal/websocket"
	"github.com/MohammedAlanizy/PatientPortal/pkg/portal"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// In-memory repository fakes

type fakeRequestRepo struct {
	nextID int
	byID   map[int]*model.Request
	total  int64
	listed []model.Request
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{byID: make(map[int]*model.Request)}
}

func (r *fakeRequestRepo) Create(_ context.Context, req *model.Request) error {
	r.nextID++
	req.ID = r.nextID
	req.CreatedAt = time.Now().UTC()
	stored := *req
	r.byID[req.ID] = &stored
	return nil
}

func (r *fakeRequestRepo) GetByID(_ context.Context, id int) (*model.Request, error) {
	req, ok := r.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	found := *req
	return &found, nil
}

func (r *fakeRequestRepo) List(_ context.Context, skip, limit int, _ repository.RequestFilter) ([]model.Request, int64, error) {
	return r.listed, r.total, nil
}

func (r *fakeRequestRepo) Update(_ context.Context, req *model.Request) error {
	if _, ok := r.byID[req.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	stored := *req
	r.byID[req.ID] = &stored
	return nil
}

func (r *fakeRequestRepo) Delete(_ context.Context, id int) error {
	delete(r.byID, id)
	return nil
}

func (r *fakeRequestRepo) Stats(_ context.Context, _ time.Time) (*repository.RequestStats, error) {
	return &repository.RequestStats{Total: r.total}, nil
}

type fakeUserRepo struct {
	guest *model.User
}

func (r *fakeUserRepo) Create(_ context.Context, _ *model.User) error { return nil }
func (r *fakeUserRepo) GetByID(_ context.Context, _ int) (*model.User, error) {
	return nil, gorm.ErrRecordNotFound
}
func (r *fakeUserRepo) GetByUsername(_ context.Context, _ string) (*model.User, error) {
	return nil, gorm.ErrRecordNotFound
}
func (r *fakeUserRepo) GetGuest(_ context.Context) (*model.User, error) {
	if r.guest == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return r.guest, nil
}
func (r *fakeUserRepo) List(_ context.Context, _, _ int) ([]model.User, int64, error) {
	return nil, 0, nil
}
func (r *fakeUserRepo) Delete(_ context.Context, _ int) error { return nil }

type fakeCounterRepo struct {
	nextID  int
	entries []*model.TodayCounter
}

func (r *fakeCounterRepo) Create(_ context.Context, counter *model.TodayCounter) error {
	r.nextID++
	counter.ID = r.nextID
	r.entries = append(r.entries, counter)
	return nil
}

func (r *fakeCounterRepo) Last(_ context.Context) (*model.TodayCounter, error) {
	if len(r.entries) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return r.entries[len(r.entries)-1], nil
}

type fixture struct {
	svc      RequestService
	requests *fakeRequestRepo
	counters *fakeCounterRepo
	hub      *ws.Hub
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	requests := newFakeRequestRepo()
	counters := &fakeCounterRepo{}
	users := &fakeUserRepo{guest: &model.User{ID: 99, Username: "guest", IsGuest: true}}
	hub := ws.NewHub(zerolog.Nop())
	go hub.Run()

	return &fixture{
		svc:      NewRequestService(requests, users, counters, hub, zerolog.Nop()),
		requests: requests,
		counters: counters,
		hub:      hub,
	}
}

// attach registers a bare client on the hub so a test can observe frames
func attach(f *fixture, role string) chan []byte {
	client := &ws.Client{ID: uuid.New(), Role: role, Hub: f.hub, Send: make(chan []byte, 16)}
	f.hub.Register(client)
	return client.Send
}

func recvEvent(t *testing.T, ch chan []byte) portal.Event {
	t.Helper()
	select {
	case frame := <-ch:
		ev, err := portal.DecodeEvent(frame)
		if err != nil {
			t.Fatalf("decode frame: %v", err)
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("no frame delivered")
		return portal.Event{}
	}
}

func strptr(s string) *string { return &s }

func TestCreateStripsNotesFromNonStaff(t *testing.T) {
	f := newFixture(t)

	req, err := f.svc.Create(context.Background(), CreateRequestInput{
		FullName:   "Abdullah",
		NationalID: 1234567890,
		Notes:      strptr("internal triage note"),
	}, Actor{UserID: 3, Role: model.RoleInserter})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if req.Notes != nil {
		t.Fatalf("inserter-submitted notes kept: %q", *req.Notes)
	}
	if req.Status != model.StatusPending {
		t.Fatalf("status = %q", req.Status)
	}
}

func TestCreateKeepsStaffNotes(t *testing.T) {
	f := newFixture(t)

	req, err := f.svc.Create(context.Background(), CreateRequestInput{
		FullName:   "Abdullah",
		NationalID: 1234567890,
		Notes:      strptr("walk-in, urgent"),
	}, Actor{UserID: 3, Role: model.RoleVerifier})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if req.Notes == nil || *req.Notes != "walk-in, urgent" {
		t.Fatalf("staff notes lost: %v", req.Notes)
	}
}

func TestCreateGuestUsesGuestAccount(t *testing.T) {
	f := newFixture(t)

	req, err := f.svc.Create(context.Background(), CreateRequestInput{
		FullName:   "Walk In",
		NationalID: 1,
	}, Actor{IsGuest: true})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if req.CreatedBy != 99 {
		t.Fatalf("created_by = %d, want guest account 99", req.CreatedBy)
	}
}

func TestUpdateCompletesAndAppendsCounter(t *testing.T) {
	f := newFixture(t)
	created, err := f.svc.Create(context.Background(), CreateRequestInput{FullName: "P", NationalID: 1}, Actor{UserID: 1, Role: model.RoleInserter})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := f.svc.Update(context.Background(), created.ID, UpdateRequestInput{AssignedTo: 4}, Actor{UserID: 2, Role: model.RoleVerifier})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Status != model.StatusCompleted {
		t.Fatalf("status = %q", updated.Status)
	}
	if updated.AssignedTo == nil || *updated.AssignedTo != 4 {
		t.Fatalf("assigned_to = %v", updated.AssignedTo)
	}
	if updated.UpdatedAt == nil {
		t.Fatalf("updated_at not stamped")
	}
	if len(f.counters.entries) != 1 || f.counters.entries[0].RequestID != created.ID {
		t.Fatalf("counter entries = %+v", f.counters.entries)
	}
}

func TestUpdateCompletedRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	created, _ := f.svc.Create(context.Background(), CreateRequestInput{FullName: "P", NationalID: 1}, Actor{UserID: 1, Role: model.RoleInserter})
	if _, err := f.svc.Update(context.Background(), created.ID, UpdateRequestInput{AssignedTo: 4}, Actor{UserID: 2, Role: model.RoleVerifier}); err != nil {
		t.Fatalf("first update: %v", err)
	}

	_, err := f.svc.Update(context.Background(), created.ID, UpdateRequestInput{AssignedTo: 5}, Actor{UserID: 2, Role: model.RoleVerifier})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("verifier re-update error = %v, want ErrForbidden", err)
	}

	if _, err := f.svc.Update(context.Background(), created.ID, UpdateRequestInput{AssignedTo: 5}, Actor{UserID: 1, Role: model.RoleAdmin}); err != nil {
		t.Fatalf("admin re-update: %v", err)
	}
}

func TestUpdateMissingRequest(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Update(context.Background(), 404, UpdateRequestInput{AssignedTo: 1}, Actor{Role: model.RoleAdmin})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestListRemaining(t *testing.T) {
	f := newFixture(t)
	f.requests.total = 25

	res, err := f.svc.List(context.Background(), ListRequestsParams{Skip: 10, Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if res.Remaining != 5 || res.Length != 25 {
		t.Fatalf("remaining/length = %d/%d, want 5/25", res.Remaining, res.Length)
	}

	res, err = f.svc.List(context.Background(), ListRequestsParams{Skip: 20, Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if res.Remaining != 0 {
		t.Fatalf("remaining = %d past the end, want 0", res.Remaining)
	}
	if res.Results == nil {
		t.Fatalf("results must encode as [], not null")
	}
}

func TestUpdatePushesCounterToGuestsAndRecordToStaff(t *testing.T) {
	f := newFixture(t)
	guest := attach(f, "")
	staff := attach(f, model.RoleVerifier)

	created, _ := f.svc.Create(context.Background(), CreateRequestInput{FullName: "P", NationalID: 1}, Actor{UserID: 1, Role: model.RoleInserter})

	// creation frame goes to staff only
	ev := recvEvent(t, staff)
	if ev.Type != portal.EventNewRequest {
		t.Fatalf("first staff frame = %q", ev.Type)
	}

	if _, err := f.svc.Update(context.Background(), created.ID, UpdateRequestInput{AssignedTo: 2}, Actor{UserID: 2, Role: model.RoleVerifier}); err != nil {
		t.Fatalf("update: %v", err)
	}

	ev = recvEvent(t, guest)
	if ev.Type != portal.EventCounterUpdate {
		t.Fatalf("guest frame = %q, want counter update", ev.Type)
	}
	counter, err := ev.Counter()
	if err != nil || counter.RequestID != created.ID || counter.LastCounter != 1 {
		t.Fatalf("counter payload = %+v, err %v", counter, err)
	}

	ev = recvEvent(t, staff)
	if ev.Type != portal.EventCounterUpdate {
		t.Fatalf("second staff frame = %q", ev.Type)
	}
	ev = recvEvent(t, staff)
	if ev.Type != portal.EventUpdatedRequest {
		t.Fatalf("third staff frame = %q", ev.Type)
	}

	select {
	case frame := <-guest:
		t.Fatalf("guest received staff frame: %s", frame)
	case <-time.After(50 * time.Millisecond):
	}
}
