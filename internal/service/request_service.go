package service

import (
	"context"
	"errors"
	"time"

	"github.com/MohammedAlanizy/PatientPortal/internal/model"
	"github.com/MohammedAlanizy/PatientPortal/internal/repository"
	ws "github.com/MohammedAlanizy/PatientPortal/internal/websocket"
	"github.com/MohammedAlanizy/PatientPortal/pkg/portal"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Sentinel errors mapped to HTTP statuses by the handlers
var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")
)

// Actor identifies who is performing a service call
type Actor struct {
	UserID  int
	Role    string
	IsGuest bool
}

// Staff reports whether the actor may read notes (admin or verifier)
func (a Actor) Staff() bool {
	return a.Role == model.RoleAdmin || a.Role == model.RoleVerifier
}

// DTOs for request validation
type CreateRequestInput struct {
	FullName      string  `json:"full_name" binding:"required"`
	NationalID    int64   `json:"national_id" binding:"required"`
	MedicalNumber *int64  `json:"medical_number"`
	Notes         *string `json:"notes"`
}

type UpdateRequestInput struct {
	MedicalNumber *int64  `json:"medical_number"`
	Notes         *string `json:"notes"`
	AssignedTo    int     `json:"assigned_to" binding:"required"`
}

// ListRequestsParams carries the parsed query of GET /requests/
type ListRequestsParams struct {
	Skip      int
	Limit     int
	Status    string
	Search    string
	StartDate *time.Time
	EndDate   *time.Time
	OrderBy   string
}

// ListRequestsResult is the paginated listing payload
type ListRequestsResult struct {
	Results   []model.Request `json:"results"`
	Remaining int64           `json:"remaining"`
	Length    int64           `json:"length"`
}

// RequestService defines the interface for business logic related to Request
type RequestService interface {
	Create(ctx context.Context, input CreateRequestInput, actor Actor) (*model.Request, error)
	Get(ctx context.Context, id int) (*model.Request, error)
	List(ctx context.Context, params ListRequestsParams) (*ListRequestsResult, error)
	Update(ctx context.Context, id int, input UpdateRequestInput, actor Actor) (*model.Request, error)
	Delete(ctx context.Context, id int, actor Actor) (*model.Request, error)
	Stats(ctx context.Context, now time.Time) (*repository.RequestStats, error)
}

type requestService struct {
	repo     repository.RequestRepository
	users    repository.UserRepository
	counters repository.CounterRepository
	hub      *ws.Hub
	log      zerolog.Logger
}

// NewRequestService returns a new instance of RequestService
func NewRequestService(
	repo repository.RequestRepository,
	users repository.UserRepository,
	counters repository.CounterRepository,
	hub *ws.Hub,
	log zerolog.Logger,
) RequestService {
	return &requestService{repo: repo, users: users, counters: counters, hub: hub, log: log}
}

// broadcastToStaff pushes an event frame to every connected staff client
func (s *requestService) broadcastToStaff(t portal.EventType, payload interface{}) {
	frame, err := portal.EncodeEvent(t, payload)
	if err != nil {
		s.log.Error().Err(err).Str("type", string(t)).Msg("encode push event")
		return
	}
	s.hub.BroadcastToRoles(frame, model.RoleAdmin, model.RoleVerifier, model.RoleInserter)
}

func (s *requestService) Create(ctx context.Context, input CreateRequestInput, actor Actor) (*model.Request, error) {
	// Notes are only accepted from verifying staff
	if !actor.Staff() {
		input.Notes = nil
	}

	createdBy := actor.UserID
	if actor.IsGuest {
		guest, err := s.users.GetGuest(ctx)
		if err != nil {
			return nil, errors.New("guest user not properly initialized")
		}
		createdBy = guest.ID
	}

	req := &model.Request{
		FullName:      input.FullName,
		NationalID:    input.NationalID,
		MedicalNumber: input.MedicalNumber,
		Notes:         input.Notes,
		Status:        model.StatusPending,
		CreatedBy:     createdBy,
	}
	if err := s.repo.Create(ctx, req); err != nil {
		return nil, err
	}

	s.broadcastToStaff(portal.EventNewRequest, req)
	return req, nil
}

func (s *requestService) Get(ctx context.Context, id int) (*model.Request, error) {
	req, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return req, err
}

func (s *requestService) List(ctx context.Context, params ListRequestsParams) (*ListRequestsResult, error) {
	filter := repository.RequestFilter{
		Status:    params.Status,
		Search:    params.Search,
		StartDate: params.StartDate,
		EndDate:   params.EndDate,
		OrderBy:   params.OrderBy,
	}
	results, total, err := s.repo.List(ctx, params.Skip, params.Limit, filter)
	if err != nil {
		return nil, err
	}

	remaining := total - int64(params.Skip+params.Limit)
	if remaining < 0 {
		remaining = 0
	}
	if results == nil {
		results = []model.Request{}
	}
	return &ListRequestsResult{Results: results, Remaining: remaining, Length: total}, nil
}

func (s *requestService) Update(ctx context.Context, id int, input UpdateRequestInput, actor Actor) (*model.Request, error) {
	req, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	// Once verified, only an admin may edit the record again
	if req.Status == model.StatusCompleted && actor.Role != model.RoleAdmin {
		return nil, ErrForbidden
	}

	now := time.Now().UTC()
	req.Status = model.StatusCompleted
	req.AssignedTo = &input.AssignedTo
	req.UpdatedAt = &now
	if input.MedicalNumber != nil {
		req.MedicalNumber = input.MedicalNumber
	}
	if input.Notes != nil {
		req.Notes = input.Notes
	}

	if err := s.repo.Update(ctx, req); err != nil {
		return nil, err
	}

	counter := &model.TodayCounter{RequestID: req.ID}
	if err := s.counters.Create(ctx, counter); err != nil {
		s.log.Error().Err(err).Int("request_id", req.ID).Msg("append today counter")
	} else {
		frame, err := portal.EncodeEvent(portal.EventCounterUpdate, portal.CounterUpdate{
			RequestID:   req.ID,
			LastCounter: counter.ID,
		})
		if err == nil {
			s.hub.BroadcastAll(frame)
		}
	}

	s.broadcastToStaff(portal.EventUpdatedRequest, req)
	return req, nil
}

func (s *requestService) Delete(ctx context.Context, id int, actor Actor) (*model.Request, error) {
	req, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return nil, err
	}

	s.broadcastToStaff(portal.EventDeletedRequest, req)
	return req, nil
}

func (s *requestService) Stats(ctx context.Context, now time.Time) (*repository.RequestStats, error) {
	return s.repo.Stats(ctx, now)
}
