package service

import (
	"context"
	"errors"

	"github.com/MohammedAlanizy/PatientPortal/internal/model"
	"github.com/MohammedAlanizy/PatientPortal/internal/repository"

	"gorm.io/gorm"
)

// DTOs for request validation
type AssigneeInput struct {
	FullName string `json:"full_name" binding:"required"`
}

// AssigneeListResult is the paginated listing payload
type AssigneeListResult struct {
	Results   []model.Assignee `json:"results"`
	Remaining int64            `json:"remaining"`
	Length    int64            `json:"length"`
}

// AssigneeStatsResult wraps per-assignee completion counts
type AssigneeStatsResult struct {
	Stats []repository.AssigneeCompleted `json:"stats"`
}

// AssigneeService defines the interface for business logic related to Assignee
type AssigneeService interface {
	Create(ctx context.Context, input AssigneeInput) (*model.Assignee, error)
	Get(ctx context.Context, id int) (*model.Assignee, error)
	List(ctx context.Context, skip, limit int) (*AssigneeListResult, error)
	Update(ctx context.Context, id int, input AssigneeInput) (*model.Assignee, error)
	Delete(ctx context.Context, id int) (*model.Assignee, error)
	Stats(ctx context.Context, skip, limit int) (*AssigneeStatsResult, error)
}

type assigneeService struct {
	repo repository.AssigneeRepository
}

// NewAssigneeService returns a new instance of AssigneeService
func NewAssigneeService(repo repository.AssigneeRepository) AssigneeService {
	return &assigneeService{repo: repo}
}

func (s *assigneeService) Create(ctx context.Context, input AssigneeInput) (*model.Assignee, error) {
	assignee := &model.Assignee{FullName: input.FullName}
	if err := s.repo.Create(ctx, assignee); err != nil {
		return nil, err
	}
	return assignee, nil
}

func (s *assigneeService) Get(ctx context.Context, id int) (*model.Assignee, error) {
	assignee, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return assignee, err
}

func (s *assigneeService) List(ctx context.Context, skip, limit int) (*AssigneeListResult, error) {
	assignees, total, err := s.repo.List(ctx, skip, limit)
	if err != nil {
		return nil, err
	}
	remaining := total - int64(skip+limit)
	if remaining < 0 {
		remaining = 0
	}
	if assignees == nil {
		assignees = []model.Assignee{}
	}
	return &AssigneeListResult{Results: assignees, Remaining: remaining, Length: total}, nil
}

func (s *assigneeService) Update(ctx context.Context, id int, input AssigneeInput) (*model.Assignee, error) {
	assignee, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	assignee.FullName = input.FullName
	if err := s.repo.Update(ctx, assignee); err != nil {
		return nil, err
	}
	return assignee, nil
}

func (s *assigneeService) Delete(ctx context.Context, id int) (*model.Assignee, error) {
	assignee, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return nil, err
	}
	return assignee, nil
}

func (s *assigneeService) Stats(ctx context.Context, skip, limit int) (*AssigneeStatsResult, error) {
	stats, err := s.repo.CompletedCounts(ctx, skip, limit)
	if err != nil {
		return nil, err
	}
	if stats == nil {
		stats = []repository.AssigneeCompleted{}
	}
	return &AssigneeStatsResult{Stats: stats}, nil
}
