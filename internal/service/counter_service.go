package service

import (
	"context"
	"errors"

	"github.com/MohammedAlanizy/PatientPortal/internal/repository"
	"github.com/MohammedAlanizy/PatientPortal/pkg/portal"

	"gorm.io/gorm"
)

// CounterService exposes the "now serving" number
type CounterService interface {
	Last(ctx context.Context) (*portal.CounterUpdate, error)
}

type counterService struct {
	repo repository.CounterRepository
}

// NewCounterService returns a new instance of CounterService
func NewCounterService(repo repository.CounterRepository) CounterService {
	return &counterService{repo: repo}
}

func (s *counterService) Last(ctx context.Context) (*portal.CounterUpdate, error) {
	counter, err := s.repo.Last(ctx)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &portal.CounterUpdate{RequestID: counter.RequestID, LastCounter: counter.ID}, nil
}
