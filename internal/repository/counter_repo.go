package repository

import (
	"context"

	"github.com/MohammedAlanizy/PatientPortal/internal/model"

	"gorm.io/gorm"
)

// CounterRepository defines the interface for data access of TodayCounter rows
type CounterRepository interface {
	Create(ctx context.Context, counter *model.TodayCounter) error
	Last(ctx context.Context) (*model.TodayCounter, error)
}

type counterRepository struct {
	db *gorm.DB
}

// NewCounterRepository returns a new instance of CounterRepository
func NewCounterRepository(db *gorm.DB) CounterRepository {
	return &counterRepository{db: db}
}

func (r *counterRepository) Create(ctx context.Context, counter *model.TodayCounter) error {
	return r.db.WithContext(ctx).Create(counter).Error
}

// Last returns the counter row of the most recently updated completed
// request, which is the number the kiosk shows as "now serving"
func (r *counterRepository) Last(ctx context.Context) (*model.TodayCounter, error) {
	var counter model.TodayCounter
	err := r.db.WithContext(ctx).
		Joins("JOIN requests ON requests.id = today_counters.request_id").
		Where("requests.status = ?", model.StatusCompleted).
		Order("requests.updated_at DESC").
		First(&counter).Error
	if err != nil {
		return nil, err
	}
	return &counter, nil
}
