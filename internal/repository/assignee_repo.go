package repository

import (
	"context"

	"github.com/MohammedAlanizy/PatientPortal/internal/model"

	"gorm.io/gorm"
)

// AssigneeCompleted pairs an assignee display name with the number of
// requests they have completed
type AssigneeCompleted struct {
	FullName  string `json:"full_name"`
	Completed int64  `json:"completed"`
}

// AssigneeRepository defines the interface for data access of Assignee entities
type AssigneeRepository interface {
	Create(ctx context.Context, assignee *model.Assignee) error
	GetByID(ctx context.Context, id int) (*model.Assignee, error)
	List(ctx context.Context, skip, limit int) ([]model.Assignee, int64, error)
	Update(ctx context.Context, assignee *model.Assignee) error
	Delete(ctx context.Context, id int) error
	CompletedCounts(ctx context.Context, skip, limit int) ([]AssigneeCompleted, error)
}

type assigneeRepository struct {
	db *gorm.DB
}

// NewAssigneeRepository returns a new instance of AssigneeRepository
func NewAssigneeRepository(db *gorm.DB) AssigneeRepository {
	return &assigneeRepository{db: db}
}

func (r *assigneeRepository) Create(ctx context.Context, assignee *model.Assignee) error {
	return r.db.WithContext(ctx).Create(assignee).Error
}

func (r *assigneeRepository) GetByID(ctx context.Context, id int) (*model.Assignee, error) {
	var assignee model.Assignee
	if err := r.db.WithContext(ctx).First(&assignee, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &assignee, nil
}

func (r *assigneeRepository) List(ctx context.Context, skip, limit int) ([]model.Assignee, int64, error) {
	var assignees []model.Assignee
	var total int64

	if err := r.db.WithContext(ctx).Model(&model.Assignee{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := r.db.WithContext(ctx).Offset(skip).Limit(limit).Find(&assignees).Error; err != nil {
		return nil, 0, err
	}

	return assignees, total, nil
}

func (r *assigneeRepository) Update(ctx context.Context, assignee *model.Assignee) error {
	return r.db.WithContext(ctx).Save(assignee).Error
}

func (r *assigneeRepository) Delete(ctx context.Context, id int) error {
	return r.db.WithContext(ctx).Delete(&model.Assignee{}, id).Error
}

func (r *assigneeRepository) CompletedCounts(ctx context.Context, skip, limit int) ([]AssigneeCompleted, error) {
	var stats []AssigneeCompleted
	err := r.db.WithContext(ctx).Model(&model.Assignee{}).
		Select("assignees.full_name, COUNT(requests.id) AS completed").
		Joins("LEFT JOIN requests ON requests.assigned_to = assignees.id AND requests.status = ?", model.StatusCompleted).
		Group("assignees.id, assignees.full_name").
		Offset(skip).Limit(limit).
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return stats, nil
}
