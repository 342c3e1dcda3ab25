package repository

import (
	"context"
	"strings"
	"time"

	"github.com/MohammedAlanizy/PatientPortal/internal/model"

	"gorm.io/gorm"
)

// RequestFilter narrows a request listing. Zero values mean "no filter".
type RequestFilter struct {
	Status    string
	Search    string
	StartDate *time.Time
	EndDate   *time.Time
	OrderBy   string // comma list of -col / +col, e.g. "-updated_at, -created_at"
}

// RequestStats mirrors the /requests/stats payload
type RequestStats struct {
	Total     int64 `json:"total"`
	Pending   int64 `json:"pending"`
	Completed int64 `json:"completed"`
	Today     int64 `json:"today"`
}

// RequestRepository defines the interface for data access of Request entities
type RequestRepository interface {
	Create(ctx context.Context, req *model.Request) error
	GetByID(ctx context.Context, id int) (*model.Request, error)
	List(ctx context.Context, skip, limit int, filter RequestFilter) ([]model.Request, int64, error)
	Update(ctx context.Context, req *model.Request) error
	Delete(ctx context.Context, id int) error
	Stats(ctx context.Context, now time.Time) (*RequestStats, error)
}

type requestRepository struct {
	db *gorm.DB
}

// NewRequestRepository returns a new instance of RequestRepository
func NewRequestRepository(db *gorm.DB) RequestRepository {
	return &requestRepository{db: db}
}

func (r *requestRepository) Create(ctx context.Context, req *model.Request) error {
	if err := r.db.WithContext(ctx).Create(req).Error; err != nil {
		return err
	}
	// Reload with associations so the caller can serialize creator/assignee
	return r.db.WithContext(ctx).Preload("Creator").Preload("Assignee").First(req, req.ID).Error
}

func (r *requestRepository) GetByID(ctx context.Context, id int) (*model.Request, error) {
	var req model.Request
	if err := r.db.WithContext(ctx).Preload("Creator").Preload("Assignee").First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

// orderColumns is the whitelist of sortable fields; anything else in the
// order_by parameter is ignored
var orderColumns = map[string]bool{
	"id":         true,
	"status":     true,
	"full_name":  true,
	"created_at": true,
	"updated_at": true,
}

func applyOrder(q *gorm.DB, orderBy string) *gorm.DB {
	if orderBy == "" {
		orderBy = "-updated_at, -created_at"
	}
	for _, part := range strings.Split(orderBy, ",") {
		part = strings.TrimSpace(part)
		if len(part) < 2 {
			continue
		}
		dir, col := part[0], part[1:]
		if !orderColumns[col] {
			continue
		}
		switch dir {
		case '-':
			q = q.Order(col + " DESC")
		case '+':
			q = q.Order(col + " ASC")
		}
	}
	return q
}

func (r *requestRepository) List(ctx context.Context, skip, limit int, filter RequestFilter) ([]model.Request, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Request{})

	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		q = q.Where("full_name ILIKE ? OR CAST(national_id AS TEXT) LIKE ?", like, like)
	}
	if filter.StartDate != nil {
		q = q.Where("created_at >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		q = q.Where("created_at <= ?", *filter.EndDate)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var requests []model.Request
	err := applyOrder(q, filter.OrderBy).
		Preload("Creator").Preload("Assignee").
		Offset(skip).Limit(limit).
		Find(&requests).Error
	if err != nil {
		return nil, 0, err
	}

	return requests, total, nil
}

func (r *requestRepository) Update(ctx context.Context, req *model.Request) error {
	if err := r.db.WithContext(ctx).Save(req).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Preload("Creator").Preload("Assignee").First(req, req.ID).Error
}

func (r *requestRepository) Delete(ctx context.Context, id int) error {
	return r.db.WithContext(ctx).Delete(&model.Request{}, id).Error
}

func (r *requestRepository) Stats(ctx context.Context, now time.Time) (*RequestStats, error) {
	now = now.UTC()
	yearStart := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24*time.Hour - time.Nanosecond)

	var stats RequestStats
	err := r.db.WithContext(ctx).Model(&model.Request{}).
		Select(`COUNT(id) AS total,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS pending,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS completed,
			COALESCE(SUM(CASE WHEN created_at BETWEEN ? AND ? THEN 1 ELSE 0 END), 0) AS today`,
			model.StatusPending, model.StatusCompleted, dayStart, dayEnd).
		Where("created_at >= ?", yearStart).
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
