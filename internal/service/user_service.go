package service

import (
	"context"
	"errors"
	"time"

	"github.com/MohammedAlanizy/PatientPortal/internal/middleware"
	"github.com/MohammedAlanizy/PatientPortal/internal/model"
	"github.com/MohammedAlanizy/PatientPortal/internal/repository"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const accessTokenTTL = 30 * time.Minute

// DTOs for request validation
type CreateUserInput struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role" binding:"required"`
}

type LoginInput struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
}

// TokenResult is the login payload the client persists
type TokenResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Role        string `json:"role"`
	Username    string `json:"username"`
}

// UserListResult is the paginated listing payload
type UserListResult struct {
	Results   []model.User `json:"results"`
	Remaining int64        `json:"remaining"`
	Length    int64        `json:"length"`
}

// UserService defines the interface for business logic related to User
type UserService interface {
	Create(ctx context.Context, input CreateUserInput) (*model.User, error)
	Login(ctx context.Context, input LoginInput) (*TokenResult, error)
	GetByID(ctx context.Context, id int) (*model.User, error)
	List(ctx context.Context, skip, limit int) (*UserListResult, error)
	Delete(ctx context.Context, id int, actor Actor) (*model.User, error)
}

type userService struct {
	repo repository.UserRepository
	auth *middleware.Auth
}

// NewUserService returns a new instance of UserService
func NewUserService(repo repository.UserRepository, auth *middleware.Auth) UserService {
	return &userService{repo: repo, auth: auth}
}

func (s *userService) Create(ctx context.Context, input CreateUserInput) (*model.User, error) {
	if !model.IsValidRole(input.Role) {
		return nil, errors.New("invalid role: must be admin, verifier, or inserter")
	}

	if _, err := s.repo.GetByUsername(ctx, input.Username); err == nil {
		return nil, errors.New("username already registered")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.New("failed to hash password")
	}

	user := &model.User{
		Username: input.Username,
		Password: string(hashed),
		Role:     input.Role,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *userService) Login(ctx context.Context, input LoginInput) (*TokenResult, error) {
	user, err := s.repo.GetByUsername(ctx, input.Username)
	if err != nil {
		return nil, errors.New("incorrect username or password")
	}
	if user.IsGuest {
		return nil, errors.New("incorrect username or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)); err != nil {
		return nil, errors.New("incorrect username or password")
	}

	token, err := s.auth.GenerateToken(user, accessTokenTTL)
	if err != nil {
		return nil, err
	}

	return &TokenResult{
		AccessToken: token,
		TokenType:   "bearer",
		Role:        user.Role,
		Username:    user.Username,
	}, nil
}

func (s *userService) GetByID(ctx context.Context, id int) (*model.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return user, err
}

func (s *userService) List(ctx context.Context, skip, limit int) (*UserListResult, error) {
	users, total, err := s.repo.List(ctx, skip, limit)
	if err != nil {
		return nil, err
	}
	remaining := total - int64(skip+limit)
	if remaining < 0 {
		remaining = 0
	}
	if users == nil {
		users = []model.User{}
	}
	return &UserListResult{Results: users, Remaining: remaining, Length: total}, nil
}

func (s *userService) Delete(ctx context.Context, id int, actor Actor) (*model.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if user.ID == actor.UserID {
		return nil, errors.New("can't delete yourself")
	}
	if user.IsGuest {
		return nil, errors.New("can't delete guest user")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return nil, err
	}
	return user, nil
}
