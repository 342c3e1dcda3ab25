package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/MohammedAlanizy/PatientPortal/internal/middleware"
	"github.com/MohammedAlanizy/PatientPortal/internal/model"
	"github.com/MohammedAlanizy/PatientPortal/internal/service"
	"github.com/MohammedAlanizy/PatientPortal/pkg/pagination"
	"github.com/MohammedAlanizy/PatientPortal/pkg/response"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	userService service.UserService
	auth        *middleware.Auth
	maxLimit    int
}

// NewUserHandler sets up the routing dependencies for User and auth endpoints
func NewUserHandler(userService service.UserService, auth *middleware.Auth, maxLimit int) *UserHandler {
	return &UserHandler{userService: userService, auth: auth, maxLimit: maxLimit}
}

// RegisterRoutes binds the endpoints to the gin RouterGroup
func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/auth/login", h.Login)

	users := router.Group("/users")
	{
		users.GET("/me", h.auth.RequireRole(model.RoleAdmin, model.RoleVerifier, model.RoleInserter), h.GetMe)
		users.GET("", h.auth.RequireRole(model.RoleAdmin), h.ListUsers)
		users.POST("", h.auth.RequireRole(model.RoleAdmin), h.CreateUser)
		users.DELETE("/:id", h.auth.RequireRole(model.RoleAdmin), h.DeleteUser)
	}
}

// Login handles POST /auth/login
// @Summary      Login
// @Description  Authenticates with form-encoded credentials and returns an access token
// @Tags         auth
// @Accept       x-www-form-urlencoded
// @Produce      json
// @Param        username  formData  string  true  "Username"
// @Param        password  formData  string  true  "Password"
// @Success      200  {object}  service.TokenResult
// @Failure      400  {object}  response.ErrorBody
// @Router       /auth/login [post]
func (h *UserHandler) Login(c *gin.Context) {
	var input service.LoginInput
	if err := c.ShouldBind(&input); err != nil {
		c.JSON(http.StatusBadRequest, response.Error("Invalid login payload"))
		return
	}

	token, err := h.userService.Login(c.Request.Context(), input)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(err.Error()))
		return
	}
	c.JSON(http.StatusOK, token)
}

// GetMe handles GET /users/me
// @Summary      Current user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  model.User
// @Failure      404  {object}  response.ErrorBody
// @Router       /users/me [get]
func (h *UserHandler) GetMe(c *gin.Context) {
	actor := actorFrom(c)
	user, err := h.userService.GetByID(c.Request.Context(), actor.UserID)
	if errors.Is(err, service.ErrNotFound) {
		c.JSON(http.StatusNotFound, response.Error("User not found"))
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(err.Error()))
		return
	}
	c.JSON(http.StatusOK, user)
}

// ListUsers handles GET /users
// @Summary      List users
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        skip   query  int  false  "Offset into the result set"
// @Param        limit  query  int  false  "Page size (max 100)"
// @Success      200  {object}  service.UserListResult
// @Router       /users [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	page, ok := pagination.Parse(c, h.maxLimit)
	if !ok {
		c.JSON(http.StatusBadRequest, response.Error("Limit must be less than or equal to "+strconv.Itoa(h.maxLimit)))
		return
	}

	result, err := h.userService.List(c.Request.Context(), page.Skip, page.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error("Failed to fetch users"))
		return
	}
	c.JSON(http.StatusOK, result)
}

// CreateUser handles POST /users
// @Summary      Create a user
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body  service.CreateUserInput  true  "New user"
// @Success      201  {object}  model.User
// @Failure      400  {object}  response.ErrorBody
// @Router       /users [post]
func (h *UserHandler) CreateUser(c *gin.Context) {
	var input service.CreateUserInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, response.Error("Invalid request payload: "+err.Error()))
		return
	}

	user, err := h.userService.Create(c.Request.Context(), input)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(err.Error()))
		return
	}
	c.JSON(http.StatusCreated, user)
}

// DeleteUser handles DELETE /users/:id
// @Summary      Delete a user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id  path  int  true  "User ID"
// @Success      200  {object}  model.User
// @Failure      400  {object}  response.ErrorBody
// @Failure      404  {object}  response.ErrorBody
// @Router       /users/{id} [delete]
func (h *UserHandler) DeleteUser(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error("Invalid user id"))
		return
	}

	user, err := h.userService.Delete(c.Request.Context(), id, actorFrom(c))
	if errors.Is(err, service.ErrNotFound) {
		c.JSON(http.StatusNotFound, response.Error("User not found"))
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(err.Error()))
		return
	}
	c.JSON(http.StatusOK, user)
}
