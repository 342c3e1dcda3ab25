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

type AssigneeHandler struct {
	assigneeService service.AssigneeService
	auth            *middleware.Auth
	maxLimit        int
}

// NewAssigneeHandler sets up the routing dependencies for Assignee endpoints
func NewAssigneeHandler(assigneeService service.AssigneeService, auth *middleware.Auth, maxLimit int) *AssigneeHandler {
	return &AssigneeHandler{assigneeService: assigneeService, auth: auth, maxLimit: maxLimit}
}

// RegisterRoutes binds the endpoints to the gin RouterGroup
func (h *AssigneeHandler) RegisterRoutes(router *gin.RouterGroup) {
	assignees := router.Group("/assignees")
	{
		assignees.GET("", h.auth.RequireRole(model.RoleAdmin, model.RoleVerifier), h.ListAssignees)
		assignees.GET("/stats", h.auth.RequireRole(model.RoleAdmin, model.RoleVerifier), h.GetStats)
		assignees.GET("/:id", h.auth.RequireRole(model.RoleAdmin), h.GetAssignee)
		assignees.POST("", h.auth.RequireRole(model.RoleAdmin), h.CreateAssignee)
		assignees.PUT("/:id", h.auth.RequireRole(model.RoleAdmin), h.UpdateAssignee)
		assignees.DELETE("/:id", h.auth.RequireRole(model.RoleAdmin), h.DeleteAssignee)
	}
}

// ListAssignees handles GET /assignees
// @Summary      List assignees
// @Tags         assignees
// @Produce      json
// @Security     BearerAuth
// @Param        skip   query  int  false  "Offset into the result set"
// @Param        limit  query  int  false  "Page size (max 100)"
// @Success      200  {object}  service.AssigneeListResult
// @Router       /assignees [get]
func (h *AssigneeHandler) ListAssignees(c *gin.Context) {
	page, ok := pagination.Parse(c, h.maxLimit)
	if !ok {
		c.JSON(http.StatusBadRequest, response.Error("Limit must be less than or equal to "+strconv.Itoa(h.maxLimit)))
		return
	}

	result, err := h.assigneeService.List(c.Request.Context(), page.Skip, page.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error("Failed to fetch assignees"))
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetStats handles GET /assignees/stats
// @Summary      Per-assignee completion counts
// @Tags         assignees
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  service.AssigneeStatsResult
// @Router       /assignees/stats [get]
func (h *AssigneeHandler) GetStats(c *gin.Context) {
	page, ok := pagination.Parse(c, h.maxLimit)
	if !ok {
		c.JSON(http.StatusBadRequest, response.Error("Limit must be less than or equal to "+strconv.Itoa(h.maxLimit)))
		return
	}

	stats, err := h.assigneeService.Stats(c.Request.Context(), page.Skip, page.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error("Failed to fetch assignee stats"))
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetAssignee handles GET /assignees/:id
// @Summary      Get an assignee
// @Tags         assignees
// @Produce      json
// @Security     BearerAuth
// @Param        id  path  int  true  "Assignee ID"
// @Success      200  {object}  model.Assignee
// @Failure      404  {object}  response.ErrorBody
// @Router       /assignees/{id} [get]
func (h *AssigneeHandler) GetAssignee(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error("Invalid assignee id"))
		return
	}

	assignee, err := h.assigneeService.Get(c.Request.Context(), id)
	if errors.Is(err, service.ErrNotFound) {
		c.JSON(http.StatusNotFound, response.Error("Assignee not found"))
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(err.Error()))
		return
	}
	c.JSON(http.StatusOK, assignee)
}

// CreateAssignee handles POST /assignees
// @Summary      Create an assignee
// @Tags         assignees
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body  service.AssigneeInput  true  "New assignee"
// @Success      201  {object}  model.Assignee
// @Failure      400  {object}  response.ErrorBody
// @Router       /assignees [post]
func (h *AssigneeHandler) CreateAssignee(c *gin.Context) {
	var input service.AssigneeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, response.Error("Invalid request payload: "+err.Error()))
		return
	}

	assignee, err := h.assigneeService.Create(c.Request.Context(), input)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(err.Error()))
		return
	}
	c.JSON(http.StatusCreated, assignee)
}

// UpdateAssignee handles PUT /assignees/:id
// @Summary      Rename an assignee
// @Tags         assignees
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path  int                    true  "Assignee ID"
// @Param        payload  body  service.AssigneeInput  true  "Updated assignee"
// @Success      200  {object}  model.Assignee
// @Failure      404  {object}  response.ErrorBody
// @Router       /assignees/{id} [put]
func (h *AssigneeHandler) UpdateAssignee(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error("Invalid assignee id"))
		return
	}

	var input service.AssigneeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, response.Error("Invalid request payload: "+err.Error()))
		return
	}

	assignee, err := h.assigneeService.Update(c.Request.Context(), id, input)
	if errors.Is(err, service.ErrNotFound) {
		c.JSON(http.StatusNotFound, response.Error("Assignee not found"))
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(err.Error()))
		return
	}
	c.JSON(http.StatusOK, assignee)
}

// DeleteAssignee handles DELETE /assignees/:id
// @Summary      Delete an assignee
// @Tags         assignees
// @Produce      json
// @Security     BearerAuth
// @Param        id  path  int  true  "Assignee ID"
// @Success      200  {object}  model.Assignee
// @Failure      404  {object}  response.ErrorBody
// @Router       /assignees/{id} [delete]
func (h *AssigneeHandler) DeleteAssignee(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error("Invalid assignee id"))
		return
	}

	assignee, err := h.assigneeService.Delete(c.Request.Context(), id)
	if errors.Is(err, service.ErrNotFound) {
		c.JSON(http.StatusNotFound, response.Error("Assignee not found"))
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(err.Error()))
		return
	}
	c.JSON(http.StatusOK, assignee)
}
