package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/MohammedAlanizy/PatientPortal/internal/middleware"
	"github.com/MohammedAlanizy/PatientPortal/internal/model"
	"github.com/MohammedAlanizy/PatientPortal/internal/service"
	"github.com/MohammedAlanizy/PatientPortal/pkg/pagination"
	"github.com/MohammedAlanizy/PatientPortal/pkg/response"

	"github.com/gin-gonic/gin"
)

// inserterFetchLimit caps how many records the front-desk role can pull at once
const inserterFetchLimit = 10

type RequestHandler struct {
	requestService service.RequestService
	auth           *middleware.Auth
	maxLimit       int
}

// NewRequestHandler sets up the routing dependencies for Request endpoints
func NewRequestHandler(requestService service.RequestService, auth *middleware.Auth, maxLimit int) *RequestHandler {
	return &RequestHandler{requestService: requestService, auth: auth, maxLimit: maxLimit}
}

// RegisterRoutes binds the endpoints to the gin RouterGroup
func (h *RequestHandler) RegisterRoutes(router *gin.RouterGroup) {
	requests := router.Group("/requests")
	{
		requests.GET("", h.auth.RequireRole(model.RoleAdmin, model.RoleVerifier, model.RoleInserter), h.ListRequests)
		requests.GET("/stats", h.auth.RequireRole(model.RoleAdmin, model.RoleVerifier), h.GetStats)
		requests.GET("/:id", h.auth.RequireRole(model.RoleAdmin, model.RoleVerifier), h.GetRequest)
		requests.POST("", h.auth.OptionalAuth(), h.CreateRequest)
		requests.PUT("/:id", h.auth.RequireRole(model.RoleAdmin, model.RoleVerifier), h.UpdateRequest)
		requests.DELETE("/:id", h.auth.RequireRole(model.RoleAdmin), h.DeleteRequest)
	}
}

// actorFrom collects the authenticated identity placed on the context by
// the auth middleware
func actorFrom(c *gin.Context) service.Actor {
	userID, _ := c.Get(middleware.CtxUserID)
	role, _ := c.Get(middleware.CtxUserRole)
	isGuest, _ := c.Get(middleware.CtxIsGuest)

	actor := service.Actor{}
	if id, ok := userID.(int); ok {
		actor.UserID = id
	}
	if r, ok := role.(string); ok {
		actor.Role = r
	}
	if g, ok := isGuest.(bool); ok {
		actor.IsGuest = g
	}
	return actor
}

// parseDate accepts either a bare day (2006-01-02) or RFC3339 and pins the
// result to UTC
func parseDate(value string) (*time.Time, bool) {
	if value == "" {
		return nil, true
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		t = t.UTC()
		return &t, true
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		t = t.UTC()
		return &t, true
	}
	return nil, false
}

// ListRequests handles GET /requests
// @Summary      List requests
// @Description  Retrieves a paginated window of requests with optional status, search and date filters
// @Tags         requests
// @Produce      json
// @Security     BearerAuth
// @Param        skip        query  int     false  "Offset into the result set"
// @Param        limit       query  int     false  "Page size (max 100)"
// @Param        status      query  string  false  "pending or completed"
// @Param        search      query  string  false  "Free-text match on name or national id"
// @Param        start_date  query  string  false  "Lower bound on created_at"
// @Param        end_date    query  string  false  "Upper bound on created_at (inclusive day)"
// @Param        order_by    query  string  false  "Comma list of -col / +col"
// @Success      200  {object}  service.ListRequestsResult
// @Failure      400  {object}  response.ErrorBody
// @Router       /requests [get]
func (h *RequestHandler) ListRequests(c *gin.Context) {
	actor := actorFrom(c)

	max := h.maxLimit
	if actor.Role == model.RoleInserter {
		max = inserterFetchLimit
	}
	page, ok := pagination.Parse(c, max)
	if !ok {
		c.JSON(http.StatusBadRequest, response.Error("Limit must be less than or equal to "+strconv.Itoa(max)))
		return
	}

	status := c.Query("status")
	if status != "" && !model.IsValidStatus(status) {
		c.JSON(http.StatusBadRequest, response.Error("Invalid status filter"))
		return
	}

	startDate, ok := parseDate(c.Query("start_date"))
	if !ok {
		c.JSON(http.StatusBadRequest, response.Error("Invalid start_date"))
		return
	}
	endDate, ok := parseDate(c.Query("end_date"))
	if !ok {
		c.JSON(http.StatusBadRequest, response.Error("Invalid end_date"))
		return
	}
	if endDate != nil {
		// Inclusive through the end of the requested day
		end := time.Date(endDate.Year(), endDate.Month(), endDate.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), time.UTC)
		endDate = &end
	}

	result, err := h.requestService.List(c.Request.Context(), service.ListRequestsParams{
		Skip:      page.Skip,
		Limit:     page.Limit,
		Status:    status,
		Search:    c.Query("search"),
		StartDate: startDate,
		EndDate:   endDate,
		OrderBy:   c.DefaultQuery("order_by", "-updated_at, -created_at"),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error("Failed to fetch requests"))
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetStats handles GET /requests/stats
// @Summary      Request stats
// @Description  Scalar counters for the current year plus today's submissions
// @Tags         requests
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  repository.RequestStats
// @Router       /requests/stats [get]
func (h *RequestHandler) GetStats(c *gin.Context) {
	stats, err := h.requestService.Stats(c.Request.Context(), time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error("Failed to fetch stats"))
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetRequest handles GET /requests/:id
// @Summary      Get a request
// @Tags         requests
// @Produce      json
// @Security     BearerAuth
// @Param        id  path  int  true  "Request ID"
// @Success      200  {object}  model.Request
// @Failure      404  {object}  response.ErrorBody
// @Router       /requests/{id} [get]
func (h *RequestHandler) GetRequest(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error("Invalid request id"))
		return
	}

	req, err := h.requestService.Get(c.Request.Context(), id)
	if errors.Is(err, service.ErrNotFound) {
		c.JSON(http.StatusNotFound, response.Error("Request not found"))
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(err.Error()))
		return
	}
	c.JSON(http.StatusOK, req)
}

// CreateRequest handles POST /requests
// @Summary      Submit a request
// @Description  Creates a pending registration. Accepts staff tokens or the guest sentinel.
// @Tags         requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body  service.CreateRequestInput  true  "New registration"
// @Success      201  {object}  model.Request
// @Failure      400  {object}  response.ErrorBody
// @Router       /requests [post]
func (h *RequestHandler) CreateRequest(c *gin.Context) {
	var input service.CreateRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, response.Error("Invalid request payload: "+err.Error()))
		return
	}

	req, err := h.requestService.Create(c.Request.Context(), input, actorFrom(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(err.Error()))
		return
	}

	c.JSON(http.StatusCreated, req)
}

// UpdateRequest handles PUT /requests/:id
// @Summary      Verify a request
// @Description  Marks the request completed and delegates it to an assignee
// @Tags         requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path  int                         true  "Request ID"
// @Param        payload  body  service.UpdateRequestInput  true  "Verification"
// @Success      200  {object}  model.Request
// @Failure      403  {object}  response.ErrorBody
// @Failure      404  {object}  response.ErrorBody
// @Router       /requests/{id} [put]
func (h *RequestHandler) UpdateRequest(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error("Invalid request id"))
		return
	}

	var input service.UpdateRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, response.Error("Invalid request payload: "+err.Error()))
		return
	}

	req, err := h.requestService.Update(c.Request.Context(), id, input, actorFrom(c))
	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, response.Error("Request not found"))
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, response.Error("Only admin can edit completed requests"))
	case err != nil:
		c.JSON(http.StatusInternalServerError, response.Error(err.Error()))
	default:
		c.JSON(http.StatusOK, req)
	}
}

// DeleteRequest handles DELETE /requests/:id
// @Summary      Delete a request
// @Tags         requests
// @Produce      json
// @Security     BearerAuth
// @Param        id  path  int  true  "Request ID"
// @Success      200  {object}  model.Request
// @Failure      404  {object}  response.ErrorBody
// @Router       /requests/{id} [delete]
func (h *RequestHandler) DeleteRequest(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error("Invalid request id"))
		return
	}

	req, err := h.requestService.Delete(c.Request.Context(), id, actorFrom(c))
	if errors.Is(err, service.ErrNotFound) {
		c.JSON(http.StatusNotFound, response.Error("Request not found"))
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(err.Error()))
		return
	}
	c.JSON(http.StatusOK, req)
}
