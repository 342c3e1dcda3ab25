package handler

import (
	"errors"
	"net/http"

	"github.com/MohammedAlanizy/PatientPortal/internal/service"
	"github.com/MohammedAlanizy/PatientPortal/pkg/response"

	"github.com/gin-gonic/gin"
)

type CounterHandler struct {
	counterService service.CounterService
}

// NewCounterHandler sets up the routing dependencies for the counter endpoint
func NewCounterHandler(counterService service.CounterService) *CounterHandler {
	return &CounterHandler{counterService: counterService}
}

// RegisterRoutes binds the endpoints to the gin RouterGroup. The counter is
// public: the waiting-room display runs without a session.
func (h *CounterHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/counter/last", h.GetLast)
}

// GetLast handles GET /counter/last
// @Summary      Now serving
// @Description  Returns the serving number of the most recently completed request
// @Tags         counter
// @Produce      json
// @Success      200  {object}  portal.CounterUpdate
// @Failure      404  {object}  response.ErrorBody
// @Router       /counter/last [get]
func (h *CounterHandler) GetLast(c *gin.Context) {
	last, err := h.counterService.Last(c.Request.Context())
	if errors.Is(err, service.ErrNotFound) {
		c.JSON(http.StatusNotFound, response.Error("No completed request found"))
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(err.Error()))
		return
	}
	c.JSON(http.StatusOK, last)
}
