package pipeline

import (
	"errors"
	"io"
	"net/http"

	"leavedesk/internal/api"
	"leavedesk/internal/calendar"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Process handles POST /process: the raw request email goes in the body,
// the booking summary comes back.
func (h *Handler) Process(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil || len(raw) == 0 {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "request body must contain a raw email"})
		return
	}

	summary, err := h.service.Process(c.Request.Context(), string(raw))
	if err != nil {
		switch {
		case errors.Is(err, ErrNoDatesFound), errors.Is(err, calendar.ErrInvalidRange):
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		case errors.Is(err, calendar.ErrHolidaySourceUnavailable):
			c.JSON(http.StatusBadGateway, api.ErrorResponse{Error: err.Error()})
		default:
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, summary)
}
