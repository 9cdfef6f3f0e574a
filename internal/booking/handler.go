package booking

import (
	"net/http"
	"time"

	"leavedesk/internal/api"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Book handles POST /holidays/book. The outcome taxonomy maps onto status
// codes: booked 201, already booked 200, rejected 409 (503 when transient).
func (h *Handler) Book(c *gin.Context) {
	var req BookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid request body"})
		return
	}

	if errs := api.ValidateStruct(req); len(errs) > 0 {
		api.RespondWithValidationErrors(c, errs)
		return
	}

	day, err := time.Parse("2006-01-02", req.Day)
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid day"})
		return
	}

	outcome := h.service.Book(c.Request.Context(), req.Email, day)

	status := http.StatusOK
	switch {
	case outcome.Status == StatusBooked:
		status = http.StatusCreated
	case outcome.Rejected() && outcome.Transient:
		status = http.StatusServiceUnavailable
	case outcome.Rejected():
		status = http.StatusConflict
	}

	c.JSON(status, BookResponse{Email: req.Email, Outcome: outcome})
}

// RemainingAllowance handles GET /holidays/:email/remaining.
func (h *Handler) RemainingAllowance(c *gin.Context) {
	email := c.Param("email")

	remaining, err := h.service.RemainingAllowance(c.Request.Context(), email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to read allowance"})
		return
	}

	c.JSON(http.StatusOK, AllowanceResponse{Email: email, RemainingDays: remaining})
}

// DisplayName handles GET /holidays/:email/name.
func (h *Handler) DisplayName(c *gin.Context) {
	email := c.Param("email")

	name, err := h.service.DisplayName(c.Request.Context(), email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to resolve name"})
		return
	}

	c.JSON(http.StatusOK, NameResponse{Email: email, Name: name})
}

// BookedDays handles GET /holidays/:email.
func (h *Handler) BookedDays(c *gin.Context) {
	email := c.Param("email")

	days, err := h.service.BookedDays(c.Request.Context(), email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to fetch booked days"})
		return
	}

	formatted := make([]string, 0, len(days))
	for _, d := range days {
		formatted = append(formatted, d.Format("2006-01-02"))
	}

	c.JSON(http.StatusOK, BookedDaysResponse{Email: email, Days: formatted})
}

// ResetAllowance handles POST /holidays/:email/reset.
func (h *Handler) ResetAllowance(c *gin.Context) {
	email := c.Param("email")

	if err := h.service.ResetAllowance(c.Request.Context(), email); err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to reset allowance"})
		return
	}

	c.JSON(http.StatusOK, api.MessageResponse{Message: "allowance reset"})
}
