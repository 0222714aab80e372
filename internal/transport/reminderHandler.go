package transport

import (
	"net/http"

	"github.com/Emmanuelayeni3000/ELIVRA-sub000/internal/service"
	"github.com/Emmanuelayeni3000/ELIVRA-sub000/internal/transport/middleware"
	"github.com/gin-gonic/gin"
)

type ReminderHandler struct {
	reminderService service.ReminderService
}

func NewReminderHandler(reminderService service.ReminderService) *ReminderHandler {
	return &ReminderHandler{reminderService: reminderService}
}

func (h *ReminderHandler) SendReminders(c *gin.Context) {
	var req service.SendRemindersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.reminderService.SendReminders(c.Request.Context(), middleware.UserID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *ReminderHandler) GetEventReminders(c *gin.Context) {
	reminders, err := h.reminderService.GetEventReminders(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, reminders)
}
