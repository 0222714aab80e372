package transport

import (
	"net/http"

	"github.com/Emmanuelayeni3000/ELIVRA-sub000/internal/service"
	"github.com/gin-gonic/gin"
)

// RSVPHandler serves the guest side; the token in the path is the only
// credential.
type RSVPHandler struct {
	rsvpService service.RSVPService
}

func NewRSVPHandler(rsvpService service.RSVPService) *RSVPHandler {
	return &RSVPHandler{rsvpService: rsvpService}
}

func (h *RSVPHandler) GetRSVP(c *gin.Context) {
	details, err := h.rsvpService.GetRSVP(c.Request.Context(), c.Param("token"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, details)
}

func (h *RSVPHandler) SubmitRSVP(c *gin.Context) {
	var req service.SubmitRSVPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.rsvpService.SubmitRSVP(c.Request.Context(), c.Param("token"), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *RSVPHandler) GetCompanionInvite(c *gin.Context) {
	view, err := h.rsvpService.GetCompanionInvite(c.Request.Context(), c.Param("token"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}
