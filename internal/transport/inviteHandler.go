package transport

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Emmanuelayeni3000/ELIVRA-sub000/internal/entity"
	"github.com/Emmanuelayeni3000/ELIVRA-sub000/internal/service"
	"github.com/Emmanuelayeni3000/ELIVRA-sub000/internal/transport/middleware"
	"github.com/gin-gonic/gin"
)

const maxImportSize = 5 << 20

type InviteHandler struct {
	inviteService service.InviteService
}

func NewInviteHandler(inviteService service.InviteService) *InviteHandler {
	return &InviteHandler{inviteService: inviteService}
}

type SendBulkRequest struct {
	InviteIDs []string `json:"inviteIds" binding:"required,min=1,max=500"`
}

func (h *InviteHandler) GetEventInvites(c *gin.Context) {
	invites, err := h.inviteService.GetEventInvites(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, invites)
}

func (h *InviteHandler) CreateInvite(c *gin.Context) {
	var req service.CreateInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	invite, err := h.inviteService.CreateInvite(c.Request.Context(), middleware.UserID(c), c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, invite)
}

func (h *InviteHandler) UpdateInvite(c *gin.Context) {
	var req service.UpdateInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	invite, err := h.inviteService.UpdateInvite(c.Request.Context(), middleware.UserID(c), c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, invite)
}

func (h *InviteHandler) DeleteInvite(c *gin.Context) {
	if err := h.inviteService.DeleteInvite(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "invite deleted"})
}

func (h *InviteHandler) GetInviteQR(c *gin.Context) {
	qr, err := h.inviteService.GetInviteQR(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, qr)
}

// ImportInvites accepts either a multipart upload in field "file" or a
// raw text/csv body.
func (h *InviteHandler) ImportInvites(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImportSize)

	var body io.Reader = c.Request.Body
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		header, err := c.FormFile("file")
		if err != nil {
			respondError(c, entity.NewValidationError(entity.CodeInvalidInput, "csv file is required in field \"file\""))
			return
		}
		file, err := header.Open()
		if err != nil {
			respondError(c, fmt.Errorf("failed to open upload: %w", err))
			return
		}
		defer file.Close()
		body = file
	}

	result, err := h.inviteService.ImportInvites(c.Request.Context(), middleware.UserID(c), c.Param("id"), body)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *InviteHandler) ExportInvites(c *gin.Context) {
	eventID := c.Param("id")

	var buf bytes.Buffer
	if err := h.inviteService.ExportInvites(c.Request.Context(), middleware.UserID(c), eventID, &buf); err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"guests-%s.csv\"", eventID))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func (h *InviteHandler) SendEventInvitations(c *gin.Context) {
	result, err := h.inviteService.SendEventInvitations(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *InviteHandler) SendBulkInvitations(c *gin.Context) {
	var req SendBulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.inviteService.SendBulkInvitations(c.Request.Context(), middleware.UserID(c), req.InviteIDs)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
