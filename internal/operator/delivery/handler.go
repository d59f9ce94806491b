package delivery

import (
	"errors"
	"net/http"

	"inbox-agent/internal/operator/domain"
	"inbox-agent/internal/operator/usecase"

	"github.com/gin-gonic/gin"
)

type DeviceRequest struct {
	Token      string `json:"token" binding:"required"`
	DeviceInfo string `json:"device_info"`
}

type OperatorHandler struct {
	operator usecase.OperatorUsecase
}

func NewOperatorHandler(operator usecase.OperatorUsecase) *OperatorHandler {
	return &OperatorHandler{operator: operator}
}

// RegisterDevice stores a device token for draft notifications.
// POST /api/admin/devices
func (h *OperatorHandler) RegisterDevice(c *gin.Context) {
	var req DeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.operator.RegisterDevice(c.Request.Context(), req.Token, req.DeviceInfo); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "device registered"})
}

// UnregisterDevice removes a device token.
// DELETE /api/admin/devices
func (h *OperatorHandler) UnregisterDevice(c *gin.Context) {
	var req DeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.operator.UnregisterDevice(c.Request.Context(), req.Token); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "device removed"})
}

// ListDevices returns registered devices without their tokens.
// GET /api/admin/devices
func (h *OperatorHandler) ListDevices(c *gin.Context) {
	devices, err := h.operator.ListDevices(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"devices": devices})
}

func (h *OperatorHandler) fail(c *gin.Context, err error) {
	if errors.Is(err, domain.ErrEmptyToken) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
