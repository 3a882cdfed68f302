package handler

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quocanhngo/devicelink/internal/model"
	"github.com/quocanhngo/devicelink/internal/service"
	"github.com/quocanhngo/devicelink/internal/ws"
)

const pushTimeout = 10 * time.Second

// DeviceHandler handles device registry endpoints
type DeviceHandler struct {
	registry *service.DeviceRegistry
	hub      *ws.Hub
	push     service.PushSender
}

// NewDeviceHandler creates a device handler; push may be nil
func NewDeviceHandler(registry *service.DeviceRegistry, hub *ws.Hub, push service.PushSender) *DeviceHandler {
	return &DeviceHandler{
		registry: registry,
		hub:      hub,
		push:     push,
	}
}

func (h *DeviceHandler) toResponse(d model.Device) model.DeviceResponse {
	return model.DeviceResponse{
		Device:    d,
		Online:    h.registry.IsOnline(d.DeviceID),
		Connected: h.hub.IsConnected(d.DeviceID),
	}
}

// Register godoc
// @Summary Register or refresh a device
// @Description Registering does not mark the device online; only activity does.
// @Tags Devices
// @Accept json
// @Produce json
// @Param body body model.RegisterDeviceRequest true "Device info"
// @Success 200 {object} model.DeviceResponse
// @Failure 400 {object} model.ErrorResponse
// @Router /devices/register [post]
func (h *DeviceHandler) Register(c *gin.Context) {
	var req model.RegisterDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	device, err := h.registry.Register(req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.toResponse(*device))
}

// List godoc
// @Summary List registered devices
// @Tags Devices
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filter by status" Enums(active, inactive, disabled)
// @Success 200 {array} model.DeviceResponse
// @Failure 400 {object} model.ErrorResponse
// @Router /devices [get]
func (h *DeviceHandler) List(c *gin.Context) {
	devices, err := h.registry.List(model.DeviceStatus(c.Query("status")))
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]model.DeviceResponse, 0, len(devices))
	for _, d := range devices {
		resp = append(resp, h.toResponse(d))
	}
	c.JSON(http.StatusOK, resp)
}

// Get godoc
// @Summary Get a device
// @Tags Devices
// @Produce json
// @Security BearerAuth
// @Param id path string true "Device ID"
// @Success 200 {object} model.DeviceResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /devices/{id} [get]
func (h *DeviceHandler) Get(c *gin.Context) {
	device, err := h.registry.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.toResponse(*device))
}

// Disable godoc
// @Summary Disable a device (soft delete)
// @Tags Devices
// @Produce json
// @Security BearerAuth
// @Param id path string true "Device ID"
// @Success 200 {object} model.SuccessResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /devices/{id} [delete]
func (h *DeviceHandler) Disable(c *gin.Context) {
	if err := h.registry.Disable(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.SuccessResponse{Message: "Device disabled"})
}

// Enable godoc
// @Summary Re-enable a disabled device
// @Tags Devices
// @Produce json
// @Security BearerAuth
// @Param id path string true "Device ID"
// @Success 200 {object} model.SuccessResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /devices/{id}/enable [post]
func (h *DeviceHandler) Enable(c *gin.Context) {
	if err := h.registry.Enable(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.SuccessResponse{Message: "Device enabled"})
}

// Notify godoc
// @Summary Send a notification to one device
// @Description Written to the live socket when there is one, otherwise pushed through FCM when the device has a token.
// @Tags Devices
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Device ID"
// @Param body body model.NotifyDeviceRequest true "Notification"
// @Success 200 {object} model.NotifyDeviceResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /devices/{id}/notify [post]
func (h *DeviceHandler) Notify(c *gin.Context) {
	var req model.NotifyDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	device, err := h.registry.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	resp := model.NotifyDeviceResponse{
		Delivered: h.hub.NotifyGeneric(device.DeviceID, req.Title, req.Body, req.Data),
	}
	if !resp.Delivered && h.push != nil && device.PushToken != "" {
		ctx, cancel := context.WithTimeout(c.Request.Context(), pushTimeout)
		defer cancel()
		if err := h.push.SendPush(ctx, device.PushToken, req.Title, req.Body, map[string]string{"type": model.WSTypeNotification}); err != nil {
			log.Printf("⚠️  Push to %s failed: %v", device.DeviceID, err)
		} else {
			resp.Pushed = true
		}
	}

	c.JSON(http.StatusOK, resp)
}
