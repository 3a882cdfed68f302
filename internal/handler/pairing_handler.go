package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quocanhngo/devicelink/internal/model"
	"github.com/quocanhngo/devicelink/internal/service"
	"github.com/quocanhngo/devicelink/internal/ws"
	"github.com/quocanhngo/devicelink/pkg/qr"
)

// PairingHandler handles the QR pairing endpoints
type PairingHandler struct {
	pairing   *service.PairingService
	registry  *service.DeviceRegistry
	codec     *qr.Codec
	hub       *ws.Hub
	serverURL string
}

func NewPairingHandler(pairing *service.PairingService, registry *service.DeviceRegistry, codec *qr.Codec, hub *ws.Hub, serverURL string) *PairingHandler {
	return &PairingHandler{
		pairing:   pairing,
		registry:  registry,
		codec:     codec,
		hub:       hub,
		serverURL: serverURL,
	}
}

// CreateSession godoc
// @Summary Open a pairing session and render its QR code
// @Tags Pairing
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body model.CreatePairingRequest false "Optional server URL override"
// @Success 201 {object} model.CreatePairingResponse
// @Failure 400 {object} model.ErrorResponse
// @Router /pairing/sessions [post]
func (h *PairingHandler) CreateSession(c *gin.Context) {
	var req model.CreatePairingRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, err)
		return
	}

	resp, err := h.pairing.CreateSession(req.ServerURL)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// ListSessions godoc
// @Summary List unexpired pairing sessions
// @Tags Pairing
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.PairingSession
// @Router /pairing/sessions [get]
func (h *PairingHandler) ListSessions(c *gin.Context) {
	c.JSON(http.StatusOK, h.pairing.ActiveSessions())
}

// GetSession godoc
// @Summary Get pairing session status
// @Tags Pairing
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} model.PairingSession
// @Failure 404 {object} model.ErrorResponse
// @Router /pairing/sessions/{id} [get]
func (h *PairingHandler) GetSession(c *gin.Context) {
	session, err := h.pairing.GetStatus(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// Scan godoc
// @Summary Bind the scanning phone to a pairing session
// @Description Accepts either a session id or the raw scanned QR payload.
// @Tags Pairing
// @Accept json
// @Produce json
// @Param body body model.ScanRequest true "Scan request"
// @Success 200 {object} model.PairingSession
// @Failure 400 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Failure 409 {object} model.ErrorResponse
// @Failure 410 {object} model.ErrorResponse
// @Router /pairing/scan [post]
func (h *PairingHandler) Scan(c *gin.Context) {
	var req model.ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	var (
		session *model.PairingSession
		err     error
	)
	if req.SessionID != "" {
		session, err = h.pairing.Scan(req.SessionID, req.PhoneInfo)
	} else {
		session, err = h.pairing.ScanQR(req.QRData, req.PhoneInfo)
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// Complete godoc
// @Summary Complete a scanned pairing session
// @Tags Pairing
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} model.PairingSession
// @Failure 404 {object} model.ErrorResponse
// @Failure 409 {object} model.ErrorResponse
// @Router /pairing/sessions/{id}/complete [post]
func (h *PairingHandler) Complete(c *gin.Context) {
	session, err := h.pairing.Complete(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	if session.PairedDevice != nil {
		h.hub.NotifyPairingComplete(session.PairedDevice.DeviceID, session.SessionID)
	}
	c.JSON(http.StatusOK, session)
}

// Cancel godoc
// @Summary Fail a pairing session
// @Tags Pairing
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Param body body model.CancelPairingRequest false "Reason"
// @Success 200 {object} model.PairingSession
// @Failure 404 {object} model.ErrorResponse
// @Failure 409 {object} model.ErrorResponse
// @Router /pairing/sessions/{id}/cancel [post]
func (h *PairingHandler) Cancel(c *gin.Context) {
	var req model.CancelPairingRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, err)
		return
	}
	if req.Reason == "" {
		req.Reason = "cancelled by operator"
	}

	session, err := h.pairing.Fail(c.Param("id"), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// Validate godoc
// @Summary Check whether scanned QR data is a usable payload
// @Tags Pairing
// @Accept json
// @Produce json
// @Param body body model.ValidateQRRequest true "QR data"
// @Success 200 {object} model.ValidateQRResponse
// @Failure 400 {object} model.ErrorResponse
// @Router /pairing/validate [post]
func (h *PairingHandler) Validate(c *gin.Context) {
	var req model.ValidateQRRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	c.JSON(http.StatusOK, model.ValidateQRResponse{Valid: h.codec.Validate(req.QRData)})
}

// ConnectionQR godoc
// @Summary Render a reconnection QR code for a registered device
// @Tags Pairing
// @Produce json
// @Security BearerAuth
// @Param deviceId path string true "Device ID"
// @Success 200 {object} model.ConnectionQRResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /pairing/connection-qr/{deviceId} [get]
func (h *PairingHandler) ConnectionQR(c *gin.Context) {
	deviceID := c.Param("deviceId")
	if _, err := h.registry.Get(deviceID); err != nil {
		respondError(c, err)
		return
	}

	encoded, err := h.codec.EncodeConnection(deviceID, h.serverURL)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.ConnectionQRResponse{
		DeviceID:  deviceID,
		QRImage:   encoded.Image,
		QRPayload: encoded.Payload,
	})
}
