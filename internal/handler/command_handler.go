package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quocanhngo/devicelink/internal/model"
	"github.com/quocanhngo/devicelink/internal/service"
	"github.com/quocanhngo/devicelink/internal/ws"
)

// CommandHandler handles task commands and broadcasts
type CommandHandler struct {
	dispatcher *service.Dispatcher
	hub        *ws.Hub
}

func NewCommandHandler(dispatcher *service.Dispatcher, hub *ws.Hub) *CommandHandler {
	return &CommandHandler{
		dispatcher: dispatcher,
		hub:        hub,
	}
}

// Create godoc
// @Summary Start a task for a device
// @Description The task runs asynchronously; its progress and result are pushed over the device's socket.
// @Tags Commands
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body model.CommandRequest true "Command"
// @Success 202 {object} model.Task
// @Failure 400 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /commands [post]
func (h *CommandHandler) Create(c *gin.Context) {
	var req model.CommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	task, err := h.dispatcher.AcceptCommand(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, task)
}

// Get godoc
// @Summary Get a task
// @Tags Commands
// @Produce json
// @Security BearerAuth
// @Param id path string true "Task ID"
// @Success 200 {object} model.Task
// @Failure 404 {object} model.ErrorResponse
// @Router /commands/{id} [get]
func (h *CommandHandler) Get(c *gin.Context) {
	task, err := h.dispatcher.GetTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, task)
}

// Broadcast godoc
// @Summary Notify every connected device
// @Tags Commands
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body model.BroadcastRequest true "Notification"
// @Success 200 {object} model.BroadcastResponse
// @Failure 400 {object} model.ErrorResponse
// @Router /broadcast [post]
func (h *CommandHandler) Broadcast(c *gin.Context) {
	var req model.BroadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	n := h.hub.Broadcast(model.WSTypeNotification, model.NotificationEvent{
		Title: req.Title,
		Body:  req.Body,
		Data:  req.Data,
	})
	c.JSON(http.StatusOK, model.BroadcastResponse{Delivered: n})
}
