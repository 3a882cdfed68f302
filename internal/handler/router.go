package handler

import (
	"github.com/gin-gonic/gin"
)

// Routes groups the handlers mounted on the router
type Routes struct {
	Pairing      *PairingHandler
	Devices      *DeviceHandler
	Commands     *CommandHandler
	WS           *WSHandler
	OperatorAuth gin.HandlerFunc
}

// Register mounts the phone-facing, operator and WebSocket routes
func (r Routes) Register(router *gin.Engine) {
	api := router.Group("/api/v1")
	{
		// Phone-facing routes
		api.POST("/pairing/scan", r.Pairing.Scan)
		api.POST("/pairing/validate", r.Pairing.Validate)
		api.GET("/pairing/sessions/:id", r.Pairing.GetSession)
		api.POST("/pairing/sessions/:id/complete", r.Pairing.Complete)
		api.POST("/devices/register", r.Devices.Register)

		// Operator routes
		ops := api.Group("")
		if r.OperatorAuth != nil {
			ops.Use(r.OperatorAuth)
		}
		{
			ops.POST("/pairing/sessions", r.Pairing.CreateSession)
			ops.GET("/pairing/sessions", r.Pairing.ListSessions)
			ops.POST("/pairing/sessions/:id/cancel", r.Pairing.Cancel)
			ops.GET("/pairing/connection-qr/:deviceId", r.Pairing.ConnectionQR)

			ops.GET("/devices", r.Devices.List)
			ops.GET("/devices/:id", r.Devices.Get)
			ops.DELETE("/devices/:id", r.Devices.Disable)
			ops.POST("/devices/:id/enable", r.Devices.Enable)
			ops.POST("/devices/:id/notify", r.Devices.Notify)

			ops.POST("/commands", r.Commands.Create)
			ops.GET("/commands/:id", r.Commands.Get)
			ops.POST("/broadcast", r.Commands.Broadcast)
		}
	}

	// WebSocket endpoint (device id via query parameter)
	router.GET("/ws", r.WS.HandleWebSocket)
}
