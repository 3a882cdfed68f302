package handler

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/quocanhngo/devicelink/internal/ws"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // phones are native clients without an Origin
	},
}

// WSHandler handles WebSocket connections
type WSHandler struct {
	hub *ws.Hub
}

func NewWSHandler(hub *ws.Hub) *WSHandler {
	return &WSHandler{hub: hub}
}

// HandleWebSocket upgrades HTTP to WebSocket and hands the socket to the hub
// Device connects with: ws://host/ws?deviceId=<id>
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	deviceID := c.Query("deviceId")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	if deviceID == "" {
		msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "deviceId query parameter is required")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		_ = conn.Close()
		return
	}

	client := ws.NewClient(h.hub, conn, deviceID)
	log.Printf("📡 WS upgraded: device=%s remote=%s", deviceID, c.ClientIP())

	go client.PingPump()
	go client.ReadPump()
}
