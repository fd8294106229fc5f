package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/MauriceOS/snaktox-dispatch/internal/broadcast"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin policy is delegated to the CORS layer in front of the API.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsCommand is a client-sent topic membership change.
type wsCommand struct {
	Action string `json:"action"`
	Topic  string `json:"topic"`
}

// @Summary Subscribe to realtime dispatch events
// @Description Upgrade to a websocket. Every connection receives global incident updates; clients may join or leave per-hospital, per-responder and per-stock topics with {"action":"join","topic":"hospital:<id>"} messages.
// @Tags Realtime
// @Success 101 "Switching Protocols"
// @Failure 400 {object} map[string]string "Upgrade failed"
// @Router /ws [get]
func (h *Handler) serveWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}

	sub := h.hub.Subscribe()
	h.hub.Join(sub, broadcast.TopicIncidentGlobal)

	log := h.logger.WithField("subscriber", sub.ID)
	log.Info("Websocket client connected")

	// Writer: drains the subscriber channel until Unsubscribe closes it.
	go func() {
		defer conn.Close()
		for event := range sub.Events {
			if err := conn.WriteJSON(event); err != nil {
				log.WithError(err).Debug("Websocket write failed")
				return
			}
		}
	}()

	// Reader: handles join/leave commands and detects disconnects.
	go func() {
		defer func() {
			h.hub.Unsubscribe(sub)
			conn.Close()
			log.Info("Websocket client disconnected")
		}()
		for {
			var cmd wsCommand
			if err := conn.ReadJSON(&cmd); err != nil {
				return
			}
			if cmd.Topic == "" {
				continue
			}
			switch cmd.Action {
			case "join":
				h.hub.Join(sub, cmd.Topic)
			case "leave":
				h.hub.Leave(sub, cmd.Topic)
			}
		}
	}()
}
