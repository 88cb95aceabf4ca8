package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // allow all origins
	},
}

// ServeWS upgrades the request and runs the connection's pumps. The
// participant is not part of the roster until it sends user_joined.
func ServeWS(board *Board) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Error("websocket upgrade", "err", err)
			return
		}

		client := newClient(conn, board)
		go client.writePump()
		client.readPump()
	}
}

// Router builds the relay's HTTP surface: the websocket endpoint, a
// health probe, and optionally the static browser assets.
func Router(board *Board, staticDir string) *gin.Engine {
	r := gin.Default()

	r.GET("/ws", ServeWS(board))
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"sessions": len(board.Users())})
	})

	if staticDir != "" {
		r.Static("/static", staticDir)
		r.GET("/", func(c *gin.Context) {
			c.File(staticDir + "/index.html")
		})
	}

	return r
}
