package handlers

import (
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPongWait     = 60 * time.Second
	wsPingEvery    = wsPongWait * 9 / 10
)

// upgrader accepts the same origins as the CORS middleware plus the API's own
// host. Requests without an Origin header come from native clients.
func (h HandlerSet) upgrader() *websocket.Upgrader {
	allowed := make(map[string]struct{}, len(h.cfg.AllowCORSOrigins))
	for _, origin := range h.cfg.AllowCORSOrigins {
		allowed[strings.TrimSpace(origin)] = struct{}{}
	}
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			if _, ok := allowed[origin]; ok {
				return true
			}
			u, err := url.Parse(origin)
			return err == nil && strings.EqualFold(u.Host, r.Host)
		},
	}
}

// safeConn serializes writes; gorilla/websocket allows one concurrent writer.
type safeConn struct {
	mu sync.Mutex
	ws *websocket.Conn
}

func (c *safeConn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return c.ws.WriteJSON(v)
}

func (c *safeConn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout))
}

// WatchTracking authorizes the caller like GetTracking, then pushes the
// current snapshot followed by every update until either side hangs up.
func (h HandlerSet) WatchTracking(c *gin.Context) {
	bookingID := c.Param("id")
	current, updates, stop, err := h.bookings.Watch(c.Request.Context(), identity(c), bookingID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	defer func() {
		if err := stop(); err != nil {
			h.log.Warn().Err(err).Str("booking_id", bookingID).Msg("close tracking subscription")
		}
	}()

	ws, err := h.upgrader().Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn().Err(err).Str("booking_id", bookingID).Msg("websocket upgrade failed")
		return
	}
	conn := &safeConn{ws: ws}
	defer ws.Close()

	log := h.log.With().Str("booking_id", bookingID).Str("user_id", identity(c).ID).Logger()
	log.Debug().Msg("tracking watcher connected")

	// The reader only drains control frames and notices the disconnect.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		_ = ws.SetReadDeadline(time.Now().Add(wsPongWait))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := conn.writeJSON(current); err != nil {
		return
	}

	ticker := time.NewTicker(wsPingEvery)
	defer ticker.Stop()
	for {
		select {
		case <-closed:
			log.Debug().Msg("tracking watcher disconnected")
			return
		case <-ticker.C:
			if err := conn.ping(); err != nil {
				return
			}
		case update, ok := <-updates:
			if !ok {
				_ = conn.ws.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "tracking feed closed"),
					time.Now().Add(wsWriteTimeout))
				return
			}
			if err := conn.writeJSON(update); err != nil {
				log.Debug().Err(err).Msg("tracking push failed")
				return
			}
		}
	}
}
