package websocket

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"purepresenter/internal/infrastructure"
	"purepresenter/internal/middleware"
)

// Handler upgrades HTTP requests to the status stream
type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHandler creates the /ws handler. Requests without an Origin header come
// from native clients and are always accepted; browser origins must match
// allowedOrigins, with any port.
func NewHandler(hub *Hub, allowedOrigins []string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return middleware.OriginAllowed(r.Header.Get("Origin"), allowedOrigins)
			},
		},
		logger: logger.With(slog.String("component", "websocket.handler")),
	}
}

// ServeHTTP handles websocket requests from the peer
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := infrastructure.EnsureTraceID(r.Context())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error
		h.logger.WarnContext(ctx, "WebSocket upgrade failed",
			slog.String("remote_addr", r.RemoteAddr),
			slog.String("origin", r.Header.Get("Origin")),
			slog.String("error", err.Error()))
		return
	}

	client := NewClient(h.hub, WrapConn(conn), infrastructure.GetTraceID(ctx), h.logger)
	client.Serve(ctx)
}
