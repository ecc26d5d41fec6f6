package ws

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"dm-service/internal/observability"
)

// SocketHandler upgrades GET /socket?userId=<id> and registers the connection.
type SocketHandler struct {
	registry *Registry
	marker   ReadMarker
	upgrader websocket.Upgrader
	opts     ClientOptions

	mu      sync.Mutex
	clients map[*Client]struct{}
	closing bool
	running sync.WaitGroup
}

// NewSocketHandler constructs a SocketHandler. Browser origins are checked
// against allowedOrigins; "*" allows any origin.
func NewSocketHandler(registry *Registry, marker ReadMarker, allowedOrigins []string, opts ClientOptions) *SocketHandler {
	return &SocketHandler{
		registry: registry,
		marker:   marker,
		upgrader: websocket.Upgrader{CheckOrigin: checkOrigin(allowedOrigins)},
		opts:     opts,
		clients:  make(map[*Client]struct{}),
	}
}

func checkOrigin(allowedOrigins []string) func(r *http.Request) bool {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		return allowed["*"] || allowed[origin]
	}
}

// Handle upgrades the connection, registers it and serves it until disconnect.
func (h *SocketHandler) Handle(c *gin.Context) {
	userID := strings.TrimSpace(c.Query("userId"))
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing userId"})
		return
	}

	ctx, span := otel.Tracer("dm-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Debug("websocket upgrade failed", "user_id", userID, "err", err)
		return
	}

	meta := observability.ClientMetaFromRequest(c.Request)
	info := ConnInfo{
		ConnID:      uuid.NewString(),
		UserID:      userID,
		DeviceID:    meta.DeviceID,
		IP:          meta.IP,
		RequestID:   meta.RequestID,
		TraceID:     observability.TraceID(ctx),
		ConnectedAt: time.Now(),
	}
	client := NewClient(conn, info, h.opts)
	if !h.track(client) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"), time.Now().Add(time.Second))
		_ = conn.Close()
		return
	}
	h.registry.Register(client)

	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")
	publishLifecycle(ctx, info, "ws_connect", "")
	log.Info("websocket connected", "user_id", userID, "conn_id", info.ConnID)

	// The request context ends with this handler; the connection outlives it.
	runCtx := context.WithoutCancel(ctx)
	go func() {
		defer h.untrack(client)
		err := client.Run(runCtx, h.marker)
		h.registry.Unregister(client)

		var reason string
		if err != nil {
			reason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent("ws_error")
			}
		}
		observability.DecWSActive()
		observability.IncWSEvent("ws_disconnect")
		publishLifecycle(runCtx, info, "ws_disconnect", reason)
		log.Info("websocket disconnected", "user_id", userID, "conn_id", info.ConnID, "reason", reason)
	}()
}

func (h *SocketHandler) track(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closing {
		return false
	}
	h.clients[c] = struct{}{}
	h.running.Add(1)
	return true
}

func (h *SocketHandler) untrack(c *Client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	h.running.Done()
}

// Shutdown refuses new connections, closes the open ones and waits until
// each has stopped reading and left the registry. Hijacked connections are
// not covered by http.Server.Shutdown, so this must run before the store
// behind the ReadMarker is closed.
func (h *SocketHandler) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.closing = true
	for c := range h.clients {
		c.Close()
	}
	h.mu.Unlock()

	done := make(chan struct{})
	go func() {
		h.running.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func publishLifecycle(ctx context.Context, info ConnInfo, event, reason string) {
	_ = observability.PublishEvent(ctx, observability.RoutingWS, observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload:   info.payload(event, reason),
	}, observability.BuildHeaders(info.RequestID, info.TraceID))
}
