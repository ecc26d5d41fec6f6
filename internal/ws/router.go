package ws

import (
	"github.com/charmbracelet/log"

	"dm-service/internal/models"
	"dm-service/internal/observability"
)

// Router pushes freshly stored messages to the receiver's live connection.
type Router struct {
	registry *Registry
}

func NewRouter(registry *Registry) *Router {
	return &Router{registry: registry}
}

// Route reports whether msg was handed to a live connection. An offline
// receiver is not an error: the message is picked up on the next fetch.
func (r *Router) Route(msg models.Message) bool {
	h, ok := r.registry.Lookup(msg.ReceiverID)
	if !ok {
		observability.IncPush(models.EventNewMessage, observability.PushOffline)
		return false
	}
	if !h.Send(models.ServerEvent{Event: models.EventNewMessage, Data: msg}) {
		observability.IncPush(models.EventNewMessage, observability.PushDropped)
		log.Debug("message push dropped", "receiver_id", msg.ReceiverID, "message_id", msg.ID)
		return false
	}
	observability.IncPush(models.EventNewMessage, observability.PushDelivered)
	return true
}
