package ws

import (
	"github.com/charmbracelet/log"

	"dm-service/internal/models"
	"dm-service/internal/observability"
)

// Notifier tells the author of messages that the reader has seen them.
type Notifier struct {
	registry *Registry
}

func NewNotifier(registry *Registry) *Notifier {
	return &Notifier{registry: registry}
}

// NotifyRead pushes messagesRead{senderId: readerID} to senderID's connection.
func (n *Notifier) NotifyRead(senderID, readerID string) bool {
	h, ok := n.registry.Lookup(senderID)
	if !ok {
		observability.IncPush(models.EventMessagesRead, observability.PushOffline)
		return false
	}
	event := models.ServerEvent{
		Event: models.EventMessagesRead,
		Data:  models.ReadReceipt{SenderID: readerID},
	}
	if !h.Send(event) {
		observability.IncPush(models.EventMessagesRead, observability.PushDropped)
		log.Debug("read receipt dropped", "sender_id", senderID, "reader_id", readerID)
		return false
	}
	observability.IncPush(models.EventMessagesRead, observability.PushDelivered)
	return true
}
