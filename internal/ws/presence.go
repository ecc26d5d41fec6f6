package ws

import (
	"github.com/charmbracelet/log"

	"dm-service/internal/models"
	"dm-service/internal/observability"
)

// PresenceBroadcaster sends the full online snapshot to every registered peer.
type PresenceBroadcaster struct{}

func NewPresenceBroadcaster() *PresenceBroadcaster {
	return &PresenceBroadcaster{}
}

func (b *PresenceBroadcaster) PresenceChanged(online []string, peers []Handle) {
	observability.SetOnlineUsers(len(online))
	event := models.ServerEvent{Event: models.EventGetOnlineUsers, Data: online}
	for _, peer := range peers {
		if peer.Send(event) {
			observability.IncPush(models.EventGetOnlineUsers, observability.PushDelivered)
			continue
		}
		observability.IncPush(models.EventGetOnlineUsers, observability.PushDropped)
		log.Debug("presence push dropped", "user_id", peer.UserID(), "conn_id", peer.ID())
	}
}
