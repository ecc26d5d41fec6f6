package ws

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dm-service/internal/models"
)

func TestNotifyReadTargetsOriginalSender(t *testing.T) {
	reg := NewRegistry(nil)
	sender := newFakeHandle("h2", "alice")
	reader := newFakeHandle("h3", "bob")
	reg.Register(sender)
	reg.Register(reader)

	require.True(t, NewNotifier(reg).NotifyRead("alice", "bob"))

	events := sender.received(models.EventMessagesRead)
	require.Len(t, events, 1)
	assert.Equal(t, models.ReadReceipt{SenderID: "bob"}, events[0].Data)
	assert.Empty(t, reader.received(models.EventMessagesRead))
}

func TestNotifyReadSenderOffline(t *testing.T) {
	reg := NewRegistry(nil)
	reader := newFakeHandle("h3", "bob")
	reg.Register(reader)

	assert.False(t, NewNotifier(reg).NotifyRead("alice", "bob"))
	assert.Empty(t, reader.received(models.EventMessagesRead))
}
