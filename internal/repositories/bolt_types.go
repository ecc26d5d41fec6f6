package repositories

import (
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"dm-service/internal/models"
)

type boltUser struct {
	ID         string `msgpack:"id"`
	FullName   string `msgpack:"fullName"`
	Email      string `msgpack:"email"`
	ProfilePic string `msgpack:"profilePic"`
	CreatedAt  int64  `msgpack:"createdAt"`
}

func (u *boltUser) Key() []byte {
	return []byte(u.ID)
}

func (u *boltUser) MarshalBinary() ([]byte, error) {
	type alias boltUser
	return msgpack.Marshal((*alias)(u))
}

func (u *boltUser) UnmarshalBinary(data []byte) error {
	type alias boltUser
	return msgpack.Unmarshal(data, (*alias)(u))
}

func (u *boltUser) model() models.User {
	return models.User{
		ID:         u.ID,
		FullName:   u.FullName,
		Email:      u.Email,
		ProfilePic: u.ProfilePic,
		CreatedAt:  time.UnixMicro(u.CreatedAt).UTC(),
	}
}

type boltMessage struct {
	ID         string `msgpack:"id"`
	SenderID   string `msgpack:"senderId"`
	ReceiverID string `msgpack:"receiverId"`
	Text       string `msgpack:"text"`
	Image      string `msgpack:"image"`
	IsRead     bool   `msgpack:"isRead"`
	CreatedAt  int64  `msgpack:"createdAt"`
}

func (m *boltMessage) MarshalBinary() ([]byte, error) {
	type alias boltMessage
	return msgpack.Marshal((*alias)(m))
}

func (m *boltMessage) UnmarshalBinary(data []byte) error {
	type alias boltMessage
	return msgpack.Unmarshal(data, (*alias)(m))
}

func (m *boltMessage) model() models.Message {
	return models.Message{
		ID:         m.ID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Text:       m.Text,
		Image:      m.Image,
		IsRead:     m.IsRead,
		CreatedAt:  time.UnixMicro(m.CreatedAt).UTC(),
	}
}
