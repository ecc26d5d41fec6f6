package repositories

import (
	"context"
	"encoding/binary"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"dm-service/internal/models"
)

var (
	bucketUsers         = []byte("users")
	bucketEmails        = []byte("emails")
	bucketConversations = []byte("conversations")
	bucketUnread        = []byte("unread")
)

// BoltStore is an embedded single-node store implementing both
// MessageRepository and UserRepository.
type BoltStore struct {
	db  *bbolt.DB
	now func() time.Time
}

// NewBoltStore opens (or creates) the database file at path.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketUsers, bucketEmails, bucketConversations, bucketUnread} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}

	return &BoltStore{db: db, now: time.Now}, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

// CreateUser stores a profile, rejecting duplicate emails.
func (s *BoltStore) CreateUser(_ context.Context, user models.User) (models.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	record := boltUser{
		ID:         user.ID,
		FullName:   user.FullName,
		Email:      strings.ToLower(user.Email),
		ProfilePic: user.ProfilePic,
		CreatedAt:  s.now().UnixMicro(),
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		emails := tx.Bucket(bucketEmails)
		if emails.Get([]byte(record.Email)) != nil {
			return ErrEmailTaken
		}
		data, err := record.MarshalBinary()
		if err != nil {
			return err
		}
		if err := tx.Bucket(bucketUsers).Put(record.Key(), data); err != nil {
			return err
		}
		return emails.Put([]byte(record.Email), record.Key())
	})
	if err != nil {
		return models.User{}, err
	}
	return record.model(), nil
}

// GetUser fetches a profile by id.
func (s *BoltStore) GetUser(_ context.Context, userID string) (models.User, error) {
	var record boltUser
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketUsers).Get([]byte(userID))
		if data == nil {
			return ErrUserNotFound
		}
		return record.UnmarshalBinary(data)
	})
	if err != nil {
		return models.User{}, err
	}
	return record.model(), nil
}

// ListUsersExcept returns every profile other than userID ordered by name.
func (s *BoltStore) ListUsersExcept(_ context.Context, userID string) ([]models.User, error) {
	users := []models.User{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketUsers).ForEach(func(k, v []byte) error {
			if string(k) == userID {
				return nil
			}
			var record boltUser
			if err := record.UnmarshalBinary(v); err != nil {
				return err
			}
			users = append(users, record.model())
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(users, func(i, j int) bool {
		if users[i].FullName != users[j].FullName {
			return users[i].FullName < users[j].FullName
		}
		return users[i].ID < users[j].ID
	})
	return users, nil
}

// CreateMessage appends the message to its conversation and bumps the
// receiver's unread counter in the same transaction.
func (s *BoltStore) CreateMessage(_ context.Context, msg models.Message) (models.Message, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	record := boltMessage{
		ID:         msg.ID,
		SenderID:   msg.SenderID,
		ReceiverID: msg.ReceiverID,
		Text:       msg.Text,
		Image:      msg.Image,
		CreatedAt:  s.now().UnixMicro(),
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		conv, err := tx.Bucket(bucketConversations).CreateBucketIfNotExists(conversationKey(msg.SenderID, msg.ReceiverID))
		if err != nil {
			return fmt.Errorf("create conversation bucket: %w", err)
		}
		seq, err := conv.NextSequence()
		if err != nil {
			return err
		}
		data, err := record.MarshalBinary()
		if err != nil {
			return err
		}
		if err := conv.Put(seqKey(seq), data); err != nil {
			return err
		}

		unread, err := tx.Bucket(bucketUnread).CreateBucketIfNotExists([]byte(msg.ReceiverID))
		if err != nil {
			return fmt.Errorf("create unread bucket: %w", err)
		}
		return unread.Put([]byte(msg.SenderID), seqKey(counterValue(unread.Get([]byte(msg.SenderID)))+1))
	})
	if err != nil {
		return models.Message{}, err
	}
	return record.model(), nil
}

// ListConversation returns messages exchanged between two users in insertion order.
func (s *BoltStore) ListConversation(_ context.Context, userID, otherID string) ([]models.Message, error) {
	msgs := []models.Message{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		conv := tx.Bucket(bucketConversations).Bucket(conversationKey(userID, otherID))
		if conv == nil {
			return nil
		}
		return conv.ForEach(func(_, v []byte) error {
			var record boltMessage
			if err := record.UnmarshalBinary(v); err != nil {
				return err
			}
			msgs = append(msgs, record.model())
			return nil
		})
	})
	return msgs, err
}

// MarkRead flips every unread message from sender to receiver in one transaction.
func (s *BoltStore) MarkRead(_ context.Context, senderID, receiverID string) (int64, error) {
	var flipped int64
	err := s.db.Update(func(tx *bbolt.Tx) error {
		conv := tx.Bucket(bucketConversations).Bucket(conversationKey(senderID, receiverID))
		if conv == nil {
			return nil
		}

		updates := map[string][]byte{}
		err := conv.ForEach(func(k, v []byte) error {
			var record boltMessage
			if err := record.UnmarshalBinary(v); err != nil {
				return err
			}
			if record.IsRead || record.SenderID != senderID || record.ReceiverID != receiverID {
				return nil
			}
			record.IsRead = true
			data, err := record.MarshalBinary()
			if err != nil {
				return err
			}
			updates[string(k)] = data
			return nil
		})
		if err != nil {
			return err
		}
		for k, data := range updates {
			if err := conv.Put([]byte(k), data); err != nil {
				return err
			}
		}
		flipped = int64(len(updates))

		if unread := tx.Bucket(bucketUnread).Bucket([]byte(receiverID)); unread != nil {
			return unread.Delete([]byte(senderID))
		}
		return nil
	})
	return flipped, err
}

// UnreadCounts returns, per sender, the number of unread messages addressed to receiver.
func (s *BoltStore) UnreadCounts(_ context.Context, receiverID string) (map[string]int, error) {
	counts := map[string]int{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		unread := tx.Bucket(bucketUnread).Bucket([]byte(receiverID))
		if unread == nil {
			return nil
		}
		return unread.ForEach(func(k, v []byte) error {
			if n := counterValue(v); n > 0 {
				counts[string(k)] = int(n)
			}
			return nil
		})
	})
	return counts, err
}

// conversationKey is the same for both directions of a pair.
func conversationKey(a, b string) []byte {
	if b < a {
		a, b = b, a
	}
	return []byte(a + "\x00" + b)
}

func seqKey(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func counterValue(b []byte) uint64 {
	if len(b) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}
