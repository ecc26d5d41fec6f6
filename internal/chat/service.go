package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"dm-service/internal/content"
	"dm-service/internal/filestore"
	"dm-service/internal/models"
	"dm-service/internal/observability"
	"dm-service/internal/repositories"
)

var (
	ErrEmptyMessage   = errors.New("message needs text or an image")
	ErrInvalidImage   = filestore.ErrInvalidImage
	ErrInvalidProfile = errors.New("full name and email are required")
)

// Deliverer pushes a stored message to the receiver if they are connected.
type Deliverer interface {
	Route(msg models.Message) bool
}

// ReadNotifier tells senderID that readerID has read their messages.
type ReadNotifier interface {
	NotifyRead(senderID, readerID string) bool
}

// ImageStore persists an uploaded image and returns its public URL.
type ImageStore interface {
	SaveDataURL(data string) (string, error)
}

// Service implements the message operations. Every mutation is written to
// the store before any live notification is attempted.
type Service struct {
	messages repositories.MessageRepository
	users    repositories.UserRepository
	images   ImageStore
	router   Deliverer
	notifier ReadNotifier
	tracer   trace.Tracer
}

func NewService(messages repositories.MessageRepository, users repositories.UserRepository, images ImageStore, router Deliverer, notifier ReadNotifier) *Service {
	return &Service{
		messages: messages,
		users:    users,
		images:   images,
		router:   router,
		notifier: notifier,
		tracer:   otel.Tracer("dm-service/chat"),
	}
}

// SendMessage stores a message from senderID to receiverID, then routes it.
func (s *Service) SendMessage(ctx context.Context, senderID, receiverID string, in models.SendInput) (models.Message, error) {
	ctx, span := s.tracer.Start(ctx, "chat.SendMessage", trace.WithAttributes(
		attribute.String("sender_id", senderID),
		attribute.String("receiver_id", receiverID),
	))
	defer span.End()

	text := content.Sanitize(in.Text)
	image := strings.TrimSpace(in.Image)
	if text == "" && image == "" {
		return models.Message{}, ErrEmptyMessage
	}

	if _, err := s.users.GetUser(ctx, receiverID); err != nil {
		return models.Message{}, fail(span, fmt.Errorf("load receiver: %w", err))
	}

	var imageURL string
	if image != "" {
		url, err := s.images.SaveDataURL(image)
		if err != nil {
			return models.Message{}, fail(span, fmt.Errorf("save image: %w", err))
		}
		imageURL = url
	}

	msg, err := s.messages.CreateMessage(ctx, models.Message{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Text:       text,
		Image:      imageURL,
	})
	if err != nil {
		return models.Message{}, fail(span, fmt.Errorf("store message: %w", err))
	}

	delivered := s.router.Route(msg)
	span.SetAttributes(attribute.Bool("delivered_live", delivered))
	log.Debug("message sent", "message_id", msg.ID, "sender_id", senderID, "receiver_id", receiverID, "live", delivered)

	s.publish(ctx, observability.RoutingMessageCreated, "message_created", map[string]interface{}{
		"message_id":  msg.ID,
		"sender_id":   msg.SenderID,
		"receiver_id": msg.ReceiverID,
		"has_image":   msg.Image != "",
		"live":        delivered,
	})
	return msg, nil
}

// ListMessages returns the conversation between observer and counterpart.
func (s *Service) ListMessages(ctx context.Context, observerID, counterpartID string) ([]models.Message, error) {
	ctx, span := s.tracer.Start(ctx, "chat.ListMessages")
	defer span.End()

	msgs, err := s.messages.ListConversation(ctx, observerID, counterpartID)
	if err != nil {
		return nil, fail(span, fmt.Errorf("list conversation: %w", err))
	}
	return msgs, nil
}

// MarkRead flips every unread message from senderID to readerID, then lets
// senderID know. Repeating it is harmless.
func (s *Service) MarkRead(ctx context.Context, readerID, senderID string) error {
	ctx, span := s.tracer.Start(ctx, "chat.MarkRead", trace.WithAttributes(
		attribute.String("reader_id", readerID),
		attribute.String("sender_id", senderID),
	))
	defer span.End()

	flipped, err := s.messages.MarkRead(ctx, senderID, readerID)
	if err != nil {
		return fail(span, fmt.Errorf("mark read: %w", err))
	}

	delivered := s.notifier.NotifyRead(senderID, readerID)
	span.SetAttributes(attribute.Int64("flipped", flipped), attribute.Bool("delivered_live", delivered))

	if flipped > 0 {
		s.publish(ctx, observability.RoutingMessagesRead, "messages_read", map[string]interface{}{
			"reader_id": readerID,
			"sender_id": senderID,
			"count":     flipped,
		})
	}
	return nil
}

// CreateUser adds a profile to the directory.
func (s *Service) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	user.FullName = content.Sanitize(user.FullName)
	user.Email = strings.TrimSpace(user.Email)
	user.ProfilePic = strings.TrimSpace(user.ProfilePic)
	if user.FullName == "" || user.Email == "" || !strings.Contains(user.Email, "@") {
		return models.User{}, ErrInvalidProfile
	}

	created, err := s.users.CreateUser(ctx, user)
	if err != nil {
		return models.User{}, fmt.Errorf("create user: %w", err)
	}
	return created, nil
}

func (s *Service) publish(ctx context.Context, routingKey, name string, payload map[string]interface{}) {
	err := observability.PublishEvent(ctx, routingKey, observability.EventEnvelope{
		EventType: "dm_events",
		EventName: name,
		Payload:   payload,
	}, observability.BuildHeaders("", observability.TraceID(ctx)))
	if err != nil {
		log.Warn("event publish failed", "event", name, "err", err)
	}
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
