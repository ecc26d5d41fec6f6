package telemetry

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"dm-service/internal/observability"
)

const auditSchemaVersion = 1

// Publisher is the broker side of audit emission.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any, headers map[string]string) error
}

// AuditEnvelope is one audit_log record.
type AuditEnvelope struct {
	SchemaVersion int          `json:"schema_version"`
	EventType     string       `json:"event_type"`
	OccurredAt    time.Time    `json:"occurred_at"`
	Service       string       `json:"service"`
	Environment   string       `json:"environment"`
	RequestID     string       `json:"request_id"`
	TraceID       string       `json:"trace_id,omitempty"`
	UserID        *string      `json:"user_id,omitempty"`
	Payload       AuditPayload `json:"payload"`
}

type AuditPayload struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

// AuditEmitter records user initiated operations on the audit routing key.
type AuditEmitter struct {
	publisher   Publisher
	routingKey  string
	service     string
	environment string
	now         func() time.Time
}

func NewAuditEmitter(publisher Publisher, routingKey, service, environment string) *AuditEmitter {
	return &AuditEmitter{
		publisher:   publisher,
		routingKey:  routingKey,
		service:     service,
		environment: environment,
		now:         time.Now,
	}
}

// Emit publishes one record. A nil emitter does nothing; publish failures
// are logged and swallowed.
func (e *AuditEmitter) Emit(ctx context.Context, level, text, requestID string, userID *string) {
	if e == nil || e.publisher == nil {
		return
	}

	envelope := e.envelope(ctx, level, text, requestID, userID)
	headers := observability.BuildHeaders(requestID, envelope.TraceID)
	if err := e.publisher.Publish(ctx, e.routingKey, envelope, headers); err != nil {
		log.Warn("audit publish failed", "request_id", requestID, "err", err)
		return
	}
	log.Debug("audit emitted", "level", level, "request_id", requestID)
}

func (e *AuditEmitter) envelope(ctx context.Context, level, text, requestID string, userID *string) AuditEnvelope {
	return AuditEnvelope{
		SchemaVersion: auditSchemaVersion,
		EventType:     "audit_log",
		OccurredAt:    e.now().UTC(),
		Service:       e.service,
		Environment:   e.environment,
		RequestID:     requestID,
		TraceID:       observability.TraceID(ctx),
		UserID:        userID,
		Payload:       AuditPayload{Level: level, Text: text},
	}
}
