package observability

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

// PublishTimeout bounds a single broker publish. Events are best effort and
// must not hold up the request that produced them.
const PublishTimeout = 2 * time.Second

// Publisher delivers JSON events to the message broker.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any, headers map[string]string) error
}

type publisherHolder struct {
	Publisher
}

var current atomic.Pointer[publisherHolder]

// SetPublisher installs the process-wide publisher. nil disables publishing.
func SetPublisher(publisher Publisher) {
	if publisher == nil {
		current.Store(nil)
		return
	}
	current.Store(&publisherHolder{Publisher: publisher})
}

// PublishEvent sends event through the process-wide publisher. The publish
// outlives a cancelled caller context but not PublishTimeout.
func PublishEvent(ctx context.Context, routingKey string, event any, headers map[string]string) error {
	holder := current.Load()
	if holder == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), PublishTimeout)
	defer cancel()

	if err := holder.Publish(ctx, routingKey, event, headers); err != nil {
		IncAMQPPublishError()
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	return nil
}
