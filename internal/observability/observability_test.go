package observability

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"dm-service/internal/mocks"
)

func TestPublishEventWithoutPublisher(t *testing.T) {
	SetPublisher(nil)
	require.NoError(t, PublishEvent(context.Background(), "k", "v", nil))
}

func TestPublishEventDelegates(t *testing.T) {
	pub := new(mocks.PublisherMock)
	SetPublisher(pub)
	t.Cleanup(func() { SetPublisher(nil) })

	headers := BuildHeaders("req-1", "")
	pub.On("Publish", mock.Anything, RoutingMessagesRead, "payload", headers).Return(assert.AnError).Once()

	err := PublishEvent(context.Background(), RoutingMessagesRead, "payload", headers)
	require.ErrorIs(t, err, assert.AnError)
	pub.AssertExpectations(t)
}

func TestBuildHeaders(t *testing.T) {
	assert.Empty(t, BuildHeaders("", ""))
	assert.Equal(t, map[string]string{"x-request-id": "r", "trace_id": "t"}, BuildHeaders("r", "t"))
}

func TestTraceID(t *testing.T) {
	assert.Empty(t, TraceID(context.Background()))

	traceID := trace.TraceID{1, 2, 3}
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: trace.SpanID{1}})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)
	assert.Equal(t, traceID.String(), TraceID(ctx))
}

func TestClientMetaFromRequest(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	req.Header.Set("X-Device-Id", "phone")

	meta := ClientMetaFromRequest(req)
	assert.Equal(t, "10.0.0.1", meta.IP)
	assert.Equal(t, "phone", meta.DeviceID)
	assert.NotEmpty(t, meta.RequestID)

	req.Header.Set("X-Real-Ip", "5.6.7.8")
	assert.Equal(t, "5.6.7.8", ClientMetaFromRequest(req).IP)

	req.Header.Set("X-Forwarded-For", "1.2.3.4, 10.0.0.1")
	req.Header.Set("X-Request-Id", "req-9")
	meta = ClientMetaFromRequest(req)
	assert.Equal(t, "1.2.3.4", meta.IP)
	assert.Equal(t, "req-9", meta.RequestID)
}
