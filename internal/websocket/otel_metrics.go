package websocket

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "pollpulse.websocket"

// OTelMetrics exports hub activity through OpenTelemetry instruments.
// The local Metrics counters stay authoritative for logging; these feed
// whatever meter provider the process has installed.
type OTelMetrics struct {
	connectionsTotal    metric.Int64Counter
	connectionsActive   metric.Int64UpDownCounter
	connectionDuration  metric.Float64Histogram
	broadcastsTotal     metric.Int64Counter
	broadcastRecipients metric.Int64Histogram
	droppedMessages     metric.Int64Counter
}

var (
	otelMetrics     *OTelMetrics
	otelMetricsOnce sync.Once
)

// InitOTelMetrics creates the instrument set once per process. Safe to
// call from multiple goroutines; later calls return the first result.
func InitOTelMetrics() (*OTelMetrics, error) {
	var err error
	otelMetricsOnce.Do(func() {
		otelMetrics, err = newOTelMetrics()
	})
	return otelMetrics, err
}

// GetOTelMetrics returns the instrument set, or nil when InitOTelMetrics
// has not run. The hub treats nil as "OTel not wired".
func GetOTelMetrics() *OTelMetrics {
	return otelMetrics
}

func newOTelMetrics() (*OTelMetrics, error) {
	meter := otel.Meter(meterName)
	m := &OTelMetrics{}

	var err error
	m.connectionsTotal, err = meter.Int64Counter("websocket.connections.total",
		metric.WithDescription("Dashboard connections accepted since start"))
	if err != nil {
		return nil, err
	}
	m.connectionsActive, err = meter.Int64UpDownCounter("websocket.connections.active",
		metric.WithDescription("Dashboards currently connected"))
	if err != nil {
		return nil, err
	}
	m.connectionDuration, err = meter.Float64Histogram("websocket.connection.duration",
		metric.WithDescription("How long dashboards stay connected"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	m.broadcastsTotal, err = meter.Int64Counter("websocket.broadcasts.total",
		metric.WithDescription("Messages broadcast to dashboards"))
	if err != nil {
		return nil, err
	}
	m.broadcastRecipients, err = meter.Int64Histogram("websocket.broadcast.recipients",
		metric.WithDescription("Connected dashboards per broadcast"))
	if err != nil {
		return nil, err
	}
	m.droppedMessages, err = meter.Int64Counter("websocket.messages.dropped",
		metric.WithDescription("Frames discarded because a queue was full"))
	if err != nil {
		return nil, err
	}
	return m, nil
}

// RecordConnection counts a dashboard joining the hub.
func (m *OTelMetrics) RecordConnection(ctx context.Context) {
	m.connectionsTotal.Add(ctx, 1)
	m.connectionsActive.Add(ctx, 1)
}

// RecordDisconnection counts a dashboard leaving after the given session
// length.
func (m *OTelMetrics) RecordDisconnection(ctx context.Context, connected time.Duration) {
	m.connectionsActive.Add(ctx, -1)
	m.connectionDuration.Record(ctx, connected.Seconds())
}

// RecordBroadcast counts one broadcast and how many dashboards it reached.
func (m *OTelMetrics) RecordBroadcast(ctx context.Context, messageType string, recipients int) {
	attrs := metric.WithAttributes(attribute.String("message.type", messageType))
	m.broadcastsTotal.Add(ctx, 1, attrs)
	m.broadcastRecipients.Record(ctx, int64(recipients), attrs)
}

// RecordDroppedMessage counts a frame discarded because a queue was full.
func (m *OTelMetrics) RecordDroppedMessage(ctx context.Context) {
	m.droppedMessages.Add(ctx, 1)
}
