package websocket

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the status stream instruments. A nil *Metrics records nothing.
type Metrics struct {
	connectionsTotal   metric.Int64Counter
	connectionsActive  metric.Int64UpDownCounter
	connectionDuration metric.Float64Histogram
	messagesTotal      metric.Int64Counter
	droppedMessages    metric.Int64Counter
}

// NewMetrics creates the websocket instruments on meter
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	connectionsTotal, err := meter.Int64Counter(
		"websocket_connections_total",
		metric.WithDescription("Total number of WebSocket connections"),
	)
	if err != nil {
		return nil, err
	}

	connectionsActive, err := meter.Int64UpDownCounter(
		"websocket_connections_active",
		metric.WithDescription("Number of active WebSocket connections"),
	)
	if err != nil {
		return nil, err
	}

	connectionDuration, err := meter.Float64Histogram(
		"websocket_connection_duration_seconds",
		metric.WithDescription("Duration of WebSocket connections"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	messagesTotal, err := meter.Int64Counter(
		"websocket_messages_total",
		metric.WithDescription("Total number of WebSocket messages sent by type"),
	)
	if err != nil {
		return nil, err
	}

	droppedMessages, err := meter.Int64Counter(
		"websocket_dropped_messages_total",
		metric.WithDescription("Messages dropped because a client could not keep up"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		connectionsTotal:   connectionsTotal,
		connectionsActive:  connectionsActive,
		connectionDuration: connectionDuration,
		messagesTotal:      messagesTotal,
		droppedMessages:    droppedMessages,
	}, nil
}

// RecordConnection records a registered client
func (m *Metrics) RecordConnection(ctx context.Context) {
	if m == nil {
		return
	}
	m.connectionsTotal.Add(ctx, 1)
	m.connectionsActive.Add(ctx, 1)
}

// RecordDisconnection records an unregistered client
func (m *Metrics) RecordDisconnection(ctx context.Context, duration time.Duration) {
	if m == nil {
		return
	}
	m.connectionsActive.Add(ctx, -1)
	m.connectionDuration.Record(ctx, duration.Seconds())
}

// RecordMessage records one message delivered to count clients
func (m *Metrics) RecordMessage(ctx context.Context, msgType string, count int) {
	if m == nil || count == 0 {
		return
	}
	m.messagesTotal.Add(ctx, int64(count), metric.WithAttributes(attribute.String("type", msgType)))
}

// RecordDropped records messages lost to a full client buffer
func (m *Metrics) RecordDropped(ctx context.Context) {
	if m == nil {
		return
	}
	m.droppedMessages.Add(ctx, 1)
}
