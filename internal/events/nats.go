package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// NATSDispatcher routes events through NATS. Replicas sharing a queue group
// split the events between them, so each event is handled by exactly one
// replica. Handlers registered here only see events that come back from the
// broker, including the ones this process published.
type NATSDispatcher struct {
	conn   *nats.Conn
	prefix string
	queue  string
	local  *inMemoryDispatcher
	logger *zap.Logger
	subs   []*nats.Subscription
}

// NewNATSDispatcher connects to url and publishes under prefix.<event type>.
// Subscriptions join queue.
func NewNATSDispatcher(url, prefix, queue string, logger *zap.Logger) (*NATSDispatcher, error) {
	conn, err := nats.Connect(url,
		nats.Name("profile-support"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	logger.Info("connected to nats", zap.String("url", conn.ConnectedUrl()))

	return &NATSDispatcher{
		conn:   conn,
		prefix: prefix,
		queue:  queue,
		local:  NewInMemoryDispatcher(logger).(*inMemoryDispatcher),
		logger: logger,
	}, nil
}

// Publish serializes the event onto its subject.
func (d *NATSDispatcher) Publish(_ context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := d.conn.Publish(d.subject(event.Type), data); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Subscribe registers handler and, on first use of eventType, subscribes to
// its subject.
func (d *NATSDispatcher) Subscribe(eventType EventType, handler EventHandler) {
	d.local.mu.RLock()
	known := len(d.local.listeners[eventType]) > 0
	d.local.mu.RUnlock()

	d.local.Subscribe(eventType, handler)
	if known {
		return
	}

	sub, err := d.conn.QueueSubscribe(d.subject(eventType), d.queue, func(msg *nats.Msg) {
		var event Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			d.logger.Warn("dropping malformed event", zap.String("subject", msg.Subject), zap.Error(err))
			return
		}
		d.local.deliver(context.Background(), event)
	})
	if err != nil {
		d.logger.Error("nats subscribe failed", zap.String("event_type", string(eventType)), zap.Error(err))
		return
	}
	d.subs = append(d.subs, sub)
}

// Close drains subscriptions and closes the connection.
func (d *NATSDispatcher) Close() {
	if d == nil || d.conn == nil {
		return
	}
	if err := d.conn.Drain(); err != nil {
		d.conn.Close()
	}
}

func (d *NATSDispatcher) subject(eventType EventType) string {
	return d.prefix + "." + string(eventType)
}
