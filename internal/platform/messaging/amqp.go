package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/streadway/amqp"

	"bazaar/contexts/marketplace/listing-engine/ports"
)

const envelopeContentType = "application/json"

// AMQPBus publishes listing events to a durable topic exchange on a
// RabbitMQ-compatible broker. Topics map to routing keys; each consumer
// group owns one durable queue per topic.
type AMQPBus struct {
	exchange string
	conn     *amqp.Connection
	logger   *slog.Logger

	mu       sync.Mutex
	channel  *amqp.Channel
	confirms chan amqp.Confirmation
	// unconfirmed counts publishes still owed a confirmation. Ones left by
	// a cancelled caller are drained before the next publish.
	unconfirmed int
}

// DialAMQP connects to url and declares exchange. The publishing channel
// runs in confirm mode, so Publish returns only once the broker has taken
// responsibility for the event.
func DialAMQP(url string, exchange string, logger *slog.Logger) (*AMQPBus, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("amqp url is required")
	}
	if strings.TrimSpace(exchange) == "" {
		return nil, errors.New("amqp exchange is required")
	}
	logger = resolveLogger(logger)

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}
	if err := declareExchange(ch, exchange); err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := ch.Confirm(false); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("enable amqp publisher confirms: %w", err)
	}

	bus := &AMQPBus{
		exchange: exchange,
		conn:     conn,
		logger:   logger,
		channel:  ch,
		confirms: ch.NotifyPublish(make(chan amqp.Confirmation, 1)),
	}
	logger.Info("amqp bus connected",
		"event", "amqp_bus_connected",
		"module", "internal/platform/messaging",
		"layer", "platform",
		"exchange", exchange,
	)
	return bus, nil
}

func (b *AMQPBus) Publish(ctx context.Context, topic string, event ports.EventEnvelope) error {
	msg, err := encodeEnvelope(event)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for b.unconfirmed > 0 {
		if _, err := b.awaitConfirm(ctx); err != nil {
			return b.publishFailed(topic, event, err)
		}
	}
	if err := b.channel.Publish(b.exchange, topic, false, false, msg); err != nil {
		return b.publishFailed(topic, event, err)
	}
	b.unconfirmed++
	acked, err := b.awaitConfirm(ctx)
	if err != nil {
		return b.publishFailed(topic, event, err)
	}
	if !acked {
		return b.publishFailed(topic, event, errors.New("broker rejected event"))
	}

	b.logger.Debug("event published",
		"event", "amqp_publish",
		"module", "internal/platform/messaging",
		"layer", "platform",
		"exchange", b.exchange,
		"topic", topic,
		"event_id", event.EventID,
		"event_type", event.EventType,
	)
	return nil
}

// Subscribe binds the consumer group's queue to topic and handles
// deliveries until ctx is cancelled. Successful events are acked; failed
// ones are rejected without requeue so one bad payload cannot wedge the
// queue.
func (b *AMQPBus) Subscribe(
	ctx context.Context,
	topic string,
	consumerGroup string,
	handler func(context.Context, ports.EventEnvelope) error,
) error {
	ch, err := b.conn.Channel()
	if err != nil {
		return fmt.Errorf("open amqp channel: %w", err)
	}
	queue := consumerGroup + "." + topic
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return fmt.Errorf("declare queue %s: %w", queue, err)
	}
	if err := ch.QueueBind(queue, topic, b.exchange, false, nil); err != nil {
		_ = ch.Close()
		return fmt.Errorf("bind queue %s: %w", queue, err)
	}
	deliveries, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return fmt.Errorf("consume queue %s: %w", queue, err)
	}

	go func() {
		defer ch.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case delivery, ok := <-deliveries:
				if !ok {
					return
				}
				b.handleDelivery(ctx, topic, consumerGroup, delivery, handler)
			}
		}
	}()
	return nil
}

func (b *AMQPBus) handleDelivery(
	ctx context.Context,
	topic string,
	group string,
	delivery amqp.Delivery,
	handler func(context.Context, ports.EventEnvelope) error,
) {
	event, err := decodeEnvelope(delivery)
	if err == nil {
		err = handler(ctx, event)
	}
	if err != nil {
		logHandlerFailure(b.logger, topic, group, event, err)
		_ = delivery.Nack(false, false)
		return
	}
	_ = delivery.Ack(false)
}

// awaitConfirm consumes one publisher confirmation. Callers hold b.mu.
func (b *AMQPBus) awaitConfirm(ctx context.Context) (bool, error) {
	select {
	case confirm, ok := <-b.confirms:
		if !ok {
			return false, amqp.ErrClosed
		}
		b.unconfirmed--
		return confirm.Ack, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func (b *AMQPBus) Close() error {
	return b.conn.Close()
}

func (b *AMQPBus) publishFailed(topic string, event ports.EventEnvelope, err error) error {
	b.logger.Error("event publish failed",
		"event", "amqp_publish_failed",
		"module", "internal/platform/messaging",
		"layer", "platform",
		"exchange", b.exchange,
		"topic", topic,
		"event_id", event.EventID,
		"error", err.Error(),
	)
	return err
}

func declareExchange(ch *amqp.Channel, exchange string) error {
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return nil
}

func encodeEnvelope(event ports.EventEnvelope) (amqp.Publishing, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("encode event %s: %w", event.EventID, err)
	}
	return amqp.Publishing{
		ContentType:  envelopeContentType,
		MessageId:    event.EventID,
		Type:         event.EventType,
		Timestamp:    event.OccurredAt.UTC(),
		DeliveryMode: amqp.Persistent,
		Body:         body,
	}, nil
}

func decodeEnvelope(delivery amqp.Delivery) (ports.EventEnvelope, error) {
	var event ports.EventEnvelope
	if delivery.ContentType != "" && delivery.ContentType != envelopeContentType {
		return ports.EventEnvelope{EventID: delivery.MessageId}, fmt.Errorf("unsupported content type %q", delivery.ContentType)
	}
	if err := json.Unmarshal(delivery.Body, &event); err != nil {
		return ports.EventEnvelope{EventID: delivery.MessageId}, fmt.Errorf("decode event: %w", err)
	}
	return event, nil
}

var (
	_ ports.EventPublisher  = (*AMQPBus)(nil)
	_ ports.EventSubscriber = (*AMQPBus)(nil)
)
