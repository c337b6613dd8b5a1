package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/richxcame/schoolrun/pkg/config"
	"github.com/richxcame/schoolrun/pkg/logger"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// NewPublisher connects the broker selected by cfg.Driver
func NewPublisher(cfg config.EventsConfig) (Publisher, error) {
	switch cfg.Driver {
	case "nats":
		return newNATSPublisher(cfg.NATSURL, cfg.Topic)
	case "kafka":
		return newKafkaPublisher(cfg.KafkaBrokers, cfg.Topic), nil
	case "rabbitmq":
		return newRabbitPublisher(cfg.RabbitMQURL, cfg.Topic)
	case "", "none":
		return NoopPublisher{}, nil
	default:
		return nil, fmt.Errorf("unknown events driver %q", cfg.Driver)
	}
}

// ========================================
// NATS
// ========================================

type natsPublisher struct {
	nc      *nats.Conn
	subject string
}

func newNATSPublisher(url, subject string) (*natsPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("schoolrun-api"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	return &natsPublisher{nc: nc, subject: subject}, nil
}

// Publish sends the event on "<subject>.<type>". ctx must carry a deadline.
func (p *natsPublisher) Publish(ctx context.Context, e *Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := nats.NewMsg(p.subject + "." + string(e.Type))
	msg.Data = data
	msg.Header.Set(nats.MsgIdHdr, e.ID.String())
	if err := p.nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("failed to publish to nats: %w", err)
	}
	return p.nc.FlushWithContext(ctx)
}

func (p *natsPublisher) Close() error {
	return p.nc.Drain()
}

// ========================================
// KAFKA
// ========================================

type kafkaPublisher struct {
	w *kafka.Writer
}

func newKafkaPublisher(brokers []string, topic string) *kafkaPublisher {
	return &kafkaPublisher{w: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}}
}

// Publish writes the event keyed by user so one user's events stay ordered
func (p *kafkaPublisher) Publish(ctx context.Context, e *Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.UserID.String()),
		Value: data,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(e.Type)},
			{Key: "event_id", Value: []byte(e.ID.String())},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to publish to kafka: %w", err)
	}
	return nil
}

func (p *kafkaPublisher) Close() error {
	return p.w.Close()
}

// ========================================
// RABBITMQ
// ========================================

type rabbitPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

func newRabbitPublisher(url, exchange string) (*rabbitPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open rabbitmq channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}
	return &rabbitPublisher{conn: conn, ch: ch, exchange: exchange}, nil
}

// Publish sends a persistent message routed by event type
func (p *rabbitPublisher) Publish(ctx context.Context, e *Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.ch.PublishWithContext(ctx, p.exchange, string(e.Type), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    e.ID.String(),
		Timestamp:    e.OccurredAt,
		Body:         data,
	})
	if err != nil {
		return fmt.Errorf("failed to publish to rabbitmq: %w", err)
	}
	return nil
}

func (p *rabbitPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ch.Close(); err != nil {
		p.conn.Close()
		return err
	}
	return p.conn.Close()
}

// ========================================
// NOOP
// ========================================

// NoopPublisher drops events; the inbox still records them
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, e *Event) error {
	logger.WithContext(ctx).Debug("event not published, no broker configured",
		zap.String("type", string(e.Type)),
		zap.String("event_id", e.ID.String()),
	)
	return nil
}

func (NoopPublisher) Close() error { return nil }
