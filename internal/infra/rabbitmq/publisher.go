package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/video-frame-pro/video-frame-pro-processing/internal/domain/entity"
)

// Publisher owns one channel shared by the typed publishers below.
type Publisher struct {
	mu       sync.Mutex
	channel  *amqp.Channel
	exchange string
}

func NewPublisher(conn *amqp.Connection, exchange string) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open publisher channel: %w", err)
	}
	return &Publisher{channel: ch, exchange: exchange}, nil
}

func (p *Publisher) publish(ctx context.Context, exchange, key string, msg amqp.Publishing) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.channel.PublishWithContext(ctx, exchange, key, false, false, msg)
}

// Publish sends body to the service exchange under routingKey.
func (p *Publisher) Publish(ctx context.Context, routingKey string, body []byte) error {
	return p.publish(ctx, p.exchange, routingKey, persistentJSON(body))
}

func (p *Publisher) Close() error {
	return p.channel.Close()
}

func persistentJSON(body []byte) amqp.Publishing {
	return amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
	}
}

type ResultPublisher struct {
	pub        *Publisher
	routingKey string
}

func NewResultPublisher(pub *Publisher, routingKey string) *ResultPublisher {
	return &ResultPublisher{pub: pub, routingKey: routingKey}
}

func (rp *ResultPublisher) PublishResult(ctx context.Context, msg []byte) error {
	return rp.pub.Publish(ctx, rp.routingKey, msg)
}

type DLQPublisher struct {
	pub   *Publisher
	queue string
}

func NewDLQPublisher(pub *Publisher, dlqQueue string) *DLQPublisher {
	return &DLQPublisher{pub: pub, queue: dlqQueue}
}

func (dp *DLQPublisher) PublishToDLQ(ctx context.Context, msg []byte, reason string) error {
	publishing := persistentJSON(msg)
	publishing.Headers = amqp.Table{"x-dlq-reason": reason}
	return dp.pub.publish(ctx, "", dp.queue, publishing)
}

// NotificationPublisher delivers notifications as queue messages for a
// downstream mailer or workflow to pick up.
type NotificationPublisher struct {
	pub        *Publisher
	routingKey string
}

func NewNotificationPublisher(pub *Publisher, routingKey string) *NotificationPublisher {
	return &NotificationPublisher{pub: pub, routingKey: routingKey}
}

func (np *NotificationPublisher) Notify(ctx context.Context, n entity.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := np.pub.Publish(ctx, np.routingKey, data); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}
