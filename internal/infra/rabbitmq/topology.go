package rabbitmq

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/video-frame-pro/video-frame-pro-processing/internal/infra/config"
)

// Topology names the exchange, queues and routing keys the service uses.
type Topology struct {
	Exchange               string
	Queue                  string
	RoutingKey             string
	DLQ                    string
	ResultQueue            string
	ResultRoutingKey       string
	NotificationQueue      string
	NotificationRoutingKey string
}

// Declare creates the exchange and queues and binds them. It is idempotent.
func (t Topology) Declare(ch *amqp.Channel) error {
	err := ch.ExchangeDeclare(t.Exchange, "topic", true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	for _, q := range []string{t.Queue, t.DLQ, t.ResultQueue, t.NotificationQueue} {
		if q == "" {
			continue
		}
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", q, err)
		}
	}

	bindings := []struct{ queue, key string }{
		{t.Queue, t.RoutingKey},
		{t.ResultQueue, t.ResultRoutingKey},
		{t.NotificationQueue, t.NotificationRoutingKey},
	}
	for _, b := range bindings {
		if b.queue == "" || b.key == "" {
			continue
		}
		if err := ch.QueueBind(b.queue, b.key, t.Exchange, false, nil); err != nil {
			return fmt.Errorf("bind queue %s: %w", b.queue, err)
		}
	}
	return nil
}

func TopologyFromConfig(cfg *config.Config) Topology {
	return Topology{
		Exchange:               cfg.RabbitMQExchange,
		Queue:                  cfg.RabbitMQProcessingQueue,
		RoutingKey:             cfg.RabbitMQProcessingRoutingKey,
		DLQ:                    cfg.RabbitMQDLQ,
		ResultQueue:            cfg.RabbitMQResultQueue,
		ResultRoutingKey:       cfg.RabbitMQResultRoutingKey,
		NotificationQueue:      cfg.RabbitMQNotificationQueue,
		NotificationRoutingKey: cfg.RabbitMQNotificationRoutingKey,
	}
}
