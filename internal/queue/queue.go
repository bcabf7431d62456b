package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/casegraph/backend/internal/util"
	"github.com/casegraph/backend/pkg/logger"

	"github.com/rabbitmq/amqp091-go"
)

const (
	// RebuildQueue carries requests to rebuild the citation network.
	RebuildQueue = "network_rebuild_queue"
	// EventsExchange is the topic exchange for service events.
	EventsExchange = "casegraph_events"
	// TopicNetworkRebuilt announces that a new snapshot was saved.
	TopicNetworkRebuilt = "network.rebuilt"

	retryTTL   = int32(10000)
	maxRetries = 10
)

var log = logger.With("Queue")

// Channel is the subset of *amqp091.Channel used for declaring and publishing.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp091.Table) (amqp091.Queue, error)
	Publish(exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

// URL builds the broker URL from the RABBITMQ_* environment.
func URL() string {
	return fmt.Sprintf(
		"amqp://%s:%s@%s:%s/",
		util.GetEnv("RABBITMQ_USER"),
		util.GetEnv("RABBITMQ_PASSWORD"),
		util.GetEnv("RABBITMQ_HOST"),
		util.GetEnvString("RABBITMQ_PORT", "5672"),
	)
}

// Dial connects to the broker, retrying while it comes up.
func Dial(ctx context.Context, url string) (*amqp091.Connection, error) {
	return util.RetryWithContext(ctx, 5, time.Second, func(ctx context.Context) (*amqp091.Connection, error) {
		conn, err := amqp091.Dial(url)
		if err != nil {
			log.Warn("Broker not reachable", "err", err)
		}
		return conn, err
	})
}

// Init connects using the environment and exits the process on failure.
func Init(ctx context.Context) *amqp091.Connection {
	conn, err := Dial(ctx, URL())
	if err != nil {
		logger.Fatal("Failed to connect to RabbitMQ", "err", err)
	}
	return conn
}

// SetupQueues declares the events exchange and, for every queue, the queue
// itself, its dead-letter queue and a retry queue that redelivers to it
// after a delay.
func SetupQueues(ch Channel, queueNames []string) error {
	if err := declareEvents(ch); err != nil {
		return err
	}

	for _, name := range queueNames {
		if _, err := ch.QueueDeclare(
			name,
			true,  // durable
			false, // autoDelete
			false, // exclusive
			false, // noWait
			nil,   // args
		); err != nil {
			return fmt.Errorf("declare queue %s: %w", name, err)
		}

		dlqName := name + "_dlq"
		if _, err := ch.QueueDeclare(dlqName, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", dlqName, err)
		}

		retryName := name + "_retry"
		if _, err := ch.QueueDeclare(
			retryName,
			true,
			false,
			false,
			false,
			amqp091.Table{
				"x-message-ttl":             retryTTL,
				"x-dead-letter-exchange":    "",
				"x-dead-letter-routing-key": name,
			},
		); err != nil {
			return fmt.Errorf("declare queue %s: %w", retryName, err)
		}
	}
	return nil
}

func declareEvents(ch Channel) error {
	if err := ch.ExchangeDeclare(
		EventsExchange,
		"topic",
		true,  // durable
		false, // autoDelete
		false, // internal
		false, // noWait
		nil,
	); err != nil {
		return fmt.Errorf("declare exchange %s: %w", EventsExchange, err)
	}
	return nil
}

func PublishFIFO(ch Channel, queueName string, data []byte) error {
	q, err := ch.QueueDeclare(queueName, true, false, false, false, nil)
	if err != nil {
		return err
	}

	return ch.Publish(
		"",
		q.Name,
		false,
		false,
		amqp091.Publishing{
			ContentType:  "application/json",
			Body:         data,
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
		},
	)
}

func PublishTopic(ch Channel, topic string, data []byte) error {
	if err := declareEvents(ch); err != nil {
		return err
	}

	return ch.Publish(
		EventsExchange,
		topic,
		false,
		false,
		amqp091.Publishing{
			ContentType:  "application/json",
			Body:         data,
			DeliveryMode: amqp091.Transient,
			Timestamp:    time.Now(),
		},
	)
}

// SubscribeTopic binds a private, auto-deleted queue to topic and returns its
// deliveries. Deliveries are auto-acked.
func SubscribeTopic(ch *amqp091.Channel, topic string) (<-chan amqp091.Delivery, error) {
	if err := declareEvents(ch); err != nil {
		return nil, err
	}
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return nil, fmt.Errorf("declare subscriber queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, topic, EventsExchange, false, nil); err != nil {
		return nil, fmt.Errorf("bind %s: %w", topic, err)
	}
	return ch.Consume(q.Name, "", true, true, false, false, nil)
}
