package queue

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/hasebahmdai-arch/lead-nurturing-agent/pkg/logx"
)

// Config is read with the AMQP_ prefix. An empty URL disables the queue.
type Config struct {
	URL        string `split_words:"true"`
	Exchange   string `default:"leadnurture.outreach"`
	Queue      string `default:"leadnurture.outreach.dispatch"`
	RoutingKey string `split_words:"true" default:"outreach.dispatch"`
	Consumer   string `default:"leadnurture-worker"`
}

// Enabled reports whether an AMQP URL was configured.
func (c Config) Enabled() bool {
	return c.URL != ""
}

type RabbitMQ struct {
	Channel    *amqp.Channel
	Connection *amqp.Connection
	Configs    Config
}

func NewRabbitMQ(configs Config) *RabbitMQ {
	return &RabbitMQ{Configs: configs}
}

func (rmq *RabbitMQ) Setup() error {
	if err := rmq.DeclareExchange(rmq.Configs.Exchange, "direct"); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", rmq.Configs.Exchange, err)
	}
	if err := rmq.DeclareQueue(rmq.Configs.Queue); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", rmq.Configs.Queue, err)
	}
	if err := rmq.BindQueue(rmq.Configs.Exchange, rmq.Configs.RoutingKey, rmq.Configs.Queue); err != nil {
		return fmt.Errorf("failed to bind queue %s to exchange %s: %w", rmq.Configs.Queue, rmq.Configs.Exchange, err)
	}

	logx.Debug().Str("exchange", rmq.Configs.Exchange).Str("queue", rmq.Configs.Queue).Msg("rabbitmq setup completed")
	return nil
}

func (rmq *RabbitMQ) Dial() error {
	connection, err := amqp.Dial(rmq.Configs.URL)
	if err != nil {
		return fmt.Errorf("failed to dial RabbitMQ: %w", err)
	}
	rmq.Connection = connection

	channel, err := rmq.Connection.Channel()
	if err != nil {
		_ = connection.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}
	rmq.Channel = channel

	if err := rmq.Setup(); err != nil {
		_ = rmq.Close()
		return fmt.Errorf("failed to set up RabbitMQ: %w", err)
	}

	logx.Info().Msg("rabbitmq connection established")
	return nil
}

// Publish sends body as a persistent JSON message on the configured routing key.
func (rmq *RabbitMQ) Publish(ctx context.Context, body []byte) error {
	if rmq.Channel == nil {
		return fmt.Errorf("rabbitmq channel is not open")
	}
	return rmq.Channel.PublishWithContext(ctx,
		rmq.Configs.Exchange,
		rmq.Configs.RoutingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
}

// Consume starts a manual-ack consumer on the configured queue.
func (rmq *RabbitMQ) Consume() (<-chan amqp.Delivery, error) {
	if rmq.Channel == nil {
		return nil, fmt.Errorf("rabbitmq channel is not open")
	}
	msgs, err := rmq.Channel.Consume(
		rmq.Configs.Queue,
		rmq.Configs.Consumer,
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to consume messages: %w", err)
	}
	return msgs, nil
}

func (rmq *RabbitMQ) DeclareExchange(exchange, exType string) error {
	return rmq.Channel.ExchangeDeclare(exchange, exType, true, false, false, false, nil)
}

func (rmq *RabbitMQ) DeclareQueue(queue string) error {
	_, err := rmq.Channel.QueueDeclare(queue, true, false, false, false, nil)
	return err
}

func (rmq *RabbitMQ) BindQueue(exchange, routingKey, queue string) error {
	return rmq.Channel.QueueBind(queue, routingKey, exchange, false, nil)
}

func (rmq *RabbitMQ) Close() error {
	if rmq.Channel != nil {
		if err := rmq.Channel.Close(); err != nil {
			return fmt.Errorf("failed to close channel: %w", err)
		}
		rmq.Channel = nil
	}
	if rmq.Connection != nil {
		if err := rmq.Connection.Close(); err != nil {
			return fmt.Errorf("failed to close connection: %w", err)
		}
		rmq.Connection = nil
	}
	return nil
}
