// Package events publishes attempt lifecycle events to a RabbitMQ topic
// exchange for downstream analytics.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/abhisek/adaptiq/internal/logger"
)

// DefaultExchange is the topic exchange used when none is configured.
const DefaultExchange = "adaptiq.events"

type Publisher interface {
	PublishAttemptStarted(ctx context.Context, e *AttemptStartedEvent) error
	PublishAttemptFinished(ctx context.Context, e *AttemptFinishedEvent) error
	Close() error
}

type EventPublisher struct {
	mu           sync.Mutex
	conn         *amqp.Connection
	channel      *amqp.Channel
	exchangeName string
	enabled      bool
	log          *logger.Logger
}

// NewEventPublisher connects to RabbitMQ and declares the exchange. An empty
// URL yields a disabled publisher that drops every event.
func NewEventPublisher(rabbitURL, exchange string, log *logger.Logger) (*EventPublisher, error) {
	if log == nil {
		log = logger.Nop()
	}
	if rabbitURL == "" {
		log.Warn("RabbitMQ URL is empty, event publishing is disabled")
		return &EventPublisher{enabled: false, log: log}, nil
	}
	if exchange == "" {
		exchange = DefaultExchange
	}

	conn, err := amqp.Dial(rabbitURL)
	if err != nil {
		return nil, fmt.Errorf("connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	return &EventPublisher{
		conn:         conn,
		channel:      channel,
		exchangeName: exchange,
		enabled:      true,
		log:          log,
	}, nil
}

func (p *EventPublisher) publishEvent(ctx context.Context, routingKey string, event any) error {
	if !p.enabled {
		p.log.Debug("event publishing is disabled, skipping event", "routing_key", routingKey)
		return nil
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	// amqp channels are not safe for concurrent publishing.
	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.channel.PublishWithContext(
		pubCtx,
		p.exchangeName, // exchange
		routingKey,     // routing key
		false,          // mandatory
		false,          // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	p.log.Debug("published event", "routing_key", routingKey)
	return nil
}

func (p *EventPublisher) PublishAttemptStarted(ctx context.Context, e *AttemptStartedEvent) error {
	return p.publishEvent(ctx, string(EventTypeAttemptStarted), e)
}

func (p *EventPublisher) PublishAttemptFinished(ctx context.Context, e *AttemptFinishedEvent) error {
	return p.publishEvent(ctx, string(EventTypeAttemptFinished), e)
}

func (p *EventPublisher) Close() error {
	if !p.enabled {
		return nil
	}

	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			p.log.Warn("error closing RabbitMQ channel", "error", err)
		}
	}

	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			return fmt.Errorf("close RabbitMQ connection: %w", err)
		}
	}

	return nil
}

// Nop discards every event.
type Nop struct{}

func (Nop) PublishAttemptStarted(context.Context, *AttemptStartedEvent) error { return nil }
func (Nop) PublishAttemptFinished(context.Context, *AttemptFinishedEvent) error { return nil }
func (Nop) Close() error { return nil }
