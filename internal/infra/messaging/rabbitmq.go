// Package messaging は出庫・債務の結果をRabbitMQへ流す。
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"stocknet/internal/usecase"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// amqp.Channel のうち使う部分（テストで差し替える）
type amqpChannel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// RabbitMQPublisher は topic exchange に JSON で publish する。
// routing key は inventory.<event type>。
type RabbitMQPublisher struct {
	conn     *amqp.Connection
	exchange string
	logger   *zap.Logger

	// Channelは並行publishできないので直列にする
	mu sync.Mutex
	ch amqpChannel
}

// DialRabbitMQ は接続してexchangeを宣言する。
func DialRabbitMQ(url, exchange string, logger *zap.Logger) (*RabbitMQPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("rabbitmq exchange declare: %w", err)
	}

	logger.Info("connected to rabbitmq", zap.String("exchange", exchange))

	p := newRabbitMQPublisher(ch, exchange, logger)
	p.conn = conn
	return p, nil
}

func newRabbitMQPublisher(ch amqpChannel, exchange string, logger *zap.Logger) *RabbitMQPublisher {
	return &RabbitMQPublisher{ch: ch, exchange: exchange, logger: logger}
}

func RoutingKey(t usecase.EventType) string {
	return "inventory." + string(t)
}

func (p *RabbitMQPublisher) Publish(ctx context.Context, event usecase.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("event serialization: %w", err)
	}

	key := RoutingKey(event.Type)
	msg := amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID,
		Timestamp:    event.OccurredAt,
		Type:         string(event.Type),
	}

	p.mu.Lock()
	err = p.ch.Publish(p.exchange, key, false, false, msg)
	p.mu.Unlock()
	if err != nil {
		return fmt.Errorf("event publish: %w", err)
	}

	p.logger.Debug("event published",
		zap.String("routing_key", key),
		zap.String("event_id", event.ID))
	return nil
}

func (p *RabbitMQPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	if p.ch != nil {
		if err := p.ch.Close(); err != nil {
			firstErr = err
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// NoopPublisher はRABBITMQ_URLが無いときに使う。
type NoopPublisher struct {
	logger *zap.Logger
}

func NewNoopPublisher(logger *zap.Logger) *NoopPublisher {
	return &NoopPublisher{logger: logger}
}

func (p *NoopPublisher) Publish(ctx context.Context, event usecase.Event) error {
	p.logger.Debug("event dropped (no broker)",
		zap.String("event_type", string(event.Type)),
		zap.String("event_id", event.ID))
	return nil
}

func (p *NoopPublisher) Close() error { return nil }

var (
	_ usecase.EventPublisher = (*RabbitMQPublisher)(nil)
	_ usecase.EventPublisher = (*NoopPublisher)(nil)
)
