/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// DefaultExchange is the topic exchange events are published to.
const DefaultExchange = "entityservice.events"

// AMQPConfig contains options for creating the AMQP notifier.
type AMQPConfig struct {
	URL      string
	Exchange string
}

// AMQP broadcasts events through a topic exchange using the event name as routing key.
// Every subscriber binds its own exclusive queue, so each node receives every event.
type AMQP struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	logger   *zap.Logger

	mu sync.Mutex
}

func NewAMQP(cfg AMQPConfig, logger *zap.Logger) (*AMQP, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Exchange == "" {
		cfg.Exchange = DefaultExchange
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		cfg.Exchange, // name
		"topic",      // kind
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", cfg.Exchange, err)
	}

	logger.Info("connected to RabbitMQ", zap.String("exchange", cfg.Exchange))
	return &AMQP{conn: conn, channel: ch, exchange: cfg.Exchange, logger: logger}, nil
}

func (a *AMQP) Broadcast(_ context.Context, event string, payload []byte) error {
	if a.channel == nil {
		return ErrNotConnected
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	err := a.channel.Publish(
		a.exchange, // exchange
		event,      // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        payload,
		})
	if err != nil {
		return fmt.Errorf("publish %s: %w", event, err)
	}
	return nil
}

// Subscribe binds an exclusive queue to event and consumes it until ctx is cancelled.
func (a *AMQP) Subscribe(ctx context.Context, event string, handler Handler) error {
	if a.conn == nil {
		return ErrNotConnected
	}

	ch, err := a.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open a channel: %w", err)
	}

	q, err := ch.QueueDeclare(
		"",    // name
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		return fmt.Errorf("failed to declare a queue for %s: %w", event, err)
	}

	if err := ch.QueueBind(q.Name, event, a.exchange, false, nil); err != nil {
		ch.Close()
		return fmt.Errorf("failed to bind queue for %s: %w", event, err)
	}

	msgs, err := ch.Consume(
		q.Name, // queue
		"",     // consumer
		true,   // auto-ack
		true,   // exclusive
		false,  // no-local
		false,  // no-wait
		nil,    // args
	)
	if err != nil {
		ch.Close()
		return fmt.Errorf("failed to register a consumer for %s: %w", event, err)
	}

	go func() {
		defer ch.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-msgs:
				if !ok {
					a.logger.Warn("amqp delivery channel closed", zap.String("event", event))
					return
				}
				handler(ctx, d.Body)
			}
		}
	}()
	return nil
}

// Close closes the publishing channel and the connection.
func (a *AMQP) Close() error {
	var lastErr error
	if a.channel != nil {
		if err := a.channel.Close(); err != nil {
			a.logger.Warn("error closing RabbitMQ channel", zap.Error(err))
			lastErr = err
		}
	}
	if a.conn != nil {
		if err := a.conn.Close(); err != nil {
			a.logger.Warn("error closing RabbitMQ connection", zap.Error(err))
			lastErr = err
		}
	}
	return lastErr
}
