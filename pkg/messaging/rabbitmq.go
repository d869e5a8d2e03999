package messaging

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/grigta/covid-tracker/pkg/logger"
	"github.com/streadway/amqp"
)

// Publisher is what services depend on; *RabbitMQ implements it.
type Publisher interface {
	Publish(exchange, routingKey string, message interface{}) error
	Close() error
}

// RabbitMQ is a publish-only connection that redials when the broker drops it.
type RabbitMQ struct {
	mu       sync.RWMutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	url      string
	exchange string
	stopCh   chan struct{}
}

// NewRabbitMQ dials url and declares exchange as a durable topic exchange.
func NewRabbitMQ(url, exchange string) (*RabbitMQ, error) {
	r := &RabbitMQ{
		url:      url,
		exchange: exchange,
		stopCh:   make(chan struct{}),
	}

	if err := r.connect(); err != nil {
		return nil, err
	}

	logger.Info("Connected to RabbitMQ", logger.Field{Key: "exchange", Value: exchange})

	go r.monitorConnection()

	return r, nil
}

func (r *RabbitMQ) connect() error {
	conn, err := amqp.Dial(r.url)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	if r.exchange != "" {
		if err := ch.ExchangeDeclare(r.exchange, "topic", true, false, false, false, nil); err != nil {
			ch.Close()
			conn.Close()
			return fmt.Errorf("failed to declare exchange %s: %w", r.exchange, err)
		}
	}

	r.mu.Lock()
	r.conn = conn
	r.channel = ch
	r.mu.Unlock()

	return nil
}

func (r *RabbitMQ) Close() error {
	close(r.stopCh)

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.channel.Close(); err != nil {
		return fmt.Errorf("failed to close channel: %w", err)
	}
	if err := r.conn.Close(); err != nil {
		return fmt.Errorf("failed to close connection: %w", err)
	}
	return nil
}

func (r *RabbitMQ) Publish(exchange, routingKey string, message interface{}) error {
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.channel.Publish(
		exchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
			Timestamp:   time.Now(),
		},
	)
}

func (r *RabbitMQ) monitorConnection() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.mu.RLock()
			closed := r.conn != nil && r.conn.IsClosed()
			r.mu.RUnlock()
			if !closed {
				continue
			}

			logger.Warn("RabbitMQ connection lost, attempting to reconnect...")
			for i := 0; i < 5; i++ {
				if err := r.connect(); err != nil {
					logger.Error("Failed to reconnect to RabbitMQ",
						logger.Field{Key: "attempt", Value: i + 1},
						logger.Err(err),
					)
					time.Sleep(time.Duration(i+1) * time.Second)
					continue
				}
				logger.Info("Reconnected to RabbitMQ")
				break
			}
		}
	}
}

// Message is the envelope every published event is wrapped in.
type Message struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

func NewMessage(msgType string, data interface{}) *Message {
	return &Message{
		ID:        uuid.NewString(),
		Type:      msgType,
		Timestamp: time.Now().UTC(),
		Data:      data,
		Metadata:  make(map[string]interface{}),
	}
}
