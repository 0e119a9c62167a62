package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/IANDYI/nutrition-service/internal/core/domain"
	"github.com/IANDYI/nutrition-service/internal/core/ports"
	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// publishLatencyBudget is the end-to-end delivery target for daily log updates
const publishLatencyBudget = 15 * time.Second

// RabbitMQPublisher implements DailyLogPublisher for publishing daily log
// updates to RabbitMQ.
// Includes retry logic and circuit breaker for resilience
type RabbitMQPublisher struct {
	conn          *amqp091.Connection
	channel       *amqp091.Channel
	queueName     string
	cb            *gobreaker.CircuitBreaker
	maxRetries    int
	retryDelay    time.Duration
	connMutex     sync.RWMutex
	reconnectCh   chan bool
	stopReconnect chan bool
	log           *zap.Logger
}

// DailyLogUpdatedEvent is published every time a user's daily log changes
type DailyLogUpdatedEvent struct {
	EventID          uuid.UUID `json:"event_id"`
	UserID           uuid.UUID `json:"user_id"`
	Date             string    `json:"date"`
	CaloriesConsumed int       `json:"calories_consumed"`
	CaloriesTarget   int       `json:"calories_target"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// NewDailyLogUpdatedEvent builds the event for a stored entry
func NewDailyLogUpdatedEvent(entry *domain.DailyLogEntry) DailyLogUpdatedEvent {
	return DailyLogUpdatedEvent{
		EventID:          uuid.New(),
		UserID:           entry.UserID,
		Date:             entry.Date,
		CaloriesConsumed: entry.CaloriesConsumed,
		CaloriesTarget:   entry.CaloriesTarget,
		UpdatedAt:        entry.UpdatedAt,
	}
}

// NewRabbitMQPublisher creates a new RabbitMQ publisher with circuit breaker
func NewRabbitMQPublisher(rabbitMQURL string, queueName string, settings gobreaker.Settings, log *zap.Logger) (*RabbitMQPublisher, error) {
	if queueName == "" {
		queueName = "daily_log_updates"
	}
	if settings.ReadyToTrip == nil {
		settings = DefaultBreakerSettings
	}
	settings.Name = "rabbitmq"

	publisher := &RabbitMQPublisher{
		queueName:     queueName,
		cb:            gobreaker.NewCircuitBreaker(settings),
		maxRetries:    3,
		retryDelay:    1 * time.Second,
		reconnectCh:   make(chan bool, 1),
		stopReconnect: make(chan bool),
		log:           log,
	}

	if err := publisher.connect(rabbitMQURL); err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	go publisher.handleReconnection(rabbitMQURL)

	return publisher, nil
}

// connect establishes connection to RabbitMQ
func (p *RabbitMQPublisher) connect(rabbitMQURL string) error {
	var conn *amqp091.Connection
	var err error
	for i := 0; i < p.maxRetries; i++ {
		conn, err = amqp091.Dial(rabbitMQURL)
		if err == nil {
			break
		}
		p.log.Warn("Failed to connect to RabbitMQ",
			zap.Int("attempt", i+1),
			zap.Int("max_attempts", p.maxRetries),
			zap.Error(err))
		if i < p.maxRetries-1 {
			time.Sleep(p.retryDelay)
		}
	}
	if err != nil {
		return err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return err
	}

	// Declare queue (idempotent)
	_, err = ch.QueueDeclare(
		p.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return err
	}

	p.connMutex.Lock()
	p.conn = conn
	p.channel = ch
	p.connMutex.Unlock()

	p.log.Info("Connected to RabbitMQ", zap.String("queue", p.queueName))
	return nil
}

// handleReconnection handles automatic reconnection to RabbitMQ
func (p *RabbitMQPublisher) handleReconnection(rabbitMQURL string) {
	for {
		select {
		case <-p.reconnectCh:
			p.log.Info("Attempting to reconnect to RabbitMQ")
			p.connMutex.Lock()
			if p.channel != nil {
				p.channel.Close()
			}
			if p.conn != nil {
				p.conn.Close()
			}
			p.connMutex.Unlock()

			if err := p.connect(rabbitMQURL); err != nil {
				p.log.Error("RabbitMQ reconnection failed", zap.Error(err))
			}
		case <-p.stopReconnect:
			return
		}
	}
}

// PublishDailyLogUpdated publishes the new state of a daily log entry.
// Implements DailyLogPublisher interface
func (p *RabbitMQPublisher) PublishDailyLogUpdated(ctx context.Context, entry *domain.DailyLogEntry) error {
	_, err := p.cb.Execute(func() (interface{}, error) {
		return nil, p.publishWithRetry(ctx, NewDailyLogUpdatedEvent(entry))
	})
	return err
}

// publishWithRetry publishes with retry logic
func (p *RabbitMQPublisher) publishWithRetry(ctx context.Context, event DailyLogUpdatedEvent) error {
	startTime := time.Now()

	p.log.Debug("daily_log_publish_attempt",
		zap.String("event_id", event.EventID.String()),
		zap.String("user_id", event.UserID.String()),
		zap.String("date", event.Date),
		zap.Int("calories_consumed", event.CaloriesConsumed))

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal daily log event: %w", err)
	}

	var lastErr error
	for i := 0; i < p.maxRetries; i++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		p.connMutex.RLock()
		ch := p.channel
		conn := p.conn
		p.connMutex.RUnlock()

		if ch == nil || conn == nil || conn.IsClosed() {
			p.triggerReconnect()
			lastErr = fmt.Errorf("rabbitmq connection is closed")
			time.Sleep(p.retryDelay)
			continue
		}

		err = ch.PublishWithContext(
			ctx,
			"",          // exchange
			p.queueName, // routing key
			false,       // mandatory
			false,       // immediate
			amqp091.Publishing{
				ContentType:  "application/json",
				MessageId:    event.EventID.String(),
				Body:         body,
				DeliveryMode: amqp091.Persistent,
				Timestamp:    time.Now(),
			},
		)

		if err == nil {
			if latency := time.Since(startTime); latency > publishLatencyBudget {
				p.log.Warn("Daily log publish latency exceeded budget",
					zap.Duration("latency", latency),
					zap.Duration("budget", publishLatencyBudget))
			}
			return nil
		}

		lastErr = err
		p.log.Warn("Failed to publish daily log event",
			zap.Int("attempt", i+1),
			zap.Int("max_attempts", p.maxRetries),
			zap.Error(err))

		if i < p.maxRetries-1 {
			p.triggerReconnect()
			time.Sleep(p.retryDelay)
		}
	}

	return fmt.Errorf("failed to publish daily log event after %d retries: %w", p.maxRetries, lastErr)
}

func (p *RabbitMQPublisher) triggerReconnect() {
	select {
	case p.reconnectCh <- true:
	default:
	}
}

// BreakerState reports the publisher circuit breaker state
func (p *RabbitMQPublisher) BreakerState() gobreaker.State {
	return p.cb.State()
}

// Close closes the RabbitMQ connection
func (p *RabbitMQPublisher) Close() error {
	close(p.stopReconnect)
	p.connMutex.Lock()
	defer p.connMutex.Unlock()

	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// Ensure RabbitMQPublisher implements the interface
var _ ports.DailyLogPublisher = (*RabbitMQPublisher)(nil)
