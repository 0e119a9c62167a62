package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/IANDYI/nutrition-service/internal/core/domain"
	"github.com/IANDYI/nutrition-service/internal/core/ports"
	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// FoodEntryMessage asks for one food item to be appended to a user's list.
// Exactly one of Barcode or Manual must be set. EntryID, when present,
// becomes the stored item ID so a redelivered message is stored once;
// without it the AMQP message ID is used.
// { "user_id": "uuid-string", "entry_id": "uuid-string", "barcode": "0123..." }
// { "user_id": "uuid-string", "manual": { "description": "...", "calories": 120 } }
type FoodEntryMessage struct {
	UserID  string                   `json:"user_id"`
	EntryID string                   `json:"entry_id,omitempty"`
	Barcode string                   `json:"barcode,omitempty"`
	Manual  *domain.NutritionSummary `json:"manual,omitempty"`
}

// entryNamespace derives item IDs from AMQP message IDs
var entryNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:nutrition-service:food-entry"))

// Disposition tells the consumer how to settle a delivery
type Disposition int

const (
	// Ack removes the message from the queue
	Ack Disposition = iota
	// Requeue nacks the message for redelivery
	Requeue
	// Reject nacks the message without redelivery
	Reject
)

func (d Disposition) String() string {
	switch d {
	case Ack:
		return "ack"
	case Requeue:
		return "requeue"
	default:
		return "reject"
	}
}

// FoodEntryConsumer consumes food entries from RabbitMQ, for scanners and
// integrations that log food without going through the HTTP API.
// Runs in background as a goroutine within the service pod
type FoodEntryConsumer struct {
	conn           *amqp091.Connection
	channel        *amqp091.Channel
	queueName      string
	foodService    ports.FoodService
	connMutex      sync.RWMutex
	reconnectCh    chan bool
	stopReconnect  chan bool
	maxRetries     int
	retryDelay     time.Duration
	consumingCtx   context.Context
	consumingMutex sync.Mutex
	isConsuming    bool
	log            *zap.Logger
}

// NewFoodEntryConsumer creates a new RabbitMQ consumer for food entries
func NewFoodEntryConsumer(rabbitMQURL string, queueName string, foodService ports.FoodService, log *zap.Logger) (*FoodEntryConsumer, error) {
	consumer := newFoodEntryConsumer(queueName, foodService, log)

	if err := consumer.connect(rabbitMQURL); err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	go consumer.handleReconnection(rabbitMQURL)

	return consumer, nil
}

func newFoodEntryConsumer(queueName string, foodService ports.FoodService, log *zap.Logger) *FoodEntryConsumer {
	if queueName == "" {
		queueName = "food_entries"
	}
	return &FoodEntryConsumer{
		queueName:     queueName,
		foodService:   foodService,
		maxRetries:    3,
		retryDelay:    1 * time.Second,
		reconnectCh:   make(chan bool, 1),
		stopReconnect: make(chan bool),
		log:           log,
	}
}

// connect establishes connection to RabbitMQ
func (c *FoodEntryConsumer) connect(rabbitMQURL string) error {
	var conn *amqp091.Connection
	var err error
	for i := 0; i < c.maxRetries; i++ {
		conn, err = amqp091.Dial(rabbitMQURL)
		if err == nil {
			break
		}
		c.log.Warn("Failed to connect to RabbitMQ",
			zap.Int("attempt", i+1),
			zap.Int("max_attempts", c.maxRetries),
			zap.Error(err))
		if i < c.maxRetries-1 {
			time.Sleep(c.retryDelay)
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
		c.queueName, // name
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

	c.connMutex.Lock()
	c.conn = conn
	c.channel = ch
	c.connMutex.Unlock()

	c.log.Info("Food entry consumer connected to RabbitMQ", zap.String("queue", c.queueName))
	return nil
}

// handleReconnection handles automatic reconnection to RabbitMQ
func (c *FoodEntryConsumer) handleReconnection(rabbitMQURL string) {
	for {
		select {
		case <-c.reconnectCh:
			c.log.Info("Attempting to reconnect food entry consumer to RabbitMQ")
			c.connMutex.Lock()
			if c.channel != nil && !c.channel.IsClosed() {
				c.channel.Close()
			}
			if c.conn != nil && !c.conn.IsClosed() {
				c.conn.Close()
			}
			c.connMutex.Unlock()

			if err := c.connect(rabbitMQURL); err != nil {
				c.log.Error("RabbitMQ reconnection failed", zap.Error(err))
				time.Sleep(5 * time.Second)
				select {
				case c.reconnectCh <- true:
				default:
				}
				continue
			}

			// Restart consuming after reconnection with the consuming context
			c.consumingMutex.Lock()
			ctx := c.consumingCtx
			restart := ctx != nil && ctx.Err() == nil && !c.isConsuming
			c.consumingMutex.Unlock()
			if restart {
				if err := c.StartConsuming(ctx); err != nil {
					c.log.Error("Failed to restart food entry consumer", zap.Error(err))
				}
			}
		case <-c.stopReconnect:
			return
		}
	}
}

// StartConsuming starts consuming messages from the queue in a background
// goroutine. A second call while consuming is a no-op.
func (c *FoodEntryConsumer) StartConsuming(ctx context.Context) error {
	c.consumingMutex.Lock()
	if c.isConsuming {
		c.consumingMutex.Unlock()
		c.log.Info("Food entry consumer is already running, skipping duplicate start")
		return nil
	}
	c.isConsuming = true
	c.consumingCtx = ctx
	c.consumingMutex.Unlock()

	stopped := func() {
		c.consumingMutex.Lock()
		c.isConsuming = false
		c.consumingMutex.Unlock()
	}

	c.connMutex.RLock()
	channel := c.channel
	conn := c.conn
	c.connMutex.RUnlock()

	if channel == nil || channel.IsClosed() || conn == nil || conn.IsClosed() {
		stopped()
		return fmt.Errorf("RabbitMQ connection is closed")
	}

	// one unacknowledged message per consumer
	if err := channel.Qos(1, 0, false); err != nil {
		stopped()
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	consumerTag := fmt.Sprintf("food-entry-consumer-%d", time.Now().UnixNano())
	msgs, err := channel.Consume(
		c.queueName, // queue
		consumerTag, // consumer tag
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		stopped()
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.log.Info("Food entry consumer started",
		zap.String("consumer_tag", consumerTag),
		zap.String("queue", c.queueName))

	go func() {
		defer stopped()

		for {
			select {
			case <-ctx.Done():
				c.log.Info("Food entry consumer context cancelled")
				return
			case msg, ok := <-msgs:
				if !ok {
					c.log.Warn("Food entry consumer channel closed, attempting reconnection")
					select {
					case c.reconnectCh <- true:
					default:
					}
					return
				}
				c.settle(msg, c.HandleMessage(ctx, msg.MessageId, msg.Body))
			}
		}
	}()

	return nil
}

func (c *FoodEntryConsumer) settle(msg amqp091.Delivery, d Disposition) {
	var err error
	switch d {
	case Ack:
		err = msg.Ack(false)
	case Requeue:
		err = msg.Nack(false, true)
	default:
		err = msg.Nack(false, false)
	}
	if err != nil {
		c.log.Error("Failed to settle food entry message",
			zap.String("disposition", d.String()),
			zap.Error(err))
	}
}

// HandleMessage appends the entry described by body and decides how the
// delivery is settled. Malformed entries and unknown barcodes are rejected;
// lookup network failures and storage errors are requeued. messageID is the
// AMQP message ID and may be empty.
func (c *FoodEntryConsumer) HandleMessage(ctx context.Context, messageID string, body []byte) Disposition {
	var req FoodEntryMessage
	if err := json.Unmarshal(body, &req); err != nil {
		c.log.Warn("Failed to unmarshal food entry message", zap.Error(err))
		return Reject
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		c.log.Warn("Invalid food entry message: user_id is not a valid UUID",
			zap.String("user_id", req.UserID))
		return Reject
	}

	hasBarcode := req.Barcode != ""
	if hasBarcode == (req.Manual != nil) {
		c.log.Warn("Invalid food entry message: exactly one of barcode or manual is required",
			zap.String("user_id", req.UserID))
		return Reject
	}

	entryID, err := entryIDOf(req.EntryID, messageID)
	if err != nil {
		c.log.Warn("Invalid food entry message: entry_id is not a valid UUID",
			zap.String("user_id", req.UserID),
			zap.String("entry_id", req.EntryID))
		return Reject
	}
	if entryID == uuid.Nil {
		c.log.Debug("Food entry message has no entry_id or message ID, redeliveries are not deduplicated",
			zap.String("user_id", req.UserID))
	}

	var item *domain.FoodLogItem
	if hasBarcode {
		item, err = c.foodService.AddBarcodeFood(ctx, userID, entryID, req.Barcode)
	} else {
		item, err = c.foodService.AddManualFood(ctx, userID, entryID, *req.Manual)
	}

	if err != nil {
		d := dispositionFor(err)
		c.log.Warn("Failed to log food entry from RabbitMQ",
			zap.String("user_id", req.UserID),
			zap.String("barcode", req.Barcode),
			zap.String("disposition", d.String()),
			zap.Error(err))
		return d
	}

	c.log.Info("Logged food entry from RabbitMQ",
		zap.String("user_id", req.UserID),
		zap.String("item_id", item.ID.String()),
		zap.String("source", string(item.Source)))
	return Ack
}

// entryIDOf prefers the explicit entry_id, then a stable ID derived from the
// message ID. uuid.Nil means neither was given.
func entryIDOf(entryID, messageID string) (uuid.UUID, error) {
	if entryID != "" {
		return uuid.Parse(entryID)
	}
	if messageID != "" {
		return uuid.NewSHA1(entryNamespace, []byte(messageID)), nil
	}
	return uuid.Nil, nil
}

func dispositionFor(err error) Disposition {
	if errors.Is(err, domain.ErrInvalidFoodEntry) {
		return Reject
	}
	if kind, ok := domain.LookupErrorKindOf(err); ok && kind != domain.NetworkError {
		return Reject
	}
	return Requeue
}

// Close closes the RabbitMQ connection and stops consuming.
// The consuming context is cancelled by main during graceful shutdown.
func (c *FoodEntryConsumer) Close() error {
	close(c.stopReconnect)

	c.consumingMutex.Lock()
	c.isConsuming = false
	c.consumingMutex.Unlock()

	c.connMutex.Lock()
	defer c.connMutex.Unlock()

	if c.channel != nil && !c.channel.IsClosed() {
		if err := c.channel.Close(); err != nil {
			c.log.Warn("Error closing RabbitMQ channel", zap.Error(err))
		}
	}
	if c.conn != nil && !c.conn.IsClosed() {
		if err := c.conn.Close(); err != nil {
			c.log.Warn("Error closing RabbitMQ connection", zap.Error(err))
		}
	}

	c.log.Info("Food entry consumer closed")
	return nil
}
