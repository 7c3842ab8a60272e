package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/amirphl/orochi-outreach/config"
)

// Engagement and lifecycle event routing keys
const (
	EventCampaignSent    = "campaign.sent"
	EventCampaignPaused  = "campaign.paused"
	EventCampaignDeleted = "campaign.deleted"
	EventEmailOpened     = "email.opened"
	EventEmailClicked    = "email.clicked"
	EventEmailReplied    = "email.replied"
)

// OutreachEvent is the message body published for every event
type OutreachEvent struct {
	Type       string         `json:"type"`
	CampaignID uuid.UUID      `json:"campaign_id"`
	LeadID     *uuid.UUID     `json:"lead_id,omitempty"`
	UserID     *uuid.UUID     `json:"user_id,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
	Data       map[string]any `json:"data,omitempty"`
}

// EventPublisher publishes outreach events; failures never affect the caller's result
type EventPublisher interface {
	Publish(ctx context.Context, event OutreachEvent) error
	Close() error
}

// RabbitMQPublisher publishes to a durable topic exchange
type RabbitMQPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

// NewRabbitMQPublisher dials the broker and declares the exchange
func NewRabbitMQPublisher(cfg config.EventsConfig) (*RabbitMQPublisher, error) {
	conn, err := amqp.Dial(cfg.AMQPURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", cfg.Exchange, err)
	}

	return &RabbitMQPublisher{conn: conn, ch: ch, exchange: cfg.Exchange}, nil
}

func (p *RabbitMQPublisher) Publish(ctx context.Context, event OutreachEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	return p.ch.PublishWithContext(ctx, p.exchange, event.Type, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.OccurredAt,
		MessageId:    uuid.NewString(),
		Body:         body,
	})
}

func (p *RabbitMQPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ch.Close(); err != nil {
		_ = p.conn.Close()
		return err
	}
	return p.conn.Close()
}

// NoopPublisher drops events when the bus is disabled
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, OutreachEvent) error { return nil }
func (NoopPublisher) Close() error                                { return nil }
