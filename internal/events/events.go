// Package events publishes service order lifecycle notifications.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// Type names a lifecycle event.
type Type string

const (
	OrderCreated          Type = "service_order.created"
	OrderUpdated          Type = "service_order.updated"
	OrderDeleted          Type = "service_order.deleted"
	OrderMaterialsChanged Type = "service_order.materials_changed"
)

// Event is the payload published for every order mutation.
type Event struct {
	ID          string    `json:"event_id"`
	Type        Type      `json:"event_type"`
	OccurredAt  time.Time `json:"occurred_at"`
	OrderID     string    `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	Status      string    `json:"status,omitempty"`
}

// New builds an event with a fresh id.
func New(eventType Type, orderID, orderNumber, status string, at time.Time) Event {
	return Event{
		ID:          uuid.NewString(),
		Type:        eventType,
		OccurredAt:  at.UTC(),
		OrderID:     orderID,
		OrderNumber: orderNumber,
		Status:      status,
	}
}

// Publisher delivers events to subscribers.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, Event) error { return nil }

const publishQoS = 1

// MQTTPublisher publishes events as JSON on "<prefix>/service_order/<action>".
type MQTTPublisher struct {
	client mqtt.Client
	prefix string
}

// NewMQTTPublisher connects to broker and returns a ready publisher.
func NewMQTTPublisher(broker, clientID, prefix string) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, errors.New("mqtt connect: timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}
	return &MQTTPublisher{client: client, prefix: prefix}, nil
}

// Topic returns the topic an event type is published on.
func (p *MQTTPublisher) Topic(eventType Type) string {
	return p.prefix + "/" + strings.ReplaceAll(string(eventType), ".", "/")
}

// Publish sends the event and waits for the broker acknowledgement or ctx.
func (p *MQTTPublisher) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	token := p.client.Publish(p.Topic(event.Type), publishQoS, false, payload)
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close disconnects from the broker, allowing in-flight work 250ms to finish.
func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}
