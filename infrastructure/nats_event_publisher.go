package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"quizstake/domain/events"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// EventEnvelope is the wire format of published events
type EventEnvelope struct {
	EventID       string          `json:"eventId"`
	EventType     string          `json:"eventType"`
	Timestamp     time.Time       `json:"timestamp"`
	SourceService string          `json:"sourceService"`
	Payload       json.RawMessage `json:"payload"`
}

type messagePublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// NATSEventPublisher runs local handlers and then publishes the event to
// NATS. Without a client it only runs the local handlers.
type NATSEventPublisher struct {
	client         messagePublisher
	subjectMapper  *EventSubjectMapper
	publishTimeout time.Duration

	mu            sync.RWMutex
	localHandlers map[events.EventType][]func(context.Context, events.Event) error
}

// NewNATSEventPublisher creates a publisher. client may be nil.
func NewNATSEventPublisher(client *NATSClient, subjectMapper *EventSubjectMapper) *NATSEventPublisher {
	p := newEventPublisher(subjectMapper)
	if client != nil {
		p.client = client
	}
	return p
}

// NewLocalEventPublisher creates a publisher that never leaves the process
func NewLocalEventPublisher() *NATSEventPublisher {
	return newEventPublisher(NewEventSubjectMapper())
}

func newEventPublisher(subjectMapper *EventSubjectMapper) *NATSEventPublisher {
	return &NATSEventPublisher{
		subjectMapper:  subjectMapper,
		publishTimeout: 5 * time.Second,
		localHandlers:  make(map[events.EventType][]func(context.Context, events.Event) error),
	}
}

// Publish invokes local handlers, then sends the event to NATS
func (p *NATSEventPublisher) Publish(event events.Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), p.publishTimeout)
	defer cancel()

	eventType := event.Type()

	p.mu.RLock()
	handlers := p.localHandlers[eventType]
	p.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			log.WithFields(log.Fields{
				"eventType": eventType,
				"error":     err,
			}).Error("Local event handler failed")
		}
	}

	if p.client == nil {
		return nil
	}

	envelope, err := NewEventEnvelope(event)
	if err != nil {
		return err
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal event envelope: %w", err)
	}

	subject := p.subjectMapper.MapEventToSubject(event)
	if err := p.client.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("failed to publish event to NATS: %w", err)
	}

	log.WithFields(log.Fields{
		"eventType": eventType,
		"eventId":   envelope.EventID,
		"subject":   subject,
	}).Debug("Successfully published event to NATS")
	return nil
}

// RegisterLocalHandler registers a handler invoked in-process for eventType
func (p *NATSEventPublisher) RegisterLocalHandler(eventType events.EventType, handler func(context.Context, events.Event) error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.localHandlers[eventType] = append(p.localHandlers[eventType], handler)
	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(p.localHandlers[eventType]),
	}).Debug("Registered local event handler")
}

// NewEventEnvelope wraps event with a fresh id and timestamp
func NewEventEnvelope(event events.Event) (*EventEnvelope, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event payload: %w", err)
	}
	return &EventEnvelope{
		EventID:       uuid.NewString(),
		EventType:     string(event.Type()),
		Timestamp:     time.Now().UTC(),
		SourceService: "quizstake",
		Payload:       payload,
	}, nil
}
