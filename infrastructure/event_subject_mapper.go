package infrastructure

import (
	"fmt"

	"quizstake/domain/events"
)

// DomainEventStream is the JetStream stream carrying every subject below
const DomainEventStream = "quizstake_events"

var eventSubjects = map[events.EventType]string{
	events.EventTypeGameCreated:    "games.created",
	events.EventTypeGameAccepted:   "games.accepted",
	events.EventTypeGameDeclined:   "games.declined",
	events.EventTypeGameCancelled:  "games.cancelled",
	events.EventTypeGameDeleted:    "games.deleted",
	events.EventTypeGameCompleted:  "games.completed",
	events.EventTypeGameVoided:     "games.voided",
	events.EventTypeBalanceChanged: "ledger.balance_changed",
}

// EventSubjectMapper handles mapping between domain events and NATS subjects
type EventSubjectMapper struct{}

// NewEventSubjectMapper creates a new event subject mapper
func NewEventSubjectMapper() *EventSubjectMapper {
	return &EventSubjectMapper{}
}

// MapEventToSubject converts a domain event to its NATS subject
func (m *EventSubjectMapper) MapEventToSubject(event events.Event) string {
	if subject, ok := eventSubjects[event.Type()]; ok {
		return subject
	}
	return fmt.Sprintf("unknown.%s", event.Type())
}

// MapSubjectToEventType converts a NATS subject back to an event type
func (m *EventSubjectMapper) MapSubjectToEventType(subject string) events.EventType {
	for eventType, s := range eventSubjects {
		if s == subject {
			return eventType
		}
	}
	return events.EventType(subject)
}

// GetAllSubjects returns the stream's subject filters
func (m *EventSubjectMapper) GetAllSubjects() []string {
	return []string{"games.*", "ledger.*"}
}
