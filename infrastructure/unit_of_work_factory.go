package infrastructure

import (
	"context"

	"quizstake/domain/events"
	"quizstake/domain/interfaces"
)

type repositoryFactory interface {
	CreateWithPublisher(transactionalPublisher interfaces.TransactionalEventPublisher) interfaces.UnitOfWork
}

// UnitOfWorkFactory gives every unit of work its own transactional
// publisher in front of the shared event publisher
type UnitOfWorkFactory struct {
	repoFactory    repositoryFactory
	eventPublisher interfaces.EventPublisher
}

// NewUnitOfWorkFactory wraps a storage factory (postgres or memory)
func NewUnitOfWorkFactory(repoFactory repositoryFactory, eventPublisher interfaces.EventPublisher) *UnitOfWorkFactory {
	return &UnitOfWorkFactory{
		repoFactory:    repoFactory,
		eventPublisher: eventPublisher,
	}
}

// RegisterLocalHandler registers an in-process handler when the publisher
// supports it
func (f *UnitOfWorkFactory) RegisterLocalHandler(eventType events.EventType, handler func(context.Context, events.Event) error) {
	if p, ok := f.eventPublisher.(*NATSEventPublisher); ok {
		p.RegisterLocalHandler(eventType, handler)
	}
}

// Create creates a new UnitOfWork
func (f *UnitOfWorkFactory) Create() interfaces.UnitOfWork {
	return f.repoFactory.CreateWithPublisher(NewTransactionalPublisher(f.eventPublisher))
}
