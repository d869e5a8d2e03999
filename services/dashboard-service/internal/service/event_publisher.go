package service

import (
	"github.com/grigta/covid-tracker/pkg/logger"
	"github.com/grigta/covid-tracker/pkg/messaging"
	"github.com/grigta/covid-tracker/services/dashboard-service/internal/models"
)

const (
	EventRegionSelected   = "dashboard.region.selected"
	EventCategorySelected = "dashboard.category.selected"
)

// SelectionEvent is published when a session settles on a new region or category.
type SelectionEvent struct {
	SessionID string          `json:"session_id"`
	Region    string          `json:"region"`
	Category  models.Category `json:"category"`
	Version   uint64          `json:"version"`
}

// EventPublisher forwards selection changes to the message broker.
type EventPublisher struct {
	publisher messaging.Publisher
	exchange  string
	logger    logger.Logger
}

func NewEventPublisher(publisher messaging.Publisher, exchange string, log logger.Logger) *EventPublisher {
	return &EventPublisher{
		publisher: publisher,
		exchange:  exchange,
		logger:    log.WithField("component", "event_publisher"),
	}
}

// Listener publishes an event each time the installed region or the active
// category differs from the previous snapshot. The initial state is not published.
func (p *EventPublisher) Listener(sessionID string) Listener {
	var (
		seen     bool
		region   string
		category models.Category
	)

	return func(state models.ViewState) {
		if !seen {
			seen = true
			region, category = state.SelectedRegion, state.ActiveCategory
			return
		}

		if state.SelectedRegion != region {
			region = state.SelectedRegion
			p.publish(EventRegionSelected, sessionID, state)
		}
		if state.ActiveCategory != category {
			category = state.ActiveCategory
			p.publish(EventCategorySelected, sessionID, state)
		}
	}
}

func (p *EventPublisher) publish(eventType, sessionID string, state models.ViewState) {
	msg := messaging.NewMessage(eventType, SelectionEvent{
		SessionID: sessionID,
		Region:    state.SelectedRegion,
		Category:  state.ActiveCategory,
		Version:   state.Version,
	})

	if err := p.publisher.Publish(p.exchange, eventType, msg); err != nil {
		RecordObserverError("events")
		p.logger.WithError(err).Warn("Failed to publish selection event",
			logger.Field{Key: "type", Value: eventType},
			logger.Field{Key: "session_id", Value: sessionID},
		)
	}
}
