package testutil

import (
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/webhookhub/webhookhub/internal/idgen"
	"github.com/webhookhub/webhookhub/internal/models"
)

// ============================== Mock Destination ==============================

var DestinationFactory = &mockDestinationFactory{}

type mockDestinationFactory struct {
}

func (f *mockDestinationFactory) Any(opts ...func(*models.Destination)) models.Destination {
	id := idgen.Destination()
	destination := models.Destination{
		ID:        id,
		Name:      fmt.Sprintf("%s-%s", gofakeit.Word(), RandomString(6)),
		TargetURL: fmt.Sprintf("https://%s/webhooks", gofakeit.DomainName()),
		Active:    true,
		CreatedAt: time.Now(),
		Rules: []models.DestinationRule{
			{
				ID:            idgen.Rule(),
				DestinationID: id,
				SourceName:    "test-source",
				EventType:     TestEventTypes[0],
			},
		},
	}

	for _, opt := range opts {
		opt(&destination)
	}

	return destination
}

func (f *mockDestinationFactory) AnyPointer(opts ...func(*models.Destination)) *models.Destination {
	destination := f.Any(opts...)
	return &destination
}

func (f *mockDestinationFactory) WithID(id string) func(*models.Destination) {
	return func(destination *models.Destination) {
		destination.ID = id
		for i := range destination.Rules {
			destination.Rules[i].DestinationID = id
		}
	}
}

func (f *mockDestinationFactory) WithName(name string) func(*models.Destination) {
	return func(destination *models.Destination) {
		destination.Name = name
	}
}

func (f *mockDestinationFactory) WithTargetURL(targetURL string) func(*models.Destination) {
	return func(destination *models.Destination) {
		destination.TargetURL = targetURL
	}
}

func (f *mockDestinationFactory) WithActive(active bool) func(*models.Destination) {
	return func(destination *models.Destination) {
		destination.Active = active
	}
}

func (f *mockDestinationFactory) WithCreatedAt(createdAt time.Time) func(*models.Destination) {
	return func(destination *models.Destination) {
		destination.CreatedAt = createdAt
	}
}

// WithRule subscribes the destination to one (source, event type) pair,
// replacing the default rule set.
func (f *mockDestinationFactory) WithRule(sourceName, eventType string) func(*models.Destination) {
	return func(destination *models.Destination) {
		destination.Rules = []models.DestinationRule{
			{
				ID:            idgen.Rule(),
				DestinationID: destination.ID,
				SourceName:    sourceName,
				EventType:     eventType,
			},
		}
	}
}

// WithAddedRule appends one more (source, event type) subscription.
func (f *mockDestinationFactory) WithAddedRule(sourceName, eventType string) func(*models.Destination) {
	return func(destination *models.Destination) {
		destination.Rules = append(destination.Rules, models.DestinationRule{
			ID:            idgen.Rule(),
			DestinationID: destination.ID,
			SourceName:    sourceName,
			EventType:     eventType,
		})
	}
}

func (f *mockDestinationFactory) WithRules(rules []models.DestinationRule) func(*models.Destination) {
	return func(destination *models.Destination) {
		destination.Rules = rules
	}
}
