package testutil

import (
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/webhookhub/webhookhub/internal/idgen"
	"github.com/webhookhub/webhookhub/internal/models"
)

// ============================== Mock Source ==============================

var SourceFactory = &mockSourceFactory{}

type mockSourceFactory struct {
}

// Any returns a source with a unique name so tests can insert freely
// against the unique name constraint.
func (f *mockSourceFactory) Any(opts ...func(*models.Source)) models.Source {
	source := models.Source{
		ID:         idgen.Source(),
		Name:       fmt.Sprintf("%s-%s", gofakeit.Word(), RandomString(6)),
		HMACSecret: RandomString(64),
		Active:     true,
		CreatedAt:  time.Now(),
	}

	for _, opt := range opts {
		opt(&source)
	}

	return source
}

func (f *mockSourceFactory) AnyPointer(opts ...func(*models.Source)) *models.Source {
	source := f.Any(opts...)
	return &source
}

func (f *mockSourceFactory) WithID(id string) func(*models.Source) {
	return func(source *models.Source) {
		source.ID = id
	}
}

func (f *mockSourceFactory) WithName(name string) func(*models.Source) {
	return func(source *models.Source) {
		source.Name = name
	}
}

func (f *mockSourceFactory) WithHMACSecret(secret string) func(*models.Source) {
	return func(source *models.Source) {
		source.HMACSecret = secret
	}
}

func (f *mockSourceFactory) WithActive(active bool) func(*models.Source) {
	return func(source *models.Source) {
		source.Active = active
	}
}

func (f *mockSourceFactory) WithCreatedAt(createdAt time.Time) func(*models.Source) {
	return func(source *models.Source) {
		source.CreatedAt = createdAt
	}
}
