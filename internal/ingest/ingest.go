package ingest

import (
	"context"
	"errors"

	"github.com/webhookhub/webhookhub/internal/deliverymq"
	"github.com/webhookhub/webhookhub/internal/logging"
	"github.com/webhookhub/webhookhub/internal/metrics"
	"github.com/webhookhub/webhookhub/internal/models"
	"github.com/webhookhub/webhookhub/internal/signature"
	"github.com/webhookhub/webhookhub/internal/store"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	ErrUnknownSource    = errors.New("unknown source")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrMissingEventType = errors.New("event type is required")
)

// IngestRequest carries one inbound webhook. RawBody is the request body
// byte for byte; the signature is computed over exactly these bytes.
type IngestRequest struct {
	SourceName     string
	EventType      string
	RawBody        []byte
	Signature      string
	IdempotencyKey string
	CorrelationID  string
}

type IngestResult struct {
	EventID       string `json:"id"`
	Duplicate     bool   `json:"duplicate"`
	DeliveryCount int    `json:"delivery_count"`
}

type Service interface {
	Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error)
}

// JobPublisher publishes first-attempt delivery jobs. Satisfied by
// *deliverymq.DeliveryMQ.
type JobPublisher interface {
	Publish(ctx context.Context, job models.DeliveryJob) error
}

var _ JobPublisher = (*deliverymq.DeliveryMQ)(nil)

type service struct {
	logger      *logging.Logger
	store       store.Store
	deliveryMQ  JobPublisher
	maxAttempts int
	meter       metrics.WebhookHubMetrics
}

var _ Service = (*service)(nil)

func NewService(
	logger *logging.Logger,
	entityStore store.Store,
	deliveryMQ JobPublisher,
	maxAttempts int,
) Service {
	meter, _ := metrics.New()
	return &service{
		logger:      logger,
		store:       entityStore,
		deliveryMQ:  deliveryMQ,
		maxAttempts: maxAttempts,
		meter:       meter,
	}
}

// Ingest authenticates, persists, and fans out one webhook. The order is
// fixed: no row is written before the signature checks out, no job is
// published before its delivery row is committed.
func (s *service) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	logger := s.logger.Ctx(ctx)

	source, err := s.store.RetrieveSourceByName(ctx, req.SourceName)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUnknownSource
		}
		return nil, err
	}

	// An inactive source answers exactly like a bad signature, so a caller
	// cannot probe which sources exist but are disabled.
	if !source.Active {
		return nil, ErrUnauthorized
	}
	if !signature.Verify(source.HMACSecret, req.RawBody, req.Signature) {
		return nil, ErrUnauthorized
	}
	if req.EventType == "" {
		return nil, ErrMissingEventType
	}

	idempotencyKey := req.IdempotencyKey
	if idempotencyKey == "" {
		idempotencyKey = models.DeriveIdempotencyKey(req.SourceName, req.EventType, req.RawBody)
	}

	event := models.NewEvent(req.SourceName, req.EventType, idempotencyKey, req.RawBody, req.CorrelationID)

	var deliveries []models.Delivery
	var jobs []models.DeliveryJob
	err = s.store.IngestTx(ctx, func(tx store.Store) error {
		inserted, err := tx.InsertEvent(ctx, &event)
		if err != nil {
			return err
		}
		if !inserted {
			return store.ErrDuplicateEvent
		}

		destinations, err := tx.ListActiveMatching(ctx, req.SourceName, req.EventType)
		if err != nil {
			return err
		}
		for _, destination := range destinations {
			delivery := models.NewPendingDelivery(event.ID, destination.ID, s.maxAttempts)
			deliveries = append(deliveries, delivery)
			jobs = append(jobs, models.NewDeliveryJob(delivery, destination.TargetURL, event.Payload))
		}
		if len(deliveries) == 0 {
			return nil
		}
		return tx.InsertPendingDeliveries(ctx, deliveries)
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateEvent) {
			return s.resolveDuplicate(ctx, req, idempotencyKey)
		}
		logger.Error("ingest transaction failed",
			zap.Error(err),
			zap.String("source", req.SourceName),
			zap.String("event_type", req.EventType))
		return nil, err
	}

	s.meter.EventIngested(ctx, metrics.IngestOpts{Source: req.SourceName})
	logger.Audit("event ingested",
		zap.String("event_id", event.ID),
		zap.String("source", req.SourceName),
		zap.String("event_type", req.EventType),
		zap.Int("deliveries", len(deliveries)))

	s.publishJobs(ctx, event.ID, jobs)

	return &IngestResult{
		EventID:       event.ID,
		Duplicate:     false,
		DeliveryCount: len(deliveries),
	}, nil
}

// resolveDuplicate answers a replayed ingest with the surviving event's ID.
// Nothing is written and nothing is published.
func (s *service) resolveDuplicate(ctx context.Context, req IngestRequest, idempotencyKey string) (*IngestResult, error) {
	existing, err := s.store.RetrieveEventByIdempotencyKey(ctx, req.SourceName, idempotencyKey)
	if err != nil {
		return nil, err
	}

	s.meter.EventIngested(ctx, metrics.IngestOpts{Source: req.SourceName, Duplicate: true})
	s.logger.Ctx(ctx).Info("duplicate event",
		zap.String("event_id", existing.ID),
		zap.String("source", req.SourceName),
		zap.String("event_type", req.EventType))

	return &IngestResult{
		EventID:   existing.ID,
		Duplicate: true,
	}, nil
}

// publishJobs fans the first-attempt jobs out after the commit. A failed
// publish is logged and counted but does not fail the request: the
// committed PENDING row is the recovery record, the same as a crash between
// commit and publish.
func (s *service) publishJobs(ctx context.Context, eventID string, jobs []models.DeliveryJob) {
	var g errgroup.Group
	for _, job := range jobs {
		g.Go(func() error {
			if err := s.deliveryMQ.Publish(ctx, job); err != nil {
				s.meter.PublishFailure(ctx)
				s.logger.Ctx(ctx).Error("failed to publish delivery job",
					zap.Error(err),
					zap.String("event_id", eventID),
					zap.String("delivery_id", job.DeliveryID))
			}
			return nil
		})
	}
	_ = g.Wait()
}
