package eventlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"bookstore/pkg/container"
)

var (
	ErrConcurrencyConflict = errors.New("concurrency conflict: version mismatch")
	ErrInvalidVersion      = errors.New("invalid version number")
)

// Event is a recorded domain event with its metadata
type Event struct {
	ID            int64             `json:"id"`
	EventID       uuid.UUID         `json:"event_id"`
	AggregateID   string            `json:"aggregate_id"`
	AggregateType string            `json:"aggregate_type"`
	EventType     string            `json:"event_type"`
	EventData     json.RawMessage   `json:"event_data"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	Version       int               `json:"version"`
	CreatedAt     time.Time         `json:"created_at"`
}

// Journal is an append-only, process-local event log. Events are numbered
// from 1 in append order and versioned per aggregate.
type Journal struct {
	mu       sync.RWMutex
	events   *container.Sequence[Event]
	versions map[string]int
	tracer   trace.Tracer
	now      func() time.Time
}

// NewJournal creates an empty journal
func NewJournal() *Journal {
	return &Journal{
		events:   container.NewSequence[Event](),
		versions: make(map[string]int),
		tracer:   otel.Tracer("bookstore/eventlog"),
		now:      time.Now,
	}
}

type metadataKey struct{}

// WithMetadata returns a context whose events will carry key=value in their metadata
func WithMetadata(ctx context.Context, key, value string) context.Context {
	md := make(map[string]string)
	if parent, ok := ctx.Value(metadataKey{}).(map[string]string); ok {
		maps.Copy(md, parent)
	}
	md[key] = value
	return context.WithValue(ctx, metadataKey{}, md)
}

func metadataFrom(ctx context.Context) map[string]string {
	md, ok := ctx.Value(metadataKey{}).(map[string]string)
	if !ok {
		return nil
	}
	return maps.Clone(md)
}

// AppendEvents atomically appends events with optimistic concurrency control
func (j *Journal) AppendEvents(ctx context.Context, aggregateID, aggregateType string, expectedVersion int, events []Event) error {
	_, span := j.tracer.Start(ctx, "eventlog.append",
		trace.WithAttributes(
			attribute.String("aggregate.id", aggregateID),
			attribute.String("aggregate.type", aggregateType),
			attribute.Int("expected.version", expectedVersion),
			attribute.Int("event.count", len(events)),
		),
	)
	defer span.End()

	if expectedVersion < 0 {
		return ErrInvalidVersion
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	currentVersion := j.versions[aggregateID]
	if currentVersion != expectedVersion {
		span.SetAttributes(
			attribute.Int("actual.version", currentVersion),
			attribute.Bool("conflict.detected", true),
		)
		return ErrConcurrencyConflict
	}

	md := metadataFrom(ctx)
	for i, event := range events {
		event.ID = int64(j.events.Len()) + 1
		event.EventID = uuid.New()
		event.AggregateID = aggregateID
		event.AggregateType = aggregateType
		event.Version = expectedVersion + i + 1
		event.CreatedAt = j.now().UTC()
		if event.Metadata == nil {
			event.Metadata = md
		}
		j.events.Append(event)

		span.AddEvent("event.appended", trace.WithAttributes(
			attribute.Int64("event.id", event.ID),
			attribute.Int("event.version", event.Version),
			attribute.String("event.type", event.EventType),
		))
	}
	j.versions[aggregateID] = expectedVersion + len(events)

	span.SetAttributes(attribute.Bool("append.success", true))
	return nil
}

// Record appends a single event for an aggregate at its current version.
func (j *Journal) Record(ctx context.Context, aggregateID, aggregateType, eventType string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s event data: %w", eventType, err)
	}

	// Writers are serialized by their owning service; the version read and
	// the append still go through the conflict check.
	version := j.CurrentVersion(ctx, aggregateID)
	event := Event{EventType: eventType, EventData: payload}
	if err := j.AppendEvents(ctx, aggregateID, aggregateType, version, []Event{event}); err != nil {
		return fmt.Errorf("append %s event: %w", eventType, err)
	}
	return nil
}

// LoadEvents retrieves the events of one aggregate, optionally bounded by version
func (j *Journal) LoadEvents(ctx context.Context, aggregateID string, fromVersion, toVersion int) ([]Event, error) {
	_, span := j.tracer.Start(ctx, "eventlog.load",
		trace.WithAttributes(
			attribute.String("aggregate.id", aggregateID),
			attribute.Int("from.version", fromVersion),
			attribute.Int("to.version", toVersion),
		),
	)
	defer span.End()

	if fromVersion < 0 || toVersion < 0 {
		return nil, ErrInvalidVersion
	}

	j.mu.RLock()
	defer j.mu.RUnlock()

	var events []Event
	for _, event := range j.events.All() {
		if event.AggregateID != aggregateID || event.Version < fromVersion {
			continue
		}
		if toVersion > 0 && event.Version > toVersion {
			continue
		}
		events = append(events, event)
	}

	span.SetAttributes(attribute.Int("events.loaded", len(events)))
	return events, nil
}

// CurrentVersion returns the latest version for an aggregate, 0 if it has no events
func (j *Journal) CurrentVersion(ctx context.Context, aggregateID string) int {
	_, span := j.tracer.Start(ctx, "eventlog.get_version",
		trace.WithAttributes(attribute.String("aggregate.id", aggregateID)),
	)
	defer span.End()

	j.mu.RLock()
	defer j.mu.RUnlock()

	version := j.versions[aggregateID]
	span.SetAttributes(attribute.Int("current.version", version))
	return version
}

// StreamEvents returns up to batchSize events with ID greater than fromID
func (j *Journal) StreamEvents(ctx context.Context, fromID int64, batchSize int) ([]Event, error) {
	_, span := j.tracer.Start(ctx, "eventlog.stream",
		trace.WithAttributes(
			attribute.Int64("from.id", fromID),
			attribute.Int("batch.size", batchSize),
		),
	)
	defer span.End()

	if fromID < 0 {
		fromID = 0
	}
	if batchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", batchSize)
	}

	j.mu.RLock()
	defer j.mu.RUnlock()

	// Event IDs are positions plus one, so the first match sits at index fromID.
	events := make([]Event, 0, batchSize)
	for i := int(fromID); i < j.events.Len() && len(events) < batchSize; i++ {
		event, err := j.events.Get(i)
		if err != nil {
			return nil, fmt.Errorf("read event %d: %w", i+1, err)
		}
		events = append(events, event)
	}

	span.SetAttributes(attribute.Int("events.streamed", len(events)))
	return events, nil
}

// Len returns the number of recorded events.
func (j *Journal) Len() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.events.Len()
}
