// Package events handles event emission for resolution and dedup outcomes
package events

import (
	"context"
	"encoding/json"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/internal/platform/appcontext"
	"github.com/Ramsey-B/fern/internal/platform/tracing"
	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/models"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

// Emitter publishes resolution and dedup events
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// EmitEntityResults emits the entity events for one document's resolved
// parties as a single batch. Parties without a resolved entity are skipped.
func (e *Emitter) EmitEntityResults(ctx context.Context, documentID string, parties []models.ResolvedParty) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitEntityResults")
	defer span.End()

	events := make([]*kafka.EntityEvent, 0, len(parties))
	for _, party := range parties {
		if party.Result == nil || party.Result.EntityID == nil {
			continue
		}
		events = append(events, e.entityEvent(ctx, documentID, party.Kind, party.Result))
	}
	if len(events) == 0 {
		return nil
	}

	if err := e.producer.PublishEntityEvents(ctx, events); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit entity events")
		return err
	}

	return nil
}

func (e *Emitter) entityEvent(ctx context.Context, documentID string, kind models.EntityKind, result *models.MatchResult) *kafka.EntityEvent {
	eventType := "entity.matched"
	if result.CreatedNew {
		eventType = "entity.created"
	}

	data, _ := json.Marshal(map[string]any{
		"schema_version": SchemaVersion,
		"reasoning":      result.Reasoning,
	})

	return &kafka.EntityEvent{
		EventType:  eventType,
		TenantID:   appcontext.GetTenantID(ctx),
		EntityID:   *result.EntityID,
		EntityKind: string(kind),
		DocumentID: documentID,
		Confidence: result.Confidence,
		Method:     string(result.Method),
		Data:       data,
	}
}

// EmitDocumentProcessed emits an event when a document finishes the pipeline
func (e *Emitter) EmitDocumentProcessed(ctx context.Context, documentID string) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitDocumentProcessed")
	defer span.End()

	event := &kafka.DocumentEvent{
		EventType:  "document.processed",
		TenantID:   appcontext.GetTenantID(ctx),
		DocumentID: documentID,
	}

	if err := e.producer.PublishDocumentEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit document.processed event")
		return err
	}

	return nil
}

// EmitDuplicateDetected emits an event when a document lands in a duplicate
// group
func (e *Emitter) EmitDuplicateDetected(ctx context.Context, group *models.DuplicateGroup) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitDuplicateDetected")
	defer span.End()

	data, _ := json.Marshal(map[string]any{
		"schema_version":  SchemaVersion,
		"matches":         group.Matches,
		"mean_similarity": group.MeanSimilarity,
	})

	event := &kafka.DocumentEvent{
		EventType:  "document.duplicate",
		TenantID:   group.TenantID,
		DocumentID: group.MasterDocumentID,
		GroupID:    group.ID,
		Data:       data,
	}

	if err := e.producer.PublishDocumentEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit document.duplicate event")
		return err
	}

	return nil
}
