// Package mongo provides MongoDB implementations of the audit-oriented
// repositories. The event archive is append-only; it never participates in
// the engine's storage transaction.
package mongo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/meridian-ledger/internal/domain/event"
)

const (
	// EventCollectionName is the name of the event archive collection in MongoDB
	EventCollectionName = "domain_events"
)

// EventArchiveRepository implements the event.Archive interface for MongoDB
type EventArchiveRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewEventArchiveRepository creates a new MongoDB event archive repository
func NewEventArchiveRepository(logger *slog.Logger, db *mongo.Database) event.Archive {
	return &EventArchiveRepository{
		db:     db,
		logger: logger,
	}
}

// Store appends a domain event to the archive
func (r *EventArchiveRepository) Store(ctx context.Context, ev *event.TransactionProcessed) error {
	collection := r.db.Collection(EventCollectionName)

	_, err := collection.InsertOne(ctx, ev)
	if err != nil {
		r.logger.Error("Failed to archive domain event",
			"event_id", ev.ID.String(),
			"transaction_id", ev.TransactionID.String(),
			"error", err)
		return fmt.Errorf("failed to archive domain event: %w", err)
	}

	return nil
}

// GetByTransactionID retrieves every archived event for a transaction.
// At-least-once delivery means a transaction may carry more than one event.
func (r *EventArchiveRepository) GetByTransactionID(ctx context.Context, transactionID uuid.UUID) ([]*event.TransactionProcessed, error) {
	collection := r.db.Collection(EventCollectionName)

	filter := bson.M{"transaction_id": transactionID}
	cursor, err := collection.Find(ctx, filter)
	if err != nil {
		r.logger.Error("Failed to get archived events",
			"transaction_id", transactionID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get archived events: %w", err)
	}
	defer cursor.Close(ctx)

	var events []*event.TransactionProcessed
	if err := cursor.All(ctx, &events); err != nil {
		r.logger.Error("Failed to decode archived events",
			"transaction_id", transactionID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to decode archived events: %w", err)
	}

	return events, nil
}

// GetByAccountID retrieves paginated archived events for an account,
// newest first.
func (r *EventArchiveRepository) GetByAccountID(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*event.TransactionProcessed, error) {
	collection := r.db.Collection(EventCollectionName)

	filter := bson.M{"account_id": accountID}
	opts := options.Find().
		SetSort(bson.M{"occurred_at": -1}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to get archived events",
			"account_id", accountID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get archived events: %w", err)
	}
	defer cursor.Close(ctx)

	var events []*event.TransactionProcessed
	if err := cursor.All(ctx, &events); err != nil {
		r.logger.Error("Failed to decode archived events",
			"account_id", accountID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to decode archived events: %w", err)
	}

	return events, nil
}

// GetByTimeRange retrieves paginated archived events within the specified
// time window, newest first.
func (r *EventArchiveRepository) GetByTimeRange(ctx context.Context, startTime, endTime time.Time, limit, offset int) ([]*event.TransactionProcessed, error) {
	collection := r.db.Collection(EventCollectionName)

	filter := bson.M{
		"occurred_at": bson.M{
			"$gte": startTime,
			"$lte": endTime,
		},
	}
	opts := options.Find().
		SetSort(bson.M{"occurred_at": -1}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to get archived events by time range",
			"start_time", startTime,
			"end_time", endTime,
			"error", err)
		return nil, fmt.Errorf("failed to get archived events by time range: %w", err)
	}
	defer cursor.Close(ctx)

	var events []*event.TransactionProcessed
	if err := cursor.All(ctx, &events); err != nil {
		r.logger.Error("Failed to decode archived events by time range", "error", err)
		return nil, fmt.Errorf("failed to decode archived events by time range: %w", err)
	}

	return events, nil
}
