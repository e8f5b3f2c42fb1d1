// Package mongo provides the MongoDB audit archive. Published wallet events
// are mirrored here for the marketplace's dashboard and export tooling; the
// Postgres ledger remains the source of truth.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/course-token-wallet/internal/domain/ledger"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	// EventCollectionName is the name of the archived wallet event collection
	EventCollectionName = "wallet_events"
)

// ArchivedEvent is a ledger entry as stored in the audit archive
type ArchivedEvent struct {
	EntryID           uuid.UUID   `bson:"entry_id"`
	AccountID         uuid.UUID   `bson:"account_id"`
	Amount            int64       `bson:"amount"`
	Kind              ledger.Kind `bson:"kind"`
	Description       string      `bson:"description,omitempty"`
	RelatedPurchaseID *uuid.UUID  `bson:"related_purchase_id,omitempty"`
	CreatedAt         time.Time   `bson:"created_at"`
	ArchivedAt        time.Time   `bson:"archived_at"`
}

// AuditRepository archives published wallet events in MongoDB
type AuditRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewAuditRepository creates a new MongoDB audit repository
func NewAuditRepository(logger *slog.Logger, db *mongo.Database) *AuditRepository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// Archive stores a published ledger entry. Re-archiving the same entry is a
// no-op so the relay can safely retry after partial failures.
func (r *AuditRepository) Archive(ctx context.Context, entry *ledger.Entry) error {
	collection := r.db.Collection(EventCollectionName)

	event := ArchivedEvent{
		EntryID:           entry.ID,
		AccountID:         entry.AccountID,
		Amount:            entry.Amount,
		Kind:              entry.Kind,
		Description:       entry.Description,
		RelatedPurchaseID: entry.RelatedPurchaseID,
		CreatedAt:         entry.CreatedAt,
		ArchivedAt:        time.Now().UTC(),
	}

	filter := bson.M{"entry_id": entry.ID}
	update := bson.M{"$setOnInsert": event}
	opts := options.Update().SetUpsert(true)

	_, err := collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		r.logger.Error("Failed to archive wallet event", "entry_id", entry.ID.String(), "error", err)
		return fmt.Errorf("failed to archive wallet event: %w", err)
	}

	return nil
}

// GetByEntryID retrieves an archived event, or nil when it was never archived
func (r *AuditRepository) GetByEntryID(ctx context.Context, entryID uuid.UUID) (*ArchivedEvent, error) {
	collection := r.db.Collection(EventCollectionName)

	var event ArchivedEvent
	err := collection.FindOne(ctx, bson.M{"entry_id": entryID}).Decode(&event)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		r.logger.Error("Failed to get archived wallet event", "entry_id", entryID.String(), "error", err)
		return nil, fmt.Errorf("failed to get archived wallet event: %w", err)
	}

	return &event, nil
}

// CountForAccount returns the number of archived events for an account
func (r *AuditRepository) CountForAccount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	collection := r.db.Collection(EventCollectionName)

	count, err := collection.CountDocuments(ctx, bson.M{"account_id": accountID})
	if err != nil {
		r.logger.Error("Failed to count archived wallet events", "account_id", accountID.String(), "error", err)
		return 0, fmt.Errorf("failed to count archived wallet events: %w", err)
	}

	return count, nil
}
