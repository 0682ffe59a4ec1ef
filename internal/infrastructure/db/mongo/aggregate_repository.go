package mongo

import (
	"context"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dropme/rvm-backend/internal/core/domain"
)

// AggregateRepository reads and replaces user aggregate projections. The
// incremental path never goes through here; it runs inside the deposit
// transaction. This repository serves reads, audits, and rebuilds.
type AggregateRepository struct {
	aggregates *mongo.Collection
}

func NewAggregateRepository(db *mongo.Database) *AggregateRepository {
	return &AggregateRepository{aggregates: db.Collection(collectionAggregates)}
}

// Get returns the user's aggregate, or a zero-valued aggregate when the
// user has never deposited.
func (r *AggregateRepository) Get(ctx context.Context, userID string) (*domain.UserAggregate, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc aggregateDoc
	err := r.aggregates.FindOne(ctx, bson.M{"_id": userID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return &domain.UserAggregate{
			UserID:        userID,
			TotalPoints:   decimal.Zero,
			TotalWeightKg: decimal.Zero,
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return doc.toDomain()
}

// Replace overwrites the user's aggregate with a freshly computed one,
// creating the document when it does not exist.
func (r *AggregateRepository) Replace(ctx context.Context, agg *domain.UserAggregate) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := aggregateDoc{
		UserID:        agg.UserID,
		TotalPoints:   toDecimal128(agg.TotalPoints),
		TotalWeightKg: toDecimal128(agg.TotalWeightKg),
		UpdatedAt:     agg.UpdatedAt.UTC(),
	}
	_, err := r.aggregates.ReplaceOne(ctx,
		bson.M{"_id": agg.UserID}, doc, options.Replace().SetUpsert(true))
	return err
}
