package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dropme/rvm-backend/internal/core/domain"
	"github.com/dropme/rvm-backend/internal/core/ports"
)

const (
	collectionDeposits   = "deposits"
	collectionAggregates = "user_aggregates"
)

// DepositRepository implements the append-only ledger and its derived
// queries on MongoDB. The ledger insert and the aggregate increment run in
// one session transaction, so isolation comes from the store rather than
// any in-process lock: concurrent deposits for the same user serialize on
// the aggregate document, different users never contend.
type DepositRepository struct {
	client     *mongo.Client
	deposits   *mongo.Collection
	aggregates *mongo.Collection
	machines   *mongo.Collection
}

func NewDepositRepository(db *mongo.Database) *DepositRepository {
	return &DepositRepository{
		client:     db.Client(),
		deposits:   db.Collection(collectionDeposits),
		aggregates: db.Collection(collectionAggregates),
		machines:   db.Collection(collectionMachines),
	}
}

type depositDoc struct {
	ID            primitive.ObjectID   `bson:"_id,omitempty"`
	TransactionID string               `bson:"transaction_id"`
	UserID        string               `bson:"user_id"`
	MachineID     string               `bson:"machine_id"`
	Material      string               `bson:"material"`
	WeightKg      primitive.Decimal128 `bson:"weight_kg"`
	PointsEarned  primitive.Decimal128 `bson:"points_earned"`
	Notes         string               `bson:"notes,omitempty"`
	DepositTime   time.Time            `bson:"deposit_time"`
}

type aggregateDoc struct {
	UserID        string               `bson:"_id"`
	TotalPoints   primitive.Decimal128 `bson:"total_points"`
	TotalWeightKg primitive.Decimal128 `bson:"total_weight_kg"`
	UpdatedAt     time.Time            `bson:"updated_at"`
}

func (d *depositDoc) toDomain() (*domain.Deposit, error) {
	weight, err := fromDecimal128(d.WeightKg)
	if err != nil {
		return nil, err
	}
	points, err := fromDecimal128(d.PointsEarned)
	if err != nil {
		return nil, err
	}
	return &domain.Deposit{
		ID:            d.ID.Hex(),
		TransactionID: d.TransactionID,
		UserID:        d.UserID,
		MachineID:     d.MachineID,
		MaterialName:  d.Material,
		WeightKg:      weight,
		PointsEarned:  points,
		Notes:         d.Notes,
		CreatedAt:     d.DepositTime,
	}, nil
}

func (d *aggregateDoc) toDomain() (*domain.UserAggregate, error) {
	points, err := fromDecimal128(d.TotalPoints)
	if err != nil {
		return nil, err
	}
	weight, err := fromDecimal128(d.TotalWeightKg)
	if err != nil {
		return nil, err
	}
	return &domain.UserAggregate{
		UserID:        d.UserID,
		TotalPoints:   points,
		TotalWeightKg: weight,
		UpdatedAt:     d.UpdatedAt,
	}, nil
}

func depositToDoc(d *domain.Deposit) depositDoc {
	return depositDoc{
		TransactionID: d.TransactionID,
		UserID:        d.UserID,
		MachineID:     d.MachineID,
		Material:      d.MaterialName,
		WeightKg:      toDecimal128(d.WeightKg),
		PointsEarned:  toDecimal128(d.PointsEarned),
		Notes:         d.Notes,
		DepositTime:   d.CreatedAt.UTC(),
	}
}

// CreateWithAggregate appends the ledger entry and applies its weight and
// points to the user's aggregate inside a single session transaction. The
// aggregate document is upserted with zeros on the user's first deposit;
// $inc gives an atomic read-modify-write on the server, so concurrent
// same-user deposits never lose an update. A failed transaction leaves no
// trace of either write.
func (r *DepositRepository) CreateWithAggregate(ctx context.Context, d *domain.Deposit) (*domain.UserAggregate, error) {
	session, err := r.client.StartSession()
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	result, err := session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		res, err := r.deposits.InsertOne(sc, depositToDoc(d))
		if err != nil {
			return nil, fmt.Errorf("insert deposit: %w", err)
		}
		if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
			d.ID = oid.Hex()
		}

		update := bson.M{
			"$inc": bson.M{
				"total_points":    toDecimal128(d.PointsEarned),
				"total_weight_kg": toDecimal128(d.WeightKg),
			},
			"$set": bson.M{"updated_at": time.Now().UTC()},
		}
		opts := options.FindOneAndUpdate().
			SetUpsert(true).
			SetReturnDocument(options.After)

		var doc aggregateDoc
		if err := r.aggregates.FindOneAndUpdate(sc, bson.M{"_id": d.UserID}, update, opts).Decode(&doc); err != nil {
			return nil, fmt.Errorf("update aggregate: %w", err)
		}
		return doc.toDomain()
	})
	if err != nil {
		return nil, err
	}
	return result.(*domain.UserAggregate), nil
}

// CountByUserSince counts the user's deposits with deposit_time >= since.
func (r *DepositRepository) CountByUserSince(ctx context.Context, userID string, since time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	return r.deposits.CountDocuments(ctx, bson.M{
		"user_id":      userID,
		"deposit_time": bson.M{"$gte": since},
	})
}

// SumByUser recomputes the user's totals from the whole ledger. Summation
// happens server-side on Decimal128 values, so the result is exact and
// bit-identical to the incremental projection for the same ledger state.
func (r *DepositRepository) SumByUser(ctx context.Context, userID string) (domain.Totals, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"user_id": userID}}},
		{{Key: "$group", Value: bson.M{
			"_id":             nil,
			"total_points":    bson.M{"$sum": "$points_earned"},
			"total_weight_kg": bson.M{"$sum": "$weight_kg"},
		}}},
	}

	cur, err := r.deposits.Aggregate(ctx, pipeline)
	if err != nil {
		return domain.Totals{}, err
	}
	defer cur.Close(ctx)

	zero := domain.Totals{TotalPoints: decimal.Zero, TotalWeightKg: decimal.Zero}
	if !cur.Next(ctx) {
		return zero, cur.Err()
	}

	var doc struct {
		TotalPoints   primitive.Decimal128 `bson:"total_points"`
		TotalWeightKg primitive.Decimal128 `bson:"total_weight_kg"`
	}
	if err := cur.Decode(&doc); err != nil {
		return domain.Totals{}, err
	}
	points, err := fromDecimal128(doc.TotalPoints)
	if err != nil {
		return domain.Totals{}, err
	}
	weight, err := fromDecimal128(doc.TotalWeightKg)
	if err != nil {
		return domain.Totals{}, err
	}
	return domain.Totals{TotalPoints: points, TotalWeightKg: weight}, nil
}

func listFilter(f ports.ListDepositsFilter) bson.M {
	filter := bson.M{"user_id": f.UserID}
	if f.Material != "" {
		filter["material"] = f.Material
	}
	timeRange := bson.M{}
	if !f.DateFrom.IsZero() {
		timeRange["$gte"] = f.DateFrom
	}
	if !f.DateTo.IsZero() {
		timeRange["$lte"] = f.DateTo
	}
	if len(timeRange) > 0 {
		filter["deposit_time"] = timeRange
	}
	return filter
}

// ListByUser returns a page of the user's deposits, newest first, and the
// total matching count. Material matching ignores case.
func (r *DepositRepository) ListByUser(ctx context.Context, f ports.ListDepositsFilter) ([]*domain.Deposit, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := listFilter(f)

	total, err := r.deposits.CountDocuments(ctx, filter,
		options.Count().SetCollation(caseInsensitive))
	if err != nil {
		return nil, 0, err
	}

	findOpts := options.Find().
		SetCollation(caseInsensitive).
		SetSort(bson.D{{Key: "deposit_time", Value: -1}}).
		SetSkip(int64((f.Page - 1) * f.Limit)).
		SetLimit(int64(f.Limit))

	cur, err := r.deposits.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var out []*domain.Deposit
	for cur.Next(ctx) {
		var doc depositDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, 0, err
		}
		d, err := doc.toDomain()
		if err != nil {
			return nil, 0, err
		}
		out = append(out, d)
	}
	return out, total, cur.Err()
}

// StatsByUserSince sums the user's activity over a trailing window.
func (r *DepositRepository) StatsByUserSince(ctx context.Context, userID string, since time.Time) (ports.PeriodStats, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"user_id":      userID,
			"deposit_time": bson.M{"$gte": since},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":       nil,
			"points":    bson.M{"$sum": "$points_earned"},
			"weight_kg": bson.M{"$sum": "$weight_kg"},
			"deposits":  bson.M{"$sum": 1},
		}}},
	}

	cur, err := r.deposits.Aggregate(ctx, pipeline)
	if err != nil {
		return ports.PeriodStats{}, err
	}
	defer cur.Close(ctx)

	zero := ports.PeriodStats{Points: decimal.Zero, WeightKg: decimal.Zero}
	if !cur.Next(ctx) {
		return zero, cur.Err()
	}

	var doc struct {
		Points   primitive.Decimal128 `bson:"points"`
		WeightKg primitive.Decimal128 `bson:"weight_kg"`
		Deposits int64                `bson:"deposits"`
	}
	if err := cur.Decode(&doc); err != nil {
		return ports.PeriodStats{}, err
	}
	points, err := fromDecimal128(doc.Points)
	if err != nil {
		return ports.PeriodStats{}, err
	}
	weight, err := fromDecimal128(doc.WeightKg)
	if err != nil {
		return ports.PeriodStats{}, err
	}
	return ports.PeriodStats{Points: points, WeightKg: weight, Deposits: doc.Deposits}, nil
}

type materialStatDoc struct {
	Material      string               `bson:"_id"`
	TotalWeightKg primitive.Decimal128 `bson:"total_weight_kg"`
	TotalPoints   primitive.Decimal128 `bson:"total_points"`
	DepositCount  int64                `bson:"deposit_count"`
}

func (d *materialStatDoc) toStat() (ports.MaterialStat, error) {
	weight, err := fromDecimal128(d.TotalWeightKg)
	if err != nil {
		return ports.MaterialStat{}, err
	}
	points, err := fromDecimal128(d.TotalPoints)
	if err != nil {
		return ports.MaterialStat{}, err
	}
	return ports.MaterialStat{
		Material:      d.Material,
		TotalWeightKg: weight,
		TotalPoints:   points,
		DepositCount:  d.DepositCount,
	}, nil
}

func (r *DepositRepository) materialStats(ctx context.Context, match bson.M, limit int64) ([]ports.MaterialStat, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{
			"_id":             "$material",
			"total_weight_kg": bson.M{"$sum": "$weight_kg"},
			"total_points":    bson.M{"$sum": "$points_earned"},
			"deposit_count":   bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "total_weight_kg", Value: -1}}}},
	}
	if limit > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: limit}})
	}

	cur, err := r.deposits.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []ports.MaterialStat
	for cur.Next(ctx) {
		var doc materialStatDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		stat, err := doc.toStat()
		if err != nil {
			return nil, err
		}
		out = append(out, stat)
	}
	return out, cur.Err()
}

// MaterialBreakdown groups the user's deposits by material, heaviest first.
func (r *DepositRepository) MaterialBreakdown(ctx context.Context, userID string) ([]ports.MaterialStat, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	return r.materialStats(ctx, bson.M{"user_id": userID}, 0)
}

// ActiveUserIDsSince lists distinct users with a deposit in the window.
func (r *DepositRepository) ActiveUserIDsSince(ctx context.Context, since time.Time) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	values, err := r.deposits.Distinct(ctx, "user_id", bson.M{
		"deposit_time": bson.M{"$gte": since},
	})
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out, nil
}

// SystemStats builds the administrator view: ledger-wide totals, the top
// five materials by weight, and the top ten machines by deposit count.
func (r *DepositRepository) SystemStats(ctx context.Context) (*ports.SystemStats, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	stats := &ports.SystemStats{
		TotalWeightKg:      decimal.Zero,
		TotalPoints:        decimal.Zero,
		AvgDepositWeightKg: decimal.Zero,
	}

	totalsPipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":             nil,
			"total_weight_kg": bson.M{"$sum": "$weight_kg"},
			"total_points":    bson.M{"$sum": "$points_earned"},
			"total_deposits":  bson.M{"$sum": 1},
			"avg_weight_kg":   bson.M{"$avg": "$weight_kg"},
		}}},
	}
	cur, err := r.deposits.Aggregate(ctx, totalsPipeline)
	if err != nil {
		return nil, err
	}
	if cur.Next(ctx) {
		var doc struct {
			TotalWeightKg primitive.Decimal128 `bson:"total_weight_kg"`
			TotalPoints   primitive.Decimal128 `bson:"total_points"`
			TotalDeposits int64                `bson:"total_deposits"`
			AvgWeightKg   primitive.Decimal128 `bson:"avg_weight_kg"`
		}
		if err := cur.Decode(&doc); err != nil {
			cur.Close(ctx)
			return nil, err
		}
		if stats.TotalWeightKg, err = fromDecimal128(doc.TotalWeightKg); err != nil {
			cur.Close(ctx)
			return nil, err
		}
		if stats.TotalPoints, err = fromDecimal128(doc.TotalPoints); err != nil {
			cur.Close(ctx)
			return nil, err
		}
		if stats.AvgDepositWeightKg, err = fromDecimal128(doc.AvgWeightKg); err != nil {
			cur.Close(ctx)
			return nil, err
		}
		stats.TotalDeposits = doc.TotalDeposits
	}
	cur.Close(ctx)

	if stats.TopMaterials, err = r.materialStats(ctx, bson.M{}, 5); err != nil {
		return nil, err
	}
	if stats.TopMachines, err = r.topMachines(ctx, 10); err != nil {
		return nil, err
	}
	return stats, nil
}

func (r *DepositRepository) topMachines(ctx context.Context, limit int64) ([]ports.MachineStat, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":             "$machine_id",
			"deposit_count":   bson.M{"$sum": 1},
			"total_weight_kg": bson.M{"$sum": "$weight_kg"},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "deposit_count", Value: -1}}}},
		{{Key: "$limit", Value: limit}},
	}

	cur, err := r.deposits.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var stats []ports.MachineStat
	var ids []string
	for cur.Next(ctx) {
		var doc struct {
			MachineID     string               `bson:"_id"`
			DepositCount  int64                `bson:"deposit_count"`
			TotalWeightKg primitive.Decimal128 `bson:"total_weight_kg"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		weight, err := fromDecimal128(doc.TotalWeightKg)
		if err != nil {
			return nil, err
		}
		stats = append(stats, ports.MachineStat{
			MachineID:     doc.MachineID,
			DepositCount:  doc.DepositCount,
			TotalWeightKg: weight,
		})
		ids = append(ids, doc.MachineID)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return stats, nil
	}

	// Resolve locations in one query.
	locCur, err := r.machines.Find(ctx, bson.M{"machine_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer locCur.Close(ctx)

	locations := make(map[string]string, len(ids))
	for locCur.Next(ctx) {
		var doc machineDoc
		if err := locCur.Decode(&doc); err != nil {
			return nil, err
		}
		locations[doc.MachineID] = doc.Location
	}
	if err := locCur.Err(); err != nil {
		return nil, err
	}
	for i := range stats {
		stats[i].Location = locations[stats[i].MachineID]
	}
	return stats, nil
}

// EnsureIndexes creates the ledger's query and uniqueness indexes.
func (r *DepositRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "transaction_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "deposit_time", Value: -1}}},
		{Keys: bson.D{{Key: "machine_id", Value: 1}, {Key: "deposit_time", Value: -1}}},
		{Keys: bson.D{{Key: "material", Value: 1}}},
	}

	_, err := r.deposits.Indexes().CreateMany(ctx, indexes)
	return err
}
