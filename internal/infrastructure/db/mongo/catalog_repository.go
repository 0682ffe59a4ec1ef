package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dropme/rvm-backend/internal/core/domain"
)

const (
	collectionMaterials = "materials"
	collectionMachines  = "machines"
)

// caseInsensitive makes name/id matching ignore case, so "PLASTIC" and
// "plastic" resolve to the same material.
var caseInsensitive = &options.Collation{Locale: "en", Strength: 2}

// CatalogRepository implements ports.CatalogRepository on MongoDB. The
// catalog is read-mostly; all lookups filter to active records.
type CatalogRepository struct {
	materials *mongo.Collection
	machines  *mongo.Collection
}

func NewCatalogRepository(db *mongo.Database) *CatalogRepository {
	return &CatalogRepository{
		materials: db.Collection(collectionMaterials),
		machines:  db.Collection(collectionMachines),
	}
}

type materialDoc struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty"`
	Name        string               `bson:"name"`
	PointsPerKg primitive.Decimal128 `bson:"points_per_kg"`
	Description string               `bson:"description,omitempty"`
	Active      bool                 `bson:"is_active"`
	CreatedAt   time.Time            `bson:"created_at"`
	UpdatedAt   time.Time            `bson:"updated_at"`
}

type machineDoc struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	MachineID       string             `bson:"machine_id"`
	Location        string             `bson:"location"`
	Latitude        *float64           `bson:"latitude,omitempty"`
	Longitude       *float64           `bson:"longitude,omitempty"`
	Active          bool               `bson:"is_active"`
	LastMaintenance *time.Time         `bson:"last_maintenance,omitempty"`
	CreatedAt       time.Time          `bson:"created_at"`
	UpdatedAt       time.Time          `bson:"updated_at"`
}

func (d *materialDoc) toDomain() (*domain.Material, error) {
	rate, err := fromDecimal128(d.PointsPerKg)
	if err != nil {
		return nil, err
	}
	return &domain.Material{
		ID:          d.ID.Hex(),
		Name:        d.Name,
		PointsPerKg: rate,
		Description: d.Description,
		Active:      d.Active,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}, nil
}

func (d *machineDoc) toDomain() *domain.Machine {
	return &domain.Machine{
		ID:              d.ID.Hex(),
		MachineID:       d.MachineID,
		Location:        d.Location,
		Latitude:        d.Latitude,
		Longitude:       d.Longitude,
		Active:          d.Active,
		LastMaintenance: d.LastMaintenance,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

// FindMaterialByName resolves an active material, ignoring case.
func (r *CatalogRepository) FindMaterialByName(ctx context.Context, name string) (*domain.Material, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc materialDoc
	err := r.materials.FindOne(ctx,
		bson.M{"name": name, "is_active": true},
		options.FindOne().SetCollation(caseInsensitive),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrMaterialNotFound
		}
		return nil, err
	}
	return doc.toDomain()
}

// FindMachineByID resolves an active machine, ignoring case.
func (r *CatalogRepository) FindMachineByID(ctx context.Context, machineID string) (*domain.Machine, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc machineDoc
	err := r.machines.FindOne(ctx,
		bson.M{"machine_id": machineID, "is_active": true},
		options.FindOne().SetCollation(caseInsensitive),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrMachineNotFound
		}
		return nil, err
	}
	return doc.toDomain(), nil
}

// ListMaterials returns all active materials ordered by name.
func (r *CatalogRepository) ListMaterials(ctx context.Context) ([]*domain.Material, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.materials.Find(ctx,
		bson.M{"is_active": true},
		options.Find().SetSort(bson.D{{Key: "name", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []*domain.Material
	for cur.Next(ctx) {
		var doc materialDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		m, err := doc.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, cur.Err()
}

// ListMachines returns all active machines ordered by machine_id.
func (r *CatalogRepository) ListMachines(ctx context.Context) ([]*domain.Machine, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.machines.Find(ctx,
		bson.M{"is_active": true},
		options.Find().SetSort(bson.D{{Key: "machine_id", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []*domain.Machine
	for cur.Next(ctx) {
		var doc machineDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toDomain())
	}
	return out, cur.Err()
}

// EnsureIndexes creates the catalog's unique, case-insensitive keys.
func (r *CatalogRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.materials.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true).SetCollation(caseInsensitive),
	})
	if err != nil {
		return err
	}

	_, err = r.machines.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "machine_id", Value: 1}},
		Options: options.Index().SetUnique(true).SetCollation(caseInsensitive),
	})
	return err
}
