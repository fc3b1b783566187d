package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lashiva/stockrecon/internal/domain/models"
)

const reportsCollection = "reconciliation_reports"

// Repository archives reconciliation reports.
type Repository interface {
	SaveReport(ctx context.Context, report models.ReconciliationReport) error
	ListReports(ctx context.Context, limit int64) ([]models.ReconciliationReport, error)
}

// MongoDBRepository implements Repository for MongoDB.
type MongoDBRepository struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoDBRepository connects to uri and verifies the connection.
func NewMongoDBRepository(ctx context.Context, uri, dbName string) (*MongoDBRepository, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	coll := client.Database(dbName).Collection(reportsCollection)
	index := mongo.IndexModel{Keys: bson.D{{Key: "work_date", Value: -1}, {Key: "created_at", Value: -1}}}
	if _, err := coll.Indexes().CreateOne(ctx, index); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("create report index: %w", err)
	}

	return &MongoDBRepository{client: client, coll: coll}, nil
}

// SaveReport inserts report.
func (r *MongoDBRepository) SaveReport(ctx context.Context, report models.ReconciliationReport) error {
	if _, err := r.coll.InsertOne(ctx, report); err != nil {
		return fmt.Errorf("failed to insert reconciliation report: %w", err)
	}
	return nil
}

// ListReports returns the newest reports first, at most limit of them.
func (r *MongoDBRepository) ListReports(ctx context.Context, limit int64) ([]models.ReconciliationReport, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetProjection(bson.D{{Key: "lines", Value: 0}})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cur, err := r.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find reconciliation reports: %w", err)
	}

	var reports []models.ReconciliationReport
	if err := cur.All(ctx, &reports); err != nil {
		return nil, fmt.Errorf("decode reconciliation reports: %w", err)
	}
	return reports, nil
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
