package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/incidenthub/auth-gateway/internal/core/domain"
	"github.com/incidenthub/auth-gateway/internal/core/ports"
)

const auditCollection = "auth_events"

// AuditRepository implements ports.AuditRepository using MongoDB.
type AuditRepository struct {
	db  *mongo.Database
	now func() time.Time
}

var _ ports.AuditRepository = (*AuditRepository)(nil)

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(db *mongo.Database) *AuditRepository {
	return &AuditRepository{db: db, now: time.Now}
}

// EnsureIndexes creates the lookup index used when investigating a username.
func (r *AuditRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.db.Collection(auditCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}, {Key: "occurred_at", Value: -1}},
		Options: options.Index().SetName("username_occurred_at"),
	})
	if err != nil {
		return fmt.Errorf("audit indexes: %w", err)
	}
	return nil
}

// Insert persists one register or login outcome. Secrets are never part of
// an AuthEvent.
func (r *AuditRepository) Insert(ctx context.Context, event *domain.AuthEvent) error {
	_, err := r.db.Collection(auditCollection).InsertOne(ctx, auditDocument(event, r.now()))
	return err
}

func auditDocument(event *domain.AuthEvent, recordedAt time.Time) bson.M {
	doc := bson.M{
		"kind":        string(event.Kind),
		"username":    event.Username,
		"outcome":     event.Outcome,
		"occurred_at": event.OccurredAt.UTC(),
		"recorded_at": recordedAt.UTC(),
	}
	if event.SubjectID != "" {
		doc["subject_id"] = event.SubjectID
	}
	if event.Reason != "" {
		doc["reason"] = event.Reason
	}
	return doc
}
