package mongo

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/incidenthub/auth-gateway/internal/core/domain"
)

func TestAuditDocument(t *testing.T) {
	occurred := time.Date(2026, 4, 1, 10, 0, 0, 0, time.FixedZone("X", 3600))
	recorded := occurred.Add(time.Second)

	doc := auditDocument(&domain.AuthEvent{
		Kind:       domain.EventLogin,
		Username:   "alice",
		SubjectID:  "sub-1",
		Outcome:    domain.OutcomeFailure,
		Reason:     "invalid_credentials",
		OccurredAt: occurred,
	}, recorded)

	assert.Equal(t, "login", doc["kind"])
	assert.Equal(t, "alice", doc["username"])
	assert.Equal(t, "sub-1", doc["subject_id"])
	assert.Equal(t, "failure", doc["outcome"])
	assert.Equal(t, "invalid_credentials", doc["reason"])
	assert.Equal(t, time.UTC, doc["occurred_at"].(time.Time).Location())
	assert.True(t, doc["recorded_at"].(time.Time).Equal(recorded))
}

func TestAuditDocument_OmitsEmptyOptionalFields(t *testing.T) {
	doc := auditDocument(&domain.AuthEvent{
		Kind:     domain.EventRegister,
		Username: "bob",
		Outcome:  domain.OutcomeSuccess,
	}, time.Now())

	assert.NotContains(t, doc, "subject_id")
	assert.NotContains(t, doc, "reason")
}

func TestAuditRepository_Insert(t *testing.T) {
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}
	ctx := context.Background()
	client, db, err := Connect(ctx, Config{URI: uri, Database: "authgw_test_" + uuid.NewString()[:8]})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Drop(ctx)
		_ = client.Disconnect(ctx)
	})

	repo := NewAuditRepository(db)
	require.NoError(t, repo.EnsureIndexes(ctx))
	require.NoError(t, repo.Insert(ctx, &domain.AuthEvent{
		Kind:       domain.EventRegister,
		Username:   "carol",
		Outcome:    domain.OutcomeSuccess,
		OccurredAt: time.Now(),
	}))

	n, err := db.Collection(auditCollection).CountDocuments(ctx, bson.M{"username": "carol"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestConnect_RequiresDatabase(t *testing.T) {
	_, _, err := Connect(context.Background(), Config{URI: "mongodb://localhost:27017"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database name is required")
}
