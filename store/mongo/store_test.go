//go:build integration

package mongo_test

import (
	"context"
	"log/slog"
	"testing"

	mongomodule "github.com/testcontainers/testcontainers-go/modules/mongodb"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/docflow/store/mongo"
	"github.com/xraph/docflow/store/storetest"
)

// setupTestStore creates a MongoDB container and returns a migrated Store.
func setupTestStore(t *testing.T) *mongo.Store {
	t.Helper()

	ctx := context.Background()

	container, err := mongomodule.Run(ctx, "mongo:7")
	if err != nil {
		t.Fatalf("start mongo container: %v", err)
	}
	t.Cleanup(func() {
		if termErr := container.Terminate(ctx); termErr != nil {
			t.Logf("terminate container: %v", termErr)
		}
	})

	uri, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("get connection string: %v", err)
	}

	client, err := mongod.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = client.Disconnect(ctx) })

	s := mongo.New(client.Database("docflow_test"), mongo.WithLogger(slog.Default()))
	if migErr := s.Migrate(ctx); migErr != nil {
		t.Fatalf("migrate: %v", migErr)
	}
	return s
}

func TestStore_Ping(t *testing.T) {
	s := setupTestStore(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("ping failed: %v", err)
	}
}

func TestStore_Conformance(t *testing.T) {
	storetest.Run(t, setupTestStore(t))
}
