// Package mongo implements store.Store using the official MongoDB driver.
// Suitable for deployments that already run MongoDB and want the archive
// to scale horizontally.
//
// The caller owns the client lifecycle; the store never disconnects it.
// Pass the database handle through the constructor:
//
//	import (
//	    mongod "go.mongodb.org/mongo-driver/v2/mongo"
//	    "go.mongodb.org/mongo-driver/v2/mongo/options"
//	    "github.com/xraph/docflow/store/mongo"
//	)
//
//	client, _ := mongod.Connect(options.Client().ApplyURI(uri))
//	store := mongo.New(client.Database("docflow"))
//	store.Migrate(ctx)
package mongo
