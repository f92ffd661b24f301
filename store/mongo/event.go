package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/docflow"
	"github.com/xraph/docflow/event"
	"github.com/xraph/docflow/id"
)

var eventOrder = bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}

// PublishEvent persists a new event.
func (s *Store) PublishEvent(ctx context.Context, evt *event.Event) error {
	_, err := s.db.Collection(colEvents).InsertOne(ctx, toEventModel(evt))
	if err != nil {
		return fmt.Errorf("docflow/mongo: publish event: %w", err)
	}
	return nil
}

// SubscribeEvent waits for the oldest unacked event matching name.
// Uses a polling approach with short intervals.
func (s *Store) SubscribeEvent(ctx context.Context, name string, timeout time.Duration) (*event.Event, error) {
	deadline := time.Now().Add(timeout)
	col := s.db.Collection(colEvents)
	findOpts := options.FindOne().SetSort(eventOrder)

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		var m eventModel
		err := col.FindOne(ctx, bson.M{
			"name":  name,
			"acked": false,
		}, findOpts).Decode(&m)
		if err == nil {
			return fromEventModel(&m)
		}
		if !isNoDocuments(err) {
			return nil, fmt.Errorf("docflow/mongo: subscribe event: %w", err)
		}
		if time.Now().After(deadline) {
			return nil, nil
		}
		sleepCtx(ctx, 50*time.Millisecond)
	}
}

// AckEvent acknowledges an event, marking it as consumed.
func (s *Store) AckEvent(ctx context.Context, eventID id.EventID) error {
	res, err := s.db.Collection(colEvents).UpdateOne(ctx,
		bson.M{"_id": eventID.String()},
		bson.M{"$set": bson.M{"acked": true}},
	)
	if err != nil {
		return fmt.Errorf("docflow/mongo: ack event: %w", err)
	}
	if res.MatchedCount == 0 {
		return docflow.ErrEventNotFound
	}
	return nil
}

// ListEvents returns events in publish order.
func (s *Store) ListEvents(ctx context.Context, opts event.ListOpts) ([]*event.Event, error) {
	filter := bson.M{}
	if opts.Name != "" {
		filter["name"] = opts.Name
	}

	cursor, err := s.db.Collection(colEvents).Find(ctx, filter,
		findPage(eventOrder, opts.Limit, opts.Offset))
	if err != nil {
		return nil, fmt.Errorf("docflow/mongo: list events: %w", err)
	}

	var models []eventModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("docflow/mongo: decode events: %w", err)
	}

	result := make([]*event.Event, 0, len(models))
	for i := range models {
		evt, convErr := fromEventModel(&models[i])
		if convErr != nil {
			return nil, convErr
		}
		result = append(result, evt)
	}
	return result, nil
}
