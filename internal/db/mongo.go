package db

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names.
const (
	VehiclesCollection       = "vehicles"
	DriversCollection        = "drivers"
	TripsCollection          = "trips"
	MaintenanceLogCollection = "maintenance"
	FuelLogsCollection       = "fuel_logs"
	ExpensesCollection       = "expenses"
	UsersCollection          = "users"
)

// ConnectMongo connects to MongoDB and verifies the connection with a ping.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo.Connect error: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	// Ping to verify connection
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo.Ping error: %w", err)
	}
	return client, nil
}

// MongoStore implements Store on a MongoDB database.
type MongoStore struct {
	*MongoUserCollection

	client       *mongo.Client
	vehicles     *mongo.Collection
	drivers      *mongo.Collection
	trips        *mongo.Collection
	maintenance  *mongo.Collection
	fuelLogs     *mongo.Collection
	expenses     *mongo.Collection
	transactions bool
}

var _ Store = (*MongoStore)(nil)

// NewMongoStore binds the store to database dbName. Multi-document
// transactions need a replica set, so they are opt-in.
func NewMongoStore(client *mongo.Client, dbName string, transactions bool) *MongoStore {
	database := client.Database(dbName)
	return &MongoStore{
		MongoUserCollection: &MongoUserCollection{Collection: database.Collection(UsersCollection)},
		client:              client,
		vehicles:            database.Collection(VehiclesCollection),
		drivers:             database.Collection(DriversCollection),
		trips:               database.Collection(TripsCollection),
		maintenance:         database.Collection(MaintenanceLogCollection),
		fuelLogs:            database.Collection(FuelLogsCollection),
		expenses:            database.Collection(ExpensesCollection),
		transactions:        transactions,
	}
}

// EnsureIndexes creates the unique and lookup indexes the store relies on.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	indexes := []struct {
		coll  *mongo.Collection
		model mongo.IndexModel
	}{
		{s.vehicles, mongo.IndexModel{Keys: bson.D{{Key: "license_plate", Value: 1}}, Options: options.Index().SetUnique(true)}},
		{s.Collection, mongo.IndexModel{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)}},
		{s.trips, mongo.IndexModel{Keys: bson.D{{Key: "vehicle_id", Value: 1}, {Key: "status", Value: 1}}}},
		{s.maintenance, mongo.IndexModel{Keys: bson.D{{Key: "vehicle_id", Value: 1}, {Key: "status", Value: 1}}}},
		{s.fuelLogs, mongo.IndexModel{Keys: bson.D{{Key: "vehicle_id", Value: 1}}}},
		{s.expenses, mongo.IndexModel{Keys: bson.D{{Key: "vehicle_id", Value: 1}}}},
	}
	for _, idx := range indexes {
		if _, err := idx.coll.Indexes().CreateOne(ctx, idx.model); err != nil {
			return fmt.Errorf("create index on %s: %w", idx.coll.Name(), err)
		}
	}
	return nil
}

// Ping checks that the primary is reachable.
func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close disconnects the client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// WithTransaction runs fn inside a session transaction when enabled. The
// driver retries fn on transient transaction errors.
func (s *MongoStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if !s.transactions {
		return fn(ctx)
	}
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}
	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		// A malformed id cannot name a stored document.
		return primitive.NilObjectID, ErrNotFound
	}
	return oid, nil
}

func stamp(id *primitive.ObjectID, createdAt, updatedAt *time.Time) {
	now := time.Now().UTC()
	if id.IsZero() {
		*id = primitive.NewObjectID()
	}
	if createdAt.IsZero() {
		*createdAt = now
	}
	*updatedAt = now
}

func insertOne(ctx context.Context, coll *mongo.Collection, doc interface{}) error {
	if coll == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	if _, err := coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert into %s: %w", coll.Name(), err)
	}
	return nil
}

func findByID(ctx context.Context, coll *mongo.Collection, id string, out interface{}) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	err = coll.FindOne(ctx, bson.M{"_id": oid}).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("find %s %s: %w", coll.Name(), id, err)
	}
	return nil
}

func findAll(ctx context.Context, coll *mongo.Collection, query bson.M, sort bson.D, out interface{}) error {
	cursor, err := coll.Find(ctx, query, options.Find().SetSort(sort))
	if err != nil {
		return fmt.Errorf("find %s: %w", coll.Name(), err)
	}
	defer cursor.Close(ctx)
	if err := cursor.All(ctx, out); err != nil {
		return fmt.Errorf("decode %s: %w", coll.Name(), err)
	}
	return nil
}

// missOrConflict explains a compare-and-set that matched nothing.
func missOrConflict(ctx context.Context, coll *mongo.Collection, oid primitive.ObjectID) error {
	n, err := coll.CountDocuments(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("count %s: %w", coll.Name(), err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrStatusConflict
}

// updateByID applies update to the document, requiring its status to be
// one of from when any are given.
func updateByID(ctx context.Context, coll *mongo.Collection, id string, update bson.M, from []string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	filter := bson.M{"_id": oid}
	if len(from) > 0 {
		filter["status"] = bson.M{"$in": from}
	}
	res, err := coll.UpdateOne(ctx, filter, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("update %s %s: %w", coll.Name(), id, err)
	}
	if res.MatchedCount == 0 {
		return missOrConflict(ctx, coll, oid)
	}
	return nil
}

// replaceByID swaps the whole document, requiring status expect when set.
func replaceByID(ctx context.Context, coll *mongo.Collection, oid primitive.ObjectID, doc interface{}, expect string) error {
	filter := bson.M{"_id": oid}
	if expect != "" {
		filter["status"] = expect
	}
	res, err := coll.ReplaceOne(ctx, filter, doc)
	if err != nil {
		return fmt.Errorf("replace %s %s: %w", coll.Name(), oid.Hex(), err)
	}
	if res.MatchedCount == 0 {
		return missOrConflict(ctx, coll, oid)
	}
	return nil
}

func deleteByID(ctx context.Context, coll *mongo.Collection, id string, allowed []string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	filter := bson.M{"_id": oid}
	if len(allowed) > 0 {
		filter["status"] = bson.M{"$in": allowed}
	}
	res, err := coll.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", coll.Name(), id, err)
	}
	if res.DeletedCount == 0 {
		return missOrConflict(ctx, coll, oid)
	}
	return nil
}

// setFields renders doc as a $set document without the keys in omit.
func setFields(doc interface{}, omit ...string) (bson.M, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var fields bson.M
	if err := bson.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	delete(fields, "_id")
	for _, key := range omit {
		delete(fields, key)
	}
	fields["updated_at"] = time.Now().UTC()
	return fields, nil
}

func and(conds []bson.M) bson.M {
	switch len(conds) {
	case 0:
		return bson.M{}
	case 1:
		return conds[0]
	default:
		return bson.M{"$and": conds}
	}
}

func search(term string, fields ...string) bson.M {
	pattern := primitive.Regex{Pattern: regexp.QuoteMeta(term), Options: "i"}
	or := make(bson.A, 0, len(fields))
	for _, f := range fields {
		or = append(or, bson.M{f: pattern})
	}
	return bson.M{"$or": or}
}

func eq(conds []bson.M, field, value string) []bson.M {
	if value == "" {
		return conds
	}
	return append(conds, bson.M{field: value})
}
