// Package mongo is the document-store backend: members and contributions as
// documents in two collections, with snapshot push driven by a change stream
// when the deployment supports one, and by local mutation hooks otherwise.
package mongo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ipon/internal/core"
	"ipon/internal/store"
)

const (
	membersCollection       = "members"
	contributionsCollection = "contributions"
)

type Store struct {
	client *mongo.Client
	db     *mongo.Database
	bcast  *store.Broadcaster
	cancel context.CancelFunc
	now    func() time.Time
}

var _ store.Store = (*Store)(nil)

// Connect dials MongoDB, verifies the connection, and starts the change-feed
// watcher. The watcher degrades gracefully on deployments without change
// streams (standalone servers): local mutations still push snapshots.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	slog.DebugContext(ctx, "Connecting to MongoDB", "database", database)

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping MongoDB: %w", err)
	}

	watchCtx, cancel := context.WithCancel(context.Background())
	s := &Store{
		client: client,
		db:     client.Database(database),
		bcast:  store.NewBroadcaster(),
		cancel: cancel,
		now:    time.Now,
	}
	go s.watch(watchCtx)

	slog.InfoContext(ctx, "Connected to MongoDB", "database", database)
	return s, nil
}

func (s *Store) Close() error {
	s.cancel()
	s.bcast.CloseAll()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *Store) Subscribe(ctx context.Context) (store.Subscription, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("initial snapshot: %w", err)
	}
	return s.bcast.Subscribe(snap), nil
}

// watch drives the push model: any change to the database triggers a full
// re-query and a snapshot broadcast, so subscribers always receive whole
// result sets rather than deltas.
func (s *Store) watch(ctx context.Context) {
	stream, err := s.db.Watch(ctx, mongo.Pipeline{})
	if err != nil {
		slog.Warn("Change stream unavailable, relying on local mutation notifications", "error", err)
		return
	}
	defer stream.Close(ctx)

	for stream.Next(ctx) {
		snap, err := s.snapshot(ctx)
		if err != nil {
			slog.Warn("Snapshot after change event failed", "error", err)
			continue
		}
		s.bcast.Publish(snap)
	}
	if err := stream.Err(); err != nil && ctx.Err() == nil {
		slog.Error("Change stream terminated", "error", err)
		s.bcast.FailAll(fmt.Errorf("change stream: %w", err))
	}
}

type memberDoc struct {
	ID   primitive.ObjectID `bson:"_id,omitempty"`
	Name string             `bson:"name"`
}

type contributionDoc struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	MemberName     string             `bson:"memberName"`
	AmountCentavos int64              `bson:"amountCentavos"`
	Date           string             `bson:"date"`
	Timestamp      bson.RawValue      `bson:"timestamp"`
	CreatedAt      time.Time          `bson:"createdAt"`
	ProofOfPayment string             `bson:"proofOfPayment,omitempty"`
}

func (s *Store) ListMembers(ctx context.Context) ([]core.Member, error) {
	cur, err := s.db.Collection(membersCollection).Find(ctx, bson.D{},
		options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find members: %w", err)
	}
	defer cur.Close(ctx)

	var members []core.Member
	for cur.Next(ctx) {
		var doc memberDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode member: %w", err)
		}
		members = append(members, core.Member{ID: doc.ID.Hex(), Name: doc.Name})
	}
	return members, cur.Err()
}

func (s *Store) AddMember(ctx context.Context, name string) (core.Member, error) {
	res, err := s.db.Collection(membersCollection).InsertOne(ctx, bson.M{"name": name})
	if err != nil {
		return core.Member{}, fmt.Errorf("insert member: %w", err)
	}
	id, _ := res.InsertedID.(primitive.ObjectID)

	s.publishLocal(ctx)
	return core.Member{ID: id.Hex(), Name: name}, nil
}

func (s *Store) RenameMember(ctx context.Context, id, name string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return store.ErrNotFound
	}
	res, err := s.db.Collection(membersCollection).UpdateByID(ctx, oid, bson.M{"$set": bson.M{"name": name}})
	if err != nil {
		return fmt.Errorf("update member: %w", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}

	s.publishLocal(ctx)
	return nil
}

// DeleteMember removes only the member document; ledger history attributed to
// the name is left alone.
func (s *Store) DeleteMember(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return store.ErrNotFound
	}
	res, err := s.db.Collection(membersCollection).DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}

	s.publishLocal(ctx)
	return nil
}

func (s *Store) ListContributions(ctx context.Context) ([]core.Contribution, error) {
	cur, err := s.db.Collection(contributionsCollection).Find(ctx, bson.D{},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("find contributions: %w", err)
	}
	defer cur.Close(ctx)

	var contribs []core.Contribution
	for cur.Next(ctx) {
		var doc contributionDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode contribution: %w", err)
		}
		contribs = append(contribs, core.Contribution{
			ID:             doc.ID.Hex(),
			MemberName:     doc.MemberName,
			Amount:         core.Money{Centavos: doc.AmountCentavos},
			Date:           doc.Date,
			Timestamp:      normalizeTimestamp(doc.Timestamp),
			CreatedAt:      doc.CreatedAt,
			ProofOfPayment: doc.ProofOfPayment,
		})
	}
	return contribs, cur.Err()
}

func (s *Store) AddContribution(ctx context.Context, c core.Contribution) (core.Contribution, error) {
	c.CreatedAt = s.now().UTC()
	if c.Date == "" {
		c.Date = c.DisplayDate()
	}

	res, err := s.db.Collection(contributionsCollection).InsertOne(ctx, bson.M{
		"memberName":     c.MemberName,
		"amountCentavos": c.Amount.Centavos,
		"date":           c.Date,
		"timestamp":      primitive.NewDateTimeFromTime(c.Timestamp.UTC()),
		"createdAt":      c.CreatedAt,
		"proofOfPayment": c.ProofOfPayment,
	})
	if err != nil {
		return core.Contribution{}, fmt.Errorf("insert contribution: %w", err)
	}
	id, _ := res.InsertedID.(primitive.ObjectID)
	c.ID = id.Hex()

	s.publishLocal(ctx)
	return c, nil
}

func (s *Store) UpdateContribution(ctx context.Context, id string, upd store.ContributionUpdate) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return store.ErrNotFound
	}
	set := bson.M{"amountCentavos": upd.Amount.Centavos}
	if upd.ProofOfPayment != "" {
		set["proofOfPayment"] = upd.ProofOfPayment
	}
	res, err := s.db.Collection(contributionsCollection).UpdateByID(ctx, oid, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update contribution: %w", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}

	s.publishLocal(ctx)
	return nil
}

func (s *Store) DeleteContribution(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return store.ErrNotFound
	}
	res, err := s.db.Collection(contributionsCollection).DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete contribution: %w", err)
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}

	s.publishLocal(ctx)
	return nil
}

func (s *Store) snapshot(ctx context.Context) (store.Snapshot, error) {
	members, err := s.ListMembers(ctx)
	if err != nil {
		return store.Snapshot{}, err
	}
	contribs, err := s.ListContributions(ctx)
	if err != nil {
		return store.Snapshot{}, err
	}
	return store.Snapshot{Members: members, Contributions: contribs}, nil
}

// publishLocal pushes a snapshot after a mutation issued through this
// process. On replica sets the change stream delivers the same state again;
// duplicate snapshots are harmless because each one is the full state.
func (s *Store) publishLocal(ctx context.Context) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Snapshot after mutation failed", "error", err)
		return
	}
	s.bcast.Publish(snap)
}

// normalizeTimestamp converts whatever shape the stored timestamp field has
// into a time.Time. Historical documents hold either a native BSON datetime
// or a string; anything unreadable maps to the zero time, which downstream
// aggregation excludes from month bucketing instead of failing on.
func normalizeTimestamp(rv bson.RawValue) time.Time {
	switch rv.Type {
	case bsontype.DateTime:
		if t, ok := rv.TimeOK(); ok {
			return t
		}
	case bsontype.String:
		if s, ok := rv.StringValueOK(); ok {
			for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
				if t, err := time.Parse(layout, s); err == nil {
					return t
				}
			}
		}
	case bsontype.Timestamp:
		if t, _, ok := rv.TimestampOK(); ok {
			return time.Unix(int64(t), 0).UTC()
		}
	}
	return time.Time{}
}
