package mongoadapter

import (
	"context"
	"time"

	"github.com/lerian-oss/coord/pkg/lockengine"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// lockDoc is the one document a key owns in the lock collection.
type lockDoc struct {
	Key        string     `bson:"_id"`
	Owner      string     `bson:"owner"`
	Expiration *time.Time `bson:"expiration"`
}

// LockAdapter is the lockengine.RichAdapter backed by MongoDB: each
// key is one document keyed by _id, and Acquire is a single
// findOneAndUpdate call whose filter only matches a document that is
// absent, expired, or already owned by the caller. A live lock held
// by someone else fails upsert's implicit insert with a duplicate-key
// error on _id, which Acquire reports as a plain false rather than an
// error, mirroring MongoDBRepository.Create's mongo.IsDuplicateKeyError
// handling.
type LockAdapter struct {
	collection *mongo.Collection
}

// NewLockAdapter builds a LockAdapter over collection.
func NewLockAdapter(collection *mongo.Collection) *LockAdapter {
	return &LockAdapter{collection: collection}
}

func (a *LockAdapter) Acquire(ctx context.Context, key, owner string, ttl *time.Duration) (bool, error) {
	now := time.Now()

	var expiration *time.Time
	if ttl != nil {
		t := now.Add(*ttl)
		expiration = &t
	}

	filter := bson.M{
		"_id": key,
		"$or": bson.A{
			bson.M{"expiration": bson.M{"$lte": now}},
			bson.M{"owner": owner},
		},
	}
	update := bson.M{"$set": bson.M{"owner": owner, "expiration": expiration}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	err := a.collection.FindOneAndUpdate(ctx, filter, update, opts).Err()
	if err != nil {
		if isDuplicateKey(err) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

func (a *LockAdapter) Release(ctx context.Context, key, owner string) (bool, error) {
	result, err := a.collection.DeleteOne(ctx, bson.M{"_id": key, "owner": owner})
	if err != nil {
		return false, err
	}

	return result.DeletedCount > 0, nil
}

func (a *LockAdapter) ForceRelease(ctx context.Context, key string) (bool, error) {
	result, err := a.collection.DeleteOne(ctx, bson.M{"_id": key})
	if err != nil {
		return false, err
	}

	return result.DeletedCount > 0, nil
}

func (a *LockAdapter) Refresh(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	expiration := time.Now().Add(ttl)

	result, err := a.collection.UpdateOne(ctx,
		bson.M{"_id": key, "owner": owner},
		bson.M{"$set": bson.M{"expiration": expiration}},
	)
	if err != nil {
		return false, err
	}

	return result.MatchedCount > 0, nil
}

func (a *LockAdapter) GetState(ctx context.Context, key string) (lockengine.State, error) {
	var doc lockDoc

	err := a.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if isNoDocuments(err) {
		return lockengine.State{Status: lockengine.Unlocked}, nil
	}
	if err != nil {
		return lockengine.State{}, err
	}

	state := lockengine.State{Status: lockengine.Owned, Owner: doc.Owner, Expiration: doc.Expiration}

	return state.Effective(time.Now()), nil
}

var _ lockengine.RichAdapter = (*LockAdapter)(nil)
