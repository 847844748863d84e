package mongoadapter

import (
	"context"
	"strconv"
	"time"

	"github.com/lerian-oss/coord/pkg/cache"
	"github.com/lerian-oss/coord/pkg/cerrors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// cacheDoc is the one document a key owns in the cache collection.
// Value is stored as a string rather than raw bytes so Increment can
// parse and rewrite it in place without a separate numeric field.
type cacheDoc struct {
	Key        string     `bson:"_id"`
	Value      string     `bson:"value"`
	Expiration *time.Time `bson:"expiration"`
}

// CacheAdapter is the cache.RichAdapter backed by MongoDB.
type CacheAdapter struct {
	collection *mongo.Collection
}

// NewCacheAdapter builds a CacheAdapter over collection.
func NewCacheAdapter(collection *mongo.Collection) *CacheAdapter {
	return &CacheAdapter{collection: collection}
}

func (a *CacheAdapter) get(ctx context.Context, key string) (cacheDoc, bool, error) {
	var doc cacheDoc

	err := a.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if isNoDocuments(err) {
		return cacheDoc{}, false, nil
	}
	if err != nil {
		return cacheDoc{}, false, err
	}

	if doc.Expiration != nil && !doc.Expiration.After(time.Now()) {
		return cacheDoc{}, false, nil
	}

	return doc, true, nil
}

func (a *CacheAdapter) Get(ctx context.Context, key string) ([]byte, bool, error) {
	doc, found, err := a.get(ctx, key)
	if err != nil || !found {
		return nil, false, err
	}

	return []byte(doc.Value), true, nil
}

func (a *CacheAdapter) Set(ctx context.Context, key string, value []byte, ttl *time.Duration) error {
	var expiration *time.Time
	if ttl != nil {
		t := time.Now().Add(*ttl)
		expiration = &t
	}

	doc := cacheDoc{Key: key, Value: string(value), Expiration: expiration}

	_, err := a.collection.ReplaceOne(ctx, bson.M{"_id": key}, doc, options.Replace().SetUpsert(true))

	return err
}

func (a *CacheAdapter) Delete(ctx context.Context, key string) (bool, error) {
	result, err := a.collection.DeleteOne(ctx, bson.M{"_id": key})
	if err != nil {
		return false, err
	}

	return result.DeletedCount > 0, nil
}

func (a *CacheAdapter) Increment(ctx context.Context, key string, delta int64, ttl *time.Duration) (int64, error) {
	doc, found, err := a.get(ctx, key)
	if err != nil {
		return 0, err
	}

	now := time.Now()

	if !found {
		result := delta

		var expiration *time.Time
		if ttl != nil {
			t := now.Add(*ttl)
			expiration = &t
		}

		newDoc := cacheDoc{Key: key, Value: strconv.FormatInt(result, 10), Expiration: expiration}

		_, err := a.collection.ReplaceOne(ctx, bson.M{"_id": key}, newDoc, options.Replace().SetUpsert(true))
		if err != nil {
			return 0, err
		}

		return result, nil
	}

	current, parseErr := strconv.ParseInt(doc.Value, 10, 64)
	if parseErr != nil {
		return 0, cerrors.NewTypeCacheError(key)
	}

	result := current + delta
	doc.Value = strconv.FormatInt(result, 10)

	_, err = a.collection.ReplaceOne(ctx, bson.M{"_id": key}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return 0, err
	}

	return result, nil
}

var _ cache.RichAdapter = (*CacheAdapter)(nil)
