package mongoadapter

import (
	"context"
	"time"

	"github.com/lerian-oss/coord/pkg/semaphore"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// semaphoreDoc is the single document a key's whole semaphore.State
// lives in, the counting-only sibling of sharedLockDoc.
type semaphoreDoc struct {
	Key     string           `bson:"_id"`
	Version int64            `bson:"version"`
	Limit   int              `bson:"limit,omitempty"`
	Slots   []semaphore.Slot `bson:"slots,omitempty"`
}

// SemaphoreAdapter is the semaphore.RichAdapter backed by MongoDB,
// mirroring SharedLockAdapter's one-document-per-key-under-optimistic-
// version approach against semaphore.State.Effective.
type SemaphoreAdapter struct {
	collection *mongo.Collection
}

// NewSemaphoreAdapter builds a SemaphoreAdapter over collection.
func NewSemaphoreAdapter(collection *mongo.Collection) *SemaphoreAdapter {
	return &SemaphoreAdapter{collection: collection}
}

func (a *SemaphoreAdapter) load(ctx context.Context, key string) (semaphore.State, int64, bool, error) {
	var doc semaphoreDoc

	err := a.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if isNoDocuments(err) {
		return semaphore.State{}, 0, false, nil
	}
	if err != nil {
		return semaphore.State{}, 0, false, err
	}

	eff := semaphore.State{Limit: doc.Limit, Slots: doc.Slots}.Effective(time.Now())
	if len(eff.Slots) == 0 {
		return semaphore.State{}, doc.Version, false, nil
	}

	return eff, doc.Version, true, nil
}

func (a *SemaphoreAdapter) store(ctx context.Context, key string, version int64, state semaphore.State) error {
	if len(state.Slots) == 0 {
		if version == 0 {
			return nil
		}

		result, err := a.collection.DeleteOne(ctx, bson.M{"_id": key, "version": version})
		if err != nil {
			return err
		}
		if result.DeletedCount == 0 {
			return ErrConflict
		}

		return nil
	}

	doc := semaphoreDoc{Key: key, Version: version + 1, Limit: state.Limit, Slots: state.Slots}

	if version == 0 {
		_, err := a.collection.InsertOne(ctx, doc)
		if isDuplicateKey(err) {
			return ErrConflict
		}

		return err
	}

	result, err := a.collection.ReplaceOne(ctx, bson.M{"_id": key, "version": version}, doc)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrConflict
	}

	return nil
}

func (a *SemaphoreAdapter) Acquire(ctx context.Context, key, slotID string, limit int, ttl *time.Duration) (bool, error) {
	current, version, exists, err := a.load(ctx, key)
	if err != nil {
		return false, err
	}

	var expiration *time.Time
	if ttl != nil {
		t := time.Now().Add(*ttl)
		expiration = &t
	}

	if !exists {
		newState := semaphore.State{Limit: limit, Slots: []semaphore.Slot{{ID: slotID, Expiration: expiration}}}
		return true, a.store(ctx, key, version, newState)
	}

	if current.Limit != limit {
		return false, semaphore.LimitMismatchErr{Established: current.Limit, Requested: limit}
	}

	for i, slot := range current.Slots {
		if slot.ID == slotID {
			current.Slots[i].Expiration = expiration
			return true, a.store(ctx, key, version, current)
		}
	}

	if len(current.Slots) >= current.Limit {
		return false, nil
	}

	current.Slots = append(current.Slots, semaphore.Slot{ID: slotID, Expiration: expiration})

	return true, a.store(ctx, key, version, current)
}

func (a *SemaphoreAdapter) Release(ctx context.Context, key, slotID string) (bool, error) {
	current, version, exists, err := a.load(ctx, key)
	if err != nil || !exists {
		return false, err
	}

	found := false
	remaining := make([]semaphore.Slot, 0, len(current.Slots))
	for _, slot := range current.Slots {
		if slot.ID == slotID {
			found = true
			continue
		}
		remaining = append(remaining, slot)
	}

	if !found {
		return false, nil
	}

	current.Slots = remaining

	return true, a.store(ctx, key, version, current)
}

func (a *SemaphoreAdapter) ForceReleaseAll(ctx context.Context, key string) (bool, error) {
	result, err := a.collection.DeleteOne(ctx, bson.M{"_id": key})
	if err != nil {
		return false, err
	}

	return result.DeletedCount > 0, nil
}

func (a *SemaphoreAdapter) Refresh(ctx context.Context, key, slotID string, ttl time.Duration) (bool, error) {
	current, version, exists, err := a.load(ctx, key)
	if err != nil || !exists {
		return false, err
	}

	for i, slot := range current.Slots {
		if slot.ID == slotID {
			if slot.Expiration == nil {
				return false, nil
			}

			newExpiration := time.Now().Add(ttl)
			current.Slots[i].Expiration = &newExpiration

			return true, a.store(ctx, key, version, current)
		}
	}

	return false, nil
}

func (a *SemaphoreAdapter) GetState(ctx context.Context, key string) (semaphore.State, error) {
	state, _, exists, err := a.load(ctx, key)
	if err != nil || !exists {
		return semaphore.State{}, err
	}

	return state, nil
}

var _ semaphore.RichAdapter = (*SemaphoreAdapter)(nil)
