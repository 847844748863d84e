package mongoadapter

import (
	"context"
	"time"

	"github.com/lerian-oss/coord/pkg/sharedlock"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// sharedLockDoc is the single document a key's whole sharedlock.State
// lives in. Version guards optimistic replacement: store only
// succeeds if the document's version still matches what load saw.
type sharedLockDoc struct {
	Key              string            `bson:"_id"`
	Version          int64             `bson:"version"`
	Mode             sharedlock.Mode   `bson:"mode"`
	WriterOwner      string            `bson:"writerOwner,omitempty"`
	WriterExpiration *time.Time        `bson:"writerExpiration,omitempty"`
	Limit            int               `bson:"limit,omitempty"`
	Slots            []sharedlock.Slot `bson:"slots,omitempty"`
}

func (d sharedLockDoc) state() sharedlock.State {
	return sharedlock.State{
		Mode:             d.Mode,
		WriterOwner:      d.WriterOwner,
		WriterExpiration: d.WriterExpiration,
		Limit:            d.Limit,
		Slots:            d.Slots,
	}
}

// SharedLockAdapter is the sharedlock.RichAdapter backed by MongoDB:
// the whole sharedlock.State for a key lives in one document, read
// then replaced under an optimistic version guard, reusing the exact
// state-transition logic memoryadapter.SharedLockAdapter already
// implements against the same sharedlock.State.Effective contract.
type SharedLockAdapter struct {
	collection *mongo.Collection
}

// NewSharedLockAdapter builds a SharedLockAdapter over collection.
func NewSharedLockAdapter(collection *mongo.Collection) *SharedLockAdapter {
	return &SharedLockAdapter{collection: collection}
}

func (a *SharedLockAdapter) load(ctx context.Context, key string) (sharedlock.State, int64, error) {
	var doc sharedLockDoc

	err := a.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if isNoDocuments(err) {
		return sharedlock.State{Mode: sharedlock.None}, 0, nil
	}
	if err != nil {
		return sharedlock.State{}, 0, err
	}

	return doc.state().Effective(time.Now()), doc.Version, nil
}

func (a *SharedLockAdapter) store(ctx context.Context, key string, version int64, state sharedlock.State) error {
	if state.Mode == sharedlock.None {
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

	doc := sharedLockDoc{
		Key:              key,
		Version:          version + 1,
		Mode:             state.Mode,
		WriterOwner:      state.WriterOwner,
		WriterExpiration: state.WriterExpiration,
		Limit:            state.Limit,
		Slots:            state.Slots,
	}

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

func (a *SharedLockAdapter) AcquireWriter(ctx context.Context, key, owner string, ttl *time.Duration) (bool, error) {
	current, version, err := a.load(ctx, key)
	if err != nil {
		return false, err
	}

	switch current.Mode {
	case sharedlock.Readers:
		return false, nil
	case sharedlock.Writer:
		if current.WriterOwner != owner {
			return false, nil
		}
	}

	var expiration *time.Time
	if ttl != nil {
		t := time.Now().Add(*ttl)
		expiration = &t
	}

	newState := sharedlock.State{Mode: sharedlock.Writer, WriterOwner: owner, WriterExpiration: expiration}
	if err := a.store(ctx, key, version, newState); err != nil {
		return false, err
	}

	return true, nil
}

func (a *SharedLockAdapter) AcquireReader(ctx context.Context, key, slotID string, limit int, ttl *time.Duration) (bool, error) {
	current, version, err := a.load(ctx, key)
	if err != nil {
		return false, err
	}

	if current.Mode == sharedlock.Writer {
		return false, nil
	}

	var expiration *time.Time
	if ttl != nil {
		t := time.Now().Add(*ttl)
		expiration = &t
	}

	if current.Mode == sharedlock.None {
		newState := sharedlock.State{
			Mode:  sharedlock.Readers,
			Limit: limit,
			Slots: []sharedlock.Slot{{ID: slotID, Expiration: expiration}},
		}
		if err := a.store(ctx, key, version, newState); err != nil {
			return false, err
		}

		return true, nil
	}

	if current.Limit != limit {
		return false, sharedlock.LimitMismatchErr{Established: current.Limit, Requested: limit}
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

	current.Slots = append(current.Slots, sharedlock.Slot{ID: slotID, Expiration: expiration})

	return true, a.store(ctx, key, version, current)
}

func (a *SharedLockAdapter) ReleaseWriter(ctx context.Context, key, owner string) (bool, error) {
	current, version, err := a.load(ctx, key)
	if err != nil {
		return false, err
	}

	if current.Mode != sharedlock.Writer || current.WriterOwner != owner {
		return false, nil
	}

	return true, a.store(ctx, key, version, sharedlock.State{Mode: sharedlock.None})
}

func (a *SharedLockAdapter) ReleaseReader(ctx context.Context, key, slotID string) (bool, error) {
	current, version, err := a.load(ctx, key)
	if err != nil {
		return false, err
	}

	if current.Mode != sharedlock.Readers {
		return false, nil
	}

	found := false
	remaining := make([]sharedlock.Slot, 0, len(current.Slots))
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
	if len(remaining) == 0 {
		current.Mode = sharedlock.None
	}

	return true, a.store(ctx, key, version, current)
}

func (a *SharedLockAdapter) ForceReleaseAllReaders(ctx context.Context, key string) (bool, error) {
	current, version, err := a.load(ctx, key)
	if err != nil {
		return false, err
	}

	if current.Mode != sharedlock.Readers {
		return false, nil
	}

	return true, a.store(ctx, key, version, sharedlock.State{Mode: sharedlock.None})
}

func (a *SharedLockAdapter) RefreshWriter(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	current, version, err := a.load(ctx, key)
	if err != nil {
		return false, err
	}

	if current.Mode != sharedlock.Writer || current.WriterOwner != owner || current.WriterExpiration == nil {
		return false, nil
	}

	newExpiration := time.Now().Add(ttl)
	current.WriterExpiration = &newExpiration

	return true, a.store(ctx, key, version, current)
}

func (a *SharedLockAdapter) RefreshReader(ctx context.Context, key, slotID string, ttl time.Duration) (bool, error) {
	current, version, err := a.load(ctx, key)
	if err != nil {
		return false, err
	}

	if current.Mode != sharedlock.Readers {
		return false, nil
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

func (a *SharedLockAdapter) GetState(ctx context.Context, key string) (sharedlock.State, error) {
	state, _, err := a.load(ctx, key)
	return state, err
}

var _ sharedlock.RichAdapter = (*SharedLockAdapter)(nil)
