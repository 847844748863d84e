// Package mongoadapter implements every primitive's RichAdapter
// directly over go.mongodb.org/mongo-driver (spec §4.1's "rich
// adapter" shape, SPEC_FULL.md §3's MongoDB backend). The exclusive
// lock uses a single findOneAndUpdate upsert-with-filter call, the
// same idiom the retrieval pack's holder.mongodb.go/audit.mongodb.go
// repositories use for their create/update-by-id calls, adapted so a
// conflicting live lock surfaces as a duplicate-key error instead of
// a silent no-match. The compound primitives (shared-lock, semaphore)
// store their already-defined State value as one document per key and
// mutate it under an optimistic version check, porting the exact
// state-transition logic pkg/adapters/memoryadapter already
// implements rather than re-deriving it in an aggregation pipeline.
package mongoadapter

import (
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
)

// ErrConflict is returned when a compound primitive's document was
// modified concurrently between load and store; callers retry through
// the policy layer, mirroring how redisadapter surfaces go-redis's own
// transaction-conflict error from a WATCH/MULTI round trip.
var ErrConflict = errors.New("mongoadapter: concurrent modification, retry")

func isDuplicateKey(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
