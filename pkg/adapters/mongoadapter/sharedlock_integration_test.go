//go:build integration

package mongoadapter_test

import (
	"context"
	"testing"

	"github.com/lerian-oss/coord/pkg/adapters/mongoadapter"
	"github.com/lerian-oss/coord/pkg/sharedlock"
	"github.com/lerian-oss/coord/pkg/sharedlocktest"
	"github.com/stretchr/testify/require"
)

func TestMongoSharedLockAdapter_ConformsToSharedLockSuite(t *testing.T) {
	db := setupDatabase(t)

	sharedlocktest.RunSuite(t, func() sharedlock.RichAdapter {
		collection := db.Collection("sharedlock")
		require.NoError(t, collection.Drop(context.Background()))
		return mongoadapter.NewSharedLockAdapter(collection)
	})
}
