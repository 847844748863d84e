//go:build integration

package mongoadapter_test

import (
	"context"
	"testing"

	"github.com/lerian-oss/coord/pkg/adapters/mongoadapter"
	"github.com/lerian-oss/coord/pkg/lockengine"
	"github.com/lerian-oss/coord/pkg/locktest"
	"github.com/stretchr/testify/require"
)

func TestMongoLockAdapter_ConformsToLockSuite(t *testing.T) {
	db := setupDatabase(t)

	locktest.RunSuite(t, func() lockengine.RichAdapter {
		collection := db.Collection("lock")
		require.NoError(t, collection.Drop(context.Background()))
		return mongoadapter.NewLockAdapter(collection)
	})
}
