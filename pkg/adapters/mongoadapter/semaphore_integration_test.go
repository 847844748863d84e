//go:build integration

package mongoadapter_test

import (
	"context"
	"testing"

	"github.com/lerian-oss/coord/pkg/adapters/mongoadapter"
	"github.com/lerian-oss/coord/pkg/semaphore"
	"github.com/lerian-oss/coord/pkg/semaphoretest"
	"github.com/stretchr/testify/require"
)

func TestMongoSemaphoreAdapter_ConformsToSemaphoreSuite(t *testing.T) {
	db := setupDatabase(t)

	semaphoretest.RunSuite(t, func() semaphore.RichAdapter {
		collection := db.Collection("semaphore")
		require.NoError(t, collection.Drop(context.Background()))
		return mongoadapter.NewSemaphoreAdapter(collection)
	})
}
