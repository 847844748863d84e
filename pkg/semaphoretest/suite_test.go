package semaphoretest_test

import (
	"testing"

	"github.com/lerian-oss/coord/pkg/adapters/memoryadapter"
	"github.com/lerian-oss/coord/pkg/semaphore"
	"github.com/lerian-oss/coord/pkg/semaphoretest"
)

func TestMemoryAdapter_ConformsToSemaphoreSuite(t *testing.T) {
	semaphoretest.RunSuite(t, func() semaphore.RichAdapter {
		return memoryadapter.NewSemaphoreAdapter()
	})
}
