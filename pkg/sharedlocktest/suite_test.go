package sharedlocktest_test

import (
	"testing"

	"github.com/lerian-oss/coord/pkg/adapters/memoryadapter"
	"github.com/lerian-oss/coord/pkg/sharedlock"
	"github.com/lerian-oss/coord/pkg/sharedlocktest"
)

func TestMemoryAdapter_ConformsToSharedLockSuite(t *testing.T) {
	sharedlocktest.RunSuite(t, func() sharedlock.RichAdapter {
		return memoryadapter.NewSharedLockAdapter()
	})
}
