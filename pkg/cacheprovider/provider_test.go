package cacheprovider_test

import (
	"context"
	"testing"
	"time"

	"github.com/lerian-oss/coord/common/mlog"
	"github.com/lerian-oss/coord/pkg/adapters/memoryadapter"
	"github.com/lerian-oss/coord/pkg/cacheprovider"
	"github.com/stretchr/testify/require"
)

type recordingLogger struct {
	mlog.NoneLogger
	infoCalls, errorCalls int
}

func (l *recordingLogger) Infof(format string, args ...any)  { l.infoCalls++ }
func (l *recordingLogger) Errorf(format string, args ...any) { l.errorCalls++ }

func TestNew_RequiresAdapter(t *testing.T) {
	_, err := cacheprovider.New()
	require.Error(t, err)
}

func TestProvider_SetGetDelete(t *testing.T) {
	provider, err := cacheprovider.New(cacheprovider.WithAdapter(memoryadapter.NewCacheAdapter()))
	require.NoError(t, err)

	handle := provider.Create("session-1")

	require.NoError(t, handle.Set(context.Background(), []byte("payload")))

	value, found, err := handle.Get(context.Background())
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("payload"), value)

	ok, err := handle.Delete(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
}

func TestProvider_DefaultTTLAppliesToSet(t *testing.T) {
	provider, err := cacheprovider.New(
		cacheprovider.WithAdapter(memoryadapter.NewCacheAdapter()),
		cacheprovider.WithDefaultTTL(30*time.Millisecond),
	)
	require.NoError(t, err)

	handle := provider.Create("session-2")
	require.NoError(t, handle.Set(context.Background(), []byte("v")))

	time.Sleep(40 * time.Millisecond)

	_, found, err := handle.Get(context.Background())
	require.NoError(t, err)
	require.False(t, found)
}

func TestProvider_WithNamespaceIsolatesKeys(t *testing.T) {
	root, err := cacheprovider.New(cacheprovider.WithAdapter(memoryadapter.NewCacheAdapter()))
	require.NoError(t, err)

	tenantA := root.WithNamespace("a")
	tenantB := root.WithNamespace("b")

	require.NotEqual(t, tenantA.Create("k").Key(), tenantB.Create("k").Key())
}

func TestNew_RejectsNilLogger(t *testing.T) {
	_, err := cacheprovider.New(
		cacheprovider.WithAdapter(memoryadapter.NewCacheAdapter()),
		cacheprovider.WithLogger(nil),
	)
	require.Error(t, err)
}

func TestProvider_SetLogsThroughConfiguredLogger(t *testing.T) {
	logger := &recordingLogger{}
	provider, err := cacheprovider.New(
		cacheprovider.WithAdapter(memoryadapter.NewCacheAdapter()),
		cacheprovider.WithLogger(logger),
	)
	require.NoError(t, err)

	handle := provider.Create("session-3")
	require.NoError(t, handle.Set(context.Background(), []byte("v")))
	require.Equal(t, 1, logger.infoCalls)
	require.Equal(t, 0, logger.errorCalls)
}
