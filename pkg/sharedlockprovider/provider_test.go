package sharedlockprovider_test

import (
	"context"
	"testing"

	"github.com/lerian-oss/coord/common/mlog"
	"github.com/lerian-oss/coord/pkg/adapters/memoryadapter"
	"github.com/lerian-oss/coord/pkg/sharedlockprovider"
	"github.com/stretchr/testify/require"
)

type recordingLogger struct {
	mlog.NoneLogger
	infoCalls, errorCalls int
}

func (l *recordingLogger) Infof(format string, args ...any)  { l.infoCalls++ }
func (l *recordingLogger) Errorf(format string, args ...any) { l.errorCalls++ }

func TestNew_RequiresAdapter(t *testing.T) {
	_, err := sharedlockprovider.New()
	require.Error(t, err)
}

func TestProvider_ReaderWriterExclusion(t *testing.T) {
	provider, err := sharedlockprovider.New(
		sharedlockprovider.WithAdapter(memoryadapter.NewSharedLockAdapter()),
		sharedlockprovider.WithDefaultLimit(2),
	)
	require.NoError(t, err)

	reader := provider.Create("doc-1")
	writer := provider.Create("doc-1")

	ok, err := reader.AcquireReader(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = writer.AcquireWriter(context.Background())
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = reader.ReleaseReader(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = writer.AcquireWriter(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
}

func TestProvider_WithNamespaceIsolatesKeys(t *testing.T) {
	root, err := sharedlockprovider.New(sharedlockprovider.WithAdapter(memoryadapter.NewSharedLockAdapter()))
	require.NoError(t, err)

	tenantA := root.WithNamespace("a")
	tenantB := root.WithNamespace("b")

	require.NotEqual(t, tenantA.Create("doc").Key(), tenantB.Create("doc").Key())
}

func TestNew_RejectsNilLogger(t *testing.T) {
	_, err := sharedlockprovider.New(
		sharedlockprovider.WithAdapter(memoryadapter.NewSharedLockAdapter()),
		sharedlockprovider.WithLogger(nil),
	)
	require.Error(t, err)
}

func TestProvider_AcquireReaderLogsThroughConfiguredLogger(t *testing.T) {
	logger := &recordingLogger{}
	provider, err := sharedlockprovider.New(
		sharedlockprovider.WithAdapter(memoryadapter.NewSharedLockAdapter()),
		sharedlockprovider.WithLogger(logger),
	)
	require.NoError(t, err)

	handle := provider.Create("doc-2")
	ok, err := handle.AcquireReader(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, logger.infoCalls)
	require.Equal(t, 0, logger.errorCalls)
}
