package mongoadapter

import (
	"testing"
	"time"

	"github.com/lerian-oss/coord/pkg/sharedlock"
	"github.com/stretchr/testify/require"
)

func TestSharedLockDoc_StateRoundTrip(t *testing.T) {
	expiration := time.Now().Add(time.Minute)

	doc := sharedLockDoc{
		Key:              "k",
		Version:          3,
		Mode:             sharedlock.Readers,
		Limit:            2,
		Slots:            []sharedlock.Slot{{ID: "s1", Expiration: &expiration}},
	}

	state := doc.state()

	require.Equal(t, sharedlock.Readers, state.Mode)
	require.Equal(t, 2, state.Limit)
	require.Len(t, state.Slots, 1)
	require.Equal(t, "s1", state.Slots[0].ID)
	require.Equal(t, &expiration, state.Slots[0].Expiration)
}

func TestSharedLockDoc_WriterState(t *testing.T) {
	expiration := time.Now().Add(time.Minute)

	doc := sharedLockDoc{
		Key:              "k",
		Version:          1,
		Mode:             sharedlock.Writer,
		WriterOwner:      "o1",
		WriterExpiration: &expiration,
	}

	state := doc.state()

	require.Equal(t, sharedlock.Writer, state.Mode)
	require.Equal(t, "o1", state.WriterOwner)
	require.Equal(t, &expiration, state.WriterExpiration)
}
