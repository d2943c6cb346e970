package retrypolicy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fileloader/internal/fileerrors"
)

func fastPolicy() Policy {
	return Policy{Attempts: 3, InitialDelay: time.Millisecond, BackoffMultiplier: 2.0}
}

func TestDo_SucceedsFirstTry(t *testing.T) {
	calls := 0
	err := fastPolicy().Do(context.Background(), "op", func(ctx context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesRetryableErrors(t *testing.T) {
	calls := 0
	err := fastPolicy().Do(context.Background(), "op", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return fileerrors.New(fileerrors.KindTransientDB, "transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_StopsAfterMaxAttempts(t *testing.T) {
	calls := 0
	err := fastPolicy().Do(context.Background(), "op", func(ctx context.Context) error {
		calls++
		return fileerrors.New(fileerrors.KindTransientDB, "still failing")
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_NeverRetriesNonRetryableKind(t *testing.T) {
	calls := 0
	err := fastPolicy().Do(context.Background(), "op", func(ctx context.Context) error {
		calls++
		return fileerrors.New(fileerrors.KindMissingHeader, "bad file")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_PlainErrorTreatedAsCodeDefectAndRetried(t *testing.T) {
	calls := 0
	err := fastPolicy().Do(context.Background(), "op", func(ctx context.Context) error {
		calls++
		return errors.New("boom")
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
}
