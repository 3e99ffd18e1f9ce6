package now

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNow_ConstValue_Success(t *testing.T) {
	mockTime := time.Unix(12, 11).UTC()
	ctx := WithTime(context.Background(), mockTime)

	require.NotEqual(t, mockTime, Now(context.Background()))
	require.Equal(t, mockTime, Now(ctx))
}

func TestNow_NowProvider_Success(t *testing.T) {
	var calls int64
	ctx := context.WithValue(context.Background(), ContextKey, NowProvider(func() time.Time {
		calls++
		return time.Unix(calls, 0).UTC()
	}))

	require.Equal(t, int64(1), Now(ctx).Unix())
	require.Equal(t, int64(2), Now(ctx).Unix())
}

func TestNow_InvalidValue_Panics(t *testing.T) {
	ctx := context.WithValue(context.Background(), ContextKey, "not a time")
	require.Panics(t, func() {
		Now(ctx)
	})
}
