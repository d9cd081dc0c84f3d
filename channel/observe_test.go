package channel

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserve_CopiesAndReports(t *testing.T) {
	src := New(64)
	want := pattern(1000)
	go func() {
		_, _ = src.Write(want)
		_ = src.Close()
	}()

	var log progressLog
	out := Observe(context.Background(), src, int64(len(want)), log.listener)
	got, err := io.ReadAll(out)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	calls := log.snapshot()
	require.NotEmpty(t, calls)
	assert.Equal(t, [2]int64{1000, 1000}, calls[len(calls)-1])
}

func TestObserve_EmptySourceReportsOnce(t *testing.T) {
	src := New(8)
	require.NoError(t, src.Close())

	var log progressLog
	out := Observe(context.Background(), src, 0, log.listener)
	got, err := io.ReadAll(out)
	require.NoError(t, err)
	assert.Empty(t, got)

	select {
	case <-out.Done():
	case <-time.After(time.Second):
		t.Fatal("observer did not finish")
	}
	assert.Equal(t, [][2]int64{{0, 0}}, log.snapshot())
}

func TestObserve_PropagatesSourceCause(t *testing.T) {
	src := New(8)
	cause := errors.New("upstream reset")
	_, err := src.Write([]byte("ab"))
	require.NoError(t, err)
	require.NoError(t, src.CloseWithError(cause))

	out := Observe(context.Background(), src, UnknownTotal, nil)
	got, err := io.ReadAll(out)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "ab", string(got))
}

func TestCopy_StopsAtEndOfStream(t *testing.T) {
	src, dst := New(16), New(16)
	_, err := src.Write([]byte("payload"))
	require.NoError(t, err)
	require.NoError(t, src.Close())

	n, err := Copy(context.Background(), dst, src, make([]byte, 3))
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	assert.False(t, dst.IsClosedForWrite())
	assert.Equal(t, 7, dst.Available())
}

func TestCopy_ReportsWriteFailure(t *testing.T) {
	src, dst := New(16), New(16)
	_, err := src.Write([]byte("x"))
	require.NoError(t, err)
	require.NoError(t, dst.Close())

	_, err = Copy(context.Background(), dst, src, nil)
	assert.Error(t, err)
}
