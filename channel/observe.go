// File: channel/observe.go
// Author: momentics <momentics@gmail.com>
//
// Progress-reporting copy between channels.

package channel

import (
	"context"
	"errors"
	"io"

	"github.com/momentics/hioload-net/api"
	"github.com/momentics/hioload-net/pool"
)

var scratch = pool.NewBytePool(pool.DefaultBufferSize)

// Observe returns a channel carrying the bytes of src and reports progress to
// fn after every batch. The copy stops at the first end-of-stream or failure
// of src; a failure becomes the cause of the returned channel. An empty
// source reports (0, total) exactly once.
func Observe(ctx context.Context, src api.ByteReadChannel, total int64, fn api.ProgressListener) *ByteChannel {
	dst := New(DefaultCapacity, WithProgress(total, fn))
	go func() {
		_, err := Copy(ctx, dst, src, nil)
		_ = dst.CloseWithError(err)
	}()
	return dst
}

// Copy moves bytes from src to dst until src reaches end-of-stream and
// returns the number of bytes moved. io.EOF from src is not an error. dst is
// left open. A nil buf borrows a scratch buffer from the package pool.
func Copy(ctx context.Context, dst api.ByteWriteChannel, src api.ByteReadChannel, buf []byte) (int64, error) {
	if len(buf) == 0 {
		b := scratch.GetBuffer()
		defer scratch.PutBuffer(b)
		buf = b.B
	}

	var moved int64
	for {
		n, rerr := src.ReadContext(ctx, buf)
		if n > 0 {
			w, werr := dst.WriteContext(ctx, buf[:n])
			moved += int64(w)
			if werr != nil {
				return moved, werr
			}
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				return moved, nil
			}
			return moved, rerr
		}
	}
}
