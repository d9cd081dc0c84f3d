package api_test

import (
	"context"
	"testing"

	"github.com/momentics/hioload-net/api"
)

func TestByteChannelInterfaceCompliance(t *testing.T) {
	var _ api.ByteChannel = (*mockChannel)(nil)
	var _ api.ByteReadChannel = (*mockChannel)(nil)
	var _ api.ByteWriteChannel = (*mockChannel)(nil)
}

func TestInterestDirections(t *testing.T) {
	cases := map[api.Interest]bool{
		api.InterestRead:    false,
		api.InterestAccept:  false,
		api.InterestWrite:   true,
		api.InterestConnect: true,
	}
	for i, out := range cases {
		if i.Output() != out {
			t.Fatalf("%s: Output() = %v, want %v", i, i.Output(), out)
		}
	}
	if api.Interest(9).String() != "unknown" {
		t.Fatal("unexpected name for out-of-range interest")
	}
}

// mockChannel satisfies api.ByteChannel for the compliance check.
type mockChannel struct{}

func (*mockChannel) Read([]byte) (int, error)                              { return 0, nil }
func (*mockChannel) ReadContext(context.Context, []byte) (int, error)      { return 0, nil }
func (*mockChannel) IsClosedForRead() bool                                 { return false }
func (*mockChannel) Cause() error                                          { return nil }
func (*mockChannel) Available() int                                        { return 0 }
func (*mockChannel) Write(p []byte) (int, error)                           { return len(p), nil }
func (*mockChannel) WriteContext(_ context.Context, p []byte) (int, error) { return len(p), nil }
func (*mockChannel) Close() error                                          { return nil }
func (*mockChannel) CloseWithError(error) error                            { return nil }
func (*mockChannel) IsClosedForWrite() bool                                { return false }
