// Package channel
// Author: momentics <momentics@gmail.com>
//
// Bounded, suspendable byte pipes bridging non-blocking sockets to sequential
// readers and writers.
//
// A ByteChannel moves through Open, ClosedForWrite and Drained. Writers block
// while the ring is full, readers block while it is empty and open. Closing
// wakes both sides; readers drain what is buffered and then observe io.EOF or
// the recorded cause.
package channel
