// Package pool
// Author: momentics <momentics@gmail.com>
//
// Scratch buffer pooling for the socket pumps and channel observers.
// BytePool wraps bytebufferpool so a pump borrows one fixed-length buffer for
// its lifetime and returns it on exit.
package pool
