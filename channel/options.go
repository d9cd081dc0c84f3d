// File: channel/options.go
// Author: momentics <momentics@gmail.com>

package channel

import (
	"github.com/momentics/hioload-net/api"
	"github.com/momentics/hioload-net/control"
)

// Option configures a ByteChannel.
type Option func(*ByteChannel)

// WithProgress registers fn to be called after every write batch with the
// running byte count and total, where total is -1 when unknown.
func WithProgress(total int64, fn api.ProgressListener) Option {
	return func(c *ByteChannel) {
		c.progress = fn
		c.expected = total
	}
}

// WithMetrics counts suspensions of readers and writers.
func WithMetrics(m *control.Metrics) Option {
	return func(c *ByteChannel) { c.metrics = m }
}
