package control

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_NilReceiverIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.SelectorWait()
		m.SelectorWakeup()
		m.SelectorCancelled(3)
		m.SpuriousPoll()
		m.AddRegistrations(1)
		m.Accepted()
		m.AcceptError("unknown")
		m.BytesRead(10)
		m.BytesWritten(10)
		m.ConnOpened()
		m.ConnClosed()
		m.ChannelSuspended("read")
	})
}

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.SelectorWait()
	m.SelectorWait()
	m.SelectorWakeup()
	m.SelectorCancelled(2)
	m.SelectorCancelled(0)
	m.BytesRead(100)
	m.BytesRead(-1)
	m.BytesWritten(42)
	m.ConnOpened()
	m.ConnOpened()
	m.ConnClosed()
	m.AcceptError("resource_exhausted")
	m.ChannelSuspended("write")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.selectorWaits))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.selectorWakeups))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.selectorCancellations))
	assert.Equal(t, 100.0, testutil.ToFloat64(m.bytesRead))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.bytesWritten))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.activeConns))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.acceptErrors.WithLabelValues("resource_exhausted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.chanSuspended.WithLabelValues("write")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestDebugProbes_DumpState(t *testing.T) {
	dp := NewDebugProbes()
	dp.RegisterProbe("answer", func() any { return 42 })
	RegisterPlatformProbes(dp)

	state := dp.DumpState()
	assert.Equal(t, 42, state["answer"])
	assert.Contains(t, state, "platform.cpus")
}
