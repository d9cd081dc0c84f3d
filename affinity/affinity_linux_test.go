//go:build linux
// +build linux

package affinity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-net/api"
)

func TestPin_RestrictsThreadToCPU(t *testing.T) {
	var before unix.CPUSet
	require.NoError(t, unix.SchedGetaffinity(0, &before))

	cpu := -1
	for i := 0; i < 1024; i++ {
		if before.IsSet(i) {
			cpu = i
			break
		}
	}
	require.GreaterOrEqual(t, cpu, 0)

	unpin, err := Pin(cpu)
	defer unpin()
	defer func() { _ = unix.SchedSetaffinity(0, &before) }()
	require.NoError(t, err)

	var after unix.CPUSet
	require.NoError(t, unix.SchedGetaffinity(0, &after))
	assert.Equal(t, 1, after.Count())
	assert.True(t, after.IsSet(cpu))
}

func TestSetAffinity_OutOfRange(t *testing.T) {
	assert.ErrorIs(t, SetAffinity(-1), api.ErrInvalid)
	assert.ErrorIs(t, SetAffinity(1<<20), api.ErrInvalid)
}
