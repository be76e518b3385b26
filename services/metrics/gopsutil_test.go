package metricssvc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCollector_Snapshot(t *testing.T) {
	snap, err := NewCollector().Snapshot()
	if err != nil {
		t.Skipf("host metrics unavailable: %v", err)
	}

	assert.True(t, snap.CPUCountLogical > 0)
	assert.True(t, snap.Memory.Total > 0)
	assert.True(t, snap.Uptime > 0)
	assert.NotEmpty(t, snap.DiskUsage.Path)
}
