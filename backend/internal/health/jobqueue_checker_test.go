package health

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobQueueChecker_NilQueueIsUnhealthy(t *testing.T) {
	checker := &JobQueueChecker{}
	err := checker.Check(context.Background())
	require.Error(t, err)
	assert.Equal(t, "job_queue", checker.Name())
}
