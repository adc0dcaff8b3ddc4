package health

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisChecker_NilClientIsUnhealthy(t *testing.T) {
	checker := &RedisChecker{Name_: "cache"}
	err := checker.Check(context.Background())
	require.Error(t, err)
	assert.Equal(t, "cache", checker.Name())
}

func TestRunChecks_ReportsUnhealthyStatus(t *testing.T) {
	checker := &RedisChecker{Name_: "jobs_broker"}
	results := RunChecks(context.Background(), checker)

	result, ok := results["jobs_broker"]
	require.True(t, ok)
	assert.Equal(t, "unhealthy", result.Status)
	assert.NotEmpty(t, result.Message)
}
