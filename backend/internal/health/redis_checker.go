package health

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisChecker verifies connectivity to a Redis instance by pinging it.
// tensiond uses it for both the coordinator's cache and the job queue's
// broker, since both are just Redis under the same roof.
type RedisChecker struct {
	Name_  string
	Client *redis.Client
}

func (r *RedisChecker) Name() string { return r.Name_ }

func (r *RedisChecker) Check(ctx context.Context) error {
	if r.Client == nil {
		return fmt.Errorf("redis client not initialized")
	}
	return r.Client.Ping(ctx).Err()
}
