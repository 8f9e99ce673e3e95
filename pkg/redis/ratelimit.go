package redis

import (
	"context"
	"strconv"
	"time"
)

// FixedWindowAllow counts a hit against scope in the current clock-aligned
// window. The bucket index is part of the key, so a new window starts at
// zero even if the previous key has not expired yet.
func (c *Client) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error) {
	if window <= 0 {
		window = time.Second
	}
	now := time.Now
	if c.now != nil {
		now = c.now
	}
	bucket := now().UnixNano() / int64(window)
	key := c.keys.join("rate_limit", scope, strconv.FormatInt(bucket, 10))

	count, err := c.cmd().Incr(ctx, key).Result()
	if err != nil {
		return false, 0, err
	}
	if count == 1 {
		if err := c.cmd().Expire(ctx, key, window).Err(); err != nil {
			return true, count, err
		}
	}
	return count <= limit, count, nil
}
