package instance

import "github.com/angelmondragon/merchdrop-backend/pkg/env"

// GetID names the running process in logs and cron locks: an explicit
// INSTANCE_ID, the platform dyno name, or the container hostname.
func GetID() string {
	for _, key := range []string{"INSTANCE_ID", "DYNO", "HOSTNAME"} {
		if id := env.Get(key, ""); id != "" {
			return id
		}
	}
	return "local"
}
