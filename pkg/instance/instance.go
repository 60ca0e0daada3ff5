package instance

import "os"

// GetID identifies the running process in logs. REPAIRDESK_INSTANCE_ID wins,
// then the platform's dyno name, then the hostname.
func GetID() string {
	for _, key := range []string{"REPAIRDESK_INSTANCE_ID", "DYNO"} {
		if id := os.Getenv(key); id != "" {
			return id
		}
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
