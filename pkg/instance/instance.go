package instance

import "os"

// ID names the running process in logs. NILGIRISFRESH_INSTANCE_ID wins over
// the hostname.
func ID() string {
	if id := os.Getenv("NILGIRISFRESH_INSTANCE_ID"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "instance-0"
}
