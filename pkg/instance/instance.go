package instance

import (
	"os"
	"strings"
)

// EnvInstanceID overrides the process identity reported in logs and lock values.
const EnvInstanceID = "STOREFRONT_INSTANCE_ID"

// GetID returns the process instance identifier: the explicit override,
// then the hostname, then "local".
func GetID() string {
	if id := strings.TrimSpace(os.Getenv(EnvInstanceID)); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
