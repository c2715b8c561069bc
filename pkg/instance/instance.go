// Package instance names the running process in logs and lock owners.
package instance

import (
	"fmt"
	"os"
)

const envKey = "STOCKLEDGER_INSTANCE_ID"

// GetID returns STOCKLEDGER_INSTANCE_ID, else hostname-pid.
func GetID() string {
	if id := os.Getenv(envKey); id != "" {
		return id
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "stockledger"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}
