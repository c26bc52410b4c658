package config

import "time"

// Timeout constants used across cmd.
const (
	NodeSelectTimeout  = 10 * time.Second // node benchmark / selection
	QueryTimeout       = 30 * time.Second // state queries
	DeployWaitTimeout  = 5 * time.Minute  // waiting for a deploy to execute
	DeployPollInterval = 2 * time.Second
)
