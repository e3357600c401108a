package model

import "time"

// Shared defaults used by the CLI and the streamer.
const (
	DefaultHost       = "localhost"
	DefaultPort       = 9999
	DefaultSourcePath = "AvianInfluenza.csv"
	DefaultMirrorPath = "out9.txt"
	DefaultAuditPath  = "streaming_log.txt"
	DefaultMinDelay   = 1 * time.Second
	DefaultMaxDelay   = 3 * time.Second
)
